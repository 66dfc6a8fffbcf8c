package ntfs

import (
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/forensicgo/carvidx/internal/config"
	"github.com/forensicgo/carvidx/internal/disk"
)

// Entry is one decorated $FILE_NAME record surfaced by Walk, whether found
// live in an index node or carved from its slack space.
type Entry struct {
	ParentPath           string
	Filename             string
	FileReference        FileReference
	ParentReference      FileReference
	Size                 uint64
	AllocatedSize        uint64
	CreationTime         time.Time
	LastModificationTime time.Time
	LastMFTChangeTime    time.Time
	LastAccessTime       time.Time
	Flags                FileAttrFlags
	IsSlack              bool
}

// Walker holds the parsed MFT and volume geometry needed to stream decorated
// entries without re-reading the image for each directory.
type Walker struct {
	reader *disk.Reader
	vol    VolumeGeometry
	cfg    config.Options
	log    *zap.SugaredLogger

	mftMap    map[FileReference]*directory
	liveRefs  map[FileReference]bool
	pathCache map[FileReference]string
}

// NewWalker opens the volume at cfg's partition offset, builds the MFT
// directory map, and returns a Walker ready to stream entries. It returns
// ErrBadVolume or ErrBadFirstRecord if the volume or MFT bootstrap record is
// unreadable.
func NewWalker(r *disk.Reader, cfg config.Options, log *zap.SugaredLogger) (*Walker, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	vol, err := ReadVolumeGeometry(r, cfg.PartitionOffsetBytes())
	if err != nil {
		return nil, err
	}

	w := &Walker{
		reader:    r,
		vol:       vol,
		cfg:       cfg,
		log:       log,
		mftMap:    make(map[FileReference]*directory),
		liveRefs:  make(map[FileReference]bool),
		pathCache: make(map[FileReference]string),
	}
	if err := w.buildMFTMap(); err != nil {
		return nil, err
	}
	return w, nil
}

// Walk is a pull iterator over every live and carved directory entry found
// across the volume, usable directly with a range-over-func loop:
//
//	for entry := range walker.Walk {
//	    ...
//	}
//
// Returning false from the loop body (or a `break`) stops the walk without
// reading any further index records.
func (w *Walker) Walk(yield func(Entry) bool) {
	keys := make([]FileReference, 0, len(w.mftMap))
	for key := range w.mftMap {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Index != keys[j].Index {
			return keys[i].Index < keys[j].Index
		}
		return keys[i].Sequence < keys[j].Sequence
	})

	for _, key := range keys {
		dir := w.mftMap[key]
		if len(dir.indexStreams) == 0 {
			continue
		}

		var live, slack []carvedEntry
		liveByName := make(map[string]FileReference)

		for _, stream := range dir.indexStreams {
			recordSize := int(w.vol.BytesPerIndexRecord)
			stream.Seek(0, io.SeekStart)
			for {
				raw, err := stream.ReadN(recordSize)
				if err != nil || len(raw) < recordSize {
					break
				}
				w.parseIndexRecord(raw, key, func(e carvedEntry) {
					if e.IsSlack {
						slack = append(slack, e)
					} else {
						live = append(live, e)
						liveByName[e.Filename.Filename] = e.FileReference
					}
				})
			}
		}

		for _, e := range live {
			if w.cfg.SlackOnly {
				continue
			}
			if !w.emit(key, e, yield) {
				return
			}
		}
		for _, e := range slack {
			if w.cfg.SlackOnly {
				if ref, ok := liveByName[e.Filename.Filename]; ok && ref == e.FileReference {
					continue
				}
			}
			if !w.emit(key, e, yield) {
				return
			}
		}
	}
}

func (w *Walker) emit(dirKey FileReference, e carvedEntry, yield func(Entry) bool) bool {
	if w.cfg.DeletedOnly && w.liveRefs[e.FileReference] {
		return true
	}
	entry := Entry{
		ParentPath:           w.parentPathForEntry(dirKey, e),
		Filename:             e.Filename.Filename,
		FileReference:        e.FileReference,
		ParentReference:      e.Filename.ParentReference,
		Size:                 e.Filename.RealSize,
		AllocatedSize:        e.Filename.AllocatedSize,
		CreationTime:         e.Filename.CreationTime,
		LastModificationTime: e.Filename.LastModificationTime,
		LastMFTChangeTime:    e.Filename.LastMFTChangeTime,
		LastAccessTime:       e.Filename.LastAccessTime,
		Flags:                e.Filename.Flags,
		IsSlack:              e.IsSlack,
	}
	return yield(entry)
}
