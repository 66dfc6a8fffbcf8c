// Package config holds the tunable parameters of a carving run: where the
// volume starts, how its sectors are sized, which entries to surface, and
// how to format them.
package config

import "time"

const (
	// DefaultSectorSizeBytes is assumed when a caller doesn't know better.
	DefaultSectorSizeBytes = 512

	// DefaultMountPoint prefixes every resolved path when the caller hasn't
	// supplied the drive letter or mount point the image was taken from.
	DefaultMountPoint = "C:"

	// DefaultOutputFormat names the format used when none is requested.
	DefaultOutputFormat = "csv"
)

// DefaultCarveWindowStart and DefaultCarveWindowEnd bound the FILETIME
// plausibility check the slack carver uses to recognize a $FILE_NAME
// attribute's four timestamps among raw bytes.
var (
	DefaultCarveWindowStart = time.Date(1997, 1, 11, 0, 0, 0, 0, time.UTC)
	DefaultCarveWindowEnd   = time.Date(2026, 6, 19, 0, 0, 0, 0, time.UTC)
)

// OutputFormat selects an internal/format encoder.
type OutputFormat string

const (
	FormatCSV      OutputFormat = "csv"
	FormatJSONLine OutputFormat = "jsonl"
	FormatBodyfile OutputFormat = "bodyfile"
)

// Options configures one carving run end to end.
type Options struct {
	// MountPoint prefixes every resolved path in the output, since an image
	// carries no record of the drive letter or mount point it was taken
	// from.
	//
	// Default: "C:"
	MountPoint string

	// PartitionOffsetSectors is where the NTFS volume begins within the
	// image, in units of SectorSizeBytes. Zero if the image is a single
	// volume rather than a full disk.
	//
	// Default: 0
	PartitionOffsetSectors int64

	// SectorSizeBytes is the physical sector size used to interpret
	// PartitionOffsetSectors.
	//
	// Default: 512
	SectorSizeBytes int

	// IncludeDeletedDirs walks directory records whose MFT allocation bit is
	// clear, in addition to live ones.
	//
	// Default: false
	IncludeDeletedDirs bool

	// SlackOnly restricts output to slack-carved entries that are not also
	// present, with an identical file reference, among their directory's
	// live entries. When true, live entries are not emitted at all.
	//
	// Default: false
	SlackOnly bool

	// DeletedOnly additionally filters by file reference liveness across
	// the whole MFT: an entry is suppressed if its file reference currently
	// names a record that is both in use and at the same sequence number.
	// This answers a broader question than SlackOnly ("is this reference
	// stale anywhere on the volume" vs. "does this directory still list
	// it"), carried over from the tool this was distilled from.
	//
	// Default: false
	DeletedOnly bool

	// OutputFormat selects the encoding written by internal/format.
	//
	// Default: FormatCSV
	OutputFormat OutputFormat

	// Dedup buffers all emitted lines and drops exact duplicates before the
	// final write, trading memory for a strictly unique-lines guarantee.
	//
	// Default: false
	Dedup bool

	// CarveWindowStart and CarveWindowEnd bound the timestamp plausibility
	// check used to recognize candidate $FILE_NAME attributes in slack
	// space. The check is coarse: a candidate is rejected if the
	// second-highest byte of any of its four timestamps falls outside the
	// range spanned by that byte of the two bounds, so timestamps a few
	// months outside the window can still pass.
	CarveWindowStart time.Time
	CarveWindowEnd   time.Time
}

// Default returns the Options a run should use absent any explicit flags.
func Default() Options {
	return Options{
		MountPoint:             DefaultMountPoint,
		PartitionOffsetSectors: 0,
		SectorSizeBytes:        DefaultSectorSizeBytes,
		IncludeDeletedDirs:     false,
		SlackOnly:              false,
		DeletedOnly:            false,
		OutputFormat:           FormatCSV,
		Dedup:                  false,
		CarveWindowStart:       DefaultCarveWindowStart,
		CarveWindowEnd:         DefaultCarveWindowEnd,
	}
}

// PartitionOffsetBytes is PartitionOffsetSectors expressed in bytes.
func (o Options) PartitionOffsetBytes() int64 {
	return o.PartitionOffsetSectors * int64(o.SectorSizeBytes)
}
