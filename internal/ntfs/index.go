package ntfs

import (
	"encoding/binary"
	"time"
	"unicode"
	"unicode/utf8"
)

// carvedEntry is an index entry before path resolution: either pulled live
// from a B-tree node's entry list or recovered from its slack space.
type carvedEntry struct {
	FileReference FileReference
	Flags         uint32
	Filename      FilenameAttribute
	IsSlack       bool
}

type indexRecordHeader struct {
	usaOffset               uint16
	usaSize                 uint16
	firstEntryOffsetField   uint32
	endOfEntriesOffsetField uint32
}

func (h indexRecordHeader) firstEntryOffset() int {
	return nodeHeaderOffset + int(h.firstEntryOffsetField)
}

func (h indexRecordHeader) endOfEntriesOffset() int {
	return nodeHeaderOffset + int(h.endOfEntriesOffsetField)
}

func parseIndexRecordHeader(rec []byte) (indexRecordHeader, error) {
	if len(rec) < nodeHeaderOffset+16 {
		return indexRecordHeader{}, reject("index record shorter than its node header")
	}
	if string(rec[0:4]) != indexMagic {
		return indexRecordHeader{}, reject("missing INDX magic")
	}
	return indexRecordHeader{
		usaOffset:               binary.LittleEndian.Uint16(rec[4:6]),
		usaSize:                 binary.LittleEndian.Uint16(rec[6:8]),
		firstEntryOffsetField:   binary.LittleEndian.Uint32(rec[nodeHeaderOffset : nodeHeaderOffset+4]),
		endOfEntriesOffsetField: binary.LittleEndian.Uint32(rec[nodeHeaderOffset+4 : nodeHeaderOffset+8]),
	}, nil
}

// parseIndexRecord validates and fixes up one $INDEX_ALLOCATION record,
// walks its live entries, and then carves its slack space. A record missing
// the INDX magic is skipped outright; one that fails fixup is carved in its
// entirety since its live region can no longer be trusted.
func (w *Walker) parseIndexRecord(raw []byte, parentRef FileReference, emit func(carvedEntry)) {
	if len(raw) < 4 || string(raw[0:4]) != indexMagic {
		return
	}

	header, err := parseIndexRecordHeader(raw)
	if err != nil {
		w.log.Warnw("index record header malformed, carving as slack")
		w.carveSlack(raw, 0, emit)
		return
	}

	sectorsOK := header.usaSize >= 1 && (int(header.usaSize)-1)*int(w.vol.BytesPerSector) == len(raw)
	fixupOK := sectorsOK && applyFixup(raw, header.usaOffset, header.usaSize, int(w.vol.BytesPerSector))
	if !fixupOK {
		w.log.Warnw("index record fixup mismatch, carving as slack")
		w.carveSlack(raw, 0, emit)
		return
	}

	slackStart := w.walkLiveEntries(raw, header, emit)
	w.carveSlack(raw, slackStart, emit)
}

// walkLiveEntries follows the node's live entry list from its first offset
// to its end-of-entries offset (or the LAST_ENTRY sentinel, whichever comes
// first), emitting a carvedEntry per named entry. It returns where slack
// begins: the end-of-entries offset, or the offset of the entry at which a
// structural error abandoned the walk.
func (w *Walker) walkLiveEntries(rec []byte, h indexRecordHeader, emit func(carvedEntry)) int {
	offset := h.firstEntryOffset()
	endOfEntries := h.endOfEntriesOffset()

	for offset+indexEntryHeaderSize <= len(rec) && offset < endOfEntries {
		fileRef := decodeFileReference(rec[offset : offset+8])
		entrySize := int(binary.LittleEndian.Uint16(rec[offset+8 : offset+10]))
		contentSize := int(binary.LittleEndian.Uint16(rec[offset+10 : offset+12]))
		flags := binary.LittleEndian.Uint32(rec[offset+12 : offset+16])

		if entrySize < indexEntryHeaderSize || entrySize%8 != 0 || offset+entrySize > len(rec) {
			w.log.Warnw("structural error in live index walk, abandoning to slack carve", "offset", offset)
			return offset
		}

		last := flags&entryFlagLastEntry != 0
		if !last && contentSize > 0 {
			contentStart := offset + indexEntryHeaderSize
			contentEnd := contentStart + contentSize
			if contentEnd > len(rec) {
				w.log.Warnw("index entry content exceeds record, abandoning to slack carve", "offset", offset)
				return offset
			}
			fn, err := decodeFilenameAttribute(rec[contentStart:contentEnd])
			if err == nil {
				emit(carvedEntry{
					FileReference: fileRef,
					Flags:         flags,
					Filename:      fn,
					IsSlack:       false,
				})
			}
		}

		offset += entrySize
		if last {
			break
		}
	}
	return endOfEntries
}

// carvePatternLen is the span, in bytes, of the byte pattern the slack
// carver looks for: four FILETIME fields, an allocated-size low byte, 23
// unconstrained bytes, a filename-length byte, and a namespace byte.
const carvePatternLen = 58

// carveWindowHighBytes bounds the FILETIME second-highest byte the carver
// accepts, corresponding to config.Options.CarveWindowStart/End. That byte
// changes roughly once every 326 days (2^48 ticks), so it's a coarse but cheap
// plausibility filter to scan for byte-by-byte.
func (w *Walker) carveWindowHighBytes() (byte, byte) {
	return timeToFiletimeHighByte(w.cfg.CarveWindowStart), timeToFiletimeHighByte(w.cfg.CarveWindowEnd)
}

// timeToFiletimeHighByte returns a FILETIME's second-highest byte (bits
// 48-55) for t, which is the byte that varies across the 1997-2026 carve
// window while the highest byte (bits 56-63) stays pinned at 0x01. Built
// from Unix seconds/nanoseconds rather than t.Sub(ntfsEpoch), since that
// Duration subtraction saturates well before reaching a modern date (see
// filetimeToTime).
func timeToFiletimeHighByte(t time.Time) byte {
	seconds := t.Unix() + filetimeEpochDeltaSeconds
	ft := uint64(seconds)*1e7 + uint64(t.Nanosecond())/100
	return byte(ft >> 48)
}

// carveSlack scans raw[start:] for the timestamp-anchored byte pattern of a
// $FILE_NAME attribute and attempts to parse a full index entry around each
// match, emitting any that survive relaxed structural and character checks.
func (w *Walker) carveSlack(raw []byte, start int, emit func(carvedEntry)) {
	if start < 0 {
		start = 0
	}
	loMin, loMax := w.carveWindowHighBytes()
	if loMin > loMax {
		loMin, loMax = loMax, loMin
	}

	for p := start; p+carvePatternLen <= len(raw); p++ {
		window := raw[p : p+carvePatternLen]
		if !matchesCarvePattern(window, loMin, loMax) {
			continue
		}

		entryStart := p - 24
		if entryStart < 0 {
			continue
		}
		entry, err := parseCarvedEntry(raw[entryStart:])
		if err != nil {
			continue
		}
		emit(entry)
	}
}

// matchesCarvePattern tests window against the layout described on
// carveSlack: four plausible FILETIMEs, an 8-aligned allocated-size low
// byte, 23 unconstrained bytes, a non-zero filename length, and a namespace
// in [0,3]. A plausible FILETIME in the configured carve window has its
// highest byte (byte 7) pinned at 0x01 and its second-highest byte (byte 6)
// within [hiMin,hiMax].
func matchesCarvePattern(window []byte, hiMin, hiMax byte) bool {
	for i := 0; i < 4; i++ {
		top := window[i*8+7]
		second := window[i*8+6]
		if top != 0x01 || second < hiMin || second > hiMax {
			return false
		}
	}
	if window[32]%8 != 0 {
		return false
	}
	filenameLen := window[56]
	if filenameLen == 0 {
		return false
	}
	namespace := window[57]
	if namespace > NamespaceWin32DOS {
		return false
	}
	return true
}

// parseCarvedEntry decodes a candidate index entry found in slack, with the
// live-mode entry-size/alignment checks relaxed since the 16-byte header
// preceding the timestamp match may itself be partially overwritten.
func parseCarvedEntry(buf []byte) (carvedEntry, error) {
	if len(buf) < indexEntryHeaderSize+filenameAttributeFixedSize {
		return carvedEntry{}, reject("carved entry shorter than header plus fixed filename attribute")
	}

	fileRef := decodeFileReference(buf[0:8])
	flags := binary.LittleEndian.Uint32(buf[12:16])

	fn, err := decodeFilenameAttribute(buf[indexEntryHeaderSize:])
	if err != nil {
		return carvedEntry{}, err
	}
	if containsRejectedRunes(fn.Filename) {
		return carvedEntry{}, reject("filename contains control, private-use, or unassigned code points")
	}

	return carvedEntry{
		FileReference: fileRef,
		Flags:         flags,
		Filename:      fn,
		IsSlack:       true,
	}, nil
}

// containsRejectedRunes flags filenames unlikely to be genuine: replacement
// characters from a failed UTF-16 decode, or control/private-use/unassigned
// code points that a real Windows filename would never contain.
func containsRejectedRunes(s string) bool {
	for _, r := range s {
		if r == utf8.RuneError {
			return true
		}
		if unicode.Is(unicode.Cc, r) || unicode.Is(unicode.Co, r) {
			return true
		}
		if isUnassigned(r) {
			return true
		}
	}
	return false
}

// isUnassigned reports whether r falls outside every Unicode general
// category, i.e. category Cn. The standard library has no direct Cn table
// (it's defined as "none of the others"), so this checks the exported
// Categories map instead.
func isUnassigned(r rune) bool {
	for _, table := range unicode.Categories {
		if unicode.Is(table, r) {
			return false
		}
	}
	return true
}
