package ntfs

import (
	"encoding/binary"
	"time"
	"unicode/utf16"
)

// AttributeHeader is the common part of every attribute record, tagged by
// NonResident to select which trailing layout (resident value vs. data-run
// pointer) applies.
type AttributeHeader struct {
	Type           uint32
	Length         uint32
	NonResident    bool
	NameLength     uint8
	NameOffset     uint16
	OffsetInChunk  int
	ResidentLength uint32
	ResidentOffset uint16
	DataRunsOffset uint16
	AllocatedSize  uint64
	RealSize       uint64
}

// enumerateAttributes walks the attribute list of a decoded record starting
// at its header's first-attribute offset, stopping at the 0xFFFFFFFF
// end marker or the first structurally invalid header.
func enumerateAttributes(data []byte, header RecordHeader) []AttributeHeader {
	offset := int(header.FirstAttributeOffset)
	var attrs []AttributeHeader

	for offset+4 <= len(data) {
		attrType := binary.LittleEndian.Uint32(data[offset : offset+4])
		if attrType == attrEndMarker {
			break
		}
		if offset+16 > len(data) {
			break
		}
		length := binary.LittleEndian.Uint32(data[offset+4 : offset+8])
		if length == 0 || offset+int(length) > len(data) {
			break
		}

		ah := AttributeHeader{
			Type:          attrType,
			Length:        length,
			NonResident:   data[offset+8] != 0,
			NameLength:    data[offset+9],
			NameOffset:    binary.LittleEndian.Uint16(data[offset+10 : offset+12]),
			OffsetInChunk: offset,
		}

		if ah.NonResident {
			if offset+56 <= len(data) {
				ah.DataRunsOffset = binary.LittleEndian.Uint16(data[offset+32 : offset+34])
				ah.AllocatedSize = binary.LittleEndian.Uint64(data[offset+40 : offset+48])
				ah.RealSize = binary.LittleEndian.Uint64(data[offset+48 : offset+56])
			}
		} else if offset+24 <= len(data) {
			ah.ResidentLength = binary.LittleEndian.Uint32(data[offset+16 : offset+20])
			ah.ResidentOffset = binary.LittleEndian.Uint16(data[offset+20 : offset+22])
		}

		attrs = append(attrs, ah)
		offset += int(length)
	}
	return attrs
}

// attributeName returns an attribute's (possibly empty) name, e.g. "$I30"
// on the directory index allocation attribute.
func attributeName(data []byte, ah AttributeHeader) string {
	if ah.NameLength == 0 {
		return ""
	}
	start := ah.OffsetInChunk + int(ah.NameOffset)
	end := start + int(ah.NameLength)*2
	if start < 0 || end > len(data) {
		return ""
	}
	return decodeUTF16(data[start:end])
}

// residentBytes slices out a resident attribute's value bytes.
func residentBytes(data []byte, ah AttributeHeader) ([]byte, error) {
	start := ah.OffsetInChunk + int(ah.ResidentOffset)
	end := start + int(ah.ResidentLength)
	if start < 0 || end > len(data) || end < start {
		return nil, reject("resident attribute value out of bounds")
	}
	return data[start:end], nil
}

// FilenameAttribute is a decoded $FILE_NAME attribute (or its body as
// embedded in an index entry, which shares the same layout).
type FilenameAttribute struct {
	ParentReference       FileReference
	CreationTime          time.Time
	LastModificationTime  time.Time
	LastMFTChangeTime     time.Time
	LastAccessTime        time.Time
	AllocatedSize         uint64
	RealSize              uint64
	Flags                 FileAttrFlags
	Namespace             uint8
	Filename              string
}

func decodeFileReference(b []byte) FileReference {
	idx := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 |
		uint64(b[3])<<24 | uint64(b[4])<<32 | uint64(b[5])<<40
	seq := binary.LittleEndian.Uint16(b[6:8])
	return FileReference{Index: idx, Sequence: seq}
}

// decodeFilenameAttribute parses a $FILE_NAME attribute's value, which is
// 66 fixed bytes followed by a UTF-16LE filename of FilenameLength chars.
func decodeFilenameAttribute(data []byte) (FilenameAttribute, error) {
	if len(data) < filenameAttributeFixedSize {
		return FilenameAttribute{}, reject("filename attribute shorter than fixed header")
	}

	fn := FilenameAttribute{
		ParentReference:      decodeFileReference(data[0:8]),
		CreationTime:         filetimeToTime(binary.LittleEndian.Uint64(data[8:16])),
		LastModificationTime: filetimeToTime(binary.LittleEndian.Uint64(data[16:24])),
		LastMFTChangeTime:    filetimeToTime(binary.LittleEndian.Uint64(data[24:32])),
		LastAccessTime:       filetimeToTime(binary.LittleEndian.Uint64(data[32:40])),
		AllocatedSize:        binary.LittleEndian.Uint64(data[40:48]),
		RealSize:             binary.LittleEndian.Uint64(data[48:56]),
		Flags:                FileAttrFlags(binary.LittleEndian.Uint32(data[56:60])),
		Namespace:            data[65],
	}

	nameLenChars := int(data[64])
	nameStart := filenameAttributeFixedSize
	nameEnd := nameStart + nameLenChars*2
	if nameEnd > len(data) {
		return FilenameAttribute{}, reject("filename attribute name exceeds buffer")
	}
	fn.Filename = decodeUTF16(data[nameStart:nameEnd])

	return fn, nil
}

// ntfsEpoch is 1601-01-01 00:00:00 UTC, the FILETIME zero point.
var ntfsEpoch = time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC)

// filetimeEpochDeltaSeconds is the number of seconds between the FILETIME
// epoch (1601-01-01) and the Unix epoch (1970-01-01).
const filetimeEpochDeltaSeconds = 11644473600

// filetimeToTime converts a FILETIME (100ns ticks since 1601-01-01 UTC) into
// a time.Time. A zero FILETIME maps to the zero Time, since NTFS sometimes
// leaves a timestamp field unset rather than pointing at the epoch.
//
// The conversion splits ft into whole seconds and a remainder of 100ns
// ticks before handing them to time.Unix, rather than multiplying ft by
// 100 into a single time.Duration: a modern FILETIME is on the order of
// 1.3e17 ticks, and ft*100 nanoseconds overflows int64/time.Duration's
// ~292-year range.
func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	seconds := int64(ft/1e7) - filetimeEpochDeltaSeconds
	nanos := int64(ft%1e7) * 100
	return time.Unix(seconds, nanos).UTC()
}

// decodeUTF16 decodes a UTF-16LE byte slice, replacing unpaired surrogates
// with the Unicode replacement character rather than failing outright.
func decodeUTF16(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[i*2 : i*2+2])
	}
	return string(utf16.Decode(units))
}
