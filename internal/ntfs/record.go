package ntfs

import "encoding/binary"

// RecordHeader is the fixed portion of an MFT record: its fixup array
// location, flags, and where its attribute list begins.
type RecordHeader struct {
	SequenceNumber       uint16
	Flags                uint16
	FirstAttributeOffset uint16
	BaseRecordReference  FileReference
	updateSeqOffset      uint16
	updateSeqSize        uint16
}

// InUse reports whether the record's allocation bit is set.
func (h RecordHeader) InUse() bool { return h.Flags&recordFlagInUse != 0 }

// IsDirectory reports whether the record describes a directory.
func (h RecordHeader) IsDirectory() bool { return h.Flags&recordFlagDirectory != 0 }

// IsBaseRecord reports whether this record is not an extension of another.
func (h RecordHeader) IsBaseRecord() bool { return h.BaseRecordReference.Index == 0 }

// DecodedRecord is one MFT-record-sized slot decoded out of an MFT chunk.
type DecodedRecord struct {
	Header  RecordHeader
	Data    []byte // fixed-up record bytes
	Valid   bool   // magic present
	FixupOK bool
}

// decodeRecords splits chunk into geo.BytesPerRecord slots, decodes the
// header of each slot carrying the "FILE" magic, and applies its fixup.
// Slots without the magic are reported as !Valid so a caller can still count
// them toward the running MFT record index.
func decodeRecords(chunk []byte, geo VolumeGeometry) []DecodedRecord {
	recordSize := int(geo.BytesPerRecord)
	if recordSize <= 0 {
		return nil
	}

	var out []DecodedRecord
	for offset := 0; offset+recordSize <= len(chunk); offset += recordSize {
		slot := chunk[offset : offset+recordSize]
		if string(slot[0:4]) != recordMagic {
			out = append(out, DecodedRecord{Valid: false})
			continue
		}

		data := make([]byte, recordSize)
		copy(data, slot)

		header := RecordHeader{
			updateSeqOffset:      binary.LittleEndian.Uint16(data[4:6]),
			updateSeqSize:        binary.LittleEndian.Uint16(data[6:8]),
			SequenceNumber:       binary.LittleEndian.Uint16(data[16:18]),
			Flags:                binary.LittleEndian.Uint16(data[22:24]),
			FirstAttributeOffset: binary.LittleEndian.Uint16(data[20:22]),
		}
		if len(data) >= 40 {
			header.BaseRecordReference = decodeFileReference(data[32:40])
		}

		fixupOK := applyFixup(data, header.updateSeqOffset, header.updateSeqSize, int(geo.BytesPerSector))

		out = append(out, DecodedRecord{
			Header:  header,
			Data:    data,
			Valid:   true,
			FixupOK: fixupOK,
		})
	}
	return out
}

// applyFixup verifies the update-sequence array against every sector's
// trailing two bytes before touching anything, then, and only if every
// sector agrees, restores the original trailing bytes in place. On any
// mismatch data is left completely unmodified and false is returned.
func applyFixup(data []byte, usaOffset, usaSize uint16, sectorSize int) bool {
	if usaSize < 1 || sectorSize <= 0 {
		return false
	}
	arrayEnd := int(usaOffset) + int(usaSize)*2
	if arrayEnd > len(data) {
		return false
	}

	usn0 := data[usaOffset]
	usn1 := data[usaOffset+1]

	sectors := int(usaSize) - 1
	for i := 1; i <= sectors; i++ {
		pos := i*sectorSize - 2
		if pos+2 > len(data) {
			return false
		}
		if data[pos] != usn0 || data[pos+1] != usn1 {
			return false
		}
	}

	for i := 1; i <= sectors; i++ {
		pos := i*sectorSize - 2
		arrPos := int(usaOffset) + i*2
		data[pos] = data[arrPos]
		data[pos+1] = data[arrPos+1]
	}
	return true
}
