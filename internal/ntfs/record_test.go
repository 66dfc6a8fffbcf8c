package ntfs

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMFTRecordSlot builds a minimal valid "FILE" record of the given size
// with a working update-sequence array covering sectorSize-byte sectors.
func buildMFTRecordSlot(size, sectorSize int, usn uint16) []byte {
	data := make([]byte, size)
	copy(data[0:4], recordMagic)

	usaOffset := 42
	sectors := size / sectorSize
	usaSize := sectors + 1

	binary.LittleEndian.PutUint16(data[4:6], uint16(usaOffset))
	binary.LittleEndian.PutUint16(data[6:8], uint16(usaSize))
	binary.LittleEndian.PutUint16(data[16:18], 1) // sequence number
	binary.LittleEndian.PutUint16(data[20:22], 56) // first attribute offset
	binary.LittleEndian.PutUint16(data[22:24], recordFlagInUse)

	binary.LittleEndian.PutUint16(data[usaOffset:usaOffset+2], usn)
	for i := 1; i <= sectors; i++ {
		pos := i*sectorSize - 2
		arrPos := usaOffset + i*2
		binary.LittleEndian.PutUint16(data[arrPos:arrPos+2], binary.LittleEndian.Uint16(data[pos:pos+2]))
		binary.LittleEndian.PutUint16(data[pos:pos+2], usn)
	}

	binary.LittleEndian.PutUint32(data[56:60], attrEndMarker)
	return data
}

func TestApplyFixupRoundTrip(t *testing.T) {
	const sectorSize = 512
	orig := buildMFTRecordSlot(1024, sectorSize, 0x4242)
	// The original trailing bytes live in the update-sequence array, right
	// after the update-sequence number at offset 42.
	originalTrailingBytes := [][2]byte{
		{orig[44], orig[45]},
	}

	data := append([]byte{}, orig...)
	ok := applyFixup(data, 42, 3, sectorSize)
	if !ok {
		t.Fatalf("applyFixup() = false, want true")
	}
	for i, want := range originalTrailingBytes {
		pos := (i+1)*sectorSize - 2
		if data[pos] != want[0] || data[pos+1] != want[1] {
			t.Errorf("sector %d trailing bytes not restored: got %x%x, want %x%x", i, data[pos], data[pos+1], want[0], want[1])
		}
	}
}

func TestApplyFixupMismatchLeavesDataUnchanged(t *testing.T) {
	const sectorSize = 512
	orig := buildMFTRecordSlot(1024, sectorSize, 0x4242)
	data := append([]byte{}, orig...)

	// Corrupt one sector's trailing USN marker so it no longer matches.
	data[sectorSize-1] ^= 0xFF

	corrupted := append([]byte{}, data...)
	ok := applyFixup(data, 42, 3, sectorSize)
	if ok {
		t.Fatalf("applyFixup() = true, want false on mismatch")
	}
	if !bytes.Equal(data, corrupted) {
		t.Errorf("applyFixup() modified data despite mismatch")
	}
}

func TestDecodeRecordsSkipsBadMagic(t *testing.T) {
	geo := VolumeGeometry{BytesPerRecord: 1024, BytesPerSector: 512}
	chunk := make([]byte, 2048)
	copy(chunk[1024:], buildMFTRecordSlot(1024, 512, 0x99))

	recs := decodeRecords(chunk, geo)
	if len(recs) != 2 {
		t.Fatalf("decodeRecords() returned %d slots, want 2", len(recs))
	}
	if recs[0].Valid {
		t.Errorf("slot 0 Valid = true, want false (no FILE magic)")
	}
	if !recs[1].Valid || !recs[1].FixupOK {
		t.Errorf("slot 1 = %+v, want Valid=true FixupOK=true", recs[1])
	}
	if !recs[1].Header.InUse() {
		t.Errorf("slot 1 InUse() = false, want true")
	}
}
