package ntfs

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/forensicgo/carvidx/internal/disk"
)

func writeBootSector(t *testing.T, bytesPerSector uint16, sectorsPerClusterRaw byte, mftCluster uint64, recordSizeRaw, indexSizeRaw byte) *disk.Reader {
	t.Helper()
	buf := make([]byte, 512)
	copy(buf[3:7], "NTFS")
	binary.LittleEndian.PutUint16(buf[11:13], bytesPerSector)
	buf[13] = sectorsPerClusterRaw
	binary.LittleEndian.PutUint64(buf[48:56], mftCluster)
	buf[64] = recordSizeRaw
	buf[68] = indexSizeRaw

	dir := t.TempDir()
	path := filepath.Join(dir, "vol.img")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing test volume: %v", err)
	}
	r, err := disk.Open(path)
	if err != nil {
		t.Fatalf("opening test volume: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestReadVolumeGeometry(t *testing.T) {
	r := writeBootSector(t, 512, 8, 4, 0xF6 /* -10 -> 1024 */, 0x01 /* 1 cluster */)

	geo, err := ReadVolumeGeometry(r, 0)
	if err != nil {
		t.Fatalf("ReadVolumeGeometry: %v", err)
	}
	if geo.BytesPerSector != 512 {
		t.Errorf("BytesPerSector = %d, want 512", geo.BytesPerSector)
	}
	if geo.BytesPerCluster != 4096 {
		t.Errorf("BytesPerCluster = %d, want 4096", geo.BytesPerCluster)
	}
	if geo.BytesPerRecord != 1024 {
		t.Errorf("BytesPerRecord = %d, want 1024", geo.BytesPerRecord)
	}
	if geo.BytesPerIndexRecord != 4096 {
		t.Errorf("BytesPerIndexRecord = %d, want 4096", geo.BytesPerIndexRecord)
	}
	if geo.MFTStartCluster != 4 {
		t.Errorf("MFTStartCluster = %d, want 4", geo.MFTStartCluster)
	}
	if got := geo.MFTByteOffset(); got != 4*4096 {
		t.Errorf("MFTByteOffset() = %d, want %d", got, 4*4096)
	}
}

func TestReadVolumeGeometryBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol.img")
	if err := os.WriteFile(path, make([]byte, 512), 0o644); err != nil {
		t.Fatalf("writing test volume: %v", err)
	}
	r, err := disk.Open(path)
	if err != nil {
		t.Fatalf("opening test volume: %v", err)
	}
	defer r.Close()

	if _, err := ReadVolumeGeometry(r, 0); err != ErrBadVolume {
		t.Errorf("ReadVolumeGeometry() error = %v, want ErrBadVolume", err)
	}
}

func TestSectorsPerClusterFromRaw(t *testing.T) {
	tests := []struct {
		raw  byte
		want uint32
	}{
		{1, 1},
		{8, 8},
		{128, 128},
		{244, 1 << 12}, // 256-244 = 12
		{255, 1 << 1},  // 256-255 = 1
	}
	for _, tt := range tests {
		if got := sectorsPerClusterFromRaw(tt.raw); got != tt.want {
			t.Errorf("sectorsPerClusterFromRaw(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
