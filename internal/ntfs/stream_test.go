package ntfs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/forensicgo/carvidx/internal/disk"
)

func newTestImage(t *testing.T, clusterContents map[int64][]byte, clusterSize int, totalClusters int) *disk.Reader {
	t.Helper()
	buf := make([]byte, clusterSize*totalClusters)
	for cluster, content := range clusterContents {
		copy(buf[int(cluster)*clusterSize:], content)
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "img.bin")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing test image: %v", err)
	}
	r, err := disk.Open(path)
	if err != nil {
		t.Fatalf("opening test image: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func TestNonResidentStreamReadContiguous(t *testing.T) {
	const clusterSize = 16
	contentA := bytes.Repeat([]byte{0xAA}, clusterSize)
	contentB := bytes.Repeat([]byte{0xBB}, clusterSize)
	img := newTestImage(t, map[int64][]byte{0: contentA, 1: contentB}, clusterSize, 2)

	runs := []DataRun{{Length: 2, Offset: 0}}
	s := NewNonResidentStream(clusterSize, 0, img, runs, true)

	if s.Size() != int64(clusterSize*2) {
		t.Fatalf("Size() = %d, want %d", s.Size(), clusterSize*2)
	}

	got, err := s.ReadN(-1)
	if err != nil {
		t.Fatalf("ReadN(-1): %v", err)
	}
	want := append(append([]byte{}, contentA...), contentB...)
	if !bytes.Equal(got, want) {
		t.Errorf("ReadN(-1) = % x, want % x", got, want)
	}
}

func TestNonResidentStreamSparseReadsZero(t *testing.T) {
	const clusterSize = 16
	img := newTestImage(t, nil, clusterSize, 1)

	runs := []DataRun{{Length: 2, Sparse: true}}
	s := NewNonResidentStream(clusterSize, 0, img, runs, true)

	got, err := s.ReadN(-1)
	if err != nil {
		t.Fatalf("ReadN(-1): %v", err)
	}
	if !bytes.Equal(got, make([]byte, clusterSize*2)) {
		t.Errorf("sparse run did not read back as zeros: % x", got)
	}
}

func TestNonResidentStreamSeekClampsToSize(t *testing.T) {
	const clusterSize = 16
	img := newTestImage(t, nil, clusterSize, 1)
	runs := []DataRun{{Length: 1}}
	s := NewNonResidentStream(clusterSize, 0, img, runs, true)

	pos, err := s.Seek(1000, io.SeekStart)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if pos != s.Size() {
		t.Errorf("Seek(1000) = %d, want clamp to Size()=%d", pos, s.Size())
	}

	pos, err = s.Seek(4, io.SeekStart)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if pos != 4 {
		t.Errorf("Seek(4) = %d, want 4", pos)
	}
}

func TestNonResidentStreamReadEOF(t *testing.T) {
	const clusterSize = 16
	img := newTestImage(t, nil, clusterSize, 1)
	runs := []DataRun{{Length: 1}}
	s := NewNonResidentStream(clusterSize, 0, img, runs, true)

	s.Seek(0, io.SeekEnd)
	buf := make([]byte, 4)
	if _, err := s.Read(buf); err != io.EOF {
		t.Errorf("Read at end = %v, want io.EOF", err)
	}
}
