// Package disk provides a seekable byte source over a raw disk image or
// block device, independent of any filesystem that might live inside it.
package disk

import (
	"fmt"
	"io"
	"os"
)

const (
	// SectorSize is the default physical sector size assumed until a
	// caller overrides it (e.g. from config.Options.SectorSizeBytes).
	SectorSize = 512
)

// Reader is a random-access byte source over an image file or block device.
type Reader struct {
	file       *os.File
	size       int64
	sectorSize int
}

// Open opens path (a regular file or a block device) for read-only access.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stating image: %w", err)
	}

	size := stat.Size()

	// Block devices commonly report a zero size from Stat; fall back to
	// seeking to the end to discover their true extent.
	if size == 0 {
		size, err = file.Seek(0, io.SeekEnd)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("determining image size: %w", err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, fmt.Errorf("rewinding image: %w", err)
		}
	}

	return &Reader{
		file:       file,
		size:       size,
		sectorSize: SectorSize,
	}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Size returns the total byte length of the image.
func (r *Reader) Size() int64 {
	return r.size
}

// SectorSize returns the sector size assumed for this reader.
func (r *Reader) SectorSize() int {
	return r.sectorSize
}

// SetSectorSize overrides the assumed sector size (config.Options.SectorSizeBytes).
func (r *Reader) SetSectorSize(n int) {
	r.sectorSize = n
}

// ReadAt reads len(buf) bytes starting at the given absolute byte offset.
func (r *Reader) ReadAt(buf []byte, offset int64) (int, error) {
	return r.file.ReadAt(buf, offset)
}

// ReadSector reads one sector at the given sector index.
func (r *Reader) ReadSector(sector int64) ([]byte, error) {
	buf := make([]byte, r.sectorSize)
	if _, err := r.ReadAt(buf, sector*int64(r.sectorSize)); err != nil {
		return nil, err
	}
	return buf, nil
}

// HasNTFSSignature reports whether the image carries the "NTFS" magic at
// offset 3 of its first sector, the same check a volume reader performs
// before trusting the rest of the boot sector.
func HasNTFSSignature(r *Reader) (bool, error) {
	buf := make([]byte, 512)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return false, fmt.Errorf("reading boot sector: %w", err)
	}
	return string(buf[3:7]) == "NTFS", nil
}
