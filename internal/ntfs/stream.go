package ntfs

import (
	"fmt"
	"io"

	"github.com/forensicgo/carvidx/internal/disk"
)

// NonResidentStream presents a non-resident attribute's data runs as one
// continuous, seekable virtual byte stream. Sparse runs read back as zeros
// instead of touching the image.
type NonResidentStream struct {
	image           *disk.Reader
	runs            []DataRun
	bytesPerCluster int64
	partitionOffset int64
	allocated       bool

	runIndex      int
	offsetInRun   int64
	virtualOffset int64
	size          int64
}

// NewNonResidentStream builds a stream over runs. allocated records whether
// the MFT record carrying this attribute was in use at parse time, as
// reported by IsAllocated.
func NewNonResidentStream(bytesPerCluster int, partitionOffset int64, image *disk.Reader, runs []DataRun, allocated bool) *NonResidentStream {
	var size int64
	for _, r := range runs {
		size += int64(r.Length) * int64(bytesPerCluster)
	}
	return &NonResidentStream{
		image:           image,
		runs:            runs,
		bytesPerCluster: int64(bytesPerCluster),
		partitionOffset: partitionOffset,
		allocated:       allocated,
		size:            size,
	}
}

// Size returns the stream's total virtual length in bytes.
func (s *NonResidentStream) Size() int64 { return s.size }

// IsAllocated reports whether the MFT record this stream came from was live.
func (s *NonResidentStream) IsAllocated() bool { return s.allocated }

func (s *NonResidentStream) currentRun() DataRun { return s.runs[s.runIndex] }

func (s *NonResidentStream) currentRunLength() int64 {
	return int64(s.currentRun().Length) * s.bytesPerCluster
}

func (s *NonResidentStream) bytesToEndOfRun() int64 {
	return s.currentRunLength() - s.offsetInRun
}

func (s *NonResidentStream) advanceToNextRun() bool {
	if s.runIndex >= len(s.runs)-1 {
		return false
	}
	s.runIndex++
	s.offsetInRun = 0
	return true
}

func (s *NonResidentStream) readChunk(n int64) ([]byte, error) {
	run := s.currentRun()
	if run.Sparse {
		return make([]byte, n), nil
	}
	physOffset := run.Offset*s.bytesPerCluster + s.offsetInRun + s.partitionOffset
	buf := make([]byte, n)
	if _, err := s.image.ReadAt(buf, physOffset); err != nil && err != io.EOF {
		return nil, err
	}
	return buf, nil
}

// Read implements io.Reader. It returns io.EOF once the virtual stream is
// exhausted, and a short read only at end-of-stream, matching the standard
// Reader contract.
func (s *NonResidentStream) Read(p []byte) (int, error) {
	if len(s.runs) == 0 || s.virtualOffset >= s.size || len(p) == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	total := 0
	for total < len(p) && s.virtualOffset < s.size {
		toRead := s.bytesToEndOfRun()
		if remaining := int64(len(p) - total); toRead > remaining {
			toRead = remaining
		}
		if toRead <= 0 {
			if !s.advanceToNextRun() {
				break
			}
			continue
		}

		chunk, err := s.readChunk(toRead)
		if err != nil {
			return total, err
		}
		copy(p[total:], chunk)
		total += len(chunk)
		s.offsetInRun += int64(len(chunk))
		s.virtualOffset += int64(len(chunk))

		if s.offsetInRun >= s.currentRunLength() {
			s.advanceToNextRun()
		}
	}

	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// ReadN reads up to n bytes, or the entire remainder of the stream if n < 0.
// It only returns fewer bytes than requested at end-of-stream.
func (s *NonResidentStream) ReadN(n int) ([]byte, error) {
	if n < 0 {
		n = int(s.size - s.virtualOffset)
	}
	buf := make([]byte, n)
	read := 0
	for read < n {
		m, err := s.Read(buf[read:])
		read += m
		if err != nil && err != io.EOF {
			return buf[:read], err
		}
		if err != nil || m == 0 {
			break
		}
	}
	return buf[:read], nil
}

// Seek implements io.Seeker over the virtual stream, clamped to [0, Size()].
func (s *NonResidentStream) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.virtualOffset + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return 0, fmt.Errorf("ntfs: invalid whence %d", whence)
	}
	if target < 0 {
		target = 0
	}
	if target > s.size {
		target = s.size
	}

	s.runIndex = 0
	s.offsetInRun = 0
	s.virtualOffset = 0
	if len(s.runs) == 0 {
		return 0, nil
	}

	remaining := target
	for remaining > 0 {
		step := s.bytesToEndOfRun()
		if step > remaining {
			step = remaining
		}
		s.offsetInRun += step
		s.virtualOffset += step
		remaining -= step
		if s.offsetInRun >= s.currentRunLength() {
			if !s.advanceToNextRun() {
				break
			}
		}
	}
	return s.virtualOffset, nil
}
