package ntfs

import (
	"encoding/binary"
	"fmt"

	"github.com/forensicgo/carvidx/internal/disk"
)

// VolumeGeometry is everything derived from the boot sector that the rest of
// the package needs to translate cluster/record addressing into byte offsets.
type VolumeGeometry struct {
	BytesPerSector      uint16
	SectorsPerCluster   uint32
	BytesPerCluster     uint32
	BytesPerRecord      uint32
	BytesPerIndexRecord uint32
	MFTStartCluster     uint64
	PartitionOffset     int64
}

// BytesPerMFTChunk is the unit read from the MFT's $DATA stream per cycle:
// the larger of one cluster or one MFT record, mirroring how a record can
// span multiple clusters on volumes with a small cluster size.
func (g VolumeGeometry) BytesPerMFTChunk() uint32 {
	if g.BytesPerCluster > g.BytesPerRecord {
		return g.BytesPerCluster
	}
	return g.BytesPerRecord
}

// MFTByteOffset is the absolute byte offset of the first MFT record.
func (g VolumeGeometry) MFTByteOffset() int64 {
	return int64(g.MFTStartCluster)*int64(g.BytesPerCluster) + g.PartitionOffset
}

// ReadVolumeGeometry parses the boot sector at partitionOffset and returns
// the geometry needed to walk the MFT. It returns ErrBadVolume if the "NTFS"
// signature is missing.
func ReadVolumeGeometry(r *disk.Reader, partitionOffset int64) (VolumeGeometry, error) {
	buf := make([]byte, 512)
	if _, err := r.ReadAt(buf, partitionOffset); err != nil {
		return VolumeGeometry{}, fmt.Errorf("reading boot sector: %w", err)
	}
	if string(buf[3:7]) != "NTFS" {
		return VolumeGeometry{}, ErrBadVolume
	}

	bytesPerSector := binary.LittleEndian.Uint16(buf[11:13])
	if bytesPerSector == 0 {
		return VolumeGeometry{}, ErrBadVolume
	}

	sectorsPerCluster := sectorsPerClusterFromRaw(buf[13])
	bytesPerCluster := uint32(bytesPerSector) * sectorsPerCluster
	if bytesPerCluster == 0 {
		return VolumeGeometry{}, ErrBadVolume
	}

	mftStartCluster := binary.LittleEndian.Uint64(buf[48:56])

	bytesPerRecord := sizeFromClusterExponentByte(buf[64], bytesPerCluster)
	bytesPerIndexRecord := sizeFromClusterExponentByte(buf[68], bytesPerCluster)
	if bytesPerRecord == 0 || bytesPerIndexRecord == 0 {
		return VolumeGeometry{}, ErrBadVolume
	}

	return VolumeGeometry{
		BytesPerSector:      bytesPerSector,
		SectorsPerCluster:   sectorsPerCluster,
		BytesPerCluster:     bytesPerCluster,
		BytesPerRecord:      bytesPerRecord,
		BytesPerIndexRecord: bytesPerIndexRecord,
		MFTStartCluster:     mftStartCluster,
		PartitionOffset:     partitionOffset,
	}, nil
}

// sectorsPerClusterFromRaw decodes the boot sector's sectors-per-cluster
// byte. Values 1-128 are a literal sector count; values 244-255 (0xF4-0xFF)
// are a negative exponent meaning 2^(256-v) sectors, a convention some
// formatting tools use for very large clusters.
func sectorsPerClusterFromRaw(raw byte) uint32 {
	if raw >= 244 {
		return 1 << (256 - uint(raw))
	}
	return uint32(raw)
}

// sizeFromClusterExponentByte decodes the signed "clusters (or log2 bytes)
// per record" byte shared by the MFT-record-size and index-record-size
// fields: positive means a cluster count, negative means 2^(-v) bytes.
func sizeFromClusterExponentByte(raw byte, bytesPerCluster uint32) uint32 {
	signed := int8(raw)
	if signed > 0 {
		return uint32(signed) * bytesPerCluster
	}
	if signed == 0 {
		return 0
	}
	return 1 << uint(-signed)
}
