package ntfs

// DataRun is one entry of a non-resident attribute's mapping pairs array: a
// run of Length clusters starting at absolute cluster Offset. A Sparse run
// carries no physical offset and reads back as zeros.
type DataRun struct {
	Length uint64
	Offset int64
	Sparse bool
}

// decodeDataRuns walks the nibble-packed mapping-pairs array starting at
// offset within chunk until it hits the terminating zero byte. Each header
// byte packs the byte-length of the run's length field in its low nibble and
// the byte-length of its signed offset field in its high nibble; the offset
// is relative to the previous run's absolute cluster and accumulates.
func decodeDataRuns(chunk []byte, offset int) []DataRun {
	var runs []DataRun
	var runningOffset int64

	pos := offset
	for pos < len(chunk) {
		header := chunk[pos]
		if header == 0 {
			break
		}
		lengthSize := int(header & 0x0F)
		offsetSize := int(header >> 4)
		pos++

		if pos+lengthSize > len(chunk) {
			break
		}
		length := decodeUnsigned(chunk[pos : pos+lengthSize])
		pos += lengthSize

		sparse := offsetSize == 0
		var delta int64
		if !sparse {
			if pos+offsetSize > len(chunk) {
				break
			}
			delta = decodeSigned(chunk[pos : pos+offsetSize])
			pos += offsetSize
		}

		runningOffset += delta
		runs = append(runs, DataRun{
			Length: length,
			Offset: runningOffset,
			Sparse: sparse,
		})
	}

	return runs
}

func decodeUnsigned(b []byte) uint64 {
	var v uint64
	for i, c := range b {
		v |= uint64(c) << (8 * uint(i))
	}
	return v
}

// decodeSigned interprets b as a little-endian two's-complement integer,
// sign-extending from its most significant byte.
func decodeSigned(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	var v int64
	for i, c := range b {
		v |= int64(c) << (8 * uint(i))
	}
	if b[len(b)-1]&0x80 != 0 {
		v -= 1 << (8 * uint(len(b)))
	}
	return v
}
