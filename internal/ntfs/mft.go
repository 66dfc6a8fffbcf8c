package ntfs

import "fmt"

// directory accumulates everything a directory's MFT record(s) contributed:
// its candidate $FILE_NAME attributes (for path resolution) and its
// $INDEX_ALLOCATION streams (for the entries it lists).
type directory struct {
	filenames    []FilenameAttribute
	indexStreams []*NonResidentStream
}

// buildMFTMap streams the whole MFT starting from record 0's $DATA
// attribute, draining any additional $DATA extents it discovers along the
// way, and assembles one directory per base-record key.
func (w *Walker) buildMFTMap() error {
	chunkSize := int(w.vol.BytesPerMFTChunk())

	firstChunk := make([]byte, chunkSize)
	if _, err := w.reader.ReadAt(firstChunk, w.vol.MFTByteOffset()); err != nil {
		return fmt.Errorf("reading first MFT chunk: %w", err)
	}

	firstSlots := decodeRecords(firstChunk, w.vol)
	if len(firstSlots) == 0 || !firstSlots[0].Valid || !firstSlots[0].FixupOK {
		return ErrBadFirstRecord
	}

	mftRunsAttrs := enumerateAttributes(firstSlots[0].Data, firstSlots[0].Header)
	dataRuns := findUnnamedDataRuns(firstSlots[0].Data, mftRunsAttrs)
	if len(dataRuns) == 0 {
		return ErrBadFirstRecord
	}

	mftStream := NewNonResidentStream(int(w.vol.BytesPerCluster), w.vol.PartitionOffset, w.reader, dataRuns, true)

	queue := []*NonResidentStream{mftStream}
	recordIndex := 0

	for len(queue) > 0 {
		stream := queue[0]
		queue = queue[1:]

		for {
			chunk, err := stream.ReadN(chunkSize)
			if err != nil || len(chunk) < chunkSize {
				break
			}
			for _, rec := range decodeRecords(chunk, w.vol) {
				idx := recordIndex
				recordIndex++

				if !rec.Valid {
					continue
				}
				if !rec.FixupOK {
					w.log.Warnw("mft record failed fixup", "record", idx)
					continue
				}
				w.processRecord(idx, rec, &queue)
			}
		}
	}

	return nil
}

// findUnnamedDataRuns locates the unnamed, non-resident $DATA attribute's
// data runs on a decoded record.
func findUnnamedDataRuns(data []byte, attrs []AttributeHeader) []DataRun {
	for _, a := range attrs {
		if a.Type == AttrData && a.NonResident && attributeName(data, a) == "" {
			return decodeDataRuns(data, a.OffsetInChunk+int(a.DataRunsOffset))
		}
	}
	return nil
}

// processRecord folds one decoded MFT record into the directory map, or, if
// it is an extension carrying another run of the MFT's own $DATA stream,
// enqueues that stream for the traversal to drain.
func (w *Walker) processRecord(idx int, rec DecodedRecord, queue *[]*NonResidentStream) {
	header := rec.Header
	attrs := enumerateAttributes(rec.Data, header)

	if header.BaseRecordReference.Index == 0 && header.BaseRecordReference.Sequence == 1 {
		if runs := findUnnamedDataRuns(rec.Data, attrs); len(runs) > 0 {
			*queue = append(*queue, NewNonResidentStream(int(w.vol.BytesPerCluster), w.vol.PartitionOffset, w.reader, runs, header.InUse()))
		}
		return
	}

	seq := header.SequenceNumber
	correctedSeq := seq
	if !header.InUse() && seq > 0 {
		correctedSeq = seq - 1
	}

	if header.IsBaseRecord() {
		w.liveRefs[FileReference{Index: uint64(idx), Sequence: seq}] = header.InUse()
	}

	if !header.IsDirectory() {
		return
	}
	if !header.InUse() && !w.cfg.IncludeDeletedDirs {
		return
	}

	var key FileReference
	if header.IsBaseRecord() {
		key = FileReference{Index: uint64(idx), Sequence: correctedSeq}
	} else {
		key = header.BaseRecordReference
	}

	dir := w.mftMap[key]
	if dir == nil {
		dir = &directory{}
		w.mftMap[key] = dir
	}

	for _, a := range attrs {
		switch {
		case a.Type == AttrFileName && !a.NonResident:
			raw, err := residentBytes(rec.Data, a)
			if err != nil {
				continue
			}
			fn, err := decodeFilenameAttribute(raw)
			if err != nil {
				continue
			}
			dir.filenames = append(dir.filenames, fn)

		case a.Type == AttrIndexAllocation && a.NonResident && attributeName(rec.Data, a) == "$I30":
			if a.AllocatedSize == 0 || a.RealSize == 0 {
				w.log.Warnw("skipping empty $INDEX_ALLOCATION attribute", "record", idx)
				continue
			}
			runs := decodeDataRuns(rec.Data, a.OffsetInChunk+int(a.DataRunsOffset))
			if len(runs) == 0 {
				continue
			}
			dir.indexStreams = append(dir.indexStreams, NewNonResidentStream(int(w.vol.BytesPerCluster), w.vol.PartitionOffset, w.reader, runs, header.InUse()))
		}
	}
}
