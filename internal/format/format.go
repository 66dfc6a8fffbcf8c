// Package format encodes carved NTFS index entries as CSV, JSON-lines, or a
// bodyfile importable into a standard timeline tool.
package format

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/forensicgo/carvidx/internal/config"
	"github.com/forensicgo/carvidx/internal/ntfs"
)

// Writer encodes a stream of ntfs.Entry values in one of the supported
// formats. With Dedup enabled, every line is buffered and only flushed,
// deduplicated, on Close.
type Writer struct {
	out    io.Writer
	format config.OutputFormat
	dedup  bool

	headerWritten bool
	buffered      []string
	seen          map[string]bool
}

// New returns a Writer configured from cfg.
func New(out io.Writer, cfg config.Options) *Writer {
	return &Writer{
		out:    out,
		format: cfg.OutputFormat,
		dedup:  cfg.Dedup,
	}
}

// WriteEntry encodes one entry, buffering it if Dedup is set or writing it
// straight through otherwise.
func (w *Writer) WriteEntry(e ntfs.Entry) error {
	if !w.headerWritten {
		if header := formatHeader(w.format); header != "" {
			if w.dedup {
				w.buffered = append(w.buffered, header)
			} else if _, err := io.WriteString(w.out, header); err != nil {
				return err
			}
		}
		w.headerWritten = true
	}

	line := encodeEntry(w.format, e)
	if !w.dedup {
		_, err := io.WriteString(w.out, line)
		return err
	}

	if w.seen == nil {
		w.seen = make(map[string]bool)
	}
	if w.seen[line] {
		return nil
	}
	w.seen[line] = true
	w.buffered = append(w.buffered, line)
	return nil
}

// Close flushes any buffered (deduplicated) lines. It is a no-op when Dedup
// was not set, since lines were already written as they arrived.
func (w *Writer) Close() error {
	if !w.dedup {
		return nil
	}
	for _, line := range w.buffered {
		if _, err := io.WriteString(w.out, line); err != nil {
			return err
		}
	}
	return nil
}

func formatHeader(f config.OutputFormat) string {
	switch f {
	case config.FormatCSV:
		return "Source,ParentPath,ParentFileNumber,ParentSequenceNumber,Filename,Flags,FileNumber," +
			"SequenceNumber,Size,AllocatedSize,CreationTime,ModificationTime,AccessTime,ChangedTime\n"
	default:
		return ""
	}
}

func encodeEntry(f config.OutputFormat, e ntfs.Entry) string {
	switch f {
	case config.FormatJSONLine:
		return encodeJSONLine(e)
	case config.FormatBodyfile:
		return encodeBodyfile(e)
	default:
		return encodeCSV(e)
	}
}

func source(e ntfs.Entry) string {
	if e.IsSlack {
		return "Index Slack"
	}
	return "Index Record"
}

func flagString(e ntfs.Entry) string {
	return strings.Join(e.Flags.Names(), "|")
}

func csvEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

func jsonEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func encodeCSV(e ntfs.Entry) string {
	return fmt.Sprintf(
		"%s,\"%s\",%d,%d,\"%s\",%s,%d,%d,%d,%d,%s,%s,%s,%s\n",
		source(e),
		csvEscape(e.ParentPath),
		e.ParentReference.Index, e.ParentReference.Sequence,
		csvEscape(e.Filename),
		flagString(e),
		e.FileReference.Index, e.FileReference.Sequence,
		e.Size, e.AllocatedSize,
		isoOrEmpty(e.CreationTime), isoOrEmpty(e.LastModificationTime),
		isoOrEmpty(e.LastAccessTime), isoOrEmpty(e.LastMFTChangeTime),
	)
}

func encodeJSONLine(e ntfs.Entry) string {
	return fmt.Sprintf(
		"{\"source\": \"%s\", \"parent_path\": \"%s\", \"parent_file_number\": \"%d\", "+
			"\"parent_sequence_number\": \"%d\", \"filename\": \"%s\", \"flags\": \"%s\", "+
			"\"file_number\": \"%d\", \"sequence_number\": \"%d\", \"size\": \"%d\", "+
			"\"allocated_size\": \"%d\", \"creation_time\": \"%s\", \"modification_time\": \"%s\", "+
			"\"access_time\": \"%s\", \"changed_time\": \"%s\"}\n",
		source(e),
		jsonEscape(e.ParentPath),
		e.ParentReference.Index, e.ParentReference.Sequence,
		jsonEscape(e.Filename),
		flagString(e),
		e.FileReference.Index, e.FileReference.Sequence,
		e.Size, e.AllocatedSize,
		isoOrEmpty(e.CreationTime), isoOrEmpty(e.LastModificationTime),
		isoOrEmpty(e.LastAccessTime), isoOrEmpty(e.LastMFTChangeTime),
	)
}

func encodeBodyfile(e ntfs.Entry) string {
	modePart1 := "r/-"
	if e.Flags.IsDirectory() {
		modePart1 = "d/-"
	}
	readBit, writeBit := "r", "w"
	if e.Flags&ntfs.FlagHidden != 0 {
		readBit = "-"
	}
	if e.Flags&ntfs.FlagReadOnly != 0 {
		writeBit = "-"
	}
	modePart2 := strings.Repeat(readBit+writeBit+"x", 3)

	slack := ""
	if e.IsSlack {
		slack = " (slack)"
	}

	return fmt.Sprintf(
		"0|%s/%s ($I30)%s|%d|%s%s|0|0|%d|%d|%d|%d|%d\n",
		e.ParentPath, e.Filename, slack,
		e.FileReference.Index,
		modePart1, modePart2,
		e.Size,
		e.LastAccessTime.Unix(), e.LastModificationTime.Unix(),
		e.LastMFTChangeTime.Unix(), e.CreationTime.Unix(),
	)
}

func isoOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02T15:04:05Z07:00")
}
