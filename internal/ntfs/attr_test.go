package ntfs

import (
	"encoding/binary"
	"testing"
	"time"
	"unicode/utf16"
)

func TestFiletimeToTime(t *testing.T) {
	if got := filetimeToTime(0); !got.IsZero() {
		t.Errorf("filetimeToTime(0) = %v, want zero time", got)
	}

	want := time.Date(2021, 3, 15, 12, 30, 0, 0, time.UTC)
	// want.Sub(ntfsEpoch) saturates to time.Duration's ~292-year max for a
	// 420-year gap, so the FILETIME tick count is built directly from
	// Unix seconds/nanoseconds instead of going through a Duration.
	ft := uint64(want.Unix()+filetimeEpochDeltaSeconds)*1e7 + uint64(want.Nanosecond())/100
	got := filetimeToTime(ft)
	if !got.Equal(want) {
		t.Errorf("filetimeToTime(%d) = %v, want %v", ft, got, want)
	}
}

func TestDecodeUTF16(t *testing.T) {
	units := utf16.Encode([]rune("hello.txt"))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	if got := decodeUTF16(buf); got != "hello.txt" {
		t.Errorf("decodeUTF16() = %q, want %q", got, "hello.txt")
	}
}

func TestDecodeUTF16UnpairedSurrogate(t *testing.T) {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, 0xD800) // high surrogate with nothing following
	got := decodeUTF16(buf)
	if got != "�" {
		t.Errorf("decodeUTF16(unpaired surrogate) = %q, want replacement char", got)
	}
}

func buildFilenameAttribute(parent FileReference, name string, namespace uint8) []byte {
	units := utf16.Encode([]rune(name))
	data := make([]byte, filenameAttributeFixedSize+len(units)*2)

	binary.LittleEndian.PutUint32(data[0:4], uint32(parent.Index))
	binary.LittleEndian.PutUint16(data[4:6], uint16(parent.Index>>32))
	binary.LittleEndian.PutUint16(data[6:8], parent.Sequence)
	binary.LittleEndian.PutUint64(data[40:48], 4096)  // allocated size
	binary.LittleEndian.PutUint64(data[48:56], 10)    // real size
	binary.LittleEndian.PutUint32(data[56:60], uint32(FlagArchive))
	data[64] = byte(len(units))
	data[65] = namespace

	for i, u := range units {
		binary.LittleEndian.PutUint16(data[filenameAttributeFixedSize+i*2:], u)
	}
	return data
}

func TestDecodeFilenameAttribute(t *testing.T) {
	parent := FileReference{Index: 5, Sequence: 5}
	data := buildFilenameAttribute(parent, "notes.txt", NamespaceWin32)

	fn, err := decodeFilenameAttribute(data)
	if err != nil {
		t.Fatalf("decodeFilenameAttribute() error = %v", err)
	}
	if fn.Filename != "notes.txt" {
		t.Errorf("Filename = %q, want %q", fn.Filename, "notes.txt")
	}
	if fn.ParentReference != parent {
		t.Errorf("ParentReference = %+v, want %+v", fn.ParentReference, parent)
	}
	if fn.Namespace != NamespaceWin32 {
		t.Errorf("Namespace = %d, want %d", fn.Namespace, NamespaceWin32)
	}
	if fn.AllocatedSize != 4096 || fn.RealSize != 10 {
		t.Errorf("sizes = (%d, %d), want (4096, 10)", fn.AllocatedSize, fn.RealSize)
	}
	if !fn.Flags.IsDirectory() && fn.Flags&FlagArchive == 0 {
		t.Errorf("Flags = %v, want ARCHIVE set", fn.Flags.Names())
	}
}

func TestDecodeFilenameAttributeTooShort(t *testing.T) {
	if _, err := decodeFilenameAttribute(make([]byte, 10)); err == nil {
		t.Errorf("decodeFilenameAttribute(short) error = nil, want error")
	}
}
