package ntfs

import "testing"

func TestDecodeDataRuns(t *testing.T) {
	// 0x11 0x18 0x34  -> length=0x18 (24), offset=+0x34 (52)
	// 0x11 0x08 0x80  -> length=0x08 (8), offset=0x80 as signed byte = -128, relative to 52
	// terminated by 0x00
	chunk := []byte{0x11, 0x18, 0x34, 0x11, 0x08, 0x80, 0x00}

	runs := decodeDataRuns(chunk, 0)
	if len(runs) != 2 {
		t.Fatalf("decodeDataRuns() returned %d runs, want 2", len(runs))
	}
	if runs[0].Length != 0x18 || runs[0].Offset != 0x34 || runs[0].Sparse {
		t.Errorf("run 0 = %+v, want Length=24 Offset=52 Sparse=false", runs[0])
	}
	wantOffset := int64(0x34) - 128 // 0x80 sign-extended
	if runs[1].Length != 0x08 || runs[1].Offset != wantOffset || runs[1].Sparse {
		t.Errorf("run 1 = %+v, want Length=8 Offset=%d Sparse=false", runs[1], wantOffset)
	}
}

func TestDecodeDataRunsSparse(t *testing.T) {
	// header nibble 0x01 -> lengthSize=1, offsetSize=0 (sparse)
	chunk := []byte{0x01, 0x10, 0x00}
	runs := decodeDataRuns(chunk, 0)
	if len(runs) != 1 {
		t.Fatalf("decodeDataRuns() returned %d runs, want 1", len(runs))
	}
	if !runs[0].Sparse {
		t.Errorf("run 0 Sparse = false, want true")
	}
	if runs[0].Length != 0x10 {
		t.Errorf("run 0 Length = %d, want 16", runs[0].Length)
	}
	if runs[0].Offset != 0 {
		t.Errorf("run 0 Offset = %d, want 0 (sparse run leaves running offset unchanged)", runs[0].Offset)
	}
}

func TestDecodeDataRunsEmpty(t *testing.T) {
	if runs := decodeDataRuns([]byte{0x00}, 0); runs != nil {
		t.Errorf("decodeDataRuns() = %+v, want nil", runs)
	}
}

func TestDecodeSigned(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
	}{
		{[]byte{0x34}, 0x34},
		{[]byte{0x80}, -128},
		{[]byte{0xFF}, -1},
		{[]byte{0x00, 0x01}, 256},
	}
	for _, tt := range tests {
		if got := decodeSigned(tt.in); got != tt.want {
			t.Errorf("decodeSigned(% x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
