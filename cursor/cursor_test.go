package cursor

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestReadEndianness(t *testing.T) {
	r := New([]byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00})

	be, err := r.ReadInt32BE()
	if err != nil {
		t.Fatal(err)
	}

	le, err := r.ReadInt32LE()
	if err != nil {
		t.Fatal(err)
	}

	if be != 256 {
		t.Fatalf("incorrect big-endian value\n- %d\n+ %d", 256, be)
	}

	if le != 65536 {
		t.Fatalf("incorrect little-endian value\n- %d\n+ %d", 65536, le)
	}

	if r.Position() != 8 || r.Remaining() != 0 {
		t.Fatalf("incorrect position after reads: pos=%d rem=%d", r.Position(), r.Remaining())
	}
}

func TestReadSignedAndWide(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff, 0xff}
	buf = append(buf, 0x01, 0, 0, 0, 0, 0, 0, 0x80)
	buf = append(buf, 0, 0, 0, 0, 0, 0, 0xf0, 0x3f) // 1.0

	r := New(buf)

	if v, _ := r.ReadInt32LE(); v != -1 {
		t.Fatalf("incorrect signed value\n- %d\n+ %d", -1, v)
	}

	if v, _ := r.ReadUint64LE(); v != 0x8000000000000001 {
		t.Fatalf("incorrect uint64 value\n- %#x\n+ %#x", uint64(0x8000000000000001), v)
	}

	if v, _ := r.ReadFloat64LE(); v != 1.0 {
		t.Fatalf("incorrect double value\n- %f\n+ %f", 1.0, v)
	}
}

func TestReadRawTruncated(t *testing.T) {
	r := New([]byte{1, 2, 3})

	if _, err := r.ReadRaw(2); err != nil {
		t.Fatal(err)
	}

	_, err := r.ReadRaw(4)

	var tre *TruncatedReadError
	if !errors.As(err, &tre) {
		t.Fatalf("expected *TruncatedReadError, got %v", err)
	}

	if tre.Expected != 4 || tre.Actual != 1 || tre.Offset != 2 {
		t.Fatalf("incorrect truncated read detail: %+v", tre)
	}

	if r.Position() != 2 {
		t.Fatalf("failed read moved the cursor to %d", r.Position())
	}
}

func TestSeek(t *testing.T) {
	r := New(make([]byte, 10))

	tests := []struct {
		offset int64
		whence int
		want   int64
		fail   bool
	}{
		{4, io.SeekStart, 4, false},
		{2, io.SeekCurrent, 6, false},
		{-3, io.SeekEnd, 7, false},
		{0, io.SeekEnd, 10, false},
		{1, io.SeekEnd, 10, true},
		{-11, io.SeekCurrent, 10, true},
		{0, 42, 10, true},
	}

	for _, tt := range tests {
		got, err := r.Seek(tt.offset, tt.whence)
		if (err != nil) != tt.fail {
			t.Fatalf("Seek(%d, %d) error = %v, want failure %v", tt.offset, tt.whence, err, tt.fail)
		}
		if got != tt.want {
			t.Fatalf("Seek(%d, %d)\n- %d\n+ %d", tt.offset, tt.whence, tt.want, got)
		}
	}
}

func TestSliceIsIndependent(t *testing.T) {
	r := New([]byte("abcdefgh"))

	if err := r.Skip(1); err != nil {
		t.Fatal(err)
	}

	sub, err := r.Slice(4, 3)
	if err != nil {
		t.Fatal(err)
	}

	data, err := sub.ReadRaw(3)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(data, []byte("efg")) {
		t.Fatalf("incorrect slice contents %q", data)
	}

	if r.Position() != 1 {
		t.Fatalf("slice moved the parent cursor to %d", r.Position())
	}

	if _, err := r.Slice(6, 3); err == nil {
		t.Fatal("expected an error for a slice past the end")
	}

	if _, err := r.Slice(-1, 1); err == nil {
		t.Fatal("expected an error for a negative slice offset")
	}
}

func TestReadImplementsReader(t *testing.T) {
	r, err := NewFromStream(bytes.NewReader([]byte("hello")))
	if err != nil {
		t.Fatal(err)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != "hello" {
		t.Fatalf("incorrect data %q", data)
	}
}

func TestFloatNaNRoundTrip(t *testing.T) {
	buf := make([]byte, 8)
	bits := math.Float64bits(math.NaN())
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}

	v, err := New(buf).ReadFloat64LE()
	if err != nil {
		t.Fatal(err)
	}

	if !math.IsNaN(v) {
		t.Fatalf("expected NaN, got %f", v)
	}
}
