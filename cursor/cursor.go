// Package cursor implements a bounds-checked, endian-aware reader over an
// immutable byte buffer.
//
// Every decoder owns its own Reader. Nested reads (a page inside a file, a
// record inside a page) use Slice, which hands out an independent Reader over
// a sub-range of the same buffer, so the parent position never moves behind
// the caller's back.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// errSeek is returned when a seek lands outside the buffer.
var errSeek = errors.New("seek out of range")

// TruncatedReadError reports a read that asked for more bytes than the buffer
// had left at Offset.
type TruncatedReadError struct {
	Offset   int64
	Expected int
	Actual   int
}

func (e *TruncatedReadError) Error() string {
	return fmt.Sprintf("truncated read at offset %d: expected %d bytes, got %d", e.Offset, e.Expected, e.Actual)
}

// Reader is a cursor over a fixed byte buffer.
type Reader struct {
	buf []byte
	pos int64
}

// New returns a Reader positioned at the start of b. The buffer is not copied
// and must not be modified while the Reader is in use.
func New(b []byte) *Reader {
	return &Reader{buf: b}
}

// NewFromStream reads r to the end and returns a Reader over its contents.
func NewFromStream(r io.Reader) (*Reader, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return New(b), nil
}

// Len returns the total size of the underlying buffer.
func (r *Reader) Len() int64 { return int64(len(r.buf)) }

// Position returns the current read offset.
func (r *Reader) Position() int64 { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int64 { return int64(len(r.buf)) - r.pos }

// Bytes returns the whole underlying buffer.
func (r *Reader) Bytes() []byte { return r.buf }

// Seek implements io.Seeker. Offsets outside [0, Len] are rejected and leave
// the position unchanged.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64

	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = int64(len(r.buf)) + offset
	default:
		return r.pos, fmt.Errorf("Seek invalid whence %d", whence)
	}

	if abs < 0 || abs > int64(len(r.buf)) {
		return r.pos, fmt.Errorf("Seek %d (whence %d) -> %w", offset, whence, errSeek)
	}

	r.pos = abs

	return abs, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.pos >= int64(len(r.buf)) {
		return 0, io.EOF
	}

	n := copy(p, r.buf[r.pos:])
	r.pos += int64(n)

	return n, nil
}

// ReadRaw returns the next n bytes and advances past them. The returned slice
// aliases the buffer. A short buffer yields a *TruncatedReadError and does not
// move the cursor.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	if n < 0 {
		return nil, &TruncatedReadError{Offset: r.pos, Expected: n, Actual: 0}
	}

	if rem := r.Remaining(); int64(n) > rem {
		return nil, &TruncatedReadError{Offset: r.pos, Expected: n, Actual: int(rem)}
	}

	data := r.buf[r.pos : r.pos+int64(n)]
	r.pos += int64(n)

	return data, nil
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.ReadRaw(n)
	return err
}

// Slice returns an independent Reader over n bytes starting at the absolute
// offset off. The receiver's position is not touched.
func (r *Reader) Slice(off, n int64) (*Reader, error) {
	if off < 0 || n < 0 || off > int64(len(r.buf)) {
		return nil, &TruncatedReadError{Offset: off, Expected: int(n), Actual: 0}
	}

	if rem := int64(len(r.buf)) - off; n > rem {
		return nil, &TruncatedReadError{Offset: off, Expected: int(n), Actual: int(rem)}
	}

	return New(r.buf[off : off+n]), nil
}

// ReadInt32BE reads a big-endian signed 32-bit integer.
func (r *Reader) ReadInt32BE() (int32, error) {
	u, err := r.ReadUint32BE()
	return int32(u), err
}

// ReadInt32LE reads a little-endian signed 32-bit integer.
func (r *Reader) ReadInt32LE() (int32, error) {
	u, err := r.ReadUint32LE()
	return int32(u), err
}

// ReadUint32BE reads a big-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32BE() (uint32, error) {
	data, err := r.ReadRaw(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(data), nil
}

// ReadUint32LE reads a little-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32LE() (uint32, error) {
	data, err := r.ReadRaw(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// ReadUint64LE reads a little-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64LE() (uint64, error) {
	data, err := r.ReadRaw(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

// ReadFloat64LE reads a little-endian IEEE 754 double.
func (r *Reader) ReadFloat64LE() (float64, error) {
	u, err := r.ReadUint64LE()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}
