// Package record holds the pieces shared by every container decoder: the
// format tag, the error taxonomy and the per-record error descriptor.
package record

import (
	"errors"
	"fmt"

	"github.com/omencyber/containers/cocoa"
	"github.com/omencyber/containers/cursor"
)

// Format identifies the layout of a container.
type Format int

const (
	// FormatUnknown means no known signature matched.
	FormatUnknown Format = iota
	// FormatCookieJar is the paged binary cookie store.
	FormatCookieJar
	// FormatAppendLog is the SEGB append-only log with a trailer index.
	FormatAppendLog
)

func (f Format) String() string {
	switch f {
	case FormatCookieJar:
		return "cookiejar"
	case FormatAppendLog:
		return "appendlog"
	default:
		return "unknown"
	}
}

// Sentinel errors. ErrInvalidTimestamp lives in package cocoa and truncated
// reads surface as *cursor.TruncatedReadError.
var (
	ErrBadMagic           = errors.New("bad magic")
	ErrTruncatedContainer = errors.New("truncated container")
	ErrCorruptIndex       = errors.New("corrupt index")
	ErrRecordDecode       = errors.New("record decode error")
	ErrIntegrityMismatch  = errors.New("integrity mismatch")
)

// Kind classifies an error for reporting.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadMagic
	KindTruncated
	KindCorruptIndex
	KindRecordDecode
	KindIntegrityMismatch
	KindInvalidTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindBadMagic:
		return "BadMagic"
	case KindTruncated:
		return "Truncated"
	case KindCorruptIndex:
		return "CorruptIndex"
	case KindRecordDecode:
		return "RecordDecodeError"
	case KindIntegrityMismatch:
		return "IntegrityMismatch"
	case KindInvalidTimestamp:
		return "InvalidTimestamp"
	default:
		return "Unknown"
	}
}

// Fatal reports whether errors of this kind abort a whole container.
func (k Kind) Fatal() bool {
	return k == KindBadMagic || k == KindTruncated || k == KindCorruptIndex
}

// KindOf classifies err. Record-level kinds win over structural ones, so a
// truncated read inside a single cookie wrapped with ErrRecordDecode is a
// record error, not a truncated container.
func KindOf(err error) Kind {
	var tre *cursor.TruncatedReadError

	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, cocoa.ErrInvalidTimestamp):
		return KindInvalidTimestamp
	case errors.Is(err, ErrIntegrityMismatch):
		return KindIntegrityMismatch
	case errors.Is(err, ErrRecordDecode):
		return KindRecordDecode
	case errors.Is(err, ErrCorruptIndex):
		return KindCorruptIndex
	case errors.Is(err, ErrBadMagic):
		return KindBadMagic
	case errors.Is(err, ErrTruncatedContainer), errors.As(err, &tre):
		return KindTruncated
	default:
		return KindUnknown
	}
}

// Error describes a recoverable failure of one record. Page is -1 for
// containers without pages; Index is -1 for container-level fields such as
// the log header timestamp.
type Error struct {
	Kind   Kind
	Page   int
	Index  int
	Offset int64
	Err    error
}

// NewError wraps err with its position inside the container.
func NewError(err error, page, index int, offset int64) *Error {
	return &Error{
		Kind:   KindOf(err),
		Page:   page,
		Index:  index,
		Offset: offset,
		Err:    err,
	}
}

func (e *Error) Error() string {
	if e.Page >= 0 {
		return fmt.Sprintf("%s: page %d record %d (offset %d): %s", e.Kind, e.Page, e.Index, e.Offset, e.Err)
	}
	return fmt.Sprintf("%s: record %d (offset %d): %s", e.Kind, e.Index, e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
