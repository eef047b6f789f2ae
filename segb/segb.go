package segb

import (
	"bytes"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/omencyber/containers/cursor"
	"github.com/omencyber/containers/record"
)

// magic are the bytes representing the signature of a SEGB log.
var magic []byte = []byte("SEGB")

const (
	// HeaderLength is the size of the fixed file header.
	HeaderLength = 32
	// EntryHeaderLength is the CRC32 plus the reserved integer in front of
	// every payload.
	EntryHeaderLength = 8
	// TrailerEntryLength is the size of one trailer slot.
	TrailerEntryLength = 16
)

// State is the lifecycle code stored in a trailer slot.
type State int32

// StateTombstoned marks an entry that was logically deleted.
const StateTombstoned State = 4

// Header is the fixed 32-byte region at the start of the file.
type Header struct {
	EntryCount int32
	Created    time.Time
	Reserved   [16]byte
}

// Slot is one trailer record. MetadataOffset is where the slot itself sits in
// the file; EndOffset counts from the end of the header.
type Slot struct {
	Index          int
	MetadataOffset int64
	EndOffset      int32
	State          State
	Created        time.Time
	created        float64
}

// Entry is a slot resolved against the data region. Offset is the absolute
// position of the entry header.
type Entry struct {
	Slot
	Offset      int64
	StoredCRC   uint32
	ComputedCRC uint32
	Reserved    int32
	Data        []byte
}

// CRCPassed reports whether the stored checksum matches the payload.
func (e Entry) CRCPassed() bool {
	return e.StoredCRC == e.ComputedCRC
}

// Text renders the payload for humans: invalid UTF-8 is replaced and
// non-printable characters are dropped.
func (e Entry) Text() string {
	s := strings.ToValidUTF8(string(e.Data), string(unicode.ReplacementChar))

	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// Result is the eager form of a decoded log.
type Result struct {
	Header  Header
	Entries []Entry
	Errors  []*record.Error
}

// SEGB decodes one append-only log.
type SEGB struct {
	file      io.Reader
	cur       *cursor.Reader
	Header    Header
	headerErr *record.Error
	slots     []Slot
	indexed   bool
}

// New returns a decoder that reads the log from reader on first use.
func New(reader io.Reader) *SEGB {
	return &SEGB{file: reader}
}

// NewBytes returns a decoder over a log already in memory.
func NewBytes(data []byte) *SEGB {
	return &SEGB{cur: cursor.New(data)}
}

// Match reports whether data starts with the SEGB signature.
func Match(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}

// Slots returns the trailer slots sorted by end offset. It is empty until
// ReadTrailer has succeeded.
func (s *SEGB) Slots() []Slot {
	return s.slots
}
