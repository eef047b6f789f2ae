package segb

import (
	"cmp"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"iter"
	"slices"

	"github.com/omencyber/containers/cocoa"
	"github.com/omencyber/containers/cursor"
	"github.com/omencyber/containers/record"
)

// align rounds pos up to the next multiple of four. Entries are 4-byte
// aligned on disk.
func align(pos int64) int64 {
	if r := pos % 4; r != 0 {
		return pos + 4 - r
	}
	return pos
}

func (s *SEGB) load() error {
	if s.cur != nil {
		return nil
	}

	if s.file == nil {
		return fmt.Errorf("load no input -> %w", record.ErrTruncatedContainer)
	}

	cur, err := cursor.NewFromStream(s.file)
	if err != nil {
		return fmt.Errorf("load -> %w", err)
	}

	s.cur = cur

	return nil
}

// ReadHeader validates the signature and reads the fixed header.
func (s *SEGB) ReadHeader() error {
	if err := s.load(); err != nil {
		return err
	}

	if !Match(s.cur.Bytes()) {
		return fmt.Errorf("ReadHeader invalid signature -> %w", record.ErrBadMagic)
	}

	hdr, err := s.cur.Slice(0, HeaderLength)
	if err != nil {
		return fmt.Errorf("ReadHeader -> %w: %w", record.ErrTruncatedContainer, err)
	}

	if err := hdr.Skip(len(magic)); err != nil {
		return fmt.Errorf("ReadHeader -> %w: %w", record.ErrTruncatedContainer, err)
	}

	count, err := hdr.ReadInt32LE()
	if err != nil {
		return fmt.Errorf("ReadHeader entry count -> %w: %w", record.ErrTruncatedContainer, err)
	}

	if count < 0 {
		return fmt.Errorf("ReadHeader entry count %d -> %w", count, record.ErrCorruptIndex)
	}

	created, err := hdr.ReadFloat64LE()
	if err != nil {
		return fmt.Errorf("ReadHeader creation -> %w: %w", record.ErrTruncatedContainer, err)
	}

	reserved, err := hdr.ReadRaw(16)
	if err != nil {
		return fmt.Errorf("ReadHeader reserved -> %w: %w", record.ErrTruncatedContainer, err)
	}

	s.Header = Header{EntryCount: count}
	copy(s.Header.Reserved[:], reserved)
	s.headerErr = nil

	if s.Header.Created, err = cocoa.Decode(created); err != nil {
		s.headerErr = record.NewError(fmt.Errorf("ReadHeader creation %v -> %w", created, err), -1, -1, 8)
	}

	return nil
}

// ReadTrailer reads every slot from the end of the file, sorts them by end
// offset to recover the physical order of the data and checks that they
// frame the data region consistently.
func (s *SEGB) ReadTrailer() error {
	n := int64(s.Header.EntryCount)
	size := n * TrailerEntryLength

	if HeaderLength+size > s.cur.Len() {
		return fmt.Errorf("ReadTrailer %d slots need %d bytes after the header, file has %d -> %w", n, size, s.cur.Len()-HeaderLength, record.ErrTruncatedContainer)
	}

	start, err := s.cur.Seek(-size, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("ReadTrailer -> %w: %w", record.ErrTruncatedContainer, err)
	}

	slots := make([]Slot, 0, n)

	for i := 0; i < int(n); i++ {
		slot := Slot{Index: i, MetadataOffset: s.cur.Position()}

		end, err := s.cur.ReadInt32LE()
		if err != nil {
			return fmt.Errorf("ReadTrailer slot %d end -> %w: %w", i, record.ErrTruncatedContainer, err)
		}

		state, err := s.cur.ReadInt32LE()
		if err != nil {
			return fmt.Errorf("ReadTrailer slot %d state -> %w: %w", i, record.ErrTruncatedContainer, err)
		}

		if slot.created, err = s.cur.ReadFloat64LE(); err != nil {
			return fmt.Errorf("ReadTrailer slot %d creation -> %w: %w", i, record.ErrTruncatedContainer, err)
		}

		slot.EndOffset = end
		slot.State = State(state)
		slots = append(slots, slot)
	}

	slices.SortStableFunc(slots, func(a, b Slot) int {
		return cmp.Compare(a.EndOffset, b.EndOffset)
	})

	pos := int64(HeaderLength)

	for i, slot := range slots {
		end := HeaderLength + int64(slot.EndOffset)

		if i > 0 && slot.EndOffset == slots[i-1].EndOffset {
			return fmt.Errorf("ReadTrailer slots %d and %d share end offset %d -> %w", slots[i-1].Index, slot.Index, slot.EndOffset, record.ErrCorruptIndex)
		}

		if end < pos {
			return fmt.Errorf("ReadTrailer slot %d ends at %d before its start %d -> %w", slot.Index, end, pos, record.ErrCorruptIndex)
		}

		if end > start {
			return fmt.Errorf("ReadTrailer slot %d ends at %d past the trailer at %d -> %w", slot.Index, end, start, record.ErrCorruptIndex)
		}

		if slot.State != StateTombstoned && end-pos < EntryHeaderLength {
			return fmt.Errorf("ReadTrailer slot %d holds %d bytes, less than an entry header -> %w", slot.Index, end-pos, record.ErrCorruptIndex)
		}

		pos = align(end)
	}

	s.slots = slots

	return nil
}

func (s *SEGB) readIndex() error {
	if s.indexed {
		return nil
	}

	if err := s.ReadHeader(); err != nil {
		return err
	}

	if err := s.ReadTrailer(); err != nil {
		return err
	}

	s.indexed = true

	return nil
}

// Entries returns a lazy sequence over the live entries in data order. Fatal
// errors are returned before the sequence is handed out. Each step yields an
// entry, an entry together with an IntegrityMismatch *record.Error, or a zero
// entry with the *record.Error that prevented decoding it.
func (s *SEGB) Entries() (iter.Seq2[Entry, error], error) {
	if err := s.readIndex(); err != nil {
		return nil, err
	}

	slots := s.slots

	return func(yield func(Entry, error) bool) {
		pos := int64(HeaderLength)

		for i, slot := range slots {
			end := HeaderLength + int64(slot.EndOffset)
			start := pos
			pos = align(end)

			if slot.State == StateTombstoned {
				continue
			}

			entry, err := s.readEntry(slot, start, end)
			if err != nil {
				if !yield(entry, record.NewError(fmt.Errorf("entry %d -> %w", i, err), -1, i, start)) {
					return
				}
				continue
			}

			if !yield(entry, nil) {
				return
			}
		}
	}, nil
}

// readEntry decodes the bytes between start and end on a cursor of its own.
// An integrity mismatch returns the full entry along with the error.
func (s *SEGB) readEntry(slot Slot, start, end int64) (Entry, error) {
	created, err := cocoa.Decode(slot.created)
	if err != nil {
		return Entry{}, fmt.Errorf("creation %v -> %w", slot.created, err)
	}

	slot.Created = created

	er, err := s.cur.Slice(start, end-start)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", record.ErrRecordDecode, err)
	}

	stored, err := er.ReadUint32LE()
	if err != nil {
		return Entry{}, fmt.Errorf("crc -> %w: %w", record.ErrRecordDecode, err)
	}

	reserved, err := er.ReadInt32LE()
	if err != nil {
		return Entry{}, fmt.Errorf("reserved -> %w: %w", record.ErrRecordDecode, err)
	}

	data, err := er.ReadRaw(int(er.Remaining()))
	if err != nil {
		return Entry{}, fmt.Errorf("payload -> %w: %w", record.ErrRecordDecode, err)
	}

	entry := Entry{
		Slot:        slot,
		Offset:      start,
		StoredCRC:   stored,
		ComputedCRC: crc32.ChecksumIEEE(data),
		Reserved:    reserved,
		Data:        data,
	}

	if !entry.CRCPassed() {
		return entry, fmt.Errorf("crc stored %08x computed %08x -> %w", entry.StoredCRC, entry.ComputedCRC, record.ErrIntegrityMismatch)
	}

	return entry, nil
}

// Decode walks the whole log. Entries that fail the checksum are kept and
// also listed in Result.Errors; entries that cannot be decoded at all are
// only listed in Result.Errors.
func (s *SEGB) Decode() (*Result, error) {
	seq, err := s.Entries()
	if err != nil {
		return nil, err
	}

	res := &Result{Header: s.Header}

	if s.headerErr != nil {
		res.Errors = append(res.Errors, s.headerErr)
	}

	for entry, err := range seq {
		if err != nil {
			var re *record.Error
			if !errors.As(err, &re) {
				re = record.NewError(err, -1, len(res.Entries), entry.Offset)
			}

			res.Errors = append(res.Errors, re)

			if re.Kind != record.KindIntegrityMismatch {
				continue
			}
		}

		res.Entries = append(res.Entries, entry)
	}

	return res, nil
}
