package segb

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math"
	"time"

	"github.com/omencyber/containers/cocoa"
)

// testEntry is the input of the fixture builder.
type testEntry struct {
	state   int32
	payload string
	created float64
	badCRC  bool
}

// buildLog lays out entries in data order and writes the trailer in the
// order given by trailer (indexes into entries). A nil trailer writes slots
// in reverse, which is what real files look like often enough.
func buildLog(created float64, entries []testEntry, trailer []int) []byte {
	le := binary.LittleEndian
	out := new(bytes.Buffer)

	out.Write(magic)
	binary.Write(out, le, int32(len(entries)))
	binary.Write(out, le, math.Float64bits(created))
	out.Write(make([]byte, 16))

	ends := make([]int32, len(entries))

	for i, e := range entries {
		crc := crc32.ChecksumIEEE([]byte(e.payload))
		if e.badCRC {
			crc ^= 0xdeadbeef
		}

		binary.Write(out, le, crc)
		binary.Write(out, le, int32(0))
		out.WriteString(e.payload)

		ends[i] = int32(out.Len() - HeaderLength)

		for out.Len()%4 != 0 {
			out.WriteByte(0)
		}
	}

	if trailer == nil {
		for i := len(entries) - 1; i >= 0; i-- {
			trailer = append(trailer, i)
		}
	}

	for _, i := range trailer {
		binary.Write(out, le, ends[i])
		binary.Write(out, le, entries[i].state)
		binary.Write(out, le, math.Float64bits(entries[i].created))
	}

	return out.Bytes()
}

var (
	testCreated = time.Date(2024, 2, 29, 8, 15, 0, 0, time.UTC)
	testWritten = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
)

// _test1 holds a tombstoned entry followed by a live one.
var _test1 = buildLog(cocoa.Encode(testCreated), []testEntry{
	{state: 4, payload: "gone", created: cocoa.Encode(testWritten)},
	{state: 0, payload: "hello", created: cocoa.Encode(testWritten)},
}, nil)

// _test2 holds three live entries, the second with a broken checksum.
var _test2 = buildLog(cocoa.Encode(testCreated), []testEntry{
	{state: 1, payload: "com.apple.Safari", created: 7e8},
	{state: 1, payload: "corrupted\x00\x01", created: 7e8 + 1, badCRC: true},
	{state: 1, payload: "https://example.com/", created: 7e8 + 2},
}, []int{2, 0, 1})

// _test3 is a log without entries.
var _test3 = buildLog(0, nil, nil)
