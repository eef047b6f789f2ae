package binarycookies

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	"github.com/omencyber/containers/cocoa"
)

// testCookie is the input of the fixture builder.
type testCookie struct {
	flags    int32
	domain   string
	name     string
	path     string
	value    string
	comment  string
	expires  float64
	creation float64
}

// encodeCookie lays out one record exactly like the archive does: the size
// field, the fixed header and the null-terminated strings, with every string
// offset counted from the size field.
func encodeCookie(c testCookie) []byte {
	strs := []string{c.domain, c.name, c.path, c.value}
	if c.comment != "" {
		strs = append(strs, c.comment)
	}

	offsets := make([]int32, 5)
	body := new(bytes.Buffer)
	pos := int32(cookieHeaderSize)

	for i, s := range strs {
		offsets[i] = pos
		body.WriteString(s)
		body.WriteByte(0)
		pos += int32(len(s)) + 1
	}

	out := new(bytes.Buffer)
	le := binary.LittleEndian

	binary.Write(out, le, pos) // size
	binary.Write(out, le, int32(0))
	binary.Write(out, le, c.flags)
	binary.Write(out, le, int32(0))
	binary.Write(out, le, offsets) // domain, name, path, value, comment
	binary.Write(out, le, int32(0))
	binary.Write(out, le, math.Float64bits(c.expires))
	binary.Write(out, le, math.Float64bits(c.creation))
	out.Write(body.Bytes())

	return out.Bytes()
}

// encodePage builds a page from already encoded records.
func encodePage(records [][]byte) []byte {
	out := new(bytes.Buffer)
	le := binary.LittleEndian

	out.Write([]byte{0x00, 0x00, 0x01, 0x00})
	binary.Write(out, le, int32(len(records)))

	offset := int32(4 + 4 + 4*len(records) + 4)
	for _, r := range records {
		binary.Write(out, le, offset)
		offset += int32(len(r))
	}

	binary.Write(out, le, int32(0))

	for _, r := range records {
		out.Write(r)
	}

	return out.Bytes()
}

// encodeArchive wraps pages into a complete archive.
func encodeArchive(pages [][]byte) []byte {
	out := new(bytes.Buffer)

	out.Write(magic)
	binary.Write(out, binary.BigEndian, int32(len(pages)))

	for _, p := range pages {
		binary.Write(out, binary.BigEndian, int32(len(p)))
	}

	for _, p := range pages {
		out.Write(p)
	}

	return out.Bytes()
}

func buildArchive(pages ...[]testCookie) []byte {
	encoded := make([][]byte, 0, len(pages))

	for _, p := range pages {
		records := make([][]byte, 0, len(p))
		for _, c := range p {
			records = append(records, encodeCookie(c))
		}
		encoded = append(encoded, encodePage(records))
	}

	return encodeArchive(encoded)
}

var (
	testCreated = time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	testExpires = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

var _test1 = buildArchive([]testCookie{{
	flags:    5,
	domain:   "example.com",
	name:     "session",
	path:     "/",
	value:    "abc123",
	expires:  cocoa.Encode(testExpires),
	creation: cocoa.Encode(testCreated),
}})

var _test2 = buildArchive(
	[]testCookie{
		{flags: 0, domain: ".github.com", name: "logged_in", path: "/", value: "no", expires: 7e8, creation: 6.9e8},
		{flags: 1, domain: ".github.com", name: "_octo", path: "/", value: "GH1.1", expires: 7e8, creation: 6.9e8},
	},
	[]testCookie{
		{flags: 4, domain: "www.apple.com", name: "geo", path: "/", value: "AU", comment: "set by edge", expires: 7.1e8, creation: 6.8e8},
	},
)

var _test3 = encodeArchive(nil)
