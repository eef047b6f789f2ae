package binarycookies

import (
	"bytes"
	"io"
	"time"

	"github.com/omencyber/containers/cursor"
	"github.com/omencyber/containers/record"
)

// magic are the bytes representing the signature of valid binary cookies.
var magic []byte = []byte{0x63, 0x6f, 0x6f, 0x6b}

const (
	// pageHeaderSize is the fixed tag in front of every page.
	pageHeaderSize = 4
	// pageFooterSize is the fixed marker after the cookie offset table.
	pageFooterSize = 4
	// cookieHeaderSize is everything from the size field to the end of the
	// creation date; strings always start after it.
	cookieHeaderSize = 56
)

// BinaryCookies is a struct representing relevant parts of the binary cookies
// archive. A couple of methods are available to read and validate the archive
// and to extract relevant information.
type BinaryCookies struct {
	file    io.Reader
	cur     *cursor.Reader
	size    int32
	page    []int32
	start   []int64
	pages   []Page
	workers int
}

// Page represents a single web page and contains all the cookies associated
// to the same domain. A binary cookies archive contains all the cookies for
// all the pages the user has ever visited.
//
// Length is the cookie count declared by the page. Every declared cookie ends
// up either in Cookies or in Errors, never in both and never in neither.
type Page struct {
	Index   int
	Size    int32
	Length  int32
	Offsets []int32
	Cookies []Cookie
	Errors  []*record.Error
}

// Flags is the cookie attribute bitmask.
type Flags int32

const (
	FlagNone           Flags = 0
	FlagSecure         Flags = 1
	FlagHTTPOnly       Flags = 4
	FlagSecureHTTPOnly Flags = 5
)

// String returns the attribute list the way a Set-Cookie header spells it.
func (f Flags) String() string {
	switch f {
	case FlagNone:
		return ""
	case FlagSecure:
		return "Secure"
	case FlagHTTPOnly:
		return "HttpOnly"
	case FlagSecureHTTPOnly:
		return "Secure; HttpOnly"
	default:
		return "Unknown"
	}
}

// Known reports whether f is one of the four documented combinations.
func (f Flags) Known() bool {
	return f == FlagNone || f == FlagSecure || f == FlagHTTPOnly || f == FlagSecureHTTPOnly
}

// Cookie or HTTP cookie is a small piece of data sent from a website and
// stored on the user's computer by the user's web browser while the user is
// browsing. Cookies were designed to be a reliable mechanism for websites to
// remember stateful information or to record the user's browsing activity.
//
// Page and Offset locate the record inside the archive: Offset is relative to
// the start of the page.
//
// Ref: https://en.wikipedia.org/wiki/HTTP_cookie
type Cookie struct {
	Page          int
	Offset        int32
	Size          int32
	Flags         Flags
	Secure        bool
	HttpOnly      bool
	domainOffset  int32
	nameOffset    int32
	pathOffset    int32
	valueOffset   int32
	commentOffset int32
	Domain        string
	Name          string
	Path          string
	Value         string
	Comment       string
	Expires       time.Time
	Creation      time.Time
}

// cookieHelperFunction defines a function signature to help readPageCookie
// read and process all the bytes associated to all the cookies found on each
// page. Each function takes the record cursor and a cookie pointer, reads
// some bytes, runs some transformations and finally stores the decoded values
// into the cookie.
type cookieHelperFunction func(*cursor.Reader, *Cookie) error

// New returns an instance of the Binary Cookies class. The reader is consumed
// on the first call to Validate or Decode.
func New(reader io.Reader) *BinaryCookies {
	return &BinaryCookies{file: reader, workers: 1}
}

// NewBytes returns an instance over an archive already in memory.
func NewBytes(data []byte) *BinaryCookies {
	return &BinaryCookies{cur: cursor.New(data), workers: 1}
}

// SetWorkers sets how many pages are decoded concurrently by Decode. Values
// below one are treated as one.
func (b *BinaryCookies) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	b.workers = n
}

// Match reports whether data starts with the binary cookies signature.
func Match(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}
