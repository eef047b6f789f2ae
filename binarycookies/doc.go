// Package binarycookies implements a decoder for the binary cookies archive
// written by Safari and other WebKit clients (Cookies.binarycookies).
//
// An HTTP cookie is a small piece of data sent from a website and stored on
// the user's computer by the user's web browser while the user is browsing.
// The archive groups them into pages:
//
//	"cook" | page count (BE) | page sizes (BE) | pages...
//
// and every page carries its own little-endian offset table:
//
//	tag | cookie count | cookie offsets | footer | cookie records...
//
// A structural problem (wrong signature, a page table or an offset table that
// does not fit) fails the whole archive. A single cookie that cannot be
// decoded is reported next to the good ones and never hides them.
//
// References:
//
// - https://en.wikipedia.org/wiki/HTTP_cookie
// - https://tools.ietf.org/html/rfc6265
package binarycookies
