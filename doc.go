// Package containers decodes binary evidence containers recovered from
// macOS and iOS devices.
//
// Two formats are supported and told apart by their signature:
//
//	"cook"  paged cookie jars (Cookies.binarycookies), see package binarycookies
//	"SEGB"  append-only event logs (Biome streams), see package segb
//
// Either may come wrapped in a bzip2 stream. Open reads a file through an
// afero filesystem, Decode works on bytes already in memory. Both return a
// Container holding the decoded records and every per-record error; a
// structural problem makes the whole container fail instead.
package containers
