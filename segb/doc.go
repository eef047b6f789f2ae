// Package segb decodes SEGB files, the append-only logs Biome and related
// system daemons use to persist event streams.
//
// The file is a fixed header, a run of 4-byte aligned entries and a trailer
// index at the very end:
//
//	"SEGB" | entry count | creation | reserved(16)
//	crc32 | reserved | payload | pad ...
//	end offset | state | creation   (one 16-byte slot per entry)
//
// Trailer slots are not stored in data order, so they are collected and
// sorted by end offset before the data region is walked. The trailer is the
// only framing information in the file: if it is inconsistent the whole log
// is rejected before any entry is produced. Tombstoned entries are skipped;
// entries whose checksum does not match are still produced and flagged.
//
// Timestamps are seconds since 2001-01-01T00:00:00Z, see package cocoa.
package segb
