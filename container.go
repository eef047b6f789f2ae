package containers

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/omencyber/containers/binarycookies"
	"github.com/omencyber/containers/internal/logger"
	"github.com/omencyber/containers/record"
	"github.com/omencyber/containers/segb"
	"github.com/spf13/afero"
)

// DefaultMaxSize bounds the resident buffer when Options.MaxSize is zero.
const DefaultMaxSize = 1 << 30

// ErrTooLarge is returned for inputs, compressed or not, above Options.MaxSize.
var ErrTooLarge = errors.New("container too large")

const (
	bzip2HdrMagic = 0x425a68       // "BZh"
	bzip2BlkMagic = 0x314159265359 // BCD of pi
	bzip2EndMagic = 0x177245385090 // BCD of sqrt(pi), empty stream
)

// Options control how a container is read and decoded. The zero value is
// usable: one worker, DefaultMaxSize and no logging.
type Options struct {
	Workers int
	MaxSize int64
	Logger  logger.Logger
}

func (o *Options) withDefaults() Options {
	var opts Options

	if o != nil {
		opts = *o
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}

	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	return opts
}

// Container is one decoded evidence file. Exactly one of Pages and Log is
// set, depending on Format.
type Container struct {
	Path       string
	Size       int64
	Format     record.Format
	Magic      []byte
	Compressed bool
	Pages      []binarycookies.Page
	Log        *segb.Result
}

// Errors returns every recoverable error of the container in record order.
func (c *Container) Errors() []*record.Error {
	var out []*record.Error

	switch c.Format {
	case record.FormatCookieJar:
		for _, p := range c.Pages {
			out = append(out, p.Errors...)
		}
	case record.FormatAppendLog:
		if c.Log != nil {
			out = append(out, c.Log.Errors...)
		}
	}

	return out
}

// Counts returns how many records were produced, how many of those carry a
// warning (unknown cookie flags, failed checksum) and how many records could
// not be produced at all.
func (c *Container) Counts() (records, flagged, failed int) {
	switch c.Format {
	case record.FormatCookieJar:
		for _, p := range c.Pages {
			records += len(p.Cookies)
			failed += len(p.Errors)

			for _, cookie := range p.Cookies {
				if !cookie.Flags.Known() {
					flagged++
				}
			}
		}
	case record.FormatAppendLog:
		if c.Log == nil {
			return
		}

		records = len(c.Log.Entries)

		for _, e := range c.Log.Errors {
			if e.Kind == record.KindIntegrityMismatch {
				flagged++
			} else {
				failed++
			}
		}
	}

	return
}

// Detect identifies the container format from its leading bytes. The file
// name plays no part in it.
func Detect(data []byte) (record.Format, error) {
	switch {
	case binarycookies.Match(data):
		return record.FormatCookieJar, nil
	case segb.Match(data):
		return record.FormatAppendLog, nil
	}

	n := min(len(data), 4)

	return record.FormatUnknown, fmt.Errorf("Detect %x -> %w", data[:n], record.ErrBadMagic)
}

// bzip2CheckSig compares a signature stored highest significant byte first.
func bzip2CheckSig(data []byte, sig uint64) bool {
	var res uint64

	for i := 0; i < len(data); i++ {
		res <<= 8
		res |= uint64(data[i])
	}

	return res == sig
}

func isBzip2(data []byte) bool {
	if len(data) < 10 || !bzip2CheckSig(data[0:3], bzip2HdrMagic) {
		return false
	}

	if data[3] < '1' || data[3] > '9' {
		return false
	}

	return bzip2CheckSig(data[4:10], bzip2BlkMagic) || bzip2CheckSig(data[4:10], bzip2EndMagic)
}

// unwrap returns data decompressed if it is a bzip2 stream, or data itself.
func unwrap(data []byte, limit int64) ([]byte, bool, error) {
	if !isBzip2(data) {
		return data, false, nil
	}

	var config bzip2.ReaderConfig

	reader, err := bzip2.NewReader(bytes.NewReader(data), &config)
	if err != nil {
		return nil, true, fmt.Errorf("bzip2.NewReader -> %w", err)
	}
	defer reader.Close()

	buf, err := io.ReadAll(io.LimitReader(reader, limit+1))
	if err != nil {
		return nil, true, fmt.Errorf("bzip2 decompress -> %w", err)
	}

	if int64(len(buf)) > limit {
		return nil, true, fmt.Errorf("bzip2 decompress -> %w: more than %d bytes", ErrTooLarge, limit)
	}

	return buf, true, nil
}

// Decode detects and decodes a container already in memory. A bzip2 wrapper
// is removed first. Fatal errors are returned as is and no container is
// produced; recoverable errors are available through Container.Errors.
func Decode(data []byte, opts *Options) (*Container, error) {
	o := opts.withDefaults()

	if int64(len(data)) > o.MaxSize {
		return nil, fmt.Errorf("Decode -> %w: %d bytes, limit %d", ErrTooLarge, len(data), o.MaxSize)
	}

	data, compressed, err := unwrap(data, o.MaxSize)
	if err != nil {
		return nil, err
	}

	format, err := Detect(data)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Size:       int64(len(data)),
		Format:     format,
		Magic:      bytes.Clone(data[:4]),
		Compressed: compressed,
	}

	switch format {
	case record.FormatCookieJar:
		b := binarycookies.NewBytes(data)
		b.SetWorkers(o.Workers)

		pages, err := b.Decode()
		if err != nil {
			return nil, err
		}

		c.Pages = pages
	case record.FormatAppendLog:
		res, err := segb.NewBytes(data).Decode()
		if err != nil {
			return nil, err
		}

		c.Log = res
	}

	return c, nil
}

// Open reads the file at path from fs and decodes it. The file is closed
// before Open returns, on every path.
func Open(fs afero.Fs, path string, opts *Options) (*Container, error) {
	o := opts.withDefaults()

	data, err := readFile(fs, path, o.MaxSize)
	if err != nil {
		return nil, err
	}

	c, err := Decode(data, &o)
	if err != nil {
		return nil, fmt.Errorf("Decode %s -> %w", path, err)
	}

	c.Path = path

	records, flagged, failed := c.Counts()

	o.Logger.Info("%s: %s, %d bytes, %d records, %d flagged, %d failed",
		path, c.Format, c.Size, records, flagged, failed)

	for _, e := range c.Errors() {
		o.Logger.Warning("%s: %s", path, e)
	}

	return c, nil
}

func readFile(fs afero.Fs, path string, limit int64) ([]byte, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("Stat %s -> %w", path, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("Open %s -> is a directory", path)
	}

	if info.Size() > limit {
		return nil, fmt.Errorf("Open %s -> %w: %d bytes, limit %d", path, ErrTooLarge, info.Size(), limit)
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Open %s -> %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("ReadAll %s -> %w", path, err)
	}

	if int64(len(data)) > limit {
		return nil, fmt.Errorf("ReadAll %s -> %w: grew past %d bytes", path, ErrTooLarge, limit)
	}

	return data, nil
}

// DetectFile identifies the format of the file at path without decoding it.
// The second result reports whether the file was bzip2 compressed.
func DetectFile(fs afero.Fs, path string, opts *Options) (record.Format, bool, error) {
	o := opts.withDefaults()

	data, err := readFile(fs, path, o.MaxSize)
	if err != nil {
		return record.FormatUnknown, false, err
	}

	data, compressed, err := unwrap(data, o.MaxSize)
	if err != nil {
		return record.FormatUnknown, compressed, fmt.Errorf("Detect %s -> %w", path, err)
	}

	format, err := Detect(data)
	if err != nil {
		return record.FormatUnknown, compressed, fmt.Errorf("Detect %s -> %w", path, err)
	}

	return format, compressed, nil
}
