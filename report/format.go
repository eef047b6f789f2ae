package report

import (
	"errors"
	"fmt"
	"strings"
)

// Format selects the sink a document is written with.
type Format int

const (
	FormatJSON Format = iota
	FormatText
	FormatNetscape
	FormatFlat
	FormatSQLite
)

var (
	// ErrUnknownFormat is returned by ParseFormat.
	ErrUnknownFormat = errors.New("unknown report format")
	// ErrUnsupported is returned when a sink cannot render a document, e.g.
	// a log container in the Netscape cookie format.
	ErrUnsupported = errors.New("unsupported by report format")
)

var formatNames = map[Format]string{
	FormatJSON:     "json",
	FormatText:     "text",
	FormatNetscape: "netscape",
	FormatFlat:     "flat",
	FormatSQLite:   "sqlite",
}

var formatExts = map[Format]string{
	FormatJSON:     "json",
	FormatText:     "txt",
	FormatNetscape: "txt",
	FormatFlat:     "txt",
	FormatSQLite:   "sqlite",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// Ext returns the file extension used for the format, without the dot.
func (f Format) Ext() string {
	return formatExts[f]
}

// Stream reports whether the format can be written to an io.Writer.
func (f Format) Stream() bool {
	return f != FormatSQLite
}

// ParseFormat returns the format with the given name. "txt" is accepted as
// an alias for text.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	if name == "txt" {
		return FormatText, nil
	}

	for f, n := range formatNames {
		if n == name {
			return f, nil
		}
	}

	return FormatJSON, fmt.Errorf("ParseFormat %q -> %w", name, ErrUnknownFormat)
}

// Formats lists the names accepted by ParseFormat, for usage texts.
func Formats() []string {
	return []string{"json", "text", "netscape", "flat", "sqlite"}
}
