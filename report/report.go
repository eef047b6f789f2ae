// Package report turns decoded containers into documents and writes them in
// one of several formats.
package report

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/omencyber/containers"
	"github.com/omencyber/containers/record"
)

// Options control how a document is built. The zero value renders times in
// UTC, uses a random report id and keeps every cookie.
type Options struct {
	Location *time.Location
	ReportID uuid.UUID
	Now      func() time.Time
	Filter   *regexp.Regexp
}

// Document is the rendered form of one container. The field order is the
// order of the JSON output.
type Document struct {
	ReportID    string     `json:"report_id"`
	Source      string     `json:"source"`
	Format      string     `json:"format"`
	Size        int64      `json:"size"`
	Magic       string     `json:"magic"`
	Compressed  bool       `json:"compressed"`
	GeneratedAt string     `json:"generated_at"`
	Summary     Summary    `json:"summary"`
	Header      *Header    `json:"header,omitempty"`
	Pages       []Page     `json:"pages,omitempty"`
	Cookies     []Cookie   `json:"cookies,omitempty"`
	Entries     []Entry    `json:"entries,omitempty"`
	Errors      []ErrorRow `json:"errors"`
}

// Summary is what a decode yields in one line: N records, M flagged or failed.
type Summary struct {
	Records int `json:"records"`
	Flagged int `json:"flagged"`
	Failed  int `json:"failed"`
}

// Header is the fixed header of a log container.
type Header struct {
	EntryCount int32  `json:"entry_count"`
	Created    string `json:"created"`
	Reserved   string `json:"reserved"`
}

// Page describes one page of a cookie container.
type Page struct {
	Index   int   `json:"index"`
	Size    int32 `json:"size"`
	Cookies int32 `json:"cookies"`
}

// Cookie is one row of a cookie container.
type Cookie struct {
	Page     int    `json:"page"`
	Offset   int32  `json:"offset"`
	Domain   string `json:"domain"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Value    string `json:"value"`
	Comment  string `json:"comment,omitempty"`
	Flags    string `json:"flags"`
	Secure   bool   `json:"secure"`
	HttpOnly bool   `json:"http_only"`
	Created  string `json:"created"`
	Expires  string `json:"expires"`

	expires time.Time
}

// Entry is one row of a log container. Data is the printable rendering of
// the payload and Raw its hex dump.
type Entry struct {
	Offset    int64  `json:"offset"`
	Created   string `json:"created"`
	State     int32  `json:"state"`
	CRCPassed bool   `json:"crc_passed"`
	StoredCRC string `json:"stored_crc"`
	Size      int    `json:"size"`
	Data      string `json:"data"`
	Raw       string `json:"raw"`
}

// ErrorRow is one recoverable error. Page is -1 for log containers.
type ErrorRow struct {
	Kind    string `json:"kind"`
	Page    int    `json:"page"`
	Index   int    `json:"index"`
	Offset  int64  `json:"offset"`
	Message string `json:"message"`
}

func (o *Options) withDefaults() Options {
	var opts Options

	if o != nil {
		opts = *o
	}

	if opts.Location == nil {
		opts.Location = time.UTC
	}

	if opts.ReportID == uuid.Nil {
		opts.ReportID = uuid.New()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return opts
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}

	return t.In(loc).Format(time.RFC3339)
}

// Build renders c. Cookies whose domain does not match Options.Filter are
// left out together with their summary counts; errors are always kept.
func Build(c *containers.Container, opts *Options) *Document {
	o := opts.withDefaults()

	doc := &Document{
		ReportID:    o.ReportID.String(),
		Source:      c.Path,
		Format:      c.Format.String(),
		Size:        c.Size,
		Magic:       hex.EncodeToString(c.Magic),
		Compressed:  c.Compressed,
		GeneratedAt: formatTime(o.Now(), o.Location),
		Errors:      []ErrorRow{},
	}

	switch c.Format {
	case record.FormatCookieJar:
		buildCookies(doc, c, o)
	case record.FormatAppendLog:
		buildEntries(doc, c, o)
	}

	for _, e := range c.Errors() {
		doc.Errors = append(doc.Errors, ErrorRow{
			Kind:    e.Kind.String(),
			Page:    e.Page,
			Index:   e.Index,
			Offset:  e.Offset,
			Message: e.Err.Error(),
		})

		if e.Kind == record.KindIntegrityMismatch {
			doc.Summary.Flagged++
		} else {
			doc.Summary.Failed++
		}
	}

	return doc
}

func buildCookies(doc *Document, c *containers.Container, o Options) {
	for _, p := range c.Pages {
		doc.Pages = append(doc.Pages, Page{
			Index:   p.Index,
			Size:    p.Size,
			Cookies: p.Length,
		})

		for _, cookie := range p.Cookies {
			if o.Filter != nil && !o.Filter.MatchString(cookie.Domain) {
				continue
			}

			doc.Cookies = append(doc.Cookies, Cookie{
				Page:     cookie.Page,
				Offset:   cookie.Offset,
				Domain:   cookie.Domain,
				Name:     cookie.Name,
				Path:     cookie.Path,
				Value:    cookie.Value,
				Comment:  cookie.Comment,
				Flags:    cookie.Flags.String(),
				Secure:   cookie.Secure,
				HttpOnly: cookie.HttpOnly,
				Created:  formatTime(cookie.Creation, o.Location),
				Expires:  formatTime(cookie.Expires, o.Location),
				expires:  cookie.Expires,
			})

			doc.Summary.Records++

			if !cookie.Flags.Known() {
				doc.Summary.Flagged++
			}
		}
	}
}

func buildEntries(doc *Document, c *containers.Container, o Options) {
	if c.Log == nil {
		return
	}

	h := c.Log.Header

	doc.Header = &Header{
		EntryCount: h.EntryCount,
		Created:    formatTime(h.Created, o.Location),
		Reserved:   hex.EncodeToString(h.Reserved[:]),
	}

	for _, e := range c.Log.Entries {
		doc.Entries = append(doc.Entries, Entry{
			Offset:    e.Offset,
			Created:   formatTime(e.Created, o.Location),
			State:     int32(e.State),
			CRCPassed: e.CRCPassed(),
			StoredCRC: fmt.Sprintf("%08x", e.StoredCRC),
			Size:      len(e.Data),
			Data:      e.Text(),
			Raw:       hex.EncodeToString(e.Data),
		})

		doc.Summary.Records++
	}
}
