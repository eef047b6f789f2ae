package report

import (
	"bufio"
	"bytes"
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/nqd/flat"
)

// sinkFunction renders a document to w. There is one per streamable format.
type sinkFunction func(io.Writer, *Document) error

var sinks = map[Format]sinkFunction{
	FormatJSON:     writeJSON,
	FormatText:     writeText,
	FormatNetscape: writeNetscape,
	FormatFlat:     writeFlat,
}

// WriteTo renders doc to w in format f. SQLite cannot be streamed; use
// Write with a file destination instead.
func WriteTo(w io.Writer, doc *Document, f Format) error {
	sink, ok := sinks[f]
	if !ok {
		return fmt.Errorf("WriteTo %s -> %w: needs a file destination", f, ErrUnsupported)
	}

	bw := bufio.NewWriter(w)

	if err := sink(bw, doc); err != nil {
		return err
	}

	return bw.Flush()
}

func writeJSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")

	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("json.Encode -> %w", err)
	}

	return nil
}

func writeText(w io.Writer, doc *Document) error {
	fmt.Fprintf(w, "# report %s\n", doc.ReportID)
	fmt.Fprintf(w, "# source %s (%s, %d bytes, magic %s)\n", doc.Source, doc.Format, doc.Size, doc.Magic)
	fmt.Fprintf(w, "# generated %s\n", doc.GeneratedAt)
	fmt.Fprintf(w, "# %d records, %d flagged, %d failed\n",
		doc.Summary.Records, doc.Summary.Flagged, doc.Summary.Failed)

	if h := doc.Header; h != nil {
		fmt.Fprintf(w, "\nEntries: %d\nCreated: %s\n", h.EntryCount, h.Created)
	}

	cookies := doc.Cookies

	for _, p := range doc.Pages {
		fmt.Fprintf(w, "\nPage: %d of %d\nSize: %d\nCookies: %d\n", p.Index+1, len(doc.Pages), p.Size, p.Cookies)

		for len(cookies) > 0 && cookies[0].Page == p.Index {
			writeTextCookie(w, cookies[0])
			cookies = cookies[1:]
		}
	}

	if len(doc.Entries) > 0 {
		fmt.Fprintln(w)
	}

	for _, e := range doc.Entries {
		crc := "ok"
		if !e.CRCPassed {
			crc = "FAIL"
		}

		fmt.Fprintf(w, "%d %s state=%d crc=%s %s\n", e.Offset, e.Created, e.State, crc, e.Data)
	}

	if len(doc.Errors) > 0 {
		fmt.Fprintln(w)
	}

	for _, e := range doc.Errors {
		fmt.Fprintf(w, "! %s page %d record %d offset %d: %s\n", e.Kind, e.Page, e.Index, e.Offset, e.Message)
	}

	return nil
}

func writeTextCookie(w io.Writer, c Cookie) {
	fmt.Fprintf(w, "%s %s %s %s %s", c.Expires, c.Domain, c.Path, c.Name, c.Value)

	if c.Secure {
		fmt.Fprint(w, " Secure")
	}

	if c.HttpOnly {
		fmt.Fprint(w, " HttpOnly")
	}

	if c.Flags == "Unknown" {
		fmt.Fprint(w, " Unknown")
	}

	if len(c.Comment) > 0 {
		fmt.Fprintf(w, " /* %s */", c.Comment)
	}

	fmt.Fprintln(w)
}

func boolField(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func writeNetscape(w io.Writer, doc *Document) error {
	if doc.Format != "cookiejar" {
		return fmt.Errorf("writeNetscape %s -> %w", doc.Format, ErrUnsupported)
	}

	fmt.Fprintln(w, "# Netscape HTTP Cookie File")

	for _, c := range doc.Cookies {
		var expires int64
		if !c.expires.IsZero() {
			expires = c.expires.Unix()
		}

		prefix := ""
		if c.HttpOnly {
			prefix = "#HttpOnly_"
		}

		fmt.Fprintf(
			w,
			"%s%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			prefix,
			c.Domain,
			boolField(strings.HasPrefix(c.Domain, ".")),
			c.Path,
			boolField(c.Secure),
			expires,
			c.Name,
			c.Value,
		)
	}

	return nil
}

// flatten turns the JSON form of doc into one level of dotted keys, e.g.
// cookies.0.domain.
func flatten(doc *Document) (map[string]interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal -> %w", err)
	}

	var result map[string]interface{}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("json.Decode -> %w", err)
	}

	flatmap, err := flat.Flatten(result, &flat.Options{
		Delimiter: ".",
		MaxDepth:  1000,
		Safe:      false,
	})
	if err != nil {
		return nil, fmt.Errorf("flat.Flatten -> %w", err)
	}

	return flatmap, nil
}

// compareKeys orders dotted keys segment by segment, comparing list indexes
// as numbers so cookies.2 sorts before cookies.10.
func compareKeys(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")

	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] == bs[i] {
			continue
		}

		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])

		if aerr == nil && berr == nil {
			return cmp.Compare(an, bn)
		}

		return strings.Compare(as[i], bs[i])
	}

	return cmp.Compare(len(as), len(bs))
}

func writeFlat(w io.Writer, doc *Document) error {
	flatmap, err := flatten(doc)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(flatmap))
	for k := range flatmap {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, compareKeys)

	for _, k := range keys {
		var value string

		switch v := flatmap[k].(type) {
		case string:
			value = strconv.Quote(v)
		case nil:
			value = "null"
		default:
			value = fmt.Sprint(v)
		}

		fmt.Fprintf(w, "%s = %s\n", k, value)
	}

	return nil
}
