package binarycookies

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"unicode"
	"unicode/utf8"

	"github.com/omencyber/containers/cocoa"
	"github.com/omencyber/containers/cursor"
	"github.com/omencyber/containers/record"
	"golang.org/x/sync/errgroup"
)

// load reads the archive into memory the first time it is needed.
func (b *BinaryCookies) load() error {
	if b.cur != nil {
		return nil
	}

	if b.file == nil {
		return fmt.Errorf("load no input -> %w", record.ErrTruncatedContainer)
	}

	cur, err := cursor.NewFromStream(b.file)
	if err != nil {
		return fmt.Errorf("load -> %w", err)
	}

	b.cur = cur

	return nil
}

// Validate reads a number of bytes that are supposed to represent the magic
// number of valid binary cookies. If the file format is different then the
// function returns an error with some information.
func (b *BinaryCookies) Validate() error {
	if err := b.load(); err != nil {
		return err
	}

	if _, err := b.cur.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("Validate -> %w", err)
	}

	data, err := b.cur.ReadRaw(len(magic))
	if err != nil {
		return fmt.Errorf("Validate -> %w: %w", record.ErrBadMagic, err)
	}

	if !bytes.Equal(data, magic) {
		return fmt.Errorf("Validate invalid signature %q -> %w", data, record.ErrBadMagic)
	}

	return nil
}

// ReadPageSize reads an integer representing the number of pages in the file.
func (b *BinaryCookies) ReadPageSize() error {
	size, err := b.cur.ReadInt32BE()
	if err != nil {
		return fmt.Errorf("ReadPageSize -> %w: %w", record.ErrTruncatedContainer, err)
	}

	if size < 0 || int64(size)*4 > b.cur.Remaining() {
		return fmt.Errorf("ReadPageSize %d pages -> %w", size, record.ErrTruncatedContainer)
	}

	b.size = size

	return nil
}

// ReadAllPages reads the size for all pages in the file and checks that the
// pages fit in what is left of it.
func (b *BinaryCookies) ReadAllPages() error {
	size := int(b.size)

	b.page = make([]int32, size)
	b.start = make([]int64, size)
	b.pages = make([]Page, size)

	for i := 0; i < size; i++ {
		n, err := b.cur.ReadInt32BE()
		if err != nil {
			return fmt.Errorf("ReadAllPages page %d size -> %w: %w", i, record.ErrTruncatedContainer, err)
		}

		if n < 0 {
			return fmt.Errorf("ReadAllPages page %d size %d -> %w", i, n, record.ErrTruncatedContainer)
		}

		b.page[i] = n
	}

	offset := b.cur.Position()
	total := int64(0)

	for i, n := range b.page {
		b.start[i] = offset + total
		total += int64(n)
	}

	if total > b.cur.Remaining() {
		return fmt.Errorf("ReadAllPages pages need %d bytes, %d left -> %w", total, b.cur.Remaining(), record.ErrTruncatedContainer)
	}

	return nil
}

// ReadPage reads the layout of one single page: the page tag, the number of
// cookies, their offsets and the page footer. Cookies are decoded later.
func (b *BinaryCookies) ReadPage(i int) error {
	if i < 0 || i >= len(b.page) {
		return fmt.Errorf("ReadPage no page #%d", i)
	}

	pr, err := b.cur.Slice(b.start[i], int64(b.page[i]))
	if err != nil {
		return fmt.Errorf("ReadPage %d -> %w: %w", i, record.ErrTruncatedContainer, err)
	}

	if err := pr.Skip(pageHeaderSize); err != nil {
		return fmt.Errorf("ReadPage %d page tag -> %w: %w", i, record.ErrTruncatedContainer, err)
	}

	howMany, err := pr.ReadInt32LE()
	if err != nil {
		return fmt.Errorf("ReadPage %d number of cookies -> %w: %w", i, record.ErrTruncatedContainer, err)
	}

	if howMany < 0 || int64(howMany)*4+pageFooterSize > pr.Remaining() {
		return fmt.Errorf("ReadPage %d declares %d cookies -> %w", i, howMany, record.ErrTruncatedContainer)
	}

	offsets := make([]int32, howMany)

	for j := range offsets {
		if offsets[j], err = pr.ReadInt32LE(); err != nil {
			return fmt.Errorf("ReadPage %d cookie offset -> %w: %w", i, record.ErrTruncatedContainer, err)
		}
	}

	if err := pr.Skip(pageFooterSize); err != nil {
		return fmt.Errorf("ReadPage %d page footer -> %w: %w", i, record.ErrTruncatedContainer, err)
	}

	b.pages[i] = Page{
		Index:   i,
		Size:    b.page[i],
		Length:  howMany,
		Offsets: offsets,
	}

	return nil
}

// readStructure runs every structural check. Nothing is decoded at cookie
// level until the whole page table and all offset tables are known good.
func (b *BinaryCookies) readStructure() error {
	if err := b.Validate(); err != nil {
		return err
	}

	if err := b.ReadPageSize(); err != nil {
		return err
	}

	if err := b.ReadAllPages(); err != nil {
		return err
	}

	for i := range b.page {
		if err := b.ReadPage(i); err != nil {
			return err
		}
	}

	return nil
}

// Decode reads the whole archive and returns its pages with their cookies.
// Structural problems are returned as an error and no pages are returned;
// cookies that fail to decode are listed in Page.Errors.
func (b *BinaryCookies) Decode() ([]Page, error) {
	if err := b.readStructure(); err != nil {
		return nil, err
	}

	var g errgroup.Group

	g.SetLimit(b.workers)

	for i := range b.pages {
		p := &b.pages[i]
		g.Go(func() error {
			b.decodePage(p)
			return nil
		})
	}

	_ = g.Wait()

	return b.pages, nil
}

// Cookies returns a lazy sequence over every cookie in page order. Fatal
// errors are returned before the sequence is handed out; afterwards each step
// yields either a cookie or a *record.Error for a cookie that failed.
func (b *BinaryCookies) Cookies() (iter.Seq2[Cookie, error], error) {
	if err := b.readStructure(); err != nil {
		return nil, err
	}

	pages := b.pages

	return func(yield func(Cookie, error) bool) {
		for _, p := range pages {
			data := b.pageData(p.Index)

			for idx, offset := range p.Offsets {
				cookie, err := readPageCookie(data, p.Index, offset)
				if err != nil {
					if !yield(Cookie{}, record.NewError(err, p.Index, idx, b.start[p.Index]+int64(offset))) {
						return
					}
					continue
				}

				if !yield(cookie, nil) {
					return
				}
			}
		}
	}, nil
}

func (b *BinaryCookies) pageData(i int) []byte {
	return b.cur.Bytes()[b.start[i] : b.start[i]+int64(b.page[i])]
}

// decodePage fills the cookies and errors of one page. It only touches p and
// its own readers, so pages can be decoded concurrently.
func (b *BinaryCookies) decodePage(p *Page) {
	data := b.pageData(p.Index)

	p.Cookies = make([]Cookie, 0, len(p.Offsets))
	p.Errors = nil

	for idx, offset := range p.Offsets {
		cookie, err := readPageCookie(data, p.Index, offset)
		if err != nil {
			p.Errors = append(p.Errors, record.NewError(err, p.Index, idx, b.start[p.Index]+int64(offset)))
			continue
		}

		p.Cookies = append(p.Cookies, cookie)
	}
}

// readPageCookie decodes the cookie stored at offset inside the page. The
// record starts with its own size, and the body that follows it is handed to
// the helper functions on a dedicated cursor. The body is size bytes long,
// clipped to the page, whether or not the writer counted the size field.
func readPageCookie(page []byte, index int, offset int32) (Cookie, error) {
	cookie := Cookie{Page: index, Offset: offset}

	pr := cursor.New(page)

	if _, err := pr.Seek(int64(offset), io.SeekStart); err != nil {
		return cookie, fmt.Errorf("readPageCookie offset %d -> %w: %w", offset, record.ErrRecordDecode, err)
	}

	size, err := pr.ReadInt32LE()
	if err != nil {
		return cookie, fmt.Errorf("readPageCookie size -> %w: %w", record.ErrRecordDecode, err)
	}

	if size < 0 {
		return cookie, fmt.Errorf("readPageCookie size %d negative -> %w", size, record.ErrRecordDecode)
	}

	n := min(int64(size), pr.Remaining())

	if n < cookieHeaderSize-4 {
		return cookie, fmt.Errorf("readPageCookie size %d too small -> %w", size, record.ErrRecordDecode)
	}

	body, err := pr.Slice(pr.Position(), n)
	if err != nil {
		return cookie, fmt.Errorf("readPageCookie size %d -> %w: %w", size, record.ErrRecordDecode, err)
	}

	cookie.Size = size

	helpers := []cookieHelperFunction{
		readCookieFlags,
		readCookieOffsets,
		readCookieDates,
		readCookieStrings,
	}

	for _, fn := range helpers {
		if err := fn(body, &cookie); err != nil {
			return cookie, err
		}
	}

	return cookie, nil
}

func readCookieFlags(body *cursor.Reader, cookie *Cookie) error {
	if err := body.Skip(4); err != nil {
		return fmt.Errorf("readCookieFlags -> %w: %w", record.ErrRecordDecode, err)
	}

	flags, err := body.ReadInt32LE()
	if err != nil {
		return fmt.Errorf("readCookieFlags -> %w: %w", record.ErrRecordDecode, err)
	}

	cookie.Flags = Flags(flags)
	cookie.Secure = cookie.Flags.Known() && flags&int32(FlagSecure) != 0
	cookie.HttpOnly = cookie.Flags.Known() && flags&int32(FlagHTTPOnly) != 0

	if err := body.Skip(4); err != nil {
		return fmt.Errorf("readCookieFlags -> %w: %w", record.ErrRecordDecode, err)
	}

	return nil
}

func readCookieOffsets(body *cursor.Reader, cookie *Cookie) error {
	for _, dst := range []*int32{
		&cookie.domainOffset,
		&cookie.nameOffset,
		&cookie.pathOffset,
		&cookie.valueOffset,
		&cookie.commentOffset,
	} {
		v, err := body.ReadInt32LE()
		if err != nil {
			return fmt.Errorf("readCookieOffsets -> %w: %w", record.ErrRecordDecode, err)
		}
		*dst = v
	}

	// end of header marker
	if err := body.Skip(4); err != nil {
		return fmt.Errorf("readCookieOffsets -> %w: %w", record.ErrRecordDecode, err)
	}

	return nil
}

func readCookieDates(body *cursor.Reader, cookie *Cookie) error {
	expires, err := body.ReadFloat64LE()
	if err != nil {
		return fmt.Errorf("readCookieDates expiry -> %w: %w", record.ErrRecordDecode, err)
	}

	creation, err := body.ReadFloat64LE()
	if err != nil {
		return fmt.Errorf("readCookieDates creation -> %w: %w", record.ErrRecordDecode, err)
	}

	if cookie.Expires, err = cocoa.Decode(expires); err != nil {
		return fmt.Errorf("readCookieDates expiry %v -> %w", expires, err)
	}

	if cookie.Creation, err = cocoa.Decode(creation); err != nil {
		return fmt.Errorf("readCookieDates creation %v -> %w", creation, err)
	}

	return nil
}

func readCookieStrings(body *cursor.Reader, cookie *Cookie) error {
	var err error

	if cookie.Domain, err = readCookieString(body, "domain", cookie.domainOffset); err != nil {
		return err
	}

	if cookie.Name, err = readCookieString(body, "name", cookie.nameOffset); err != nil {
		return err
	}

	if cookie.Path, err = readCookieString(body, "path", cookie.pathOffset); err != nil {
		return err
	}

	if cookie.Value, err = readCookieString(body, "value", cookie.valueOffset); err != nil {
		return err
	}

	// the comment slot is padding in most archives
	if cookie.commentOffset != 0 {
		if comment, err := readCookieString(body, "comment", cookie.commentOffset); err == nil {
			cookie.Comment = comment
		}
	}

	return nil
}

// readCookieString reads the null-terminated string referenced by offset.
// Offsets count from the size field in front of the body, so the string
// starts four bytes earlier than the raw value suggests.
func readCookieString(body *cursor.Reader, field string, offset int32) (string, error) {
	if _, err := body.Seek(int64(offset)-4, io.SeekStart); err != nil {
		return "", fmt.Errorf("readCookieString %s offset %d -> %w: %w", field, offset, record.ErrRecordDecode, err)
	}

	rest := body.Bytes()[body.Position():]

	end := bytes.IndexByte(rest, 0x00)
	if end < 0 {
		return "", fmt.Errorf("readCookieString %s at %d unterminated -> %w", field, offset, record.ErrRecordDecode)
	}

	if !utf8.Valid(rest[:end]) {
		return "", fmt.Errorf("readCookieString %s at %d not UTF-8 -> %w", field, offset, record.ErrRecordDecode)
	}

	if i := bytes.IndexFunc(rest[:end], isNotPrint); i >= 0 {
		return "", fmt.Errorf("readCookieString %s at %d non-printable byte %#x -> %w", field, offset, rest[i], record.ErrRecordDecode)
	}

	if err := body.Skip(end + 1); err != nil {
		return "", fmt.Errorf("readCookieString %s -> %w: %w", field, record.ErrRecordDecode, err)
	}

	return string(rest[:end]), nil
}

func isNotPrint(r rune) bool {
	return !unicode.IsPrint(r)
}
