package record

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/omencyber/containers/cocoa"
	"github.com/omencyber/containers/cursor"
)

func TestKindOf(t *testing.T) {
	tre := &cursor.TruncatedReadError{Offset: 8, Expected: 4, Actual: 1}

	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindUnknown},
		{errors.New("boom"), KindUnknown},
		{fmt.Errorf("Validate -> %w", ErrBadMagic), KindBadMagic},
		{fmt.Errorf("ReadAllPages -> %w", ErrTruncatedContainer), KindTruncated},
		{tre, KindTruncated},
		{fmt.Errorf("ReadTrailer -> %w", ErrCorruptIndex), KindCorruptIndex},
		{fmt.Errorf("cookie -> %w: %w", ErrRecordDecode, tre), KindRecordDecode},
		{fmt.Errorf("entry -> %w", ErrIntegrityMismatch), KindIntegrityMismatch},
		{fmt.Errorf("expiry -> %w", cocoa.ErrInvalidTimestamp), KindInvalidTimestamp},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Fatalf("KindOf(%v)\n- %s\n+ %s", tt.err, tt.want, got)
		}
	}
}

func TestKindFatal(t *testing.T) {
	fatal := map[Kind]bool{
		KindBadMagic:          true,
		KindTruncated:         true,
		KindCorruptIndex:      true,
		KindRecordDecode:      false,
		KindIntegrityMismatch: false,
		KindInvalidTimestamp:  false,
	}

	for k, want := range fatal {
		if k.Fatal() != want {
			t.Fatalf("%s.Fatal() = %v, want %v", k, k.Fatal(), want)
		}
	}
}

func TestErrorUnwrap(t *testing.T) {
	e := NewError(fmt.Errorf("string -> %w", ErrRecordDecode), 2, 5, 1024)

	if e.Kind != KindRecordDecode {
		t.Fatalf("incorrect kind %s", e.Kind)
	}

	if !errors.Is(e, ErrRecordDecode) {
		t.Fatal("descriptor does not unwrap to its cause")
	}

	if !strings.Contains(e.Error(), "page 2 record 5") {
		t.Fatalf("incorrect message %q", e.Error())
	}

	e = NewError(ErrIntegrityMismatch, -1, 3, 64)
	if strings.Contains(e.Error(), "page") {
		t.Fatalf("log record message mentions a page: %q", e.Error())
	}
}

func TestFormatString(t *testing.T) {
	if FormatCookieJar.String() != "cookiejar" || FormatAppendLog.String() != "appendlog" || Format(9).String() != "unknown" {
		t.Fatal("incorrect format names")
	}
}
