package binarycookies

import (
	"testing"
)

func FuzzTest(f *testing.F) {
	f.Add(_test1)
	f.Add(_test2)
	f.Add(_test3)
	f.Fuzz(func(t *testing.T, a []byte) {
		pages, err := NewBytes(a).Decode()
		if err != nil {
			return
		}
		for _, p := range pages {
			if int(p.Length) != len(p.Cookies)+len(p.Errors) {
				t.Fatalf("page %d declares %d cookies, decoded %d + %d errors", p.Index, p.Length, len(p.Cookies), len(p.Errors))
			}
		}
	})
}
