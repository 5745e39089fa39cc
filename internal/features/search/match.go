package search

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Range is a half-open byte range of a string.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// folder strips diacritics and case. Transformers carry state, so each
// caller builds its own.
func folder() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), cases.Fold(), norm.NFC)
}

// Fold returns s without case or diacritics, for matching.
func Fold(s string) string {
	out, _, err := transform.String(folder(), s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Contains reports whether text contains query, ignoring case and
// diacritics.
func Contains(text, query string) bool {
	return strings.Contains(Fold(text), Fold(query))
}

// Highlight returns the non-overlapping ranges of text that match query,
// ignoring case and diacritics. Ranges index the original text and cover
// any combining marks trailing a match.
func Highlight(text, query string) []Range {
	q := Fold(query)
	if q == "" {
		return nil
	}

	t := folder()
	var (
		folded strings.Builder
		owner  []int // original rune start for each folded byte
		ends   []int // original rune end for each folded byte
	)
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		end := i + size
		f, _, err := transform.String(t, text[i:end])
		if err != nil {
			f = strings.ToLower(text[i:end])
		}
		folded.WriteString(f)
		for range len(f) {
			owner = append(owner, i)
			ends = append(ends, end)
		}
		i = end
	}

	haystack := folded.String()
	var out []Range
	for from := 0; from < len(haystack); {
		k := strings.Index(haystack[from:], q)
		if k < 0 {
			break
		}
		fs, fe := from+k, from+k+len(q)
		rg := Range{Start: owner[fs], End: ends[fe-1]}
		for rg.End < len(text) {
			r, size := utf8.DecodeRuneInString(text[rg.End:])
			if !unicode.Is(unicode.Mn, r) {
				break
			}
			rg.End += size
		}
		out = append(out, rg)
		from = fe
	}
	return out
}
