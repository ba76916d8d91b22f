package typeahead

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Match tiers, in display priority.
const (
	tierLabel = iota
	tierValue
	tierDescription
	tierNone
)

// folder normalises text for comparison: NFKC, diacritics stripped, case folded,
// so "las pinas" finds "Las Piñas". Not safe for concurrent use.
type folder struct {
	caser cases.Caser
	strip transform.Transformer
}

func newFolder() *folder {
	return &folder{
		caser: cases.Fold(),
		strip: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
	}
}

func (f *folder) fold(s string) string {
	s = norm.NFKC.String(s)
	if stripped, _, err := transform.String(f.strip, s); err == nil {
		s = stripped
	}
	return f.caser.String(s)
}

// Filter returns options whose label, value or description contains query.
// Label matches come first, then value matches, then description matches;
// order within a tier is the input order. An empty query returns all options.
func Filter(options []Option, query string) []Option {
	f := newFolder()
	q := f.fold(strings.TrimSpace(query))
	if q == "" {
		return append([]Option(nil), options...)
	}

	var buckets [tierNone][]Option
	for _, opt := range options {
		if t := matchTier(f, opt, q); t != tierNone {
			buckets[t] = append(buckets[t], opt)
		}
	}

	out := make([]Option, 0, len(buckets[tierLabel])+len(buckets[tierValue])+len(buckets[tierDescription]))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return out
}

func matchTier(f *folder, opt Option, q string) int {
	switch {
	case strings.Contains(f.fold(opt.Label), q):
		return tierLabel
	case strings.Contains(f.fold(opt.Value), q):
		return tierValue
	case opt.Description != "" && strings.Contains(f.fold(opt.Description), q):
		return tierDescription
	default:
		return tierNone
	}
}

// EqualFold compares two labels the way Filter does.
func EqualFold(a, b string) bool {
	f := newFolder()
	return f.fold(strings.TrimSpace(a)) == f.fold(strings.TrimSpace(b))
}
