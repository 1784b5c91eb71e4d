package parser

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeLabel lower-cases, trims and collapses inner whitespace to one space.
// Headers often carry line breaks from wrapped cells: "Mã\nNV" -> "mã nv".
func NormalizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToLower(norm.NFC.String(s))
}

// FoldAccents removes Vietnamese diacritics: "Tổng giờ" -> "Tong gio", "đ" -> "d"
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.NewReplacer("đ", "d", "Đ", "D").Replace(out)
}

// label a header in both lower-cased and accent-folded form
type label struct {
	raw    string
	lower  string
	folded string
}

func newLabel(raw string) label {
	lower := NormalizeLabel(raw)
	return label{raw: strings.TrimSpace(raw), lower: lower, folded: FoldAccents(lower)}
}

func (l label) empty() bool {
	return l.lower == ""
}

// contains matches a lower-case pattern against either form of the label
func (l label) contains(pattern string) bool {
	return strings.Contains(l.lower, pattern) || strings.Contains(l.folded, pattern)
}

// equals exact match against either form
func (l label) equals(pattern string) bool {
	return l.lower == pattern || l.folded == pattern
}

// firstMatch index of the first pattern the label contains, -1 when none
func (l label) firstMatch(patterns []string) int {
	for i, p := range patterns {
		if l.contains(p) {
			return i
		}
	}
	return -1
}
