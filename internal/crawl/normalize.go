package crawl

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nameSuffixes = []string{" llc", " inc", " corp", " co", " ltd"}

var nameReplacer = strings.NewReplacer(
	"&", " and ",
	"-", " ",
	"/", " ",
	"'", "",
	"’", "",
	".", "",
	",", "",
)

// NormalizeName reduces a business name to a comparable key: accents are
// stripped, case is folded, punctuation removed, whitespace collapsed, and
// a trailing legal suffix dropped.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, strings.TrimSpace(name))
	if err != nil {
		s = name
	}
	s = cases.Fold().String(s)
	s = nameReplacer.Replace(s)

	var b strings.Builder
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		}
	}
	s = b.String()

	for _, suf := range nameSuffixes {
		if strings.HasSuffix(s, suf) && len(s) > len(suf) {
			s = strings.TrimSuffix(s, suf)
			break
		}
	}
	return s
}

// NamesMatch reports whether two names normalize to the same non-empty key.
func NamesMatch(a, b string) bool {
	na := NormalizeName(a)
	return na != "" && na == NormalizeName(b)
}
