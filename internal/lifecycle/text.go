package lifecycle

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle folds case and strips diacritics so that "Čistilec" and
// "cistilec" compare equal. Surrounding whitespace is dropped.
func NormalizeTitle(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strings.TrimSpace(title))
	if err != nil {
		stripped = strings.TrimSpace(title)
	}
	stripped = strings.NewReplacer("đ", "d", "Đ", "D").Replace(stripped)
	return cases.Fold().String(stripped)
}

// SameTitle compares two titles the way uniqueness checks do.
func SameTitle(a, b string) bool {
	return NormalizeTitle(a) == NormalizeTitle(b)
}
