package openapi

import (
	"strings"
	"unicode"
)

// Label turns a property name into the label Frappe would show for it:
// "lis_name" is "Lis Name", "installedOn" is "Installed On" and "stage2" is
// "Stage 2".
func Label(name string) string {
	words := splitWords(name)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// splitWords breaks name at separators, lower-to-upper case changes and
// letter/digit changes.
func splitWords(name string) []string {
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for _, r := range name {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if n := len(cur); n > 0 {
			prev := cur[n-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(r),
				unicode.IsLetter(prev) && unicode.IsDigit(r),
				unicode.IsDigit(prev) && unicode.IsLetter(r):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
