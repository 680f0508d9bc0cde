package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type transformFunc func(string) string

var transforms = map[string]transformFunc{
	"":         trim,
	"trim":     trim,
	"upper":    func(s string) string { return strings.ToUpper(trim(s)) },
	"digits":   digits,
	"amount":   amount,
	"name":     name,
	"collapse": collapse,
}

func trim(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".,:;-|")
}

func collapse(s string) string {
	return trim(strings.Join(strings.Fields(s), " "))
}

// digits drops separators from account-like numbers; mask characters survive as X.
func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x' || r == '*':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// amount keeps the captured number as-is apart from stray spaces; parsing happens in the normalizer.
func amount(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), "")
}

// name collapses whitespace and title-cases names that OCR returned in a single case.
func name(s string) string {
	s = collapse(s)
	if s == "" {
		return s
	}
	hasUpper, hasLower := false, false
	for _, r := range s {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if unicode.IsLower(r) {
			hasLower = true
		}
	}
	if hasUpper != hasLower {
		// a Caser keeps state; one per call keeps this safe across batch workers
		return cases.Title(language.English).String(s)
	}
	return s
}
