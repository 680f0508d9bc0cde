package ocr

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)

// Normalize collapses noisy whitespace.
// Conservative: keeps line breaks; collapses >2 newlines into a single blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	// collapse too many blank lines
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	// trim trailing spaces on lines
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(s)
}

// a run of digits and digit look-alikes, optionally separated by amount/date punctuation
var reNumericRun = regexp.MustCompile(`[0-9OoIl|SBZ][0-9OoIl|SBZ.,:/\-]*`)

var digitLookalikes = map[rune]rune{
	'O': '0', 'o': '0',
	'I': '1', 'l': '1', '|': '1',
	'S': '5',
	'B': '8',
	'Z': '2',
}

// RepairDigits fixes letter-for-digit confusions inside numeric runs, after NFKC folding
// (full-width digits, ligatures). A run is only touched when it holds at least one real digit
// and is not glued to other letters, so words like "UPI" or "SBIN" survive.
func RepairDigits(s string) string {
	s = norm.NFKC.String(s)
	locs := reNumericRun.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		// trailing punctuation belongs to what follows ("1O-Jan")
		for end > start && strings.IndexByte(".,:/-", s[end-1]) >= 0 {
			end--
		}
		run := s[start:end]
		if !strings.ContainsAny(run, "0123456789") || gluedToLetter(s, start, end) {
			continue
		}
		b.WriteString(s[last:start])
		for _, r := range run {
			if d, ok := digitLookalikes[r]; ok {
				r = d
			}
			b.WriteRune(r)
		}
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

func gluedToLetter(s string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(s[:start]); unicode.IsLetter(r) {
			return true
		}
	}
	if end < len(s) {
		if r, _ := utf8.DecodeRuneInString(s[end:]); unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Prepare is the pre-pass every extraction strategy runs on raw OCR text. The input is not modified.
func Prepare(raw string) string {
	return RepairDigits(Normalize(raw))
}
