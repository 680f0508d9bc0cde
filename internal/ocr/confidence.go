package ocr

import (
	"regexp"
	"strings"
	"unicode"
)

// textCue is evidence that OCR produced a readable transaction document.
type textCue struct {
	re     *regexp.Regexp
	weight float64
}

var textCues = []textCue{
	{regexp.MustCompile(`(?i)\b\d{1,2}[/\-. ](?:\d{1,2}|[a-z]{3,9})[/\-. ,]+(?:19|20)?\d{2}\b`), 0.2}, // a date
	{regexp.MustCompile(`(?i)₹|\brs\.?\s?\d|\binr\b`), 0.15},                                        // currency
	{regexp.MustCompile(`\b\d{1,3}(?:,\d{2,3})*\.\d{2}\b`), 0.15},                                   // money with paise
	{regexp.MustCompile(`(?i)\b(?:upi|ifsc|a/?c|account|ref(?:erence)?)\b`), 0.1},                   // banking words
}

// heuristicConfidence scores how much txt looks like clean transaction text, in [0,1].
// It stands in for engine confidence when no token confidences are available.
func heuristicConfidence(txt string) float64 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	score := 0.2
	for _, c := range textCues {
		if c.re.MatchString(txt) {
			score += c.weight
		}
	}
	if len(txt) > 120 {
		score += 0.1
	}
	// mostly symbols means the engine read noise
	if noise := symbolRatio(txt); noise > 0.3 {
		score -= noise / 2
	}
	return clamp01(score)
}

func symbolRatio(s string) float64 {
	var total, sym int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '₹' && !strings.ContainsRune(".,:/-@", r) {
			sym++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(sym) / float64(total)
}
