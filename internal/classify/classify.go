// Package classify tags raw OCR text with the document family it most likely came from.
package classify

import (
	"regexp"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/ocr"
)

const (
	DefaultMinScore   = 1.5
	DefaultSaturation = 3.0
)

// Signature is one weighted cue. A signature contributes its weight at most once per text.
type Signature struct {
	Name    string
	Type    constants.SourceType
	Pattern *regexp.Regexp
	Weight  float64
}

// Result is a classification. Unclassified means no family reached the
// minimum score; Ambiguous means the top families tied.
type Result struct {
	Type         constants.SourceType             `json:"type"`
	Confidence   float64                          `json:"confidence"`
	Scores       map[constants.SourceType]float64 `json:"scores"`
	Ambiguous    bool                             `json:"ambiguous"`
	Unclassified bool                             `json:"unclassified"`
	Matched      []string                         `json:"matched,omitempty"`
}

type Classifier struct {
	signatures []Signature
	minScore   float64
	saturation float64
}

type Option func(*Classifier)

// WithMinScore sets the score a type needs before it can win.
func WithMinScore(v float64) Option {
	return func(c *Classifier) {
		if v > 0 {
			c.minScore = v
		}
	}
}

// WithSaturation sets the score at which confidence stops growing with more hits.
func WithSaturation(v float64) Option {
	return func(c *Classifier) {
		if v > 0 {
			c.saturation = v
		}
	}
}

// WithSignatures replaces the built-in signature table.
func WithSignatures(sigs []Signature) Option {
	return func(c *Classifier) {
		c.signatures = append([]Signature(nil), sigs...)
	}
}

func New(opts ...Option) *Classifier {
	c := &Classifier{
		signatures: DefaultSignatures(),
		minScore:   DefaultMinScore,
		saturation: DefaultSaturation,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never fails. Text that clears no threshold, or ties between two families, is UNKNOWN.
func (c *Classifier) Classify(rawText string) Result {
	text := ocr.Prepare(rawText)

	scores := map[constants.SourceType]float64{
		constants.UPI:      0,
		constants.Passbook: 0,
	}
	var matched []string
	for _, s := range c.signatures {
		if s.Pattern.MatchString(text) {
			scores[s.Type] += s.Weight
			matched = append(matched, s.Name)
		}
	}

	res := Result{Type: constants.Unknown, Scores: scores, Matched: matched}

	var top, runnerUp, sum float64
	best := constants.Unknown
	for _, t := range constants.SourceTypes() {
		v, ok := scores[t]
		if !ok {
			continue
		}
		sum += v
		switch {
		case v > top:
			runnerUp = top
			top = v
			best = t
		case v > runnerUp:
			runnerUp = v
		}
	}

	if top < c.minScore {
		res.Unclassified = true
		return res
	}
	if top == runnerUp {
		res.Ambiguous = true
		return res
	}

	res.Type = best
	res.Confidence = (top / sum) * min(1, top/c.saturation)
	return res
}

func sig(name string, t constants.SourceType, weight float64, pattern string) Signature {
	return Signature{Name: name, Type: t, Pattern: regexp.MustCompile(pattern), Weight: weight}
}

// DefaultSignatures returns the built-in cue table, UPI cues first.
func DefaultSignatures() []Signature {
	return []Signature{
		sig("upi_keyword", constants.UPI, 1.0, `(?i)\bUPI\b`),
		sig("upi_reference", constants.UPI, 1.0, `(?i)\bUPI\s*(?:Ref|Reference|Transaction)\b`),
		sig("vpa_handle", constants.UPI, 1.0, `(?i)\b[a-z0-9._\-]{2,}@[a-z]{2,}\b`),
		sig("payment_app", constants.UPI, 1.5, `(?i)\b(?:google\s*pay|g\s?pay|phone\s?pe|paytm|bhim|amazon\s*pay)\b`),
		sig("paid_to", constants.UPI, 1.0, `(?i)\b(?:paid|sent)\b[^\n]{0,25}?\bto\b`),
		sig("received_from", constants.UPI, 0.75, `(?i)\breceived\b[^\n]{0,25}?\bfrom\b`),
		sig("payment_status", constants.UPI, 0.5, `(?i)\b(?:payment|transaction)\s+(?:successful|completed|failed|pending)\b`),
		sig("currency_before_amount", constants.UPI, 0.5, `₹\s*\d`),

		sig("account_number_label", constants.Passbook, 1.5, `(?i)\b(?:A/?c|Account|Acct)\s*(?:No\.?|Number|Num|#)`),
		sig("ifsc", constants.Passbook, 1.0, `(?i)\bIFSC\b`),
		sig("micr", constants.Passbook, 1.0, `(?i)\bMICR\b`),
		sig("cif", constants.Passbook, 0.75, `(?i)\bCIF\b`),
		sig("passbook", constants.Passbook, 1.5, `(?i)\bpass\s*book\b`),
		sig("branch", constants.Passbook, 0.5, `(?i)\bbranch\b`),
		sig("ledger_columns", constants.Passbook, 1.0, `(?i)\b(?:particulars|withdrawals?|deposits?|narration)\b`),
		sig("balance", constants.Passbook, 0.5, `(?i)\b(?:balance|bal\.)`),
		sig("cheque", constants.Passbook, 0.5, `(?i)\b(?:cheque|chq)\b`),
		sig("account_kind", constants.Passbook, 1.0, `(?i)\b(?:savings|current)\s+(?:account|a/?c)\b`),
		sig("dr_cr_column", constants.Passbook, 1.0, `(?i)\d\.\d{2}\s*(?:Dr|Cr)\b`),
		sig("account_holder", constants.Passbook, 0.75, `(?i)\b(?:account\s+holder|customer\s+name|name\s+of\s+(?:account\s+)?holder)\b`),
	}
}
