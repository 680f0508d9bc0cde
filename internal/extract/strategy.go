// Package extract turns prepared OCR text into raw field candidates using
// table-driven rules, one strategy per source type.
package extract

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
	"github.com/joseph-ayodele/upi-extractor/internal/ocr"
)

// Input is what a strategy reads: raw OCR text and, when the engine supplied them, word tokens.
type Input struct {
	Text   string
	Tokens []ocr.Token
}

// Strategy extracts raw fields for one source type. Extract never fails;
// a field that no rule matched is simply absent from the result.
type Strategy interface {
	SourceType() constants.SourceType
	Extract(in Input) *entity.ExtractionResult
}

// fields a Record carries directly; everything else a table produces lands in Extras
var recordFields = map[string]bool{
	entity.FieldAmount:        true,
	entity.FieldDirection:     true,
	entity.FieldDate:          true,
	entity.FieldTime:          true,
	entity.FieldSender:        true,
	entity.FieldReceiver:      true,
	entity.FieldAccountNumber: true,
	entity.FieldIFSC:          true,
	entity.FieldTransactionID: true,
}

// identifier fields prefer the longest candidate when several rules tie
var identifierFields = map[string]bool{
	entity.FieldAccountNumber: true,
	entity.FieldTransactionID: true,
}

var reAmountKeyword = regexp.MustCompile(`(?i)₹|\brs\b\.?|\binr\b|\bamount\b|\bamt\b|\btotal\b|\bpaid\b|\bdebited\b|\bcredited\b|\breceived\b`)

type candidate struct {
	raw       string
	matchText string
	conf      float64
	rule      string
	pos       int
}

type fieldRules struct {
	field  string
	levels [][]*Rule
}

// resolver post-processes winners for a source type (folding intermediates into record fields).
type resolver func(winners map[string]candidate) []entity.Warning

type tableStrategy struct {
	sourceType constants.SourceType
	fields     []fieldRules
	resolve    resolver
	logger     *slog.Logger
}

func newTableStrategy(t Table, resolve resolver, logger *slog.Logger) *tableStrategy {
	var order []string
	grouped := map[string][]*Rule{}
	for i := range t.Rules {
		r := &t.Rules[i]
		if _, ok := grouped[r.Field]; !ok {
			order = append(order, r.Field)
		}
		grouped[r.Field] = append(grouped[r.Field], r)
	}
	s := &tableStrategy{sourceType: t.SourceType, resolve: resolve, logger: logger}
	for _, f := range order {
		s.fields = append(s.fields, fieldRules{field: f, levels: byPriority(grouped[f])})
	}
	return s
}

func (s *tableStrategy) SourceType() constants.SourceType { return s.sourceType }

func (s *tableStrategy) Extract(in Input) *entity.ExtractionResult {
	text := ocr.Prepare(in.Text)
	lines := splitLines(text)
	keywords := reAmountKeyword.FindAllStringIndex(text, -1)

	winners := map[string]candidate{}
	for _, fr := range s.fields {
		for _, level := range fr.levels {
			var cands []candidate
			for _, r := range level {
				if c, ok := r.match(text, lines); ok {
					cands = append(cands, c)
				}
			}
			if len(cands) == 0 {
				continue
			}
			w := pick(fr.field, cands, keywords)
			w.conf = w.conf * tokenFactor(w.matchText, in.Tokens)
			winners[fr.field] = w
			break
		}
	}

	res := entity.NewExtractionResult(s.sourceType)
	if s.resolve != nil {
		res.Warnings = append(res.Warnings, s.resolve(winners)...)
	}
	for field, c := range winners {
		if recordFields[field] {
			res.Set(field, entity.FieldCandidate{Raw: c.raw, Confidence: c.conf, Rule: c.rule})
			continue
		}
		res.Extras[field] = c.raw
	}
	s.logger.Debug("extraction done",
		"source_type", s.sourceType,
		"fields", len(res.Fields),
		"extras", len(res.Extras),
	)
	return res
}

type line struct {
	text   string
	offset int
}

func splitLines(text string) []line {
	var out []line
	off := 0
	for _, l := range strings.Split(text, "\n") {
		out = append(out, line{text: l, offset: off})
		off += len(l) + 1
	}
	return out
}

func (r *Rule) match(text string, lines []line) (candidate, bool) {
	if r.valueRe != nil {
		return r.matchNextLine(lines)
	}
	loc := r.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return candidate{}, false
	}
	c := candidate{rule: r.Name, conf: r.Confidence, pos: loc[0], matchText: text[loc[0]:loc[1]]}
	if len(loc) >= 4 && loc[2] >= 0 {
		c.raw, c.pos, c.matchText = text[loc[2]:loc[3]], loc[2], text[loc[2]:loc[3]]
	}
	return r.finish(c)
}

func (r *Rule) matchNextLine(lines []line) (candidate, bool) {
	for i, l := range lines {
		if !r.re.MatchString(l.text) {
			continue
		}
		j := i + 1
		for j < len(lines) && strings.TrimSpace(lines[j].text) == "" {
			j++
		}
		if j >= len(lines) {
			return candidate{}, false
		}
		next := lines[j]
		loc := r.valueRe.FindStringSubmatchIndex(next.text)
		if loc == nil {
			continue
		}
		c := candidate{rule: r.Name, conf: r.Confidence, pos: next.offset + loc[0], matchText: next.text[loc[0]:loc[1]]}
		if len(loc) >= 4 && loc[2] >= 0 {
			c.raw, c.pos, c.matchText = next.text[loc[2]:loc[3]], next.offset+loc[2], next.text[loc[2]:loc[3]]
		}
		return r.finish(c)
	}
	return candidate{}, false
}

func (r *Rule) finish(c candidate) (candidate, bool) {
	if r.Value != "" {
		c.raw = r.Value
		return c, true
	}
	c.raw = r.xform(c.raw)
	return c, c.raw != ""
}

// pick breaks ties between candidates of one priority level.
func pick(field string, cands []candidate, keywords [][]int) candidate {
	best := cands[0]
	switch {
	case isAmountField(field):
		bestDist := keywordDistance(best.pos, keywords)
		for _, c := range cands[1:] {
			if d := keywordDistance(c.pos, keywords); d < bestDist {
				best, bestDist = c, d
			}
		}
	case identifierFields[field]:
		for _, c := range cands[1:] {
			if utf8.RuneCountInString(c.raw) > utf8.RuneCountInString(best.raw) {
				best = c
			}
		}
	}
	return best
}

func isAmountField(field string) bool {
	return field == entity.FieldAmount || strings.HasSuffix(field, "_amount")
}

// keywordDistance is the byte gap between pos and the nearest currency or amount keyword.
func keywordDistance(pos int, keywords [][]int) int {
	best := int(^uint(0) >> 1)
	for _, kw := range keywords {
		d := pos - kw[1]
		if pos < kw[0] {
			d = kw[0] - pos
		} else if d < 0 {
			d = 0
		}
		if d < best {
			best = d
		}
	}
	return best
}

// tokenFactor is the mean OCR confidence of tokens overlapping the matched text, or 1 when unknown.
func tokenFactor(matchText string, tokens []ocr.Token) float64 {
	if len(tokens) == 0 || strings.TrimSpace(matchText) == "" {
		return 1
	}
	pieces := strings.Fields(matchText)
	var sum float64
	var n int
	for _, tok := range tokens {
		tt := strings.TrimSpace(ocr.RepairDigits(tok.Text))
		if tt == "" {
			continue
		}
		for _, p := range pieces {
			if tt == p || (utf8.RuneCountInString(tt) >= 3 && strings.Contains(p, tt)) || strings.Contains(tt, p) {
				sum += tok.Confidence
				n++
				break
			}
		}
	}
	if n == 0 {
		return 1
	}
	return sum / float64(n)
}
