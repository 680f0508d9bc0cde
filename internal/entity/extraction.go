package entity

import "github.com/joseph-ayodele/upi-extractor/constants"

// FieldCandidate is the winning raw value for one field and how sure the rule was about it.
type FieldCandidate struct {
	Raw        string  `json:"raw"`
	Confidence float64 `json:"confidence"`
	Rule       string  `json:"rule"`
}

// ExtractionResult is the raw, untyped output of a field-extraction strategy.
// Absent fields are simply missing from Fields.
type ExtractionResult struct {
	SourceType           constants.SourceType      `json:"source_type"`
	ClassifierConfidence float64                   `json:"classifier_confidence"`
	Fields               map[string]FieldCandidate `json:"fields"`
	Extras               map[string]string         `json:"extras,omitempty"`
	Warnings             []Warning                 `json:"warnings,omitempty"`
}

// NewExtractionResult returns an empty result for the given source type.
func NewExtractionResult(t constants.SourceType) *ExtractionResult {
	return &ExtractionResult{
		SourceType: t,
		Fields:     map[string]FieldCandidate{},
		Extras:     map[string]string{},
	}
}

// Field returns the candidate for name, if any.
func (r *ExtractionResult) Field(name string) (FieldCandidate, bool) {
	if r == nil || r.Fields == nil {
		return FieldCandidate{}, false
	}
	c, ok := r.Fields[name]
	return c, ok
}

// Set stores c for name unless c.Raw is empty.
func (r *ExtractionResult) Set(name string, c FieldCandidate) {
	if c.Raw == "" {
		return
	}
	if r.Fields == nil {
		r.Fields = map[string]FieldCandidate{}
	}
	r.Fields[name] = c
}
