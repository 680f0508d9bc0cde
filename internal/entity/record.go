package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/upi-extractor/constants"
)

// Field names used as keys in FieldConfidence, ExtractionResult.Fields and warnings.
const (
	FieldSourceType    = "source_type"
	FieldAmount        = "amount"
	FieldDirection     = "direction"
	FieldDate          = "date"
	FieldTime          = "time"
	FieldSender        = "sender"
	FieldReceiver      = "receiver"
	FieldAccountNumber = "account_number"
	FieldIFSC          = "ifsc"
	FieldTransactionID = "transaction_id"
)

// coreFields feed the overall confidence score shown in the spreadsheet.
var coreFields = []string{FieldAmount, FieldDirection, FieldDate}

// Counterparty holds the two sides of a transfer. Either side may be unknown.
type Counterparty struct {
	Sender   *string `json:"sender,omitempty"`
	Receiver *string `json:"receiver,omitempty"`
}

// Warning is a non-fatal validation or processing note attached to a record.
type Warning struct {
	Field   string                `json:"field,omitempty"`
	Code    constants.WarningCode `json:"code"`
	Message string                `json:"message"`
}

// Record is one recognized transaction. It always exists once extraction ran,
// even when every field is nil; gaps are reported through Warnings and FieldConfidence.
type Record struct {
	ID              uuid.UUID            `json:"id"`
	SourceType      constants.SourceType `json:"source_type"`
	Direction       constants.Direction  `json:"direction"`
	Amount          *decimal.Decimal     `json:"amount,omitempty"`
	Timestamp       *time.Time           `json:"timestamp,omitempty"`
	HasTime         bool                 `json:"has_time"`
	Counterparty    Counterparty         `json:"counterparty"`
	AccountNumber   *string              `json:"account_number,omitempty"`
	IFSC            *string              `json:"ifsc,omitempty"`
	TransactionID   *string              `json:"transaction_id,omitempty"`
	FieldConfidence map[string]float64   `json:"field_confidence"`
	RawText         string               `json:"raw_text"`
	ImageRef        string               `json:"image_ref"`
	Extras          map[string]string    `json:"extras,omitempty"`
	Warnings        []Warning            `json:"warnings,omitempty"`
}

// NewRecord returns an empty record with a fresh identifier.
func NewRecord(rawText, imageRef string) *Record {
	return &Record{
		ID:              uuid.New(),
		SourceType:      constants.Unknown,
		Direction:       constants.DirectionUnknown,
		FieldConfidence: map[string]float64{},
		RawText:         rawText,
		ImageRef:        imageRef,
	}
}

// AddWarning appends a warning unless an identical one is already present.
func (r *Record) AddWarning(field string, code constants.WarningCode, msg string) {
	for _, w := range r.Warnings {
		if w.Field == field && w.Code == code {
			return
		}
	}
	r.Warnings = append(r.Warnings, Warning{Field: field, Code: code, Message: msg})
}

// RemoveWarning drops every warning with the given code.
func (r *Record) RemoveWarning(code constants.WarningCode) {
	kept := r.Warnings[:0]
	for _, w := range r.Warnings {
		if w.Code != code {
			kept = append(kept, w)
		}
	}
	r.Warnings = kept
}

// HasWarning reports whether a warning with the given code is attached.
func (r *Record) HasWarning(code constants.WarningCode) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// Confidence is the mean confidence of amount, direction and date; a missing field counts as zero.
func (r *Record) Confidence() float64 {
	var sum float64
	for _, f := range coreFields {
		sum += r.FieldConfidence[f]
	}
	return sum / float64(len(coreFields))
}

// DateString renders the date part of Timestamp, or "" when unknown.
func (r *Record) DateString() string {
	if r.Timestamp == nil {
		return ""
	}
	return r.Timestamp.Format("2006-01-02")
}

// TimeString renders the time part of Timestamp, or "" when no time was recognized.
func (r *Record) TimeString() string {
	if r.Timestamp == nil || !r.HasTime {
		return ""
	}
	return r.Timestamp.Format("15:04")
}

// DuplicateKey returns the (amount, direction, date, counterparty) tuple used
// for duplicate flagging. Records without an amount have no key.
func (r *Record) DuplicateKey() (DuplicateKey, bool) {
	if r.Amount == nil {
		return DuplicateKey{}, false
	}
	return NewDuplicateKey(*r.Amount, r.Direction, r.DateString(),
		StrOrEmpty(r.Counterparty.Sender), StrOrEmpty(r.Counterparty.Receiver)), true
}

// NewDuplicateKey builds a key from loose values, e.g. a spreadsheet row.
// Names compare case-insensitively with whitespace collapsed.
func NewDuplicateKey(amount decimal.Decimal, dir constants.Direction, date, sender, receiver string) DuplicateKey {
	return DuplicateKey{
		Amount:    amount.StringFixed(2),
		Direction: dir,
		Date:      date,
		Sender:    foldName(sender),
		Receiver:  foldName(receiver),
	}
}

// Clone returns a deep copy safe to hand to another layer.
func (r *Record) Clone() Record {
	c := *r
	if r.Amount != nil {
		a := *r.Amount
		c.Amount = &a
	}
	if r.Timestamp != nil {
		t := *r.Timestamp
		c.Timestamp = &t
	}
	c.Counterparty = Counterparty{Sender: cloneStr(r.Counterparty.Sender), Receiver: cloneStr(r.Counterparty.Receiver)}
	c.AccountNumber = cloneStr(r.AccountNumber)
	c.IFSC = cloneStr(r.IFSC)
	c.TransactionID = cloneStr(r.TransactionID)
	c.FieldConfidence = make(map[string]float64, len(r.FieldConfidence))
	for k, v := range r.FieldConfidence {
		c.FieldConfidence[k] = v
	}
	if r.Extras != nil {
		c.Extras = make(map[string]string, len(r.Extras))
		for k, v := range r.Extras {
			c.Extras[k] = v
		}
	}
	c.Warnings = append([]Warning(nil), r.Warnings...)
	return c
}

// DuplicateKey is comparable and can be used as a map key.
type DuplicateKey struct {
	Amount    string
	Direction constants.Direction
	Date      string
	Sender    string
	Receiver  string
}

func foldName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}

// StrPtr returns nil for blank strings and a trimmed copy otherwise.
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StrOrEmpty dereferences p, treating nil as "".
func StrOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
