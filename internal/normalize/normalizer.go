// Package normalize turns raw extracted strings into typed, validated record fields.
// It never fails a record: anything it cannot use becomes a nil field plus a warning.
package normalize

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
)

const DefaultMinFieldConfidence = 0.6

var (
	reIFSCShape    = regexp.MustCompile(`^[A-Z]{4}[A-Z0-9]{7}$`)
	reMaskedAcct   = regexp.MustCompile(`^X{2,}\d{3,}$`)
	warningMessage = map[constants.WarningCode]string{
		constants.WarnAmountMissing:    "amount not found",
		constants.WarnAmountAmbiguous:  "amount ambiguous",
		constants.WarnAmountUnparsable: "amount could not be parsed",
		constants.WarnAmountNegative:   "negative amount, sign dropped",
		constants.WarnDateMissing:      "date not found",
		constants.WarnDateUnrecognized: "date format unrecognized",
		constants.WarnTimeUnrecognized: "time format unrecognized",
		constants.WarnDirectionUnknown: "direction could not be determined",
		constants.WarnAccountMasked:    "account number is masked",
	}
)

type Normalizer struct {
	minFieldConfidence float64
	logger             *slog.Logger
}

type Option func(*Normalizer)

// WithMinFieldConfidence sets the score below which a field is flagged for review.
func WithMinFieldConfidence(v float64) Option {
	return func(n *Normalizer) {
		if v >= 0 && v <= 1 {
			n.minFieldConfidence = v
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{minFieldConfidence: DefaultMinFieldConfidence, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds a Record from res. It is total: any input, including nil, yields a record.
func (n *Normalizer) Normalize(res *entity.ExtractionResult, rawText, imageRef string) *entity.Record {
	if res == nil {
		res = entity.NewExtractionResult(constants.Unknown)
	}
	rec := entity.NewRecord(rawText, imageRef)
	if res.SourceType != "" {
		rec.SourceType = res.SourceType
	}
	rec.FieldConfidence[entity.FieldSourceType] = res.ClassifierConfidence
	for _, w := range res.Warnings {
		rec.AddWarning(w.Field, w.Code, w.Message)
	}
	if len(res.Extras) > 0 {
		rec.Extras = make(map[string]string, len(res.Extras))
		for k, v := range res.Extras {
			rec.Extras[k] = v
		}
	}

	n.amount(rec, res)
	n.direction(rec, res)
	n.timestamp(rec, res)

	if c, ok := res.Field(entity.FieldSender); ok {
		rec.Counterparty.Sender = n.keep(rec, entity.FieldSender, c)
	}
	if c, ok := res.Field(entity.FieldReceiver); ok {
		rec.Counterparty.Receiver = n.keep(rec, entity.FieldReceiver, c)
	}
	n.accountNumber(rec, res)
	n.ifsc(rec, res)
	n.transactionID(rec, res)

	n.flagLowConfidence(rec)

	n.logger.Debug("normalized record",
		"image", imageRef,
		"source_type", rec.SourceType,
		"warnings", len(rec.Warnings),
		"confidence", rec.Confidence(),
	)
	return rec
}

func (n *Normalizer) keep(rec *entity.Record, field string, c entity.FieldCandidate) *string {
	v := entity.StrPtr(c.Raw)
	if v != nil {
		rec.FieldConfidence[field] = c.Confidence
	}
	return v
}

func (n *Normalizer) amount(rec *entity.Record, res *entity.ExtractionResult) {
	c, ok := res.Field(entity.FieldAmount)
	if !ok {
		warn(rec, entity.FieldAmount, constants.WarnAmountMissing)
		return
	}
	d, codes, err := ParseAmount(c.Raw)
	for _, code := range codes {
		warn(rec, entity.FieldAmount, code)
	}
	if err != nil {
		rec.FieldConfidence[entity.FieldAmount] = 0
		rec.AddWarning(entity.FieldAmount, constants.WarnAmountUnparsable, err.Error())
		return
	}
	conf := c.Confidence
	if len(codes) > 0 {
		conf /= 2
	}
	rec.Amount = &d
	rec.FieldConfidence[entity.FieldAmount] = conf
}

func (n *Normalizer) direction(rec *entity.Record, res *entity.ExtractionResult) {
	c, ok := res.Field(entity.FieldDirection)
	if ok {
		if d := constants.CanonicalDirection(c.Raw); d != constants.DirectionUnknown {
			rec.Direction = d
			rec.FieldConfidence[entity.FieldDirection] = c.Confidence
			return
		}
	}
	warn(rec, entity.FieldDirection, constants.WarnDirectionUnknown)
}

func (n *Normalizer) timestamp(rec *entity.Record, res *entity.ExtractionResult) {
	c, ok := res.Field(entity.FieldDate)
	if !ok {
		warn(rec, entity.FieldDate, constants.WarnDateMissing)
	} else if d, ok := ParseDate(c.Raw); ok {
		rec.Timestamp = &d
		rec.FieldConfidence[entity.FieldDate] = c.Confidence
	} else {
		rec.FieldConfidence[entity.FieldDate] = 0
		rec.AddWarning(entity.FieldDate, constants.WarnDateUnrecognized, fmt.Sprintf("date format unrecognized: %q", c.Raw))
	}

	tc, ok := res.Field(entity.FieldTime)
	if !ok {
		return
	}
	clock, ok := ParseTime(tc.Raw)
	if !ok {
		rec.AddWarning(entity.FieldTime, constants.WarnTimeUnrecognized, fmt.Sprintf("time format unrecognized: %q", tc.Raw))
		return
	}
	if rec.Timestamp == nil {
		// a time without a date cannot form a timestamp; keep it visible for review
		if rec.Extras == nil {
			rec.Extras = map[string]string{}
		}
		rec.Extras[entity.FieldTime] = tc.Raw
		return
	}
	ts := time.Date(rec.Timestamp.Year(), rec.Timestamp.Month(), rec.Timestamp.Day(), 0, 0, 0, 0, time.UTC).Add(clock)
	rec.Timestamp = &ts
	rec.HasTime = true
	rec.FieldConfidence[entity.FieldTime] = tc.Confidence
}

func (n *Normalizer) accountNumber(rec *entity.Record, res *entity.ExtractionResult) {
	c, ok := res.Field(entity.FieldAccountNumber)
	if !ok {
		return
	}
	rec.AccountNumber = n.keep(rec, entity.FieldAccountNumber, c)
	if rec.AccountNumber == nil {
		return
	}
	if reMaskedAcct.MatchString(*rec.AccountNumber) {
		warn(rec, entity.FieldAccountNumber, constants.WarnAccountMasked)
		return
	}
	v := common.NewValidator().Field(entity.FieldAccountNumber, *rec.AccountNumber,
		common.DigitsOnly(string(constants.WarnAccountFormat)),
		common.LengthBetween(9, 18, string(constants.WarnAccountFormat)),
	)
	applyValidation(rec, v)
}

func (n *Normalizer) ifsc(rec *entity.Record, res *entity.ExtractionResult) {
	c, ok := res.Field(entity.FieldIFSC)
	if !ok {
		return
	}
	rec.IFSC = n.keep(rec, entity.FieldIFSC, c)
	if rec.IFSC == nil {
		return
	}
	v := common.NewValidator().Field(entity.FieldIFSC, *rec.IFSC,
		common.LengthBetween(11, 11, string(constants.WarnIFSCFormat)),
		common.Matches(reIFSCShape, string(constants.WarnIFSCFormat), "must be 4 letters followed by 7 letters or digits"),
		common.CharAt(4, '0', string(constants.WarnIFSCChecksum), "IFSC checksum mismatch"),
	)
	applyValidation(rec, v)
}

func (n *Normalizer) transactionID(rec *entity.Record, res *entity.ExtractionResult) {
	c, ok := res.Field(entity.FieldTransactionID)
	if !ok {
		return
	}
	rec.TransactionID = n.keep(rec, entity.FieldTransactionID, c)
	if rec.TransactionID == nil {
		return
	}
	v := common.NewValidator().Field(entity.FieldTransactionID, *rec.TransactionID,
		common.LengthBetween(6, 35, string(constants.WarnTxnIDFormat)),
		common.AlphaNumeric(string(constants.WarnTxnIDFormat), '-'),
	)
	applyValidation(rec, v)
}

// flagLowConfidence marks extracted fields scoring under the review threshold.
func (n *Normalizer) flagLowConfidence(rec *entity.Record) {
	fields := make([]string, 0, len(rec.FieldConfidence))
	for f := range rec.FieldConfidence {
		if f != entity.FieldSourceType {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	for _, f := range fields {
		if conf := rec.FieldConfidence[f]; conf < n.minFieldConfidence {
			rec.AddWarning(f, constants.WarnLowConfidence, fmt.Sprintf("confidence %.2f below %.2f", conf, n.minFieldConfidence))
		}
	}
}

// applyValidation turns validator failures into record warnings; the value itself is kept.
func applyValidation(rec *entity.Record, v *common.Validator) {
	for _, e := range v.Errors() {
		msg := e.Message
		if e.Code != string(constants.WarnIFSCChecksum) {
			msg = fmt.Sprintf("%s %s", e.Field, e.Message)
		}
		rec.AddWarning(e.Field, constants.WarningCode(e.Code), msg)
	}
}

func warn(rec *entity.Record, field string, code constants.WarningCode) {
	rec.AddWarning(field, code, warningMessage[code])
}
