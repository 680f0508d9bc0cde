package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
	"github.com/joseph-ayodele/upi-extractor/internal/ocr"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry("", nil)
	require.NoError(t, err)
	return r
}

func raw(t *testing.T, res *entity.ExtractionResult, field string) string {
	t.Helper()
	c, ok := res.Field(field)
	require.True(t, ok, "field %s missing", field)
	return c.Raw
}

func TestDefaultTablesLoad(t *testing.T) {
	tables, err := DefaultTables()
	require.NoError(t, err)
	require.Len(t, tables, 3)

	types := map[constants.SourceType]bool{}
	for _, tb := range tables {
		types[tb.SourceType] = true
		assert.NotEmpty(t, tb.Rules)
	}
	assert.True(t, types[constants.UPI])
	assert.True(t, types[constants.Passbook])
	assert.True(t, types[constants.Unknown])
}

func TestUPIScenario(t *testing.T) {
	res := newRegistry(t).For(constants.UPI).Extract(Input{
		Text: "Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024",
	})

	assert.Equal(t, constants.UPI, res.SourceType)
	assert.Equal(t, "500", raw(t, res, entity.FieldAmount))
	assert.Equal(t, "DEBIT", raw(t, res, entity.FieldDirection))
	assert.Equal(t, "John Doe", raw(t, res, entity.FieldReceiver))
	assert.Equal(t, "123456789012", raw(t, res, entity.FieldTransactionID))
	assert.Equal(t, "12 Jan 2024", raw(t, res, entity.FieldDate))
	_, hasSender := res.Field(entity.FieldSender)
	assert.False(t, hasSender)
}

func TestUPITemplatesAreExact(t *testing.T) {
	tests := []struct {
		text      string
		amount    string
		direction string
		txnID     string
	}{
		{"Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024", "500", "DEBIT", "123456789012"},
		{"Paid ₹1,250.50 to Ravi Kumar UPI Ref No 410293847561 on 03 Feb 2024", "1,250.50", "DEBIT", "410293847561"},
		{"Received ₹750 from Asha Rao UPI Ref No 998877665544 on 5 Mar 2024", "750", "CREDIT", "998877665544"},
		{"Sent Rs.99.00 to Cafe Blue UPI Transaction ID 300011112222 on 1 Apr 2024", "99.00", "DEBIT", "300011112222"},
	}
	s := newRegistry(t).For(constants.UPI)
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := s.Extract(Input{Text: tt.text})
			for field, want := range map[string]string{
				entity.FieldAmount:        tt.amount,
				entity.FieldDirection:     tt.direction,
				entity.FieldTransactionID: tt.txnID,
			} {
				c, ok := res.Field(field)
				require.True(t, ok, field)
				assert.Equal(t, want, c.Raw, field)
				assert.Equal(t, 1.0, c.Confidence, field)
			}
		})
	}
}

func TestUPIReceivedFrom(t *testing.T) {
	res := newRegistry(t).For(constants.UPI).Extract(Input{
		Text: "Received ₹750 from ASHA RAO UPI Ref No 998877665544 on 5 Mar 2024",
	})
	assert.Equal(t, "Asha Rao", raw(t, res, entity.FieldSender))
	_, hasReceiver := res.Field(entity.FieldReceiver)
	assert.False(t, hasReceiver)
}

func TestUPIScreenshotLayout(t *testing.T) {
	text := `Google Pay
₹1,2O0.00
Paid to
Ravi Kumar
ravi.kumar@okaxis
Payment successful
10:45 am
Transaction ID: CICAgOD1234567890
UPI transaction ID 410293847561
HDFC Bank`
	res := newRegistry(t).For(constants.UPI).Extract(Input{Text: text})

	assert.Equal(t, "1,200.00", raw(t, res, entity.FieldAmount), "digit repair inside the amount")
	assert.Equal(t, "DEBIT", raw(t, res, entity.FieldDirection))
	assert.Equal(t, "Ravi Kumar", raw(t, res, entity.FieldReceiver))
	assert.Equal(t, "410293847561", raw(t, res, entity.FieldTransactionID))
	assert.Equal(t, "10:45 AM", raw(t, res, entity.FieldTime))
	assert.Equal(t, "ravi.kumar@okaxis", res.Extras["upi_id"])
	assert.Equal(t, "SUCCESSFUL", res.Extras["status"])
	assert.Equal(t, "HDFC Bank", res.Extras["bank_name"])
}

func TestTokenConfidenceScalesField(t *testing.T) {
	res := newRegistry(t).For(constants.UPI).Extract(Input{
		Text: "Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024",
		Tokens: []ocr.Token{
			{Text: "Paid", Confidence: 0.9},
			{Text: "₹5OO", Confidence: 0.5},
			{Text: "123456789012", Confidence: 0.8},
		},
	})
	amt, ok := res.Field(entity.FieldAmount)
	require.True(t, ok)
	assert.InDelta(t, 0.5, amt.Confidence, 1e-9)

	id, ok := res.Field(entity.FieldTransactionID)
	require.True(t, ok)
	assert.InDelta(t, 0.8, id.Confidence, 1e-9)
}

const passbookText = `STATE BANK OF INDIA
Savings Account Passbook
Account Holder Name : Nirbhay Zala
A/c No. : 1234 5678 9012
IFSC Code: SBIN0001234
MICR: 380002003
Branch : Navrangpura
Date: 15/03/2024
Credit: Rs. 5,000.00
Ref No: 99887766`

func TestPassbookExtraction(t *testing.T) {
	res := newRegistry(t).For(constants.Passbook).Extract(Input{Text: passbookText})

	assert.Equal(t, "123456789012", raw(t, res, entity.FieldAccountNumber))
	assert.Equal(t, "SBIN0001234", raw(t, res, entity.FieldIFSC))
	assert.Equal(t, "5,000.00", raw(t, res, entity.FieldAmount))
	assert.Equal(t, "CREDIT", raw(t, res, entity.FieldDirection))
	assert.Equal(t, "Nirbhay Zala", raw(t, res, entity.FieldReceiver))
	assert.Equal(t, "15/03/2024", raw(t, res, entity.FieldDate))
	assert.Equal(t, "99887766", raw(t, res, entity.FieldTransactionID))

	assert.Equal(t, "380002003", res.Extras["micr"])
	assert.Equal(t, "Navrangpura", res.Extras["branch"])
	assert.Equal(t, "STATE BANK OF INDIA", res.Extras["bank_name"])
	assert.Equal(t, "5,000.00", res.Extras["credit_amount"])
	assert.Equal(t, "Nirbhay Zala", res.Extras["account_holder"])
	assert.Empty(t, res.Warnings)
}

func TestPassbookNextLineLabels(t *testing.T) {
	text := `Account Number

0012 3456 7890
IFSC Code
HDFC0001234
Customer Name
PRIYA SHAH
Withdrawal: 1,500.00`
	res := newRegistry(t).For(constants.Passbook).Extract(Input{Text: text})

	assert.Equal(t, "001234567890", raw(t, res, entity.FieldAccountNumber))
	assert.Equal(t, "HDFC0001234", raw(t, res, entity.FieldIFSC))
	assert.Equal(t, "1,500.00", raw(t, res, entity.FieldAmount))
	assert.Equal(t, "DEBIT", raw(t, res, entity.FieldDirection))
	assert.Equal(t, "Priya Shah", raw(t, res, entity.FieldSender))
}

func TestPassbookCreditAndDebit(t *testing.T) {
	res := newRegistry(t).For(constants.Passbook).Extract(Input{Text: "Debit: 200.00\nCredit: 300.00"})

	assert.Equal(t, "200.00", raw(t, res, entity.FieldAmount))
	assert.Equal(t, "DEBIT", raw(t, res, entity.FieldDirection))
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, constants.WarnAmountAmbiguous, res.Warnings[0].Code)
}

func TestResolvePassbookMICRGuard(t *testing.T) {
	w := map[string]candidate{
		fieldMICR:                 {raw: "380002003"},
		entity.FieldAccountNumber: {raw: "380002003"},
		entity.FieldIFSC:          {raw: "SBIN0001234"},
	}
	resolvePassbook(w)
	_, hasAccount := w[entity.FieldAccountNumber]
	assert.False(t, hasAccount)
	assert.Contains(t, w, entity.FieldIFSC)
}

func TestUnknownStrategyIsGenericOnly(t *testing.T) {
	s := newRegistry(t).For(constants.Unknown)

	res := s.Extract(Input{Text: "Paid to John total 1,234.00 on 05/06/2024 UPI Ref No 123456789012"})
	assert.Equal(t, "1,234.00", raw(t, res, entity.FieldAmount))
	assert.Equal(t, "05/06/2024", raw(t, res, entity.FieldDate))
	for _, f := range []string{entity.FieldDirection, entity.FieldReceiver, entity.FieldTransactionID} {
		_, ok := res.Field(f)
		assert.False(t, ok, f)
	}

	empty := s.Extract(Input{Text: ""})
	require.NotNil(t, empty)
	assert.Empty(t, empty.Fields)
}

func TestRegistryFallsBackToUnknown(t *testing.T) {
	r := newRegistry(t)
	assert.Equal(t, constants.Unknown, r.For(constants.SourceType("BOGUS")).SourceType())
}

func TestPickTieBreaks(t *testing.T) {
	kw := [][]int{{50, 56}} // "amount" at 50..56
	amounts := []candidate{
		{raw: "10.00", pos: 5, rule: "far"},
		{raw: "20.00", pos: 58, rule: "near"},
	}
	assert.Equal(t, "near", pick(entity.FieldAmount, amounts, kw).rule)
	assert.Equal(t, "near", pick("credit_amount", amounts, kw).rule)

	ids := []candidate{
		{raw: "12345678", rule: "short"},
		{raw: "123456789012", rule: "long"},
		{raw: "987654321098", rule: "long-later"},
	}
	assert.Equal(t, "long", pick(entity.FieldTransactionID, ids, nil).rule)

	names := []candidate{{raw: "A", rule: "first"}, {raw: "Bobby", rule: "second"}}
	assert.Equal(t, "first", pick(entity.FieldReceiver, names, nil).rule)
}

func TestPriorityLevelWins(t *testing.T) {
	tb, err := ParseTable("t.yaml", []byte(`
source_type: UNKNOWN
rules:
  - name: low
    field: amount
    pattern: '(\d+\.\d{2})'
    priority: 2
    confidence: 0.5
  - name: high
    field: amount
    pattern: 'amt (\d+)'
    priority: 1
    confidence: 0.9
`))
	require.NoError(t, err)
	s := newTableStrategy(tb, nil, nopLogger())

	res := s.Extract(Input{Text: "9.99 then amt 42"})
	c, ok := res.Field(entity.FieldAmount)
	require.True(t, ok)
	assert.Equal(t, "high", c.Rule)
	assert.Equal(t, "42", c.Raw)

	res = s.Extract(Input{Text: "only 9.99"})
	assert.Equal(t, "low", res.Fields[entity.FieldAmount].Rule)
}

func TestParseTableRejectsBadTables(t *testing.T) {
	tests := map[string]string{
		"missing confidence": `
source_type: UPI
rules:
  - {name: a, field: amount, pattern: '(\d+)', priority: 1}`,
		"unknown transform": `
source_type: UPI
rules:
  - {name: a, field: amount, pattern: '(\d+)', priority: 1, confidence: 1, transform: shout}`,
		"bad regex": `
source_type: UPI
rules:
  - {name: a, field: amount, pattern: '(\d+', priority: 1, confidence: 1}`,
		"no capture or value": `
source_type: UPI
rules:
  - {name: a, field: direction, pattern: 'paid', priority: 1, confidence: 1}`,
		"duplicate names": `
source_type: UPI
rules:
  - {name: a, field: amount, pattern: '(\d+)', priority: 1, confidence: 1}
  - {name: a, field: date, pattern: '(\d+)', priority: 1, confidence: 1}`,
		"unknown source type": `
source_type: CHEQUE
rules:
  - {name: a, field: amount, pattern: '(\d+)', priority: 1, confidence: 1}`,
		"not yaml": "source_type: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTable(name, []byte(body))
			require.Error(t, err)
			var appErr *common.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, common.CodeRules, appErr.Code)
		})
	}
}

func TestLoadRuleDirOverrides(t *testing.T) {
	dir := t.TempDir()
	body := `
source_type: UNKNOWN
rules:
  - name: custom_amount
    field: amount
    pattern: 'AMT=(\d+)'
    priority: 1
    confidence: 0.7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "generic.yaml"), []byte(body), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o644))

	r, err := NewDefaultRegistry(dir, nil)
	require.NoError(t, err)

	res := r.For(constants.Unknown).Extract(Input{Text: "AMT=77 and ₹500"})
	assert.Equal(t, "77", raw(t, res, entity.FieldAmount))

	// other source types keep the built-in rules
	res = r.For(constants.UPI).Extract(Input{Text: "Paid ₹500 to John Doe"})
	assert.Equal(t, "500", raw(t, res, entity.FieldAmount))

	_, err = LoadRuleDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestTransforms(t *testing.T) {
	assert.Equal(t, "Ravi Kumar", name("  RAVI   KUMAR. "))
	assert.Equal(t, "McDonald Rao", name("McDonald Rao"))
	assert.Equal(t, "XXXX1234", digits("xxxx 1234"))
	assert.Equal(t, "123456789012", digits("1234-5678 9012"))
	assert.Equal(t, "1,234.50", amount(" 1, 234.50 "))
	assert.Equal(t, "SBIN0001234", transforms["upper"](" sbin0001234 "))
}
