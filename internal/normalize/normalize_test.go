package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
	"github.com/joseph-ayodele/upi-extractor/internal/entity"
)

func result(t constants.SourceType, fields map[string]string) *entity.ExtractionResult {
	res := entity.NewExtractionResult(t)
	for k, v := range fields {
		res.Set(k, entity.FieldCandidate{Raw: v, Confidence: 1, Rule: "test"})
	}
	return res
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		warns []constants.WarningCode
	}{
		{"500", "500", nil},
		{"₹500", "500", nil},
		{"Rs. 1,250.50", "1250.5", nil},
		{"INR 99", "99", nil},
		{"₹1,23,456.50", "123456.5", nil},
		{"1,234,567.00", "1234567", nil},
		{"500/-", "500", nil},
		{"Rs500", "500", nil},
		{".75", "0.75", nil},
		{"12,34,5", "12345", []constants.WarningCode{constants.WarnAmountAmbiguous}},
		{"1.234.567", "1234567", []constants.WarningCode{constants.WarnAmountAmbiguous}},
		{"1.234.56", "1234.56", []constants.WarningCode{constants.WarnAmountAmbiguous}},
		{"10.555", "10.56", []constants.WarningCode{constants.WarnAmountAmbiguous}},
		{"-250.00", "250", []constants.WarningCode{constants.WarnAmountNegative}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, warns, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(d), "got %s", d)
			assert.Equal(t, tt.warns, warns)
		})
	}
}

func TestParseAmountUnparsable(t *testing.T) {
	for _, in := range []string{"", "₹", "abc", "12a4", "1,2.3,4", "--"} {
		t.Run(in, func(t *testing.T) {
			_, _, err := ParseAmount(in)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrFieldUnparsable)
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":          "₹0.00",
		"5":          "₹5.00",
		"500":        "₹500.00",
		"1000":       "₹1,000.00",
		"123456.5":   "₹1,23,456.50",
		"12345678.9": "₹1,23,45,678.90",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(decimal.RequireFromString(in)))
	}
}

func TestAmountRoundTrip(t *testing.T) {
	inputs := []string{
		"₹500", "Rs. 1,250.50", "INR 99.9", "₹1,23,456.50", "1,234,567.00",
		"0.01", "₹10,00,000", "Rs 7", "98,76,54,321.99",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			d, _, err := ParseAmount(in)
			require.NoError(t, err)
			back, warns, err := ParseAmount(FormatAmount(d))
			require.NoError(t, err)
			assert.Empty(t, warns)
			assert.True(t, d.Equal(back), "%s != %s", d, back)
		})
	}
}

func TestParseDatePriority(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12 Jan 2024", "2024-01-12"},
		{"12 JAN 2024", "2024-01-12"},
		{"3 January 2024", "2024-01-03"},
		{"12-Jan-2024", "2024-01-12"},
		{"05/06/2024", "2024-06-05"}, // day first
		{"5-6-2024", "2024-06-05"},
		{"05.06.2024", "2024-06-05"},
		{"05/06/24", "2024-06-05"},
		{"2024-01-12", "2024-01-12"},
		{"Jan 12, 2024", "2024-01-12"},
		{"12 Jan, 2024", "2024-01-12"},
		{"  12   Jan 2024. ", "2024-01-12"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, ok := ParseDate(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Format("2006-01-02"))
		})
	}

	for _, bad := range []string{"", "yesterday", "32/13/2024", "12 Foo 2024", "01/01/0001"} {
		_, ok := ParseDate(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseTime(t *testing.T) {
	tests := map[string]time.Duration{
		"10:45":      10*time.Hour + 45*time.Minute,
		"9:05":       9*time.Hour + 5*time.Minute,
		"22:10:05":   22*time.Hour + 10*time.Minute + 5*time.Second,
		"10:45 AM":   10*time.Hour + 45*time.Minute,
		"10:45 pm":   22*time.Hour + 45*time.Minute,
		"1:05PM":     13*time.Hour + 5*time.Minute,
		"11:30 p.m.": 23*time.Hour + 30*time.Minute,
	}
	for in, want := range tests {
		got, ok := ParseTime(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseTime("25:99")
	assert.False(t, ok)
}

func TestNormalizeScenario(t *testing.T) {
	raw := "Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024"
	res := result(constants.UPI, map[string]string{
		entity.FieldAmount:        "500",
		entity.FieldDirection:     "DEBIT",
		entity.FieldReceiver:      "John Doe",
		entity.FieldTransactionID: "123456789012",
		entity.FieldDate:          "12 Jan 2024",
	})
	res.ClassifierConfidence = 1

	rec := New().Normalize(res, raw, "shot.png")

	assert.Equal(t, constants.UPI, rec.SourceType)
	assert.Equal(t, constants.Debit, rec.Direction)
	require.NotNil(t, rec.Amount)
	assert.Equal(t, "500.00", rec.Amount.StringFixed(2))
	assert.Equal(t, "John Doe", entity.StrOrEmpty(rec.Counterparty.Receiver))
	assert.Nil(t, rec.Counterparty.Sender)
	assert.Equal(t, "123456789012", entity.StrOrEmpty(rec.TransactionID))
	assert.Equal(t, "2024-01-12", rec.DateString())
	assert.False(t, rec.HasTime)
	assert.Equal(t, raw, rec.RawText)
	assert.Equal(t, "shot.png", rec.ImageRef)
	assert.Empty(t, rec.Warnings)
	assert.InDelta(t, 1.0, rec.Confidence(), 1e-9)
}

func TestNormalizeTimeJoinsDate(t *testing.T) {
	rec := New().Normalize(result(constants.UPI, map[string]string{
		entity.FieldDate: "12 Jan 2024",
		entity.FieldTime: "10:45 PM",
	}), "", "")
	require.NotNil(t, rec.Timestamp)
	assert.True(t, rec.HasTime)
	assert.Equal(t, "2024-01-12 22:45", rec.Timestamp.Format("2006-01-02 15:04"))
	assert.Equal(t, "22:45", rec.TimeString())
}

func TestNormalizeTimeWithoutDate(t *testing.T) {
	rec := New().Normalize(result(constants.UPI, map[string]string{
		entity.FieldTime: "10:45",
	}), "", "")
	assert.Nil(t, rec.Timestamp)
	assert.Equal(t, "10:45", rec.Extras[entity.FieldTime])
	assert.True(t, rec.HasWarning(constants.WarnDateMissing))
}

func TestNormalizeTotality(t *testing.T) {
	garbage := []map[string]string{
		nil,
		{entity.FieldAmount: "¯\\_(ツ)_/¯", entity.FieldDate: "someday", entity.FieldTime: "noon"},
		{entity.FieldDirection: "sideways", entity.FieldIFSC: "??", entity.FieldAccountNumber: "12"},
		{entity.FieldTransactionID: "a b", entity.FieldSender: "   "},
	}
	n := New()
	for _, fields := range garbage {
		rec := n.Normalize(result(constants.Unknown, fields), "raw \x00 text", "img")
		require.NotNil(t, rec)
		assert.Nil(t, rec.Amount)
		assert.Nil(t, rec.Timestamp)
		assert.NotEmpty(t, rec.Warnings)
		assert.Equal(t, "raw \x00 text", rec.RawText)
	}

	rec := n.Normalize(nil, "", "")
	require.NotNil(t, rec)
	assert.Equal(t, constants.Unknown, rec.SourceType)
	assert.True(t, rec.HasWarning(constants.WarnAmountMissing))
	assert.True(t, rec.HasWarning(constants.WarnDateMissing))
}

func TestNormalizeNoAmountNoDate(t *testing.T) {
	raw := "hello there, nothing to see"
	rec := New().Normalize(entity.NewExtractionResult(constants.Unknown), raw, "x.png")

	assert.Nil(t, rec.Amount)
	assert.Nil(t, rec.Timestamp)
	assert.Equal(t, raw, rec.RawText)
	assert.True(t, rec.HasWarning(constants.WarnAmountMissing))
	assert.True(t, rec.HasWarning(constants.WarnDateMissing))
	assert.Zero(t, rec.Confidence())
}

func TestNormalizeIdentifiers(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		code  constants.WarningCode // "" = valid
	}{
		{"account ok", entity.FieldAccountNumber, "123456789012", ""},
		{"account short", entity.FieldAccountNumber, "12345", constants.WarnAccountFormat},
		{"account letters", entity.FieldAccountNumber, "12345678A012", constants.WarnAccountFormat},
		{"account masked", entity.FieldAccountNumber, "XXXX1234", constants.WarnAccountMasked},
		{"ifsc ok", entity.FieldIFSC, "SBIN0001234", ""},
		{"ifsc checksum", entity.FieldIFSC, "SBINO001234", constants.WarnIFSCChecksum},
		{"ifsc short", entity.FieldIFSC, "SBIN000123", constants.WarnIFSCFormat},
		{"ifsc digits first", entity.FieldIFSC, "5BIN0001234", constants.WarnIFSCFormat},
		{"txn ok", entity.FieldTransactionID, "CICAgOD1234567890", ""},
		{"txn short", entity.FieldTransactionID, "12345", constants.WarnTxnIDFormat},
		{"txn app id with dash", entity.FieldTransactionID, "CICAgOjW-abc123XYZ", ""},
		{"txn underscore", entity.FieldTransactionID, "ABC_123456", constants.WarnTxnIDFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := New().Normalize(result(constants.Passbook, map[string]string{tt.field: tt.value}), "", "")

			var got *string
			switch tt.field {
			case entity.FieldAccountNumber:
				got = rec.AccountNumber
			case entity.FieldIFSC:
				got = rec.IFSC
			case entity.FieldTransactionID:
				got = rec.TransactionID
			}
			// failing values are kept for manual correction
			assert.Equal(t, tt.value, entity.StrOrEmpty(got))

			var codes []constants.WarningCode
			for _, w := range rec.Warnings {
				if w.Field == tt.field {
					codes = append(codes, w.Code)
				}
			}
			if tt.code == "" {
				assert.Empty(t, codes)
			} else {
				assert.Equal(t, []constants.WarningCode{tt.code}, codes)
			}
		})
	}
}

func TestNormalizeIFSCChecksumMessage(t *testing.T) {
	rec := New().Normalize(result(constants.Passbook, map[string]string{entity.FieldIFSC: "SBINO001234"}), "", "")
	for _, w := range rec.Warnings {
		if w.Code == constants.WarnIFSCChecksum {
			assert.Equal(t, "IFSC checksum mismatch", w.Message)
			return
		}
	}
	t.Fatal("no checksum warning")
}

func TestNormalizeLowConfidence(t *testing.T) {
	res := entity.NewExtractionResult(constants.UPI)
	res.Set(entity.FieldAmount, entity.FieldCandidate{Raw: "500", Confidence: 0.4})
	res.Set(entity.FieldDate, entity.FieldCandidate{Raw: "12 Jan 2024", Confidence: 0.9})

	rec := New().Normalize(res, "", "")
	var lowFields []string
	for _, w := range rec.Warnings {
		if w.Code == constants.WarnLowConfidence {
			lowFields = append(lowFields, w.Field)
		}
	}
	assert.Equal(t, []string{entity.FieldAmount}, lowFields)

	rec = New(WithMinFieldConfidence(0.3)).Normalize(res, "", "")
	assert.False(t, rec.HasWarning(constants.WarnLowConfidence))
}

func TestNormalizeAmbiguousAmountHalvesConfidence(t *testing.T) {
	rec := New().Normalize(result(constants.UPI, map[string]string{entity.FieldAmount: "12,34,5"}), "", "")
	require.NotNil(t, rec.Amount)
	assert.True(t, rec.HasWarning(constants.WarnAmountAmbiguous))
	assert.InDelta(t, 0.5, rec.FieldConfidence[entity.FieldAmount], 1e-9)
}
