package classify

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/upi-extractor/constants"
)

const passbookText = `STATE BANK OF INDIA
Savings Account Passbook
Account Holder Name : Nirbhay Zala
A/c No. : 1234 5678 9012
IFSC Code: SBIN0001234   MICR: 380002003
Branch : Navrangpura`

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want constants.SourceType
	}{
		{"upi scenario", "Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024", constants.UPI},
		{"gpay receipt", "Google Pay\n₹1,250.00\nPaid to Ravi Kumar\nravi@okaxis\nPayment successful", constants.UPI},
		{"passbook", passbookText, constants.Passbook},
		{"ledger", "Date Particulars Withdrawals Deposits Balance\n01/02/2024 NEFT-ACME 5,000.00 Cr 12,000.00", constants.Passbook},
		{"empty", "", constants.Unknown},
		{"garbage", "~~ lorem ipsum %% 42", constants.Unknown},
		{"single weak cue", "Branch", constants.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(tt.text)
			assert.Equal(t, tt.want, res.Type)
			if tt.want == constants.Unknown {
				assert.Zero(t, res.Confidence)
			} else {
				assert.Greater(t, res.Confidence, 0.0)
				assert.LessOrEqual(t, res.Confidence, 1.0)
			}
		})
	}
}

func TestClassifyScenarioConfidence(t *testing.T) {
	res := New().Classify("Paid ₹500 to John Doe UPI Ref No 123456789012 on 12 Jan 2024")
	require.Equal(t, constants.UPI, res.Type)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	assert.Contains(t, res.Matched, "upi_reference")
	assert.False(t, res.Ambiguous)
}

func TestClassifyIdempotent(t *testing.T) {
	c := New()
	inputs := []string{"", "UPI", passbookText, "Paid ₹5OO to X UPI Ref 1", "\x00\xff garbage"}
	for _, in := range inputs {
		first := c.Classify(in)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, c.Classify(in))
		}
	}
}

func TestClassifyTieIsAmbiguous(t *testing.T) {
	c := New(WithSignatures([]Signature{
		{Name: "u", Type: constants.UPI, Pattern: regexp.MustCompile(`alpha`), Weight: 2},
		{Name: "p", Type: constants.Passbook, Pattern: regexp.MustCompile(`beta`), Weight: 2},
	}))

	res := c.Classify("alpha beta")
	assert.Equal(t, constants.Unknown, res.Type)
	assert.True(t, res.Ambiguous)

	res = c.Classify("alpha")
	assert.Equal(t, constants.UPI, res.Type)
	assert.False(t, res.Ambiguous)
}

func TestClassifyMinScore(t *testing.T) {
	text := "UPI"
	low := New().Classify(text)
	assert.Equal(t, constants.Unknown, low.Type)
	assert.True(t, low.Unclassified)
	assert.False(t, low.Ambiguous)

	res := New(WithMinScore(0.5)).Classify(text)
	assert.Equal(t, constants.UPI, res.Type)
	assert.False(t, res.Unclassified)
}
