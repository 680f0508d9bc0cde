package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
)

var (
	reCurrency     = regexp.MustCompile(`(?i)₹|\brs\.?|\binr|/-$`)
	reIndianGroups = regexp.MustCompile(`^\d{1,2}(,\d{2})*,\d{3}$`)
	reWesternGroup = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
)

// ParseAmount converts a currency string to a non-negative 2-dp decimal.
//
// Locale rule (en-IN), applied uniformly: '.' is the only decimal separator and ','
// is always a grouping separator. Inputs that still parse but break that rule
// (odd comma groups, several dots, more than two fraction digits) carry
// WarnAmountAmbiguous. A leading minus is dropped with WarnAmountNegative.
func ParseAmount(s string) (decimal.Decimal, []constants.WarningCode, error) {
	var warns []constants.WarningCode

	v := strings.TrimSpace(s)
	v = reCurrency.ReplaceAllString(v, "")
	v = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\u00a0' || r == '\t' {
			return -1
		}
		return r
	}, v)
	v = strings.TrimPrefix(v, ":")

	if strings.HasPrefix(v, "-") {
		warns = append(warns, constants.WarnAmountNegative)
		v = strings.TrimPrefix(v, "-")
	}
	if v == "" || strings.Trim(v, "0123456789.,") != "" || !strings.ContainsAny(v, "0123456789") {
		return decimal.Zero, warns, unparsable(s)
	}

	intPart, frac := v, ""
	if dots := strings.Count(v, "."); dots > 0 {
		i := strings.LastIndex(v, ".")
		tail := v[i+1:]
		switch {
		case dots > 1 && len(tail) == 3 && !strings.Contains(tail, ","):
			// "1.234.567": dots used for grouping
			warns = append(warns, constants.WarnAmountAmbiguous)
			intPart = strings.ReplaceAll(v, ".", "")
		default:
			if dots > 1 {
				warns = append(warns, constants.WarnAmountAmbiguous)
			}
			intPart = strings.ReplaceAll(v[:i], ".", "")
			frac = tail
		}
	}

	if strings.Contains(frac, ",") {
		return decimal.Zero, warns, unparsable(s)
	}
	if len(frac) > 2 {
		warns = append(warns, constants.WarnAmountAmbiguous)
	}
	if strings.Contains(intPart, ",") && !reIndianGroups.MatchString(intPart) && !reWesternGroup.MatchString(intPart) {
		warns = append(warns, constants.WarnAmountAmbiguous)
	}

	digits := strings.ReplaceAll(intPart, ",", "")
	if digits == "" {
		digits = "0"
	}
	num := digits
	if frac != "" {
		num += "." + frac
	}
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, warns, unparsable(s)
	}
	return d.Round(2), dedupCodes(warns), nil
}

// FormatAmount renders d with the rupee sign, Indian digit grouping and two decimals: ₹1,23,456.50.
func FormatAmount(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	s := d.StringFixed(2)
	intPart, frac := s[:len(s)-3], s[len(s)-2:]
	return sign + "₹" + groupIndian(intPart) + "." + frac
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, last3 := digits[:len(digits)-3], digits[len(digits)-3:]
	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}
	return strings.Join(append(parts, last3), ",")
}

func unparsable(s string) error {
	return common.NewAppError(common.CodeFieldUnparsable, fmt.Sprintf("amount %q", s), common.ErrFieldUnparsable)
}

func dedupCodes(codes []constants.WarningCode) []constants.WarningCode {
	if len(codes) < 2 {
		return codes
	}
	seen := map[constants.WarningCode]bool{}
	out := codes[:0]
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
