package constants

import (
	"strings"
)

// SourceType is the document family a piece of OCR text came from.
type SourceType string

const (
	UPI      SourceType = "UPI"
	Passbook SourceType = "PASSBOOK"
	Unknown  SourceType = "UNKNOWN"
)

var allSourceTypes = []SourceType{UPI, Passbook, Unknown}

// SourceTypes returns every source type in a stable order.
func SourceTypes() []SourceType {
	out := make([]SourceType, len(allSourceTypes))
	copy(out, allSourceTypes)
	return out
}

// Direction is the money flow of a transaction relative to the account holder.
type Direction string

const (
	Credit           Direction = "CREDIT"
	Debit            Direction = "DEBIT"
	DirectionUnknown Direction = "UNKNOWN"
)

// CanonicalSourceType maps user input (CLI flag, spreadsheet cell) to a SourceType.
func CanonicalSourceType(input string) (SourceType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Unknown, false
	}

	synonyms := map[string]SourceType{
		"upi":        UPI,
		"screenshot": UPI,
		"gpay":       UPI,
		"phonepe":    UPI,
		"paytm":      UPI,
		"passbook":   Passbook,
		"bank":       Passbook,
		"statement":  Passbook,
		"unknown":    Unknown,
		"auto":       Unknown,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}
	return Unknown, false
}

// CanonicalDirection maps a spreadsheet or rule value to a Direction.
func CanonicalDirection(input string) Direction {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "CREDIT", "CR", "C":
		return Credit
	case "DEBIT", "DR", "D":
		return Debit
	default:
		return DirectionUnknown
	}
}
