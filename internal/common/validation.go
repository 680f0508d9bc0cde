package common

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors. Rules run in order and stop at the first failure
// so one bad value produces one message.
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
			break
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns a combined error wrapping ErrValidation, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrValidation, v.ErrorMessage())
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return *v, true
	}
	return "", false
}

// LengthBetween checks the rune length of a string value.
func LengthBetween(min, max int, code string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		n := utf8.RuneCountInString(str)
		if n < min || n > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Code:    code,
				Message: fmt.Sprintf("must be %d to %d characters, got %d", min, max, n),
			}
		}
		return nil
	}
}

// DigitsOnly rejects any non-digit rune.
func DigitsOnly(code string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		for _, r := range str {
			if !unicode.IsDigit(r) {
				return &ValidationError{Field: fieldName, Value: value, Code: code, Message: "must contain digits only"}
			}
		}
		return nil
	}
}

// AlphaNumeric rejects anything but ASCII letters, digits and the allowed runes.
func AlphaNumeric(code string, allowed ...rune) ValidationRule {
	msg := "must be letters and digits only"
	if len(allowed) > 0 {
		msg = fmt.Sprintf("must be letters, digits or %q only", string(allowed))
	}
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		for _, r := range str {
			if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				continue
			}
			if slices.Contains(allowed, r) {
				continue
			}
			return &ValidationError{Field: fieldName, Value: value, Code: code, Message: msg}
		}
		return nil
	}
}

// Matches checks value against re, reporting msg on failure.
func Matches(re *regexp.Regexp, code, msg string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		if !re.MatchString(str) {
			return &ValidationError{Field: fieldName, Value: value, Code: code, Message: msg}
		}
		return nil
	}
}

// CharAt checks that the rune at index i equals want.
func CharAt(i int, want rune, code, msg string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := asString(value)
		if !ok {
			return nil
		}
		runes := []rune(str)
		if i >= len(runes) || runes[i] != want {
			return &ValidationError{Field: fieldName, Value: value, Code: code, Message: msg}
		}
		return nil
	}
}
