package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error kinds. Match with errors.Is; AppError wraps one of these as its Cause.
var (
	// ErrOCRUnavailable is fatal for a whole batch: the engine cannot run at all.
	ErrOCRUnavailable = errors.New("ocr engine unavailable")
	// ErrNoTextDetected is per image and non-fatal.
	ErrNoTextDetected = errors.New("no text detected")
	// ErrClassificationAmbiguous is non-fatal; the record continues as UNKNOWN.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")
	// ErrFieldUnparsable is non-fatal; the field stays nil with a warning.
	ErrFieldUnparsable = errors.New("field unparsable")
	// ErrExportSchemaMismatch aborts one export call; the target file is untouched.
	ErrExportSchemaMismatch = errors.New("export schema mismatch")
	// ErrExportIO is returned after the single retry of a failed write.
	ErrExportIO = errors.New("export io error")

	ErrInvalidInput = errors.New("invalid input")
	ErrValidation   = errors.New("validation failed")
)

// Error codes carried by AppError.Code.
const (
	CodeOCRUnavailable          = "OCR_UNAVAILABLE"
	CodeNoTextDetected          = "NO_TEXT_DETECTED"
	CodeClassificationAmbiguous = "CLASSIFICATION_AMBIGUOUS"
	CodeFieldUnparsable         = "FIELD_UNPARSABLE"
	CodeExportSchemaMismatch    = "EXPORT_SCHEMA_MISMATCH"
	CodeExportIO                = "EXPORT_IO_ERROR"
	CodeConfig                  = "CONFIG_ERROR"
	CodeRules                   = "RULES_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// OCRUnavailable wraps the underlying engine failure so errors.Is(err, ErrOCRUnavailable) holds.
func OCRUnavailable(cause error) error {
	return NewAppError(CodeOCRUnavailable, "ocr engine is not available", joinCause(ErrOCRUnavailable, cause))
}

// NoTextDetected reports an image whose OCR output was empty.
func NoTextDetected(imageRef string) error {
	return NewAppError(CodeNoTextDetected, fmt.Sprintf("no text in %s", imageRef), ErrNoTextDetected)
}

// SchemaMismatch reports a header that does not match the expected column schema.
func SchemaMismatch(path, detail string) error {
	return NewAppError(CodeExportSchemaMismatch, fmt.Sprintf("%s: %s", path, detail), ErrExportSchemaMismatch)
}

// ExportIO wraps a write failure that survived the retry.
func ExportIO(path string, cause error) error {
	return NewAppError(CodeExportIO, fmt.Sprintf("write %s", path), joinCause(ErrExportIO, cause))
}

func joinCause(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return errors.Join(kind, cause)
}
