package errors

import (
	"errors"
	"fmt"
)

// CodedError is an error with a stable code. Category and Severity are
// derived from the code; Details and Suggestion feed logs and the CLI.
type CodedError struct {
	Code       string
	Message    string
	Category   Category
	Severity   Severity
	Details    map[string]string
	Cause      error
	Suggestion string
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// Is matches any CodedError carrying the same code, so errors.Is works
// against a Sentinel.
func (e *CodedError) Is(target error) bool {
	if t, ok := target.(*CodedError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail records a key-value detail and returns e.
func (e *CodedError) WithDetail(key, value string) *CodedError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the hint shown under the CLI error.
func (e *CodedError) WithSuggestion(suggestion string) *CodedError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CodedError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *CodedError {
	return &CodedError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Sentinel returns a bare CodedError usable as an errors.Is target.
func Sentinel(code string) *CodedError {
	return &CodedError{Code: code}
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *CodedError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *CodedError {
	return New(ErrCodeInvalidInput, message, cause)
}

// NotFoundError creates an entity-not-found error.
func NotFoundError(message string) *CodedError {
	return New(ErrCodeEntityNotFound, message, nil)
}

// IsFatal reports whether err carries a fatal code anywhere in its chain.
func IsFatal(err error) bool {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a CodedError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

