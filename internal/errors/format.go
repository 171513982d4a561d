package errors

import (
	"errors"
	"fmt"
	"strings"
)

// FormatForCLI renders err as the short multi-line block printed by the CLI.
// Errors without a code are reported as ERR_501_INTERNAL.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var ce *CodedError
	if !errors.As(err, &ce) {
		ce = New(ErrCodeInternal, err.Error(), err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", ce.Message))
	if ce.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", ce.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", ce.Code))

	return sb.String()
}

// LogAttrs returns slog key-value pairs describing err. Plain errors yield
// a single "error" pair.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var ce *CodedError
	if !errors.As(err, &ce) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", ce.Code,
		"error", ce.Message,
		"category", string(ce.Category),
	}
	if ce.Cause != nil {
		attrs = append(attrs, "cause", ce.Cause.Error())
	}
	for k, v := range ce.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
