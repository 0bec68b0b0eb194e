package request

import (
	"fmt"
	"regexp"
	"strings"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validation codes double as i18n keys.
const (
	CodeNameRequired = "validation.name_required"
	CodeNameExists   = "validation.name_exists"
	CodeInvalidKey   = "validation.invalid_key"
)

// ValidationError is a user-facing input problem.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateName rejects blank names and case-insensitive duplicates among
// existing. kind is used in the message ("folder", "environment").
func ValidateName(kind, name string, existing []string) *ValidationError {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return &ValidationError{Field: "name", Code: CodeNameRequired, Message: fmt.Sprintf("%s name is required", kind)}
	}
	for _, other := range existing {
		if strings.EqualFold(strings.TrimSpace(other), trimmed) {
			return &ValidationError{Field: "name", Code: CodeNameExists, Message: fmt.Sprintf("a %s named %q already exists", kind, trimmed)}
		}
	}
	return nil
}

// CheckKey validates a param or variable key. Empty keys pass; they are
// handled by the blank-row rules.
func CheckKey(key string) *ValidationError {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || keyPattern.MatchString(trimmed) {
		return nil
	}
	return &ValidationError{Field: "key", Code: CodeInvalidKey, Message: "only letters, numbers, underscores and hyphens are allowed"}
}
