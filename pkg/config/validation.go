package config

import (
	"fmt"
	"strings"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/alantheprice/consolepane/pkg/logging"
)

// maxSaneHistory is the size above which a history setting is flagged.
const maxSaneHistory = 100000

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ValidationResult contains the result of a configuration validation
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
}

// IsValid returns true if there are no errors
func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// HasWarnings returns true if there are warnings
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// CombinedError returns all errors as a single error
func (r *ValidationResult) CombinedError() error {
	if len(r.Errors) == 0 {
		return nil
	}

	messages := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		messages[i] = err.Error()
	}
	return fmt.Errorf("configuration validation failed:\n%s", strings.Join(messages, "\n"))
}

func (r *ValidationResult) addError(field, format string, args ...interface{}) {
	r.Errors = append(r.Errors, *NewValidationError(field, fmt.Sprintf(format, args...)))
}

// Check validates every field and collects all problems.
func (c *Config) Check() *ValidationResult {
	result := &ValidationResult{}

	if _, err := console.ParseInputMode(c.Mode); err != nil {
		result.addError("mode", "%v", err)
	}
	switch {
	case c.HistorySize < 0:
		result.addError("history_size", "cannot be negative")
	case c.HistorySize > maxSaneHistory:
		result.Warnings = append(result.Warnings, fmt.Sprintf("history_size %d is unusually large", c.HistorySize))
	}
	if strings.ContainsAny(c.Prompt, "\r\n") {
		result.Warnings = append(result.Warnings, "prompt contains a line break")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		result.addError("log.level", "%v", err)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		result.addError("log", "rotation settings cannot be negative")
	}

	for stroke, name := range c.Keys {
		if _, err := console.ParseKeyStroke(stroke); err != nil {
			result.addError("keys", "invalid key binding: %v", err)
			continue
		}
		if _, err := console.ParseAction(name); err != nil {
			result.addError("keys", "invalid key binding for %q: %v", stroke, err)
		}
	}

	return result
}

// Validate returns every validation error combined, or nil.
func (c *Config) Validate() error {
	return c.Check().CombinedError()
}
