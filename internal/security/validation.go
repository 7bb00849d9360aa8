package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Validation patterns
var (
	// API key pattern: alphanumeric with limited special chars
	apiKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{20,}$`)

	// Label pattern: alphanumeric with spaces, underscores, and hyphens
	labelPattern = regexp.MustCompile(`^[A-Za-z0-9_ -]{3,50}$`)

	// Underlying symbol pattern
	underlyingPattern = regexp.MustCompile(`^[A-Z]{2,10}$`)
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// InputValidator provides input validation functionality.
type InputValidator struct{}

// NewInputValidator creates a new input validator.
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateAPIKey validates an exchange API key format.
func (v *InputValidator) ValidateAPIKey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)

	if apiKey == "" {
		return &ValidationError{Field: "api_key", Message: "API key cannot be empty"}
	}
	if len(apiKey) < 20 {
		return &ValidationError{Field: "api_key", Message: "API key too short"}
	}
	if !apiKeyPattern.MatchString(apiKey) {
		return &ValidationError{Field: "api_key", Message: "API key contains invalid characters"}
	}
	return nil
}

// ValidateAPISecret validates an exchange API secret format.
func (v *InputValidator) ValidateAPISecret(apiSecret string) error {
	apiSecret = strings.TrimSpace(apiSecret)

	if apiSecret == "" {
		return &ValidationError{Field: "api_secret", Message: "API secret cannot be empty"}
	}
	if len(apiSecret) < 20 {
		return &ValidationError{Field: "api_secret", Message: "API secret too short"}
	}
	return nil
}

// ValidateLabel validates a credential or preset label.
func (v *InputValidator) ValidateLabel(label string) error {
	label = strings.TrimSpace(label)

	if label == "" {
		return &ValidationError{Field: "label", Message: "label cannot be empty"}
	}
	if !labelPattern.MatchString(label) {
		return &ValidationError{Field: "label", Message: "label must be 3-50 characters of letters, numbers, spaces, underscores, or hyphens"}
	}
	return nil
}

// ValidateUnderlying validates an underlying symbol.
func (v *InputValidator) ValidateUnderlying(symbol string) error {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	if symbol == "" {
		return &ValidationError{Field: "underlying", Message: "underlying cannot be empty"}
	}
	if !underlyingPattern.MatchString(symbol) {
		return &ValidationError{Field: "underlying", Message: "invalid underlying symbol"}
	}
	return nil
}

// ValidateLotSize validates a requested lot size.
func (v *InputValidator) ValidateLotSize(lotSize int) error {
	if lotSize <= 0 {
		return &ValidationError{Field: "lot_size", Message: "lot size must be greater than 0"}
	}
	if lotSize > 1000 {
		return &ValidationError{Field: "lot_size", Message: "lot size too large (max 1000)"}
	}
	return nil
}
