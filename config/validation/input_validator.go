package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ccsw/internal/utils"
)

const maxNameLength = 50

// InputValidator validates user input
type InputValidator struct {
}

// NewInputValidator creates a new InputValidator
func NewInputValidator() *InputValidator {
	return &InputValidator{}
}

// ValidateSiteKey checks that a site key is usable as a store key and a CLI argument
func (iv *InputValidator) ValidateSiteKey(key string) error {
	return validateName("site key", key)
}

// ValidateCredentialName checks a token or API key name
func (iv *InputValidator) ValidateCredentialName(name string) error {
	return validateName("credential name", name)
}

func validateName(what, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	if strings.ContainsAny(name, "<>\"'&/\\") {
		return fmt.Errorf("%s contains invalid characters", what)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return fmt.Errorf("%s is too long (max %d characters)", what, maxNameLength)
	}
	return nil
}

// ValidateURL checks if a URL is valid
func (iv *InputValidator) ValidateURL(url string) error {
	if url != "" && !utils.ValidateURL(url) {
		return fmt.Errorf("invalid URL format")
	}
	return nil
}
