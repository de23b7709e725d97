package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/sculptor/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	if err := Validate.RegisterValidation("session_type", validateSessionType); err != nil {
		panic(fmt.Sprintf("failed to register session_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("export_format", validateExportFormat); err != nil {
		panic(fmt.Sprintf("failed to register export_format validator: %v", err))
	}
}

// validateSessionType validates that a string is a supported session type
func validateSessionType(fl validator.FieldLevel) bool {
	return models.SessionType(fl.Field().String()).Valid()
}

func validateExportFormat(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "pdf", "docx":
		return true
	default:
		return false
	}
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	// Trim whitespace
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateSessionType validates a SessionType string value
func ValidateSessionType(value string) error {
	if models.SessionType(value).Valid() {
		return nil
	}
	return fmt.Errorf("invalid session type: %s (must be 'resume', 'cover-letter', 'resignation-letter', or 'career-copilot')", value)
}

// ValidateProfile checks a complete profile against its struct constraints
func ValidateProfile(p models.UserProfile) error {
	if err := Validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}

// ValidateProfilePatch checks a partial profile update
func ValidateProfilePatch(p models.ProfilePatch) error {
	if err := Validate.Struct(p); err != nil {
		return fmt.Errorf("invalid profile update: %w", err)
	}
	return nil
}
