// Package validation provides input validation utilities
package validation

import (
	"regexp"
	"strings"
	"unicode"

	"undertone/internal/models"
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	otpPattern      = regexp.MustCompile(`^[0-9]{6}$`)
)

// ValidateEmail checks that an email address is plausibly deliverable.
func ValidateEmail(email string) error {
	if email == "" {
		return models.NewValidationError("Email is required")
	}
	if len(email) > 254 {
		return models.NewValidationError("Email must not exceed 254 characters")
	}
	if !emailPattern.MatchString(email) {
		return models.NewValidationError("Email format is invalid")
	}
	return nil
}

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if len(username) < 3 {
		return models.NewValidationError("Username must be at least 3 characters long")
	}
	if len(username) > 30 {
		return models.NewValidationError("Username must not exceed 30 characters")
	}
	if !usernamePattern.MatchString(username) {
		return models.NewValidationError("Username can only contain letters, numbers, underscores, and hyphens")
	}
	// Cannot start or end with underscore/hyphen
	if username[0] == '_' || username[0] == '-' || username[len(username)-1] == '_' || username[len(username)-1] == '-' {
		return models.NewValidationError("Username cannot start or end with underscore or hyphen")
	}
	return nil
}

// ValidatePassword checks if a password meets security requirements
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return models.NewValidationError("Password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return models.NewValidationError("Password must not exceed 128 characters")
	}

	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return models.NewValidationError("Password must contain at least one uppercase letter")
	}
	if !hasLower {
		return models.NewValidationError("Password must contain at least one lowercase letter")
	}
	if !hasDigit {
		return models.NewValidationError("Password must contain at least one digit")
	}
	return nil
}

// ValidateOTP checks that the supplied code is a 6-digit numeric string.
// Leading zeros are valid.
func ValidateOTP(otp string) error {
	if !otpPattern.MatchString(otp) {
		return models.NewValidationError("OTP must be a 6-digit code")
	}
	return nil
}

// NormalizeInterest lower-cases and trims an interest name; empty means invalid.
func NormalizeInterest(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
