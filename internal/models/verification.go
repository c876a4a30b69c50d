package models

import (
	"time"
)

// SignupVerification is the transient record backing the three-step signup
// flow. At most one row exists per email. It holds the candidate username and
// the bcrypt hashes of the password and the emailed OTP; no User row exists
// until the flow completes, and completion consumes this record.
type SignupVerification struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Email          string    `gorm:"unique;not null" json:"email"`
	Username       string    `gorm:"not null" json:"username"`
	PasswordHash   string    `gorm:"not null" json:"-"`
	OTPHash        string    `gorm:"not null" json:"-"`
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	FailedAttempts int       `gorm:"not null;default:0" json:"failed_attempts"`
	CreatedAt      time.Time `json:"created_at"`
}

// Expired reports whether the verification window has elapsed at the given
// instant. Comparison is done in UTC on both sides.
func (v *SignupVerification) Expired(now time.Time) bool {
	return now.UTC().After(v.ExpiresAt.UTC())
}
