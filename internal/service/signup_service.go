// Package service provides application business logic (signup, posts, search, etc.).
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"undertone/internal/email"
	"undertone/internal/middleware"
	"undertone/internal/models"
	"undertone/internal/observability"
	"undertone/internal/repository"
	"undertone/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SignupService drives the three-step email-verified signup flow and login.
// No User row exists until Complete succeeds; everything before that lives in
// a single SignupVerification record per email.
type SignupService struct {
	verifications repository.VerificationRepository
	users         repository.UserRepository
	mailer        email.Sender
	db            *gorm.DB
	otpExpiry     time.Duration
	maxAttempts   int
	bcryptCost    int
}

// NewSignupService returns a new SignupService. bcryptCost below the bcrypt
// minimum falls back to the default cost; tests pass bcrypt.MinCost to keep
// hashing fast.
func NewSignupService(
	verifications repository.VerificationRepository,
	users repository.UserRepository,
	mailer email.Sender,
	db *gorm.DB,
	otpExpiry time.Duration,
	maxAttempts int,
	bcryptCost int,
) *SignupService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &SignupService{
		verifications: verifications,
		users:         users,
		mailer:        mailer,
		db:            db,
		otpExpiry:     otpExpiry,
		maxAttempts:   maxAttempts,
		bcryptCost:    bcryptCost,
	}
}

// StartSignupInput is the input for starting a signup.
type StartSignupInput struct {
	Username string
	Email    string
	Password string
}

// CompleteSignupInput is the input for finishing a signup.
type CompleteSignupInput struct {
	Email     string
	Interests []string
}

// Start validates the candidate account, stages a verification record and
// emails a fresh OTP. Restarting for the same email replaces the pending
// record and resets the attempt allowance.
func (s *SignupService) Start(ctx context.Context, in StartSignupInput) error {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return err
	}

	existing, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewConflictError("Email already registered")
	}
	existing, err = s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewConflictError("Username already taken")
	}

	otp, err := generateOTP()
	if err != nil {
		return models.NewInternalError(err)
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}
	otpHash, err := bcrypt.GenerateFromPassword([]byte(otp), s.bcryptCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	v := &models.SignupVerification{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: string(passwordHash),
		OTPHash:      string(otpHash),
		ExpiresAt:    time.Now().UTC().Add(s.otpExpiry),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.verifications.Upsert(ctx, v); err != nil {
		return err
	}

	if s.mailer == nil {
		middleware.Logger.WarnContext(ctx, "mailer not configured, OTP not delivered", "email", in.Email)
		return nil
	}
	if err := s.mailer.SendOTP(in.Email, otp); err != nil {
		middleware.Logger.ErrorContext(ctx, "OTP delivery failed", "email", in.Email, "error", err)
		// The staged record stays put. A retry of Start overwrites it, so a
		// stranded record behind an undelivered code self-corrects.
		return models.NewDeliveryFailureError(err)
	}
	return nil
}

// VerifyOTP checks the submitted code against the pending record without
// consuming it. Success changes no state; the record waits for Complete.
func (s *SignupService) VerifyOTP(ctx context.Context, emailAddr, otp string) error {
	if err := validation.ValidateOTP(otp); err != nil {
		return err
	}
	_, err := s.checkOTP(ctx, emailAddr, otp)
	return err
}

// Complete finishes the flow for a staged email: in one transaction it creates
// the user, attaches interests and consumes the verification record. The code
// was already proven to VerifyOTP; the only failure here is a missing pending
// record.
func (s *SignupService) Complete(ctx context.Context, in CompleteSignupInput) (*models.User, error) {
	v, err := s.verifications.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, models.NewNotFoundError("Pending signup for", in.Email)
	}

	user := &models.User{
		Username: v.Username,
		Email:    v.Email,
		Password: v.PasswordHash,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		interests, err := getOrCreateInterests(tx, in.Interests)
		if err != nil {
			return err
		}
		if len(interests) > 0 {
			if err := tx.Model(user).Association("Interests").Append(interests); err != nil {
				return err
			}
		}
		return tx.Delete(&models.SignupVerification{}, v.ID).Error
	})
	if err != nil {
		if isUniqueConstraintErr(err) {
			return nil, models.NewConflictError("Account already exists")
		}
		return nil, models.NewInternalError(err)
	}

	middleware.Logger.InfoContext(ctx, "signup completed", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Login authenticates by email and password.
func (s *SignupService) Login(ctx context.Context, emailAddr, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	return user, nil
}

// checkOTP resolves the pending record for the email and applies the shared
// verification rules. Expiry is checked before attempt accounting, so a code
// submitted after the window never burns an attempt. The attempt that reaches
// the cap deletes the record; the flow must then be restarted.
func (s *SignupService) checkOTP(ctx context.Context, emailAddr, otp string) (*models.SignupVerification, error) {
	v, err := s.verifications.GetByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if v == nil {
		observability.OTPVerifications.WithLabelValues(observability.OTPOutcomeNotStarted).Inc()
		return nil, models.NewNotFoundError("Pending signup for", emailAddr)
	}

	if v.Expired(time.Now()) {
		observability.OTPVerifications.WithLabelValues(observability.OTPOutcomeExpired).Inc()
		if delErr := s.verifications.Delete(ctx, v.ID); delErr != nil {
			return nil, delErr
		}
		return nil, models.NewExpiredError("Verification code expired, please sign up again")
	}

	if bcrypt.CompareHashAndPassword([]byte(v.OTPHash), []byte(otp)) != nil {
		attempts := v.FailedAttempts + 1
		if attempts >= s.maxAttempts {
			observability.OTPVerifications.WithLabelValues(observability.OTPOutcomeExhausted).Inc()
			if delErr := s.verifications.Delete(ctx, v.ID); delErr != nil {
				return nil, delErr
			}
			return nil, models.NewTooManyAttemptsError()
		}
		observability.OTPVerifications.WithLabelValues(observability.OTPOutcomeInvalid).Inc()
		if incErr := s.verifications.IncrementFailedAttempts(ctx, v.ID); incErr != nil {
			return nil, incErr
		}
		return nil, models.NewInvalidOTPError(s.maxAttempts - attempts)
	}

	observability.OTPVerifications.WithLabelValues(observability.OTPOutcomeSuccess).Inc()
	return v, nil
}

// generateOTP returns a uniformly random six digit code, leading zeros kept.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// getOrCreateInterests resolves interest names to rows inside the signup
// transaction, creating missing ones. Names are lower-cased and de-duplicated
// first, so ["Music", "music"] attaches a single row.
func getOrCreateInterests(tx *gorm.DB, names []string) ([]models.Interest, error) {
	seen := make(map[string]bool, len(names))
	interests := make([]models.Interest, 0, len(names))
	for _, raw := range names {
		name := validation.NormalizeInterest(raw)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var interest models.Interest
		err := tx.Where("name = ?", name).
			FirstOrCreate(&interest, models.Interest{Name: name}).Error
		if err != nil {
			return nil, err
		}
		interests = append(interests, interest)
	}
	return interests, nil
}

func isUniqueConstraintErr(err error) bool {
	if err == nil {
		return false
	}
	appErr, ok := err.(*models.AppError)
	if ok {
		return appErr.Code == models.CodeConflict
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
