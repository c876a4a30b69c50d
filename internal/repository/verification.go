package repository

import (
	"context"
	"errors"

	"undertone/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VerificationRepository defines persistence operations for pending signup
// verifications. Records are keyed by email; a repeat signup for the same
// email replaces the pending record rather than stacking a second one.
type VerificationRepository interface {
	Upsert(ctx context.Context, v *models.SignupVerification) error
	GetByEmail(ctx context.Context, email string) (*models.SignupVerification, error)
	IncrementFailedAttempts(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository returns a new VerificationRepository implementation.
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

// Upsert inserts the verification or, when a record for the email already
// exists, replaces its payload in place. failed_attempts is reset so each
// restart of the flow gets the full attempt allowance.
func (r *verificationRepository) Upsert(ctx context.Context, v *models.SignupVerification) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "password_hash", "otp_hash", "expires_at", "failed_attempts", "created_at",
		}),
	}).Create(v).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *verificationRepository) GetByEmail(ctx context.Context, email string) (*models.SignupVerification, error) {
	var v models.SignupVerification
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &v, nil
}

func (r *verificationRepository) IncrementFailedAttempts(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.SignupVerification{}).
		Where("id = ?", id).
		UpdateColumn("failed_attempts", gorm.Expr("failed_attempts + ?", 1)).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *verificationRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.SignupVerification{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
