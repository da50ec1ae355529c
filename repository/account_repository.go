// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrDuplicateEmail is returned when an insert violates the unique email constraint
var ErrDuplicateEmail = errors.New("account with this email already exists")

// AccountRepositoryImpl implements AccountRepository interface
type AccountRepositoryImpl struct {
	*BaseRepository[models.Account, models.AccountFilter]
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &AccountRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Account, models.AccountFilter](db),
	}
}

// Save inserts a new account, surfacing unique email violations as ErrDuplicateEmail
func (r *AccountRepositoryImpl) Save(ctx context.Context, account *models.Account) error {
	err := r.BaseRepository.Save(ctx, account)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}

	return nil
}

// ByEmail retrieves an account by email address
func (r *AccountRepositoryImpl) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	filter := models.AccountFilter{Email: &email}
	accounts, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ByUUID retrieves an account by its UUID
func (r *AccountRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Account, error) {
	parsed, err := uuid.Parse(uuidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid account UUID: %w", err)
	}

	filter := models.AccountFilter{UUID: &parsed}
	accounts, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to find account by UUID: %w", err)
	}

	if len(accounts) == 0 {
		return nil, nil
	}

	return accounts[0], nil
}

// ByVerificationToken retrieves the account holding a live verification token hash.
// Expired tokens never match; the caller decides how to report the failure.
func (r *AccountRepositoryImpl) ByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Where("verification_token = ? AND verification_expires_at > ?", tokenHash, now).
		Last(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by verification token: %w", err)
	}

	return &account, nil
}

// ByResetToken retrieves the account holding a live password reset token hash
func (r *AccountRepositoryImpl) ByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	db := r.getDB(ctx)

	var account models.Account
	err := db.Where("password_reset_token = ? AND password_reset_expires_at > ?", tokenHash, now).
		Last(&account).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find account by reset token: %w", err)
	}

	return &account, nil
}

// SetVerificationToken stores a new verification token hash, replacing any previous one.
// At most one verification token is live per account.
func (r *AccountRepositoryImpl) SetVerificationToken(ctx context.Context, accountID uint, tokenHash string, expiresAt time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"verification_token":      tokenHash,
			"verification_expires_at": expiresAt,
			"updated_at":              utils.UTCNow(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
	}

	return nil
}

// MarkEmailVerified flips the account to verified and consumes the token in one
// guarded update. The token-hash guard means two racing verifications resolve
// to exactly one winner; the returned bool reports whether this call consumed it.
func (r *AccountRepositoryImpl) MarkEmailVerified(ctx context.Context, accountID uint, tokenHash string, verifiedAt time.Time) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.Account{}).
		Where("id = ? AND verification_token = ?", accountID, tokenHash).
		Updates(map[string]any{
			"is_email_verified":       true,
			"email_verified_at":       verifiedAt,
			"verification_token":      nil,
			"verification_expires_at": nil,
			"updated_at":              utils.UTCNow(),
		})

	if result.Error != nil {
		err = result.Error
		return false, fmt.Errorf("failed to mark email verified: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// SetResetToken stores a new password reset token hash, replacing any previous one
func (r *AccountRepositoryImpl) SetResetToken(ctx context.Context, accountID uint, tokenHash string, expiresAt time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"password_reset_token":      tokenHash,
			"password_reset_expires_at": expiresAt,
			"updated_at":                utils.UTCNow(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	return nil
}

// ResetPasswordByToken writes the new password hash and consumes the reset token
// in one guarded update. Same single-winner semantics as MarkEmailVerified.
func (r *AccountRepositoryImpl) ResetPasswordByToken(ctx context.Context, accountID uint, tokenHash, newPasswordHash string) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	result := db.Model(&models.Account{}).
		Where("id = ? AND password_reset_token = ?", accountID, tokenHash).
		Updates(map[string]any{
			"password_hash":             newPasswordHash,
			"password_reset_token":      nil,
			"password_reset_expires_at": nil,
			"updated_at":                utils.UTCNow(),
		})

	if result.Error != nil {
		err = result.Error
		return false, fmt.Errorf("failed to reset password by token: %w", result.Error)
	}

	return result.RowsAffected > 0, nil
}

// UpdatePassword replaces the password hash for an account
func (r *AccountRepositoryImpl) UpdatePassword(ctx context.Context, accountID uint, passwordHash string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"password_hash": passwordHash,
			"updated_at":    utils.UTCNow(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}

// UpdateProfile applies the given column updates to an account.
// Role and email are immutable; callers never include them.
func (r *AccountRepositoryImpl) UpdateProfile(ctx context.Context, accountID uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	updates["updated_at"] = utils.UTCNow()

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(updates).Error

	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// SetPaymentAccountID records the payment provider sub-account reference
func (r *AccountRepositoryImpl) SetPaymentAccountID(ctx context.Context, accountID uint, paymentAccountID string) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]any{
			"payment_account_id": paymentAccountID,
			"updated_at":         utils.UTCNow(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to set payment account ID: %w", err)
	}

	return nil
}

// UpdateLastLogin records the most recent successful login time
func (r *AccountRepositoryImpl) UpdateLastLogin(ctx context.Context, accountID uint, at time.Time) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("last_login_at", at).Error

	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// Delete removes an account row. Only used to roll back a registration whose
// payment sub-account provisioning failed; established accounts are never deleted.
func (r *AccountRepositoryImpl) Delete(ctx context.Context, accountID uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Delete(&models.Account{}, accountID).Error
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AccountRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}

	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}

	if filter.Email != nil {
		query = query.Where("email = ?", *filter.Email)
	}

	if filter.IsEmailVerified != nil {
		query = query.Where("is_email_verified = ?", *filter.IsEmailVerified)
	}

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if filter.PaymentAccountID != nil {
		query = query.Where("payment_account_id = ?", *filter.PaymentAccountID)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	if filter.LastLoginAfter != nil {
		query = query.Where("last_login_at > ?", *filter.LastLoginAfter)
	}

	if filter.LastLoginBefore != nil {
		query = query.Where("last_login_at < ?", *filter.LastLoginBefore)
	}

	return query
}

// ByFilter retrieves accounts based on filter criteria
func (r *AccountRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Account{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var accounts []*models.Account
	err := query.Find(&accounts).Error
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// Count returns the number of accounts matching the filter
func (r *AccountRepositoryImpl) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Account{})

	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any account matching the filter exists
func (r *AccountRepositoryImpl) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
