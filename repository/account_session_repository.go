// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"gorm.io/gorm"
)

// AccountSessionRepositoryImpl implements AccountSessionRepository interface
type AccountSessionRepositoryImpl struct {
	*BaseRepository[models.AccountSession, models.AccountSessionFilter]
}

// NewAccountSessionRepository creates a new account session repository
func NewAccountSessionRepository(db *gorm.DB) AccountSessionRepository {
	return &AccountSessionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AccountSession, models.AccountSessionFilter](db),
	}
}

// BySessionToken retrieves an active, non-expired session by session token
func (r *AccountSessionRepositoryImpl) BySessionToken(ctx context.Context, token string) (*models.AccountSession, error) {
	db := r.getDB(ctx)

	var session models.AccountSession
	err := db.Where("session_token = ? AND is_active = ? AND expires_at > ?",
		token, true, utils.UTCNow()).
		Preload("Account").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by token: %w", err)
	}

	return &session, nil
}

// ByRefreshToken retrieves an active, non-expired session by refresh token
func (r *AccountSessionRepositoryImpl) ByRefreshToken(ctx context.Context, token string) (*models.AccountSession, error) {
	db := r.getDB(ctx)

	var session models.AccountSession
	err := db.Where("refresh_token = ? AND is_active = ? AND expires_at > ?",
		token, true, utils.UTCNow()).
		Preload("Account").
		First(&session).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find session by refresh token: %w", err)
	}

	return &session, nil
}

// ListActiveSessionsByAccount retrieves all active sessions for an account
func (r *AccountSessionRepositoryImpl) ListActiveSessionsByAccount(ctx context.Context, accountID uint) ([]*models.AccountSession, error) {
	filter := models.AccountSessionFilter{
		AccountID: &accountID,
		IsActive:  utils.ToPtr(true),
	}

	sessions, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions by account: %w", err)
	}

	// Filter out expired sessions
	var activeSessions []*models.AccountSession
	now := utils.UTCNow()
	for _, session := range sessions {
		if session.ExpiresAt.After(now) {
			activeSessions = append(activeSessions, session)
		}
	}

	return activeSessions, nil
}

// ExpireSession creates a new expired session record (insert-only approach)
func (r *AccountSessionRepositoryImpl) ExpireSession(ctx context.Context, sessionID uint) error {
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

	// Find the session to expire
	var session models.AccountSession
	err = db.Last(&session, sessionID).Error
	if err != nil {
		return fmt.Errorf("failed to find session to expire: %w", err)
	}

	now := utils.UTCNow()
	expiredSession := models.AccountSession{
		CorrelationID:  session.CorrelationID,
		AccountID:      session.AccountID,
		SessionToken:   session.SessionToken + "_expired",
		RefreshToken:   nil, // Clear refresh token on expiration
		IPAddress:      session.IPAddress,
		UserAgent:      session.UserAgent,
		IsActive:       utils.ToPtr(false),
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: now,
		ExpiresAt:      now, // Mark as expired now
	}

	err = db.Create(&expiredSession).Error
	if err != nil {
		return fmt.Errorf("failed to create expired session record: %w", err)
	}

	// Deactivate the original so token lookups stop matching it
	err = db.Model(&models.AccountSession{}).
		Where("id = ?", session.ID).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}

	return nil
}

// ExpireAllAccountSessions expires all sessions for an account (insert-only approach)
func (r *AccountSessionRepositoryImpl) ExpireAllAccountSessions(ctx context.Context, accountID uint) error {
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

	// Find all active sessions for the account
	var sessions []models.AccountSession
	err = db.Where("account_id = ? AND is_active = ?", accountID, true).
		Find(&sessions).Error

	if err != nil {
		return fmt.Errorf("failed to find account sessions: %w", err)
	}

	now := utils.UTCNow()
	for _, session := range sessions {
		expiredSession := models.AccountSession{
			CorrelationID:  session.CorrelationID,
			AccountID:      session.AccountID,
			SessionToken:   session.SessionToken + "_expired",
			RefreshToken:   nil, // Clear refresh token on expiration
			IPAddress:      session.IPAddress,
			UserAgent:      session.UserAgent,
			IsActive:       utils.ToPtr(false),
			CreatedAt:      session.CreatedAt,
			LastAccessedAt: now,
			ExpiresAt:      now, // Mark as expired now
		}

		err = db.Create(&expiredSession).Error
		if err != nil {
			return fmt.Errorf("failed to create expired session record: %w", err)
		}
	}

	err = db.Model(&models.AccountSession{}).
		Where("account_id = ? AND is_active = ?", accountID, true).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate account sessions: %w", err)
	}

	return nil
}

// CleanupExpiredSessions creates cleanup records for naturally expired sessions
func (r *AccountSessionRepositoryImpl) CleanupExpiredSessions(ctx context.Context) error {
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

	// Find all sessions that are naturally expired but still marked as active
	var expiredSessions []models.AccountSession
	now := utils.UTCNow()
	err = db.Where("is_active = ? AND expires_at <= ?", true, now).
		Find(&expiredSessions).Error

	if err != nil {
		return fmt.Errorf("failed to find expired sessions: %w", err)
	}

	for _, session := range expiredSessions {
		cleanupSession := models.AccountSession{
			CorrelationID:  session.CorrelationID,
			AccountID:      session.AccountID,
			SessionToken:   session.SessionToken + "_cleanup",
			RefreshToken:   nil, // Clear refresh token
			IPAddress:      session.IPAddress,
			UserAgent:      session.UserAgent,
			IsActive:       utils.ToPtr(false),
			CreatedAt:      session.CreatedAt,
			LastAccessedAt: session.LastAccessedAt,
			ExpiresAt:      session.ExpiresAt,
		}

		err = db.Create(&cleanupSession).Error
		if err != nil {
			return fmt.Errorf("failed to create cleanup session record: %w", err)
		}
	}

	err = db.Model(&models.AccountSession{}).
		Where("is_active = ? AND expires_at <= ?", true, now).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	return nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AccountSessionRepositoryImpl) applyFilter(query *gorm.DB, filter models.AccountSessionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}

	if filter.CorrelationID != nil {
		query = query.Where("correlation_id = ?", *filter.CorrelationID)
	}

	if filter.AccountID != nil {
		query = query.Where("account_id = ?", *filter.AccountID)
	}

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	if filter.IPAddress != nil {
		query = query.Where("ip_address = ?", *filter.IPAddress)
	}

	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}

	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}

	if filter.ExpiresAfter != nil {
		query = query.Where("expires_at > ?", *filter.ExpiresAfter)
	}

	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}

	if filter.IsExpired != nil && *filter.IsExpired {
		query = query.Where("expires_at <= ?", utils.UTCNow())
	}

	return query
}

// ByFilter retrieves sessions based on filter criteria
func (r *AccountSessionRepositoryImpl) ByFilter(ctx context.Context, filter models.AccountSessionFilter, orderBy string, limit, offset int) ([]*models.AccountSession, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AccountSession{})

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

	var sessions []*models.AccountSession
	err := query.Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	return sessions, nil
}

// Count returns the number of sessions matching the filter
func (r *AccountSessionRepositoryImpl) Count(ctx context.Context, filter models.AccountSessionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AccountSession{})

	query = r.applyFilter(query, filter)

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any session matching the filter exists
func (r *AccountSessionRepositoryImpl) Exists(ctx context.Context, filter models.AccountSessionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}
