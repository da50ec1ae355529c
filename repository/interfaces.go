// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/amirphl/Susanoo/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TransactionManager runs a function inside a database transaction
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// AccountRepository defines operations for accounts
type AccountRepository interface {
	Repository[models.Account, models.AccountFilter]
	ByEmail(ctx context.Context, email string) (*models.Account, error)
	ByUUID(ctx context.Context, uuid string) (*models.Account, error)
	ByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error)
	ByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error)
	SetVerificationToken(ctx context.Context, accountID uint, tokenHash string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, accountID uint, tokenHash string, verifiedAt time.Time) (bool, error)
	SetResetToken(ctx context.Context, accountID uint, tokenHash string, expiresAt time.Time) error
	ResetPasswordByToken(ctx context.Context, accountID uint, tokenHash, newPasswordHash string) (bool, error)
	UpdatePassword(ctx context.Context, accountID uint, passwordHash string) error
	UpdateProfile(ctx context.Context, accountID uint, updates map[string]any) error
	SetPaymentAccountID(ctx context.Context, accountID uint, paymentAccountID string) error
	UpdateLastLogin(ctx context.Context, accountID uint, at time.Time) error
	Delete(ctx context.Context, accountID uint) error
}

// AccountSessionRepository defines operations for account sessions
type AccountSessionRepository interface {
	Repository[models.AccountSession, models.AccountSessionFilter]
	BySessionToken(ctx context.Context, token string) (*models.AccountSession, error)
	ByRefreshToken(ctx context.Context, token string) (*models.AccountSession, error)
	ListActiveSessionsByAccount(ctx context.Context, accountID uint) ([]*models.AccountSession, error)
	ExpireSession(ctx context.Context, sessionID uint) error
	ExpireAllAccountSessions(ctx context.Context, accountID uint) error
	CleanupExpiredSessions(ctx context.Context) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
	ListSecurityEvents(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
