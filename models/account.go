// Package models contains domain entities and business models for the marketplace identity system
package models

import (
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
)

// Account role constants (account_role_enum)
const (
	RoleCustomer   = "customer"
	RoleVendor     = "vendor"
	RoleSuperadmin = "superadmin"
)

type Account struct {
	ID   uint      `gorm:"primaryKey" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_accounts_uuid" json:"uuid"`
	Role string    `gorm:"type:account_role_enum;not null;index:idx_accounts_role" json:"role"` // Assigned at registration, never changes afterwards

	Name  string  `gorm:"size:255;not null" json:"name"`
	Email string  `gorm:"size:255;not null;uniqueIndex:uk_accounts_email" json:"email"` // Stored lower-cased
	Phone *string `gorm:"size:20" json:"phone,omitempty"`

	PasswordHash string `gorm:"size:255;not null" json:"-"` // Never serialize password hash

	// Status and verification
	IsEmailVerified *bool `gorm:"default:false;index:idx_accounts_is_email_verified" json:"is_email_verified"`
	IsActive        *bool `gorm:"default:true;index:idx_accounts_is_active" json:"is_active"`

	// Email verification and password reset tokens, stored as sha256 hex digests
	VerificationToken      *string    `gorm:"size:64;index:idx_accounts_verification_token" json:"-"`
	VerificationExpiresAt  *time.Time `json:"-"`
	PasswordResetToken     *string    `gorm:"size:64;index:idx_accounts_password_reset_token" json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`

	// Vendor business profile (required for vendor accounts)
	BusinessName        *string `gorm:"size:255" json:"business_name,omitempty"`
	BusinessEmail       *string `gorm:"size:255" json:"business_email,omitempty"`
	BusinessPhone       *string `gorm:"size:20" json:"business_phone,omitempty"`
	BusinessDescription *string `gorm:"type:text" json:"business_description,omitempty"`
	BusinessWebsite     *string `gorm:"size:255" json:"business_website,omitempty"`

	// Payment provider sub-account reference, never cleared once set
	PaymentAccountID *string `gorm:"size:255;index:idx_accounts_payment_account_id" json:"-"`

	// Timestamps
	CreatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_accounts_created_at" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `gorm:"index:idx_accounts_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Sessions  []AccountSession `gorm:"foreignKey:AccountID" json:"-"`
	AuditLogs []AuditLog       `gorm:"foreignKey:AccountID" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID               *uint
	UUID             *uuid.UUID
	Role             *string
	Email            *string
	IsEmailVerified  *bool
	IsActive         *bool
	PaymentAccountID *string
	CreatedAfter     *time.Time
	CreatedBefore    *time.Time
	LastLoginAfter   *time.Time
	LastLoginBefore  *time.Time
}

func (a *Account) IsCustomer() bool {
	return a.Role == RoleCustomer
}

func (a *Account) IsVendor() bool {
	return a.Role == RoleVendor
}

func (a *Account) IsSuperadmin() bool {
	return a.Role == RoleSuperadmin
}

func (a *Account) IsVerified() bool {
	return utils.IsTrue(a.IsEmailVerified)
}

// RequiresOnboarding reports whether the account is a vendor without a provisioned payment sub-account.
func (a *Account) RequiresOnboarding() bool {
	return a.IsVendor() && (a.PaymentAccountID == nil || *a.PaymentAccountID == "")
}
