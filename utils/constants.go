package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour
)

// Email token constants
const (
	// VerificationTokenBytes is the random byte length of email verification tokens
	VerificationTokenBytes = 20

	// VerificationTokenTTL is the time-to-live for email verification tokens (30 minutes)
	VerificationTokenTTL = 30 * time.Minute

	// PasswordResetTokenBytes is the random byte length of password reset tokens
	PasswordResetTokenBytes = 32

	// PasswordResetTokenTTL is the time-to-live for password reset tokens (60 minutes)
	PasswordResetTokenTTL = 60 * time.Minute
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
