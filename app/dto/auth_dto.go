// Package dto contains Data Transfer Objects for API request and response structures
package dto

// AccountDTO represents account information returned in API responses
type AccountDTO struct {
	ID              uint    `json:"id" example:"123"`
	UUID            string  `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Role            string  `json:"role" example:"vendor"`
	Name            string  `json:"name" example:"Jane Doe"`
	Email           string  `json:"email" example:"jane@example.com"`
	Phone           *string `json:"phone,omitempty" example:"+14155550123"`
	IsActive        *bool   `json:"is_active" example:"true"`
	IsEmailVerified *bool   `json:"is_email_verified" example:"true"`

	BusinessName        *string `json:"business_name,omitempty" example:"Jane's Pottery"`
	BusinessEmail       *string `json:"business_email,omitempty" example:"sales@janespottery.com"`
	BusinessPhone       *string `json:"business_phone,omitempty" example:"+14155550124"`
	BusinessDescription *string `json:"business_description,omitempty"`
	BusinessWebsite     *string `json:"business_website,omitempty" example:"https://janespottery.com"`

	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
	LastLoginAt string `json:"last_login_at,omitempty" example:"2024-01-15T16:30:00Z"`
}

// AccountSessionDTO represents session tokens returned after authentication
type AccountSessionDTO struct {
	SessionToken string  `json:"session_token"`
	RefreshToken *string `json:"refresh_token,omitempty"`
	ExpiresIn    int     `json:"expires_in" example:"86400"`
	TokenType    string  `json:"token_type" example:"Bearer"`
	CreatedAt    string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// RegisterRequest represents the request payload for account registration
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255" example:"Jane Doe"`
	Email    string `json:"email" validate:"required,email,max=255" example:"jane@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100,password_strength" example:"SecurePass123"`
	Role     string `json:"role" validate:"required,oneof=customer vendor" example:"vendor"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,max=20" example:"+14155550123"`

	// Vendor business profile, required when role is vendor
	BusinessName        string `json:"business_name,omitempty" validate:"omitempty,max=255" example:"Jane's Pottery"`
	BusinessEmail       string `json:"business_email,omitempty" validate:"omitempty,email,max=255" example:"sales@janespottery.com"`
	BusinessPhone       string `json:"business_phone,omitempty" validate:"omitempty,max=20" example:"+14155550124"`
	BusinessDescription string `json:"business_description,omitempty" validate:"omitempty,max=2000"`
	BusinessWebsite     string `json:"business_website,omitempty" validate:"omitempty,url,max=255" example:"https://janespottery.com"`
}

// RegisterResponse represents the response after successful registration
type RegisterResponse struct {
	Message          string     `json:"message" example:"Registration successful. Please verify your email."`
	Account          AccountDTO `json:"account"`
	VerificationSent bool       `json:"verification_sent" example:"true"`
}

// VerifyEmailRequest represents the request to verify an email address
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required,min=16,max=128" example:"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b"`
}

// VerifyEmailResponse represents the response after successful email verification
type VerifyEmailResponse struct {
	Message            string            `json:"message" example:"Email verified successfully"`
	Account            AccountDTO        `json:"account"`
	Session            AccountSessionDTO `json:"session"`
	RequiresOnboarding bool              `json:"requires_onboarding" example:"true"`
	OnboardingURL      string            `json:"onboarding_url,omitempty"`
}

// ResendVerificationRequest represents the request to resend a verification email
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"jane@example.com"`
}

// ResendVerificationResponse represents the response after resending verification
type ResendVerificationResponse struct {
	Message          string `json:"message" example:"Verification email sent"`
	VerificationSent bool   `json:"verification_sent" example:"true"`
}

// LoginRequest represents the request payload for account login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"jane@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Message string            `json:"message" example:"Login successful"`
	Account AccountDTO        `json:"account"`
	Session AccountSessionDTO `json:"session"`
}

// ForgotPasswordRequest represents the request to initiate password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"jane@example.com"`
}

// ForgotPasswordResponse represents the response after requesting password reset.
// The message is identical whether or not the email is registered.
type ForgotPasswordResponse struct {
	Message string `json:"message" example:"If that email is registered, a reset link has been sent"`
}

// ResetPasswordRequest represents the request to reset password with a token
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required,min=16,max=128"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,password_strength" example:"NewSecurePass123"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword" example:"NewSecurePass123"`
}

// ResetPasswordResponse represents the response after successful password reset
type ResetPasswordResponse struct {
	Message           string `json:"message" example:"New password saved"`
	PasswordChangedAt string `json:"password_changed_at" example:"2024-01-15T16:30:00Z"`
}

// LogoutResponse represents the response after logout
type LogoutResponse struct {
	Message string `json:"message" example:"Logged out successfully"`
}

// Common error codes for authentication operations
const (
	ErrorAccountNotFound      = "ACCOUNT_NOT_FOUND"
	ErrorIncorrectCredentials = "INCORRECT_CREDENTIALS"
	ErrorAccountInactive      = "ACCOUNT_INACTIVE"
	ErrorEmailNotVerified     = "EMAIL_NOT_VERIFIED"
	ErrorEmailExists          = "EMAIL_ALREADY_EXISTS"
	ErrorInvalidToken         = "INVALID_OR_EXPIRED_TOKEN"
	ErrorVendorSetupFailed    = "VENDOR_SETUP_FAILED"
)
