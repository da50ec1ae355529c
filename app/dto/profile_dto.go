// Package dto contains Data Transfer Objects for API request and response structures
package dto

// ProfileResponse represents the current account profile
type ProfileResponse struct {
	Account AccountDTO `json:"account"`
}

// UpdateProfileRequest represents the request to update profile fields.
// Role and email are immutable and deliberately absent.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=2,max=255" example:"Jane Doe"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,max=20" example:"+14155550123"`

	BusinessName        *string `json:"business_name,omitempty" validate:"omitempty,max=255"`
	BusinessEmail       *string `json:"business_email,omitempty" validate:"omitempty,email,max=255"`
	BusinessPhone       *string `json:"business_phone,omitempty" validate:"omitempty,max=20"`
	BusinessDescription *string `json:"business_description,omitempty" validate:"omitempty,max=2000"`
	BusinessWebsite     *string `json:"business_website,omitempty" validate:"omitempty,url,max=255"`
}

// UpdateProfileResponse represents the response after a profile update
type UpdateProfileResponse struct {
	Message string     `json:"message" example:"Profile updated successfully"`
	Account AccountDTO `json:"account"`
}

// ChangePasswordRequest represents the request to change the current password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required,min=8,max=100"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ChangePasswordResponse represents the response after a password change
type ChangePasswordResponse struct {
	Message           string `json:"message" example:"Password changed successfully"`
	PasswordChangedAt string `json:"password_changed_at" example:"2024-01-15T16:30:00Z"`
}
