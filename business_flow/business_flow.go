// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToAccountDTO converts an account model to AccountDTO for API responses.
// Password hash and token hashes never leave the model layer.
func ToAccountDTO(account models.Account) dto.AccountDTO {
	d := dto.AccountDTO{
		ID:              account.ID,
		UUID:            account.UUID.String(),
		Role:            account.Role,
		Name:            account.Name,
		Email:           account.Email,
		Phone:           account.Phone,
		IsActive:        account.IsActive,
		IsEmailVerified: account.IsEmailVerified,
		CreatedAt:       account.CreatedAt.Format(time.RFC3339),
	}

	if account.IsVendor() {
		d.BusinessName = account.BusinessName
		d.BusinessEmail = account.BusinessEmail
		d.BusinessPhone = account.BusinessPhone
		d.BusinessDescription = account.BusinessDescription
		d.BusinessWebsite = account.BusinessWebsite
	}

	if account.LastLoginAt != nil {
		d.LastLoginAt = account.LastLoginAt.Format(time.RFC3339)
	}

	return d
}

func ToAccountSessionDTO(session models.AccountSession) dto.AccountSessionDTO {
	return dto.AccountSessionDTO{
		SessionToken: session.SessionToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(time.Until(session.ExpiresAt).Seconds()),
		TokenType:    "Bearer",
		CreatedAt:    session.CreatedAt.Format(time.RFC3339),
	}
}
