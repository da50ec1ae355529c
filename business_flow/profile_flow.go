package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
)

// ProfileFlow handles account profile reads and updates
type ProfileFlow interface {
	GetProfile(ctx context.Context, accountID uint, metadata *ClientMetadata) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, accountID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error)
	ChangePassword(ctx context.Context, accountID uint, req *dto.ChangePasswordRequest, metadata *ClientMetadata) (*dto.ChangePasswordResponse, error)
}

// ProfileFlowImpl implements the profile business flow
type ProfileFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	passwordSvc services.PasswordService
	tx          repository.TransactionManager
}

// NewProfileFlow creates a new profile flow instance
func NewProfileFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	passwordSvc services.PasswordService,
	tx repository.TransactionManager,
) ProfileFlow {
	return &ProfileFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		passwordSvc: passwordSvc,
		tx:          tx,
	}
}

// GetProfile returns the authenticated account's profile
func (pf *ProfileFlowImpl) GetProfile(ctx context.Context, accountID uint, metadata *ClientMetadata) (*dto.ProfileResponse, error) {
	account, err := pf.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Failed to load profile", err)
	}
	if account == nil {
		return nil, NewBusinessError("GET_PROFILE_FAILED", "Failed to load profile", ErrAccountNotFound)
	}

	return &dto.ProfileResponse{
		Account: ToAccountDTO(*account),
	}, nil
}

// UpdateProfile applies the provided profile fields. Role and email never
// change here; the request shape has no place for them.
func (pf *ProfileFlowImpl) UpdateProfile(ctx context.Context, accountID uint, req *dto.UpdateProfileRequest, metadata *ClientMetadata) (*dto.UpdateProfileResponse, error) {
	var account *models.Account

	err := pf.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = pf.accountRepo.ByID(txCtx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}
		if !utils.IsTrue(account.IsActive) {
			return ErrAccountInactive
		}

		updates := pf.buildProfileUpdates(account, req)
		if len(updates) == 0 {
			return nil
		}

		if err := pf.accountRepo.UpdateProfile(txCtx, accountID, updates); err != nil {
			return err
		}

		account, err = pf.accountRepo.ByID(txCtx, accountID)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Profile update failed: %s", err.Error())
		_ = pf.createAuditLog(ctx, account, models.AuditActionProfileUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("UPDATE_PROFILE_FAILED", "Profile update failed", err)
	}

	msg := fmt.Sprintf("Profile updated: %d", account.ID)
	_ = pf.createAuditLog(ctx, account, models.AuditActionProfileUpdated, msg, true, nil, metadata)

	return &dto.UpdateProfileResponse{
		Message: "Profile updated successfully",
		Account: ToAccountDTO(*account),
	}, nil
}

// ChangePassword verifies the current password and stores a new one.
// Reusing the current password is rejected.
func (pf *ProfileFlowImpl) ChangePassword(ctx context.Context, accountID uint, req *dto.ChangePasswordRequest, metadata *ClientMetadata) (*dto.ChangePasswordResponse, error) {
	var account *models.Account
	changedAt := utils.UTCNow()

	err := pf.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = pf.accountRepo.ByID(txCtx, accountID)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}
		if !utils.IsTrue(account.IsActive) {
			return ErrAccountInactive
		}

		if !pf.passwordSvc.Matches(req.CurrentPassword, account.PasswordHash) {
			return ErrIncorrectCredentials
		}
		if pf.passwordSvc.Matches(req.NewPassword, account.PasswordHash) {
			return ErrPasswordUnchanged
		}

		newHash, err := pf.passwordSvc.Hash(req.NewPassword)
		if err != nil {
			return err
		}

		return pf.accountRepo.UpdatePassword(txCtx, accountID, newHash)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Password change failed: %s", err.Error())
		_ = pf.createAuditLog(ctx, account, models.AuditActionPasswordChanged, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CHANGE_PASSWORD_FAILED", "Password change failed", err)
	}

	msg := fmt.Sprintf("Password changed: %d", account.ID)
	_ = pf.createAuditLog(ctx, account, models.AuditActionPasswordChanged, msg, true, nil, metadata)

	return &dto.ChangePasswordResponse{
		Message:           "Password changed successfully",
		PasswordChangedAt: changedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// Private helper methods

func (pf *ProfileFlowImpl) buildProfileUpdates(account *models.Account, req *dto.UpdateProfileRequest) map[string]any {
	updates := map[string]any{}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}

	// Business fields only apply to vendor accounts
	if account.IsVendor() {
		if req.BusinessName != nil && strings.TrimSpace(*req.BusinessName) != "" {
			updates["business_name"] = strings.TrimSpace(*req.BusinessName)
		}
		if req.BusinessEmail != nil && strings.TrimSpace(*req.BusinessEmail) != "" {
			updates["business_email"] = strings.ToLower(strings.TrimSpace(*req.BusinessEmail))
		}
		if req.BusinessPhone != nil {
			updates["business_phone"] = strings.TrimSpace(*req.BusinessPhone)
		}
		if req.BusinessDescription != nil {
			updates["business_description"] = strings.TrimSpace(*req.BusinessDescription)
		}
		if req.BusinessWebsite != nil {
			updates["business_website"] = strings.TrimSpace(*req.BusinessWebsite)
		}
	}

	return updates
}

func (pf *ProfileFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	var accountID *uint
	if account != nil {
		accountID = &account.ID
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		AccountID:    accountID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	return pf.auditRepo.Save(ctx, audit)
}
