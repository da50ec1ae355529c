package businessflow

import (
	"context"
	"fmt"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
)

// VendorFlow handles vendor payment onboarding status
type VendorFlow interface {
	CheckOnboardingStatus(ctx context.Context, accountID uint, metadata *ClientMetadata) (*dto.VendorStatusResponse, error)
}

// VendorFlowImpl implements the vendor business flow
type VendorFlowImpl struct {
	accountRepo repository.AccountRepository
	auditRepo   repository.AuditLogRepository
	gateway     services.PaymentGateway
}

// NewVendorFlow creates a new vendor flow instance
func NewVendorFlow(
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	gateway services.PaymentGateway,
) VendorFlow {
	return &VendorFlowImpl{
		accountRepo: accountRepo,
		auditRepo:   auditRepo,
		gateway:     gateway,
	}
}

// ResolveOnboardingStage maps raw sub-account capability flags to the
// onboarding stage shown to the vendor. Missing details win over disabled
// capabilities: a vendor who never submitted details is always
// onboarding_required no matter what the capability flags say.
func ResolveOnboardingStage(detailsSubmitted, chargesEnabled, payoutsEnabled bool) string {
	if !detailsSubmitted {
		return dto.OnboardingStageRequired
	}
	if !chargesEnabled || !payoutsEnabled {
		return dto.OnboardingStagePendingApproval
	}
	return dto.OnboardingStageActive
}

// CheckOnboardingStatus fetches live capability state from the payment
// provider and resolves it to an onboarding stage. Vendors still in
// onboarding_required also get a fresh onboarding link.
func (vf *VendorFlowImpl) CheckOnboardingStatus(ctx context.Context, accountID uint, metadata *ClientMetadata) (*dto.VendorStatusResponse, error) {
	account, err := vf.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, NewBusinessError("VENDOR_STATUS_FAILED", "Failed to check vendor status", err)
	}
	if account == nil {
		return nil, NewBusinessError("VENDOR_STATUS_FAILED", "Failed to check vendor status", ErrAccountNotFound)
	}
	if !account.IsVendor() {
		return nil, NewBusinessError("VENDOR_STATUS_FAILED", "Failed to check vendor status", ErrNotVendor)
	}
	// A sub-account exists from registration, but onboarding state is only
	// meaningful once the vendor has proven the email
	if !account.IsVerified() {
		return nil, NewBusinessError("VENDOR_STATUS_FAILED", "Failed to check vendor status", ErrEmailNotVerified)
	}
	if account.PaymentAccountID == nil || *account.PaymentAccountID == "" {
		return nil, NewBusinessError("VENDOR_STATUS_FAILED", "Failed to check vendor status", ErrPaymentAccountNotProvisioned)
	}

	status, err := vf.gateway.GetAccountStatus(ctx, *account.PaymentAccountID)
	if err != nil {
		errMsg := fmt.Sprintf("Failed to fetch payment account status: %v", err)
		_ = vf.createAuditLog(ctx, account, models.AuditActionVendorStatusChecked, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("VENDOR_STATUS_FAILED", "Failed to check vendor status", err)
	}

	stage := ResolveOnboardingStage(status.DetailsSubmitted, status.ChargesEnabled, status.PayoutsEnabled)

	resp := &dto.VendorStatusResponse{
		Stage:            stage,
		DetailsSubmitted: status.DetailsSubmitted,
		ChargesEnabled:   status.ChargesEnabled,
		PayoutsEnabled:   status.PayoutsEnabled,
	}

	switch stage {
	case dto.OnboardingStageRequired:
		link, linkErr := vf.gateway.CreateOnboardingLink(ctx, *account.PaymentAccountID)
		if linkErr != nil {
			errMsg := fmt.Sprintf("Failed to create onboarding link: %v", linkErr)
			_ = vf.createAuditLog(ctx, account, models.AuditActionOnboardingLinkFailed, errMsg, false, &errMsg, metadata)
		} else {
			resp.OnboardingURL = link
		}
	case dto.OnboardingStagePendingApproval:
		resp.CurrentlyDue = status.CurrentlyDue
	}

	msg := fmt.Sprintf("Vendor status checked: %d stage=%s", account.ID, stage)
	_ = vf.createAuditLog(ctx, account, models.AuditActionVendorStatusChecked, msg, true, nil, metadata)

	return resp, nil
}

func (vf *VendorFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return vf.auditRepo.Save(ctx, audit)
}
