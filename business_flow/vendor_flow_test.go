package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveOnboardingStage(t *testing.T) {
	tests := []struct {
		name             string
		detailsSubmitted bool
		chargesEnabled   bool
		payoutsEnabled   bool
		expected         string
	}{
		{"nothing submitted", false, false, false, dto.OnboardingStageRequired},
		{"no details but charges enabled", false, true, false, dto.OnboardingStageRequired},
		{"no details but payouts enabled", false, false, true, dto.OnboardingStageRequired},
		{"no details with both capabilities", false, true, true, dto.OnboardingStageRequired},
		{"details submitted, nothing enabled", true, false, false, dto.OnboardingStagePendingApproval},
		{"details submitted, charges only", true, true, false, dto.OnboardingStagePendingApproval},
		{"details submitted, payouts only", true, false, true, dto.OnboardingStagePendingApproval},
		{"fully enabled", true, true, true, dto.OnboardingStageActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stage := ResolveOnboardingStage(tt.detailsSubmitted, tt.chargesEnabled, tt.payoutsEnabled)
			assert.Equal(t, tt.expected, stage)
		})
	}
}

type vendorEnv struct {
	accountRepo *fakeAccountRepo
	auditRepo   *fakeAuditRepo
	gateway     *fakeGateway
	flow        VendorFlow
}

func newVendorEnv() *vendorEnv {
	env := &vendorEnv{
		accountRepo: newFakeAccountRepo(),
		auditRepo:   newFakeAuditRepo(),
		gateway:     newFakeGateway(),
	}
	env.flow = NewVendorFlow(env.accountRepo, env.auditRepo, env.gateway)
	return env
}

func (env *vendorEnv) seedVendor(t *testing.T, paymentAccountID *string) *models.Account {
	t.Helper()

	account := &models.Account{
		UUID:             uuid.New(),
		Role:             models.RoleVendor,
		Name:             "Jane Doe",
		Email:            "jane@janespottery.com",
		PasswordHash:     "hashed:SecurePass123",
		IsEmailVerified:  utils.ToPtr(true),
		IsActive:         utils.ToPtr(true),
		BusinessName:     utils.ToPtr("Jane's Pottery"),
		BusinessEmail:    utils.ToPtr("sales@janespottery.com"),
		PaymentAccountID: paymentAccountID,
	}
	require.NoError(t, env.accountRepo.Save(context.Background(), account))
	return account
}

func TestCheckOnboardingStatus(t *testing.T) {
	t.Run("unsubmitted vendor gets a fresh onboarding link", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, utils.ToPtr("acct_test_000001"))
		env.gateway.status = services.MerchantAccountStatus{}

		resp, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, dto.OnboardingStageRequired, resp.Stage)
		assert.Contains(t, resp.OnboardingURL, "acct_test_000001")
		assert.Empty(t, resp.CurrentlyDue)

		assert.True(t, env.auditRepo.hasAction(models.AuditActionVendorStatusChecked))
	})

	t.Run("submitted vendor awaiting capabilities sees currently due items", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, utils.ToPtr("acct_test_000001"))
		env.gateway.status = services.MerchantAccountStatus{
			DetailsSubmitted: true,
			CurrentlyDue:     []string{"external_account", "tos_acceptance.date"},
		}

		resp, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, dto.OnboardingStagePendingApproval, resp.Stage)
		assert.Empty(t, resp.OnboardingURL)
		assert.Equal(t, []string{"external_account", "tos_acceptance.date"}, resp.CurrentlyDue)
		assert.Zero(t, env.gateway.linkCalls)
	})

	t.Run("fully enabled vendor is active", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, utils.ToPtr("acct_test_000001"))
		env.gateway.status = services.MerchantAccountStatus{
			DetailsSubmitted: true,
			ChargesEnabled:   true,
			PayoutsEnabled:   true,
		}

		resp, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, dto.OnboardingStageActive, resp.Stage)
		assert.True(t, resp.ChargesEnabled)
		assert.True(t, resp.PayoutsEnabled)
		assert.Empty(t, resp.OnboardingURL)
	})

	t.Run("link failure still reports the stage", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, utils.ToPtr("acct_test_000001"))
		env.gateway.linkErr = errors.New("provider unavailable")

		resp, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.NoError(t, err)

		assert.Equal(t, dto.OnboardingStageRequired, resp.Stage)
		assert.Empty(t, resp.OnboardingURL)
		assert.True(t, env.auditRepo.hasAction(models.AuditActionOnboardingLinkFailed))
	})

	t.Run("customer account is rejected", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, utils.ToPtr("acct_test_000001"))
		account.Role = models.RoleCustomer
		require.NoError(t, env.accountRepo.Save(context.Background(), account))

		_, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsNotVendor(err))
	})

	t.Run("unverified vendor is rejected even with a payment account", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, utils.ToPtr("acct_test_000001"))
		account.IsEmailVerified = utils.ToPtr(false)
		require.NoError(t, env.accountRepo.Save(context.Background(), account))

		_, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsEmailNotVerified(err))
		assert.Zero(t, env.gateway.linkCalls)
	})

	t.Run("vendor without a payment account is rejected", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, nil)

		_, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.Error(t, err)
		assert.True(t, IsPaymentAccountNotProvisioned(err))
	})

	t.Run("unknown account is rejected", func(t *testing.T) {
		env := newVendorEnv()

		_, err := env.flow.CheckOnboardingStatus(context.Background(), 999, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("provider status failure surfaces", func(t *testing.T) {
		env := newVendorEnv()
		account := env.seedVendor(t, utils.ToPtr("acct_test_000001"))
		env.gateway.statusErr = errors.New("provider unavailable")

		_, err := env.flow.CheckOnboardingStatus(context.Background(), account.ID, testMetadata())
		require.Error(t, err)

		var bizErr *BusinessError
		require.ErrorAs(t, err, &bizErr)
		assert.Equal(t, "VENDOR_STATUS_FAILED", bizErr.Code)
	})
}
