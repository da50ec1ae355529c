package businessflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupEnv struct {
	accountRepo *fakeAccountRepo
	sessionRepo *fakeSessionRepo
	auditRepo   *fakeAuditRepo
	tokenSvc    *fakeTokenService
	mailer      *fakeMailer
	gateway     *fakeGateway
	flow        SignupFlow
}

func newSignupEnv() *signupEnv {
	env := &signupEnv{
		accountRepo: newFakeAccountRepo(),
		sessionRepo: newFakeSessionRepo(),
		auditRepo:   newFakeAuditRepo(),
		tokenSvc:    newFakeTokenService(),
		mailer:      newFakeMailer(),
		gateway:     newFakeGateway(),
	}
	env.flow = NewSignupFlow(
		env.accountRepo,
		env.sessionRepo,
		env.auditRepo,
		env.tokenSvc,
		fakePasswordService{},
		env.mailer,
		env.gateway,
		noopTxManager{},
	)
	return env
}

func customerRegisterRequest() *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Name:     "Jane Doe",
		Email:    "jane@example.com",
		Password: "SecurePass123",
		Role:     models.RoleCustomer,
	}
}

func vendorRegisterRequest() *dto.RegisterRequest {
	return &dto.RegisterRequest{
		Name:          "Jane Doe",
		Email:         "jane@janespottery.com",
		Password:      "SecurePass123",
		Role:          models.RoleVendor,
		BusinessName:  "Jane's Pottery",
		BusinessEmail: "sales@janespottery.com",
	}
}

func testMetadata() *ClientMetadata {
	return NewClientMetadata("203.0.113.7", "test-agent/1.0")
}

func TestRegister(t *testing.T) {
	t.Run("customer registration succeeds", func(t *testing.T) {
		env := newSignupEnv()

		resp, err := env.flow.Register(context.Background(), customerRegisterRequest(), testMetadata())
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.True(t, resp.VerificationSent)
		assert.Equal(t, models.RoleCustomer, resp.Account.Role)
		assert.Equal(t, "jane@example.com", resp.Account.Email)

		stored, err := env.accountRepo.ByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.False(t, utils.IsTrue(stored.IsEmailVerified))
		assert.True(t, utils.IsTrue(stored.IsActive))
		require.NotNil(t, stored.VerificationToken)
		assert.Len(t, *stored.VerificationToken, 64)
		assert.Nil(t, stored.PaymentAccountID)

		assert.True(t, env.auditRepo.hasAction(models.AuditActionSignupInitiated))
	})

	t.Run("email is normalized before storage", func(t *testing.T) {
		env := newSignupEnv()

		req := customerRegisterRequest()
		req.Email = "  Jane@Example.COM "

		resp, err := env.flow.Register(context.Background(), req, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", resp.Account.Email)
	})

	t.Run("verification email carries the plaintext token", func(t *testing.T) {
		env := newSignupEnv()

		_, err := env.flow.Register(context.Background(), customerRegisterRequest(), testMetadata())
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return env.mailer.lastVerificationToken() != ""
		}, time.Second, 10*time.Millisecond)

		stored, err := env.accountRepo.ByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		require.NotNil(t, stored.VerificationToken)

		// Only the hash of the mailed token is ever stored
		plaintext := env.mailer.lastVerificationToken()
		assert.NotEqual(t, plaintext, *stored.VerificationToken)
		assert.Equal(t, HashToken(plaintext), *stored.VerificationToken)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		env := newSignupEnv()

		_, err := env.flow.Register(context.Background(), customerRegisterRequest(), testMetadata())
		require.NoError(t, err)

		_, err = env.flow.Register(context.Background(), customerRegisterRequest(), testMetadata())
		require.Error(t, err)
		assert.True(t, IsEmailAlreadyExists(err))
	})

	t.Run("invalid role is rejected", func(t *testing.T) {
		env := newSignupEnv()

		req := customerRegisterRequest()
		req.Role = "admin"

		_, err := env.flow.Register(context.Background(), req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsInvalidRole(err))
	})

	t.Run("vendor registration provisions a payment account", func(t *testing.T) {
		env := newSignupEnv()

		resp, err := env.flow.Register(context.Background(), vendorRegisterRequest(), testMetadata())
		require.NoError(t, err)
		require.NotNil(t, resp)

		stored, err := env.accountRepo.ByEmail(context.Background(), "jane@janespottery.com")
		require.NoError(t, err)
		require.NotNil(t, stored)
		require.NotNil(t, stored.PaymentAccountID)
		assert.Equal(t, env.gateway.createdAccounts[0], *stored.PaymentAccountID)
		require.NotNil(t, stored.BusinessName)
		assert.Equal(t, "Jane's Pottery", *stored.BusinessName)
	})

	t.Run("vendor without business name is rejected", func(t *testing.T) {
		env := newSignupEnv()

		req := vendorRegisterRequest()
		req.BusinessName = ""

		_, err := env.flow.Register(context.Background(), req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsBusinessNameRequired(err))
	})

	t.Run("vendor without business email is rejected", func(t *testing.T) {
		env := newSignupEnv()

		req := vendorRegisterRequest()
		req.BusinessEmail = ""

		_, err := env.flow.Register(context.Background(), req, testMetadata())
		require.Error(t, err)
		assert.True(t, IsBusinessEmailRequired(err))
	})

	t.Run("gateway failure removes the account so the email can retry", func(t *testing.T) {
		env := newSignupEnv()
		env.gateway.createErr = errors.New("provider unavailable")

		_, err := env.flow.Register(context.Background(), vendorRegisterRequest(), testMetadata())
		require.Error(t, err)
		assert.True(t, IsVendorAccountSetupFailed(err))

		stored, err := env.accountRepo.ByEmail(context.Background(), "jane@janespottery.com")
		require.NoError(t, err)
		assert.Nil(t, stored)

		// The same email registers cleanly once the provider recovers
		env.gateway.createErr = nil
		_, err = env.flow.Register(context.Background(), vendorRegisterRequest(), testMetadata())
		require.NoError(t, err)
	})
}

func TestVerifyEmail(t *testing.T) {
	register := func(t *testing.T, env *signupEnv, req *dto.RegisterRequest) string {
		t.Helper()
		_, err := env.flow.Register(context.Background(), req, testMetadata())
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return env.mailer.lastVerificationToken() != ""
		}, time.Second, 10*time.Millisecond)
		return env.mailer.lastVerificationToken()
	}

	t.Run("valid token verifies and opens a session", func(t *testing.T) {
		env := newSignupEnv()
		token := register(t, env, customerRegisterRequest())

		resp, err := env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: token}, testMetadata())
		require.NoError(t, err)
		require.NotNil(t, resp)

		assert.True(t, utils.IsTrue(resp.Account.IsEmailVerified))
		assert.NotEmpty(t, resp.Session.SessionToken)
		assert.Equal(t, "Bearer", resp.Session.TokenType)
		assert.False(t, resp.RequiresOnboarding)

		stored, err := env.accountRepo.ByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.True(t, utils.IsTrue(stored.IsEmailVerified))
		assert.Nil(t, stored.VerificationToken)

		assert.True(t, env.auditRepo.hasAction(models.AuditActionEmailVerified))
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		env := newSignupEnv()
		register(t, env, customerRegisterRequest())

		_, err := env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: "deadbeefdeadbeefdeadbeef"}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTokenInvalidOrExpired(err))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		env := newSignupEnv()
		token := register(t, env, customerRegisterRequest())

		stored, err := env.accountRepo.ByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		expired := utils.UTCNowAdd(-time.Minute)
		require.NoError(t, env.accountRepo.SetVerificationToken(context.Background(), stored.ID, HashToken(token), expired))

		_, err = env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: token}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTokenInvalidOrExpired(err))
	})

	t.Run("token is single use", func(t *testing.T) {
		env := newSignupEnv()
		token := register(t, env, customerRegisterRequest())

		_, err := env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: token}, testMetadata())
		require.NoError(t, err)

		_, err = env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: token}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTokenInvalidOrExpired(err))
	})

	t.Run("vendor verification returns an onboarding link", func(t *testing.T) {
		env := newSignupEnv()
		token := register(t, env, vendorRegisterRequest())

		resp, err := env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: token}, testMetadata())
		require.NoError(t, err)

		assert.True(t, resp.RequiresOnboarding)
		assert.Contains(t, resp.OnboardingURL, env.gateway.createdAccounts[0])
	})

	t.Run("vendor verification survives a link failure", func(t *testing.T) {
		env := newSignupEnv()
		token := register(t, env, vendorRegisterRequest())
		env.gateway.linkErr = errors.New("provider unavailable")

		resp, err := env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: token}, testMetadata())
		require.NoError(t, err)

		assert.True(t, resp.RequiresOnboarding)
		assert.Empty(t, resp.OnboardingURL)
		assert.True(t, env.auditRepo.hasAction(models.AuditActionOnboardingLinkFailed))
	})
}

func TestResendVerification(t *testing.T) {
	register := func(t *testing.T, env *signupEnv) string {
		t.Helper()
		_, err := env.flow.Register(context.Background(), customerRegisterRequest(), testMetadata())
		require.NoError(t, err)
		require.Eventually(t, func() bool {
			return env.mailer.lastVerificationToken() != ""
		}, time.Second, 10*time.Millisecond)
		return env.mailer.lastVerificationToken()
	}

	t.Run("resend invalidates the previous token", func(t *testing.T) {
		env := newSignupEnv()
		firstToken := register(t, env)

		resp, err := env.flow.ResendVerification(context.Background(), &dto.ResendVerificationRequest{Email: "jane@example.com"}, testMetadata())
		require.NoError(t, err)
		assert.True(t, resp.VerificationSent)

		require.Eventually(t, func() bool {
			return env.mailer.lastVerificationToken() != firstToken
		}, time.Second, 10*time.Millisecond)
		secondToken := env.mailer.lastVerificationToken()

		_, err = env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: firstToken}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsTokenInvalidOrExpired(err))

		_, err = env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: secondToken}, testMetadata())
		require.NoError(t, err)
	})

	t.Run("unknown email is rejected", func(t *testing.T) {
		env := newSignupEnv()

		_, err := env.flow.ResendVerification(context.Background(), &dto.ResendVerificationRequest{Email: "nobody@example.com"}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAccountNotFound(err))
	})

	t.Run("already verified account is rejected", func(t *testing.T) {
		env := newSignupEnv()
		token := register(t, env)

		_, err := env.flow.VerifyEmail(context.Background(), &dto.VerifyEmailRequest{Token: token}, testMetadata())
		require.NoError(t, err)

		_, err = env.flow.ResendVerification(context.Background(), &dto.ResendVerificationRequest{Email: "jane@example.com"}, testMetadata())
		require.Error(t, err)
		assert.True(t, IsAlreadyVerified(err))
	})
}
