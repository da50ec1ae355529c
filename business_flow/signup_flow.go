// Package businessflow contains the core business logic and use cases for identity workflows
package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
	"github.com/google/uuid"
)

// SignupFlow handles registration, email verification, and verification resend
type SignupFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest, metadata *ClientMetadata) (*dto.VerifyEmailResponse, error)
	ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest, metadata *ClientMetadata) (*dto.ResendVerificationResponse, error)
}

// SignupFlowImpl implements the signup business flow
type SignupFlowImpl struct {
	accountRepo repository.AccountRepository
	sessionRepo repository.AccountSessionRepository
	auditRepo   repository.AuditLogRepository
	tokenSvc    services.TokenService
	passwordSvc services.PasswordService
	mailer      services.MailerService
	gateway     services.PaymentGateway
	tx          repository.TransactionManager
}

// NewSignupFlow creates a new signup flow instance
func NewSignupFlow(
	accountRepo repository.AccountRepository,
	sessionRepo repository.AccountSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenSvc services.TokenService,
	passwordSvc services.PasswordService,
	mailer services.MailerService,
	gateway services.PaymentGateway,
	tx repository.TransactionManager,
) SignupFlow {
	return &SignupFlowImpl{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		tokenSvc:    tokenSvc,
		passwordSvc: passwordSvc,
		mailer:      mailer,
		gateway:     gateway,
		tx:          tx,
	}
}

// Register creates a new account, issues a verification token, and for vendors
// provisions the payment sub-account synchronously. A failed provisioning rolls
// the account back so the email can be retried.
func (s *SignupFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	if err := s.validateRegisterRequest(ctx, req); err != nil {
		return nil, NewBusinessError("REGISTER_VALIDATION_FAILED", "Registration validation failed", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	issued, err := IssueToken(utils.VerificationTokenBytes, utils.VerificationTokenTTL)
	if err != nil {
		return nil, NewBusinessError("REGISTER_FAILED", "Registration failed", err)
	}

	var account *models.Account

	err = s.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = s.createAccount(txCtx, req, email, issued.Hash, issued.ExpiresAt)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Registration failed: %s", err.Error())
		_ = s.createAuditLog(ctx, account, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)

		if errors.Is(err, repository.ErrDuplicateEmail) {
			err = ErrEmailAlreadyExists
		}
		return nil, NewBusinessError("REGISTER_FAILED", "Registration failed", err)
	}

	// Vendors get their payment sub-account before the registration is
	// considered complete. On failure the account is removed so the same
	// email can register again.
	if account.IsVendor() {
		accountID, gwErr := s.gateway.CreateMerchantAccount(ctx, services.MerchantProfile{
			Email:               email,
			BusinessName:        req.BusinessName,
			BusinessDescription: req.BusinessDescription,
			BusinessWebsite:     req.BusinessWebsite,
		})
		if gwErr != nil {
			_ = s.accountRepo.Delete(ctx, account.ID)

			errMsg := fmt.Sprintf("Vendor payment account provisioning failed: %v", gwErr)
			_ = s.createAuditLog(ctx, account, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)

			return nil, NewBusinessError("VENDOR_SETUP_FAILED", "Vendor account setup failed", ErrVendorAccountSetupFailed)
		}

		if err := s.accountRepo.SetPaymentAccountID(ctx, account.ID, accountID); err != nil {
			_ = s.accountRepo.Delete(ctx, account.ID)

			errMsg := fmt.Sprintf("Failed to store payment account reference: %v", err)
			_ = s.createAuditLog(ctx, account, models.AuditActionSignupFailed, errMsg, false, &errMsg, metadata)

			return nil, NewBusinessError("VENDOR_SETUP_FAILED", "Vendor account setup failed", ErrVendorAccountSetupFailed)
		}
		account.PaymentAccountID = &accountID
	}

	msg := fmt.Sprintf("Registration initiated successfully: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionSignupInitiated, msg, true, nil, metadata)

	// Send verification email outside the transaction so delivery failures
	// never roll back the account
	go func() {
		if err := s.mailer.SendVerificationEmail(email, account.Name, issued.Plaintext); err != nil {
			errMsg := fmt.Sprintf("Failed to send verification email: %v", err)
			_ = s.createAuditLog(context.Background(), account, models.AuditActionVerificationFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	return &dto.RegisterResponse{
		Message:          "Registration successful. Please verify your email.",
		Account:          ToAccountDTO(*account),
		VerificationSent: true,
	}, nil
}

// VerifyEmail consumes a verification token and opens the first session.
// Expired and mismatched tokens fail identically from the caller's view.
func (s *SignupFlowImpl) VerifyEmail(ctx context.Context, req *dto.VerifyEmailRequest, metadata *ClientMetadata) (*dto.VerifyEmailResponse, error) {
	tokenHash := HashToken(req.Token)

	var account *models.Account
	var session *models.AccountSession

	err := s.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = s.accountRepo.ByVerificationToken(txCtx, tokenHash, utils.UTCNow())
		if err != nil {
			return err
		}
		if account == nil {
			return ErrTokenInvalidOrExpired
		}

		if account.IsVerified() {
			return ErrAlreadyVerified
		}
		if !utils.IsTrue(account.IsActive) {
			return ErrAccountInactive
		}

		// Guarded update: of two racing verifications at most one consumes
		// the token
		consumed, err := s.accountRepo.MarkEmailVerified(txCtx, account.ID, tokenHash, utils.UTCNow())
		if err != nil {
			return err
		}
		if !consumed {
			return ErrTokenInvalidOrExpired
		}

		account, err = s.accountRepo.ByID(txCtx, account.ID)
		if err != nil {
			return err
		}

		session, err = s.createSession(txCtx, account.ID, metadata)
		return err
	})

	if err != nil {
		errMsg := fmt.Sprintf("Email verification failed: %s", err.Error())
		_ = s.createAuditLog(ctx, account, models.AuditActionVerificationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("EMAIL_VERIFICATION_FAILED", "Email verification failed", err)
	}

	msg := fmt.Sprintf("Email verified successfully: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionEmailVerified, msg, true, nil, metadata)

	resp := &dto.VerifyEmailResponse{
		Message: "Email verified successfully",
		Account: ToAccountDTO(*account),
		Session: ToAccountSessionDTO(*session),
	}

	// Vendors continue to payment onboarding. Link creation is best-effort;
	// the vendor can always fetch a fresh link from the status endpoint.
	if account.IsVendor() && account.PaymentAccountID != nil {
		resp.RequiresOnboarding = true

		link, linkErr := s.gateway.CreateOnboardingLink(ctx, *account.PaymentAccountID)
		if linkErr != nil {
			errMsg := fmt.Sprintf("Failed to create onboarding link: %v", linkErr)
			_ = s.createAuditLog(ctx, account, models.AuditActionOnboardingLinkFailed, errMsg, false, &errMsg, metadata)
		} else {
			resp.OnboardingURL = link
		}
	}

	return resp, nil
}

// ResendVerification replaces the live verification token with a fresh one
func (s *SignupFlowImpl) ResendVerification(ctx context.Context, req *dto.ResendVerificationRequest, metadata *ClientMetadata) (*dto.ResendVerificationResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var account *models.Account
	var issued *IssuedToken

	err := s.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = s.accountRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrAccountNotFound
		}
		if account.IsVerified() {
			return ErrAlreadyVerified
		}
		if !utils.IsTrue(account.IsActive) {
			return ErrAccountInactive
		}

		issued, err = IssueToken(utils.VerificationTokenBytes, utils.VerificationTokenTTL)
		if err != nil {
			return err
		}

		// Overwriting the stored hash invalidates any previously mailed token
		return s.accountRepo.SetVerificationToken(txCtx, account.ID, issued.Hash, issued.ExpiresAt)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Verification resend failed: %s", err.Error())
		_ = s.createAuditLog(ctx, account, models.AuditActionVerificationFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("VERIFICATION_RESEND_FAILED", "Verification resend failed", err)
	}

	msg := fmt.Sprintf("Verification email resent: %d", account.ID)
	_ = s.createAuditLog(ctx, account, models.AuditActionVerificationResent, msg, true, nil, metadata)

	go func() {
		if err := s.mailer.SendVerificationEmail(email, account.Name, issued.Plaintext); err != nil {
			errMsg := fmt.Sprintf("Failed to send verification email: %v", err)
			_ = s.createAuditLog(context.Background(), account, models.AuditActionVerificationFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	return &dto.ResendVerificationResponse{
		Message:          "Verification email sent",
		VerificationSent: true,
	}, nil
}

// Private helper methods

func (s *SignupFlowImpl) validateRegisterRequest(ctx context.Context, req *dto.RegisterRequest) error {
	if req.Role != models.RoleCustomer && req.Role != models.RoleVendor {
		return ErrInvalidRole
	}

	if req.Role == models.RoleVendor {
		if strings.TrimSpace(req.BusinessName) == "" {
			return ErrBusinessNameRequired
		}
		if strings.TrimSpace(req.BusinessEmail) == "" {
			return ErrBusinessEmailRequired
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	existing, err := s.accountRepo.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrEmailAlreadyExists
	}

	return nil
}

func (s *SignupFlowImpl) createAccount(ctx context.Context, req *dto.RegisterRequest, email, tokenHash string, tokenExpiry time.Time) (*models.Account, error) {
	passwordHash, err := s.passwordSvc.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		UUID:                  uuid.New(),
		Role:                  req.Role,
		Name:                  strings.TrimSpace(req.Name),
		Email:                 email,
		PasswordHash:          passwordHash,
		IsEmailVerified:       utils.ToPtr(false),
		IsActive:              utils.ToPtr(true),
		VerificationToken:     &tokenHash,
		VerificationExpiresAt: &tokenExpiry,
	}

	if req.Phone != "" {
		account.Phone = utils.ToPtr(strings.TrimSpace(req.Phone))
	}

	if req.Role == models.RoleVendor {
		account.BusinessName = utils.ToPtr(strings.TrimSpace(req.BusinessName))
		account.BusinessEmail = utils.ToPtr(strings.ToLower(strings.TrimSpace(req.BusinessEmail)))
		if req.BusinessPhone != "" {
			account.BusinessPhone = utils.ToPtr(strings.TrimSpace(req.BusinessPhone))
		}
		if req.BusinessDescription != "" {
			account.BusinessDescription = utils.ToPtr(strings.TrimSpace(req.BusinessDescription))
		}
		if req.BusinessWebsite != "" {
			account.BusinessWebsite = utils.ToPtr(strings.TrimSpace(req.BusinessWebsite))
		}
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

func (s *SignupFlowImpl) createSession(ctx context.Context, accountID uint, metadata *ClientMetadata) (*models.AccountSession, error) {
	accessToken, refreshToken, err := s.tokenSvc.GenerateTokens(accountID)
	if err != nil {
		return nil, err
	}

	ipAddress := "127.0.0.1"
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	session := &models.AccountSession{
		CorrelationID: uuid.New(),
		AccountID:     accountID,
		SessionToken:  accessToken,
		RefreshToken:  &refreshToken,
		IPAddress:     &ipAddress,
		UserAgent:     &userAgent,
		IsActive:      utils.ToPtr(true),
		ExpiresAt:     utils.UTCNowAdd(utils.SessionTimeout),
	}

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (s *SignupFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return s.auditRepo.Save(ctx, audit)
}
