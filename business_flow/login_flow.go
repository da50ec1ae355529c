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
	"github.com/google/uuid"
)

// LoginFlow handles authentication and the password reset lifecycle
type LoginFlow interface {
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error)
	Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
}

// LoginFlowImpl implements the login business flow
type LoginFlowImpl struct {
	accountRepo repository.AccountRepository
	sessionRepo repository.AccountSessionRepository
	auditRepo   repository.AuditLogRepository
	tokenSvc    services.TokenService
	passwordSvc services.PasswordService
	mailer      services.MailerService
	tx          repository.TransactionManager
}

// NewLoginFlow creates a new login flow instance
func NewLoginFlow(
	accountRepo repository.AccountRepository,
	sessionRepo repository.AccountSessionRepository,
	auditRepo repository.AuditLogRepository,
	tokenSvc services.TokenService,
	passwordSvc services.PasswordService,
	mailer services.MailerService,
	tx repository.TransactionManager,
) LoginFlow {
	return &LoginFlowImpl{
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		tokenSvc:    tokenSvc,
		passwordSvc: passwordSvc,
		mailer:      mailer,
		tx:          tx,
	}
}

// Login authenticates with email and password and opens a session.
// Unknown emails and wrong passwords fail with the same error so the
// response does not reveal which accounts exist.
func (lf *LoginFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var account *models.Account
	var session *models.AccountSession

	err := lf.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = lf.accountRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if account == nil {
			return ErrIncorrectCredentials
		}
		if !utils.IsTrue(account.IsActive) {
			return ErrAccountInactive
		}
		if !lf.passwordSvc.Matches(req.Password, account.PasswordHash) {
			return ErrIncorrectCredentials
		}

		// Verification gates login, never the other way around
		if !account.IsVerified() {
			return ErrEmailNotVerified
		}

		session, err = lf.createSession(txCtx, account.ID, metadata)
		if err != nil {
			return err
		}

		now := utils.UTCNow()
		if err := lf.accountRepo.UpdateLastLogin(txCtx, account.ID, now); err != nil {
			return err
		}
		account.LastLoginAt = &now

		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Login failed: %s", err.Error())
		_ = lf.createAuditLog(ctx, account, models.AuditActionLoginFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGIN_FAILED", "Login failed", err)
	}

	msg := fmt.Sprintf("Login successful: %d", account.ID)
	_ = lf.createAuditLog(ctx, account, models.AuditActionLoginSuccess, msg, true, nil, metadata)

	return &dto.LoginResponse{
		Message: "Login successful",
		Account: ToAccountDTO(*account),
		Session: ToAccountSessionDTO(*session),
	}, nil
}

// ForgotPassword issues a password reset token when the email belongs to an
// active account. The response is the same either way so the endpoint cannot
// be used to probe for registered emails.
func (lf *LoginFlowImpl) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest, metadata *ClientMetadata) (*dto.ForgotPasswordResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	uniformResponse := &dto.ForgotPasswordResponse{
		Message: "If that email is registered, a reset link has been sent",
	}

	var account *models.Account
	var issued *IssuedToken

	err := lf.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = lf.accountRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if account == nil || !utils.IsTrue(account.IsActive) {
			account = nil
			return nil
		}

		issued, err = IssueToken(utils.PasswordResetTokenBytes, utils.PasswordResetTokenTTL)
		if err != nil {
			return err
		}

		// A newer request invalidates the token from any earlier one
		return lf.accountRepo.SetResetToken(txCtx, account.ID, issued.Hash, issued.ExpiresAt)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Password reset request failed: %s", err.Error())
		_ = lf.createAuditLog(ctx, account, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("FORGOT_PASSWORD_FAILED", "Password reset request failed", err)
	}

	if account == nil {
		// No account behind the email. Same response, nothing else to do.
		return uniformResponse, nil
	}

	msg := fmt.Sprintf("Password reset requested: %d", account.ID)
	_ = lf.createAuditLog(ctx, account, models.AuditActionPasswordResetRequested, msg, true, nil, metadata)

	capturedAccount := account
	go func() {
		if err := lf.mailer.SendPasswordResetEmail(email, capturedAccount.Name, issued.Plaintext); err != nil {
			errMsg := fmt.Sprintf("Failed to send password reset email: %v", err)
			_ = lf.createAuditLog(context.Background(), capturedAccount, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)
		}
	}()

	return uniformResponse, nil
}

// ResetPassword consumes a reset token, stores the new password, and
// invalidates every open session for the account
func (lf *LoginFlowImpl) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest, metadata *ClientMetadata) (*dto.ResetPasswordResponse, error) {
	tokenHash := HashToken(req.Token)

	var account *models.Account
	changedAt := utils.UTCNow()

	err := lf.tx.Do(ctx, func(txCtx context.Context) error {
		var err error
		account, err = lf.accountRepo.ByResetToken(txCtx, tokenHash, utils.UTCNow())
		if err != nil {
			return err
		}
		if account == nil {
			return ErrTokenInvalidOrExpired
		}
		if !utils.IsTrue(account.IsActive) {
			return ErrAccountInactive
		}

		newHash, err := lf.passwordSvc.Hash(req.NewPassword)
		if err != nil {
			return err
		}

		// Guarded update: of two racing resets at most one consumes the token
		consumed, err := lf.accountRepo.ResetPasswordByToken(txCtx, account.ID, tokenHash, newHash)
		if err != nil {
			return err
		}
		if !consumed {
			return ErrTokenInvalidOrExpired
		}

		// Stolen-session cutoff: every previously issued session dies here
		return lf.sessionRepo.ExpireAllAccountSessions(txCtx, account.ID)
	})

	if err != nil {
		errMsg := fmt.Sprintf("Password reset failed: %s", err.Error())
		_ = lf.createAuditLog(ctx, account, models.AuditActionPasswordResetFailed, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("RESET_PASSWORD_FAILED", "Password reset failed", err)
	}

	msg := fmt.Sprintf("Password reset completed: %d", account.ID)
	_ = lf.createAuditLog(ctx, account, models.AuditActionPasswordResetCompleted, msg, true, nil, metadata)

	return &dto.ResetPasswordResponse{
		Message:           "New password saved",
		PasswordChangedAt: changedAt.Format("2006-01-02T15:04:05Z07:00"),
	}, nil
}

// Logout revokes the access token and expires its session record
func (lf *LoginFlowImpl) Logout(ctx context.Context, accessToken string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	var account *models.Account

	err := lf.tx.Do(ctx, func(txCtx context.Context) error {
		session, err := lf.sessionRepo.BySessionToken(txCtx, accessToken)
		if err != nil {
			return err
		}
		if session != nil {
			account = &session.Account
			if err := lf.sessionRepo.ExpireSession(txCtx, session.ID); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		errMsg := fmt.Sprintf("Logout failed: %s", err.Error())
		_ = lf.createAuditLog(ctx, account, models.AuditActionLogout, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}

	// Revocation lives in the token store, outside the DB transaction
	if err := lf.tokenSvc.RevokeToken(accessToken); err != nil {
		errMsg := fmt.Sprintf("Failed to revoke access token: %v", err)
		_ = lf.createAuditLog(ctx, account, models.AuditActionLogout, errMsg, false, &errMsg, metadata)
	}

	msg := "Logout successful"
	_ = lf.createAuditLog(ctx, account, models.AuditActionLogout, msg, true, nil, metadata)

	return &dto.LogoutResponse{
		Message: "Logged out successfully",
	}, nil
}

// Private helper methods

func (lf *LoginFlowImpl) createSession(ctx context.Context, accountID uint, metadata *ClientMetadata) (*models.AccountSession, error) {
	accessToken, refreshToken, err := lf.tokenSvc.GenerateTokens(accountID)
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

	if err := lf.sessionRepo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

func (lf *LoginFlowImpl) createAuditLog(ctx context.Context, account *models.Account, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
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

	return lf.auditRepo.Save(ctx, audit)
}
