package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/Susanoo/app/services"
	"github.com/amirphl/Susanoo/models"
	"github.com/amirphl/Susanoo/repository"
	"github.com/amirphl/Susanoo/utils"
)

// In-memory doubles for the repository and service layers. They reproduce the
// guarded-update semantics of the SQL implementations so race and single-use
// behavior can be exercised without a database.

type noopTxManager struct{}

func (noopTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeAccountRepo

type fakeAccountRepo struct {
	mu     sync.Mutex
	nextID uint
	byID   map[uint]*models.Account

	saveErr error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{nextID: 1, byID: map[uint]*models.Account{}}
}

func (r *fakeAccountRepo) clone(a *models.Account) *models.Account {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func (r *fakeAccountRepo) ByID(ctx context.Context, id uint) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clone(r.byID[id]), nil
}

func (r *fakeAccountRepo) ByFilter(ctx context.Context, filter models.AccountFilter, orderBy string, limit, offset int) ([]*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Account
	for _, a := range r.byID {
		if filter.Email != nil && a.Email != *filter.Email {
			continue
		}
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		out = append(out, r.clone(a))
	}
	return out, nil
}

func (r *fakeAccountRepo) Save(ctx context.Context, entity *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if entity.ID == 0 {
		for _, a := range r.byID {
			if a.Email == entity.Email {
				return repository.ErrDuplicateEmail
			}
		}
		entity.ID = r.nextID
		r.nextID++
		entity.CreatedAt = utils.UTCNow()
	}
	entity.UpdatedAt = utils.UTCNow()
	r.byID[entity.ID] = r.clone(entity)
	return nil
}

func (r *fakeAccountRepo) SaveBatch(ctx context.Context, entities []*models.Account) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAccountRepo) Count(ctx context.Context, filter models.AccountFilter) (int64, error) {
	list, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(list)), nil
}

func (r *fakeAccountRepo) Exists(ctx context.Context, filter models.AccountFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeAccountRepo) ByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.Email == email {
			return r.clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) ByUUID(ctx context.Context, uuid string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.UUID.String() == uuid {
			return r.clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) ByVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.VerificationToken != nil && *a.VerificationToken == tokenHash &&
			a.VerificationExpiresAt != nil && a.VerificationExpiresAt.After(now) {
			return r.clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) ByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if a.PasswordResetToken != nil && *a.PasswordResetToken == tokenHash &&
			a.PasswordResetExpiresAt != nil && a.PasswordResetExpiresAt.After(now) {
			return r.clone(a), nil
		}
	}
	return nil, nil
}

func (r *fakeAccountRepo) SetVerificationToken(ctx context.Context, accountID uint, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return errors.New("account not found")
	}
	a.VerificationToken = &tokenHash
	a.VerificationExpiresAt = &expiresAt
	return nil
}

func (r *fakeAccountRepo) MarkEmailVerified(ctx context.Context, accountID uint, tokenHash string, verifiedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok || a.VerificationToken == nil || *a.VerificationToken != tokenHash {
		return false, nil
	}
	a.IsEmailVerified = utils.ToPtr(true)
	a.EmailVerifiedAt = &verifiedAt
	a.VerificationToken = nil
	a.VerificationExpiresAt = nil
	return true, nil
}

func (r *fakeAccountRepo) SetResetToken(ctx context.Context, accountID uint, tokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return errors.New("account not found")
	}
	a.PasswordResetToken = &tokenHash
	a.PasswordResetExpiresAt = &expiresAt
	return nil
}

func (r *fakeAccountRepo) ResetPasswordByToken(ctx context.Context, accountID uint, tokenHash, newPasswordHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok || a.PasswordResetToken == nil || *a.PasswordResetToken != tokenHash {
		return false, nil
	}
	a.PasswordHash = newPasswordHash
	a.PasswordResetToken = nil
	a.PasswordResetExpiresAt = nil
	return true, nil
}

func (r *fakeAccountRepo) UpdatePassword(ctx context.Context, accountID uint, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return errors.New("account not found")
	}
	a.PasswordHash = passwordHash
	return nil
}

func (r *fakeAccountRepo) UpdateProfile(ctx context.Context, accountID uint, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return errors.New("account not found")
	}
	for col, val := range updates {
		s, _ := val.(string)
		switch col {
		case "name":
			a.Name = s
		case "phone":
			a.Phone = &s
		case "business_name":
			a.BusinessName = &s
		case "business_email":
			a.BusinessEmail = &s
		case "business_phone":
			a.BusinessPhone = &s
		case "business_description":
			a.BusinessDescription = &s
		case "business_website":
			a.BusinessWebsite = &s
		default:
			return fmt.Errorf("unexpected update column %q", col)
		}
	}
	return nil
}

func (r *fakeAccountRepo) SetPaymentAccountID(ctx context.Context, accountID uint, paymentAccountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return errors.New("account not found")
	}
	a.PaymentAccountID = &paymentAccountID
	return nil
}

func (r *fakeAccountRepo) UpdateLastLogin(ctx context.Context, accountID uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[accountID]
	if !ok {
		return errors.New("account not found")
	}
	a.LastLoginAt = &at
	return nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, accountID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, accountID)
	return nil
}

// fakeSessionRepo

type fakeSessionRepo struct {
	mu       sync.Mutex
	nextID   uint
	sessions map[uint]*models.AccountSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{nextID: 1, sessions: map[uint]*models.AccountSession{}}
}

func (r *fakeSessionRepo) ByID(ctx context.Context, id uint) (*models.AccountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) ByFilter(ctx context.Context, filter models.AccountSessionFilter, orderBy string, limit, offset int) ([]*models.AccountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AccountSession
	for _, s := range r.sessions {
		if filter.AccountID != nil && s.AccountID != *filter.AccountID {
			continue
		}
		if filter.IsActive != nil && utils.IsTrue(s.IsActive) != *filter.IsActive {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSessionRepo) Save(ctx context.Context, entity *models.AccountSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entity.ID == 0 {
		entity.ID = r.nextID
		r.nextID++
		entity.CreatedAt = utils.UTCNow()
	}
	cp := *entity
	r.sessions[entity.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) SaveBatch(ctx context.Context, entities []*models.AccountSession) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, filter models.AccountSessionFilter) (int64, error) {
	list, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(list)), nil
}

func (r *fakeSessionRepo) Exists(ctx context.Context, filter models.AccountSessionFilter) (bool, error) {
	n, _ := r.Count(ctx, filter)
	return n > 0, nil
}

func (r *fakeSessionRepo) BySessionToken(ctx context.Context, token string) (*models.AccountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.SessionToken == token && utils.IsTrue(s.IsActive) && s.ExpiresAt.After(utils.UTCNow()) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) ByRefreshToken(ctx context.Context, token string) (*models.AccountSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RefreshToken != nil && *s.RefreshToken == token && utils.IsTrue(s.IsActive) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) ListActiveSessionsByAccount(ctx context.Context, accountID uint) ([]*models.AccountSession, error) {
	active := true
	return r.ByFilter(ctx, models.AccountSessionFilter{AccountID: &accountID, IsActive: &active}, "", 0, 0)
}

func (r *fakeSessionRepo) ExpireSession(ctx context.Context, sessionID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[sessionID]; ok {
		s.IsActive = utils.ToPtr(false)
	}
	return nil
}

func (r *fakeSessionRepo) ExpireAllAccountSessions(ctx context.Context, accountID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.AccountID == accountID {
			s.IsActive = utils.ToPtr(false)
		}
	}
	return nil
}

func (r *fakeSessionRepo) CleanupExpiredSessions(ctx context.Context) error {
	return nil
}

// fakeAuditRepo

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) ByID(ctx context.Context, id uint) (*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ByFilter(ctx context.Context, filter models.AuditLogFilter, orderBy string, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) Save(ctx context.Context, entity *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entity
	r.entries = append(r.entries, &cp)
	return nil
}

func (r *fakeAuditRepo) SaveBatch(ctx context.Context, entities []*models.AuditLog) error {
	for _, e := range entities {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, filter models.AuditLogFilter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) Exists(ctx context.Context, filter models.AuditLogFilter) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries) > 0, nil
}

func (r *fakeAuditRepo) ListByAccount(ctx context.Context, accountID uint, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) ListSecurityEvents(ctx context.Context, limit, offset int) ([]*models.AuditLog, error) {
	return nil, nil
}

func (r *fakeAuditRepo) hasAction(action string) bool {
	list, _ := r.ListByAction(context.Background(), action, 0, 0)
	return len(list) > 0
}

// fakeTokenService

type fakeTokenService struct {
	mu      sync.Mutex
	counter int
	revoked map[string]bool
	genErr  error
}

func newFakeTokenService() *fakeTokenService {
	return &fakeTokenService{revoked: map[string]bool{}}
}

func (s *fakeTokenService) GenerateTokens(accountID uint) (string, string, error) {
	if s.genErr != nil {
		return "", "", s.genErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return fmt.Sprintf("access-%d-%d", accountID, s.counter), fmt.Sprintf("refresh-%d-%d", accountID, s.counter), nil
}

func (s *fakeTokenService) ValidateToken(token string) (*services.TokenClaims, error) {
	if s.revoked[token] {
		return nil, services.ErrTokenRevoked
	}
	if !strings.HasPrefix(token, "access-") {
		return nil, services.ErrTokenInvalid
	}
	return &services.TokenClaims{TokenType: "access"}, nil
}

func (s *fakeTokenService) RefreshToken(refreshToken string) (string, string, error) {
	return s.GenerateTokens(0)
}

func (s *fakeTokenService) RevokeToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
	return nil
}

func (s *fakeTokenService) GetTokenClaims(token string) (*services.TokenClaims, error) {
	return &services.TokenClaims{}, nil
}

func (s *fakeTokenService) IsTokenRevoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token]
}

// fakePasswordService avoids bcrypt cost in unit tests

type fakePasswordService struct{}

func (fakePasswordService) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakePasswordService) Matches(password, hash string) bool {
	return hash == "hashed:"+password
}

// fakeMailer captures outgoing tokens

type fakeMailer struct {
	mu                 sync.Mutex
	verificationTokens []string
	resetTokens        []string
	sendErr            error
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{}
}

func (m *fakeMailer) SendVerificationEmail(email, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.verificationTokens = append(m.verificationTokens, token)
	return nil
}

func (m *fakeMailer) SendPasswordResetEmail(email, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.resetTokens = append(m.resetTokens, token)
	return nil
}

func (m *fakeMailer) lastVerificationToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.verificationTokens) == 0 {
		return ""
	}
	return m.verificationTokens[len(m.verificationTokens)-1]
}

func (m *fakeMailer) lastResetToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.resetTokens) == 0 {
		return ""
	}
	return m.resetTokens[len(m.resetTokens)-1]
}

// fakeGateway allows scripted failures per call

type fakeGateway struct {
	mu sync.Mutex

	createErr error
	linkErr   error
	statusErr error

	createdAccounts []string
	linkCalls       int
	status          services.MerchantAccountStatus
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{}
}

func (g *fakeGateway) CreateMerchantAccount(ctx context.Context, profile services.MerchantProfile) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	id := fmt.Sprintf("acct_test_%06d", len(g.createdAccounts)+1)
	g.createdAccounts = append(g.createdAccounts, id)
	return id, nil
}

func (g *fakeGateway) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.linkCalls++
	if g.linkErr != nil {
		return "", g.linkErr
	}
	return "https://onboarding.test/" + accountID, nil
}

func (g *fakeGateway) GetAccountStatus(ctx context.Context, accountID string) (*services.MerchantAccountStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	cp := g.status
	return &cp, nil
}
