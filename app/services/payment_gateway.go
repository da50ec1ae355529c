// Package services provides external service integrations and technical concerns like payments and tokens
package services

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// MerchantProfile carries the vendor details used to provision a payment sub-account
type MerchantProfile struct {
	Email               string
	BusinessName        string
	BusinessDescription string
	BusinessWebsite     string
	Country             string
}

// MerchantAccountStatus reflects the provider's view of a vendor sub-account
type MerchantAccountStatus struct {
	DetailsSubmitted bool
	ChargesEnabled   bool
	PayoutsEnabled   bool
	CurrentlyDue     []string
}

// PaymentGateway abstracts the payment provider used for vendor sub-accounts
type PaymentGateway interface {
	// CreateMerchantAccount provisions a new sub-account and returns its provider ID
	CreateMerchantAccount(ctx context.Context, profile MerchantProfile) (string, error)

	// CreateOnboardingLink returns a short-lived URL where the vendor completes onboarding
	CreateOnboardingLink(ctx context.Context, accountID string) (string, error)

	// GetAccountStatus fetches the current capability state of a sub-account
	GetAccountStatus(ctx context.Context, accountID string) (*MerchantAccountStatus, error)
}

// MockPaymentGateway is a development/test gateway that provisions in memory
type MockPaymentGateway struct {
	mu       sync.Mutex
	counter  int
	statuses map[string]*MerchantAccountStatus
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{
		statuses: make(map[string]*MerchantAccountStatus),
	}
}

func (g *MockPaymentGateway) CreateMerchantAccount(ctx context.Context, profile MerchantProfile) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.counter++
	accountID := fmt.Sprintf("acct_mock_%06d", g.counter)
	g.statuses[accountID] = &MerchantAccountStatus{}

	log.Printf("MOCK GATEWAY: created merchant account %s for %s", accountID, profile.Email)
	return accountID, nil
}

func (g *MockPaymentGateway) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	log.Printf("MOCK GATEWAY: created onboarding link for %s", accountID)
	return "https://onboarding.example.com/" + accountID, nil
}

func (g *MockPaymentGateway) GetAccountStatus(ctx context.Context, accountID string) (*MerchantAccountStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.statuses[accountID]
	if !ok {
		return nil, fmt.Errorf("mock gateway: unknown account %s", accountID)
	}

	copied := *status
	return &copied, nil
}

// SetAccountStatus lets tests and dev tooling advance a mock account through onboarding
func (g *MockPaymentGateway) SetAccountStatus(accountID string, status MerchantAccountStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses[accountID] = &status
}
