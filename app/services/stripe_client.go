package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StripeClient implements PaymentGateway against the Stripe Connect API.
// Requests are form-encoded per the Stripe wire protocol.
type StripeClient struct {
	BaseURL    string
	SecretKey  string
	ReturnURL  string
	RefreshURL string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewStripeClient(baseURL, secretKey, returnURL, refreshURL string, timeout time.Duration) *StripeClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	return &StripeClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SecretKey:  secretKey,
		ReturnURL:  returnURL,
		RefreshURL: refreshURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

func (c *StripeClient) Name() string { return "stripe" }

// Response envelopes
// Docs: https://docs.stripe.com/api/accounts and https://docs.stripe.com/api/account_links

type stripeAccountResp struct {
	ID               string `json:"id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	Requirements     struct {
		CurrentlyDue []string `json:"currently_due"`
	} `json:"requirements"`
}

type stripeAccountLinkResp struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

type stripeErrorResp struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMerchantAccount provisions an express account with card payments and transfers
func (c *StripeClient) CreateMerchantAccount(ctx context.Context, profile MerchantProfile) (string, error) {
	form := url.Values{}
	form.Set("type", "express")
	form.Set("email", profile.Email)
	form.Set("capabilities[card_payments][requested]", "true")
	form.Set("capabilities[transfers][requested]", "true")
	if profile.Country != "" {
		form.Set("country", profile.Country)
	}
	if profile.BusinessName != "" {
		form.Set("business_profile[name]", profile.BusinessName)
	}
	if profile.BusinessDescription != "" {
		form.Set("business_profile[product_description]", profile.BusinessDescription)
	}
	if profile.BusinessWebsite != "" {
		form.Set("business_profile[url]", profile.BusinessWebsite)
	}

	var out stripeAccountResp
	if err := c.postForm(ctx, "/v1/accounts", form, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("stripe: empty account id in response")
	}

	return out.ID, nil
}

// CreateOnboardingLink mints a fresh single-use account onboarding link
func (c *StripeClient) CreateOnboardingLink(ctx context.Context, accountID string) (string, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", errors.New("stripe: empty account id")
	}

	form := url.Values{}
	form.Set("account", accountID)
	form.Set("return_url", c.ReturnURL)
	form.Set("refresh_url", c.RefreshURL)
	form.Set("type", "account_onboarding")

	var out stripeAccountLinkResp
	if err := c.postForm(ctx, "/v1/account_links", form, &out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", errors.New("stripe: empty onboarding link in response")
	}

	return out.URL, nil
}

// GetAccountStatus fetches capability and requirement state for a sub-account
func (c *StripeClient) GetAccountStatus(ctx context.Context, accountID string) (*MerchantAccountStatus, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, errors.New("stripe: empty account id")
	}

	var out stripeAccountResp
	if err := c.getJSON(ctx, "/v1/accounts/"+accountID, &out); err != nil {
		return nil, err
	}

	return &MerchantAccountStatus{
		DetailsSubmitted: out.DetailsSubmitted,
		ChargesEnabled:   out.ChargesEnabled,
		PayoutsEnabled:   out.PayoutsEnabled,
		CurrentlyDue:     out.Requirements.CurrentlyDue,
	}, nil
}

// HTTP helpers

func (c *StripeClient) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *StripeClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.decodeError(resp, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *StripeClient) decodeError(resp *http.Response, path string) error {
	var stripeErr stripeErrorResp
	if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err == nil && stripeErr.Error.Message != "" {
		return fmt.Errorf("stripe: status %d for %s: %s", resp.StatusCode, path, stripeErr.Error.Message)
	}
	return fmt.Errorf("stripe: status %d for %s", resp.StatusCode, path)
}
