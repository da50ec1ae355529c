// Package dto contains Data Transfer Objects for API request and response structures
package dto

// Vendor onboarding stage constants
const (
	OnboardingStageRequired        = "onboarding_required"
	OnboardingStagePendingApproval = "pending_approval"
	OnboardingStageActive          = "active"
)

// VendorStatusResponse represents the vendor payment onboarding status
type VendorStatusResponse struct {
	Stage            string   `json:"stage" example:"pending_approval"`
	DetailsSubmitted bool     `json:"details_submitted" example:"true"`
	ChargesEnabled   bool     `json:"charges_enabled" example:"false"`
	PayoutsEnabled   bool     `json:"payouts_enabled" example:"false"`
	OnboardingURL    string   `json:"onboarding_url,omitempty"`
	CurrentlyDue     []string `json:"currently_due,omitempty"`
}
