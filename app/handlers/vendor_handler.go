package handlers

import (
	"context"
	"log"
	"time"

	"github.com/amirphl/Susanoo/app/dto"
	businessflow "github.com/amirphl/Susanoo/business_flow"
	"github.com/gofiber/fiber/v3"
)

type VendorHandlerInterface interface {
	GetOnboardingStatus(c fiber.Ctx) error
}

type VendorHandler struct {
	flow businessflow.VendorFlow
}

func NewVendorHandler(flow businessflow.VendorFlow) *VendorHandler {
	return &VendorHandler{flow: flow}
}

func (h *VendorHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *VendorHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetOnboardingStatus returns the vendor's live payment onboarding stage
// @Summary Vendor onboarding status
// @Description Resolve the vendor's payment onboarding stage from the payment provider
// @Tags Vendor
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.VendorStatusResponse} "Status resolved successfully"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Account is not a vendor or email not verified"
// @Failure 409 {object} dto.APIResponse "Payment account not provisioned"
// @Failure 502 {object} dto.APIResponse "Payment provider unavailable"
// @Router /api/v1/vendor/status [get]
func (h *VendorHandler) GetOnboardingStatus(c fiber.Ctx) error {
	accountID, ok := c.Locals("account_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Account ID not found in context", "MISSING_ACCOUNT_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	res, err := h.flow.CheckOnboardingStatus(h.createRequestContext(c, "/api/v1/vendor/status"), accountID, metadata)
	if err != nil {
		if businessflow.IsAccountNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Account not found", dto.ErrorAccountNotFound, nil)
		}
		if businessflow.IsNotVendor(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Account is not a vendor", "NOT_VENDOR", nil)
		}
		if businessflow.IsEmailNotVerified(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Email address is not verified", dto.ErrorEmailNotVerified, nil)
		}
		if businessflow.IsPaymentAccountNotProvisioned(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Payment account not provisioned", "PAYMENT_ACCOUNT_NOT_PROVISIONED", nil)
		}

		log.Println("Vendor status check failed", err)
		return h.ErrorResponse(c, fiber.StatusBadGateway, "Failed to check vendor status", "VENDOR_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Vendor status resolved", res)
}

func (h *VendorHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
