// Package businessflow contains the core business logic and use cases for identity workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Account-related errors
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountInactive       = errors.New("account is inactive")
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrIncorrectCredentials  = errors.New("incorrect email or password")
	ErrEmailNotVerified      = errors.New("email is not verified")
	ErrAlreadyVerified       = errors.New("already verified")
	ErrInvalidRole           = errors.New("invalid account role")
	ErrBusinessNameRequired  = errors.New("business name is required for vendor accounts")
	ErrBusinessEmailRequired = errors.New("business email is required for vendor accounts")

	// Token-related errors. The lookup distinguishes mismatch from expiry for
	// audit purposes; callers surface both as the same external failure.
	ErrTokenInvalidOrExpired = errors.New("invalid or expired token")

	// Password-related errors
	ErrPasswordUnchanged = errors.New("new password must differ from the current password")

	// Vendor onboarding errors
	ErrNotVendor                    = errors.New("account is not a vendor")
	ErrPaymentAccountNotProvisioned = errors.New("vendor payment account is not provisioned")
	ErrVendorAccountSetupFailed     = errors.New("vendor account setup failed")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsAccountInactive(err error) bool {
	return errors.Is(err, ErrAccountInactive)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsIncorrectCredentials(err error) bool {
	return errors.Is(err, ErrIncorrectCredentials)
}

func IsEmailNotVerified(err error) bool {
	return errors.Is(err, ErrEmailNotVerified)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsInvalidRole(err error) bool {
	return errors.Is(err, ErrInvalidRole)
}

func IsBusinessNameRequired(err error) bool {
	return errors.Is(err, ErrBusinessNameRequired)
}

func IsBusinessEmailRequired(err error) bool {
	return errors.Is(err, ErrBusinessEmailRequired)
}

func IsTokenInvalidOrExpired(err error) bool {
	return errors.Is(err, ErrTokenInvalidOrExpired)
}

func IsPasswordUnchanged(err error) bool {
	return errors.Is(err, ErrPasswordUnchanged)
}

func IsNotVendor(err error) bool {
	return errors.Is(err, ErrNotVendor)
}

func IsPaymentAccountNotProvisioned(err error) bool {
	return errors.Is(err, ErrPaymentAccountNotProvisioned)
}

func IsVendorAccountSetupFailed(err error) bool {
	return errors.Is(err, ErrVendorAccountSetupFailed)
}
