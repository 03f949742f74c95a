package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeTooLarge    = "REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeSessionInvalid     = "SESSION_INVALID"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeCSRF               = "CSRF_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeInvalidEmail      = "INVALID_EMAIL"
	ErrCodeInvalidName       = "INVALID_NAME"
	ErrCodeInvalidPassword   = "INVALID_PASSWORD"
	ErrCodeResetTokenInvalid = "RESET_TOKEN_INVALID"
	ErrCodeLastOwner         = "LAST_OWNER"
	ErrCodeRoleInUse         = "ROLE_IN_USE"
	ErrCodeSystemRole        = "SYSTEM_ROLE"
	ErrCodePersonalTenant    = "PERSONAL_TENANT"
	ErrCodeNoWorkspace       = "NO_WORKSPACE"
	ErrCodePipelineArchived  = "PIPELINE_ARCHIVED"
	ErrCodeBillingDisabled   = "BILLING_DISABLED"
	ErrCodeNoSubscription    = "NO_SUBSCRIPTION"
	ErrCodeWebhookSignature  = "WEBHOOK_SIGNATURE_INVALID"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. The API only
// answers with 400, 401, 403, 404 and 500, plus 413 and 429 from the
// transport middleware.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeRateLimited: http.StatusTooManyRequests,
	ErrCodeTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeSessionNotFound:    http.StatusUnauthorized,
	ErrCodeSessionInvalid:     http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeCSRF:               http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusBadRequest,
	ErrCodeConcurrencyConflict: http.StatusBadRequest,

	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidState:      http.StatusBadRequest,
	ErrCodeInvalidEmail:      http.StatusBadRequest,
	ErrCodeInvalidName:       http.StatusBadRequest,
	ErrCodeInvalidPassword:   http.StatusBadRequest,
	ErrCodeResetTokenInvalid: http.StatusBadRequest,
	ErrCodeLastOwner:         http.StatusBadRequest,
	ErrCodeRoleInUse:         http.StatusBadRequest,
	ErrCodeSystemRole:        http.StatusBadRequest,
	ErrCodePersonalTenant:    http.StatusBadRequest,
	ErrCodeNoWorkspace:       http.StatusForbidden,
	ErrCodePipelineArchived:  http.StatusBadRequest,
	ErrCodeBillingDisabled:   http.StatusBadRequest,
	ErrCodeNoSubscription:    http.StatusBadRequest,
	ErrCodeWebhookSignature:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// fieldForCode attaches domain validation codes to the input field they
// describe, so clients can show them next to the form control
var fieldForCode = map[string]string{
	ErrCodeInvalidEmail:    "email",
	ErrCodeInvalidName:     "name",
	ErrCodeInvalidPassword: "password",
}

// ErrorField returns the response field key for a domain error code
func ErrorField(code string) string {
	if f, ok := fieldForCode[code]; ok {
		return f
	}
	return RootField
}
