package handler

import "github.com/flowdesk/backend/internal/interfaces/http/dto"

// APIResponse represents a success envelope for OpenAPI documentation
// @Description Standard success envelope with typed data field
type APIResponse[T any] struct {
	Status string    `json:"status" example:"ok"`
	Data   T         `json:"data,omitempty"`
	Meta   *dto.Meta `json:"meta,omitempty"`
}

// ErrorResponse represents an error envelope for OpenAPI documentation
// @Description Standard error envelope. errors maps input fields (or "root") to messages.
type ErrorResponse struct {
	Status    string            `json:"status" example:"error"`
	Code      string            `json:"code" example:"VALIDATION_ERROR"`
	Errors    map[string]string `json:"errors"`
	RequestID string            `json:"request_id,omitempty"`
}

// HealthData reports the state of each dependency
// @Description Health check result
type HealthData struct {
	Status   string            `json:"status" example:"healthy"`
	Version  string            `json:"version" example:"1.0.0"`
	Checks   map[string]string `json:"checks"`
	Duration string            `json:"duration" example:"2.1ms"`
}

// WebhookData acknowledges a Stripe event
// @Description Stripe webhook acknowledgement
type WebhookData struct {
	Received  bool   `json:"received" example:"true"`
	EventID   string `json:"event_id,omitempty" example:"evt_1234567890"`
	EventType string `json:"event_type,omitempty" example:"customer.subscription.updated"`
	Message   string `json:"message,omitempty"`
}
