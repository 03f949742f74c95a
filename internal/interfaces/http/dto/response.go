package dto

// Response statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// RootField keys error messages that do not belong to an input field
const RootField = "root"

const defaultPageSize = 20

// Response represents a standard API response
type Response struct {
	Status    string            `json:"status"`
	Data      any               `json:"data,omitempty"`
	Meta      *Meta             `json:"meta,omitempty"`
	Code      string            `json:"code,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Meta represents pagination metadata
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// NewSuccessResponseWithMeta creates a success response with pagination meta
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return Response{
		Status: StatusOK,
		Data:   data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}
}

// NewErrorResponse creates an error response with a single root message
func NewErrorResponse(code, message string) Response {
	return Response{
		Status: StatusError,
		Code:   code,
		Errors: map[string]string{RootField: message},
	}
}

// NewErrorResponseWithRequestID creates an error response tagged with the request id
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	resp := NewErrorResponse(code, message)
	resp.RequestID = requestID
	return resp
}

// NewValidationErrorResponse creates a 400 response with per-field messages
func NewValidationErrorResponse(fields map[string]string, requestID string) Response {
	if len(fields) == 0 {
		fields = map[string]string{RootField: "Request validation failed"}
	}
	return Response{
		Status:    StatusError,
		Code:      ErrCodeValidation,
		Errors:    fields,
		RequestID: requestID,
	}
}
