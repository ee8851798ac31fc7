package apierror

import (
	"encoding/json"
	"net/http"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int            `json:"-"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    []FieldError   `json:"details,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// WithDetails adds field-level error details.
func (e *Error) WithDetails(details ...FieldError) *Error {
	e.Details = details
	return e
}

// WithMeta attaches a machine readable value, e.g. a shortfall or a retry delay.
func (e *Error) WithMeta(key string, value any) *Error {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
	return e
}

type envelope struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// ToJSON renders the error inside the standard failure envelope.
func (e *Error) ToJSON() []byte {
	data, _ := json.Marshal(envelope{Success: false, Error: e})
	return data
}

// Write sends the error with its status code.
func (e *Error) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(e.ToJSON())
}

func newError(status int, code, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{StatusCode: status, Code: code, Message: message}
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message, "Bad request")
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return newError(http.StatusBadRequest, "VALIDATION_ERROR", message, "Validation failed").WithDetails(details...)
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	return newError(http.StatusUnauthorized, "UNAUTHORIZED", message, "Authentication required")
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	return newError(http.StatusNotFound, "NOT_FOUND", message, "Resource not found")
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return newError(http.StatusConflict, "CONFLICT", message, "Conflict")
}

// TooManyRequests creates a 429 error.
func TooManyRequests(message string) *Error {
	return newError(http.StatusTooManyRequests, "RATE_LIMITED", message, "Too many requests")
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", message, "An unexpected error occurred")
}

// ServiceUnavailable creates a 503 Service Unavailable error.
func ServiceUnavailable(message string) *Error {
	return newError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, "Service temporarily unavailable")
}

// Economy error codes.
const (
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeItemNotFound      = "ITEM_NOT_FOUND"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeSelfTransfer      = "SELF_TRANSFER"
	CodeAlreadyClaimed    = "ALREADY_CLAIMED"
)

// Domain creates an error with an economy code.
func Domain(status int, code, message string) *Error {
	return &Error{StatusCode: status, Code: code, Message: message}
}
