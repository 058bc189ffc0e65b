package domain

import (
	"fmt"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeCatalog        = "CATALOG_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeDatabaseError  = "DATABASE_ERROR"
	ErrCodeEngine         = "ENGINE_ERROR"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeAuthentication = "AUTHENTICATION_ERROR"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// InputError is a precondition violation that makes a calculation impossible,
// such as a missing or non-positive chronological age.
type InputError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// Error implements the error interface
func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input for field '%s': %s", e.Field, e.Message)
}

// NewInputError creates a new InputError
func NewInputError(field, message string, value any) *InputError {
	return &InputError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// CatalogError reports an observation whose metric id has no definition in the
// catalog, or whose definition belongs to another category.
type CatalogError struct {
	Metric   MetricID `json:"metric"`
	Category Category `json:"category"`
}

// Error implements the error interface
func (e *CatalogError) Error() string {
	return fmt.Sprintf("metric %q is not defined for category %s", e.Metric, e.Category)
}
