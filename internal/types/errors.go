package types

import "errors"

// ErrorKind is the machine-readable tag attached to API error responses
type ErrorKind string

const (
	InvalidInput           ErrorKind = "INVALID_INPUT"
	AuthenticationRequired ErrorKind = "AUTHENTICATION_REQUIRED"
	RateLimitExceeded      ErrorKind = "RATE_LIMIT_EXCEEDED"
	GenerationFailed       ErrorKind = "GENERATION_FAILED"
	ServiceUnavailable     ErrorKind = "SERVICE_UNAVAILABLE"
	NotFound               ErrorKind = "NOT_FOUND"
	InternalError          ErrorKind = "INTERNAL_ERROR"
)

var (
	ErrPromptRequired = errors.New("Prompt is required")
	ErrBudgetInvalid  = errors.New("Budget must be a positive number")
)

// ErrorResponse is the JSON body of every non-2xx response
type ErrorResponse struct {
	Error      string    `json:"error"`
	Type       ErrorKind `json:"type,omitempty"`
	RetryAfter int       `json:"retryAfter,omitempty"`
	Scope      string    `json:"scope,omitempty"`
}
