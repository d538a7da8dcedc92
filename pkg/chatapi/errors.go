package chatapi

import "fmt"

// ErrorType categorizes an APIError for the error envelope's "type" field.
type ErrorType string

const (
	ErrorTypeInvalidRequest  ErrorType = "invalid_request"
	ErrorTypeNotFound        ErrorType = "not_found"
	ErrorTypeServerError     ErrorType = "server_error"
	ErrorTypeDetectionFailed ErrorType = "detection_failed"
	ErrorTypeScrubFailed     ErrorType = "scrub_failed"
)

// APIError is a structured error returned by the gateway's own endpoints
// (as opposed to a downstream LLM error relayed verbatim during passthrough).
type APIError struct {
	Type    ErrorType `json:"type"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the
// top-level error envelope.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{Type: ErrorTypeInvalidRequest, Param: param, Message: message}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{Type: ErrorTypeNotFound, Message: message}
}

func NewServerError(message string) *APIError {
	return &APIError{Type: ErrorTypeServerError, Message: message}
}

func NewDetectionFailedError(message string) *APIError {
	return &APIError{Type: ErrorTypeDetectionFailed, Message: message}
}

func NewScrubFailedError(message string) *APIError {
	return &APIError{Type: ErrorTypeScrubFailed, Message: message}
}
