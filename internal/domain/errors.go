package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes a failure from the reasoning engine or from request
// validation. All engine failures are terminal for the single call that
// produced them; the orchestrator decides whether to continue past them.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates malformed caller input, rejected
	// before any orchestration begins.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeInvalidCredentials indicates the engine rejected our
	// credentials.
	ErrorTypeInvalidCredentials ErrorType = "invalid_credentials"

	// ErrorTypeQuotaExceeded indicates the engine's quota or rate limit was
	// exhausted.
	ErrorTypeQuotaExceeded ErrorType = "quota_exceeded"

	// ErrorTypePermissionDenied indicates the caller lacks access to the
	// requested model or feature.
	ErrorTypePermissionDenied ErrorType = "permission_denied"

	// ErrorTypeContentBlocked indicates the engine refused the prompt on
	// safety grounds.
	ErrorTypeContentBlocked ErrorType = "content_blocked"

	// ErrorTypeTimeout indicates the gateway's 30 second bound elapsed
	// before the engine answered. Distinct from a provider-reported error.
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeProviderUnavailable indicates the engine was unreachable or
	// returned a server-side fault.
	ErrorTypeProviderUnavailable ErrorType = "provider_unavailable"

	// ErrorTypeInternal indicates an unexpected fault in the orchestration
	// loop itself; terminal for the session.
	ErrorTypeInternal ErrorType = "internal"
)

// AgentError is the canonical error for a failed engine call or a rejected
// request. It carries the taxonomy type so consumers can distinguish a bad
// request from every runtime category.
type AgentError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	// Role is the participant whose call failed, when role-scoped.
	Role Role `json:"role,omitempty"`
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Role, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode maps the error type to a suggested HTTP status.
func (e *AgentError) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeInvalidCredentials:
		return http.StatusUnauthorized
	case ErrorTypePermissionDenied, ErrorTypeContentBlocked:
		return http.StatusForbidden
	case ErrorTypeQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithRole attaches the failing participant to the error.
func (e *AgentError) WithRole(role Role) *AgentError {
	e.Role = role
	return e
}

// NewAgentError creates an AgentError of the given type.
func NewAgentError(errType ErrorType, message string) *AgentError {
	return &AgentError{Type: errType, Message: message}
}

// ErrInvalidRequest creates a caller-input validation error.
func ErrInvalidRequest(message string) *AgentError {
	return NewAgentError(ErrorTypeInvalidRequest, message)
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *AgentError {
	return NewAgentError(ErrorTypeTimeout, message)
}

// ErrProviderUnavailable creates a provider-unavailable error.
func ErrProviderUnavailable(message string) *AgentError {
	return NewAgentError(ErrorTypeProviderUnavailable, message)
}

// ErrContentBlocked creates a content-blocked error.
func ErrContentBlocked(message string) *AgentError {
	return NewAgentError(ErrorTypeContentBlocked, message)
}

// ErrInternal creates an internal orchestration error.
func ErrInternal(message string) *AgentError {
	return NewAgentError(ErrorTypeInternal, message)
}

// TypeOf extracts the taxonomy type from err, or ErrorTypeProviderUnavailable
// when err is not an AgentError.
func TypeOf(err error) ErrorType {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae.Type
	}
	return ErrorTypeProviderUnavailable
}
