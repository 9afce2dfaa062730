package sparkai

import (
	"errors"
	"fmt"
)

// CodeInsufficientCredits is the error code the backend attaches to quota failures
const CodeInsufficientCredits = "insufficient_credits"

// APIError represents a generic API error
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError represents a 401 error
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("Authentication error: %s", e.Message)
}

// PermissionError represents a 403 error
type PermissionError struct {
	APIError
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("Permission denied: %s", e.Message)
}

// NotFoundError represents a 404 error
type NotFoundError struct {
	APIError
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Not found: %s", e.Message)
}

// ValidationError represents a 400 or 422 error
type ValidationError struct {
	APIError
	Errors map[string]interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation error: %s", e.Message)
}

// RateLimitError represents a 429 error
type RateLimitError struct {
	APIError
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", e.RetryAfter)
}

// InsufficientCreditsError represents an exhausted usage quota
type InsufficientCreditsError struct {
	APIError
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("Insufficient credits: %s", e.Message)
}

// NetworkError wraps transport failures: refused connections, timeouts,
// unreadable bodies.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsPermissionError checks if an error is a permission error
func IsPermissionError(err error) bool {
	var target *PermissionError
	return errors.As(err, &target)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	var target *RateLimitError
	return errors.As(err, &target)
}

// IsInsufficientCreditsError checks if an error is an insufficient credits error
func IsInsufficientCreditsError(err error) bool {
	var target *InsufficientCreditsError
	return errors.As(err, &target)
}

// IsNetworkError checks if an error is a transport failure
func IsNetworkError(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// ErrorKind is the discriminated class of a failed call
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindValidation          ErrorKind = "validation"
	KindUnauthorized        ErrorKind = "unauthorized"
	KindInsufficientCredits ErrorKind = "insufficient_credits"
	KindNotFound            ErrorKind = "not_found"
	KindNetwork             ErrorKind = "network"
	KindBackend             ErrorKind = "backend"
)

// KindOf classifies err. Errors from outside this package that expose a
// Kind() method are honored so callers can layer their own validation errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var kinded interface{ Kind() ErrorKind }
	switch {
	case errors.As(err, &kinded):
		return kinded.Kind()
	case IsInsufficientCreditsError(err):
		return KindInsufficientCredits
	case IsAuthenticationError(err):
		return KindUnauthorized
	case IsValidationError(err):
		return KindValidation
	case IsNotFoundError(err):
		return KindNotFound
	case IsNetworkError(err):
		return KindNetwork
	default:
		return KindBackend
	}
}

// Message returns the backend-supplied message when err came from the API,
// falling back to err.Error().
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	var creditsErr *InsufficientCreditsError
	if errors.As(err, &creditsErr) {
		return creditsErr.Message
	}
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	var permErr *PermissionError
	if errors.As(err, &permErr) {
		return permErr.Message
	}
	var nfErr *NotFoundError
	if errors.As(err, &nfErr) {
		return nfErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Message
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr.Message
	}
	return err.Error()
}
