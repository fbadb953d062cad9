package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorType classifies gateway failures.
type ErrorType string

const (
	// ErrorTypeProvider indicates an upstream provider failure or an
	// upstream reply that violates the expected contract.
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeRateLimit indicates an upstream 429.
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInvalidRequest indicates a caller error (4xx).
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAuthentication indicates rejected credentials (401/403).
	ErrorTypeAuthentication ErrorType = "authentication_error"
	// ErrorTypeNotFound indicates a missing resource (404).
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeConfiguration indicates the gateway itself is misconfigured,
	// e.g. media persistence requested without a storage backend.
	ErrorTypeConfiguration ErrorType = "configuration_error"
)

// ErrConfiguration is matched by every configuration GatewayError via errors.Is.
var ErrConfiguration = errors.New("gateway configuration error")

// GatewayError is the error type returned by every gateway component.
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	// Code is the upstream error code when one was reported.
	Code string `json:"code,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrConfiguration) match configuration errors.
func (e *GatewayError) Is(target error) bool {
	return target == ErrConfiguration && e.Type == ErrorTypeConfiguration
}

// HTTPStatusCode returns the status code to answer the caller with.
func (e *GatewayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to its client-facing body.
func (e *GatewayError) ToJSON() map[string]any {
	body := map[string]any{
		"type":    e.Type,
		"message": e.Message,
	}
	if e.Provider != "" {
		body["provider"] = e.Provider
	}
	if e.Code != "" {
		body["code"] = e.Code
	}
	return map[string]any{"error": body}
}

// NewProviderError creates a provider error.
func NewProviderError(provider string, statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Provider:   provider,
	}
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(message string, err error) *GatewayError {
	return NewInvalidRequestErrorWithStatus(http.StatusBadRequest, message, err)
}

// NewInvalidRequestErrorWithStatus creates an invalid request error with a specific status code.
func NewInvalidRequestErrorWithStatus(statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewAuthenticationError creates an authentication error (401).
func NewAuthenticationError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Provider:   provider,
	}
}

// NewNotFoundError creates a not found error (404).
func NewNotFoundError(message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConfigurationError creates a configuration error (500).
func NewConfigurationError(message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// ParseProviderError maps a non-2xx upstream reply to a GatewayError.
// The message is taken from the first of error.message, error (string),
// detail and message; the raw body is used when none is present.
func ParseProviderError(provider string, statusCode int, body []byte, originalErr error) *GatewayError {
	message := strings.TrimSpace(string(body))
	code := ""
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, path := range []string{"error.message", "error", "detail", "message"} {
			if v := parsed.Get(path); v.Type == gjson.String && v.Str != "" {
				message = v.Str
				break
			}
		}
		if c := parsed.Get("error.code"); c.Exists() && c.Type != gjson.Null {
			code = c.String()
		}
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	var gwErr *GatewayError
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		gwErr = NewAuthenticationError(provider, message)
		gwErr.Err = originalErr
	case statusCode == http.StatusTooManyRequests:
		gwErr = NewRateLimitError(provider, message)
		gwErr.Err = originalErr
	case statusCode == http.StatusNotFound:
		gwErr = NewNotFoundError(message)
		gwErr.Provider = provider
		gwErr.Err = originalErr
	case statusCode >= 400 && statusCode < 500:
		// keep the upstream status so callers see the real 4xx
		gwErr = NewInvalidRequestErrorWithStatus(statusCode, message, originalErr)
		gwErr.Provider = provider
	default:
		gwErr = NewProviderError(provider, http.StatusBadGateway, message, originalErr)
	}
	gwErr.Code = code
	return gwErr
}
