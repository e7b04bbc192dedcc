package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a WeatherError for programmatic handling.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "NOT_FOUND"
	KindDuplicate        ErrorKind = "DUPLICATE"
	KindExternalAPIError ErrorKind = "EXTERNAL_API_ERROR"
	KindRateLimited      ErrorKind = "RATE_LIMITED"
	KindInvalidCity      ErrorKind = "INVALID_CITY"
	KindInvalidInput     ErrorKind = "INVALID_INPUT"
)

// Detail codes for KindExternalAPIError.
const (
	CodeInvalidResponse     = "INVALID_RESPONSE"
	CodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
)

// Sentinels for errors.Is. A sentinel without a Code matches every error of its kind.
var (
	ErrNotFound            = &WeatherError{Kind: KindNotFound}
	ErrDuplicate           = &WeatherError{Kind: KindDuplicate}
	ErrExternalAPI         = &WeatherError{Kind: KindExternalAPIError}
	ErrInvalidResponse     = &WeatherError{Kind: KindExternalAPIError, Code: CodeInvalidResponse}
	ErrProviderUnavailable = &WeatherError{Kind: KindExternalAPIError, Code: CodeProviderUnavailable}
	ErrRateLimited         = &WeatherError{Kind: KindRateLimited}
	ErrInvalidCity         = &WeatherError{Kind: KindInvalidCity}
	ErrInvalidInput        = &WeatherError{Kind: KindInvalidInput}
)

// WeatherError represents domain-specific errors that can occur during weather operations.
// It provides structured error information with a kind, a detail code and an optional cause.
type WeatherError struct {
	// Kind is the error category the HTTP boundary maps to a status code
	Kind ErrorKind

	// Code refines Kind; it equals Kind except for external API errors
	Code string

	// Message provides a human-readable error description
	Message string

	// Cause wraps an underlying error if applicable
	Cause error
}

// Error implements the error interface for WeatherError.
// It formats the error message to include the code, message, and underlying cause.
func (e *WeatherError) Error() string {
	code := e.Code
	if code == "" {
		code = string(e.Kind)
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", code, e.Message, e.Cause)
	}

	return fmt.Sprintf("%s: %s", code, e.Message)
}

func (e *WeatherError) Unwrap() error {
	return e.Cause
}

// Is matches another WeatherError by kind, and by code when the target carries one.
func (e *WeatherError) Is(target error) bool {
	t, ok := target.(*WeatherError)
	if !ok {
		return false
	}

	if t.Kind != e.Kind {
		return false
	}

	return t.Code == "" || t.Code == e.Code
}

// KindOf returns the kind of the first WeatherError in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *WeatherError
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}

// CodeOf returns the detail code of the first WeatherError in err's chain, or "".
func CodeOf(err error) string {
	var e *WeatherError
	if errors.As(err, &e) {
		if e.Code != "" {
			return e.Code
		}

		return string(e.Kind)
	}

	return ""
}

// IsKind reports whether err carries a WeatherError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func NotFound(resource, id string) *WeatherError {
	return &WeatherError{
		Kind:    KindNotFound,
		Code:    string(KindNotFound),
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

func Duplicate(message string) *WeatherError {
	return &WeatherError{Kind: KindDuplicate, Code: string(KindDuplicate), Message: message}
}

func InvalidInput(message string, cause error) *WeatherError {
	return &WeatherError{Kind: KindInvalidInput, Code: string(KindInvalidInput), Message: message, Cause: cause}
}

// InvalidCity reports a search that matched no city.
func InvalidCity(query string) *WeatherError {
	return &WeatherError{
		Kind:    KindInvalidCity,
		Code:    string(KindInvalidCity),
		Message: fmt.Sprintf("no city found matching %q", query),
	}
}

func RateLimited(message string) *WeatherError {
	return &WeatherError{Kind: KindRateLimited, Code: string(KindRateLimited), Message: message}
}

// InvalidResponse reports a provider rejection of the request (non-429 4xx).
func InvalidResponse(message string, cause error) *WeatherError {
	return &WeatherError{Kind: KindExternalAPIError, Code: CodeInvalidResponse, Message: message, Cause: cause}
}

// ProviderUnavailable reports a transport failure, timeout, 5xx or unusable body.
func ProviderUnavailable(message string, cause error) *WeatherError {
	return &WeatherError{Kind: KindExternalAPIError, Code: CodeProviderUnavailable, Message: message, Cause: cause}
}
