package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("resource conflict")
)

// Spotify provider failures. Match with errors.Is; read status and body via *ProviderError.
var (
	ErrExchange     = errors.New("authorization code exchange rejected")
	ErrNotConnected = errors.New("spotify account not connected")
	ErrRefresh      = errors.New("token refresh rejected")
	ErrUpstream     = errors.New("upstream request failed")
)

// ProviderError carries the status and body returned by the provider.
type ProviderError struct {
	Kind   error
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%v: status %d", e.Kind, e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Kind
}

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
