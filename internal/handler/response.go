package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/soundspire/api/internal/domain"
)

// Envelope is the standard API response wrapper.
type Envelope struct {
	Data  any       `json:"data,omitempty"`
	Error *APIError `json:"error,omitempty"`
}

// APIError represents an error in the API response.
type APIError struct {
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Details  []FieldError     `json:"details,omitempty"`
	Upstream *UpstreamFailure `json:"upstream,omitempty"`
}

// FieldError represents a field-level validation error.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// UpstreamFailure is the Spotify response that caused a request to fail.
type UpstreamFailure struct {
	Status int    `json:"status"`
	Body   string `json:"body"`
}

// JSON writes a JSON response with the standard envelope.
func JSON(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Data: data})
}

// HTTPErrorHandler is the global error handler for echo.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, apiErr := mapError(err)
	if jsonErr := c.JSON(status, Envelope{Error: &apiErr}); jsonErr != nil {
		slog.Error("failed to send error response", "error", jsonErr)
	}
}

func mapError(err error) (int, APIError) {
	// Handle echo's own HTTP errors (404, 405, etc.)
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, _ := echoErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(echoErr.Code)
		}
		return echoErr.Code, APIError{
			Code:    http.StatusText(echoErr.Code),
			Message: msg,
		}
	}

	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		slog.Warn("spotify provider error",
			"kind", providerErr.Kind.Error(),
			"status", providerErr.Status,
			"body", providerErr.Body,
		)
	}

	switch {
	case errors.Is(err, domain.ErrNotConnected):
		return http.StatusConflict, APIError{
			Code:    "spotify_not_connected",
			Message: "Connect your Spotify account to continue",
		}
	case errors.Is(err, domain.ErrRefresh):
		return http.StatusUnauthorized, APIError{
			Code:    "spotify_reauthorize",
			Message: "Spotify access was revoked or expired, reconnect your account",
		}
	case errors.Is(err, domain.ErrExchange):
		return http.StatusBadRequest, APIError{
			Code:    "authorization_failed",
			Message: "Spotify rejected the authorization, start the connect flow again",
		}
	case errors.Is(err, domain.ErrUpstream):
		apiErr := APIError{
			Code:    "upstream_error",
			Message: "Spotify request failed",
		}
		if providerErr != nil {
			apiErr.Upstream = &UpstreamFailure{Status: providerErr.Status, Body: providerErr.Body}
		}
		return http.StatusBadGateway, apiErr
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "The requested resource was not found",
		}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, APIError{
			Code:    "unauthorized",
			Message: "Authentication is required",
		}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, APIError{
			Code:    "forbidden",
			Message: "You do not have permission to perform this action",
		}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, APIError{
			Code:    "invalid_input",
			Message: "The request is invalid",
		}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, APIError{
			Code:    "conflict",
			Message: "The resource already exists or conflicts with current state",
		}
	default:
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return http.StatusBadRequest, APIError{
				Code:    "validation_error",
				Message: "Validation failed",
				Details: []FieldError{
					{Field: validationErr.Field, Message: validationErr.Message},
				},
			}
		}

		slog.Error("unhandled error", "error", err)
		return http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: "An unexpected error occurred",
		}
	}
}
