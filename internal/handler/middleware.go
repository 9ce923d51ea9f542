package handler

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soundspire/api/internal/domain"
	"github.com/soundspire/api/internal/metrics"
)

const (
	contextKeyUserID = "user_id"

	// accessTokenCookie carries the application JWT for browser navigations,
	// such as the redirect back from Spotify, that cannot set a header.
	accessTokenCookie = "access_token"
)

// TokenValidator resolves an application access token to a user ID.
type TokenValidator interface {
	ValidateToken(token string) (int64, error)
}

// RequestLogger logs each HTTP request with structured fields and counts it.
func RequestLogger(rec metrics.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			rec.RecordHTTPRequest(c.Request().Method, status)
			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)

			return nil
		}
	}
}

// JWTAuth validates the Bearer token, or the access token cookie when no header is
// present, and injects the user ID into echo context.
func JWTAuth(auth TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return domain.ErrUnauthorized
			}

			userID, err := auth.ValidateToken(token)
			if err != nil {
				return domain.ErrUnauthorized
			}

			c.Set(contextKeyUserID, userID)
			return next(c)
		}
	}
}

// GetUserID extracts the authenticated user ID from echo context.
func GetUserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(contextKeyUserID).(int64)
	return id, ok
}

func bearerToken(c echo.Context) (string, bool) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	cookie, err := c.Cookie(accessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
