package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

const stateCookieMaxAge = 600

// issueState creates an anti-forgery state value and remembers it in a short-lived cookie.
func issueState(c echo.Context, name, path string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    state,
		Path:     path,
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   stateCookieMaxAge,
	})
	return state, nil
}

// verifyState compares the state returned by the provider with the cookie value.
func verifyState(c echo.Context, name, got string) error {
	cookie, err := c.Cookie(name)
	if err != nil || cookie.Value == "" {
		return fmt.Errorf("missing %s cookie", name)
	}
	if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(cookie.Value)) != 1 {
		return fmt.Errorf("state mismatch")
	}
	return nil
}

func clearState(c echo.Context, name, path string) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		HttpOnly: true,
		Secure:   c.IsTLS(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
