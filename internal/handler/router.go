package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/soundspire/api/internal/metrics"
	"github.com/soundspire/api/internal/service"
)

// RouterConfig wires the handlers into an echo instance.
type RouterConfig struct {
	Auth        *service.AuthService
	Spotify     SpotifyAccounts
	SpotifyAPI  SpotifyAPI
	Metrics     metrics.Recorder
	FrontendURL string

	// MetricsHandler serves /metrics when non-nil.
	MetricsHandler http.Handler
}

// NewRouter builds the echo instance with middleware and every route.
func NewRouter(cfg RouterConfig) *echo.Echo {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NoopMetrics{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestLogger(cfg.Metrics))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{echo.HeaderXRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(cfg.MetricsHandler))
	}

	authHandler := NewAuthHandler(cfg.Auth)
	spotifyHandler := NewSpotifyHandler(cfg.Spotify, cfg.SpotifyAPI, cfg.FrontendURL)
	requireUser := JWTAuth(cfg.Auth)

	api := e.Group("/api/v1")

	// Auth routes (public unless noted)
	api.GET("/auth/google", authHandler.GoogleRedirect)
	api.GET("/auth/google/callback", authHandler.GoogleCallback)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/auth/me", authHandler.Me, requireUser)

	sp := api.Group("/spotify", requireUser)
	sp.GET("/connect", spotifyHandler.Connect)
	sp.GET("/callback", spotifyHandler.Callback)
	sp.GET("/status", spotifyHandler.Status)
	sp.DELETE("/connection", spotifyHandler.Disconnect)
	sp.GET("/me", spotifyHandler.Profile)
	sp.GET("/top/artists", spotifyHandler.TopArtists)
	sp.GET("/top/tracks", spotifyHandler.TopTracks)
	sp.GET("/top/genres", spotifyHandler.TopGenres)

	return e
}
