// Package api exposes the library operations over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/reelvault/reelvault/internal/config"
	"github.com/reelvault/reelvault/internal/library/manager"
	"github.com/reelvault/reelvault/internal/metadata"
)

// Server handles HTTP requests for the ReelVault API.
type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger zerolog.Logger

	libraryService *manager.Service
	resolver       *metadata.Resolver
}

// NewServer creates a new API server instance.
func NewServer(cfg *config.Config, libraryService *manager.Service, resolver *metadata.Resolver, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:           e,
		cfg:            cfg,
		logger:         logger.With().Str("component", "api").Logger(),
		libraryService: libraryService,
		resolver:       resolver,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(address string) error {
	s.logger.Info().Str("address", address).Msg("starting HTTP server")
	return s.echo.Start(address)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.echo.Shutdown(ctx)
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
