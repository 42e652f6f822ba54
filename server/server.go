package server

import (
	"context"
	"net/http"

	"fairway/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// Server exposes the matchmaking engine over HTTP
type Server struct {
	echo        *echo.Echo
	matchmaking service.MatchmakingService
	sweeper     service.SweeperService
	sweepToken  string
}

// New creates the HTTP server and registers all routes
func New(matchmaking service.MatchmakingService, sweeper service.SweeperService, sweepToken string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:        e,
		matchmaking: matchmaking,
		sweeper:     sweeper,
		sweepToken:  sweepToken,
	}

	e.GET("/healthz", s.handleHealth)
	e.POST("/v1/matches/join", s.handleJoin)
	e.POST("/v1/entries/:id/withdraw", s.handleWithdraw)
	e.POST("/internal/sweep", s.handleSweep)
	e.GET("/internal/sweep/latest", s.handleSweepLatest)

	return s
}

// Start begins serving and blocks until the server stops
func (s *Server) Start(addr string) error {
	log.WithField("addr", addr).Info("Starting HTTP server")
	return s.echo.Start(addr)
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP dispatches a request through the router
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
