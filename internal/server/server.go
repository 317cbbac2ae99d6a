// Package server exposes the derived snapshot state over HTTP.
package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"epochwatch/internal/config"
	"epochwatch/internal/countdown"
	"epochwatch/internal/metrics"
	"epochwatch/internal/service"
)

// Server wires the service's read paths into an echo instance.
type Server struct {
	*echo.Echo
	cfg    config.ServerConfig
	svc    *service.Service
	clock  *countdown.Clock
	m      *metrics.Metrics
	logger zerolog.Logger
}

// New constructs the HTTP server.
func New(cfg config.ServerConfig, svc *service.Service, clock *countdown.Clock, m *metrics.Metrics, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		Echo:   e,
		cfg:    cfg,
		svc:    svc,
		clock:  clock,
		m:      m,
		logger: logger.With().Str("component", "server").Logger(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.GET("/healthz", s.GetHealth)
	s.GET("/api/status", s.GetStatus)
	s.GET("/api/leaderboard", s.GetLeaderboard)
	s.GET("/api/lookup", s.GetLookup)
	s.GET("/api/progress", s.GetProgress)
	s.GET("/api/chart", s.GetChart)
	s.GET("/chart.svg", s.GetChartSVG)
	if s.m != nil {
		s.GET("/metrics", echo.WrapHandler(s.m.Handler()))
	}
}
