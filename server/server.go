// Package server exposes the recommendation engine over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/wellspring-io/wellspring/engine"
	"github.com/wellspring-io/wellspring/internal/profile"
	"github.com/wellspring-io/wellspring/metrics"
	"github.com/wellspring-io/wellspring/store"
)

// Server is the HTTP front of the engine. Engines are created lazily per
// user and kept for the life of the process.
type Server struct {
	echo     *echo.Echo
	profile  *profile.Profile
	store    *store.Store
	gateway  engine.Gateway
	provider engine.SuggestionProvider
	exporter *metrics.Exporter

	mu      sync.Mutex
	engines map[int32]*engine.Engine

	refresher *Refresher
}

// NewServer creates the server. The provider may be nil (engine runs
// rule-based only); the exporter may be nil (metrics disabled).
func NewServer(p *profile.Profile, st *store.Store, provider engine.SuggestionProvider, exporter *metrics.Exporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("request", "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s := &Server{
		echo:     e,
		profile:  p,
		store:    st,
		gateway:  engine.NewStoreGateway(st),
		provider: provider,
		exporter: exporter,
		engines:  map[int32]*engine.Engine{},
	}
	s.registerRoutes()
	s.refresher = NewRefresher(s)
	return s
}

// Start begins serving and blocks until the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.refresher.Start()
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server started", "address", addr, "mode", s.profile.Mode)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener, the refresher, and every per-user engine.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.refresher.Stop()
	if err := s.echo.Shutdown(ctx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}

	s.mu.Lock()
	engines := make([]*engine.Engine, 0, len(s.engines))
	for _, e := range s.engines {
		engines = append(engines, e)
	}
	s.mu.Unlock()
	for _, e := range engines {
		e.Close()
	}

	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}

// engineFor returns the engine for one user, creating and bootstrapping it
// on first use.
func (s *Server) engineFor(ctx context.Context, userID int32) *engine.Engine {
	s.mu.Lock()
	if e, ok := s.engines[userID]; ok {
		s.mu.Unlock()
		return e
	}
	opts := []engine.Option{}
	if s.provider != nil {
		opts = append(opts, engine.WithProvider(s.provider))
	}
	if s.exporter != nil {
		opts = append(opts, engine.WithMetrics(s.exporter))
	}
	e := engine.New(userID, s.gateway, opts...)
	s.engines[userID] = e
	s.mu.Unlock()

	e.Bootstrap(ctx)
	return e
}

// activeEngines returns a snapshot of the engines created so far.
func (s *Server) activeEngines() map[int32]*engine.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int32]*engine.Engine, len(s.engines))
	for id, e := range s.engines {
		out[id] = e
	}
	return out
}
