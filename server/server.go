// Package server hosts the HTTP surface of finsight.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lithammer/shortuuid/v4"

	"github.com/finsight-ai/finsight/ai/assistant"
	"github.com/finsight-ai/finsight/ai/metrics"
	"github.com/finsight-ai/finsight/internal/profile"
	apiv1 "github.com/finsight-ai/finsight/server/router/api/v1"
	"github.com/finsight-ai/finsight/store"
)

type Server struct {
	e *echo.Echo

	Profile *profile.Profile
	Store   *store.Store
}

// NewServer builds the echo server and mounts the API routes. notifications
// may be nil when the orchestrator has no sink wired.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, asst *assistant.Assistant, exporter *metrics.Exporter, notifications *apiv1.NotificationBuffer) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: shortuuid.New,
	}))
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: 5 * time.Minute,
	}))

	s := &Server{
		e:       e,
		Profile: profile,
		Store:   store,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(200, "Service ready.")
	})
	if exporter != nil {
		e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	}

	apiV1Service := apiv1.NewAPIV1Service(profile, store, asst, exporter, notifications)
	apiV1Service.RegisterRoutes(e)

	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.e.Start(address); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.e.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server stopped")
}
