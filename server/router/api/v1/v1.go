// Package v1 exposes the finsight HTTP API.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/finsight-ai/finsight/ai/assistant"
	"github.com/finsight-ai/finsight/ai/metrics"
	"github.com/finsight-ai/finsight/internal/profile"
	"github.com/finsight-ai/finsight/store"
)

type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Assistant *assistant.Assistant
	Exporter  *metrics.Exporter

	notifications *NotificationBuffer
}

// NewAPIV1Service wires the HTTP handlers. notifications is shared with the
// orchestrator so fallback events become visible to the UI; nil allocates a
// private buffer.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, asst *assistant.Assistant, exporter *metrics.Exporter, notifications *NotificationBuffer) *APIV1Service {
	if notifications == nil {
		notifications = NewNotificationBuffer(32)
	}
	return &APIV1Service{
		Profile:       profile,
		Store:         store,
		Assistant:     asst,
		Exporter:      exporter,
		notifications: notifications,
	}
}

// Notifications returns the sink the orchestrator reports fallback events to.
func (s *APIV1Service) Notifications() *NotificationBuffer {
	return s.notifications
}

// RegisterRoutes mounts all v1 endpoints.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/assistant/chat", s.HandleChat)
	g.POST("/assistant/query", s.HandleQuery)
	g.GET("/providers", s.HandleProviders)
	g.GET("/notifications", s.HandleNotifications)
}
