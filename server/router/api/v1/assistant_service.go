package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finsight-ai/finsight/ai/orchestrator"
	"github.com/finsight-ai/finsight/ai/session"
)

// AskRequest is the body of both assistant endpoints.
type AskRequest struct {
	Question string `json:"question"`
	Mode     string `json:"mode"`
}

func (r *AskRequest) mode() session.Mode {
	return session.Mode(r.Mode)
}

// HandleChat answers a question as advisory prose.
func (s *APIV1Service) HandleChat(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	if !req.mode().Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be expenses or investments")
	}

	start := time.Now()
	reply, err := s.Assistant.Chat(c.Request().Context(), req.Question, req.mode())
	s.recordQuestion("chat", req.Mode, err, start)
	if err != nil {
		return providerHTTPError(err)
	}
	return c.JSON(http.StatusOK, reply)
}

// HandleQuery answers a question as a structured computation.
func (s *APIV1Service) HandleQuery(c echo.Context) error {
	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question is required")
	}
	if !req.mode().Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "mode must be expenses or investments")
	}

	start := time.Now()
	reply, err := s.Assistant.Query(c.Request().Context(), req.Question, req.mode())
	s.recordQuestion("query", req.Mode, err, start)
	if err != nil {
		return providerHTTPError(err)
	}
	if s.Exporter != nil {
		aggregation := "none"
		if reply.Exec.Result != nil {
			aggregation = string(reply.Exec.Result.Type)
		}
		status := "ok"
		if !reply.Exec.OK {
			status = "failed"
		}
		s.Exporter.RecordQueryExecution(aggregation, status)
	}
	return c.JSON(http.StatusOK, reply)
}

// ProviderInfo describes one configured provider for the UI.
type ProviderInfo struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	Configured bool   `json:"configured"`
	Priority   int    `json:"priority"` // 0 when not in the priority list
}

// HandleProviders lists the known providers and the active priority order.
func (s *APIV1Service) HandleProviders(c echo.Context) error {
	rank := make(map[string]int, len(s.Profile.Priority))
	for i, id := range s.Profile.Priority {
		rank[id] = i + 1
	}

	infos := make([]ProviderInfo, 0, len(s.Profile.Providers))
	for _, id := range s.Profile.Priority {
		if cfg, ok := s.Profile.Providers[id]; ok {
			infos = append(infos, ProviderInfo{
				ID:         cfg.ID,
				Model:      cfg.Model,
				Configured: cfg.Configured(),
				Priority:   rank[id],
			})
		}
	}
	return c.JSON(http.StatusOK, infos)
}

// HandleNotifications returns the recent fallback notifications.
func (s *APIV1Service) HandleNotifications(c echo.Context) error {
	return c.JSON(http.StatusOK, s.notifications.Recent())
}

func (s *APIV1Service) recordQuestion(kind, mode string, err error, start time.Time) {
	if s.Exporter == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.Exporter.RecordQuestion(kind, mode, status, time.Since(start))
}

// providerHTTPError maps orchestration failures onto HTTP statuses:
// exhaustion is upstream unavailability, everything else a bad gateway.
func providerHTTPError(err error) error {
	slog.Warn("assistant call failed", "error", err)
	var exhaustion *orchestrator.ExhaustionError
	if errors.As(err, &exhaustion) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	if errors.Is(err, orchestrator.ErrNoProviders) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}
