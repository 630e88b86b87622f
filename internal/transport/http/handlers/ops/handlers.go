package opshandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"leaveportal/internal/platform/metrics"
	"leaveportal/internal/platform/version"
	"leaveportal/internal/transport/http/api"
	"leaveportal/internal/transport/http/middleware"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether the leave API can be reached.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	api       Pinger
	collector *metrics.Collector
}

// NewHandler serves the probes. A nil collector leaves /metrics unregistered.
func NewHandler(upstream Pinger, collector *metrics.Collector) *Handler {
	return &Handler{api: upstream, collector: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Get("/readyz", h.handleReady)
	r.Get("/version", h.handleVersion)
	if h.collector != nil {
		r.Get("/metrics", h.handleMetrics)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	api.OK(w, r, map[string]string{"status": "ok"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := h.api.Ping(ctx); err != nil {
		slog.Warn("readiness check failed", "err", err, "requestId", middleware.GetRequestID(r.Context()))
		api.Fail(w, r, http.StatusServiceUnavailable, "upstream_unavailable", "leave API not reachable")
		return
	}
	api.OK(w, r, map[string]string{"status": "ready"})
}

func (h *Handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	api.OK(w, r, version.Info())
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	api.OK(w, r, h.collector.Snapshot())
}
