package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// backendChecker reports whether the text generation backend can serve.
type backendChecker interface {
	Health(ctx context.Context) error
}

const readyTimeout = 5 * time.Second

type SystemHandler struct {
	backend backendChecker
}

// NewSystemHandler wires the readiness check. A nil backend is always ready.
func NewSystemHandler(backend backendChecker) *SystemHandler {
	return &SystemHandler{backend: backend}
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok", "service": "prepwise"}, http.StatusOK)
}

// ReadyHandler answers 503 while the model backend is down.
func (h *SystemHandler) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if h.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := h.backend.Health(ctx); err != nil {
			logger.Warn("backend not ready", slog.Any("error", err))
			writeJSON(w, map[string]string{"status": "unavailable", "service": "prepwise"}, http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ready", "service": "prepwise"}, http.StatusOK)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"version": version, "buildTime": buildTime}, http.StatusOK)
	}
}
