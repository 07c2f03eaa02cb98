package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/garnizeh/prepwise/internal/voice"
)

// sessionMinter issues ephemeral voice session secrets.
type sessionMinter interface {
	CreateSession(ctx context.Context) (*voice.Session, error)
	Agents() voice.Agents
}

type VoiceHandler struct {
	client sessionMinter
}

func NewVoiceHandler(c sessionMinter) *VoiceHandler {
	return &VoiceHandler{client: c}
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at,omitempty"`
}

// Token mints a session secret for the browser's realtime voice connection.
func (h *VoiceHandler) Token(w http.ResponseWriter, r *http.Request) {
	s, err := h.client.CreateSession(r.Context())
	if err != nil {
		logger.Error("create voice session", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	resp := tokenResponse{Token: s.Token}
	if !s.ExpiresAt.IsZero() {
		resp.ExpiresAt = s.ExpiresAt.Unix()
	}
	writeJSON(w, resp, http.StatusOK)
}

func (h *VoiceHandler) Agents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.client.Agents(), http.StatusOK)
}
