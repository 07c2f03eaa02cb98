package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/garnizeh/prepwise/internal/config"
)

var ErrNoToken = errors.New("voice session response carried no token")

// Client mints short-lived realtime session secrets so browsers never see
// the platform API key.
type Client struct {
	cfg  config.VoiceConfig
	http *http.Client
}

func NewClient(cfg config.VoiceConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type sessionRequest struct {
	Session struct {
		Type  string `json:"type"`
		Model string `json:"model"`
	} `json:"session"`
}

type sessionResponse struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// Session is an ephemeral client secret.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// CreateSession requests a new realtime session secret.
func (c *Client) CreateSession(ctx context.Context) (*Session, error) {
	if c.cfg.APIKey == "" {
		return nil, errors.New("voice api key is not configured")
	}

	var reqBody sessionRequest
	reqBody.Session.Type = "realtime"
	reqBody.Session.Model = c.cfg.Model
	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SessionURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("create session: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if out.Value == "" {
		return nil, ErrNoToken
	}

	s := &Session{Token: out.Value}
	if out.ExpiresAt > 0 {
		s.ExpiresAt = time.Unix(out.ExpiresAt, 0)
	}
	return s, nil
}

// Agents are the conversational agent ids the browser client connects to.
type Agents struct {
	QuestionAgentID  string `json:"question_agent_id"`
	InterviewAgentID string `json:"interview_agent_id"`
}

func (c *Client) Agents() Agents {
	return Agents{QuestionAgentID: c.cfg.QuestionAgentID, InterviewAgentID: c.cfg.InterviewAgentID}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
