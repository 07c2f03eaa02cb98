package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/garnizeh/prepwise/internal/config"
)

var ErrCircuitOpen = errors.New("ollama circuit open")

// Client wraps the Ollama API client and adds retries, timeout, and circuit breaker.
type Client struct {
	api    *api.Client
	cfg    config.OllamaConfig
	client *http.Client

	failures  int32
	openUntil int64 // unix nano
	closed    int32
}

// GenerateResult is the text produced for one prompt.
type GenerateResult struct {
	Text    string        `json:"text"`
	Model   string        `json:"model"`
	Chunks  int           `json:"chunks"`
	Latency time.Duration `json:"latency"`
}

// package-level logger for pkg/ollama; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by pkg/ollama. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// NewClient creates a new Ollama client wrapper.
func NewClient(cfg config.OllamaConfig, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	logger.Info("ollama client created", slog.String("base_url", cfg.BaseURL), slog.Duration("timeout", cfg.Timeout))
	return &Client{
		api:    api.NewClient(u, httpClient),
		cfg:    cfg,
		client: httpClient,
	}, nil
}

func NewDefaultClient(cfg config.OllamaConfig) (*Client, error) {
	defaultClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	return NewClient(cfg, defaultClient)
}

// Close releases idle connections on the underlying transport. It is
// idempotent.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	if c.client != nil && c.client.Transport != nil {
		if tr, ok := c.client.Transport.(interface{ CloseIdleConnections() }); ok {
			tr.CloseIdleConnections()
			logger.Debug("ollama client closed idle connections")
		}
	}
	return nil
}

func (c *Client) isCircuitOpen() bool {
	if c.cfg.CircuitFailureThreshold <= 0 {
		return false
	}
	if atomic.LoadInt32(&c.failures) < int32(c.cfg.CircuitFailureThreshold) {
		return false
	}

	if time.Now().UnixNano() < atomic.LoadInt64(&c.openUntil) {
		return true
	}

	// half-open: let the next request through
	atomic.StoreInt32(&c.failures, 0)
	return false
}

func (c *Client) recordFailure() {
	v := atomic.AddInt32(&c.failures, 1)
	if c.cfg.CircuitFailureThreshold > 0 && v >= int32(c.cfg.CircuitFailureThreshold) {
		atomic.StoreInt64(&c.openUntil, time.Now().Add(c.cfg.CircuitReset).UnixNano())
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt32(&c.failures, 0)
}

// ListModels returns the names of the models installed on the instance.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if c.isCircuitOpen() {
		return nil, ErrCircuitOpen
	}

	resp, err := c.api.List(ctx)
	if err != nil {
		c.recordFailure()
		return nil, err
	}

	out := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, m.Name)
	}
	c.recordSuccess()
	return out, nil
}

// Health reports an error unless the instance answers and has at least one
// model installed.
func (c *Client) Health(ctx context.Context) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	models, err := c.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if len(models) == 0 {
		c.recordFailure()
		return fmt.Errorf("health check failed: no models installed")
	}
	return nil
}

// Generate sends prompt to model and returns the concatenated streamed
// response. Failed attempts are retried with linear backoff until the
// configured retry count or the circuit breaker stops them.
func (c *Client) Generate(ctx context.Context, model string, prompt string) (GenerateResult, error) {
	if c.isCircuitOpen() {
		return GenerateResult{}, ErrCircuitOpen
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		res, err := c.generateOnce(ctx, model, prompt)
		if err == nil {
			c.recordSuccess()
			return res, nil
		}

		lastErr = err
		c.recordFailure()
		logger.Warn("ollama generate attempt failed", slog.Int("attempt", attempt+1), slog.String("model", model), slog.Any("error", err))

		if attempt == c.cfg.Retries {
			break
		}
		if err := sleepCtx(ctx, c.cfg.Backoff*time.Duration(attempt+1)); err != nil {
			return GenerateResult{}, err
		}
		if c.isCircuitOpen() {
			return GenerateResult{}, ErrCircuitOpen
		}
	}

	return GenerateResult{}, fmt.Errorf("generate failed after retries: %w", lastErr)
}

func (c *Client) generateOnce(ctx context.Context, model, prompt string) (GenerateResult, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	var sb strings.Builder
	chunks := 0
	start := time.Now()
	req := &api.GenerateRequest{Model: model, Prompt: prompt}
	err := c.api.Generate(ctx, req, func(r api.GenerateResponse) error {
		sb.WriteString(r.Response)
		chunks++
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	return GenerateResult{Text: sb.String(), Model: model, Chunks: chunks, Latency: time.Since(start)}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
