package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/garnizeh/prepwise/internal/config"
	"github.com/garnizeh/prepwise/internal/metrics"
	"github.com/garnizeh/prepwise/pkg/ollama"
	"github.com/garnizeh/prepwise/pkg/repository"
)

// Prompt template names stored in ai_templates.
const (
	TemplateQuestions = "questions"
	TemplateFeedback  = "feedback"
)

var (
	ErrGenerationFailed   = errors.New("text generation failed")
	ErrMalformedQuestions = errors.New("malformed question list")
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by the ai package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Engine renders stored prompt templates, sends them to a TextGenerator and
// interprets the output.
type Engine struct {
	gen       TextGenerator
	cfg       config.EngineConfig
	templates repository.TemplateRepo
	loader    *Loader
}

// NewEngine creates the engine and fails when either prompt template is
// missing for the configured version.
func NewEngine(ctx context.Context, gen TextGenerator, cfg config.EngineConfig, sr repository.SchemaRepo, tr repository.TemplateRepo) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if sr == nil {
		return nil, fmt.Errorf("schema repo is required")
	}
	if tr == nil {
		return nil, fmt.Errorf("template repo is required")
	}
	if cfg.TemplateVersion == "" {
		cfg.TemplateVersion = "v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	loader, err := NewLoader(ctx, sr)
	if err != nil {
		return nil, fmt.Errorf("create loader: %w", err)
	}

	for _, name := range []string{TemplateQuestions, TemplateFeedback} {
		tpl, err := tr.GetTemplate(ctx, name, cfg.TemplateVersion)
		if err != nil {
			return nil, fmt.Errorf("load template %s: %w", name, err)
		}
		if tpl == nil || strings.TrimSpace(tpl.TemplateTxt) == "" {
			return nil, fmt.Errorf("template %s:%s not found", name, cfg.TemplateVersion)
		}
	}

	return &Engine{gen: gen, cfg: cfg, templates: tr, loader: loader}, nil
}

// ReloadSchemas refreshes the compiled schema cache from the repository.
func (e *Engine) ReloadSchemas(ctx context.Context) error {
	return e.loader.Reload(ctx)
}

// Loader exposes the schema cache.
func (e *Engine) Loader() *Loader {
	return e.loader
}

// render loads the named template and renders it with data. It returns the
// template's schema version, if any.
func (e *Engine) render(ctx context.Context, name string, data any) (string, string, error) {
	tpl, err := e.templates.GetTemplate(ctx, name, e.cfg.TemplateVersion)
	if err != nil {
		return "", "", fmt.Errorf("load template %s: %w", name, err)
	}
	if tpl == nil {
		return "", "", fmt.Errorf("template %s:%s not found", name, e.cfg.TemplateVersion)
	}

	prompt, err := ollama.RenderTemplate(name, tpl.TemplateTxt, data)
	if err != nil {
		return "", "", err
	}

	schemaVer := ""
	if tpl.SchemaVer != nil {
		schemaVer = *tpl.SchemaVer
	}
	return prompt, schemaVer, nil
}

// Health checks the generator backend. Backends without a health check are
// reported healthy.
func (e *Engine) Health(ctx context.Context) error {
	hc, ok := e.gen.(HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.Health(ctx); err != nil {
		return fmt.Errorf("%s backend: %w", e.gen.Provider(), err)
	}
	return nil
}

// generate runs one generator call under the engine timeout.
func (e *Engine) generate(ctx context.Context, operation, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	out, err := e.gen.Generate(ctx, prompt)
	took := time.Since(start)
	if err == nil && strings.TrimSpace(out) == "" {
		err = errors.New("empty output")
	}
	metrics.ObserveGeneration(operation, e.gen.Provider(), took, err)
	if err != nil {
		return "", err
	}

	logger.Debug("generation finished", slog.String("operation", operation), slog.String("provider", e.gen.Provider()), slog.Duration("took", took))
	return out, nil
}

// extractJSON returns the substring from the first '{' to the last '}' in
// the input, tolerating prose or code fences around the object.
func extractJSON(s string) string {
	return extractBetween(s, '{', '}')
}

// extractArray does the same for the first '[' and the last ']'.
func extractArray(s string) string {
	return extractBetween(s, '[', ']')
}

func extractBetween(s string, lo, hi byte) string {
	first := strings.IndexByte(s, lo)
	last := strings.LastIndexByte(s, hi)
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
