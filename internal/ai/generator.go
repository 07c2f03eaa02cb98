package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/garnizeh/prepwise/internal/config"
	"github.com/garnizeh/prepwise/pkg/ollama"
)

// TextGenerator turns a prompt into model output text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Provider() string
}

// HealthChecker is implemented by backends that can check their upstream.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// OllamaGenerator generates text through a local Ollama instance.
type OllamaGenerator struct {
	client *ollama.Client
	model  string
}

func NewOllamaGenerator(client *ollama.Client, model string) *OllamaGenerator {
	return &OllamaGenerator{client: client, model: model}
}

func (g *OllamaGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	res, err := g.client.Generate(ctx, g.model, prompt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (g *OllamaGenerator) Provider() string { return "ollama" }

// Health fails when the Ollama instance is unreachable or has no models.
func (g *OllamaGenerator) Health(ctx context.Context) error {
	return g.client.Health(ctx)
}

// contentGenerator is the subset of the genai models service we call.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator generates text through the Gemini API.
type GeminiGenerator struct {
	models contentGenerator
	model  string
}

func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{models: client.Models, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errors.New("gemini: no response")
	}
	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("gemini: extract text: %w", err)
	}
	return text, nil
}

func (g *GeminiGenerator) Provider() string { return "gemini" }

// NewGenerator builds the backend selected by cfg.EngineConfig.Provider.
// The returned close func releases backend resources and is never nil.
func NewGenerator(ctx context.Context, cfg *config.Config) (TextGenerator, func() error, error) {
	model := cfg.EngineConfig.Model
	switch strings.ToLower(cfg.EngineConfig.Provider) {
	case "", "ollama":
		client, err := ollama.NewDefaultClient(cfg.Ollama)
		if err != nil {
			return nil, nil, err
		}
		return NewOllamaGenerator(client, model), client.Close, nil
	case "gemini":
		if cfg.Gemini.Model != "" {
			model = cfg.Gemini.Model
		}
		g, err := NewGeminiGenerator(ctx, cfg.Gemini, model)
		if err != nil {
			return nil, nil, err
		}
		return g, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine provider %q", cfg.EngineConfig.Provider)
	}
}
