package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// QuestionParams describes the interview to prepare questions for.
type QuestionParams struct {
	Role      string
	Level     string
	TechStack []string
	// Type is the behavioural/technical focus; empty uses the configured default.
	Type   string
	Amount int
}

// GenerateQuestions asks the model for Amount interview questions and
// returns its raw output, which should be a JSON list of strings. Use
// ParseQuestions to decode it.
func (e *Engine) GenerateQuestions(ctx context.Context, p QuestionParams) (string, error) {
	if p.Type == "" {
		p.Type = e.cfg.QuestionType
	}

	prompt, _, err := e.render(ctx, TemplateQuestions, map[string]any{
		"Role":      p.Role,
		"Level":     p.Level,
		"TechStack": strings.Join(p.TechStack, ", "),
		"Type":      p.Type,
		"Amount":    p.Amount,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	out, err := e.generate(ctx, TemplateQuestions, prompt)
	if err != nil {
		logger.Error("question generation failed", slog.String("role", p.Role), slog.String("level", p.Level), slog.Any("error", err))
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	return out, nil
}

// ParseQuestions decodes a model's question list. Text around the list is
// ignored; entries are trimmed and must be non-empty.
func ParseQuestions(raw string) ([]string, error) {
	arr := extractArray(raw)
	if arr == "" {
		return nil, fmt.Errorf("%w: no JSON list found", ErrMalformedQuestions)
	}

	var qs []string
	if err := json.Unmarshal([]byte(arr), &qs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedQuestions, err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrMalformedQuestions)
	}

	for i, q := range qs {
		q = strings.TrimSpace(q)
		if q == "" {
			return nil, fmt.Errorf("%w: question %d is empty", ErrMalformedQuestions, i+1)
		}
		qs[i] = q
	}
	return qs, nil
}
