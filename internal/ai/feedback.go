package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/garnizeh/prepwise/internal/models"
)

// Categories are the only areas a candidate is scored on.
var Categories = []string{
	"Communication Skills",
	"Technical Knowledge",
	"Problem-Solving",
	"Cultural & Role Fit",
	"Confidence & Clarity",
}

// FeedbackShape is the JSON object the feedback prompt asks for.
const FeedbackShape = `{"totalScore": number, "categoryScores": [{"name": string, "score": number, "comment": string}], "strengths": [string], "areasForImprovement": [string], "finalAssessment": string}`

type CategoryScore struct {
	Name    string  `json:"name"`
	Score   float64 `json:"score"`
	Comment string  `json:"comment"`
}

// Feedback is the structured assessment of a completed interview.
type Feedback struct {
	TotalScore          float64         `json:"totalScore"`
	CategoryScores      []CategoryScore `json:"categoryScores"`
	Strengths           []string        `json:"strengths"`
	AreasForImprovement []string        `json:"areasForImprovement"`
	FinalAssessment     string          `json:"finalAssessment"`
}

// FeedbackResult is the outcome of CreateFeedback. Feedback is only
// meaningful when Success is true.
type FeedbackResult struct {
	Success  bool
	Feedback string
}

// FormatTranscript renders turns as "- role: content" lines.
func FormatTranscript(turns []models.Turn) string {
	var sb strings.Builder
	for _, t := range turns {
		sb.WriteString("- ")
		sb.WriteString(t.Role)
		sb.WriteString(": ")
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return sb.String()
}

// CreateFeedback asks the model to assess the transcript. It never returns
// an error: any failure yields Success false. When the output holds a JSON
// object matching the feedback schema, the compacted object is returned;
// otherwise the raw output is.
func (e *Engine) CreateFeedback(ctx context.Context, turns []models.Turn) FeedbackResult {
	prompt, schemaVer, err := e.render(ctx, TemplateFeedback, map[string]any{
		"Transcript": FormatTranscript(turns),
		"Categories": Categories,
		"Shape":      FeedbackShape,
	})
	if err != nil {
		logger.Error("feedback prompt render failed", slog.Any("error", err))
		return FeedbackResult{}
	}

	out, err := e.generate(ctx, TemplateFeedback, prompt)
	if err != nil {
		logger.Error("feedback generation failed", slog.Int("turns", len(turns)), slog.Any("error", err))
		return FeedbackResult{}
	}

	if compact, ok := e.coerceFeedback(ctx, schemaVer, out); ok {
		return FeedbackResult{Success: true, Feedback: compact}
	}
	return FeedbackResult{Success: true, Feedback: out}
}

func (e *Engine) coerceFeedback(ctx context.Context, schemaVer, out string) (string, bool) {
	j := extractJSON(out)
	if j == "" || schemaVer == "" {
		return "", false
	}
	if err := e.loader.Validate(ctx, schemaVer, []byte(j)); err != nil {
		logger.Warn("feedback kept as raw text", slog.Any("error", err))
		return "", false
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(j)); err != nil {
		return "", false
	}
	return buf.String(), true
}

// ParseFeedback decodes a stored analysis.
func ParseFeedback(text string) (*Feedback, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty analysis")
	}
	j := extractJSON(text)
	if j == "" {
		return nil, errors.New("no JSON object found in analysis")
	}

	var f Feedback
	if err := json.Unmarshal([]byte(j), &f); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if len(f.CategoryScores) == 0 {
		return nil, errors.New("analysis has no category scores")
	}
	return &f, nil
}
