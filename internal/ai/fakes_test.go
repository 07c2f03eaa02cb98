package ai_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/internal/config"
	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/pkg/repository"
)

// fakeSchemaRepo is a small in-memory implementation of repository.SchemaRepo for tests.
type fakeSchemaRepo struct {
	schemas map[string]models.Schema
	listErr error
}

func newFakeSchemaRepo() *fakeSchemaRepo {
	return &fakeSchemaRepo{schemas: make(map[string]models.Schema)}
}

func (f *fakeSchemaRepo) CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error) {
	id := int64(len(f.schemas) + 1)
	f.schemas[version] = models.Schema{ID: id, Version: version, Description: description, SchemaJSON: schemaJSON}
	return id, nil
}

func (f *fakeSchemaRepo) GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error) {
	if s, ok := f.schemas[version]; ok {
		return &s, nil
	}
	return nil, nil
}

func (f *fakeSchemaRepo) ListSchemas(ctx context.Context) ([]models.Schema, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.Schema, 0, len(f.schemas))
	for _, s := range f.schemas {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeSchemaRepo) DeleteSchema(ctx context.Context, version string) error {
	if _, ok := f.schemas[version]; !ok {
		return repository.ErrNotFound
	}
	delete(f.schemas, version)
	return nil
}

type fakeTemplateRepo struct {
	templates map[string]models.Template
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[string]models.Template)}
}

func (f *fakeTemplateRepo) CreateTemplate(ctx context.Context, name, version, templateText string, schemaVersion *string, metadata *string) (int64, error) {
	id := int64(len(f.templates) + 1)
	f.templates[name+":"+version] = models.Template{ID: id, Name: name, Version: version, TemplateTxt: templateText, SchemaVer: schemaVersion, Metadata: metadata}
	return id, nil
}

func (f *fakeTemplateRepo) GetTemplate(ctx context.Context, name, version string) (*models.Template, error) {
	if t, ok := f.templates[name+":"+version]; ok {
		return &t, nil
	}
	return nil, nil
}

func (f *fakeTemplateRepo) ListTemplates(ctx context.Context) ([]models.Template, error) {
	out := make([]models.Template, 0, len(f.templates))
	for _, t := range f.templates {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTemplateRepo) DeleteTemplate(ctx context.Context, name, version string) error {
	delete(f.templates, name+":"+version)
	return nil
}

var (
	_ repository.SchemaRepo   = (*fakeSchemaRepo)(nil)
	_ repository.TemplateRepo = (*fakeTemplateRepo)(nil)
)

// fakeGenerator returns canned output and records the prompts it saw.
type fakeGenerator struct {
	mu      sync.Mutex
	out     string
	err     error
	block   bool
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.out, g.err
}

func (g *fakeGenerator) Provider() string { return "fake" }

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func readSeed(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "db", "seed", name))
	if err != nil {
		t.Fatalf("read seed %s: %v", name, err)
	}
	return string(b)
}

// newEngine builds an engine over the seeded prompt templates and schema.
func newEngine(t *testing.T, gen ai.TextGenerator) *ai.Engine {
	t.Helper()
	ctx := context.Background()

	sr := newFakeSchemaRepo()
	if _, err := sr.CreateSchema(ctx, "feedback-v1", "feedback", readSeed(t, "schema_feedback_v1.json")); err != nil {
		t.Fatalf("seed schema: %v", err)
	}
	tr := newFakeTemplateRepo()
	schemaVer := "feedback-v1"
	if _, err := tr.CreateTemplate(ctx, ai.TemplateQuestions, "v1", readSeed(t, "template_questions_v1.txt"), nil, nil); err != nil {
		t.Fatalf("seed template: %v", err)
	}
	if _, err := tr.CreateTemplate(ctx, ai.TemplateFeedback, "v1", readSeed(t, "template_feedback_v1.txt"), &schemaVer, nil); err != nil {
		t.Fatalf("seed template: %v", err)
	}

	e, err := ai.NewEngine(ctx, gen, config.EngineConfig{QuestionType: "balanced"}, sr, tr)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func validFeedbackJSON() string {
	return fmt.Sprintf(`{
  "totalScore": 72,
  "categoryScores": [
    {"name": %q, "score": 70, "comment": "clear"},
    {"name": %q, "score": 75, "comment": "solid"}
  ],
  "strengths": ["structure"],
  "areasForImprovement": ["depth"],
  "finalAssessment": "Promising."
}`, ai.Categories[0], ai.Categories[1])
}
