package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"text/template"

	"github.com/garnizeh/prepwise/internal/ai"
	"github.com/garnizeh/prepwise/pkg/repository"
)

// PromptsHandler manages the stored prompt templates and feedback schemas.
type PromptsHandler struct {
	engine       *ai.Engine
	schemaRepo   repository.SchemaRepo
	templateRepo repository.TemplateRepo
}

func NewPromptsHandler(engine *ai.Engine, sr repository.SchemaRepo, tr repository.TemplateRepo) *PromptsHandler {
	return &PromptsHandler{engine: engine, schemaRepo: sr, templateRepo: tr}
}

// Reload recompiles the schema cache after schema changes.
func (h *PromptsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ReloadSchemas(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("reload schemas: %v", err))
		return
	}

	writeJSON(w, map[string][]string{"schemas": h.engine.Loader().Versions()}, http.StatusOK)
}

func (h *PromptsHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	rows, err := h.schemaRepo.ListSchemas(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("list schemas: %v", err))
		return
	}

	writeJSON(w, rows, http.StatusOK)
}

type schemaPayload struct {
	Version     string          `json:"version"`
	Description string          `json:"description,omitempty"`
	SchemaJSON  json.RawMessage `json:"schema_json"`
}

// UpsertSchema validates and stores a schema
func (h *PromptsHandler) UpsertSchema(w http.ResponseWriter, r *http.Request) {
	var p schemaPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.Version == "" || len(p.SchemaJSON) == 0 {
		writeError(w, http.StatusBadRequest, "version and schema_json required")
		return
	}

	if _, err := ai.CompileSchema(string(p.SchemaJSON)); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid schema json: %v", err))
		return
	}

	if _, err := h.schemaRepo.CreateSchema(r.Context(), p.Version, p.Description, string(p.SchemaJSON)); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("store schema: %v", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PromptsHandler) DeleteSchema(w http.ResponseWriter, r *http.Request) {
	version := r.URL.Query().Get("version")
	if version == "" {
		writeError(w, http.StatusBadRequest, "version required")
		return
	}

	err := h.schemaRepo.DeleteSchema(r.Context(), version)
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("delete schema: %v", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PromptsHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	rows, err := h.templateRepo.ListTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("list templates: %v", err))
		return
	}

	writeJSON(w, rows, http.StatusOK)
}

type templatePayload struct {
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	TemplateTxt string  `json:"template_text"`
	SchemaVer   *string `json:"schema_version,omitempty"`
}

// UpsertTemplate stores a template, enforcing size limit
func (h *PromptsHandler) UpsertTemplate(w http.ResponseWriter, r *http.Request) {
	const maxSize = 64 * 1024
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if len(body) > maxSize {
		writeError(w, http.StatusBadRequest, "template too large")
		return
	}

	var p templatePayload
	if err := json.Unmarshal(body, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if p.Name == "" || p.Version == "" || p.TemplateTxt == "" {
		writeError(w, http.StatusBadRequest, "name, version and template_text required")
		return
	}
	if _, err := template.New(p.Name).Parse(p.TemplateTxt); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid template: %v", err))
		return
	}
	if p.SchemaVer != nil {
		if _, ok := h.engine.Loader().GetSchema(*p.SchemaVer); !ok {
			writeError(w, http.StatusBadRequest, "unknown schema_version")
			return
		}
	}

	if _, err := h.templateRepo.CreateTemplate(r.Context(), p.Name, p.Version, p.TemplateTxt, p.SchemaVer, nil); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("store template: %v", err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
