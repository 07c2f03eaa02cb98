package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"

	"github.com/garnizeh/prepwise/pkg/repository"
)

// Loader keeps the JSON schemas stored in the repository compiled in memory.
type Loader struct {
	repo  repository.SchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewLoader(ctx context.Context, r repository.SchemaRepo) (*Loader, error) {
	l := &Loader{
		repo:  r,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

// GetSchema returns a compiled schema for a version.
func (l *Loader) GetSchema(version string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[version]
	l.mu.RUnlock()
	return s, ok
}

// Versions lists the cached schema versions in order.
func (l *Loader) Versions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.cache))
	for v := range l.cache {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Reload replaces the cache with every schema currently stored. On error the
// previous cache is kept.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	next := make(map[string]*jsonschema.Schema, len(rows))
	for _, r := range rows {
		s, err := CompileSchema(r.SchemaJSON)
		if err != nil {
			return fmt.Errorf("compile schema %s: %w", r.Version, err)
		}
		next[r.Version] = s
	}

	l.mu.Lock()
	l.cache = next
	l.mu.Unlock()
	return nil
}

// Validate checks data against the schema cached under version.
func (l *Loader) Validate(ctx context.Context, version string, data []byte) error {
	s, ok := l.GetSchema(version)
	if !ok || s == nil {
		return fmt.Errorf("no schema found for version %s", version)
	}

	verrs, err := s.ValidateBytes(ctx, data)
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, v := range verrs {
			msgs = append(msgs, v.Message)
		}
		return fmt.Errorf("does not match schema %s: %s", version, strings.Join(msgs, "; "))
	}
	return nil
}

// CompileSchema parses a JSON schema document.
func CompileSchema(schemaJSON string) (*jsonschema.Schema, error) {
	s := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(schemaJSON), s); err != nil {
		return nil, err
	}
	return s, nil
}
