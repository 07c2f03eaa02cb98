package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// seedTemplate maps a seed file to the prompt template row it provides.
type seedTemplate struct {
	file          string
	name          string
	schemaVersion any
}

var seedTemplates = []seedTemplate{
	{file: "template_questions_v1.txt", name: "questions", schemaVersion: nil},
	{file: "template_feedback_v1.txt", name: "feedback", schemaVersion: "feedback-v1"},
}

// Migrate applies migrations and seed files from the embedded filesystems.
// Applied migrations are tracked in `schema_migrations`; seeds are inserted
// only when the row is missing so operator edits survive restarts.
func Migrate(ctx context.Context, d *DB, migrationFS embed.FS, seedFS embed.FS) error {
	if _, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	migDir := "migrations"

	entries, err := fs.ReadDir(migrationFS, migDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	for _, fname := range files {
		version := strings.TrimSuffix(fname, path.Ext(fname))

		var count int
		row := d.QueryRow(ctx, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, version)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration applied count: %w", err)
		}
		if count > 0 {
			continue
		}

		b, err := fs.ReadFile(migrationFS, path.Join(migDir, fname))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", fname, err)
		}
		if _, err := d.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("exec migration %s: %w", fname, err)
		}

		if _, err := d.Exec(ctx, `INSERT INTO schema_migrations (version, applied) VALUES (?, strftime('%s','now'))`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", fname, err)
		}
		d.logger.Info("migration applied", "version", version)
	}

	if b, err := fs.ReadFile(seedFS, path.Join("seed", "schema_feedback_v1.json")); err == nil {
		if _, err := d.Exec(ctx, `INSERT OR IGNORE INTO ai_schemas (version, description, schema_json, created, updated) VALUES ('feedback-v1', 'interview feedback v1', ?, strftime('%s','now'), strftime('%s','now'))`, string(b)); err != nil {
			return fmt.Errorf("seed schema exec: %w", err)
		}
	}

	for _, st := range seedTemplates {
		b, err := fs.ReadFile(seedFS, path.Join("seed", st.file))
		if err != nil {
			continue
		}
		if _, err := d.Exec(ctx, `INSERT OR IGNORE INTO ai_templates (name, version, template_text, schema_version, metadata, created, updated) VALUES (?, 'v1', ?, ?, ?, strftime('%s','now'), strftime('%s','now'))`, st.name, string(b), st.schemaVersion, `{"owner":"system"}`); err != nil {
			return fmt.Errorf("seed template %s: %w", st.name, err)
		}
	}

	return nil
}
