package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/pkg/repository"
)

// Prompt templates and the JSON schemas that validate their output.
// Both are keyed by version and written as upserts so operators can
// replace a prompt without a migration.

const schemaColumns = `id, version, description, schema_json, created, updated`

// CreateSchema inserts or replaces the schema stored under version.
func (r *SQLiteRepo) CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error) {
	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO ai_schemas (version, description, schema_json, created, updated) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(version) DO UPDATE SET description = excluded.description, schema_json = excluded.schema_json, updated = excluded.updated`,
		version, description, schemaJSON, ts, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error) {
	s, err := scanSchema(r.conn.QueryRow(ctx, `SELECT `+schemaColumns+` FROM ai_schemas WHERE version = ?`, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r *SQLiteRepo) ListSchemas(ctx context.Context) ([]models.Schema, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+schemaColumns+` FROM ai_schemas ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Schema
	for rows.Next() {
		s, err := scanSchema(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteSchema(ctx context.Context, version string) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM ai_schemas WHERE version = ?`, version)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const templateColumns = `id, name, version, template_text, schema_version, metadata, created, updated`

// CreateTemplate inserts or replaces the template stored under (name, version).
func (r *SQLiteRepo) CreateTemplate(ctx context.Context, name, version, templateText string, schemaVersion *string, metadata *string) (int64, error) {
	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO ai_templates (name, version, template_text, schema_version, metadata, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, version) DO UPDATE SET template_text = excluded.template_text, schema_version = excluded.schema_version, metadata = excluded.metadata, updated = excluded.updated`,
		name, version, templateText, nullable(schemaVersion), nullable(metadata), ts, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) GetTemplate(ctx context.Context, name, version string) (*models.Template, error) {
	t, err := scanTemplate(r.conn.QueryRow(ctx, `SELECT `+templateColumns+` FROM ai_templates WHERE name = ? AND version = ?`, name, version))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *SQLiteRepo) ListTemplates(ctx context.Context) ([]models.Template, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+templateColumns+` FROM ai_templates ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) DeleteTemplate(ctx context.Context, name, version string) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM ai_templates WHERE name = ? AND version = ?`, name, version)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSchema(s scanner) (*models.Schema, error) {
	var out models.Schema
	var desc sql.NullString
	if err := s.Scan(&out.ID, &out.Version, &desc, &out.SchemaJSON, &out.Created, &out.Updated); err != nil {
		return nil, err
	}
	out.Description = desc.String
	return &out, nil
}

func scanTemplate(s scanner) (*models.Template, error) {
	var out models.Template
	if err := s.Scan(&out.ID, &out.Name, &out.Version, &out.TemplateTxt, &out.SchemaVer, &out.Metadata, &out.Created, &out.Updated); err != nil {
		return nil, err
	}
	return &out, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
