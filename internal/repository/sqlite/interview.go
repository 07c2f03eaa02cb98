package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/pkg/repository"
)

const interviewColumns = `id, user_id, role, level, tech_stack, amount, questions, is_completed, interview_analysis, created, updated`

// CreateInterviewForUser stores iv for the user owning email and charges one
// interview against that user's quota. The insert, the quota update and the
// delivery record commit together or not at all. iv.ID, iv.UserID and the
// timestamps are filled in on success.
func (r *SQLiteRepo) CreateInterviewForUser(ctx context.Context, email string, iv *models.Interview, opts repository.CreateOptions) error {
	if iv == nil {
		return fmt.Errorf("interview is nil")
	}

	techStack, err := encodeList(iv.TechStack)
	if err != nil {
		return fmt.Errorf("encode tech stack: %w", err)
	}
	questions, err := encodeList(iv.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID int64
	var left int
	err = tx.QueryRowContext(ctx, `SELECT id, interviews_left FROM users WHERE email = ?`, email).Scan(&userID, &left)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	if opts.DeliveryID != "" {
		var seen int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM webhook_deliveries WHERE delivery_id = ?`, opts.DeliveryID).Scan(&seen); err != nil {
			return fmt.Errorf("lookup delivery: %w", err)
		}
		if seen > 0 {
			return repository.ErrDuplicateDelivery
		}
	}

	if opts.RequireQuota && left <= 0 {
		return repository.ErrQuotaExhausted
	}

	id := iv.ID
	if id == "" {
		id = uuid.NewString()
	}
	ts := now()

	if _, err := tx.ExecContext(ctx, `INSERT INTO interviews (id, user_id, role, level, tech_stack, amount, questions, is_completed, interview_analysis, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		id, userID, iv.Role, iv.Level, techStack, iv.Amount, questions, ts, ts); err != nil {
		return fmt.Errorf("insert interview: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE users SET interviews_left = interviews_left - 1, updated = ? WHERE id = ?`, ts, userID); err != nil {
		return fmt.Errorf("decrement quota: %w", err)
	}

	if opts.DeliveryID != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO webhook_deliveries (delivery_id, interview_id, created) VALUES (?, ?, ?)`, opts.DeliveryID, id, ts); err != nil {
			if isUniqueViolation(err) {
				return repository.ErrDuplicateDelivery
			}
			return fmt.Errorf("record delivery: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	iv.ID = id
	iv.UserID = userID
	iv.IsCompleted = false
	iv.InterviewAnalysis = nil
	iv.Created = ts
	iv.Updated = ts

	r.logger.Debug("interview created", "interview_id", id, "user_id", userID)
	return nil
}

func (r *SQLiteRepo) HasDelivery(ctx context.Context, deliveryID string) (bool, error) {
	var seen int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM webhook_deliveries WHERE delivery_id = ?`, deliveryID).Scan(&seen); err != nil {
		return false, fmt.Errorf("lookup delivery: %w", err)
	}
	return seen > 0, nil
}

func (r *SQLiteRepo) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	iv, err := scanInterview(r.conn.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return iv, err
}

// ListInterviewsByUser returns the user's interviews, newest first.
func (r *SQLiteRepo) ListInterviewsByUser(ctx context.Context, userID int64) ([]models.Interview, error) {
	rows, err := r.conn.QueryRows(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE user_id = ? ORDER BY created DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Interview{}
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

// CompleteInterview marks the interview completed and stores its analysis in
// a single guarded update, so an interview is completed at most once.
func (r *SQLiteRepo) CompleteInterview(ctx context.Context, id string, analysis string) error {
	res, err := r.conn.Exec(ctx, `UPDATE interviews SET is_completed = 1, interview_analysis = ?, updated = ? WHERE id = ? AND is_completed = 0`, analysis, now(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(1) FROM interviews WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrAlreadyCompleted
}

func scanInterview(s scanner) (*models.Interview, error) {
	var iv models.Interview
	var techStack, questions string
	var completed int
	if err := s.Scan(&iv.ID, &iv.UserID, &iv.Role, &iv.Level, &techStack, &iv.Amount, &questions, &completed, &iv.InterviewAnalysis, &iv.Created, &iv.Updated); err != nil {
		return nil, err
	}
	iv.IsCompleted = completed != 0

	if err := json.Unmarshal([]byte(techStack), &iv.TechStack); err != nil {
		return nil, fmt.Errorf("decode tech stack for %s: %w", iv.ID, err)
	}
	if err := json.Unmarshal([]byte(questions), &iv.Questions); err != nil {
		return nil, fmt.Errorf("decode questions for %s: %w", iv.ID, err)
	}
	return &iv, nil
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
