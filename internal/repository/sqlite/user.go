package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/garnizeh/prepwise/internal/models"
	"github.com/garnizeh/prepwise/pkg/repository"
)

const userColumns = `id, username, email, password_hash, interviews_left, current_plan, created, updated`

func (r *SQLiteRepo) CreateUser(ctx context.Context, u *models.User) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("user is nil")
	}
	plan := u.CurrentPlan
	if plan == "" {
		plan = "free"
	}

	ts := now()
	res, err := r.conn.Exec(ctx, `INSERT INTO users (username, email, password_hash, interviews_left, current_plan, created, updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.PasswordHash, u.InterviewsLeft, plan, ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrDuplicateEmail
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func (r *SQLiteRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(r.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.InterviewsLeft, &u.CurrentPlan, &u.Created, &u.Updated); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
