package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/onnwee/streambot/variables"
)

// VariableRepo implements variables.Repo on Postgres.
type VariableRepo struct {
	DB *sql.DB
}

func NewVariableRepo(db *sql.DB) *VariableRepo {
	return &VariableRepo{DB: db}
}

func (r *VariableRepo) Get(ctx context.Context, userID, name string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx,
		`SELECT value FROM variables WHERE user_id=$1 AND name=$2`, userID, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("variable get: %w", err)
	}
	return value, true, nil
}

func (r *VariableRepo) Set(ctx context.Context, userID, name, value string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO variables (user_id, name, value) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, name) DO UPDATE SET value = EXCLUDED.value`,
		userID, name, value)
	if err != nil {
		return fmt.Errorf("variable set: %w", err)
	}
	return nil
}

func (r *VariableRepo) SetExisting(ctx context.Context, userID, name, value string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE variables SET value=$3 WHERE user_id=$1 AND name=$2`, userID, name, value)
	if err != nil {
		return false, fmt.Errorf("variable update: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AddInt performs an atomic read-modify-write inside one transaction. The
// row lock from FOR UPDATE serializes concurrent increments, so two
// simultaneous +1 on the same variable always land as +2.
func (r *VariableRepo) AddInt(ctx context.Context, userID, name string, delta int64) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("variable add: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM variables WHERE user_id=$1 AND name=$2 FOR UPDATE`, userID, name).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("variable add: select: %w", err)
	}
	next := strconv.FormatInt(variables.ParseInt(current)+delta, 10)
	if _, err := tx.ExecContext(ctx,
		`UPDATE variables SET value=$3 WHERE user_id=$1 AND name=$2`, userID, name, next); err != nil {
		return false, fmt.Errorf("variable add: update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("variable add: commit: %w", err)
	}
	return true, nil
}

func (r *VariableRepo) All(ctx context.Context, userID string) ([]variables.Variable, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT name, value FROM variables WHERE user_id=$1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("variable list: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []variables.Variable
	for rows.Next() {
		var v variables.Variable
		if err := rows.Scan(&v.Name, &v.Value); err != nil {
			return nil, fmt.Errorf("variable list: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Replace deletes variables absent from vars and upserts the rest, all in
// one transaction.
func (r *VariableRepo) Replace(ctx context.Context, userID string, vars []variables.Variable) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("variable replace: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM variables WHERE user_id=$1 AND NOT (name = ANY($2))`, userID, names); err != nil {
		return fmt.Errorf("variable replace: delete: %w", err)
	}
	for _, v := range vars {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO variables (user_id, name, value) VALUES ($1, $2, $3)
			 ON CONFLICT (user_id, name) DO UPDATE SET value = EXCLUDED.value`,
			userID, v.Name, v.Value); err != nil {
			return fmt.Errorf("variable replace: upsert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("variable replace: commit: %w", err)
	}
	return nil
}
