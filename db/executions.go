package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/onnwee/streambot/cooldown"
)

// ExecutionRepo implements cooldown.Repo on Postgres. Records are
// append-only; pruning old rows is an operational concern outside the
// engine.
type ExecutionRepo struct {
	DB *sql.DB
}

func NewExecutionRepo(db *sql.DB) *ExecutionRepo {
	return &ExecutionRepo{DB: db}
}

func (r *ExecutionRepo) LastExecution(ctx context.Context, commandID, userName string) (time.Time, bool, error) {
	var (
		t   time.Time
		err error
	)
	if userName == "" {
		err = r.DB.QueryRowContext(ctx,
			`SELECT executed_at FROM command_execution WHERE command_id=$1
			 ORDER BY executed_at DESC LIMIT 1`, commandID).Scan(&t)
	} else {
		err = r.DB.QueryRowContext(ctx,
			`SELECT executed_at FROM command_execution WHERE command_id=$1 AND trigger_user_name=$2
			 ORDER BY executed_at DESC LIMIT 1`, commandID, userName).Scan(&t)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last execution: %w", err)
	}
	return t, true, nil
}

func (r *ExecutionRepo) Insert(ctx context.Context, rec cooldown.Record) error {
	user := sql.NullString{String: rec.TriggerUserName, Valid: rec.TriggerUserName != ""}
	if _, err := r.DB.ExecContext(ctx,
		`INSERT INTO command_execution (command_id, executed_at, trigger_user_name) VALUES ($1, $2, $3)`,
		rec.CommandID, rec.ExecutedAt, user); err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}
	return nil
}
