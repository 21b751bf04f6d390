package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/onnwee/streambot/command"
)

// StoredCommand is one configured command row plus the module it belongs
// to.
type StoredCommand struct {
	Module string
	Cmd    command.Command
}

// CommandRepo persists command configuration as JSONB per user.
type CommandRepo struct {
	DB *sql.DB
}

func NewCommandRepo(db *sql.DB) *CommandRepo {
	return &CommandRepo{DB: db}
}

// LoadForUser returns all configured commands for a user, grouped in
// insertion order.
func (r *CommandRepo) LoadForUser(ctx context.Context, userID string) ([]StoredCommand, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, module, config FROM commands WHERE user_id=$1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []StoredCommand
	for rows.Next() {
		var (
			id, module string
			raw        []byte
		)
		if err := rows.Scan(&id, &module, &raw); err != nil {
			return nil, fmt.Errorf("load commands: %w", err)
		}
		var c command.Command
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("load commands: bad config for %s: %w", id, err)
		}
		c.ID = id
		out = append(out, StoredCommand{Module: module, Cmd: c})
	}
	return out, rows.Err()
}

// Save upserts a command config. A missing id gets a fresh uuid; the id in
// the config JSON is kept in sync with the row key.
func (r *CommandRepo) Save(ctx context.Context, userID, module string, c *command.Command) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("save command: %w", err)
	}
	if _, err := r.DB.ExecContext(ctx,
		`INSERT INTO commands (id, user_id, module, config) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET module = EXCLUDED.module, config = EXCLUDED.config, updated_at = NOW()`,
		c.ID, userID, module, raw); err != nil {
		return fmt.Errorf("save command: %w", err)
	}
	return nil
}

func (r *CommandRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM commands WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete command: %w", err)
	}
	return nil
}
