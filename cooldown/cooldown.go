// Package cooldown enforces global and per-user command cooldowns against
// an append-only execution record store.
package cooldown

import (
	"context"
	"time"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/duration"
)

// Record marks that a command fired at a given time, optionally attributed
// to the triggering user. Inserted once per successful dispatch, never
// mutated.
type Record struct {
	CommandID       string
	ExecutedAt      time.Time
	TriggerUserName string
}

// Repo is the persistence boundary. LastExecution with an empty userName
// returns the most recent record for the command regardless of user.
type Repo interface {
	LastExecution(ctx context.Context, commandID, userName string) (time.Time, bool, error)
	Insert(ctx context.Context, rec Record) error
}

// Tracker answers cooldown questions for commands.
type Tracker struct {
	repo Repo
}

func NewTracker(repo Repo) *Tracker {
	return &Tracker{repo: repo}
}

// InGlobalTimeout reports whether c's global cooldown is still running at
// now. A zero or unparsable cooldown.global means no cooldown.
func (t *Tracker) InGlobalTimeout(ctx context.Context, c *command.Command, now time.Time) (bool, error) {
	cd := duration.ParseLenient(c.Cooldown.Global)
	if cd <= 0 {
		return false, nil
	}
	last, ok, err := t.repo.LastExecution(ctx, c.ID, "")
	if err != nil || !ok {
		return false, err
	}
	return now.Sub(last) < cd, nil
}

// InPerUserTimeout reports whether c's per-user cooldown is still running
// for the author behind tctx. Skipped when the context carries no login.
func (t *Tracker) InPerUserTimeout(ctx context.Context, c *command.Command, tctx *command.TwitchContext, now time.Time) (bool, error) {
	if tctx == nil || tctx.Login == "" {
		return false, nil
	}
	cd := duration.ParseLenient(c.Cooldown.PerUser)
	if cd <= 0 {
		return false, nil
	}
	last, ok, err := t.repo.LastExecution(ctx, c.ID, tctx.Login)
	if err != nil || !ok {
		return false, err
	}
	return now.Sub(last) < cd, nil
}
