package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/onnwee/streambot/command"
)

// memRepo is a minimal in-memory Repo for tracker tests.
type memRepo struct {
	records []Record
}

func (m *memRepo) LastExecution(_ context.Context, commandID, userName string) (time.Time, bool, error) {
	var (
		last  time.Time
		found bool
	)
	for _, rec := range m.records {
		if rec.CommandID != commandID {
			continue
		}
		if userName != "" && rec.TriggerUserName != userName {
			continue
		}
		if !found || rec.ExecutedAt.After(last) {
			last = rec.ExecutedAt
			found = true
		}
	}
	return last, found, nil
}

func (m *memRepo) Insert(_ context.Context, rec Record) error {
	m.records = append(m.records, rec)
	return nil
}

func TestGlobalTimeout(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepo{}
	tracker := NewTracker(repo)
	cmd := &command.Command{ID: "c1", Cooldown: command.Cooldown{Global: "10s"}}

	// no prior execution: not in timeout
	in, err := tracker.InGlobalTimeout(ctx, cmd, base)
	if err != nil || in {
		t.Fatalf("fresh command: in=%v err=%v, want false,nil", in, err)
	}

	_ = repo.Insert(ctx, Record{CommandID: "c1", ExecutedAt: base})

	// 5s later: still cooling down
	if in, _ := tracker.InGlobalTimeout(ctx, cmd, base.Add(5*time.Second)); !in {
		t.Error("5s after execution should be within a 10s cooldown")
	}
	// exactly 10s later: cooldown elapsed
	if in, _ := tracker.InGlobalTimeout(ctx, cmd, base.Add(10*time.Second)); in {
		t.Error("10s after execution should be past a 10s cooldown")
	}
}

func TestGlobalTimeoutUnparsableMeansNone(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{records: []Record{{CommandID: "c1", ExecutedAt: time.Now()}}}
	tracker := NewTracker(repo)

	for _, global := range []string{"", "garbage", "0"} {
		cmd := &command.Command{ID: "c1", Cooldown: command.Cooldown{Global: global}}
		if in, _ := tracker.InGlobalTimeout(ctx, cmd, time.Now()); in {
			t.Errorf("cooldown.global=%q should mean no cooldown", global)
		}
	}
}

func TestPerUserTimeout(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepo{}
	tracker := NewTracker(repo)
	cmd := &command.Command{ID: "c1", Cooldown: command.Cooldown{PerUser: "1m"}}

	_ = repo.Insert(ctx, Record{CommandID: "c1", ExecutedAt: base, TriggerUserName: "alice"})

	alice := &command.TwitchContext{Login: "alice"}
	bob := &command.TwitchContext{Login: "bob"}

	if in, _ := tracker.InPerUserTimeout(ctx, cmd, alice, base.Add(30*time.Second)); !in {
		t.Error("alice should still be cooling down")
	}
	if in, _ := tracker.InPerUserTimeout(ctx, cmd, bob, base.Add(30*time.Second)); in {
		t.Error("bob never ran the command, no per-user cooldown")
	}
	if in, _ := tracker.InPerUserTimeout(ctx, cmd, alice, base.Add(time.Minute)); in {
		t.Error("alice's cooldown elapsed")
	}
}

func TestPerUserTimeoutSkippedWithoutLogin(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{records: []Record{{CommandID: "c1", ExecutedAt: time.Now()}}}
	tracker := NewTracker(repo)
	cmd := &command.Command{ID: "c1", Cooldown: command.Cooldown{PerUser: "1h"}}

	if in, _ := tracker.InPerUserTimeout(ctx, cmd, nil, time.Now()); in {
		t.Error("nil context skips the per-user gate")
	}
	if in, _ := tracker.InPerUserTimeout(ctx, cmd, &command.TwitchContext{}, time.Now()); in {
		t.Error("empty login skips the per-user gate")
	}
}

func TestGlobalUsesMostRecentRecord(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := &memRepo{records: []Record{
		{CommandID: "c1", ExecutedAt: base.Add(-time.Hour)},
		{CommandID: "c1", ExecutedAt: base},
	}}
	tracker := NewTracker(repo)
	cmd := &command.Command{ID: "c1", Cooldown: command.Cooldown{Global: "10m"}}

	if in, _ := tracker.InGlobalTimeout(ctx, cmd, base.Add(time.Minute)); !in {
		t.Error("tracker must gate on the most recent execution")
	}
}
