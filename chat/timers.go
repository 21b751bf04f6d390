package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/duration"
)

// timerRunner tracks chat line counts and per-trigger fire state. Timer
// triggers fire when at least minLines lines arrived since the last fire
// AND at least minInterval elapsed.
type timerRunner struct {
	mu     sync.Mutex
	lines  int64
	states map[string]*timerState
}

type timerState struct {
	lastFire    time.Time
	linesAtFire int64
}

func newTimerRunner() *timerRunner {
	return &timerRunner{states: make(map[string]*timerState)}
}

func (t *timerRunner) noteLine() {
	t.mu.Lock()
	t.lines++
	t.mu.Unlock()
}

// due returns one incoming trigger per distinct timer gate that is ready
// at now, and marks those gates fired. A gate seen for the first time is
// baselined, not fired, so restarts don't replay timers immediately.
func (t *timerRunner) due(cmds []*command.FunctionCommand, now time.Time) []command.Trigger {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []command.Trigger
	seen := make(map[string]struct{})
	for _, fc := range cmds {
		for _, trig := range fc.Triggers {
			if trig.Type != command.TriggerTimer {
				continue
			}
			key := fmt.Sprintf("%s|%d", trig.Data.MinInterval, trig.Data.MinLines)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			st, ok := t.states[key]
			if !ok {
				t.states[key] = &timerState{lastFire: now, linesAtFire: t.lines}
				continue
			}
			interval := duration.ParseLenient(trig.Data.MinInterval)
			if t.lines-st.linesAtFire < int64(trig.Data.MinLines) {
				continue
			}
			if now.Sub(st.lastFire) < interval {
				continue
			}
			st.lastFire = now
			st.linesAtFire = t.lines
			out = append(out, command.Trigger{
				Type: command.TriggerTimer,
				Data: command.TriggerData{MinInterval: trig.Data.MinInterval, MinLines: trig.Data.MinLines},
			})
		}
	}
	return out
}

// runTimers fires due timer triggers on every tick. Timer batches have no
// author: commands run with a nil twitch context.
func (s *Service) runTimers(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TimerTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			triggers := s.timers.due(s.sess.Commands(), now)
			if len(triggers) == 0 {
				continue
			}
			batchCtx, cancel := context.WithTimeout(ctx, batchTimeout)
			if err := s.exec.ExecuteMatching(batchCtx, s.sess, nil, nil, triggers, now); err != nil {
				slog.Warn("timer batch failed", slog.Any("err", err))
			}
			cancel()
		}
	}
}
