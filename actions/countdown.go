package actions

import (
	"context"
	"encoding/json"
	"time"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/duration"
)

type countdownData struct {
	Steps    []string `json:"steps"`
	Interval string   `json:"interval"`
	Intro    string   `json:"intro"`
	Outro    string   `json:"outro"`
}

// buildCountdown says each configured step with the configured interval
// between them. Steps are template-replaced individually, so a step like
// "$var(count)" reflects the value at say time.
func buildCountdown(deps Deps, c *command.Command) command.BehaviorFunc {
	var data countdownData
	if len(c.Data) > 0 {
		_ = json.Unmarshal(c.Data, &data)
	}
	interval := duration.ParseLenient(data.Interval)
	if interval <= 0 {
		interval = time.Second
	}
	steps := make([]string, 0, len(data.Steps)+2)
	if data.Intro != "" {
		steps = append(steps, data.Intro)
	}
	steps = append(steps, data.Steps...)
	if data.Outro != "" {
		steps = append(steps, data.Outro)
	}
	return func(ctx context.Context, exec *command.ExecContext) (string, error) {
		for i, step := range steps {
			if i > 0 {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(interval):
				}
			}
			msg := step
			if deps.Repl != nil {
				msg, _ = deps.Repl.Do(ctx, step, exec.Raw, exec.Twitch, c.Variables)
			}
			if msg != "" && deps.Say != nil {
				deps.Say(msg)
			}
		}
		return "", nil
	}
}
