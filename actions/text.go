package actions

import (
	"context"
	"encoding/json"
	"math/rand"

	"github.com/onnwee/streambot/command"
)

type textData struct {
	Text []string `json:"text"`
}

// buildText returns one of the configured text variants at random. The
// executor runs template replacement on the returned text before saying it.
func buildText(_ Deps, c *command.Command) command.BehaviorFunc {
	var data textData
	if len(c.Data) > 0 {
		_ = json.Unmarshal(c.Data, &data)
	}
	return func(_ context.Context, _ *command.ExecContext) (string, error) {
		if len(data.Text) == 0 {
			return "", nil
		}
		//nolint:gosec // G404: variant selection, not security sensitive
		return data.Text[rand.Intn(len(data.Text))], nil
	}
}
