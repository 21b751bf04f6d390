package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nicklaw5/helix/v2"

	"github.com/onnwee/streambot/command"
)

// buildChatters lists who is currently in chat via the Helix chatters
// endpoint.
func buildChatters(deps Deps, _ *command.Command) command.BehaviorFunc {
	return func(_ context.Context, exec *command.ExecContext) (string, error) {
		if deps.Helix == nil {
			return "", fmt.Errorf("chatters: no helix client configured")
		}
		if exec.Twitch == nil {
			return "", fmt.Errorf("chatters: no twitch context")
		}
		resp, err := deps.Helix.GetChannelChatChatters(&helix.GetChatChattersParams{
			BroadcasterID: exec.Twitch.ChannelID,
			ModeratorID:   exec.Twitch.ChannelID,
		})
		if err != nil {
			return "", fmt.Errorf("chatters: %w", err)
		}
		if len(resp.Data.Chatters) == 0 {
			return "It seems nobody is in chat.", nil
		}
		names := make([]string, 0, len(resp.Data.Chatters))
		for _, c := range resp.Data.Chatters {
			names = append(names, c.Username)
		}
		return "Currently in chat: " + strings.Join(names, ", "), nil
	}
}

type setChannelTitleData struct {
	Title string `json:"title"`
}

// buildSetChannelTitle updates the stream title. The new title comes from
// the configured data, falling back to the command arguments; placeholders
// in the configured title are resolved against the triggering context.
func buildSetChannelTitle(deps Deps, c *command.Command) command.BehaviorFunc {
	var data setChannelTitleData
	if len(c.Data) > 0 {
		_ = json.Unmarshal(c.Data, &data)
	}
	return func(ctx context.Context, exec *command.ExecContext) (string, error) {
		if deps.Helix == nil {
			return "", fmt.Errorf("set_channel_title: no helix client configured")
		}
		if exec.Twitch == nil {
			return "", fmt.Errorf("set_channel_title: no twitch context")
		}
		title := data.Title
		if title == "" && exec.Raw != nil {
			title = strings.Join(exec.Raw.Args, " ")
		}
		if deps.Repl != nil {
			title, _ = deps.Repl.Do(ctx, title, exec.Raw, exec.Twitch, c.Variables)
		}
		if title == "" {
			return "Usage: provide a new title.", nil
		}
		if _, err := deps.Helix.EditChannelInformation(&helix.EditChannelInformationParams{
			BroadcasterID: exec.Twitch.ChannelID,
			Title:         title,
		}); err != nil {
			return "", fmt.Errorf("set_channel_title: %w", err)
		}
		return "Stream title changed to: " + title, nil
	}
}
