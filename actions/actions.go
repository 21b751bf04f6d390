// Package actions maps command action tags to behavior functions. The
// registry replaces the old string-keyed runtime dispatch: tags without a
// registered builder produce inert commands (nil behavior) instead of
// runtime lookup failures.
package actions

import (
	"github.com/nicklaw5/helix/v2"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/replacer"
)

// HelixAPI is the slice of the Helix client that actions use. Satisfied by
// *helix.Client and by test fakes.
type HelixAPI interface {
	GetChannelChatChatters(params *helix.GetChatChattersParams) (*helix.GetChatChattersResponse, error)
	EditChannelInformation(params *helix.EditChannelInformationParams) (*helix.EditChannelInformationResponse, error)
}

// Deps are the per-session collaborators handed to builders. Say is bound
// to the session's channel; Helix may be nil when no API credentials are
// configured (Helix-backed actions then report an error to the log, not
// to chat).
type Deps struct {
	Say   func(msg string)
	Helix HelixAPI
	Repl  *replacer.Replacer
}

// Builder produces the behavior function for one configured command.
type Builder func(deps Deps, c *command.Command) command.BehaviorFunc

// Registry maps action tags to builders.
type Registry struct {
	builders map[command.Action]Builder
}

// NewRegistry returns a registry with the built-in actions registered.
// Media, drawcast, and song-request actions are deliberately absent: their
// side effects live in the widget/overlay process, so those tags stay
// inert here.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[command.Action]Builder)}
	r.Register(command.ActionText, buildText)
	r.Register(command.ActionCountdown, buildCountdown)
	r.Register(command.ActionChatters, buildChatters)
	r.Register(command.ActionSetChannelTitle, buildSetChannelTitle)
	return r
}

func (r *Registry) Register(a command.Action, b Builder) {
	r.builders[a] = b
}

// Build resolves a configured command into a FunctionCommand. Unregistered
// action tags yield a nil behavior: the executor treats those as inert.
func (r *Registry) Build(deps Deps, c *command.Command) *command.FunctionCommand {
	fc := &command.FunctionCommand{Command: *c}
	if b, ok := r.builders[c.Action]; ok {
		fc.Fn = b(deps, &fc.Command)
	}
	return fc
}
