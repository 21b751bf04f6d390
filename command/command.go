// Package command defines the chat command data model: triggers, permission
// policy, cooldown policy, and the execution context handed to command
// behavior functions. Matching and permission evaluation live here too.
package command

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// TriggerType discriminates the Trigger union.
type TriggerType string

const (
	TriggerCommand          TriggerType = "command"
	TriggerTimer            TriggerType = "timer"
	TriggerFollow           TriggerType = "follow"
	TriggerCheer            TriggerType = "cheer"
	TriggerRaid             TriggerType = "raid"
	TriggerSubscribe        TriggerType = "subscribe"
	TriggerRewardRedemption TriggerType = "reward_redemption"
)

// TriggerData carries the type-specific match data. For command triggers
// Command is the chat text; for reward redemptions it is the reward title.
// Timer triggers gate on MinInterval (human duration) and MinLines.
type TriggerData struct {
	Command      string `json:"command,omitempty"`
	CommandExact bool   `json:"commandExact,omitempty"`
	MinInterval  string `json:"minInterval,omitempty"`
	MinLines     int    `json:"minLines,omitempty"`
}

// Trigger is a condition that makes a Command eligible to run.
type Trigger struct {
	Type TriggerType `json:"type"`
	Data TriggerData `json:"data"`
}

// MatchesText reports whether a raw chat line activates a command-type
// trigger: exact equality when CommandExact, otherwise equality or a
// "trigger text + space" prefix.
func (t Trigger) MatchesText(msg string) bool {
	if t.Type != TriggerCommand || t.Data.Command == "" {
		return false
	}
	if t.Data.CommandExact {
		return msg == t.Data.Command
	}
	return msg == t.Data.Command || strings.HasPrefix(msg, t.Data.Command+" ")
}

// Role names a viewer class a command may be restricted to.
type Role string

const (
	RoleMod         Role = "mod"
	RoleVIP         Role = "vip"
	RoleSub         Role = "sub"
	RoleBroadcaster Role = "broadcaster"
	RoleRegular     Role = "regular"
)

// Restrict limits who may run a command. With Active false everyone passes.
type Restrict struct {
	Active bool   `json:"active"`
	To     []Role `json:"to"`
}

// Cooldown holds minimum re-fire intervals as human duration strings
// ("10s", "1m 30s", bare integer milliseconds). Empty means no cooldown.
type Cooldown struct {
	Global         string `json:"global"`
	GlobalMessage  string `json:"globalMessage"`
	PerUser        string `json:"perUser"`
	PerUserMessage string `json:"perUserMessage"`
}

// LocalVariable is a name/value pair scoped to a single command.
type LocalVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ChangeType selects how a VariableChange mutates its target.
type ChangeType string

const (
	ChangeSet        ChangeType = "set"
	ChangeIncreaseBy ChangeType = "increase_by"
	ChangeDecreaseBy ChangeType = "decrease_by"
)

// VariableChange mutates a local or global variable before a command runs.
// Name and Value pass through the template replacer before being applied.
type VariableChange struct {
	Name   string     `json:"name"`
	Value  string     `json:"value"`
	Change ChangeType `json:"change"`
}

// Action tags the behavior a command performs.
type Action string

const (
	ActionText              Action = "text"
	ActionMedia             Action = "media"
	ActionMediaVolume       Action = "media_volume"
	ActionCountdown         Action = "countdown"
	ActionDictLookup        Action = "dict_lookup"
	ActionMadochanWord      Action = "madochan_createword"
	ActionChatters          Action = "chatters"
	ActionSetChannelTitle   Action = "set_channel_title"
	ActionAddStreamTags     Action = "add_stream_tags"
	ActionRemoveStreamTags  Action = "remove_stream_tags"
	ActionSrCurrent         Action = "sr_current"
	ActionSrAddTag          Action = "sr_addtag"
	ActionSrRmTag           Action = "sr_rmtag"
	ActionSrGood            Action = "sr_good"
	ActionSrBad             Action = "sr_bad"
	ActionSrStats           Action = "sr_stats"
	ActionSrUndo            Action = "sr_undo"
	ActionSrRequest         Action = "sr_request"
	ActionSrReRequest       Action = "sr_re_request"
	ActionSrNext            Action = "sr_next"
	ActionSrJumpToNew       Action = "sr_jumptonew"
	ActionSrPause           Action = "sr_pause"
	ActionSrUnpause         Action = "sr_unpause"
	ActionSrHidevideo       Action = "sr_hidevideo"
	ActionSrShowvideo       Action = "sr_showvideo"
	ActionSrLoop            Action = "sr_loop"
	ActionSrNoloop          Action = "sr_noloop"
	ActionSrShuffle         Action = "sr_shuffle"
	ActionSrResetStats      Action = "sr_reset_stats"
	ActionSrClear           Action = "sr_clear"
	ActionSrRm              Action = "sr_rm"
	ActionSrVolume          Action = "sr_volume"
	ActionSrFilter          Action = "sr_filter"
	ActionSrPreset          Action = "sr_preset"
	ActionSrQueue           Action = "sr_queue"
	ActionSetStreamCategory Action = "set_stream_category"
)

// Command is one user-configured behavior unit. The zero value is not
// usable; commands come from JSON config where Enabled defaults to true.
type Command struct {
	ID              string           `json:"id"`
	Triggers        []Trigger        `json:"triggers"`
	Action          Action           `json:"action"`
	Restrict        Restrict         `json:"restrict"`
	AllowUsers      []string         `json:"allow_users"`
	DisallowUsers   []string         `json:"disallow_users"`
	Enabled         bool             `json:"enabled"`
	Cooldown        Cooldown         `json:"cooldown"`
	Variables       []LocalVariable  `json:"variables"`
	VariableChanges []VariableChange `json:"variableChanges"`
	Data            json.RawMessage  `json:"data,omitempty"`
}

// UnmarshalJSON applies the enabled-by-default rule for configs that omit
// the field.
func (c *Command) UnmarshalJSON(b []byte) error {
	type alias Command
	a := alias{Enabled: true}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*c = Command(a)
	return nil
}

// LocalVariable returns the value of a command-scoped variable.
func (c *Command) LocalVariable(name string) (string, bool) {
	for _, v := range c.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return "", false
}

// SetLocalVariable mutates a command-scoped variable in place. It reports
// whether a variable with that name existed.
func (c *Command) SetLocalVariable(name, value string) bool {
	for i := range c.Variables {
		if c.Variables[i].Name == name {
			c.Variables[i].Value = value
			return true
		}
	}
	return false
}

// BehaviorFunc is the side-effecting body of a command. A non-empty return
// value is template-replaced and sent to chat by the executor.
type BehaviorFunc func(ctx context.Context, exec *ExecContext) (string, error)

// FunctionCommand pairs a Command with its resolved behavior. Fn may be nil
// for inert actions (unknown tag, or an action handled by another process).
type FunctionCommand struct {
	Command
	Fn BehaviorFunc `json:"-"`
}

// RawCommand is a chat line parsed into a command name and arguments.
type RawCommand struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// ParseMessage splits a chat line into a RawCommand. Returns nil for blank
// input.
func ParseMessage(line string) *RawCommand {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	return &RawCommand{Name: fields[0], Args: fields[1:]}
}

// TwitchContext identifies the message/event author and their standing in
// the channel. Built from IRC tags or Helix event payloads.
type TwitchContext struct {
	UserID       string         `json:"user-id"`
	Login        string         `json:"username"`
	DisplayName  string         `json:"display-name"`
	ChannelID    string         `json:"room-id"`
	IsMod        bool           `json:"mod"`
	IsSubscriber bool           `json:"subscriber"`
	Badges       map[string]int `json:"badges,omitempty"`
}

// IsBroadcaster reports whether the author owns the channel.
func (t *TwitchContext) IsBroadcaster() bool {
	return t.UserID != "" && t.UserID == t.ChannelID
}

// HasVIPBadge reports whether the author carries the vip badge.
func (t *TwitchContext) HasVIPBadge() bool {
	_, ok := t.Badges["vip"]
	return ok
}

// ExecContext is the ephemeral per-dispatch payload handed to behavior
// functions. Never persisted.
type ExecContext struct {
	Raw    *RawCommand    `json:"rawCmd"`
	Twitch *TwitchContext `json:"context"`
	Date   time.Time      `json:"date"`
}
