package command

import (
	"encoding/json"
	"reflect"
	"testing"
)

func cmdTrigger(text string, exact bool) Trigger {
	return Trigger{Type: TriggerCommand, Data: TriggerData{Command: text, CommandExact: exact}}
}

func TestMatchesText(t *testing.T) {
	tests := []struct {
		name    string
		trigger Trigger
		msg     string
		want    bool
	}{
		{"exact equality", cmdTrigger("!bet", false), "!bet", true},
		{"prefix with space", cmdTrigger("!bet", false), "!bet 100", true},
		{"prefix without space", cmdTrigger("!bet", false), "!bets", false},
		{"exact mode equality", cmdTrigger("!bet", true), "!bet", true},
		{"exact mode rejects args", cmdTrigger("!bet", true), "!bet 100", false},
		{"empty trigger text never matches", cmdTrigger("", false), "", false},
		{"non-command type", Trigger{Type: TriggerFollow}, "!bet", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.trigger.MatchesText(tt.msg); got != tt.want {
				t.Errorf("MatchesText(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestMatchDedup(t *testing.T) {
	// one command with two triggers that both match must appear once
	fc := &FunctionCommand{Command: Command{
		ID:       "c1",
		Enabled:  true,
		Triggers: []Trigger{cmdTrigger("!a", false), cmdTrigger("!b", false)},
	}}
	incoming := []Trigger{cmdTrigger("!a", false), cmdTrigger("!b", false)}

	got := Match([]*FunctionCommand{fc}, incoming)
	if len(got) != 1 || got[0] != fc {
		t.Fatalf("Match returned %d results, want the single command once", len(got))
	}
}

func TestMatchIgnoresCommandExactInEquality(t *testing.T) {
	// the installed trigger is exact-mode, the incoming one is not; they
	// still match because equality is type + command text only
	fc := &FunctionCommand{Command: Command{
		ID:       "c1",
		Enabled:  true,
		Triggers: []Trigger{cmdTrigger("!hi", true)},
	}}
	got := Match([]*FunctionCommand{fc}, []Trigger{cmdTrigger("!hi", false)})
	if len(got) != 1 {
		t.Fatal("commandExact must not participate in trigger equality")
	}
}

func TestMatchTimerTriggers(t *testing.T) {
	timer := func(interval string, lines int) Trigger {
		return Trigger{Type: TriggerTimer, Data: TriggerData{MinInterval: interval, MinLines: lines}}
	}
	fc := &FunctionCommand{Command: Command{
		ID:       "t1",
		Enabled:  true,
		Triggers: []Trigger{timer("5m", 3)},
	}}

	if got := Match([]*FunctionCommand{fc}, []Trigger{timer("5m", 3)}); len(got) != 1 {
		t.Error("matching interval+lines should match")
	}
	if got := Match([]*FunctionCommand{fc}, []Trigger{timer("5m", 4)}); len(got) != 0 {
		t.Error("differing minLines must not match")
	}
	if got := Match([]*FunctionCommand{fc}, []Trigger{timer("10m", 3)}); len(got) != 0 {
		t.Error("differing minInterval must not match")
	}
}

func TestMatchEventTriggersByTypeOnly(t *testing.T) {
	fc := &FunctionCommand{Command: Command{
		ID:       "f1",
		Enabled:  true,
		Triggers: []Trigger{{Type: TriggerFollow}},
	}}
	if got := Match([]*FunctionCommand{fc}, []Trigger{{Type: TriggerFollow}}); len(got) != 1 {
		t.Error("follow trigger should match on type alone")
	}
	if got := Match([]*FunctionCommand{fc}, []Trigger{{Type: TriggerRaid}}); len(got) != 0 {
		t.Error("different event type must not match")
	}
}

func TestMatchKeepsOrder(t *testing.T) {
	a := &FunctionCommand{Command: Command{ID: "a", Enabled: true, Triggers: []Trigger{cmdTrigger("!x", false)}}}
	b := &FunctionCommand{Command: Command{ID: "b", Enabled: true, Triggers: []Trigger{cmdTrigger("!x", false)}}}
	got := Match([]*FunctionCommand{a, b}, []Trigger{cmdTrigger("!x", false)})
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatal("Match should keep first-occurrence order")
	}
}

func TestCommandTriggersForMessage(t *testing.T) {
	all := []*FunctionCommand{
		{Command: Command{Triggers: []Trigger{cmdTrigger("!song", false)}}},
		{Command: Command{Triggers: []Trigger{cmdTrigger("!song", false), cmdTrigger("!song good", false)}}},
	}
	got := CommandTriggersForMessage(all, "!song good")
	want := []Trigger{
		{Type: TriggerCommand, Data: TriggerData{Command: "!song"}},
		{Type: TriggerCommand, Data: TriggerData{Command: "!song good"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CommandTriggersForMessage() = %+v, want %+v", got, want)
	}
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		line string
		want *RawCommand
	}{
		{"!bet 100  gold", &RawCommand{Name: "!bet", Args: []string{"100", "gold"}}},
		{"!hi", &RawCommand{Name: "!hi", Args: []string{}}},
		{"   ", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParseMessage(tt.line)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseMessage(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestUnmarshalEnabledDefault(t *testing.T) {
	var c Command
	if err := json.Unmarshal([]byte(`{"id":"x"}`), &c); err != nil {
		t.Fatal(err)
	}
	if !c.Enabled {
		t.Error("commands should default to enabled when the field is omitted")
	}

	var d Command
	if err := json.Unmarshal([]byte(`{"id":"x","enabled":false}`), &d); err != nil {
		t.Fatal(err)
	}
	if d.Enabled {
		t.Error("explicit enabled:false must be honored")
	}
}

func TestLocalVariableAccess(t *testing.T) {
	c := Command{Variables: []LocalVariable{{Name: "count", Value: "1"}}}
	if v, ok := c.LocalVariable("count"); !ok || v != "1" {
		t.Errorf("LocalVariable(count) = %q,%v", v, ok)
	}
	if !c.SetLocalVariable("count", "2") {
		t.Fatal("SetLocalVariable should report true for existing names")
	}
	if v, _ := c.LocalVariable("count"); v != "2" {
		t.Errorf("value after set = %q, want 2", v)
	}
	if c.SetLocalVariable("missing", "x") {
		t.Error("SetLocalVariable must not create new variables")
	}
}
