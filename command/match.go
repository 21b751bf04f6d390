package command

// Match returns the commands whose own triggers match any incoming trigger.
// Equality is type + match data (see triggerMatches); the result keeps
// first-occurrence order and never lists the same command twice.
func Match(all []*FunctionCommand, incoming []Trigger) []*FunctionCommand {
	var out []*FunctionCommand
	seen := make(map[*FunctionCommand]struct{})
	for _, fc := range all {
		if _, dup := seen[fc]; dup {
			continue
		}
		for _, own := range fc.Triggers {
			if matched := func() bool {
				for _, in := range incoming {
					if triggerMatches(own, in) {
						return true
					}
				}
				return false
			}(); matched {
				seen[fc] = struct{}{}
				out = append(out, fc)
				break
			}
		}
	}
	return out
}

// triggerMatches compares an installed trigger against an incoming one.
// CommandExact is deliberately not part of command-trigger equality; it only
// participates in the raw-text step (Trigger.MatchesText).
func triggerMatches(own, in Trigger) bool {
	if own.Type != in.Type {
		return false
	}
	switch own.Type {
	case TriggerCommand, TriggerRewardRedemption:
		return own.Data.Command == in.Data.Command
	case TriggerTimer:
		return own.Data.MinInterval == in.Data.MinInterval &&
			own.Data.MinLines == in.Data.MinLines
	default:
		// follow/cheer/raid/subscribe carry no extra match data
		return true
	}
}

// CommandTriggersForMessage scans the installed commands and returns one
// incoming trigger per distinct command text that the raw chat line
// activates under the exact/prefix rule.
func CommandTriggersForMessage(all []*FunctionCommand, msg string) []Trigger {
	var out []Trigger
	seen := make(map[string]struct{})
	for _, fc := range all {
		for _, t := range fc.Triggers {
			if !t.MatchesText(msg) {
				continue
			}
			if _, dup := seen[t.Data.Command]; dup {
				continue
			}
			seen[t.Data.Command] = struct{}{}
			out = append(out, Trigger{Type: TriggerCommand, Data: TriggerData{Command: t.Data.Command}})
		}
	}
	return out
}
