package command

import "strings"

// MayExecute decides whether the author behind ctx may run c.
//
// Order matters: disabled commands never run, an allow_users hit bypasses
// both the role restriction and the disallow list, and only then do the
// role buckets and disallow list apply.
func MayExecute(ctx *TwitchContext, c *Command) bool {
	if c == nil || !c.Enabled {
		return false
	}
	if ctx == nil {
		// timer-fired commands have no author; only the role policy applies
		ctx = &TwitchContext{}
	}
	if containsUser(c.AllowUsers, ctx.Login) {
		return true
	}
	if !userTypeOK(ctx, c) {
		return false
	}
	return !containsUser(c.DisallowUsers, ctx.Login)
}

// userTypeOK checks the role restriction. The buckets partition viewers:
// a broadcaster only ever matches via the broadcaster role (never sub or
// regular), and regular excludes broadcaster, mod, and subscriber.
func userTypeOK(ctx *TwitchContext, c *Command) bool {
	if !c.Restrict.Active {
		return true
	}
	broadcaster := ctx.IsBroadcaster()
	for _, role := range c.Restrict.To {
		switch role {
		case RoleMod:
			if ctx.IsMod {
				return true
			}
		case RoleSub:
			if ctx.IsSubscriber && !broadcaster {
				return true
			}
		case RoleVIP:
			if ctx.HasVIPBadge() {
				return true
			}
		case RoleBroadcaster:
			if broadcaster {
				return true
			}
		case RoleRegular:
			if !broadcaster && !ctx.IsMod && !ctx.IsSubscriber {
				return true
			}
		}
	}
	return false
}

func containsUser(users []string, login string) bool {
	for _, u := range users {
		if strings.EqualFold(u, login) {
			return true
		}
	}
	return false
}
