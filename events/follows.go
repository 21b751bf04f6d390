// Package events feeds platform events that don't arrive over IRC into
// the engine. Currently that is follows, polled from the Helix followers
// endpoint.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/engine"
	"github.com/onnwee/streambot/twitchapi"
)

// FollowerLister is the Helix surface the poller needs. Satisfied by
// *twitchapi.HelixClient.
type FollowerLister interface {
	ListFollowers(ctx context.Context, broadcasterID string, first int) ([]twitchapi.Follower, error)
}

// FollowPoller emits a follow trigger batch for every new follower seen
// since the previous poll. The first poll only baselines, so restarts
// don't replay old follows.
type FollowPoller struct {
	API       FollowerLister
	ChannelID string
	Interval  time.Duration
	Exec      *engine.Executor
	Sess      *engine.Session

	lastSeen time.Time
	primed   bool
}

// Run polls until ctx is canceled.
func (p *FollowPoller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *FollowPoller) pollOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	followers, err := p.API.ListFollowers(ctx, p.ChannelID, 20)
	if err != nil {
		slog.Warn("follower poll failed", slog.Any("err", err))
		return
	}
	if !p.primed {
		p.primed = true
		for _, f := range followers {
			if f.FollowedAt.After(p.lastSeen) {
				p.lastSeen = f.FollowedAt
			}
		}
		return
	}
	maxSeen := p.lastSeen
	for _, f := range followers {
		if !f.FollowedAt.After(p.lastSeen) {
			continue
		}
		if f.FollowedAt.After(maxSeen) {
			maxSeen = f.FollowedAt
		}
		tctx := &command.TwitchContext{
			UserID:      f.UserID,
			Login:       f.UserLogin,
			DisplayName: f.UserName,
			ChannelID:   p.ChannelID,
		}
		trigger := []command.Trigger{{Type: command.TriggerFollow}}
		if err := p.Exec.ExecuteMatching(ctx, p.Sess, nil, tctx, trigger, time.Now()); err != nil {
			slog.Warn("follow batch failed", slog.Any("err", err))
		}
	}
	p.lastSeen = maxSeen
}
