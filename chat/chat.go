// Package chat connects the engine to Twitch IRC: it turns chat lines and
// user notices into raw commands, execution contexts, and incoming
// triggers, and binds the session's say function to the joined channel.
package chat

import (
	"context"
	"log/slog"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/config"
	"github.com/onnwee/streambot/engine"
	"github.com/onnwee/streambot/telemetry"
)

// batchTimeout bounds one trigger batch, including any $customapi fetches
// commands perform during replacement.
const batchTimeout = time.Minute

// Service owns the IRC connection for one channel session.
type Service struct {
	cfg    *config.Config
	exec   *engine.Executor
	sess   *engine.Session
	client *twitch.Client
	timers *timerRunner
}

// NewService builds the IRC client and binds the session's Say to the
// configured channel.
func NewService(cfg *config.Config, exec *engine.Executor, sess *engine.Session) *Service {
	s := &Service{
		cfg:    cfg,
		exec:   exec,
		sess:   sess,
		client: twitch.NewClient(cfg.TwitchBotUsername, cfg.TwitchOAuthToken),
		timers: newTimerRunner(),
	}
	sess.Say = s.Say
	return s
}

// Say sends a message to the session channel. Fire-and-forget.
func (s *Service) Say(msg string) {
	telemetry.Inc(telemetry.MessagesSaid)
	s.client.Say(s.cfg.TwitchChannel, msg)
}

// Run joins the channel and blocks until the connection drops or ctx is
// canceled. The timer loop runs alongside the connection.
func (s *Service) Run(ctx context.Context) error {
	s.client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		s.onPrivateMessage(ctx, msg)
	})
	s.client.OnUserNoticeMessage(func(msg twitch.UserNoticeMessage) {
		s.onUserNotice(ctx, msg)
	})

	go s.runTimers(ctx)

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = s.client.Disconnect()
		close(done)
	}()

	s.client.Join(s.cfg.TwitchChannel)
	err := s.client.Connect()
	<-done
	return err
}

func (s *Service) onPrivateMessage(ctx context.Context, msg twitch.PrivateMessage) {
	telemetry.Inc(telemetry.ChatLinesSeen)
	s.timers.noteLine()

	tctx := contextFromUser(msg.User, msg.RoomID)
	raw := command.ParseMessage(msg.Message)

	triggers := command.CommandTriggersForMessage(s.sess.Commands(), msg.Message)
	if msg.Bits > 0 {
		triggers = append(triggers, command.Trigger{Type: command.TriggerCheer})
	}
	if msg.CustomRewardID != "" {
		// IRC carries the reward id, not the title; reward_redemption
		// triggers are configured with the id
		triggers = append(triggers, command.Trigger{
			Type: command.TriggerRewardRedemption,
			Data: command.TriggerData{Command: msg.CustomRewardID},
		})
	}
	if len(triggers) == 0 {
		return
	}
	go s.dispatch(ctx, raw, tctx, triggers)
}

func (s *Service) onUserNotice(ctx context.Context, msg twitch.UserNoticeMessage) {
	var trigger command.Trigger
	switch msg.MsgID {
	case "sub", "resub", "subgift":
		trigger = command.Trigger{Type: command.TriggerSubscribe}
	case "raid":
		trigger = command.Trigger{Type: command.TriggerRaid}
	default:
		return
	}
	tctx := contextFromUser(msg.User, msg.RoomID)
	go s.dispatch(ctx, nil, tctx, []command.Trigger{trigger})
}

// dispatch runs one trigger batch with its own timeout so a stuck remote
// fetch never blocks the connection handler.
func (s *Service) dispatch(ctx context.Context, raw *command.RawCommand, tctx *command.TwitchContext, triggers []command.Trigger) {
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()
	if err := s.exec.ExecuteMatching(ctx, s.sess, raw, tctx, triggers, time.Now()); err != nil {
		slog.Warn("trigger batch failed", slog.Any("err", err))
	}
}

func contextFromUser(u twitch.User, roomID string) *command.TwitchContext {
	_, sub := u.Badges["subscriber"]
	_, founder := u.Badges["founder"]
	_, mod := u.Badges["moderator"]
	return &command.TwitchContext{
		UserID:       u.ID,
		Login:        u.Name,
		DisplayName:  u.DisplayName,
		ChannelID:    roomID,
		IsMod:        mod,
		IsSubscriber: sub || founder,
		Badges:       u.Badges,
	}
}
