// Package engine orchestrates command dispatch: it matches incoming
// triggers against installed commands, gates on permission and cooldown,
// applies variable changes, runs template replacement, invokes command
// behavior, and records executions. Commands within one batch run
// concurrently; a failure in one never aborts its siblings.
package engine

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/streambot/command"
	"github.com/onnwee/streambot/cooldown"
	"github.com/onnwee/streambot/replacer"
	"github.com/onnwee/streambot/telemetry"
	"github.com/onnwee/streambot/variables"
)

// Module exposes a set of installed commands. The song-request module, the
// general command module, and so on each implement this.
type Module interface {
	Name() string
	Commands() []*command.FunctionCommand
}

// Sayer sends a message to the session's chat channel. Fire-and-forget;
// implementations swallow failures.
type Sayer func(msg string)

// Session carries the per-user state for one connected channel. Sessions
// are constructed at connection time with an explicit lifecycle; there are
// no process-wide singletons.
type Session struct {
	UserID  string
	Channel string
	Modules []Module
	Vars    *variables.Store
	Say     Sayer
}

// Commands returns the installed commands, optionally restricted to the
// named modules.
func (s *Session) Commands(scope ...string) []*command.FunctionCommand {
	var out []*command.FunctionCommand
	for _, m := range s.Modules {
		if len(scope) > 0 && !contains(scope, m.Name()) {
			continue
		}
		out = append(out, m.Commands()...)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Executor wires the cooldown tracker, execution record repository, and
// template replacer together.
type Executor struct {
	tracker *cooldown.Tracker
	records cooldown.Repo
	repl    *replacer.Replacer
}

func New(records cooldown.Repo, repl *replacer.Replacer) *Executor {
	return &Executor{
		tracker: cooldown.NewTracker(records),
		records: records,
		repl:    repl,
	}
}

// ExecuteMatching dispatches one batch of incoming triggers against the
// session's commands. scope optionally restricts to named modules. The
// call returns once every matched command has finished.
func (e *Executor) ExecuteMatching(ctx context.Context, sess *Session, raw *command.RawCommand, tctx *command.TwitchContext, triggers []command.Trigger, now time.Time, scope ...string) error {
	ctx = telemetry.WithCorrelation(ctx, uuid.NewString())
	ctx, span := telemetry.StartSpan(ctx, "engine", "execute_batch",
		attribute.String("channel", sess.Channel),
		attribute.Int("trigger_count", len(triggers)),
	)
	defer span.End()

	telemetry.Inc(telemetry.BatchesStarted)
	matched := command.Match(sess.Commands(scope...), triggers)
	span.SetAttributes(attribute.Int("matched", len(matched)))
	if len(matched) == 0 {
		return nil
	}

	start := time.Now()
	g := new(errgroup.Group)
	for _, fc := range matched {
		fc := fc
		telemetry.Inc(telemetry.CommandsMatched)
		g.Go(func() error {
			e.runOne(ctx, sess, fc, raw, tctx, now)
			return nil
		})
	}
	err := g.Wait()
	if telemetry.BatchDuration != nil {
		telemetry.BatchDuration.Observe(time.Since(start).Seconds())
	}
	return err
}

// runOne takes a single matched command through the gates. Steps are
// strictly sequential: permission, cooldowns, variable changes, behavior,
// record. Failures are logged, never returned.
func (e *Executor) runOne(ctx context.Context, sess *Session, fc *command.FunctionCommand, raw *command.RawCommand, tctx *command.TwitchContext, now time.Time) {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("command_id", fc.ID))

	if !command.MayExecute(tctx, &fc.Command) {
		telemetry.Inc(telemetry.PermissionDenied)
		return
	}

	if suppressed := e.checkCooldowns(ctx, sess, fc, raw, tctx, now, log); suppressed {
		telemetry.Inc(telemetry.CooldownSuppressed)
		return
	}

	e.applyVariableChanges(ctx, sess, fc, raw, tctx, log)

	if fc.Fn == nil {
		// inert action tag: configuration issue, not a runtime error
		log.Debug("command has no behavior, skipping", slog.String("action", string(fc.Action)))
		return
	}

	exec := &command.ExecContext{Raw: raw, Twitch: tctx, Date: now}
	var out string
	var err error
	telemetry.TimeFunc(telemetry.BehaviorDuration, func() {
		out, err = fc.Fn(ctx, exec)
	})
	telemetry.Inc(telemetry.CommandsExecuted)
	if err != nil {
		telemetry.Inc(telemetry.CommandsFailed)
		log.Warn("command behavior failed", slog.Any("err", err))
	} else if out != "" {
		e.say(ctx, sess, out, raw, tctx, fc.Variables)
	}

	rec := cooldown.Record{CommandID: fc.ID, ExecutedAt: now}
	if tctx != nil {
		rec.TriggerUserName = tctx.Login
	}
	if err := e.records.Insert(ctx, rec); err != nil {
		log.Error("failed to record execution", slog.Any("err", err))
	}
}

// checkCooldowns runs the global then per-user gate. On suppression the
// configured cooldown message (template-replaced) is said instead of the
// command body, and no execution is recorded.
func (e *Executor) checkCooldowns(ctx context.Context, sess *Session, fc *command.FunctionCommand, raw *command.RawCommand, tctx *command.TwitchContext, now time.Time, log *slog.Logger) bool {
	global, err := e.tracker.InGlobalTimeout(ctx, &fc.Command, now)
	if err != nil {
		log.Warn("global cooldown lookup failed", slog.Any("err", err))
	}
	if global {
		if fc.Cooldown.GlobalMessage != "" {
			e.say(ctx, sess, fc.Cooldown.GlobalMessage, raw, tctx, fc.Variables)
		}
		return true
	}
	perUser, err := e.tracker.InPerUserTimeout(ctx, &fc.Command, tctx, now)
	if err != nil {
		log.Warn("per-user cooldown lookup failed", slog.Any("err", err))
	}
	if perUser {
		if fc.Cooldown.PerUserMessage != "" {
			e.say(ctx, sess, fc.Cooldown.PerUserMessage, raw, tctx, fc.Variables)
		}
		return true
	}
	return false
}

// applyVariableChanges resolves each change's name and value through the
// replacer, then mutates the local variable when the command defines one,
// falling back to an existing global. A name matching neither is a no-op;
// changes never create variables implicitly.
func (e *Executor) applyVariableChanges(ctx context.Context, sess *Session, fc *command.FunctionCommand, raw *command.RawCommand, tctx *command.TwitchContext, log *slog.Logger) {
	for _, ch := range fc.VariableChanges {
		name, _ := e.repl.Do(ctx, ch.Name, raw, tctx, fc.Variables)
		value, _ := e.repl.Do(ctx, ch.Value, raw, tctx, fc.Variables)

		if cur, ok := fc.Command.LocalVariable(name); ok {
			fc.Command.SetLocalVariable(name, applyChange(ch.Change, cur, value))
			continue
		}
		if sess.Vars == nil {
			continue
		}
		var err error
		switch ch.Change {
		case command.ChangeSet:
			_, err = sess.Vars.SetExisting(ctx, name, value)
		case command.ChangeIncreaseBy:
			_, err = sess.Vars.AddInt(ctx, name, variables.ParseInt(value))
		case command.ChangeDecreaseBy:
			_, err = sess.Vars.AddInt(ctx, name, -variables.ParseInt(value))
		}
		if err != nil {
			log.Warn("variable change failed", slog.String("name", name), slog.Any("err", err))
		}
	}
}

func applyChange(kind command.ChangeType, current, value string) string {
	switch kind {
	case command.ChangeIncreaseBy:
		return strconv.FormatInt(variables.ParseInt(current)+variables.ParseInt(value), 10)
	case command.ChangeDecreaseBy:
		return strconv.FormatInt(variables.ParseInt(current)-variables.ParseInt(value), 10)
	default:
		return value
	}
}

// say template-replaces text and sends it through the session's Sayer.
func (e *Executor) say(ctx context.Context, sess *Session, text string, raw *command.RawCommand, tctx *command.TwitchContext, local []command.LocalVariable) {
	if sess.Say == nil {
		return
	}
	msg, err := e.repl.Do(ctx, text, raw, tctx, local)
	if err != nil {
		return
	}
	if msg != "" {
		sess.Say(msg)
	}
}
