// Command streambot is the main entrypoint for the chat bot.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Loads command configuration and builds the per-channel session.
//   - Starts the IRC connection, timer loop, follow poller, and the
//     OAuth token refresher.
//   - Exposes a minimal HTTP server with /healthz, /status, and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nicklaw5/helix/v2"

	"github.com/onnwee/streambot/actions"
	"github.com/onnwee/streambot/chat"
	"github.com/onnwee/streambot/config"
	"github.com/onnwee/streambot/db"
	"github.com/onnwee/streambot/engine"
	"github.com/onnwee/streambot/events"
	"github.com/onnwee/streambot/modules"
	"github.com/onnwee/streambot/oauth"
	"github.com/onnwee/streambot/replacer"
	"github.com/onnwee/streambot/server"
	"github.com/onnwee/streambot/telemetry"
	"github.com/onnwee/streambot/twitchapi"
	"github.com/onnwee/streambot/variables"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load(".env")

	initLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("streambot", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to open db", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("failed to close database", slog.Any("err", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(ctx, database); err != nil {
		slog.Error("migration failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Resolve the channel's user id unless explicitly configured.
	appHelix := &twitchapi.HelixClient{
		AppTokenSource: &twitchapi.TokenSource{ClientID: cfg.TwitchClientID, ClientSecret: cfg.TwitchClientSecret},
		ClientID:       cfg.TwitchClientID,
	}
	channelID := cfg.TwitchChannelID
	if channelID == "" && cfg.HelixReady() && cfg.TwitchChannel != "" {
		ctx2, cancel2 := context.WithTimeout(ctx, 8*time.Second)
		id, err := appHelix.GetUserID(ctx2, cfg.TwitchChannel)
		cancel2()
		if err != nil {
			slog.Warn("channel id lookup failed", slog.Any("err", err))
		} else {
			channelID = id
		}
	}
	if channelID == "" {
		slog.Warn("no channel id available; set TWITCH_CHANNEL_ID or client credentials")
	}

	varRepo := db.NewVariableRepo(database)
	execRepo := db.NewExecutionRepo(database)
	cmdRepo := db.NewCommandRepo(database)

	vars := variables.NewStore(varRepo, channelID)
	repl := replacer.New(vars)
	executor := engine.New(execRepo, repl)

	sess := &engine.Session{
		UserID:  channelID,
		Channel: cfg.TwitchChannel,
		Vars:    vars,
	}

	// Helix client for actions (chatters, channel title) uses the stored
	// user token; app tokens can't edit channel information.
	var actionHelix actions.HelixAPI
	if cfg.HelixReady() {
		if tok, err := db.GetOAuthToken(ctx, database, "twitch"); err != nil {
			slog.Warn("loading twitch user token failed", slog.Any("err", err))
		} else if tok != nil {
			client, err := helix.NewClient(&helix.Options{
				ClientID:        cfg.TwitchClientID,
				UserAccessToken: tok.AccessToken,
			})
			if err != nil {
				slog.Warn("helix client init failed", slog.Any("err", err))
			} else {
				actionHelix = client
			}
		}
	}

	deps := actions.Deps{
		Say: func(msg string) {
			if sess.Say != nil {
				sess.Say(msg)
			}
		},
		Helix: actionHelix,
		Repl:  repl,
	}

	stored, err := cmdRepo.LoadForUser(ctx, channelID)
	if err != nil {
		slog.Error("loading commands failed", slog.Any("err", err))
		os.Exit(1)
	}
	sess.Modules = modules.FromStored(actions.NewRegistry(), deps, stored)
	slog.Info("commands loaded", slog.Int("count", len(stored)), slog.Int("modules", len(sess.Modules)))

	// Token refresher keeps the stored user token fresh.
	if cfg.HelixReady() {
		oauth.StartRefresher(ctx, database, "twitch", 5*time.Minute, 15*time.Minute,
			oauth.TwitchRefresher(cfg.TwitchClientID, cfg.TwitchClientSecret))
	}

	// Follow poller (follows never arrive over IRC).
	if cfg.HelixReady() && channelID != "" {
		poller := &events.FollowPoller{
			API:       appHelix,
			ChannelID: channelID,
			Interval:  cfg.FollowPollInterval,
			Exec:      executor,
			Sess:      sess,
		}
		go poller.Run(ctx)
	}

	// HTTP surface
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewMux(database, cfg.TwitchChannel),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("err", err))
		}
	}()

	// Chat connection
	if err := cfg.ValidateChatReady(); err != nil {
		slog.Warn("chat disabled", slog.Any("err", err))
	} else {
		svc := chat.NewService(cfg, executor, sess)
		go func() {
			if err := svc.Run(ctx); err != nil {
				slog.Error("chat connection ended", slog.Any("err", err))
			}
		}()
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("err", err))
	}
}

func initLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()))
}
