// Package telemetry provides Prometheus metrics and correlation-id aware
// logging helpers for the command engine.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	BatchesStarted     prometheus.Counter
	CommandsMatched    prometheus.Counter
	CommandsExecuted   prometheus.Counter
	CommandsFailed     prometheus.Counter
	CooldownSuppressed prometheus.Counter
	PermissionDenied   prometheus.Counter
	CustomAPIFailures  prometheus.Counter
	ChatLinesSeen      prometheus.Counter
	MessagesSaid       prometheus.Counter

	// Histograms
	BatchDuration    prometheus.Observer
	ReplacerPasses   prometheus.Observer
	BehaviorDuration prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		BatchesStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_batches_started_total", Help: "Number of trigger batches dispatched"})
		CommandsMatched = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_matched_total", Help: "Number of commands matched by incoming triggers"})
		CommandsExecuted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_executed_total", Help: "Number of command behavior functions invoked"})
		CommandsFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_commands_failed_total", Help: "Number of command behavior functions that returned an error"})
		CooldownSuppressed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_cooldown_suppressed_total", Help: "Number of command executions suppressed by cooldown"})
		PermissionDenied = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_permission_denied_total", Help: "Number of command executions skipped by permission policy"})
		CustomAPIFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_customapi_failures_total", Help: "Number of failed $customapi expansions"})
		ChatLinesSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_chat_lines_total", Help: "Number of chat lines observed"})
		MessagesSaid = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_said_total", Help: "Number of messages sent to chat"})
		BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_batch_duration_seconds", Help: "Trigger batch duration seconds", Buckets: prometheus.DefBuckets})
		ReplacerPasses = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_replacer_passes", Help: "Fixpoint passes needed per template replacement", Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10}})
		BehaviorDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_behavior_duration_seconds", Help: "Command behavior function duration seconds", Buckets: prometheus.DefBuckets})
	})
}

// Inc increments a counter if metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// IncCustomAPIFailure records a failed $customapi expansion.
func IncCustomAPIFailure() { Inc(CustomAPIFailures) }

// ObserveReplacerPasses records how many fixpoint passes a replacement took.
func ObserveReplacerPasses(n int) {
	if ReplacerPasses != nil {
		ReplacerPasses.Observe(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
