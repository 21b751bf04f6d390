package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/onnwee/streambot/cooldown"
)

// ExecutionLog is an in-memory cooldown.Repo.
type ExecutionLog struct {
	mu      sync.Mutex
	records []cooldown.Record
}

func NewExecutionLog() *ExecutionLog {
	return &ExecutionLog{}
}

func (l *ExecutionLog) LastExecution(_ context.Context, commandID, userName string) (time.Time, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var (
		last  time.Time
		found bool
	)
	for _, rec := range l.records {
		if rec.CommandID != commandID {
			continue
		}
		if userName != "" && rec.TriggerUserName != userName {
			continue
		}
		if !found || rec.ExecutedAt.After(last) {
			last = rec.ExecutedAt
			found = true
		}
	}
	return last, found, nil
}

func (l *ExecutionLog) Insert(_ context.Context, rec cooldown.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Records returns a copy of everything inserted so far.
func (l *ExecutionLog) Records() []cooldown.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]cooldown.Record, len(l.records))
	copy(out, l.records)
	return out
}

// SaidCollector is a thread-safe Sayer capturing sent messages.
type SaidCollector struct {
	mu   sync.Mutex
	msgs []string
}

func NewSaidCollector() *SaidCollector {
	return &SaidCollector{}
}

func (s *SaidCollector) Say(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func (s *SaidCollector) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	copy(out, s.msgs)
	return out
}
