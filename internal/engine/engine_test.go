package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tradebot/internal/strategy"
	"tradebot/internal/trading"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAPI satisfies trading.API for wiring; the engine only calls
// ImplName on it.
type stubAPI struct{ trading.API }

func (stubAPI) ImplName() string { return "Stub Exchange" }

// scriptedStrategy replays a fixed sequence of Execute results, then
// keeps returning nil.
type scriptedStrategy struct {
	mu      sync.Mutex
	results []error
	calls   int
}

func (s *scriptedStrategy) Execute(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return nil
	}
	err := s.results[0]
	s.results = s.results[1:]
	return err
}

func (s *scriptedStrategy) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type memJournal struct {
	mu    sync.Mutex
	halts []string
}

func (j *memJournal) RecordHalt(ctx context.Context, exchange, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.halts = append(j.halts, reason)
	return nil
}

func newTestEngine(t *testing.T, strat strategy.Strategy, journal Journal) *Engine {
	t.Helper()
	e, err := New(stubAPI{}, strat, journal, Config{
		CycleInterval:  5 * time.Millisecond,
		TimeoutRetries: 2,
	}, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	e.retryInterval = time.Millisecond
	return e
}

func TestConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero interval", Config{TimeoutRetries: 1}},
		{"negative interval", Config{CycleInterval: -time.Second}},
		{"negative retries", Config{CycleInterval: time.Second, TimeoutRetries: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(stubAPI{}, &scriptedStrategy{}, nil, tc.cfg, discardLogger()); err == nil {
				t.Fatal("want config error, got nil")
			}
		})
	}
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	strat := &scriptedStrategy{}
	e := newTestEngine(t, strat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancellation must be a clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after cancel")
	}
	if strat.callCount() == 0 {
		t.Fatal("strategy was never executed")
	}
}

func TestFatalErrorHaltsAndJournals(t *testing.T) {
	fatal := &strategy.FatalError{Err: &trading.APIError{
		Exchange: "Stub Exchange", Op: "CreateOrder", Reason: "rejected",
	}}
	strat := &scriptedStrategy{results: []error{fatal}}
	journal := &memJournal{}
	e := newTestEngine(t, strat, journal)

	err := e.Run(context.Background())
	if !strategy.IsFatal(err) {
		t.Fatalf("want the FatalError back, got %v", err)
	}
	if len(journal.halts) != 1 {
		t.Fatalf("got %d journaled halts, want 1", len(journal.halts))
	}
}

func TestTimeoutIsRetriedWithinCycle(t *testing.T) {
	timeout := &trading.TimeoutError{Exchange: "Stub Exchange", Op: "MarketOrders"}
	strat := &scriptedStrategy{results: []error{timeout, timeout, nil}}
	e := newTestEngine(t, strat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// Allow time for the in-cycle retries to burn through the script.
	deadline := time.After(5 * time.Second)
	for strat.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatal("retries never consumed the scripted timeouts")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("timeouts must not halt the engine, got %v", err)
	}
}

func TestExhaustedTimeoutsDeferToNextCycle(t *testing.T) {
	timeout := &trading.TimeoutError{Exchange: "Stub Exchange", Op: "MarketOrders"}
	// More timeouts than TimeoutRetries allows in one cycle.
	strat := &scriptedStrategy{results: []error{timeout, timeout, timeout, timeout}}
	e := newTestEngine(t, strat, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for strat.callCount() < 5 { // 4 scripted timeouts + at least one clean call
		select {
		case <-deadline:
			t.Fatal("engine never reached the cycle after the timeouts")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("deferred timeouts must not halt the engine, got %v", err)
	}
}

func TestUnclassifiedErrorIsFatal(t *testing.T) {
	strat := &scriptedStrategy{results: []error{errors.New("mystery failure")}}
	journal := &memJournal{}
	e := newTestEngine(t, strat, journal)

	err := e.Run(context.Background())
	if err == nil {
		t.Fatal("an unclassified error must halt the engine")
	}
	if trading.IsTimeout(err) || strategy.IsFatal(err) {
		t.Fatalf("unexpected classification for %v", err)
	}
	if len(journal.halts) != 1 {
		t.Fatalf("got %d journaled halts, want 1", len(journal.halts))
	}
}
