// Package engine drives fixed-interval trade cycles over one exchange
// adapter and one strategy.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tradebot/internal/strategy"
	"tradebot/internal/trading"
)

// Journal records engine lifecycle events for post-mortem review.
type Journal interface {
	RecordHalt(ctx context.Context, exchange, reason string) error
}

// Config tunes the trade cycle loop.
type Config struct {
	// CycleInterval is the pause between trade cycles.
	CycleInterval time.Duration
	// TimeoutRetries caps how many times a cycle is retried after an
	// exchange timeout before the cycle is abandoned until the next
	// tick.
	TimeoutRetries int
}

func (c Config) validate() error {
	if c.CycleInterval <= 0 {
		return fmt.Errorf("engine: cycle interval must be positive, got %s", c.CycleInterval)
	}
	if c.TimeoutRetries < 0 {
		return fmt.Errorf("engine: timeout retries must not be negative, got %d", c.TimeoutRetries)
	}
	return nil
}

// Engine owns the trade cycle loop. Exactly one cycle runs at a time;
// the adapter is never called concurrently.
//
// Error policy per cycle: exchange timeouts are retried with capped
// exponential backoff, then deferred to the next cycle with a warning.
// A strategy FatalError stops the engine after journaling the cause.
// Any other error is a protocol violation and is treated as fatal too.
type Engine struct {
	api     trading.API
	strat   strategy.Strategy
	journal Journal
	log     *slog.Logger
	cfg     Config

	// retryInterval seeds the exponential backoff between timeout
	// retries. Zero selects the backoff library default.
	retryInterval time.Duration
}

// New wires an engine. journal may be nil when nothing persists halts.
func New(api trading.API, strat strategy.Strategy, journal Journal, cfg Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		api:     api,
		strat:   strat,
		journal: journal,
		log:     log.With("exchange", api.ImplName()),
		cfg:     cfg,
	}, nil
}

// Run loops trade cycles until ctx is cancelled or a fatal error
// halts trading. Cancellation is a clean shutdown and returns nil.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("engine starting", "cycleInterval", e.cfg.CycleInterval)

	ticker := time.NewTicker(e.cfg.CycleInterval)
	defer ticker.Stop()

	for cycle := uint64(1); ; cycle++ {
		if err := e.runCycle(ctx, cycle); err != nil {
			e.halt(err)
			return err
		}

		select {
		case <-ctx.Done():
			e.log.Info("engine stopping", "reason", context.Cause(ctx))
			return nil
		case <-ticker.C:
		}
	}
}

// runCycle executes the strategy once, retrying timeouts in place.
// A nil return means the cycle either succeeded or was abandoned
// until the next tick; a non-nil return halts the engine.
func (e *Engine) runCycle(ctx context.Context, cycle uint64) error {
	expo := backoff.NewExponentialBackOff()
	if e.retryInterval > 0 {
		expo.InitialInterval = e.retryInterval
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(expo, uint64(e.cfg.TimeoutRetries)),
		ctx,
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := e.strat.Execute(ctx)
		if err == nil {
			return nil
		}
		if trading.IsTimeout(err) {
			e.log.Warn("exchange timed out, retrying cycle",
				"cycle", cycle, "attempt", attempt, "error", err)
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil && !strategy.IsFatal(err):
		// Shutdown raced the retry loop; Run's select handles it.
		return nil
	case trading.IsTimeout(err):
		e.log.Warn("cycle abandoned after repeated timeouts, deferring to next cycle",
			"cycle", cycle, "attempts", attempt, "error", err)
		return nil
	case strategy.IsFatal(err):
		return err
	default:
		return fmt.Errorf("engine: strategy broke the error protocol: %w", err)
	}
}

func (e *Engine) halt(cause error) {
	e.log.Error("trading halted", "cause", cause)
	if e.journal == nil {
		return
	}
	// Best effort with a fresh deadline: the run context may already
	// be dead.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.journal.RecordHalt(ctx, e.api.ImplName(), cause.Error()); err != nil {
		e.log.Error("failed to journal halt", "error", err)
	}
}
