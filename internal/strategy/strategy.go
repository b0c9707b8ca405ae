// Package strategy defines the trading strategy contract the engine
// drives, plus a sample scalping strategy.
package strategy

import (
	"context"
	"errors"
	"fmt"
)

// Strategy is one unit of trading logic. The engine calls Execute once
// per trade cycle; the strategy owns its exchange interactions for the
// duration of the call.
//
// Error protocol: a *trading.TimeoutError from the exchange must be
// returned unwrapped so the engine can retry the cycle. Any condition
// the strategy cannot recover from is returned as *FatalError, which
// stops the engine.
type Strategy interface {
	Execute(ctx context.Context) error
}

// FatalError signals that trading must halt. The engine shuts down
// rather than risk running against unknown exchange state.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("strategy fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// IsFatal reports whether err is or wraps a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
