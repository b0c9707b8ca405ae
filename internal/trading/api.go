// Package trading defines the exchange-agnostic contract between trading
// strategies and exchange adapters. Strategies trade exclusively through
// the API interface; each supported exchange provides its own
// implementation that translates the operations onto its native protocol.
//
// Only spot-market limit orders are supported. There is no margin or
// futures trading, and the contract makes no execution guarantee beyond
// "order accepted by the exchange".
package trading

import (
	"context"

	"github.com/shopspring/decimal"
)

// Version is the current version of the trading contract.
const Version = "1.0"

// API is what trading strategies use to observe market state and manage
// orders. Exchange adapters implement it against their venue's wire
// protocol.
//
// Every network-touching operation either returns a fully-formed result
// or exactly one of the two contract error kinds: a *TimeoutError for a
// transport timeout (transient, retryable) or an *APIError for anything
// else (treat continued automated trading as unsafe). No other error may
// escape an adapter. See IsTimeout and IsAPIErr.
//
// The order lifecycle is inferred, not queried: an order id returned by
// CreateOrder appears in OpenOrders while the order rests on the
// exchange, and disappears from that set once filled or cancelled. There
// is no terminal-state query; absence from OpenOrders is the only
// completion signal.
//
// An API instance is owned by a single trade cycle at a time. Callers
// must not invoke operations on the same instance concurrently unless
// the adapter documents support for it.
type API interface {
	// ImplName identifies the active adapter. Pure accessor, never fails.
	ImplName() string

	// MarketOrders fetches the current order book for a market.
	// Bids are ordered by descending price and asks by ascending price
	// (best price first on both sides), exactly as the exchange reports
	// them. The returned book is a fresh snapshot owned by the caller.
	MarketOrders(ctx context.Context, marketID string) (MarketOrderBook, error)

	// OpenOrders fetches the bot's own orders still resting on the
	// exchange for a market. An empty slice is a valid result, not an
	// error. Each call returns the current authoritative set.
	OpenOrders(ctx context.Context, marketID string) ([]OpenOrder, error)

	// CreateOrder places a limit order and returns the exchange-assigned
	// order id. Quantity and price must be positive. The unit convention
	// for quantity (base vs quote currency) is defined per market by the
	// adapter, not by this contract. Rejections, e.g. insufficient
	// balance or precision outside exchange limits, surface as *APIError,
	// never as a false id.
	CreateOrder(ctx context.Context, marketID string, side OrderSide, quantity, price decimal.Decimal) (string, error)

	// CancelOrder requests cancellation of an order. It returns true if
	// the exchange confirms cancellation, and false with a nil error if
	// the exchange reports the order cannot be cancelled (already filled,
	// already cancelled, or unknown) — a normal outcome, not a failure.
	CancelOrder(ctx context.Context, orderID string) (bool, error)

	// LatestMarketPrice returns the last traded price for a market,
	// denominated per the adapter's market convention.
	LatestMarketPrice(ctx context.Context, marketID string) (decimal.Decimal, error)

	// BalanceInfo returns a snapshot of all wallet balances.
	BalanceInfo(ctx context.Context) (BalanceInfo, error)

	// BuyOrderFee returns the fee the exchange takes from a BUY order on
	// the given market, as a decimal fraction in [0, 1). A 0.33% fee is
	// reported as 0.0033, never as 0.33 or 33.
	BuyOrderFee(ctx context.Context, marketID string) (decimal.Decimal, error)

	// SellOrderFee returns the fee the exchange takes from a SELL order
	// on the given market, as a decimal fraction in [0, 1).
	SellOrderFee(ctx context.Context, marketID string) (decimal.Decimal, error)
}
