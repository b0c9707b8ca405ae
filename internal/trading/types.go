package trading

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order.
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Valid reports whether the side is one of the two known values.
func (s OrderSide) Valid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

// MarketOrder is a single order book level: aggregate quantity resting
// at one price.
type MarketOrder struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// MarketOrderBook is a snapshot of one market's order book.
// Bids are sorted by descending price, asks by ascending price, so the
// best price is first on both sides.
type MarketOrderBook struct {
	MarketID string
	Bids     []MarketOrder
	Asks     []MarketOrder
}

// BestBid returns the highest bid, if any.
func (b MarketOrderBook) BestBid() (MarketOrder, bool) {
	if len(b.Bids) == 0 {
		return MarketOrder{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b MarketOrderBook) BestAsk() (MarketOrder, bool) {
	if len(b.Asks) == 0 {
		return MarketOrder{}, false
	}
	return b.Asks[0], true
}

// Validate checks the book's sort invariants: bids non-increasing and
// asks non-decreasing by price.
func (b MarketOrderBook) Validate() error {
	for i := 1; i < len(b.Bids); i++ {
		if b.Bids[i].Price.GreaterThan(b.Bids[i-1].Price) {
			return fmt.Errorf("book %s: bid %d (%s) above bid %d (%s)",
				b.MarketID, i, b.Bids[i].Price, i-1, b.Bids[i-1].Price)
		}
	}
	for i := 1; i < len(b.Asks); i++ {
		if b.Asks[i].Price.LessThan(b.Asks[i-1].Price) {
			return fmt.Errorf("book %s: ask %d (%s) below ask %d (%s)",
				b.MarketID, i, b.Asks[i].Price, i-1, b.Asks[i-1].Price)
		}
	}
	return nil
}

// OpenOrder is a bot-owned order still resting on the exchange.
type OpenOrder struct {
	ID                string
	MarketID          string
	Side              OrderSide
	Price             decimal.Decimal
	OriginalQuantity  decimal.Decimal
	RemainingQuantity decimal.Decimal
	CreatedAt         time.Time
}

// FilledQuantity returns how much of the order has executed so far.
func (o OpenOrder) FilledQuantity() decimal.Decimal {
	return o.OriginalQuantity.Sub(o.RemainingQuantity)
}

// Balance is the state of a single currency in the wallet: funds free to
// trade and funds reserved in open orders.
type Balance struct {
	Available decimal.Decimal
	OnHold    decimal.Decimal
}

// Total returns available plus on-hold funds.
func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.OnHold)
}

// BalanceInfo is a wallet snapshot keyed by currency code.
type BalanceInfo struct {
	Balances map[string]Balance
}

// Balance returns the balance for a currency. Unknown currencies yield a
// zero balance.
func (bi BalanceInfo) Balance(currency string) Balance {
	return bi.Balances[currency]
}
