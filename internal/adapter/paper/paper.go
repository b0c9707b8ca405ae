// Package paper implements the trading contract against an in-memory
// simulated exchange. It exists to validate strategies before wiring a
// real venue: balances, holds, fees and the order lifecycle behave like
// a real spot exchange, but nothing leaves the process.
//
// Quantity convention: order quantity is denominated in the market's
// base currency; price is quote per unit of base.
//
// Limit orders rest until a mark-price update crosses them, so an order
// placed in one trade cycle is always observable via OpenOrders before
// it can fill. Fills execute at the order's limit price; fees are taken
// from the proceeds (base for BUY, quote for SELL).
package paper

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradebot/internal/adapter"
	"tradebot/internal/infra"
	"tradebot/internal/trading"
)

const implName = "Paper Exchange"

func init() {
	adapter.Register("paper", func(cfg *infra.Config) (trading.API, error) {
		return FromConfig(cfg)
	})
}

// Market defines one simulated market.
type Market struct {
	ID      string
	Base    string
	Quote   string
	BuyFee  decimal.Decimal // fraction in [0, 1)
	SellFee decimal.Decimal // fraction in [0, 1)
}

type balance struct {
	available decimal.Decimal
	onHold    decimal.Decimal
}

type restingOrder struct {
	id        string
	marketID  string
	side      trading.OrderSide
	price     decimal.Decimal
	quantity  decimal.Decimal
	hold      decimal.Decimal // reserved: quote for BUY, base for SELL
	createdAt time.Time
}

// Exchange is the simulated venue. It is safe for concurrent use, which
// exceeds what the contract requires of an adapter.
type Exchange struct {
	mu       sync.Mutex
	markets  map[string]Market
	balances map[string]*balance
	orders   map[string]*restingOrder
	marks    map[string]decimal.Decimal

	now func() time.Time
}

// New creates an empty paper exchange. Markets and deposits are added
// with AddMarket and Deposit before trading starts.
func New() *Exchange {
	return &Exchange{
		markets:  make(map[string]Market),
		balances: make(map[string]*balance),
		orders:   make(map[string]*restingOrder),
		marks:    make(map[string]decimal.Decimal),
		now:      time.Now,
	}
}

// FromConfig builds a paper exchange from the application config:
// market definitions with fee fractions plus initial deposits.
func FromConfig(cfg *infra.Config) (*Exchange, error) {
	ex := New()

	for _, mc := range cfg.Exchange.Paper.Markets {
		buyFee, err := decimal.NewFromString(mc.BuyFee)
		if err != nil {
			return nil, fmt.Errorf("market %s: bad buy fee %q: %w", mc.ID, mc.BuyFee, err)
		}
		sellFee, err := decimal.NewFromString(mc.SellFee)
		if err != nil {
			return nil, fmt.Errorf("market %s: bad sell fee %q: %w", mc.ID, mc.SellFee, err)
		}
		m := Market{ID: mc.ID, Base: mc.Base, Quote: mc.Quote, BuyFee: buyFee, SellFee: sellFee}
		if err := ex.AddMarket(m); err != nil {
			return nil, err
		}
	}

	for currency, amount := range cfg.Exchange.Paper.Deposits {
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("deposit %s: bad amount %q: %w", currency, amount, err)
		}
		ex.Deposit(currency, d)
	}

	return ex, nil
}

// AddMarket registers a simulated market. Fees must be fractions in
// [0, 1).
func (ex *Exchange) AddMarket(m Market) error {
	one := decimal.NewFromInt(1)
	for _, fee := range []decimal.Decimal{m.BuyFee, m.SellFee} {
		if fee.IsNegative() || fee.GreaterThanOrEqual(one) {
			return fmt.Errorf("market %s: fee %s outside [0, 1)", m.ID, fee)
		}
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.markets[m.ID] = m
	return nil
}

// Deposit credits funds to the simulated wallet.
func (ex *Exchange) Deposit(currency string, amount decimal.Decimal) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.account(currency).available = ex.account(currency).available.Add(amount)
}

// MarkPrice updates the market's mark price and fills every resting
// order the new price crosses: BUY orders with limit >= price, SELL
// orders with limit <= price. Unknown markets are ignored so a live
// price feed can carry more symbols than the simulation trades.
func (ex *Exchange) MarkPrice(marketID string, price decimal.Decimal) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	m, ok := ex.markets[marketID]
	if !ok {
		return
	}
	ex.marks[marketID] = price

	for id, o := range ex.orders {
		if o.marketID != marketID {
			continue
		}
		crossed := (o.side == trading.Buy && price.LessThanOrEqual(o.price)) ||
			(o.side == trading.Sell && price.GreaterThanOrEqual(o.price))
		if !crossed {
			continue
		}

		ex.fill(m, o)
		delete(ex.orders, id)
	}
}

// fill executes a resting order at its limit price. Caller holds the lock.
func (ex *Exchange) fill(m Market, o *restingOrder) {
	if o.side == trading.Buy {
		// Hold was quote (price*qty); buyer receives base minus fee.
		quote := ex.account(m.Quote)
		quote.onHold = quote.onHold.Sub(o.hold)

		received := o.quantity.Mul(decimal.NewFromInt(1).Sub(m.BuyFee))
		base := ex.account(m.Base)
		base.available = base.available.Add(received)
	} else {
		// Hold was base (qty); seller receives quote minus fee.
		base := ex.account(m.Base)
		base.onHold = base.onHold.Sub(o.hold)

		proceeds := o.quantity.Mul(o.price).Mul(decimal.NewFromInt(1).Sub(m.SellFee))
		quote := ex.account(m.Quote)
		quote.available = quote.available.Add(proceeds)
	}

	slog.Info("paper fill",
		slog.String("order_id", o.id),
		slog.String("market", o.marketID),
		slog.String("side", string(o.side)),
		slog.String("price", o.price.String()),
		slog.String("qty", o.quantity.String()))
}

// account returns the balance record for a currency, creating it on
// first use. Caller holds the lock.
func (ex *Exchange) account(currency string) *balance {
	b, ok := ex.balances[currency]
	if !ok {
		b = &balance{available: decimal.Zero, onHold: decimal.Zero}
		ex.balances[currency] = b
	}
	return b
}

func (ex *Exchange) apiErr(op, format string, args ...any) error {
	return &trading.APIError{Exchange: implName, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ImplName identifies the adapter.
func (ex *Exchange) ImplName() string { return implName }

// MarketOrders returns a synthetic five-level ladder around the current
// mark price. With no mark price yet, both sides are empty — a valid
// book, matching a market that has not traded.
func (ex *Exchange) MarketOrders(ctx context.Context, marketID string) (trading.MarketOrderBook, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if _, ok := ex.markets[marketID]; !ok {
		return trading.MarketOrderBook{}, ex.apiErr("MarketOrders", "unknown market %q", marketID)
	}

	book := trading.MarketOrderBook{MarketID: marketID}
	mark, ok := ex.marks[marketID]
	if !ok {
		return book, nil
	}

	tick := mark.Mul(decimal.RequireFromString("0.0005"))
	for i := 1; i <= 5; i++ {
		step := tick.Mul(decimal.NewFromInt(int64(i)))
		qty := decimal.NewFromInt(int64(i))
		book.Bids = append(book.Bids, trading.MarketOrder{Price: mark.Sub(step), Quantity: qty})
		book.Asks = append(book.Asks, trading.MarketOrder{Price: mark.Add(step), Quantity: qty})
	}
	return book, nil
}

// OpenOrders returns copies of the bot's resting orders for a market,
// oldest first.
func (ex *Exchange) OpenOrders(ctx context.Context, marketID string) ([]trading.OpenOrder, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if _, ok := ex.markets[marketID]; !ok {
		return nil, ex.apiErr("OpenOrders", "unknown market %q", marketID)
	}

	orders := make([]trading.OpenOrder, 0)
	for _, o := range ex.orders {
		if o.marketID != marketID {
			continue
		}
		orders = append(orders, trading.OpenOrder{
			ID:                o.id,
			MarketID:          o.marketID,
			Side:              o.side,
			Price:             o.price,
			OriginalQuantity:  o.quantity,
			RemainingQuantity: o.quantity,
			CreatedAt:         o.createdAt,
		})
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

// CreateOrder places a limit order, reserving the funds it needs:
// price*quantity of quote for a BUY, quantity of base for a SELL.
func (ex *Exchange) CreateOrder(ctx context.Context, marketID string, side trading.OrderSide, quantity, price decimal.Decimal) (string, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	m, ok := ex.markets[marketID]
	if !ok {
		return "", ex.apiErr("CreateOrder", "unknown market %q", marketID)
	}
	if !side.Valid() {
		return "", ex.apiErr("CreateOrder", "invalid order side %q", side)
	}
	if !quantity.IsPositive() {
		return "", ex.apiErr("CreateOrder", "quantity must be positive, got %s", quantity)
	}
	if !price.IsPositive() {
		return "", ex.apiErr("CreateOrder", "price must be positive, got %s", price)
	}

	var holdCurrency string
	var hold decimal.Decimal
	if side == trading.Buy {
		holdCurrency = m.Quote
		hold = price.Mul(quantity)
	} else {
		holdCurrency = m.Base
		hold = quantity
	}

	acct := ex.account(holdCurrency)
	if acct.available.LessThan(hold) {
		return "", ex.apiErr("CreateOrder", "insufficient %s balance: need %s, have %s",
			holdCurrency, hold, acct.available)
	}
	acct.available = acct.available.Sub(hold)
	acct.onHold = acct.onHold.Add(hold)

	o := &restingOrder{
		id:        uuid.New().String(),
		marketID:  marketID,
		side:      side,
		price:     price,
		quantity:  quantity,
		hold:      hold,
		createdAt: ex.now(),
	}
	ex.orders[o.id] = o

	slog.Info("paper order placed",
		slog.String("order_id", o.id),
		slog.String("market", marketID),
		slog.String("side", string(side)),
		slog.String("price", price.String()),
		slog.String("qty", quantity.String()))

	return o.id, nil
}

// CancelOrder releases the order's hold and removes it from the open
// set. Unknown or already-terminal ids report false, not an error.
func (ex *Exchange) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	o, ok := ex.orders[orderID]
	if !ok {
		return false, nil
	}

	m := ex.markets[o.marketID]
	holdCurrency := m.Quote
	if o.side == trading.Sell {
		holdCurrency = m.Base
	}
	acct := ex.account(holdCurrency)
	acct.onHold = acct.onHold.Sub(o.hold)
	acct.available = acct.available.Add(o.hold)

	delete(ex.orders, orderID)
	slog.Info("paper order cancelled", slog.String("order_id", orderID))
	return true, nil
}

// LatestMarketPrice returns the current mark price.
func (ex *Exchange) LatestMarketPrice(ctx context.Context, marketID string) (decimal.Decimal, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	if _, ok := ex.markets[marketID]; !ok {
		return decimal.Zero, ex.apiErr("LatestMarketPrice", "unknown market %q", marketID)
	}
	mark, ok := ex.marks[marketID]
	if !ok {
		return decimal.Zero, ex.apiErr("LatestMarketPrice", "no trades yet for %q", marketID)
	}
	return mark, nil
}

// BalanceInfo returns a snapshot of all wallet balances.
func (ex *Exchange) BalanceInfo(ctx context.Context) (trading.BalanceInfo, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	out := trading.BalanceInfo{Balances: make(map[string]trading.Balance, len(ex.balances))}
	for currency, b := range ex.balances {
		out.Balances[currency] = trading.Balance{Available: b.available, OnHold: b.onHold}
	}
	return out, nil
}

// BuyOrderFee returns the market's BUY fee fraction.
func (ex *Exchange) BuyOrderFee(ctx context.Context, marketID string) (decimal.Decimal, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	m, ok := ex.markets[marketID]
	if !ok {
		return decimal.Zero, ex.apiErr("BuyOrderFee", "unknown market %q", marketID)
	}
	return m.BuyFee, nil
}

// SellOrderFee returns the market's SELL fee fraction.
func (ex *Exchange) SellOrderFee(ctx context.Context, marketID string) (decimal.Decimal, error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()

	m, ok := ex.markets[marketID]
	if !ok {
		return decimal.Zero, ex.apiErr("SellOrderFee", "unknown market %q", marketID)
	}
	return m.SellFee, nil
}
