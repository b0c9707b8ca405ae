package strategy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"tradebot/internal/trading"
)

// ScalperConfig tunes the sample scalping strategy.
type ScalperConfig struct {
	// MarketID is the single market this instance trades.
	MarketID string
	// CounterAmount is how much quote currency each buy order spends.
	CounterAmount decimal.Decimal
	// MinProfit is the minimum gain per round trip as a fraction,
	// e.g. 0.01 for 1%. Exchange fees are added on top of it when
	// pricing the sell.
	MinProfit decimal.Decimal
}

func (c ScalperConfig) validate() error {
	if c.MarketID == "" {
		return fmt.Errorf("scalper: market id is required")
	}
	if !c.CounterAmount.IsPositive() {
		return fmt.Errorf("scalper: counter amount must be positive, got %s", c.CounterAmount)
	}
	if c.MinProfit.IsNegative() {
		return fmt.Errorf("scalper: min profit must not be negative, got %s", c.MinProfit)
	}
	return nil
}

type scalperPhase int

const (
	phaseBuy  scalperPhase = iota // no position, place a buy
	phaseHold                     // an order is resting on the exchange
	phaseSell                     // buy filled, place the sell
)

// trackedOrder is the single live order a Scalper manages.
type trackedOrder struct {
	id       string
	side     trading.OrderSide
	price    decimal.Decimal
	quantity decimal.Decimal
}

// Scalper is a single-market scalping strategy. It buys near the best
// bid with a fixed amount of quote currency, then sells the acquired
// base at a price that covers both fees plus a configured minimum
// profit. At most one order rests on the exchange at a time.
//
// Order completion is inferred from absence: an order the Scalper
// placed that no longer appears in OpenOrders is treated as filled.
type Scalper struct {
	api trading.API
	cfg ScalperConfig
	log *slog.Logger

	phase scalperPhase
	order trackedOrder
	// lastBuy carries fill details from the buy into the sell pricing.
	lastBuy trackedOrder
}

// NewScalper builds the strategy against one exchange adapter.
func NewScalper(api trading.API, cfg ScalperConfig, log *slog.Logger) (*Scalper, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scalper{
		api:   api,
		cfg:   cfg,
		log:   log.With("strategy", "scalper", "market", cfg.MarketID),
		phase: phaseBuy,
	}, nil
}

// Execute runs one trade cycle.
func (s *Scalper) Execute(ctx context.Context) error {
	book, err := s.api.MarketOrders(ctx, s.cfg.MarketID)
	if err != nil {
		return s.classify(err)
	}
	bid, haveBid := book.BestBid()
	ask, haveAsk := book.BestAsk()
	if !haveBid || !haveAsk {
		s.log.Warn("order book is one-sided, skipping cycle",
			"bids", len(book.Bids), "asks", len(book.Asks))
		return nil
	}

	switch s.phase {
	case phaseBuy:
		return s.placeBuy(ctx, bid.Price)
	case phaseHold:
		return s.checkResting(ctx)
	case phaseSell:
		return s.placeSell(ctx, ask.Price)
	}
	return &FatalError{Err: fmt.Errorf("scalper: unknown phase %d", s.phase)}
}

// placeBuy spends the configured counter amount at the current best
// bid, leaving headroom for the buy fee so the exchange cannot reject
// the order for insufficient funds.
func (s *Scalper) placeBuy(ctx context.Context, bidPrice decimal.Decimal) error {
	buyFee, err := s.api.BuyOrderFee(ctx, s.cfg.MarketID)
	if err != nil {
		return s.classify(err)
	}

	one := decimal.NewFromInt(1)
	spendable := s.cfg.CounterAmount.Div(one.Add(buyFee))
	quantity := spendable.DivRound(bidPrice, 8)
	if !quantity.IsPositive() {
		return &FatalError{Err: fmt.Errorf(
			"scalper: counter amount %s buys zero base at price %s",
			s.cfg.CounterAmount, bidPrice)}
	}

	id, err := s.api.CreateOrder(ctx, s.cfg.MarketID, trading.Buy, quantity, bidPrice)
	if err != nil {
		return s.classify(err)
	}

	s.order = trackedOrder{id: id, side: trading.Buy, price: bidPrice, quantity: quantity}
	s.phase = phaseHold
	s.log.Info("buy order placed", "orderId", id, "price", bidPrice, "quantity", quantity)
	return nil
}

// checkResting looks for the tracked order in the open set. Absence
// means it completed.
func (s *Scalper) checkResting(ctx context.Context) error {
	open, err := s.api.OpenOrders(ctx, s.cfg.MarketID)
	if err != nil {
		return s.classify(err)
	}
	for _, o := range open {
		if o.ID == s.order.id {
			s.log.Debug("order still resting",
				"orderId", o.ID, "side", o.Side, "remaining", o.RemainingQuantity)
			return nil
		}
	}

	s.log.Info("order filled", "orderId", s.order.id, "side", s.order.side,
		"price", s.order.price, "quantity", s.order.quantity)
	if s.order.side == trading.Buy {
		s.lastBuy = s.order
		s.phase = phaseSell
	} else {
		s.phase = phaseBuy
	}
	s.order = trackedOrder{}
	return nil
}

// placeSell prices the exit off the last buy: cost recovery, both
// fees, and the configured minimum profit. If the market has already
// moved above that, sell at the best ask instead. Only the base
// actually received survives the buy fee, so that net quantity is
// what gets sold.
func (s *Scalper) placeSell(ctx context.Context, askPrice decimal.Decimal) error {
	buyFee, err := s.api.BuyOrderFee(ctx, s.cfg.MarketID)
	if err != nil {
		return s.classify(err)
	}
	sellFee, err := s.api.SellOrderFee(ctx, s.cfg.MarketID)
	if err != nil {
		return s.classify(err)
	}

	one := decimal.NewFromInt(1)
	margin := one.Add(buyFee).Add(sellFee).Add(s.cfg.MinProfit)
	target := s.lastBuy.price.Mul(margin)
	if askPrice.GreaterThan(target) {
		target = askPrice
	}
	quantity := s.lastBuy.quantity.Mul(one.Sub(buyFee))

	id, err := s.api.CreateOrder(ctx, s.cfg.MarketID, trading.Sell, quantity, target)
	if err != nil {
		return s.classify(err)
	}

	s.order = trackedOrder{id: id, side: trading.Sell, price: target, quantity: quantity}
	s.phase = phaseHold
	s.log.Info("sell order placed", "orderId", id, "price", target, "quantity", quantity)
	return nil
}

// classify applies the strategy error protocol: timeouts pass through
// for the engine to retry, everything else halts trading.
func (s *Scalper) classify(err error) error {
	if trading.IsTimeout(err) {
		return err
	}
	return &FatalError{Err: err}
}
