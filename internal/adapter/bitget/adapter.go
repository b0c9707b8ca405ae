// Package bitget implements the trading contract against the Bitget
// spot V2 REST API.
//
// Quantity convention: order size is denominated in the market's base
// coin; price is quote per unit of base. Market ids are Bitget spot
// symbols, e.g. "BTCUSDT".
//
// Every underlying failure is translated into exactly one of the two
// contract error kinds: transport timeouts (context deadline, net
// timeouts) become *trading.TimeoutError; HTTP failures, business
// rejections, and malformed or unparsable responses become
// *trading.APIError. The adapter never retries — pacing via its rate
// limiters is the only delay it adds, inside its own timeout budget.
package bitget

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradebot/internal/adapter"
	"tradebot/internal/infra"
	"tradebot/internal/trading"
)

const implName = "Bitget Spot REST API v2"

func init() {
	adapter.Register("bitget", func(cfg *infra.Config) (trading.API, error) {
		signer := NewSigner(
			cfg.Exchange.Bitget.AccessKey,
			cfg.Exchange.Bitget.SecretKey,
			cfg.Exchange.Bitget.Passphrase,
		)
		return New(NewClient(cfg.Exchange.Bitget.RestURL, signer)), nil
	})
}

// Adapter realizes trading.API on a Bitget REST client.
//
// Bitget's cancel endpoint needs the symbol alongside the order id,
// while the contract identifies orders by id alone. The adapter
// remembers the symbol for every id it has seen through CreateOrder or
// OpenOrders; an id it has never seen cannot be cancelled and reports
// false.
type Adapter struct {
	client *Client

	mu           sync.Mutex
	orderSymbols map[string]string // order id -> symbol
}

// New wraps a REST client in the contract adapter.
func New(client *Client) *Adapter {
	return &Adapter{
		client:       client,
		orderSymbols: make(map[string]string),
	}
}

// Close releases the adapter's session resources.
func (a *Adapter) Close() {
	a.client.Close()
}

// ImplName identifies the adapter.
func (a *Adapter) ImplName() string { return implName }

// timeoutOrAPI translates a transport/envelope error into the contract
// taxonomy.
func timeoutOrAPI(op string, err error) error {
	if isTimeout(err) {
		return &trading.TimeoutError{Exchange: implName, Op: op, Err: err}
	}
	return &trading.APIError{Exchange: implName, Op: op, Reason: "request failed", Err: err}
}

func apiErr(op, reason string, err error) error {
	return &trading.APIError{Exchange: implName, Op: op, Reason: reason, Err: err}
}

func parseDecimal(op, field, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, apiErr(op, "unparsable "+field+" "+strconv.Quote(value), err)
	}
	return d, nil
}

// MarketOrders fetches the order book. Bitget reports bids by
// descending and asks by ascending price; the ordering is preserved
// untouched.
func (a *Adapter) MarketOrders(ctx context.Context, marketID string) (trading.MarketOrderBook, error) {
	const op = "MarketOrders"

	query := url.Values{}
	query.Set("symbol", marketID)
	query.Set("limit", "50")

	data, err := a.client.get(ctx, a.client.marketLimiter, "/api/v2/spot/market/orderbook", query, false)
	if err != nil {
		return trading.MarketOrderBook{}, timeoutOrAPI(op, err)
	}

	var raw orderBookData
	if err := unmarshalData(data, &raw); err != nil {
		return trading.MarketOrderBook{}, apiErr(op, "malformed order book", err)
	}

	book := trading.MarketOrderBook{MarketID: marketID}
	if book.Bids, err = parseLevels(op, raw.Bids); err != nil {
		return trading.MarketOrderBook{}, err
	}
	if book.Asks, err = parseLevels(op, raw.Asks); err != nil {
		return trading.MarketOrderBook{}, err
	}
	return book, nil
}

func parseLevels(op string, raw [][]string) ([]trading.MarketOrder, error) {
	levels := make([]trading.MarketOrder, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			return nil, apiErr(op, "order book level with missing fields", nil)
		}
		price, err := parseDecimal(op, "price", entry[0])
		if err != nil {
			return nil, err
		}
		qty, err := parseDecimal(op, "quantity", entry[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, trading.MarketOrder{Price: price, Quantity: qty})
	}
	return levels, nil
}

// OpenOrders fetches the bot's unfilled orders for a market.
func (a *Adapter) OpenOrders(ctx context.Context, marketID string) ([]trading.OpenOrder, error) {
	const op = "OpenOrders"

	query := url.Values{}
	query.Set("symbol", marketID)

	data, err := a.client.get(ctx, a.client.tradeLimiter, "/api/v2/spot/trade/unfilled-orders", query, true)
	if err != nil {
		return nil, timeoutOrAPI(op, err)
	}

	var raw []unfilledOrderData
	if err := unmarshalData(data, &raw); err != nil {
		return nil, apiErr(op, "malformed open orders", err)
	}

	orders := make([]trading.OpenOrder, 0, len(raw))
	for _, u := range raw {
		side, ok := parseSide(u.Side)
		if !ok {
			return nil, apiErr(op, "unknown order side "+strconv.Quote(u.Side), nil)
		}
		price, err := parseDecimal(op, "price", u.PriceAvg)
		if err != nil {
			return nil, err
		}
		size, err := parseDecimal(op, "size", u.Size)
		if err != nil {
			return nil, err
		}
		filled := decimal.Zero
		if u.BaseVolume != "" {
			if filled, err = parseDecimal(op, "baseVolume", u.BaseVolume); err != nil {
				return nil, err
			}
		}
		createdAt, err := parseMillis(u.CTime)
		if err != nil {
			return nil, apiErr(op, "unparsable cTime "+strconv.Quote(u.CTime), err)
		}

		orders = append(orders, trading.OpenOrder{
			ID:                u.OrderID,
			MarketID:          u.Symbol,
			Side:              side,
			Price:             price,
			OriginalQuantity:  size,
			RemainingQuantity: size.Sub(filled),
			CreatedAt:         createdAt,
		})
	}

	a.mu.Lock()
	for _, o := range orders {
		a.orderSymbols[o.ID] = o.MarketID
	}
	a.mu.Unlock()

	return orders, nil
}

// CreateOrder places a GTC limit order.
func (a *Adapter) CreateOrder(ctx context.Context, marketID string, side trading.OrderSide, quantity, price decimal.Decimal) (string, error) {
	const op = "CreateOrder"

	if !side.Valid() {
		return "", apiErr(op, "invalid order side "+strconv.Quote(string(side)), nil)
	}
	if !quantity.IsPositive() {
		return "", apiErr(op, "quantity must be positive, got "+quantity.String(), nil)
	}
	if !price.IsPositive() {
		return "", apiErr(op, "price must be positive, got "+price.String(), nil)
	}

	req := placeOrderRequest{
		Symbol:    marketID,
		Side:      strings.ToLower(string(side)),
		OrderType: "limit",
		Force:     "gtc",
		Price:     price.String(),
		Size:      quantity.String(),
	}

	data, err := a.client.post(ctx, a.client.tradeLimiter, "/api/v2/spot/trade/place-order", req)
	if err != nil {
		return "", timeoutOrAPI(op, err)
	}

	var placed placeOrderData
	if err := unmarshalData(data, &placed); err != nil {
		return "", apiErr(op, "malformed place-order response", err)
	}
	if placed.OrderID == "" {
		return "", apiErr(op, "exchange returned no order id", nil)
	}

	a.mu.Lock()
	a.orderSymbols[placed.OrderID] = marketID
	a.mu.Unlock()

	return placed.OrderID, nil
}

// CancelOrder requests cancellation. Orders the exchange reports as
// already gone — and ids this adapter has never seen — report false
// with a nil error.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	const op = "CancelOrder"

	a.mu.Lock()
	symbol, known := a.orderSymbols[orderID]
	a.mu.Unlock()
	if !known {
		return false, nil
	}

	req := cancelOrderRequest{Symbol: symbol, OrderID: orderID}
	_, err := a.client.post(ctx, a.client.tradeLimiter, "/api/v2/spot/trade/cancel-order", req)
	if err != nil {
		var be *bizError
		if errors.As(err, &be) && orderGoneCodes[be.code] {
			a.forgetOrder(orderID)
			return false, nil
		}
		return false, timeoutOrAPI(op, err)
	}

	a.forgetOrder(orderID)
	return true, nil
}

func (a *Adapter) forgetOrder(orderID string) {
	a.mu.Lock()
	delete(a.orderSymbols, orderID)
	a.mu.Unlock()
}

// LatestMarketPrice returns the last traded price.
func (a *Adapter) LatestMarketPrice(ctx context.Context, marketID string) (decimal.Decimal, error) {
	const op = "LatestMarketPrice"

	query := url.Values{}
	query.Set("symbol", marketID)

	data, err := a.client.get(ctx, a.client.marketLimiter, "/api/v2/spot/market/tickers", query, false)
	if err != nil {
		return decimal.Zero, timeoutOrAPI(op, err)
	}

	var tickers []tickerData
	if err := unmarshalData(data, &tickers); err != nil {
		return decimal.Zero, apiErr(op, "malformed ticker response", err)
	}
	if len(tickers) == 0 {
		return decimal.Zero, apiErr(op, "no ticker for market "+strconv.Quote(marketID), nil)
	}

	return parseDecimal(op, "lastPr", tickers[0].LastPr)
}

// BalanceInfo returns all wallet balances. Bitget splits reserved funds
// into frozen and locked; both count as on hold.
func (a *Adapter) BalanceInfo(ctx context.Context) (trading.BalanceInfo, error) {
	const op = "BalanceInfo"

	data, err := a.client.get(ctx, a.client.accountLimiter, "/api/v2/spot/account/assets", nil, true)
	if err != nil {
		return trading.BalanceInfo{}, timeoutOrAPI(op, err)
	}

	var assets []assetData
	if err := unmarshalData(data, &assets); err != nil {
		return trading.BalanceInfo{}, apiErr(op, "malformed assets response", err)
	}

	info := trading.BalanceInfo{Balances: make(map[string]trading.Balance, len(assets))}
	for _, asset := range assets {
		available, err := parseDecimal(op, "available", asset.Available)
		if err != nil {
			return trading.BalanceInfo{}, err
		}
		frozen, err := parseDecimal(op, "frozen", asset.Frozen)
		if err != nil {
			return trading.BalanceInfo{}, err
		}
		locked, err := parseDecimal(op, "locked", asset.Locked)
		if err != nil {
			return trading.BalanceInfo{}, err
		}
		info.Balances[asset.Coin] = trading.Balance{
			Available: available,
			OnHold:    frozen.Add(locked),
		}
	}
	return info, nil
}

// BuyOrderFee returns the market's fee fraction for BUY orders. Bitget
// does not differentiate fees by side; the taker rate covers both.
func (a *Adapter) BuyOrderFee(ctx context.Context, marketID string) (decimal.Decimal, error) {
	return a.takerFee(ctx, "BuyOrderFee", marketID)
}

// SellOrderFee returns the market's fee fraction for SELL orders.
func (a *Adapter) SellOrderFee(ctx context.Context, marketID string) (decimal.Decimal, error) {
	return a.takerFee(ctx, "SellOrderFee", marketID)
}

func (a *Adapter) takerFee(ctx context.Context, op, marketID string) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("symbol", marketID)

	data, err := a.client.get(ctx, a.client.marketLimiter, "/api/v2/spot/public/symbols", query, false)
	if err != nil {
		return decimal.Zero, timeoutOrAPI(op, err)
	}

	var symbols []symbolData
	if err := unmarshalData(data, &symbols); err != nil {
		return decimal.Zero, apiErr(op, "malformed symbols response", err)
	}
	if len(symbols) == 0 {
		return decimal.Zero, apiErr(op, "unknown market "+strconv.Quote(marketID), nil)
	}

	fee, err := parseDecimal(op, "takerFeeRate", symbols[0].TakerFeeRate)
	if err != nil {
		return decimal.Zero, err
	}
	// The exchange reports fractions; anything outside [0, 1) means the
	// response is not what this adapter understands.
	if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Zero, apiErr(op, "fee "+fee.String()+" outside [0, 1)", nil)
	}
	return fee, nil
}

func parseSide(s string) (trading.OrderSide, bool) {
	switch strings.ToLower(s) {
	case "buy":
		return trading.Buy, true
	case "sell":
		return trading.Sell, true
	}
	return "", false
}

func parseMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}
