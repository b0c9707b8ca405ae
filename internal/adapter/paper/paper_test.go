package paper

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"tradebot/internal/trading"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestExchange(t *testing.T) *Exchange {
	t.Helper()
	ex := New()
	err := ex.AddMarket(Market{
		ID:      "BTCUSDT",
		Base:    "BTC",
		Quote:   "USDT",
		BuyFee:  dec("0.001"),
		SellFee: dec("0.002"),
	})
	if err != nil {
		t.Fatal(err)
	}
	ex.Deposit("USDT", dec("10000"))
	ex.Deposit("BTC", dec("1"))
	return ex
}

func TestExchange_ImplName(t *testing.T) {
	if got := newTestExchange(t).ImplName(); got != "Paper Exchange" {
		t.Errorf("ImplName() = %q", got)
	}
}

func TestCreateOrder_AppearsInOpenOrders(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	id, err := ex.CreateOrder(ctx, "BTCUSDT", trading.Buy, dec("0.1"), dec("50000"))
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if id == "" {
		t.Fatal("CreateOrder() returned empty id")
	}

	open, err := ex.OpenOrders(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("OpenOrders() error = %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("OpenOrders() returned %d orders, want 1", len(open))
	}

	o := open[0]
	if o.ID != id {
		t.Errorf("order id = %q, want %q", o.ID, id)
	}
	if o.Side != trading.Buy || !o.Price.Equal(dec("50000")) || !o.OriginalQuantity.Equal(dec("0.1")) {
		t.Errorf("order fields = %+v, want BUY 0.1 @ 50000", o)
	}
	if !o.RemainingQuantity.Equal(o.OriginalQuantity) {
		t.Errorf("fresh order remaining = %s, want %s", o.RemainingQuantity, o.OriginalQuantity)
	}
}

func TestCreateOrder_Rejections(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		marketID string
		side     trading.OrderSide
		qty      string
		price    string
	}{
		{"unknown market", "ETHUSDT", trading.Buy, "1", "100"},
		{"invalid side", "BTCUSDT", trading.OrderSide("HOLD"), "1", "100"},
		{"zero quantity", "BTCUSDT", trading.Buy, "0", "100"},
		{"negative quantity", "BTCUSDT", trading.Buy, "-1", "100"},
		{"zero price", "BTCUSDT", trading.Buy, "1", "0"},
		{"insufficient quote for buy", "BTCUSDT", trading.Buy, "1", "50000"},
		{"insufficient base for sell", "BTCUSDT", trading.Sell, "2", "50000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ex.CreateOrder(ctx, tt.marketID, tt.side, dec(tt.qty), dec(tt.price))
			if err == nil {
				t.Fatal("expected rejection")
			}
			if !trading.IsAPIErr(err) {
				t.Errorf("rejection = %T, want *trading.APIError", err)
			}
			if trading.IsTimeout(err) {
				t.Error("rejection must not be a timeout")
			}
		})
	}
}

func TestCreateOrder_ReservesBalance(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	if _, err := ex.CreateOrder(ctx, "BTCUSDT", trading.Buy, dec("0.1"), dec("50000")); err != nil {
		t.Fatal(err)
	}

	bi, err := ex.BalanceInfo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	usdt := bi.Balance("USDT")
	if !usdt.Available.Equal(dec("5000")) {
		t.Errorf("USDT available = %s, want 5000", usdt.Available)
	}
	if !usdt.OnHold.Equal(dec("5000")) {
		t.Errorf("USDT on hold = %s, want 5000", usdt.OnHold)
	}
}

func TestCancelOrder(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	id, err := ex.CreateOrder(ctx, "BTCUSDT", trading.Sell, dec("0.5"), dec("60000"))
	if err != nil {
		t.Fatal(err)
	}

	ok, err := ex.CancelOrder(ctx, id)
	if err != nil || !ok {
		t.Fatalf("CancelOrder() = %v, %v, want true, nil", ok, err)
	}

	// The hold is released and the order leaves the open set.
	bi, _ := ex.BalanceInfo(ctx)
	btc := bi.Balance("BTC")
	if !btc.Available.Equal(dec("1")) || !btc.OnHold.IsZero() {
		t.Errorf("BTC after cancel = %+v, want all available", btc)
	}
	open, _ := ex.OpenOrders(ctx, "BTCUSDT")
	if len(open) != 0 {
		t.Errorf("open orders after cancel = %d, want 0", len(open))
	}

	// Second cancel is the already-terminal case: false, no error.
	ok, err = ex.CancelOrder(ctx, id)
	if err != nil {
		t.Errorf("repeat CancelOrder() error = %v, want nil", err)
	}
	if ok {
		t.Error("repeat CancelOrder() = true, want false")
	}
}

func TestCancelOrder_UnknownID(t *testing.T) {
	ex := newTestExchange(t)
	ok, err := ex.CancelOrder(context.Background(), "no-such-order")
	if err != nil {
		t.Errorf("CancelOrder(unknown) error = %v, want nil", err)
	}
	if ok {
		t.Error("CancelOrder(unknown) = true, want false")
	}
}

func TestMarkPrice_FillsCrossedBuy(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	id, err := ex.CreateOrder(ctx, "BTCUSDT", trading.Buy, dec("0.1"), dec("50000"))
	if err != nil {
		t.Fatal(err)
	}

	// Above the limit: order keeps resting.
	ex.MarkPrice("BTCUSDT", dec("51000"))
	open, _ := ex.OpenOrders(ctx, "BTCUSDT")
	if len(open) != 1 {
		t.Fatalf("order filled above its limit; open = %d", len(open))
	}

	// Crossing: fills at the limit price. Completion is observable only
	// as absence from the open set.
	ex.MarkPrice("BTCUSDT", dec("49500"))
	open, _ = ex.OpenOrders(ctx, "BTCUSDT")
	for _, o := range open {
		if o.ID == id {
			t.Fatal("filled order still present in OpenOrders")
		}
	}

	bi, _ := ex.BalanceInfo(ctx)
	// Buyer pays the full hold (5000 USDT) and receives 0.1 BTC minus
	// the 0.1% buy fee = 0.0999 BTC.
	usdt := bi.Balance("USDT")
	if !usdt.Available.Equal(dec("5000")) || !usdt.OnHold.IsZero() {
		t.Errorf("USDT after fill = %+v, want 5000 available, 0 held", usdt)
	}
	btc := bi.Balance("BTC")
	if !btc.Available.Equal(dec("1.0999")) {
		t.Errorf("BTC after fill = %s, want 1.0999", btc.Available)
	}
}

func TestMarkPrice_FillsCrossedSell(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	if _, err := ex.CreateOrder(ctx, "BTCUSDT", trading.Sell, dec("0.5"), dec("60000")); err != nil {
		t.Fatal(err)
	}

	ex.MarkPrice("BTCUSDT", dec("60000"))

	open, _ := ex.OpenOrders(ctx, "BTCUSDT")
	if len(open) != 0 {
		t.Fatalf("sell order not filled at its limit; open = %d", len(open))
	}

	bi, _ := ex.BalanceInfo(ctx)
	// Seller gives up 0.5 BTC and receives 0.5*60000 minus the 0.2%
	// sell fee = 29940 USDT.
	btc := bi.Balance("BTC")
	if !btc.Available.Equal(dec("0.5")) || !btc.OnHold.IsZero() {
		t.Errorf("BTC after fill = %+v, want 0.5 available, 0 held", btc)
	}
	usdt := bi.Balance("USDT")
	if !usdt.Available.Equal(dec("39940")) {
		t.Errorf("USDT after fill = %s, want 39940", usdt.Available)
	}
}

func TestMarketOrders_SortedAroundMark(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	// No mark price yet: an empty book is a valid result.
	book, err := ex.MarketOrders(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("MarketOrders() error = %v", err)
	}
	if len(book.Bids) != 0 || len(book.Asks) != 0 {
		t.Errorf("book before first trade = %d bids, %d asks, want empty", len(book.Bids), len(book.Asks))
	}

	ex.MarkPrice("BTCUSDT", dec("50000"))
	book, err = ex.MarketOrders(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if err := book.Validate(); err != nil {
		t.Errorf("book violates sort invariants: %v", err)
	}

	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	if !bid.Price.LessThan(dec("50000")) || !ask.Price.GreaterThan(dec("50000")) {
		t.Errorf("best bid %s / best ask %s do not straddle the mark", bid.Price, ask.Price)
	}
}

func TestLatestMarketPrice(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	if _, err := ex.LatestMarketPrice(ctx, "BTCUSDT"); !trading.IsAPIErr(err) {
		t.Errorf("price before first trade: err = %v, want APIError", err)
	}

	ex.MarkPrice("BTCUSDT", dec("42123.45"))
	price, err := ex.LatestMarketPrice(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if !price.Equal(dec("42123.45")) {
		t.Errorf("LatestMarketPrice() = %s, want 42123.45", price)
	}
}

func TestFees_AreFractions(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()

	one := decimal.NewFromInt(1)
	buyFee, err := ex.BuyOrderFee(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	sellFee, err := ex.SellOrderFee(ctx, "BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}

	for name, fee := range map[string]decimal.Decimal{"buy": buyFee, "sell": sellFee} {
		if fee.IsNegative() || fee.GreaterThanOrEqual(one) {
			t.Errorf("%s fee %s outside [0, 1)", name, fee)
		}
	}
	if !buyFee.Equal(dec("0.001")) || !sellFee.Equal(dec("0.002")) {
		t.Errorf("fees = %s/%s, want 0.001/0.002", buyFee, sellFee)
	}
}

func TestAddMarket_RejectsPercentageFees(t *testing.T) {
	ex := New()
	err := ex.AddMarket(Market{ID: "X", Base: "A", Quote: "B", BuyFee: dec("1.5"), SellFee: dec("0")})
	if err == nil {
		t.Error("expected rejection of fee >= 1")
	}
}

func TestReads_AreIdempotent(t *testing.T) {
	ex := newTestExchange(t)
	ctx := context.Background()
	ex.MarkPrice("BTCUSDT", dec("50000"))

	b1, _ := ex.BalanceInfo(ctx)
	b2, _ := ex.BalanceInfo(ctx)
	for currency, bal := range b1.Balances {
		other := b2.Balances[currency]
		if !bal.Available.Equal(other.Available) || !bal.OnHold.Equal(other.OnHold) {
			t.Errorf("balance %s changed between reads: %+v vs %+v", currency, bal, other)
		}
	}

	book1, _ := ex.MarketOrders(ctx, "BTCUSDT")
	book2, _ := ex.MarketOrders(ctx, "BTCUSDT")
	if len(book1.Bids) != len(book2.Bids) || len(book1.Asks) != len(book2.Asks) {
		t.Error("book shape changed between reads with no state change")
	}
	for i := range book1.Bids {
		if !book1.Bids[i].Price.Equal(book2.Bids[i].Price) {
			t.Errorf("bid %d differs between reads", i)
		}
	}

	// Mutating the returned snapshot must not affect the adapter.
	if len(book1.Bids) > 0 {
		book1.Bids[0].Price = dec("1")
		book3, _ := ex.MarketOrders(ctx, "BTCUSDT")
		if book3.Bids[0].Price.Equal(dec("1")) {
			t.Error("caller mutation leaked into adapter state")
		}
	}
}
