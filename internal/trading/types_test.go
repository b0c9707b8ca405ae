package trading

import (
	"testing"

	"github.com/shopspring/decimal"
)

func level(price, qty string) MarketOrder {
	return MarketOrder{
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func TestOrderSide_Valid(t *testing.T) {
	tests := []struct {
		name string
		side OrderSide
		want bool
	}{
		{"BUY", Buy, true},
		{"SELL", Sell, true},
		{"empty", OrderSide(""), false},
		{"lowercase", OrderSide("buy"), false},
		{"unknown", OrderSide("HOLD"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.side.Valid(); got != tt.want {
				t.Errorf("OrderSide.Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderSide_Opposite(t *testing.T) {
	if got := Buy.Opposite(); got != Sell {
		t.Errorf("Buy.Opposite() = %v, want SELL", got)
	}
	if got := Sell.Opposite(); got != Buy {
		t.Errorf("Sell.Opposite() = %v, want BUY", got)
	}
}

func TestMarketOrderBook_Validate(t *testing.T) {
	tests := []struct {
		name    string
		book    MarketOrderBook
		wantErr bool
	}{
		{
			name: "sorted both sides",
			book: MarketOrderBook{
				MarketID: "BTC/USD",
				Bids:     []MarketOrder{level("100.0", "2"), level("99.5", "1")},
				Asks:     []MarketOrder{level("100.5", "1"), level("101.0", "3")},
			},
		},
		{
			name: "equal prices allowed",
			book: MarketOrderBook{
				Bids: []MarketOrder{level("100", "1"), level("100", "2")},
				Asks: []MarketOrder{level("101", "1"), level("101", "2")},
			},
		},
		{
			name: "empty book",
			book: MarketOrderBook{MarketID: "BTC/USD"},
		},
		{
			name: "bids ascending",
			book: MarketOrderBook{
				Bids: []MarketOrder{level("99.5", "1"), level("100.0", "2")},
			},
			wantErr: true,
		},
		{
			name: "asks descending",
			book: MarketOrderBook{
				Asks: []MarketOrder{level("101.0", "3"), level("100.5", "1")},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.book.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMarketOrderBook_BestBidAsk(t *testing.T) {
	book := MarketOrderBook{
		Bids: []MarketOrder{level("100.0", "2"), level("99.5", "1")},
		Asks: []MarketOrder{level("100.5", "1"), level("101.0", "3")},
	}

	bid, ok := book.BestBid()
	if !ok || !bid.Price.Equal(decimal.RequireFromString("100.0")) {
		t.Errorf("BestBid() = %v, %v, want 100.0, true", bid.Price, ok)
	}

	ask, ok := book.BestAsk()
	if !ok || !ask.Price.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("BestAsk() = %v, %v, want 100.5, true", ask.Price, ok)
	}

	empty := MarketOrderBook{}
	if _, ok := empty.BestBid(); ok {
		t.Error("BestBid() on empty book should return false")
	}
	if _, ok := empty.BestAsk(); ok {
		t.Error("BestAsk() on empty book should return false")
	}
}

func TestOpenOrder_FilledQuantity(t *testing.T) {
	o := OpenOrder{
		OriginalQuantity:  decimal.RequireFromString("2.5"),
		RemainingQuantity: decimal.RequireFromString("1.0"),
	}
	if got := o.FilledQuantity(); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("FilledQuantity() = %s, want 1.5", got)
	}
}

func TestBalanceInfo_Balance(t *testing.T) {
	bi := BalanceInfo{Balances: map[string]Balance{
		"BTC": {
			Available: decimal.RequireFromString("0.5"),
			OnHold:    decimal.RequireFromString("0.1"),
		},
	}}

	btc := bi.Balance("BTC")
	if !btc.Total().Equal(decimal.RequireFromString("0.6")) {
		t.Errorf("Balance(BTC).Total() = %s, want 0.6", btc.Total())
	}

	// Unknown currency yields zero values, not a panic.
	eth := bi.Balance("ETH")
	if !eth.Available.IsZero() || !eth.OnHold.IsZero() {
		t.Errorf("Balance(ETH) = %+v, want zero balance", eth)
	}
}
