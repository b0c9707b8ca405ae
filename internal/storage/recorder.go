package storage

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"tradebot/internal/trading"
)

// RecordingAPI decorates an exchange adapter so every order placement
// and cancellation lands in the journal. Reads pass straight through.
// Journal failures are logged, never surfaced: persistence trouble
// must not masquerade as an exchange failure.
type RecordingAPI struct {
	trading.API
	journal *Journal
	log     *slog.Logger

	// Cancel is keyed by order id only; remember enough to journal it.
	mu     sync.Mutex
	orders map[string]OrderEvent
}

// NewRecordingAPI wraps api so its order activity is journaled.
func NewRecordingAPI(api trading.API, journal *Journal, log *slog.Logger) *RecordingAPI {
	return &RecordingAPI{
		API:     api,
		journal: journal,
		log:     log.With("exchange", api.ImplName()),
		orders:  make(map[string]OrderEvent),
	}
}

// CreateOrder forwards to the adapter, then journals the placement.
func (r *RecordingAPI) CreateOrder(ctx context.Context, marketID string, side trading.OrderSide, quantity, price decimal.Decimal) (string, error) {
	id, err := r.API.CreateOrder(ctx, marketID, side, quantity, price)
	if err != nil {
		return "", err
	}

	ev := OrderEvent{
		Action:   ActionPlaced,
		Exchange: r.API.ImplName(),
		MarketID: marketID,
		OrderID:  id,
		Side:     string(side),
		Price:    price.String(),
		Quantity: quantity.String(),
	}
	r.mu.Lock()
	r.orders[id] = ev
	r.mu.Unlock()

	if err := r.journal.RecordOrder(ctx, ev); err != nil {
		r.log.Error("failed to journal order placement", "orderId", id, "error", err)
	}
	return id, nil
}

// CancelOrder forwards to the adapter, journaling only cancellations
// the exchange confirmed.
func (r *RecordingAPI) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	cancelled, err := r.API.CancelOrder(ctx, orderID)
	if err != nil || !cancelled {
		return cancelled, err
	}

	r.mu.Lock()
	ev, known := r.orders[orderID]
	delete(r.orders, orderID)
	r.mu.Unlock()
	if !known {
		ev = OrderEvent{Exchange: r.API.ImplName(), OrderID: orderID}
	}
	ev.Action = ActionCancelled

	if err := r.journal.RecordOrder(ctx, ev); err != nil {
		r.log.Error("failed to journal order cancellation", "orderId", orderID, "error", err)
	}
	return true, nil
}
