package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const defaultSpotWSURL = "wss://ws.bitget.com/v2/ws/public"

// PriceFunc receives every ticker update the stream decodes.
type PriceFunc func(marketID string, price decimal.Decimal)

type subscribeRequest struct {
	Op   string         `json:"op"`
	Args []subscribeArg `json:"args"`
}

type subscribeArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
}

type tickerResponse struct {
	Action string       `json:"action"`
	Arg    subscribeArg `json:"arg"`
	Data   []tickerTick `json:"data"`
	Ts     int64        `json:"ts"`
}

type tickerTick struct {
	InstID string `json:"instId"`
	LastPr string `json:"lastPr"`
}

// TickerStream subscribes to the Bitget public spot ticker channel for
// a set of markets and forwards last prices to a callback.
type TickerStream struct {
	worker  *Worker
	url     string
	markets map[string]bool
	onPrice PriceFunc
	log     *slog.Logger
}

// NewTickerStream builds a stream for the given market ids. url may be
// empty for the production endpoint.
func NewTickerStream(url string, markets []string, onPrice PriceFunc, log *slog.Logger) *TickerStream {
	if url == "" {
		url = defaultSpotWSURL
	}
	set := make(map[string]bool, len(markets))
	for _, m := range markets {
		set[m] = true
	}
	s := &TickerStream{
		url:     url,
		markets: set,
		onPrice: onPrice,
		log:     log,
	}
	s.worker = NewWorker(s, log)
	return s
}

// Start launches the stream.
func (s *TickerStream) Start(ctx context.Context) { s.worker.Start(ctx) }

// Stop shuts the stream down.
func (s *TickerStream) Stop() { s.worker.Stop() }

func (s *TickerStream) ID() string  { return "BITGET_SPOT_TICKER" }
func (s *TickerStream) URL() string { return s.url }

func (s *TickerStream) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	args := make([]subscribeArg, 0, len(s.markets))
	for m := range s.markets {
		args = append(args, subscribeArg{InstType: "SPOT", Channel: "ticker", InstID: m})
	}
	b, err := json.Marshal(subscribeRequest{Op: "subscribe", Args: args})
	if err != nil {
		return err
	}
	return s.worker.Write(websocket.TextMessage, b)
}

func (s *TickerStream) OnMessage(ctx context.Context, msg []byte) {
	if string(msg) == "pong" {
		return
	}

	var resp tickerResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return
	}
	if resp.Arg.Channel != "ticker" || len(resp.Data) == 0 {
		return
	}

	for _, tick := range resp.Data {
		if !s.markets[tick.InstID] {
			continue
		}
		price, err := decimal.NewFromString(tick.LastPr)
		if err != nil {
			s.log.Warn("unparsable ticker price", "market", tick.InstID, "lastPr", tick.LastPr)
			continue
		}
		s.onPrice(tick.InstID, price)
	}
}

func (s *TickerStream) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return s.worker.Write(websocket.TextMessage, []byte("ping"))
}
