package bitget

import "encoding/json"

// apiResponse is the common Bitget V2 envelope.
type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

const codeOK = "00000"

// unmarshalData decodes an envelope data payload into v.
func unmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}

// Business codes meaning "there is no live order to cancel". The
// contract maps these to CancelOrder = false, not to a failure.
var orderGoneCodes = map[string]bool{
	"43001": true, // order does not exist
	"43025": true, // order already cancelled or filled
}

type orderBookData struct {
	Asks [][]string `json:"asks"` // [price, quantity], ascending
	Bids [][]string `json:"bids"` // [price, quantity], descending
	Ts   string     `json:"ts"`
}

type tickerData struct {
	Symbol string `json:"symbol"`
	LastPr string `json:"lastPr"`
}

type unfilledOrderData struct {
	OrderID    string `json:"orderId"`
	Symbol     string `json:"symbol"`
	PriceAvg   string `json:"priceAvg"`
	Size       string `json:"size"`
	BaseVolume string `json:"baseVolume"` // filled base quantity
	Side       string `json:"side"`       // "buy" / "sell"
	CTime      string `json:"cTime"`      // unix millis
}

type placeOrderRequest struct {
	Symbol    string `json:"symbol"`
	Side      string `json:"side"` // "buy" / "sell"
	OrderType string `json:"orderType"`
	Force     string `json:"force"`
	Price     string `json:"price"`
	Size      string `json:"size"`
}

type placeOrderData struct {
	OrderID string `json:"orderId"`
}

type cancelOrderRequest struct {
	Symbol  string `json:"symbol"`
	OrderID string `json:"orderId"`
}

type assetData struct {
	Coin      string `json:"coin"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
	Locked    string `json:"locked"`
}

type symbolData struct {
	Symbol       string `json:"symbol"`
	BaseCoin     string `json:"baseCoin"`
	QuoteCoin    string `json:"quoteCoin"`
	TakerFeeRate string `json:"takerFeeRate"`
	MakerFeeRate string `json:"makerFeeRate"`
}
