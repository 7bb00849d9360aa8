package exchange

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// deltaEnvelope is the common Delta Exchange response wrapper.
type deltaEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *deltaAPIError  `json:"error"`
}

// deltaAPIError is the error payload inside a failed envelope.
type deltaAPIError struct {
	Code    string         `json:"code"`
	Context map[string]any `json:"context"`
}

// deltaProduct is a row of GET /v2/products. Prices arrive as JSON
// strings; decimal handles both string and number encodings.
type deltaProduct struct {
	ID             int             `json:"id"`
	Symbol         string          `json:"symbol"`
	ProductType    string          `json:"product_type"` // call_options, put_options, perpetual_futures
	StrikePrice    decimal.Decimal `json:"strike_price"`
	TickSize       decimal.Decimal `json:"tick_size"`
	ContractValue  decimal.Decimal `json:"contract_value"`
	SettlementTime string          `json:"settlement_time"` // RFC3339
	UnderlyingAsset struct {
		Symbol string `json:"symbol"`
	} `json:"underlying_asset"`
}

// deltaTicker is the payload of GET /v2/tickers/{symbol}.
type deltaTicker struct {
	Symbol    string          `json:"symbol"`
	MarkPrice decimal.Decimal `json:"mark_price"`
	SpotPrice decimal.Decimal `json:"spot_price"`
	Close     decimal.Decimal `json:"close"`
	Quotes    struct {
		BestBid decimal.Decimal `json:"best_bid"`
		BestAsk decimal.Decimal `json:"best_ask"`
	} `json:"quotes"`
	Timestamp int64 `json:"timestamp"` // microseconds
}

// deltaOrder is the payload of order placement and status endpoints.
type deltaOrder struct {
	ID               int64           `json:"id"`
	ClientOrderID    string          `json:"client_order_id"`
	ProductSymbol    string          `json:"product_symbol"`
	Side             string          `json:"side"`
	Size             int             `json:"size"`
	UnfilledSize     int             `json:"unfilled_size"`
	State            string          `json:"state"` // open, pending, closed, cancelled
	AverageFillPrice decimal.Decimal `json:"average_fill_price"`
	LimitPrice       decimal.Decimal `json:"limit_price"`
	Reason           string          `json:"cancellation_reason"`
}

// deltaOrderRequest is the payload of POST /v2/orders.
type deltaOrderRequest struct {
	ProductSymbol string `json:"product_symbol"`
	Size          int    `json:"size"`
	Side          string `json:"side"`       // buy, sell
	OrderType     string `json:"order_type"` // market_order, limit_order
	LimitPrice    string `json:"limit_price,omitempty"`
	TimeInForce   string `json:"time_in_force"`
	ReduceOnly    bool   `json:"reduce_only"`
	ClientOrderID string `json:"client_order_id"`
}

// deltaPosition is a row of GET /v2/positions/margined.
type deltaPosition struct {
	ProductSymbol string          `json:"product_symbol"`
	Size          int             `json:"size"` // signed
	EntryPrice    decimal.Decimal `json:"entry_price"`
	MarkPrice     decimal.Decimal `json:"mark_price"`
	RealizedPnl   decimal.Decimal `json:"realized_pnl"`
}

// deltaWallet is a row of GET /v2/wallet/balances.
type deltaWallet struct {
	AssetSymbol      string          `json:"asset_symbol"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}
