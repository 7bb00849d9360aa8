package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/logging"
	"straddle-trader/internal/models"
	"straddle-trader/internal/security"
	"straddle-trader/pkg/utils"
)

// spotContracts maps underlyings to the perpetual contract whose mark
// price serves as spot.
var spotContracts = map[string]string{
	"BTC": "BTCUSD",
	"ETH": "ETHUSD",
}

// DeltaConfig holds configuration for the Delta Exchange client.
type DeltaConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DeltaClient implements the Exchange interface for Delta Exchange
// India. Requests are signed per key pair; one client is constructed
// per resolved credential and discarded with the request.
type DeltaClient struct {
	http   *resty.Client
	keys   models.APIKeys
	feed   *MarkFeed
	logger zerolog.Logger
	safe   *security.SafeLogger
}

// NewDeltaClient creates a new Delta Exchange client bound to the
// given API keys.
func NewDeltaClient(cfg DeltaConfig, keys models.APIKeys, logger zerolog.Logger) *DeltaClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", "straddle-trader/0.1").
		SetHeader("Accept", "application/json")

	return &DeltaClient{
		http:   client,
		keys:   keys,
		logger: logger,
		safe:   security.NewSafeLogger(logger),
	}
}

// AttachFeed attaches a streaming mark price feed used as the
// preferred spot source when fresh.
func (c *DeltaClient) AttachFeed(feed *MarkFeed) {
	c.feed = feed
}

// sign computes the HMAC-SHA256 request signature.
func sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// do performs a signed request and unmarshals the result payload.
// Retrying is the caller's concern; the client never resubmits.
func (c *DeltaClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	start := time.Now()

	var bodyStr string
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, "encoding request body")
		}
		bodyStr = string(raw)
	}

	queryStr := ""
	if len(query) > 0 {
		queryStr = "?" + query.Encode()
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := sign(c.keys.Secret, method+timestamp+path+queryStr+bodyStr)

	env := &deltaEnvelope{}
	req := c.http.R().
		SetContext(ctx).
		SetHeader("api-key", c.keys.Key).
		SetHeader("timestamp", timestamp).
		SetHeader("signature", signature).
		SetResult(env).
		SetError(env)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	if bodyStr != "" {
		req.SetHeader("Content-Type", "application/json").SetBody(bodyStr)
	}

	resp, err := req.Execute(method, path)
	logging.LogAPICall(c.logger, method, path, time.Since(start), err)

	if err != nil {
		return apperrors.NewExchangeError("network", 0, "request failed", err)
	}
	if resp.StatusCode() != 200 || !env.Success {
		code := "api_error"
		if env.Error != nil && env.Error.Code != "" {
			code = env.Error.Code
		}
		// Response bodies can echo request headers; masked logging only.
		c.safe.Warn().
			Str("path", path).
			Str("code", code).
			Int("status", resp.StatusCode()).
			Str("body", string(resp.Body())).
			Msg("Exchange request failed")
		return apperrors.NewExchangeError(code, resp.StatusCode(), resp.Status(), nil)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return apperrors.Wrap(err, "decoding result")
		}
	}
	return nil
}

// GetSpotPrice returns the mark price of the underlying's perpetual
// contract. A fresh streaming feed takes precedence over REST.
func (c *DeltaClient) GetSpotPrice(ctx context.Context, underlying string) (float64, error) {
	contract, ok := spotContracts[strings.ToUpper(underlying)]
	if !ok {
		return 0, apperrors.NewDataError("spot", underlying, "unsupported underlying", nil)
	}

	if c.feed != nil {
		if price, ok := c.feed.LastPrice(contract); ok {
			return price, nil
		}
	}

	var ticker deltaTicker
	if err := c.do(ctx, "GET", "/v2/tickers/"+contract, nil, nil, &ticker); err != nil {
		return 0, apperrors.NewDataError("spot", underlying, "fetching ticker", err)
	}
	price, _ := ticker.MarkPrice.Float64()
	if price <= 0 {
		return 0, apperrors.NewDataError("spot", underlying, "missing mark price", apperrors.ErrDataUnavailable)
	}
	return price, nil
}

// GetOptionChain fetches products and assembles the chain snapshot for
// the given underlying and expiry, strikes sorted ascending.
func (c *DeltaClient) GetOptionChain(ctx context.Context, underlying string, expiry time.Time) (*models.OptionChainSnapshot, error) {
	var products []deltaProduct
	query := url.Values{"contract_types": {"call_options,put_options"}}
	if err := c.do(ctx, "GET", "/v2/products", query, nil, &products); err != nil {
		return nil, apperrors.NewDataError("chain", underlying, "fetching products", err)
	}

	underlying = strings.ToUpper(underlying)
	rows := make(map[float64]*models.ChainStrike)
	for _, p := range products {
		if p.UnderlyingAsset.Symbol != underlying {
			continue
		}
		settlement, err := time.Parse(time.RFC3339, p.SettlementTime)
		if err != nil || !utils.SameExpiry(settlement, expiry) {
			continue
		}
		strike, _ := p.StrikePrice.Float64()
		if strike <= 0 {
			continue
		}
		row, ok := rows[strike]
		if !ok {
			row = &models.ChainStrike{Strike: strike}
			rows[strike] = row
		}
		switch p.ProductType {
		case "call_options":
			row.CallSymbol = p.Symbol
		case "put_options":
			row.PutSymbol = p.Symbol
		}
	}

	strikes := make([]models.ChainStrike, 0, len(rows))
	for _, row := range rows {
		// Only complete pairs are selectable for a straddle.
		if row.CallSymbol != "" && row.PutSymbol != "" {
			strikes = append(strikes, *row)
		}
	}
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })

	return &models.OptionChainSnapshot{
		Underlying: underlying,
		Expiry:     expiry,
		FetchedAt:  time.Now(),
		Strikes:    strikes,
	}, nil
}

// GetQuote returns the current quote for an instrument.
func (c *DeltaClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	var ticker deltaTicker
	if err := c.do(ctx, "GET", "/v2/tickers/"+symbol, nil, nil, &ticker); err != nil {
		return nil, apperrors.NewDataError("quote", symbol, "fetching ticker", err)
	}
	mark, _ := ticker.MarkPrice.Float64()
	bid, _ := ticker.Quotes.BestBid.Float64()
	ask, _ := ticker.Quotes.BestAsk.Float64()
	closePx, _ := ticker.Close.Float64()
	return &models.Quote{
		Symbol:    symbol,
		MarkPrice: mark,
		BidPrice:  bid,
		AskPrice:  ask,
		Close:     closePx,
		Timestamp: time.UnixMicro(ticker.Timestamp),
	}, nil
}

// GetUnderlying returns reference data for an underlying.
func (c *DeltaClient) GetUnderlying(ctx context.Context, symbol string) (*models.Underlying, error) {
	symbol = strings.ToUpper(symbol)
	if _, ok := spotContracts[symbol]; !ok {
		return nil, apperrors.NewDataError("underlying", symbol, "unsupported underlying", nil)
	}

	u := &models.Underlying{
		Symbol:         symbol,
		TickSize:       0.1,
		LotSize:        1,
		Multiplier:     1,
		StrikeInterval: utils.StrikeInterval(symbol),
		RefreshedAt:    time.Now(),
	}

	var products []deltaProduct
	query := url.Values{"contract_types": {"call_options"}}
	if err := c.do(ctx, "GET", "/v2/products", query, nil, &products); err != nil {
		return nil, apperrors.NewDataError("underlying", symbol, "fetching products", err)
	}
	for _, p := range products {
		if p.UnderlyingAsset.Symbol != symbol {
			continue
		}
		if tick, _ := p.TickSize.Float64(); tick > 0 {
			u.TickSize = tick
		}
		if mult, _ := p.ContractValue.Float64(); mult > 0 {
			u.Multiplier = mult
		}
		break
	}
	return u, nil
}

// SubmitOrder places an order. The exchange deduplicates on
// client_order_id, so resubmitting after a transport failure returns
// the original order.
func (c *DeltaClient) SubmitOrder(ctx context.Context, order models.LegOrder) (*OrderAck, error) {
	req := deltaOrderRequest{
		ProductSymbol: order.Symbol,
		Size:          order.Quantity,
		Side:          strings.ToLower(string(order.Side)),
		OrderType:     "market_order",
		TimeInForce:   "gtc",
		ReduceOnly:    order.ReduceOnly,
		ClientOrderID: order.ClientOrderID,
	}
	if order.Type == models.OrderTypeLimit {
		req.OrderType = "limit_order"
		req.LimitPrice = fmt.Sprintf("%g", order.Price)
	}

	var placed deltaOrder
	if err := c.do(ctx, "POST", "/v2/orders", nil, req, &placed); err != nil {
		return nil, err
	}
	return ackFromOrder(&placed), nil
}

// GetOrderStatus fetches the current state of an order.
func (c *DeltaClient) GetOrderStatus(ctx context.Context, exchangeOrderID string) (*OrderAck, error) {
	var order deltaOrder
	if err := c.do(ctx, "GET", "/v2/orders/"+exchangeOrderID, nil, nil, &order); err != nil {
		return nil, err
	}
	return ackFromOrder(&order), nil
}

// GetPositions returns all open positions.
func (c *DeltaClient) GetPositions(ctx context.Context) ([]models.Position, error) {
	var rows []deltaPosition
	if err := c.do(ctx, "GET", "/v2/positions/margined", nil, nil, &rows); err != nil {
		return nil, err
	}
	positions := make([]models.Position, 0, len(rows))
	for _, row := range rows {
		if row.Size == 0 {
			continue
		}
		entry, _ := row.EntryPrice.Float64()
		mark, _ := row.MarkPrice.Float64()
		pnl, _ := row.RealizedPnl.Float64()
		positions = append(positions, models.Position{
			Symbol:     row.ProductSymbol,
			Size:       row.Size,
			EntryPrice: entry,
			MarkPrice:  mark,
			PnL:        pnl,
		})
	}
	return positions, nil
}

// GetAvailableMargin returns the available settlement-asset balance.
func (c *DeltaClient) GetAvailableMargin(ctx context.Context) (float64, error) {
	var wallets []deltaWallet
	if err := c.do(ctx, "GET", "/v2/wallet/balances", nil, nil, &wallets); err != nil {
		return 0, err
	}
	for _, w := range wallets {
		switch w.AssetSymbol {
		case "USD", "USDT", "INR":
			balance, _ := w.AvailableBalance.Float64()
			return balance, nil
		}
	}
	return 0, nil
}

// ackFromOrder maps a Delta order state onto the leg status model.
func ackFromOrder(o *deltaOrder) *OrderAck {
	filled := o.Size - o.UnfilledSize
	var price float64
	if !o.AverageFillPrice.IsZero() {
		price, _ = o.AverageFillPrice.Float64()
	}

	ack := &OrderAck{
		ExchangeOrderID: strconv.FormatInt(o.ID, 10),
		FilledQty:       filled,
		AvgPrice:        price,
		Reason:          o.Reason,
	}

	switch o.State {
	case "open", "pending":
		ack.Status = models.LegSent
	case "closed":
		if filled < o.Size && filled > 0 {
			ack.Status = models.LegPartiallyFilled
		} else {
			ack.Status = models.LegFilled
		}
	case "cancelled":
		if filled > 0 {
			ack.Status = models.LegPartiallyFilled
		} else {
			ack.Status = models.LegRejected
		}
	default:
		ack.Status = models.LegSent
	}
	return ack
}
