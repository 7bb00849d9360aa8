package exchange

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/models"
	"straddle-trader/pkg/utils"
)

// PaperExchange implements the Exchange interface for paper trading
// simulation. Market data comes from an optional real data source;
// orders fill immediately against the last known quote. Submission is
// idempotent on client order id, matching live exchange behavior.
type PaperExchange struct {
	dataSource MarketData // optional; synthetic data when nil

	orders       map[string]*models.LegResult // keyed by exchange order id
	byClientID   map[string]string            // client order id -> exchange order id
	positions    map[string]int
	entryPrices  map[string]float64
	priceCache   map[string]float64
	balance      float64
	orderCounter int

	mu sync.RWMutex
}

// PaperConfig holds configuration for the paper exchange.
type PaperConfig struct {
	DataSource     MarketData
	InitialBalance float64
}

// NewPaperExchange creates a new paper trading exchange.
func NewPaperExchange(cfg PaperConfig) *PaperExchange {
	balance := cfg.InitialBalance
	if balance == 0 {
		balance = 100000
	}
	return &PaperExchange{
		dataSource:  cfg.DataSource,
		orders:      make(map[string]*models.LegResult),
		byClientID:  make(map[string]string),
		positions:   make(map[string]int),
		entryPrices: make(map[string]float64),
		priceCache:  make(map[string]float64),
		balance:     balance,
	}
}

// SetPrice seeds the simulated price for an instrument.
func (p *PaperExchange) SetPrice(symbol string, price float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.priceCache[symbol] = price
}

// GetSpotPrice returns spot from the data source, falling back to the
// seeded price cache.
func (p *PaperExchange) GetSpotPrice(ctx context.Context, underlying string) (float64, error) {
	if p.dataSource != nil {
		price, err := p.dataSource.GetSpotPrice(ctx, underlying)
		if err == nil {
			p.mu.Lock()
			p.priceCache[underlying] = price
			p.mu.Unlock()
			return price, nil
		}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if price, ok := p.priceCache[strings.ToUpper(underlying)]; ok {
		return price, nil
	}
	return 0, apperrors.NewDataError("spot", underlying, "no price available", apperrors.ErrDataUnavailable)
}

// GetOptionChain returns the real chain when a data source is
// configured, otherwise a synthetic chain around the seeded spot.
func (p *PaperExchange) GetOptionChain(ctx context.Context, underlying string, expiry time.Time) (*models.OptionChainSnapshot, error) {
	if p.dataSource != nil {
		return p.dataSource.GetOptionChain(ctx, underlying, expiry)
	}

	spot, err := p.GetSpotPrice(ctx, underlying)
	if err != nil {
		return nil, err
	}

	underlying = strings.ToUpper(underlying)
	interval := utils.StrikeInterval(underlying)
	atm := utils.RoundToInterval(spot, interval)
	day := expiry.In(utils.IndiaLocation).Format("020106")

	strikes := make([]models.ChainStrike, 0, 11)
	for offset := -5; offset <= 5; offset++ {
		strike := atm + float64(offset)*interval
		if strike <= 0 {
			continue
		}
		strikes = append(strikes, models.ChainStrike{
			Strike:     strike,
			CallSymbol: fmt.Sprintf("C-%s-%s-%s", underlying, utils.FormatStrike(strike), day),
			PutSymbol:  fmt.Sprintf("P-%s-%s-%s", underlying, utils.FormatStrike(strike), day),
		})
	}

	return &models.OptionChainSnapshot{
		Underlying: underlying,
		Expiry:     expiry,
		FetchedAt:  time.Now(),
		Strikes:    strikes,
	}, nil
}

// GetQuote returns a quote from the data source or the price cache.
func (p *PaperExchange) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if p.dataSource != nil {
		return p.dataSource.GetQuote(ctx, symbol)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	price := p.priceCache[symbol]
	return &models.Quote{
		Symbol:    symbol,
		MarkPrice: price,
		Close:     price,
		Timestamp: time.Now(),
	}, nil
}

// GetUnderlying returns reference data from the data source or defaults.
func (p *PaperExchange) GetUnderlying(ctx context.Context, symbol string) (*models.Underlying, error) {
	if p.dataSource != nil {
		return p.dataSource.GetUnderlying(ctx, symbol)
	}
	symbol = strings.ToUpper(symbol)
	return &models.Underlying{
		Symbol:         symbol,
		TickSize:       0.1,
		LotSize:        1,
		Multiplier:     1,
		StrikeInterval: utils.StrikeInterval(symbol),
		RefreshedAt:    time.Now(),
	}, nil
}

// SubmitOrder fills the order immediately at the cached instrument
// price. Resubmitting a client order id returns the original ack.
func (p *PaperExchange) SubmitOrder(ctx context.Context, order models.LegOrder) (*OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byClientID[order.ClientOrderID]; ok {
		return p.ackLocked(existing), nil
	}
	if order.Quantity <= 0 {
		return nil, apperrors.NewExchangeError("invalid_size", 400, "order size must be positive", nil)
	}

	p.orderCounter++
	exchangeID := fmt.Sprintf("PAPER-%06d", p.orderCounter)
	fillPrice := p.priceCache[order.Symbol]

	result := &models.LegResult{
		Order:           order,
		Status:          models.LegFilled,
		ExchangeOrderID: exchangeID,
		FilledQty:       order.Quantity,
		AvgPrice:        fillPrice,
	}
	p.orders[exchangeID] = result
	p.byClientID[order.ClientOrderID] = exchangeID

	delta := order.Quantity
	if order.Side == models.OrderSideSell {
		delta = -delta
	}
	p.positions[order.Symbol] += delta
	p.entryPrices[order.Symbol] = fillPrice

	return p.ackLocked(exchangeID), nil
}

// GetOrderStatus returns the recorded state of a simulated order.
func (p *PaperExchange) GetOrderStatus(ctx context.Context, exchangeOrderID string) (*OrderAck, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.orders[exchangeOrderID]; !ok {
		return nil, apperrors.NewExchangeError("not_found", 404, "unknown order", apperrors.ErrNotFound)
	}
	return p.ackLocked(exchangeOrderID), nil
}

// GetPositions returns the simulated position book.
func (p *PaperExchange) GetPositions(ctx context.Context) ([]models.Position, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	positions := make([]models.Position, 0, len(p.positions))
	for symbol, size := range p.positions {
		if size == 0 {
			continue
		}
		positions = append(positions, models.Position{
			Symbol:     symbol,
			Size:       size,
			EntryPrice: p.entryPrices[symbol],
			MarkPrice:  p.priceCache[symbol],
		})
	}
	return positions, nil
}

// GetAvailableMargin returns the simulated balance.
func (p *PaperExchange) GetAvailableMargin(ctx context.Context) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.balance, nil
}

func (p *PaperExchange) ackLocked(exchangeOrderID string) *OrderAck {
	result := p.orders[exchangeOrderID]
	return &OrderAck{
		ExchangeOrderID: result.ExchangeOrderID,
		Status:          result.Status,
		FilledQty:       result.FilledQty,
		AvgPrice:        result.AvgPrice,
	}
}
