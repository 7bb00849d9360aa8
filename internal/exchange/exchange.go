// Package exchange provides exchange integration interfaces and implementations.
package exchange

import (
	"context"
	"time"

	"straddle-trader/internal/models"
)

// MarketData defines read-only market data operations.
type MarketData interface {
	GetSpotPrice(ctx context.Context, underlying string) (float64, error)
	GetOptionChain(ctx context.Context, underlying string, expiry time.Time) (*models.OptionChainSnapshot, error)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetUnderlying(ctx context.Context, symbol string) (*models.Underlying, error)
}

// OrderAPI defines authenticated order and account operations.
// SubmitOrder is idempotent on the order's ClientOrderID: resubmitting
// the same order returns the original exchange order, never a second one.
type OrderAPI interface {
	SubmitOrder(ctx context.Context, order models.LegOrder) (*OrderAck, error)
	GetOrderStatus(ctx context.Context, exchangeOrderID string) (*OrderAck, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	GetAvailableMargin(ctx context.Context) (float64, error)
}

// Exchange combines market data and order operations.
type Exchange interface {
	MarketData
	OrderAPI
}

// OrderAck represents the exchange's view of a submitted order.
type OrderAck struct {
	ExchangeOrderID string
	Status          models.LegStatus
	FilledQty       int
	AvgPrice        float64
	Reason          string // rejection reason, if any
}
