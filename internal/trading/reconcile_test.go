package trading

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-trader/internal/exchange"
	"straddle-trader/internal/models"
)

// positionsStub serves a fixed position book.
type positionsStub struct {
	positions []models.Position
	err       error
}

func (s *positionsStub) SubmitOrder(ctx context.Context, order models.LegOrder) (*exchange.OrderAck, error) {
	return nil, nil
}

func (s *positionsStub) GetOrderStatus(ctx context.Context, exchangeOrderID string) (*exchange.OrderAck, error) {
	return nil, nil
}

func (s *positionsStub) GetPositions(ctx context.Context) ([]models.Position, error) {
	return s.positions, s.err
}

func (s *positionsStub) GetAvailableMargin(ctx context.Context) (float64, error) {
	return 0, nil
}

func filledOutcome(callQty, putQty int, side models.OrderSide) *models.ExecutionOutcome {
	return &models.ExecutionOutcome{
		ID:     "out-1",
		Status: models.OutcomeBothFilled,
		Call: models.LegResult{
			Order:     models.LegOrder{Symbol: "C-BTC-65000", OptionType: models.OptionCall, Side: side, Quantity: callQty},
			Status:    models.LegFilled,
			FilledQty: callQty,
		},
		Put: models.LegResult{
			Order:     models.LegOrder{Symbol: "P-BTC-65000", OptionType: models.OptionPut, Side: side, Quantity: putQty},
			Status:    models.LegFilled,
			FilledQty: putQty,
		},
	}
}

func TestReconcileMatchingPositions(t *testing.T) {
	stub := &positionsStub{positions: []models.Position{
		{Symbol: "C-BTC-65000", Size: 2},
		{Symbol: "P-BTC-65000", Size: 2},
	}}

	report, err := NewReconciler(stub, zerolog.Nop()).Reconcile(context.Background(), filledOutcome(2, 2, models.OrderSideBuy))
	require.NoError(t, err)

	assert.False(t, report.Drift)
	require.Len(t, report.Entries, 2)
	for _, e := range report.Entries {
		assert.False(t, e.Drift)
		assert.Equal(t, e.RecordedQty, e.ExchangeQty)
	}
}

func TestReconcileShortPositionsAreNegative(t *testing.T) {
	stub := &positionsStub{positions: []models.Position{
		{Symbol: "C-BTC-65000", Size: -3},
		{Symbol: "P-BTC-65000", Size: -3},
	}}

	report, err := NewReconciler(stub, zerolog.Nop()).Reconcile(context.Background(), filledOutcome(3, 3, models.OrderSideSell))
	require.NoError(t, err)
	assert.False(t, report.Drift)
	assert.Equal(t, -3, report.Entries[0].RecordedQty)
}

func TestReconcileDetectsDrift(t *testing.T) {
	stub := &positionsStub{positions: []models.Position{
		{Symbol: "C-BTC-65000", Size: 2},
		// Put leg missing from the exchange book entirely.
	}}

	report, err := NewReconciler(stub, zerolog.Nop()).Reconcile(context.Background(), filledOutcome(2, 2, models.OrderSideBuy))
	require.NoError(t, err)

	assert.True(t, report.Drift)
	var drifted []string
	for _, e := range report.Entries {
		if e.Drift {
			drifted = append(drifted, e.Symbol)
		}
	}
	assert.Equal(t, []string{"P-BTC-65000"}, drifted)
}

func TestReconcileRejectedLegsExpectNothing(t *testing.T) {
	outcome := filledOutcome(2, 2, models.OrderSideBuy)
	outcome.Put.Status = models.LegRejected
	outcome.Put.FilledQty = 0
	outcome.Status = models.OutcomeOneLegFilled

	stub := &positionsStub{positions: []models.Position{{Symbol: "C-BTC-65000", Size: 2}}}

	report, err := NewReconciler(stub, zerolog.Nop()).Reconcile(context.Background(), outcome)
	require.NoError(t, err)
	assert.False(t, report.Drift)
}

func TestReconcileUnwoundZeroesExpectation(t *testing.T) {
	outcome := filledOutcome(2, 2, models.OrderSideBuy)
	outcome.Put.Status = models.LegRejected
	outcome.Put.FilledQty = 0
	outcome.Status = models.OutcomeUnwound
	outcome.UnwindOrderID = "ex-unwind"

	// A flat book after the unwind is the expected state.
	stub := &positionsStub{positions: nil}

	report, err := NewReconciler(stub, zerolog.Nop()).Reconcile(context.Background(), outcome)
	require.NoError(t, err)
	assert.False(t, report.Drift)
}

func TestReconcilePositionsUnavailable(t *testing.T) {
	stub := &positionsStub{err: assert.AnError}

	_, err := NewReconciler(stub, zerolog.Nop()).Reconcile(context.Background(), filledOutcome(1, 1, models.OrderSideBuy))
	assert.Error(t, err)
}
