package trading

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/exchange"
	"straddle-trader/internal/models"
)

// Reconciler compares an outcome's recorded fills against the
// exchange's authoritative position view. It reports drift only, it
// never places corrective orders.
type Reconciler struct {
	orders exchange.OrderAPI
	logger zerolog.Logger
}

// NewReconciler creates a position reconciler.
func NewReconciler(orders exchange.OrderAPI, logger zerolog.Logger) *Reconciler {
	return &Reconciler{orders: orders, logger: logger}
}

// Reconcile fetches live positions and compares them, per instrument,
// with the signed book delta the outcome should have produced. When
// positions cannot be fetched the error surfaces; a missing
// reconciliation is reported, never silently skipped.
func (r *Reconciler) Reconcile(ctx context.Context, outcome *models.ExecutionOutcome) (*models.ReconciliationReport, error) {
	positions, err := r.orders.GetPositions(ctx)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]int, len(positions))
	for _, p := range positions {
		bySymbol[p.Symbol] = p.Size
	}

	report := &models.ReconciliationReport{
		OutcomeID: outcome.ID,
		CheckedAt: time.Now(),
	}
	for _, expected := range expectedDeltas(outcome) {
		entry := models.ReconciliationEntry{
			Symbol:      expected.symbol,
			RecordedQty: expected.qty,
			ExchangeQty: bySymbol[expected.symbol],
		}
		entry.Drift = entry.RecordedQty != entry.ExchangeQty
		if entry.Drift {
			report.Drift = true
			r.logger.Warn().Err(&apperrors.DriftError{
				OutcomeID:   outcome.ID,
				Symbol:      entry.Symbol,
				RecordedQty: entry.RecordedQty,
				ExchangeQty: entry.ExchangeQty,
			}).Msg("Position drift detected")
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

type expectedDelta struct {
	symbol string
	qty    int
}

// expectedDeltas derives the signed per-instrument quantities the
// outcome should have left on the book. A successful unwind zeroes the
// surviving leg's expectation; a failed unwind does not, so the open
// exposure shows up as recorded quantity rather than drift.
func expectedDeltas(outcome *models.ExecutionOutcome) []expectedDelta {
	deltas := make([]expectedDelta, 0, 2)
	for _, leg := range outcome.Legs() {
		qty := 0
		if leg.Status.Filled() {
			qty = leg.FilledQty
			if qty == 0 {
				qty = leg.Order.Quantity
			}
			if leg.Order.Side == models.OrderSideSell {
				qty = -qty
			}
		}
		if outcome.Status == models.OutcomeUnwound && leg.Status.Filled() {
			qty = 0
		}
		deltas = append(deltas, expectedDelta{symbol: leg.Order.Symbol, qty: qty})
	}
	return deltas
}
