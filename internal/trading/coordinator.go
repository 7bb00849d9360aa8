package trading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/exchange"
	"straddle-trader/internal/logging"
	"straddle-trader/internal/models"
	"straddle-trader/pkg/utils"
)

// finalPollTimeout bounds the last status query made for an in-flight
// leg after the request deadline, so slow-but-successful fills are not
// misreported as timeouts.
const finalPollTimeout = 3 * time.Second

// CoordinatorConfig holds execution coordinator configuration.
type CoordinatorConfig struct {
	RequestTimeout time.Duration // whole-request bound, not per leg
	PollInterval   time.Duration
	Retry          utils.RetryConfig
	UnwindTimeout  time.Duration
}

// DefaultCoordinatorConfig returns sensible coordinator defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		RequestTimeout: 30 * time.Second,
		PollInterval:   2 * time.Second,
		Retry:          utils.DefaultRetryConfig(),
		UnwindTimeout:  15 * time.Second,
	}
}

// Coordinator drives both straddle legs to a terminal state and maps
// the pair onto a single execution outcome. One coordinator instance
// owns one request's state; nothing is shared across concurrent
// requests.
type Coordinator struct {
	orders exchange.OrderAPI
	cfg    CoordinatorConfig
	logger zerolog.Logger
}

// NewCoordinator creates an execution coordinator.
func NewCoordinator(orders exchange.OrderAPI, cfg CoordinatorConfig, logger zerolog.Logger) *Coordinator {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = utils.DefaultRetryConfig()
	}
	if cfg.UnwindTimeout <= 0 {
		cfg.UnwindTimeout = 15 * time.Second
	}
	return &Coordinator{orders: orders, cfg: cfg, logger: logger}
}

// DeriveOutcomeStatus maps the two leg statuses onto the overall
// outcome. Partial fills count as filled; the filled quantity is
// carried for reconciliation. The mapping is total over terminal
// statuses.
func DeriveOutcomeStatus(call, put models.LegStatus) models.OutcomeStatus {
	switch {
	case call.Filled() && put.Filled():
		return models.OutcomeBothFilled
	case call.Filled() || put.Filled():
		return models.OutcomeOneLegFilled
	default:
		return models.OutcomeBothRejected
	}
}

// Execute submits both legs concurrently and waits for both to resolve
// or for the request timeout. Cancellation before submission aborts
// cleanly; once a leg is sent it is always driven to a terminal state,
// detached from the caller's cancellation, so no exchange order is
// left without a tracked outcome.
func (c *Coordinator) Execute(ctx context.Context, pair models.StrikePair, legs [2]models.LegOrder, corrID string) (*models.ExecutionOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.RequestTimeout)
	defer cancel()

	// Both submissions must be outstanding before either is awaited,
	// keeping the window between legs as small as the exchange allows.
	results := make(chan models.LegResult, len(legs))
	for _, leg := range legs {
		leg := leg
		go func() { results <- c.runLeg(runCtx, leg) }()
	}

	outcome := &models.ExecutionOutcome{
		ID:            uuid.NewString(),
		CorrelationID: corrID,
		Underlying:    pair.Underlying,
		Strike:        pair.Strike,
		Expiry:        pair.Expiry,
		CreatedAt:     time.Now(),
	}
	for range legs {
		res := <-results
		if res.Order.OptionType == models.OptionCall {
			outcome.Call = res
		} else {
			outcome.Put = res
		}
	}

	outcome.Status = DeriveOutcomeStatus(outcome.Call.Status, outcome.Put.Status)
	if outcome.Status == models.OutcomeOneLegFilled {
		c.unwind(outcome)
	}

	logging.LogOutcome(c.logger, outcome.ID, outcome.Underlying, string(outcome.Status), outcome.NeedsReview)
	return outcome, nil
}

// runLeg submits one leg with bounded retry and polls it to a terminal
// state. A retried submission reuses the leg's client order id, so the
// exchange deduplicates; a new id is never generated mid-request.
func (c *Coordinator) runLeg(ctx context.Context, leg models.LegOrder) models.LegResult {
	result := models.LegResult{Order: leg, Status: models.LegNotSent}
	logger := logging.WithSymbol(c.logger, leg.Symbol)

	retryCfg := c.cfg.Retry
	retryCfg.RetryIf = apperrors.IsTransient

	ack, err := utils.RetryWithResult(ctx, retryCfg, func() (*exchange.OrderAck, error) {
		return c.orders.SubmitOrder(ctx, leg)
	})
	if err != nil {
		if ctx.Err() != nil {
			result.Status = models.LegTimeout
		} else {
			result.Status = models.LegRejected
		}
		result.Error = err.Error()
		logging.LogLeg(logger, leg.ClientOrderID, leg.Symbol, string(leg.Side), string(result.Status))
		return result
	}

	result.Status = models.LegSent
	result.ExchangeOrderID = ack.ExchangeOrderID
	logging.LogLeg(logger, leg.ClientOrderID, leg.Symbol, string(leg.Side), string(result.Status))

	c.awaitTerminal(ctx, &result, ack)
	logging.LogLeg(logger, leg.ClientOrderID, leg.Symbol, string(leg.Side), string(result.Status))
	return result
}

// awaitTerminal polls an acknowledged order until it reaches a
// terminal state or the request deadline expires. On expiry the order
// is queried one final time before being marked TIMEOUT.
func (c *Coordinator) awaitTerminal(ctx context.Context, result *models.LegResult, ack *exchange.OrderAck) {
	if ack.Status.Terminal() {
		applyAck(result, ack)
		return
	}

	for {
		select {
		case <-ctx.Done():
			finalCtx, cancel := context.WithTimeout(context.Background(), finalPollTimeout)
			last, err := c.orders.GetOrderStatus(finalCtx, result.ExchangeOrderID)
			cancel()
			if err == nil && last.Status.Terminal() {
				applyAck(result, last)
				return
			}
			result.Status = models.LegTimeout
			if err == nil {
				result.FilledQty = last.FilledQty
				result.AvgPrice = last.AvgPrice
			}
			result.Error = apperrors.ErrTimeout.Error()
			return

		case <-time.After(c.cfg.PollInterval):
			last, err := c.orders.GetOrderStatus(ctx, result.ExchangeOrderID)
			if err != nil {
				// Poll failures are absorbed; the final check on
				// deadline still runs.
				continue
			}
			if last.Status.Terminal() {
				applyAck(result, last)
				return
			}
		}
	}
}

func applyAck(result *models.LegResult, ack *exchange.OrderAck) {
	result.Status = ack.Status
	result.ExchangeOrderID = ack.ExchangeOrderID
	result.FilledQty = ack.FilledQty
	result.AvgPrice = ack.AvgPrice
	if ack.Status == models.LegRejected && ack.Reason != "" {
		result.Error = ack.Reason
	}
}

// unwind attempts exactly one corrective close of the filled leg after
// its sibling failed, to avoid an unintended directional position. It
// starts only after the triggering leg's terminal status is confirmed.
// On success the outcome becomes UNWOUND; on failure it stays
// ONE_LEG_FILLED and is flagged for manual review.
func (c *Coordinator) unwind(outcome *models.ExecutionOutcome) {
	filled := &outcome.Call
	if !filled.Status.Filled() {
		filled = &outcome.Put
	}

	qty := filled.FilledQty
	if qty <= 0 {
		qty = filled.Order.Quantity
	}

	closeOrder := models.LegOrder{
		Symbol:        filled.Order.Symbol,
		OptionType:    filled.Order.OptionType,
		Side:          filled.Order.Side.Opposite(),
		Quantity:      qty,
		Type:          models.OrderTypeMarket,
		ClientOrderID: outcome.CorrelationID + "-U",
		ReduceOnly:    true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.UnwindTimeout)
	defer cancel()

	logger := logging.WithSymbol(c.logger, closeOrder.Symbol)
	logger.Warn().
		Str("client_order_id", closeOrder.ClientOrderID).
		Msg("Sibling leg failed, attempting corrective close")

	retryCfg := c.cfg.Retry
	retryCfg.RetryIf = apperrors.IsTransient
	ack, err := utils.RetryWithResult(ctx, retryCfg, func() (*exchange.OrderAck, error) {
		return c.orders.SubmitOrder(ctx, closeOrder)
	})
	if err != nil {
		outcome.NeedsReview = true
		logger.Error().Err(err).Msg("Corrective close failed, manual review required")
		return
	}

	result := models.LegResult{Order: closeOrder, Status: models.LegSent, ExchangeOrderID: ack.ExchangeOrderID}
	c.awaitTerminal(ctx, &result, ack)

	if result.Status.Filled() {
		outcome.Status = models.OutcomeUnwound
		outcome.UnwindOrderID = result.ExchangeOrderID
		return
	}
	outcome.NeedsReview = true
	logger.Error().
		Str("status", string(result.Status)).
		Msg("Corrective close not filled, manual review required")
}
