package trading

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/exchange"
	"straddle-trader/internal/models"
	"straddle-trader/pkg/utils"
)

// fakeOrders scripts exchange behavior per client order id.
type fakeOrders struct {
	mu          sync.Mutex
	submitCount map[string]int
	submit      func(order models.LegOrder, attempt int) (*exchange.OrderAck, error)
	status      func(exchangeOrderID string) (*exchange.OrderAck, error)
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{submitCount: make(map[string]int)}
}

func (f *fakeOrders) SubmitOrder(ctx context.Context, order models.LegOrder) (*exchange.OrderAck, error) {
	f.mu.Lock()
	f.submitCount[order.ClientOrderID]++
	attempt := f.submitCount[order.ClientOrderID]
	f.mu.Unlock()
	return f.submit(order, attempt)
}

func (f *fakeOrders) GetOrderStatus(ctx context.Context, exchangeOrderID string) (*exchange.OrderAck, error) {
	return f.status(exchangeOrderID)
}

func (f *fakeOrders) GetPositions(ctx context.Context) ([]models.Position, error) {
	return nil, nil
}

func (f *fakeOrders) GetAvailableMargin(ctx context.Context) (float64, error) {
	return 1e9, nil
}

func (f *fakeOrders) attempts(clientOrderID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCount[clientOrderID]
}

func filledAck(order models.LegOrder) *exchange.OrderAck {
	return &exchange.OrderAck{
		ExchangeOrderID: "ex-" + order.ClientOrderID,
		Status:          models.LegFilled,
		FilledQty:       order.Quantity,
		AvgPrice:        100,
	}
}

func rejectedAck(order models.LegOrder) *exchange.OrderAck {
	return &exchange.OrderAck{
		ExchangeOrderID: "ex-" + order.ClientOrderID,
		Status:          models.LegRejected,
		Reason:          "insufficient margin",
	}
}

func testLegs(corrID string) [2]models.LegOrder {
	return [2]models.LegOrder{
		{Symbol: "C-BTC-65000", OptionType: models.OptionCall, Side: models.OrderSideBuy,
			Quantity: 2, Type: models.OrderTypeMarket, ClientOrderID: corrID + "-C"},
		{Symbol: "P-BTC-65000", OptionType: models.OptionPut, Side: models.OrderSideBuy,
			Quantity: 2, Type: models.OrderTypeMarket, ClientOrderID: corrID + "-P"},
	}
}

func testCoordinator(orders exchange.OrderAPI) *Coordinator {
	return NewCoordinator(orders, CoordinatorConfig{
		RequestTimeout: 2 * time.Second,
		PollInterval:   10 * time.Millisecond,
		UnwindTimeout:  time.Second,
		Retry: utils.RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      10 * time.Millisecond,
			BackoffFactor: 2.0,
		},
	}, zerolog.Nop())
}

func TestExecuteBothFilled(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		return filledAck(order), nil
	}

	outcome, err := testCoordinator(fake).Execute(context.Background(), *testPair(), testLegs("corr-1"), "corr-1")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeBothFilled, outcome.Status)
	assert.Equal(t, models.LegFilled, outcome.Call.Status)
	assert.Equal(t, models.LegFilled, outcome.Put.Status)
	assert.False(t, outcome.NeedsReview)
	assert.Empty(t, outcome.UnwindOrderID)
	assert.Equal(t, 1, fake.attempts("corr-1-C"))
	assert.Equal(t, 1, fake.attempts("corr-1-P"))
}

func TestExecuteBothRejected(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		return rejectedAck(order), nil
	}

	outcome, err := testCoordinator(fake).Execute(context.Background(), *testPair(), testLegs("corr-2"), "corr-2")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeBothRejected, outcome.Status)
	assert.Equal(t, "insufficient margin", outcome.Call.Error)
	assert.False(t, outcome.NeedsReview)
	// A fully rejected pair never triggers an unwind order.
	assert.Zero(t, fake.attempts("corr-2-U"))
}

func TestExecuteOneLegFilledUnwound(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		if order.OptionType == models.OptionPut && !order.ReduceOnly {
			return rejectedAck(order), nil
		}
		return filledAck(order), nil
	}

	outcome, err := testCoordinator(fake).Execute(context.Background(), *testPair(), testLegs("corr-3"), "corr-3")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeUnwound, outcome.Status)
	assert.Equal(t, "ex-corr-3-U", outcome.UnwindOrderID)
	assert.False(t, outcome.NeedsReview)
	assert.Equal(t, 1, fake.attempts("corr-3-U"))
}

func TestExecuteUnwindUsesOppositeReduceOnly(t *testing.T) {
	fake := newFakeOrders()
	var unwind models.LegOrder
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		if strings.HasSuffix(order.ClientOrderID, "-U") {
			unwind = order
			return filledAck(order), nil
		}
		if order.OptionType == models.OptionCall {
			// Partial fill still counts as a fill for outcome mapping.
			ack := filledAck(order)
			ack.Status = models.LegPartiallyFilled
			ack.FilledQty = 1
			return ack, nil
		}
		return rejectedAck(order), nil
	}

	outcome, err := testCoordinator(fake).Execute(context.Background(), *testPair(), testLegs("corr-4"), "corr-4")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeUnwound, outcome.Status)
	assert.Equal(t, "C-BTC-65000", unwind.Symbol)
	assert.Equal(t, models.OrderSideSell, unwind.Side)
	assert.Equal(t, 1, unwind.Quantity) // only the filled quantity is closed
	assert.True(t, unwind.ReduceOnly)
	assert.Equal(t, models.OrderTypeMarket, unwind.Type)
}

func TestExecuteUnwindFailureFlagsReview(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		if strings.HasSuffix(order.ClientOrderID, "-U") {
			return rejectedAck(order), nil
		}
		if order.OptionType == models.OptionCall {
			return filledAck(order), nil
		}
		return rejectedAck(order), nil
	}

	outcome, err := testCoordinator(fake).Execute(context.Background(), *testPair(), testLegs("corr-5"), "corr-5")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeOneLegFilled, outcome.Status)
	assert.True(t, outcome.NeedsReview)
	assert.Empty(t, outcome.UnwindOrderID)
}

func TestExecuteRetriesTransientWithSameClientID(t *testing.T) {
	fake := newFakeOrders()
	var ids []string
	var idsMu sync.Mutex
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		idsMu.Lock()
		ids = append(ids, order.ClientOrderID)
		idsMu.Unlock()
		if order.OptionType == models.OptionCall && attempt < 3 {
			return nil, apperrors.NewExchangeError("rate_limit", 429, "too many requests", nil)
		}
		return filledAck(order), nil
	}

	outcome, err := testCoordinator(fake).Execute(context.Background(), *testPair(), testLegs("corr-6"), "corr-6")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeBothFilled, outcome.Status)
	assert.Equal(t, 3, fake.attempts("corr-6-C"))

	// Every retried submission carried the original idempotency key.
	idsMu.Lock()
	defer idsMu.Unlock()
	for _, id := range ids {
		assert.Contains(t, []string{"corr-6-C", "corr-6-P"}, id)
	}
}

func TestExecuteTerminalRejectionNotRetried(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		if order.OptionType == models.OptionCall {
			return nil, apperrors.NewExchangeError("invalid_contract", 400, "unknown product", nil)
		}
		return rejectedAck(order), nil
	}

	outcome, err := testCoordinator(fake).Execute(context.Background(), *testPair(), testLegs("corr-7"), "corr-7")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeBothRejected, outcome.Status)
	assert.Equal(t, models.LegRejected, outcome.Call.Status)
	assert.Equal(t, 1, fake.attempts("corr-7-C"))
}

func TestExecuteFinalPollResolvesSlowFill(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		return &exchange.OrderAck{ExchangeOrderID: "ex-" + order.ClientOrderID, Status: models.LegSent}, nil
	}
	// Regular polls never run: the poll interval exceeds the request
	// timeout. Only the final deadline check sees the fill.
	fake.status = func(exchangeOrderID string) (*exchange.OrderAck, error) {
		return &exchange.OrderAck{ExchangeOrderID: exchangeOrderID, Status: models.LegFilled, FilledQty: 2, AvgPrice: 100}, nil
	}

	c := NewCoordinator(fake, CoordinatorConfig{
		RequestTimeout: 30 * time.Millisecond,
		PollInterval:   time.Second,
		UnwindTimeout:  time.Second,
		Retry:          utils.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1},
	}, zerolog.Nop())

	outcome, err := c.Execute(context.Background(), *testPair(), testLegs("corr-8"), "corr-8")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeBothFilled, outcome.Status)
}

func TestExecuteTimeoutWhenNeverTerminal(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		return &exchange.OrderAck{ExchangeOrderID: "ex-" + order.ClientOrderID, Status: models.LegSent}, nil
	}
	fake.status = func(exchangeOrderID string) (*exchange.OrderAck, error) {
		return &exchange.OrderAck{ExchangeOrderID: exchangeOrderID, Status: models.LegSent}, nil
	}

	c := NewCoordinator(fake, CoordinatorConfig{
		RequestTimeout: 50 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		UnwindTimeout:  time.Second,
		Retry:          utils.RetryConfig{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1},
	}, zerolog.Nop())

	outcome, err := c.Execute(context.Background(), *testPair(), testLegs("corr-9"), "corr-9")
	require.NoError(t, err)

	assert.Equal(t, models.LegTimeout, outcome.Call.Status)
	assert.Equal(t, models.LegTimeout, outcome.Put.Status)
	assert.Equal(t, models.OutcomeBothRejected, outcome.Status)
}

func TestExecuteCancelledBeforeSubmission(t *testing.T) {
	fake := newFakeOrders()
	fake.submit = func(order models.LegOrder, attempt int) (*exchange.OrderAck, error) {
		return filledAck(order), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testCoordinator(fake).Execute(ctx, *testPair(), testLegs("corr-10"), "corr-10")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, fake.attempts("corr-10-C"))
}

// The mapping is total: any combination of terminal leg statuses
// yields exactly one overall outcome.
func TestDeriveOutcomeStatusTotality(t *testing.T) {
	terminal := []models.LegStatus{
		models.LegFilled, models.LegPartiallyFilled, models.LegRejected, models.LegTimeout,
	}
	for _, call := range terminal {
		for _, put := range terminal {
			t.Run(fmt.Sprintf("%s_%s", call, put), func(t *testing.T) {
				status := DeriveOutcomeStatus(call, put)
				switch {
				case call.Filled() && put.Filled():
					assert.Equal(t, models.OutcomeBothFilled, status)
				case call.Filled() || put.Filled():
					assert.Equal(t, models.OutcomeOneLegFilled, status)
				default:
					assert.Equal(t, models.OutcomeBothRejected, status)
				}
			})
		}
	}
}
