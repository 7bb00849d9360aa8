package trading

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straddle-trader/internal/config"
	"straddle-trader/internal/credentials"
	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/exchange"
	"straddle-trader/internal/models"
	"straddle-trader/internal/store"
	"straddle-trader/pkg/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			Mode:              "paper",
			DefaultUnderlying: "BTC",
			MaxStrikeDevPct:   0.05,
			MaxSnapshotAge:    30 * time.Second,
		},
		Execution: config.ExecutionConfig{
			RequestTimeout: 5 * time.Second,
			PollInterval:   10 * time.Millisecond,
			MaxRetries:     3,
			RetryDelay:     time.Millisecond,
			UnwindTimeout:  time.Second,
		},
		Risk: config.RiskConfig{MaxLotSize: 100, MarginCheck: true},
	}
}

func testService(t *testing.T, cfg *config.Config, paper *exchange.PaperExchange) (*Service, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	resolver := credentials.Static{Keys: models.APIKeys{Key: "paper", Secret: "paper"}}
	factory := func(keys models.APIKeys) exchange.Exchange { return paper }
	return NewService(cfg, st, resolver, factory, zerolog.Nop()), st
}

func TestExecuteStraddleEndToEnd(t *testing.T) {
	paper := exchange.NewPaperExchange(exchange.PaperConfig{})
	paper.SetPrice("BTC", 64800)

	cfg := testConfig()
	svc, st := testService(t, cfg, paper)

	preset := &models.StrategyPreset{
		Name:       "btc-test",
		Underlying: "BTC",
		LotSize:    2,
		Side:       models.StraddleLong,
		OrderType:  models.OrderTypeMarket,
	}

	outcome, err := svc.ExecuteStraddle(context.Background(), preset, "any")
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeBothFilled, outcome.Status)
	assert.Equal(t, 65000.0, outcome.Strike) // 64800 rounds to the 1000-point grid
	assert.True(t, outcome.IsPaper)
	assert.NotEmpty(t, outcome.CorrelationID)

	// Leg ids derive from the correlation id.
	assert.Equal(t, outcome.CorrelationID+"-C", outcome.Call.Order.ClientOrderID)
	assert.Equal(t, outcome.CorrelationID+"-P", outcome.Put.Order.ClientOrderID)

	// The outcome was persisted.
	stored, err := st.GetOutcome(context.Background(), outcome.ID)
	require.NoError(t, err)
	assert.Equal(t, outcome.Status, stored.Status)

	// Both fills landed on the simulated book.
	positions, err := paper.GetPositions(context.Background())
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}

func TestExecuteStraddleGlobalRiskCap(t *testing.T) {
	paper := exchange.NewPaperExchange(exchange.PaperConfig{})
	paper.SetPrice("BTC", 64800)

	cfg := testConfig()
	cfg.Risk.MaxLotSize = 5
	svc, _ := testService(t, cfg, paper)

	preset := &models.StrategyPreset{
		Underlying: "BTC", LotSize: 10,
		Side: models.StraddleLong, OrderType: models.OrderTypeMarket,
	}

	_, err := svc.ExecuteStraddle(context.Background(), preset, "any")
	assert.ErrorIs(t, err, apperrors.ErrRiskLimitExceeded)
}

func TestExecuteStraddleNoMarketData(t *testing.T) {
	// Unseeded paper exchange has no spot price at all.
	paper := exchange.NewPaperExchange(exchange.PaperConfig{})
	svc, st := testService(t, testConfig(), paper)

	preset := &models.StrategyPreset{
		Underlying: "BTC", LotSize: 1,
		Side: models.StraddleLong, OrderType: models.OrderTypeMarket,
	}

	_, err := svc.ExecuteStraddle(context.Background(), preset, "any")
	assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)

	// Nothing was sent, so nothing was recorded.
	outcomes, err := st.GetOutcomes(context.Background(), store.OutcomeFilter{})
	require.NoError(t, err)
	assert.Empty(t, outcomes)
}

func TestExecuteStraddleInsufficientMargin(t *testing.T) {
	paper := exchange.NewPaperExchange(exchange.PaperConfig{InitialBalance: 10})
	paper.SetPrice("BTC", 64800)
	// Seed option premiums so the estimated debit exceeds the balance.
	seedChainPremiums(t, paper, 1200)

	svc, _ := testService(t, testConfig(), paper)

	preset := &models.StrategyPreset{
		Underlying: "BTC", LotSize: 1,
		Side: models.StraddleLong, OrderType: models.OrderTypeMarket,
	}

	_, err := svc.ExecuteStraddle(context.Background(), preset, "any")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
}

// seedChainPremiums prices every option in the synthetic chain.
func seedChainPremiums(t *testing.T, paper *exchange.PaperExchange, premium float64) {
	t.Helper()
	snapshot, err := paper.GetOptionChain(context.Background(), "BTC", utils.NextExpiry(time.Now()))
	require.NoError(t, err)
	for _, row := range snapshot.Strikes {
		paper.SetPrice(row.CallSymbol, premium)
		paper.SetPrice(row.PutSymbol, premium)
	}
}
