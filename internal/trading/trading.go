package trading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"straddle-trader/internal/config"
	"straddle-trader/internal/credentials"
	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/exchange"
	"straddle-trader/internal/logging"
	"straddle-trader/internal/models"
	"straddle-trader/internal/store"
	"straddle-trader/pkg/utils"
)

// ExchangeFactory builds an exchange client bound to resolved API
// keys. Clients live for a single execution and are never cached, so
// key material stays short-lived.
type ExchangeFactory func(keys models.APIKeys) exchange.Exchange

// Service wires the execution pipeline: credential resolution, market
// data gating, strike selection, planning, coordination, and
// reconciliation.
type Service struct {
	cfg         *config.Config
	store       store.Store
	resolver    credentials.Resolver
	newExchange ExchangeFactory
	logger      zerolog.Logger
}

// NewService creates the trading service.
func NewService(cfg *config.Config, st store.Store, resolver credentials.Resolver, factory ExchangeFactory, logger zerolog.Logger) *Service {
	return &Service{
		cfg:         cfg,
		store:       st,
		resolver:    resolver,
		newExchange: factory,
		logger:      logger,
	}
}

// ExecuteStraddle runs one straddle execution end to end for a preset
// and credential handle. Failures before any leg is sent return an
// error with no outcome; once submission starts, an outcome is always
// produced and persisted.
func (s *Service) ExecuteStraddle(ctx context.Context, preset *models.StrategyPreset, handle models.CredentialHandle) (*models.ExecutionOutcome, error) {
	corrID := uuid.NewString()
	logger := logging.WithCorrelationID(s.logger, corrID)
	logger.Info().
		Str("preset", preset.Name).
		Str("underlying", preset.Underlying).
		Str("side", string(preset.Side)).
		Int("lot_size", preset.LotSize).
		Msg("Starting straddle execution")

	if s.cfg.Risk.MaxLotSize > 0 && preset.LotSize > s.cfg.Risk.MaxLotSize {
		return nil, apperrors.NewValidationError("lot_size", preset.LotSize,
			"lot size exceeds global risk limit", apperrors.ErrRiskLimitExceeded)
	}

	keys, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, apperrors.Wrap(err, "resolving credentials")
	}
	ex := s.newExchange(keys)

	underlying, err := ex.GetUnderlying(ctx, preset.Underlying)
	if err != nil {
		return nil, apperrors.Wrap(err, "loading underlying reference data")
	}

	spot, err := ex.GetSpotPrice(ctx, preset.Underlying)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching spot price")
	}

	expiry := utils.NextExpiry(time.Now())
	snapshot, err := ex.GetOptionChain(ctx, preset.Underlying, expiry)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching option chain")
	}
	if err := CheckSnapshotAge(snapshot, s.cfg.Trading.MaxSnapshotAge, time.Now()); err != nil {
		return nil, err
	}

	pair, err := SelectATMStrikes(snapshot, spot, s.cfg.Trading.MaxStrikeDevPct)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Float64("spot", spot).
		Float64("strike", pair.Strike).
		Time("expiry", pair.Expiry).
		Msg("Selected ATM strikes")

	quotes, err := s.fetchQuotes(ctx, ex, pair, preset)
	if err != nil {
		return nil, err
	}

	if s.cfg.Risk.MarginCheck {
		if err := s.checkMargin(ctx, ex, preset, underlying, quotes); err != nil {
			return nil, err
		}
	}

	legs, err := PlanStraddle(pair, preset, underlying, corrID, quotes)
	if err != nil {
		return nil, err
	}

	coordinator := NewCoordinator(ex, CoordinatorConfig{
		RequestTimeout: s.cfg.Execution.RequestTimeout,
		PollInterval:   s.cfg.Execution.PollInterval,
		UnwindTimeout:  s.cfg.Execution.UnwindTimeout,
		Retry: utils.RetryConfig{
			MaxAttempts:   s.cfg.Execution.MaxRetries,
			InitialDelay:  s.cfg.Execution.RetryDelay,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
		},
	}, logger)

	outcome, err := coordinator.Execute(ctx, *pair, legs, corrID)
	if err != nil {
		return nil, err
	}
	outcome.IsPaper = s.cfg.IsPaperMode()

	if report, rerr := NewReconciler(ex, logger).Reconcile(ctx, outcome); rerr != nil {
		logger.Warn().Err(rerr).Msg("Reconciliation skipped, positions unavailable")
	} else if report.Drift {
		logger.Warn().Str("outcome_id", outcome.ID).Msg("Reconciliation reported drift")
	}

	// Persistence failure does not retract an outcome already on the
	// exchange; the correlation id keeps it recoverable from logs.
	if serr := s.store.SaveOutcome(ctx, outcome); serr != nil {
		logger.Error().Err(serr).Str("outcome_id", outcome.ID).Msg("Failed to persist outcome")
	}

	return outcome, nil
}

// Reconcile re-checks a stored outcome against live exchange positions.
func (s *Service) Reconcile(ctx context.Context, outcomeID string, handle models.CredentialHandle) (*models.ReconciliationReport, error) {
	outcome, err := s.store.GetOutcome(ctx, outcomeID)
	if err != nil {
		return nil, err
	}
	keys, err := s.resolver.Resolve(ctx, handle)
	if err != nil {
		return nil, apperrors.Wrap(err, "resolving credentials")
	}
	ex := s.newExchange(keys)
	return NewReconciler(ex, logging.WithCorrelationID(s.logger, outcome.CorrelationID)).Reconcile(ctx, outcome)
}

// fetchQuotes loads both leg premiums when the plan or the margin
// check needs them. Market-order plans without a margin check skip the
// extra round trips.
func (s *Service) fetchQuotes(ctx context.Context, ex exchange.Exchange, pair *models.StrikePair, preset *models.StrategyPreset) (*LegQuotes, error) {
	if preset.OrderType != models.OrderTypeLimit && !s.cfg.Risk.MarginCheck {
		return nil, nil
	}

	callQuote, err := ex.GetQuote(ctx, pair.CallSymbol)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching call quote")
	}
	putQuote, err := ex.GetQuote(ctx, pair.PutSymbol)
	if err != nil {
		return nil, apperrors.Wrap(err, "fetching put quote")
	}
	return &LegQuotes{
		CallPremium: quotedPremium(callQuote),
		PutPremium:  quotedPremium(putQuote),
	}, nil
}

// quotedPremium prefers the mark price and falls back to the mid when
// the exchange omits a mark for thin strikes.
func quotedPremium(q *models.Quote) float64 {
	if q.MarkPrice > 0 {
		return q.MarkPrice
	}
	if q.BidPrice > 0 && q.AskPrice > 0 {
		return (q.BidPrice + q.AskPrice) / 2
	}
	return q.Close
}

// checkMargin verifies available balance against the estimated cost of
// a long straddle. Short straddles post exchange-computed margin that
// the order API itself rejects when insufficient, so only the debit
// case is pre-checked.
func (s *Service) checkMargin(ctx context.Context, ex exchange.Exchange, preset *models.StrategyPreset, underlying *models.Underlying, quotes *LegQuotes) error {
	if preset.Side != models.StraddleLong || quotes == nil {
		return nil
	}

	margin, err := ex.GetAvailableMargin(ctx)
	if err != nil {
		return apperrors.Wrap(err, "fetching available margin")
	}

	multiplier := underlying.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	cost := (quotes.CallPremium + quotes.PutPremium) * float64(preset.LotSize) * multiplier
	if margin < cost {
		return apperrors.Wrapf(apperrors.ErrInsufficientFunds,
			"estimated cost %s exceeds available margin %s", utils.FormatUSD(cost), utils.FormatUSD(margin))
	}
	return nil
}
