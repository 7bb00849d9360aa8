package trading

import (
	"math"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/models"
	"straddle-trader/pkg/utils"
)

// LegQuotes carries current option premiums, required when planning
// limit orders.
type LegQuotes struct {
	CallPremium float64
	PutPremium  float64
}

// PlanStraddle turns a strike pair and a strategy preset into the two
// concrete leg orders. Each leg gets a deterministic client order id
// derived from the request correlation id ("<corrID>-C", "<corrID>-P"),
// so resubmitting the same plan can never create duplicate exchange
// orders. No network calls are made.
func PlanStraddle(pair *models.StrikePair, preset *models.StrategyPreset, underlying *models.Underlying, corrID string, quotes *LegQuotes) ([2]models.LegOrder, error) {
	var none [2]models.LegOrder

	if preset.LotSize <= 0 {
		return none, apperrors.NewValidationError("lot_size", preset.LotSize,
			"lot size must be positive", apperrors.ErrInvalidLotSize)
	}
	if !utils.IsLotMultiple(preset.LotSize, underlying.LotSize) {
		return none, apperrors.NewValidationError("lot_size", preset.LotSize,
			"lot size must be a multiple of the contract lot granularity", apperrors.ErrInvalidLotSize)
	}
	if preset.MaxLotSize > 0 && preset.LotSize > preset.MaxLotSize {
		return none, apperrors.NewValidationError("lot_size", preset.LotSize,
			"lot size exceeds preset risk limit", apperrors.ErrRiskLimitExceeded)
	}

	side := preset.Side.LegSide()

	call := models.LegOrder{
		Symbol:        pair.CallSymbol,
		OptionType:    models.OptionCall,
		Side:          side,
		Quantity:      preset.LotSize,
		Type:          preset.OrderType,
		ClientOrderID: corrID + "-C",
	}
	put := models.LegOrder{
		Symbol:        pair.PutSymbol,
		OptionType:    models.OptionPut,
		Side:          side,
		Quantity:      preset.LotSize,
		Type:          preset.OrderType,
		ClientOrderID: corrID + "-P",
	}

	if preset.OrderType == models.OrderTypeLimit {
		if quotes == nil || quotes.CallPremium <= 0 || quotes.PutPremium <= 0 {
			return none, apperrors.NewDataError("premium", pair.CallSymbol,
				"premiums required for limit orders", apperrors.ErrDataUnavailable)
		}
		call.Price = limitPrice(quotes.CallPremium, preset.LimitOffsetPct, side, underlying.TickSize)
		put.Price = limitPrice(quotes.PutPremium, preset.LimitOffsetPct, side, underlying.TickSize)
	}

	return [2]models.LegOrder{call, put}, nil
}

// limitPrice applies the preset's price tolerance around the current
// premium: above for buys, below for sells, rounded to tick size.
func limitPrice(premium, offsetPct float64, side models.OrderSide, tickSize float64) float64 {
	price := premium * (1 + offsetPct)
	if side == models.OrderSideSell {
		price = premium * (1 - offsetPct)
	}
	if tickSize > 0 {
		price = math.Round(price/tickSize) * tickSize
	}
	return price
}
