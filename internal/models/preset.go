package models

import "time"

// StraddleSide represents the direction of a straddle strategy.
type StraddleSide string

const (
	StraddleLong  StraddleSide = "LONG"  // buy call + buy put
	StraddleShort StraddleSide = "SHORT" // sell call + sell put
)

// LegSide returns the order side for each leg of the straddle.
func (s StraddleSide) LegSide() OrderSide {
	if s == StraddleShort {
		return OrderSideSell
	}
	return OrderSideBuy
}

// StrategyPreset is a reusable straddle configuration owned by a user.
// Created and edited outside the core; read-only during execution.
type StrategyPreset struct {
	ID             string
	Owner          string
	Name           string
	Underlying     string
	LotSize        int // requested size in contracts
	Side           StraddleSide
	OrderType      OrderType
	LimitOffsetPct float64 // limit price tolerance around current premium
	MaxLotSize     int     // risk limit, 0 disables the cap
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
