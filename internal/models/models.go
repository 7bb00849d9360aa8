// Package models provides domain models for the straddle trading application.
package models

import "time"

// OrderSide represents the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the closing side for an order side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType represents the type of an order.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OptionType represents the option contract type.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// LegStatus represents the lifecycle state of a single straddle leg.
type LegStatus string

const (
	LegNotSent         LegStatus = "NOT_SENT"
	LegSent            LegStatus = "SENT"
	LegFilled          LegStatus = "FILLED"
	LegPartiallyFilled LegStatus = "PARTIALLY_FILLED"
	LegRejected        LegStatus = "REJECTED"
	LegTimeout         LegStatus = "TIMEOUT"
)

// Terminal returns true if the status is a terminal state.
func (s LegStatus) Terminal() bool {
	switch s {
	case LegFilled, LegPartiallyFilled, LegRejected, LegTimeout:
		return true
	}
	return false
}

// Filled returns true if the leg put contracts on the book.
// A partial fill counts as filled for outcome mapping; the filled
// quantity is reconciled separately.
func (s LegStatus) Filled() bool {
	return s == LegFilled || s == LegPartiallyFilled
}

// OutcomeStatus represents the overall result of a straddle execution.
type OutcomeStatus string

const (
	OutcomeBothFilled   OutcomeStatus = "BOTH_FILLED"
	OutcomeOneLegFilled OutcomeStatus = "ONE_LEG_FILLED"
	OutcomeBothRejected OutcomeStatus = "BOTH_REJECTED"
	OutcomeUnwound      OutcomeStatus = "UNWOUND"
)

// Underlying represents reference data for a tradeable underlying.
type Underlying struct {
	Symbol         string  // BTC, ETH
	TickSize       float64
	LotSize        int     // minimum order granularity in contracts
	Multiplier     float64 // contract value multiplier
	StrikeInterval float64 // exchange strike spacing
	RefreshedAt    time.Time
}

// Position represents an open exchange position.
type Position struct {
	Symbol     string
	Size       int // signed: positive long, negative short
	EntryPrice float64
	MarkPrice  float64
	PnL        float64
}

// APIKeys holds resolved exchange API key material. Values are
// short-lived and must never be logged or persisted.
type APIKeys struct {
	Key    string
	Secret string
}

// CredentialHandle is an opaque reference to stored exchange
// credentials, resolved at execution time.
type CredentialHandle string
