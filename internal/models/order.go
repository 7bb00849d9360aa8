package models

import "time"

// LegOrder represents one leg of a straddle as a concrete order
// request. ClientOrderID is the idempotency key: resubmitting the same
// LegOrder must never create a second exchange order.
type LegOrder struct {
	Symbol        string
	OptionType    OptionType
	Side          OrderSide
	Quantity      int
	Type          OrderType
	Price         float64 // 0 for market orders
	ClientOrderID string
	ReduceOnly    bool
}

// LegResult represents the terminal record of a leg submission.
type LegResult struct {
	Order           LegOrder
	Status          LegStatus
	ExchangeOrderID string
	FilledQty       int
	AvgPrice        float64
	Error           string
}

// ExecutionOutcome is the single durable artifact of a straddle
// execution. Status is derived from the two leg statuses, never set
// independently; immutable once finalized.
type ExecutionOutcome struct {
	ID            string
	CorrelationID string
	Underlying    string
	Strike        float64
	Expiry        time.Time
	Call          LegResult
	Put           LegResult
	Status        OutcomeStatus
	NeedsReview   bool   // set when an unwind was required but failed
	UnwindOrderID string // exchange order id of the corrective close, if any
	IsPaper       bool
	CreatedAt     time.Time
}

// Legs returns both leg results, call first.
func (o *ExecutionOutcome) Legs() [2]LegResult {
	return [2]LegResult{o.Call, o.Put}
}

// ReconciliationReport compares recorded fills against the exchange's
// authoritative position view.
type ReconciliationReport struct {
	OutcomeID string
	CheckedAt time.Time
	Entries   []ReconciliationEntry
	Drift     bool
}

// ReconciliationEntry is the per-instrument comparison row.
type ReconciliationEntry struct {
	Symbol      string
	RecordedQty int // signed expected book delta from the outcome
	ExchangeQty int // signed position reported by the exchange
	Drift       bool
}
