package models

import "time"

// OptionChainSnapshot represents the option chain for an underlying at
// a single expiry, immutable once fetched. A trade request always works
// from a fresh snapshot.
type OptionChainSnapshot struct {
	Underlying string
	Expiry     time.Time
	FetchedAt  time.Time
	Strikes    []ChainStrike // sorted ascending by strike
}

// ChainStrike represents one strike row of an option chain.
type ChainStrike struct {
	Strike     float64
	CallSymbol string
	PutSymbol  string
}

// StrikePair represents the selected ATM call/put instrument pair.
// Derived per request, never persisted beyond the request lifecycle.
type StrikePair struct {
	Underlying string
	Expiry     time.Time
	Strike     float64
	CallSymbol string
	PutSymbol  string
}

// Quote represents a market quote for a single instrument.
type Quote struct {
	Symbol    string
	MarkPrice float64
	BidPrice  float64
	AskPrice  float64
	Close     float64
	Timestamp time.Time
}
