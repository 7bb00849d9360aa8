// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"straddle-trader/internal/models"
)

// Store defines the interface for data persistence.
type Store interface {
	// Execution outcomes (trade history)
	SaveOutcome(ctx context.Context, outcome *models.ExecutionOutcome) error
	GetOutcome(ctx context.Context, id string) (*models.ExecutionOutcome, error)
	GetOutcomes(ctx context.Context, filter OutcomeFilter) ([]models.ExecutionOutcome, error)

	// Strategy presets
	SavePreset(ctx context.Context, preset *models.StrategyPreset) error
	GetPreset(ctx context.Context, id string) (*models.StrategyPreset, error)
	ListPresets(ctx context.Context, owner string) ([]models.StrategyPreset, error)
	DeletePreset(ctx context.Context, id string) error

	// Exchange credentials (encrypted at rest)
	SaveCredential(ctx context.Context, cred *Credential) error
	GetCredential(ctx context.Context, id string) (*Credential, error)
	ListCredentials(ctx context.Context) ([]Credential, error)
	RevokeCredential(ctx context.Context, id string) error

	// Lifecycle
	Close() error
}

// Credential is a stored exchange credential. Key material is
// encrypted before it reaches the store and decrypted only at
// resolution time.
type Credential struct {
	ID           string
	Label        string
	APIKeyEnc    string
	APISecretEnc string
	Active       bool
	CreatedAt    time.Time
}

// OutcomeFilter represents filters for querying execution outcomes.
type OutcomeFilter struct {
	Underlying  string
	Status      models.OutcomeStatus
	NeedsReview *bool
	StartDate   time.Time
	EndDate     time.Time
	Limit       int
}
