// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Execution outcomes, one row per straddle request
	CREATE TABLE IF NOT EXISTS outcomes (
		id TEXT PRIMARY KEY,
		correlation_id TEXT NOT NULL,
		underlying TEXT NOT NULL,
		strike REAL NOT NULL,
		expiry DATETIME NOT NULL,
		status TEXT NOT NULL,
		needs_review INTEGER NOT NULL DEFAULT 0,
		unwind_order_id TEXT,
		is_paper INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	-- Leg results, two rows per outcome
	CREATE TABLE IF NOT EXISTS outcome_legs (
		outcome_id TEXT NOT NULL,
		option_type TEXT NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		order_type TEXT NOT NULL,
		price REAL NOT NULL,
		client_order_id TEXT NOT NULL,
		status TEXT NOT NULL,
		exchange_order_id TEXT,
		filled_qty INTEGER NOT NULL DEFAULT 0,
		avg_price REAL NOT NULL DEFAULT 0,
		error TEXT,
		PRIMARY KEY (outcome_id, option_type),
		FOREIGN KEY (outcome_id) REFERENCES outcomes(id)
	);

	-- Strategy presets
	CREATE TABLE IF NOT EXISTS presets (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		underlying TEXT NOT NULL,
		lot_size INTEGER NOT NULL,
		side TEXT NOT NULL,
		order_type TEXT NOT NULL,
		limit_offset_pct REAL NOT NULL DEFAULT 0,
		max_lot_size INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Exchange credentials, key material encrypted
	CREATE TABLE IF NOT EXISTS credentials (
		id TEXT PRIMARY KEY,
		label TEXT NOT NULL UNIQUE,
		api_key_enc TEXT NOT NULL,
		api_secret_enc TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_outcomes_created ON outcomes(created_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_underlying ON outcomes(underlying);
	CREATE INDEX IF NOT EXISTS idx_presets_owner ON presets(owner);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveOutcome persists an execution outcome and both legs.
func (s *SQLiteStore) SaveOutcome(ctx context.Context, outcome *models.ExecutionOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO outcomes
		(id, correlation_id, underlying, strike, expiry, status, needs_review, unwind_order_id, is_paper, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.ID, outcome.CorrelationID, outcome.Underlying, outcome.Strike, outcome.Expiry,
		string(outcome.Status), outcome.NeedsReview, outcome.UnwindOrderID, outcome.IsPaper, outcome.CreatedAt)
	if err != nil {
		return apperrors.Wrap(err, "saving outcome")
	}

	for _, leg := range outcome.Legs() {
		_, err = tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO outcome_legs
			(outcome_id, option_type, symbol, side, quantity, order_type, price, client_order_id,
			 status, exchange_order_id, filled_qty, avg_price, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			outcome.ID, string(leg.Order.OptionType), leg.Order.Symbol, string(leg.Order.Side),
			leg.Order.Quantity, string(leg.Order.Type), leg.Order.Price, leg.Order.ClientOrderID,
			string(leg.Status), leg.ExchangeOrderID, leg.FilledQty, leg.AvgPrice, leg.Error)
		if err != nil {
			return apperrors.Wrap(err, "saving leg")
		}
	}

	return tx.Commit()
}

// GetOutcome loads a single outcome with its legs.
func (s *SQLiteStore) GetOutcome(ctx context.Context, id string) (*models.ExecutionOutcome, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, correlation_id, underlying, strike, expiry, status, needs_review, unwind_order_id, is_paper, created_at
		FROM outcomes WHERE id = ?`, id)

	outcome, err := scanOutcome(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "loading outcome")
	}
	if err := s.loadLegs(ctx, outcome); err != nil {
		return nil, err
	}
	return outcome, nil
}

// GetOutcomes queries outcomes matching the filter, newest first.
func (s *SQLiteStore) GetOutcomes(ctx context.Context, filter OutcomeFilter) ([]models.ExecutionOutcome, error) {
	query := `SELECT id, correlation_id, underlying, strike, expiry, status, needs_review, unwind_order_id, is_paper, created_at FROM outcomes WHERE 1=1`
	var args []interface{}

	if filter.Underlying != "" {
		query += " AND underlying = ?"
		args = append(args, strings.ToUpper(filter.Underlying))
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.NeedsReview != nil {
		query += " AND needs_review = ?"
		args = append(args, *filter.NeedsReview)
	}
	if !filter.StartDate.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.EndDate)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying outcomes")
	}
	defer rows.Close()

	var outcomes []models.ExecutionOutcome
	for rows.Next() {
		outcome, err := scanOutcome(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "scanning outcome")
		}
		if err := s.loadLegs(ctx, outcome); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *outcome)
	}
	return outcomes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOutcome(row rowScanner) (*models.ExecutionOutcome, error) {
	var o models.ExecutionOutcome
	var status string
	var unwindID sql.NullString
	if err := row.Scan(&o.ID, &o.CorrelationID, &o.Underlying, &o.Strike, &o.Expiry,
		&status, &o.NeedsReview, &unwindID, &o.IsPaper, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.Status = models.OutcomeStatus(status)
	o.UnwindOrderID = unwindID.String
	return &o, nil
}

func (s *SQLiteStore) loadLegs(ctx context.Context, outcome *models.ExecutionOutcome) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT option_type, symbol, side, quantity, order_type, price, client_order_id,
		       status, exchange_order_id, filled_qty, avg_price, error
		FROM outcome_legs WHERE outcome_id = ?`, outcome.ID)
	if err != nil {
		return apperrors.Wrap(err, "loading legs")
	}
	defer rows.Close()

	for rows.Next() {
		var leg models.LegResult
		var optionType, side, orderType, status string
		var exchangeID, legErr sql.NullString
		if err := rows.Scan(&optionType, &leg.Order.Symbol, &side, &leg.Order.Quantity,
			&orderType, &leg.Order.Price, &leg.Order.ClientOrderID,
			&status, &exchangeID, &leg.FilledQty, &leg.AvgPrice, &legErr); err != nil {
			return apperrors.Wrap(err, "scanning leg")
		}
		leg.Order.OptionType = models.OptionType(optionType)
		leg.Order.Side = models.OrderSide(side)
		leg.Order.Type = models.OrderType(orderType)
		leg.Status = models.LegStatus(status)
		leg.ExchangeOrderID = exchangeID.String
		leg.Error = legErr.String

		if leg.Order.OptionType == models.OptionCall {
			outcome.Call = leg
		} else {
			outcome.Put = leg
		}
	}
	return rows.Err()
}

// SavePreset persists a strategy preset.
func (s *SQLiteStore) SavePreset(ctx context.Context, preset *models.StrategyPreset) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO presets
		(id, owner, name, underlying, lot_size, side, order_type, limit_offset_pct, max_lot_size, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		preset.ID, preset.Owner, preset.Name, preset.Underlying, preset.LotSize,
		string(preset.Side), string(preset.OrderType), preset.LimitOffsetPct, preset.MaxLotSize,
		preset.CreatedAt, preset.UpdatedAt)
	return apperrors.Wrap(err, "saving preset")
}

// GetPreset loads a preset by id.
func (s *SQLiteStore) GetPreset(ctx context.Context, id string) (*models.StrategyPreset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner, name, underlying, lot_size, side, order_type, limit_offset_pct, max_lot_size, created_at, updated_at
		FROM presets WHERE id = ? OR name = ?`, id, id)

	var p models.StrategyPreset
	var side, orderType string
	err := row.Scan(&p.ID, &p.Owner, &p.Name, &p.Underlying, &p.LotSize, &side, &orderType,
		&p.LimitOffsetPct, &p.MaxLotSize, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "loading preset")
	}
	p.Side = models.StraddleSide(side)
	p.OrderType = models.OrderType(orderType)
	return &p, nil
}

// ListPresets lists presets, optionally filtered by owner.
func (s *SQLiteStore) ListPresets(ctx context.Context, owner string) ([]models.StrategyPreset, error) {
	query := `SELECT id, owner, name, underlying, lot_size, side, order_type, limit_offset_pct, max_lot_size, created_at, updated_at FROM presets`
	var args []interface{}
	if owner != "" {
		query += " WHERE owner = ?"
		args = append(args, owner)
	}
	query += " ORDER BY created_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying presets")
	}
	defer rows.Close()

	var presets []models.StrategyPreset
	for rows.Next() {
		var p models.StrategyPreset
		var side, orderType string
		if err := rows.Scan(&p.ID, &p.Owner, &p.Name, &p.Underlying, &p.LotSize, &side, &orderType,
			&p.LimitOffsetPct, &p.MaxLotSize, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, "scanning preset")
		}
		p.Side = models.StraddleSide(side)
		p.OrderType = models.OrderType(orderType)
		presets = append(presets, p)
	}
	return presets, rows.Err()
}

// DeletePreset removes a preset.
func (s *SQLiteStore) DeletePreset(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id)
	return apperrors.Wrap(err, "deleting preset")
}

// SaveCredential persists an encrypted credential.
func (s *SQLiteStore) SaveCredential(ctx context.Context, cred *Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO credentials (id, label, api_key_enc, api_secret_enc, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cred.ID, cred.Label, cred.APIKeyEnc, cred.APISecretEnc, cred.Active, cred.CreatedAt)
	return apperrors.Wrap(err, "saving credential")
}

// GetCredential loads a credential by id or label.
func (s *SQLiteStore) GetCredential(ctx context.Context, id string) (*Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, label, api_key_enc, api_secret_enc, active, created_at
		FROM credentials WHERE id = ? OR label = ?`, id, id)

	var c Credential
	err := row.Scan(&c.ID, &c.Label, &c.APIKeyEnc, &c.APISecretEnc, &c.Active, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrCredentialNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "loading credential")
	}
	return &c, nil
}

// ListCredentials lists stored credentials.
func (s *SQLiteStore) ListCredentials(ctx context.Context) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, api_key_enc, api_secret_enc, active, created_at
		FROM credentials ORDER BY created_at`)
	if err != nil {
		return nil, apperrors.Wrap(err, "querying credentials")
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.ID, &c.Label, &c.APIKeyEnc, &c.APISecretEnc, &c.Active, &c.CreatedAt); err != nil {
			return nil, apperrors.Wrap(err, "scanning credential")
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// RevokeCredential marks a credential inactive.
func (s *SQLiteStore) RevokeCredential(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE credentials SET active = 0 WHERE id = ? OR label = ?`, id, id)
	return apperrors.Wrap(err, "revoking credential")
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
