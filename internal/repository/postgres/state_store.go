package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/vivero-po/internal/domain"
	"github.com/andresuchdata/vivero-po/internal/state"
)

const schema = `
	CREATE TABLE IF NOT EXISTS planning_state (
		id         SMALLINT PRIMARY KEY DEFAULT 1,
		version    INTEGER NOT NULL,
		last_week  INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS article_states (
		code           TEXT PRIMARY KEY,
		stock          DOUBLE PRECISION NOT NULL,
		last_week      INTEGER NOT NULL,
		last_order     INTEGER NOT NULL,
		total_ordered  DOUBLE PRECISION NOT NULL,
		total_sold     DOUBLE PRECISION NOT NULL,
		total_received DOUBLE PRECISION NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS execution_records (
		id         TEXT PRIMARY KEY,
		week       INTEGER NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		success    BOOLEAN NOT NULL,
		payload    JSONB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_execution_records_started_at ON execution_records (started_at);
`

type articleStateRow struct {
	Code          string    `db:"code"`
	Stock         float64   `db:"stock"`
	LastWeek      int       `db:"last_week"`
	LastOrder     int       `db:"last_order"`
	TotalOrdered  float64   `db:"total_ordered"`
	TotalSold     float64   `db:"total_sold"`
	TotalReceived float64   `db:"total_received"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type metaRow struct {
	Version   int       `db:"version"`
	LastWeek  int       `db:"last_week"`
	UpdatedAt time.Time `db:"updated_at"`
}

// StateStore keeps the planning state in PostgreSQL. It implements
// state.Store.
type StateStore struct {
	db *DB
}

var _ state.Store = (*StateStore)(nil)

// NewStateStore creates the tables when missing.
func NewStateStore(ctx context.Context, db *DB) (*StateStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create state schema: %w", err)
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) Load(ctx context.Context) (*state.Snapshot, error) {
	snap := state.NewSnapshot()

	var meta metaRow
	err := s.db.GetContext(ctx, &meta, `SELECT version, last_week, updated_at FROM planning_state WHERE id = 1`)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to load planning state: %w", err)
	default:
		snap.Version = meta.Version
		snap.LastWeek = meta.LastWeek
		snap.UpdatedAt = meta.UpdatedAt
	}

	var rows []articleStateRow
	query := `
		SELECT code, stock, last_week, last_order, total_ordered,
		       total_sold, total_received, updated_at
		FROM article_states
		ORDER BY code
	`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load article states: %w", err)
	}
	for _, r := range rows {
		snap.Articles[r.Code] = domain.ArticleState{
			Code:          r.Code,
			Stock:         r.Stock,
			LastWeek:      r.LastWeek,
			LastOrder:     r.LastOrder,
			TotalOrdered:  r.TotalOrdered,
			TotalSold:     r.TotalSold,
			TotalReceived: r.TotalReceived,
			UpdatedAt:     r.UpdatedAt,
		}
	}

	var payloads [][]byte
	if err := s.db.SelectContext(ctx, &payloads, `SELECT payload FROM execution_records ORDER BY started_at, id`); err != nil {
		return nil, fmt.Errorf("failed to load execution history: %w", err)
	}
	for _, p := range payloads {
		var rec domain.ExecutionRecord
		if err := json.Unmarshal(p, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode execution record: %w", err)
		}
		snap.Executions = append(snap.Executions, rec)
	}

	return snap, nil
}

// Save replaces the article positions and metadata in one transaction.
// Execution records already stored are kept as they are.
func (s *StateStore) Save(ctx context.Context, snap *state.Snapshot) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// 1. Metadata
		_, err := tx.ExecContext(ctx, `
			INSERT INTO planning_state (id, version, last_week, updated_at)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				version = EXCLUDED.version,
				last_week = EXCLUDED.last_week,
				updated_at = EXCLUDED.updated_at
		`, snap.Version, snap.LastWeek, snap.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to save planning state: %w", err)
		}

		// 2. Article positions
		if _, err := tx.ExecContext(ctx, `DELETE FROM article_states`); err != nil {
			return fmt.Errorf("failed to clear article states: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO article_states (
				code, stock, last_week, last_order, total_ordered,
				total_sold, total_received, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, code := range snap.Codes() {
			st := snap.Articles[code]
			_, err := stmt.ExecContext(ctx,
				code, st.Stock, st.LastWeek, st.LastOrder, st.TotalOrdered,
				st.TotalSold, st.TotalReceived, st.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to save article %s: %w", code, err)
			}
		}

		// 3. History
		for _, rec := range snap.Executions {
			if err := insertExecution(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *StateStore) AppendExecution(ctx context.Context, record domain.ExecutionRecord) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return insertExecution(ctx, tx, record)
	})
}

func insertExecution(ctx context.Context, tx *sql.Tx, rec domain.ExecutionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode execution record: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO execution_records (id, week, started_at, success, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.Week, rec.StartedAt, rec.Success, payload)
	if err != nil {
		return fmt.Errorf("failed to save execution record %s: %w", rec.ID, err)
	}
	return nil
}

// Reset removes every row of the three tables.
func (s *StateStore) Reset(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"article_states", "execution_records", "planning_state"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *StateStore) Close() error {
	return s.db.Close()
}
