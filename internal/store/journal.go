package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Nav1212/ProbabilityMarketWebsockets/internal/strategy"
)

// journalSchema creates the journal tables on startup. Prices and sizes
// are stored as numeric to keep decimal exactness end to end.
const journalSchema = `
CREATE TABLE IF NOT EXISTS sized_intents (
	id         BIGSERIAL PRIMARY KEY,
	reason     TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS intent_legs (
	id        BIGSERIAL PRIMARY KEY,
	intent_id BIGINT  NOT NULL REFERENCES sized_intents(id),
	platform  TEXT    NOT NULL,
	market_id TEXT    NOT NULL,
	side      TEXT    NOT NULL,
	price     NUMERIC NOT NULL,
	size      NUMERIC NOT NULL
);
`

const (
	insertIntentSQL = `INSERT INTO sized_intents (reason) VALUES ($1) RETURNING id`
	insertLegSQL    = `INSERT INTO intent_legs (intent_id, platform, market_id, side, price, size)
VALUES ($1, $2, $3, $4, $5, $6)`
)

// JournalDB is the subset of pgxpool.Pool the Journal uses.
type JournalDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Journal appends every approved sized intent and its legs to Postgres for
// post-trade analysis. It is an intent sink for the trader; each intent is
// written in one transaction so a journal row never has missing legs.
type Journal struct {
	db JournalDB
}

// NewJournal creates a Journal and ensures the schema exists.
func NewJournal(ctx context.Context, db JournalDB) (*Journal, error) {
	if _, err := db.Exec(ctx, journalSchema); err != nil {
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record writes the intent and its legs transactionally.
func (j *Journal) Record(ctx context.Context, intent strategy.SizedIntent) error {
	tx, err := j.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var intentID int64
	if err := tx.QueryRow(ctx, insertIntentSQL, intent.Reason).Scan(&intentID); err != nil {
		return fmt.Errorf("journal: insert intent: %w", err)
	}

	for _, leg := range intent.Legs {
		_, err := tx.Exec(ctx, insertLegSQL,
			intentID, string(leg.Platform), leg.MarketID, leg.Side.String(),
			leg.Price, leg.Size)
		if err != nil {
			return fmt.Errorf("journal: insert leg %s %s: %w", leg.Platform, leg.MarketID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("journal: commit: %w", err)
	}
	return nil
}
