package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// Every event table draws its sequence number from one shared counter so
// watch, response and LLM events can be ordered against each other in
// request-arrival order.
//
// The counter is a single-row table maintained with raw SQL because the
// increment has to happen with UPDATE ... RETURNING in the caller's
// transaction.

// initSequence ensures the counter table exists and is seeded.
func initSequence(ctx context.Context, ex dialect.ExecQuerier) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + sequenceTable + ` (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			next_val INTEGER NOT NULL DEFAULT 1
		)`,
		`INSERT OR IGNORE INTO ` + sequenceTable + ` (id, next_val) VALUES (1, 1)`,
	}
	for _, s := range stmts {
		if err := ex.Exec(ctx, s, []any{}, nil); err != nil {
			return fmt.Errorf("init sequence: %w", err)
		}
	}
	return nil
}

// nextSequence atomically returns the next sequence number and increments
// the counter. Run it on the same connection or transaction that writes the
// event.
func nextSequence(ctx context.Context, ex dialect.ExecQuerier) (int64, error) {
	var rows entsql.Rows
	err := ex.Query(ctx,
		`UPDATE `+sequenceTable+` SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
		[]any{}, &rows)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer rows.Close()

	var seq int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, fmt.Errorf("next sequence: %w", err)
		}
		return 0, fmt.Errorf("next sequence: counter row missing")
	}
	if err := rows.Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
