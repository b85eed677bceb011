package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// builder renders SQLite statements.
var builder = entsql.Dialect(dialect.SQLite)

// conn implements Querier on top of either the driver or an open
// transaction.
type conn struct {
	ex dialect.ExecQuerier
}

var _ Querier = conn{}

// exec runs a statement and returns the number of affected rows.
func (c conn) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := c.ex.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// each runs a query and calls scan for every row. Rows are closed before
// it returns so the connection is free for the next statement.
func (c conn) each(ctx context.Context, q entsql.Querier, scan func(rows *entsql.Rows) error) error {
	query, args := q.Query()
	var rows entsql.Rows
	if err := c.ex.Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(&rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// scalar runs a query returning a single integer.
func (c conn) scalar(ctx context.Context, q entsql.Querier) (int64, error) {
	var n sql.NullInt64
	err := c.each(ctx, q, func(rows *entsql.Rows) error {
		return rows.Scan(&n)
	})
	return n.Int64, err
}

func qualify(t *entsql.SelectTable, cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = t.C(c)
	}
	return out
}

func encodeStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
