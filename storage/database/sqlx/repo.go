// Package sqlxrepos implements the repositories with hand-written SQL over sqlx.
// Queries use `?` placeholders and are rebound for the engine of the connection.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
)

// conds accumulates the AND-ed conditions of a WHERE clause.
type conds struct {
	clauses []string
	args    []interface{}
}

func (c *conds) add(clause string, args ...interface{}) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, args...)
}

func (c *conds) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// selectIn expands slice arguments of query, rebinds it and scans all rows into dest.
func selectIn(ctx context.Context, db sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return sqlx.SelectContext(ctx, db, dest, db.Rebind(q), args...)
}

func get(ctx context.Context, db sqlx.ExtContext, dest interface{}, query string, args ...interface{}) error {
	return sqlx.GetContext(ctx, db, dest, db.Rebind(query), args...)
}

func exec(ctx context.Context, db sqlx.ExtContext, query string, args ...interface{}) (sql.Result, error) {
	q, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}
	return db.ExecContext(ctx, db.Rebind(q), args...)
}

// affected reports whether res touched at least one row.
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// trapNotFound maps sql.ErrNoRows to notFound.
func trapNotFound(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// likePattern returns a case-insensitive LIKE pattern for s, portable across Postgres and SQLite.
func likePattern(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

func validIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if core.IsValidID(id) {
			valid = append(valid, id)
		}
	}
	return valid
}

// withTx runs fn in a transaction, rolled back when fn fails.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
