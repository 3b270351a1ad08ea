package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx so repositories can run the
// same statements inside or outside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return false
}

// IsUniqueViolationOn narrows IsUniqueViolation to one named constraint or
// unique index.
func IsUniqueViolationOn(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation && pgErr.ConstraintName == constraint
	}
	return false
}

// Where builds a parameterised WHERE clause for soft-deletable tables. Every
// builder starts with the liveness predicate, so finders never see rows whose
// deleted_at is set.
type Where struct {
	conditions []string
	args       []any
}

// Live returns a builder scoped to live rows of the given table alias.
func Live(alias string) *Where {
	col := "deleted_at"
	if alias != "" {
		col = alias + ".deleted_at"
	}
	return &Where{conditions: []string{col + " IS NULL"}}
}

// Add appends a condition; every "?" in cond binds to the same next $n.
func (w *Where) Add(cond string, arg any) *Where {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
	return w
}

// AddIf appends the condition only when ok is true.
func (w *Where) AddIf(ok bool, cond string, arg any) *Where {
	if ok {
		return w.Add(cond, arg)
	}
	return w
}

// Raw appends a condition that takes no argument.
func (w *Where) Raw(cond string) *Where {
	w.conditions = append(w.conditions, cond)
	return w
}

// SQL renders the clause including the WHERE keyword.
func (w *Where) SQL() string {
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// Args returns the bound arguments.
func (w *Where) Args() []any {
	return append([]any(nil), w.args...)
}

// Next returns the next placeholder index, used for LIMIT/OFFSET.
func (w *Where) Next() int {
	return len(w.args) + 1
}
