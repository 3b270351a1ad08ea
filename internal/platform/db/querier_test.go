package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveAlwaysFiltersDeletedRows(t *testing.T) {
	w := Live("b")
	require.Equal(t, "WHERE b.deleted_at IS NULL", w.SQL())
	require.Empty(t, w.Args())
	require.Equal(t, 1, w.Next())
}

func TestWhereNumbersPlaceholders(t *testing.T) {
	w := Live("q").
		Add("q.status = ?", "NEW").
		AddIf(false, "q.vendor_id = ?", int64(9)).
		AddIf(true, "q.project_id = ?", int64(3)).
		Raw("q.po_id IS NULL")

	assert.Equal(t, "WHERE q.deleted_at IS NULL AND q.status = $1 AND q.project_id = $2 AND q.po_id IS NULL", w.SQL())
	assert.Equal(t, []any{"NEW", int64(3)}, w.Args())
	assert.Equal(t, 3, w.Next())
}

func TestLiveWithoutAlias(t *testing.T) {
	assert.Equal(t, "WHERE deleted_at IS NULL", Live("").SQL())
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert bill: %w", dup)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}

func TestIsUniqueViolationOn(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "purchase_orders_quotation_live_uq"}
	assert.True(t, IsUniqueViolationOn(fmt.Errorf("insert: %w", dup), "purchase_orders_quotation_live_uq"))
	assert.False(t, IsUniqueViolationOn(dup, "purchase_orders_code_key"))
	assert.False(t, IsUniqueViolationOn(&pgconn.PgError{Code: "23503", ConstraintName: "purchase_orders_quotation_live_uq"}, "purchase_orders_quotation_live_uq"))
}

func TestWhereReusesPlaceholderWithinCondition(t *testing.T) {
	w := Live("v").Add("(v.name ILIKE ? OR v.email ILIKE ?)", "%acme%")
	assert.Equal(t, "WHERE v.deleted_at IS NULL AND (v.name ILIKE $1 OR v.email ILIKE $1)", w.SQL())
	assert.Len(t, w.Args(), 1)
}
