package numbering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPadding(t *testing.T) {
	assert.Equal(t, "BILL-2025-0007", Format(Bill, 2025, 7))
	assert.Equal(t, "PO-2024-003", Format(PurchaseOrder, 2024, 3))
	assert.Equal(t, "QUO-2024-003", Format(Quotation, 2024, 3))
	assert.Equal(t, "INV-2025-0004", Format(Invoice, 2025, 4))
	assert.Equal(t, "ORD-2025-0004", Format(OrderBook, 2025, 4))
	assert.Equal(t, "PO-2024-1000", Format(PurchaseOrder, 2024, 1000))
}

func TestParseSequence(t *testing.T) {
	n, ok := ParseSequence("BILL-2025-0042")
	require.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = ParseSequence("BILL-2025-")
	assert.False(t, ok)
	_, ok = ParseSequence("garbage")
	assert.False(t, ok)
	_, ok = ParseSequence("BILL-2025-00x1")
	assert.False(t, ok)
}

func TestNextFromCodesUsesLargestOfYear(t *testing.T) {
	codes := []string{"PO-2024-001", "PO-2024-010", "PO-2023-099", "QUO-2024-500", "PO-2024-bad"}
	assert.Equal(t, "PO-2024-011", NextFromCodes(PurchaseOrder, 2024, codes))
	assert.Equal(t, "PO-2025-001", NextFromCodes(PurchaseOrder, 2025, codes))
	assert.Equal(t, "BILL-2024-0001", NextFromCodes(Bill, 2024, nil))
}

func TestSequencerStrictlyIncreasing(t *testing.T) {
	s := NewSequencer()
	s.Seed(Bill, 2025, []string{"BILL-2025-0006"})

	seen := map[string]bool{}
	prev := 6
	for i := 0; i < 25; i++ {
		code, err := s.Next(context.Background(), nil, Bill, 2025)
		require.NoError(t, err)
		require.False(t, seen[code], "duplicate %s", code)
		seen[code] = true
		n, ok := ParseSequence(code)
		require.True(t, ok)
		require.Greater(t, n, prev)
		prev = n
	}
	assert.True(t, seen["BILL-2025-0007"])
}

func TestServiceRejectsUnknownType(t *testing.T) {
	_, err := NewService().Next(context.Background(), nil, DocType("XX"), 2025)
	require.Error(t, err)
}
