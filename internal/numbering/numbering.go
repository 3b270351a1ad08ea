// Package numbering reserves year-scoped document codes such as BILL-2025-0007.
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/odyssey-erp/backoffice/internal/platform/db"
)

// DocType enumerates numbered document kinds.
type DocType string

const (
	Bill          DocType = "BILL"
	PurchaseOrder DocType = "PO"
	Quotation     DocType = "QUO"
	Invoice       DocType = "INV"
	OrderBook     DocType = "ORD"
)

type docSpec struct {
	width int
	table string
}

var specs = map[DocType]docSpec{
	Bill:          {width: 4, table: "bills"},
	PurchaseOrder: {width: 3, table: "purchase_orders"},
	Quotation:     {width: 3, table: "quotations"},
	Invoice:       {width: 4, table: "invoices"},
	OrderBook:     {width: 4, table: "order_books"},
}

// Prefix returns the code prefix for a type and year, e.g. "PO-2024-".
func Prefix(t DocType, year int) string {
	return fmt.Sprintf("%s-%d-", t, year)
}

// Format renders a sequence with the type's minimum zero padding. Sequences
// wider than the padding are rendered in full.
func Format(t DocType, year, seq int) string {
	width := specs[t].width
	if width == 0 {
		width = 4
	}
	return fmt.Sprintf("%s%0*d", Prefix(t, year), width, seq)
}

// ParseSequence extracts the trailing sequence from a code.
func ParseSequence(code string) (int, bool) {
	idx := strings.LastIndexByte(code, '-')
	if idx < 0 || idx == len(code)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(code[idx+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// MaxSequence returns the largest sequence among codes carrying the prefix.
func MaxSequence(t DocType, year int, codes []string) int {
	prefix := Prefix(t, year)
	max := 0
	for _, c := range codes {
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		if n, ok := ParseSequence(c); ok && n > max {
			max = n
		}
	}
	return max
}

// NextFromCodes is the pure form of the numbering rule: largest existing
// sequence for this year's prefix, plus one.
func NextFromCodes(t DocType, year int, codes []string) string {
	return Format(t, year, MaxSequence(t, year, codes)+1)
}

// Generator reserves codes inside the caller's transaction.
type Generator interface {
	Next(ctx context.Context, q db.Querier, t DocType, year int) (string, error)
}

// Service reserves codes through the document_sequences counter row. The row is
// seeded from the largest code already stored in the document table, so the
// counter continues legacy numbering. The upsert takes a row lock that
// serialises concurrent creators until their transaction ends.
type Service struct{}

// NewService constructs the numbering service.
func NewService() *Service {
	return &Service{}
}

// Next reserves and returns the next code.
func (s *Service) Next(ctx context.Context, q db.Querier, t DocType, year int) (string, error) {
	spec, ok := specs[t]
	if !ok {
		return "", fmt.Errorf("numbering: unknown document type %q", t)
	}
	prefix := Prefix(t, year)
	// table name comes from the closed specs map, never from input
	seed := fmt.Sprintf(`SELECT COALESCE(MAX(CAST(SUBSTRING(code FROM %d) AS INTEGER)), 0) FROM %s WHERE code LIKE $3 || '%%'`,
		len(prefix)+1, spec.table)
	query := `
		INSERT INTO document_sequences (doc_type, year, seq)
		VALUES ($1, $2, (` + seed + `) + 1)
		ON CONFLICT (doc_type, year)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`
	var seq int
	if err := q.QueryRow(ctx, query, string(t), year, prefix).Scan(&seq); err != nil {
		return "", fmt.Errorf("numbering: reserve %s: %w", prefix, err)
	}
	return Format(t, year, seq), nil
}

// Sequencer is an in-process Generator backed by a counter map. It backs the
// in-memory repositories used in tests and tools.
type Sequencer struct {
	counters map[string]int
}

// NewSequencer constructs an empty in-memory sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{counters: make(map[string]int)}
}

// Seed starts the counter for a type/year after the largest of codes.
func (s *Sequencer) Seed(t DocType, year int, codes []string) {
	s.counters[Prefix(t, year)] = MaxSequence(t, year, codes)
}

// Next reserves the next code; q is ignored.
func (s *Sequencer) Next(_ context.Context, _ db.Querier, t DocType, year int) (string, error) {
	key := Prefix(t, year)
	s.counters[key]++
	return Format(t, year, s.counters[key]), nil
}
