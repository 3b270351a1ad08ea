package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestAuditTrailRecordsPublishedEvents(t *testing.T) {
	db := &fakeExecer{}
	bus := NewBus(nil)
	NewAuditTrail(db).Subscribe(bus)

	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	bus.Publish(context.Background(),
		PaymentRecorded{Ledger: LedgerBill, DocumentID: 4, PaymentID: 9, Amount: decimal.RequireFromString("100"), At: at},
		BillPaid{BillID: 4, Code: "BILL-2024-0001", VendorID: 2, Total: decimal.RequireFromString("270"), At: at},
		QuotationConverted{QuotationID: 3, PurchaseOrderID: 11, VendorID: 2, ActorID: 7, At: at},
	)

	require.Len(t, db.calls, 3)
	first := db.calls[0].args
	require.Equal(t, int64(0), first[0])
	require.Equal(t, NamePaymentRecorded, first[1])
	require.Equal(t, "bill", first[2])
	require.Equal(t, int64(4), first[3])
	var meta map[string]any
	require.NoError(t, json.Unmarshal(first[4].([]byte), &meta))
	require.Equal(t, "100.00", meta["amount"])
	require.Equal(t, at, first[5])

	converted := db.calls[2].args
	require.Equal(t, int64(7), converted[0])
	require.Equal(t, "quotation", converted[2])
	require.Equal(t, int64(3), converted[3])
}

func TestAuditTrailRejectsIncompleteEntries(t *testing.T) {
	trail := NewAuditTrail(&fakeExecer{})
	require.Error(t, trail.Record(context.Background(), AuditLog{Action: "x", Entity: "bill"}))

	var nilTrail *AuditTrail
	require.Error(t, nilTrail.Record(context.Background(), AuditLog{Action: "x", Entity: "bill", EntityID: 1}))
}

func TestAuditTrailWrapsDatabaseErrors(t *testing.T) {
	boom := errors.New("connection reset")
	trail := NewAuditTrail(&fakeExecer{err: boom})
	err := trail.Handle(context.Background(), BillPaid{BillID: 1, Total: decimal.Zero})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "bill.paid bill/1")
}
