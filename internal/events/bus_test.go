package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	var calls []string
	bus.Subscribe(NameBillPaid, func(ctx context.Context, evt Event) error {
		calls = append(calls, "first")
		return nil
	})
	bus.Subscribe(NameBillPaid, func(ctx context.Context, evt Event) error {
		paid, ok := evt.(BillPaid)
		require.True(t, ok)
		assert.Equal(t, int64(7), paid.BillID)
		calls = append(calls, "second")
		return nil
	})

	bus.Publish(context.Background(), BillPaid{BillID: 7, Total: decimal.RequireFromString("10.00")})
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestBusSwallowsHandlerFailures(t *testing.T) {
	var buf bytes.Buffer
	bus := NewBus(slog.New(slog.NewTextHandler(&buf, nil)))
	reached := false
	bus.Subscribe(NameQuotationConverted, func(ctx context.Context, evt Event) error {
		return errors.New("link failed")
	})
	bus.Subscribe(NameQuotationConverted, func(ctx context.Context, evt Event) error {
		panic("boom")
	})
	bus.Subscribe(NameQuotationConverted, func(ctx context.Context, evt Event) error {
		reached = true
		return nil
	})

	bus.Publish(context.Background(), QuotationConverted{QuotationID: 1, PurchaseOrderID: 2})
	assert.True(t, reached)
	assert.Contains(t, buf.String(), "link failed")
	assert.Contains(t, buf.String(), "handler panic: boom")
}

func TestBusIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewBus(nil)
	bus.Publish(context.Background(), PaymentRecorded{Ledger: LedgerInvoice}, nil)
}

func TestRecorderCounts(t *testing.T) {
	var rec Recorder
	rec.Publish(context.Background(), BillPaid{}, PaymentRecorded{}, PaymentRecorded{})
	assert.Equal(t, 1, rec.Count(NameBillPaid))
	assert.Equal(t, 2, rec.Count(NamePaymentRecorded))
	assert.Equal(t, 0, rec.Count(NamePurchaseOrderDelivered))
}
