package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID int64
	Meta     map[string]any
	At       time.Time
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditTrail writes one audit_logs row per published domain event.
type AuditTrail struct {
	db execer
}

// NewAuditTrail returns a trail writing through db.
func NewAuditTrail(db execer) *AuditTrail {
	return &AuditTrail{db: db}
}

// Subscribe records every known event.
func (a *AuditTrail) Subscribe(bus *Bus) {
	for _, name := range []string{NameQuotationConverted, NamePurchaseOrderDelivered, NameBillPaid, NamePaymentRecorded} {
		bus.Subscribe(name, a.Handle)
	}
}

// Handle converts the event to an audit entry.
func (a *AuditTrail) Handle(ctx context.Context, evt Event) error {
	log, ok := auditEntry(evt)
	if !ok {
		return nil
	}
	return a.Record(ctx, log)
}

// Record persists the log entry.
func (a *AuditTrail) Record(ctx context.Context, log AuditLog) error {
	if a == nil || a.db == nil {
		return errors.New("audit trail not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == 0 {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	at := log.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err = a.db.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, at)
	if err != nil {
		return fmt.Errorf("audit: %s %s/%d: %w", log.Action, log.Entity, log.EntityID, err)
	}
	return nil
}

func auditEntry(evt Event) (AuditLog, bool) {
	switch e := evt.(type) {
	case QuotationConverted:
		return AuditLog{ActorID: e.ActorID, Action: e.EventName(), Entity: "quotation", EntityID: e.QuotationID, At: e.At,
			Meta: map[string]any{"purchase_order_id": e.PurchaseOrderID, "vendor_id": e.VendorID}}, true
	case PurchaseOrderDelivered:
		return AuditLog{Action: e.EventName(), Entity: "purchase_order", EntityID: e.PurchaseOrderID, At: e.At,
			Meta: map[string]any{"code": e.Code, "vendor_id": e.VendorID, "total_value": e.TotalValue.StringFixed(2)}}, true
	case BillPaid:
		return AuditLog{Action: e.EventName(), Entity: "bill", EntityID: e.BillID, At: e.At,
			Meta: map[string]any{"code": e.Code, "vendor_id": e.VendorID, "total": e.Total.StringFixed(2)}}, true
	case PaymentRecorded:
		return AuditLog{Action: e.EventName(), Entity: string(e.Ledger), EntityID: e.DocumentID, At: e.At,
			Meta: map[string]any{"payment_id": e.PaymentID, "amount": e.Amount.StringFixed(2)}}, true
	}
	return AuditLog{}, false
}
