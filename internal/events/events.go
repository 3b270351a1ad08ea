// Package events carries cross-document side effects as explicit domain events.
package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event names.
const (
	NameQuotationConverted     = "quotation.converted"
	NamePurchaseOrderDelivered = "purchase_order.delivered"
	NameBillPaid               = "bill.paid"
	NamePaymentRecorded        = "payment.recorded"
)

// Event is implemented by every domain event.
type Event interface {
	EventName() string
}

// QuotationConverted is published after a purchase order was committed from a
// quotation. The quotation linker moves the quotation to PO_CREATED.
type QuotationConverted struct {
	QuotationID     int64
	PurchaseOrderID int64
	VendorID        int64
	ActorID         int64
	At              time.Time
}

func (QuotationConverted) EventName() string { return NameQuotationConverted }

// PurchaseOrderDelivered is published once per purchase order after it first
// reaches DELIVERED.
type PurchaseOrderDelivered struct {
	PurchaseOrderID int64
	Code            string
	VendorID        int64
	TotalValue      decimal.Decimal
	At              time.Time
}

func (PurchaseOrderDelivered) EventName() string { return NamePurchaseOrderDelivered }

// BillPaid is published when a bill reaches PAID.
type BillPaid struct {
	BillID   int64
	Code     string
	VendorID int64
	Total    decimal.Decimal
	At       time.Time
}

func (BillPaid) EventName() string { return NameBillPaid }

// Ledger identifies which ledger a payment belongs to.
type Ledger string

const (
	LedgerBill    Ledger = "bill"
	LedgerInvoice Ledger = "invoice"
)

// PaymentRecorded is published for every appended payment.
type PaymentRecorded struct {
	Ledger     Ledger
	DocumentID int64
	PaymentID  int64
	Amount     decimal.Decimal
	At         time.Time
}

func (PaymentRecorded) EventName() string { return NamePaymentRecorded }
