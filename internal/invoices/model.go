package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusSent          Status = "SENT"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
)

// statusAfterPayment keeps the current status while nothing is paid.
func statusAfterPayment(current Status, paid, total decimal.Decimal) Status {
	switch {
	case !paid.IsPositive():
		return current
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

type Invoice struct {
	ID             int64           `json:"id"`
	Code           string          `json:"code"`
	CustomerName   string          `json:"customerName"`
	CustomerEmail  *string         `json:"customerEmail,omitempty"`
	OrderBookID    *int64          `json:"orderBookId,omitempty"`
	InvoiceDate    time.Time       `json:"invoiceDate"`
	DueDate        *time.Time      `json:"dueDate,omitempty"`
	Status         Status          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
	SentAt         *time.Time      `json:"sentAt,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	AssignedTo     *int64          `json:"assignedTo,omitempty"`
	CreatedBy      int64           `json:"createdBy"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedBy      *int64          `json:"updatedBy,omitempty"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	DeletedAt      *time.Time      `json:"-"`
	Items          []Item          `json:"items"`
}

func (i Invoice) Balance() decimal.Decimal {
	return i.TotalAmount.Sub(i.PaidAmount)
}

func (i Invoice) OwnerID() int64 { return i.CreatedBy }

func (i Invoice) AssigneeIDs() []int64 {
	if i.AssignedTo == nil {
		return nil
	}
	return []int64{*i.AssignedTo}
}

type Item struct {
	ID              int64            `json:"id"`
	InvoiceID       int64            `json:"invoiceId"`
	LineNo          int              `json:"lineNo"`
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unitPrice"`
	TaxPercent      decimal.Decimal  `json:"taxPercent"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	TaxAmount       decimal.Decimal  `json:"taxAmount"`
	LineTotal       decimal.Decimal  `json:"lineTotal"`
}

// PaymentHistory is one append-only receipt against an invoice.
type PaymentHistory struct {
	ID             int64           `json:"id"`
	InvoiceID      int64           `json:"invoiceId"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    time.Time       `json:"paymentDate"`
	PaymentMethod  string          `json:"paymentMethod"`
	TransactionRef *string         `json:"transactionRef,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	RecordedBy     int64           `json:"recordedBy"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type ListFilter struct {
	Status  Status
	Search  string
	OwnerID int64
	Page    int
	PerPage int
}
