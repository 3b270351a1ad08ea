package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	Description     string           `json:"description" validate:"required,max=500"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice       *decimal.Decimal `json:"unitPrice,omitempty"`
	TaxPercent      *decimal.Decimal `json:"taxPercent,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
}

type CreateRequest struct {
	CustomerName  string        `json:"customerName" validate:"required,max=200"`
	CustomerEmail *string       `json:"customerEmail,omitempty" validate:"omitempty,email"`
	OrderBookID   *int64        `json:"orderBookId,omitempty" validate:"omitempty,gt=0"`
	InvoiceDate   *time.Time    `json:"invoiceDate,omitempty"`
	DueDate       *time.Time    `json:"dueDate,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
	AssignedTo    *int64        `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type PaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    *time.Time      `json:"paymentDate,omitempty"`
	PaymentMethod  string          `json:"paymentMethod" validate:"required,max=50"`
	TransactionRef *string         `json:"transactionRef,omitempty" validate:"omitempty,max=100"`
	Notes          *string         `json:"notes,omitempty"`
}
