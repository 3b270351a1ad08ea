package bills

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
)

// DeriveStatus maps paid against total. A bill with nothing paid is pending
// even when its total is zero.
func DeriveStatus(paid, total decimal.Decimal) Status {
	switch {
	case !paid.IsPositive():
		return StatusPending
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	default:
		return StatusPartiallyPaid
	}
}

type Bill struct {
	ID              int64           `json:"id"`
	Code            string          `json:"code"`
	VendorID        int64           `json:"vendorId"`
	PurchaseOrderID *int64          `json:"purchaseOrderId,omitempty"`
	BillDate        time.Time       `json:"billDate"`
	DueDate         *time.Time      `json:"dueDate,omitempty"`
	GroupName       *string         `json:"groupName,omitempty"`
	SubGroupName    *string         `json:"subGroupName,omitempty"`
	ProjectID       *int64          `json:"projectId,omitempty"`
	Status          Status          `json:"status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	Notes           *string         `json:"notes,omitempty"`
	Attachment      *Attachment     `json:"attachment,omitempty"`
	AssignedTo      *int64          `json:"assignedTo,omitempty"`
	CreatedBy       int64           `json:"createdBy"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedBy       *int64          `json:"updatedBy,omitempty"`
	UpdatedAt       time.Time       `json:"updatedAt"`
	DeletedAt       *time.Time      `json:"-"`
	Items           []Item          `json:"items"`
}

// Balance is the amount still owed.
func (b Bill) Balance() decimal.Decimal {
	return b.TotalAmount.Sub(b.PaidAmount)
}

func (b Bill) OwnerID() int64 { return b.CreatedBy }

func (b Bill) AssigneeIDs() []int64 {
	if b.AssignedTo == nil {
		return nil
	}
	return []int64{*b.AssignedTo}
}

type Attachment struct {
	Path        string `json:"path"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Item struct {
	ID          int64           `json:"id"`
	BillID      int64           `json:"billId"`
	LineNo      int             `json:"lineNo"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxPercent  decimal.Decimal `json:"taxPercent"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	TaxAmount   decimal.Decimal `json:"taxAmount"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Payment is append-only.
type Payment struct {
	ID              int64           `json:"id"`
	BillID          int64           `json:"billId"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"paymentDate"`
	PaymentMode     string          `json:"paymentMode"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty"`
	PaidBy          int64           `json:"paidBy"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type ListFilter struct {
	Status          Status
	VendorID        int64
	PurchaseOrderID int64
	GroupName       string
	SubGroupName    string
	ProjectID       int64
	Search          string
	OwnerID         int64
	Page            int
	PerPage         int
}

// StatsFilter scopes statistics.
type StatsFilter struct {
	ProjectID    int64  `json:"projectId,omitempty"`
	GroupName    string `json:"groupName,omitempty"`
	SubGroupName string `json:"subGroupName,omitempty"`
	OwnerID      int64  `json:"-"`
}

// StatsRow is the raw aggregate read from storage.
type StatsRow struct {
	Total       int
	Outstanding decimal.Decimal
	ThisMonth   int
	Paid        int
	LinkedToPO  int
}

// Stats is the dashboard summary.
type Stats struct {
	TotalBills        int             `json:"totalBills"`
	OutstandingAmount decimal.Decimal `json:"outstandingAmount"`
	BillsThisMonth    int             `json:"billsThisMonth"`
	PaidBills         int             `json:"paidBills"`
	LinkedToPOPercent decimal.Decimal `json:"linkedToPoPercent"`
}

// ZeroStats is returned whenever statistics cannot be computed.
func ZeroStats() Stats {
	return Stats{OutstandingAmount: decimal.Zero, LinkedToPOPercent: decimal.Zero}
}

// FromRow derives percentages from a raw aggregate.
func FromRow(r StatsRow) Stats {
	s := Stats{
		TotalBills:        r.Total,
		OutstandingAmount: r.Outstanding.Round(2),
		BillsThisMonth:    r.ThisMonth,
		PaidBills:         r.Paid,
		LinkedToPOPercent: decimal.Zero,
	}
	if r.Total > 0 {
		s.LinkedToPOPercent = decimal.NewFromInt(int64(r.LinkedToPO)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(r.Total))).
			Round(2)
	}
	return s
}
