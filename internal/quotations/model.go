package quotations

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew         Status = "NEW"
	StatusShortlisted Status = "SHORTLISTED"
	StatusApproved    Status = "APPROVED"
	StatusPOCreated   Status = "PO_CREATED"
	StatusRejected    Status = "REJECTED"
	StatusExpired     Status = "EXPIRED"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusPOCreated || s == StatusRejected || s == StatusExpired
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusShortlisted, StatusApproved, StatusPOCreated, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// CanTransition encodes the manual transitions. PO_CREATED is reached only by
// linking and EXPIRED only by the sweep.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusShortlisted:
		return from == StatusNew
	case StatusApproved:
		return from == StatusShortlisted
	case StatusRejected:
		return !from.Terminal()
	}
	return false
}

type Quotation struct {
	ID              int64            `json:"id"`
	Code            string           `json:"code"`
	RFQID           *string          `json:"rfqId,omitempty"`
	VendorID        *int64           `json:"vendorId,omitempty"`
	VendorName      *string          `json:"vendorName,omitempty"`
	VendorEmail     *string          `json:"vendorEmail,omitempty"`
	VendorPhone     *string          `json:"vendorPhone,omitempty"`
	Category        *string          `json:"category,omitempty"`
	DeliveryTerms   *string          `json:"deliveryTerms,omitempty"`
	PaymentTerms    *string          `json:"paymentTerms,omitempty"`
	GroupName       *string          `json:"groupName,omitempty"`
	SubGroupName    *string          `json:"subGroupName,omitempty"`
	ProjectID       *int64           `json:"projectId,omitempty"`
	Status          Status           `json:"status"`
	ValidTill       *time.Time       `json:"validTill,omitempty"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	TaxAmount       decimal.Decimal  `json:"taxAmount"`
	TotalAmount     decimal.Decimal  `json:"totalAmount"`
	POID            *int64           `json:"poId,omitempty"`
	ApprovedBy      *int64           `json:"approvedBy,omitempty"`
	ApprovedAt      *time.Time       `json:"approvedAt,omitempty"`
	RejectionReason *string          `json:"rejectionReason,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	AssignedTo      *int64           `json:"assignedTo,omitempty"`
	CreatedBy       int64            `json:"createdBy"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedBy       *int64           `json:"updatedBy,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	DeletedAt       *time.Time       `json:"-"`
	Items           []Item           `json:"items"`
}

func (q Quotation) OwnerID() int64 { return q.CreatedBy }

func (q Quotation) AssigneeIDs() []int64 {
	if q.AssignedTo == nil {
		return nil
	}
	return []int64{*q.AssignedTo}
}

type Item struct {
	ID              int64            `json:"id"`
	QuotationID     int64            `json:"quotationId"`
	LineNo          int              `json:"lineNo"`
	ItemName        string           `json:"itemName"`
	Description     *string          `json:"description,omitempty"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unitPrice"`
	TaxPercent      decimal.Decimal  `json:"taxPercent"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	TaxAmount       decimal.Decimal  `json:"taxAmount"`
	LineTotal       decimal.Decimal  `json:"lineTotal"`
}

type ListFilter struct {
	Status       Status
	VendorID     int64
	GroupName    string
	SubGroupName string
	ProjectID    int64
	Search       string
	OwnerID      int64
	Page         int
	PerPage      int
}
