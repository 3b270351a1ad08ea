package purchasing

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusApproved  Status = "APPROVED"
	StatusOrdered   Status = "ORDERED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var chain = map[Status]int{
	StatusDraft:     0,
	StatusApproved:  1,
	StatusOrdered:   2,
	StatusInTransit: 3,
	StatusDelivered: 4,
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Valid() bool {
	_, ok := chain[s]
	return ok || s == StatusCancelled
}

// CanTransition allows forward moves along the chain and cancellation of any
// non-terminal order.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return true
	}
	fr, ok1 := chain[from]
	tr, ok2 := chain[to]
	return ok1 && ok2 && tr > fr
}

type PurchaseOrder struct {
	ID                  int64           `json:"id"`
	Code                string          `json:"code"`
	QuotationID         *int64          `json:"quotationId,omitempty"`
	OrderBookID         *int64          `json:"orderBookId,omitempty"`
	VendorID            int64           `json:"vendorId"`
	RFQID               *string         `json:"rfqId,omitempty"`
	DeliveryTerms       *string         `json:"deliveryTerms,omitempty"`
	PaymentTerms        *string         `json:"paymentTerms,omitempty"`
	Category            *string         `json:"category,omitempty"`
	GroupName           *string         `json:"groupName,omitempty"`
	SubGroupName        *string         `json:"subGroupName,omitempty"`
	ProjectID           *int64          `json:"projectId,omitempty"`
	Status              Status          `json:"status"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	TaxAmount           decimal.Decimal `json:"taxAmount"`
	TotalValue          decimal.Decimal `json:"totalValue"`
	TotalItemsOrdered   decimal.Decimal `json:"totalItemsOrdered"`
	TotalItemsDelivered decimal.Decimal `json:"totalItemsDelivered"`
	ExpectedDelivery    *time.Time      `json:"expectedDelivery,omitempty"`
	DeliveredAt         *time.Time      `json:"deliveredAt,omitempty"`
	ApprovedBy          *int64          `json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time      `json:"approvedAt,omitempty"`
	Notes               *string         `json:"notes,omitempty"`
	AssignedTo          *int64          `json:"assignedTo,omitempty"`
	CreatedBy           int64           `json:"createdBy"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedBy           *int64          `json:"updatedBy,omitempty"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	DeletedAt           *time.Time      `json:"-"`
	Items               []Item          `json:"items"`
}

func (po PurchaseOrder) OwnerID() int64 { return po.CreatedBy }

func (po PurchaseOrder) AssigneeIDs() []int64 {
	if po.AssignedTo == nil {
		return nil
	}
	return []int64{*po.AssignedTo}
}

type Item struct {
	ID              int64            `json:"id"`
	PurchaseOrderID int64            `json:"purchaseOrderId"`
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
	DeliveredQty    decimal.Decimal  `json:"deliveredQty"`
}

// FullyDelivered reports whether the delivered quantity reached the order.
func (it Item) FullyDelivered() bool {
	return it.DeliveredQty.GreaterThanOrEqual(it.Quantity)
}

// RecountItems recomputes the ordered and delivered quantity totals.
func (po *PurchaseOrder) RecountItems() {
	ordered, delivered := decimal.Zero, decimal.Zero
	for _, it := range po.Items {
		ordered = ordered.Add(it.Quantity)
		delivered = delivered.Add(it.DeliveredQty)
	}
	po.TotalItemsOrdered = ordered
	po.TotalItemsDelivered = delivered
}

// AllDelivered reports whether every item is fully delivered.
func (po PurchaseOrder) AllDelivered() bool {
	if len(po.Items) == 0 {
		return false
	}
	for _, it := range po.Items {
		if !it.FullyDelivered() {
			return false
		}
	}
	return true
}

type ListFilter struct {
	Status       Status
	VendorID     int64
	QuotationID  int64
	GroupName    string
	SubGroupName string
	ProjectID    int64
	Search       string
	OwnerID      int64
	Page         int
	PerPage      int
}
