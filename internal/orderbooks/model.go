// Package orderbooks stores customer order books. Their rows seed purchase
// orders created without a quotation.
package orderbooks

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderBook struct {
	ID               int64           `json:"id"`
	Code             string          `json:"code"`
	CustomerName     string          `json:"customerName"`
	CustomerEmail    *string         `json:"customerEmail,omitempty"`
	OrderDate        time.Time       `json:"orderDate"`
	ExpectedDelivery *time.Time      `json:"expectedDelivery,omitempty"`
	GroupName        *string         `json:"groupName,omitempty"`
	SubGroupName     *string         `json:"subGroupName,omitempty"`
	ProjectID        *int64          `json:"projectId,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
	TaxAmount        decimal.Decimal `json:"taxAmount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	Notes            *string         `json:"notes,omitempty"`
	AssignedTo       *int64          `json:"assignedTo,omitempty"`
	CreatedBy        int64           `json:"createdBy"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	DeletedAt        *time.Time      `json:"-"`
	Items            []Item          `json:"items"`
}

func (o OrderBook) OwnerID() int64 { return o.CreatedBy }

func (o OrderBook) AssigneeIDs() []int64 {
	if o.AssignedTo == nil {
		return nil
	}
	return []int64{*o.AssignedTo}
}

type Item struct {
	ID              int64            `json:"id"`
	OrderBookID     int64            `json:"orderBookId"`
	LineNo          int              `json:"lineNo"`
	ItemName        string           `json:"itemName"`
	Description     *string          `json:"description,omitempty"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unitPrice"`
	TaxPercent      decimal.Decimal  `json:"gstPercent"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	DiscountAmount  decimal.Decimal  `json:"discountAmount"`
	TaxAmount       decimal.Decimal  `json:"taxAmount"`
	LineTotal       decimal.Decimal  `json:"lineTotal"`
}

type ListFilter struct {
	Search    string
	ProjectID int64
	OwnerID   int64
	Page      int
	PerPage   int
}
