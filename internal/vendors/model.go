package vendors

import (
	"time"

	"github.com/shopspring/decimal"
)

// Vendor is a supplier plus its purchase aggregates. The aggregates are only
// mutated by delivered purchase orders.
type Vendor struct {
	ID                 int64            `json:"id"`
	Name               string           `json:"name"`
	Email              string           `json:"email"`
	Phone              *string          `json:"phone,omitempty"`
	Category           *string          `json:"category,omitempty"`
	GroupName          *string          `json:"groupName,omitempty"`
	SubGroupName       *string          `json:"subGroupName,omitempty"`
	Provisioned        bool             `json:"provisioned"`
	TotalOrders        int              `json:"totalOrders"`
	TotalPurchaseValue decimal.Decimal  `json:"totalPurchaseValue"`
	LastPurchaseAmount *decimal.Decimal `json:"lastPurchaseAmount,omitempty"`
	LastPurchaseDate   *time.Time       `json:"lastPurchaseDate,omitempty"`
	CreatedBy          int64            `json:"createdBy"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// Delivery is the input of the statistics accumulator.
type Delivery struct {
	PurchaseOrderID int64
	VendorID        int64
	TotalValue      decimal.Decimal
	At              time.Time
}

// Accumulate applies one delivery to the in-memory aggregates.
func (v *Vendor) Accumulate(d Delivery) {
	amount := d.TotalValue
	at := d.At
	v.LastPurchaseAmount = &amount
	v.LastPurchaseDate = &at
	v.TotalPurchaseValue = v.TotalPurchaseValue.Add(amount)
	v.TotalOrders++
}

// ListFilter narrows vendor listings.
type ListFilter struct {
	Search   string
	Category string
	Page     int
	PerPage  int
}
