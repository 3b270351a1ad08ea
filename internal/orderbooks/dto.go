package orderbooks

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	ItemName        string           `json:"itemName" validate:"required,max=255"`
	Description     *string          `json:"description,omitempty"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice       *decimal.Decimal `json:"unitPrice,omitempty"`
	TaxPercent      *decimal.Decimal `json:"gstPercent,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
}

type CreateRequest struct {
	CustomerName     string        `json:"customerName" validate:"required,max=200"`
	CustomerEmail    *string       `json:"customerEmail,omitempty" validate:"omitempty,email"`
	OrderDate        *time.Time    `json:"orderDate,omitempty"`
	ExpectedDelivery *time.Time    `json:"expectedDelivery,omitempty"`
	GroupName        *string       `json:"groupName,omitempty"`
	SubGroupName     *string       `json:"subGroupName,omitempty"`
	ProjectID        *int64        `json:"projectId,omitempty" validate:"omitempty,gt=0"`
	Notes            *string       `json:"notes,omitempty"`
	AssignedTo       *int64        `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
	Items            []ItemRequest `json:"items" validate:"required,min=1,dive"`
}
