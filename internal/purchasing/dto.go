package purchasing

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

type Header struct {
	DeliveryTerms    *string    `json:"deliveryTerms,omitempty"`
	PaymentTerms     *string    `json:"paymentTerms,omitempty"`
	Category         *string    `json:"category,omitempty"`
	GroupName        *string    `json:"groupName,omitempty"`
	SubGroupName     *string    `json:"subGroupName,omitempty"`
	ProjectID        *int64     `json:"projectId,omitempty" validate:"omitempty,gt=0"`
	ExpectedDelivery *time.Time `json:"expectedDelivery,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	AssignedTo       *int64     `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
}

type CreateRequest struct {
	Header
	VendorID int64         `json:"vendorId" validate:"required,gt=0"`
	Items    []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// FromQuotationRequest carries the fields a quotation does not provide.
type FromQuotationRequest struct {
	ExpectedDelivery *time.Time `json:"expectedDelivery,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
	AssignedTo       *int64     `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
}

// FromOrderBookRequest creates a purchase order without a quotation, either
// from raw rows or from the items of a stored order book.
type FromOrderBookRequest struct {
	Header
	VendorID    int64         `json:"vendorId" validate:"required,gt=0"`
	OrderBookID *int64        `json:"orderBookId,omitempty" validate:"omitempty,gt=0"`
	Items       []ItemRequest `json:"items,omitempty" validate:"omitempty,dive"`
}

type StatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=DRAFT APPROVED ORDERED IN_TRANSIT DELIVERED CANCELLED"`
}

type DeliverRequest struct {
	DeliveredQty decimal.Decimal `json:"deliveredQty"`
}
