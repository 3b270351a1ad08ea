package quotations

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	ItemName        string           `json:"itemName" validate:"required,max=255"`
	Description     *string          `json:"description,omitempty"`
	Quantity        *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice       *decimal.Decimal `json:"unitPrice,omitempty"`
	TaxPercent      *decimal.Decimal `json:"taxPercent,omitempty"`
	DiscountPercent *decimal.Decimal `json:"discountPercent,omitempty"`
}

type CreateRequest struct {
	RFQID         *string       `json:"rfqId,omitempty"`
	VendorID      *int64        `json:"vendorId,omitempty" validate:"omitempty,gt=0"`
	VendorName    *string       `json:"vendorName,omitempty" validate:"omitempty,max=200"`
	VendorEmail   *string       `json:"vendorEmail,omitempty" validate:"omitempty,email"`
	VendorPhone   *string       `json:"vendorPhone,omitempty" validate:"omitempty,max=50"`
	Category      *string       `json:"category,omitempty"`
	DeliveryTerms *string       `json:"deliveryTerms,omitempty"`
	PaymentTerms  *string       `json:"paymentTerms,omitempty"`
	GroupName     *string       `json:"groupName,omitempty"`
	SubGroupName  *string       `json:"subGroupName,omitempty"`
	ProjectID     *int64        `json:"projectId,omitempty" validate:"omitempty,gt=0"`
	ValidTill     *time.Time    `json:"validTill,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
	AssignedTo    *int64        `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
	Items         []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateRequest replaces every mutable field. Items are replaced only when
// the slice is present.
type UpdateRequest struct {
	RFQID         *string        `json:"rfqId,omitempty"`
	VendorID      *int64         `json:"vendorId,omitempty" validate:"omitempty,gt=0"`
	VendorName    *string        `json:"vendorName,omitempty" validate:"omitempty,max=200"`
	VendorEmail   *string        `json:"vendorEmail,omitempty" validate:"omitempty,email"`
	VendorPhone   *string        `json:"vendorPhone,omitempty" validate:"omitempty,max=50"`
	Category      *string        `json:"category,omitempty"`
	DeliveryTerms *string        `json:"deliveryTerms,omitempty"`
	PaymentTerms  *string        `json:"paymentTerms,omitempty"`
	GroupName     *string        `json:"groupName,omitempty"`
	SubGroupName  *string        `json:"subGroupName,omitempty"`
	ProjectID     *int64         `json:"projectId,omitempty" validate:"omitempty,gt=0"`
	ValidTill     *time.Time     `json:"validTill,omitempty"`
	Notes         *string        `json:"notes,omitempty"`
	AssignedTo    *int64         `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
	Items         *[]ItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type StatusRequest struct {
	Status Status  `json:"status" validate:"required,oneof=SHORTLISTED APPROVED REJECTED"`
	Reason *string `json:"reason,omitempty"`
}

type LinkRequest struct {
	PurchaseOrderID int64 `json:"purchaseOrderId" validate:"required,gt=0"`
}
