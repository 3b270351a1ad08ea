package bills

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemRequest struct {
	Description string           `json:"description" validate:"required,max=500"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unitPrice,omitempty"`
	TaxPercent  *decimal.Decimal `json:"taxPercent,omitempty"`
}

type CreateRequest struct {
	VendorID        int64         `json:"vendorId" validate:"required,gt=0"`
	PurchaseOrderID *int64        `json:"purchaseOrderId,omitempty" validate:"omitempty,gt=0"`
	BillDate        *time.Time    `json:"billDate,omitempty"`
	DueDate         *time.Time    `json:"dueDate,omitempty"`
	GroupName       *string       `json:"groupName,omitempty" validate:"omitempty,max=100"`
	SubGroupName    *string       `json:"subGroupName,omitempty" validate:"omitempty,max=100"`
	ProjectID       *int64        `json:"projectId,omitempty" validate:"omitempty,gt=0"`
	Notes           *string       `json:"notes,omitempty"`
	AssignedTo      *int64        `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
	Items           []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateRequest patches scalar fields. Items are replaced only when present.
type UpdateRequest struct {
	BillDate   *time.Time     `json:"billDate,omitempty"`
	DueDate    *time.Time     `json:"dueDate,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
	AssignedTo *int64         `json:"assignedTo,omitempty" validate:"omitempty,gt=0"`
	Items      *[]ItemRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

type PaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     *time.Time      `json:"paymentDate,omitempty"`
	PaymentMode     string          `json:"paymentMode" validate:"omitempty,max=50"`
	ReferenceNumber *string         `json:"referenceNumber,omitempty" validate:"omitempty,max=100"`
	Notes           *string         `json:"notes,omitempty"`
}

// Upload is a file handed to AttachFile.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}
