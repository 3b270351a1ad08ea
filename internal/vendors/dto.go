package vendors

// CreateVendorRequest is the payload for explicit vendor creation. Purchase
// aggregates are not accepted from clients.
type CreateVendorRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Category     *string `json:"category,omitempty"`
	GroupName    *string `json:"groupName,omitempty"`
	SubGroupName *string `json:"subGroupName,omitempty"`
}

// UpdateVendorRequest replaces the contact fields.
type UpdateVendorRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Category *string `json:"category,omitempty"`
}
