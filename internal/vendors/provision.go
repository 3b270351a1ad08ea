package vendors

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PlaceholderDomain is used for vendors provisioned without a known email.
const PlaceholderDomain = "placeholder.local"

// ProvisionInput carries the vendor contact fields copied from a quotation.
type ProvisionInput struct {
	QuotationCode string
	Name          string
	Email         string
	Phone         *string
	Category      *string
	GroupName     *string
	SubGroupName  *string
	ActorID       int64
}

// PlaceholderEmail returns the synthetic address for a quotation code.
func PlaceholderEmail(quotationCode string) string {
	return fmt.Sprintf("vendor-%s@%s", strings.ToLower(quotationCode), PlaceholderDomain)
}

// NewProvisioned builds the vendor row created when a quotation is converted
// without a resolvable vendor.
func NewProvisioned(in ProvisionInput) Vendor {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = "Vendor for " + in.QuotationCode
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = PlaceholderEmail(in.QuotationCode)
	}
	return Vendor{
		Name:               name,
		Email:              email,
		Phone:              in.Phone,
		Category:           in.Category,
		GroupName:          in.GroupName,
		SubGroupName:       in.SubGroupName,
		Provisioned:        true,
		TotalPurchaseValue: decimal.Zero,
		CreatedBy:          in.ActorID,
	}
}
