package lineitem

import (
	"fmt"

	"github.com/odyssey-erp/backoffice/internal/shared"
)

var (
	errNegativeQuantity = fmt.Errorf("%w: quantity must not be negative", shared.ErrValidation)
	errNegativePrice    = fmt.Errorf("%w: unit price must not be negative", shared.ErrValidation)
	errTaxRange         = fmt.Errorf("%w: tax percent must be between 0 and 100", shared.ErrValidation)
	errDiscountRange    = fmt.Errorf("%w: discount percent must be between 0 and 100", shared.ErrValidation)
)

// ValidateAll validates each resolved line and reports the first failing index.
func ValidateAll(lines []Resolved) error {
	for i, l := range lines {
		if err := Validate(l); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}
