// Package lineitem computes line and document totals for every financial
// document type. All amounts are rounded half-up to two decimals at each step
// so persisted totals are reproducible.
package lineitem

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds half-up (away from zero) to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Defaults fills values a caller left unset.
type Defaults struct {
	Quantity   decimal.Decimal
	UnitPrice  decimal.Decimal
	TaxPercent decimal.Decimal
}

var (
	// NoTax is used by bills and invoices.
	NoTax = Defaults{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.Zero, TaxPercent: decimal.Zero}
	// GST is used by order books, quotations and purchase orders.
	GST = Defaults{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.Zero, TaxPercent: decimal.NewFromInt(18)}
)

// Input is one raw line as supplied by a caller. Nil pointers take the defaults.
type Input struct {
	Quantity        *decimal.Decimal
	UnitPrice       *decimal.Decimal
	TaxPercent      *decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// Resolved is an input with defaults applied.
type Resolved struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	TaxPercent      decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// Resolve applies defaults.
func (in Input) Resolve(d Defaults) Resolved {
	r := Resolved{Quantity: d.Quantity, UnitPrice: d.UnitPrice, TaxPercent: d.TaxPercent}
	if in.Quantity != nil {
		r.Quantity = *in.Quantity
	}
	if in.UnitPrice != nil {
		r.UnitPrice = *in.UnitPrice
	}
	if in.TaxPercent != nil {
		r.TaxPercent = *in.TaxPercent
	}
	if in.DiscountPercent != nil {
		v := *in.DiscountPercent
		r.DiscountPercent = &v
	}
	return r
}

// Result holds computed amounts for one line.
type Result struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	Taxable        decimal.Decimal
	TaxAmount      decimal.Decimal
	LineTotal      decimal.Decimal
}

// Mode selects how discounts participate in a document.
type Mode int

const (
	// WithDiscount applies the discount before tax.
	WithDiscount Mode = iota
	// NoDiscount ignores discounts (bills).
	NoDiscount
)

// Line computes a single line.
func Line(r Resolved, mode Mode) Result {
	subtotal := Round2(r.Quantity.Mul(r.UnitPrice))
	res := Result{Subtotal: subtotal, Taxable: subtotal, DiscountAmount: decimal.Zero}
	if mode == WithDiscount && r.DiscountPercent != nil {
		res.DiscountAmount = Round2(subtotal.Mul(*r.DiscountPercent).Div(hundred))
		res.Taxable = Round2(subtotal.Sub(res.DiscountAmount))
	}
	res.TaxAmount = Round2(res.Taxable.Mul(r.TaxPercent).Div(hundred))
	res.LineTotal = Round2(res.Taxable.Add(res.TaxAmount))
	return res
}

// Summary aggregates a document.
type Summary struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
}

// Totals aggregates already computed lines.
func Totals(lines []Result) Summary {
	s := Summary{Subtotal: decimal.Zero, DiscountAmount: decimal.Zero, TaxAmount: decimal.Zero, Total: decimal.Zero}
	for _, l := range lines {
		s.Subtotal = s.Subtotal.Add(l.Subtotal)
		s.DiscountAmount = s.DiscountAmount.Add(l.DiscountAmount)
		s.TaxAmount = s.TaxAmount.Add(l.TaxAmount)
		s.Total = s.Total.Add(l.LineTotal)
	}
	s.Subtotal = Round2(s.Subtotal)
	s.DiscountAmount = Round2(s.DiscountAmount)
	s.TaxAmount = Round2(s.TaxAmount)
	s.Total = Round2(s.Total)
	return s
}

// Compute resolves, calculates and aggregates a list of inputs.
func Compute(inputs []Input, d Defaults, mode Mode) ([]Resolved, []Result, Summary) {
	resolved := make([]Resolved, len(inputs))
	results := make([]Result, len(inputs))
	for i, in := range inputs {
		resolved[i] = in.Resolve(d)
		results[i] = Line(resolved[i], mode)
	}
	return resolved, results, Totals(results)
}

// Validate rejects negative quantities, prices and out of range percentages.
func Validate(r Resolved) error {
	switch {
	case r.Quantity.IsNegative():
		return errNegativeQuantity
	case r.UnitPrice.IsNegative():
		return errNegativePrice
	case r.TaxPercent.IsNegative() || r.TaxPercent.GreaterThan(hundred):
		return errTaxRange
	case r.DiscountPercent != nil && (r.DiscountPercent.IsNegative() || r.DiscountPercent.GreaterThan(hundred)):
		return errDiscountRange
	}
	return nil
}
