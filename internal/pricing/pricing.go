// Package pricing computes line-item monetary totals. It is pure: no I/O, no
// errors, and recomputing with identical inputs always yields identical
// totals. Every persistence path stores its output wholesale instead of
// patching stored totals.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// Inputs are the five scalars a line's totals derive from.
type Inputs struct {
	Quantity         decimal.Decimal
	UnitPriceExclTax decimal.Decimal
	TaxRatePercent   decimal.Decimal
	DiscountValue    decimal.Decimal
	DiscountKind     enums.DiscountKind
}

// Totals are the derived amounts. TotalExclTax never goes below zero: a
// discount larger than the base amount clamps instead of producing a credit.
type Totals struct {
	BaseAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalExclTax   decimal.Decimal
	TotalTax       decimal.Decimal
	TotalInclTax   decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Compute derives the totals for the given inputs. Zero quantity or price is
// a valid input producing zero totals. Tax rates are applied as given; rate
// validation belongs to the caller.
func Compute(in Inputs) Totals {
	base := in.Quantity.Mul(in.UnitPriceExclTax)

	var discount decimal.Decimal
	if in.DiscountKind == enums.DiscountKindPercent {
		discount = base.Mul(in.DiscountValue).Div(hundred)
	} else {
		discount = in.DiscountValue
	}

	exclTax := base.Sub(discount)
	if exclTax.IsNegative() {
		exclTax = decimal.Zero
	}

	tax := exclTax.Mul(in.TaxRatePercent).Div(hundred)

	return Totals{
		BaseAmount:     base.Round(2),
		DiscountAmount: discount.Round(2),
		TotalExclTax:   exclTax.Round(2),
		TotalTax:       tax.Round(2),
		TotalInclTax:   exclTax.Add(tax).Round(2),
	}
}

// InputsFromFields extracts the pricing inputs stored on a document line.
func InputsFromFields(f models.PricingFields) Inputs {
	return Inputs{
		Quantity:         f.Quantity,
		UnitPriceExclTax: f.UnitPriceExclTax,
		TaxRatePercent:   f.TaxRatePercent,
		DiscountValue:    f.DiscountValue,
		DiscountKind:     f.DiscountKind,
	}
}

// ApplyToFields recomputes and overwrites every derived column on the line.
// Stored totals are never trusted or partially updated.
func ApplyToFields(f *models.PricingFields) {
	totals := Compute(InputsFromFields(*f))
	f.BaseAmount = totals.BaseAmount
	f.DiscountAmount = totals.DiscountAmount
	f.TotalExclTax = totals.TotalExclTax
	f.TotalTax = totals.TotalTax
	f.TotalInclTax = totals.TotalInclTax
}
