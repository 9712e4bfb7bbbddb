package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputePercentDiscountWithTax(t *testing.T) {
	// qty=3, unit=100, discount=10% -> base 300, discount 30, excl 270;
	// tax 20% -> 54, incl 324.
	totals := Compute(Inputs{
		Quantity:         dec("3"),
		UnitPriceExclTax: dec("100"),
		TaxRatePercent:   dec("20"),
		DiscountValue:    dec("10"),
		DiscountKind:     enums.DiscountKindPercent,
	})

	for name, got := range map[string]struct {
		actual, expected decimal.Decimal
	}{
		"base":     {totals.BaseAmount, dec("300")},
		"discount": {totals.DiscountAmount, dec("30")},
		"excl":     {totals.TotalExclTax, dec("270")},
		"tax":      {totals.TotalTax, dec("54")},
		"incl":     {totals.TotalInclTax, dec("324")},
	} {
		if !got.actual.Equal(got.expected) {
			t.Fatalf("%s: expected %s, got %s", name, got.expected, got.actual)
		}
	}
}

func TestComputeFixedDiscount(t *testing.T) {
	totals := Compute(Inputs{
		Quantity:         dec("2"),
		UnitPriceExclTax: dec("49.90"),
		TaxRatePercent:   dec("5.5"),
		DiscountValue:    dec("10"),
		DiscountKind:     enums.DiscountKindFixed,
	})
	if !totals.BaseAmount.Equal(dec("99.80")) {
		t.Fatalf("base: %s", totals.BaseAmount)
	}
	if !totals.TotalExclTax.Equal(dec("89.80")) {
		t.Fatalf("excl: %s", totals.TotalExclTax)
	}
	if !totals.TotalTax.Equal(dec("4.94")) {
		t.Fatalf("tax: %s", totals.TotalTax)
	}
	if !totals.TotalInclTax.Equal(dec("94.74")) {
		t.Fatalf("incl: %s", totals.TotalInclTax)
	}
}

func TestComputeClampsExcessiveDiscount(t *testing.T) {
	totals := Compute(Inputs{
		Quantity:         dec("1"),
		UnitPriceExclTax: dec("50"),
		TaxRatePercent:   dec("20"),
		DiscountValue:    dec("80"),
		DiscountKind:     enums.DiscountKindFixed,
	})
	if !totals.TotalExclTax.IsZero() {
		t.Fatalf("excl should clamp to zero, got %s", totals.TotalExclTax)
	}
	if !totals.TotalTax.IsZero() || !totals.TotalInclTax.IsZero() {
		t.Fatalf("tax/incl should be zero, got %s / %s", totals.TotalTax, totals.TotalInclTax)
	}
}

func TestComputeZeroQuantity(t *testing.T) {
	totals := Compute(Inputs{
		Quantity:         decimal.Zero,
		UnitPriceExclTax: dec("120"),
		TaxRatePercent:   dec("10"),
		DiscountKind:     enums.DiscountKindPercent,
	})
	if !totals.BaseAmount.IsZero() || !totals.TotalInclTax.IsZero() {
		t.Fatalf("zero quantity should produce zero totals: %+v", totals)
	}
}

func TestComputeUnknownTaxRateAccepted(t *testing.T) {
	// Rate validation is a caller concern; an odd rate is applied as given.
	totals := Compute(Inputs{
		Quantity:         dec("1"),
		UnitPriceExclTax: dec("100"),
		TaxRatePercent:   dec("13.37"),
		DiscountKind:     enums.DiscountKindPercent,
	})
	if !totals.TotalTax.Equal(dec("13.37")) {
		t.Fatalf("tax: %s", totals.TotalTax)
	}
}

func TestComputeIdempotent(t *testing.T) {
	in := Inputs{
		Quantity:         dec("7.5"),
		UnitPriceExclTax: dec("13.33"),
		TaxRatePercent:   dec("10"),
		DiscountValue:    dec("5"),
		DiscountKind:     enums.DiscountKindPercent,
	}
	first := Compute(in)
	second := Compute(in)
	if !first.TotalInclTax.Equal(second.TotalInclTax) ||
		!first.TotalExclTax.Equal(second.TotalExclTax) ||
		!first.DiscountAmount.Equal(second.DiscountAmount) {
		t.Fatalf("recomputation drifted: %+v vs %+v", first, second)
	}
}

func TestTotalOrderingInvariants(t *testing.T) {
	cases := []Inputs{
		{Quantity: dec("4"), UnitPriceExclTax: dec("25"), TaxRatePercent: dec("20"), DiscountValue: dec("50"), DiscountKind: enums.DiscountKindPercent},
		{Quantity: dec("1"), UnitPriceExclTax: dec("0"), TaxRatePercent: dec("10"), DiscountKind: enums.DiscountKindPercent},
		{Quantity: dec("10"), UnitPriceExclTax: dec("9.99"), TaxRatePercent: dec("5.5"), DiscountValue: dec("200"), DiscountKind: enums.DiscountKindFixed},
	}
	for i, in := range cases {
		totals := Compute(in)
		if totals.TotalExclTax.IsNegative() {
			t.Fatalf("case %d: negative totalExclTax %s", i, totals.TotalExclTax)
		}
		if totals.TotalInclTax.LessThan(totals.TotalExclTax) {
			t.Fatalf("case %d: inclTax %s < exclTax %s", i, totals.TotalInclTax, totals.TotalExclTax)
		}
	}
}

func TestApplyToFieldsOverwritesStoredTotals(t *testing.T) {
	fields := models.PricingFields{
		Quantity:         dec("2"),
		UnitPriceExclTax: dec("10"),
		TaxRatePercent:   dec("20"),
		DiscountKind:     enums.DiscountKindPercent,
		// Stale stored totals that must be replaced, not trusted.
		TotalExclTax: dec("999"),
		TotalInclTax: dec("999"),
	}
	ApplyToFields(&fields)
	if !fields.TotalExclTax.Equal(dec("20")) {
		t.Fatalf("excl: %s", fields.TotalExclTax)
	}
	if !fields.TotalInclTax.Equal(dec("24")) {
		t.Fatalf("incl: %s", fields.TotalInclTax)
	}
}
