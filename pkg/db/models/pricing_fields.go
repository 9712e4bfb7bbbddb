package models

import (
	"github.com/shopspring/decimal"

	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// PricingFields is the shared pricing shape every financial document line
// reduces to: five inputs plus four stored derivations. The derivations are
// never patched independently; internal/pricing recomputes and overwrites all
// of them on every input change.
type PricingFields struct {
	Label            string             `gorm:"column:label;not null"`
	Unit             string             `gorm:"column:unit;not null;default:'unit'"`
	Quantity         decimal.Decimal    `gorm:"column:quantity;type:numeric(14,3);not null"`
	UnitPriceExclTax decimal.Decimal    `gorm:"column:unit_price_excl_tax;type:numeric(14,2);not null"`
	TaxRatePercent   decimal.Decimal    `gorm:"column:tax_rate_percent;type:numeric(5,2);not null"`
	DiscountValue    decimal.Decimal    `gorm:"column:discount_value;type:numeric(14,2);not null;default:0"`
	DiscountKind     enums.DiscountKind `gorm:"column:discount_kind;type:discount_kind_enum;not null;default:'percent'"`

	BaseAmount     decimal.Decimal `gorm:"column:base_amount;type:numeric(14,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(14,2);not null;default:0"`
	TotalExclTax   decimal.Decimal `gorm:"column:total_excl_tax;type:numeric(14,2);not null;default:0"`
	TotalTax       decimal.Decimal `gorm:"column:total_tax;type:numeric(14,2);not null;default:0"`
	TotalInclTax   decimal.Decimal `gorm:"column:total_incl_tax;type:numeric(14,2);not null;default:0"`
}
