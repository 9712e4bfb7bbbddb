package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// InventoryItem tracks on-hand and reserved quantity per stock-keeping unit.
// Quantities are mutated exclusively through the conditional-update path in
// internal/inventory; available = on_hand - reserved and may go negative when
// an operator confirms an over-reservation.
type InventoryItem struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string          `gorm:"column:name;not null"`
	SKU              *string         `gorm:"column:sku"`
	Kind             enums.ItemKind  `gorm:"column:kind;type:item_kind_enum;not null"`
	OnHandQty        decimal.Decimal `gorm:"column:on_hand_qty;type:numeric(14,3);not null;default:0"`
	ReservedQty      decimal.Decimal `gorm:"column:reserved_qty;type:numeric(14,3);not null;default:0"`
	UnitPriceExclTax decimal.Decimal `gorm:"column:unit_price_excl_tax;type:numeric(14,2);not null;default:0"`
	TaxRatePercent   decimal.Decimal `gorm:"column:tax_rate_percent;type:numeric(5,2);not null;default:0"`
	Location         *string         `gorm:"column:location"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// AvailableQty is the quantity not held by any reservation.
func (i InventoryItem) AvailableQty() decimal.Decimal {
	return i.OnHandQty.Sub(i.ReservedQty)
}
