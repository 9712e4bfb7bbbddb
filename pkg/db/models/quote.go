package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// Quote is a priced proposal document. Its lines carry the same pricing
// shape as intervention and invoice lines but never hold stock.
type Quote struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number    string            `gorm:"column:number;not null;uniqueIndex"`
	Status    enums.QuoteStatus `gorm:"column:status;type:quote_status_enum;not null;default:'draft'"`
	ClientRef *string           `gorm:"column:client_ref"`
	Lines     []QuoteLine       `gorm:"foreignKey:QuoteID"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// QuoteLine is one priced line on a quote. InventoryItemID marks the line as
// inventory-backed for later conversion; quotes themselves never reserve.
type QuoteLine struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuoteID         uuid.UUID      `gorm:"column:quote_id;type:uuid;not null;index"`
	InventoryItemID *uuid.UUID     `gorm:"column:inventory_item_id;type:uuid"`
	Role            enums.LineRole `gorm:"column:role;type:line_role_enum;not null"`
	Position        int            `gorm:"column:position;not null;default:0"`
	PricingFields   `gorm:"embedded"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
