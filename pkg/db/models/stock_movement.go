package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// StockMovement is one append-only ledger entry recording an intended or
// realized stock change. Rows are inserted in planned state and move to done
// or canceled exactly once; after that corrections are new movements.
type StockMovement struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID      uuid.UUID               `gorm:"column:item_id;type:uuid;not null;index"`
	Direction   enums.MovementDirection `gorm:"column:direction;type:movement_direction_enum;not null"`
	Quantity    decimal.Decimal         `gorm:"column:quantity;type:numeric(14,3);not null"`
	SourceKind  string                  `gorm:"column:source_kind;not null"`
	SourceID    uuid.UUID               `gorm:"column:source_id;type:uuid;not null;index"`
	Status      enums.MovementStatus    `gorm:"column:status;type:movement_status_enum;not null"`
	ScheduledAt time.Time               `gorm:"column:scheduled_at;not null"`
	Note        *string                 `gorm:"column:note"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
}
