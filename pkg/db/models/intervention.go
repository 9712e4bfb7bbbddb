package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// Intervention is one field job with its ordered set of priced lines.
// Entering done or canceled is terminal and triggers stock settlement or
// release for every reserved line.
type Intervention struct {
	ID          uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number      string                   `gorm:"column:number;not null;uniqueIndex"`
	Status      enums.InterventionStatus `gorm:"column:status;type:intervention_status_enum;not null;default:'to_schedule'"`
	ClientRef   *string                  `gorm:"column:client_ref"`
	ScheduledAt *time.Time               `gorm:"column:scheduled_at"`
	SettledAt   *time.Time               `gorm:"column:settled_at"`
	Lines       []InterventionLine       `gorm:"foreignKey:InterventionID"`
	CreatedAt   time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

// InterventionLine is a priced line attached to one intervention. A nil
// InventoryItemID means a free-text manual line with no stock effect.
type InterventionLine struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InterventionID     uuid.UUID              `gorm:"column:intervention_id;type:uuid;not null;index"`
	InventoryItemID    *uuid.UUID             `gorm:"column:inventory_item_id;type:uuid"`
	Role               enums.LineRole         `gorm:"column:role;type:line_role_enum;not null"`
	AssignedEmployeeID *uuid.UUID             `gorm:"column:assigned_employee_id;type:uuid"`
	IsBillable         bool                   `gorm:"column:is_billable;not null;default:true"`
	ReservationState   enums.ReservationState `gorm:"column:reservation_state;type:reservation_state_enum;not null;default:'unreserved'"`
	MovementID         *uuid.UUID             `gorm:"column:movement_id;type:uuid"`
	Position           int                    `gorm:"column:position;not null;default:0"`
	PricingFields      `gorm:"embedded"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StockBacked reports whether the line can hold a reservation at all.
func (l InterventionLine) StockBacked() bool {
	return l.InventoryItemID != nil && l.Role.StockAffecting()
}
