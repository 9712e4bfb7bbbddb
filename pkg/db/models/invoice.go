package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// Invoice is a billable document, usually produced by converting a quote or
// the billable lines of a completed intervention.
type Invoice struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Number        string              `gorm:"column:number;not null;uniqueIndex"`
	Status        enums.InvoiceStatus `gorm:"column:status;type:invoice_status_enum;not null;default:'draft'"`
	ClientRef     *string             `gorm:"column:client_ref"`
	SourceQuoteID *uuid.UUID          `gorm:"column:source_quote_id;type:uuid"`
	Lines         []InvoiceLine       `gorm:"foreignKey:InvoiceID"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// InvoiceLine is one priced line on an invoice. Invoices never touch stock;
// the item reference is kept for traceability only.
type InvoiceLine struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InvoiceID       uuid.UUID      `gorm:"column:invoice_id;type:uuid;not null;index"`
	InventoryItemID *uuid.UUID     `gorm:"column:inventory_item_id;type:uuid"`
	Role            enums.LineRole `gorm:"column:role;type:line_role_enum;not null"`
	Position        int            `gorm:"column:position;not null;default:0"`
	PricingFields   `gorm:"embedded"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
