package models

import (
	"github.com/gestiq/gestiq-backend/pkg/enums"
)

// DocumentSequence backs the default document-number allocator: one row per
// document kind, advanced with a conditional update so two conversions never
// mint the same number.
type DocumentSequence struct {
	Kind       enums.DocumentKind `gorm:"column:kind;type:document_kind_enum;primaryKey"`
	NextNumber int64              `gorm:"column:next_number;not null;default:1"`
	Prefix     string             `gorm:"column:prefix;not null"`
}
