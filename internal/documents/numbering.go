package documents

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
)

// NumberAllocator mints sequential document numbers like INV-000042 from one
// sequence row per document kind.
type NumberAllocator struct {
	db *gorm.DB
}

// NewNumberAllocator returns a sequence-backed allocator.
func NewNumberAllocator(db *gorm.DB) *NumberAllocator {
	return &NumberAllocator{db: db}
}

// Next advances the sequence for the kind and returns the formatted number.
// The advance is a conditional update on the current value, so two
// transactions allocating concurrently get distinct numbers; the loser of the
// race surfaces a retryable conflict.
func (a *NumberAllocator) Next(ctx context.Context, tx *gorm.DB, kind enums.DocumentKind) (string, error) {
	if !kind.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid document kind")
	}
	db := a.db
	if tx != nil {
		db = tx
	}

	var seq models.DocumentSequence
	if err := db.WithContext(ctx).First(&seq, "kind = ?", kind).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", pkgerrors.New(pkgerrors.CodeDependency, "document sequence missing").
				WithDetails(map[string]any{"kind": kind.String()})
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load document sequence")
	}

	res := db.WithContext(ctx).Model(&models.DocumentSequence{}).
		Where("kind = ? AND next_number = ?", kind, seq.NextNumber).
		Update("next_number", seq.NextNumber+1)
	if res.Error != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "advance document sequence")
	}
	if res.RowsAffected == 0 {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "document number allocated concurrently").
			WithDetails(map[string]any{"kind": kind.String()})
	}

	return fmt.Sprintf("%s-%06d", seq.Prefix, seq.NextNumber), nil
}
