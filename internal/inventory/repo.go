package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/pagination"
)

// Availability is the read model for one item's stock position.
type Availability struct {
	OnHand    decimal.Decimal `json:"on_hand"`
	Reserved  decimal.Decimal `json:"reserved"`
	Available decimal.Decimal `json:"available"`
}

// Repository persists inventory items and their append-only movement ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListItems(ctx context.Context, params pagination.Params) ([]models.InventoryItem, error)
	GetAvailability(ctx context.Context, id uuid.UUID) (*Availability, error)
	ApplyDelta(ctx context.Context, itemID uuid.UUID, onHandDelta, reservedDelta decimal.Decimal) error
	AppendMovement(ctx context.Context, movement *models.StockMovement) error
	UpdateMovementStatus(ctx context.Context, movementID uuid.UUID, target enums.MovementStatus) error
	ListMovementsByItem(ctx context.Context, itemID uuid.UUID, params pagination.Params) ([]models.StockMovement, error)
	ListMovementsBySource(ctx context.Context, sourceKind string, sourceID uuid.UUID) ([]models.StockMovement, error)
	HasOpenMovements(ctx context.Context, itemID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory item")
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, params pagination.Params) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	query := r.db.WithContext(ctx).Order("name ASC")
	if limit := pagination.NormalizeLimit(params.Limit); limit > 0 {
		query = query.Limit(limit).Offset(params.Offset)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}
	return items, nil
}

func (r *repository) GetAvailability(ctx context.Context, id uuid.UUID) (*Availability, error) {
	item, err := r.FindItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Availability{
		OnHand:    item.OnHandQty,
		Reserved:  item.ReservedQty,
		Available: item.AvailableQty(),
	}, nil
}

// ApplyDelta is the single mutator for item quantities: one conditional
// UPDATE, never a read-then-write pair, so two concurrent reservations of the
// same item cannot lose updates. The reserved counter is hard-guarded at
// zero; on-hand is allowed to go negative when an operator has confirmed an
// over-reservation. Zero rows affected means the guard rejected the delta
// because of a conflicting concurrent change.
func (r *repository) ApplyDelta(ctx context.Context, itemID uuid.UUID, onHandDelta, reservedDelta decimal.Decimal) error {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_items
		SET on_hand_qty = on_hand_qty + ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND reserved_qty + ? >= 0
	`, onHandDelta, reservedDelta, itemID, reservedDelta)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "apply stock delta")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "stock delta rejected by concurrent change").
			WithDetails(map[string]any{
				"item_id":        itemID.String(),
				"on_hand_delta":  onHandDelta.String(),
				"reserved_delta": reservedDelta.String(),
			})
	}
	return nil
}

func (r *repository) AppendMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "movement required")
	}
	if !movement.Direction.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid movement direction")
	}
	if !movement.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid movement status")
	}
	if movement.Quantity.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "movement quantity must be positive")
	}
	if movement.ID == uuid.Nil {
		movement.ID = uuid.New()
	}
	if movement.ScheduledAt.IsZero() {
		movement.ScheduledAt = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(movement).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append movement")
	}
	return nil
}

// UpdateMovementStatus moves a ledger entry out of planned. Terminal rows are
// immutable; the conditional WHERE makes a second transition a conflict
// instead of a silent overwrite.
func (r *repository) UpdateMovementStatus(ctx context.Context, movementID uuid.UUID, target enums.MovementStatus) error {
	if !target.Terminal() {
		return pkgerrors.New(pkgerrors.CodeValidation, "movement status can only transition to done or canceled")
	}
	res := r.db.WithContext(ctx).Model(&models.StockMovement{}).
		Where("id = ? AND status = ?", movementID, enums.MovementStatusPlanned).
		Update("status", target)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update movement status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "movement is not in planned state").
			WithDetails(map[string]any{"movement_id": movementID.String()})
	}
	return nil
}

func (r *repository) ListMovementsByItem(ctx context.Context, itemID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	query := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("created_at ASC").
		Order("id ASC")
	if limit := pagination.NormalizeLimit(params.Limit); limit > 0 {
		query = query.Limit(limit).Offset(params.Offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	return rows, nil
}

func (r *repository) ListMovementsBySource(ctx context.Context, sourceKind string, sourceID uuid.UUID) ([]models.StockMovement, error) {
	var rows []models.StockMovement
	if err := r.db.WithContext(ctx).
		Where("source_kind = ? AND source_id = ?", sourceKind, sourceID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements by source")
	}
	return rows, nil
}

// HasOpenMovements reports whether any non-terminal movement still references
// the item. Items with open movements must not be removed from the catalog.
func (r *repository) HasOpenMovements(ctx context.Context, itemID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.StockMovement{}).
		Where("item_id = ? AND status = ?", itemID, enums.MovementStatusPlanned).
		Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open movements")
	}
	return count > 0, nil
}
