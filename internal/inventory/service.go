package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
	"github.com/gestiq/gestiq-backend/pkg/outbox"
	"github.com/gestiq/gestiq-backend/pkg/pagination"
)

// SourceKindRestock marks ledger entries created by warehouse receipts rather
// than interventions.
const SourceKindRestock = "restock"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the catalog read surface and the receipt path. Reservation
// and settlement mutations live in internal/reservation.
type Service interface {
	GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListItems(ctx context.Context, params pagination.Params) ([]models.InventoryItem, error)
	GetAvailability(ctx context.Context, id uuid.UUID) (*Availability, error)
	ListMovements(ctx context.Context, itemID uuid.UUID, params pagination.Params) ([]models.StockMovement, error)
	ReceiveStock(ctx context.Context, input ReceiveStockInput) (*Availability, error)
}

// ReceiveStockInput describes one warehouse receipt.
type ReceiveStockInput struct {
	ItemID   uuid.UUID
	Quantity decimal.Decimal
	Note     *string
}

// StockReceivedEvent is emitted when quantity enters the warehouse.
type StockReceivedEvent struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	OnHand   decimal.Decimal `json:"on_hand"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService wires the inventory service with its dependencies.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: publisher, logg: logg}, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	return s.repo.FindItem(ctx, id)
}

func (s *service) ListItems(ctx context.Context, params pagination.Params) ([]models.InventoryItem, error) {
	return s.repo.ListItems(ctx, pagination.Normalize(params))
}

func (s *service) GetAvailability(ctx context.Context, id uuid.UUID) (*Availability, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	return s.repo.GetAvailability(ctx, id)
}

func (s *service) ListMovements(ctx context.Context, itemID uuid.UUID, params pagination.Params) ([]models.StockMovement, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if _, err := s.repo.FindItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListMovementsByItem(ctx, itemID, pagination.Normalize(params))
}

// ReceiveStock applies a positive on-hand delta and records the realized
// ledger entry in the same transaction.
func (s *service) ReceiveStock(ctx context.Context, input ReceiveStockInput) (*Availability, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var result *Availability
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItem(ctx, input.ItemID)
		if err != nil {
			return err
		}

		if err := repo.ApplyDelta(ctx, item.ID, input.Quantity, decimal.Zero); err != nil {
			return err
		}

		movement := &models.StockMovement{
			ItemID:      item.ID,
			Direction:   enums.MovementDirectionIn,
			Quantity:    input.Quantity,
			SourceKind:  SourceKindRestock,
			SourceID:    item.ID,
			Status:      enums.MovementStatusDone,
			ScheduledAt: time.Now(),
			Note:        input.Note,
		}
		if err := repo.AppendMovement(ctx, movement); err != nil {
			return err
		}

		availability, err := repo.GetAvailability(ctx, item.ID)
		if err != nil {
			return err
		}
		result = availability

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockReceived,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   item.ID,
			Version:       1,
			Data: StockReceivedEvent{
				ItemID:   item.ID,
				Quantity: input.Quantity,
				OnHand:   availability.OnHand,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"item_id":  input.ItemID.String(),
			"quantity": input.Quantity.String(),
		})
		s.logg.Info(logCtx, "stock received")
	}
	return result, nil
}
