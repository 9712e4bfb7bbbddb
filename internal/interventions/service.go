// Package interventions owns the field-job aggregate: its lines, their
// pricing, and the status lifecycle whose terminal transitions settle or
// release reserved stock.
package interventions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/internal/inventory"
	"github.com/gestiq/gestiq-backend/internal/pricing"
	"github.com/gestiq/gestiq-backend/internal/reservation"
	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
	"github.com/gestiq/gestiq-backend/pkg/outbox"
	"github.com/gestiq/gestiq-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// numberAllocator mints the intervention's document number inside the
// creating transaction. internal/documents provides the implementation.
type numberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, kind enums.DocumentKind) (string, error)
}

// Service exposes the intervention aggregate and its line set.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Intervention, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Intervention, error)
	List(ctx context.Context, params pagination.Params) ([]models.Intervention, error)
	AddLine(ctx context.Context, interventionID uuid.UUID, input AddLineInput) (*LineResult, error)
	UpdateLine(ctx context.Context, lineID uuid.UUID, input UpdateLineInput) (*LineResult, error)
	RemoveLine(ctx context.Context, lineID uuid.UUID) error
	ReserveLine(ctx context.Context, lineID uuid.UUID, confirmShortfall bool) (*LineResult, error)
	Totals(ctx context.Context, interventionID uuid.UUID) (*Totals, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, target enums.InterventionStatus) (*models.Intervention, error)
}

// CreateInput describes a new intervention.
type CreateInput struct {
	ClientRef   *string
	ScheduledAt *time.Time
}

// AddLineInput describes one new line. When InventoryItemID is set, label,
// unit price and tax rate default from the catalog entry and Role defaults
// from the item kind; explicit values win over the prefill.
type AddLineInput struct {
	Role               *enums.LineRole
	InventoryItemID    *uuid.UUID
	Label              string
	Unit               string
	Quantity           decimal.Decimal
	UnitPriceExclTax   *decimal.Decimal
	TaxRatePercent     *decimal.Decimal
	DiscountValue      decimal.Decimal
	DiscountKind       enums.DiscountKind
	IsBillable         *bool
	AssignedEmployeeID *uuid.UUID
	Reserve            bool
	ConfirmShortfall   bool
}

// UpdateLineInput carries a partial line edit; nil fields keep their value.
type UpdateLineInput struct {
	Label              *string
	Unit               *string
	Quantity           *decimal.Decimal
	UnitPriceExclTax   *decimal.Decimal
	TaxRatePercent     *decimal.Decimal
	DiscountValue      *decimal.Decimal
	DiscountKind       *enums.DiscountKind
	IsBillable         *bool
	AssignedEmployeeID *uuid.UUID
	ConfirmShortfall   bool
}

// LineResult is the authoritative post-operation line plus the reservation
// outcome when one was attempted.
type LineResult struct {
	Line        *models.InterventionLine   `json:"line"`
	Reservation *reservation.ReserveResult `json:"reservation,omitempty"`
}

// Totals is the pure aggregate over an intervention's lines, never stored.
// Monetary sums cover billable lines only; the counts cover every line.
type Totals struct {
	TotalExclTax decimal.Decimal `json:"total_excl_tax"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	TotalInclTax decimal.Decimal `json:"total_incl_tax"`
	LineCount    int             `json:"line_count"`
	CountByRole  map[string]int  `json:"count_by_role"`
}

// SettledEvent is emitted when an intervention reaches done.
type SettledEvent struct {
	InterventionID uuid.UUID `json:"intervention_id"`
	Number         string    `json:"number"`
	Consumed       int       `json:"consumed"`
	Returned       int       `json:"returned"`
	SettledAt      time.Time `json:"settled_at"`
}

// ReleasedEvent is emitted when an intervention is canceled.
type ReleasedEvent struct {
	InterventionID uuid.UUID `json:"intervention_id"`
	Number         string    `json:"number"`
	Released       int       `json:"released"`
}

// ShortfallConfirmedEvent is emitted when an operator holds stock past
// availability.
type ShortfallConfirmedEvent struct {
	ItemID         uuid.UUID       `json:"item_id"`
	InterventionID uuid.UUID       `json:"intervention_id"`
	LineID         uuid.UUID       `json:"line_id"`
	Requested      decimal.Decimal `json:"requested"`
	Missing        decimal.Decimal `json:"missing"`
}

type service struct {
	repo     Repository
	items    inventory.Repository
	reserver reservation.Service
	tx       txRunner
	outbox   outboxPublisher
	numbers  numberAllocator
	logg     *logger.Logger
}

// NewService wires the interventions service with its dependencies.
func NewService(repo Repository, items inventory.Repository, reserver reservation.Service, tx txRunner, publisher outboxPublisher, numbers numberAllocator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("interventions repository required")
	}
	if items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if reserver == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("number allocator required")
	}
	return &service{
		repo:     repo,
		items:    items,
		reserver: reserver,
		tx:       tx,
		outbox:   publisher,
		numbers:  numbers,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Intervention, error) {
	intervention := &models.Intervention{
		Status:      enums.InterventionStatusToSchedule,
		ClientRef:   input.ClientRef,
		ScheduledAt: input.ScheduledAt,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbers.Next(ctx, tx, enums.DocumentKindIntervention)
		if err != nil {
			return err
		}
		intervention.Number = number
		return s.repo.WithTx(tx).Create(ctx, intervention)
	})
	if err != nil {
		return nil, err
	}
	return intervention, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Intervention, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intervention id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Intervention, error) {
	return s.repo.List(ctx, pagination.Normalize(params))
}

// emitShortfallConfirmed records an over-availability hold on the outbox so
// downstream purchasing can react. No-op when the reservation covered.
func (s *service) emitShortfallConfirmed(ctx context.Context, tx *gorm.DB, line *models.InterventionLine, res *reservation.ReserveResult) error {
	if res == nil || res.Shortfall == nil || line.InventoryItemID == nil {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventStockShortfall,
		AggregateType: enums.AggregateInventoryItem,
		AggregateID:   *line.InventoryItemID,
		Version:       1,
		Data: ShortfallConfirmedEvent{
			ItemID:         *line.InventoryItemID,
			InterventionID: line.InterventionID,
			LineID:         line.ID,
			Requested:      res.Shortfall.Requested,
			Missing:        res.Shortfall.Missing,
		},
	})
}

func (s *service) AddLine(ctx context.Context, interventionID uuid.UUID, input AddLineInput) (*LineResult, error) {
	if interventionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intervention id required")
	}
	if input.Quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.DiscountValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must not be negative")
	}

	intervention, err := s.repo.FindByID(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	if intervention.Status.Terminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "intervention is closed")
	}

	line := &models.InterventionLine{
		InterventionID:     interventionID,
		InventoryItemID:    input.InventoryItemID,
		AssignedEmployeeID: input.AssignedEmployeeID,
		IsBillable:         true,
		ReservationState:   enums.ReservationStateUnreserved,
		PricingFields: models.PricingFields{
			Label:         input.Label,
			Unit:          input.Unit,
			Quantity:      input.Quantity,
			DiscountValue: input.DiscountValue,
			DiscountKind:  input.DiscountKind,
		},
	}
	if input.IsBillable != nil {
		line.IsBillable = *input.IsBillable
	}
	if line.Unit == "" {
		line.Unit = "unit"
	}
	if line.DiscountKind == "" {
		line.DiscountKind = enums.DiscountKindPercent
	}
	if input.UnitPriceExclTax != nil {
		line.UnitPriceExclTax = *input.UnitPriceExclTax
	}
	if input.TaxRatePercent != nil {
		line.TaxRatePercent = *input.TaxRatePercent
	}
	if input.Role != nil {
		line.Role = *input.Role
	}

	// Catalog prefill for item-backed lines.
	if input.InventoryItemID != nil {
		item, err := s.items.FindItem(ctx, *input.InventoryItemID)
		if err != nil {
			return nil, err
		}
		if line.Label == "" {
			line.Label = item.Name
		}
		if input.UnitPriceExclTax == nil {
			line.UnitPriceExclTax = item.UnitPriceExclTax
		}
		if input.TaxRatePercent == nil {
			line.TaxRatePercent = item.TaxRatePercent
		}
		if input.Role == nil {
			line.Role = item.Kind.DefaultLineRole()
		}
	}
	if line.Role == "" {
		line.Role = enums.LineRoleService
	}
	if !line.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid line role")
	}
	if line.Label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label required")
	}
	if input.Reserve && !line.StockBacked() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only item-backed consumable or material lines can be reserved")
	}

	pricing.ApplyToFields(&line.PricingFields)

	result := &LineResult{Line: line}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		count, err := repo.CountLines(ctx, interventionID)
		if err != nil {
			return err
		}
		line.Position = int(count)

		if err := repo.CreateLine(ctx, line); err != nil {
			return err
		}

		if input.Reserve {
			res, err := s.reserver.Reserve(ctx, tx, reservation.ReserveInput{
				LineID:           line.ID,
				ConfirmShortfall: input.ConfirmShortfall,
			})
			if err != nil {
				return err
			}
			result.Reservation = res
			line.ReservationState = res.State
			line.MovementID = &res.MovementID
			if err := s.emitShortfallConfirmed(ctx, tx, line, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateLine applies a partial edit, recomputes totals whenever a pricing
// input changed, and re-sizes the stock hold when the quantity of a reserved
// line changed.
func (s *service) UpdateLine(ctx context.Context, lineID uuid.UUID, input UpdateLineInput) (*LineResult, error) {
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	if input.Quantity != nil && input.Quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.DiscountValue != nil && input.DiscountValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount must not be negative")
	}
	if input.DiscountKind != nil && !input.DiscountKind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid discount kind")
	}

	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.ReservationState.Terminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "settled lines cannot be edited")
	}

	quantityChanged := input.Quantity != nil && !input.Quantity.Equal(line.Quantity)

	if input.Label != nil {
		line.Label = *input.Label
	}
	if input.Unit != nil {
		line.Unit = *input.Unit
	}
	if input.Quantity != nil {
		line.Quantity = *input.Quantity
	}
	if input.UnitPriceExclTax != nil {
		line.UnitPriceExclTax = *input.UnitPriceExclTax
	}
	if input.TaxRatePercent != nil {
		line.TaxRatePercent = *input.TaxRatePercent
	}
	if input.DiscountValue != nil {
		line.DiscountValue = *input.DiscountValue
	}
	if input.DiscountKind != nil {
		line.DiscountKind = *input.DiscountKind
	}
	if input.IsBillable != nil {
		line.IsBillable = *input.IsBillable
	}
	if input.AssignedEmployeeID != nil {
		line.AssignedEmployeeID = input.AssignedEmployeeID
	}

	pricing.ApplyToFields(&line.PricingFields)

	result := &LineResult{Line: line}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if quantityChanged && line.ReservationState == enums.ReservationStateReserved {
			res, err := s.reserver.AdjustReservation(ctx, tx, line.ID, line.Quantity, input.ConfirmShortfall)
			if err != nil {
				return err
			}
			result.Reservation = res
			line.MovementID = &res.MovementID
			if err := s.emitShortfallConfirmed(ctx, tx, line, res); err != nil {
				return err
			}
		}
		return s.repo.WithTx(tx).SaveLine(ctx, line)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveLine deletes a line; a reserved line has its hold released first so
// stock never leaks.
func (s *service) RemoveLine(ctx context.Context, lineID uuid.UUID) error {
	if lineID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	line, err := s.repo.FindLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.ReservationState.Terminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "settled lines cannot be removed")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if line.ReservationState == enums.ReservationStateReserved {
			if err := s.reserver.ReleaseLine(ctx, tx, line.ID); err != nil {
				return err
			}
		}
		return s.repo.WithTx(tx).DeleteLine(ctx, line.ID)
	})
}

func (s *service) ReserveLine(ctx context.Context, lineID uuid.UUID, confirmShortfall bool) (*LineResult, error) {
	if lineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	var result *LineResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		res, err := s.reserver.Reserve(ctx, tx, reservation.ReserveInput{
			LineID:           lineID,
			ConfirmShortfall: confirmShortfall,
		})
		if err != nil {
			return err
		}
		line, err := s.repo.WithTx(tx).FindLine(ctx, lineID)
		if err != nil {
			return err
		}
		if err := s.emitShortfallConfirmed(ctx, tx, line, res); err != nil {
			return err
		}
		result = &LineResult{Line: line, Reservation: res}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Totals(ctx context.Context, interventionID uuid.UUID) (*Totals, error) {
	if interventionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intervention id required")
	}
	lines, err := s.repo.ListLines(ctx, interventionID)
	if err != nil {
		return nil, err
	}
	totals := &Totals{CountByRole: map[string]int{}}
	for _, line := range lines {
		totals.LineCount++
		totals.CountByRole[line.Role.String()]++
		if !line.IsBillable {
			continue
		}
		totals.TotalExclTax = totals.TotalExclTax.Add(line.TotalExclTax)
		totals.TotalTax = totals.TotalTax.Add(line.TotalTax)
		totals.TotalInclTax = totals.TotalInclTax.Add(line.TotalInclTax)
	}
	return totals, nil
}

// TransitionStatus moves the intervention through its lifecycle. Entering
// done settles every reserved line and entering canceled releases them, in
// the same transaction as the status write: the transition does not land
// unless the stock side effects do.
func (s *service) TransitionStatus(ctx context.Context, id uuid.UUID, target enums.InterventionStatus) (*models.Intervention, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intervention id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid intervention status")
	}

	intervention, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !intervention.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]any{
				"intervention_id": id.String(),
				"from":            intervention.Status.String(),
				"to":              target.String(),
			})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var settledAt *time.Time
		if target == enums.InterventionStatusDone {
			now := time.Now()
			settledAt = &now
		}
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, id, intervention.Status, target, settledAt); err != nil {
			return err
		}

		switch target {
		case enums.InterventionStatusDone:
			result, err := s.reserver.Settle(ctx, tx, id)
			if err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInterventionSettled,
				AggregateType: enums.AggregateIntervention,
				AggregateID:   id,
				Version:       1,
				Data: SettledEvent{
					InterventionID: id,
					Number:         intervention.Number,
					Consumed:       result.Consumed,
					Returned:       result.Returned,
					SettledAt:      *settledAt,
				},
			})
		case enums.InterventionStatusCanceled:
			result, err := s.reserver.Release(ctx, tx, id)
			if err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInterventionReleased,
				AggregateType: enums.AggregateIntervention,
				AggregateID:   id,
				Version:       1,
				Data: ReleasedEvent{
					InterventionID: id,
					Number:         intervention.Number,
					Released:       result.Released,
				},
			})
		default:
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithInterventionID(ctx, id.String())
		s.logg.Info(logCtx, "intervention status changed to "+target.String())
	}
	return s.repo.FindByID(ctx, id)
}
