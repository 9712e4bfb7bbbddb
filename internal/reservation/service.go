// Package reservation drives the stock lifecycle of intervention lines:
// unreserved -> reserved -> consumed | returned | released. Every stock
// mutation goes through the conditional-update primitive in
// internal/inventory and runs inside the caller's transaction together with
// its ledger entry.
package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/internal/inventory"
	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
	"github.com/gestiq/gestiq-backend/pkg/metrics"
)

// SourceKindIntervention marks ledger entries created by intervention lines.
const SourceKindIntervention = "intervention"

// LineStore is the slice of intervention-line persistence the state machine
// needs. internal/interventions implements it.
type LineStore interface {
	WithTx(tx *gorm.DB) LineStore
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.InterventionLine, error)
	ListLinesByState(ctx context.Context, interventionID uuid.UUID, state enums.ReservationState) ([]models.InterventionLine, error)
	UpdateLineReservation(ctx context.Context, lineID uuid.UUID, from, to enums.ReservationState, movementID *uuid.UUID) error
}

// Service is the reservation state machine. All methods expect to run inside
// the transaction passed by the orchestrating caller.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*ReserveResult, error)
	AdjustReservation(ctx context.Context, tx *gorm.DB, lineID uuid.UUID, newQuantity decimal.Decimal, confirmShortfall bool) (*ReserveResult, error)
	Settle(ctx context.Context, tx *gorm.DB, interventionID uuid.UUID) (*SettleResult, error)
	Release(ctx context.Context, tx *gorm.DB, interventionID uuid.UUID) (*ReleaseResult, error)
	ReleaseLine(ctx context.Context, tx *gorm.DB, lineID uuid.UUID) error
}

// ReserveInput identifies the line to hold stock for. ConfirmShortfall is the
// operator's explicit approval to reserve past availability; without it a
// shortfall surfaces as a confirmable INSUFFICIENT_STOCK error, never a
// silent block or override.
type ReserveInput struct {
	LineID           uuid.UUID
	ConfirmShortfall bool
}

// Shortfall describes how far a reservation exceeds availability.
type Shortfall struct {
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
	Missing   decimal.Decimal `json:"missing"`
}

// ReserveResult is the authoritative post-operation state for the caller to
// render; no re-fetch side effects happen inside the service.
type ReserveResult struct {
	LineID       uuid.UUID              `json:"line_id"`
	State        enums.ReservationState `json:"state"`
	MovementID   uuid.UUID              `json:"movement_id"`
	Availability inventory.Availability `json:"availability"`
	Shortfall    *Shortfall             `json:"shortfall,omitempty"`
}

// SettleResult summarizes a completed settlement.
type SettleResult struct {
	Consumed int `json:"consumed"`
	Returned int `json:"returned"`
}

// ReleaseResult summarizes a release of all reservations.
type ReleaseResult struct {
	Released int `json:"released"`
}

type service struct {
	lines LineStore
	items inventory.Repository
	logg  *logger.Logger
	stock *metrics.StockMetrics
}

// NewService builds the reservation state machine.
func NewService(lines LineStore, items inventory.Repository, logg *logger.Logger, stock *metrics.StockMetrics) (Service, error) {
	if lines == nil {
		return nil, fmt.Errorf("line store required")
	}
	if items == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{lines: lines, items: items, logg: logg, stock: stock}, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*ReserveResult, error) {
	if input.LineID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line id required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}

	lines := s.lines.WithTx(tx)
	items := s.items.WithTx(tx)

	line, err := lines.FindLine(ctx, input.LineID)
	if err != nil {
		s.stock.IncOperation("reserve", "error")
		return nil, err
	}
	if !line.StockBacked() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line has no stock effect")
	}
	if line.ReservationState != enums.ReservationStateUnreserved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "line is not unreserved").
			WithDetails(map[string]any{"line_id": line.ID.String(), "state": line.ReservationState.String()})
	}
	if line.Quantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result, err := s.hold(ctx, tx, line, line.Quantity, input.ConfirmShortfall)
	if err != nil {
		s.stock.IncOperation("reserve", outcomeFor(err))
		return nil, err
	}

	movementID := result.MovementID
	if err := lines.UpdateLineReservation(ctx, line.ID, enums.ReservationStateUnreserved, enums.ReservationStateReserved, &movementID); err != nil {
		s.stock.IncOperation("reserve", "conflict")
		return nil, err
	}

	availability, err := items.GetAvailability(ctx, *line.InventoryItemID)
	if err != nil {
		return nil, err
	}
	result.Availability = *availability

	s.stock.IncOperation("reserve", "ok")
	return result, nil
}

// hold applies the reserved-quantity delta and appends the planned movement.
// Both writes ride the caller's transaction: either the item delta and the
// ledger entry land together or neither does.
func (s *service) hold(ctx context.Context, tx *gorm.DB, line *models.InterventionLine, quantity decimal.Decimal, confirmShortfall bool) (*ReserveResult, error) {
	items := s.items.WithTx(tx)

	availability, err := items.GetAvailability(ctx, *line.InventoryItemID)
	if err != nil {
		return nil, err
	}

	var shortfall *Shortfall
	if availability.Available.LessThan(quantity) {
		shortfall = &Shortfall{
			Requested: quantity,
			Available: availability.Available,
			Missing:   quantity.Sub(availability.Available),
		}
		if !confirmShortfall {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "available stock below requested quantity").
				WithDetails(map[string]any{
					"line_id":   line.ID.String(),
					"item_id":   line.InventoryItemID.String(),
					"requested": shortfall.Requested.String(),
					"available": shortfall.Available.String(),
					"missing":   shortfall.Missing.String(),
				})
		}
		s.stock.IncShortfallConfirmed()
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"line_id": line.ID.String(),
				"item_id": line.InventoryItemID.String(),
				"missing": shortfall.Missing.String(),
			})
			s.logg.Warn(logCtx, "reservation confirmed past available stock")
		}
	}

	if err := items.ApplyDelta(ctx, *line.InventoryItemID, decimal.Zero, quantity); err != nil {
		return nil, err
	}

	movement := &models.StockMovement{
		ItemID:      *line.InventoryItemID,
		Direction:   enums.MovementDirectionOut,
		Quantity:    quantity,
		SourceKind:  SourceKindIntervention,
		SourceID:    line.InterventionID,
		Status:      enums.MovementStatusPlanned,
		ScheduledAt: time.Now(),
	}
	if shortfall != nil {
		note := fmt.Sprintf("shortfall of %s confirmed by operator", shortfall.Missing)
		movement.Note = &note
	}
	if err := items.AppendMovement(ctx, movement); err != nil {
		return nil, err
	}

	return &ReserveResult{
		LineID:     line.ID,
		State:      enums.ReservationStateReserved,
		MovementID: movement.ID,
		Shortfall:  shortfall,
	}, nil
}

// AdjustReservation re-sizes an existing hold after a quantity edit: the old
// planned movement is canceled, its hold returned, and a fresh hold is taken
// for the new quantity. The ledger stays append-only.
func (s *service) AdjustReservation(ctx context.Context, tx *gorm.DB, lineID uuid.UUID, newQuantity decimal.Decimal, confirmShortfall bool) (*ReserveResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	if newQuantity.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	lines := s.lines.WithTx(tx)
	items := s.items.WithTx(tx)

	line, err := lines.FindLine(ctx, lineID)
	if err != nil {
		return nil, err
	}
	if line.ReservationState != enums.ReservationStateReserved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "line is not reserved").
			WithDetails(map[string]any{"line_id": line.ID.String(), "state": line.ReservationState.String()})
	}

	if err := items.ApplyDelta(ctx, *line.InventoryItemID, decimal.Zero, line.Quantity.Neg()); err != nil {
		return nil, err
	}
	if line.MovementID != nil {
		if err := items.UpdateMovementStatus(ctx, *line.MovementID, enums.MovementStatusCanceled); err != nil {
			return nil, err
		}
	}

	result, err := s.hold(ctx, tx, line, newQuantity, confirmShortfall)
	if err != nil {
		return nil, err
	}

	movementID := result.MovementID
	if err := lines.UpdateLineReservation(ctx, line.ID, enums.ReservationStateReserved, enums.ReservationStateReserved, &movementID); err != nil {
		return nil, err
	}

	availability, err := items.GetAvailability(ctx, *line.InventoryItemID)
	if err != nil {
		return nil, err
	}
	result.Availability = *availability
	return result, nil
}

// Settle realizes every reserved line when the intervention completes:
// consumables leave stock, materials return to the available pool, and the
// planned movements become done. Lines already terminal are skipped, so a
// retried status transition is a no-op rather than a double decrement. Any
// line failure aborts the whole transaction; the returned error lists every
// failing line.
func (s *service) Settle(ctx context.Context, tx *gorm.DB, interventionID uuid.UUID) (*SettleResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}

	lines := s.lines.WithTx(tx)
	reserved, err := lines.ListLinesByState(ctx, interventionID, enums.ReservationStateReserved)
	if err != nil {
		return nil, err
	}

	result := &SettleResult{}
	var failures error
	for _, line := range reserved {
		if err := s.settleLine(ctx, tx, line, result); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("line %s: %w", line.ID, err))
		}
	}
	if failures != nil {
		s.stock.IncOperation("settle", "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, failures, "settlement incomplete, intervention not done").
			WithDetails(map[string]any{"intervention_id": interventionID.String()})
	}

	s.stock.IncOperation("settle", "ok")
	s.stock.IncSettledLines(enums.LineRoleConsumable.String(), result.Consumed)
	s.stock.IncSettledLines(enums.LineRoleMaterial.String(), result.Returned)
	return result, nil
}

func (s *service) settleLine(ctx context.Context, tx *gorm.DB, line models.InterventionLine, result *SettleResult) error {
	items := s.items.WithTx(tx)
	lines := s.lines.WithTx(tx)

	var (
		onHandDelta decimal.Decimal
		target      enums.ReservationState
	)
	switch line.Role {
	case enums.LineRoleConsumable:
		// Consumed on site: leaves stock and clears the hold.
		onHandDelta = line.Quantity.Neg()
		target = enums.ReservationStateConsumed
	case enums.LineRoleMaterial:
		// Brought back: only the hold clears, on-hand is untouched.
		onHandDelta = decimal.Zero
		target = enums.ReservationStateReturned
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "service line cannot hold a reservation")
	}

	if err := items.ApplyDelta(ctx, *line.InventoryItemID, onHandDelta, line.Quantity.Neg()); err != nil {
		return err
	}
	if line.MovementID != nil {
		if err := items.UpdateMovementStatus(ctx, *line.MovementID, enums.MovementStatusDone); err != nil {
			return err
		}
	}
	if err := lines.UpdateLineReservation(ctx, line.ID, enums.ReservationStateReserved, target, line.MovementID); err != nil {
		return err
	}

	if target == enums.ReservationStateConsumed {
		result.Consumed++
	} else {
		result.Returned++
	}
	return nil
}

// Release drops every open hold when the intervention is canceled. Terminal
// lines are skipped; settle and release can never both touch the same line
// because each requires the reserved state.
func (s *service) Release(ctx context.Context, tx *gorm.DB, interventionID uuid.UUID) (*ReleaseResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}

	lines := s.lines.WithTx(tx)
	reserved, err := lines.ListLinesByState(ctx, interventionID, enums.ReservationStateReserved)
	if err != nil {
		return nil, err
	}

	result := &ReleaseResult{}
	var failures error
	for _, line := range reserved {
		if err := s.releaseLine(ctx, tx, line); err != nil {
			failures = multierr.Append(failures, fmt.Errorf("line %s: %w", line.ID, err))
			continue
		}
		result.Released++
	}
	if failures != nil {
		s.stock.IncOperation("release", "error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, failures, "release incomplete, intervention not canceled").
			WithDetails(map[string]any{"intervention_id": interventionID.String()})
	}

	s.stock.IncOperation("release", "ok")
	return result, nil
}

// ReleaseLine drops the hold of a single reserved line, the prerequisite for
// deleting it.
func (s *service) ReleaseLine(ctx context.Context, tx *gorm.DB, lineID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required")
	}
	line, err := s.lines.WithTx(tx).FindLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.ReservationState != enums.ReservationStateReserved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "line is not reserved").
			WithDetails(map[string]any{"line_id": line.ID.String(), "state": line.ReservationState.String()})
	}
	return s.releaseLine(ctx, tx, *line)
}

func (s *service) releaseLine(ctx context.Context, tx *gorm.DB, line models.InterventionLine) error {
	items := s.items.WithTx(tx)
	lines := s.lines.WithTx(tx)

	if err := items.ApplyDelta(ctx, *line.InventoryItemID, decimal.Zero, line.Quantity.Neg()); err != nil {
		return err
	}
	if line.MovementID != nil {
		if err := items.UpdateMovementStatus(ctx, *line.MovementID, enums.MovementStatusCanceled); err != nil {
			return err
		}
	}
	return lines.UpdateLineReservation(ctx, line.ID, enums.ReservationStateReserved, enums.ReservationStateReleased, line.MovementID)
}

func outcomeFor(err error) string {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock):
		return "shortfall"
	case pkgerrors.IsCode(err, pkgerrors.CodeConflict):
		return "conflict"
	default:
		return "error"
	}
}
