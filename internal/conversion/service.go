// Package conversion copies a quote's priced line set into a new invoice or
// intervention. Lines get fresh identities and recomputed totals; movement
// history is never copied, and quote→intervention reservations go through
// the same state machine as a manually added line.
package conversion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/internal/documents"
	"github.com/gestiq/gestiq-backend/internal/interventions"
	"github.com/gestiq/gestiq-backend/internal/pricing"
	"github.com/gestiq/gestiq-backend/internal/reservation"
	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
	"github.com/gestiq/gestiq-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type numberAllocator interface {
	Next(ctx context.Context, tx *gorm.DB, kind enums.DocumentKind) (string, error)
}

// Service converts quotes into invoices or interventions.
type Service interface {
	Convert(ctx context.Context, input ConvertInput) (*Result, error)
}

// ConvertInput names the quote and the document kind to produce.
type ConvertInput struct {
	QuoteID    uuid.UUID
	TargetKind enums.DocumentKind
}

// LineWarning reports a line that converted but could not be reserved.
type LineWarning struct {
	LineID  uuid.UUID       `json:"line_id"`
	ItemID  uuid.UUID       `json:"item_id"`
	Missing decimal.Decimal `json:"missing"`
	Reason  string          `json:"reason"`
}

// Result summarizes a conversion for caller confirmation: the new document,
// per-role line counts, and any reservation warnings. Warnings do not fail
// the conversion; the affected lines land unreserved.
type Result struct {
	TargetKind  enums.DocumentKind `json:"target_kind"`
	TargetID    uuid.UUID          `json:"target_id"`
	Number      string             `json:"number"`
	LinesByRole map[string]int     `json:"lines_by_role"`
	Reserved    int                `json:"reserved"`
	Warnings    []LineWarning      `json:"warnings,omitempty"`
}

// ConvertedEvent is emitted when a quote becomes another document.
type ConvertedEvent struct {
	QuoteID    uuid.UUID          `json:"quote_id"`
	TargetKind enums.DocumentKind `json:"target_kind"`
	TargetID   uuid.UUID          `json:"target_id"`
	Number     string             `json:"number"`
	LineCount  int                `json:"line_count"`
}

type service struct {
	quotes        documents.QuoteRepository
	invoices      documents.InvoiceRepository
	interventions interventions.Repository
	reserver      reservation.Service
	tx            txRunner
	outbox        outboxPublisher
	numbers       numberAllocator
	logg          *logger.Logger
}

// NewService wires the conversion service with its dependencies.
func NewService(
	quotes documents.QuoteRepository,
	invoices documents.InvoiceRepository,
	interventionRepo interventions.Repository,
	reserver reservation.Service,
	tx txRunner,
	publisher outboxPublisher,
	numbers numberAllocator,
	logg *logger.Logger,
) (Service, error) {
	if quotes == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if invoices == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if interventionRepo == nil {
		return nil, fmt.Errorf("interventions repository required")
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
		quotes:        quotes,
		invoices:      invoices,
		interventions: interventionRepo,
		reserver:      reserver,
		tx:            tx,
		outbox:        publisher,
		numbers:       numbers,
		logg:          logg,
	}, nil
}

// Convert runs in a single transaction: the new document, all its lines, any
// reservations, and the quote's status flip to converted land together or
// not at all. A line that cannot be copied fails the whole conversion rather
// than being silently dropped.
func (s *service) Convert(ctx context.Context, input ConvertInput) (*Result, error) {
	if input.QuoteID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if input.TargetKind != enums.DocumentKindInvoice && input.TargetKind != enums.DocumentKindIntervention {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversion target must be invoice or intervention")
	}

	quote, err := s.quotes.FindByID(ctx, input.QuoteID)
	if err != nil {
		return nil, err
	}
	if !quote.Status.Convertible() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quote cannot be converted").
			WithDetails(map[string]any{"quote_id": quote.ID.String(), "status": quote.Status.String()})
	}
	if len(quote.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote has no lines")
	}

	result := &Result{
		TargetKind:  input.TargetKind,
		LinesByRole: map[string]int{},
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbers.Next(ctx, tx, input.TargetKind)
		if err != nil {
			return err
		}
		result.Number = number

		switch input.TargetKind {
		case enums.DocumentKindInvoice:
			if err := s.convertToInvoice(ctx, tx, quote, number, result); err != nil {
				return err
			}
		case enums.DocumentKindIntervention:
			if err := s.convertToIntervention(ctx, tx, quote, number, result); err != nil {
				return err
			}
		}

		if err := s.quotes.WithTx(tx).UpdateStatus(ctx, quote.ID, quote.Status, enums.QuoteStatusConverted); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDocumentConverted,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Version:       1,
			Data: ConvertedEvent{
				QuoteID:    quote.ID,
				TargetKind: input.TargetKind,
				TargetID:   result.TargetID,
				Number:     number,
				LineCount:  len(quote.Lines),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"quote_id":    quote.ID.String(),
			"target_kind": input.TargetKind.String(),
			"number":      result.Number,
		})
		s.logg.Info(logCtx, "quote converted")
	}
	return result, nil
}

func (s *service) convertToInvoice(ctx context.Context, tx *gorm.DB, quote *models.Quote, number string, result *Result) error {
	invoice := &models.Invoice{
		Number:        number,
		Status:        enums.InvoiceStatusDraft,
		ClientRef:     quote.ClientRef,
		SourceQuoteID: &quote.ID,
	}
	for i, src := range quote.Lines {
		fields := copyPricingInputs(src.PricingFields)
		pricing.ApplyToFields(&fields)
		invoice.Lines = append(invoice.Lines, models.InvoiceLine{
			InventoryItemID: src.InventoryItemID,
			Role:            src.Role,
			Position:        i,
			PricingFields:   fields,
		})
		result.LinesByRole[src.Role.String()]++
	}
	if err := s.invoices.WithTx(tx).Create(ctx, invoice); err != nil {
		return err
	}
	result.TargetID = invoice.ID
	return nil
}

func (s *service) convertToIntervention(ctx context.Context, tx *gorm.DB, quote *models.Quote, number string, result *Result) error {
	repo := s.interventions.WithTx(tx)

	intervention := &models.Intervention{
		Number:    number,
		Status:    enums.InterventionStatusToSchedule,
		ClientRef: quote.ClientRef,
	}
	if err := repo.Create(ctx, intervention); err != nil {
		return err
	}
	result.TargetID = intervention.ID

	for i, src := range quote.Lines {
		fields := copyPricingInputs(src.PricingFields)
		pricing.ApplyToFields(&fields)
		line := &models.InterventionLine{
			InterventionID:   intervention.ID,
			InventoryItemID:  src.InventoryItemID,
			Role:             src.Role,
			IsBillable:       true,
			ReservationState: enums.ReservationStateUnreserved,
			Position:         i,
			PricingFields:    fields,
		}
		if err := repo.CreateLine(ctx, line); err != nil {
			return err
		}
		result.LinesByRole[src.Role.String()]++

		if !line.StockBacked() {
			continue
		}
		if _, err := s.reserver.Reserve(ctx, tx, reservation.ReserveInput{LineID: line.ID}); err != nil {
			// A shortfall leaves the line unreserved and is reported;
			// anything else fails the conversion with the line named.
			typed := pkgerrors.As(err)
			if typed != nil && typed.Code() == pkgerrors.CodeInsufficientStock {
				result.Warnings = append(result.Warnings, shortfallWarning(line, typed))
				continue
			}
			return pkgerrors.Wrap(pkgerrors.CodeConversionPartial, err, "reserve converted line").
				WithDetails(map[string]any{
					"line_id": line.ID.String(),
					"label":   line.Label,
				})
		}
		result.Reserved++
	}
	return nil
}

func shortfallWarning(line *models.InterventionLine, err *pkgerrors.Error) LineWarning {
	warning := LineWarning{
		LineID: line.ID,
		ItemID: *line.InventoryItemID,
		Reason: err.Message(),
	}
	if details, ok := err.Details().(map[string]any); ok {
		if raw, ok := details["missing"].(string); ok {
			if missing, perr := decimal.NewFromString(raw); perr == nil {
				warning.Missing = missing
			}
		}
	}
	return warning
}

// copyPricingInputs carries the five inputs only; stored totals are
// recomputed, never trusted across documents.
func copyPricingInputs(src models.PricingFields) models.PricingFields {
	return models.PricingFields{
		Label:            src.Label,
		Unit:             src.Unit,
		Quantity:         src.Quantity,
		UnitPriceExclTax: src.UnitPriceExclTax,
		TaxRatePercent:   src.TaxRatePercent,
		DiscountValue:    src.DiscountValue,
		DiscountKind:     src.DiscountKind,
	}
}
