package documents

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/internal/pricing"
	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
	"github.com/gestiq/gestiq-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes quote authoring and the invoice read surface. Quotes are
// the only document authored directly; invoices come from conversions.
type Service interface {
	CreateQuote(ctx context.Context, input CreateQuoteInput) (*models.Quote, error)
	GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	ListQuotes(ctx context.Context, params pagination.Params) ([]models.Quote, error)
	TransitionQuoteStatus(ctx context.Context, id uuid.UUID, target enums.QuoteStatus) (*models.Quote, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, params pagination.Params) ([]models.Invoice, error)
}

// CreateQuoteInput describes a new quote with its ordered lines.
type CreateQuoteInput struct {
	ClientRef *string
	Lines     []QuoteLineInput
}

// QuoteLineInput carries the pricing inputs for one quote line. Stored
// totals are always recomputed server-side.
type QuoteLineInput struct {
	InventoryItemID  *uuid.UUID
	Role             enums.LineRole
	Label            string
	Unit             string
	Quantity         decimal.Decimal
	UnitPriceExclTax decimal.Decimal
	TaxRatePercent   decimal.Decimal
	DiscountValue    decimal.Decimal
	DiscountKind     enums.DiscountKind
}

type service struct {
	quotes   QuoteRepository
	invoices InvoiceRepository
	tx       txRunner
	numbers  *NumberAllocator
	logg     *logger.Logger
}

// NewService wires the documents service with its dependencies.
func NewService(quotes QuoteRepository, invoices InvoiceRepository, tx txRunner, numbers *NumberAllocator, logg *logger.Logger) (Service, error) {
	if quotes == nil {
		return nil, fmt.Errorf("quote repository required")
	}
	if invoices == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if numbers == nil {
		return nil, fmt.Errorf("number allocator required")
	}
	return &service{quotes: quotes, invoices: invoices, tx: tx, numbers: numbers, logg: logg}, nil
}

func (s *service) CreateQuote(ctx context.Context, input CreateQuoteInput) (*models.Quote, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote requires at least one line")
	}

	lines := make([]models.QuoteLine, 0, len(input.Lines))
	for i, in := range input.Lines {
		if in.Label == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d requires a label", i))
		}
		if in.Quantity.Sign() <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d requires a positive quantity", i))
		}
		role := in.Role
		if role == "" {
			role = enums.LineRoleService
		}
		if !role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d has invalid role %q", i, in.Role))
		}
		unit := in.Unit
		if unit == "" {
			unit = "unit"
		}
		kind := in.DiscountKind
		if kind == "" {
			kind = enums.DiscountKindPercent
		}
		if !kind.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d has invalid discount kind %q", i, in.DiscountKind))
		}

		line := models.QuoteLine{
			InventoryItemID: in.InventoryItemID,
			Role:            role,
			Position:        i,
			PricingFields: models.PricingFields{
				Label:            in.Label,
				Unit:             unit,
				Quantity:         in.Quantity,
				UnitPriceExclTax: in.UnitPriceExclTax,
				TaxRatePercent:   in.TaxRatePercent,
				DiscountValue:    in.DiscountValue,
				DiscountKind:     kind,
			},
		}
		pricing.ApplyToFields(&line.PricingFields)
		lines = append(lines, line)
	}

	quote := &models.Quote{
		Status:    enums.QuoteStatusDraft,
		ClientRef: input.ClientRef,
		Lines:     lines,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.numbers.Next(ctx, tx, enums.DocumentKindQuote)
		if err != nil {
			return err
		}
		quote.Number = number
		return s.quotes.WithTx(tx).Create(ctx, quote)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"quote_id": quote.ID.String(),
			"number":   quote.Number,
		})
		s.logg.Info(logCtx, "quote created")
	}
	return quote, nil
}

func (s *service) GetQuote(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	return s.quotes.FindByID(ctx, id)
}

func (s *service) ListQuotes(ctx context.Context, params pagination.Params) ([]models.Quote, error) {
	return s.quotes.List(ctx, pagination.Normalize(params))
}

func (s *service) TransitionQuoteStatus(ctx context.Context, id uuid.UUID, target enums.QuoteStatus) (*models.Quote, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quote id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quote status %q", target))
	}

	quote, err := s.quotes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !quote.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("quote cannot move from %s to %s", quote.Status, target))
	}

	if err := s.quotes.UpdateStatus(ctx, id, quote.Status, target); err != nil {
		return nil, err
	}
	return s.quotes.FindByID(ctx, id)
}

func (s *service) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	return s.invoices.FindByID(ctx, id)
}

func (s *service) ListInvoices(ctx context.Context, params pagination.Params) ([]models.Invoice, error) {
	return s.invoices.List(ctx, pagination.Normalize(params))
}
