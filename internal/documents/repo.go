// Package documents persists quotes and invoices and mints their numbers.
// Both document kinds share the line pricing shape but never touch stock;
// stock effects happen only when a quote becomes an intervention (see
// internal/conversion).
package documents

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/pkg/db"
	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/pagination"
)

// QuoteRepository persists quotes with their lines.
type QuoteRepository interface {
	WithTx(tx *gorm.DB) QuoteRepository
	Create(ctx context.Context, quote *models.Quote) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error)
	List(ctx context.Context, params pagination.Params) ([]models.Quote, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus) error
}

// InvoiceRepository persists invoices with their lines.
type InvoiceRepository interface {
	WithTx(tx *gorm.DB) InvoiceRepository
	Create(ctx context.Context, invoice *models.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, params pagination.Params) ([]models.Invoice, error)
}

type quoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository returns a quote repository bound to the provided
// database.
func NewQuoteRepository(db *gorm.DB) QuoteRepository {
	return &quoteRepository{db: db}
}

func (r *quoteRepository) WithTx(tx *gorm.DB) QuoteRepository {
	if tx == nil {
		return r
	}
	return &quoteRepository{db: tx}
}

func (r *quoteRepository) Create(ctx context.Context, quote *models.Quote) error {
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	for i := range quote.Lines {
		if quote.Lines[i].ID == uuid.Nil {
			quote.Lines[i].ID = uuid.New()
		}
		quote.Lines[i].QuoteID = quote.ID
	}
	if err := r.db.WithContext(ctx).Create(quote).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "quote number already allocated").
				WithDetails(map[string]any{"number": quote.Number})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create quote")
	}
	return nil
}

func (r *quoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Quote, error) {
	var quote models.Quote
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&quote, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "quote not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load quote")
	}
	return &quote, nil
}

func (r *quoteRepository) List(ctx context.Context, params pagination.Params) ([]models.Quote, error) {
	var rows []models.Quote
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit := pagination.NormalizeLimit(params.Limit); limit > 0 {
		query = query.Limit(limit).Offset(params.Offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list quotes")
	}
	return rows, nil
}

// UpdateStatus writes a quote status transition conditionally on the current
// status, so converting the same quote twice fails instead of double-minting
// documents.
func (r *quoteRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.QuoteStatus) error {
	res := r.db.WithContext(ctx).Model(&models.Quote{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update quote status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "quote status changed concurrently").
			WithDetails(map[string]any{"quote_id": id.String(), "expected": from.String()})
	}
	return nil
}

type invoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository returns an invoice repository bound to the provided
// database.
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) WithTx(tx *gorm.DB) InvoiceRepository {
	if tx == nil {
		return r
	}
	return &invoiceRepository{db: tx}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	for i := range invoice.Lines {
		if invoice.Lines[i].ID == uuid.Nil {
			invoice.Lines[i].ID = uuid.New()
		}
		invoice.Lines[i].InvoiceID = invoice.ID
	}
	if err := r.db.WithContext(ctx).Create(invoice).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeConflict, "invoice number already allocated").
				WithDetails(map[string]any{"number": invoice.Number})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}
	return nil
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, params pagination.Params) ([]models.Invoice, error) {
	var rows []models.Invoice
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit := pagination.NormalizeLimit(params.Limit); limit > 0 {
		query = query.Limit(limit).Offset(params.Offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return rows, nil
}
