package documents

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
)

func TestCreateQuoteComputesTotalsAndMintsNumber(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	quote, err := svc.CreateQuote(ctx, CreateQuoteInput{
		Lines: []QuoteLineInput{
			{
				Label:            "heat pump",
				Role:             enums.LineRoleMaterial,
				Quantity:         decimal.NewFromInt(1),
				UnitPriceExclTax: decimal.NewFromInt(2400),
				TaxRatePercent:   decimal.NewFromInt(20),
			},
			{
				Label:            "installation",
				Quantity:         decimal.NewFromInt(6),
				UnitPriceExclTax: decimal.NewFromInt(80),
				TaxRatePercent:   decimal.NewFromInt(20),
				DiscountValue:    decimal.NewFromInt(10),
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "QUO-000001", quote.Number)
	require.Equal(t, enums.QuoteStatusDraft, quote.Status)
	require.Len(t, quote.Lines, 2)

	// Role defaults to service, discount kind to percent.
	require.Equal(t, enums.LineRoleService, quote.Lines[1].Role)
	require.Equal(t, enums.DiscountKindPercent, quote.Lines[1].DiscountKind)

	// 6 x 80 = 480, minus 10% = 432, plus 20% tax = 518.40
	require.True(t, quote.Lines[1].TotalExclTax.Equal(decimal.RequireFromString("432")))
	require.True(t, quote.Lines[1].TotalInclTax.Equal(decimal.RequireFromString("518.4")))

	var stored models.Quote
	require.NoError(t, db.Preload("Lines").First(&stored, "id = ?", quote.ID).Error)
	require.Len(t, stored.Lines, 2)

	second, err := svc.CreateQuote(ctx, CreateQuoteInput{
		Lines: []QuoteLineInput{{
			Label:            "filter",
			Quantity:         decimal.NewFromInt(1),
			UnitPriceExclTax: decimal.NewFromInt(40),
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "QUO-000002", second.Number)
}

func TestCreateQuoteRejectsInvalidLines(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateQuote(ctx, CreateQuoteInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateQuote(ctx, CreateQuoteInput{
		Lines: []QuoteLineInput{{Quantity: decimal.NewFromInt(1)}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.CreateQuote(ctx, CreateQuoteInput{
		Lines: []QuoteLineInput{{Label: "zero qty"}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestTransitionQuoteStatus(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	quote, err := svc.CreateQuote(ctx, CreateQuoteInput{
		Lines: []QuoteLineInput{{
			Label:            "survey",
			Quantity:         decimal.NewFromInt(1),
			UnitPriceExclTax: decimal.NewFromInt(150),
		}},
	})
	require.NoError(t, err)

	sent, err := svc.TransitionQuoteStatus(ctx, quote.ID, enums.QuoteStatusSent)
	require.NoError(t, err)
	require.Equal(t, enums.QuoteStatusSent, sent.Status)

	// converted is never a manual target.
	_, err = svc.TransitionQuoteStatus(ctx, quote.ID, enums.QuoteStatusConverted)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	accepted, err := svc.TransitionQuoteStatus(ctx, quote.ID, enums.QuoteStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, enums.QuoteStatusAccepted, accepted.Status)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db := setupDocumentsDB(t)
	svc, err := NewService(
		NewQuoteRepository(db),
		NewInvoiceRepository(db),
		gormTxRunner{db: db},
		NewNumberAllocator(db),
		nil,
	)
	require.NoError(t, err)
	return svc, db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func setupDocumentsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:documents_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE quotes (
  id TEXT PRIMARY KEY,
  number TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'draft',
  client_ref TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE quote_lines (
  id TEXT PRIMARY KEY,
  quote_id TEXT NOT NULL,
  inventory_item_id TEXT,
  role TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  label TEXT NOT NULL,
  unit TEXT NOT NULL DEFAULT 'unit',
  quantity NUMERIC NOT NULL,
  unit_price_excl_tax NUMERIC NOT NULL DEFAULT 0,
  tax_rate_percent NUMERIC NOT NULL DEFAULT 0,
  discount_value NUMERIC NOT NULL DEFAULT 0,
  discount_kind TEXT NOT NULL DEFAULT 'percent',
  base_amount NUMERIC NOT NULL DEFAULT 0,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  total_excl_tax NUMERIC NOT NULL DEFAULT 0,
  total_tax NUMERIC NOT NULL DEFAULT 0,
  total_incl_tax NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE invoices (
  id TEXT PRIMARY KEY,
  number TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'draft',
  client_ref TEXT,
  source_quote_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE invoice_lines (
  id TEXT PRIMARY KEY,
  invoice_id TEXT NOT NULL,
  inventory_item_id TEXT,
  role TEXT NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  label TEXT NOT NULL,
  unit TEXT NOT NULL DEFAULT 'unit',
  quantity NUMERIC NOT NULL,
  unit_price_excl_tax NUMERIC NOT NULL DEFAULT 0,
  tax_rate_percent NUMERIC NOT NULL DEFAULT 0,
  discount_value NUMERIC NOT NULL DEFAULT 0,
  discount_kind TEXT NOT NULL DEFAULT 'percent',
  base_amount NUMERIC NOT NULL DEFAULT 0,
  discount_amount NUMERIC NOT NULL DEFAULT 0,
  total_excl_tax NUMERIC NOT NULL DEFAULT 0,
  total_tax NUMERIC NOT NULL DEFAULT 0,
  total_incl_tax NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE document_sequences (
  kind TEXT PRIMARY KEY,
  next_number INTEGER NOT NULL DEFAULT 1,
  prefix TEXT NOT NULL
);`, `
INSERT INTO document_sequences (kind, next_number, prefix) VALUES
  ('quote', 1, 'QUO'),
  ('invoice', 1, 'INV'),
  ('intervention', 1, 'ITV');`}

	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
