package interventions

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/internal/documents"
	"github.com/gestiq/gestiq-backend/internal/inventory"
	"github.com/gestiq/gestiq-backend/internal/reservation"
	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/outbox"
)

func TestAddLinePrefillsFromCatalogAndReserves(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	itemID := f.seedItem("copper pipe", enums.ItemKindConsumable, 10, "100", "20")
	intervention := f.seedIntervention(enums.InterventionStatusToDo)

	result, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		InventoryItemID: &itemID,
		Quantity:        decimal.NewFromInt(3),
		DiscountValue:   decimal.NewFromInt(10),
		Reserve:         true,
	})
	require.NoError(t, err)

	line := result.Line
	require.Equal(t, "copper pipe", line.Label)
	require.Equal(t, enums.LineRoleConsumable, line.Role)
	require.True(t, line.UnitPriceExclTax.Equal(decimal.NewFromInt(100)))
	require.True(t, line.BaseAmount.Equal(decimal.NewFromInt(300)))
	require.True(t, line.DiscountAmount.Equal(decimal.NewFromInt(30)))
	require.True(t, line.TotalExclTax.Equal(decimal.NewFromInt(270)))
	require.True(t, line.TotalTax.Equal(decimal.NewFromInt(54)))
	require.True(t, line.TotalInclTax.Equal(decimal.NewFromInt(324)))
	require.Equal(t, enums.ReservationStateReserved, line.ReservationState)
	require.NotNil(t, result.Reservation)

	availability, err := f.items.GetAvailability(ctx, itemID)
	require.NoError(t, err)
	require.True(t, availability.Reserved.Equal(decimal.NewFromInt(3)))
}

func TestAddLineManualNeedsLabel(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	intervention := f.seedIntervention(enums.InterventionStatusToDo)

	_, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		Quantity: decimal.NewFromInt(1),
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateLineQuantityResizesReservation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	itemID := f.seedItem("cable tray", enums.ItemKindMaterial, 10, "40", "20")
	intervention := f.seedIntervention(enums.InterventionStatusToDo)

	added, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		InventoryItemID: &itemID,
		Quantity:        decimal.NewFromInt(4),
		Reserve:         true,
	})
	require.NoError(t, err)

	newQty := decimal.NewFromInt(2)
	updated, err := f.svc.UpdateLine(ctx, added.Line.ID, UpdateLineInput{Quantity: &newQty})
	require.NoError(t, err)
	require.True(t, updated.Line.Quantity.Equal(newQty))
	require.True(t, updated.Line.BaseAmount.Equal(decimal.NewFromInt(80)))
	require.NotNil(t, updated.Reservation)

	availability, err := f.items.GetAvailability(ctx, itemID)
	require.NoError(t, err)
	require.True(t, availability.Reserved.Equal(newQty))
}

func TestRemoveReservedLineReleasesHold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	itemID := f.seedItem("scaffold plank", enums.ItemKindMaterial, 5, "25", "20")
	intervention := f.seedIntervention(enums.InterventionStatusToDo)

	added, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		InventoryItemID: &itemID,
		Quantity:        decimal.NewFromInt(2),
		Reserve:         true,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveLine(ctx, added.Line.ID))

	availability, err := f.items.GetAvailability(ctx, itemID)
	require.NoError(t, err)
	require.True(t, availability.Reserved.IsZero())
	require.True(t, availability.OnHand.Equal(decimal.NewFromInt(5)))

	_, err = f.repo.FindLine(ctx, added.Line.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTransitionToDoneSettlesStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	itemID := f.seedItem("sealant", enums.ItemKindConsumable, 10, "12", "20")
	intervention := f.seedIntervention(enums.InterventionStatusInProgress)

	_, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		InventoryItemID: &itemID,
		Quantity:        decimal.NewFromInt(3),
		Reserve:         true,
	})
	require.NoError(t, err)

	done, err := f.svc.TransitionStatus(ctx, intervention.ID, enums.InterventionStatusDone)
	require.NoError(t, err)
	require.Equal(t, enums.InterventionStatusDone, done.Status)
	require.NotNil(t, done.SettledAt)

	availability, err := f.items.GetAvailability(ctx, itemID)
	require.NoError(t, err)
	require.True(t, availability.OnHand.Equal(decimal.NewFromInt(7)))
	require.True(t, availability.Reserved.IsZero())

	require.Len(t, f.events.emitted, 1)
	require.Equal(t, enums.EventInterventionSettled, f.events.emitted[0].EventType)

	// Terminal interventions accept no further transitions.
	_, err = f.svc.TransitionStatus(ctx, intervention.ID, enums.InterventionStatusCanceled)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestTransitionToDoneRollsBackWhenSettleFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	itemID := f.seedItem("copper pipe", enums.ItemKindConsumable, 10, "8", "20")
	intervention := f.seedIntervention(enums.InterventionStatusInProgress)

	_, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		InventoryItemID: &itemID,
		Quantity:        decimal.NewFromInt(3),
		Reserve:         true,
	})
	require.NoError(t, err)

	// With the item row gone the settlement delta matches zero rows, and the
	// failure must take the status write down with it.
	require.NoError(t, f.db.Delete(&models.InventoryItem{}, "id = ?", itemID).Error)

	_, err = f.svc.TransitionStatus(ctx, intervention.ID, enums.InterventionStatusDone)
	require.Error(t, err)

	reloaded, err := f.repo.FindByID(ctx, intervention.ID)
	require.NoError(t, err)
	require.Equal(t, enums.InterventionStatusInProgress, reloaded.Status)
	require.Nil(t, reloaded.SettledAt)

	var line models.InterventionLine
	require.NoError(t, f.db.First(&line, "intervention_id = ?", intervention.ID).Error)
	require.Equal(t, enums.ReservationStateReserved, line.ReservationState, "the hold must survive the failed settlement")

	require.Empty(t, f.events.emitted, "no settled event may land for a rolled-back transition")
}

func TestTransitionToCanceledReleasesStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	itemID := f.seedItem("scaffold plank", enums.ItemKindMaterial, 5, "25", "20")
	intervention := f.seedIntervention(enums.InterventionStatusToDo)

	_, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		InventoryItemID: &itemID,
		Quantity:        decimal.NewFromInt(2),
		Reserve:         true,
	})
	require.NoError(t, err)

	canceled, err := f.svc.TransitionStatus(ctx, intervention.ID, enums.InterventionStatusCanceled)
	require.NoError(t, err)
	require.Equal(t, enums.InterventionStatusCanceled, canceled.Status)

	availability, err := f.items.GetAvailability(ctx, itemID)
	require.NoError(t, err)
	require.True(t, availability.OnHand.Equal(decimal.NewFromInt(5)))
	require.True(t, availability.Reserved.IsZero())

	require.Len(t, f.events.emitted, 1)
	require.Equal(t, enums.EventInterventionReleased, f.events.emitted[0].EventType)
}

func TestTotalsSkipNonBillableLines(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	intervention := f.seedIntervention(enums.InterventionStatusToDo)

	price := decimal.NewFromInt(100)
	tax := decimal.NewFromInt(20)
	_, err := f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		Label:            "labor",
		Quantity:         decimal.NewFromInt(2),
		UnitPriceExclTax: &price,
		TaxRatePercent:   &tax,
	})
	require.NoError(t, err)

	notBillable := false
	warranty := decimal.NewFromInt(50)
	_, err = f.svc.AddLine(ctx, intervention.ID, AddLineInput{
		Label:            "warranty visit",
		Quantity:         decimal.NewFromInt(1),
		UnitPriceExclTax: &warranty,
		IsBillable:       &notBillable,
	})
	require.NoError(t, err)

	totals, err := f.svc.Totals(ctx, intervention.ID)
	require.NoError(t, err)
	require.Equal(t, 2, totals.LineCount)
	require.Equal(t, 2, totals.CountByRole[enums.LineRoleService.String()])
	require.True(t, totals.TotalExclTax.Equal(decimal.NewFromInt(200)))
	require.True(t, totals.TotalInclTax.Equal(decimal.NewFromInt(240)))
}

func TestCreateMintsSequentialNumbers(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, CreateInput{})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, CreateInput{})
	require.NoError(t, err)
	require.Equal(t, "ITV-000001", first.Number)
	require.Equal(t, "ITV-000002", second.Number)
}

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	svc    Service
	repo   Repository
	items  inventory.Repository
	events *stubPublisher
}

type stubPublisher struct {
	emitted []outbox.DomainEvent
}

func (p *stubPublisher) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	p.emitted = append(p.emitted, event)
	return nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r *gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupInterventionsDB(t)
	items := inventory.NewRepository(db)
	repo := NewRepository(db)
	events := &stubPublisher{}

	reserver, err := reservation.NewService(NewLineStore(db), items, nil, nil)
	require.NoError(t, err)

	svc, err := NewService(repo, items, reserver, &gormTxRunner{db: db}, events, documents.NewNumberAllocator(db), nil)
	require.NoError(t, err)

	return &fixture{t: t, db: db, svc: svc, repo: repo, items: items, events: events}
}

func (f *fixture) seedItem(name string, kind enums.ItemKind, onHand int64, price, taxRate string) uuid.UUID {
	f.t.Helper()

	item := &models.InventoryItem{
		ID:               uuid.New(),
		Name:             name,
		Kind:             kind,
		OnHandQty:        decimal.NewFromInt(onHand),
		UnitPriceExclTax: decimal.RequireFromString(price),
		TaxRatePercent:   decimal.RequireFromString(taxRate),
	}
	require.NoError(f.t, f.db.Create(item).Error)
	return item.ID
}

func (f *fixture) seedIntervention(status enums.InterventionStatus) *models.Intervention {
	f.t.Helper()

	intervention := &models.Intervention{
		ID:     uuid.New(),
		Number: "ITV-" + uuid.NewString()[:8],
		Status: status,
	}
	require.NoError(f.t, f.db.Create(intervention).Error)
	return intervention
}

func setupInterventionsDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:interventions_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{`
CREATE TABLE inventory_items (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  sku TEXT,
  kind TEXT NOT NULL,
  on_hand_qty NUMERIC NOT NULL DEFAULT 0,
  reserved_qty NUMERIC NOT NULL DEFAULT 0,
  unit_price_excl_tax NUMERIC NOT NULL DEFAULT 0,
  tax_rate_percent NUMERIC NOT NULL DEFAULT 0,
  location TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE stock_movements (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  direction TEXT NOT NULL,
  quantity NUMERIC NOT NULL,
  source_kind TEXT NOT NULL,
  source_id TEXT NOT NULL,
  status TEXT NOT NULL,
  scheduled_at DATETIME NOT NULL,
  note TEXT,
  created_at DATETIME
);`, `
CREATE TABLE interventions (
  id TEXT PRIMARY KEY,
  number TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'to_schedule',
  client_ref TEXT,
  scheduled_at DATETIME,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE intervention_lines (
  id TEXT PRIMARY KEY,
  intervention_id TEXT NOT NULL,
  inventory_item_id TEXT,
  role TEXT NOT NULL,
  assigned_employee_id TEXT,
  is_billable INTEGER NOT NULL DEFAULT 1,
  reservation_state TEXT NOT NULL DEFAULT 'unreserved',
  movement_id TEXT,
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
INSERT INTO document_sequences (kind, next_number, prefix)
VALUES ('intervention', 1, 'ITV'), ('invoice', 1, 'INV'), ('quote', 1, 'QUO');`}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}
