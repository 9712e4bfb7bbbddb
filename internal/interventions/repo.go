package interventions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gestiq/gestiq-backend/internal/reservation"
	"github.com/gestiq/gestiq-backend/pkg/db/models"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/pagination"
)

// Repository persists interventions and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, intervention *models.Intervention) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Intervention, error)
	List(ctx context.Context, params pagination.Params) ([]models.Intervention, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.InterventionStatus, settledAt *time.Time) error
	CreateLine(ctx context.Context, line *models.InterventionLine) error
	SaveLine(ctx context.Context, line *models.InterventionLine) error
	DeleteLine(ctx context.Context, lineID uuid.UUID) error
	FindLine(ctx context.Context, lineID uuid.UUID) (*models.InterventionLine, error)
	ListLines(ctx context.Context, interventionID uuid.UUID) ([]models.InterventionLine, error)
	CountLines(ctx context.Context, interventionID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an interventions repository bound to the provided
// database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, intervention *models.Intervention) error {
	if intervention.ID == uuid.Nil {
		intervention.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(intervention).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create intervention")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Intervention, error) {
	var intervention models.Intervention
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&intervention, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "intervention not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load intervention")
	}
	return &intervention, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Intervention, error) {
	var rows []models.Intervention
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC")
	if limit := pagination.NormalizeLimit(params.Limit); limit > 0 {
		query = query.Limit(limit).Offset(params.Offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list interventions")
	}
	return rows, nil
}

// UpdateStatus writes the transition conditionally on the expected current
// status so a concurrent transition loses cleanly instead of overwriting.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.InterventionStatus, settledAt *time.Time) error {
	updates := map[string]any{"status": to}
	if settledAt != nil {
		updates["settled_at"] = settledAt
	}
	res := r.db.WithContext(ctx).Model(&models.Intervention{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update intervention status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "intervention status changed concurrently").
			WithDetails(map[string]any{"intervention_id": id.String(), "expected": from.String()})
	}
	return nil
}

func (r *repository) CreateLine(ctx context.Context, line *models.InterventionLine) error {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create intervention line")
	}
	return nil
}

func (r *repository) SaveLine(ctx context.Context, line *models.InterventionLine) error {
	if err := r.db.WithContext(ctx).Save(line).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save intervention line")
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, lineID uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.InterventionLine{}, "id = ?", lineID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete intervention line")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "intervention line not found")
	}
	return nil
}

func (r *repository) FindLine(ctx context.Context, lineID uuid.UUID) (*models.InterventionLine, error) {
	var line models.InterventionLine
	if err := r.db.WithContext(ctx).First(&line, "id = ?", lineID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "intervention line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load intervention line")
	}
	return &line, nil
}

func (r *repository) ListLines(ctx context.Context, interventionID uuid.UUID) ([]models.InterventionLine, error) {
	var lines []models.InterventionLine
	err := r.db.WithContext(ctx).
		Where("intervention_id = ?", interventionID).
		Order("position ASC").
		Find(&lines).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list intervention lines")
	}
	return lines, nil
}

func (r *repository) CountLines(ctx context.Context, interventionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InterventionLine{}).
		Where("intervention_id = ?", interventionID).
		Count(&count).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count intervention lines")
	}
	return count, nil
}

// lineStore adapts the intervention-line table to the reservation state
// machine's store contract.
type lineStore struct {
	db *gorm.DB
}

// NewLineStore returns the reservation.LineStore backed by intervention lines.
func NewLineStore(db *gorm.DB) reservation.LineStore {
	return &lineStore{db: db}
}

func (s *lineStore) WithTx(tx *gorm.DB) reservation.LineStore {
	if tx == nil {
		return s
	}
	return &lineStore{db: tx}
}

func (s *lineStore) FindLine(ctx context.Context, lineID uuid.UUID) (*models.InterventionLine, error) {
	return (&repository{db: s.db}).FindLine(ctx, lineID)
}

func (s *lineStore) ListLinesByState(ctx context.Context, interventionID uuid.UUID, state enums.ReservationState) ([]models.InterventionLine, error) {
	var lines []models.InterventionLine
	err := s.db.WithContext(ctx).
		Where("intervention_id = ? AND reservation_state = ?", interventionID, state).
		Order("position ASC").
		Find(&lines).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list lines by reservation state")
	}
	return lines, nil
}

// UpdateLineReservation moves a line between reservation states conditionally
// on the expected current state. Zero rows means another transaction got
// there first.
func (s *lineStore) UpdateLineReservation(ctx context.Context, lineID uuid.UUID, from, to enums.ReservationState, movementID *uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.InterventionLine{}).
		Where("id = ? AND reservation_state = ?", lineID, from).
		Updates(map[string]any{"reservation_state": to, "movement_id": movementID})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update line reservation state")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "line reservation state changed concurrently").
			WithDetails(map[string]any{"line_id": lineID.String(), "expected": from.String()})
	}
	return nil
}
