package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gestiq/gestiq-backend/api/responses"
	"github.com/gestiq/gestiq-backend/api/validators"
	"github.com/gestiq/gestiq-backend/internal/interventions"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
)

type createInterventionRequest struct {
	ClientRef   *string    `json:"client_ref" validate:"omitempty,max=200"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

func InterventionCreate(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createInterventionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intervention, err := svc.Create(r.Context(), interventions.CreateInput{
			ClientRef:   req.ClientRef,
			ScheduledAt: req.ScheduledAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intervention)
	}
}

func InterventionDetail(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "interventionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		intervention, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intervention)
	}
}

func InterventionList(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func InterventionTotals(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "interventionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		totals, err := svc.Totals(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, totals)
	}
}

type addLineRequest struct {
	Role               *string          `json:"role" validate:"omitempty,oneof=consumable material service"`
	InventoryItemID    *uuid.UUID       `json:"inventory_item_id"`
	Label              string           `json:"label" validate:"omitempty,max=200"`
	Unit               string           `json:"unit" validate:"omitempty,max=30"`
	Quantity           decimal.Decimal  `json:"quantity" validate:"required"`
	UnitPriceExclTax   *decimal.Decimal `json:"unit_price_excl_tax"`
	TaxRatePercent     *decimal.Decimal `json:"tax_rate_percent"`
	DiscountValue      decimal.Decimal  `json:"discount_value"`
	DiscountKind       string           `json:"discount_kind" validate:"omitempty,oneof=percent fixed"`
	IsBillable         *bool            `json:"is_billable"`
	AssignedEmployeeID *uuid.UUID       `json:"assigned_employee_id"`
	Reserve            bool             `json:"reserve"`
	ConfirmShortfall   bool             `json:"confirm_shortfall"`
}

func InterventionAddLine(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interventionID, err := parseUUIDParam(r, "interventionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := interventions.AddLineInput{
			InventoryItemID:    req.InventoryItemID,
			Label:              req.Label,
			Unit:               req.Unit,
			Quantity:           req.Quantity,
			UnitPriceExclTax:   req.UnitPriceExclTax,
			TaxRatePercent:     req.TaxRatePercent,
			DiscountValue:      req.DiscountValue,
			DiscountKind:       enums.DiscountKind(req.DiscountKind),
			IsBillable:         req.IsBillable,
			AssignedEmployeeID: req.AssignedEmployeeID,
			Reserve:            req.Reserve,
			ConfirmShortfall:   req.ConfirmShortfall,
		}
		if req.Role != nil {
			role := enums.LineRole(*req.Role)
			input.Role = &role
		}

		result, err := svc.AddLine(r.Context(), interventionID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type updateLineRequest struct {
	Label              *string          `json:"label" validate:"omitempty,max=200"`
	Unit               *string          `json:"unit" validate:"omitempty,max=30"`
	Quantity           *decimal.Decimal `json:"quantity"`
	UnitPriceExclTax   *decimal.Decimal `json:"unit_price_excl_tax"`
	TaxRatePercent     *decimal.Decimal `json:"tax_rate_percent"`
	DiscountValue      *decimal.Decimal `json:"discount_value"`
	DiscountKind       *string          `json:"discount_kind" validate:"omitempty,oneof=percent fixed"`
	IsBillable         *bool            `json:"is_billable"`
	AssignedEmployeeID *uuid.UUID       `json:"assigned_employee_id"`
	ConfirmShortfall   bool             `json:"confirm_shortfall"`
}

func InterventionUpdateLine(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := parseUUIDParam(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := interventions.UpdateLineInput{
			Label:              req.Label,
			Unit:               req.Unit,
			Quantity:           req.Quantity,
			UnitPriceExclTax:   req.UnitPriceExclTax,
			TaxRatePercent:     req.TaxRatePercent,
			DiscountValue:      req.DiscountValue,
			IsBillable:         req.IsBillable,
			AssignedEmployeeID: req.AssignedEmployeeID,
			ConfirmShortfall:   req.ConfirmShortfall,
		}
		if req.DiscountKind != nil {
			kind := enums.DiscountKind(*req.DiscountKind)
			input.DiscountKind = &kind
		}

		result, err := svc.UpdateLine(r.Context(), lineID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func InterventionRemoveLine(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := parseUUIDParam(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RemoveLine(r.Context(), lineID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

type reserveLineRequest struct {
	ConfirmShortfall bool `json:"confirm_shortfall"`
}

func InterventionReserveLine(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lineID, err := parseUUIDParam(r, "lineID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req reserveLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReserveLine(r.Context(), lineID, req.ConfirmShortfall)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type transitionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=to_schedule to_do in_progress done canceled"`
}

func InterventionTransitionStatus(svc interventions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "interventionID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transitionStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseInterventionStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		intervention, err := svc.TransitionStatus(r.Context(), id, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intervention)
	}
}
