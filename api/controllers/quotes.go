package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gestiq/gestiq-backend/api/responses"
	"github.com/gestiq/gestiq-backend/api/validators"
	"github.com/gestiq/gestiq-backend/internal/conversion"
	"github.com/gestiq/gestiq-backend/internal/documents"
	"github.com/gestiq/gestiq-backend/pkg/enums"
	pkgerrors "github.com/gestiq/gestiq-backend/pkg/errors"
	"github.com/gestiq/gestiq-backend/pkg/logger"
)

type quoteLineRequest struct {
	InventoryItemID  *uuid.UUID      `json:"inventory_item_id"`
	Role             string          `json:"role" validate:"omitempty,oneof=consumable material service"`
	Label            string          `json:"label" validate:"required,max=200"`
	Unit             string          `json:"unit" validate:"omitempty,max=30"`
	Quantity         decimal.Decimal `json:"quantity" validate:"required"`
	UnitPriceExclTax decimal.Decimal `json:"unit_price_excl_tax"`
	TaxRatePercent   decimal.Decimal `json:"tax_rate_percent"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	DiscountKind     string          `json:"discount_kind" validate:"omitempty,oneof=percent fixed"`
}

type createQuoteRequest struct {
	ClientRef *string            `json:"client_ref" validate:"omitempty,max=200"`
	Lines     []quoteLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func QuoteCreate(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createQuoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]documents.QuoteLineInput, 0, len(req.Lines))
		for _, line := range req.Lines {
			lines = append(lines, documents.QuoteLineInput{
				InventoryItemID:  line.InventoryItemID,
				Role:             enums.LineRole(line.Role),
				Label:            line.Label,
				Unit:             line.Unit,
				Quantity:         line.Quantity,
				UnitPriceExclTax: line.UnitPriceExclTax,
				TaxRatePercent:   line.TaxRatePercent,
				DiscountValue:    line.DiscountValue,
				DiscountKind:     enums.DiscountKind(line.DiscountKind),
			})
		}

		quote, err := svc.CreateQuote(r.Context(), documents.CreateQuoteInput{
			ClientRef: req.ClientRef,
			Lines:     lines,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, quote)
	}
}

func QuoteDetail(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "quoteID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quote, err := svc.GetQuote(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func QuoteList(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotes, err := svc.ListQuotes(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotes)
	}
}

type quoteStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=sent accepted declined"`
}

func QuoteTransitionStatus(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "quoteID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req quoteStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseQuoteStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, err.Error()))
			return
		}

		quote, err := svc.TransitionQuoteStatus(r.Context(), id, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

type convertQuoteRequest struct {
	TargetKind string `json:"target_kind" validate:"required,oneof=invoice intervention"`
}

func QuoteConvert(svc conversion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quoteID, err := parseUUIDParam(r, "quoteID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req convertQuoteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Convert(r.Context(), conversion.ConvertInput{
			QuoteID:    quoteID,
			TargetKind: enums.DocumentKind(req.TargetKind),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func InvoiceDetail(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "invoiceID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoice, err := svc.GetInvoice(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}

func InvoiceList(svc documents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoices, err := svc.ListInvoices(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoices)
	}
}
