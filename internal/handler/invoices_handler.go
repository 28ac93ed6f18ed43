package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Admin — invoices
// ============================================================

// POST /v1/admin/invoices
func createInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/invoices")
		defer span.End()

		var req domain.UpsertInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		inv, err := svc.CreateInvoice(ctx, AdminFromContext(ctx), &req)
		if err != nil {
			var partial *domain.ErrPartialFailure
			if errors.As(err, &partial) && inv != nil {
				writeJSON(w, http.StatusMultiStatus, map[string]any{
					"invoice": inv,
					"warning": partial.Error(),
				})
				return
			}
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

// GET /v1/admin/invoices
func listInvoicesHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/invoices")
		defer span.End()

		invoices, err := svc.ListInvoices(ctx, AdminFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
	}
}

// GET /v1/admin/invoices/{invoiceId}
func getInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/invoices/{invoiceId}")
		defer span.End()

		invoiceID := chi.URLParam(r, "invoiceId")
		inv, err := svc.GetInvoice(ctx, AdminFromContext(ctx), invoiceID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

// PUT /v1/admin/invoices/{invoiceId} — full update: header patched,
// line items replaced, totals recomputed.
func updateInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/admin/invoices/{invoiceId}")
		defer span.End()

		invoiceID := chi.URLParam(r, "invoiceId")

		var req domain.UpsertInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		inv, err := svc.UpdateInvoice(ctx, AdminFromContext(ctx), invoiceID, &req)
		if err != nil {
			var partial *domain.ErrPartialFailure
			if errors.As(err, &partial) && inv != nil {
				writeJSON(w, http.StatusMultiStatus, map[string]any{
					"invoice": inv,
					"warning": partial.Error(),
				})
				return
			}
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}
