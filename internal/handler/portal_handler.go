package handler

import (
	"net/http"

	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Client portal — self-service, scoped to the caller's company
// ============================================================

// GET /v1/portal/me
func portalMeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cu := ClientUserFromContext(r.Context())
		writeJSON(w, http.StatusOK, cu)
	}
}

// GET /v1/portal/projects
func portalProjectsHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/portal/projects")
		defer span.End()

		cu := ClientUserFromContext(ctx)
		projects, err := svc.ListClientProjects(ctx, cu.ClientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
	}
}

// GET /v1/portal/invoices
func portalInvoicesHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/portal/invoices")
		defer span.End()

		cu := ClientUserFromContext(ctx)
		invoices, err := svc.ListClientInvoices(ctx, cu.ClientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
	}
}

// GET /v1/portal/subscriptions
func portalSubscriptionsHandler(svc *service.CatalogService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/portal/subscriptions")
		defer span.End()

		cu := ClientUserFromContext(ctx)
		subs, err := svc.ListClientSubscriptions(ctx, cu.ClientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
	}
}
