package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Admin — client management
// ============================================================

// createClientHandler runs the compound create workflow. A partial
// failure (client committed, portal user not) is reported as 207 with
// the created client and a warning, so the caller can retry just the
// portal-user step.
// POST /v1/admin/clients
func createClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/clients")
		defer span.End()

		var req domain.CreateClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.CreateClientWithPortalAccess(ctx, AdminFromContext(ctx), &req)
		if err != nil {
			var partial *domain.ErrPartialFailure
			if errors.As(err, &partial) && resp != nil {
				writeJSON(w, http.StatusMultiStatus, resp)
				return
			}
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, resp)
	}
}

// GET /v1/admin/clients
func listClientsHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/clients")
		defer span.End()

		clients, err := svc.ListClients(ctx, AdminFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
	}
}

// GET /v1/admin/clients/{clientId}
func getClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/clients/{clientId}")
		defer span.End()

		clientID := chi.URLParam(r, "clientId")
		span.SetAttributes(attribute.String("client.id", clientID))

		client, users, err := svc.GetClient(ctx, AdminFromContext(ctx), clientID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"client":      client,
			"portalUsers": users,
		})
	}
}

// PUT /v1/admin/clients/{clientId}
func updateClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/admin/clients/{clientId}")
		defer span.End()

		clientID := chi.URLParam(r, "clientId")

		var req domain.UpdateClientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		client, err := svc.UpdateClient(ctx, AdminFromContext(ctx), clientID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, client)
	}
}

// DELETE /v1/admin/clients/{clientId}
func deleteClientHandler(svc *service.ClientService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/admin/clients/{clientId}")
		defer span.End()

		clientID := chi.URLParam(r, "clientId")
		if err := svc.DeleteClient(ctx, AdminFromContext(ctx), clientID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
