package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Admin — staff account management (owner only)
// ============================================================

// GET /v1/admin/users
func listAdminUsersHandler(svc *service.AdminUserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/users")
		defer span.End()

		admins, err := svc.ListAdmins(ctx, AdminFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": admins})
	}
}

// POST /v1/admin/users
func createAdminUserHandler(svc *service.AdminUserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/users")
		defer span.End()

		var req domain.CreateAdminUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		admin, err := svc.CreateAdmin(ctx, AdminFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, admin)
	}
}

// PUT /v1/admin/users/{userId} — role change and activation toggling,
// guarded by the last-owner invariant (409 when refused).
func updateAdminUserHandler(svc *service.AdminUserService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/admin/users/{userId}")
		defer span.End()

		userID := chi.URLParam(r, "userId")

		var req domain.UpdateAdminUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		admin, err := svc.UpdateAdmin(ctx, AdminFromContext(ctx), userID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, admin)
	}
}
