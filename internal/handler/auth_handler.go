package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Authentication — /v1/auth
// ============================================================

// authLoginHandler resolves a credential against both realms.
// POST /v1/auth/login
func authLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Login(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// authAdminLoginHandler authenticates against the admin realm only.
// POST /v1/auth/admin/login
func authAdminLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/admin/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.LoginAdmin(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// authClientLoginHandler authenticates against the client realm only.
// POST /v1/auth/client/login
func authClientLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/client/login")
		defer span.End()

		var req domain.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.LoginClient(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// authLogoutHandler invalidates the provider session.
// POST /v1/auth/logout
func authLogoutHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/logout")
		defer span.End()

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if err := authSvc.Logout(ctx, token); err != nil {
			// Local session state is already cleared; report success.
			logger.Debug("logout: provider call failed", zap.Error(err))
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// authMeHandler resolves the caller's token to a profile in either
// realm. Admin takes precedence when a token resolves in both.
// GET /v1/auth/me
func authMeHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auth/me")
		defer span.End()

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		if admin := authSvc.CurrentAdmin(ctx, token); admin != nil {
			writeJSON(w, http.StatusOK, map[string]any{"realm": domain.RealmAdmin, "admin": admin})
			return
		}
		if cu := authSvc.CurrentClient(ctx, token); cu != nil {
			writeJSON(w, http.StatusOK, map[string]any{"realm": domain.RealmClient, "client": cu})
			return
		}
		writeError(w, http.StatusUnauthorized, "authentication required")
	}
}

// authSessionHandler reports the state of both realm session contexts.
// Only the state machine position is exposed (authenticated, loading);
// profile data stays behind /v1/auth/me and a bearer token.
// GET /v1/auth/session
func authSessionHandler(svcs *Services, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/auth/session")
		defer span.End()

		writeJSON(w, http.StatusOK, map[string]any{
			"admin":  sessionState(svcs.AdminSession),
			"client": sessionState(svcs.ClientSession),
		})
	}
}

// sessionState flattens one realm context; a missing context reads as a
// settled anonymous session.
func sessionState[P any](sc *service.SessionContext[P]) map[string]any {
	if sc == nil {
		return map[string]any{"authenticated": false, "loading": false}
	}
	profile, loading := sc.Profile()
	return map[string]any{"authenticated": profile != nil, "loading": loading}
}

// authPasswordResetRequestHandler always answers 202: whether the email
// exists must not be observable.
// POST /v1/auth/password/reset-request
func authPasswordResetRequestHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/password/reset-request")
		defer span.End()

		var req domain.PasswordResetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		authSvc.RequestPasswordReset(ctx, req.Email)
		writeJSON(w, http.StatusAccepted, map[string]string{
			"message": "If an account exists for that address, a reset email has been sent",
		})
	}
}

// authChangePasswordHandler updates the caller's own password. The
// realm is inferred from which profile the token resolves to.
// PUT /v1/auth/password
func authChangePasswordHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/auth/password")
		defer span.End()

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		var req domain.ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		realm := domain.RealmAdmin
		if authSvc.CurrentAdmin(ctx, token) == nil {
			if authSvc.CurrentClient(ctx, token) == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			realm = domain.RealmClient
		}

		if err := authSvc.ChangePassword(ctx, realm, token, req.NewPassword); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
