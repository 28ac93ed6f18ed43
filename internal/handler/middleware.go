package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	adminUserKey  contextKey = "adminUser"
	clientUserKey contextKey = "clientUser"
	tokenKey      contextKey = "accessToken"
)

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// AdminAuthMiddleware validates Bearer tokens against the admin realm
// and injects the resolved admin profile into context. Resolution is
// fail-closed: any failure is a plain 401.
func AdminAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				logger.Warn("auth: missing or malformed token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			admin := authSvc.CurrentAdmin(r.Context(), token)
			if admin == nil {
				logger.Warn("auth: no active admin for token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), adminUserKey, admin)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientAuthMiddleware is the client-realm counterpart.
func ClientAuthMiddleware(authSvc *service.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			cu := authSvc.CurrentClient(r.Context(), token)
			if cu == nil {
				logger.Warn("auth: no active client user for token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			ctx := context.WithValue(r.Context(), clientUserKey, cu)
			ctx = context.WithValue(ctx, tokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminFromContext extracts the authenticated admin profile.
func AdminFromContext(ctx context.Context) *domain.AdminUser {
	v, _ := ctx.Value(adminUserKey).(*domain.AdminUser)
	return v
}

// ClientUserFromContext extracts the authenticated client-user profile.
func ClientUserFromContext(ctx context.Context) *domain.ClientUser {
	v, _ := ctx.Value(clientUserKey).(*domain.ClientUser)
	return v
}

// TokenFromContext extracts the raw access token.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(tokenKey).(string)
	return v
}
