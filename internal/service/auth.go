// Package service — AuthService handles the dual admin/client login,
// profile resolution, transparent legacy-password migration and the
// auth event stream feeding the session contexts.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthService orchestrates authentication for both realms. One Supabase
// Auth instance backs two disjoint authorization domains; which realm a
// credential belongs to is decided by which profile table holds an
// active row for it.
type AuthService struct {
	idp      port.IdentityProvider
	store    port.PortalStore
	adminAPI port.AdminAPI
	cache    port.Cache[any]
	bus      *AuthBus
	metrics  *observability.Metrics
	logger   *zap.Logger

	jwtSecret []byte
}

// NewAuthService creates a new auth service. jwtSecret is the Supabase
// project JWT secret used to validate access tokens locally.
func NewAuthService(idp port.IdentityProvider, store port.PortalStore, adminAPI port.AdminAPI, cache port.Cache[any], bus *AuthBus, jwtSecret string, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		idp:       idp,
		store:     store,
		adminAPI:  adminAPI,
		cache:     cache,
		bus:       bus,
		metrics:   metrics,
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
	}
}

// Bus exposes the auth event stream for session contexts.
func (s *AuthService) Bus() *AuthBus {
	return s.bus
}

// ============================================================
// Combined login — POST /v1/auth/login
// ============================================================

// Login resolves a credential against both realms: admin first, then
// client. Every failure collapses to one generic message so neither
// account existence nor realm membership leaks. Provider-unreachable
// errors are surfaced distinctly — they are transient, not a rejection.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	resp, adminErr := s.LoginAdmin(ctx, email, password)
	if adminErr == nil {
		return resp, nil
	}
	if isTransient(adminErr) {
		return nil, adminErr
	}

	resp, clientErr := s.LoginClient(ctx, email, password)
	if clientErr == nil {
		return resp, nil
	}
	if isTransient(clientErr) {
		return nil, clientErr
	}

	s.metrics.IncrLogin("failure")
	return nil, &domain.ErrUnauthorized{Message: domain.GenericLoginError}
}

// LoginAdmin authenticates against the admin realm only.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.LoginAdmin")
	defer span.End()

	session, admin, err := s.loginRealm(ctx, domain.RealmAdmin, email, password, true)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrLogin("success")
	s.logger.Info("admin logged in", zap.String("admin_id", admin.(*domain.AdminUser).ID))

	return &domain.LoginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		Realm:        domain.RealmAdmin,
		Admin:        admin.(*domain.AdminUser),
	}, nil
}

// LoginClient authenticates against the client realm only.
func (s *AuthService) LoginClient(ctx context.Context, email, password string) (*domain.LoginResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.LoginClient")
	defer span.End()

	session, profile, err := s.loginRealm(ctx, domain.RealmClient, email, password, true)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrLogin("success")
	s.logger.Info("client user logged in", zap.String("client_user_id", profile.(*domain.ClientUser).ID))

	return &domain.LoginResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		Realm:        domain.RealmClient,
		Client:       profile.(*domain.ClientUser),
	}, nil
}

// loginRealm runs one realm's login: provider sign-in, profile
// resolution, fire-and-forget last_login update and event publication.
// allowRetry guards the single post-migration retry.
func (s *AuthService) loginRealm(ctx context.Context, realm domain.Realm, email, password string, allowRetry bool) (*domain.Session, any, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.loginRealm")
	defer span.End()
	span.SetAttributes(attribute.String("realm", string(realm)))

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, &domain.ErrUnauthorized{Message: domain.GenericLoginError}
	}

	session, err := s.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		if isTransient(err) {
			s.metrics.IncrExternalError("supabase/auth")
			return nil, nil, err
		}
		// Provider rejected the credential: maybe a pre-migration
		// account. Exactly one retry after a successful migration.
		if allowRetry && s.tryLegacyMigration(ctx, realm, email, password) {
			s.metrics.IncrLogin("migrated")
			return s.loginRealm(ctx, realm, email, password, false)
		}
		return nil, nil, &domain.ErrUnauthorized{Message: domain.GenericLoginError}
	}

	profile, profileID, err := s.resolveProfile(ctx, realm, session.UserID)
	if err != nil {
		if isTransient(err) {
			return nil, nil, err
		}
		return nil, nil, &domain.ErrUnauthorized{Message: domain.GenericLoginError}
	}
	if profile == nil {
		// Valid identity credential, but no active profile row in this
		// realm: not an authorized portal user here.
		s.logger.Debug("login: no active profile for identity",
			zap.String("realm", string(realm)),
		)
		return nil, nil, &domain.ErrUnauthorized{Message: domain.GenericLoginError}
	}

	s.touchLastLogin(realm, profileID)
	s.bus.Publish(domain.AuthEvent{
		Type:        domain.EventSignedIn,
		AccessToken: session.AccessToken,
		UserID:      session.UserID,
	})

	return session, profile, nil
}

func (s *AuthService) resolveProfile(ctx context.Context, realm domain.Realm, authID string) (any, string, error) {
	if realm == domain.RealmAdmin {
		admin, err := s.store.GetAdminByAuthID(ctx, authID)
		if err != nil || admin == nil {
			return nil, "", err
		}
		return admin, admin.ID, nil
	}
	cu, err := s.store.GetClientUserByAuthID(ctx, authID)
	if err != nil || cu == nil {
		return nil, "", err
	}
	return cu, cu.ID, nil
}

// touchLastLogin updates last_login without blocking or failing the
// login. The write gets its own context: the request context is done
// as soon as the login response is sent.
func (s *AuthService) touchLastLogin(realm domain.Realm, profileID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		updates := map[string]any{"last_login": time.Now().UTC().Format(time.RFC3339)}
		var err error
		if realm == domain.RealmAdmin {
			err = s.store.UpdateAdmin(ctx, profileID, updates)
		} else {
			err = s.store.UpdateClientUser(ctx, profileID, updates)
		}
		if err != nil {
			s.logger.Debug("login: last_login update failed",
				zap.String("realm", string(realm)),
				zap.String("profile_id", profileID),
				zap.Error(err),
			)
		}
	}()
}

// ============================================================
// Legacy password migration
// ============================================================

// tryLegacyMigration transparently upgrades a pre-provider account on
// first successful login. Returns true only when a migration actually
// happened; every failure mode collapses to false so nothing about
// account existence or migration state leaks.
func (s *AuthService) tryLegacyMigration(ctx context.Context, realm domain.Realm, email, password string) bool {
	ctx, span := authTracer.Start(ctx, "AuthService.tryLegacyMigration")
	defer span.End()

	cred, err := s.store.GetLegacyCredential(ctx, realm, email)
	if err != nil {
		s.logger.Debug("migration: lookup failed", zap.Error(err))
		return false
	}
	if cred == nil {
		return false
	}
	// Already linked to the provider, or already delegated: nothing to
	// migrate. This also prevents re-entry after the single retry.
	if cred.AuthID != "" || cred.PasswordHash == domain.LegacyHashSentinel || cred.PasswordHash == "" {
		return false
	}

	if !CheckLegacyPassword(cred.PasswordHash, password) {
		return false
	}

	_, err = s.adminAPI.MigrateUser(ctx, &domain.ProvisionUserRequest{
		Email:     email,
		Password:  password,
		UserType:  realm,
		ProfileID: cred.ProfileID,
	})
	if err != nil {
		s.logger.Warn("migration: provisioning failed",
			zap.String("realm", string(realm)),
			zap.Error(err),
		)
		return false
	}

	s.logger.Info("legacy account migrated to identity provider",
		zap.String("realm", string(realm)),
		zap.String("profile_id", cred.ProfileID),
	)
	return true
}

// ============================================================
// Current user resolution (fail-closed)
// ============================================================

// SupabaseClaims are the claims of a Supabase access token.
type SupabaseClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessToken validates a Supabase access token locally against
// the project JWT secret and returns its claims.
func (s *AuthService) ParseAccessToken(tokenString string) (*SupabaseClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SupabaseClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	claims, ok := token.Claims.(*SupabaseClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// CurrentAdmin resolves an access token to the active admin profile.
// Any failure — bad token, store error, no active row — yields nil:
// "not logged in" is the only observable outcome.
func (s *AuthService) CurrentAdmin(ctx context.Context, accessToken string) *domain.AdminUser {
	claims, err := s.ParseAccessToken(accessToken)
	if err != nil {
		return nil
	}

	key := "admin:" + claims.Subject
	if v, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("profile")
		if admin, ok := v.(*domain.AdminUser); ok {
			return admin
		}
	}
	s.metrics.IncrCacheMiss("profile")

	admin, err := s.store.GetAdminByAuthID(ctx, claims.Subject)
	if err != nil || admin == nil {
		return nil
	}
	s.cache.Set(key, admin)
	return admin
}

// CurrentClient resolves an access token to the active client-user
// profile, nil on any failure.
func (s *AuthService) CurrentClient(ctx context.Context, accessToken string) *domain.ClientUser {
	claims, err := s.ParseAccessToken(accessToken)
	if err != nil {
		return nil
	}

	key := "client:" + claims.Subject
	if v, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("profile")
		if cu, ok := v.(*domain.ClientUser); ok {
			return cu
		}
	}
	s.metrics.IncrCacheMiss("profile")

	cu, err := s.store.GetClientUserByAuthID(ctx, claims.Subject)
	if err != nil || cu == nil {
		return nil
	}
	s.cache.Set(key, cu)
	return cu
}

// ============================================================
// Logout / password management
// ============================================================

// Logout invalidates the provider session. The event is published even
// if the provider call fails: local state must clear synchronously.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	var userID string
	if claims, err := s.ParseAccessToken(accessToken); err == nil {
		userID = claims.Subject
		s.cache.Delete("admin:" + userID)
		s.cache.Delete("client:" + userID)
	}

	err := s.idp.SignOut(ctx, accessToken)
	if err != nil {
		s.logger.Warn("logout: provider sign-out failed", zap.Error(err))
	}

	s.bus.Publish(domain.AuthEvent{Type: domain.EventSignedOut, UserID: userID})
	return err
}

// RequestPasswordReset triggers the provider recovery email. The
// outcome is identical whether or not the address exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	ctx, span := authTracer.Start(ctx, "AuthService.RequestPasswordReset")
	defer span.End()

	email = NormalizeEmail(email)
	if email == "" {
		return
	}
	if err := s.idp.ResetPasswordForEmail(ctx, email); err != nil {
		s.logger.Warn("password reset request failed", zap.Error(err))
	}
}

// ChangePassword updates the caller's own provider credential. For
// client users the requires_password_change flag is cleared best-effort.
func (s *AuthService) ChangePassword(ctx context.Context, realm domain.Realm, accessToken, newPassword string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	if err := s.idp.UpdateUserPassword(ctx, accessToken, newPassword); err != nil {
		return err
	}

	if realm == domain.RealmClient {
		if claims, err := s.ParseAccessToken(accessToken); err == nil {
			if err := s.store.UpdateClientUserByAuthID(ctx, claims.Subject, map[string]any{
				"requires_password_change": false,
			}); err != nil {
				s.logger.Warn("change password: flag clear failed", zap.Error(err))
			}
			s.cache.Delete("client:" + claims.Subject)
		}
	}
	return nil
}

// ============================================================
// Helpers
// ============================================================

// NormalizeEmail lowercases and trims an email before any lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isTransient reports whether an error means the provider or store was
// unreachable rather than rejecting the request. Transient errors are
// surfaced to the caller instead of being folded into the generic
// invalid-credentials message.
func isTransient(err error) bool {
	var timeout *domain.ErrTimeout
	var circuit *domain.ErrCircuitOpen
	var external *domain.ErrExternalService
	return errors.As(err, &timeout) || errors.As(err, &circuit) || errors.As(err, &external)
}
