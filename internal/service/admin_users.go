package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var adminTracer = otel.Tracer("service/admin_users")

// AdminUserService manages agency staff accounts. Everything here is
// owner-only; rejected attempts are themselves audited.
type AdminUserService struct {
	store    port.PortalStore
	adminAPI port.AdminAPI
	audit    port.AuditRecorder
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewAdminUserService(store port.PortalStore, adminAPI port.AdminAPI, audit port.AuditRecorder, metrics *observability.Metrics, logger *zap.Logger) *AdminUserService {
	return &AdminUserService{
		store:    store,
		adminAPI: adminAPI,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *AdminUserService) ListAdmins(ctx context.Context, actor *domain.AdminUser) ([]domain.AdminUser, error) {
	if !domain.HasPermission(actor, domain.PermManageAdmins) {
		return nil, &domain.ErrForbidden{Action: "manage_admins"}
	}
	return s.store.ListAdmins(ctx)
}

// CreateAdmin provisions a new staff account through the privileged
// admin API, which creates both the identity and the profile row.
func (s *AdminUserService) CreateAdmin(ctx context.Context, actor *domain.AdminUser, req *domain.CreateAdminUserRequest) (*domain.AdminUser, error) {
	ctx, span := adminTracer.Start(ctx, "AdminUserService.CreateAdmin")
	defer span.End()

	if !domain.HasPermission(actor, domain.PermManageAdmins) {
		s.recordRejected(actor, "admin_create_rejected", "", "Attempted to create an admin user without manage_admins")
		return nil, &domain.ErrForbidden{Action: "manage_admins"}
	}

	email := NormalizeEmail(req.Email)
	if !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "must be a valid email address"}
	}
	if strings.TrimSpace(req.FullName) == "" {
		return nil, &domain.ErrValidation{Field: "fullName", Message: "required"}
	}
	if !req.Role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "must be owner, admin or manager"}
	}
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, err
	}

	userID, err := s.adminAPI.CreateUser(ctx, &domain.ProvisionUserRequest{
		Email:    email,
		Password: req.Password,
		FullName: strings.TrimSpace(req.FullName),
		UserType: domain.RealmAdmin,
		Role:     req.Role,
	})
	if err != nil {
		s.metrics.IncrWorkflow("create_admin", "failed")
		return nil, err
	}
	s.metrics.IncrWorkflow("create_admin", "complete")

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "admin_created",
		EntityType:  "admin_user",
		EntityID:    userID,
		Description: fmt.Sprintf("Created admin user %s with role %s", email, req.Role),
	})

	return &domain.AdminUser{
		ID:       userID,
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Role:     req.Role,
		IsActive: true,
	}, nil
}

// UpdateAdmin applies role/activation changes, enforcing the last-owner
// invariant: the change is refused if it would leave zero active owners.
// The guard runs before any write, so a refused update changes nothing.
func (s *AdminUserService) UpdateAdmin(ctx context.Context, actor *domain.AdminUser, id string, req *domain.UpdateAdminUserRequest) (*domain.AdminUser, error) {
	ctx, span := adminTracer.Start(ctx, "AdminUserService.UpdateAdmin")
	defer span.End()

	if !domain.HasPermission(actor, domain.PermManageAdmins) {
		s.recordRejected(actor, "admin_update_rejected", id, "Attempted to update an admin user without manage_admins")
		return nil, &domain.ErrForbidden{Action: "manage_admins"}
	}
	if req.Role != nil && !req.Role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "must be owner, admin or manager"}
	}

	target, err := s.store.GetAdminByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.wouldRemoveLastOwner(ctx, target, req) {
		s.audit.Record(domain.ActivityLog{
			AdminUserID: actor.ID,
			ActionType:  "admin_update_rejected",
			EntityType:  "admin_user",
			EntityID:    id,
			Description: "Refused change that would leave no active owner",
		})
		return nil, &domain.ErrLastOwner{}
	}

	updates := map[string]any{}
	if req.Role != nil {
		updates["role"] = string(*req.Role)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return target, nil
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.store.UpdateAdmin(ctx, id, updates); err != nil {
		return nil, err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "admin_updated",
		EntityType:  "admin_user",
		EntityID:    id,
		Description: fmt.Sprintf("Updated admin user %s", target.Email),
		Metadata:    updates,
	})

	return s.store.GetAdminByID(ctx, id)
}

// wouldRemoveLastOwner reports whether applying req to target would
// deactivate or demote the only remaining active owner. A store failure
// counts as true: refusing a legitimate change is recoverable, losing
// the last owner is not.
func (s *AdminUserService) wouldRemoveLastOwner(ctx context.Context, target *domain.AdminUser, req *domain.UpdateAdminUserRequest) bool {
	if target.Role != domain.RoleOwner || !target.IsActive {
		return false
	}
	demoting := req.Role != nil && *req.Role != domain.RoleOwner
	deactivating := req.IsActive != nil && !*req.IsActive
	if !demoting && !deactivating {
		return false
	}

	count, err := s.store.CountActiveOwners(ctx)
	if err != nil {
		s.logger.Error("last-owner check: owner count failed", zap.Error(err))
		return true
	}
	return count <= 1
}

func (s *AdminUserService) recordRejected(actor *domain.AdminUser, action, entityID, description string) {
	actorID := ""
	if actor != nil {
		actorID = actor.ID
	}
	s.audit.Record(domain.ActivityLog{
		AdminUserID: actorID,
		ActionType:  action,
		EntityType:  "admin_user",
		EntityID:    entityID,
		Description: description,
	})
}
