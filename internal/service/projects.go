package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/port"

	"go.uber.org/zap"
)

var projectStatuses = map[string]bool{
	"planning": true, "in_progress": true, "review": true,
	"completed": true, "on_hold": true, "cancelled": true,
}

// ProjectService manages delivery projects for clients.
type ProjectService struct {
	store  port.PortalStore
	audit  port.AuditRecorder
	logger *zap.Logger
}

func NewProjectService(store port.PortalStore, audit port.AuditRecorder, logger *zap.Logger) *ProjectService {
	return &ProjectService{store: store, audit: audit, logger: logger}
}

func (s *ProjectService) CreateProject(ctx context.Context, actor *domain.AdminUser, p *domain.Project) (*domain.Project, error) {
	if !domain.HasPermission(actor, domain.PermManageProjects) {
		return nil, &domain.ErrForbidden{Action: "manage_projects"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if strings.TrimSpace(p.ClientID) == "" {
		return nil, &domain.ErrValidation{Field: "client_id", Message: "required"}
	}
	if p.Status == "" {
		p.Status = "planning"
	}
	if !projectStatuses[p.Status] {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown project status"}
	}
	if p.Budget < 0 {
		return nil, &domain.ErrValidation{Field: "budget", Message: "must not be negative"}
	}

	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "project_created",
		EntityType:  "project",
		EntityID:    created.ID,
		Description: fmt.Sprintf("Created project %q", created.Name),
		Metadata:    map[string]any{"client_id": created.ClientID},
	})
	return created, nil
}

func (s *ProjectService) GetProject(ctx context.Context, actor *domain.AdminUser, id string) (*domain.Project, error) {
	if !domain.HasPermission(actor, domain.PermManageProjects) {
		return nil, &domain.ErrForbidden{Action: "manage_projects"}
	}
	return s.store.GetProject(ctx, id)
}

func (s *ProjectService) ListProjects(ctx context.Context, actor *domain.AdminUser) ([]domain.Project, error) {
	if !domain.HasPermission(actor, domain.PermManageProjects) {
		return nil, &domain.ErrForbidden{Action: "manage_projects"}
	}
	return s.store.ListProjects(ctx)
}

// ListClientProjects is the portal-side view, scoped to one client.
func (s *ProjectService) ListClientProjects(ctx context.Context, clientID string) ([]domain.Project, error) {
	return s.store.ListProjectsByClient(ctx, clientID)
}

func (s *ProjectService) UpdateProject(ctx context.Context, actor *domain.AdminUser, id string, updates map[string]any) (*domain.Project, error) {
	if !domain.HasPermission(actor, domain.PermManageProjects) {
		return nil, &domain.ErrForbidden{Action: "manage_projects"}
	}
	if status, ok := updates["status"].(string); ok && !projectStatuses[status] {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown project status"}
	}
	if len(updates) == 0 {
		return s.store.GetProject(ctx, id)
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	p, err := s.store.UpdateProject(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "project_updated",
		EntityType:  "project",
		EntityID:    id,
		Description: fmt.Sprintf("Updated project %q", p.Name),
	})
	return p, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, actor *domain.AdminUser, id string) error {
	if !domain.HasPermission(actor, domain.PermManageProjects) {
		return &domain.ErrForbidden{Action: "manage_projects"}
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, id); err != nil {
		return err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "project_deleted",
		EntityType:  "project",
		EntityID:    id,
		Description: fmt.Sprintf("Deleted project %q", p.Name),
	})
	return nil
}
