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

var clientTracer = otel.Tracer("service/clients")

// ClientService owns client records and the compound
// create-client-with-portal-access workflow.
type ClientService struct {
	store    port.PortalStore
	adminAPI port.AdminAPI
	audit    port.AuditRecorder
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewClientService(store port.PortalStore, adminAPI port.AdminAPI, audit port.AuditRecorder, metrics *observability.Metrics, logger *zap.Logger) *ClientService {
	return &ClientService{
		store:    store,
		adminAPI: adminAPI,
		audit:    audit,
		metrics:  metrics,
		logger:   logger,
	}
}

// CreateClientWithPortalAccess runs the multi-step create workflow:
//
//  1. insert the client row
//  2. optionally provision a portal login for it
//
// The client row is the anchor: if step 2 fails after step 1 committed,
// the client is NOT rolled back — the caller gets the created client
// together with an ErrPartialFailure naming what succeeded and what
// failed, so the portal user can be retried separately.
func (s *ClientService) CreateClientWithPortalAccess(ctx context.Context, actor *domain.AdminUser, req *domain.CreateClientRequest) (*domain.CreateClientResponse, error) {
	ctx, span := clientTracer.Start(ctx, "ClientService.CreateClientWithPortalAccess")
	defer span.End()

	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	if err := validateCreateClient(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.ClientProspect
	}

	client, err := s.store.CreateClient(ctx, &domain.Client{
		CompanyName: strings.TrimSpace(req.CompanyName),
		ContactName: strings.TrimSpace(req.ContactName),
		Email:       NormalizeEmail(req.Email),
		Phone:       req.Phone,
		Website:     req.Website,
		Industry:    req.Industry,
		Status:      status,
		Source:      req.Source,
		Notes:       req.Notes,
		CreatedBy:   actor.ID,
	})
	if err != nil {
		s.metrics.IncrWorkflow("create_client", "failed")
		return nil, err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "client_created",
		EntityType:  "client",
		EntityID:    client.ID,
		Description: fmt.Sprintf("Created client %q", client.CompanyName),
	})

	resp := &domain.CreateClientResponse{Client: client}

	if !req.EnablePortalAccess {
		s.metrics.IncrWorkflow("create_client", "complete")
		return resp, nil
	}

	portalUser, tempPassword, err := s.provisionPortalUser(ctx, client, req)
	if err != nil {
		// Step 1 committed, step 2 did not. Surface both facts.
		s.metrics.IncrWorkflow("create_client", "partial")
		s.logger.Warn("create client: portal user step failed",
			zap.String("client_id", client.ID),
			zap.Error(err),
		)
		pf := &domain.ErrPartialFailure{Succeeded: "client", Failed: "portal user", Err: err}
		resp.Warning = pf.Error()
		return resp, pf
	}

	resp.PortalUser = portalUser
	resp.TempPassword = tempPassword
	s.metrics.IncrWorkflow("create_client", "complete")

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "portal_user_created",
		EntityType:  "client_user",
		EntityID:    portalUser.ID,
		Description: fmt.Sprintf("Enabled portal access for %q", client.CompanyName),
		Metadata:    map[string]any{"client_id": client.ID},
	})
	return resp, nil
}

// provisionPortalUser runs step 2 of the compound create. The password
// is caller-supplied or generated; either way it must pass the policy.
func (s *ClientService) provisionPortalUser(ctx context.Context, client *domain.Client, req *domain.CreateClientRequest) (*domain.ClientUser, string, error) {
	email := NormalizeEmail(req.PortalUserEmail)
	if email == "" {
		email = client.Email
	}
	name := strings.TrimSpace(req.PortalUserName)
	if name == "" {
		name = client.ContactName
	}

	password := req.PortalUserPassword
	tempPassword := ""
	if password == "" {
		password = GenerateTempPassword()
		tempPassword = password
	} else if err := ValidatePasswordStrength(password); err != nil {
		return nil, "", err
	}

	userID, err := s.adminAPI.CreateUser(ctx, &domain.ProvisionUserRequest{
		Email:    email,
		Password: password,
		FullName: name,
		UserType: domain.RealmClient,
		ClientID: client.ID,
	})
	if err != nil {
		return nil, "", err
	}

	return &domain.ClientUser{
		ID:                     userID,
		ClientID:               client.ID,
		Email:                  email,
		FullName:               name,
		IsActive:               true,
		RequiresPasswordChange: tempPassword != "",
	}, tempPassword, nil
}

// GetClient returns one client with its portal users attached.
func (s *ClientService) GetClient(ctx context.Context, actor *domain.AdminUser, id string) (*domain.Client, []domain.ClientUser, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	client, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.store.ListClientUsersByClient(ctx, id)
	if err != nil {
		// Users are supplementary; the client itself resolved.
		s.logger.Warn("get client: portal user listing failed",
			zap.String("client_id", id), zap.Error(err))
		users = nil
	}
	return client, users, nil
}

func (s *ClientService) ListClients(ctx context.Context, actor *domain.AdminUser) ([]domain.Client, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	return s.store.ListClients(ctx)
}

// UpdateClient patches only the fields present in the request.
func (s *ClientService) UpdateClient(ctx context.Context, actor *domain.AdminUser, id string, req *domain.UpdateClientRequest) (*domain.Client, error) {
	ctx, span := clientTracer.Start(ctx, "ClientService.UpdateClient")
	defer span.End()

	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}

	updates := map[string]any{}
	if req.CompanyName != nil {
		if strings.TrimSpace(*req.CompanyName) == "" {
			return nil, &domain.ErrValidation{Field: "companyName", Message: "must not be empty"}
		}
		updates["company_name"] = strings.TrimSpace(*req.CompanyName)
	}
	if req.ContactName != nil {
		updates["contact_name"] = strings.TrimSpace(*req.ContactName)
	}
	if req.Email != nil {
		updates["email"] = NormalizeEmail(*req.Email)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Website != nil {
		updates["website"] = *req.Website
	}
	if req.Industry != nil {
		updates["industry"] = *req.Industry
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, &domain.ErrValidation{Field: "status", Message: "unknown client status"}
		}
		updates["status"] = string(*req.Status)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.LifetimeValue != nil {
		if *req.LifetimeValue < 0 {
			return nil, &domain.ErrValidation{Field: "lifetimeValue", Message: "must not be negative"}
		}
		updates["lifetime_value"] = *req.LifetimeValue
	}
	if len(updates) == 0 {
		return s.store.GetClient(ctx, id)
	}
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)

	client, err := s.store.UpdateClient(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "client_updated",
		EntityType:  "client",
		EntityID:    id,
		Description: fmt.Sprintf("Updated client %q", client.CompanyName),
	})
	return client, nil
}

func (s *ClientService) DeleteClient(ctx context.Context, actor *domain.AdminUser, id string) error {
	ctx, span := clientTracer.Start(ctx, "ClientService.DeleteClient")
	defer span.End()

	if !domain.HasPermission(actor, domain.PermManageClients) {
		return &domain.ErrForbidden{Action: "manage_clients"}
	}
	client, err := s.store.GetClient(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "client_deleted",
		EntityType:  "client",
		EntityID:    id,
		Description: fmt.Sprintf("Deleted client %q", client.CompanyName),
	})
	return nil
}

func validateCreateClient(req *domain.CreateClientRequest) error {
	if strings.TrimSpace(req.CompanyName) == "" {
		return &domain.ErrValidation{Field: "companyName", Message: "required"}
	}
	if strings.TrimSpace(req.ContactName) == "" {
		return &domain.ErrValidation{Field: "contactName", Message: "required"}
	}
	if !strings.Contains(req.Email, "@") {
		return &domain.ErrValidation{Field: "email", Message: "must be a valid email address"}
	}
	if req.Status != "" && !req.Status.Valid() {
		return &domain.ErrValidation{Field: "status", Message: "unknown client status"}
	}
	return nil
}
