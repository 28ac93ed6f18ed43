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

var billingCycles = map[string]bool{"one_time": true, "monthly": true, "yearly": true}

// CatalogService serves the public product/package catalog and manages
// it from the admin side. The public read path is cached: the catalog
// changes rarely and backs the marketing site.
type CatalogService struct {
	store  port.PortalStore
	audit  port.AuditRecorder
	cache  port.Cache[[]domain.Product]
	logger *zap.Logger
}

func NewCatalogService(store port.PortalStore, audit port.AuditRecorder, cache port.Cache[[]domain.Product], logger *zap.Logger) *CatalogService {
	return &CatalogService{store: store, audit: audit, cache: cache, logger: logger}
}

// PublicProducts lists active products for the marketing site.
func (s *CatalogService) PublicProducts(ctx context.Context) ([]domain.Product, error) {
	if cached, ok := s.cache.Get("public_products"); ok {
		return cached, nil
	}
	products, err := s.store.ListProducts(ctx, true)
	if err != nil {
		return nil, err
	}
	s.cache.Set("public_products", products)
	return products, nil
}

// PublicPackages lists active packages for the marketing site.
func (s *CatalogService) PublicPackages(ctx context.Context) ([]domain.Package, error) {
	return s.store.ListPackages(ctx, true)
}

func (s *CatalogService) ListProducts(ctx context.Context, actor *domain.AdminUser) ([]domain.Product, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	return s.store.ListProducts(ctx, false)
}

func (s *CatalogService) CreateProduct(ctx context.Context, actor *domain.AdminUser, p *domain.Product) (*domain.Product, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if p.Price < 0 {
		return nil, &domain.ErrValidation{Field: "price", Message: "must not be negative"}
	}
	if p.Billing == "" {
		p.Billing = "one_time"
	}
	if !billingCycles[p.Billing] {
		return nil, &domain.ErrValidation{Field: "billing", Message: "must be one_time, monthly or yearly"}
	}

	created, err := s.store.CreateProduct(ctx, p)
	if err != nil {
		return nil, err
	}
	s.cache.Delete("public_products")

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "product_created",
		EntityType:  "product",
		EntityID:    created.ID,
		Description: fmt.Sprintf("Created product %q", created.Name),
	})
	return created, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, actor *domain.AdminUser, id string, updates map[string]any) (*domain.Product, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	if billing, ok := updates["billing"].(string); ok && !billingCycles[billing] {
		return nil, &domain.ErrValidation{Field: "billing", Message: "must be one_time, monthly or yearly"}
	}

	p, err := s.store.UpdateProduct(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	s.cache.Delete("public_products")

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "product_updated",
		EntityType:  "product",
		EntityID:    id,
		Description: fmt.Sprintf("Updated product %q", p.Name),
	})
	return p, nil
}

func (s *CatalogService) ListPackages(ctx context.Context, actor *domain.AdminUser) ([]domain.Package, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	return s.store.ListPackages(ctx, false)
}

func (s *CatalogService) CreatePackage(ctx context.Context, actor *domain.AdminUser, p *domain.Package) (*domain.Package, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	if strings.TrimSpace(p.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if p.Price < 0 {
		return nil, &domain.ErrValidation{Field: "price", Message: "must not be negative"}
	}

	created, err := s.store.CreatePackage(ctx, p)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "package_created",
		EntityType:  "package",
		EntityID:    created.ID,
		Description: fmt.Sprintf("Created package %q", created.Name),
	})
	return created, nil
}

// ============================================================
// Subscriptions
// ============================================================

func (s *CatalogService) ListClientSubscriptions(ctx context.Context, clientID string) ([]domain.ClientSubscription, error) {
	return s.store.ListSubscriptionsByClient(ctx, clientID)
}

func (s *CatalogService) CreateSubscription(ctx context.Context, actor *domain.AdminUser, sub *domain.ClientSubscription) (*domain.ClientSubscription, error) {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return nil, &domain.ErrForbidden{Action: "manage_clients"}
	}
	if sub.ClientID == "" {
		return nil, &domain.ErrValidation{Field: "client_id", Message: "required"}
	}
	// Exactly one of product/package.
	if (sub.ProductID == "") == (sub.PackageID == "") {
		return nil, &domain.ErrValidation{Field: "product_id", Message: "exactly one of product_id or package_id required"}
	}
	if sub.Status == "" {
		sub.Status = "active"
	}
	if sub.StartedAt.IsZero() {
		sub.StartedAt = time.Now().UTC()
	}

	created, err := s.store.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "subscription_created",
		EntityType:  "client_subscription",
		EntityID:    created.ID,
		Description: "Created subscription",
		Metadata:    map[string]any{"client_id": created.ClientID},
	})
	return created, nil
}

func (s *CatalogService) CancelSubscription(ctx context.Context, actor *domain.AdminUser, id string) error {
	if !domain.HasPermission(actor, domain.PermManageClients) {
		return &domain.ErrForbidden{Action: "manage_clients"}
	}
	updates := map[string]any{
		"status":   "cancelled",
		"ended_at": time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.UpdateSubscription(ctx, id, updates); err != nil {
		return err
	}

	s.audit.Record(domain.ActivityLog{
		AdminUserID: actor.ID,
		ActionType:  "subscription_cancelled",
		EntityType:  "client_subscription",
		EntityID:    id,
		Description: "Cancelled subscription",
	})
	return nil
}
