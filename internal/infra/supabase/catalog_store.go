package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"

	"github.com/google/uuid"
)

// ============================================================
// products, packages, client_subscriptions
// ============================================================

func (c *Client) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProducts")
	defer span.End()

	path := "products?order=name.asc"
	if activeOnly {
		path = "products?is_active=eq.true&order=name.asc"
	}
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Product](body, "products")
}

func (c *Client) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProduct")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	data := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"category":    p.Category,
		"price":       p.Price,
		"billing":     p.Billing,
		"is_active":   p.IsActive,
		"created_at":  now.Format(time.RFC3339),
	}

	body, err := c.doPost(ctx, "products", data)
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Product](body, "products")
	if err != nil {
		return nil, err
	}
	if created == nil {
		p.CreatedAt = now
		return p, nil
	}
	return created, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, updates map[string]any) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProduct")
	defer span.End()

	path := fmt.Sprintf("products?id=eq.%s", q(id))
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("products?id=eq.%s&limit=1", q(id)))
	if err != nil {
		return nil, err
	}
	p, err := decodeFirst[domain.Product](body, "products")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "product", ID: id}
	}
	return p, nil
}

func (c *Client) ListPackages(ctx context.Context, activeOnly bool) ([]domain.Package, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPackages")
	defer span.End()

	path := "packages?order=price.asc"
	if activeOnly {
		path = "packages?is_active=eq.true&order=price.asc"
	}
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Package](body, "packages")
}

func (c *Client) CreatePackage(ctx context.Context, p *domain.Package) (*domain.Package, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePackage")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	data := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"product_ids": p.ProductIDs,
		"is_active":   p.IsActive,
		"created_at":  now.Format(time.RFC3339),
	}

	body, err := c.doPost(ctx, "packages", data)
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Package](body, "packages")
	if err != nil {
		return nil, err
	}
	if created == nil {
		p.CreatedAt = now
		return p, nil
	}
	return created, nil
}

func (c *Client) ListSubscriptionsByClient(ctx context.Context, clientID string) ([]domain.ClientSubscription, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSubscriptionsByClient")
	defer span.End()

	path := fmt.Sprintf("client_subscriptions?client_id=eq.%s&order=started_at.desc", q(clientID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.ClientSubscription](body, "client_subscriptions")
}

func (c *Client) CreateSubscription(ctx context.Context, s *domain.ClientSubscription) (*domain.ClientSubscription, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateSubscription")
	defer span.End()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	data := map[string]any{
		"id":         s.ID,
		"client_id":  s.ClientID,
		"product_id": s.ProductID,
		"package_id": s.PackageID,
		"status":     s.Status,
		"started_at": s.StartedAt.Format(time.RFC3339),
	}

	body, err := c.doPost(ctx, "client_subscriptions", data)
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.ClientSubscription](body, "client_subscriptions")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return s, nil
	}
	return created, nil
}

func (c *Client) UpdateSubscription(ctx context.Context, id string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateSubscription")
	defer span.End()

	path := fmt.Sprintf("client_subscriptions?id=eq.%s", q(id))
	return c.doPatch(ctx, path, updates)
}
