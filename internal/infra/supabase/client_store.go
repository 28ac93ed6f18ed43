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
// clients + client_users
// ============================================================

func (c *Client) CreateClient(ctx context.Context, cl *domain.Client) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateClient")
	defer span.End()

	if cl.ID == "" {
		cl.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	data := map[string]any{
		"id":             cl.ID,
		"company_name":   cl.CompanyName,
		"contact_name":   cl.ContactName,
		"email":          cl.Email,
		"phone":          cl.Phone,
		"website":        cl.Website,
		"industry":       cl.Industry,
		"status":         string(cl.Status),
		"source":         cl.Source,
		"notes":          cl.Notes,
		"lifetime_value": cl.LifetimeValue,
		"created_by":     cl.CreatedBy,
		"created_at":     now.Format(time.RFC3339),
		"updated_at":     now.Format(time.RFC3339),
	}

	body, err := c.doPost(ctx, "clients", data)
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Client](body, "clients")
	if err != nil {
		return nil, err
	}
	if created == nil {
		cl.CreatedAt = now
		cl.UpdatedAt = now
		return cl, nil
	}
	return created, nil
}

func (c *Client) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetClient")
	defer span.End()

	path := fmt.Sprintf("clients?id=eq.%s&limit=1", q(id))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	cl, err := decodeFirst[domain.Client](body, "clients")
	if err != nil {
		return nil, err
	}
	if cl == nil {
		return nil, &domain.ErrNotFound{Resource: "client", ID: id}
	}
	return cl, nil
}

func (c *Client) ListClients(ctx context.Context) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListClients")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "clients?order=created_at.desc")
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Client](body, "clients")
}

func (c *Client) UpdateClient(ctx context.Context, id string, updates map[string]any) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateClient")
	defer span.End()

	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	path := fmt.Sprintf("clients?id=eq.%s", q(id))
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}
	return c.GetClient(ctx, id)
}

// DeleteClient removes the client row. Child rows (projects, invoices,
// client_users, subscriptions) cascade at the store level.
func (c *Client) DeleteClient(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteClient")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("clients?id=eq.%s", q(id)))
}

// ============================================================
// client_users
// ============================================================

// GetClientUserByAuthID fetches the active portal login linked to a
// Supabase Auth identity.
func (c *Client) GetClientUserByAuthID(ctx context.Context, authID string) (*domain.ClientUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetClientUserByAuthID")
	defer span.End()

	path := fmt.Sprintf("client_users?auth_id=eq.%s&is_active=eq.true&limit=1", q(authID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeFirst[domain.ClientUser](body, "client_users")
}

func (c *Client) ListClientUsersByClient(ctx context.Context, clientID string) ([]domain.ClientUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListClientUsersByClient")
	defer span.End()

	path := fmt.Sprintf("client_users?client_id=eq.%s", q(clientID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.ClientUser](body, "client_users")
}

func (c *Client) UpdateClientUser(ctx context.Context, id string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateClientUser")
	defer span.End()

	path := fmt.Sprintf("client_users?id=eq.%s", q(id))
	return c.doPatch(ctx, path, updates)
}

func (c *Client) UpdateClientUserByAuthID(ctx context.Context, authID string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateClientUserByAuthID")
	defer span.End()

	path := fmt.Sprintf("client_users?auth_id=eq.%s", q(authID))
	return c.doPatch(ctx, path, updates)
}
