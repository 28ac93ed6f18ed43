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
// projects
// ============================================================

func (c *Client) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProject")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	data := map[string]any{
		"id":          p.ID,
		"client_id":   p.ClientID,
		"name":        p.Name,
		"description": p.Description,
		"service":     p.Service,
		"status":      p.Status,
		"budget":      p.Budget,
		"created_at":  now.Format(time.RFC3339),
		"updated_at":  now.Format(time.RFC3339),
	}
	if p.StartDate != nil {
		data["start_date"] = p.StartDate.Format("2006-01-02")
	}
	if p.DueDate != nil {
		data["due_date"] = p.DueDate.Format("2006-01-02")
	}

	body, err := c.doPost(ctx, "projects", data)
	if err != nil {
		return nil, err
	}
	created, err := decodeFirst[domain.Project](body, "projects")
	if err != nil {
		return nil, err
	}
	if created == nil {
		p.CreatedAt = now
		p.UpdatedAt = now
		return p, nil
	}
	return created, nil
}

func (c *Client) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProject")
	defer span.End()

	path := fmt.Sprintf("projects?id=eq.%s&limit=1", q(id))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	p, err := decodeFirst[domain.Project](body, "projects")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "project", ID: id}
	}
	return p, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProjects")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "projects?order=created_at.desc")
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Project](body, "projects")
}

func (c *Client) ListProjectsByClient(ctx context.Context, clientID string) ([]domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProjectsByClient")
	defer span.End()

	path := fmt.Sprintf("projects?client_id=eq.%s&order=created_at.desc", q(clientID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.Project](body, "projects")
}

func (c *Client) UpdateProject(ctx context.Context, id string, updates map[string]any) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProject")
	defer span.End()

	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	path := fmt.Sprintf("projects?id=eq.%s", q(id))
	if err := c.doPatch(ctx, path, updates); err != nil {
		return nil, err
	}
	return c.GetProject(ctx, id)
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProject")
	defer span.End()

	return c.doDelete(ctx, fmt.Sprintf("projects?id=eq.%s", q(id)))
}
