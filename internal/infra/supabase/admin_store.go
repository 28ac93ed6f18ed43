package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hartleydigital/portal-api/internal/domain"
)

// ============================================================
// admin_users — profile rows for agency staff
// ============================================================

// GetAdminByAuthID fetches the active admin profile linked to a
// Supabase Auth identity. A valid credential without an active profile
// row is not an authorized admin.
func (c *Client) GetAdminByAuthID(ctx context.Context, authID string) (*domain.AdminUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAdminByAuthID")
	defer span.End()

	path := fmt.Sprintf("admin_users?auth_id=eq.%s&is_active=eq.true&limit=1", q(authID))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	return decodeFirst[domain.AdminUser](body, "admin_users")
}

func (c *Client) GetAdminByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAdminByID")
	defer span.End()

	path := fmt.Sprintf("admin_users?id=eq.%s&limit=1", q(id))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	admin, err := decodeFirst[domain.AdminUser](body, "admin_users")
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, &domain.ErrNotFound{Resource: "admin_user", ID: id}
	}
	return admin, nil
}

func (c *Client) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAdmins")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "admin_users?order=created_at.asc")
	if err != nil {
		return nil, err
	}
	return decodeRows[domain.AdminUser](body, "admin_users")
}

// CountActiveOwners backs the last-owner guard. Counted fresh on every
// mutation rather than cached.
func (c *Client) CountActiveOwners(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountActiveOwners")
	defer span.End()

	path := "admin_users?role=eq.owner&is_active=eq.true&select=id"
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return 0, err
	}
	rows, err := decodeRows[struct {
		ID string `json:"id"`
	}](body, "admin_users")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (c *Client) UpdateAdmin(ctx context.Context, id string, updates map[string]any) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAdmin")
	defer span.End()

	path := fmt.Sprintf("admin_users?id=eq.%s", q(id))
	return c.doPatch(ctx, path, updates)
}

// ============================================================
// Legacy credentials
// ============================================================

// legacyRow maps the credential columns shared by both profile tables.
type legacyRow struct {
	ID           string `json:"id"`
	AuthID       string `json:"auth_id"`
	PasswordHash string `json:"password_hash"`
}

// GetLegacyCredential looks up an active profile row by email, returning
// only the fields the migrator needs. nil means no such active profile;
// the caller must not reveal that to the end user.
//
// The lookup is an exact match on the lowercased input. Stored emails are
// normalized on write, so this stays case-insensitive without ilike's
// wildcard semantics leaking into a credential path.
func (c *Client) GetLegacyCredential(ctx context.Context, realm domain.Realm, email string) (*domain.LegacyCredential, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLegacyCredential")
	defer span.End()

	table := "admin_users"
	if realm == domain.RealmClient {
		table = "client_users"
	}

	email = strings.ToLower(strings.TrimSpace(email))
	path := fmt.Sprintf("%s?email=eq.%s&is_active=eq.true&select=id,auth_id,password_hash&limit=1", table, q(email))
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	row, err := decodeFirst[legacyRow](body, table)
	if err != nil || row == nil {
		return nil, err
	}
	return &domain.LegacyCredential{
		ProfileID:    row.ID,
		AuthID:       row.AuthID,
		PasswordHash: row.PasswordHash,
	}, nil
}
