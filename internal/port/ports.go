// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/hartleydigital/portal-api/internal/domain"
)

// IdentityProvider wraps the Supabase Auth (GoTrue) API. It owns all
// identity records; this application never stores raw passwords except
// transiently for legacy migration comparison.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (userID, email string, err error)
	UpdateUserPassword(ctx context.Context, accessToken, newPassword string) error
	ResetPasswordForEmail(ctx context.Context, email string) error
}

// AdminAPI wraps the privileged serverless functions. CreateUser and
// MigrateUser are the only paths that may create an identity-provider
// account linked to a profile row.
type AdminAPI interface {
	CreateUser(ctx context.Context, req *domain.ProvisionUserRequest) (userID string, err error)
	MigrateUser(ctx context.Context, req *domain.ProvisionUserRequest) (userID string, err error)
	SendContactEmail(ctx context.Context, sub *domain.ContactSubmission) error
}

// PortalStore defines all relational reads/writes for the portal,
// implemented by the Supabase PostgREST adapter. Row-level access
// policy is enforced by the store, not by this application layer.
type PortalStore interface {
	// Admin users
	GetAdminByAuthID(ctx context.Context, authID string) (*domain.AdminUser, error)
	GetAdminByID(ctx context.Context, id string) (*domain.AdminUser, error)
	ListAdmins(ctx context.Context) ([]domain.AdminUser, error)
	CountActiveOwners(ctx context.Context) (int, error)
	UpdateAdmin(ctx context.Context, id string, updates map[string]any) error

	// Client users
	GetClientUserByAuthID(ctx context.Context, authID string) (*domain.ClientUser, error)
	ListClientUsersByClient(ctx context.Context, clientID string) ([]domain.ClientUser, error)
	UpdateClientUser(ctx context.Context, id string, updates map[string]any) error
	UpdateClientUserByAuthID(ctx context.Context, authID string, updates map[string]any) error

	// Legacy credentials (pre-Supabase accounts)
	GetLegacyCredential(ctx context.Context, realm domain.Realm, email string) (*domain.LegacyCredential, error)

	// Clients
	CreateClient(ctx context.Context, c *domain.Client) (*domain.Client, error)
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	UpdateClient(ctx context.Context, id string, updates map[string]any) (*domain.Client, error)
	DeleteClient(ctx context.Context, id string) error

	// Projects
	CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListProjectsByClient(ctx context.Context, clientID string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, id string, updates map[string]any) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// Invoices
	CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context) ([]domain.Invoice, error)
	ListInvoicesByClient(ctx context.Context, clientID string) ([]domain.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, updates map[string]any) (*domain.Invoice, error)
	InsertLineItems(ctx context.Context, invoiceID string, items []domain.InvoiceLineItem) error
	DeleteLineItems(ctx context.Context, invoiceID string) error
	ListLineItems(ctx context.Context, invoiceID string) ([]domain.InvoiceLineItem, error)

	// Catalog
	ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, updates map[string]any) (*domain.Product, error)
	ListPackages(ctx context.Context, activeOnly bool) ([]domain.Package, error)
	CreatePackage(ctx context.Context, p *domain.Package) (*domain.Package, error)
	ListSubscriptionsByClient(ctx context.Context, clientID string) ([]domain.ClientSubscription, error)
	CreateSubscription(ctx context.Context, s *domain.ClientSubscription) (*domain.ClientSubscription, error)
	UpdateSubscription(ctx context.Context, id string, updates map[string]any) error
}

// ActivityStore persists audit entries. Separate from PortalStore so
// the audit writer can be tested and wired independently.
type ActivityStore interface {
	InsertActivityLog(ctx context.Context, entry *domain.ActivityLog) error
}

// AuditRecorder accepts audit entries without blocking the caller.
// Failures are swallowed; recording is never part of a workflow's
// success criteria.
type AuditRecorder interface {
	Record(entry domain.ActivityLog)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
