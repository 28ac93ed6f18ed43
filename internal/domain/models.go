// Package domain defines the core business entities for the agency portal.
// These models are independent of external services and represent the
// canonical data structures used throughout the API.
package domain

import "time"

// ============================================================
// Portal users
// ============================================================

// AdminRole is the role of an agency staff member.
type AdminRole string

const (
	RoleOwner   AdminRole = "owner"
	RoleAdmin   AdminRole = "admin"
	RoleManager AdminRole = "manager"
)

// Valid reports whether the role is one of the known admin roles.
func (r AdminRole) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// AdminUser is an agency staff profile, one-to-one with a Supabase Auth
// identity via AuthID. Role changes are restricted to owners.
type AdminUser struct {
	ID        string     `json:"id"`
	AuthID    string     `json:"auth_id,omitempty"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      AdminRole  `json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ClientUser is a portal login belonging to a client company.
type ClientUser struct {
	ID                     string     `json:"id"`
	AuthID                 string     `json:"auth_id,omitempty"`
	ClientID               string     `json:"client_id"`
	Email                  string     `json:"email"`
	FullName               string     `json:"full_name"`
	IsActive               bool       `json:"is_active"`
	LastLogin              *time.Time `json:"last_login,omitempty"`
	RequiresPasswordChange bool       `json:"requires_password_change"`
}

// ============================================================
// Clients
// ============================================================

// ClientStatus is the lifecycle stage of a client company.
type ClientStatus string

const (
	ClientProspect   ClientStatus = "prospect"
	ClientLead       ClientStatus = "lead"
	ClientOnboarding ClientStatus = "onboarding"
	ClientActive     ClientStatus = "active"
	ClientTrial      ClientStatus = "trial"
	ClientInactive   ClientStatus = "inactive"
	ClientChurned    ClientStatus = "churned"
	ClientArchived   ClientStatus = "archived"
)

// Valid reports whether the status is a known client lifecycle stage.
func (s ClientStatus) Valid() bool {
	switch s {
	case ClientProspect, ClientLead, ClientOnboarding, ClientActive,
		ClientTrial, ClientInactive, ClientChurned, ClientArchived:
		return true
	}
	return false
}

// Client is a company/lead record managed by the agency.
type Client struct {
	ID            string       `json:"id"`
	CompanyName   string       `json:"company_name"`
	ContactName   string       `json:"contact_name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	Website       string       `json:"website,omitempty"`
	Industry      string       `json:"industry,omitempty"`
	Status        ClientStatus `json:"status"`
	Source        string       `json:"source,omitempty"`
	Notes         string       `json:"notes,omitempty"`
	LifetimeValue float64      `json:"lifetime_value"`
	CreatedBy     string       `json:"created_by,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// ============================================================
// Projects
// ============================================================

// Project is a piece of work the agency delivers for a client.
type Project struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"client_id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Service     string     `json:"service,omitempty"`
	Status      string     `json:"status"` // planning, in_progress, review, completed, on_hold, cancelled
	Budget      float64    `json:"budget"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ============================================================
// Invoices
// ============================================================

// InvoiceLineItem is one billed line on an invoice. Amount is always
// recomputed server-side as Quantity * UnitPrice.
type InvoiceLineItem struct {
	ID          string  `json:"id"`
	InvoiceID   string  `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
	SortOrder   int     `json:"sort_order"`
}

// Invoice is a bill issued to a client. Totals are derived from line
// items, never accepted from the caller.
type Invoice struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	InvoiceNumber string     `json:"invoice_number"`
	Status        string     `json:"status"` // draft, sent, paid, overdue, cancelled
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       time.Time  `json:"due_date"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	TaxRate       float64    `json:"tax_rate"`
	TaxAmount     float64    `json:"tax_amount"`
	TotalAmount   float64    `json:"total_amount"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	LineItems []InvoiceLineItem `json:"line_items,omitempty"`
}

// ============================================================
// Catalog
// ============================================================

// Product is a sellable service offering shown on the marketing site.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price"`
	Billing     string    `json:"billing"` // one_time, monthly, yearly
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Package bundles products at a combined price.
type Package struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	ProductIDs  []string  `json:"product_ids,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClientSubscription links a client to a recurring product or package.
type ClientSubscription struct {
	ID        string     `json:"id"`
	ClientID  string     `json:"client_id"`
	ProductID string     `json:"product_id,omitempty"`
	PackageID string     `json:"package_id,omitempty"`
	Status    string     `json:"status"` // active, paused, cancelled
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// ============================================================
// Activity log
// ============================================================

// ActivityLog is an append-only audit entry. Entries are never updated
// or deleted; writes are best-effort and never fail a parent operation.
type ActivityLog struct {
	ID          string         `json:"id"`
	AdminUserID string         `json:"admin_user_id"`
	ActionType  string         `json:"action_type"`
	EntityType  string         `json:"entity_type"`
	EntityID    string         `json:"entity_id"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ============================================================
// Dashboard
// ============================================================

// DashboardStats aggregates headline numbers for the admin dashboard.
type DashboardStats struct {
	TotalClients   int     `json:"total_clients"`
	ActiveClients  int     `json:"active_clients"`
	OpenProjects   int     `json:"open_projects"`
	UnpaidInvoices int     `json:"unpaid_invoices"`
	Outstanding    float64 `json:"outstanding_billed"`
	RevenueYTD     float64 `json:"revenue_ytd"`
}
