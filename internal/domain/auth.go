package domain

import "time"

// ============================================================
// Auth — Request / Response types (matches portal frontend contract)
// ============================================================

// Realm distinguishes the two authorization domains that share one
// Supabase Auth instance.
type Realm string

const (
	RealmAdmin  Realm = "admin"
	RealmClient Realm = "client"
)

// LoginRequest is the body for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the body for 200 from POST /v1/auth/login.
// Exactly one of Admin/Client is set, matching Realm.
type LoginResponse struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	ExpiresIn    int         `json:"expiresIn"`
	Realm        Realm       `json:"realm"`
	Admin        *AdminUser  `json:"admin,omitempty"`
	Client       *ClientUser `json:"client,omitempty"`
}

// Session is an authenticated Supabase session as returned by GoTrue.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	UserID       string `json:"-"`
	UserEmail    string `json:"-"`
}

// AuthEventType mirrors the Supabase auth event stream.
type AuthEventType string

const (
	EventSignedIn       AuthEventType = "SIGNED_IN"
	EventSignedOut      AuthEventType = "SIGNED_OUT"
	EventTokenRefreshed AuthEventType = "TOKEN_REFRESHED"
)

// AuthEvent is published on every auth state change and consumed
// independently by both session contexts.
type AuthEvent struct {
	Type        AuthEventType `json:"type"`
	AccessToken string        `json:"-"`
	UserID      string        `json:"user_id,omitempty"`
}

// ChangePasswordRequest is the body for PUT /v1/auth/password.
type ChangePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// PasswordResetRequest is the body for POST /v1/auth/password/reset-request.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// ============================================================
// Admin workflow request types
// ============================================================

// CreateClientRequest is the body for POST /v1/admin/clients.
type CreateClientRequest struct {
	CompanyName string       `json:"companyName"`
	ContactName string       `json:"contactName"`
	Email       string       `json:"email"`
	Phone       string       `json:"phone,omitempty"`
	Website     string       `json:"website,omitempty"`
	Industry    string       `json:"industry,omitempty"`
	Status      ClientStatus `json:"status,omitempty"`
	Source      string       `json:"source,omitempty"`
	Notes       string       `json:"notes,omitempty"`

	// Portal access (optional second workflow step).
	EnablePortalAccess bool   `json:"enablePortalAccess"`
	PortalUserName     string `json:"portalUserName,omitempty"`
	PortalUserEmail    string `json:"portalUserEmail,omitempty"`
	// Empty means generate a temporary password server-side.
	PortalUserPassword string `json:"portalUserPassword,omitempty"`
}

// CreateClientResponse reports the outcome of the compound create. When
// the portal-user step failed after the client row committed, Client is
// set and Warning carries the compound partial-failure message.
type CreateClientResponse struct {
	Client       *Client     `json:"client"`
	PortalUser   *ClientUser `json:"portalUser,omitempty"`
	TempPassword string      `json:"tempPassword,omitempty"`
	Warning      string      `json:"warning,omitempty"`
}

// UpdateClientRequest is the body for PUT /v1/admin/clients/{id}.
// Pointer fields distinguish "not sent" from zero values.
type UpdateClientRequest struct {
	CompanyName   *string       `json:"companyName,omitempty"`
	ContactName   *string       `json:"contactName,omitempty"`
	Email         *string       `json:"email,omitempty"`
	Phone         *string       `json:"phone,omitempty"`
	Website       *string       `json:"website,omitempty"`
	Industry      *string       `json:"industry,omitempty"`
	Status        *ClientStatus `json:"status,omitempty"`
	Notes         *string       `json:"notes,omitempty"`
	LifetimeValue *float64      `json:"lifetimeValue,omitempty"`
}

// CreateAdminUserRequest is the body for POST /v1/admin/users (owner only).
type CreateAdminUserRequest struct {
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
	Role     AdminRole `json:"role"`
	Password string    `json:"password"`
}

// UpdateAdminUserRequest covers role change and activation toggling.
type UpdateAdminUserRequest struct {
	Role     *AdminRole `json:"role,omitempty"`
	IsActive *bool      `json:"isActive,omitempty"`
}

// LineItemInput is a client-submitted invoice line. Amounts are ignored;
// the server recomputes them.
type LineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
}

// UpsertInvoiceRequest is the body for POST/PUT on invoices.
type UpsertInvoiceRequest struct {
	ClientID      string          `json:"clientId"`
	InvoiceNumber string          `json:"invoiceNumber"`
	Status        string          `json:"status,omitempty"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       time.Time       `json:"dueDate"`
	TaxRate       float64         `json:"taxRate"`
	Notes         string          `json:"notes,omitempty"`
	LineItems     []LineItemInput `json:"lineItems"`
}

// ============================================================
// Legacy credentials / privileged provisioning
// ============================================================

// LegacyHashSentinel marks a profile row whose credential is delegated
// to Supabase Auth. Rows holding a real bcrypt hash instead are
// pre-migration accounts.
const LegacyHashSentinel = "supabase_auth"

// LegacyCredential is the slice of a profile row the migrator needs:
// identity link state and the locally stored hash, if any.
type LegacyCredential struct {
	ProfileID    string `json:"id"`
	AuthID       string `json:"auth_id"`
	PasswordHash string `json:"password_hash"`
}

// ProvisionUserRequest is the payload for the privileged manage-users
// edge function, the only path allowed to create a Supabase Auth
// account on behalf of a profile row.
type ProvisionUserRequest struct {
	Action    string    `json:"action"` // create_user | migrate_user
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FullName  string    `json:"full_name,omitempty"`
	UserType  Realm     `json:"user_type"`
	Role      AdminRole `json:"role,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	ProfileID string    `json:"profile_id,omitempty"`
}

// ============================================================
// Contact form
// ============================================================

// ContactSubmission is the marketing-site contact form payload.
// Website is a honeypot and must be empty; RenderedAt is when the form
// was rendered, used for the minimum-fill-time check.
type ContactSubmission struct {
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Company    string    `json:"company,omitempty"`
	Service    string    `json:"service,omitempty"`
	Message    string    `json:"message"`
	Website    string    `json:"website"`
	RenderedAt time.Time `json:"renderedAt"`
}
