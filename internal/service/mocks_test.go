package service_test

import (
	"context"
	"sync"

	"github.com/hartleydigital/portal-api/internal/domain"
)

// --- Shared mocks for the service tests ---

type fakeIDP struct {
	session           *domain.Session
	signInErr         error
	failFirstN        int // reject this many sign-ins before succeeding
	signOutErr        error
	updatePasswordErr error
	resetErr          error

	mu           sync.Mutex
	signInCalls  int
	signOutCalls int
	lastPassword string
}

func (f *fakeIDP) SignInWithPassword(_ context.Context, _, password string) (*domain.Session, error) {
	f.mu.Lock()
	f.signInCalls++
	calls := f.signInCalls
	f.mu.Unlock()
	if f.failFirstN > 0 && calls <= f.failFirstN {
		return nil, &domain.ErrUnauthorized{Message: domain.GenericLoginError}
	}
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.session, nil
}

func (f *fakeIDP) SignOut(_ context.Context, _ string) error {
	f.mu.Lock()
	f.signOutCalls++
	f.mu.Unlock()
	return f.signOutErr
}

func (f *fakeIDP) GetUser(_ context.Context, _ string) (string, string, error) {
	if f.session != nil {
		return f.session.UserID, f.session.UserEmail, nil
	}
	return "", "", f.signInErr
}

func (f *fakeIDP) UpdateUserPassword(_ context.Context, _, newPassword string) error {
	f.mu.Lock()
	f.lastPassword = newPassword
	f.mu.Unlock()
	return f.updatePasswordErr
}

func (f *fakeIDP) ResetPasswordForEmail(_ context.Context, _ string) error {
	return f.resetErr
}

type fakeAdminAPI struct {
	createUserID string
	createErr    error
	migrateID    string
	migrateErr   error
	sendErr      error

	mu           sync.Mutex
	createCalls  int
	migrateCalls int
	sendCalls    int
	lastCreate   *domain.ProvisionUserRequest
	lastMigrate  *domain.ProvisionUserRequest
}

func (f *fakeAdminAPI) CreateUser(_ context.Context, req *domain.ProvisionUserRequest) (string, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastCreate = req
	f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	return f.createUserID, nil
}

func (f *fakeAdminAPI) MigrateUser(_ context.Context, req *domain.ProvisionUserRequest) (string, error) {
	f.mu.Lock()
	f.migrateCalls++
	f.lastMigrate = req
	f.mu.Unlock()
	if f.migrateErr != nil {
		return "", f.migrateErr
	}
	return f.migrateID, nil
}

func (f *fakeAdminAPI) SendContactEmail(_ context.Context, _ *domain.ContactSubmission) error {
	f.mu.Lock()
	f.sendCalls++
	f.mu.Unlock()
	return f.sendErr
}

// fakeAudit records entries synchronously so tests can assert on them.
type fakeAudit struct {
	mu      sync.Mutex
	entries []domain.ActivityLog
}

func (f *fakeAudit) Record(entry domain.ActivityLog) {
	f.mu.Lock()
	f.entries = append(f.entries, entry)
	f.mu.Unlock()
}

func (f *fakeAudit) byAction(action string) []domain.ActivityLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ActivityLog
	for _, e := range f.entries {
		if e.ActionType == action {
			out = append(out, e)
		}
	}
	return out
}

// fakeStore implements port.PortalStore with overridable function
// fields. Unset methods return zero values.
type fakeStore struct {
	GetAdminByAuthIDFn  func(ctx context.Context, authID string) (*domain.AdminUser, error)
	GetAdminByIDFn      func(ctx context.Context, id string) (*domain.AdminUser, error)
	ListAdminsFn        func(ctx context.Context) ([]domain.AdminUser, error)
	CountActiveOwnersFn func(ctx context.Context) (int, error)
	UpdateAdminFn       func(ctx context.Context, id string, updates map[string]any) error

	GetClientUserByAuthIDFn    func(ctx context.Context, authID string) (*domain.ClientUser, error)
	ListClientUsersByClientFn  func(ctx context.Context, clientID string) ([]domain.ClientUser, error)
	UpdateClientUserFn         func(ctx context.Context, id string, updates map[string]any) error
	UpdateClientUserByAuthIDFn func(ctx context.Context, authID string, updates map[string]any) error

	GetLegacyCredentialFn func(ctx context.Context, realm domain.Realm, email string) (*domain.LegacyCredential, error)

	CreateClientFn func(ctx context.Context, c *domain.Client) (*domain.Client, error)
	GetClientFn    func(ctx context.Context, id string) (*domain.Client, error)
	ListClientsFn  func(ctx context.Context) ([]domain.Client, error)
	UpdateClientFn func(ctx context.Context, id string, updates map[string]any) (*domain.Client, error)
	DeleteClientFn func(ctx context.Context, id string) error

	CreateProjectFn        func(ctx context.Context, p *domain.Project) (*domain.Project, error)
	GetProjectFn           func(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsFn         func(ctx context.Context) ([]domain.Project, error)
	ListProjectsByClientFn func(ctx context.Context, clientID string) ([]domain.Project, error)
	UpdateProjectFn        func(ctx context.Context, id string, updates map[string]any) (*domain.Project, error)
	DeleteProjectFn        func(ctx context.Context, id string) error

	CreateInvoiceFn        func(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error)
	GetInvoiceFn           func(ctx context.Context, id string) (*domain.Invoice, error)
	ListInvoicesFn         func(ctx context.Context) ([]domain.Invoice, error)
	ListInvoicesByClientFn func(ctx context.Context, clientID string) ([]domain.Invoice, error)
	UpdateInvoiceFn        func(ctx context.Context, id string, updates map[string]any) (*domain.Invoice, error)
	InsertLineItemsFn      func(ctx context.Context, invoiceID string, items []domain.InvoiceLineItem) error
	DeleteLineItemsFn      func(ctx context.Context, invoiceID string) error
	ListLineItemsFn        func(ctx context.Context, invoiceID string) ([]domain.InvoiceLineItem, error)

	ListProductsFn              func(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	CreateProductFn             func(ctx context.Context, p *domain.Product) (*domain.Product, error)
	UpdateProductFn             func(ctx context.Context, id string, updates map[string]any) (*domain.Product, error)
	ListPackagesFn              func(ctx context.Context, activeOnly bool) ([]domain.Package, error)
	CreatePackageFn             func(ctx context.Context, p *domain.Package) (*domain.Package, error)
	ListSubscriptionsByClientFn func(ctx context.Context, clientID string) ([]domain.ClientSubscription, error)
	CreateSubscriptionFn        func(ctx context.Context, s *domain.ClientSubscription) (*domain.ClientSubscription, error)
	UpdateSubscriptionFn        func(ctx context.Context, id string, updates map[string]any) error
}

func (f *fakeStore) GetAdminByAuthID(ctx context.Context, authID string) (*domain.AdminUser, error) {
	if f.GetAdminByAuthIDFn != nil {
		return f.GetAdminByAuthIDFn(ctx, authID)
	}
	return nil, nil
}

func (f *fakeStore) GetAdminByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	if f.GetAdminByIDFn != nil {
		return f.GetAdminByIDFn(ctx, id)
	}
	return nil, &domain.ErrNotFound{Resource: "admin_user", ID: id}
}

func (f *fakeStore) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	if f.ListAdminsFn != nil {
		return f.ListAdminsFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) CountActiveOwners(ctx context.Context) (int, error) {
	if f.CountActiveOwnersFn != nil {
		return f.CountActiveOwnersFn(ctx)
	}
	return 0, nil
}

func (f *fakeStore) UpdateAdmin(ctx context.Context, id string, updates map[string]any) error {
	if f.UpdateAdminFn != nil {
		return f.UpdateAdminFn(ctx, id, updates)
	}
	return nil
}

func (f *fakeStore) GetClientUserByAuthID(ctx context.Context, authID string) (*domain.ClientUser, error) {
	if f.GetClientUserByAuthIDFn != nil {
		return f.GetClientUserByAuthIDFn(ctx, authID)
	}
	return nil, nil
}

func (f *fakeStore) ListClientUsersByClient(ctx context.Context, clientID string) ([]domain.ClientUser, error) {
	if f.ListClientUsersByClientFn != nil {
		return f.ListClientUsersByClientFn(ctx, clientID)
	}
	return nil, nil
}

func (f *fakeStore) UpdateClientUser(ctx context.Context, id string, updates map[string]any) error {
	if f.UpdateClientUserFn != nil {
		return f.UpdateClientUserFn(ctx, id, updates)
	}
	return nil
}

func (f *fakeStore) UpdateClientUserByAuthID(ctx context.Context, authID string, updates map[string]any) error {
	if f.UpdateClientUserByAuthIDFn != nil {
		return f.UpdateClientUserByAuthIDFn(ctx, authID, updates)
	}
	return nil
}

func (f *fakeStore) GetLegacyCredential(ctx context.Context, realm domain.Realm, email string) (*domain.LegacyCredential, error) {
	if f.GetLegacyCredentialFn != nil {
		return f.GetLegacyCredentialFn(ctx, realm, email)
	}
	return nil, nil
}

func (f *fakeStore) CreateClient(ctx context.Context, c *domain.Client) (*domain.Client, error) {
	if f.CreateClientFn != nil {
		return f.CreateClientFn(ctx, c)
	}
	out := *c
	out.ID = "client-1"
	return &out, nil
}

func (f *fakeStore) GetClient(ctx context.Context, id string) (*domain.Client, error) {
	if f.GetClientFn != nil {
		return f.GetClientFn(ctx, id)
	}
	return nil, &domain.ErrNotFound{Resource: "client", ID: id}
}

func (f *fakeStore) ListClients(ctx context.Context) ([]domain.Client, error) {
	if f.ListClientsFn != nil {
		return f.ListClientsFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) UpdateClient(ctx context.Context, id string, updates map[string]any) (*domain.Client, error) {
	if f.UpdateClientFn != nil {
		return f.UpdateClientFn(ctx, id, updates)
	}
	return &domain.Client{ID: id}, nil
}

func (f *fakeStore) DeleteClient(ctx context.Context, id string) error {
	if f.DeleteClientFn != nil {
		return f.DeleteClientFn(ctx, id)
	}
	return nil
}

func (f *fakeStore) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	if f.CreateProjectFn != nil {
		return f.CreateProjectFn(ctx, p)
	}
	out := *p
	out.ID = "project-1"
	return &out, nil
}

func (f *fakeStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	if f.GetProjectFn != nil {
		return f.GetProjectFn(ctx, id)
	}
	return nil, &domain.ErrNotFound{Resource: "project", ID: id}
}

func (f *fakeStore) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if f.ListProjectsFn != nil {
		return f.ListProjectsFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) ListProjectsByClient(ctx context.Context, clientID string) ([]domain.Project, error) {
	if f.ListProjectsByClientFn != nil {
		return f.ListProjectsByClientFn(ctx, clientID)
	}
	return nil, nil
}

func (f *fakeStore) UpdateProject(ctx context.Context, id string, updates map[string]any) (*domain.Project, error) {
	if f.UpdateProjectFn != nil {
		return f.UpdateProjectFn(ctx, id, updates)
	}
	return &domain.Project{ID: id}, nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, id string) error {
	if f.DeleteProjectFn != nil {
		return f.DeleteProjectFn(ctx, id)
	}
	return nil
}

func (f *fakeStore) CreateInvoice(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, error) {
	if f.CreateInvoiceFn != nil {
		return f.CreateInvoiceFn(ctx, inv)
	}
	out := *inv
	out.ID = "invoice-1"
	return &out, nil
}

func (f *fakeStore) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	if f.GetInvoiceFn != nil {
		return f.GetInvoiceFn(ctx, id)
	}
	return nil, &domain.ErrNotFound{Resource: "invoice", ID: id}
}

func (f *fakeStore) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	if f.ListInvoicesFn != nil {
		return f.ListInvoicesFn(ctx)
	}
	return nil, nil
}

func (f *fakeStore) ListInvoicesByClient(ctx context.Context, clientID string) ([]domain.Invoice, error) {
	if f.ListInvoicesByClientFn != nil {
		return f.ListInvoicesByClientFn(ctx, clientID)
	}
	return nil, nil
}

func (f *fakeStore) UpdateInvoice(ctx context.Context, id string, updates map[string]any) (*domain.Invoice, error) {
	if f.UpdateInvoiceFn != nil {
		return f.UpdateInvoiceFn(ctx, id, updates)
	}
	return &domain.Invoice{ID: id}, nil
}

func (f *fakeStore) InsertLineItems(ctx context.Context, invoiceID string, items []domain.InvoiceLineItem) error {
	if f.InsertLineItemsFn != nil {
		return f.InsertLineItemsFn(ctx, invoiceID, items)
	}
	return nil
}

func (f *fakeStore) DeleteLineItems(ctx context.Context, invoiceID string) error {
	if f.DeleteLineItemsFn != nil {
		return f.DeleteLineItemsFn(ctx, invoiceID)
	}
	return nil
}

func (f *fakeStore) ListLineItems(ctx context.Context, invoiceID string) ([]domain.InvoiceLineItem, error) {
	if f.ListLineItemsFn != nil {
		return f.ListLineItemsFn(ctx, invoiceID)
	}
	return nil, nil
}

func (f *fakeStore) ListProducts(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	if f.ListProductsFn != nil {
		return f.ListProductsFn(ctx, activeOnly)
	}
	return nil, nil
}

func (f *fakeStore) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	if f.CreateProductFn != nil {
		return f.CreateProductFn(ctx, p)
	}
	out := *p
	out.ID = "product-1"
	return &out, nil
}

func (f *fakeStore) UpdateProduct(ctx context.Context, id string, updates map[string]any) (*domain.Product, error) {
	if f.UpdateProductFn != nil {
		return f.UpdateProductFn(ctx, id, updates)
	}
	return &domain.Product{ID: id}, nil
}

func (f *fakeStore) ListPackages(ctx context.Context, activeOnly bool) ([]domain.Package, error) {
	if f.ListPackagesFn != nil {
		return f.ListPackagesFn(ctx, activeOnly)
	}
	return nil, nil
}

func (f *fakeStore) CreatePackage(ctx context.Context, p *domain.Package) (*domain.Package, error) {
	if f.CreatePackageFn != nil {
		return f.CreatePackageFn(ctx, p)
	}
	out := *p
	out.ID = "package-1"
	return &out, nil
}

func (f *fakeStore) ListSubscriptionsByClient(ctx context.Context, clientID string) ([]domain.ClientSubscription, error) {
	if f.ListSubscriptionsByClientFn != nil {
		return f.ListSubscriptionsByClientFn(ctx, clientID)
	}
	return nil, nil
}

func (f *fakeStore) CreateSubscription(ctx context.Context, s *domain.ClientSubscription) (*domain.ClientSubscription, error) {
	if f.CreateSubscriptionFn != nil {
		return f.CreateSubscriptionFn(ctx, s)
	}
	out := *s
	out.ID = "sub-1"
	return &out, nil
}

func (f *fakeStore) UpdateSubscription(ctx context.Context, id string, updates map[string]any) error {
	if f.UpdateSubscriptionFn != nil {
		return f.UpdateSubscriptionFn(ctx, id, updates)
	}
	return nil
}
