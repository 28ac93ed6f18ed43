package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

var owner = &domain.AdminUser{ID: "owner-1", Role: domain.RoleOwner, IsActive: true}

func newAdminUserService(store *fakeStore, api *fakeAdminAPI, audit *fakeAudit) *service.AdminUserService {
	return service.NewAdminUserService(store, api, audit, observability.NewMetrics(), zap.NewNop())
}

func boolPtr(b bool) *bool           { return &b }
func rolePtr(r domain.AdminRole) *domain.AdminRole { return &r }

func TestCreateAdmin_OwnerOnly(t *testing.T) {
	audit := &fakeAudit{}
	svc := newAdminUserService(&fakeStore{}, &fakeAdminAPI{}, audit)

	_, err := svc.CreateAdmin(context.Background(), manager, &domain.CreateAdminUserRequest{
		Email: "new@agency.com", FullName: "New Staff", Role: domain.RoleAdmin, Password: "Str0ngPass!",
	})
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden for a manager, got %v", err)
	}
	// Rejected attempts are themselves audited.
	if len(audit.byAction("admin_create_rejected")) != 1 {
		t.Error("expected the rejected attempt to be audited")
	}
}

func TestCreateAdmin_Success(t *testing.T) {
	api := &fakeAdminAPI{createUserID: "admin-9"}
	audit := &fakeAudit{}
	svc := newAdminUserService(&fakeStore{}, api, audit)

	admin, err := svc.CreateAdmin(context.Background(), owner, &domain.CreateAdminUserRequest{
		Email: "New@Agency.com", FullName: "New Staff", Role: domain.RoleAdmin, Password: "Str0ngPass!",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if admin.ID != "admin-9" || admin.Role != domain.RoleAdmin {
		t.Errorf("unexpected created admin: %+v", admin)
	}
	if api.lastCreate.Email != "new@agency.com" {
		t.Errorf("email must be normalized, got %q", api.lastCreate.Email)
	}
	if api.lastCreate.UserType != domain.RealmAdmin {
		t.Errorf("provisioning must target the admin realm, got %s", api.lastCreate.UserType)
	}
	if len(audit.byAction("admin_created")) != 1 {
		t.Error("expected admin_created audit entry")
	}
}

func TestUpdateAdmin_LastOwnerGuard(t *testing.T) {
	cases := []struct {
		name string
		req  *domain.UpdateAdminUserRequest
	}{
		{"deactivate", &domain.UpdateAdminUserRequest{IsActive: boolPtr(false)}},
		{"demote", &domain.UpdateAdminUserRequest{Role: rolePtr(domain.RoleManager)}},
		{"demote and deactivate", &domain.UpdateAdminUserRequest{Role: rolePtr(domain.RoleAdmin), IsActive: boolPtr(false)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			updated := false
			store := &fakeStore{
				GetAdminByIDFn: func(_ context.Context, id string) (*domain.AdminUser, error) {
					return &domain.AdminUser{ID: id, Role: domain.RoleOwner, IsActive: true}, nil
				},
				CountActiveOwnersFn: func(_ context.Context) (int, error) { return 1, nil },
				UpdateAdminFn: func(_ context.Context, _ string, _ map[string]any) error {
					updated = true
					return nil
				},
			}
			audit := &fakeAudit{}
			svc := newAdminUserService(store, &fakeAdminAPI{}, audit)

			_, err := svc.UpdateAdmin(context.Background(), owner, "owner-1", tc.req)
			var lastOwner *domain.ErrLastOwner
			if !errors.As(err, &lastOwner) {
				t.Fatalf("expected ErrLastOwner, got %v", err)
			}
			if updated {
				t.Error("refused update must not write anything")
			}
			if len(audit.byAction("admin_update_rejected")) != 1 {
				t.Error("expected the refusal to be audited")
			}
		})
	}
}

func TestUpdateAdmin_OtherOwnersRemain(t *testing.T) {
	store := &fakeStore{
		GetAdminByIDFn: func(_ context.Context, id string) (*domain.AdminUser, error) {
			return &domain.AdminUser{ID: id, Role: domain.RoleOwner, IsActive: true}, nil
		},
		CountActiveOwnersFn: func(_ context.Context) (int, error) { return 2, nil },
	}
	svc := newAdminUserService(store, &fakeAdminAPI{}, &fakeAudit{})

	_, err := svc.UpdateAdmin(context.Background(), owner, "owner-2", &domain.UpdateAdminUserRequest{
		IsActive: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("deactivating a non-last owner must succeed, got %v", err)
	}
}

func TestUpdateAdmin_NonOwnerTargetBypassesGuard(t *testing.T) {
	counted := false
	store := &fakeStore{
		GetAdminByIDFn: func(_ context.Context, id string) (*domain.AdminUser, error) {
			return &domain.AdminUser{ID: id, Role: domain.RoleManager, IsActive: true}, nil
		},
		CountActiveOwnersFn: func(_ context.Context) (int, error) {
			counted = true
			return 1, nil
		},
	}
	svc := newAdminUserService(store, &fakeAdminAPI{}, &fakeAudit{})

	_, err := svc.UpdateAdmin(context.Background(), owner, "mgr-1", &domain.UpdateAdminUserRequest{
		IsActive: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("deactivating a manager must succeed, got %v", err)
	}
	if counted {
		t.Error("owner count is only needed when an owner would be removed")
	}
}

func TestUpdateAdmin_OwnerCountUnavailable_RefusesChange(t *testing.T) {
	store := &fakeStore{
		GetAdminByIDFn: func(_ context.Context, id string) (*domain.AdminUser, error) {
			return &domain.AdminUser{ID: id, Role: domain.RoleOwner, IsActive: true}, nil
		},
		CountActiveOwnersFn: func(_ context.Context) (int, error) {
			return 0, errors.New("store down")
		},
	}
	svc := newAdminUserService(store, &fakeAdminAPI{}, &fakeAudit{})

	_, err := svc.UpdateAdmin(context.Background(), owner, "owner-1", &domain.UpdateAdminUserRequest{
		IsActive: boolPtr(false),
	})
	var lastOwner *domain.ErrLastOwner
	if !errors.As(err, &lastOwner) {
		t.Fatalf("an unverifiable owner count must refuse the change, got %v", err)
	}
}
