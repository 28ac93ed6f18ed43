package domain_test

import (
	"testing"

	"github.com/hartleydigital/portal-api/internal/domain"
)

func TestHasPermission_Matrix(t *testing.T) {
	grid := []struct {
		role domain.AdminRole
		perm domain.Permission
		want bool
	}{
		{domain.RoleOwner, domain.PermManageAdmins, true},
		{domain.RoleOwner, domain.PermManageClients, true},
		{domain.RoleOwner, domain.PermManageProjects, true},
		{domain.RoleOwner, domain.PermViewAnalytics, true},

		{domain.RoleAdmin, domain.PermManageAdmins, false},
		{domain.RoleAdmin, domain.PermManageClients, true},
		{domain.RoleAdmin, domain.PermManageProjects, true},
		{domain.RoleAdmin, domain.PermViewAnalytics, true},

		{domain.RoleManager, domain.PermManageAdmins, false},
		{domain.RoleManager, domain.PermManageClients, true},
		{domain.RoleManager, domain.PermManageProjects, true},
		{domain.RoleManager, domain.PermViewAnalytics, false},
	}
	for _, tc := range grid {
		user := &domain.AdminUser{ID: "a-1", Role: tc.role, IsActive: true}
		if got := domain.HasPermission(user, tc.perm); got != tc.want {
			t.Errorf("%s / %s: got %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestHasPermission_NilUser(t *testing.T) {
	for _, perm := range []domain.Permission{
		domain.PermManageAdmins, domain.PermManageClients,
		domain.PermManageProjects, domain.PermViewAnalytics,
	} {
		if domain.HasPermission(nil, perm) {
			t.Errorf("nil user must never hold %s", perm)
		}
	}
}

func TestHasPermission_InactiveUser(t *testing.T) {
	user := &domain.AdminUser{ID: "a-1", Role: domain.RoleOwner, IsActive: false}
	for _, perm := range []domain.Permission{
		domain.PermManageAdmins, domain.PermManageClients,
		domain.PermManageProjects, domain.PermViewAnalytics,
	} {
		if domain.HasPermission(user, perm) {
			t.Errorf("inactive owner must never hold %s", perm)
		}
	}
}

func TestHasPermission_UnknownPermission(t *testing.T) {
	user := &domain.AdminUser{ID: "a-1", Role: domain.RoleOwner, IsActive: true}
	if domain.HasPermission(user, domain.Permission("reboot_server")) {
		t.Error("unknown permissions must evaluate to false")
	}
}
