package service

import (
	"context"
	"errors"
	"testing"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUpdateAccess_AssigningSuper(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.register(t, "root@example.com", "", nil)
	admin := env.register(t, "admin@example.com", "", nil)
	target := env.register(t, "target@example.com", "", nil)

	if _, err := env.users.UpdateAccess(ctx, claimsFor(super), admin.ID, UpdateAccessRequest{Role: strPtr("admin")}); err != nil {
		t.Fatalf("promote to admin error = %v", err)
	}
	admin.Role = model.RoleAdmin

	_, err := env.users.UpdateAccess(ctx, claimsFor(admin), target.ID, UpdateAccessRequest{Role: strPtr("super")})
	if !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("admin assigning super error = %v, want ErrForbidden", err)
	}
	stored, _ := env.store.Users().FindByID(ctx, target.ID)
	if stored.Role != model.RoleUser {
		t.Errorf("target role after refused update = %q, want user", stored.Role)
	}

	updated, err := env.users.UpdateAccess(ctx, claimsFor(super), target.ID, UpdateAccessRequest{Role: strPtr("super")})
	if err != nil {
		t.Fatalf("super assigning super error = %v", err)
	}
	if updated.Role != model.RoleSuper {
		t.Errorf("role = %q, want super", updated.Role)
	}
}

func TestUpdateAccess_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.register(t, "root@example.com", "", nil)
	u := env.register(t, "u@example.com", "", nil)

	tests := []struct {
		name string
		id   string
		req  UpdateAccessRequest
		want error
	}{
		{"empty body", u.ID, UpdateAccessRequest{}, common.ErrBadRequest},
		{"unknown role", u.ID, UpdateAccessRequest{Role: strPtr("owner")}, common.ErrUnprocessable},
		{"missing user", "nope", UpdateAccessRequest{Disabled: boolPtr(true)}, common.ErrNotFound},
		{"demote last super", super.ID, UpdateAccessRequest{Role: strPtr("admin")}, common.ErrInvariant},
		{"disable last super", super.ID, UpdateAccessRequest{Disabled: boolPtr(true)}, common.ErrInvariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.users.UpdateAccess(ctx, claimsFor(super), tt.id, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("UpdateAccess() error = %v, want %v", err, tt.want)
			}
		})
	}

	disabled, err := env.users.UpdateAccess(ctx, claimsFor(super), u.ID, UpdateAccessRequest{Disabled: boolPtr(true)})
	if err != nil {
		t.Fatalf("disable user error = %v", err)
	}
	if !disabled.Disabled || disabled.Role != model.RoleUser {
		t.Errorf("UpdateAccess() = %+v", disabled)
	}
}

func TestUpdateAccess_AdminCannotTouchSuper(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.register(t, "root@example.com", "", nil)
	second := env.register(t, "second@example.com", "super", claimsFor(super))
	admin := env.register(t, "admin@example.com", "", nil)
	if _, err := env.users.UpdateAccess(ctx, claimsFor(super), admin.ID, UpdateAccessRequest{Role: strPtr("admin")}); err != nil {
		t.Fatalf("promote error = %v", err)
	}
	admin.Role = model.RoleAdmin

	if _, err := env.users.UpdateAccess(ctx, claimsFor(admin), second.ID, UpdateAccessRequest{Disabled: boolPtr(true)}); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("admin disabling super error = %v, want ErrForbidden", err)
	}
	if _, err := env.users.UpdateAccess(ctx, claimsFor(super), second.ID, UpdateAccessRequest{Role: strPtr("user")}); err != nil {
		t.Errorf("super demoting another super error = %v", err)
	}
}

func TestDelete_LastSuperGuard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.register(t, "root@example.com", "", nil)

	err := env.users.Delete(ctx, claimsFor(super), super.ID)
	if !errors.Is(err, common.ErrInvariant) {
		t.Fatalf("Delete(last super) error = %v, want ErrInvariant", err)
	}
	if _, err := env.store.Users().FindByID(ctx, super.ID); err != nil {
		t.Errorf("last super was removed: %v", err)
	}

	second := env.register(t, "second@example.com", "super", claimsFor(super))
	if err := env.users.Delete(ctx, claimsFor(second), super.ID); err != nil {
		t.Fatalf("Delete(super with another super) error = %v", err)
	}
	if err := env.users.Delete(ctx, claimsFor(second), second.ID); !errors.Is(err, common.ErrInvariant) {
		t.Errorf("Delete(new last super) error = %v, want ErrInvariant", err)
	}
}

func TestDelete_SuperRequiresSuper(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.register(t, "root@example.com", "", nil)
	env.register(t, "second@example.com", "super", claimsFor(super))
	admin := env.register(t, "admin@example.com", "", nil)
	admin.Role = model.RoleAdmin

	if err := env.users.Delete(ctx, claimsFor(admin), super.ID); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("admin deleting super error = %v, want ErrForbidden", err)
	}
	plain := env.register(t, "plain@example.com", "", nil)
	if err := env.users.Delete(ctx, claimsFor(admin), plain.ID); err != nil {
		t.Errorf("admin deleting user error = %v", err)
	}
	if err := env.users.Delete(ctx, claimsFor(admin), plain.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.register(t, "root@example.com", "", nil)

	tests := []struct {
		name string
		req  CreateUserRequest
		want error
		role model.Role
	}{
		{"defaults to user", CreateUserRequest{Email: "a@example.com", Password: "pw"}, nil, model.RoleUser},
		{"admin role", CreateUserRequest{Email: "b@example.com", Password: "pw", Role: "admin"}, nil, model.RoleAdmin},
		{"super role", CreateUserRequest{Email: "c@example.com", Password: "pw", Role: "super"}, nil, model.RoleSuper},
		{"invalid role", CreateUserRequest{Email: "d@example.com", Password: "pw", Role: "root"}, common.ErrUnprocessable, ""},
		{"duplicate", CreateUserRequest{Email: "ROOT@example.com", Password: "pw"}, common.ErrConflict, ""},
		{"missing password", CreateUserRequest{Email: "e@example.com"}, common.ErrBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := env.users.Create(ctx, claimsFor(super), tt.req)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Errorf("Create() error = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if u.Role != tt.role {
				t.Errorf("role = %q, want %q", u.Role, tt.role)
			}
		})
	}
}

func TestSetRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	super := env.register(t, "root@example.com", "", nil)
	u := env.register(t, "Someone@example.com", "", nil)

	if _, err := env.users.SetRole(ctx, claimsFor(super), SetRoleRequest{Role: "admin"}); !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("SetRole(no target) error = %v, want ErrBadRequest", err)
	}
	if _, err := env.users.SetRole(ctx, claimsFor(super), SetRoleRequest{UserID: u.ID}); !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("SetRole(no role) error = %v, want ErrBadRequest", err)
	}
	updated, err := env.users.SetRole(ctx, claimsFor(super), SetRoleRequest{Email: "someone@EXAMPLE.com", Role: "admin"})
	if err != nil {
		t.Fatalf("SetRole() error = %v", err)
	}
	if updated.ID != u.ID || updated.Role != model.RoleAdmin {
		t.Errorf("SetRole() = %+v", updated)
	}
	if _, err := env.users.SetRole(ctx, claimsFor(super), SetRoleRequest{UserID: super.ID, Role: "user"}); !errors.Is(err, common.ErrInvariant) {
		t.Errorf("SetRole(demote last super) error = %v, want ErrInvariant", err)
	}
}
