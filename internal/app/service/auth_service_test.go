package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/common/security"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/repository"
)

type testEnv struct {
	store  *repository.MemoryStore
	tokens *security.TokenService
	auth   *AuthService
	users  *UserAdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := security.NewTokenService([]byte("service-test-secret"), 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	store := repository.NewMemoryStore()
	return &testEnv{
		store:  store,
		tokens: tokens,
		auth:   NewAuthService(store.Users(), tokens, zap.NewNop()),
		users:  NewUserAdminService(store.Users(), zap.NewNop()),
	}
}

func (e *testEnv) register(t *testing.T, email, role string, requester *security.Claims) *model.User {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), RegisterRequest{
		Name: "N " + email, Email: email, Password: "pw-" + email, Role: role,
	}, requester)
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return resp.User
}

func claimsFor(u *model.User) *security.Claims {
	return &security.Claims{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// =============================================================================
// Register
// =============================================================================

func TestRegister_FirstAccountIsSuper(t *testing.T) {
	for _, requested := range []string{"", "user", "admin", "super", "nonsense"} {
		t.Run("requested="+requested, func(t *testing.T) {
			env := newTestEnv(t)
			u := env.register(t, "first@example.com", requested, nil)
			if u.Role != model.RoleSuper {
				t.Errorf("first account role = %q, want super", u.Role)
			}
		})
	}
}

func TestRegister_ElevationRules(t *testing.T) {
	env := newTestEnv(t)
	super := env.register(t, "root@example.com", "", nil)
	plain := env.register(t, "plain@example.com", "", nil)

	tests := []struct {
		name      string
		requested string
		requester *security.Claims
		want      model.Role
	}{
		{"anonymous asks for super", "super", nil, model.RoleUser},
		{"user asks for super", "super", claimsFor(plain), model.RoleUser},
		{"anonymous asks for admin", "admin", nil, model.RoleUser},
		{"super requester grants super", "super", claimsFor(super), model.RoleSuper},
		{"super requester, no role asked", "", claimsFor(super), model.RoleUser},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := "u" + string(rune('a'+i)) + "@example.com"
			u := env.register(t, email, tt.requested, tt.requester)
			if u.Role != tt.want {
				t.Errorf("role = %q, want %q", u.Role, tt.want)
			}
		})
	}
}

func TestRegister_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada@Example.com", "", nil)

	_, err := env.auth.Register(context.Background(), RegisterRequest{Email: "  ada@example.COM ", Password: "x"}, nil)
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("Register() error = %v, want ErrConflict", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	for _, req := range []RegisterRequest{
		{Email: "a@example.com"},
		{Password: "pw"},
		{Email: "   ", Password: "pw"},
	} {
		if _, err := env.auth.Register(context.Background(), req, nil); !errors.Is(err, common.ErrBadRequest) {
			t.Errorf("Register(%+v) error = %v, want ErrBadRequest", req, err)
		}
	}
}

// =============================================================================
// Login
// =============================================================================

func TestLogin_TokenCarriesStoredRole(t *testing.T) {
	env := newTestEnv(t)
	emails := []string{"one@example.com", "two@example.com", "three@example.com"}
	for _, email := range emails {
		env.register(t, email, "", nil)
	}

	for _, email := range emails {
		t.Run(email, func(t *testing.T) {
			resp, err := env.auth.Login(context.Background(), LoginRequest{Email: email, Password: "pw-" + email})
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			stored, err := env.store.Users().FindByEmail(context.Background(), email)
			if err != nil {
				t.Fatalf("FindByEmail() error = %v", err)
			}
			claims, ok := env.tokens.Verify(resp.Token)
			if !ok {
				t.Fatal("Verify() rejected login token")
			}
			if claims.Role != stored.Role || claims.UserID != stored.ID {
				t.Errorf("claims = %+v, stored role %q id %q", claims, stored.Role, stored.ID)
			}
		})
	}
}

func TestLogin_Failures(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "root@example.com", "", nil)
	u := env.register(t, "off@example.com", "", nil)
	disabled := true
	if _, err := env.store.Users().UpdateAccess(context.Background(), u.ID, model.AccessUpdate{Disabled: &disabled}); err != nil {
		t.Fatalf("UpdateAccess() error = %v", err)
	}

	tests := []struct {
		name string
		req  LoginRequest
		want error
	}{
		{"missing password", LoginRequest{Email: "root@example.com"}, common.ErrBadRequest},
		{"unknown email", LoginRequest{Email: "nobody@example.com", Password: "x"}, common.ErrUnauthorized},
		{"wrong password", LoginRequest{Email: "root@example.com", Password: "nope"}, common.ErrUnauthorized},
		{"disabled account", LoginRequest{Email: "off@example.com", Password: "pw-off@example.com"}, common.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := env.auth.Login(context.Background(), tt.req); !errors.Is(err, tt.want) {
				t.Errorf("Login() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// =============================================================================
// Profile
// =============================================================================

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	u := env.register(t, "me@example.com", "", nil)
	env.register(t, "taken@example.com", "", nil)

	if _, err := env.auth.UpdateProfile(context.Background(), u.ID, ProfileRequest{}); !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("empty update error = %v, want ErrBadRequest", err)
	}

	taken := "TAKEN@example.com"
	if _, err := env.auth.UpdateProfile(context.Background(), u.ID, ProfileRequest{Email: &taken}); !errors.Is(err, common.ErrConflict) {
		t.Errorf("duplicate email error = %v, want ErrConflict", err)
	}

	phone := "+254700000000"
	updated, err := env.auth.UpdateProfile(context.Background(), u.ID, ProfileRequest{Phone: &phone})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if updated.Phone != phone || updated.Email != "me@example.com" {
		t.Errorf("UpdateProfile() = %+v", updated)
	}

	mixed := " Me.Again@Example.COM"
	updated, err = env.auth.UpdateProfile(context.Background(), u.ID, ProfileRequest{Email: &mixed})
	if err != nil || updated.Email != "me.again@example.com" {
		t.Errorf("UpdateProfile(email) = %+v, %v; want the lower-cased address as on registration", updated, err)
	}

	if _, err := env.auth.Profile(context.Background(), "missing"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("Profile(missing) error = %v, want ErrNotFound", err)
	}
}
