package security

import (
	"strings"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

var testKey = []byte("test-secret-key-at-least-32-chars-long")

func newTestService(t *testing.T) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testKey, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return svc
}

func testUser(role model.Role) *model.User {
	return &model.User{ID: "u-1", Name: "Ada", Email: "Ada@Example.com", Role: role}
}

// =============================================================================
// Constructor
// =============================================================================

func TestNewTokenService_EmptyKey(t *testing.T) {
	if _, err := NewTokenService(nil, time.Hour); err == nil {
		t.Error("NewTokenService() should refuse an empty key")
	}
}

// =============================================================================
// Issue / Verify
// =============================================================================

func TestIssueVerify_RoundTrip(t *testing.T) {
	svc := newTestService(t)

	for _, role := range []model.Role{model.RoleUser, model.RoleAdmin, model.RoleSuper} {
		t.Run(string(role), func(t *testing.T) {
			token, err := svc.Issue(testUser(role))
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			claims, ok := svc.Verify(token)
			if !ok {
				t.Fatal("Verify() rejected a fresh token")
			}
			if claims.UserID != "u-1" || claims.Email != "Ada@Example.com" || claims.Name != "Ada" {
				t.Errorf("Verify() claims = %+v", claims)
			}
			if claims.Role != role {
				t.Errorf("Verify() role = %q, want %q", claims.Role, role)
			}
		})
	}
}

func TestIssue_SevenDayExpiry(t *testing.T) {
	svc := newTestService(t)
	fixed := time.Now().Truncate(time.Second)
	svc.now = func() time.Time { return fixed }

	token, err := svc.Issue(testUser(model.RoleUser))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, ok := svc.Verify(token)
	if !ok {
		t.Fatal("Verify() rejected a fresh token")
	}
	want := fixed.Add(7 * 24 * time.Hour)
	if !claims.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", claims.ExpiresAt, want)
	}
}

func TestIssue_RequiresIDAndRole(t *testing.T) {
	svc := newTestService(t)
	tests := []struct {
		name string
		user *model.User
	}{
		{"nil user", nil},
		{"missing id", &model.User{Role: model.RoleUser}},
		{"missing role", &model.User{ID: "u-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Issue(tt.user); err == nil {
				t.Error("Issue() should fail")
			}
		})
	}
}

func TestVerify_Rejects(t *testing.T) {
	svc := newTestService(t)

	expiredSvc := newTestService(t)
	expiredSvc.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	expired, err := expiredSvc.Issue(testUser(model.RoleSuper))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other, err := NewTokenService([]byte("a-completely-different-signing-key"), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	forged, err := other.Issue(testUser(model.RoleSuper))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	valid, err := svc.Issue(testUser(model.RoleUser))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	_, unknownRole, err := jwtauth.New("HS256", testKey, nil).Encode(jwt.MapClaims{
		"id":   "u-1",
		"role": "owner",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong key", forged},
		{"tampered signature", tampered},
		{"unknown role", unknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if claims, ok := svc.Verify(tt.token); ok || claims != nil {
				t.Errorf("Verify() = (%+v, %v), want (nil, false)", claims, ok)
			}
		})
	}
}

// =============================================================================
// Passwords
// =============================================================================

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("HashPassword() returned the clear text")
	}
	if !CheckPasswordHash("hunter22", hash) {
		t.Error("CheckPasswordHash() rejected the right password")
	}
	if CheckPasswordHash("hunter23", hash) {
		t.Error("CheckPasswordHash() accepted the wrong password")
	}
}
