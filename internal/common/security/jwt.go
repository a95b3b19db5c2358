package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

// Claims is the typed view of a verified session token.
type Claims struct {
	UserID    string
	Email     string
	Name      string
	Role      model.Role
	ExpiresAt time.Time
}

// TokenService signs and verifies HS256 session tokens with the key it was built with.
type TokenService struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
	now  func() time.Time
}

func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	if len(key) == 0 {
		return nil, errors.New("token signing key is empty")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &TokenService{
		auth: jwtauth.New("HS256", key, nil),
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

func (s *TokenService) Issue(user *model.User) (string, error) {
	if user == nil || user.ID == "" || user.Role == "" {
		return "", errors.New("token subject needs an id and a role")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"role":  string(user.Role),
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}
	_, tokenString, err := s.auth.Encode(claims)
	return tokenString, err
}

// Verify never returns an error: a missing, forged, expired or malformed token
// simply yields (nil, false).
func (s *TokenService) Verify(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}
	token, err := jwtauth.VerifyToken(s.auth, tokenString)
	if err != nil || token == nil {
		return nil, false
	}

	private := token.PrivateClaims()
	id := stringClaim(private, "id")
	if id == "" {
		id = token.Subject()
	}
	role, ok := model.ParseRole(stringClaim(private, "role"))
	if id == "" || !ok {
		return nil, false
	}
	return &Claims{
		UserID:    id,
		Email:     stringClaim(private, "email"),
		Name:      stringClaim(private, "name"),
		Role:      role,
		ExpiresAt: token.Expiration(),
	}, true
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
