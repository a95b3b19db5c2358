package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/common/security"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/repository"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/metrics"
)

type contextKey string

const ClaimsCtxKey contextKey = "claims"

// ErrAccountMissing marks a verified token whose subject no longer exists.
// It always travels wrapped together with common.ErrUnauthorized.
var ErrAccountMissing = errors.New("account no longer exists")

// ExtractToken reads the bearer token from the Authorization header only.
func ExtractToken(r *http.Request) string {
	return jwtauth.TokenFromHeader(r)
}

// Gate verifies tokens and checks the caller against the stored account.
type Gate struct {
	tokens *security.TokenService
	users  repository.UserRepository
	log    *zap.Logger
}

func NewGate(tokens *security.TokenService, users repository.UserRepository, log *zap.Logger) *Gate {
	return &Gate{tokens: tokens, users: users, log: log}
}

// Authorize returns the caller's claims, ErrUnauthorized or ErrForbidden.
// Role and disabled state come from storage, so a demotion or a disable takes
// effect on the next request even while the old token is unexpired.
func (g *Gate) Authorize(r *http.Request, allowed model.RoleSet) (*security.Claims, error) {
	claims, ok := g.tokens.Verify(ExtractToken(r))
	if !ok {
		return nil, common.ErrUnauthorized
	}
	user, err := g.users.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, ErrAccountMissing)
		}
		return nil, err
	}
	if user.Disabled {
		return nil, common.Errorf("account is disabled: %w", common.ErrForbidden)
	}
	claims.Role = user.Role
	claims.Email = user.Email
	claims.Name = user.Name
	if !allowed.Contains(claims.Role) {
		return nil, common.ErrForbidden
	}
	return claims, nil
}

// Identify is the optional variant used by public endpoints that behave
// differently for signed-in callers. Any failure yields nil.
func (g *Gate) Identify(r *http.Request) *security.Claims {
	if ExtractToken(r) == "" {
		return nil
	}
	claims, err := g.Authorize(r, model.AnyRole)
	if err != nil {
		return nil
	}
	return claims
}

// RequireRole rejects the request unless the caller holds one of the allowed roles.
func (g *Gate) RequireRole(allowed model.RoleSet) func(http.Handler) http.Handler {
	return g.guard(allowed, false)
}

// RequireAccount admits any role but answers 404 when the token's account was
// deleted. The self-service profile routes use it.
func (g *Gate) RequireAccount() func(http.Handler) http.Handler {
	return g.guard(model.AnyRole, true)
}

func (g *Gate) guard(allowed model.RoleSet, missingIsNotFound bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := g.Authorize(r, allowed)
			if err != nil {
				switch {
				case missingIsNotFound && errors.Is(err, ErrAccountMissing):
					metrics.AuthDecision("not_found")
					common.RespondWithError(w, http.StatusNotFound, "User not found")
				case errors.Is(err, common.ErrUnauthorized):
					metrics.AuthDecision("unauthorized")
					common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				case errors.Is(err, common.ErrForbidden):
					metrics.AuthDecision("forbidden")
					common.RespondWithError(w, http.StatusForbidden, "Insufficient permissions")
				default:
					g.log.Error("authorization lookup failed", zap.Error(err))
					common.RespondWithDomainError(w, err)
				}
				return
			}
			metrics.AuthDecision("allowed")
			ctx := context.WithValue(r.Context(), ClaimsCtxKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(ClaimsCtxKey).(*security.Claims)
	return claims, ok && claims != nil
}
