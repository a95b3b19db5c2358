package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/common/security"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/repository"
)

// UserAdminService is the back-office view of accounts. Every mutation that
// could remove the last active super is refused with ErrInvariant.
type UserAdminService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
	now      func() time.Time
}

func NewUserAdminService(userRepo repository.UserRepository, log *zap.Logger) *UserAdminService {
	return &UserAdminService{userRepo: userRepo, log: log, now: time.Now}
}

type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateAccessRequest uses pointers so an absent field is distinguishable from a zero value.
type UpdateAccessRequest struct {
	Role     *string `json:"role"`
	Disabled *bool   `json:"disabled"`
}

type SetRoleRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (s *UserAdminService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserAdminService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}
	return user, nil
}

func (s *UserAdminService) Create(ctx context.Context, requester *security.Claims, req CreateUserRequest) (*model.User, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Errorf("email and password are required: %w", common.ErrBadRequest)
	}
	role := model.RoleUser
	if strings.TrimSpace(req.Role) != "" {
		parsed, ok := model.ParseRole(req.Role)
		if !ok {
			return nil, common.Errorf("invalid role %q: %w", req.Role, common.ErrUnprocessable)
		}
		role = parsed
	}
	if role == model.RoleSuper && requester.Role != model.RoleSuper {
		return nil, common.Errorf("only a super may create a super: %w", common.ErrForbidden)
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, common.Errorf("user already exists: %w", common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(req.Name),
		Email:           model.NormalizeEmail(email),
		NormalizedEmail: model.NormalizeEmail(email),
		HashedPassword:  hashedPassword,
		Role:            role,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user created by admin",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("by", requester.UserID),
	)
	return user, nil
}

// UpdateAccess changes role and/or disabled flag for the target account.
func (s *UserAdminService) UpdateAccess(ctx context.Context, requester *security.Claims, id string, req UpdateAccessRequest) (*model.User, error) {
	if req.Role == nil && req.Disabled == nil {
		return nil, common.Errorf("no changes provided: %w", common.ErrBadRequest)
	}
	var upd model.AccessUpdate
	if req.Role != nil {
		role, ok := model.ParseRole(*req.Role)
		if !ok {
			return nil, common.Errorf("invalid role %q: %w", *req.Role, common.ErrUnprocessable)
		}
		upd.Role = &role
	}
	upd.Disabled = req.Disabled
	return s.applyAccess(ctx, requester, id, upd)
}

// SetRole resolves the target by id or email and applies the same rules as UpdateAccess.
func (s *UserAdminService) SetRole(ctx context.Context, requester *security.Claims, req SetRoleRequest) (*model.User, error) {
	if strings.TrimSpace(req.UserID) == "" && strings.TrimSpace(req.Email) == "" {
		return nil, common.Errorf("missing userId/email: %w", common.ErrBadRequest)
	}
	if strings.TrimSpace(req.Role) == "" {
		return nil, common.Errorf("missing role: %w", common.ErrBadRequest)
	}
	role, ok := model.ParseRole(req.Role)
	if !ok {
		return nil, common.Errorf("invalid role %q: %w", req.Role, common.ErrUnprocessable)
	}

	var target *model.User
	var err error
	if id := strings.TrimSpace(req.UserID); id != "" {
		target, err = s.userRepo.FindByID(ctx, id)
	} else {
		target, err = s.userRepo.FindByEmail(ctx, req.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return s.applyAccess(ctx, requester, target.ID, model.AccessUpdate{Role: &role})
}

func (s *UserAdminService) applyAccess(ctx context.Context, requester *security.Claims, id string, upd model.AccessUpdate) (*model.User, error) {
	target, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", id, err)
	}

	if upd.Role != nil && *upd.Role == model.RoleSuper && requester.Role != model.RoleSuper {
		return nil, common.Errorf("forbidden to assign super: %w", common.ErrForbidden)
	}

	demoting := upd.Role != nil && *upd.Role != model.RoleSuper
	disabling := upd.Disabled != nil && *upd.Disabled
	if target.Role == model.RoleSuper && (demoting || disabling) {
		if requester.Role != model.RoleSuper {
			return nil, common.Errorf("only a super may change a super account: %w", common.ErrForbidden)
		}
		if err := s.ensureAnotherSuper(ctx, target); err != nil {
			return nil, err
		}
	}

	user, err := s.userRepo.UpdateAccess(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	s.log.Info("user access updated",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.Bool("disabled", user.Disabled),
		zap.String("by", requester.UserID),
	)
	return user, nil
}

func (s *UserAdminService) Delete(ctx context.Context, requester *security.Claims, id string) error {
	target, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load user %s: %w", id, err)
	}
	if target.Role == model.RoleSuper {
		if requester.Role != model.RoleSuper {
			return common.Errorf("only a super may delete a super: %w", common.ErrForbidden)
		}
		if err := s.ensureAnotherSuper(ctx, target); err != nil {
			return err
		}
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	s.log.Info("user deleted", zap.String("user_id", id), zap.String("by", requester.UserID))
	return nil
}

// ensureAnotherSuper refuses to take target (a super) out of service when no
// other super, or no other active super, would remain.
func (s *UserAdminService) ensureAnotherSuper(ctx context.Context, target *model.User) error {
	total, err := s.userRepo.CountByRole(ctx, model.RoleSuper, false)
	if err != nil {
		return fmt.Errorf("failed to count super users: %w", err)
	}
	if total <= 1 {
		return common.Errorf("cannot remove the last super user: %w", common.ErrInvariant)
	}
	if target.Disabled {
		return nil
	}
	active, err := s.userRepo.CountByRole(ctx, model.RoleSuper, true)
	if err != nil {
		return fmt.Errorf("failed to count active super users: %w", err)
	}
	if active <= 1 {
		return common.Errorf("cannot remove the last active super user: %w", common.ErrInvariant)
	}
	return nil
}
