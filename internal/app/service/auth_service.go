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

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenService
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, tokens *security.TokenService, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, log: log, now: time.Now}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	ProfileImage *string `json:"profileImage"`
}

func (r ProfileRequest) empty() bool {
	return r.Name == nil && r.Email == nil && r.Phone == nil && r.ProfileImage == nil
}

type AuthResponse struct {
	OK    bool        `json:"ok"`
	Token string      `json:"token,omitempty"`
	User  *model.User `json:"user"`
}

// Register creates an account. The first account is always super; a later
// request for super is honoured only when requester is a verified, active
// super. Every other request gets the user role.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, requester *security.Claims) (*AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, common.Errorf("email and password are required: %w", common.ErrBadRequest)
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, common.Errorf("user already exists: %w", common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	count, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	role := model.RoleUser
	switch {
	case count == 0:
		role = model.RoleSuper
	case strings.TrimSpace(req.Role) == string(model.RoleSuper) && requester != nil && requester.Role == model.RoleSuper:
		role = model.RoleSuper
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
		Phone:           strings.TrimSpace(req.Phone),
		Role:            role,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{OK: true, Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, common.Errorf("email and password are required: %w", common.ErrBadRequest)
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.Errorf("invalid credentials: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.Errorf("invalid credentials: %w", common.ErrUnauthorized)
	}
	if user.Disabled {
		return nil, common.Errorf("account is disabled: %w", common.ErrForbidden)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{OK: true, Token: token, User: user}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req ProfileRequest) (*model.User, error) {
	if req.empty() {
		return nil, common.Errorf("nothing to update: %w", common.ErrBadRequest)
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) == "" {
		return nil, common.Errorf("email cannot be empty: %w", common.ErrValidation)
	}
	user, err := s.userRepo.UpdateProfile(ctx, userID, model.ProfileUpdate{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}
