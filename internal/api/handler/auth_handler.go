package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peakay-kush/PK-Automations-sub001/internal/api/middleware"
	"github.com/peakay-kush/PK-Automations-sub001/internal/app/service"
	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

type AuthHandler struct {
	authService *service.AuthService
	userService *service.UserAdminService
	gate        *middleware.Gate
}

func NewAuthHandler(authService *service.AuthService, userService *service.UserAdminService, gate *middleware.Gate) *AuthHandler {
	return &AuthHandler{authService: authService, userService: userService, gate: gate}
}

// RegisterRoutes mounts the public endpoints; limited wraps the ones that take passwords.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limited func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(limited)
		r.Post("/register", h.register)
		r.Post("/login", h.login)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireAccount())
		r.Get("/profile", h.profile)
		r.Patch("/profile", h.updateProfile)
	})
	r.With(h.gate.RequireRole(model.SuperOnly)).Post("/set-role", h.setRole)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	resp, err := h.authService.Register(r.Context(), req, h.gate.Identify(r))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) profile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	user, err := h.authService.Profile(r.Context(), claims.UserID)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, userResponse{OK: true, User: user})
}

func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var req service.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := h.authService.UpdateProfile(r.Context(), claims.UserID, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, userResponse{OK: true, User: user})
}

func (h *AuthHandler) setRole(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var req service.SetRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := h.userService.SetRole(r.Context(), claims, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, userResponse{OK: true, User: user})
}
