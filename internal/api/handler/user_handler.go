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

type okResponse struct {
	OK bool `json:"ok"`
}

type userResponse struct {
	OK   bool        `json:"ok"`
	User *model.User `json:"user"`
}

type usersResponse struct {
	OK    bool         `json:"ok"`
	Users []model.User `json:"users"`
}

type UserHandler struct {
	userService *service.UserAdminService
	gate        *middleware.Gate
}

func NewUserHandler(userService *service.UserAdminService, gate *middleware.Gate) *UserHandler {
	return &UserHandler{userService: userService, gate: gate}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRole(model.AdminRoles))
		r.Get("/", h.list)
		r.Get("/{userID}", h.get)
		r.Put("/{userID}", h.update)
		r.Delete("/{userID}", h.delete)
	})
	r.With(h.gate.RequireRole(model.SuperOnly)).Post("/", h.create)
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, usersResponse{OK: true, Users: users})
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, userResponse{OK: true, User: user})
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var req service.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := h.userService.Create(r.Context(), claims, req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, userResponse{OK: true, User: user})
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var req service.UpdateAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	user, err := h.userService.UpdateAccess(r.Context(), claims, chi.URLParam(r, "userID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, userResponse{OK: true, User: user})
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := h.userService.Delete(r.Context(), claims, chi.URLParam(r, "userID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, okResponse{OK: true})
}
