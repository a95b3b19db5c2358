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

type orderResponse struct {
	OK    bool         `json:"ok"`
	Order *model.Order `json:"order"`
}

type ordersResponse struct {
	OK     bool          `json:"ok"`
	Orders []model.Order `json:"orders"`
}

type statusSummaryResponse struct {
	OK bool `json:"ok"`
	*model.OrderStatusSummary
}

type countResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

type OrderHandler struct {
	orderService *service.OrderService
	gate         *middleware.Gate
}

func NewOrderHandler(orderService *service.OrderService, gate *middleware.Gate) *OrderHandler {
	return &OrderHandler{orderService: orderService, gate: gate}
}

// RegisterRoutes mounts /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.checkout)
	r.With(h.gate.RequireRole(model.AnyRole)).Get("/my", h.listMine)
	r.Get("/{orderID}/status", h.statusSummary)
	r.With(h.gate.RequireRole(model.AdminRoles)).Post("/{orderID}/status", h.updateStatus)

	r.Group(func(r chi.Router) {
		r.Use(h.gate.RequireRole(model.AnyRole))
		r.Get("/{orderID}", h.get)
		r.Delete("/{orderID}", h.delete)
	})
}

// RegisterAdminRoutes mounts /admin/orders.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Use(h.gate.RequireRole(model.AdminRoles))
	r.Get("/", h.listMine)
	r.Get("/count", h.pendingCount)
	r.Delete("/{orderID}", h.delete)
}

func (h *OrderHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	order, err := h.orderService.Checkout(r.Context(), h.gate.Identify(r), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, orderResponse{OK: true, Order: order})
}

func (h *OrderHandler) listMine(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	orders, err := h.orderService.ListVisible(r.Context(), claims)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, ordersResponse{OK: true, Orders: orders})
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	order, err := h.orderService.Get(r.Context(), claims, chi.URLParam(r, "orderID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, orderResponse{OK: true, Order: order})
}

func (h *OrderHandler) statusSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orderService.StatusSummary(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, statusSummaryResponse{OK: true, OrderStatusSummary: summary})
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	var req service.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	order, err := h.orderService.UpdateStatus(r.Context(), claims, chi.URLParam(r, "orderID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, orderResponse{OK: true, Order: order})
}

func (h *OrderHandler) delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := h.orderService.Delete(r.Context(), claims, chi.URLParam(r, "orderID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *OrderHandler) pendingCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.orderService.PendingCount(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, countResponse{OK: true, Count: n})
}
