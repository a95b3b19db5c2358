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

type productResponse struct {
	OK      bool           `json:"ok"`
	Product *model.Product `json:"product"`
}

type locationResponse struct {
	OK       bool                    `json:"ok"`
	Location *model.ShippingLocation `json:"location"`
}

type CatalogHandler struct {
	catalogService *service.CatalogService
	gate           *middleware.Gate
}

func NewCatalogHandler(catalogService *service.CatalogService, gate *middleware.Gate) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, gate: gate}
}

func (h *CatalogHandler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{idOrSlug}", h.findProduct)
	r.Get("/shipping/locations", h.listLocations)
}

func (h *CatalogHandler) RegisterAdminProductRoutes(r chi.Router) {
	r.Use(h.gate.RequireRole(model.AdminRoles))
	r.Get("/", h.listProducts)
	r.Post("/", h.createProduct)
	r.Get("/{productID}", h.getProduct)
	r.Put("/{productID}", h.updateProduct)
	r.Delete("/{productID}", h.deleteProduct)
}

func (h *CatalogHandler) RegisterAdminShippingRoutes(r chi.Router) {
	r.Use(h.gate.RequireRole(model.AdminRoles))
	r.Get("/", h.listLocations)
	r.Post("/", h.createLocation)
	r.Get("/{locationID}", h.getLocation)
	r.Put("/{locationID}", h.updateLocation)
	r.Delete("/{locationID}", h.deleteLocation)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.ListProducts(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) findProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogService.FindProduct(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalogService.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}
	product, err := h.catalogService.CreateProduct(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, productResponse{OK: true, Product: product})
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}
	product, err := h.catalogService.UpdateProduct(r.Context(), chi.URLParam(r, "productID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, productResponse{OK: true, Product: product})
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteProduct(r.Context(), chi.URLParam(r, "productID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, okResponse{OK: true})
}

func (h *CatalogHandler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.catalogService.ListLocations(r.Context())
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, locations)
}

func (h *CatalogHandler) getLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.catalogService.GetLocation(r.Context(), chi.URLParam(r, "locationID"))
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, loc)
}

func (h *CatalogHandler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req service.ShippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}
	loc, err := h.catalogService.CreateLocation(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, locationResponse{OK: true, Location: loc})
}

func (h *CatalogHandler) updateLocation(w http.ResponseWriter, r *http.Request) {
	var req service.ShippingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusUnprocessableEntity, "Invalid payload")
		return
	}
	loc, err := h.catalogService.UpdateLocation(r.Context(), chi.URLParam(r, "locationID"), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, locationResponse{OK: true, Location: loc})
}

func (h *CatalogHandler) deleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.catalogService.DeleteLocation(r.Context(), chi.URLParam(r, "locationID")); err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, okResponse{OK: true})
}
