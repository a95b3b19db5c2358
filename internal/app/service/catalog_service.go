package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/repository"
)

type CatalogService struct {
	productRepo  repository.ProductRepository
	shippingRepo repository.ShippingRepository
	now          func() time.Time
}

func NewCatalogService(productRepo repository.ProductRepository, shippingRepo repository.ShippingRepository) *CatalogService {
	return &CatalogService{productRepo: productRepo, shippingRepo: shippingRepo, now: time.Now}
}

type ProductRequest struct {
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Price       *int64   `json:"price"`
	Stock       *int     `json:"stock"`
	Images      []string `json:"images"`
}

type ShippingRequest struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Fee     *int64 `json:"fee"`
	ETADays *int   `json:"etaDays"`
}

func (r ProductRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Category) == "" {
		return common.Errorf("name and category required: %w", common.ErrUnprocessable)
	}
	if r.Price != nil && *r.Price < 0 {
		return common.Errorf("invalid price: %w", common.ErrUnprocessable)
	}
	if r.Stock != nil && *r.Stock < 0 {
		return common.Errorf("invalid stock: %w", common.ErrUnprocessable)
	}
	return nil
}

func (r ProductRequest) apply(p *model.Product) {
	p.Name = strings.TrimSpace(r.Name)
	p.Slug = slug.Make(p.Name)
	p.Category = strings.TrimSpace(r.Category)
	p.Description = r.Description
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
	if r.Images != nil {
		p.Images = r.Images
	}
	if p.Images == nil {
		p.Images = []string{}
	}
}

func (s *CatalogService) CreateProduct(ctx context.Context, req ProductRequest) (*model.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	product := &model.Product{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	req.apply(product)
	if product.Slug == "" {
		return nil, common.Errorf("name must contain letters or digits: %w", common.ErrUnprocessable)
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, req ProductRequest) (*model.Product, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	req.apply(product)
	product.UpdatedAt = s.now().UTC()
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return product, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	return nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return product, nil
}

// FindProduct accepts either an id or a slug.
func (s *CatalogService) FindProduct(ctx context.Context, idOrSlug string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, idOrSlug)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to load product %s: %w", idOrSlug, err)
	}
	product, err = s.productRepo.FindBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", idOrSlug, err)
	}
	return product, nil
}

func (r ShippingRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return common.Errorf("name required: %w", common.ErrUnprocessable)
	}
	if r.Fee != nil && *r.Fee < 0 {
		return common.Errorf("invalid fee: %w", common.ErrUnprocessable)
	}
	if r.ETADays != nil && *r.ETADays < 0 {
		return common.Errorf("invalid etaDays: %w", common.ErrUnprocessable)
	}
	return nil
}

func (r ShippingRequest) apply(loc *model.ShippingLocation) {
	loc.Name = strings.TrimSpace(r.Name)
	loc.Region = strings.TrimSpace(r.Region)
	if r.Fee != nil {
		loc.Fee = *r.Fee
	}
	if r.ETADays != nil {
		loc.ETADays = *r.ETADays
	}
}

func (s *CatalogService) CreateLocation(ctx context.Context, req ShippingRequest) (*model.ShippingLocation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	loc := &model.ShippingLocation{ID: uuid.NewString(), CreatedAt: s.now().UTC()}
	req.apply(loc)
	if err := s.shippingRepo.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to create shipping location: %w", err)
	}
	return loc, nil
}

func (s *CatalogService) UpdateLocation(ctx context.Context, id string, req ShippingRequest) (*model.ShippingLocation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	loc, err := s.shippingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping location %s: %w", id, err)
	}
	req.apply(loc)
	if err := s.shippingRepo.Update(ctx, loc); err != nil {
		return nil, fmt.Errorf("failed to update shipping location %s: %w", id, err)
	}
	return loc, nil
}

func (s *CatalogService) DeleteLocation(ctx context.Context, id string) error {
	if err := s.shippingRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete shipping location %s: %w", id, err)
	}
	return nil
}

func (s *CatalogService) GetLocation(ctx context.Context, id string) (*model.ShippingLocation, error) {
	loc, err := s.shippingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load shipping location %s: %w", id, err)
	}
	return loc, nil
}

func (s *CatalogService) ListLocations(ctx context.Context) ([]model.ShippingLocation, error) {
	locations, err := s.shippingRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list shipping locations: %w", err)
	}
	return locations, nil
}
