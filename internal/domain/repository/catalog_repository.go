package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
}

type ShippingRepository interface {
	Create(ctx context.Context, loc *model.ShippingLocation) error
	Update(ctx context.Context, loc *model.ShippingLocation) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.ShippingLocation, error)
	List(ctx context.Context) ([]model.ShippingLocation, error)
}

type pgProductRepository struct {
	db *sql.DB
}

func NewPgProductRepository(db *sql.DB) ProductRepository {
	return &pgProductRepository{db: db}
}

const productColumns = `id, name, slug, category, description, price, stock, images, created_at, updated_at`

func scanProduct(row interface{ Scan(dest ...any) error }) (*model.Product, error) {
	p := &model.Product{}
	var images []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &p.Description, &p.Price, &p.Stock, &images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Images = []string{}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			p.Images = []string{}
		}
	}
	return p, nil
}

func (r *pgProductRepository) Create(ctx context.Context, p *model.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("pgProductRepository.Create marshal images: %w", err)
	}
	query := `INSERT INTO products (id, name, slug, category, description, price, stock, images, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10)`
	_, err = r.db.ExecContext(ctx, query, p.ID, p.Name, p.Slug, p.Category, p.Description, p.Price, p.Stock, string(images), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProductRepository.Create: %w", err)
	}
	return nil
}

func (r *pgProductRepository) Update(ctx context.Context, p *model.Product) error {
	images, err := json.Marshal(p.Images)
	if err != nil {
		return fmt.Errorf("pgProductRepository.Update marshal images: %w", err)
	}
	query := `UPDATE products SET
	            name = $1, slug = $2, category = $3, description = $4, price = $5,
	            stock = $6, images = $7::jsonb, updated_at = $8
	          WHERE id = $9`
	res, err := r.db.ExecContext(ctx, query, p.Name, p.Slug, p.Category, p.Description, p.Price, p.Stock, string(images), p.UpdatedAt, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgProductRepository.Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgProductRepository.Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgProductRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	return r.findOne(ctx, "FindByID", `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *pgProductRepository) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	return r.findOne(ctx, "FindBySlug", `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

func (r *pgProductRepository) findOne(ctx context.Context, op, query string, arg string) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgProductRepository.%s: %w", op, err)
	}
	return p, nil
}

func (r *pgProductRepository) List(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("pgProductRepository.List query: %w", err)
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("pgProductRepository.List scan: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgProductRepository.List rows.Err: %w", err)
	}
	return products, nil
}

type pgShippingRepository struct {
	db *sql.DB
}

func NewPgShippingRepository(db *sql.DB) ShippingRepository {
	return &pgShippingRepository{db: db}
}

func scanLocation(row interface{ Scan(dest ...any) error }) (*model.ShippingLocation, error) {
	loc := &model.ShippingLocation{}
	if err := row.Scan(&loc.ID, &loc.Name, &loc.Region, &loc.Fee, &loc.ETADays, &loc.CreatedAt); err != nil {
		return nil, err
	}
	return loc, nil
}

func (r *pgShippingRepository) Create(ctx context.Context, loc *model.ShippingLocation) error {
	query := `INSERT INTO shipping_locations (id, name, region, fee, eta_days, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, loc.ID, loc.Name, loc.Region, loc.Fee, loc.ETADays, loc.CreatedAt); err != nil {
		return fmt.Errorf("pgShippingRepository.Create: %w", err)
	}
	return nil
}

func (r *pgShippingRepository) Update(ctx context.Context, loc *model.ShippingLocation) error {
	query := `UPDATE shipping_locations SET name = $1, region = $2, fee = $3, eta_days = $4 WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, loc.Name, loc.Region, loc.Fee, loc.ETADays, loc.ID)
	if err != nil {
		return fmt.Errorf("pgShippingRepository.Update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgShippingRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM shipping_locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgShippingRepository.Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgShippingRepository) FindByID(ctx context.Context, id string) (*model.ShippingLocation, error) {
	query := `SELECT id, name, region, fee, eta_days, created_at FROM shipping_locations WHERE id = $1`
	loc, err := scanLocation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgShippingRepository.FindByID: %w", err)
	}
	return loc, nil
}

func (r *pgShippingRepository) List(ctx context.Context) ([]model.ShippingLocation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, region, fee, eta_days, created_at FROM shipping_locations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("pgShippingRepository.List query: %w", err)
	}
	defer rows.Close()

	locations := []model.ShippingLocation{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("pgShippingRepository.List scan: %w", err)
		}
		locations = append(locations, *loc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgShippingRepository.List rows.Err: %w", err)
	}
	return locations, nil
}
