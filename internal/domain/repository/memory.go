package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

// MemoryStore backs the memory storage driver. Every repository built from the
// same store shares one lock, so reads never observe half-applied writes.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]*model.User
	orders    map[string]*model.Order
	products  map[string]*model.Product
	locations map[string]*model.ShippingLocation
	seq       int64
	orderSeq  map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     map[string]*model.User{},
		orders:    map[string]*model.Order{},
		products:  map[string]*model.Product{},
		locations: map[string]*model.ShippingLocation{},
		orderSeq:  map[string]int64{},
	}
}

func (s *MemoryStore) Users() UserRepository                 { return &memUserRepository{s: s} }
func (s *MemoryStore) Orders() OrderRepository               { return &memOrderRepository{s: s} }
func (s *MemoryStore) Products() ProductRepository           { return &memProductRepository{s: s} }
func (s *MemoryStore) ShippingLocations() ShippingRepository { return &memShippingRepository{s: s} }

// users

type memUserRepository struct{ s *MemoryStore }

func (r *memUserRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return fmt.Errorf("user id already exists: %w", common.ErrConflict)
	}
	for _, u := range r.s.users {
		if u.NormalizedEmail == user.NormalizedEmail {
			return fmt.Errorf("user with this email already exists: %w", common.ErrConflict)
		}
	}
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r *memUserRepository) FindByID(_ context.Context, id string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	norm := model.NormalizeEmail(email)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if u.NormalizedEmail == norm {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memUserRepository) List(_ context.Context) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	users := make([]model.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		users = append(users, *u)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (r *memUserRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.users), nil
}

func (r *memUserRepository) CountByRole(_ context.Context, role model.Role, activeOnly bool) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, u := range r.s.users {
		if u.Role == role && (!activeOnly || !u.Disabled) {
			n++
		}
	}
	return n, nil
}

func (r *memUserRepository) UpdateProfile(_ context.Context, id string, upd model.ProfileUpdate) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if upd.Email != nil {
		norm := model.NormalizeEmail(*upd.Email)
		for otherID, other := range r.s.users {
			if otherID != id && other.NormalizedEmail == norm {
				return nil, fmt.Errorf("email already in use: %w", common.ErrConflict)
			}
		}
		u.Email = norm
		u.NormalizedEmail = norm
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.ProfileImage != nil {
		u.ProfileImage = *upd.ProfileImage
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepository) UpdateAccess(_ context.Context, id string, upd model.AccessUpdate) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Disabled != nil {
		u.Disabled = *upd.Disabled
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

// orders

type memOrderRepository struct{ s *MemoryStore }

// cloneOrder copies the slices so callers can never mutate stored history.
func cloneOrder(o *model.Order) model.Order {
	cp := *o
	cp.Items = append([]model.OrderItem{}, o.Items...)
	cp.StatusHistory = append([]model.StatusChange{}, o.StatusHistory...)
	if o.ShippingLocation != nil {
		cp.ShippingLocation = append(json.RawMessage{}, o.ShippingLocation...)
	}
	return cp
}

func (r *memOrderRepository) Create(_ context.Context, o *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[o.ID]; ok {
		return fmt.Errorf("order already exists: %w", common.ErrConflict)
	}
	cp := cloneOrder(o)
	r.s.orders[o.ID] = &cp
	r.s.seq++
	r.s.orderSeq[o.ID] = r.s.seq
	return nil
}

func (r *memOrderRepository) FindByID(_ context.Context, id string) (*model.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (r *memOrderRepository) ListAll(_ context.Context) ([]model.Order, error) {
	return r.filter(func(*model.Order) bool { return true }), nil
}

func (r *memOrderRepository) ListVisibleTo(_ context.Context, userID, email string) ([]model.Order, error) {
	return r.filter(func(o *model.Order) bool { return o.OwnedBy(userID, email) }), nil
}

// filter returns matches newest first; insertion order breaks timestamp ties.
func (r *memOrderRepository) filter(keep func(*model.Order) bool) []model.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	type entry struct {
		order model.Order
		seq   int64
	}
	var matched []entry
	for id, o := range r.s.orders {
		if keep(o) {
			matched = append(matched, entry{order: cloneOrder(o), seq: r.s.orderSeq[id]})
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.order.CreatedAt.Equal(b.order.CreatedAt) {
			return a.order.CreatedAt.After(b.order.CreatedAt)
		}
		return a.seq > b.seq
	})
	orders := make([]model.Order, 0, len(matched))
	for _, m := range matched {
		orders = append(orders, m.order)
	}
	return orders
}

func (r *memOrderRepository) AppendStatus(_ context.Context, id string, change model.StatusChange) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	o.Status = change.Status
	o.StatusHistory = append(o.StatusHistory, change)
	cp := cloneOrder(o)
	return &cp, nil
}

func (r *memOrderRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.orders, id)
	delete(r.s.orderSeq, id)
	return nil
}

func (r *memOrderRepository) CountByStatus(_ context.Context, statuses ...model.OrderStatus) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, o := range r.s.orders {
		for _, st := range statuses {
			if o.Status == st {
				n++
				break
			}
		}
	}
	return n, nil
}

// products

type memProductRepository struct{ s *MemoryStore }

func cloneProduct(p *model.Product) model.Product {
	cp := *p
	cp.Images = append([]string{}, p.Images...)
	return cp
}

func (r *memProductRepository) slugTaken(slug, exceptID string) bool {
	for id, p := range r.s.products {
		if id != exceptID && p.Slug == slug {
			return true
		}
	}
	return false
}

func (r *memProductRepository) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.slugTaken(p.Slug, p.ID) {
		return fmt.Errorf("product with this slug already exists: %w", common.ErrConflict)
	}
	cp := cloneProduct(p)
	r.s.products[p.ID] = &cp
	return nil
}

func (r *memProductRepository) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return common.ErrNotFound
	}
	if r.slugTaken(p.Slug, p.ID) {
		return fmt.Errorf("product with this slug already exists: %w", common.ErrConflict)
	}
	cp := cloneProduct(p)
	r.s.products[p.ID] = &cp
	return nil
}

func (r *memProductRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *memProductRepository) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := cloneProduct(p)
	return &cp, nil
}

func (r *memProductRepository) FindBySlug(_ context.Context, slug string) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.products {
		if p.Slug == slug {
			cp := cloneProduct(p)
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memProductRepository) List(_ context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	products := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		products = append(products, cloneProduct(p))
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].CreatedAt.After(products[j].CreatedAt) })
	return products, nil
}

// shipping locations

type memShippingRepository struct{ s *MemoryStore }

func (r *memShippingRepository) Create(_ context.Context, loc *model.ShippingLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *loc
	r.s.locations[loc.ID] = &cp
	return nil
}

func (r *memShippingRepository) Update(_ context.Context, loc *model.ShippingLocation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.locations[loc.ID]; !ok {
		return common.ErrNotFound
	}
	cp := *loc
	r.s.locations[loc.ID] = &cp
	return nil
}

func (r *memShippingRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.locations[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.s.locations, id)
	return nil
}

func (r *memShippingRepository) FindByID(_ context.Context, id string) (*model.ShippingLocation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	loc, ok := r.s.locations[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (r *memShippingRepository) List(_ context.Context) ([]model.ShippingLocation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	locations := make([]model.ShippingLocation, 0, len(r.s.locations))
	for _, loc := range r.s.locations {
		locations = append(locations, *loc)
	}
	sort.SliceStable(locations, func(i, j int) bool { return locations[i].Name < locations[j].Name })
	return locations, nil
}
