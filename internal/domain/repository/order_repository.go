package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id string) (*model.Order, error)
	// ListAll returns every order, newest first.
	ListAll(ctx context.Context) ([]model.Order, error)
	// ListVisibleTo returns orders linked to the account id or to the email, newest first.
	ListVisibleTo(ctx context.Context, userID, email string) ([]model.Order, error)
	AppendStatus(ctx context.Context, id string, change model.StatusChange) (*model.Order, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, statuses ...model.OrderStatus) (int, error)
}

type pgOrderRepository struct {
	db  *sql.DB
	log *zap.Logger
}

func NewPgOrderRepository(db *sql.DB, log *zap.Logger) OrderRepository {
	return &pgOrderRepository{db: db, log: log}
}

const orderColumns = `id, reference, user_id, name, email, normalized_email, phone, items, total, shipping,
	shipping_location, paid, payment_method, status, status_history,
	gateway_merchant_request_id, gateway_checkout_request_id, created_at`

// scanOrder decodes the JSON columns leniently: a malformed value is logged and
// replaced with an empty one so a single bad row never fails a read.
func (r *pgOrderRepository) scanOrder(row interface{ Scan(dest ...any) error }) (*model.Order, error) {
	o := &model.Order{}
	var items, location, history []byte
	err := row.Scan(
		&o.ID, &o.Reference, &o.UserID, &o.Name, &o.Email, &o.NormalizedEmail, &o.Phone,
		&items, &o.Total, &o.Shipping, &location, &o.Paid, &o.PaymentMethod, &o.Status, &history,
		&o.GatewayMerchantRequestID, &o.GatewayCheckoutRequestID, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	decodeOrderJSON(r.log, o, items, location, history)
	return o, nil
}

func decodeOrderJSON(log *zap.Logger, o *model.Order, items, location, history []byte) {
	o.Items = []model.OrderItem{}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			log.Warn("malformed order items, using empty list", zap.String("order_id", o.ID), zap.Error(err))
			o.Items = []model.OrderItem{}
		}
	}
	o.StatusHistory = []model.StatusChange{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
			log.Warn("malformed order status history, using empty list", zap.String("order_id", o.ID), zap.Error(err))
			o.StatusHistory = []model.StatusChange{}
		}
	}
	o.ShippingLocation = nil
	if len(location) > 0 && json.Valid(location) {
		o.ShippingLocation = json.RawMessage(location)
	} else if len(location) > 0 {
		log.Warn("malformed order shipping location, dropping it", zap.String("order_id", o.ID))
	}
}

func (r *pgOrderRepository) Create(ctx context.Context, o *model.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("pgOrderRepository.Create marshal items: %w", err)
	}
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return fmt.Errorf("pgOrderRepository.Create marshal history: %w", err)
	}
	var location *string
	if len(o.ShippingLocation) > 0 {
		s := string(o.ShippingLocation)
		location = &s
	}

	query := `INSERT INTO orders (id, reference, user_id, name, email, normalized_email, phone, items, total, shipping,
	              shipping_location, paid, payment_method, status, status_history, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10, $11::jsonb, $12, $13, $14, $15::jsonb, $16)`
	_, err = r.db.ExecContext(ctx, query,
		o.ID, o.Reference, o.UserID, o.Name, o.Email, o.NormalizedEmail, o.Phone, string(items), o.Total, o.Shipping,
		location, o.Paid, o.PaymentMethod, o.Status, string(history), o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("order already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgOrderRepository.Create: %w", err)
	}
	return nil
}

func (r *pgOrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrderRepository.FindByID: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC`
	return r.list(ctx, "ListAll", query)
}

func (r *pgOrderRepository) ListVisibleTo(ctx context.Context, userID, email string) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
	          WHERE ($1 <> '' AND user_id = $1)
	             OR ($2 <> '' AND (normalized_email = $2 OR lower(email) = $2))
	          ORDER BY created_at DESC`
	return r.list(ctx, "ListVisibleTo", query, userID, model.NormalizeEmail(email))
}

func (r *pgOrderRepository) list(ctx context.Context, op, query string, args ...any) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgOrderRepository.%s query: %w", op, err)
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("pgOrderRepository.%s scan: %w", op, err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgOrderRepository.%s rows.Err: %w", op, err)
	}
	return orders, nil
}

// AppendStatus sets the current status and appends to the history in one
// statement; existing history entries are never rewritten.
func (r *pgOrderRepository) AppendStatus(ctx context.Context, id string, change model.StatusChange) (*model.Order, error) {
	entry, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("pgOrderRepository.AppendStatus marshal: %w", err)
	}
	query := `UPDATE orders SET
	            status = $1,
	            status_history = COALESCE(status_history, '[]'::jsonb) || jsonb_build_array($2::jsonb)
	          WHERE id = $3
	          RETURNING ` + orderColumns
	o, err := r.scanOrder(r.db.QueryRowContext(ctx, query, change.Status, string(entry), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgOrderRepository.AppendStatus: %w", err)
	}
	return o, nil
}

func (r *pgOrderRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgOrderRepository.Delete: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgOrderRepository) CountByStatus(ctx context.Context, statuses ...model.OrderStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE status = ANY($1)`, names).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgOrderRepository.CountByStatus: %w", err)
	}
	return n, nil
}
