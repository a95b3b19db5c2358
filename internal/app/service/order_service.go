package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/common"
	"github.com/peakay-kush/PK-Automations-sub001/internal/common/security"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/model"
	"github.com/peakay-kush/PK-Automations-sub001/internal/domain/repository"
)

const guestActor = "guest"

type OrderService struct {
	orderRepo repository.OrderRepository
	notifier  Notifier
	log       *zap.Logger
	now       func() time.Time
}

func NewOrderService(orderRepo repository.OrderRepository, notifier Notifier, log *zap.Logger) *OrderService {
	return &OrderService{orderRepo: orderRepo, notifier: notifier, log: log, now: time.Now}
}

type CheckoutRequest struct {
	Name             string            `json:"name"`
	Email            string            `json:"email"`
	Phone            string            `json:"phone"`
	Items            []model.OrderItem `json:"items"`
	Shipping         int64             `json:"shipping"`
	ShippingLocation json.RawMessage   `json:"shippingLocation"`
	PaymentMethod    string            `json:"paymentMethod"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// actor is the "by" value recorded in status history.
func actor(claims *security.Claims) string {
	if claims == nil {
		return guestActor
	}
	if claims.Email != "" {
		return claims.Email
	}
	return claims.UserID
}

// Checkout records an order. A signed-in caller is linked by id and their
// account email replaces whatever the form carried.
func (s *OrderService) Checkout(ctx context.Context, requester *security.Claims, req CheckoutRequest) (*model.Order, error) {
	if len(req.Items) == 0 {
		return nil, common.Errorf("order has no items: %w", common.ErrValidation)
	}
	if req.Shipping < 0 {
		return nil, common.Errorf("shipping cannot be negative: %w", common.ErrValidation)
	}
	var total int64
	for _, item := range req.Items {
		if item.Quantity <= 0 || item.Price < 0 {
			return nil, common.Errorf("invalid quantity or price for item %q: %w", item.Name, common.ErrValidation)
		}
		total += item.Price * int64(item.Quantity)
	}
	total += req.Shipping

	email := strings.TrimSpace(req.Email)
	var userID *string
	if requester != nil {
		id := requester.UserID
		userID = &id
		if requester.Email != "" {
			email = requester.Email
		}
	}
	if strings.TrimSpace(req.Name) == "" || email == "" {
		return nil, common.Errorf("name and email are required: %w", common.ErrBadRequest)
	}

	var location json.RawMessage
	if len(req.ShippingLocation) > 0 && string(req.ShippingLocation) != "null" {
		location = req.ShippingLocation
	}
	paymentMethod := strings.TrimSpace(req.PaymentMethod)
	if paymentMethod == "" {
		paymentMethod = "manual"
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:               uuid.NewString(),
		Reference:        "PK-" + ulid.Make().String(),
		UserID:           userID,
		Name:             strings.TrimSpace(req.Name),
		Email:            email,
		NormalizedEmail:  model.NormalizeEmail(email),
		Phone:            strings.TrimSpace(req.Phone),
		Items:            req.Items,
		Total:            total,
		Shipping:         req.Shipping,
		ShippingLocation: location,
		PaymentMethod:    paymentMethod,
		Status:           model.OrderCreated,
		StatusHistory: []model.StatusChange{
			{Status: model.OrderCreated, ChangedAt: now, By: actor(requester)},
		},
		CreatedAt: now,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	s.log.Info("order created", zap.String("order_id", order.ID), zap.String("reference", order.Reference))
	return order, nil
}

// ListVisible applies the visibility rule: elevated roles see every order,
// everyone else sees orders linked by account id or email. Newest first.
func (s *OrderService) ListVisible(ctx context.Context, claims *security.Claims) ([]model.Order, error) {
	if claims == nil || claims.UserID == "" {
		return nil, common.ErrUnauthorized
	}
	var (
		orders []model.Order
		err    error
	)
	if claims.Role.IsElevated() {
		orders, err = s.orderRepo.ListAll(ctx)
	} else {
		orders, err = s.orderRepo.ListVisibleTo(ctx, claims.UserID, claims.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, claims *security.Claims, id string) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	if !canAccess(claims, order) {
		return nil, common.ErrForbidden
	}
	return order, nil
}

func canAccess(claims *security.Claims, order *model.Order) bool {
	if claims == nil {
		return false
	}
	return claims.Role.IsElevated() || order.OwnedBy(claims.UserID, claims.Email)
}

func (s *OrderService) StatusSummary(ctx context.Context, id string) (*model.OrderStatusSummary, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.Errorf("missing id: %w", common.ErrBadRequest)
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return &model.OrderStatusSummary{
		ID:        order.ID,
		Status:    order.Status,
		Paid:      order.Paid,
		Reference: order.Reference,
	}, nil
}

// UpdateStatus appends one history entry. Notification failures are logged
// and never fail the update.
func (s *OrderService) UpdateStatus(ctx context.Context, claims *security.Claims, id string, req UpdateStatusRequest) (*model.Order, error) {
	raw := strings.TrimSpace(req.Status)
	if raw == "" {
		return nil, common.Errorf("missing status: %w", common.ErrBadRequest)
	}
	status, ok := model.ParseOrderStatus(raw)
	if !ok {
		return nil, common.Errorf("invalid status %q: %w", raw, common.ErrBadRequest)
	}

	change := model.StatusChange{Status: status, ChangedAt: s.now().UTC(), By: actor(claims)}
	order, err := s.orderRepo.AppendStatus(ctx, id, change)
	if err != nil {
		return nil, fmt.Errorf("failed to update order %s: %w", id, err)
	}
	s.log.Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("status", string(status)),
		zap.String("by", change.By),
	)

	job := StatusNotification{
		OrderID:   order.ID,
		Reference: order.Reference,
		Status:    status,
		Name:      order.Name,
		Email:     order.Email,
		ChangedBy: change.By,
		ChangedAt: change.ChangedAt,
	}
	if err := s.notifier.NotifyStatusChange(ctx, job); err != nil {
		s.log.Warn("failed to enqueue status notification", zap.String("order_id", order.ID), zap.Error(err))
	}
	return order, nil
}

// Delete removes an order for an elevated caller or the order's owner.
func (s *OrderService) Delete(ctx context.Context, claims *security.Claims, id string) error {
	if claims == nil || claims.UserID == "" {
		return common.ErrUnauthorized
	}
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load order %s: %w", id, err)
	}
	if !canAccess(claims, order) {
		return common.ErrForbidden
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete order %s: %w", id, err)
	}
	s.log.Info("order deleted", zap.String("order_id", id), zap.String("by", actor(claims)))
	return nil
}

// PendingCount is the back-office badge: orders still created or pending.
func (s *OrderService) PendingCount(ctx context.Context) (int, error) {
	n, err := s.orderRepo.CountByStatus(ctx, model.OrderPending, model.OrderCreated)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending orders: %w", err)
	}
	return n, nil
}
