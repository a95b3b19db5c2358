package model

import (
	"encoding/json"
	"time"
)

type OrderStatus string

const (
	OrderCreated    OrderStatus = "created"
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderDispatched OrderStatus = "dispatched"
	OrderCompleted  OrderStatus = "completed"
	OrderFailed     OrderStatus = "failed"
	OrderCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus accepts only the fixed status vocabulary.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderCreated, OrderPending, OrderConfirmed, OrderDispatched,
		OrderCompleted, OrderFailed, OrderCancelled:
		return st, true
	}
	return "", false
}

// StatusChange is one entry of the append-only status history.
type StatusChange struct {
	Status    OrderStatus `json:"status"`
	ChangedAt time.Time   `json:"changedAt"`
	By        string      `json:"by"`
}

type OrderItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type Order struct {
	ID                       string          `json:"id"`
	Reference                string          `json:"reference"`
	UserID                   *string         `json:"userId,omitempty"`
	Name                     string          `json:"name"`
	Email                    string          `json:"email"`
	NormalizedEmail          string          `json:"-"`
	Phone                    string          `json:"phone"`
	Items                    []OrderItem     `json:"items"`
	Total                    int64           `json:"total"`
	Shipping                 int64           `json:"shipping"`
	ShippingLocation         json.RawMessage `json:"shippingLocation"`
	Paid                     bool            `json:"paid"`
	PaymentMethod            string          `json:"paymentMethod"`
	Status                   OrderStatus     `json:"status"`
	StatusHistory            []StatusChange  `json:"statusHistory"`
	GatewayMerchantRequestID *string         `json:"gatewayMerchantRequestId"`
	GatewayCheckoutRequestID *string         `json:"gatewayCheckoutRequestId"`
	CreatedAt                time.Time       `json:"createdAt"`
}

// OwnedBy applies the visibility predicate for non-elevated callers: account id,
// normalized email, or stored email compared case-insensitively.
func (o *Order) OwnedBy(userID, email string) bool {
	if userID != "" && o.UserID != nil && *o.UserID == userID {
		return true
	}
	norm := NormalizeEmail(email)
	if norm == "" {
		return false
	}
	return o.NormalizedEmail == norm || NormalizeEmail(o.Email) == norm
}

// OrderStatusSummary is the public, unauthenticated status view.
type OrderStatusSummary struct {
	ID        string      `json:"id"`
	Status    OrderStatus `json:"status"`
	Paid      bool        `json:"paid"`
	Reference string      `json:"reference"`
}
