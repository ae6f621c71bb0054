package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPendingPayment OrderStatus = "pending_payment"
	StatusPaid           OrderStatus = "paid"
	StatusPaymentFailed  OrderStatus = "payment_failed"
	StatusShipped        OrderStatus = "shipped"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

type Order struct {
	ID               uuid.UUID      `json:"id"`
	OrderNumber      int            `json:"orderNumber"`
	CustomerName     string         `json:"customerName"`
	CustomerEmail    string         `json:"customerEmail"`
	CustomerPhone    string         `json:"customerPhone"`
	ShippingAddress  map[string]any `json:"shippingAddress"`
	Items            []OrderItem    `json:"items"`
	SubtotalPaise    int64          `json:"subtotalPaise"`
	ShippingPaise    int64          `json:"shippingPaise"`
	TotalPaise       int64          `json:"totalPaise"`
	Currency         string         `json:"currency"`
	GatewayOrderID   string         `json:"gatewayOrderId"`
	GatewayPaymentID string         `json:"gatewayPaymentId"`
	FailureReason    string         `json:"failureReason,omitempty"`
	Status           OrderStatus    `json:"status"`
	CreatedAt        time.Time      `json:"createdAt"`
	PaidAt           time.Time      `json:"paidAt"`
}

// OrderItem is a priced cart line. Options keeps the line item exactly as the
// storefront sent it so historical option names survive.
type OrderItem struct {
	ProductID      uuid.UUID      `json:"productId"`
	ProductSlug    string         `json:"productSlug"`
	Name           string         `json:"name"`
	Quantity       int            `json:"quantity"`
	UnitPricePaise int64          `json:"unitPricePaise"`
	MRPPaise       int64          `json:"mrpPaise"`
	LineTotalPaise int64          `json:"lineTotalPaise"`
	Options        map[string]any `json:"options"`
}

func (o *Order) IsPaid() bool {
	return o != nil && o.Status == StatusPaid
}
