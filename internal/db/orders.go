package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

var ErrInvalidStatusTransition = errors.New("invalid order status transition")

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `id, order_number, customer_name, customer_email, customer_phone, shipping_address, items,
	subtotal_paise, shipping_paise, total_paise, currency, gateway_order_id, gateway_payment_id,
	failure_reason, status, created_at, paid_at`

func (s *OrderStore) Create(ctx context.Context, order *Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	var shippingAddressJSON []byte
	if order.ShippingAddress != nil {
		shippingAddressJSON, err = json.Marshal(order.ShippingAddress)
		if err != nil {
			return err
		}
	}

	var orderNumber int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO orders (customer_name, customer_email, customer_phone, shipping_address, items,
			subtotal_paise, shipping_paise, total_paise, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, order_number, created_at`,
		order.CustomerName,
		order.CustomerEmail,
		order.CustomerPhone,
		shippingAddressJSON,
		itemsJSON,
		order.SubtotalPaise,
		order.ShippingPaise,
		order.TotalPaise,
		order.Currency,
		string(order.Status),
	).Scan(&order.ID, &orderNumber, &order.CreatedAt)
	if err != nil {
		return err
	}

	order.OrderNumber = int(orderNumber)
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	return scanOrder(row)
}

func (s *OrderStore) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE gateway_order_id = $1`, gatewayOrderID)
	return scanOrder(row)
}

func (s *OrderStore) SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE orders SET gateway_order_id = $2 WHERE id = $1 AND gateway_order_id IS NULL`, orderID, gatewayOrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s already has a gateway order: %w", orderID, ErrInvalidStatusTransition)
	}
	return nil
}

// MarkPaid records a captured payment. Only pending or failed orders can be
// marked paid.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $2, gateway_payment_id = $3, failure_reason = NULL, paid_at = now()
		WHERE id = $1 AND status IN ($4, $5)`,
		orderID, string(StatusPaid), paymentID, string(StatusPendingPayment), string(StatusPaymentFailed),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatusTransition
	}
	return nil
}

// MarkFailed records a failed payment on a pending order.
func (s *OrderStore) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $2, failure_reason = $3
		WHERE id = $1 AND status = $4`,
		orderID, string(StatusPaymentFailed), reason, string(StatusPendingPayment),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatusTransition
	}
	return nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order            Order
		orderNumber      int64
		shippingAddress  []byte
		items            []byte
		gatewayOrderID   pgtype.Text
		gatewayPaymentID pgtype.Text
		failureReason    pgtype.Text
		status           string
		paidAt           pgtype.Timestamptz
	)
	if err := row.Scan(
		&order.ID,
		&orderNumber,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.CustomerPhone,
		&shippingAddress,
		&items,
		&order.SubtotalPaise,
		&order.ShippingPaise,
		&order.TotalPaise,
		&order.Currency,
		&gatewayOrderID,
		&gatewayPaymentID,
		&failureReason,
		&status,
		&order.CreatedAt,
		&paidAt,
	); err != nil {
		return nil, err
	}

	order.OrderNumber = int(orderNumber)
	order.GatewayOrderID = gatewayOrderID.String
	order.GatewayPaymentID = gatewayPaymentID.String
	order.FailureReason = failureReason.String
	order.Status = OrderStatus(status)
	if paidAt.Valid {
		order.PaidAt = paidAt.Time
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
	}
	if len(shippingAddress) > 0 {
		if err := json.Unmarshal(shippingAddress, &order.ShippingAddress); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
	}

	return &order, nil
}
