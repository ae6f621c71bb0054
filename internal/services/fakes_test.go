package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/printstore/printstore/internal/db"
	"github.com/printstore/printstore/internal/models"
	"github.com/printstore/printstore/internal/payment"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProducts struct {
	products      []*models.Product
	matrices      map[uuid.UUID][]models.PriceMatrixRow
	matrixQueries int
	err           error
}

func (f *fakeProducts) List(_ context.Context, filter db.ProductFilter) ([]*db.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*db.Product
	for _, p := range f.products {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) GetBySlug(_ context.Context, slug string) (*db.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeProducts) ListByRefs(_ context.Context, ids []uuid.UUID, slugs []string) ([]*db.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*db.Product
	for _, p := range f.products {
		matched := false
		for _, id := range ids {
			matched = matched || p.ID == id
		}
		for _, slug := range slugs {
			matched = matched || strings.EqualFold(p.Slug, slug)
		}
		if matched {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) PriceMatrices(_ context.Context, ids []uuid.UUID) (map[uuid.UUID][]db.PriceMatrixRow, error) {
	f.matrixQueries++
	out := map[uuid.UUID][]db.PriceMatrixRow{}
	for _, id := range ids {
		if rows, ok := f.matrices[id]; ok {
			out[id] = rows
		}
	}
	return out, nil
}

type fakeCategories struct {
	categories []*models.Category
}

func (f *fakeCategories) List(context.Context) ([]*db.Category, error) {
	return f.categories, nil
}

type fakeDiscounts struct {
	discounts map[string]float64
	calls     int
	err       error
}

func (f *fakeDiscounts) DiscountsBySlugs(_ context.Context, slugs []string) (map[string]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := map[string]float64{}
	for _, slug := range slugs {
		if v, ok := f.discounts[slug]; ok {
			out[slug] = v
		}
	}
	return out, nil
}

type fakeOrders struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*models.Order
	next   int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[uuid.UUID]*models.Order{}}
}

func (f *fakeOrders) Create(_ context.Context, order *db.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	order.ID = uuid.New()
	order.OrderNumber = f.next
	stored := *order
	f.orders[order.ID] = &stored
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, id uuid.UUID) (*db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrders) GetByGatewayOrderID(_ context.Context, gatewayOrderID string) (*db.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.GatewayOrderID == gatewayOrderID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeOrders) SetGatewayOrderID(_ context.Context, id uuid.UUID, gatewayOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.GatewayOrderID != "" {
		return db.ErrInvalidStatusTransition
	}
	order.GatewayOrderID = gatewayOrderID
	return nil
}

func (f *fakeOrders) MarkPaid(_ context.Context, id uuid.UUID, paymentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || (order.Status != models.StatusPendingPayment && order.Status != models.StatusPaymentFailed) {
		return db.ErrInvalidStatusTransition
	}
	order.Status = models.StatusPaid
	order.GatewayPaymentID = paymentID
	order.FailureReason = ""
	return nil
}

func (f *fakeOrders) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok || order.Status != models.StatusPendingPayment {
		return db.ErrInvalidStatusTransition
	}
	order.Status = models.StatusPaymentFailed
	order.FailureReason = reason
	return nil
}

func (f *fakeOrders) only() *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		return order
	}
	return nil
}

type fakeGateway struct {
	requests []payment.CreateOrderRequest
	err      error
}

func (f *fakeGateway) CreateOrder(_ context.Context, req payment.CreateOrderRequest) (*payment.OrderEntity, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.OrderEntity{ID: "order_gw_1", Amount: req.AmountPaise, Currency: req.Currency, Status: "created"}, nil
}

func (f *fakeGateway) KeyID() string {
	return "rzp_test_key"
}
