package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/printstore/printstore/internal/catalog"
	"github.com/printstore/printstore/internal/db"
	"github.com/printstore/printstore/internal/logging"
	"github.com/printstore/printstore/internal/models"
	"github.com/printstore/printstore/internal/observability"
	"github.com/printstore/printstore/internal/payment"
)

const (
	reasonGatewayOrder     = "gateway_order_failed"
	reasonPaymentFailed    = "payment_failed"
	failureReasonMaxLength = 500
)

var ErrOrderNotFound = errors.New("order not found")

type orderProductReader interface {
	ListByRefs(ctx context.Context, ids []uuid.UUID, slugs []string) ([]*db.Product, error)
	PriceMatrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]db.PriceMatrixRow, error)
}

type orderStore interface {
	Create(ctx context.Context, order *db.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*db.Order, error)
	SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string) error
	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error
}

type paymentGateway interface {
	CreateOrder(ctx context.Context, req payment.CreateOrderRequest) (*payment.OrderEntity, error)
	KeyID() string
}

type linePricer interface {
	PriceLine(product *models.Product, matrix []models.PriceMatrixRow, sel catalog.LineSelection, quantity int) (catalog.LinePrice, error)
	ShippingPaise(subtotal, flatRate, freeAbove int64) int64
}

// OrderSettings are the store-wide checkout parameters.
type OrderSettings struct {
	Currency                   string
	ShippingFlatRatePaise      int64
	FreeShippingThresholdPaise int64
	KeySecret                  string
}

type OrderService struct {
	products orderProductReader
	orders   orderStore
	gateway  paymentGateway
	pricer   linePricer
	settings OrderSettings
	validate *validator.Validate
	logger   *slog.Logger
}

func NewOrderService(products orderProductReader, orders orderStore, gateway paymentGateway, pricer linePricer, settings OrderSettings, logger *slog.Logger) *OrderService {
	if settings.Currency == "" {
		settings.Currency = "INR"
	}
	return &OrderService{
		products: products,
		orders:   orders,
		gateway:  gateway,
		pricer:   pricer,
		settings: settings,
		validate: newInputValidator(),
		logger:   logger,
	}
}

func newInputValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// CheckoutInput is a storefront checkout request. Items keep whatever shape
// the storefront sends; product references, quantity and options are read
// from them leniently.
type CheckoutInput struct {
	CustomerName    string           `json:"customerName" validate:"required,max=200"`
	CustomerEmail   string           `json:"customerEmail" validate:"required,email"`
	CustomerPhone   string           `json:"customerPhone" validate:"omitempty,min=7,max=20"`
	ShippingAddress map[string]any   `json:"shippingAddress" validate:"required"`
	Items           []map[string]any `json:"items" validate:"required,min=1,max=50"`
}

type CheckoutResult struct {
	OrderID        uuid.UUID          `json:"orderId"`
	OrderNumber    int                `json:"orderNumber"`
	GatewayOrderID string             `json:"razorpayOrderId"`
	KeyID          string             `json:"razorpayKeyId"`
	Currency       string             `json:"currency"`
	SubtotalPaise  int64              `json:"subtotalPaise"`
	ShippingPaise  int64              `json:"shippingPaise"`
	AmountPaise    int64              `json:"amountPaise"`
	Items          []models.OrderItem `json:"items"`
}

type VerifyPaymentInput struct {
	OrderID        string `json:"orderId" validate:"required,uuid"`
	GatewayOrderID string `json:"razorpayOrderId" validate:"required"`
	PaymentID      string `json:"razorpayPaymentId" validate:"required"`
	Signature      string `json:"razorpaySignature" validate:"required"`
}

type OrderItemView struct {
	models.OrderItem
	OptionEntries []OptionEntry `json:"optionEntries"`
}

// OrderView is an order with a display summary of each item's options.
type OrderView struct {
	*models.Order
	Items []OrderItemView `json:"items"`
}

type itemRef struct {
	id   uuid.UUID
	slug string
}

// Checkout prices the cart against the catalog, stores a pending order and
// opens a Razorpay order for it.
func (s *OrderService) Checkout(ctx context.Context, input CheckoutInput) (result *CheckoutResult, err error) {
	span := observability.StartServiceSpan(ctx, "order", "checkout", "Checkout")
	defer func() { observability.FinishSpan(span, err) }()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	recordFailure := func(reason string) {
		meter.Count("checkout.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	meter.Count("checkout.received", 1)

	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.CustomerEmail = strings.TrimSpace(input.CustomerEmail)
	input.CustomerPhone = strings.TrimSpace(input.CustomerPhone)
	if err := s.validate.Struct(input); err != nil {
		recordFailure("invalid_input")
		return nil, validationErrorFrom(err)
	}

	refs, quantities, verr := resolveCheckoutItems(input.Items)
	if !verr.Empty() {
		recordFailure("invalid_items")
		return nil, verr
	}

	products, err := s.loadProducts(ctx, refs)
	if err != nil {
		recordFailure("product_lookup_failed")
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	verr = &ValidationError{}
	matrixIDs := make([]uuid.UUID, 0, len(refs))
	resolved := make([]*models.Product, len(refs))
	for i, ref := range refs {
		product := products.find(ref)
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case product == nil:
			verr.Add(field, "unknown product")
		case !product.Active:
			verr.Add(field, "product is not available")
		default:
			resolved[i] = product
			matrixIDs = append(matrixIDs, product.ID)
		}
	}
	if !verr.Empty() {
		recordFailure("unknown_product")
		return nil, verr
	}

	matrices, err := s.products.PriceMatrices(ctx, matrixIDs)
	if err != nil {
		recordFailure("price_matrix_failed")
		return nil, fmt.Errorf("failed to load price matrices: %w", err)
	}

	var subtotal int64
	for i, product := range resolved {
		opts := ExtractOrderItemOptions(input.Items[i])
		line, err := s.pricer.PriceLine(product, matrices[product.ID], opts.Selection(), quantities[i])
		if err != nil {
			if errors.Is(err, catalog.ErrVariantNotFound) || errors.Is(err, catalog.ErrAmbiguousOption) || errors.Is(err, catalog.ErrUnpriced) {
				verr.Add(fmt.Sprintf("items[%d]", i), err.Error())
				continue
			}
			recordFailure("pricing_failed")
			return nil, fmt.Errorf("failed to price %s: %w", product.Slug, err)
		}

		subtotal += line.TotalPaise
		items = append(items, models.OrderItem{
			ProductID:      product.ID,
			ProductSlug:    product.Slug,
			Name:           product.Name,
			Quantity:       line.Quantity,
			UnitPricePaise: line.UnitPaise,
			MRPPaise:       line.MRPPaise,
			LineTotalPaise: line.TotalPaise,
			Options:        input.Items[i],
		})
	}
	if !verr.Empty() {
		recordFailure("unpriced_selection")
		return nil, verr
	}

	shipping := s.pricer.ShippingPaise(subtotal, s.settings.ShippingFlatRatePaise, s.settings.FreeShippingThresholdPaise)
	order := &db.Order{
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		ShippingAddress: input.ShippingAddress,
		Items:           items,
		SubtotalPaise:   subtotal,
		ShippingPaise:   shipping,
		TotalPaise:      subtotal + shipping,
		Currency:        s.settings.Currency,
		Status:          db.StatusPendingPayment,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		recordFailure("order_create_failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logger = logger.With("order_id", order.ID, "order_number", order.OrderNumber)

	gatewayOrder, err := s.gateway.CreateOrder(ctx, payment.CreateOrderRequest{
		AmountPaise: order.TotalPaise,
		Currency:    order.Currency,
		Receipt:     fmt.Sprintf("order-%d", order.OrderNumber),
		Notes:       map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		recordFailure(reasonGatewayOrder)
		if markErr := s.orders.MarkFailed(ctx, order.ID, reasonGatewayOrder); markErr != nil {
			logger.Error("failed to mark order as failed", "error", markErr)
		}
		return nil, fmt.Errorf("failed to create payment order: %w", err)
	}

	if err := s.orders.SetGatewayOrderID(ctx, order.ID, gatewayOrder.ID); err != nil {
		recordFailure("gateway_order_save_failed")
		return nil, fmt.Errorf("failed to save payment order: %w", err)
	}

	meter.Count("checkout.created", 1, sentry.WithAttributes(
		attribute.String("currency", order.Currency),
	))
	meter.Distribution("checkout.amount", float64(order.TotalPaise), sentry.WithAttributes(
		attribute.String("currency", order.Currency),
	))
	logger.Info("checkout created", "gateway_order_id", gatewayOrder.ID, "total_paise", order.TotalPaise)

	return &CheckoutResult{
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		GatewayOrderID: gatewayOrder.ID,
		KeyID:          s.gateway.KeyID(),
		Currency:       order.Currency,
		SubtotalPaise:  order.SubtotalPaise,
		ShippingPaise:  order.ShippingPaise,
		AmountPaise:    order.TotalPaise,
		Items:          order.Items,
	}, nil
}

// VerifyPayment confirms a Checkout callback. Verifying an already paid order
// again succeeds without changes.
func (s *OrderService) VerifyPayment(ctx context.Context, input VerifyPaymentInput) (order *models.Order, err error) {
	span := observability.StartServiceSpan(ctx, "order", "verify_payment", "VerifyPayment")
	defer func() { observability.FinishSpan(span, err) }()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	recordFailure := func(reason string) {
		meter.Count("payment.verify.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if err := s.validate.Struct(input); err != nil {
		recordFailure("invalid_input")
		return nil, validationErrorFrom(err)
	}
	orderID, err := uuid.Parse(input.OrderID)
	if err != nil {
		recordFailure("invalid_input")
		return nil, NewValidationError("orderId", "must be a valid id")
	}

	order, err = s.getOrder(ctx, orderID)
	if err != nil {
		recordFailure("order_lookup_failed")
		return nil, err
	}
	if order.GatewayOrderID == "" || order.GatewayOrderID != input.GatewayOrderID {
		recordFailure("gateway_order_mismatch")
		return nil, NewValidationError("razorpayOrderId", "does not match the order")
	}

	if err := payment.VerifyPaymentSignature(input.GatewayOrderID, input.PaymentID, input.Signature, s.settings.KeySecret); err != nil {
		recordFailure("invalid_signature")
		return nil, err
	}

	if order.IsPaid() {
		return order, nil
	}

	if err := s.markPaid(ctx, order, input.PaymentID); err != nil {
		recordFailure("mark_paid_failed")
		return nil, err
	}

	meter.Count("payment.verify.succeeded", 1)
	return s.getOrder(ctx, orderID)
}

// HandlePaymentEvent applies a Razorpay webhook event to its order. Events
// for unknown orders and event types the store does not track are ignored.
func (s *OrderService) HandlePaymentEvent(ctx context.Context, event *payment.Event) (err error) {
	span := observability.StartServiceSpan(ctx, "order", "handle_payment_event", "HandlePaymentEvent")
	defer func() { observability.FinishSpan(span, err) }()
	ctx = span.Context()

	if event == nil {
		return fmt.Errorf("payment event is required")
	}

	logger := s.loggerFromContext(ctx).With("event_type", event.Type, "event_id", event.ID)
	meter := observability.MeterFromContext(ctx)
	meter.Count("payment.event.received", 1, sentry.WithAttributes(
		attribute.String("event_type", event.Type),
	))

	switch event.Type {
	case payment.EventPaymentCaptured, payment.EventOrderPaid, payment.EventPaymentFailed:
	default:
		logger.Debug("ignoring payment event")
		return nil
	}

	gatewayOrderID := event.GatewayOrderID()
	if gatewayOrderID == "" {
		logger.Warn("payment event without order id")
		return nil
	}

	order, err := s.orders.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if db.IsNotFound(err) {
			logger.Warn("payment event for unknown order", "gateway_order_id", gatewayOrderID)
			return nil
		}
		return fmt.Errorf("failed to load order for %s: %w", gatewayOrderID, err)
	}
	logger = logger.With("order_id", order.ID)

	if event.Type == payment.EventPaymentFailed {
		reason := strings.TrimSpace(event.FailureReason())
		if reason == "" {
			reason = reasonPaymentFailed
		}
		if len(reason) > failureReasonMaxLength {
			reason = reason[:failureReasonMaxLength]
		}
		err := s.orders.MarkFailed(ctx, order.ID, reason)
		if errors.Is(err, db.ErrInvalidStatusTransition) {
			logger.Info("payment failure ignored for order", "status", order.Status)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark order %s failed: %w", order.ID, err)
		}
		meter.Count("payment.failed", 1)
		logger.Info("order payment failed", "reason", reason)
		return nil
	}

	if order.IsPaid() {
		return nil
	}
	if err := s.markPaid(ctx, order, event.PaymentID()); err != nil {
		return err
	}
	logger.Info("order paid from webhook")
	return nil
}

// GetOrder returns an order with option summaries for each item.
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			OrderItem:     item,
			OptionEntries: OrderItemOptionEntries(item.Options),
		})
	}
	return &OrderView{Order: order, Items: items}, nil
}

func (s *OrderService) getOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return order, nil
}

// markPaid treats losing a race against another payment confirmation as
// success.
func (s *OrderService) markPaid(ctx context.Context, order *models.Order, paymentID string) error {
	err := s.orders.MarkPaid(ctx, order.ID, paymentID)
	if err == nil {
		observability.MeterFromContext(ctx).Count("payment.captured", 1)
		return nil
	}
	if !errors.Is(err, db.ErrInvalidStatusTransition) {
		return fmt.Errorf("failed to mark order %s paid: %w", order.ID, err)
	}

	current, getErr := s.getOrder(ctx, order.ID)
	if getErr != nil {
		return getErr
	}
	if current.IsPaid() {
		return nil
	}
	return fmt.Errorf("order %s cannot be paid from status %s: %w", order.ID, current.Status, err)
}

type productIndex struct {
	byID   map[uuid.UUID]*models.Product
	bySlug map[string]*models.Product
}

func (idx productIndex) find(ref itemRef) *models.Product {
	if ref.id != uuid.Nil {
		if product, ok := idx.byID[ref.id]; ok {
			return product
		}
	}
	if ref.slug != "" {
		return idx.bySlug[ref.slug]
	}
	return nil
}

func (s *OrderService) loadProducts(ctx context.Context, refs []itemRef) (productIndex, error) {
	var (
		ids   []uuid.UUID
		slugs []string
	)
	seenIDs := map[uuid.UUID]struct{}{}
	seenSlugs := map[string]struct{}{}
	for _, ref := range refs {
		if ref.id != uuid.Nil {
			if _, ok := seenIDs[ref.id]; !ok {
				seenIDs[ref.id] = struct{}{}
				ids = append(ids, ref.id)
			}
		}
		if ref.slug != "" {
			if _, ok := seenSlugs[ref.slug]; !ok {
				seenSlugs[ref.slug] = struct{}{}
				slugs = append(slugs, ref.slug)
			}
		}
	}

	products, err := s.products.ListByRefs(ctx, ids, slugs)
	if err != nil {
		return productIndex{}, fmt.Errorf("failed to load products: %w", err)
	}

	idx := productIndex{
		byID:   make(map[uuid.UUID]*models.Product, len(products)),
		bySlug: make(map[string]*models.Product, len(products)),
	}
	for _, product := range products {
		if product == nil {
			continue
		}
		idx.byID[product.ID] = product
		idx.bySlug[strings.ToLower(product.Slug)] = product
	}
	return idx, nil
}

var (
	productIDKeys   = []string{"productId", "product_id", "id"}
	productSlugKeys = []string{"slug", "productSlug", "product_slug"}
)

// resolveCheckoutItems reads the product reference and quantity of every
// cart line. A product id that is not a UUID is treated as a slug.
func resolveCheckoutItems(items []map[string]any) ([]itemRef, []int, *ValidationError) {
	refs := make([]itemRef, len(items))
	quantities := make([]int, len(items))
	verr := &ValidationError{}

	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		if item == nil {
			verr.Add(field, "is required")
			continue
		}

		var ref itemRef
		if raw := itemText(item, productIDKeys); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				ref.id = id
			} else {
				ref.slug = strings.ToLower(raw)
			}
		}
		if slug := itemText(item, productSlugKeys); slug != "" {
			ref.slug = strings.ToLower(slug)
		}
		if ref.id == uuid.Nil && ref.slug == "" {
			verr.Add(field, "product reference is required")
			continue
		}
		refs[i] = ref

		quantity, err := catalog.ParseQuantity(item["quantity"])
		if err != nil {
			verr.Add(field+".quantity", fmt.Sprintf("must be a whole number between 1 and %d", catalog.MaxLineQuantity))
			continue
		}
		quantities[i] = quantity
	}

	return refs, quantities, verr
}

// itemText reads a top-level item field. Product references are never taken
// from selectedOptions.
func itemText(item map[string]any, keys []string) string {
	for _, key := range keys {
		if text, ok := optionText(item[key]); ok {
			return text
		}
	}
	return ""
}
