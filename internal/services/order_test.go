package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/printstore/printstore/internal/catalog"
	"github.com/printstore/printstore/internal/models"
	"github.com/printstore/printstore/internal/payment"
)

const testKeySecret = "key_secret"

type orderFixture struct {
	svc      *OrderService
	orders   *fakeOrders
	gateway  *fakeGateway
	signID   uuid.UUID
	posterID uuid.UUID
}

func newOrderFixture() *orderFixture {
	signID := uuid.New()
	posterID := uuid.New()
	products := &fakeProducts{
		products: []*models.Product{
			{ID: signID, Name: "Fire Exit Sign", Slug: "fire-exit-sign", Category: "safety-signs", Type: string(catalog.TypeDiscounted), Price: 500, Discount: 10, Active: true},
			{ID: posterID, Name: "No Smoking Poster", Slug: "no-smoking-poster", Category: "posters", Type: string(catalog.TypeFeatured), Price: 300, Active: true},
			{ID: uuid.New(), Name: "Giveaway Sticker", Slug: "giveaway-sticker", Category: "posters", Type: string(catalog.TypeDiscounted), Price: 100, Discount: 100, Active: true},
			{ID: uuid.New(), Name: "Retired Poster", Slug: "retired-poster", Category: "posters", Type: string(catalog.TypeFeatured), Price: 200},
		},
		matrices: map[uuid.UUID][]models.PriceMatrixRow{
			signID: {
				{ID: uuid.New(), ProductID: signID, Size: "A4", Material: "Vinyl", Price: 500},
				{ID: uuid.New(), ProductID: signID, Size: "A3", Material: "Vinyl", Price: 1000, SalePrice: 850},
			},
		},
	}
	orders := newFakeOrders()
	gateway := &fakeGateway{}
	svc := NewOrderService(products, orders, gateway, catalog.NewPricer(), OrderSettings{
		Currency:                   "INR",
		ShippingFlatRatePaise:      9900,
		FreeShippingThresholdPaise: 99900,
		KeySecret:                  testKeySecret,
	}, testLogger())

	return &orderFixture{svc: svc, orders: orders, gateway: gateway, signID: signID, posterID: posterID}
}

func checkoutInput(items ...map[string]any) CheckoutInput {
	return CheckoutInput{
		CustomerName:    "Asha Rao",
		CustomerEmail:   "asha@example.com",
		CustomerPhone:   "+919876543210",
		ShippingAddress: map[string]any{"line1": "12 MG Road", "city": "Pune", "pincode": "411001"},
		Items:           items,
	}
}

func TestOrderServiceCheckout(t *testing.T) {
	t.Parallel()

	f := newOrderFixture()
	result, err := f.svc.Checkout(context.Background(), checkoutInput(
		map[string]any{"slug": "no-smoking-poster", "quantity": 2},
		map[string]any{
			"productId":       f.signID.String(),
			"quantity":        "3",
			"selectedOptions": map[string]any{"size": "a3", "material": "VINYL"},
		},
	))
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	if result.SubtotalPaise != 60000+255000 {
		t.Fatalf("SubtotalPaise = %d", result.SubtotalPaise)
	}
	if result.ShippingPaise != 0 || result.AmountPaise != result.SubtotalPaise {
		t.Fatalf("expected free shipping above threshold, got shipping=%d amount=%d", result.ShippingPaise, result.AmountPaise)
	}
	if result.GatewayOrderID != "order_gw_1" || result.KeyID != "rzp_test_key" {
		t.Fatalf("unexpected gateway details: %+v", result)
	}
	if len(result.Items) != 2 || result.Items[1].UnitPricePaise != 85000 || result.Items[1].MRPPaise != 100000 {
		t.Fatalf("unexpected items: %+v", result.Items)
	}

	if len(f.gateway.requests) != 1 {
		t.Fatalf("expected one gateway order, got %d", len(f.gateway.requests))
	}
	req := f.gateway.requests[0]
	if req.AmountPaise != result.AmountPaise || req.Currency != "INR" || req.Receipt != "order-1" {
		t.Fatalf("unexpected gateway request: %+v", req)
	}

	stored := f.orders.only()
	if stored.Status != models.StatusPendingPayment || stored.GatewayOrderID != "order_gw_1" {
		t.Fatalf("unexpected stored order: status=%s gateway=%s", stored.Status, stored.GatewayOrderID)
	}
}

func TestOrderServiceCheckoutChargesShippingBelowThreshold(t *testing.T) {
	t.Parallel()

	f := newOrderFixture()
	result, err := f.svc.Checkout(context.Background(), checkoutInput(
		map[string]any{"id": f.posterID.String()},
	))
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	if result.SubtotalPaise != 30000 || result.ShippingPaise != 9900 || result.AmountPaise != 39900 {
		t.Fatalf("unexpected totals: %+v", result)
	}
	if result.Items[0].Quantity != 1 {
		t.Fatalf("quantity should default to 1, got %d", result.Items[0].Quantity)
	}
}

func TestOrderServiceCheckoutValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(in *CheckoutInput)
		wantField string
	}{
		{
			name:      "missing email",
			mutate:    func(in *CheckoutInput) { in.CustomerEmail = "" },
			wantField: "customerEmail",
		},
		{
			name:      "invalid email",
			mutate:    func(in *CheckoutInput) { in.CustomerEmail = "not-an-email" },
			wantField: "customerEmail",
		},
		{
			name:      "no items",
			mutate:    func(in *CheckoutInput) { in.Items = nil },
			wantField: "items",
		},
		{
			name:      "unknown product",
			mutate:    func(in *CheckoutInput) { in.Items = []map[string]any{{"slug": "missing"}} },
			wantField: "items[0]",
		},
		{
			name:      "inactive product",
			mutate:    func(in *CheckoutInput) { in.Items = []map[string]any{{"slug": "retired-poster"}} },
			wantField: "items[0]",
		},
		{
			name:      "missing product reference",
			mutate:    func(in *CheckoutInput) { in.Items = []map[string]any{{"quantity": 1}} },
			wantField: "items[0]",
		},
		{
			name: "quantity above cap",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "no-smoking-poster", "quantity": 5000}}
			},
			wantField: "items[0].quantity",
		},
		{
			name: "zero quantity",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "no-smoking-poster", "quantity": 0}}
			},
			wantField: "items[0].quantity",
		},
		{
			name: "negative quantity",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "no-smoking-poster", "quantity": -3}}
			},
			wantField: "items[0].quantity",
		},
		{
			name: "fractional quantity",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "no-smoking-poster", "quantity": 2.5}}
			},
			wantField: "items[0].quantity",
		},
		{
			name: "non-numeric quantity",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "no-smoking-poster", "quantity": "abc"}}
			},
			wantField: "items[0].quantity",
		},
		{
			name: "fully discounted product",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "giveaway-sticker"}}
			},
			wantField: "items[0]",
		},
		{
			name: "unpriced option combination",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "fire-exit-sign", "size": "A5"}}
			},
			wantField: "items[0]",
		},
		{
			name: "ambiguous option combination",
			mutate: func(in *CheckoutInput) {
				in.Items = []map[string]any{{"slug": "fire-exit-sign", "material": "vinyl"}}
			},
			wantField: "items[0]",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newOrderFixture()
			in := checkoutInput(map[string]any{"slug": "no-smoking-poster"})
			tt.mutate(&in)

			_, err := f.svc.Checkout(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Fatalf("expected field %q in %v", tt.wantField, verr.Fields)
			}
			if len(f.gateway.requests) != 0 || f.orders.only() != nil {
				t.Fatalf("rejected checkout must not create orders")
			}
		})
	}
}

func TestOrderServiceCheckoutGatewayFailure(t *testing.T) {
	t.Parallel()

	f := newOrderFixture()
	f.gateway.err = errors.New("gateway unavailable")

	_, err := f.svc.Checkout(context.Background(), checkoutInput(map[string]any{"slug": "no-smoking-poster"}))
	if !errors.Is(err, f.gateway.err) {
		t.Fatalf("expected gateway error, got %v", err)
	}

	stored := f.orders.only()
	if stored == nil || stored.Status != models.StatusPaymentFailed || stored.FailureReason != "gateway_order_failed" {
		t.Fatalf("expected failed order, got %+v", stored)
	}
}

func checkoutOne(t *testing.T, f *orderFixture) *CheckoutResult {
	t.Helper()
	result, err := f.svc.Checkout(context.Background(), checkoutInput(map[string]any{"slug": "no-smoking-poster"}))
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	return result
}

func TestOrderServiceVerifyPayment(t *testing.T) {
	t.Parallel()

	f := newOrderFixture()
	result := checkoutOne(t, f)

	input := VerifyPaymentInput{
		OrderID:        result.OrderID.String(),
		GatewayOrderID: result.GatewayOrderID,
		PaymentID:      "pay_1",
		Signature:      payment.Sign([]byte(result.GatewayOrderID+"|pay_1"), testKeySecret),
	}

	order, err := f.svc.VerifyPayment(context.Background(), input)
	if err != nil {
		t.Fatalf("VerifyPayment() error = %v", err)
	}
	if !order.IsPaid() || order.GatewayPaymentID != "pay_1" {
		t.Fatalf("expected paid order, got %+v", order)
	}

	again, err := f.svc.VerifyPayment(context.Background(), input)
	if err != nil || !again.IsPaid() {
		t.Fatalf("repeat verification should succeed, got %v", err)
	}
}

func TestOrderServiceVerifyPaymentRejections(t *testing.T) {
	t.Parallel()

	f := newOrderFixture()
	result := checkoutOne(t, f)
	valid := payment.Sign([]byte(result.GatewayOrderID+"|pay_1"), testKeySecret)

	tests := []struct {
		name  string
		input VerifyPaymentInput
		check func(error) bool
	}{
		{
			name:  "bad signature",
			input: VerifyPaymentInput{OrderID: result.OrderID.String(), GatewayOrderID: result.GatewayOrderID, PaymentID: "pay_2", Signature: valid},
			check: func(err error) bool { return errors.Is(err, payment.ErrInvalidSignature) },
		},
		{
			name:  "gateway order mismatch",
			input: VerifyPaymentInput{OrderID: result.OrderID.String(), GatewayOrderID: "order_other", PaymentID: "pay_1", Signature: valid},
			check: IsValidationError,
		},
		{
			name:  "unknown order",
			input: VerifyPaymentInput{OrderID: uuid.NewString(), GatewayOrderID: result.GatewayOrderID, PaymentID: "pay_1", Signature: valid},
			check: func(err error) bool { return errors.Is(err, ErrOrderNotFound) },
		},
		{
			name:  "malformed order id",
			input: VerifyPaymentInput{OrderID: "42", GatewayOrderID: result.GatewayOrderID, PaymentID: "pay_1", Signature: valid},
			check: IsValidationError,
		},
	}

	for _, tt := range tests {
		_, err := f.svc.VerifyPayment(context.Background(), tt.input)
		if err == nil || !tt.check(err) {
			t.Fatalf("%s: unexpected error %v", tt.name, err)
		}
	}

	order, err := f.orders.GetByID(context.Background(), result.OrderID)
	if err != nil || order.IsPaid() {
		t.Fatalf("rejected verifications must not pay the order")
	}
}

func paymentEvent(eventType, gatewayOrderID string) *payment.Event {
	event := &payment.Event{ID: "evt_" + eventType, Type: eventType}
	event.Payload.Payment = &struct {
		Entity payment.PaymentEntity `json:"entity"`
	}{Entity: payment.PaymentEntity{ID: "pay_hook", OrderID: gatewayOrderID, ErrorDescription: "Card declined"}}
	return event
}

func TestOrderServiceHandlePaymentEvent(t *testing.T) {
	t.Parallel()

	f := newOrderFixture()
	result := checkoutOne(t, f)
	ctx := context.Background()

	if err := f.svc.HandlePaymentEvent(ctx, paymentEvent(payment.EventPaymentFailed, result.GatewayOrderID)); err != nil {
		t.Fatalf("payment.failed error = %v", err)
	}
	order, _ := f.orders.GetByID(ctx, result.OrderID)
	if order.Status != models.StatusPaymentFailed || order.FailureReason != "Card declined" {
		t.Fatalf("expected failed order, got %s %q", order.Status, order.FailureReason)
	}

	// A retried payment can still capture a failed order.
	if err := f.svc.HandlePaymentEvent(ctx, paymentEvent(payment.EventPaymentCaptured, result.GatewayOrderID)); err != nil {
		t.Fatalf("payment.captured error = %v", err)
	}
	order, _ = f.orders.GetByID(ctx, result.OrderID)
	if !order.IsPaid() || order.GatewayPaymentID != "pay_hook" {
		t.Fatalf("expected paid order, got %+v", order)
	}

	// Late failures and duplicates leave a paid order alone.
	for _, eventType := range []string{payment.EventPaymentFailed, payment.EventOrderPaid, "refund.created"} {
		if err := f.svc.HandlePaymentEvent(ctx, paymentEvent(eventType, result.GatewayOrderID)); err != nil {
			t.Fatalf("%s error = %v", eventType, err)
		}
	}
	order, _ = f.orders.GetByID(ctx, result.OrderID)
	if !order.IsPaid() {
		t.Fatalf("paid order changed status to %s", order.Status)
	}

	if err := f.svc.HandlePaymentEvent(ctx, paymentEvent(payment.EventPaymentCaptured, "order_unknown")); err != nil {
		t.Fatalf("unknown order should be ignored, got %v", err)
	}
	if err := f.svc.HandlePaymentEvent(ctx, nil); err == nil {
		t.Fatalf("expected error for nil event")
	}
}

func TestOrderServiceGetOrder(t *testing.T) {
	t.Parallel()

	f := newOrderFixture()
	result, err := f.svc.Checkout(context.Background(), checkoutInput(map[string]any{
		"slug":            "fire-exit-sign",
		"selectedOptions": map[string]any{"size": "A4", "material": "Vinyl", "language": "Hindi", "qr": "no"},
	}))
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	view, err := f.svc.GetOrder(context.Background(), result.OrderID)
	if err != nil {
		t.Fatalf("GetOrder() error = %v", err)
	}
	if len(view.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(view.Items))
	}

	want := []OptionEntry{
		{Label: "Language", Value: "Hindi"},
		{Label: "Size", Value: "A4"},
		{Label: "Material", Value: "Vinyl"},
		{Label: "QR", Value: QRLabelWithout},
	}
	got := view.Items[0].OptionEntries
	if len(got) != len(want) {
		t.Fatalf("OptionEntries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("OptionEntries[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := f.svc.GetOrder(context.Background(), uuid.New()); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}
