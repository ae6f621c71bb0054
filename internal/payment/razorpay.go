// Package payment provides Razorpay signature validation and order creation.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const SignatureHeader = "X-Razorpay-Signature"

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

var ErrInvalidSignature = errors.New("invalid payment signature")

// Event is the subset of a Razorpay webhook delivery the store acts on.
type Event struct {
	ID        string       `json:"-"`
	Entity    string       `json:"entity"`
	AccountID string       `json:"account_id"`
	Type      string       `json:"event"`
	Contains  []string     `json:"contains"`
	CreatedAt int64        `json:"created_at"`
	Payload   EventPayload `json:"payload"`
}

type EventPayload struct {
	Payment *struct {
		Entity PaymentEntity `json:"entity"`
	} `json:"payment,omitempty"`
	Order *struct {
		Entity OrderEntity `json:"entity"`
	} `json:"order,omitempty"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

type OrderEntity struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// GatewayOrderID returns the Razorpay order the event refers to.
func (e *Event) GatewayOrderID() string {
	if e.Payload.Payment != nil && e.Payload.Payment.Entity.OrderID != "" {
		return e.Payload.Payment.Entity.OrderID
	}
	if e.Payload.Order != nil {
		return e.Payload.Order.Entity.ID
	}
	return ""
}

func (e *Event) PaymentID() string {
	if e.Payload.Payment != nil {
		return e.Payload.Payment.Entity.ID
	}
	return ""
}

func (e *Event) FailureReason() string {
	if e.Payload.Payment == nil {
		return ""
	}
	entity := e.Payload.Payment.Entity
	if entity.ErrorDescription != "" {
		return entity.ErrorDescription
	}
	return entity.ErrorCode
}

// Sign computes the hex HMAC-SHA256 Razorpay uses for both checkout and
// webhook signatures.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func validSignature(payload []byte, signature, secret string) bool {
	expected, err := hex.DecodeString(Sign(payload, secret))
	if err != nil {
		return false
	}
	given, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, given)
}

// VerifyPaymentSignature checks the signature returned by Razorpay Checkout
// after a successful payment.
func VerifyPaymentSignature(gatewayOrderID, paymentID, signature, keySecret string) error {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return fmt.Errorf("%w: missing order, payment or signature", ErrInvalidSignature)
	}
	if !validSignature([]byte(gatewayOrderID+"|"+paymentID), signature, keySecret) {
		return ErrInvalidSignature
	}
	return nil
}

// ReadWebhookEvent validates the webhook signature over the raw body and
// decodes the event. The event id comes from the X-Razorpay-Event-Id header.
func ReadWebhookEvent(r *http.Request, secret string) (*Event, error) {
	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		return nil, fmt.Errorf("missing razorpay signature header: %w", ErrInvalidSignature)
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if !validSignature(payload, signature, secret) {
		return nil, fmt.Errorf("webhook signature validation failed: %w", ErrInvalidSignature)
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	event.ID = r.Header.Get("X-Razorpay-Event-Id")

	return &event, nil
}
