package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/printstore/printstore/internal/observability"
)

const (
	DefaultAPIURL         = "https://api.razorpay.com"
	defaultRequestTimeout = 10 * time.Second
)

type Client struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
}

type CreateOrderRequest struct {
	AmountPaise int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay api error (%d): %s %s", e.StatusCode, e.Code, e.Description)
}

func NewClient(keyID, keySecret, baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		keyID:      keyID,
		keySecret:  keySecret,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: observability.NewHTTPClient(defaultRequestTimeout),
	}
}

func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder registers an order with Razorpay so Checkout can collect the
// payment for it.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderEntity, error) {
	if req.AmountPaise <= 0 {
		return nil, fmt.Errorf("order amount must be positive")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read razorpay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		}
		return nil, apiErr
	}

	var order OrderEntity
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("failed to decode razorpay order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("razorpay order response missing id")
	}
	return &order, nil
}
