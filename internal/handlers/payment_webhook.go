package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/printstore/printstore/internal/cache"
	"github.com/printstore/printstore/internal/logging"
	"github.com/printstore/printstore/internal/payment"
)

// webhookIdempotencyTTL is how long webhook event IDs are kept for deduplication
const webhookIdempotencyTTL = 24 * time.Hour

func (h *Handlers) RazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	event, err := payment.ReadWebhookEvent(r, h.config.RazorpayWebhookSecret)
	if err != nil {
		logger.Error("failed to read Razorpay webhook payload", "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, payment.ErrInvalidSignature) {
			status = http.StatusUnauthorized
		}
		writeError(w, status, "invalid webhook")
		return
	}

	eventID := strings.TrimSpace(event.ID)
	if eventID == "" {
		logger.Error("missing Razorpay event ID")
		writeError(w, http.StatusBadRequest, "missing event id")
		return
	}
	ctx, logger = logging.With(ctx, logger, "event_id", eventID, "type", event.Type)

	cacheKey := cache.WebhookKey("razorpay", eventID)
	claimed, err := h.cacheProvider.SetIfAbsent(ctx, cacheKey, "processing", webhookIdempotencyTTL)
	if err != nil {
		// Processing twice is safe because order status transitions are guarded.
		logger.Warn("failed to claim webhook in cache", "error", err)
		claimed = true
	}
	if !claimed {
		logger.Info("webhook already processed")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.orders.HandlePaymentEvent(ctx, event); err != nil {
		if delErr := h.cacheProvider.Delete(ctx, cacheKey); delErr != nil {
			logger.Error("failed to release webhook claim", "error", delErr)
		}
		logger.Error("failed to process Razorpay webhook", "error", err)
		writeError(w, http.StatusInternalServerError, "processing failed")
		return
	}

	if err := h.cacheProvider.Set(ctx, cacheKey, "processed", webhookIdempotencyTTL); err != nil {
		logger.Error("failed to mark webhook as processed in cache", "error", err)
	}

	w.WriteHeader(http.StatusOK)
}
