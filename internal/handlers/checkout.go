package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/printstore/printstore/internal/services"
)

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var input services.CheckoutInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.orders.Checkout(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var input services.VerifyPaymentInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orders.VerifyPayment(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"status":      order.Status,
	})
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, order)
}
