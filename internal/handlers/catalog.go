package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/spf13/cast"

	"github.com/printstore/printstore/internal/db"
)

const maxProductPageSize = 100

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// ListProducts serves GET /api/products?category=&subcategory=&type=&limit=&offset=.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := db.ProductFilter{
		Category:    strings.TrimSpace(query.Get("category")),
		Subcategory: strings.TrimSpace(query.Get("subcategory")),
		Type:        strings.TrimSpace(query.Get("type")),
		Limit:       clampInt(cast.ToInt(query.Get("limit")), 0, maxProductPageSize),
		Offset:      clampInt(cast.ToInt(query.Get("offset")), 0, -1),
	}
	if filter.Limit == 0 {
		filter.Limit = maxProductPageSize
	}

	products, err := h.catalog.ListProducts(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.GetProduct(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// clampInt bounds v to [lo, hi]; a negative hi means no upper bound.
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if hi >= 0 && v > hi {
		return hi
	}
	return v
}
