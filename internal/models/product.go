package models

import (
	"time"

	"github.com/google/uuid"
)

type Category struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	ParentSlug string    `json:"parentSlug,omitempty"`
	Discount   float64   `json:"discount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (c *Category) IsSubcategory() bool {
	return c != nil && c.ParentSlug != ""
}

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	Type        string    `json:"type"`
	Price       float64   `json:"price"`
	MRP         float64   `json:"mrp,omitempty"`
	SalePrice   float64   `json:"salePrice,omitempty"`
	Discount    float64   `json:"discount,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Resolved from the category tree per request, never persisted.
	SubcategoryDiscount float64 `json:"subcategoryDiscount"`
	CategoryDiscount    float64 `json:"categoryDiscount"`
}

// PriceMatrixRow is one price point of a product's pricing matrix.
type PriceMatrixRow struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Layout    string    `json:"layout,omitempty"`
	Material  string    `json:"material,omitempty"`
	Size      string    `json:"size,omitempty"`
	HasQR     bool      `json:"hasQr"`
	Price     float64   `json:"price"`
	SalePrice float64   `json:"salePrice,omitempty"`
}
