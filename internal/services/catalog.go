package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/printstore/printstore/internal/catalog"
	"github.com/printstore/printstore/internal/db"
	"github.com/printstore/printstore/internal/logging"
	"github.com/printstore/printstore/internal/models"
	"github.com/printstore/printstore/internal/observability"
)

var ErrProductNotFound = errors.New("product not found")

type productReader interface {
	List(ctx context.Context, filter db.ProductFilter) ([]*db.Product, error)
	GetBySlug(ctx context.Context, slug string) (*db.Product, error)
	PriceMatrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]db.PriceMatrixRow, error)
}

type categoryReader interface {
	List(ctx context.Context) ([]*db.Category, error)
}

type discountAttacher interface {
	Attach(ctx context.Context, products []*models.Product) ([]*models.Product, error)
}

type CatalogService struct {
	products   productReader
	categories categoryReader
	attacher   discountAttacher
	currency   string
	logger     *slog.Logger
}

func NewCatalogService(products productReader, categories categoryReader, attacher discountAttacher, currency string, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		attacher:   attacher,
		currency:   currency,
		logger:     logger,
	}
}

// ProductView is a storefront product with its display pricing resolved.
type ProductView struct {
	ID                  uuid.UUID          `json:"id"`
	Name                string             `json:"name"`
	Slug                string             `json:"slug"`
	Description         string             `json:"description,omitempty"`
	Category            string             `json:"category"`
	Subcategory         string             `json:"subcategory,omitempty"`
	Type                string             `json:"type"`
	ImageURL            string             `json:"imageUrl,omitempty"`
	Price               float64            `json:"price"`
	OriginalPrice       float64            `json:"originalPrice"`
	DiscountPercentage  int                `json:"discountPercentage"`
	DiscountAmount      float64            `json:"discountAmount"`
	PriceRange          catalog.PriceRange `json:"priceRange"`
	PriceLabel          string             `json:"priceLabel"`
	SubcategoryDiscount float64            `json:"subcategoryDiscount"`
	CategoryDiscount    float64            `json:"categoryDiscount"`
	Variants            []VariantView      `json:"variants,omitempty"`
}

type VariantView struct {
	ID                 uuid.UUID `json:"id"`
	Layout             string    `json:"layout,omitempty"`
	Material           string    `json:"material,omitempty"`
	Size               string    `json:"size,omitempty"`
	HasQR              bool      `json:"hasQr"`
	Price              float64   `json:"price"`
	OriginalPrice      float64   `json:"originalPrice"`
	DiscountPercentage int       `json:"discountPercentage"`
	DiscountAmount     float64   `json:"discountAmount"`
}

func (s *CatalogService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// ListProducts returns the active products matching filter. Category
// discounts are attached with one lookup and all variant matrices are loaded
// with one query.
func (s *CatalogService) ListProducts(ctx context.Context, filter db.ProductFilter) (views []ProductView, err error) {
	span := observability.StartServiceSpan(ctx, "catalog", "list_products", "ListProducts")
	defer func() { observability.FinishSpan(span, err) }()
	ctx = span.Context()

	filter.ActiveOnly = true
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	filter.Subcategory = strings.ToLower(strings.TrimSpace(filter.Subcategory))
	if filter.Type != "" && !catalog.ProductType(filter.Type).Valid() {
		return nil, NewValidationError("type", "unknown product type")
	}

	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	views, err = s.buildViews(ctx, products)
	if err != nil {
		return nil, err
	}

	observability.MeterFromContext(ctx).Count("catalog.products.listed", int64(len(views)), sentry.WithAttributes(
		attribute.String("category", filter.Category),
	))
	return views, nil
}

// GetProduct returns one active product with its variants.
func (s *CatalogService) GetProduct(ctx context.Context, slug string) (view *ProductView, err error) {
	span := observability.StartServiceSpan(ctx, "catalog", "get_product", "GetProduct")
	defer func() { observability.FinishSpan(span, err) }()
	ctx = span.Context()

	slug = strings.ToLower(strings.TrimSpace(slug))
	if slug == "" {
		return nil, ErrProductNotFound
	}

	product, err := s.products.GetBySlug(ctx, slug)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product %s: %w", slug, err)
	}
	if !product.Active {
		return nil, ErrProductNotFound
	}

	views, err := s.buildViews(ctx, []*models.Product{product})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *CatalogService) buildViews(ctx context.Context, products []*models.Product) ([]ProductView, error) {
	if len(products) == 0 {
		return []ProductView{}, nil
	}

	attached, err := s.attacher.Attach(ctx, products)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(attached))
	for _, product := range attached {
		if product != nil {
			ids = append(ids, product.ID)
		}
	}
	matrices, err := s.products.PriceMatrices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load price matrices: %w", err)
	}

	views := make([]ProductView, 0, len(attached))
	for _, product := range attached {
		if product == nil {
			continue
		}
		views = append(views, s.productView(product, matrices[product.ID]))
	}

	s.loggerFromContext(ctx).Debug("built product views", "count", len(views))
	return views, nil
}

func (s *CatalogService) productView(product *models.Product, matrix []models.PriceMatrixRow) ProductView {
	base := catalog.DeriveProductPricing(catalog.PriceInputFromProduct(product))
	pricingContext := catalog.ProductPricingContext{Discount: product.Discount, Type: catalog.ProductType(product.Type)}

	variants := make([]VariantView, 0, len(matrix))
	variantPricing := make([]catalog.Pricing, 0, len(matrix))
	for _, row := range matrix {
		pricing := catalog.DeriveVariantPricing(catalog.VariantPrice{Price: row.Price, SalePrice: row.SalePrice}, pricingContext)
		variantPricing = append(variantPricing, pricing)
		variants = append(variants, VariantView{
			ID:                 row.ID,
			Layout:             row.Layout,
			Material:           row.Material,
			Size:               row.Size,
			HasQR:              row.HasQR,
			Price:              pricing.FinalPrice,
			OriginalPrice:      pricing.MRP,
			DiscountPercentage: pricing.DiscountPercentage,
			DiscountAmount:     pricing.DiscountAmount,
		})
	}

	priceRange := catalog.NormalizeDisplayPriceRange(variantPricing, base)

	return ProductView{
		ID:                  product.ID,
		Name:                product.Name,
		Slug:                product.Slug,
		Description:         product.Description,
		Category:            product.Category,
		Subcategory:         product.Subcategory,
		Type:                product.Type,
		ImageURL:            product.ImageURL,
		Price:               base.FinalPrice,
		OriginalPrice:       base.MRP,
		DiscountPercentage:  base.DiscountPercentage,
		DiscountAmount:      base.DiscountAmount,
		PriceRange:          priceRange,
		PriceLabel:          priceRange.Label(s.currency),
		SubcategoryDiscount: product.SubcategoryDiscount,
		CategoryDiscount:    product.CategoryDiscount,
		Variants:            variants,
	}
}
