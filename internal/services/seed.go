package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/printstore/printstore/internal/catalog"
	"github.com/printstore/printstore/internal/db"
	"github.com/printstore/printstore/internal/logging"
	"github.com/printstore/printstore/internal/models"
)

type categoryWriter interface {
	Upsert(ctx context.Context, category *db.Category) error
}

type productWriter interface {
	Upsert(ctx context.Context, product *db.Product) error
	ReplacePriceMatrix(ctx context.Context, productID uuid.UUID, rows []db.PriceMatrixRow) error
}

type catalogValidator interface {
	Validate(file *catalog.CatalogFile) error
}

// SeedResult counts what a seed run wrote.
type SeedResult struct {
	Categories int
	Products   int
	Variants   int
}

// CatalogSeeder loads a validated catalog file into the store.
type CatalogSeeder struct {
	categories categoryWriter
	products   productWriter
	validator  catalogValidator
	logger     *slog.Logger
}

func NewCatalogSeeder(categories categoryWriter, products productWriter, validator catalogValidator, logger *slog.Logger) *CatalogSeeder {
	return &CatalogSeeder{categories: categories, products: products, validator: validator, logger: logger}
}

// Seed upserts categories (parents before subcategories), then products and
// their pricing matrices. Nothing is written when validation fails.
func (s *CatalogSeeder) Seed(ctx context.Context, file *catalog.CatalogFile) (SeedResult, error) {
	var result SeedResult
	if err := s.validator.Validate(file); err != nil {
		return result, fmt.Errorf("invalid catalog: %w", err)
	}

	logger := logging.FromContext(ctx, s.logger)

	ordered := make([]catalog.CategoryConfig, 0, len(file.Categories))
	for _, c := range file.Categories {
		if c.Parent == "" {
			ordered = append(ordered, c)
		}
	}
	for _, c := range file.Categories {
		if c.Parent != "" {
			ordered = append(ordered, c)
		}
	}

	for _, c := range ordered {
		category := &models.Category{
			Name:       strings.TrimSpace(c.Name),
			Slug:       c.Slug,
			ParentSlug: c.Parent,
			Discount:   catalog.ClampDiscount(c.Discount),
		}
		if err := s.categories.Upsert(ctx, category); err != nil {
			return result, err
		}
		result.Categories++
	}

	for _, p := range file.Products {
		product := &models.Product{
			Name:        strings.TrimSpace(p.Name),
			Slug:        p.Slug,
			Description: strings.TrimSpace(p.Description),
			Category:    p.Category,
			Subcategory: p.Subcategory,
			Type:        string(p.Type),
			Price:       p.Price,
			MRP:         p.MRP,
			SalePrice:   p.SalePrice,
			Discount:    p.Discount,
			ImageURL:    strings.TrimSpace(p.ImageURL),
			Active:      p.IsActive(),
		}
		if err := s.products.Upsert(ctx, product); err != nil {
			return result, err
		}

		rows := make([]models.PriceMatrixRow, 0, len(p.Variants))
		for _, v := range p.Variants {
			rows = append(rows, models.PriceMatrixRow{
				ProductID: product.ID,
				Layout:    strings.TrimSpace(v.Layout),
				Material:  strings.TrimSpace(v.Material),
				Size:      strings.TrimSpace(v.Size),
				HasQR:     v.QR,
				Price:     v.Price,
				SalePrice: v.SalePrice,
			})
		}
		if err := s.products.ReplacePriceMatrix(ctx, product.ID, rows); err != nil {
			return result, fmt.Errorf("failed to store price matrix for %s: %w", product.Slug, err)
		}

		result.Products++
		result.Variants += len(rows)
		logger.Debug("seeded product", "slug", product.Slug, "variants", len(rows))
	}

	return result, nil
}
