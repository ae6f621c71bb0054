package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/printstore/printstore/internal/models"
)

// CategoryDiscountLookup resolves discount percentages for category and
// subcategory slugs in a single round trip. Unknown slugs are simply absent
// from the result.
type CategoryDiscountLookup interface {
	DiscountsBySlugs(ctx context.Context, slugs []string) (map[string]float64, error)
}

// DiscountAttacher merges the discount of a product's subcategory (or, failing
// that, its category) onto product records.
type DiscountAttacher struct {
	lookup CategoryDiscountLookup
}

func NewDiscountAttacher(lookup CategoryDiscountLookup) *DiscountAttacher {
	return &DiscountAttacher{lookup: lookup}
}

// Attach returns copies of products carrying SubcategoryDiscount and its legacy
// alias CategoryDiscount. Length and order are preserved and nil entries stay
// nil. Only a failure of the whole lookup is returned.
func (a *DiscountAttacher) Attach(ctx context.Context, products []*models.Product) ([]*models.Product, error) {
	out := make([]*models.Product, len(products))
	if len(products) == 0 {
		return out, nil
	}

	for i, p := range products {
		if p == nil {
			continue
		}
		cp := *p
		cp.SubcategoryDiscount = 0
		cp.CategoryDiscount = 0
		out[i] = &cp
	}

	slugs := collectCategorySlugs(out)
	if len(slugs) == 0 || a.lookup == nil {
		return out, nil
	}

	found, err := a.lookup.DiscountsBySlugs(ctx, slugs)
	if err != nil {
		return nil, fmt.Errorf("failed to load category discounts: %w", err)
	}

	discounts := make(map[string]float64, len(found))
	for slug, discount := range found {
		discounts[normalizeSlug(slug)] = ClampDiscount(discount)
	}

	for _, p := range out {
		if p == nil {
			continue
		}
		discount := resolveDiscount(discounts, p.Subcategory, p.Category)
		p.SubcategoryDiscount = discount
		p.CategoryDiscount = discount
	}

	return out, nil
}

// AttachOne is Attach for a single product. A nil product yields nil.
func (a *DiscountAttacher) AttachOne(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product == nil {
		return nil, nil
	}
	out, err := a.Attach(ctx, []*models.Product{product})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func resolveDiscount(discounts map[string]float64, subcategory, category string) float64 {
	if slug := normalizeSlug(subcategory); slug != "" {
		if d, ok := discounts[slug]; ok {
			return d
		}
	}
	if slug := normalizeSlug(category); slug != "" {
		if d, ok := discounts[slug]; ok {
			return d
		}
	}
	return 0
}

func collectCategorySlugs(products []*models.Product) []string {
	seen := make(map[string]struct{})
	slugs := make([]string, 0)
	add := func(raw string) {
		slug := normalizeSlug(raw)
		if slug == "" {
			return
		}
		if _, ok := seen[slug]; ok {
			return
		}
		seen[slug] = struct{}{}
		slugs = append(slugs, slug)
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		add(p.Subcategory)
		add(p.Category)
	}
	return slugs
}

func normalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
