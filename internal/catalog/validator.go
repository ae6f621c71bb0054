package catalog

// Package catalog provides catalog file validation.

import (
	"fmt"
	"regexp"
	"strings"
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// IsValidSlug reports whether slug is lowercase words joined by single hyphens.
func IsValidSlug(slug string) bool {
	return slugRegex.MatchString(slug)
}

func (v *Validator) Validate(file *CatalogFile) error {
	if file == nil {
		return fmt.Errorf("catalog is required")
	}

	categories := make(map[string]CategoryConfig, len(file.Categories))
	for i, category := range file.Categories {
		if err := v.validateCategory(&category); err != nil {
			return fmt.Errorf("category %d validation failed: %w", i, err)
		}
		if _, exists := categories[category.Slug]; exists {
			return fmt.Errorf("duplicate category slug: %s", category.Slug)
		}
		categories[category.Slug] = category
	}

	for _, category := range file.Categories {
		if category.Parent == "" {
			continue
		}
		parent, ok := categories[category.Parent]
		if !ok {
			return fmt.Errorf("category %s references unknown parent %s", category.Slug, category.Parent)
		}
		if parent.Parent != "" {
			return fmt.Errorf("category %s is nested more than one level deep", category.Slug)
		}
	}

	if len(file.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	slugs := make(map[string]bool)
	for i, product := range file.Products {
		if err := v.validateProduct(&product, categories); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}

		if slugs[product.Slug] {
			return fmt.Errorf("duplicate product slug: %s", product.Slug)
		}
		slugs[product.Slug] = true
	}

	return nil
}

func (v *Validator) validateCategory(category *CategoryConfig) error {
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("category name is required")
	}
	if !IsValidSlug(category.Slug) {
		return fmt.Errorf("category slug %q is invalid", category.Slug)
	}
	if category.Parent == category.Slug {
		return fmt.Errorf("category %s cannot be its own parent", category.Slug)
	}
	if err := validateDiscount(category.Discount); err != nil {
		return err
	}
	return nil
}

func (v *Validator) validateProduct(product *ProductConfig, categories map[string]CategoryConfig) error {
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product name is required")
	}

	if !IsValidSlug(product.Slug) {
		return fmt.Errorf("product slug %q is invalid", product.Slug)
	}

	if !product.Type.Valid() {
		return fmt.Errorf("product type %q is not supported", product.Type)
	}

	category, ok := categories[product.Category]
	if !ok {
		return fmt.Errorf("unknown category: %s", product.Category)
	}
	if category.Parent != "" {
		return fmt.Errorf("category %s is a subcategory", product.Category)
	}
	if product.Subcategory != "" {
		sub, ok := categories[product.Subcategory]
		if !ok {
			return fmt.Errorf("unknown subcategory: %s", product.Subcategory)
		}
		if sub.Parent != product.Category {
			return fmt.Errorf("subcategory %s does not belong to %s", product.Subcategory, product.Category)
		}
	}

	if product.Price <= 0 && len(product.Variants) == 0 {
		return fmt.Errorf("product price must be positive")
	}
	if product.Price < 0 || product.MRP < 0 || product.SalePrice < 0 {
		return fmt.Errorf("product prices cannot be negative")
	}
	if err := validateDiscount(product.Discount); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, variant := range product.Variants {
		if variant.Price <= 0 {
			return fmt.Errorf("variant %d price must be positive", i)
		}
		if variant.SalePrice < 0 {
			return fmt.Errorf("variant %d sale price cannot be negative", i)
		}
		key := variantKey(variant)
		if seen[key] {
			return fmt.Errorf("duplicate variant: %s", key)
		}
		seen[key] = true
	}

	return nil
}

func validateDiscount(discount float64) error {
	if discount < 0 || discount > 100 {
		return fmt.Errorf("discount must be between 0 and 100")
	}
	return nil
}

func variantKey(variant VariantConfig) string {
	qr := "without-qr"
	if variant.QR {
		qr = "with-qr"
	}
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(variant.Layout),
		strings.TrimSpace(variant.Material),
		strings.TrimSpace(variant.Size),
		qr,
	}, "/"))
}
