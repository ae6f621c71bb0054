package catalog

// Package catalog provides price calculation functionality.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/printstore/printstore/internal/models"
)

// MaxLineQuantity caps the units of one cart line.
const MaxLineQuantity = 1000

var (
	ErrProductInactive = errors.New("product is not active")
	ErrVariantNotFound = errors.New("no price matches the selected options")
	ErrAmbiguousOption = errors.New("selected options match more than one price")
	ErrUnpriced        = errors.New("product has no price")
	ErrInvalidQuantity = fmt.Errorf("quantity must be a whole number between 1 and %d", MaxLineQuantity)
)

// LineSelection is the option choice of a cart line used to pick a pricing
// matrix row. Empty fields and a nil HasQR match any row.
type LineSelection struct {
	Layout   string
	Material string
	Size     string
	HasQR    *bool
}

// LinePrice is a priced cart line in paise.
type LinePrice struct {
	Pricing    Pricing
	Variant    *models.PriceMatrixRow
	Quantity   int
	UnitPaise  int64
	MRPPaise   int64
	TotalPaise int64
}

type Pricer struct{}

func NewPricer() *Pricer {
	return &Pricer{}
}

// PriceLine prices quantity units of product. Products with a pricing matrix
// are priced from the row matching sel, others from the product itself.
func (p *Pricer) PriceLine(product *models.Product, matrix []models.PriceMatrixRow, sel LineSelection, quantity int) (LinePrice, error) {
	if product == nil {
		return LinePrice{}, fmt.Errorf("product is required")
	}
	if !product.Active {
		return LinePrice{}, fmt.Errorf("%w: %s", ErrProductInactive, product.Slug)
	}
	if quantity < 1 || quantity > MaxLineQuantity {
		return LinePrice{}, fmt.Errorf("quantity must be between 1 and %d", MaxLineQuantity)
	}

	var (
		pricing Pricing
		variant *models.PriceMatrixRow
	)
	if len(matrix) > 0 {
		row, err := p.matchVariant(matrix, sel)
		if err != nil {
			return LinePrice{}, fmt.Errorf("%w: %s", err, product.Slug)
		}
		variant = row
		pricing = DeriveVariantPricing(
			VariantPrice{Price: row.Price, SalePrice: row.SalePrice},
			ProductPricingContext{Discount: product.Discount, Type: ProductType(product.Type)},
		)
	} else {
		pricing = DeriveProductPricing(PriceInputFromProduct(product))
	}

	// Zero-priced lines are never sold, matching their absence from the
	// display range.
	if pricing.FinalPrice <= 0 {
		return LinePrice{}, fmt.Errorf("%w: %s", ErrUnpriced, product.Slug)
	}

	unit := ToPaise(pricing.FinalPrice)
	return LinePrice{
		Pricing:    pricing,
		Variant:    variant,
		Quantity:   quantity,
		UnitPaise:  unit,
		MRPPaise:   ToPaise(pricing.MRP),
		TotalPaise: unit * int64(quantity),
	}, nil
}

// ShippingPaise returns the flat shipping rate, waived once the subtotal
// reaches freeAbove. A zero freeAbove never waives shipping.
func (p *Pricer) ShippingPaise(subtotal, flatRate, freeAbove int64) int64 {
	if flatRate <= 0 {
		return 0
	}
	if freeAbove > 0 && subtotal >= freeAbove {
		return 0
	}
	return flatRate
}

func (p *Pricer) matchVariant(matrix []models.PriceMatrixRow, sel LineSelection) (*models.PriceMatrixRow, error) {
	var match *models.PriceMatrixRow
	for i := range matrix {
		row := &matrix[i]
		if !optionMatches(sel.Layout, row.Layout) ||
			!optionMatches(sel.Material, row.Material) ||
			!optionMatches(sel.Size, row.Size) {
			continue
		}
		if sel.HasQR != nil && *sel.HasQR != row.HasQR {
			continue
		}
		if match != nil {
			return nil, ErrAmbiguousOption
		}
		match = row
	}
	if match == nil {
		return nil, ErrVariantNotFound
	}
	return match, nil
}

// PriceInputFromProduct maps a stored product onto the pricing view.
func PriceInputFromProduct(product *models.Product) PriceInput {
	if product == nil {
		return PriceInput{}
	}
	return PriceInput{
		MRP:       product.MRP,
		Price:     product.Price,
		SalePrice: product.SalePrice,
		Discount:  product.Discount,
		Type:      ProductType(product.Type),
	}
}

// ParseQuantity reads a cart quantity. An absent or blank value means one
// unit; anything else must be a whole number within [1, MaxLineQuantity].
func ParseQuantity(value any) (int, error) {
	if value == nil {
		return 1, nil
	}
	if text, ok := value.(string); ok && strings.TrimSpace(text) == "" {
		return 1, nil
	}
	if _, ok := value.(bool); ok {
		return 0, ErrInvalidQuantity
	}
	n, ok := ToNumber(value)
	if !ok || n < 1 || n > MaxLineQuantity || n != float64(int(n)) {
		return 0, ErrInvalidQuantity
	}
	return int(n), nil
}

// ToPaise converts a rupee amount to paise, rounding to the nearest paisa.
func ToPaise(amount float64) int64 {
	if !isFinite(amount) {
		return 0
	}
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

// FromPaise converts paise back to rupees.
func FromPaise(paise int64) float64 {
	return decimal.NewFromInt(paise).Shift(-2).InexactFloat64()
}

func optionMatches(selected, value string) bool {
	selected = strings.TrimSpace(selected)
	if selected == "" {
		return true
	}
	return strings.EqualFold(selected, strings.TrimSpace(value))
}
