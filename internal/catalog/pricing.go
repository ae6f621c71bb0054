package catalog

import (
	"github.com/shopspring/decimal"
)

// ProductType is the catalog placement tag of a product. Only TypeDiscounted
// lets the percentage discount field take effect.
type ProductType string

const (
	TypeFeatured    ProductType = "featured"
	TypeTopSelling  ProductType = "top-selling"
	TypeBestSelling ProductType = "best-selling"
	TypeDiscounted  ProductType = "discounted"
)

func (t ProductType) Valid() bool {
	switch t {
	case TypeFeatured, TypeTopSelling, TypeBestSelling, TypeDiscounted:
		return true
	default:
		return false
	}
}

// PriceInput is the pricing view of a product. Zero, negative and non-finite
// amounts are treated as absent.
type PriceInput struct {
	MRP       float64
	Price     float64
	SalePrice float64
	Discount  float64
	Type      ProductType
}

// Pricing is the canonical price of a product or variant.
type Pricing struct {
	FinalPrice         float64 `json:"finalPrice"`
	MRP                float64 `json:"mrp"`
	DiscountPercentage int     `json:"discountPercentage"`
	DiscountAmount     float64 `json:"discountAmount"`
}

// VariantPrice is a single price point of a pricing matrix.
type VariantPrice struct {
	Price     float64
	SalePrice float64
}

// ProductPricingContext carries the parent product fields a variant inherits.
type ProductPricingContext struct {
	Discount float64
	Type     ProductType
}

var hundred = decimal.NewFromInt(100)

// DeriveProductPricing resolves the sale price, MRP and discount of a product.
// An explicit sale price always wins over a percentage discount, and a sale
// price above MRP is passed through as is.
func DeriveProductPricing(in PriceInput) Pricing {
	baseMRP := normalizeMRP(in.MRP, in.Price)
	salePrice, hasSalePrice := positive(in.SalePrice)

	discount := 0.0
	if in.Type == TypeDiscounted {
		discount = ClampDiscount(in.Discount)
	}

	mrp := decimal.NewFromFloat(baseMRP)
	var final decimal.Decimal
	var percentage int

	switch {
	case hasSalePrice:
		final = decimal.NewFromFloat(salePrice)
		switch {
		case baseMRP > salePrice && baseMRP > 0:
			percentage = int(mrp.Sub(final).Div(mrp).Mul(hundred).Round(0).IntPart())
		case discount > 0:
			percentage = roundPercent(discount)
		}
	case discount > 0 && baseMRP > 0:
		d := decimal.NewFromFloat(discount)
		final = mrp.Sub(mrp.Mul(d).Div(hundred)).Round(2)
		if !final.IsPositive() {
			final = decimal.Zero
		}
		percentage = roundPercent(discount)
	default:
		final = mrp
	}

	amount := mrp.Sub(final)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Pricing{
		FinalPrice:         final.InexactFloat64(),
		MRP:                baseMRP,
		DiscountPercentage: percentage,
		DiscountAmount:     amount.InexactFloat64(),
	}
}

// DeriveVariantPricing prices a pricing matrix row. The row price anchors the
// MRP while the discount percentage and type come from the parent product.
func DeriveVariantPricing(v VariantPrice, product ProductPricingContext) Pricing {
	variantMRP := normalizeMRP(v.Price, v.Price)
	return DeriveProductPricing(PriceInput{
		MRP:       variantMRP,
		Price:     variantMRP,
		SalePrice: v.SalePrice,
		Discount:  product.Discount,
		Type:      product.Type,
	})
}

func normalizeMRP(mrp, price float64) float64 {
	if v, ok := positive(mrp); ok {
		return v
	}
	if v, ok := positive(price); ok {
		return v
	}
	return 0
}

// roundPercent rounds a clamped discount to a whole percentage.
func roundPercent(discount float64) int {
	return int(decimal.NewFromFloat(discount).Round(0).IntPart())
}
