package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// PriceRange is the display range of a product across its variants.
type PriceRange struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	MRPMin float64 `json:"mrpMin"`
	MRPMax float64 `json:"mrpMax"`
}

// NormalizeDisplayPriceRange reduces variant pricing to a display range. The
// base pricing supplies the range when no variant carries a positive price.
func NormalizeDisplayPriceRange(variants []Pricing, base Pricing) PriceRange {
	finals := make([]float64, 0, len(variants))
	mrps := make([]float64, 0, len(variants))
	for _, v := range variants {
		if final, ok := positive(v.FinalPrice); ok {
			finals = append(finals, final)
		}
		if mrp, ok := positive(v.MRP); ok {
			mrps = append(mrps, mrp)
		}
	}

	if len(finals) == 0 {
		mrps = mrps[:0]
		if final, ok := positive(base.FinalPrice); ok {
			finals = append(finals, final)
		}
		if mrp, ok := positive(base.MRP); ok {
			mrps = append(mrps, mrp)
		}
	}

	var r PriceRange
	r.Min, r.Max = bounds(finals)
	r.MRPMin, r.MRPMax = bounds(mrps)
	return r
}

// IsRange reports whether the sale prices span more than one value.
func (r PriceRange) IsRange() bool {
	return r.Max > r.Min
}

// HasDiscount reports whether any price sits below its MRP.
func (r PriceRange) HasDiscount() bool {
	return r.MRPMax > r.Max || r.MRPMin > r.Min
}

// Label renders the range for storefront display, e.g. "₹450" or "₹450 – ₹900".
func (r PriceRange) Label(currency string) string {
	symbol := CurrencySymbol(currency)
	if r.Max <= 0 {
		return ""
	}
	if !r.IsRange() {
		return symbol + FormatAmount(r.Min)
	}
	return fmt.Sprintf("%s%s – %s%s", symbol, FormatAmount(r.Min), symbol, FormatAmount(r.Max))
}

// CurrencySymbol maps an ISO currency code to its display symbol.
func CurrencySymbol(currency string) string {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "INR", "":
		return "₹"
	case "USD":
		return "$"
	case "EUR":
		return "€"
	default:
		return strings.ToUpper(strings.TrimSpace(currency)) + " "
	}
}

// FormatAmount prints whole amounts without decimals and everything else with
// two decimal places.
func FormatAmount(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.StringFixed(2)
}

func bounds(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
