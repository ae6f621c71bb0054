package catalog

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// ToNumber coerces a loosely typed value into a finite number. The boolean is
// false for nil, blank strings, values that are not numeric and non-finite
// results.
func ToNumber(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case string:
		value = strings.TrimSpace(v)
	case json.Number:
		value = strings.TrimSpace(v.String())
	}
	if value == "" {
		return 0, false
	}

	n, err := cast.ToFloat64E(value)
	if err != nil || !isFinite(n) {
		return 0, false
	}
	return n, true
}

// ClampDiscount returns a discount percentage within [0, 100]. Anything that
// is not a number is treated as no discount.
func ClampDiscount(value any) float64 {
	n, ok := ToNumber(value)
	if !ok {
		return 0
	}
	return math.Min(math.Max(n, 0), 100)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// positive reports v when it is a finite number above zero.
func positive(v float64) (float64, bool) {
	if !isFinite(v) || v <= 0 {
		return 0, false
	}
	return v, true
}
