package catalog

import (
	"encoding/json"
	"math"
	"testing"
)

func TestToNumber(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		value  any
		want   float64
		wantOK bool
	}{
		{name: "nil", value: nil},
		{name: "empty string", value: ""},
		{name: "blank string", value: "   "},
		{name: "not a number", value: "abc"},
		{name: "infinity", value: math.Inf(1)},
		{name: "nan string", value: "NaN"},
		{name: "float", value: 12.5, want: 12.5, wantOK: true},
		{name: "int", value: 7, want: 7, wantOK: true},
		{name: "numeric string", value: " 40 ", want: 40, wantOK: true},
		{name: "json number", value: json.Number("19.99"), want: 19.99, wantOK: true},
		{name: "bool", value: true, want: 1, wantOK: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := ToNumber(tc.value)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("ToNumber(%v) = (%v, %v), want (%v, %v)", tc.value, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestClampDiscount(t *testing.T) {
	t.Parallel()

	values := []any{nil, "", "x", -10, 0, 35.5, "60", 100, 250, math.NaN(), math.Inf(-1)}
	for _, value := range values {
		got := ClampDiscount(value)
		if got < 0 || got > 100 {
			t.Fatalf("ClampDiscount(%v) = %v, out of range", value, got)
		}
		if again := ClampDiscount(got); again != got {
			t.Fatalf("ClampDiscount not idempotent for %v: %v then %v", value, got, again)
		}
	}

	if got := ClampDiscount(250); got != 100 {
		t.Fatalf("ClampDiscount(250) = %v, want 100", got)
	}
	if got := ClampDiscount("60"); got != 60 {
		t.Fatalf("ClampDiscount(\"60\") = %v, want 60", got)
	}
}
