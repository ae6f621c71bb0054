package services

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExtractOrderItemOptions(t *testing.T) {
	t.Parallel()

	yes, no := true, false

	tests := []struct {
		name string
		item map[string]any
		want OrderItemOptions
	}{
		{
			name: "direct fields with numeric qr flag",
			item: map[string]any{"size": "A3", "material": "Vinyl", "hasQr": 1},
			want: OrderItemOptions{Size: "A3", Material: "Vinyl", HasQR: &yes, QROption: QRLabelWith},
		},
		{
			name: "selected options fallback",
			item: map[string]any{"selectedOptions": map[string]any{"size": "A3"}},
			want: OrderItemOptions{Size: "A3"},
		},
		{
			name: "qr text token",
			item: map[string]any{"qr": "with qr"},
			want: OrderItemOptions{HasQR: &yes, QROption: QRLabelWith},
		},
		{
			name: "qr false token is kept",
			item: map[string]any{"withQr": " NO "},
			want: OrderItemOptions{HasQR: &no, QROption: QRLabelWithout},
		},
		{
			name: "alias priority within a source",
			item: map[string]any{"sizeOption": "A4", "selectedSize": "A2"},
			want: OrderItemOptions{Size: "A2"},
		},
		{
			name: "item wins over selected options",
			item: map[string]any{
				"dimension":       "12x18",
				"selectedOptions": map[string]any{"size": "A3", "language": "Hindi"},
			},
			want: OrderItemOptions{Size: "12x18", Language: "Hindi"},
		},
		{
			name: "blank values are skipped",
			item: map[string]any{"size": "  ", "selectedSize": "A5", "layout": ""},
			want: OrderItemOptions{Size: "A5"},
		},
		{
			name: "numbers are stringified",
			item: map[string]any{"size": 24, "layoutType": json.Number("2")},
			want: OrderItemOptions{Size: "24", Layout: "2"},
		},
		{
			name: "free text qr label",
			item: map[string]any{"qr": "maybe", "qrLabel": "QR on bottom right"},
			want: OrderItemOptions{QROption: "QR on bottom right"},
		},
		{
			name: "qr label that reads as a flag",
			item: map[string]any{"selectedOptions": map[string]any{"qrOption": "Without QR"}},
			want: OrderItemOptions{HasQR: &no, QROption: "Without QR"},
		},
		{
			name: "unrelated shapes resolve to nothing",
			item: map[string]any{"size": map[string]any{"w": 1}, "selectedOptions": "A3", "qr": nil},
			want: OrderItemOptions{},
		},
		{
			name: "nil item",
			item: nil,
			want: OrderItemOptions{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ExtractOrderItemOptions(tc.item)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractOrderItemOptions() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestOrderItemOptionEntries(t *testing.T) {
	t.Parallel()

	got := OrderItemOptionEntries(map[string]any{
		"language": "English",
		"size":     "A3",
		"qr":       true,
	})
	want := []OptionEntry{
		{Label: "Language", Value: "English"},
		{Label: "Size", Value: "A3"},
		{Label: "QR", Value: QRLabelWith},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OrderItemOptionEntries() = %+v, want %+v", got, want)
	}

	if entries := OrderItemOptionEntries(map[string]any{}); len(entries) != 0 {
		t.Fatalf("expected no entries, got %+v", entries)
	}
}

func TestCoerceBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value  any
		want   bool
		wantOK bool
	}{
		{value: true, want: true, wantOK: true},
		{value: "Y", want: true, wantOK: true},
		{value: "With", want: true, wantOK: true},
		{value: "without", want: false, wantOK: true},
		{value: "0", want: false, wantOK: true},
		{value: 0, want: false, wantOK: true},
		{value: 2.0, want: true, wantOK: true},
		{value: "perhaps", wantOK: false},
		{value: nil, wantOK: false},
		{value: []string{"yes"}, wantOK: false},
	}

	for _, tc := range tests {
		got, ok := CoerceBool(tc.value)
		if ok != tc.wantOK || (ok && got != tc.want) {
			t.Errorf("CoerceBool(%v) = (%v, %v), want (%v, %v)", tc.value, got, ok, tc.want, tc.wantOK)
		}
	}
}
