package services

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/printstore/printstore/internal/catalog"
)

const (
	QRLabelWith    = "With QR"
	QRLabelWithout = "Without QR"
)

// OrderItemOptions is the configuration a customer picked for a cart line.
// Empty strings and a nil HasQR mean the option was not found.
type OrderItemOptions struct {
	Language string `json:"language,omitempty"`
	Size     string `json:"size,omitempty"`
	Material string `json:"material,omitempty"`
	Layout   string `json:"layout,omitempty"`
	HasQR    *bool  `json:"hasQr,omitempty"`
	QROption string `json:"qrOption,omitempty"`
}

// OptionEntry is one "Label: Value" row of an order item summary.
type OptionEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Storefront versions have used several key names for the same option. Keys
// are listed in priority order.
var (
	languageKeys = []string{"language", "selectedLanguage", "languageOption", "languageSelection", "lang"}
	sizeKeys     = []string{"size", "selectedSize", "sizeOption", "sizeSelection", "dimension"}
	materialKeys = []string{"material", "selectedMaterial", "materialOption", "materialSelection", "materialType"}
	layoutKeys   = []string{"layout", "selectedLayout", "layoutOption", "layoutSelection", "layoutType"}
	qrFlagKeys   = []string{"qr", "hasQr", "withQr", "qrEnabled"}
	qrLabelKeys  = []string{"qrOption", "qrLabel", "qrSelection", "qrText"}
)

type optionSource func(item map[string]any) map[string]any

var optionSources = []optionSource{
	func(item map[string]any) map[string]any { return item },
	func(item map[string]any) map[string]any {
		nested, _ := item["selectedOptions"].(map[string]any)
		return nested
	},
}

// ExtractOrderItemOptions reads the selected language, size, material, layout
// and QR choice of a cart or order line item, looking at the item first and
// its selectedOptions second.
func ExtractOrderItemOptions(item map[string]any) OrderItemOptions {
	var opts OrderItemOptions
	if item == nil {
		return opts
	}

	opts.Language = firstText(item, languageKeys)
	opts.Size = firstText(item, sizeKeys)
	opts.Material = firstText(item, materialKeys)
	opts.Layout = firstText(item, layoutKeys)

	if hasQR, ok := firstBool(item, qrFlagKeys); ok {
		opts.HasQR = &hasQR
		opts.QROption = qrLabel(hasQR)
		return opts
	}

	if label := firstText(item, qrLabelKeys); label != "" {
		opts.QROption = label
		if hasQR, ok := CoerceBool(label); ok {
			opts.HasQR = &hasQR
		}
	}

	return opts
}

// OrderItemOptionEntries lists the resolved options of an item for display,
// skipping anything that was not found.
func OrderItemOptionEntries(item map[string]any) []OptionEntry {
	opts := ExtractOrderItemOptions(item)
	return opts.Entries()
}

func (o OrderItemOptions) Entries() []OptionEntry {
	candidates := []OptionEntry{
		{Label: "Language", Value: o.Language},
		{Label: "Size", Value: o.Size},
		{Label: "Material", Value: o.Material},
		{Label: "Layout", Value: o.Layout},
		{Label: "QR", Value: o.QROption},
	}

	entries := make([]OptionEntry, 0, len(candidates))
	for _, entry := range candidates {
		if strings.TrimSpace(entry.Value) == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// Selection maps the options onto a pricing matrix lookup.
func (o OrderItemOptions) Selection() catalog.LineSelection {
	return catalog.LineSelection{
		Layout:   o.Layout,
		Material: o.Material,
		Size:     o.Size,
		HasQR:    o.HasQR,
	}
}

// CoerceBool interprets yes/no style values. The boolean result is only
// meaningful when ok is true.
func CoerceBool(value any) (result bool, ok bool) {
	switch v := value.(type) {
	case nil:
		return false, false
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "y", "1", "with qr", "with":
			return true, true
		case "false", "no", "n", "0", "without qr", "without":
			return false, true
		}
		return false, false
	}

	if !isNumeric(value) {
		return false, false
	}
	n, isNumber := catalog.ToNumber(value)
	if !isNumber {
		return false, false
	}
	return n != 0, true
}

func qrLabel(hasQR bool) string {
	if hasQR {
		return QRLabelWith
	}
	return QRLabelWithout
}

func firstText(item map[string]any, keys []string) string {
	for _, source := range optionSources {
		values := source(item)
		if values == nil {
			continue
		}
		for _, key := range keys {
			if text, ok := optionText(values[key]); ok {
				return text
			}
		}
	}
	return ""
}

func firstBool(item map[string]any, keys []string) (bool, bool) {
	for _, source := range optionSources {
		values := source(item)
		if values == nil {
			continue
		}
		for _, key := range keys {
			if b, ok := CoerceBool(values[key]); ok {
				return b, true
			}
		}
	}
	return false, false
}

// optionText accepts non-blank strings and finite numbers.
func optionText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		trimmed := strings.TrimSpace(v)
		return trimmed, trimmed != ""
	case json.Number:
		n, ok := catalog.ToNumber(v)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}

	if !isNumeric(value) {
		return "", false
	}
	if _, ok := catalog.ToNumber(value); !ok {
		return "", false
	}
	text, err := cast.ToStringE(value)
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}

func isNumeric(value any) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return true
	default:
		return false
	}
}
