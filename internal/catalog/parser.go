package catalog

// Package catalog provides catalog.yaml parsing functionality.

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the seed format used to load categories, products and their
// pricing matrices.
type CatalogFile struct {
	Currency   string           `yaml:"currency"`
	Categories []CategoryConfig `yaml:"categories"`
	Products   []ProductConfig  `yaml:"products"`
}

type CategoryConfig struct {
	Name     string  `yaml:"name"`
	Slug     string  `yaml:"slug"`
	Parent   string  `yaml:"parent"`
	Discount float64 `yaml:"discount"`
}

type ProductConfig struct {
	Name        string          `yaml:"name"`
	Slug        string          `yaml:"slug"`
	Description string          `yaml:"description"`
	Category    string          `yaml:"category"`
	Subcategory string          `yaml:"subcategory"`
	Type        ProductType     `yaml:"type"`
	Price       float64         `yaml:"price"`
	MRP         float64         `yaml:"mrp"`
	SalePrice   float64         `yaml:"sale_price"`
	Discount    float64         `yaml:"discount"`
	ImageURL    string          `yaml:"image_url"`
	Active      *bool           `yaml:"active"`
	Variants    []VariantConfig `yaml:"variants"`
}

type VariantConfig struct {
	Layout    string  `yaml:"layout"`
	Material  string  `yaml:"material"`
	Size      string  `yaml:"size"`
	QR        bool    `yaml:"qr"`
	Price     float64 `yaml:"price"`
	SalePrice float64 `yaml:"sale_price"`
}

// IsActive defaults to true when the field is omitted.
func (p ProductConfig) IsActive() bool {
	return p.Active == nil || *p.Active
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*CatalogFile, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &file, nil
}

func (p *Parser) ParseFromString(content string) (*CatalogFile, error) {
	return p.Parse([]byte(content))
}
