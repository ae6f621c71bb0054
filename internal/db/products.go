package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductStore struct {
	pool *pgxpool.Pool
}

func NewProductStore(pool *pgxpool.Pool) *ProductStore {
	return &ProductStore{pool: pool}
}

// ProductFilter narrows product listings. Empty fields match everything.
type ProductFilter struct {
	Category    string
	Subcategory string
	Type        string
	ActiveOnly  bool
	Limit       int
	Offset      int
}

const productColumns = `id, name, slug, description, category_slug, COALESCE(subcategory_slug, ''), type,
	price::float8, COALESCE(mrp, 0)::float8, COALESCE(sale_price, 0)::float8, COALESCE(discount, 0)::float8,
	image_url, active, created_at, updated_at`

func (s *ProductStore) List(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	var (
		conditions []string
		args       []any
	)
	addCondition := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}

	if filter.Category != "" {
		addCondition("category_slug = $%d", filter.Category)
	}
	if filter.Subcategory != "" {
		addCondition("subcategory_slug = $%d", filter.Subcategory)
	}
	if filter.Type != "" {
		addCondition("type = $%d", filter.Type)
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "active")
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, slug"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (s *ProductStore) GetBySlug(ctx context.Context, slug string) (*Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
	return scanProduct(row)
}

// ListByRefs loads every product matching one of ids or slugs in one query.
func (s *ProductStore) ListByRefs(ctx context.Context, ids []uuid.UUID, slugs []string) ([]*Product, error) {
	if len(ids) == 0 && len(slugs) == 0 {
		return []*Product{}, nil
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	if slugs == nil {
		slugs = []string{}
	}

	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) OR slug = ANY($2)`, ids, slugs)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

// PriceMatrices loads the pricing matrix rows of all productIDs in one query,
// keyed by product.
func (s *ProductStore) PriceMatrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]PriceMatrixRow, error) {
	matrices := make(map[uuid.UUID][]PriceMatrixRow, len(productIDs))
	if len(productIDs) == 0 {
		return matrices, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, layout, material, size, has_qr, price::float8, COALESCE(sale_price, 0)::float8
		FROM product_prices
		WHERE product_id = ANY($1)
		ORDER BY product_id, price, size, material, layout, has_qr`, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row PriceMatrixRow
		if err := rows.Scan(
			&row.ID,
			&row.ProductID,
			&row.Layout,
			&row.Material,
			&row.Size,
			&row.HasQR,
			&row.Price,
			&row.SalePrice,
		); err != nil {
			return nil, err
		}
		matrices[row.ProductID] = append(matrices[row.ProductID], row)
	}
	return matrices, rows.Err()
}

func (s *ProductStore) Upsert(ctx context.Context, product *Product) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (name, slug, description, category_slug, subcategory_slug, type,
			price, mrp, sale_price, discount, image_url, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name,
			description = EXCLUDED.description,
			category_slug = EXCLUDED.category_slug,
			subcategory_slug = EXCLUDED.subcategory_slug,
			type = EXCLUDED.type,
			price = EXCLUDED.price,
			mrp = EXCLUDED.mrp,
			sale_price = EXCLUDED.sale_price,
			discount = EXCLUDED.discount,
			image_url = EXCLUDED.image_url,
			active = EXCLUDED.active,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		product.Name,
		product.Slug,
		product.Description,
		product.Category,
		optionalText(product.Subcategory),
		product.Type,
		product.Price,
		optionalAmount(product.MRP),
		optionalAmount(product.SalePrice),
		optionalAmount(product.Discount),
		product.ImageURL,
		product.Active,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", product.Slug, err)
	}
	return nil
}

// ReplacePriceMatrix swaps the whole pricing matrix of a product atomically.
func (s *ProductStore) ReplacePriceMatrix(ctx context.Context, productID uuid.UUID, rows []PriceMatrixRow) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM product_prices WHERE product_id = $1`, productID); err != nil {
			return fmt.Errorf("failed to clear price matrix: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"product_prices"},
			[]string{"product_id", "layout", "material", "size", "has_qr", "price", "sale_price"},
			pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
				row := rows[i]
				return []any{productID, row.Layout, row.Material, row.Size, row.HasQR, row.Price, optionalAmount(row.SalePrice)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert price matrix: %w", err)
		}
		return nil
	})
}

func collectProducts(rows pgx.Rows) ([]*Product, error) {
	defer rows.Close()

	products := make([]*Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func scanProduct(row pgx.Row) (*Product, error) {
	var product Product
	if err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Slug,
		&product.Description,
		&product.Category,
		&product.Subcategory,
		&product.Type,
		&product.Price,
		&product.MRP,
		&product.SalePrice,
		&product.Discount,
		&product.ImageURL,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &product, nil
}

func optionalText(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}

func optionalAmount(value float64) pgtype.Float8 {
	return pgtype.Float8{Float64: value, Valid: value > 0}
}
