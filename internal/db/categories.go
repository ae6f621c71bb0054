package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoryStore struct {
	pool *pgxpool.Pool
}

func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

const categoryColumns = `id, name, slug, COALESCE(parent_slug, ''), COALESCE(discount, 0)::float8, created_at`

func (s *CategoryStore) List(ctx context.Context) ([]*Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY parent_slug NULLS FIRST, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (s *CategoryStore) GetBySlug(ctx context.Context, slug string) (*Category, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	return scanCategory(row)
}

func (s *CategoryStore) Upsert(ctx context.Context, category *Category) error {
	parent := pgtype.Text{String: category.ParentSlug, Valid: category.ParentSlug != ""}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug, parent_slug, discount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE
		SET name = EXCLUDED.name, parent_slug = EXCLUDED.parent_slug, discount = EXCLUDED.discount
		RETURNING id, created_at`,
		category.Name, category.Slug, parent, category.Discount,
	).Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", category.Slug, err)
	}
	return nil
}

// DiscountsBySlugs loads the discount of every category or subcategory whose
// slug is in slugs with one query. Rows without a discount are left out.
func (s *CategoryStore) DiscountsBySlugs(ctx context.Context, slugs []string) (map[string]float64, error) {
	discounts := make(map[string]float64, len(slugs))
	if len(slugs) == 0 {
		return discounts, nil
	}

	rows, err := s.pool.Query(ctx, `SELECT slug, discount::float8 FROM categories WHERE slug = ANY($1)`, slugs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var slug string
		var discount pgtype.Float8
		if err := rows.Scan(&slug, &discount); err != nil {
			return nil, err
		}
		if !discount.Valid {
			continue
		}
		discounts[strings.ToLower(slug)] = discount.Float64
	}
	return discounts, rows.Err()
}

func scanCategory(row pgx.Row) (*Category, error) {
	var category Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.ParentSlug,
		&category.Discount,
		&category.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}
