package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/printstore/printstore/internal/models"
)

type fakeDiscountLookup struct {
	discounts map[string]float64
	err       error
	calls     int
	slugs     []string
}

func (f *fakeDiscountLookup) DiscountsBySlugs(_ context.Context, slugs []string) (map[string]float64, error) {
	f.calls++
	f.slugs = append([]string(nil), slugs...)
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64)
	for _, slug := range slugs {
		if d, ok := f.discounts[slug]; ok {
			out[slug] = d
		}
	}
	return out, nil
}

func TestDiscountAttacher_Attach(t *testing.T) {
	t.Parallel()

	lookup := &fakeDiscountLookup{discounts: map[string]float64{
		"fire-safety":   10,
		"exit-signs":    25,
		"ppe":           5,
		"zero-override": 0,
		"over-limit":    140,
	}}
	attacher := NewDiscountAttacher(lookup)

	products := []*models.Product{
		{Slug: "exit-left", Category: "fire-safety", Subcategory: "exit-signs"},
		nil,
		{Slug: "extinguisher", Category: "fire-safety", Subcategory: "unknown-sub"},
		{Slug: "helmet", Category: "ppe"},
		{Slug: "orphan", Category: "missing"},
		{Slug: "zero", Category: "fire-safety", Subcategory: "zero-override"},
		{Slug: "limit", Category: "over-limit"},
	}

	got, err := attacher.Attach(context.Background(), products)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != len(products) {
		t.Fatalf("expected %d products, got %d", len(products), len(got))
	}
	if lookup.calls != 1 {
		t.Fatalf("expected a single batched lookup, got %d", lookup.calls)
	}

	want := []float64{25, 0, 10, 5, 0, 0, 100}
	for i, p := range got {
		if products[i] == nil {
			if p != nil {
				t.Fatalf("position %d: expected nil, got %+v", i, p)
			}
			continue
		}
		if p.Slug != products[i].Slug {
			t.Fatalf("position %d: expected %s, got %s", i, products[i].Slug, p.Slug)
		}
		if p.SubcategoryDiscount != want[i] || p.CategoryDiscount != want[i] {
			t.Fatalf("%s: got discounts %v/%v, want %v", p.Slug, p.SubcategoryDiscount, p.CategoryDiscount, want[i])
		}
	}

	if products[0].SubcategoryDiscount != 0 {
		t.Fatal("input product must not be mutated")
	}
}

func TestDiscountAttacher_CollectsDistinctSlugs(t *testing.T) {
	t.Parallel()

	lookup := &fakeDiscountLookup{}
	attacher := NewDiscountAttacher(lookup)

	_, err := attacher.Attach(context.Background(), []*models.Product{
		{Category: "fire-safety", Subcategory: "exit-signs"},
		{Category: "Fire-Safety ", Subcategory: "exit-signs"},
		{Category: "ppe"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"exit-signs", "fire-safety", "ppe"}
	if len(lookup.slugs) != len(want) {
		t.Fatalf("expected slugs %v, got %v", want, lookup.slugs)
	}
	for i := range want {
		if lookup.slugs[i] != want[i] {
			t.Fatalf("expected slugs %v, got %v", want, lookup.slugs)
		}
	}
}

func TestDiscountAttacher_EmptyAndNil(t *testing.T) {
	t.Parallel()

	lookup := &fakeDiscountLookup{}
	attacher := NewDiscountAttacher(lookup)

	got, err := attacher.Attach(context.Background(), []*models.Product{})
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}

	one, err := attacher.AttachOne(context.Background(), nil)
	if err != nil || one != nil {
		t.Fatalf("expected nil result, got %v, %v", one, err)
	}

	onlyNil, err := attacher.Attach(context.Background(), []*models.Product{nil, nil})
	if err != nil || len(onlyNil) != 2 || onlyNil[0] != nil || onlyNil[1] != nil {
		t.Fatalf("expected two nil entries, got %v, %v", onlyNil, err)
	}

	if lookup.calls != 0 {
		t.Fatalf("expected no lookups, got %d", lookup.calls)
	}
}

func TestDiscountAttacher_LookupFailurePropagates(t *testing.T) {
	t.Parallel()

	lookupErr := errors.New("connection refused")
	attacher := NewDiscountAttacher(&fakeDiscountLookup{err: lookupErr})

	_, err := attacher.AttachOne(context.Background(), &models.Product{Category: "ppe"})
	if !errors.Is(err, lookupErr) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
