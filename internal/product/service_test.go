// AngelaMos | 2026
// service_test.go

package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ascendlabs/ascend-api/internal/config"
	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/upload"
)

type fakeRepo struct {
	Repository

	products  map[string]*Product
	files     map[string][]File
	slugs     map[string]bool
	purchases []Purchase
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products: make(map[string]*Product),
		files:    make(map[string][]File),
		slugs:    make(map[string]bool),
	}
}

func (f *fakeRepo) Create(_ context.Context, p *Product) error {
	if f.slugs[p.Slug] {
		return fmt.Errorf("slug %q: %w", p.Slug, core.ErrDuplicateKey)
	}
	f.products[p.ID] = p
	f.slugs[p.Slug] = true
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id, creatorID string) (*Product, error) {
	p, ok := f.products[id]
	if !ok || p.CreatorID != creatorID {
		return nil, fmt.Errorf("product %q: %w", id, core.ErrNotFound)
	}
	return p, nil
}

func (f *fakeRepo) GetPublicByIdentifier(
	_ context.Context,
	identifier string,
) (*Product, error) {
	for _, p := range f.products {
		if (p.ID == identifier || p.Slug == identifier) && p.Published {
			return p, nil
		}
	}
	return nil, fmt.Errorf("product %q: %w", identifier, core.ErrNotFound)
}

func (f *fakeRepo) IncrementViews(_ context.Context, id string) error {
	return nil
}

func (f *fakeRepo) Update(_ context.Context, p *Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	return f.slugs[slug], nil
}

func (f *fakeRepo) AddFile(_ context.Context, file *File) error {
	f.files[file.ProductID] = append(f.files[file.ProductID], *file)
	return nil
}

func (f *fakeRepo) ListFiles(_ context.Context, productID string) ([]File, error) {
	return f.files[productID], nil
}

func (f *fakeRepo) ListPurchasesByProduct(
	_ context.Context,
	productID string,
) ([]Purchase, error) {
	var out []Purchase
	for _, p := range f.purchases {
		if p.ProductID == productID {
			out = append(out, p)
		}
	}
	return out, nil
}

func newTestService(t *testing.T, repo *fakeRepo) *Service {
	t.Helper()

	store, err := upload.NewStore(config.UploadsConfig{
		BaseDir:          t.TempDir(),
		MaxFileSize:      1 << 20,
		MaxFilesPerBatch: 3,
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	return NewService(repo, store, slog.New(slog.DiscardHandler))
}

func price(v float64) *float64 { return &v }

func TestCreateProductDefaults(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	p, err := svc.Create(context.Background(), "creator-1", CreateProductRequest{
		Name:        "  Launch Checklist  ",
		Description: " 30 steps to ship ",
		Price:       price(9.99),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if p.Name != "Launch Checklist" {
		t.Errorf("Name = %q, want trimmed", p.Name)
	}
	if p.Description != "30 steps to ship" {
		t.Errorf("Description = %q, want trimmed", p.Description)
	}
	if p.Slug != "launch-checklist" {
		t.Errorf("Slug = %q", p.Slug)
	}
	if p.Category != CategoryOther {
		t.Errorf("Category = %q, want default other", p.Category)
	}
	if p.Type != TypeDigital {
		t.Errorf("Type = %q, want default digital", p.Type)
	}
	if p.Published {
		t.Error("new product is published, want draft")
	}
}

func TestCreateProductRejectsBadInput(t *testing.T) {
	svc := newTestService(t, newFakeRepo())

	tests := []struct {
		name string
		req  CreateProductRequest
	}{
		{"blank name", CreateProductRequest{Name: "  ", Price: price(5)}},
		{"unknown category", CreateProductRequest{
			Name:     "ok",
			Price:    price(5),
			Category: "nfts",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "creator-1", tt.req)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestCreateProductSlugCollision(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	req := CreateProductRequest{
		Name:        "Launch Checklist",
		Description: "v1",
		Price:       price(9.99),
	}

	first, err := svc.Create(context.Background(), "creator-1", req)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := svc.Create(context.Background(), "creator-2", req)
	if err != nil {
		t.Fatalf("Create() with colliding name error = %v", err)
	}
	third, err := svc.Create(context.Background(), "creator-3", req)
	if err != nil {
		t.Fatalf("Create() with colliding name error = %v", err)
	}

	if first.Slug != "launch-checklist" {
		t.Errorf("first slug = %q", first.Slug)
	}
	if second.Slug != "launch-checklist-2" {
		t.Errorf("second slug = %q, want launch-checklist-2", second.Slug)
	}
	if third.Slug != "launch-checklist-3" {
		t.Errorf("third slug = %q, want launch-checklist-3", third.Slug)
	}
}

func TestUpdateProductPartial(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	p, err := svc.Create(context.Background(), "creator-1", CreateProductRequest{
		Name:        "Original",
		Description: "original description",
		Price:       price(10),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newPrice := 25.0
	updated, err := svc.Update(context.Background(), p.ID, "creator-1", UpdateProductRequest{
		Price: &newPrice,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if updated.Price != 25 {
		t.Errorf("Price = %v, want 25", updated.Price)
	}
	if updated.Name != "Original" {
		t.Errorf("Name = %q, want untouched", updated.Name)
	}
	if updated.Description != "original description" {
		t.Errorf("Description = %q, want untouched", updated.Description)
	}
}

func TestUpdateProductOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	p, _ := svc.Create(context.Background(), "creator-1", CreateProductRequest{
		Name:        "Mine",
		Description: "d",
		Price:       price(10),
	})

	newName := "Stolen"
	_, err := svc.Update(context.Background(), p.ID, "creator-2", UpdateProductRequest{
		Name: &newName,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for foreign product", err)
	}
}

func TestGetPublicCountsView(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	p, _ := svc.Create(context.Background(), "creator-1", CreateProductRequest{
		Name:        "Visible",
		Description: "d",
		Price:       price(10),
	})
	p.Published = true

	got, _, err := svc.GetPublic(context.Background(), p.Slug)
	if err != nil {
		t.Fatalf("GetPublic() error = %v", err)
	}
	if got.Views != 1 {
		t.Errorf("Views = %d, want 1 after public read", got.Views)
	}

	// Checkout and download lookups must not inflate the storefront
	// counter.
	resolved, err := svc.ResolvePublic(context.Background(), p.Slug)
	if err != nil {
		t.Fatalf("ResolvePublic() error = %v", err)
	}
	if resolved.Views != 1 {
		t.Errorf("Views = %d after ResolvePublic, want unchanged", resolved.Views)
	}
}

func TestUploadFilesValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	p, _ := svc.Create(context.Background(), "creator-1", CreateProductRequest{
		Name:        "Bundle",
		Description: "d",
		Price:       price(10),
	})

	_, err := svc.UploadFiles(context.Background(), p.ID, "creator-1", nil)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("empty batch error = %v, want ErrInvalidInput", err)
	}

	_, err = svc.UploadFiles(context.Background(), "missing", "creator-1", nil)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown product error = %v, want ErrNotFound", err)
	}
}

func TestListParamsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   ListProductsParams
		want ListProductsParams
	}{
		{"zero values", ListProductsParams{}, ListProductsParams{Page: 1, Limit: 10}},
		{"negative page", ListProductsParams{Page: -3, Limit: 20}, ListProductsParams{Page: 1, Limit: 20}},
		{"limit clamped", ListProductsParams{Page: 2, Limit: 500}, ListProductsParams{Page: 2, Limit: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Normalize()
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListParamsOffset(t *testing.T) {
	p := ListProductsParams{Page: 3, Limit: 10}
	if got := p.Offset(); got != 20 {
		t.Errorf("Offset() = %d, want 20", got)
	}
}

func TestSlugFallbackAfterExhaustion(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	base := Slugify("Popular Name")
	repo.slugs[base] = true
	for i := 2; i <= maxSlugAttempts; i++ {
		repo.slugs[fmt.Sprintf("%s-%d", base, i)] = true
	}

	slug, err := svc.uniqueSlug(context.Background(), "Popular Name")
	if err != nil {
		t.Fatalf("uniqueSlug() error = %v", err)
	}

	if !strings.HasPrefix(slug, base+"-") {
		t.Errorf("fallback slug = %q, want %q prefix", slug, base+"-")
	}
	if len(slug) != len(base)+1+8 {
		t.Errorf("fallback slug = %q, want 8-char random suffix", slug)
	}
}

func TestProductAnalytics(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	repo.products["prod-1"] = &Product{
		ID:        "prod-1",
		CreatorID: "creator-1",
		Name:      "Launch Course",
		Views:     200,
		Sales:     3,
		Revenue:   120,
	}

	jan := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	repo.purchases = []Purchase{
		{ProductID: "prod-1", Amount: 40, Status: StatusCompleted, CreatedAt: jan},
		{ProductID: "prod-1", Amount: 40, Status: StatusCompleted, CreatedAt: jan},
		{ProductID: "prod-1", Amount: 40, Status: StatusCompleted, CreatedAt: feb},
		{ProductID: "prod-1", Amount: 40, Status: StatusFailed, CreatedAt: feb},
		{ProductID: "prod-2", Amount: 99, Status: StatusCompleted, CreatedAt: feb},
	}

	resp, err := svc.Analytics(context.Background(), "prod-1", "creator-1")
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}

	if resp.Sales != 3 || resp.Revenue != 120 {
		t.Errorf("totals = (%d, %v), want (3, 120)", resp.Sales, resp.Revenue)
	}
	if resp.ConversionRate != 0.015 {
		t.Errorf("ConversionRate = %v, want 0.015", resp.ConversionRate)
	}
	if resp.AverageOrderValue != 40 {
		t.Errorf("AverageOrderValue = %v, want 40", resp.AverageOrderValue)
	}

	// Failed purchases and other products stay out of the series.
	want := []MonthlyBucket{
		{Month: "2026-01", Sales: 2, Revenue: 80},
		{Month: "2026-02", Sales: 1, Revenue: 40},
	}
	if len(resp.Monthly) != len(want) {
		t.Fatalf("Monthly buckets = %d, want %d", len(resp.Monthly), len(want))
	}
	for i := range want {
		if resp.Monthly[i] != want[i] {
			t.Errorf("Monthly[%d] = %+v, want %+v", i, resp.Monthly[i], want[i])
		}
	}
}

func TestProductAnalyticsOwnership(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo)

	repo.products["prod-1"] = &Product{ID: "prod-1", CreatorID: "creator-1"}

	if _, err := svc.Analytics(context.Background(), "prod-1", "someone-else"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound for a foreign product", err)
	}
}
