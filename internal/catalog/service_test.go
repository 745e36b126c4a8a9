package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/pagination"
)

type stubRepo struct {
	products   map[uuid.UUID]*models.Product
	listResult []models.Product
}

func newStubRepo(products ...*models.Product) *stubRepo {
	repo := &stubRepo{products: map[uuid.UUID]*models.Product{}}
	for _, p := range products {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		repo.products[p.ID] = p
	}
	return repo
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubRepo) List(ctx context.Context, limit int, cursor *pagination.Cursor, filter ListFilter) ([]models.Product, error) {
	if limit > len(r.listResult) {
		limit = len(r.listResult)
	}
	return r.listResult[:limit], nil
}

func (r *stubRepo) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	product.ID = uuid.New()
	product.CreatedAt = time.Now()
	r.products[product.ID] = product
	return product, nil
}

func (r *stubRepo) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	r.products[product.ID] = product
	return product, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error with code %s, got %v", want, err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s", want, appErr.Code())
	}
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newStubRepo())

	cases := []struct {
		name  string
		input ProductInput
	}{
		{"missing sku", ProductInput{Title: "Shirt", PriceCents: 100}},
		{"missing title", ProductInput{SKU: "SKU-1", PriceCents: 100}},
		{"negative price", ProductInput{SKU: "SKU-1", Title: "Shirt", PriceCents: -1}},
		{"blank color", ProductInput{SKU: "SKU-1", Title: "Shirt", PriceCents: 100, Colors: []string{" "}}},
		{"duplicate color", ProductInput{SKU: "SKU-1", Title: "Shirt", PriceCents: 100, Colors: []string{"red", "red"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}

	product, err := svc.Create(ctx, ProductInput{
		SKU:        " SKU-1 ",
		Title:      "Linen Shirt",
		PriceCents: 250_000,
		Colors:     []string{"red", "navy"},
		IsActive:   true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if product.SKU != "SKU-1" {
		t.Fatalf("expected trimmed sku, got %q", product.SKU)
	}
	if !product.HasColor("navy") || product.HasColor("green") {
		t.Fatalf("unexpected colors %v", product.Colors)
	}
}

func TestGetUnknownProduct(t *testing.T) {
	svc := newTestService(t, newStubRepo())
	_, err := svc.Get(context.Background(), uuid.New())
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestListPaginates(t *testing.T) {
	repo := newStubRepo()
	for i := 0; i < 3; i++ {
		repo.listResult = append(repo.listResult, models.Product{
			ID:        uuid.New(),
			CreatedAt: time.Now().Add(-time.Duration(i) * time.Minute),
		})
	}
	svc := newTestService(t, repo)

	products, next, err := svc.List(context.Background(), pagination.Params{Limit: 2}, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if next == "" {
		t.Fatal("expected next cursor for remaining page")
	}

	if _, err := pagination.ParseCursor(next); err != nil {
		t.Fatalf("next cursor should round-trip: %v", err)
	}
}

func TestDeactivateHidesProduct(t *testing.T) {
	product := &models.Product{ID: uuid.New(), SKU: "SKU-9", Title: "Hat", IsActive: true}
	repo := newStubRepo(product)
	svc := newTestService(t, repo)

	if err := svc.Deactivate(context.Background(), product.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if product.IsActive {
		t.Fatal("expected product deactivated")
	}
}
