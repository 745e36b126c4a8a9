package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/pkg/db"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/pagination"
)

// Service exposes catalog read and admin write operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params pagination.Params, filter ListFilter) ([]models.Product, string, error)
	Create(ctx context.Context, input ProductInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input ProductInput) (*models.Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// ProductInput captures the payload for creating or updating a product.
type ProductInput struct {
	SKU                 string
	Title               string
	Description         *string
	Category            *string
	Colors              []string
	PriceCents          int64
	CompareAtPriceCents *int64
	FeaturedImage       *string
	IsActive            bool
	IsFeatured          bool
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filter ListFilter) ([]models.Product, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	products, err := s.repo.List(ctx, limit+1, cursor, filter)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	next := ""
	if len(products) > limit {
		products = products[:limit]
		last := products[len(products)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return products, next, nil
}

func (s *service) Create(ctx context.Context, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(&input); err != nil {
		return nil, err
	}

	product := &models.Product{
		SKU:                 input.SKU,
		Title:               input.Title,
		Description:         input.Description,
		Category:            input.Category,
		Colors:              pq.StringArray(input.Colors),
		PriceCents:          input.PriceCents,
		CompareAtPriceCents: input.CompareAtPriceCents,
		FeaturedImage:       input.FeaturedImage,
		IsActive:            input.IsActive,
		IsFeatured:          input.IsFeatured,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_products_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (*models.Product, error) {
	if err := validateProductInput(&input); err != nil {
		return nil, err
	}

	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	product.SKU = input.SKU
	product.Title = input.Title
	product.Description = input.Description
	product.Category = input.Category
	product.Colors = pq.StringArray(input.Colors)
	product.PriceCents = input.PriceCents
	product.CompareAtPriceCents = input.CompareAtPriceCents
	product.FeaturedImage = input.FeaturedImage
	product.IsActive = input.IsActive
	product.IsFeatured = input.IsFeatured

	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		if db.IsUniqueViolation(err, "idx_products_sku") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product")
	}
	return updated, nil
}

// Deactivate hides the product from the storefront. Existing cart lines keep
// referencing it but fail validation at quote and checkout time.
func (s *service) Deactivate(ctx context.Context, id uuid.UUID) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	product.IsActive = false
	if _, err := s.repo.Update(ctx, product); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product")
	}
	return nil
}

func validateProductInput(input *ProductInput) error {
	input.SKU = strings.TrimSpace(input.SKU)
	input.Title = strings.TrimSpace(input.Title)

	if input.SKU == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.CompareAtPriceCents != nil && *input.CompareAtPriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "compare-at price must be non-negative")
	}

	seen := map[string]struct{}{}
	cleaned := make([]string, 0, len(input.Colors))
	for _, color := range input.Colors {
		color = strings.TrimSpace(color)
		if color == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "color values cannot be blank")
		}
		if _, dup := seen[color]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate color value")
		}
		seen[color] = struct{}{}
		cleaned = append(cleaned, color)
	}
	input.Colors = cleaned
	return nil
}
