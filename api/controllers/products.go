package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoangtran-dev/shopora-backend/api/responses"
	"github.com/hoangtran-dev/shopora-backend/api/validators"
	"github.com/hoangtran-dev/shopora-backend/internal/catalog"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/logger"
	"github.com/hoangtran-dev/shopora-backend/pkg/pagination"
)

type productRequest struct {
	SKU                 string   `json:"sku" validate:"required"`
	Title               string   `json:"title" validate:"required"`
	Description         *string  `json:"description,omitempty"`
	Category            *string  `json:"category,omitempty"`
	Colors              []string `json:"colors,omitempty"`
	PriceCents          int64    `json:"price_cents" validate:"min=0"`
	CompareAtPriceCents *int64   `json:"compare_at_price_cents,omitempty" validate:"omitempty,min=0"`
	FeaturedImage       *string  `json:"featured_image,omitempty"`
	IsActive            *bool    `json:"is_active,omitempty"`
	IsFeatured          *bool    `json:"is_featured,omitempty"`
}

func (r productRequest) toInput() catalog.ProductInput {
	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}
	isFeatured := false
	if r.IsFeatured != nil {
		isFeatured = *r.IsFeatured
	}
	return catalog.ProductInput{
		SKU:                 r.SKU,
		Title:               r.Title,
		Description:         r.Description,
		Category:            r.Category,
		Colors:              r.Colors,
		PriceCents:          r.PriceCents,
		CompareAtPriceCents: r.CompareAtPriceCents,
		FeaturedImage:       r.FeaturedImage,
		IsActive:            isActive,
		IsFeatured:          isFeatured,
	}
}

type productResponse struct {
	ID                  uuid.UUID `json:"id"`
	SKU                 string    `json:"sku"`
	Title               string    `json:"title"`
	Description         *string   `json:"description,omitempty"`
	Category            *string   `json:"category,omitempty"`
	Colors              []string  `json:"colors"`
	PriceCents          int64     `json:"price_cents"`
	CompareAtPriceCents *int64    `json:"compare_at_price_cents,omitempty"`
	FeaturedImage       *string   `json:"featured_image,omitempty"`
	IsActive            bool      `json:"is_active"`
	IsFeatured          bool      `json:"is_featured"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func newProductResponse(product *models.Product) productResponse {
	return productResponse{
		ID:                  product.ID,
		SKU:                 product.SKU,
		Title:               product.Title,
		Description:         product.Description,
		Category:            product.Category,
		Colors:              []string(product.Colors),
		PriceCents:          product.PriceCents,
		CompareAtPriceCents: product.CompareAtPriceCents,
		FeaturedImage:       product.FeaturedImage,
		IsActive:            product.IsActive,
		IsFeatured:          product.IsFeatured,
		CreatedAt:           product.CreatedAt,
		UpdatedAt:           product.UpdatedAt,
	}
}

type productListResponse struct {
	Products   []productResponse `json:"products"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// ListProducts serves the public storefront catalog.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := catalog.ListFilter{ActiveOnly: true}
		if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
			filter.Category = &category
		}
		if r.URL.Query().Get("featured") == "true" {
			filter.FeaturedOnly = true
		}

		params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}
		products, nextCursor, err := svc.List(r.Context(), params, filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := productListResponse{Products: make([]productResponse, 0, len(products)), NextCursor: nextCursor}
		for i := range products {
			result.Products = append(result.Products, newProductResponse(&products[i]))
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := parsePathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

// AdminCreateProduct handles catalog writes for back-office operators.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newProductResponse(product))
	}
}

func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := parsePathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload productRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newProductResponse(product))
	}
}

func AdminDeactivateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		id, err := parsePathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

func parsePathID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing path parameter").WithDetails(map[string]any{"field": param})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": param})
	}
	return id, nil
}
