package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hoangtran-dev/shopora-backend/api/responses"
	"github.com/hoangtran-dev/shopora-backend/api/validators"
	couponsvc "github.com/hoangtran-dev/shopora-backend/internal/coupons"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/logger"
	"github.com/hoangtran-dev/shopora-backend/pkg/pagination"
)

type couponRequest struct {
	Code                string          `json:"code" validate:"required"`
	Description         *string         `json:"description,omitempty"`
	Type                string          `json:"type" validate:"required,oneof=percentage fixed"`
	Value               decimal.Decimal `json:"value" validate:"required"`
	MinOrderAmountCents *int64          `json:"min_order_amount_cents,omitempty" validate:"omitempty,min=0"`
	UsageLimit          *int            `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	IsActive            *bool           `json:"is_active,omitempty"`
	StartDate           *time.Time      `json:"start_date,omitempty"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
	ProductIDs          []uuid.UUID     `json:"product_ids,omitempty"`
}

func (r couponRequest) toInput() (couponsvc.CouponInput, error) {
	couponType, err := enums.ParseCouponType(strings.TrimSpace(r.Type))
	if err != nil {
		return couponsvc.CouponInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid coupon type")
	}

	isActive := true
	if r.IsActive != nil {
		isActive = *r.IsActive
	}

	return couponsvc.CouponInput{
		Code:                r.Code,
		Description:         r.Description,
		Type:                couponType,
		Value:               r.Value,
		MinOrderAmountCents: r.MinOrderAmountCents,
		UsageLimit:          r.UsageLimit,
		IsActive:            isActive,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		ProductIDs:          r.ProductIDs,
	}, nil
}

type couponResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Code                string          `json:"code"`
	Description         *string         `json:"description,omitempty"`
	Type                string          `json:"type"`
	Value               decimal.Decimal `json:"value"`
	MinOrderAmountCents *int64          `json:"min_order_amount_cents,omitempty"`
	UsageLimit          *int            `json:"usage_limit,omitempty"`
	UsedCount           int             `json:"used_count"`
	IsActive            bool            `json:"is_active"`
	StartDate           *time.Time      `json:"start_date,omitempty"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
	ProductIDs          []uuid.UUID     `json:"product_ids,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

func newCouponResponse(coupon *models.Coupon) couponResponse {
	productIDs := make([]uuid.UUID, 0, len(coupon.Products))
	for _, product := range coupon.Products {
		productIDs = append(productIDs, product.ID)
	}

	return couponResponse{
		ID:                  coupon.ID,
		Code:                coupon.Code,
		Description:         coupon.Description,
		Type:                string(coupon.Type),
		Value:               coupon.Value,
		MinOrderAmountCents: coupon.MinOrderAmountCents,
		UsageLimit:          coupon.UsageLimit,
		UsedCount:           coupon.UsedCount,
		IsActive:            coupon.IsActive,
		StartDate:           coupon.StartDate,
		EndDate:             coupon.EndDate,
		ProductIDs:          productIDs,
		CreatedAt:           coupon.CreatedAt,
		UpdatedAt:           coupon.UpdatedAt,
	}
}

type couponListResponse struct {
	Coupons    []couponResponse `json:"coupons"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

type validateCouponRequest struct {
	Code            string `json:"code" validate:"required"`
	OrderTotalCents int64  `json:"order_total_cents" validate:"min=0"`
}

type validateCouponResponse struct {
	Coupon        couponResponse `json:"coupon"`
	DiscountCents int64          `json:"discount_cents"`
}

// ValidateCoupon checks a code against an order total without consuming usage.
func ValidateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var body validateCouponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, discount, err := svc.Validate(r.Context(), body.Code, body.OrderTotalCents, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, validateCouponResponse{
			Coupon:        newCouponResponse(coupon),
			DiscountCents: discount,
		})
	}
}

func AdminCreateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCouponResponse(coupon))
	}
}

func AdminUpdateCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		id, err := parsePathID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload couponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

func AdminDeleteCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		id, err := parsePathID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func AdminGetCoupon(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		id, err := parsePathID(r, "couponID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		coupon, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCouponResponse(coupon))
	}
}

func AdminListCoupons(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{Limit: limit, Cursor: r.URL.Query().Get("cursor")}
		coupons, nextCursor, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result := couponListResponse{Coupons: make([]couponResponse, 0, len(coupons)), NextCursor: nextCursor}
		for i := range coupons {
			result.Coupons = append(result.Coupons, newCouponResponse(&coupons[i]))
		}
		responses.WriteSuccess(w, result)
	}
}
