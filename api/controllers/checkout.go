package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hoangtran-dev/shopora-backend/api/responses"
	"github.com/hoangtran-dev/shopora-backend/api/validators"
	checkoutsvc "github.com/hoangtran-dev/shopora-backend/internal/checkout"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/logger"
	"github.com/hoangtran-dev/shopora-backend/pkg/types"
)

type placeOrderRequest struct {
	CouponCode      string        `json:"coupon_code,omitempty"`
	ShippingAddress types.Address `json:"shipping_address" validate:"required"`
}

type orderLineItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Title          string     `json:"title"`
	Color          string     `json:"color"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int        `json:"quantity"`
	LineTotalCents int64      `json:"line_total_cents"`
}

type orderResponse struct {
	ID               uuid.UUID               `json:"id"`
	Status           string                  `json:"status"`
	CouponCode       *string                 `json:"coupon_code,omitempty"`
	ShippingAddress  types.Address           `json:"shipping_address"`
	TotalPriceCents  int64                   `json:"total_price_cents"`
	DiscountCents    int64                   `json:"discount_cents"`
	ShippingFeeCents int64                   `json:"shipping_fee_cents"`
	FinalTotalCents  int64                   `json:"final_total_cents"`
	Items            []orderLineItemResponse `json:"items"`
	CreatedAt        time.Time               `json:"created_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	items := make([]orderLineItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderLineItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Title:          item.Title,
			Color:          item.Color,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: item.LineTotalCents,
		})
	}

	return orderResponse{
		ID:               order.ID,
		Status:           string(order.Status),
		CouponCode:       order.CouponCode,
		ShippingAddress:  order.ShippingAddress,
		TotalPriceCents:  order.TotalPriceCents,
		DiscountCents:    order.DiscountCents,
		ShippingFeeCents: order.ShippingFeeCents,
		FinalTotalCents:  order.FinalTotalCents,
		Items:            items,
		CreatedAt:        order.CreatedAt,
	}
}

// Checkout converts the caller's active cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.PlaceOrder(r.Context(), userID, checkoutsvc.PlaceOrderInput{
			CouponCode:      payload.CouponCode,
			ShippingAddress: payload.ShippingAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}
