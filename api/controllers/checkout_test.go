package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	checkoutsvc "github.com/hoangtran-dev/shopora-backend/internal/checkout"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/types"
)

type stubCheckoutService struct {
	order *models.Order
	err   error
	input checkoutsvc.PlaceOrderInput
}

func (s *stubCheckoutService) PlaceOrder(ctx context.Context, userID uuid.UUID, input checkoutsvc.PlaceOrderInput) (*models.Order, error) {
	s.input = input
	return s.order, s.err
}

const checkoutBody = `{
	"coupon_code": "SALE10",
	"shipping_address": {
		"full_name": "Hoang Tran",
		"phone": "0900000000",
		"line1": "12 Nguyen Hue",
		"city": "Ho Chi Minh City",
		"postal_code": "700000",
		"country": "VN"
	}
}`

func TestCheckoutSuccess(t *testing.T) {
	order := &models.Order{
		ID:              uuid.New(),
		Status:          enums.OrderStatusPending,
		TotalPriceCents: 1_800_000,
		ShippingAddress: types.Address{FullName: "Hoang Tran", Line1: "12 Nguyen Hue", City: "Ho Chi Minh City", Country: "VN"},
	}
	svc := &stubCheckoutService{order: order}
	handler := Checkout(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout", checkoutBody))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	if svc.input.CouponCode != "SALE10" {
		t.Fatalf("unexpected coupon code: %q", svc.input.CouponCode)
	}

	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.ID != order.ID {
		t.Fatalf("unexpected order id: %s", envelope.Data.ID)
	}
}

func TestCheckoutCouponConflict(t *testing.T) {
	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")}
	handler := Checkout(svc, nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, authedRequest(http.MethodPost, "/api/v1/checkout", checkoutBody))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	handler := Checkout(&stubCheckoutService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
