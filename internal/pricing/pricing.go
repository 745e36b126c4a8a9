package pricing

import (
	"fmt"
	"math"

	"github.com/hoangtran-dev/shopora-backend/pkg/config"
)

// Calculator derives order totals from a subtotal and an advisory discount.
// All amounts are cents.
type Calculator struct {
	ShippingFeeCents       int64
	FreeShipThresholdCents int64
}

// Quote is the priced breakdown returned to clients and frozen onto orders.
// FinalTotalCents can go negative when a fixed coupon exceeds the subtotal;
// fixed discounts are deliberately not capped.
type Quote struct {
	TotalPriceCents  int64 `json:"total_price_cents"`
	DiscountCents    int64 `json:"discount_cents"`
	ShippingFeeCents int64 `json:"shipping_fee_cents"`
	FinalTotalCents  int64 `json:"final_total_cents"`
}

// NewCalculator builds a calculator from the pricing configuration.
func NewCalculator(cfg config.PricingConfig) (*Calculator, error) {
	if cfg.ShippingFeeCents < 0 {
		return nil, fmt.Errorf("shipping fee must be non-negative")
	}
	if cfg.FreeShipThresholdCents < 0 {
		return nil, fmt.Errorf("free shipping threshold must be non-negative")
	}
	return &Calculator{
		ShippingFeeCents:       cfg.ShippingFeeCents,
		FreeShipThresholdCents: cfg.FreeShipThresholdCents,
	}, nil
}

// ShippingFee returns the fee owed for the given subtotal. Orders at or above
// the free-shipping threshold ship free; the discount never affects the fee.
func (c *Calculator) ShippingFee(totalPriceCents int64) int64 {
	if totalPriceCents >= c.FreeShipThresholdCents {
		return 0
	}
	return c.ShippingFeeCents
}

// Reconcile computes the final breakdown. A negative discount is treated as
// zero; the discount itself is otherwise applied as-is.
func (c *Calculator) Reconcile(totalPriceCents, discountCents int64) Quote {
	if discountCents < 0 {
		discountCents = 0
	}
	fee := c.ShippingFee(totalPriceCents)
	return Quote{
		TotalPriceCents:  totalPriceCents,
		DiscountCents:    discountCents,
		ShippingFeeCents: fee,
		FinalTotalCents:  totalPriceCents - discountCents + fee,
	}
}

// DiscountFromFloat coerces an untrusted float discount into cents. NaN,
// infinities and negative values collapse to zero rather than poisoning the
// total.
func DiscountFromFloat(value float64) int64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return int64(math.Floor(value))
}
