package pricing

import (
	"math"
	"testing"

	"github.com/hoangtran-dev/shopora-backend/pkg/config"
)

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(config.PricingConfig{
		ShippingFeeCents:       50_000,
		FreeShipThresholdCents: 2_000_000,
	})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	return calc
}

func TestReconcileChargesShippingBelowThreshold(t *testing.T) {
	calc := newTestCalculator(t)

	quote := calc.Reconcile(1_800_000, 0)
	if quote.ShippingFeeCents != 50_000 {
		t.Fatalf("expected shipping fee 50000, got %d", quote.ShippingFeeCents)
	}
	if quote.FinalTotalCents != 1_850_000 {
		t.Fatalf("expected final total 1850000, got %d", quote.FinalTotalCents)
	}
}

func TestReconcileFreeShippingAtThreshold(t *testing.T) {
	calc := newTestCalculator(t)

	quote := calc.Reconcile(2_500_000, 100_000)
	if quote.ShippingFeeCents != 0 {
		t.Fatalf("expected free shipping, got fee %d", quote.ShippingFeeCents)
	}
	if quote.FinalTotalCents != 2_400_000 {
		t.Fatalf("expected final total 2400000, got %d", quote.FinalTotalCents)
	}

	// Exactly at the threshold also ships free.
	quote = calc.Reconcile(2_000_000, 0)
	if quote.ShippingFeeCents != 0 {
		t.Fatalf("expected free shipping at threshold, got fee %d", quote.ShippingFeeCents)
	}
}

func TestReconcileDiscountDoesNotAffectShipping(t *testing.T) {
	calc := newTestCalculator(t)

	// Subtotal crosses the threshold even though the discounted total would not.
	quote := calc.Reconcile(2_000_000, 1_900_000)
	if quote.ShippingFeeCents != 0 {
		t.Fatalf("shipping must key off subtotal, got fee %d", quote.ShippingFeeCents)
	}
}

func TestReconcileClampsNegativeDiscount(t *testing.T) {
	calc := newTestCalculator(t)

	quote := calc.Reconcile(100_000, -500)
	if quote.DiscountCents != 0 {
		t.Fatalf("expected discount clamped to 0, got %d", quote.DiscountCents)
	}
	if quote.FinalTotalCents != 150_000 {
		t.Fatalf("expected final total 150000, got %d", quote.FinalTotalCents)
	}
}

func TestReconcileAllowsNegativeFinalTotal(t *testing.T) {
	calc := newTestCalculator(t)

	// Fixed coupon larger than the order; the discount is not capped.
	quote := calc.Reconcile(30_000, 50_000)
	if quote.FinalTotalCents != 30_000-50_000+50_000 {
		t.Fatalf("unexpected final total %d", quote.FinalTotalCents)
	}

	quote = calc.Reconcile(2_100_000, 2_500_000)
	if quote.FinalTotalCents != -400_000 {
		t.Fatalf("expected negative final total, got %d", quote.FinalTotalCents)
	}
}

func TestDiscountFromFloat(t *testing.T) {
	cases := []struct {
		name  string
		value float64
		want  int64
	}{
		{"nan", math.NaN(), 0},
		{"positive_inf", math.Inf(1), 0},
		{"negative_inf", math.Inf(-1), 0},
		{"negative", -42, 0},
		{"zero", 0, 0},
		{"whole", 20_000, 20_000},
		{"fractional_floors", 19_999.99, 19_999},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DiscountFromFloat(tc.value); got != tc.want {
				t.Fatalf("DiscountFromFloat(%v) = %d, want %d", tc.value, got, tc.want)
			}
		})
	}
}
