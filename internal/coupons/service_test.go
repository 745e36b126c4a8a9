package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/pagination"
)

type stubRepo struct {
	coupons     map[string]*models.Coupon
	byID        map[uuid.UUID]*models.Coupon
	listResult  []models.Coupon
	incremented int
}

func newStubRepo(coupons ...*models.Coupon) *stubRepo {
	repo := &stubRepo{
		coupons: map[string]*models.Coupon{},
		byID:    map[uuid.UUID]*models.Coupon{},
	}
	for _, c := range coupons {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		repo.coupons[c.Code] = c
		repo.byID[c.ID] = c
	}
	return repo
}

func (r *stubRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *stubRepo) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if c, ok := r.coupons[code]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	if c, ok := r.byID[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubRepo) List(ctx context.Context, limit int, cursor *pagination.Cursor, includeDeleted bool) ([]models.Coupon, error) {
	if limit > len(r.listResult) {
		limit = len(r.listResult)
	}
	return r.listResult[:limit], nil
}

func (r *stubRepo) Create(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	coupon.ID = uuid.New()
	r.coupons[coupon.Code] = coupon
	r.byID[coupon.ID] = coupon
	return coupon, nil
}

func (r *stubRepo) Update(ctx context.Context, coupon *models.Coupon) (*models.Coupon, error) {
	return coupon, nil
}

func (r *stubRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if c, ok := r.byID[id]; ok {
		c.IsDelete = true
	}
	return nil
}

func (r *stubRepo) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	c, ok := r.byID[id]
	if !ok || c.IsDelete {
		return false, nil
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false, nil
	}
	c.UsedCount++
	r.incremented++
	return true, nil
}

func (r *stubRepo) ReplaceProducts(ctx context.Context, coupon *models.Coupon, products []models.Product) error {
	coupon.Products = products
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func percentageCoupon(code string, percent int64) *models.Coupon {
	return &models.Coupon{
		ID:       uuid.New(),
		Code:     code,
		Type:     enums.CouponTypePercentage,
		Value:    decimal.NewFromInt(percent),
		IsActive: true,
	}
}

func fixedCoupon(code string, cents int64) *models.Coupon {
	return &models.Coupon{
		ID:       uuid.New(),
		Code:     code,
		Type:     enums.CouponTypeFixed,
		Value:    decimal.NewFromInt(cents),
		IsActive: true,
	}
}

func assertCode(t *testing.T, err error, want pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if appErr.Code() != want {
		t.Fatalf("expected code %s, got %s (%v)", want, appErr.Code(), err)
	}
}

func TestFindByCodeNormalizesAndRejectsDeleted(t *testing.T) {
	ctx := context.Background()
	active := percentageCoupon("SUMMER10", 10)
	deleted := fixedCoupon("GONE", 1000)
	deleted.IsDelete = true
	inactive := fixedCoupon("SLEEPY", 1000)
	inactive.IsActive = false
	svc := newTestService(t, newStubRepo(active, deleted, inactive))

	coupon, err := svc.FindByCode(ctx, "  summer10 ")
	if err != nil {
		t.Fatalf("find by code: %v", err)
	}
	if coupon.Code != "SUMMER10" {
		t.Fatalf("unexpected coupon %s", coupon.Code)
	}

	_, err = svc.FindByCode(ctx, "GONE")
	assertCode(t, err, pkgerrors.CodeNotFound)

	// Inactive coupons are indistinguishable from missing ones.
	_, err = svc.FindByCode(ctx, "SLEEPY")
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.FindByCode(ctx, "MISSING")
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestEligibleForOrderChecks(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Run("inactive", func(t *testing.T) {
		coupon := percentageCoupon("X", 10)
		coupon.IsActive = false
		assertCode(t, EligibleForOrder(coupon, 100_000, now), pkgerrors.CodeValidation)
	})

	t.Run("usage limit reached", func(t *testing.T) {
		coupon := percentageCoupon("X", 10)
		coupon.UsageLimit = intPtr(5)
		coupon.UsedCount = 5
		assertCode(t, EligibleForOrder(coupon, 100_000, now), pkgerrors.CodeValidation)
	})

	t.Run("usage below limit", func(t *testing.T) {
		coupon := percentageCoupon("X", 10)
		coupon.UsageLimit = intPtr(5)
		coupon.UsedCount = 4
		if err := EligibleForOrder(coupon, 100_000, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("before start date", func(t *testing.T) {
		coupon := percentageCoupon("X", 10)
		coupon.StartDate = datePtr(2025, 2, 1)
		assertCode(t, EligibleForOrder(coupon, 100_000, now), pkgerrors.CodeValidation)
	})

	t.Run("end date is inclusive", func(t *testing.T) {
		coupon := percentageCoupon("X", 10)
		coupon.EndDate = datePtr(2025, 1, 31)

		lastDay := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)
		if err := EligibleForOrder(coupon, 100_000, lastDay); err != nil {
			t.Fatalf("coupon should be valid through its end date: %v", err)
		}

		dayAfter := time.Date(2025, 2, 1, 0, 0, 1, 0, time.UTC)
		assertCode(t, EligibleForOrder(coupon, 100_000, dayAfter), pkgerrors.CodeValidation)
	})

	t.Run("minimum order amount", func(t *testing.T) {
		coupon := percentageCoupon("X", 10)
		coupon.MinOrderAmountCents = int64Ptr(500_000)
		assertCode(t, EligibleForOrder(coupon, 499_999, now), pkgerrors.CodeValidation)
		if err := EligibleForOrder(coupon, 500_000, now); err != nil {
			t.Fatalf("unexpected error at exact minimum: %v", err)
		}
	})
}

func TestDiscountFor(t *testing.T) {
	if got := DiscountFor(percentageCoupon("X", 10), 200_000); got != 20_000 {
		t.Fatalf("expected 10%% of 200000 = 20000, got %d", got)
	}

	// Fixed discounts are not capped at the order total.
	if got := DiscountFor(fixedCoupon("X", 50_000), 30_000); got != 50_000 {
		t.Fatalf("expected fixed 50000 uncapped, got %d", got)
	}

	// Fractional percentage results floor to whole cents.
	half := percentageCoupon("X", 0)
	half.Value = decimal.RequireFromString("0.5")
	if got := DiscountFor(half, 333); got != 1 {
		t.Fatalf("expected floor(1.665) = 1, got %d", got)
	}

	// A row with an unrecognized type discounts at face value, same as fixed.
	unknown := fixedCoupon("X", 15_000)
	unknown.Type = "mystery"
	if got := DiscountFor(unknown, 200_000); got != 15_000 {
		t.Fatalf("expected face value 15000 for unrecognized type, got %d", got)
	}
}

func TestRedeemIncrementsAndConflicts(t *testing.T) {
	ctx := context.Background()
	coupon := fixedCoupon("LIMITED", 1000)
	coupon.UsageLimit = intPtr(2)
	repo := newStubRepo(coupon)
	svc := newTestService(t, repo)

	if err := svc.Redeem(ctx, nil, coupon.ID); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	if err := svc.Redeem(ctx, nil, coupon.ID); err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if coupon.UsedCount != 2 {
		t.Fatalf("expected used_count 2, got %d", coupon.UsedCount)
	}

	err := svc.Redeem(ctx, nil, coupon.ID)
	assertCode(t, err, pkgerrors.CodeConflict)
	if coupon.UsedCount != 2 {
		t.Fatalf("conflicting redeem must not increment, got %d", coupon.UsedCount)
	}
}

func TestValidateResolvesDiscount(t *testing.T) {
	ctx := context.Background()
	coupon := percentageCoupon("TEN", 10)
	svc := newTestService(t, newStubRepo(coupon))

	resolved, discount, err := svc.Validate(ctx, "ten", 200_000, time.Now())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if resolved.ID != coupon.ID {
		t.Fatalf("unexpected coupon resolved")
	}
	if discount != 20_000 {
		t.Fatalf("expected discount 20000, got %d", discount)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newStubRepo())

	cases := []struct {
		name  string
		input CouponInput
	}{
		{"missing code", CouponInput{Type: enums.CouponTypeFixed, Value: decimal.NewFromInt(100)}},
		{"bad type", CouponInput{Code: "A", Type: "bogus", Value: decimal.NewFromInt(100)}},
		{"zero value", CouponInput{Code: "A", Type: enums.CouponTypeFixed, Value: decimal.Zero}},
		{"percent over 100", CouponInput{Code: "A", Type: enums.CouponTypePercentage, Value: decimal.NewFromInt(150)}},
		{"zero usage limit", CouponInput{Code: "A", Type: enums.CouponTypeFixed, Value: decimal.NewFromInt(100), UsageLimit: intPtr(0)}},
		{"inverted dates", CouponInput{
			Code: "A", Type: enums.CouponTypeFixed, Value: decimal.NewFromInt(100),
			StartDate: datePtr(2025, 3, 1), EndDate: datePtr(2025, 2, 1),
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.input)
			assertCode(t, err, pkgerrors.CodeValidation)
		})
	}

	coupon, err := svc.Create(ctx, CouponInput{
		Code:     " spring20 ",
		Type:     enums.CouponTypePercentage,
		Value:    decimal.NewFromInt(20),
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if coupon.Code != "SPRING20" {
		t.Fatalf("expected normalized code SPRING20, got %s", coupon.Code)
	}
}
