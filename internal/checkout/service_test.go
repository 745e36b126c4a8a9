package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/internal/cart"
	"github.com/hoangtran-dev/shopora-backend/internal/orders"
	"github.com/hoangtran-dev/shopora-backend/internal/pricing"
	"github.com/hoangtran-dev/shopora-backend/pkg/config"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/pagination"
	"github.com/hoangtran-dev/shopora-backend/pkg/types"
)

type stubCartRepo struct {
	cart      *models.Cart
	converted bool
}

func (r *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return r }

func (r *stubCartRepo) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if r.cart == nil || r.cart.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.cart, nil
}

func (r *stubCartRepo) Create(ctx context.Context, c *models.Cart) (*models.Cart, error) {
	return c, nil
}

func (r *stubCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID, color string) (*models.CartItem, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error { return nil }

func (r *stubCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	return nil
}

func (r *stubCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error  { return nil }
func (r *stubCartRepo) DeleteItems(ctx context.Context, cartID uuid.UUID) error { return nil }

func (r *stubCartRepo) MarkConverted(ctx context.Context, cartID uuid.UUID, at time.Time) error {
	r.converted = true
	return nil
}

type stubOrderRepo struct {
	order *models.Order
	items []models.OrderLineItem
}

func (r *stubOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return r }

func (r *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	r.order = order
	return order, nil
}

func (r *stubOrderRepo) CreateLineItems(ctx context.Context, items []models.OrderLineItem) error {
	r.items = items
	return nil
}

func (r *stubOrderRepo) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	return nil, nil
}

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type stubCoupons struct {
	coupon      *models.Coupon
	redeemErr   error
	redeemCalls int
}

func (s *stubCoupons) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	if s.coupon == nil || s.coupon.Code != code {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return s.coupon, nil
}

func (s *stubCoupons) Redeem(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	s.redeemCalls++
	if s.redeemErr != nil {
		return s.redeemErr
	}
	s.coupon.UsedCount++
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testAddress() types.Address {
	return types.Address{
		FullName:   "Hoang Tran",
		Phone:      "0900000000",
		Line1:      "12 Nguyen Hue",
		City:       "Ho Chi Minh City",
		PostalCode: "700000",
		Country:    "VN",
	}
}

func cartWith(userID uuid.UUID, product *models.Product, quantity int) *models.Cart {
	return &models.Cart{
		ID:     uuid.New(),
		UserID: userID,
		Status: enums.CartStatusActive,
		Items: []models.CartItem{{
			ID:        uuid.New(),
			ProductID: product.ID,
			Color:     "red",
			Quantity:  quantity,
			Product:   product,
		}},
	}
}

func testProduct(priceCents int64) *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		SKU:        "SKU-1",
		Title:      "Linen Shirt",
		Colors:     pq.StringArray{"red"},
		PriceCents: priceCents,
		IsActive:   true,
	}
}

func newTestService(t *testing.T, carts *stubCartRepo, ordersRepo *stubOrderRepo, products *stubProducts, couponsEngine couponEngine) Service {
	t.Helper()
	pricer, err := pricing.NewCalculator(config.PricingConfig{
		ShippingFeeCents:       50_000,
		FreeShipThresholdCents: 2_000_000,
	})
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	if couponsEngine == nil {
		couponsEngine = &stubCoupons{}
	}
	svc, err := NewService(Deps{
		Carts:    carts,
		Products: products,
		Coupons:  couponsEngine,
		Orders:   ordersRepo,
		Pricer:   pricer,
		Tx:       stubTxRunner{},
	})
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

func TestPlaceOrderComputesTotalsAndConvertsCart(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	product := testProduct(900_000)
	carts := &stubCartRepo{cart: cartWith(userID, product, 2)}
	ordersRepo := &stubOrderRepo{}
	svc := newTestService(t, carts, ordersRepo, &stubProducts{}, nil)

	order, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{ShippingAddress: testAddress()})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if order.TotalPriceCents != 1_800_000 {
		t.Fatalf("expected subtotal 1800000, got %d", order.TotalPriceCents)
	}
	if order.ShippingFeeCents != 50_000 {
		t.Fatalf("expected shipping fee 50000, got %d", order.ShippingFeeCents)
	}
	if order.FinalTotalCents != 1_850_000 {
		t.Fatalf("expected final total 1850000, got %d", order.FinalTotalCents)
	}
	if len(ordersRepo.items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(ordersRepo.items))
	}
	line := ordersRepo.items[0]
	if line.Title != "Linen Shirt" || line.UnitPriceCents != 900_000 || line.LineTotalCents != 1_800_000 {
		t.Fatalf("line item not frozen correctly: %+v", line)
	}
	if !carts.converted {
		t.Fatal("expected cart marked converted")
	}
}

func TestPlaceOrderWithCouponRedeems(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	product := testProduct(1_250_000)
	carts := &stubCartRepo{cart: cartWith(userID, product, 2)}
	ordersRepo := &stubOrderRepo{}
	engine := &stubCoupons{coupon: &models.Coupon{
		ID:       uuid.New(),
		Code:     "TEN",
		Type:     enums.CouponTypePercentage,
		Value:    decimal.NewFromInt(10),
		IsActive: true,
	}}
	svc := newTestService(t, carts, ordersRepo, &stubProducts{}, engine)

	order, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		CouponCode:      "TEN",
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	// 2,500,000 subtotal: free shipping, 10% off.
	if order.DiscountCents != 250_000 {
		t.Fatalf("expected discount 250000, got %d", order.DiscountCents)
	}
	if order.ShippingFeeCents != 0 {
		t.Fatalf("expected free shipping, got %d", order.ShippingFeeCents)
	}
	if order.FinalTotalCents != 2_250_000 {
		t.Fatalf("expected final total 2250000, got %d", order.FinalTotalCents)
	}
	if order.CouponCode == nil || *order.CouponCode != "TEN" {
		t.Fatal("expected coupon code recorded on order")
	}
	if engine.redeemCalls != 1 {
		t.Fatalf("expected one redeem call, got %d", engine.redeemCalls)
	}
}

func TestPlaceOrderUncappedFixedCoupon(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	product := testProduct(30_000)
	carts := &stubCartRepo{cart: cartWith(userID, product, 1)}
	engine := &stubCoupons{coupon: &models.Coupon{
		ID:       uuid.New(),
		Code:     "BIG",
		Type:     enums.CouponTypeFixed,
		Value:    decimal.NewFromInt(50_000),
		IsActive: true,
	}}
	svc := newTestService(t, carts, &stubOrderRepo{}, &stubProducts{}, engine)

	order, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		CouponCode:      "BIG",
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if order.DiscountCents != 50_000 {
		t.Fatalf("expected uncapped discount 50000, got %d", order.DiscountCents)
	}
	// 30,000 - 50,000 + 50,000 shipping.
	if order.FinalTotalCents != 30_000 {
		t.Fatalf("unexpected final total %d", order.FinalTotalCents)
	}
}

func TestPlaceOrderRedeemConflictFailsCheckout(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	product := testProduct(100_000)
	carts := &stubCartRepo{cart: cartWith(userID, product, 1)}
	engine := &stubCoupons{
		coupon: &models.Coupon{
			ID:       uuid.New(),
			Code:     "LAST",
			Type:     enums.CouponTypeFixed,
			Value:    decimal.NewFromInt(10_000),
			IsActive: true,
		},
		redeemErr: pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached"),
	}
	svc := newTestService(t, carts, &stubOrderRepo{}, &stubProducts{}, engine)

	_, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		CouponCode:      "LAST",
		ShippingAddress: testAddress(),
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestPlaceOrderIneligibleCoupon(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	product := testProduct(100_000)
	carts := &stubCartRepo{cart: cartWith(userID, product, 1)}
	exhausted := &models.Coupon{
		ID:         uuid.New(),
		Code:       "DONE",
		Type:       enums.CouponTypeFixed,
		Value:      decimal.NewFromInt(10_000),
		IsActive:   true,
		UsageLimit: func() *int { v := 1; return &v }(),
		UsedCount:  1,
	}
	engine := &stubCoupons{coupon: exhausted}
	svc := newTestService(t, carts, &stubOrderRepo{}, &stubProducts{}, engine)

	_, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{
		CouponCode:      "DONE",
		ShippingAddress: testAddress(),
	})
	assertCode(t, err, pkgerrors.CodeValidation)
	if engine.redeemCalls != 0 {
		t.Fatal("ineligible coupon must not be redeemed")
	}
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	svc := newTestService(t, &stubCartRepo{}, &stubOrderRepo{}, &stubProducts{}, nil)

	_, err := svc.PlaceOrder(ctx, userID, PlaceOrderInput{ShippingAddress: testAddress()})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestPlaceOrderIncompleteAddress(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, &stubCartRepo{}, &stubOrderRepo{}, &stubProducts{}, nil)

	addr := testAddress()
	addr.City = ""
	_, err := svc.PlaceOrder(ctx, uuid.New(), PlaceOrderInput{ShippingAddress: addr})
	assertCode(t, err, pkgerrors.CodeValidation)
}
