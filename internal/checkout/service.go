package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/internal/cart"
	"github.com/hoangtran-dev/shopora-backend/internal/coupons"
	"github.com/hoangtran-dev/shopora-backend/internal/orders"
	"github.com/hoangtran-dev/shopora-backend/internal/pricing"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/logger"
	"github.com/hoangtran-dev/shopora-backend/pkg/metrics"
	"github.com/hoangtran-dev/shopora-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponEngine interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeem(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

// Service places orders from the user's active cart.
type Service interface {
	PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error)
}

type service struct {
	carts    cart.Repository
	products productLoader
	coupons  couponEngine
	orders   orders.Repository
	pricer   *pricing.Calculator
	tx       txRunner
	logg     *logger.Logger
	counters *metrics.CheckoutMetrics
}

// Deps bundles the checkout service dependencies.
type Deps struct {
	Carts    cart.Repository
	Products productLoader
	Coupons  couponEngine
	Orders   orders.Repository
	Pricer   *pricing.Calculator
	Tx       txRunner
	Logger   *logger.Logger
	Counters *metrics.CheckoutMetrics
}

// NewService builds a checkout service backed by the provided stack.
func NewService(deps Deps) (Service, error) {
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if deps.Coupons == nil {
		return nil, fmt.Errorf("coupon engine required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("order writer required")
	}
	if deps.Pricer == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		carts:    deps.Carts,
		products: deps.Products,
		coupons:  deps.Coupons,
		orders:   deps.Orders,
		pricer:   deps.Pricer,
		tx:       deps.Tx,
		logg:     deps.Logger,
		counters: deps.Counters,
	}, nil
}

// PlaceOrderInput captures the checkout payload.
type PlaceOrderInput struct {
	CouponCode      string
	ShippingAddress types.Address
}

// PlaceOrder converts the active cart into an order in a single transaction:
// totals are recomputed from current catalog prices, coupon eligibility is
// re-checked, the usage slot is claimed with a guarded increment, and the
// cart is marked converted. Any failure rolls the whole thing back.
func (s *service) PlaceOrder(ctx context.Context, userID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if field := input.ShippingAddress.Validate(); field != "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is incomplete").
			WithDetails(map[string]any{"field": field})
	}

	couponCode := strings.TrimSpace(input.CouponCode)
	now := time.Now()

	var placed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cart, err := s.carts.WithTx(tx).FindActiveByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		lineItems, subtotal, err := s.buildLineItems(ctx, cart)
		if err != nil {
			return err
		}

		var coupon *models.Coupon
		var discount int64
		if couponCode != "" {
			coupon, err = s.coupons.FindByCode(ctx, couponCode)
			if err != nil {
				return err
			}
			if err := coupons.EligibleForOrder(coupon, subtotal, now); err != nil {
				return err
			}
			discount = coupons.DiscountFor(coupon, subtotal)
		}

		quote := s.pricer.Reconcile(subtotal, discount)

		order := &models.Order{
			UserID:           userID,
			ShippingAddress:  input.ShippingAddress,
			TotalPriceCents:  quote.TotalPriceCents,
			DiscountCents:    quote.DiscountCents,
			ShippingFeeCents: quote.ShippingFeeCents,
			FinalTotalCents:  quote.FinalTotalCents,
		}
		if coupon != nil {
			order.CouponID = &coupon.ID
			order.CouponCode = &coupon.Code
		}

		txOrders := s.orders.WithTx(tx)
		created, err := txOrders.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		for i := range lineItems {
			lineItems[i].OrderID = created.ID
		}
		if err := txOrders.CreateLineItems(ctx, lineItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order items")
		}

		if coupon != nil {
			if err := s.coupons.Redeem(ctx, tx, coupon.ID); err != nil {
				return err
			}
		}

		if err := s.carts.WithTx(tx).MarkConverted(ctx, cart.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
		}

		created.Items = lineItems
		placed = created
		return nil
	})
	if err != nil {
		s.observeFailure(ctx, couponCode, err)
		return nil, err
	}

	s.observeSuccess(ctx, placed, couponCode)
	return placed, nil
}

func (s *service) buildLineItems(ctx context.Context, cart *models.Cart) ([]models.OrderLineItem, int64, error) {
	items := make([]models.OrderLineItem, 0, len(cart.Items))
	var subtotal int64
	for _, line := range cart.Items {
		product := line.Product
		if product == nil {
			loaded, err := s.products.Get(ctx, line.ProductID)
			if err != nil {
				return nil, 0, err
			}
			product = loaded
		}
		if !product.IsActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if line.Quantity <= 0 {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "cart line quantity must be positive")
		}

		lineTotal := product.PriceCents * int64(line.Quantity)
		subtotal += lineTotal
		productID := product.ID
		items = append(items, models.OrderLineItem{
			ProductID:      &productID,
			Title:          product.Title,
			Color:          line.Color,
			UnitPriceCents: product.PriceCents,
			Quantity:       line.Quantity,
			LineTotalCents: lineTotal,
		})
	}
	return items, subtotal, nil
}

func (s *service) observeSuccess(ctx context.Context, order *models.Order, couponCode string) {
	s.counters.IncOrder("placed")
	if couponCode != "" {
		s.counters.IncRedemption("redeemed")
	}
	if s.logg != nil {
		fields := map[string]any{
			"order_id":          order.ID,
			"final_total_cents": order.FinalTotalCents,
		}
		if order.CouponCode != nil {
			fields["coupon_code"] = *order.CouponCode
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "order placed")
	}
}

func (s *service) observeFailure(ctx context.Context, couponCode string, err error) {
	s.counters.IncOrder("failed")
	if couponCode != "" {
		if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeConflict {
			s.counters.IncRedemption("conflict")
		}
	}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout failed")
	}
}
