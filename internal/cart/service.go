package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/internal/pricing"
	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type couponValidator interface {
	Validate(ctx context.Context, code string, orderTotalCents int64, now time.Time) (*models.Coupon, int64, error)
}

// Service exposes cart operations for the authenticated user.
type Service interface {
	GetActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID uuid.UUID, input UpdateQuantityInput) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID, color string) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*QuoteResult, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	products productLoader
	coupons  couponValidator
	pricer   *pricing.Calculator
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, products productLoader, coupons couponValidator, pricer *pricing.Calculator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if coupons == nil {
		return nil, fmt.Errorf("coupon validator required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		products: products,
		coupons:  coupons,
		pricer:   pricer,
	}, nil
}

// AddItemInput captures a line to merge into the cart.
type AddItemInput struct {
	ProductID uuid.UUID
	Color     string
	Quantity  int
}

// UpdateQuantityInput addresses an existing (product, color) line.
type UpdateQuantityInput struct {
	ProductID uuid.UUID
	Color     string
	Quantity  int
}

// QuoteLine is a priced cart line at current catalog prices.
type QuoteLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	Title          string    `json:"title"`
	Color          string    `json:"color"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Quantity       int       `json:"quantity"`
	LineTotalCents int64     `json:"line_total_cents"`
}

// QuoteResult is the priced view of the cart. The discount is advisory;
// checkout recomputes and enforces it.
type QuoteResult struct {
	CartID     uuid.UUID     `json:"cart_id"`
	Items      []QuoteLine   `json:"items"`
	CouponCode *string       `json:"coupon_code,omitempty"`
	Pricing    pricing.Quote `json:"pricing"`
}

// GetActiveCart returns the user's active cart, creating an empty one on
// first access.
func (s *service) GetActiveCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	created, err := s.repo.Create(ctx, &models.Cart{UserID: userID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

// AddItem merges the (product, color) line into the cart, summing quantities
// when the pair already exists.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*models.Cart, error) {
	color := strings.TrimSpace(input.Color)
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	product, err := s.products.Get(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	if !product.HasColor(color) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "color is not available for this product")
	}

	cart, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		existing, err := txRepo.FindItem(ctx, cart.ID, input.ProductID, color)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return txRepo.CreateItem(ctx, &models.CartItem{
				CartID:    cart.ID,
				ProductID: input.ProductID,
				Color:     color,
				Quantity:  input.Quantity,
			})
		}
		return txRepo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity)
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart item")
	}

	return s.reload(ctx, userID)
}

// UpdateQuantity sets the quantity on an existing line. A non-positive
// quantity or a (product, color) pair not present in the cart is a no-op: the
// cart is returned unchanged.
func (s *service) UpdateQuantity(ctx context.Context, userID uuid.UUID, input UpdateQuantityInput) (*models.Cart, error) {
	cart, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Quantity <= 0 {
		return cart, nil
	}

	item, err := s.repo.FindItem(ctx, cart.ID, input.ProductID, strings.TrimSpace(input.Color))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.UpdateItemQuantity(ctx, item.ID, input.Quantity); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart item")
	}
	return s.reload(ctx, userID)
}

// RemoveItem deletes the (product, color) line. Removing a line that does not
// exist is a no-op.
func (s *service) RemoveItem(ctx context.Context, userID uuid.UUID, productID uuid.UUID, color string) (*models.Cart, error) {
	cart, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindItem(ctx, cart.ID, productID, strings.TrimSpace(color))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}

	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	return s.reload(ctx, userID)
}

// Clear removes every line from the active cart.
func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Quote prices the cart at current catalog prices and applies the coupon as
// an advisory discount. Pricing and eligibility are re-run at checkout; this
// result is for display only.
func (s *service) Quote(ctx context.Context, userID uuid.UUID, couponCode string) (*QuoteResult, error) {
	cart, err := s.GetActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	lines, subtotal, err := s.priceLines(ctx, cart)
	if err != nil {
		return nil, err
	}

	result := &QuoteResult{
		CartID: cart.ID,
		Items:  lines,
	}

	var discount int64
	if strings.TrimSpace(couponCode) != "" {
		coupon, granted, err := s.coupons.Validate(ctx, couponCode, subtotal, time.Now())
		if err != nil {
			return nil, err
		}
		discount = granted
		result.CouponCode = &coupon.Code
	}

	result.Pricing = s.pricer.Reconcile(subtotal, discount)
	return result, nil
}

func (s *service) priceLines(ctx context.Context, cart *models.Cart) ([]QuoteLine, int64, error) {
	lines := make([]QuoteLine, 0, len(cart.Items))
	var subtotal int64
	for _, item := range cart.Items {
		product := item.Product
		if product == nil {
			loaded, err := s.products.Get(ctx, item.ProductID)
			if err != nil {
				return nil, 0, err
			}
			product = loaded
		}
		if !product.IsActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product is no longer available").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}

		lineTotal := product.PriceCents * int64(item.Quantity)
		subtotal += lineTotal
		lines = append(lines, QuoteLine{
			ProductID:      product.ID,
			Title:          product.Title,
			Color:          item.Color,
			UnitPriceCents: product.PriceCents,
			Quantity:       item.Quantity,
			LineTotalCents: lineTotal,
		})
	}
	return lines, subtotal, nil
}

func (s *service) reload(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return cart, nil
}
