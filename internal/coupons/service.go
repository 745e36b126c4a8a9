package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hoangtran-dev/shopora-backend/pkg/db/models"
	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
	pkgerrors "github.com/hoangtran-dev/shopora-backend/pkg/errors"
	"github.com/hoangtran-dev/shopora-backend/pkg/pagination"
)

var oneHundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes coupon lookup, eligibility and lifecycle operations.
type Service interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Validate(ctx context.Context, code string, orderTotalCents int64, now time.Time) (*models.Coupon, int64, error)
	Redeem(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Create(ctx context.Context, input CouponInput) (*models.Coupon, error)
	Update(ctx context.Context, id uuid.UUID, input CouponInput) (*models.Coupon, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	List(ctx context.Context, params pagination.Params) ([]models.Coupon, string, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a coupon service backed by the provided stack.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// CouponInput captures the payload for creating or updating a coupon.
type CouponInput struct {
	Code                string
	Description         *string
	Type                enums.CouponType
	Value               decimal.Decimal
	MinOrderAmountCents *int64
	UsageLimit          *int
	IsActive            bool
	StartDate           *time.Time
	EndDate             *time.Time
	ProductIDs          []uuid.UUID
}

// NormalizeCode canonicalizes user-entered coupon codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// FindByCode loads a coupon by its canonical code. Soft-deleted and inactive
// coupons are reported as not found.
func (s *service) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon.IsDelete || !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return coupon, nil
}

// Validate resolves a code and checks it against the order total, returning
// the coupon together with the discount it grants.
func (s *service) Validate(ctx context.Context, code string, orderTotalCents int64, now time.Time) (*models.Coupon, int64, error) {
	coupon, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, 0, err
	}
	if err := EligibleForOrder(coupon, orderTotalCents, now); err != nil {
		return nil, 0, err
	}
	return coupon, DiscountFor(coupon, orderTotalCents), nil
}

// EligibleForOrder checks every redemption precondition for the coupon
// against the order total at the given instant. Date bounds are inclusive at
// UTC-date granularity: a coupon ending 2025-01-31 is still valid anywhere in
// that day and invalid from 2025-02-01.
func EligibleForOrder(coupon *models.Coupon, orderTotalCents int64, now time.Time) error {
	if coupon.IsDelete {
		return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	if !coupon.IsActive {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if coupon.Exhausted() {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit reached")
	}

	today := truncateToDate(now.UTC())
	if coupon.StartDate != nil && today.Before(truncateToDate(coupon.StartDate.UTC())) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon is not yet active")
	}
	if coupon.EndDate != nil && today.After(truncateToDate(coupon.EndDate.UTC())) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon has expired")
	}

	if coupon.MinOrderAmountCents != nil && orderTotalCents < *coupon.MinOrderAmountCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "order total below coupon minimum")
	}
	return nil
}

// DiscountFor computes the discount the coupon grants on the order total.
// Percentage discounts floor to whole cents. Fixed discounts apply at face
// value even when they exceed the order total. A type value that is neither
// percentage nor fixed takes the fixed path, so a row with an unrecognized
// type still discounts at face value rather than silently granting nothing.
func DiscountFor(coupon *models.Coupon, orderTotalCents int64) int64 {
	var discount decimal.Decimal
	switch coupon.Type {
	case enums.CouponTypePercentage:
		discount = decimal.NewFromInt(orderTotalCents).Mul(coupon.Value).Div(oneHundred).Floor()
	default:
		discount = coupon.Value.Floor()
	}

	cents := discount.IntPart()
	if cents < 0 {
		return 0
	}
	return cents
}

// Redeem increments the coupon's usage inside the caller's transaction. It
// fails with a conflict when the usage limit was consumed by a concurrent
// checkout.
func (s *service) Redeem(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}

	updated, err := s.repo.WithTx(tx).IncrementUsage(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
	}
	if !updated {
		return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}
	return nil
}

// Create validates and persists a new coupon along with its product scope.
func (s *service) Create(ctx context.Context, input CouponInput) (*models.Coupon, error) {
	normalized, err := validateInput(&input)
	if err != nil {
		return nil, err
	}

	coupon := &models.Coupon{
		Code:                normalized,
		Description:         input.Description,
		Type:                input.Type,
		Value:               input.Value,
		MinOrderAmountCents: input.MinOrderAmountCents,
		UsageLimit:          input.UsageLimit,
		IsActive:            input.IsActive,
		StartDate:           input.StartDate,
		EndDate:             input.EndDate,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		created, err := txRepo.Create(ctx, coupon)
		if err != nil {
			return err
		}
		if len(input.ProductIDs) > 0 {
			return txRepo.ReplaceProducts(ctx, created, productRefs(input.ProductIDs))
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist coupon")
	}
	return coupon, nil
}

// Update rewrites the coupon's mutable fields. Code and used_count are never
// changed after creation.
func (s *service) Update(ctx context.Context, id uuid.UUID, input CouponInput) (*models.Coupon, error) {
	if _, err := validateInput(&input); err != nil {
		return nil, err
	}

	coupon, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	coupon.Description = input.Description
	coupon.Type = input.Type
	coupon.Value = input.Value
	coupon.MinOrderAmountCents = input.MinOrderAmountCents
	coupon.UsageLimit = input.UsageLimit
	coupon.IsActive = input.IsActive
	coupon.StartDate = input.StartDate
	coupon.EndDate = input.EndDate

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.Update(ctx, coupon); err != nil {
			return err
		}
		return txRepo.ReplaceProducts(ctx, coupon, productRefs(input.ProductIDs))
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist coupon")
	}
	return coupon, nil
}

// Delete soft-deletes the coupon; existing orders keep their snapshot.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete coupon")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon id is required")
	}
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if coupon.IsDelete {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found")
	}
	return coupon, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Coupon, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	coupons, err := s.repo.List(ctx, limit+1, cursor, false)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list coupons")
	}

	next := ""
	if len(coupons) > limit {
		coupons = coupons[:limit]
		last := coupons[len(coupons)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return coupons, next, nil
}

func validateInput(input *CouponInput) (string, error) {
	normalized := NormalizeCode(input.Code)
	if normalized == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}
	if !input.Type.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon type")
	}
	if input.Value.IsNegative() || input.Value.IsZero() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "coupon value must be positive")
	}
	if input.Type == enums.CouponTypePercentage && input.Value.GreaterThan(oneHundred) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "percentage value cannot exceed 100")
	}
	if input.MinOrderAmountCents != nil && *input.MinOrderAmountCents < 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "minimum order amount must be non-negative")
	}
	if input.UsageLimit != nil && *input.UsageLimit <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "usage limit must be positive")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "end date must not precede start date")
	}
	input.Code = normalized
	return normalized, nil
}

func productRefs(ids []uuid.UUID) []models.Product {
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		products = append(products, models.Product{ID: id})
	}
	return products
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
