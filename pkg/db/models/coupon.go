package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
)

// Coupon is a redeemable discount. Value is a percentage (0-100) for
// percentage coupons and a cents amount for fixed coupons. StartDate and
// EndDate bound the redemption window inclusively at date granularity; a nil
// bound means unbounded on that side. UsageLimit nil means unlimited.
type Coupon struct {
	ID                  uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code                string           `gorm:"column:code;not null;uniqueIndex"`
	Description         *string          `gorm:"column:description"`
	Type                enums.CouponType `gorm:"column:type;type:text;not null"`
	Value               decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	MinOrderAmountCents *int64           `gorm:"column:min_order_amount_cents"`
	UsageLimit          *int             `gorm:"column:usage_limit"`
	UsedCount           int              `gorm:"column:used_count;not null;default:0"`
	IsActive            bool             `gorm:"column:is_active;not null;default:true"`
	StartDate           *time.Time       `gorm:"column:start_date;type:date"`
	EndDate             *time.Time       `gorm:"column:end_date;type:date"`
	IsDelete            bool             `gorm:"column:is_delete;not null;default:false"`
	Products            []Product        `gorm:"many2many:coupon_products"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Exhausted reports whether the usage limit has been reached.
func (c Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}
