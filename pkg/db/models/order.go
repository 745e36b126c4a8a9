package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hoangtran-dev/shopora-backend/pkg/enums"
	"github.com/hoangtran-dev/shopora-backend/pkg/types"
)

// Order is an immutable snapshot of a converted cart. Monetary columns are
// cents; FinalTotalCents may be negative when an uncapped fixed coupon
// exceeds the subtotal.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CouponID         *uuid.UUID        `gorm:"column:coupon_id;type:uuid"`
	CouponCode       *string           `gorm:"column:coupon_code"`
	ShippingAddress  types.Address     `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	TotalPriceCents  int64             `gorm:"column:total_price_cents;not null"`
	DiscountCents    int64             `gorm:"column:discount_cents;not null;default:0"`
	ShippingFeeCents int64             `gorm:"column:shipping_fee_cents;not null;default:0"`
	FinalTotalCents  int64             `gorm:"column:final_total_cents;not null"`
	Items            []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem freezes the product title, color and unit price at checkout
// time so later catalog edits never rewrite order history.
type OrderLineItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	Title          string     `gorm:"column:title;not null"`
	Color          string     `gorm:"column:color;not null"`
	UnitPriceCents int64      `gorm:"column:unit_price_cents;not null"`
	Quantity       int        `gorm:"column:quantity;not null"`
	LineTotalCents int64      `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}
