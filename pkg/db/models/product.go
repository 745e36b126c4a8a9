package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product represents a storefront listing. Colors enumerates the purchasable
// variants; cart lines reference one of them.
type Product struct {
	ID                  uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU                 string         `gorm:"column:sku;not null;uniqueIndex"`
	Title               string         `gorm:"column:title;not null"`
	Description         *string        `gorm:"column:description"`
	Category            *string        `gorm:"column:category"`
	Colors              pq.StringArray `gorm:"column:colors;type:text[];not null;default:ARRAY[]::text[]"`
	PriceCents          int64          `gorm:"column:price_cents;not null"`
	CompareAtPriceCents *int64         `gorm:"column:compare_at_price_cents"`
	FeaturedImage       *string        `gorm:"column:featured_image"`
	IsActive            bool           `gorm:"column:is_active;not null;default:true"`
	IsFeatured          bool           `gorm:"column:is_featured;not null;default:false"`
	CreatedAt           time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// HasColor reports whether the color is a declared variant of the product.
func (p Product) HasColor(color string) bool {
	for _, candidate := range p.Colors {
		if candidate == color {
			return true
		}
	}
	return false
}
