package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is a catalog item. Colors and sizes are the variant axes; stock is
// tracked per product, not per variant.
type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Slug          string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	ImageURL      string          `gorm:"type:text" json:"image_url"`
	Colors        pq.StringArray  `gorm:"type:text[]" json:"colors"`
	Sizes         pq.StringArray  `gorm:"type:text[]" json:"sizes"`
	StockQuantity int             `gorm:"not null;default:0" json:"stock_quantity"`
	Active        bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "products" }
