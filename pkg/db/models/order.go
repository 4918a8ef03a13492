package models

import (
	"time"

	"github.com/beloribh/belori-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the lifecycle aggregate. Status transitions are guarded by the
// version column (optimistic locking) and, for the paid transition, by a
// conditional update on the current status.
type Order struct {
	ID              uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderNumber     string              `gorm:"type:varchar(16);not null;uniqueIndex" json:"order_number"`
	CustomerID      uuid.UUID           `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer        *Customer           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Status          enums.OrderStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PaymentStatus   enums.PaymentStatus `gorm:"type:varchar(20);not null;default:''" json:"payment_status"`
	PaymentID       string              `gorm:"type:varchar(64);index" json:"payment_id"`
	Subtotal        decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	ShippingCost    decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"shipping_cost"`
	Discount        decimal.Decimal     `gorm:"type:numeric(10,2);not null;default:0" json:"discount"`
	Total           decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"total"`
	ShippingMethod  string              `gorm:"type:varchar(20);not null" json:"shipping_method"`
	ShippingAddress string              `gorm:"type:text;not null" json:"shipping_address"`
	TrackingCode    string              `gorm:"type:varchar(64)" json:"tracking_code"`
	TrackingURL     string              `gorm:"type:text" json:"tracking_url"`
	Notes           string              `gorm:"type:text" json:"notes"`
	Version         int64               `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time           `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	ShippedAt       *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time          `json:"cancelled_at,omitempty"`

	Items  []OrderItem  `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Events []OrderEvent `gorm:"foreignKey:OrderID" json:"events,omitempty"`
}

func (Order) TableName() string { return "orders" }

// OrderItem snapshots the product at purchase time so later catalog edits
// never change what the customer bought.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Color       string          `gorm:"type:varchar(64)" json:"color"`
	Size        string          `gorm:"type:varchar(32)" json:"size"`
	ImageURL    string          `gorm:"type:text" json:"image_url"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderEvent is one row per status transition, append-only.
type OrderEvent struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrderID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"order_id"`
	FromStatus enums.OrderStatus `gorm:"type:varchar(20);not null" json:"from_status"`
	ToStatus   enums.OrderStatus `gorm:"type:varchar(20);not null" json:"to_status"`
	Reason     string            `gorm:"type:text" json:"reason,omitempty"`
	Actor      string            `gorm:"type:varchar(64);not null" json:"actor"`
	CreatedAt  time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

func (OrderEvent) TableName() string { return "order_events" }
