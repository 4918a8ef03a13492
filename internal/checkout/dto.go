package checkout

import (
	"github.com/beloribh/belori-backend/internal/cart"
	"github.com/beloribh/belori-backend/internal/shipping"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// CustomerInput is the buyer block on a checkout request.
type CustomerInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Document string `json:"document" validate:"required"`
}

// Input is the full checkout request after JSON decoding.
type Input struct {
	Customer       CustomerInput   `json:"customer" validate:"required"`
	Address        types.Address   `json:"address" validate:"required"`
	Items          []cart.Item     `json:"items" validate:"required,min=1,dive"`
	ShippingMethod shipping.Method `json:"shipping_method" validate:"required"`
	Discount       decimal.Decimal `json:"discount"`
	IdempotencyKey string          `json:"-"`
}

// Result carries the created order plus the provider redirect.
type Result struct {
	Order        *models.Order `json:"order"`
	PreferenceID string        `json:"preference_id"`
	InitPoint    string        `json:"init_point"`
}
