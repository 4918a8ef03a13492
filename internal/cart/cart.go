// Package cart normalizes the client-submitted cart before checkout. The
// storefront keeps the cart in the browser; the backend only ever sees it as
// the item list on a checkout request.
package cart

import (
	"fmt"

	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one cart line as submitted by the storefront.
type Item struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Color     string    `json:"color"`
	Size      string    `json:"size"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// variantKey identifies a cart line. The same product in another color or
// size is a separate line.
type variantKey struct {
	productID uuid.UUID
	color     string
	size      string
}

// Normalize merges duplicate (product, color, size) lines by summing their
// quantities and rejects non-positive quantities. Line order follows the
// first occurrence of each variant.
func Normalize(items []Item) ([]Item, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	merged := make(map[variantKey]int, len(items))
	order := make([]variantKey, 0, len(items))

	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: product id is required", i))
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i))
		}
		key := variantKey{productID: item.ProductID, color: item.Color, size: item.Size}
		if _, seen := merged[key]; !seen {
			order = append(order, key)
		}
		merged[key] += item.Quantity
	}

	normalized := make([]Item, 0, len(order))
	for _, key := range order {
		normalized = append(normalized, Item{
			ProductID: key.productID,
			Color:     key.color,
			Size:      key.size,
			Quantity:  merged[key],
		})
	}
	return normalized, nil
}

// Subtotal sums unit price times quantity for each line using exact decimals.
func Subtotal(items []Item, prices map[uuid.UUID]decimal.Decimal) (decimal.Decimal, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		price, ok := prices[item.ProductID]
		if !ok {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no price for product %s", item.ProductID))
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return subtotal, nil
}

// ProductIDs returns the distinct product IDs referenced by the cart.
func ProductIDs(items []Item) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.ProductID]; dup {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
