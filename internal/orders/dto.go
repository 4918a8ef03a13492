package orders

import (
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	"github.com/google/uuid"
)

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status        enums.OrderStatus
	PaymentStatus enums.PaymentStatus
	CustomerEmail string
}

// OrderList is one page of orders plus the cursor for the next page.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// MarkPaidInput identifies the order and the provider payment confirming it.
type MarkPaidInput struct {
	OrderID       uuid.UUID
	OrderNumber   string
	PaymentID     string
	PaymentStatus enums.PaymentStatus
	Actor         string
}

// MarkPaidResult reports whether this call performed the paid transition.
// Duplicate confirmations return Transitioned=false with no side effects.
type MarkPaidResult struct {
	Order        *models.Order
	Transitioned bool
}

// TransitionInput drives the admin fulfillment transitions. TrackingURL is
// optional; the carrier link can be added later or never.
type TransitionInput struct {
	OrderID      uuid.UUID
	Target       enums.OrderStatus
	TrackingCode string
	TrackingURL  string
	Reason       string
	Actor        string
}
