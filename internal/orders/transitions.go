package orders

import (
	"fmt"
	"strings"

	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
)

// allowedTransitions is the full order state machine. Cancelled and refunded
// are absorbing.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:       {enums.OrderStatusProcessing, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled, enums.OrderStatusRefunded},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered, enums.OrderStatusRefunded},
	enums.OrderStatusDelivered:  {enums.OrderStatusRefunded},
	enums.OrderStatusCancelled:  {},
	enums.OrderStatusRefunded:   {},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// validateTransition enforces the state machine plus per-target guards.
func validateTransition(input TransitionInput, from enums.OrderStatus) error {
	if !input.Target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown order status %q", input.Target))
	}
	if !CanTransition(from, input.Target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, input.Target))
	}

	switch input.Target {
	case enums.OrderStatusShipped:
		if strings.TrimSpace(input.TrackingCode) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "tracking code is required to ship an order")
		}
	case enums.OrderStatusCancelled, enums.OrderStatusRefunded:
		if strings.TrimSpace(input.Reason) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a reason is required to mark an order %s", input.Target))
		}
	}
	return nil
}
