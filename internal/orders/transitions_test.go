package orders

import (
	"testing"

	"github.com/beloribh/belori-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
)

func TestRefundReachableFromEveryCapturedState(t *testing.T) {
	// A provider-side refund can arrive while the order is being packed or
	// is in transit, so every post-payment non-terminal state refunds.
	for _, from := range []enums.OrderStatus{
		enums.OrderStatusPaid,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
		enums.OrderStatusDelivered,
	} {
		assert.True(t, CanTransition(from, enums.OrderStatusRefunded), "from %s", from)
	}

	for _, from := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusCancelled,
		enums.OrderStatusRefunded,
	} {
		assert.False(t, CanTransition(from, enums.OrderStatusRefunded), "from %s", from)
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	for _, from := range []enums.OrderStatus{enums.OrderStatusCancelled, enums.OrderStatusRefunded} {
		for _, to := range []enums.OrderStatus{
			enums.OrderStatusPending,
			enums.OrderStatusPaid,
			enums.OrderStatusProcessing,
			enums.OrderStatusShipped,
			enums.OrderStatusDelivered,
		} {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}
