package enums

import "fmt"

// PaymentStatus mirrors the payment provider's last reported state for an
// order. Values follow Mercado Pago's payment status vocabulary.
type PaymentStatus string

const (
	PaymentStatusUnset     PaymentStatus = ""
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusInProcess PaymentStatus = "in_process"
	PaymentStatusRejected  PaymentStatus = "rejected"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

var paymentStatuses = map[PaymentStatus]struct{}{
	PaymentStatusApproved:  {},
	PaymentStatusPending:   {},
	PaymentStatusInProcess: {},
	PaymentStatusRejected:  {},
	PaymentStatusCancelled: {},
	PaymentStatusRefunded:  {},
}

func (s PaymentStatus) IsValid() bool {
	_, ok := paymentStatuses[s]
	return ok
}

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
	return status, nil
}
