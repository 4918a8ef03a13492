package metrics

import "github.com/prometheus/client_golang/prometheus"

// PaymentMetrics tracks checkout and webhook reconciliation activity.
type PaymentMetrics struct {
	checkouts *prometheus.CounterVec
	webhooks  *prometheus.CounterVec
	statuses  *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_total",
		Help: "Payment webhook deliveries by outcome.",
	}, []string{"outcome"})
	statuses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transition_total",
		Help: "Order status transitions by target status.",
	}, []string{"status"})
	reg.MustRegister(checkouts, webhooks, statuses)
	return &PaymentMetrics{
		checkouts: checkouts,
		webhooks:  webhooks,
		statuses:  statuses,
	}
}

// IncCheckout increments the checkout counter for the given outcome.
func (p *PaymentMetrics) IncCheckout(outcome string) {
	if p == nil || p.checkouts == nil {
		return
	}
	p.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhook increments the webhook counter for the given outcome.
func (p *PaymentMetrics) IncWebhook(outcome string) {
	if p == nil || p.webhooks == nil {
		return
	}
	p.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncTransition increments the transition counter for the target status.
func (p *PaymentMetrics) IncTransition(status string) {
	if p == nil || p.statuses == nil {
		return
	}
	p.statuses.WithLabelValues(normalizeLabel(status)).Inc()
}
