package mpwebhook

import (
	"context"
	"fmt"

	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/mercadopago"
	"github.com/beloribh/belori-backend/pkg/metrics"
	"go.uber.org/multierr"
)

const notificationTypePayment = "payment"

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

type deduper interface {
	CheckAndMark(ctx context.Context, eventKey string) (bool, error)
	Release(ctx context.Context, eventKey string) error
}

// Service reconciles Mercado Pago payment notifications against orders.
type Service struct {
	orders   orders.Service
	payments paymentFetcher
	guard    deduper
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
}

// ServiceParams wires the webhook reconciler dependencies.
type ServiceParams struct {
	Orders   orders.Service
	Payments paymentFetcher
	Guard    deduper
	Logger   *logger.Logger
	Metrics  *metrics.PaymentMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments client required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		orders:   params.Orders,
		payments: params.Payments,
		guard:    params.Guard,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// HandleNotification processes one webhook delivery. The HTTP layer always
// replies 200 to Mercado Pago; errors returned here are for logging and
// the idempotency mark is released so a retry can reprocess the payment.
func (s *Service) HandleNotification(ctx context.Context, notification mercadopago.WebhookNotification) error {
	if notification.Type != notificationTypePayment {
		s.metrics.IncWebhook("ignored")
		return nil
	}
	paymentID := notification.Data.ID
	if paymentID == "" {
		s.metrics.IncWebhook("invalid")
		return pkgerrors.New(pkgerrors.CodeValidation, "notification has no payment id")
	}

	ctx = s.logg.WithPaymentID(ctx, paymentID)

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if err != nil {
		s.metrics.IncWebhook("error")
		return err
	}

	// Mercado Pago redelivers the same payment id as its status evolves
	// (pending, then approved), so the dedup key carries the fetched status:
	// only an exact redelivery is a duplicate.
	eventKey := paymentID + ":" + payment.Status
	duplicate, err := s.guard.CheckAndMark(ctx, eventKey)
	if err != nil {
		s.metrics.IncWebhook("error")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook dedup")
	}
	if duplicate {
		s.metrics.IncWebhook("duplicate")
		s.logg.Info(ctx, "duplicate webhook delivery skipped")
		return nil
	}

	if err := s.reconcile(ctx, paymentID, payment); err != nil {
		s.metrics.IncWebhook("error")
		if releaseErr := s.guard.Release(ctx, eventKey); releaseErr != nil {
			err = multierr.Append(err, fmt.Errorf("release idempotency mark: %w", releaseErr))
		}
		return err
	}

	s.metrics.IncWebhook("processed")
	return nil
}

func (s *Service) reconcile(ctx context.Context, paymentID string, payment *mercadopago.Payment) error {
	if payment.ExternalReference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment has no external reference")
	}

	order, err := s.orders.GetByNumber(ctx, payment.ExternalReference)
	if err != nil {
		return err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)

	switch payment.Status {
	case mercadopago.StatusApproved:
		result, err := s.orders.MarkPaid(ctx, orders.MarkPaidInput{
			OrderID:       order.ID,
			PaymentID:     paymentID,
			PaymentStatus: enums.PaymentStatusApproved,
			Actor:         orders.ActorWebhook,
		})
		if err != nil {
			return err
		}
		if !result.Transitioned {
			s.logg.Info(ctx, "payment approved for non-pending order, no transition")
		}
		return nil

	case mercadopago.StatusPending, mercadopago.StatusInProcess:
		return s.orders.UpdatePaymentStatus(ctx, order.ID, paymentID, enums.PaymentStatus(payment.Status))

	case mercadopago.StatusRejected:
		if err := s.orders.UpdatePaymentStatus(ctx, order.ID, paymentID, enums.PaymentStatusRejected); err != nil {
			return err
		}
		return s.transitionIgnoringState(ctx, orders.TransitionInput{
			OrderID: order.ID,
			Target:  enums.OrderStatusCancelled,
			Reason:  "payment rejected by provider",
			Actor:   orders.ActorWebhook,
		})

	case mercadopago.StatusCancelled:
		if err := s.orders.UpdatePaymentStatus(ctx, order.ID, paymentID, enums.PaymentStatusCancelled); err != nil {
			return err
		}
		return s.transitionIgnoringState(ctx, orders.TransitionInput{
			OrderID: order.ID,
			Target:  enums.OrderStatusCancelled,
			Reason:  "payment cancelled by provider",
			Actor:   orders.ActorWebhook,
		})

	case mercadopago.StatusRefunded:
		return s.transitionIgnoringState(ctx, orders.TransitionInput{
			OrderID: order.ID,
			Target:  enums.OrderStatusRefunded,
			Reason:  "payment refunded by provider",
			Actor:   orders.ActorWebhook,
		})

	default:
		s.logg.Warn(ctx, fmt.Sprintf("unhandled payment status %q", payment.Status))
		return nil
	}
}

// transitionIgnoringState applies a lifecycle move but swallows illegal
// transition errors: a refund webhook for an already refunded order is not a
// failure.
func (s *Service) transitionIgnoringState(ctx context.Context, input orders.TransitionInput) error {
	_, err := s.orders.Transition(ctx, input)
	if err == nil {
		return nil
	}
	if appErr := pkgerrors.As(err); appErr != nil && appErr.Code() == pkgerrors.CodeStateConflict {
		s.logg.Info(ctx, fmt.Sprintf("skip %s transition: %s", input.Target, appErr.Message()))
		return nil
	}
	return err
}
