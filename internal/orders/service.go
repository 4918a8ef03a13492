package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/beloribh/belori-backend/internal/products"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/metrics"
	"github.com/beloribh/belori-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ActorWebhook tags transitions driven by payment notifications rather than
// an admin user.
const (
	ActorWebhook = "webhook"
	ActorCron    = "cron"
)

// Service defines order lifecycle operations beyond repository reads.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	History(ctx context.Context, id uuid.UUID) ([]models.OrderEvent, error)
	MarkPaid(ctx context.Context, input MarkPaidInput) (*MarkPaidResult, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID string, status enums.PaymentStatus) error
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
	logg     *logger.Logger
	metrics  *metrics.PaymentMetrics
	now      func() time.Time
}

// ServiceParams wires the order service dependencies.
type ServiceParams struct {
	Repo        Repository
	ProductRepo products.Repository
	Tx          txRunner
	Logger      *logger.Logger
	Metrics     *metrics.PaymentMetrics
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.ProductRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		products: params.ProductRepo,
		tx:       params.Tx,
		logg:     params.Logger,
		metrics:  params.Metrics,
		now:      time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	return s.repo.FindByOrderNumber(ctx, orderNumber)
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	return s.repo.List(ctx, params, filters)
}

func (s *service) History(ctx context.Context, id uuid.UUID) ([]models.OrderEvent, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.FindEventsByOrder(ctx, id)
}

// MarkPaid performs the pending->paid transition and decrements stock for
// every line item. Both the webhook reconciler and manual admin confirmation
// call this path, so a second confirmation for the same order is a no-op.
func (s *service) MarkPaid(ctx context.Context, input MarkPaidInput) (*MarkPaidResult, error) {
	order, err := s.resolve(ctx, input.OrderID, input.OrderNumber)
	if err != nil {
		return nil, err
	}

	paymentStatus := input.PaymentStatus
	if paymentStatus == enums.PaymentStatusUnset {
		paymentStatus = enums.PaymentStatusApproved
	}
	actor := input.Actor
	if actor == "" {
		actor = ActorWebhook
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)

	var transitioned bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.MarkPaid(ctx, order.ID, input.PaymentID, paymentStatus, s.now())
		if err != nil {
			return err
		}
		if !ok {
			// Already paid or no longer pending; nothing to do.
			return nil
		}
		transitioned = true

		items, err := repo.FindItemsByOrder(ctx, order.ID)
		if err != nil {
			return err
		}

		productRepo := s.products.WithTx(tx)
		var decrementErr error
		for _, item := range items {
			if err := productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				decrementErr = multierr.Append(decrementErr, fmt.Errorf("product %s: %w", item.ProductID, err))
			}
		}
		if decrementErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, decrementErr, "decrement stock")
		}

		return repo.CreateEvent(ctx, &models.OrderEvent{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FromStatus: enums.OrderStatusPending,
			ToStatus:   enums.OrderStatusPaid,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}

	if transitioned {
		s.metrics.IncTransition(string(enums.OrderStatusPaid))
		s.logg.Info(ctx, "order marked paid")
	} else {
		s.logg.Info(ctx, "paid transition skipped, order not pending")
	}

	updated, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &MarkPaidResult{Order: updated, Transitioned: transitioned}, nil
}

// UpdatePaymentStatus records the provider's latest verdict without moving
// the order lifecycle. Rejected and in-process payments land here.
func (s *service) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID string, status enums.PaymentStatus) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.UpdatePaymentStatus(ctx, orderID, paymentID, status)
}

// Transition moves an order through the fulfillment state machine with an
// optimistic-lock guard against concurrent admin edits.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if err := validateTransition(input, order.Status); err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)
	updates := s.transitionUpdates(input)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ok, err := repo.UpdateStatusCAS(ctx, order.ID, order.Status, input.Target, order.Version, updates)
		if err != nil {
			return err
		}
		if !ok {
			return s.concurrencyError(ctx, repo, order)
		}

		if input.Target == enums.OrderStatusCancelled && stockWasCommitted(order.Status) {
			items, err := repo.FindItemsByOrder(ctx, order.ID)
			if err != nil {
				return err
			}
			productRepo := s.products.WithTx(tx)
			for _, item := range items {
				if err := productRepo.RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}

		return repo.CreateEvent(ctx, &models.OrderEvent{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   input.Target,
			Reason:     input.Reason,
			Actor:      input.Actor,
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(string(input.Target))
	s.logg.Info(ctx, fmt.Sprintf("order moved to %s", input.Target))

	return s.repo.FindByID(ctx, order.ID)
}

// stockWasCommitted reports whether stock was already decremented for the
// order's current status. Cancelling a paid or processing order puts the
// units back; refunds do not restock.
func stockWasCommitted(status enums.OrderStatus) bool {
	return status == enums.OrderStatusPaid || status == enums.OrderStatusProcessing
}

func (s *service) transitionUpdates(input TransitionInput) map[string]any {
	updates := map[string]any{}
	now := s.now()
	switch input.Target {
	case enums.OrderStatusShipped:
		updates["tracking_code"] = input.TrackingCode
		updates["tracking_url"] = input.TrackingURL
		updates["shipped_at"] = now
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = now
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = now
	case enums.OrderStatusRefunded:
		updates["payment_status"] = enums.PaymentStatusRefunded
	}
	return updates
}

// concurrencyError distinguishes a lost version race from a state change made
// by another writer between our read and write.
func (s *service) concurrencyError(ctx context.Context, repo Repository, stale *models.Order) error {
	current, err := repo.FindByID(ctx, stale.ID)
	if err != nil {
		return err
	}
	if current.Status != stale.Status {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is now %s", current.Status))
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently, retry")
}

func (s *service) resolve(ctx context.Context, id uuid.UUID, orderNumber string) (*models.Order, error) {
	if id != uuid.Nil {
		return s.repo.FindByID(ctx, id)
	}
	if orderNumber != "" {
		return s.repo.FindByOrderNumber(ctx, orderNumber)
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id or number required")
}
