package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"go.uber.org/multierr"
)

const cancelReasonAbandoned = "payment not completed"

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderTransitioner interface {
	Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error)
}

// PendingOrderJobParams configure the abandoned checkout sweeper.
type PendingOrderJobParams struct {
	Logger  *logger.Logger
	Pending pendingOrderReader
	Orders  orderTransitioner
	TTL     time.Duration
}

// NewPendingOrderJob builds the job that cancels orders whose payment never
// arrived. The TTL gives buyers time to finish a boleto or a slow Pix before
// the order goes away.
func NewPendingOrderJob(params PendingOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Pending == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.TTL <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}
	return &pendingOrderJob{
		logg:    params.Logger,
		pending: params.Pending,
		orders:  params.Orders,
		ttl:     params.TTL,
		now:     time.Now,
	}, nil
}

type pendingOrderJob struct {
	logg    *logger.Logger
	pending pendingOrderReader
	orders  orderTransitioner
	ttl     time.Duration
	now     func() time.Time
}

func (j *pendingOrderJob) Name() string { return "pending-order-sweep" }

func (j *pendingOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.pending.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs error
	cancelled := 0
	for _, order := range stale {
		if err := j.cancelOrder(ctx, order); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel %s: %w", order.OrderNumber, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"found": len(stale), "cancelled": cancelled})
	j.logg.Info(logCtx, "pending order sweep complete")
	return errs
}

func (j *pendingOrderJob) cancelOrder(ctx context.Context, order models.Order) error {
	_, err := j.orders.Transition(ctx, orders.TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCancelled,
		Reason:  cancelReasonAbandoned,
		Actor:   orders.ActorCron,
	})
	if err == nil {
		return nil
	}
	// A webhook may have paid or cancelled the order between the query and
	// this transition. That is not a sweep failure.
	if appErr := pkgerrors.As(err); appErr != nil {
		switch appErr.Code() {
		case pkgerrors.CodeStateConflict, pkgerrors.CodeConflict, pkgerrors.CodeNotFound:
			j.logg.Info(j.logg.WithOrderNumber(ctx, order.OrderNumber), "skip sweep: "+appErr.Message())
			return nil
		}
	}
	return err
}
