package cron

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePendingReader struct {
	orders []models.Order
	cutoff time.Time
}

func (f *fakePendingReader) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.cutoff = cutoff
	return f.orders, nil
}

type fakeTransitioner struct {
	inputs []orders.TransitionInput
	errs   map[uuid.UUID]error
}

func (f *fakeTransitioner) Transition(ctx context.Context, input orders.TransitionInput) (*models.Order, error) {
	f.inputs = append(f.inputs, input)
	if err, ok := f.errs[input.OrderID]; ok {
		return nil, err
	}
	return &models.Order{ID: input.OrderID, Status: input.Target}, nil
}

func jobLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func stalePendingOrder(number string) models.Order {
	return models.Order{
		ID:          uuid.New(),
		OrderNumber: number,
		Status:      enums.OrderStatusPending,
	}
}

func TestPendingOrderJobCancelsStaleOrders(t *testing.T) {
	first := stalePendingOrder("BEL-100001")
	second := stalePendingOrder("BEL-100002")
	reader := &fakePendingReader{orders: []models.Order{first, second}}
	transitioner := &fakeTransitioner{}

	job, err := NewPendingOrderJob(PendingOrderJobParams{
		Logger:  jobLogger(),
		Pending: reader,
		Orders:  transitioner,
		TTL:     72 * time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))

	require.Len(t, transitioner.inputs, 2)
	for _, input := range transitioner.inputs {
		assert.Equal(t, enums.OrderStatusCancelled, input.Target)
		assert.Equal(t, cancelReasonAbandoned, input.Reason)
		assert.Equal(t, orders.ActorCron, input.Actor)
	}
	assert.WithinDuration(t, time.Now().UTC().Add(-72*time.Hour), reader.cutoff, 5*time.Second)
}

func TestPendingOrderJobSkipsOrdersPaidMeanwhile(t *testing.T) {
	paid := stalePendingOrder("BEL-100001")
	reader := &fakePendingReader{orders: []models.Order{paid}}
	transitioner := &fakeTransitioner{errs: map[uuid.UUID]error{
		paid.ID: pkgerrors.New(pkgerrors.CodeStateConflict, "order is now paid"),
	}}

	job, err := NewPendingOrderJob(PendingOrderJobParams{
		Logger:  jobLogger(),
		Pending: reader,
		Orders:  transitioner,
		TTL:     72 * time.Hour,
	})
	require.NoError(t, err)

	// The race with a payment webhook is expected, not a job failure.
	require.NoError(t, job.Run(context.Background()))
}

func TestPendingOrderJobReportsUnexpectedErrors(t *testing.T) {
	broken := stalePendingOrder("BEL-100001")
	healthy := stalePendingOrder("BEL-100002")
	reader := &fakePendingReader{orders: []models.Order{broken, healthy}}
	transitioner := &fakeTransitioner{errs: map[uuid.UUID]error{
		broken.ID: pkgerrors.New(pkgerrors.CodeInternal, "db down"),
	}}

	job, err := NewPendingOrderJob(PendingOrderJobParams{
		Logger:  jobLogger(),
		Pending: reader,
		Orders:  transitioner,
		TTL:     72 * time.Hour,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	// The healthy order is still processed.
	assert.Len(t, transitioner.inputs, 2)
}
