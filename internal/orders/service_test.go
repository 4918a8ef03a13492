package orders

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/beloribh/belori-backend/internal/products"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubOrdersRepo struct {
	mu     sync.Mutex
	order  *models.Order
	items  []models.OrderItem
	events []models.OrderEvent
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.order = order
	return order, nil
}

func (s *stubOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *stubOrdersRepo) CreateEvent(ctx context.Context, event *models.OrderEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.OrderNumber != orderNumber {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrdersRepo) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	return s.items, nil
}

func (s *stubOrdersRepo) FindEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.OrderEvent(nil), s.events...), nil
}

func (s *stubOrdersRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string, paymentStatus enums.PaymentStatus, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.ID != orderID || s.order.Status != enums.OrderStatusPending {
		return false, nil
	}
	s.order.Status = enums.OrderStatusPaid
	s.order.PaymentStatus = paymentStatus
	s.order.PaymentID = paymentID
	s.order.PaidAt = &paidAt
	s.order.Version++
	return true, nil
}

func (s *stubOrdersRepo) UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, version int64, updates map[string]any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.ID != orderID || s.order.Status != from || s.order.Version != version {
		return false, nil
	}
	s.order.Status = to
	s.order.Version++
	if code, ok := updates["tracking_code"].(string); ok {
		s.order.TrackingCode = code
	}
	if url, ok := updates["tracking_url"].(string); ok {
		s.order.TrackingURL = url
	}
	return true, nil
}

func (s *stubOrdersRepo) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID string, status enums.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order.PaymentStatus = status
	s.order.PaymentID = paymentID
	return nil
}

func (s *stubOrdersRepo) AppendNote(ctx context.Context, orderID uuid.UUID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order.Notes == "" {
		s.order.Notes = note
	} else {
		s.order.Notes += "\n" + note
	}
	return nil
}

type stubProductsRepo struct {
	mu         sync.Mutex
	decrements map[uuid.UUID]int
	restores   map[uuid.UUID]int
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) products.Repository { return s }

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.decrements == nil {
		s.decrements = map[uuid.UUID]int{}
	}
	s.decrements[id] += qty
	return nil
}

func (s *stubProductsRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restores == nil {
		s.restores = map[uuid.UUID]int{}
	}
	s.restores[id] += qty
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})
}

func newTestService(t *testing.T, repo *stubOrdersRepo, productRepo *stubProductsRepo) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		Repo:        repo,
		ProductRepo: productRepo,
		Tx:          stubTxRunner{},
		Logger:      testLogger(),
	})
	require.NoError(t, err)
	return svc
}

func pendingOrder(productID uuid.UUID) (*models.Order, []models.OrderItem) {
	orderID := uuid.New()
	order := &models.Order{
		ID:          orderID,
		OrderNumber: "BEL-100001",
		Status:      enums.OrderStatusPending,
		Version:     1,
	}
	items := []models.OrderItem{{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  2,
	}}
	return order, items
}

func TestMarkPaidDecrementsStockOnce(t *testing.T) {
	productID := uuid.New()
	order, items := pendingOrder(productID)
	repo := &stubOrdersRepo{order: order, items: items}
	productRepo := &stubProductsRepo{}
	svc := newTestService(t, repo, productRepo)

	result, err := svc.MarkPaid(context.Background(), MarkPaidInput{
		OrderID:       order.ID,
		PaymentID:     "987654",
		PaymentStatus: enums.PaymentStatusApproved,
	})
	require.NoError(t, err)
	require.True(t, result.Transitioned)
	assert.Equal(t, enums.OrderStatusPaid, result.Order.Status)
	assert.Equal(t, 2, productRepo.decrements[productID])

	// Duplicate confirmation is a no-op: no second decrement, no event.
	again, err := svc.MarkPaid(context.Background(), MarkPaidInput{
		OrderID:       order.ID,
		PaymentID:     "987654",
		PaymentStatus: enums.PaymentStatusApproved,
	})
	require.NoError(t, err)
	require.False(t, again.Transitioned)
	assert.Equal(t, 2, productRepo.decrements[productID])
	assert.Len(t, repo.events, 1)
}

func TestMarkPaidConcurrentConfirmationsDecrementOnce(t *testing.T) {
	productID := uuid.New()
	order, items := pendingOrder(productID)
	repo := &stubOrdersRepo{order: order, items: items}
	productRepo := &stubProductsRepo{}
	svc := newTestService(t, repo, productRepo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.MarkPaid(context.Background(), MarkPaidInput{
				OrderID:       order.ID,
				PaymentID:     "987654",
				PaymentStatus: enums.PaymentStatusApproved,
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, productRepo.decrements[productID])
	assert.Len(t, repo.events, 1)
}

func TestTransitionShipRequiresTrackingCode(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: "BEL-100002", Status: enums.OrderStatusProcessing, Version: 1}
	repo := &stubOrdersRepo{order: order}
	svc := newTestService(t, repo, &stubProductsRepo{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusShipped,
		Actor:   "admin@belori.com.br",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestTransitionCancelRequiresReason(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: "BEL-100003", Status: enums.OrderStatusPending, Version: 1}
	repo := &stubOrdersRepo{order: order}
	svc := newTestService(t, repo, &stubProductsRepo{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCancelled,
		Actor:   "admin@belori.com.br",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestTransitionRejectsIllegalMove(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: "BEL-100004", Status: enums.OrderStatusDelivered, Version: 1}
	repo := &stubOrdersRepo{order: order}
	svc := newTestService(t, repo, &stubProductsRepo{})

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusProcessing,
		Actor:   "admin@belori.com.br",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestTransitionShipRecordsTrackingAndEvent(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: "BEL-100005", Status: enums.OrderStatusProcessing, Version: 1}
	repo := &stubOrdersRepo{order: order}
	svc := newTestService(t, repo, &stubProductsRepo{})

	updated, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:      order.ID,
		Target:       enums.OrderStatusShipped,
		TrackingCode: "BR123456789XX",
		TrackingURL:  "https://rastreamento.correios.com.br/app/index.php?objetos=BR123456789XX",
		Actor:        "admin@belori.com.br",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.Status)
	assert.Equal(t, "BR123456789XX", updated.TrackingCode)
	assert.Equal(t, "https://rastreamento.correios.com.br/app/index.php?objetos=BR123456789XX", updated.TrackingURL)

	require.Len(t, repo.events, 1)
	assert.Equal(t, enums.OrderStatusProcessing, repo.events[0].FromStatus)
	assert.Equal(t, enums.OrderStatusShipped, repo.events[0].ToStatus)
}

func TestTransitionCancelPaidOrderRestocks(t *testing.T) {
	productID := uuid.New()
	orderID := uuid.New()
	order := &models.Order{ID: orderID, OrderNumber: "BEL-100006", Status: enums.OrderStatusPaid, Version: 1}
	repo := &stubOrdersRepo{
		order: order,
		items: []models.OrderItem{{ID: uuid.New(), OrderID: orderID, ProductID: productID, Quantity: 3}},
	}
	productRepo := &stubProductsRepo{}
	svc := newTestService(t, repo, productRepo)

	_, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCancelled,
		Reason:  "customer gave up",
		Actor:   "admin@belori.com.br",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, productRepo.restores[productID])
}

func TestTransitionConcurrentEditReturnsConflict(t *testing.T) {
	order := &models.Order{ID: uuid.New(), OrderNumber: "BEL-100007", Status: enums.OrderStatusPaid, Version: 5}
	repo := &stubOrdersRepo{order: order}

	// Another admin bumps the version between read and write.
	casRepo := &versionBumpRepo{stubOrdersRepo: repo}
	svc, err := NewService(ServiceParams{
		Repo:        casRepo,
		ProductRepo: &stubProductsRepo{},
		Tx:          stubTxRunner{},
		Logger:      testLogger(),
	})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusProcessing,
		Actor:   "admin@belori.com.br",
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

// versionBumpRepo simulates a concurrent writer that bumps the version after
// every read so the CAS update always misses.
type versionBumpRepo struct {
	*stubOrdersRepo
}

func (r *versionBumpRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *versionBumpRepo) UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, version int64, updates map[string]any) (bool, error) {
	r.mu.Lock()
	r.order.Version++
	r.mu.Unlock()
	return false, nil
}
