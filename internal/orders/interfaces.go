package orders

import (
	"context"
	"time"

	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	"github.com/beloribh/belori-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	CreateEvent(ctx context.Context, event *models.OrderEvent) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	FindEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderEvent, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*OrderList, error)
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	// MarkPaid flips a pending order to paid in one conditional update and
	// reports whether this call performed the transition.
	MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string, paymentStatus enums.PaymentStatus, paidAt time.Time) (bool, error)
	// UpdateStatusCAS applies a guarded transition keyed on the current
	// status and version; zero rows affected means a concurrent writer won.
	UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, version int64, updates map[string]any) (bool, error)
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID string, status enums.PaymentStatus) error
	// AppendNote adds a line to the order's free-text audit notes.
	AppendNote(ctx context.Context, orderID uuid.UUID, note string) error
}
