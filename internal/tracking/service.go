// Package tracking serves the public "where is my order" lookup. The email
// listing masks customer data; the order-number lookup shows the order to
// the customer who placed it, in full.
package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/pagination"
	"github.com/shopspring/decimal"
)

// ItemView is one purchased line on the public tracking page.
type ItemView struct {
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Color       string          `json:"color,omitempty"`
	Size        string          `json:"size,omitempty"`
}

// View is the public projection of an order.
type View struct {
	OrderNumber   string            `json:"order_number"`
	Status        enums.OrderStatus `json:"status"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	Items         []ItemView        `json:"items"`
	Total         decimal.Decimal   `json:"total"`
	TrackingCode  string            `json:"tracking_code,omitempty"`
	TrackingURL   string            `json:"tracking_url,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	ShippedAt     *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt   *time.Time        `json:"delivered_at,omitempty"`
}

// Service resolves order numbers or customer emails into public views.
type Service interface {
	Track(ctx context.Context, orderNumber string) (*View, error)
	// TrackByEmail returns every order for the email, newest first. No
	// matching orders is a valid outcome and yields an empty slice.
	TrackByEmail(ctx context.Context, email string) ([]View, error)
}

type service struct {
	orders orders.Service
}

// NewService builds the tracking service.
func NewService(orderSvc orders.Service) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &service{orders: orderSvc}, nil
}

func (s *service) Track(ctx context.Context, orderNumber string) (*View, error) {
	trimmed := strings.TrimSpace(strings.ToUpper(orderNumber))
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}

	order, err := s.orders.GetByNumber(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	return buildView(order, false), nil
}

func (s *service) TrackByEmail(ctx context.Context, email string) ([]View, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" || !strings.Contains(trimmed, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}

	list, err := s.orders.List(ctx, pagination.Params{Limit: pagination.MaxLimit}, orders.ListFilters{
		CustomerEmail: trimmed,
	})
	if err != nil {
		return nil, err
	}

	// Line items stay off the listing; the customer opens one order and the
	// order-number lookup loads its items.
	views := make([]View, 0, len(list.Orders))
	for i := range list.Orders {
		views = append(views, *buildView(&list.Orders[i], true))
	}
	return views, nil
}

// buildView projects an order for the public page. The email listing is
// reachable knowing only an address, so it masks the customer; the
// order-number lookup requires the number from the confirmation email and
// shows the order as placed.
func buildView(order *models.Order, masked bool) *View {
	view := &View{
		OrderNumber:  order.OrderNumber,
		Status:       order.Status,
		Total:        order.Total,
		TrackingCode: order.TrackingCode,
		TrackingURL:  order.TrackingURL,
		CreatedAt:    order.CreatedAt,
		PaidAt:       order.PaidAt,
		ShippedAt:    order.ShippedAt,
		DeliveredAt:  order.DeliveredAt,
	}
	if order.Customer != nil {
		if masked {
			view.CustomerName = firstName(order.Customer.Name)
			view.CustomerEmail = MaskEmail(order.Customer.Email)
		} else {
			view.CustomerName = order.Customer.Name
			view.CustomerEmail = order.Customer.Email
		}
	}
	view.Items = make([]ItemView, 0, len(order.Items))
	for _, item := range order.Items {
		view.Items = append(view.Items, ItemView{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Color:       item.Color,
			Size:        item.Size,
		})
	}
	return view
}

// MaskEmail hides most of the local part: joana@example.com becomes
// jo***@example.com.
func MaskEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	local := email[:at]
	keep := 2
	if len(local) < keep {
		keep = 1
	}
	return local[:keep] + "***" + email[at:]
}

// firstName keeps only the given name on the public page.
func firstName(full string) string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
