package checkout

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beloribh/belori-backend/internal/cart"
	"github.com/beloribh/belori-backend/internal/customers"
	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/internal/products"
	"github.com/beloribh/belori-backend/internal/shipping"
	"github.com/beloribh/belori-backend/pkg/config"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/mercadopago"
	"github.com/beloribh/belori-backend/pkg/ordernumber"
	"github.com/beloribh/belori-backend/pkg/pagination"
	"github.com/beloribh/belori-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubOrdersRepo struct {
	created *models.Order
	items   []models.OrderItem
	notes   []string
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	s.created = order
	return order, nil
}

func (s *stubOrdersRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *stubOrdersRepo) CreateEvent(ctx context.Context, event *models.OrderEvent) error { return nil }

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindEventsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderEvent, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) List(ctx context.Context, params pagination.Params, filters orders.ListFilters) (*orders.OrderList, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) MarkPaid(ctx context.Context, orderID uuid.UUID, paymentID string, paymentStatus enums.PaymentStatus, paidAt time.Time) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdateStatusCAS(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, version int64, updates map[string]any) (bool, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, paymentID string, status enums.PaymentStatus) error {
	panic("not implemented")
}

func (s *stubOrdersRepo) AppendNote(ctx context.Context, orderID uuid.UUID, note string) error {
	s.notes = append(s.notes, note)
	return nil
}

type stubProductsRepo struct {
	products []models.Product
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) products.Repository { return s }

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	return s.products, nil
}

func (s *stubProductsRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	panic("not implemented")
}

func (s *stubProductsRepo) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	panic("not implemented")
}

type stubCustomersRepo struct{}

func (s *stubCustomersRepo) WithTx(tx *gorm.DB) customers.Repository { return s }

func (s *stubCustomersRepo) UpsertByEmail(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	return customer, nil
}

func (s *stubCustomersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	panic("not implemented")
}

func (s *stubCustomersRepo) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	panic("not implemented")
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubPayments struct {
	request mercadopago.PreferenceRequest
	key     string
	err     error
}

func (s *stubPayments) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest, idempotencyKey string) (*mercadopago.Preference, error) {
	s.request = req
	s.key = idempotencyKey
	if s.err != nil {
		return nil, s.err
	}
	return &mercadopago.Preference{
		ID:                "pref_123",
		InitPoint:         "https://mp.test/init",
		ExternalReference: req.ExternalReference,
	}, nil
}

func testGenerator(t *testing.T) *ordernumber.Generator {
	t.Helper()

	var counter atomic.Int64
	counter.Store(100000)
	gen, err := ordernumber.NewGenerator(ordernumber.SourceFunc(func(ctx context.Context) (int64, error) {
		return counter.Add(1), nil
	}))
	require.NoError(t, err)
	return gen
}

func newTestService(t *testing.T, ordersRepo *stubOrdersRepo, productsRepo *stubProductsRepo, payments *stubPayments) Service {
	t.Helper()

	svc, err := NewService(ServiceParams{
		OrdersRepo:    ordersRepo,
		ProductsRepo:  productsRepo,
		CustomersRepo: &stubCustomersRepo{},
		Tx:            stubTxRunner{},
		Numbers:       testGenerator(t),
		Payments:      payments,
		Logger:        logger.New(logger.Options{ServiceName: "checkout-test", Output: io.Discard}),
		App:           config.AppConfig{BaseURL: "https://belori.com.br"},
		MercadoPago: config.MercadoPagoConfig{
			NotificationURL:     "https://api.belori.com.br/webhooks/mercadopago",
			StatementDescriptor: "BELORI",
		},
	})
	require.NoError(t, err)
	return svc
}

func catalogProduct(name string, price string, stock int) models.Product {
	return models.Product{
		ID:            uuid.New(),
		Name:          name,
		Slug:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Active:        true,
	}
}

func mgAddress() types.Address {
	return types.Address{
		Street:       "Avenida Afonso Pena",
		Number:       "1000",
		Neighborhood: "Centro",
		City:         "Belo Horizonte",
		State:        "MG",
		PostalCode:   "30130-010",
	}
}

func TestCheckoutComputesExactTotals(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "24.95", 10)
	skirt := catalogProduct("Saia Plissada", "34.90", 5)
	ordersRepo := &stubOrdersRepo{}
	payments := &stubPayments{}
	svc := newTestService(t, ordersRepo, &stubProductsRepo{products: []models.Product{dress, skirt}}, payments)

	// Non-MG destination: standard shipping is 15.90.
	result, err := svc.Checkout(context.Background(), Input{
		Customer: CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "(31) 99888-7766", Document: "123.456.789-01"},
		Address: types.Address{
			Street: "Avenida Paulista", Number: "1000", Neighborhood: "Bela Vista",
			City: "São Paulo", State: "SP", PostalCode: "01310-100",
		},
		Items: []cart.Item{
			{ProductID: dress.ID, Quantity: 2},
			{ProductID: skirt.ID, Quantity: 1},
		},
		ShippingMethod: shipping.MethodStandard,
	})
	require.NoError(t, err)

	order := result.Order
	assert.True(t, order.Subtotal.Equal(decimal.RequireFromString("84.80")), "subtotal %s", order.Subtotal)
	assert.True(t, order.ShippingCost.Equal(decimal.RequireFromString("15.90")))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("100.70")), "total %s", order.Total)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "BEL-100001", order.OrderNumber)
}

func TestCheckoutMergesDuplicateCartLines(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "149.90", 10)
	ordersRepo := &stubOrdersRepo{}
	svc := newTestService(t, ordersRepo, &stubProductsRepo{products: []models.Product{dress}}, &stubPayments{})

	_, err := svc.Checkout(context.Background(), Input{
		Customer: CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "31998887766", Document: "12345678901"},
		Address:  mgAddress(),
		Items: []cart.Item{
			{ProductID: dress.ID, Color: "preto", Size: "M", Quantity: 1},
			{ProductID: dress.ID, Color: "preto", Size: "M", Quantity: 2},
		},
		ShippingMethod: shipping.MethodStandard,
	})
	require.NoError(t, err)
	require.Len(t, ordersRepo.items, 1)
	assert.Equal(t, 3, ordersRepo.items[0].Quantity)
}

func TestCheckoutBuildsPreferenceWithBrazilianFields(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "149.90", 10)
	payments := &stubPayments{}
	svc := newTestService(t, &stubOrdersRepo{}, &stubProductsRepo{products: []models.Product{dress}}, payments)

	result, err := svc.Checkout(context.Background(), Input{
		Customer:       CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "(31) 99888-7766", Document: "123.456.789-01"},
		Address:        mgAddress(),
		Items:          []cart.Item{{ProductID: dress.ID, Quantity: 1}},
		ShippingMethod: shipping.MethodStandard,
		IdempotencyKey: "ck_abc",
	})
	require.NoError(t, err)

	req := payments.request
	assert.Equal(t, result.Order.OrderNumber, req.ExternalReference)
	assert.Equal(t, "BELORI", req.StatementDescriptor)
	assert.Equal(t, "approved", req.AutoReturn)
	assert.Equal(t, "https://api.belori.com.br/webhooks/mercadopago", req.NotificationURL)
	assert.Equal(t, "ck_abc", payments.key)

	require.NotNil(t, req.Payer.Phone)
	assert.Equal(t, "31", req.Payer.Phone.AreaCode)
	assert.Equal(t, "998887766", req.Payer.Phone.Number)

	require.NotNil(t, req.Payer.Identification)
	assert.Equal(t, "CPF", req.Payer.Identification.Type)
	assert.Equal(t, "12345678901", req.Payer.Identification.Number)

	tag := "?order=" + result.Order.OrderNumber
	assert.Equal(t, "https://belori.com.br/pedido/sucesso"+tag, req.BackURLs.Success)
	assert.Equal(t, "https://belori.com.br/pedido/erro"+tag, req.BackURLs.Failure)
	assert.Equal(t, "https://belori.com.br/pedido/pendente"+tag, req.BackURLs.Pending)

	// MG order ships free: no shipping line on the preference.
	require.Len(t, req.Items, 1)
}

func TestCheckoutClassifiesCNPJ(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "149.90", 10)
	payments := &stubPayments{}
	svc := newTestService(t, &stubOrdersRepo{}, &stubProductsRepo{products: []models.Product{dress}}, payments)

	_, err := svc.Checkout(context.Background(), Input{
		Customer:       CustomerInput{Name: "Atelier Flor", Email: "contato@atelierflor.com.br", Phone: "3133334444", Document: "12.345.678/0001-90"},
		Address:        mgAddress(),
		Items:          []cart.Item{{ProductID: dress.ID, Quantity: 1}},
		ShippingMethod: shipping.MethodExpress,
	})
	require.NoError(t, err)
	require.NotNil(t, payments.request.Payer.Identification)
	assert.Equal(t, "CNPJ", payments.request.Payer.Identification.Type)

	// Express to MG costs 10.00 and shows up as a shipping line.
	require.Len(t, payments.request.Items, 2)
	assert.Equal(t, 10.00, payments.request.Items[1].UnitPrice)
}

func TestCheckoutRejectsInsufficientStock(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "149.90", 1)
	svc := newTestService(t, &stubOrdersRepo{}, &stubProductsRepo{products: []models.Product{dress}}, &stubPayments{})

	_, err := svc.Checkout(context.Background(), Input{
		Customer:       CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "31998887766", Document: "12345678901"},
		Address:        mgAddress(),
		Items:          []cart.Item{{ProductID: dress.ID, Quantity: 2}},
		ShippingMethod: shipping.MethodStandard,
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
}

func TestCheckoutRejectsUnknownProduct(t *testing.T) {
	svc := newTestService(t, &stubOrdersRepo{}, &stubProductsRepo{}, &stubPayments{})

	_, err := svc.Checkout(context.Background(), Input{
		Customer:       CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "31998887766", Document: "12345678901"},
		Address:        mgAddress(),
		Items:          []cart.Item{{ProductID: uuid.New(), Quantity: 1}},
		ShippingMethod: shipping.MethodStandard,
	})
	require.Error(t, err)
}

func TestCheckoutRejectsDiscountAboveTotal(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "50.00", 10)
	svc := newTestService(t, &stubOrdersRepo{}, &stubProductsRepo{products: []models.Product{dress}}, &stubPayments{})

	_, err := svc.Checkout(context.Background(), Input{
		Customer:       CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "31998887766", Document: "12345678901"},
		Address:        mgAddress(),
		Items:          []cart.Item{{ProductID: dress.ID, Quantity: 1}},
		ShippingMethod: shipping.MethodStandard,
		Discount:       decimal.RequireFromString("60.00"),
	})
	require.Error(t, err)
}

func TestCheckoutPreferenceFailureLeavesPendingOrderWithNote(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "149.90", 10)
	ordersRepo := &stubOrdersRepo{}
	payments := &stubPayments{err: errors.New("mercado pago unavailable")}
	svc := newTestService(t, ordersRepo, &stubProductsRepo{products: []models.Product{dress}}, payments)

	_, err := svc.Checkout(context.Background(), Input{
		Customer:       CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "31998887766", Document: "12345678901"},
		Address:        mgAddress(),
		Items:          []cart.Item{{ProductID: dress.ID, Quantity: 1}},
		ShippingMethod: shipping.MethodStandard,
	})
	require.Error(t, err)

	// The order was already persisted and stays pending for the sweep, with
	// a note recording why no payment will arrive.
	require.NotNil(t, ordersRepo.created)
	assert.Equal(t, enums.OrderStatusPending, ordersRepo.created.Status)
	require.Len(t, ordersRepo.notes, 1)
	assert.Contains(t, ordersRepo.notes[0], "payment preference creation failed")
}

func TestCheckoutSnapshotsPriceAtPurchase(t *testing.T) {
	dress := catalogProduct("Vestido Midi", "149.90", 10)
	ordersRepo := &stubOrdersRepo{}
	svc := newTestService(t, ordersRepo, &stubProductsRepo{products: []models.Product{dress}}, &stubPayments{})

	_, err := svc.Checkout(context.Background(), Input{
		Customer:       CustomerInput{Name: "Joana Lima", Email: "joana@example.com", Phone: "31998887766", Document: "12345678901"},
		Address:        mgAddress(),
		Items:          []cart.Item{{ProductID: dress.ID, Color: "vinho", Size: "G", Quantity: 1}},
		ShippingMethod: shipping.MethodStandard,
	})
	require.NoError(t, err)

	require.Len(t, ordersRepo.items, 1)
	snapshot := ordersRepo.items[0]
	assert.Equal(t, "Vestido Midi", snapshot.ProductName)
	assert.True(t, snapshot.UnitPrice.Equal(decimal.RequireFromString("149.90")))
	assert.Equal(t, "vinho", snapshot.Color)
	assert.Equal(t, "G", snapshot.Size)
}
