package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/beloribh/belori-backend/internal/cart"
	"github.com/beloribh/belori-backend/internal/customers"
	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/internal/products"
	"github.com/beloribh/belori-backend/internal/shipping"
	"github.com/beloribh/belori-backend/pkg/config"
	"github.com/beloribh/belori-backend/pkg/db"
	"github.com/beloribh/belori-backend/pkg/db/models"
	"github.com/beloribh/belori-backend/pkg/enums"
	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/mercadopago"
	"github.com/beloribh/belori-backend/pkg/metrics"
	"github.com/beloribh/belori-backend/pkg/ordernumber"
	"github.com/beloribh/belori-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	currencyBRL      = "BRL"
	cpfDigitsMax     = 11
	phoneAreaCodeLen = 2
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type preferenceCreator interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest, idempotencyKey string) (*mercadopago.Preference, error)
}

// Service turns a storefront cart into a pending order plus a Mercado Pago
// checkout preference.
type Service interface {
	Checkout(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	ordersRepo    orders.Repository
	productsRepo  products.Repository
	customersRepo customers.Repository
	tx            txRunner
	numbers       *ordernumber.Generator
	payments      preferenceCreator
	logg          *logger.Logger
	metrics       *metrics.PaymentMetrics
	app           config.AppConfig
	mp            config.MercadoPagoConfig
	attempts      int
}

// ServiceParams wires the checkout dependencies.
type ServiceParams struct {
	OrdersRepo    orders.Repository
	ProductsRepo  products.Repository
	CustomersRepo customers.Repository
	Tx            txRunner
	Numbers       *ordernumber.Generator
	Payments      preferenceCreator
	Logger        *logger.Logger
	Metrics       *metrics.PaymentMetrics
	App           config.AppConfig
	MercadoPago   config.MercadoPagoConfig
	Checkout      config.CheckoutConfig
}

// NewService builds the checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.ProductsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.CustomersRepo == nil {
		return nil, fmt.Errorf("customers repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("order number generator required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	attempts := params.Checkout.OrderNumberAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &service{
		ordersRepo:    params.OrdersRepo,
		productsRepo:  params.ProductsRepo,
		customersRepo: params.CustomersRepo,
		tx:            params.Tx,
		numbers:       params.Numbers,
		payments:      params.Payments,
		logg:          params.Logger,
		metrics:       params.Metrics,
		app:           params.App,
		mp:            params.MercadoPago,
		attempts:      attempts,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input Input) (*Result, error) {
	items, err := cart.Normalize(input.Items)
	if err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}
	if !input.ShippingMethod.IsValid() {
		s.metrics.IncCheckout("invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}
	if input.Discount.IsNegative() {
		s.metrics.IncCheckout("invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount cannot be negative")
	}

	catalog, err := s.loadCatalog(ctx, items)
	if err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}

	prices := make(map[uuid.UUID]decimal.Decimal, len(catalog))
	for id, product := range catalog {
		prices[id] = product.Price
	}
	subtotal, err := cart.Subtotal(items, prices)
	if err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}

	quote, err := shipping.QuoteFor(input.ShippingMethod, input.Address.State, input.Address.PostalCode)
	if err != nil {
		s.metrics.IncCheckout("invalid")
		return nil, err
	}

	total := subtotal.Add(quote.Cost).Sub(input.Discount)
	if total.IsNegative() {
		s.metrics.IncCheckout("invalid")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount exceeds order total")
	}

	order, err := s.persistOrder(ctx, input, items, catalog, subtotal, quote, total)
	if err != nil {
		s.metrics.IncCheckout("error")
		return nil, err
	}

	ctx = s.logg.WithOrderNumber(ctx, order.OrderNumber)

	pref, err := s.payments.CreatePreference(ctx, s.buildPreference(input, order, items, catalog, quote), input.IdempotencyKey)
	if err != nil {
		s.metrics.IncCheckout("payment_error")
		s.logg.Error(ctx, "create payment preference", err)
		// The order stays pending for the sweep; leave a trace of why no
		// payment ever arrived.
		if noteErr := s.ordersRepo.AppendNote(ctx, order.ID, fmt.Sprintf("payment preference creation failed: %v", err)); noteErr != nil {
			s.logg.Error(ctx, "record preference failure note", noteErr)
		}
		return nil, err
	}

	s.metrics.IncCheckout("success")
	s.logg.Info(ctx, "checkout completed, awaiting payment")

	return &Result{
		Order:        order,
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
	}, nil
}

// loadCatalog resolves every cart line against the active catalog and checks
// stock. Stock is only decremented when payment is confirmed, so this check
// is advisory and the decrement clamps at zero.
func (s *service) loadCatalog(ctx context.Context, items []cart.Item) (map[uuid.UUID]models.Product, error) {
	found, err := s.productsRepo.FindActiveByIDs(ctx, cart.ProductIDs(items))
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]models.Product, len(found))
	for _, product := range found {
		catalog[product.ID] = product
	}

	needed := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		needed[item.ProductID] += item.Quantity
	}
	for productID, qty := range needed {
		product, ok := catalog[productID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("product %s is unavailable", productID))
		}
		if product.StockQuantity < qty {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("insufficient stock for %s", product.Name))
		}
	}
	return catalog, nil
}

// persistOrder creates customer, order and item snapshots in one
// transaction, retrying with a fresh order number if a concurrent checkout
// grabbed the same one.
func (s *service) persistOrder(
	ctx context.Context,
	input Input,
	items []cart.Item,
	catalog map[uuid.UUID]models.Product,
	subtotal decimal.Decimal,
	quote shipping.Quote,
	total decimal.Decimal,
) (*models.Order, error) {
	var created *models.Order

	for attempt := 0; attempt < s.attempts; attempt++ {
		number, err := s.numbers.Next(ctx)
		if err != nil {
			return nil, err
		}

		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			customerRepo := s.customersRepo.WithTx(tx)
			customer, err := customerRepo.UpsertByEmail(ctx, &models.Customer{
				Name:     strings.TrimSpace(input.Customer.Name),
				Email:    input.Customer.Email,
				Phone:    types.DigitsOnly(input.Customer.Phone),
				Document: types.DigitsOnly(input.Customer.Document),
			})
			if err != nil {
				return err
			}

			orderRepo := s.ordersRepo.WithTx(tx)
			order := &models.Order{
				ID:              uuid.New(),
				OrderNumber:     number,
				CustomerID:      customer.ID,
				Status:          enums.OrderStatusPending,
				Subtotal:        subtotal,
				ShippingCost:    quote.Cost,
				Discount:        input.Discount,
				Total:           total,
				ShippingMethod:  string(quote.Method),
				ShippingAddress: input.Address.String(),
				Version:         1,
			}
			if _, err := orderRepo.Create(ctx, order); err != nil {
				return err
			}

			snapshots := make([]models.OrderItem, 0, len(items))
			for _, item := range items {
				product := catalog[item.ProductID]
				snapshots = append(snapshots, models.OrderItem{
					ID:          uuid.New(),
					OrderID:     order.ID,
					ProductID:   product.ID,
					ProductName: product.Name,
					UnitPrice:   product.Price,
					Quantity:    item.Quantity,
					Color:       item.Color,
					Size:        item.Size,
					ImageURL:    product.ImageURL,
				})
			}
			if err := orderRepo.CreateItems(ctx, snapshots); err != nil {
				return err
			}

			order.Customer = customer
			order.Items = snapshots
			created = order
			return nil
		})
		if err == nil {
			return created, nil
		}
		if db.IsUniqueViolation(err, "idx_orders_order_number") {
			s.logg.Warn(ctx, fmt.Sprintf("order number %s already taken, retrying", number))
			continue
		}
		return nil, err
	}

	return nil, pkgerrors.New(pkgerrors.CodeInternal, "could not allocate an order number")
}

func (s *service) buildPreference(
	input Input,
	order *models.Order,
	items []cart.Item,
	catalog map[uuid.UUID]models.Product,
	quote shipping.Quote,
) mercadopago.PreferenceRequest {
	prefItems := make([]mercadopago.PreferenceItem, 0, len(items)+1)
	for _, item := range items {
		product := catalog[item.ProductID]
		title := product.Name
		if item.Color != "" || item.Size != "" {
			title = fmt.Sprintf("%s (%s %s)", product.Name, item.Color, item.Size)
		}
		prefItems = append(prefItems, mercadopago.PreferenceItem{
			ID:         product.ID.String(),
			Title:      strings.TrimSpace(title),
			PictureURL: product.ImageURL,
			Quantity:   item.Quantity,
			CurrencyID: currencyBRL,
			UnitPrice:  product.Price.InexactFloat64(),
		})
	}
	if quote.Cost.IsPositive() {
		prefItems = append(prefItems, mercadopago.PreferenceItem{
			Title:      fmt.Sprintf("Frete (%s)", quote.Method),
			Quantity:   1,
			CurrencyID: currencyBRL,
			UnitPrice:  quote.Cost.InexactFloat64(),
		})
	}

	base := strings.TrimRight(s.app.BaseURL, "/")
	tag := "?order=" + order.OrderNumber

	return mercadopago.PreferenceRequest{
		Items: prefItems,
		Payer: mercadopago.Payer{
			Name:           strings.TrimSpace(input.Customer.Name),
			Email:          strings.TrimSpace(input.Customer.Email),
			Phone:          splitPhone(input.Customer.Phone),
			Identification: identificationFor(input.Customer.Document),
			Address: &mercadopago.PayerAddress{
				ZipCode:      types.DigitsOnly(input.Address.PostalCode),
				StreetName:   input.Address.Street,
				StreetNumber: input.Address.Number,
			},
		},
		BackURLs: mercadopago.BackURLs{
			Success: base + "/pedido/sucesso" + tag,
			Failure: base + "/pedido/erro" + tag,
			Pending: base + "/pedido/pendente" + tag,
		},
		AutoReturn:          "approved",
		ExternalReference:   order.OrderNumber,
		NotificationURL:     s.mp.NotificationURL,
		StatementDescriptor: s.mp.StatementDescriptor,
	}
}

// splitPhone breaks a Brazilian phone into DDD and local number.
func splitPhone(raw string) *mercadopago.Phone {
	digits := types.DigitsOnly(raw)
	if len(digits) <= phoneAreaCodeLen {
		return nil
	}
	return &mercadopago.Phone{
		AreaCode: digits[:phoneAreaCodeLen],
		Number:   digits[phoneAreaCodeLen:],
	}
}

// identificationFor classifies the tax document by length: up to 11 digits
// is a CPF, anything longer a CNPJ.
func identificationFor(document string) *mercadopago.Identification {
	digits := types.DigitsOnly(document)
	if digits == "" {
		return nil
	}
	docType := "CPF"
	if len(digits) > cpfDigitsMax {
		docType = "CNPJ"
	}
	return &mercadopago.Identification{Type: docType, Number: digits}
}
