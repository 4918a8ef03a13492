package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beloribh/belori-backend/api/controllers"
	webhookcontrollers "github.com/beloribh/belori-backend/api/controllers/webhooks"
	"github.com/beloribh/belori-backend/api/middleware"
	"github.com/beloribh/belori-backend/internal/adminauth"
	checkoutsvc "github.com/beloribh/belori-backend/internal/checkout"
	"github.com/beloribh/belori-backend/internal/orders"
	"github.com/beloribh/belori-backend/internal/tracking"
	mpwebhook "github.com/beloribh/belori-backend/internal/webhooks/mercadopago"
	"github.com/beloribh/belori-backend/pkg/config"
	"github.com/beloribh/belori-backend/pkg/db"
	"github.com/beloribh/belori-backend/pkg/logger"
	"github.com/beloribh/belori-backend/pkg/redis"
	"github.com/beloribh/belori-backend/pkg/viacep"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cepClient *viacep.Client,
	checkoutService checkoutsvc.Service,
	trackingService tracking.Service,
	ordersService orders.Service,
	adminAuthService adminauth.Service,
	webhookService *mpwebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/mercadopago", webhookcontrollers.MercadoPagoWebhook(webhookService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/shipping/quote", controllers.ShippingQuote(logg))
		r.Get("/cep/{cep}", controllers.CEPLookup(cepClient, logg))
		r.With(middleware.Idempotency(redisClient, logg)).Post("/checkout", controllers.Checkout(checkoutService, logg))
		r.Get("/orders/tracking", controllers.TrackOrdersByEmail(trackingService, logg))
		r.Get("/orders/{orderNumber}/tracking", controllers.TrackOrder(trackingService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/auth/login", controllers.AdminLogin(adminAuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(redisClient, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrdersList(ordersService, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(ordersService, logg))
				r.Post("/{orderId}/confirm-payment", controllers.AdminConfirmPayment(ordersService, logg))
				r.Post("/{orderId}/process", controllers.AdminStartProcessing(ordersService, logg))
				r.Post("/{orderId}/ship", controllers.AdminShipOrder(ordersService, logg))
				r.Post("/{orderId}/deliver", controllers.AdminDeliverOrder(ordersService, logg))
				r.Post("/{orderId}/cancel", controllers.AdminCancelOrder(ordersService, logg))
				r.Post("/{orderId}/refund", controllers.AdminRefundOrder(ordersService, logg))
			})
		})
	})

	return r
}
