package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motogo-vn/motogo-payments/api/controllers"
	webhookcontrollers "github.com/motogo-vn/motogo-payments/api/controllers/webhooks"
	"github.com/motogo-vn/motogo-payments/api/middleware"
	depositsvc "github.com/motogo-vn/motogo-payments/internal/deposits"
	callbacksvc "github.com/motogo-vn/motogo-payments/internal/gatewaycallbacks"
	paymentsvc "github.com/motogo-vn/motogo-payments/internal/payments"
	possvc "github.com/motogo-vn/motogo-payments/internal/pos"
	"github.com/motogo-vn/motogo-payments/pkg/config"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
	"github.com/motogo-vn/motogo-payments/pkg/redis"
)

// Dependencies bundles everything the router mounts. The health map keys are
// the dependency names reported by /health/ready.
type Dependencies struct {
	Config       *config.Config
	Logger       *logger.Logger
	Redis        *redis.Client
	Sessions     middleware.SessionResolver
	Payments     paymentsvc.Service
	POS          possvc.Service
	Deposits     depositsvc.Service
	Callbacks    callbacksvc.Service
	Gateway      controllers.RedirectBuilder
	HealthDeps   map[string]controllers.Pinger
	PromGatherer prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthDeps))
	})

	if deps.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.PromGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		// Gateway callbacks bypass the rate limiter; VNPay retries IPNs
		// and a throttled retry would stall confirmation.
		r.Route("/gateway/vnpay", func(r chi.Router) {
			r.Get("/return", webhookcontrollers.VNPayReturn(deps.Callbacks, logg))
			r.Get("/ipn", webhookcontrollers.VNPayIPN(deps.Callbacks, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			if deps.Redis != nil {
				r.Use(middleware.PublicRateLimit(cfg.AuthRateLimit, deps.Redis, logg))
				r.Use(middleware.Idempotency(deps.Redis, logg))
			}
			r.Post("/intents", controllers.PublicCashIntent(deps.POS, logg))
			r.Post("/{paymentId}/confirm", controllers.PublicCashConfirm(deps.POS, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireAuth(logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/payments", func(r chi.Router) {
			r.Post("/intents", controllers.CreatePayment(deps.Payments, deps.Gateway, logg))
			r.Get("/", controllers.ListPayments(deps.Payments, logg))
			r.Get("/{paymentId}", controllers.GetPayment(deps.Payments, logg))
			r.Get("/{paymentId}/transactions", controllers.ListPaymentTransactions(deps.Payments, logg))
			r.With(middleware.RequireStaff(logg)).Post("/{paymentId}/cancel", controllers.CancelPayment(deps.Payments, logg))
			r.With(middleware.RequireStaff(logg)).Post("/{paymentId}/refund", controllers.RefundPayment(deps.Payments, logg))
		})

		r.Route("/pos", func(r chi.Router) {
			r.Use(middleware.RequireStaff(logg))
			r.Post("/collect", controllers.POSCollect(deps.POS, logg))
			r.Post("/{paymentId}/confirm", controllers.POSConfirm(deps.POS, logg))
		})

		r.Route("/deposits", func(r chi.Router) {
			r.Get("/", controllers.ListBookingDeposits(deps.Deposits, logg))
			r.Get("/{depositId}", controllers.GetDeposit(deps.Deposits, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))
				r.Post("/hold", controllers.HoldDeposit(deps.Deposits, logg))
				r.Post("/{depositId}/release", controllers.ReleaseDeposit(deps.Deposits, logg))
				r.Post("/{depositId}/forfeit", controllers.ForfeitDeposit(deps.Deposits, logg))
			})
		})
	})

	return r
}
