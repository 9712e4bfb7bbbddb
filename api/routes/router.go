package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gestiq/gestiq-backend/api/controllers"
	"github.com/gestiq/gestiq-backend/api/middleware"
	"github.com/gestiq/gestiq-backend/internal/conversion"
	"github.com/gestiq/gestiq-backend/internal/documents"
	"github.com/gestiq/gestiq-backend/internal/interventions"
	"github.com/gestiq/gestiq-backend/internal/inventory"
	"github.com/gestiq/gestiq-backend/pkg/config"
	"github.com/gestiq/gestiq-backend/pkg/logger"
	"github.com/gestiq/gestiq-backend/pkg/metrics"
	pkgredis "github.com/gestiq/gestiq-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Readiness    map[string]controllers.Pinger
	Idempotency  pkgredis.IdempotencyStore
	HTTPMetrics  *metrics.HTTPMetrics
	Inventory    inventory.Service
	Intervention interventions.Service
	Documents    documents.Service
	Conversion   conversion.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ItemList(deps.Inventory, logg))
			r.Get("/{itemID}", controllers.ItemDetail(deps.Inventory, logg))
			r.Get("/{itemID}/availability", controllers.ItemAvailability(deps.Inventory, logg))
			r.Get("/{itemID}/movements", controllers.ItemMovements(deps.Inventory, logg))
			r.Post("/{itemID}/receive-stock", controllers.ReceiveStock(deps.Inventory, logg))
		})

		r.Route("/interventions", func(r chi.Router) {
			r.Get("/", controllers.InterventionList(deps.Intervention, logg))
			r.Post("/", controllers.InterventionCreate(deps.Intervention, logg))
			r.Get("/{interventionID}", controllers.InterventionDetail(deps.Intervention, logg))
			r.Get("/{interventionID}/totals", controllers.InterventionTotals(deps.Intervention, logg))
			r.Post("/{interventionID}/lines", controllers.InterventionAddLine(deps.Intervention, logg))
			r.Post("/{interventionID}/status", controllers.InterventionTransitionStatus(deps.Intervention, logg))
			r.Patch("/{interventionID}/lines/{lineID}", controllers.InterventionUpdateLine(deps.Intervention, logg))
			r.Delete("/{interventionID}/lines/{lineID}", controllers.InterventionRemoveLine(deps.Intervention, logg))
			r.Post("/{interventionID}/lines/{lineID}/reserve", controllers.InterventionReserveLine(deps.Intervention, logg))
		})

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/", controllers.QuoteList(deps.Documents, logg))
			r.Post("/", controllers.QuoteCreate(deps.Documents, logg))
			r.Get("/{quoteID}", controllers.QuoteDetail(deps.Documents, logg))
			r.Post("/{quoteID}/status", controllers.QuoteTransitionStatus(deps.Documents, logg))
			r.Post("/{quoteID}/convert", controllers.QuoteConvert(deps.Conversion, logg))
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", controllers.InvoiceList(deps.Documents, logg))
			r.Get("/{invoiceID}", controllers.InvoiceDetail(deps.Documents, logg))
		})
	})

	return r
}
