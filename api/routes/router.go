package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pricelist-backend/api/controllers"
	"github.com/angelmondragon/pricelist-backend/api/middleware"
	"github.com/angelmondragon/pricelist-backend/pkg/config"
	"github.com/angelmondragon/pricelist-backend/pkg/logger"
)

// Dependencies are the services mounted by the router.
type Dependencies struct {
	Prices      controllers.PriceService
	Eligibility controllers.EligibilityFinder
	PriceLists  controllers.PriceListService
	Imports     controllers.ImportService
	// Ready maps dependency names to their readiness probes.
	Ready    map[string]controllers.Pinger
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Post("/prices/resolve", controllers.PriceResolve(deps.Prices, logg))
			r.Get("/prices/eligible-items", controllers.EligibleItems(deps.Eligibility, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.StoreContext(logg))

			r.Route("/price-lists", func(r chi.Router) {
				r.Get("/", controllers.PriceListIndex(deps.PriceLists, logg))
				r.Post("/", controllers.PriceListCreate(deps.PriceLists, logg))
				r.Get("/{priceListId}", controllers.PriceListDetail(deps.PriceLists, logg))
				r.Delete("/{priceListId}", controllers.PriceListDelete(deps.PriceLists, logg))
				r.Post("/{priceListId}/imports", controllers.ImportStart(deps.Imports, deps.PriceLists, logg))
			})

			r.Route("/imports/{jobId}", func(r chi.Router) {
				r.Get("/", controllers.ImportStatus(deps.Imports, deps.PriceLists, logg))
				r.Post("/advance", controllers.ImportAdvance(deps.Imports, deps.PriceLists, logg))
			})
		})
	})

	return r
}
