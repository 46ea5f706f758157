package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/kitchenstock-backend/api/controllers"
	inventorycontrollers "github.com/angelmondragon/kitchenstock-backend/api/controllers/inventory"
	ordercontrollers "github.com/angelmondragon/kitchenstock-backend/api/controllers/orders"
	receivingcontrollers "github.com/angelmondragon/kitchenstock-backend/api/controllers/receiving"
	"github.com/angelmondragon/kitchenstock-backend/api/middleware"
	"github.com/angelmondragon/kitchenstock-backend/internal/ingredients"
	"github.com/angelmondragon/kitchenstock-backend/internal/orders"
	"github.com/angelmondragon/kitchenstock-backend/internal/recipes"
	"github.com/angelmondragon/kitchenstock-backend/pkg/config"
	"github.com/angelmondragon/kitchenstock-backend/pkg/db"
	"github.com/angelmondragon/kitchenstock-backend/pkg/enums"
	"github.com/angelmondragon/kitchenstock-backend/pkg/logger"
	"github.com/angelmondragon/kitchenstock-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ingredientService ingredients.Service,
	recipeService recipes.Service,
	resolver inventorycontrollers.RequirementResolver,
	ordersSvc orders.Service,
	alertEngine inventorycontrollers.AlertEngine,
	reconciler receivingcontrollers.Reconciler,
) http.Handler {
	// redis is optional; keep its interfaces nil rather than typed-nil.
	var (
		cachePinger controllers.Pinger
		idemStore   redis.IdempotencyStore
	)
	if redisClient != nil {
		cachePinger = redisClient
		idemStore = redisClient
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cachePinger))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireStaff(logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/ingredients", func(r chi.Router) {
			r.Post("/", controllers.CreateIngredient(ingredientService, logg))
			r.Get("/", controllers.ListIngredients(ingredientService, logg))
		})

		r.Route("/recipes/{productId}", func(r chi.Router) {
			r.Put("/", controllers.UpsertRecipe(recipeService, logg))
			r.Get("/", controllers.GetRecipe(recipeService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/requirements", inventorycontrollers.Requirements(resolver, logg))
			r.Get("/low-stock", inventorycontrollers.LowStock(alertEngine, logg))
			r.Post("/low-stock/{ingredientId}/report", inventorycontrollers.AlertAction(alertEngine, enums.AlertActionReport, logg))
			r.Post("/low-stock/{ingredientId}/check", inventorycontrollers.AlertAction(alertEngine, enums.AlertActionCheck, logg))
			r.Post("/low-stock/{ingredientId}/resolve", inventorycontrollers.AlertAction(alertEngine, enums.AlertActionResolve, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersSvc, logg))
		})

		r.Post("/kitchen/orders/{orderId}/status", ordercontrollers.TransitionKitchenStatus(ordersSvc, logg))

		r.Route("/receiving", func(r chi.Router) {
			r.Get("/tasks", receivingcontrollers.Tasks(reconciler, logg))
			r.Post("/confirm", receivingcontrollers.Confirm(reconciler, logg))
			r.Get("/logs", receivingcontrollers.Logs(reconciler, logg))
		})
	})

	return r
}
