package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calloway-labs/dispatch-backend/api/controllers"
	"github.com/calloway-labs/dispatch-backend/api/middleware"
	"github.com/calloway-labs/dispatch-backend/internal/assignment"
	"github.com/calloway-labs/dispatch-backend/internal/notifications"
	"github.com/calloway-labs/dispatch-backend/pkg/config"
	"github.com/calloway-labs/dispatch-backend/pkg/logger"
	"github.com/calloway-labs/dispatch-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	pubsubP controllers.Pinger,
	registry *prometheus.Registry,
	assignmentSvc assignment.Service,
	notificationsSvc notifications.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	createPolicy := middleware.NewRateLimitPolicy(
		"work_items",
		cfg.RateLimit.WorkItemsWindow,
		cfg.RateLimit.WorkItemsLimit,
	)
	respondPolicy := middleware.NewRateLimitPolicy(
		"responses",
		cfg.RateLimit.ResponsesWindow,
		cfg.RateLimit.ResponsesLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": dbP,
			"redis":    redisClient,
			"pubsub":   pubsubP,
		}))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/work-items", func(r chi.Router) {
		r.With(middleware.RateLimit(createPolicy, redisClient, logg)).
			Post("/", controllers.CreateWorkItem(assignmentSvc, logg))

		r.Route("/{workItemId}", func(r chi.Router) {
			r.Get("/status", controllers.GetWorkItemStatus(assignmentSvc, logg))
			r.Get("/notifications", controllers.ListWorkItemNotifications(notificationsSvc, logg))
			r.Post("/offer", controllers.OfferWorkItem(assignmentSvc, logg))
			r.With(middleware.RateLimit(respondPolicy, redisClient, logg)).
				Post("/response", controllers.RespondWorkItem(assignmentSvc, logg))
			r.Post("/cancel", controllers.CancelWorkItem(assignmentSvc, logg))
		})
	})

	r.Route("/api/v1/owners/{ownerId}", func(r chi.Router) {
		r.Get("/notifications", controllers.ListOwnerNotifications(notificationsSvc, logg))
	})

	return r
}
