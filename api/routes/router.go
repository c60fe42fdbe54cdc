package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quorumhq/quorum-backend/api/controllers"
	"github.com/quorumhq/quorum-backend/api/middleware"
	"github.com/quorumhq/quorum-backend/internal/adoption"
	"github.com/quorumhq/quorum-backend/internal/ledger"
	"github.com/quorumhq/quorum-backend/internal/notifications"
	"github.com/quorumhq/quorum-backend/pkg/config"
	"github.com/quorumhq/quorum-backend/pkg/db"
	"github.com/quorumhq/quorum-backend/pkg/logger"
	pkgredis "github.com/quorumhq/quorum-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database db.Pinger,
	redisClient *pkgredis.Client,
	adoptionService adoption.Service,
	ledgerService ledger.Service,
	notificationsService notifications.Service,
	gatherer prometheus.Gatherer,
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
		r.Get("/ready", controllers.HealthReady(cfg, database, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/questions/{questionID}/answers/{answerID}", func(r chi.Router) {
			r.Post("/adopt", controllers.AdoptAnswer(adoptionService, logg))
			r.Post("/revoke", controllers.RevokeAdoption(adoptionService, logg))
		})

		r.Route("/v1/points", func(r chi.Router) {
			r.Get("/balance", controllers.GetPointBalance(ledgerService, logg))
			r.Get("/history", controllers.GetPointHistory(ledgerService, logg))
			r.Get("/reconcile", controllers.ReconcilePoints(ledgerService, logg))
			r.Post("/spend", controllers.SpendPoints(ledgerService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
