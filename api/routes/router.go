package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rosterhub-backend/api/controllers"
	"github.com/angelmondragon/rosterhub-backend/api/middleware"
	"github.com/angelmondragon/rosterhub-backend/internal/audit"
	"github.com/angelmondragon/rosterhub-backend/internal/notifications"
	"github.com/angelmondragon/rosterhub-backend/internal/preferences"
	"github.com/angelmondragon/rosterhub-backend/internal/realtime"
	"github.com/angelmondragon/rosterhub-backend/pkg/config"
	"github.com/angelmondragon/rosterhub-backend/pkg/db"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP db.Pinger,
	metricsHandler http.Handler,
	notificationsService notifications.Service,
	preferencesService preferences.Service,
	auditService audit.Service,
	subscriber realtime.Subscriber,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{
			"database": dbP,
			"redis":    redisP,
		}))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Get("/stream", controllers.NotificationStream(cfg.Realtime, subscriber, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/{notificationId}/unread", controllers.MarkNotificationUnread(notificationsService, logg))
			r.Delete("/{notificationId}", controllers.DeleteNotification(notificationsService, logg))
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.GetPreferences(preferencesService, logg))
			r.Patch("/", controllers.UpdatePreferences(preferencesService, logg))
		})

		r.Get("/activity", controllers.ListActivity(auditService, logg))
	})

	return r
}
