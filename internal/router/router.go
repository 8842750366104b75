package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-media-share/internal/config"
	"go-media-share/internal/handler"
	"go-media-share/internal/middleware"
	"go-media-share/internal/model"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	User   *handler.UserHandler
	Media  *handler.MediaHandler
	Audit  *handler.AuditHandler
	Health *handler.HealthHandler
}

// New wires the HTTP surface. JSON routes run under the request timeout;
// uploads, downloads and thumbnails use the streaming timeout instead.
func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, metrics *middleware.Metrics, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	if metrics != nil {
		r.Use(metrics.Handler)
	}
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Check)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	streaming := middleware.StreamingTimeout(cfg.TransferTimeout, cfg.TransferIdleTimeout)
	timeout := middleware.Timeout(cfg.RequestTimeout)
	adminOnly := authMiddleware.RequireRoles(model.RoleAdmin)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", func(auth chi.Router) {
			auth.Use(timeout)
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
			auth.Post("/refresh", h.Auth.Refresh)
			auth.Post("/logout", h.Auth.Logout)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(timeout, authMiddleware.RequireAuth)
			users.Get("/me", h.User.Me)
			users.Patch("/me", h.User.UpdateMe)
			users.With(adminOnly).Get("/", h.User.List)
			users.With(adminOnly).Patch("/{id}", h.User.Update)
		})

		api.Route("/media", func(media chi.Router) {
			media.Use(authMiddleware.RequireAuth)

			media.With(streaming).Post("/upload", h.Media.Upload)
			media.With(streaming).Get("/{id}/download", h.Media.Download)
			media.With(streaming).Get("/{id}/thumbnail", h.Media.Thumbnail)

			media.Group(func(json chi.Router) {
				json.Use(timeout)
				json.Get("/my", h.Media.ListMine)
				json.Get("/{id}", h.Media.Get)
				json.Delete("/{id}", h.Media.Delete)
				json.Get("/{id}/permissions", h.Media.GetPermissions)
				json.Post("/{id}/permissions", h.Media.SetPermissions)
				json.Put("/{id}/permissions", h.Media.SetPermissions)
			})
		})

		api.With(timeout, authMiddleware.RequireAuth, adminOnly).Get("/audit", h.Audit.List)
	})

	return r
}
