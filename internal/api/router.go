package api

import (
	"aquacare/internal/api/handler"
	mw "aquacare/internal/api/middleware"
	"aquacare/internal/config"
	"aquacare/internal/domain/customer"
	"aquacare/internal/realtime"
	"log/slog"
	"net/http"
	"time"

	_ "aquacare/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

func SetupRouter(rateLimiter mw.RateLimiter, store customer.Store, hub *realtime.Hub, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, rateLimiter, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupRealtimeRoutes(router, hub, cfg, logger)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Compress(5))
		r.Use(middleware.Timeout(60 * time.Second))

		setupAuthRoutes(r, cfg, logger)
		setupCustomerRoutes(r, cfg, store, logger)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
		setupSwaggerEndpoint(r, logger)
	})

	return router
}

func setupMiddleware(router *chi.Mux, rateLimiter mw.RateLimiter, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(rateLimiter.Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router chi.Router, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router chi.Router, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(*cfg, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.GenerateBearerToken)
	})
}

// The websocket stays outside the compress and timeout group: both would
// break a long-lived hijacked connection.
func setupRealtimeRoutes(router *chi.Mux, hub *realtime.Hub, cfg *config.Config, logger *slog.Logger) {
	wsHandler := handler.NewWebSocketHandler(hub, logger)
	router.With(mw.AuthMiddleware(cfg.Server.Auth, logger)).Get("/ws", wsHandler.Subscribe)
}

func setupCustomerRoutes(router chi.Router, cfg *config.Config, store customer.Store, logger *slog.Logger) {
	h := handler.NewCustomerHandler(store, logger)

	router.With(mw.AuthMiddleware(cfg.Server.Auth, logger)).Get("/dashboard", h.Dashboard)

	router.Route("/customers", func(r chi.Router) {
		r.Use(mw.AuthMiddleware(cfg.Server.Auth, logger))
		r.Get("/", h.ListCustomers)
		r.Post("/", h.CreateCustomer)
		r.Get("/expiring", h.ListExpiring)
		r.Get("/expired", h.ListExpired)
		r.Post("/refresh", h.RefreshCustomers)
		r.Route("/{customerID}", func(r chi.Router) {
			r.Get("/", h.GetCustomer)
			r.Patch("/", h.UpdateCustomer)
			r.Delete("/", h.DeleteCustomer)
			r.Post("/visits", h.AddServiceVisit)
		})
	})
}
