package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/peakay-kush/PK-Automations-sub001/internal/api/handler"
	"github.com/peakay-kush/PK-Automations-sub001/internal/api/middleware"
	"github.com/peakay-kush/PK-Automations-sub001/internal/app/service"
	"github.com/peakay-kush/PK-Automations-sub001/internal/platform/metrics"
)

type Deps struct {
	AuthService    *service.AuthService
	UserService    *service.UserAdminService
	OrderService   *service.OrderService
	CatalogService *service.CatalogService
	Gate           *middleware.Gate
	Log            *zap.Logger

	// Redis is optional; without it the login limiter lets everything through.
	Redis           *redis.Client
	LoginRateLimit  int
	LoginRateWindow time.Duration
	CORSOrigins     []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	limited := middleware.RateLimit(d.Redis, d.LoginRateLimit, d.LoginRateWindow, "auth", d.Log)

	authHandler := handler.NewAuthHandler(d.AuthService, d.UserService, d.Gate)
	userHandler := handler.NewUserHandler(d.UserService, d.Gate)
	orderHandler := handler.NewOrderHandler(d.OrderService, d.Gate)
	catalogHandler := handler.NewCatalogHandler(d.CatalogService, d.Gate)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", func(ar chi.Router) {
			authHandler.RegisterRoutes(ar, limited)
		})
		v1.Route("/orders", orderHandler.RegisterRoutes)
		catalogHandler.RegisterPublicRoutes(v1)

		v1.Route("/admin", func(admin chi.Router) {
			admin.Route("/users", userHandler.RegisterRoutes)
			admin.Route("/orders", orderHandler.RegisterAdminRoutes)
			admin.Route("/products", catalogHandler.RegisterAdminProductRoutes)
			admin.Route("/shipping", catalogHandler.RegisterAdminShippingRoutes)
		})
	})

	return r
}
