package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dinepos/api/internal/config"
	"github.com/dinepos/api/internal/handler"
	"github.com/dinepos/api/internal/logging"
	mw "github.com/dinepos/api/internal/middleware"
	"github.com/dinepos/api/internal/service"
	"github.com/dinepos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the services the HTTP surface is built on.
type Deps struct {
	Accounts    *service.AccountService
	Restaurants *service.RestaurantService
	Catalog     *service.CatalogService
	Orders      *service.OrderService
	QR          service.MenuQR
	Hub         *ws.Hub
	Logger      *slog.Logger
	// Location defines calendar days for reports.
	Location *time.Location
}

// New creates a Chi router with all application routes wired up.
// Everything except auth, the public menu and the websocket (which checks
// its own token) requires a bearer token bound to a restaurant.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handler.NewAuthHandler(d.Accounts, d.Restaurants, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	publicHandler := handler.NewPublicHandler(d.Restaurants, d.Catalog, d.QR)
	r.Route("/public/menus", publicHandler.RegisterRoutes)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(d.Hub, cfg.JWTSecret, w, r)
	})

	// Restaurant-scoped routes
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))
		r.Use(mw.RequireRestaurant)

		r.Route("/restaurant", handler.NewRestaurantHandler(d.Restaurants).RegisterRoutes)
		r.Route("/menu", handler.NewMenuHandler(d.Catalog).RegisterRoutes)
		r.Route("/orders", handler.NewOrderHandler(d.Orders, d.Catalog).RegisterRoutes)
		r.Route("/reports", handler.NewReportsHandler(d.Orders, d.Location).RegisterRoutes)
	})

	d.Logger.Info("router initialized")
	return r
}
