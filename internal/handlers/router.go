package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Lixing-Zhang/farmstand/internal/apperrors"
	"github.com/Lixing-Zhang/farmstand/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig holds everything the router mounts. A nil Farms handler
// leaves the /farms routes out.
type RouterConfig struct {
	Logger         *slog.Logger
	Health         *HealthHandler
	Products       *ProductHandler
	Farms          *FarmHandler
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler for the application.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	errs := middleware.NewErrorHandler(cfg.Logger)

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))
	r.Use(middleware.MethodOverride)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(errs.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		return apperrors.NotFound("Page not found")
	}))

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.ServeHTTP)
	}

	r.Route("/products", func(r chi.Router) {
		h := cfg.Products
		r.Get("/", errs.Wrap(h.ListProducts))
		r.Get("/new", errs.Wrap(h.NewProduct))
		r.Post("/", errs.Wrap(h.CreateProduct))
		r.Get("/{productId}", errs.Wrap(h.GetProduct))
		r.Get("/{productId}/edit", errs.Wrap(h.EditProduct))
		r.Put("/{productId}", errs.Wrap(h.UpdateProduct))
		r.Delete("/{productId}", errs.Wrap(h.DeleteProduct))
	})

	if cfg.Farms != nil {
		r.Route("/farms", func(r chi.Router) {
			h := cfg.Farms
			r.Get("/", errs.Wrap(h.ListFarms))
			r.Get("/new", errs.Wrap(h.NewFarm))
			r.Post("/", errs.Wrap(h.CreateFarm))
			r.Get("/{farmId}", errs.Wrap(h.GetFarm))
			r.Get("/{farmId}/products/new", errs.Wrap(h.NewFarmProduct))
			r.Post("/{farmId}/products", errs.Wrap(h.AddProduct))
			r.Delete("/{farmId}", errs.Wrap(h.DeleteFarm))
		})
	}

	return r
}
