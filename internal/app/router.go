package app

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/khovattu/khovattu/internal/auth"
	"github.com/khovattu/khovattu/internal/documents"
	"github.com/khovattu/khovattu/internal/export"
	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/masterdata/categories"
	"github.com/khovattu/khovattu/internal/masterdata/products"
	"github.com/khovattu/khovattu/internal/masterdata/suppliers"
	"github.com/khovattu/khovattu/internal/masterdata/warehouses"
	"github.com/khovattu/khovattu/internal/observability"
	"github.com/khovattu/khovattu/internal/platform/httpx"
	"github.com/khovattu/khovattu/internal/rbac"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics
	Tokens  *auth.TokenIssuer
	Checks  map[string]HealthCheck

	AuthHandler        *auth.Handler
	PermissionsHandler *rbac.PermissionsHandler
	CategoriesHandler  *categories.Handler
	SuppliersHandler   *suppliers.Handler
	WarehousesHandler  *warehouses.Handler
	ProductsHandler    *products.Handler
	InventoryHandler   *inventory.Handler
	ReceiptsHandler    *documents.Handler
	IssuesHandler      *documents.Handler
	ExportHandler      *export.Handler
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(params.Checks, logger))

		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/public", params.InventoryHandler.MountPublicRoutes)
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(params.Tokens, logger))

			if params.PermissionsHandler != nil {
				r.Route("/rbac", params.PermissionsHandler.MountRoutes)
			}
			r.Route("/catalog", func(r chi.Router) {
				if params.CategoriesHandler != nil {
					r.Route("/categories", params.CategoriesHandler.MountRoutes)
				}
				if params.SuppliersHandler != nil {
					r.Route("/suppliers", params.SuppliersHandler.MountRoutes)
				}
				if params.WarehousesHandler != nil {
					r.Route("/warehouses", params.WarehousesHandler.MountRoutes)
				}
				if params.ProductsHandler != nil {
					r.Route("/products", params.ProductsHandler.MountRoutes)
				}
				if params.InventoryHandler != nil {
					params.InventoryHandler.MountCatalogRoutes(r)
				}
			})
			r.Route("/warehouse", func(r chi.Router) {
				if params.InventoryHandler != nil {
					params.InventoryHandler.MountWarehouseRoutes(r)
				}
				if params.ReceiptsHandler != nil {
					r.Route("/receipts", params.ReceiptsHandler.MountRoutes)
				}
				if params.IssuesHandler != nil {
					r.Route("/issues", params.IssuesHandler.MountRoutes)
				}
				if params.ExportHandler != nil {
					r.Route("/exports", params.ExportHandler.MountRoutes)
				}
			})
		})
	})

	return r
}

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := healthStatus{Status: "ok"}
		code := http.StatusOK
		for _, name := range names {
			if status.Checks == nil {
				status.Checks = make(map[string]string, len(names))
			}
			if err := checks[name](ctx); err != nil {
				logger.Warn("health check failed", slog.String("check", name), slog.Any("error", err))
				status.Checks[name] = "down"
				status.Status = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			status.Checks[name] = "up"
		}
		httpx.JSON(w, code, status)
	}
}
