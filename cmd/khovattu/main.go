package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/khovattu/khovattu/internal/app"
	"github.com/khovattu/khovattu/internal/auth"
	"github.com/khovattu/khovattu/internal/documents"
	"github.com/khovattu/khovattu/internal/export"
	"github.com/khovattu/khovattu/internal/inventory"
	"github.com/khovattu/khovattu/internal/masterdata/categories"
	"github.com/khovattu/khovattu/internal/masterdata/products"
	"github.com/khovattu/khovattu/internal/masterdata/suppliers"
	"github.com/khovattu/khovattu/internal/masterdata/warehouses"
	"github.com/khovattu/khovattu/internal/observability"
	"github.com/khovattu/khovattu/internal/platform/cache"
	"github.com/khovattu/khovattu/internal/platform/db"
	"github.com/khovattu/khovattu/internal/rbac"
	"github.com/khovattu/khovattu/internal/shared"
	"github.com/khovattu/khovattu/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(os.Args[2:]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	// Quantities and money go over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	lockMode, err := documents.ParseLockMode(cfg.ShortageLockMode)
	if err != nil {
		logger.Error("parse shortage lock mode", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool); err != nil {
		logger.Error("migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	// The public summary cache is optional; without Redis every lookup reads
	// PostgreSQL.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, public summary cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	rbacService := rbac.NewService(dbpool)
	if err := rbacService.Seed(ctx); err != nil {
		logger.Error("seed roles", slog.Any("error", err))
		os.Exit(1)
	}
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens, logger)
	if err := authService.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Error("seed admin", slog.Any("error", err))
		os.Exit(1)
	}

	warehouseService := warehouses.NewService(warehouses.NewRepository(dbpool), logger)
	if err := warehouseService.EnsureDefault(ctx, cfg.DefaultWarehouseName, cfg.DefaultWarehouseLocation); err != nil {
		logger.Error("seed default warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	categoryService := categories.NewService(categories.NewRepository(dbpool))
	supplierService := suppliers.NewService(suppliers.NewRepository(dbpool))

	metrics := observability.NewMetrics()

	inventoryService := inventory.NewService(
		inventory.NewRepository(dbpool),
		cache.NewJSONStore(redisClient, "khovattu:"),
		inventory.ServiceConfig{PublicCacheTTL: cfg.PublicCacheTTL},
		logger,
	)
	productService := products.NewService(products.NewRepository(dbpool), inventoryService)
	documentService := documents.NewService(
		documents.NewRepository(dbpool),
		shared.NewAuditLogger(dbpool),
		shared.NewApprovalRecorder(dbpool, logger),
		documents.ServiceConfig{LockMode: lockMode, Metrics: metrics, Cache: inventoryService},
		logger,
	)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	if err := pdfClient.Ping(ctx); err != nil {
		logger.Warn("gotenberg unreachable, PDF exports will fail", slog.Any("error", err))
	}
	exportService := export.NewService(productService, documentService, inventoryService, pdfClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
		Tokens:  tokens,
		Checks:  healthChecks(dbpool.Ping, redisClient),

		AuthHandler:        auth.NewHandler(logger, authService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		CategoriesHandler:  categories.NewHandler(logger, categoryService, rbacMiddleware),
		SuppliersHandler:   suppliers.NewHandler(logger, supplierService, rbacMiddleware),
		WarehousesHandler:  warehouses.NewHandler(logger, warehouseService, rbacMiddleware),
		ProductsHandler:    products.NewHandler(logger, productService, rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		ReceiptsHandler:    documents.NewHandler(documents.KindReceipt, logger, documentService, rbacMiddleware),
		IssuesHandler:      documents.NewHandler(documents.KindIssue, logger, documentService, rbacMiddleware),
		ExportHandler:      export.NewHandler(logger, exportService, rbacMiddleware),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("shortage_lock_mode", string(lockMode)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func healthChecks(pingDB app.HealthCheck, redisClient *redis.Client) map[string]app.HealthCheck {
	checks := map[string]app.HealthCheck{"postgres": pingDB}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
