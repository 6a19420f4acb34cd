package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tradewind-erp/tradewind-erp/internal/app"
	"github.com/tradewind-erp/tradewind-erp/internal/company"
	"github.com/tradewind-erp/tradewind-erp/internal/dashboard"
	"github.com/tradewind-erp/tradewind-erp/internal/inventory"
	"github.com/tradewind-erp/tradewind-erp/internal/invoicing"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/categories"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/customers"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/products"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/suppliers"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/units"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/warehouses"
	"github.com/tradewind-erp/tradewind-erp/internal/observability"
	"github.com/tradewind-erp/tradewind-erp/internal/platform/cache"
	"github.com/tradewind-erp/tradewind-erp/internal/platform/db"
	"github.com/tradewind-erp/tradewind-erp/internal/purchasing"
	"github.com/tradewind-erp/tradewind-erp/internal/sales"
	"github.com/tradewind-erp/tradewind-erp/internal/sequence"
	"github.com/tradewind-erp/tradewind-erp/internal/shared"
	"github.com/tradewind-erp/tradewind-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The read cache fails open, so an unreachable Redis only costs
		// cache hits and job visibility.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	alloc := sequence.NewAllocator()
	readCache := dashboard.NewCache(redisClient, cfg.CacheTTL, logger)

	companyRepo := company.NewRepository(pool)
	companyService := company.NewService(companyRepo)

	dashboardRepo := dashboard.NewRepository(pool)
	dashboardService := dashboard.NewService(dashboardRepo, readCache)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, readCache, logger)

	purchasingRepo := purchasing.NewRepository(pool, alloc)
	purchasingService := purchasing.NewService(purchasingRepo, companyService, auditLogger, readCache, logger, cfg.DefaultWarehouseID)

	invoicingRepo := invoicing.NewRepository(pool, alloc)
	invoicingService := invoicing.NewService(invoicingRepo, companyService, auditLogger, readCache, logger)

	salesRepo := sales.NewRepository(pool, alloc)
	salesService := sales.NewService(salesRepo, companyService, auditLogger, readCache, logger, cfg.DefaultWarehouseID)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger: logger,
		Config: cfg,

		CompanyHandler:   company.NewHandler(companyService),
		InventoryHandler: inventory.NewHandler(inventoryService),
		PurchaseHandler:  purchasing.NewHandler(purchasingService),
		SalesHandler:     sales.NewHandler(salesService),
		InvoiceHandler:   invoicing.NewHandler(invoicingService),
		DashboardHandler: dashboard.NewHandler(dashboardService),

		ProductHandler:   products.NewHandler(products.NewService(products.NewRepository(pool))),
		SupplierHandler:  suppliers.NewHandler(suppliers.NewService(suppliers.NewRepository(pool))),
		CustomerHandler:  customers.NewHandler(customers.NewService(customers.NewRepository(pool))),
		WarehouseHandler: warehouses.NewHandler(warehouses.NewService(warehouses.NewRepository(pool))),
		CategoryHandler:  categories.NewHandler(categories.NewService(categories.NewRepository(pool))),
		UnitHandler:      units.NewHandler(units.NewService(units.NewRepository(pool))),

		JobHandler: jobs.NewHandler(inspector, jobClient, logger),
		Metrics:    metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
