package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"

	"github.com/pressroom-erp/pressroom-erp/internal/app"
	"github.com/pressroom-erp/pressroom-erp/internal/audit"
	"github.com/pressroom-erp/pressroom-erp/internal/auth"
	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/masterdata"
	"github.com/pressroom-erp/pressroom-erp/internal/observability"
	"github.com/pressroom-erp/pressroom-erp/internal/payments"
	"github.com/pressroom-erp/pressroom-erp/internal/platform/cache"
	"github.com/pressroom-erp/pressroom-erp/internal/platform/db"
	"github.com/pressroom-erp/pressroom-erp/internal/production"
	"github.com/pressroom-erp/pressroom-erp/internal/rbac"
	"github.com/pressroom-erp/pressroom-erp/internal/roles"
	"github.com/pressroom-erp/pressroom-erp/internal/shared"
	"github.com/pressroom-erp/pressroom-erp/internal/users"
	"github.com/pressroom-erp/pressroom-erp/jobs"
	"github.com/pressroom-erp/pressroom-erp/report"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	validate := validator.New()
	tokens := shared.NewTokenManager(redisClient, "pressroom:token", cfg.TokenTTL)
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	invoiceLock := shared.NewInvoiceLock(redisClient, cfg.InvoiceLockTTL)

	authService := auth.NewService(auth.NewRepository(pool), tokens)
	authHandler := auth.NewHandler(logger, authService, validate)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}

	masterdataService := masterdata.NewService(masterdata.NewRepository(pool))
	masterdataHandler := masterdata.NewHandler(logger, masterdataService, rbacMiddleware)
	catalog := masterdata.NewCatalog(masterdataService)

	invoiceService := invoices.NewService(invoices.NewRepository(pool), catalog, auditLogger)
	invoiceService.WithCache(redisClient, cfg.SummaryCacheTTL)
	invoiceHandler := invoices.NewHandler(logger, invoiceService, validate, rbacMiddleware)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	paymentService := payments.NewService(payments.NewRepository(pool), auditLogger, logger)
	paymentService.WithLock(invoiceLock)
	paymentService.WithIdempotency(idempotencyStore)
	paymentService.WithTasks(jobClient)
	paymentHandler := payments.NewHandler(logger, paymentService, validate, rbacMiddleware)

	productionService := production.NewService(production.NewRepository(pool), invoiceService, auditLogger, logger)
	productionHandler := production.NewHandler(logger, productionService, validate, rbacMiddleware, rbacService)

	userService := users.NewService(users.NewRepository(pool))
	userHandler := users.NewHandler(logger, userService, rbacService, rbacMiddleware)

	roleService := roles.NewService(rbacService)
	roleHandler := roles.NewHandler(logger, roleService, rbacMiddleware)

	auditService := audit.NewService(audit.NewRepository(pool))
	auditHandler := audit.NewHandler(logger, auditService, rbacMiddleware)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, invoiceService, logger, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		AuthService:       authService,
		AuthHandler:       authHandler,
		InvoiceHandler:    invoiceHandler,
		PaymentHandler:    paymentHandler,
		ProductionHandler: productionHandler,
		MasterDataHandler: masterdataHandler,
		ReportHandler:     reportHandler,
		UserHandler:       userHandler,
		RoleHandler:       roleHandler,
		AuditHandler:      auditHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
