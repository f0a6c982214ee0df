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

	"github.com/atlas-hr/atlas-hr/internal/access"
	"github.com/atlas-hr/atlas-hr/internal/app"
	"github.com/atlas-hr/atlas-hr/internal/auth"
	"github.com/atlas-hr/atlas-hr/internal/dashboard"
	"github.com/atlas-hr/atlas-hr/internal/documents"
	"github.com/atlas-hr/atlas-hr/internal/observability"
	"github.com/atlas-hr/atlas-hr/internal/permits"
	"github.com/atlas-hr/atlas-hr/internal/platform/cache"
	"github.com/atlas-hr/atlas-hr/internal/platform/db"
	"github.com/atlas-hr/atlas-hr/internal/roles"
	"github.com/atlas-hr/atlas-hr/internal/shared"
	"github.com/atlas-hr/atlas-hr/internal/uploads"
	"github.com/atlas-hr/atlas-hr/internal/users"
	"github.com/atlas-hr/atlas-hr/jobs"
	"github.com/atlas-hr/atlas-hr/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "atlas_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	accessStore := access.NewStore(dbpool)
	accessResolver := access.NewResolver(accessStore, logger)
	accessMiddleware := access.Middleware{Resolver: accessResolver, Logger: logger}
	accessHandler := access.NewHandler(logger)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, accessResolver)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, accessMiddleware)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, auditLogger)
	rolesHandler := roles.NewHandler(logger, rolesService, accessMiddleware)

	documentsRepo := documents.NewRepository(dbpool)
	documentsService := documents.NewService(documentsRepo, auditLogger, cfg.ExpiryWarnWindow)
	reportClient := report.NewClient(cfg.GotenbergURL)
	documentsHandler := documents.NewHandler(logger, documentsService, reportClient, accessMiddleware)

	permitsRepo := permits.NewRepository(dbpool)
	permitsService := permits.NewService(permitsRepo, approvalRecorder, idempotencyStore, auditLogger)
	permitsHandler := permits.NewHandler(logger, permitsService, accessMiddleware)

	diskStore, err := uploads.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}
	uploadsRepo := uploads.NewRepository(dbpool)
	uploadsService := uploads.NewService(uploadsRepo, diskStore, cfg.UploadMaxSize)
	uploadsHandler := uploads.NewHandler(logger, uploadsService, accessMiddleware)

	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo, cfg.ExpiryWarnWindow)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, accessMiddleware)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AccessMiddleware: accessMiddleware,
		AuthHandler:      authHandler,
		AccessHandler:    accessHandler,
		UsersHandler:     usersHandler,
		RolesHandler:     rolesHandler,
		DocumentsHandler: documentsHandler,
		PermitsHandler:   permitsHandler,
		UploadsHandler:   uploadsHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
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
