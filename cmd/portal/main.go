package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hartleydigital/portal-api/internal/config"
	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/handler"
	"github.com/hartleydigital/portal-api/internal/infra/cache"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/infra/resilience"
	"github.com/hartleydigital/portal-api/internal/infra/supabase"
	"github.com/hartleydigital/portal-api/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("profile_cache_ttl", cfg.ProfileCacheTTL),
		zap.Duration("contact_min_fill_time", cfg.ContactMinFillTime),
	)

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "portal-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	profileCache := cache.New[any](cfg.ProfileCacheTTL)
	catalogCache := cache.New[[]domain.Product](cfg.ProfileCacheTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("supabase")

	// --- Supabase client (PostgREST + GoTrue + edge functions) ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	sb := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseFunctionsURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Services ---
	auditWriter := service.NewAuditWriter(sb, cfg.AuditQueueSize, metrics, logger)
	defer auditWriter.Close()

	bus := service.NewAuthBus()
	authSvc := service.NewAuthService(sb, sb, sb, profileCache, bus, cfg.SupabaseJWTSecret, metrics, logger)

	// --- Realm session contexts ---
	// Both subscribe to the auth bus and track login/logout/refresh
	// events for the lifetime of the process.
	adminSession := service.NewSessionContext[domain.AdminUser](domain.RealmAdmin, authSvc.CurrentAdmin, logger)
	clientSession := service.NewSessionContext[domain.ClientUser](domain.RealmClient, authSvc.CurrentClient, logger)

	sessionCtx, stopSessions := context.WithCancel(context.Background())
	defer stopSessions()
	adminSession.Start(sessionCtx, bus, "")
	clientSession.Start(sessionCtx, bus, "")

	svcs := &handler.Services{
		Auth:       authSvc,
		Clients:    service.NewClientService(sb, sb, auditWriter, metrics, logger),
		AdminUsers: service.NewAdminUserService(sb, sb, auditWriter, metrics, logger),
		Projects:   service.NewProjectService(sb, auditWriter, logger),
		Invoices:   service.NewInvoiceService(sb, auditWriter, metrics, logger),
		Catalog:    service.NewCatalogService(sb, auditWriter, catalogCache, logger),
		Dashboard:  service.NewDashboardService(sb, logger),
		Contact:    service.NewContactService(sb, cfg.ContactMinFillTime, metrics, logger),

		AdminSession:  adminSession,
		ClientSession: clientSession,
	}

	// --- Router ---
	router := handler.NewRouter(svcs, cfg.AllowedOrigins, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
