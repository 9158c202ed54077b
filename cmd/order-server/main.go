// Package main provides the order core server entry point.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/pflag"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orderdesk/ordercore/pkg/audit"
	"github.com/orderdesk/ordercore/pkg/cache"
	"github.com/orderdesk/ordercore/pkg/ha"
	"github.com/orderdesk/ordercore/pkg/identity"
	"github.com/orderdesk/ordercore/pkg/lifecycle"
	"github.com/orderdesk/ordercore/pkg/orders"
	"github.com/orderdesk/ordercore/pkg/permissions"
	"github.com/orderdesk/ordercore/pkg/tenancy"
)

func main() {
	var (
		listenAddr   string
		databaseType string
		databaseDSN  string
		authMode     string
	)

	pflag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	pflag.StringVar(&databaseType, "db-type", "sqlite", "Database type (sqlite, postgres, or mysql)")
	pflag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string")
	pflag.StringVar(&authMode, "auth-mode", "header", "Identity extraction mode (header or jwt)")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting order server",
		"listen", listenAddr,
		"dbType", databaseType,
		"authMode", authMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	db, err := setupDatabase(databaseType, databaseDSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	orderStore := orders.NewOrderStore(db)
	directory := identity.NewDirectoryStore(db)

	// Migrations run under a lock so that multiple replicas sharing one
	// database never run AutoMigrate concurrently.
	locker := ha.NoopLocker()
	if ha.MigrationLockEnabled() {
		locker = ha.NewMigrationLocker(db)
	}
	err = locker.WithLock(ctx, func() error {
		if err := orderStore.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate order tables: %w", err)
		}
		if err := directory.AutoMigrate(); err != nil {
			return fmt.Errorf("migrate directory tables: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	historyStore := audit.NewHistoryStore(db)
	activityStore := audit.NewActivityStore(db)
	resolver := permissions.NewResolver(orderStore, directory)
	grantManager := permissions.NewGrantManager(db)
	archiveManager := lifecycle.NewArchiveManager(db, logger)

	var identityMiddleware func(http.Handler) http.Handler
	switch authMode {
	case "jwt":
		secret := os.Getenv("ORDERCORE_JWT_SECRET")
		if secret == "" {
			logger.Error("jwt auth mode requires ORDERCORE_JWT_SECRET")
			os.Exit(1)
		}
		identityMiddleware = identity.JWTMiddleware(identity.JWTConfig{
			Secret:    []byte(secret),
			RoleClaim: envOrDefault("ORDERCORE_JWT_ROLE_CLAIM", "role"),
			Issuer:    os.Getenv("ORDERCORE_JWT_ISSUER"),
			Logger:    logger,
		})
	case "header":
		identityMiddleware = identity.HeaderMiddleware()
	default:
		logger.Error("unknown auth mode", "authMode", authMode)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Remote-User", "X-Remote-Role", "X-Tenant"},
	}))
	router.Use(tenancy.NewMiddleware(tenancy.ModeFromEnv()))
	router.Use(identityMiddleware)
	router.Use(audit.ActivityMiddleware(activityStore, logger))

	cacheManager := cache.NewManager(cache.ConfigFromEnv())

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	lifecycleRouter := lifecycle.Router(archiveManager, orderStore)
	if cacheManager != nil {
		// Only the expiration-warnings listing is cached. Permission results
		// are recomputed on every request so grant and exception changes,
		// including those made by other replicas, apply immediately.
		wrappedLifecycle := chi.NewRouter()
		wrappedLifecycle.Use(cacheManager.WarningsMiddleware())
		wrappedLifecycle.Use(cacheManager.InvalidateOnWrite())
		wrappedLifecycle.Mount("/", lifecycleRouter)
		lifecycleRouter = wrappedLifecycle
	}
	router.Mount("/api/v1/permissions", permissions.Router(resolver, grantManager))
	router.Mount("/api/v1/lifecycle", lifecycleRouter)
	router.Mount("/api/v1/audit", audit.Router(historyStore, activityStore))

	// Retention worker runs for the life of the process.
	auditCfg := audit.ConfigFromEnv()
	retention := audit.NewRetentionWorker(historyStore, activityStore, auditCfg, logger)
	go retention.Run(ctx)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("order server ready", "listen", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("order server stopped")
}

func setupDatabase(dbType, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = os.Getenv("ORDERCORE_DATABASE_DSN")
	}

	switch dbType {
	case "sqlite":
		if dsn == "" {
			dsn = "ordercore.db"
		}
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	case "postgres":
		if dsn == "" {
			return nil, fmt.Errorf("postgres requires a DSN (use --db-dsn or ORDERCORE_DATABASE_DSN)")
		}
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "mysql":
		if dsn == "" {
			return nil, fmt.Errorf("mysql requires a DSN (use --db-dsn or ORDERCORE_DATABASE_DSN)")
		}
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	}
	return nil, fmt.Errorf("unknown database type %q (expected sqlite, postgres, or mysql)", dbType)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
