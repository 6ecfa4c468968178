// Package main initializes and runs the document hub service.
//
// It acts as the composition root: it loads configuration, connects the
// infrastructure (PostgreSQL, Redis, the account service client), wires the
// enquiry pipeline, and handles the server lifecycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghmd86/document-hub-sub000/internal/access"
	"github.com/ghmd86/document-hub-sub000/internal/accounts"
	"github.com/ghmd86/document-hub-sub000/internal/api"
	"github.com/ghmd86/document-hub-sub000/internal/cache"
	"github.com/ghmd86/document-hub-sub000/internal/config"
	"github.com/ghmd86/document-hub-sub000/internal/database"
	"github.com/ghmd86/document-hub-sub000/internal/enquiry"
	"github.com/ghmd86/document-hub-sub000/internal/extraction"
	"github.com/ghmd86/document-hub-sub000/internal/logger"
	"github.com/ghmd86/document-hub-sub000/internal/matching"
	"github.com/ghmd86/document-hub-sub000/internal/store"
)

// documentLinkBasePath is the external path prefix of the content endpoint.
const documentLinkBasePath = "/api/v1/documents"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run executes the service lifecycle.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logger.New(&cfg.App)
	slog.SetDefault(log)
	cfg.LogConfig(log)

	ctx := logger.WithContext(context.Background(), log)

	// Infrastructure.
	pool, err := database.NewPostgresPool(ctx, &cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	var responseCache extraction.ResponseCache
	if cfg.Redis.IsConfigured() {
		redisClient, err := cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisClient.Close()
		responseCache = cache.NewRedisResponseCache(redisClient)
	} else {
		log.Warn("redis not configured, extraction response caching disabled")
	}

	tplCache, err := cache.NewTemplateCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("initializing template cache: %w", err)
	}
	defer tplCache.Close()

	// Account metadata. Without a configured account service every account
	// falls back to the default line of business.
	var (
		metadata accounts.MetadataProvider
		resolver accounts.AccountResolver
	)
	if cfg.Accounts.IsConfigured() {
		httpProvider := accounts.NewHTTPProvider(&http.Client{Timeout: cfg.Accounts.Timeout}, &cfg.Accounts)
		metadata = httpProvider
		resolver = httpProvider
	} else {
		log.Warn("account service not configured, using static account metadata")
		metadata = accounts.NewStaticProvider(cfg.Accounts.DefaultLineOfBusiness)
	}

	// Pipeline wiring.
	service := enquiry.NewService(
		store.NewPostgresTemplateStore(pool),
		tplCache,
		matching.NewMatcher(store.NewPostgresStorageIndex(pool), log),
		extraction.NewExecutor(&http.Client{}, responseCache, log),
		metadata,
		resolver,
		store.NewPostgresAuditStore(pool),
		access.NewLinkBuilder(documentLinkBasePath, cfg.Enquiry.LinkExpiration),
		&cfg.Enquiry,
		log,
	)

	restAPI := api.NewAPI(service, tplCache, log)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           restAPI.Router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}

	log.Info("service exited successfully")
	return nil
}
