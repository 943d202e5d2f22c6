package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-cart/api/controllers"
	"github.com/angelmondragon/storefront-cart/api/routes"
	"github.com/angelmondragon/storefront-cart/internal/cart"
	"github.com/angelmondragon/storefront-cart/pkg/cms"
	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
	"github.com/angelmondragon/storefront-cart/pkg/migrate"
	"github.com/angelmondragon/storefront-cart/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"cart_storage": cfg.Cart.Storage,
	})

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	var dbClient *db.Client
	if cfg.Cart.UsesSQL() || cfg.FeatureFlags.AutoMigrate {
		dbClient, err = db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))
	}

	var (
		storage cart.Storage
		repo    *cart.Repository
	)
	if cfg.Cart.UsesSQL() {
		repo = cart.NewRepository(dbClient.DB())
		storage = repo
	} else {
		storage, err = cart.NewRedisStorage(redisClient, cfg.Cart.StateTTL)
		requireResource(ctx, logg, "redis cart storage", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	cartMetrics := metrics.NewCartMetrics(promRegistry)

	cmsClient, err := cms.NewClient(
		cfg.CMS.BaseURL,
		cms.WithHTTPClient(&http.Client{Timeout: cfg.CMS.HTTPTimeout}),
		cms.WithAPIToken(cfg.CMS.APIToken),
		cms.WithLogger(logg),
		cms.WithCallObserver(cartMetrics),
		cms.WithBreaker(cfg.CMS.BreakerMaxFailures, cfg.CMS.BreakerOpenTimeout),
	)
	requireResource(ctx, logg, "cms client", err)

	gateway, err := cart.NewCMSGateway(cmsClient, cms.NewTaxSettingsCache(cmsClient, cfg.CMS.TaxSettingsCacheTTL))
	requireResource(ctx, logg, "cms gateway", err)

	currency, err := cfg.Cart.CurrencyCode()
	requireResource(ctx, logg, "cart currency", err)

	registry, err := cart.NewRegistry(cart.RegistryParams{
		Namespace:       cfg.Cart.Namespace,
		Storage:         storage,
		Discounts:       gateway,
		Tax:             gateway,
		Logger:          logg,
		Metrics:         cartMetrics,
		Currency:        currency,
		PersistTimeout:  cfg.Cart.PersistTimeout,
		DiscountTimeout: cfg.Cart.DiscountTimeout,
		TaxTimeout:      cfg.Cart.TaxTimeout,
	})
	requireResource(ctx, logg, "cart registry", err)

	catalog, err := cart.NewCMSCatalog(cmsClient)
	requireResource(ctx, logg, "cms catalog", err)

	cartService, err := cart.NewService(registry, catalog)
	requireResource(ctx, logg, "cart service", err)

	readiness := map[string]controllers.Pinger{"redis": redisClient}
	if dbClient != nil {
		readiness["db"] = dbClient
	}

	router := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Cart:        cartService,
		RateLimiter: redisClient,
		Gatherer:    promRegistry,
		Readiness:   readiness,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go runSweeper(ctx, logg, cfg.Cart, registry, repo)

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "port", cfg.App.Port), "api server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
	)
	if dbClient != nil {
		err = multierr.Append(err, dbClient.Close())
	}
	if err != nil {
		logg.Error(shutdownCtx, "shutdown completed with errors", err)
		os.Exit(1)
	}
	logg.Info(shutdownCtx, "api server stopped")
}

// runSweeper evicts idle sessions from memory and, for the SQL backend,
// deletes cart rows older than the state TTL.
func runSweeper(ctx context.Context, logg *logger.Logger, cfg config.CartConfig, registry *cart.Registry, repo *cart.Repository) {
	if cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		evicted := registry.Sweep(cfg.SessionIdleTTL)
		fields := map[string]any{"evicted_sessions": evicted, "active_sessions": registry.Len()}

		if repo != nil && cfg.StateTTL > 0 {
			removed, err := repo.DeleteStale(ctx, time.Now().Add(-cfg.StateTTL))
			if err != nil {
				logg.Error(ctx, "cart sweep: delete stale states failed", err)
			}
			fields["deleted_states"] = removed
		}

		logg.Info(logg.WithFields(ctx, fields), "cart sweep completed")
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
