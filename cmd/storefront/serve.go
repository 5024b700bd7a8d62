package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MoonsunCreations/Moonsun-Store/internal/catalog"
	"github.com/MoonsunCreations/Moonsun-Store/internal/checkout"
	"github.com/MoonsunCreations/Moonsun-Store/internal/format"
	"github.com/MoonsunCreations/Moonsun-Store/internal/handlers"
	"github.com/MoonsunCreations/Moonsun-Store/internal/middleware"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/config"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/events"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/observability"
	"github.com/MoonsunCreations/Moonsun-Store/internal/platform/secrets"
)

const staticCacheControl = "public, max-age=86400"

var logLevel string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the storefront HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")
}

func runServe(cmd *cobra.Command, _ []string) error {
	baseLogger, err := observability.NewLogger(observability.WithLevel(logLevel))
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("storefront")

	cfg, err := config.Load(config.WithEnvFile(envFile))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Error("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	cartSecret, err := resolveCartSecret(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cartSecret == "" {
		logger.Warn("STORE_CART_SECRET is empty; cart cookies are not signed")
	}

	rt, err := openCatalog(ctx, cfg, cfg.Catalog.Source, logger)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	var loaded atomic.Bool
	rt.store.OnReplace(func(*catalog.Catalog) { loaded.Store(true) })
	// A failed first load leaves the shop empty; the watcher may still recover it.
	_ = rt.store.Refresh(ctx)

	if fileSource, ok := rt.source.(catalog.FileSource); ok && cfg.Catalog.Watch {
		watcher, err := catalog.NewWatcher(fileSource.Path, rt.store,
			catalog.WithWatcherLogger(observability.Component(logger, "catalog.watcher")))
		if err != nil {
			logger.Warn("catalog watcher unavailable", zap.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			logger.Warn("catalog watcher start failed", zap.Error(err))
			watcher.Stop()
		} else {
			defer watcher.Stop()
		}
	}

	var publisher checkout.HandoffPublisher
	if cfg.Cloud.HandoffTopic != "" {
		handoffs, closeEvents, err := events.Dial(ctx, cfg.Cloud.Project, cfg.Cloud.HandoffTopic)
		if err != nil {
			return fmt.Errorf("handoff events: %w", err)
		}
		defer func() {
			if err := closeEvents(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher = handoffs
		logger.Info("publishing checkout handoffs", zap.String("topic", cfg.Cloud.HandoffTopic))
	}

	money := format.NewMoney(cfg.Display.CurrencyLabel, cfg.Display.Locale)
	checkoutService, err := checkout.NewService(checkout.ServiceDeps{
		Catalog: rt.store.Current,
		Config: checkout.Config{
			Phone:         cfg.Checkout.Phone,
			PayPalAccount: cfg.Checkout.PayPalAccount,
			Money:         money,
		},
		Logger:    observability.Component(logger, "checkout"),
		Publisher: publisher,
	})
	if err != nil {
		return fmt.Errorf("checkout service: %w", err)
	}

	cartMetrics, err := observability.NewCartMetrics(observability.Meter())
	if err != nil {
		logger.Warn("cart metrics unavailable", zap.Error(err))
	}

	cookies := middleware.NewCookieCodec(cartSecret,
		middleware.WithMaxAge(cfg.Cart.CookieMaxAge),
		middleware.WithSecureCookies(cfg.Cart.SecureCookie),
	)

	storefront, err := handlers.NewStorefront(handlers.StorefrontDeps{
		Catalog:       rt.store.Current,
		Cookies:       cookies,
		Checkout:      checkoutService,
		Money:         money,
		ShopName:      cfg.Shop.Name,
		Tagline:       cfg.Shop.Tagline,
		FeaturedLimit: cfg.Shop.FeaturedLimit,
		Metrics:       cartMetrics,
		Logger:        observability.Component(logger, "storefront"),
	})
	if err != nil {
		return fmt.Errorf("storefront handlers: %w", err)
	}

	health := handlers.NewHealthHandlers(
		handlers.WithProductCount(func() int { return rt.store.Current().Len() }),
		handlers.WithReadiness(func() error {
			if !loaded.Load() {
				return errors.New("catalog not loaded")
			}
			return nil
		}),
	)

	publicDir := cfg.Server.PublicDir
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(),
			observability.RequestLoggerMiddleware(),
			observability.RecoveryMiddleware(logger, storefront.RenderPanic),
			chimw.Compress(5),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithStatic("/assets", middleware.StaticWithCache("/assets", filepath.Join(publicDir, "assets"), staticCacheControl)),
		handlers.WithStatic("/images", middleware.StaticWithCache("/images", filepath.Join(publicDir, "images"), staticCacheControl)),
		handlers.WithPageRoutes(storefront.PageRoutes),
		handlers.WithCartRoutes(storefront.CartRoutes),
		handlers.WithCheckoutRoutes(storefront.CheckoutRoutes),
		handlers.WithAPIRoutes(storefront.APIRoutes),
		handlers.WithNotFound(storefront.NotFound),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	serveErr := make(chan error, 1)
	go func() {
		serverLogger.Info("storefront listening",
			zap.String("catalog", rt.source.String()),
			zap.Int("products", rt.store.Current().Len()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	if err := checkoutService.Wait(shutdownCtx); err != nil {
		logger.Warn("pending handoff events abandoned", zap.Error(err))
	}
	return nil
}

// resolveCartSecret returns STORE_CART_SECRET, fetching it from Secret Manager
// when it is a secret:// reference.
func resolveCartSecret(ctx context.Context, cfg config.Config, logger *zap.Logger) (string, error) {
	if !secrets.IsReference(cfg.Cart.Secret) {
		return cfg.Cart.Secret, nil
	}
	resolver, err := secrets.NewResolver(ctx,
		secrets.WithProject(cfg.Cloud.Project),
		secrets.WithFallbackFile(cfg.Cloud.SecretsFallback),
		secrets.WithLogger(observability.Component(logger, "secrets")),
	)
	if err != nil {
		return "", fmt.Errorf("secret resolver: %w", err)
	}
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret manager close error", zap.Error(err))
		}
	}()
	secret, err := resolver.Resolve(ctx, cfg.Cart.Secret)
	if err != nil {
		return "", fmt.Errorf("cart secret: %w", err)
	}
	return secret, nil
}
