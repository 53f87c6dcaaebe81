package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/andesgear/pos-api/internal/clients/openfactura"
	"github.com/andesgear/pos-api/internal/clients/shipit"
	"github.com/andesgear/pos-api/internal/clients/strapi"
	"github.com/andesgear/pos-api/internal/clients/woocommerce"
	"github.com/andesgear/pos-api/internal/handlers"
	"github.com/andesgear/pos-api/internal/invoicing"
	"github.com/andesgear/pos-api/internal/platform/config"
	"github.com/andesgear/pos-api/internal/platform/observability"
	"github.com/andesgear/pos-api/internal/services"
)

func main() {
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("pos-api")

	cfg, err := config.Load()
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	clientLogger := observability.EventLogger(logger.Named("clients"))

	strapiClient, err := strapi.NewClient(cfg.Strapi.BaseURL, cfg.Strapi.APIToken, &http.Client{Timeout: cfg.Strapi.Timeout}, strapi.WithLogger(clientLogger))
	if err != nil {
		logger.Fatal("failed to initialise content store client", zap.Error(err))
	}

	wooClient, err := woocommerce.NewClient(woocommerce.Config{
		BaseURL:        cfg.WooCommerce.BaseURL,
		ConsumerKey:    cfg.WooCommerce.ConsumerKey,
		ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
		WriteTimeout:   cfg.WooCommerce.WriteTimeout,
		HTTPClient:     &http.Client{Timeout: cfg.WooCommerce.Timeout},
		Logger:         clientLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise storefront client", zap.Error(err))
	}

	var shipments services.ShipmentCreator
	if cfg.Features.EnableShipments {
		shipitClient, err := shipit.NewClient(cfg.Shipit.BaseURL, cfg.Shipit.Email, cfg.Shipit.Token, &http.Client{Timeout: cfg.Shipit.Timeout})
		if err != nil {
			logger.Fatal("failed to initialise courier client", zap.Error(err))
		}
		shipments = shipitClient
	}

	var invoices services.InvoiceIssuer
	if cfg.Features.EnableInvoicing {
		ofClient, err := openfactura.NewClient(cfg.OpenFactura.BaseURL, cfg.OpenFactura.APIKey, &http.Client{Timeout: cfg.OpenFactura.Timeout})
		if err != nil {
			logger.Fatal("failed to initialise invoicing client", zap.Error(err))
		}
		issuer, err := invoicing.NewOpenFacturaIssuer(ofClient, cfg.POS.BusinessRUT, nil)
		if err != nil {
			logger.Fatal("failed to initialise invoice issuer", zap.Error(err))
		}
		manager, err := invoicing.NewManager(map[string]invoicing.Issuer{"openfactura": issuer})
		if err != nil {
			logger.Fatal("failed to initialise invoicing manager", zap.Error(err))
		}
		invoices = manager
	}

	eventLogger := observability.EventLogger(logger.Named("services"))
	sessionStore := services.NewSessionStore(cfg.POS.SessionTTL, nil)

	registerService, err := services.NewRegisterService(services.RegisterServiceDeps{
		Store:          sessionStore,
		Catalog:        strapiClient,
		Logger:         eventLogger,
		DefaultTaxRate: cfg.POS.TaxRatePercent,
	})
	if err != nil {
		logger.Fatal("failed to initialise register service", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Store:     sessionStore,
		Orders:    wooClient,
		Shipments: shipments,
		Invoices:  invoices,
		Receipt: services.ReceiptConfig{
			Enabled:      cfg.Features.EnableReceipts,
			BusinessName: cfg.POS.BusinessName,
			BusinessRUT:  cfg.POS.BusinessRUT,
			StoreAddress: cfg.POS.StoreAddress,
		},
		Logger: eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Content: strapiClient,
		Remote:  wooClient,
		Logger:  eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	registerHandlers := handlers.NewRegisterHandlers(registerService)
	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)
	orderHandlers := handlers.NewOrderHandlers(orderService)
	productHandlers := handlers.NewProductHandlers(strapiClient)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfoFromEnv(startedAt)),
		handlers.WithHealthProbe("woocommerce", func(ctx context.Context) error {
			if !wooClient.Configured() {
				return errors.New("storefront client not configured")
			}
			return nil
		}),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger.Named("http")),
			observability.TraceMiddleware(),
			observability.RecoveryMiddleware(),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPOSRoutes(func(r chi.Router) {
			registerHandlers.Routes(r)
			checkoutHandlers.Routes(r)
		}),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithProductRoutes(productHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("pos api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(started time.Time) handlers.BuildInfo {
	version := strings.TrimSpace(os.Getenv("POS_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("POS_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(os.Getenv("POS_ENVIRONMENT"))
	if environment == "" {
		environment = "local"
	}
	return handlers.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}
