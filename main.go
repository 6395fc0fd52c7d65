package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appauth "github.com/Zhima-Mochi/foodorder/internal/application/auth"
	appcart "github.com/Zhima-Mochi/foodorder/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/foodorder/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/foodorder/internal/application/order"
	"github.com/Zhima-Mochi/foodorder/internal/config"
	dommenu "github.com/Zhima-Mochi/foodorder/internal/domain/menu"
	domorder "github.com/Zhima-Mochi/foodorder/internal/domain/order"
	dompay "github.com/Zhima-Mochi/foodorder/internal/domain/payment"
	domuser "github.com/Zhima-Mochi/foodorder/internal/domain/user"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/cache"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/id"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/imagestore"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/keylock"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/mongostore"
	infraobs "github.com/Zhima-Mochi/foodorder/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/observability/zaplogger"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/outbox"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/password"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/payment"
	"github.com/Zhima-Mochi/foodorder/internal/infrastructure/token"
	"github.com/Zhima-Mochi/foodorder/internal/observability"
	"github.com/Zhima-Mochi/foodorder/internal/pkg/logging"
	httppresentation "github.com/Zhima-Mochi/foodorder/internal/presentation/http"
	workerpresentation "github.com/Zhima-Mochi/foodorder/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	if err := run(cfg, baseLogger, systemLogger); err != nil {
		systemLogger.Error("service_failed", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
	_ = baseLogger.Sync()
}

type stores struct {
	users  domuser.Repository
	menu   dommenu.Repository
	orders domorder.Repository
	close  func(context.Context) error
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.Store == config.StoreMemory {
		return stores{
			users:  memory.NewUserRepository(),
			menu:   memory.NewMenuRepository(),
			orders: memory.NewOrderRepository(),
			close:  func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return stores{}, err
	}
	db := client.Database(cfg.MongoDatabase)
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return stores{}, err
	}
	return stores{
		users:  mongostore.NewUserStore(db),
		menu:   mongostore.NewMenuStore(db),
		orders: mongostore.NewOrderStore(db),
		close:  client.Disconnect,
	}, nil
}

func run(cfg config.Config, baseLogger, systemLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := oteltrace.Setup(ctx, cfg.ServiceName, cfg.OTelExporterEndpoint)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	counters, histograms := prometrics.Standard(prometrics.New(prometheus.DefaultRegisterer, "", ""))
	tel := infraobs.New(infraobs.Config{
		Tracer:     oteltrace.New(cfg.ServiceName),
		Logger:     zaplogger.New(baseLogger),
		Counters:   counters,
		Histograms: histograms,
	})

	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	systemLogger.Info("store_ready", zap.String("store", string(cfg.Store)))

	images, err := imagestore.NewDiskStore(cfg.UploadDir)
	if err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}

	var menuCache appcatalog.ListCache
	if cfg.RedisURL != "" {
		rc, err := cache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("menu cache: %w", err)
		}
		defer func() { _ = rc.Close() }()
		menuCache = cache.NewMenuCache(rc, cfg.MenuCacheTTL)
	}

	tokens, err := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}
	hasher := password.NewHasher(cfg.BcryptCost)
	ids := id.NewUUIDGenerator()

	var gateway dompay.Gateway = payment.NewFakeGateway(tel)
	if cfg.StripeSecretKey != "" {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, tel)
	} else {
		systemLogger.Warn("payment_gateway_fake", zap.String("reason", "STRIPE_SECRET_KEY not set"))
	}

	// In-memory event bus between the order engine and its workers
	bus := outbox.NewBus(tel)

	carts := appcart.NewEngine(st.users, keylock.New(), tel)
	if cfg.CartClearPolicy == config.ClearOnPaid {
		apporder.NewCartWorker(carts, tel).Register(bus, workerpresentation.Middleware("cart-worker", tel))
	}
	bus.Start(ctx)

	handler := httppresentation.NewHandler(httppresentation.Deps{
		Register: appauth.NewRegisterUseCase(st.users, hasher, tokens, ids, tel),
		Login:    appauth.NewLoginUseCase(st.users, hasher, tokens, tel),
		Auth:     appauth.NewGate(tokens, tel),
		Cart:     carts,
		PlaceOrder: apporder.NewPlaceOrderUseCase(st.orders, carts, gateway, ids, bus, apporder.CheckoutConfig{
			Currency:         cfg.PaymentCurrency,
			DeliveryFeeMinor: cfg.DeliveryFeeMinor,
			FrontendURL:      cfg.FrontendURL,
			ClearCartOnPlace: cfg.CartClearPolicy == config.ClearOnPlace,
		}, tel),
		Orders:         apporder.NewManager(st.orders, gateway, bus, tel),
		Catalog:        appcatalog.NewService(st.menu, images, menuCache, ids, tel),
		AdminAPIKey:    cfg.AdminAPIKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		ImageDir:       images.Dir(),
		Metrics:        promhttp.Handler(),
		Telemetry:      tel,
	})
	if cfg.AdminAPIKey == "" {
		systemLogger.Warn("admin_routes_disabled", zap.String("reason", "ADMIN_API_KEY not set"))
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("cart_clear_policy", string(cfg.CartClearPolicy)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Error("event_bus_stop_error", zap.Error(err))
	}
	if err := st.close(shutdownCtx); err != nil {
		systemLogger.Error("store_close_error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		systemLogger.Error("tracing_shutdown_error", zap.Error(err))
	}

	tel.Logger().Info("service_stopped", observability.F("service", cfg.ServiceName))
	return runErr
}
