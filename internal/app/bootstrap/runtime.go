package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/asiedupress/storefront-service/internal/adapters/blob"
	cacheadapter "github.com/asiedupress/storefront-service/internal/adapters/cache"
	"github.com/asiedupress/storefront-service/internal/adapters/email"
	httpadapter "github.com/asiedupress/storefront-service/internal/adapters/http"
	"github.com/asiedupress/storefront-service/internal/adapters/memory"
	"github.com/asiedupress/storefront-service/internal/adapters/newsletter"
	"github.com/asiedupress/storefront-service/internal/adapters/paystack"
	"github.com/asiedupress/storefront-service/internal/adapters/postgres"
	"github.com/asiedupress/storefront-service/internal/adapters/security"
	"github.com/asiedupress/storefront-service/internal/application"
	"github.com/asiedupress/storefront-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	cleanupFn  func(context.Context)
}

// NewRuntime wires the full service. Optional integrations (database, redis,
// mailer, newsletter, gateway) degrade individually when their credentials
// are absent so local development never needs the whole production stack.
func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping storefront service",
		"environment", cfg.Environment, "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	cleanup := func(context.Context) {}
	ready := func(context.Context) error { return nil }

	var (
		purchases ports.PurchaseRepository
		downloads ports.DownloadRepository
		events    ports.AnalyticsEventRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		sqlDB, err := pool.DB()
		if err != nil {
			return nil, fmt.Errorf("gorm sql db: %w", err)
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		purchases = postgres.NewPurchaseRepository(pool)
		downloads = postgres.NewDownloadRepository(pool)
		events = postgres.NewAnalyticsEventRepository(pool)
		cleanup = func(context.Context) { _ = sqlDB.Close() }
		ready = func(ctx context.Context) error { return sqlDB.PingContext(ctx) }
	} else {
		logger.Warn("no database configured, using in-memory stores")
		purchases = memory.NewPurchaseRepository()
		downloads = memory.NewDownloadRepository()
		events = memory.NewAnalyticsEventRepository()
	}

	var limiter ports.RateLimiter
	if cfg.RedisURL != "" {
		redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
		if err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cleanup(ctx)
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		limiter = cacheadapter.NewRedisRateLimiter(redisClient)
		prev := cleanup
		cleanup = func(ctx context.Context) {
			_ = redisClient.Close()
			prev(ctx)
		}
	} else {
		logger.Warn("no redis configured, checkout rate limiting disabled")
	}

	var gateway ports.PaymentGateway
	var decoder ports.WebhookDecoder
	if cfg.PaystackSecretKey != "" {
		gateway = paystack.NewClient(cfg.PaystackSecretKey, cfg.PaystackBaseURL, cfg.GatewayTimeout)
		decoder = paystack.NewWebhookDecoder(cfg.PaystackSecretKey)
	} else {
		logger.Warn("no payment gateway configured")
	}

	var mailer ports.Mailer
	if cfg.ResendAPIKey != "" && cfg.ResendFromEmail != "" {
		mailer = email.NewResendMailer(cfg.ResendAPIKey, cfg.ResendFromEmail, cfg.SenderName, "", 0)
	} else {
		logger.Warn("no mailer configured, purchase emails disabled")
	}

	var subscribers ports.SubscriberStore
	if cfg.BrevoAPIKey != "" {
		subscribers = newsletter.NewBrevoStore(cfg.BrevoAPIKey, cfg.BrevoListIDs, "", 0)
	} else {
		logger.Warn("no newsletter provider configured")
	}

	var sources []ports.BlobSource
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		sources = append(sources, blob.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, 0))
	}
	sources = append(sources, blob.NewLocalDir(cfg.FilesDir))

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			Environment:          cfg.Environment,
			DownloadLinkTTL:      cfg.DownloadLinkTTL,
			OperatorKey:          cfg.AnalyticsKey,
			AdminEmails:          cfg.AdminEmails,
			SenderName:           cfg.SenderName,
			WebhookNotifications: cfg.WebhookNotifications,
			CheckoutRateLimit:    cfg.CheckoutRateLimit,
			RateLimitWindow:      cfg.RateLimitWindow,
		},
		Purchases:   purchases,
		Downloads:   downloads,
		Events:      events,
		Gateway:     gateway,
		Mailer:      mailer,
		Subscribers: subscribers,
		Signer:      security.NewHMACLinkSigner(cfg.DownloadSecret),
		Blobs:       blob.NewChain(sources...),
		Limiter:     limiter,
	})

	handler := httpadapter.NewHandler(svc, decoder, ready)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup(ctx)
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		cleanupFn:  cleanup,
	}, nil
}

// Run serves HTTP and gRPC until the context is cancelled or a server fails,
// then shuts both down gracefully.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
		runErr = err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	r.logger.Info("shutdown complete")
	return runErr
}
