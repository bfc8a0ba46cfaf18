package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/config"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/domain"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/event"
	handler "github.com/Gyal-zenSherpa/Marketplace-sub001/internal/handler/http"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/identity"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/repository/postgres"
	redisrepo "github.com/Gyal-zenSherpa/Marketplace-sub001/internal/repository/redis"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/seed"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/internal/service"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/migrations"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/database"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/health"
	pkgkafka "github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/kafka"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/resilience"
	"github.com/Gyal-zenSherpa/Marketplace-sub001/pkg/tracing"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	registry       *service.Registry
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Redis and Kafka are optional: when disabled or unreachable the service runs
// without the product cache or without domain events.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, config.ServiceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if cfg.AutoMigrate {
		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")
	}

	if cfg.SlowQueryThreshold > 0 {
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)
	}

	// Every repository goes through the circuit breaker so an unhealthy
	// database fails fast instead of stalling requests.
	db := resilience.NewDB(pool, cfg.Breaker(), logger)

	var products domain.ProductRepository = postgres.NewProductRepository(db)

	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	// Optional Redis product cache.
	var rdb *redis.Client
	if cfg.RedisEnabled {
		rdb, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			logger.Warn("redis unavailable, product cache disabled",
				slog.String("addr", cfg.Redis().Addr()),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
			products = redisrepo.NewProductCache(rdb, products, cfg.ProductCacheTTL, logger)
			healthHandler.RegisterOptional("redis", func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			})
		}
	}

	// Optional Kafka domain events.
	var (
		producer  *pkgkafka.Producer
		publisher service.EventPublisher = event.Noop{}
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		if err := pingKafkaWithRetry(ctx, producer, logger); err != nil {
			logger.Warn("kafka producer ping failed after retries, continuing in degraded mode",
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		}
		publisher = event.NewProducer(producer, cfg.KafkaTopicPrefix, logger)
		healthHandler.RegisterOptional("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	// Build the dependency graph.
	catalog := service.NewCatalog(products)
	registry := service.NewRegistry(service.Deps{
		Wishlists:       postgres.NewWishlistRepository(db),
		History:         postgres.NewHistoryRepository(db),
		Catalog:         catalog,
		Verifier:        identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTokenTTL),
		Events:          publisher,
		WriteMode:       service.WriteMode(cfg.HistoryWriteMode),
		NoticeQueueSize: cfg.NoticeQueueSize,
		Now:             time.Now,
		Logger:          logger,
	}, service.RegistryConfig{
		IdleTTL:       cfg.SessionIdleTTL,
		SweepInterval: cfg.SessionSweepInterval,
		MaxSessions:   cfg.MaxSessions,
	})

	// HTTP router.
	router := handler.NewRouter(registry, catalog, healthHandler, logger, handler.RouterConfig{
		ServiceName:  config.ServiceName,
		CORS:         cfg.CORS(),
		PprofEnabled: cfg.PprofEnabled,
		PprofCIDRs:   cfg.PprofAllowedCIDRs,
		CreateRPS:    cfg.SessionCreateRPS,
		CreateBurst:  cfg.SessionCreateBurst,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		rdb:            rdb,
		producer:       producer,
		registry:       registry,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run serves HTTP and runs the session janitor until ctx is canceled or
// either of them fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.registry.Run(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
		defer cancel()
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	runErr := g.Wait()
	if err := a.Shutdown(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// Shutdown releases everything except the HTTP server, which Run drains:
// 1. Tracer (flush spans of drained requests)
// 2. Kafka producer
// 3. Redis client
// 4. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// Migrate applies the embedded schema and exits.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}

// Seed upserts count generated demo products into the catalog table.
func Seed(ctx context.Context, cfg *config.Config, logger *slog.Logger, count int, rngSeed uint64) (int, error) {
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return 0, fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	n, err := seed.Insert(ctx, pool, seed.Products(count, rngSeed), logger)
	if err != nil {
		return n, err
	}
	logger.Info("demo catalog seeded", slog.Int("products", n))
	return n, nil
}

// pingKafkaWithRetry attempts to ping the Kafka producer with exponential
// backoff (3 attempts, 1s/2s/4s with ±25% jitter).
func pingKafkaWithRetry(ctx context.Context, producer *pkgkafka.Producer, logger *slog.Logger) error {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := producer.Ping(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt == 2 {
			break
		}
		base := time.Duration(1<<uint(attempt)) * time.Second
		jitter := time.Duration(float64(base) * 0.25 * (2*rand.Float64() - 1)) // #nosec G404 -- non-cryptographic jitter for retry backoff
		wait := base + jitter
		logger.Warn("kafka producer ping failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", 3),
			slog.Duration("backoff", wait),
			slog.String("error", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("kafka ping: context canceled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("kafka producer ping failed after 3 attempts: %w", lastErr)
}
