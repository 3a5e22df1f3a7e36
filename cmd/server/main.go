// Package main - точка входа API сервера LearnHub.
//
// Сервер обслуживает жизненный цикл записи на курсы, геймификацию
// (очки, уровни, значки) и аналитику для преподавателей.
// Хранилище: PostgreSQL (или память для локальной разработки).
// События: Redis pub/sub между экземплярами либо шина в памяти.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alem-hub/learnhub/config"
	"github.com/alem-hub/learnhub/internal/application/command"
	"github.com/alem-hub/learnhub/internal/application/eventhandler"
	"github.com/alem-hub/learnhub/internal/application/gamification"
	"github.com/alem-hub/learnhub/internal/application/port"
	"github.com/alem-hub/learnhub/internal/application/query"
	"github.com/alem-hub/learnhub/internal/domain/shared"
	"github.com/alem-hub/learnhub/internal/infrastructure/messaging"
	"github.com/alem-hub/learnhub/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/learnhub/internal/infrastructure/persistence/postgres"
	"github.com/alem-hub/learnhub/internal/infrastructure/persistence/redis"
	httpapi "github.com/alem-hub/learnhub/internal/interface/http"
	"github.com/alem-hub/learnhub/internal/interface/http/handlers"
	"github.com/alem-hub/learnhub/pkg/logger"
	"github.com/alem-hub/learnhub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// eventBus - шина событий, которую нужно закрыть при остановке.
type eventBus interface {
	shared.EventBus
	Close() error
}

// storage - выбранная реализация хранилища и её проверка доступности.
type storage struct {
	uow   port.UnitOfWork
	ping  func(ctx context.Context) error
	close func()
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting LearnHub API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("storage", cfg.Database.Driver),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	bus, metrics, redisClient, err := openEventBus(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing event bus...")
		if err := bus.Close(); err != nil {
			log.Warn("event bus close", logger.Err(err))
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}()

	if cfg.Features.IsEnabled(config.FeatureEventLog) {
		if err := eventhandler.NewActivityLogHandler(log).Register(bus); err != nil {
			return fmt.Errorf("failed to register activity log: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ОБРАБОТЧИКИ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	deps := command.Deps{
		UoW:              store.uow,
		Publisher:        bus,
		Logger:           log,
		CompletionPoints: cfg.Gamification.CompletionPoints,
	}
	engine := gamification.NewEngine(store.uow, bus, log)

	if err := seedCourses(ctx, cfg, deps); err != nil {
		return err
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("storage", store.ping)
	if redisClient != nil {
		health.AddCheck("redis", handlers.PingCheck(redisClient))
	}

	server := httpapi.NewServer(httpConfig(cfg), httpapi.Dependencies{
		RegisterAccount:     command.NewRegisterAccountHandler(deps, cfg.Gamification.BcryptCost),
		Login:               command.NewLoginHandler(deps),
		SetAccountStatus:    command.NewSetAccountStatusHandler(deps),
		Enroll:              command.NewEnrollHandler(deps),
		RecordProgress:      command.NewRecordProgressHandler(deps),
		SetEnrollmentStatus: command.NewSetEnrollmentStatusHandler(deps),
		GrantAward:          command.NewGrantAwardHandler(deps, engine),

		GetAccount:        query.NewGetAccountHandler(store.uow, log),
		ListMyEnrollments: query.NewListMyEnrollmentsHandler(store.uow, log),
		StudentAnalytics:  query.NewStudentAnalyticsHandler(store.uow, log),
		PendingQueue:      query.NewPendingEnrollmentQueueHandler(store.uow, log),
		StudentProgress:   query.NewStudentProgressHandler(store.uow, log),
		PublicStats:       query.NewPublicStatsHandler(store.uow, log),

		Auth:          handlers.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Features:      cfg.Features,
		HealthChecker: health,
		EventMetrics:  metrics,
		Logger:        log,
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ЗАПУСК И GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.App.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown completed successfully")
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger настраивает структурированное логирование.
func setupLogger(cfg *config.Config) *logger.Logger {
	level := logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		level = logger.LevelDebug
	}
	return logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     level,
		Format:    cfg.Observability.LogFormat,
		AddCaller: true,
	}).Named(cfg.App.Name)
}

// openStorage подключается к PostgreSQL с повторами или создаёт хранилище в памяти.
func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Database.Driver == config.StorageMemory {
		log.Warn("using in-memory storage, data is lost on restart")
		st := memory.NewStore()
		return &storage{uow: st, ping: st.Ping, close: func() {}}, nil
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	log.Info("connecting to database...")
	conn, err := retry.Connect(ctx, connectPolicy(cfg.Database.Connect), func(ctx context.Context) (*postgres.Connection, error) {
		return postgres.NewConnection(ctx, pgCfg)
	}, notReady(log, "database"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		log.Info("checking database migrations...")
		if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	return &storage{
		uow:  postgres.NewUnitOfWork(conn),
		ping: conn.Ping,
		close: func() {
			log.Info("closing database connection...")
			conn.Close()
		},
	}, nil
}

// openEventBus выбирает Redis pub/sub, если он настроен, иначе шину в памяти.
func openEventBus(ctx context.Context, cfg *config.Config, log *logger.Logger) (eventBus, *messaging.EventBusMetrics, *redis.Client, error) {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.Logger = log

	if cfg.Redis.Disabled {
		log.Info("redis disabled, events stay in process")
		bus := messaging.NewInMemoryEventBus(local)
		return bus, bus.Metrics(), nil, nil
	}

	redisCfg := redis.Config{
		URL:          cfg.Redis.URL,
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   3,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	}

	log.Info("connecting to Redis...")
	client, err := retry.Connect(ctx, connectPolicy(cfg.Redis.Connect), func(ctx context.Context) (*redis.Client, error) {
		return redis.NewClient(ctx, redisCfg)
	}, notReady(log, "redis"))
	if err != nil {
		if cfg.IsProduction() {
			return nil, nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Warn("failed to connect to Redis, events stay in process", logger.Err(err))
		bus := messaging.NewInMemoryEventBus(local)
		return bus, bus.Metrics(), nil, nil
	}

	bus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
		Client:         client,
		ChannelName:    cfg.Redis.EventsChannel,
		LocalBusConfig: local,
		Logger:         log,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("failed to start event bus: %w", err)
	}
	log.Info("Redis event bus started", logger.String("channel", cfg.Redis.EventsChannel))
	return bus, bus.Metrics(), client, nil
}

// connectPolicy переводит настройки ожидания зависимости в политику повторов.
func connectPolicy(c config.ConnectRetryConfig) retry.Policy {
	return retry.Policy{Attempts: c.Attempts, InitialDelay: c.InitialDelay, MaxDelay: c.MaxDelay}
}

func notReady(log *logger.Logger, dependency string) retry.Notify {
	return func(attempt int, err error, wait time.Duration) {
		log.Warn(dependency+" not ready",
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", wait),
			logger.Err(err),
		)
	}
}

// seedCourses создаёт курсы из SEED_COURSES. Без них хранилище в памяти
// остаётся без каталога.
func seedCourses(ctx context.Context, cfg *config.Config, deps command.Deps) error {
	if len(cfg.Database.SeedCourses) == 0 {
		if cfg.Database.Driver == config.StorageMemory {
			deps.Logger.Warn("in-memory storage has no courses, set SEED_COURSES to create some")
		}
		return nil
	}

	seeds := make([]command.CourseSeed, 0, len(cfg.Database.SeedCourses))
	for _, c := range cfg.Database.SeedCourses {
		seeds = append(seeds, command.CourseSeed{Title: c.Title, Category: c.Category})
	}
	if _, err := command.NewSeedCoursesHandler(deps).Handle(ctx, command.SeedCoursesCommand{Courses: seeds}); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}
	return nil
}

func httpConfig(cfg *config.Config) httpapi.Config {
	c := httpapi.DefaultConfig()
	c.Port = cfg.HTTP.Port
	c.ReadTimeout = cfg.HTTP.ReadTimeout
	c.WriteTimeout = cfg.HTTP.WriteTimeout
	c.IdleTimeout = cfg.HTTP.IdleTimeout
	c.AllowedOrigins = cfg.HTTP.AllowedOrigins
	c.Version = cfg.App.Version
	return c
}
