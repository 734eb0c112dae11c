// Package main - точка входа сервиса менторства.
//
// Процесс поднимает HTTP API, шину событий, обработчики инвалидации кэша
// и планировщик фоновой сверки нагрузки менторов.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mentorlink/mentorship-core/config"
	"github.com/mentorlink/mentorship-core/internal/application/command"
	"github.com/mentorlink/mentorship-core/internal/application/eventhandler"
	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/messaging"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/persistence/memory"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/persistence/mongo"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/persistence/postgres"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/persistence/redis"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/scheduler"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/scheduler/jobs"
	httpapi "github.com/mentorlink/mentorship-core/internal/interface/http"
	"github.com/mentorlink/mentorship-core/internal/interface/http/handlers"
	"github.com/mentorlink/mentorship-core/pkg/circuitbreaker"
	"github.com/mentorlink/mentorship-core/pkg/logger"
	"github.com/mentorlink/mentorship-core/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// store объединяет выбранные репозитории и их жизненный цикл.
type store struct {
	profiles    profile.Repository
	mentorships mentorship.Repository
	pinger      handlers.Pinger
	close       func()
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
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.Observability.AddCaller,
	}).With(logger.String("service", cfg.App.Name), logger.String("env", string(cfg.App.Environment)))
	ctx = logger.WithContext(ctx, log)

	log.Info("starting mentorship service",
		logger.String("version", cfg.App.Version),
		logger.String("store", string(cfg.Store.Driver)),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (опционально: кэш, rate limit, межпроцессная шина)
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache        *redis.Cache
		rankings     *redis.RankingCache
		rateLimiter  httpapi.RateLimiter
		rankingCache query.RankingCache
		profileCache query.ProfileCache
	)
	if !cfg.Redis.Disabled {
		cache, err = retry.DoWithData(ctx, func(ctx context.Context) (*redis.Cache, error) {
			return redis.NewCache(ctx, redisConfig(cfg.Redis))
		}, retry.WithMaxAttempts(cfg.Store.ConnectAttempts))
		if err != nil {
			log.Warn("redis unavailable, caching disabled", logger.Err(err))
			cache = nil
		} else {
			defer cache.Close()
			breaker := circuitbreaker.CacheBreaker(func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed",
					logger.String("breaker", name),
					logger.String("from", from.String()),
					logger.String("to", to.String()),
				)
			})
			rankings = redis.NewRankingCache(cache, breaker)
			rankingCache, profileCache = rankings, rankings
			if cfg.HTTP.RateLimitPerMin > 0 {
				rateLimiter = redis.NewRateLimiter(cache, cfg.HTTP.RateLimitPerMin, time.Minute)
			}
			log.Info("redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ШИНА СОБЫТИЙ
	// ─────────────────────────────────────────────────────────────────────────
	localCfg := messaging.DefaultInMemoryEventBusConfig()
	localCfg.Logger = log.Slog()
	localCfg.AsyncMode = true

	var bus interface {
		shared.EventBus
		Close() error
	}
	if cache != nil {
		redisBus, err := messaging.NewRedisEventBus(messaging.RedisEventBusConfig{
			Client:         messaging.NewGoRedisClient(cache.Client()),
			LocalBusConfig: localCfg,
			Logger:         log.Slog(),
		})
		if err != nil {
			return fmt.Errorf("failed to start redis event bus: %w", err)
		}
		bus = redisBus
	} else {
		bus = messaging.NewInMemoryEventBus(localCfg)
	}
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	var invalidation *eventhandler.CacheInvalidationHandler
	if rankings != nil {
		invalidation = eventhandler.NewCacheInvalidationHandler(rankings, rankings, log.Slog())
	}
	if err := eventhandler.Register(bus, invalidation, eventhandler.NewAuditLogHandler(log.Slog())); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ОБРАБОТЧИКИ КОМАНД И ЗАПРОСОВ
	// ─────────────────────────────────────────────────────────────────────────
	profiles, mentorships := st.profiles, st.mentorships
	reconciler := command.NewReconcileMentorLoadHandler(profiles, mentorships, bus, cfg.Scheduler.ReconcileConcurrency)

	deps := httpapi.Dependencies{
		Profiles:          command.NewProfileHandler(profiles, bus, nil),
		AddTestimonial:    command.NewAddTestimonialHandler(profiles, mentorships, bus, nil),
		RequestMentorship: command.NewRequestMentorshipHandler(profiles, mentorships, bus, nil, nil),
		RespondToRequest:  command.NewRespondToRequestHandler(profiles, mentorships, bus, cfg.Matching.DefaultPeriodMonths, nil),
		Complete:          command.NewCompleteMentorshipHandler(profiles, mentorships, bus, nil),
		Cancel:            command.NewCancelMentorshipHandler(profiles, mentorships, bus, nil),
		Progress:          command.NewProgressHandler(mentorships, nil),
		ReconcileLoad:     reconciler,

		FindPotentialMentors: query.NewFindPotentialMentorsHandler(profiles, rankingCache, cfg.Matching.RankingCacheTTL),
		GetMentorProfile:     query.NewGetMentorProfileHandler(profiles, profileCache, cfg.Matching.RankingCacheTTL),
		GetMentorship:        query.NewGetMentorshipHandler(mentorships),
		ListMentorships:      query.NewListMentorshipsHandler(mentorships),

		JWT:         handlers.NewJWTAuth(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
		AdminKey:    handlers.NewAPIKeyAuth("X-API-Key", cfg.Auth.AdminKeyHashes),
		RateLimiter: rateLimiter,
		Logger:      log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck(string(cfg.Store.Driver), handlers.NewPingCheck(st.pinger))
	if cache != nil {
		health.AddOptionalCheck("redis", handlers.NewPingCheck(cache))
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.Logger = log.Slog()
		sched = scheduler.NewScheduler(schedCfg)

		job := jobs.NewReconcileMentorLoadJob(reconciler, cfg.HTTP.RequestTimeout, log.Slog())
		if err := sched.Register(job, scheduler.JobOptions{
			Interval: cfg.Scheduler.ReconcileInterval,
			Timeout:  cfg.Scheduler.JobTimeout,
		}); err != nil {
			return fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			log.Info("stopping scheduler...")
			_ = sched.Stop()
		}()

		deps.Scheduler = sched
		health.AddOptionalCheck("scheduler", handlers.NewRunningCheck(sched))
	}
	deps.HealthChecker = health

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	httpCfg := httpapi.DefaultConfig()
	httpCfg.Host = cfg.HTTP.Host
	httpCfg.Port = cfg.HTTP.Port
	httpCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	httpCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	httpCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	httpCfg.RequestTimeout = cfg.HTTP.RequestTimeout
	httpCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	httpCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpCfg.RateLimitPerMinute = cfg.HTTP.RateLimitPerMin
	httpCfg.ReconcileSettle = cfg.HTTP.RequestTimeout
	httpCfg.ReconcileTimeout = cfg.Scheduler.JobTimeout
	httpCfg.Version = cfg.App.Version

	server := httpapi.NewServer(httpCfg, deps)
	serverErr := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("http shutdown incomplete", logger.Err(err))
	}

	log.Info("shutdown completed")
	return nil
}

// openStore подключает хранилище, выбранное в STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*store, error) {
	startup := retry.StartupRetrier(cfg.Store.ConnectAttempts)

	switch cfg.Store.Driver {
	case config.StorePostgres:
		var conn *postgres.Connection
		err := startup.Do(ctx, func(ctx context.Context) error {
			c, err := postgres.Open(ctx, cfg.Database.URL, postgres.PoolOptions{
				MaxConns:        int32(cfg.Database.MaxOpenConns),
				MinConns:        int32(cfg.Database.MaxIdleConns),
				MaxConnLifetime: cfg.Database.ConnMaxLifetime,
				MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
				QueryTimeout:    cfg.Database.QueryTimeout,
			})
			if err != nil {
				log.Warn("postgres not reachable yet", logger.Err(err))
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}

		if cfg.Database.AutoMigrate {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("database schema is up to date", logger.Int("applied", applied))
		}

		return &store{
			profiles:    postgres.NewProfileRepository(conn),
			mentorships: postgres.NewMentorshipRepository(conn),
			pinger:      conn,
			close:       conn.Close,
		}, nil

	case config.StoreMongo:
		var conn *mongo.Connection
		err := startup.Do(ctx, func(ctx context.Context) error {
			c, err := mongo.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database, mongo.Options{
				ConnectTimeout: cfg.Mongo.ConnectTimeout,
				MaxPoolSize:    cfg.Mongo.MaxPoolSize,
				QueryTimeout:   cfg.Database.QueryTimeout,
			})
			if err != nil {
				log.Warn("mongo not reachable yet", logger.Err(err))
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}

		return &store{
			profiles:    mongo.NewProfileRepository(conn),
			mentorships: mongo.NewMentorshipRepository(conn),
			pinger:      conn,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = conn.Close(closeCtx)
			},
		}, nil
	}

	log.Warn("using in-memory store, data is lost on restart")
	return &store{
		profiles:    memory.NewProfileRepository(),
		mentorships: memory.NewMentorshipRepository(),
		pinger:      alwaysUp{},
		close:       func() {},
	}, nil
}

type alwaysUp struct{}

func (alwaysUp) Ping(context.Context) error { return nil }

func redisConfig(c config.RedisConfig) redis.Config {
	rc := redis.DefaultConfig()
	rc.URL = c.URL
	if c.Host != "" {
		rc.Host = c.Host
	}
	if c.Port != 0 {
		rc.Port = c.Port
	}
	rc.Password = c.Password
	rc.DB = c.DB
	if c.PoolSize > 0 {
		rc.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		rc.MinIdleConns = c.MinIdleConns
	}
	if c.DialTimeout > 0 {
		rc.DialTimeout = c.DialTimeout
	}
	if c.ReadTimeout > 0 {
		rc.ReadTimeout = c.ReadTimeout
	}
	if c.WriteTimeout > 0 {
		rc.WriteTimeout = c.WriteTimeout
	}
	return rc
}
