// Package main is the entry point of the CareerWise Hub API server.
//
// The server exposes the progress and gamification engine over HTTP:
// accounts, onboarding, the daily plan with lazy day advancement, streaks,
// XP and levels, achievements, the leaderboard and the AI mentor.
//
// Layout follows Clean Architecture:
//   - Domain: business rules with no infrastructure imports
//   - Application: commands and queries orchestrating the rules
//   - Infrastructure: Postgres, Redis, Ollama, catalog loading, events
//   - Interface: the REST API
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

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/careerwise/careerwise-hub/config"
	"github.com/careerwise/careerwise-hub/internal/application/command"
	"github.com/careerwise/careerwise-hub/internal/application/query"
	"github.com/careerwise/careerwise-hub/internal/domain/achievement"
	"github.com/careerwise/careerwise-hub/internal/domain/leaderboard"
	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/internal/domain/plan"
	"github.com/careerwise/careerwise-hub/internal/domain/progress"
	"github.com/careerwise/careerwise-hub/internal/domain/user"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/auth"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/catalog"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/external/ollama"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/messaging"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/persistence/memory"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/persistence/postgres"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/persistence/redis"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/scheduler"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/scheduler/jobs"
	"github.com/careerwise/careerwise-hub/internal/infrastructure/schema"
	httpserver "github.com/careerwise/careerwise-hub/internal/interface/http"
	"github.com/careerwise/careerwise-hub/internal/interface/http/handlers"
	"github.com/careerwise/careerwise-hub/pkg/logger"
	"github.com/careerwise/careerwise-hub/pkg/timeutil"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

// repositories groups the storage backends the engine runs on.
type repositories struct {
	users        user.Repository
	plans        plan.Repository
	progress     progress.Repository
	tasks        progress.TaskRepository
	achievements achievement.Repository
	chat         mentor.Repository
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION AND LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logOpts := logger.DefaultOptions()
	logOpts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	if cfg.App.Debug {
		logOpts.Level = logger.LevelDebug
	}
	log := logger.New(logOpts)
	defer func() { _ = log.Sync() }()

	log.Info("starting CareerWise Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
		logger.String("store", cfg.Database.Driver),
	)

	engineCfg := command.EngineConfig{
		PlanVersion: cfg.Engine.PlanVersion,
		Location:    cfg.App.Location,
		Clock:       timeutil.SystemClock{},
	}

	health := handlers.NewCompositeHealthChecker(cfg.App.Version)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. STORAGE
	// ─────────────────────────────────────────────────────────────────────────
	var repos repositories
	var dbConn *postgres.Connection

	switch cfg.Database.Driver {
	case config.StorePostgres:
		log.Info("connecting to database...")
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.Database.URL
		pgCfg.MaxConns = cfg.Database.MaxConns
		pgCfg.MinConns = cfg.Database.MinConns
		pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		pgCfg.ConnectTimeout = cfg.Database.ConnectTimeout

		dbConn, err = postgres.NewConnection(ctx, pgCfg, log)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			log.Info("closing database connection...")
			dbConn.Close()
		}()

		if cfg.Database.AutoMigrate {
			applied, err := postgres.NewMigrator(dbConn).Migrate(ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			log.Info("migrations completed", logger.Int("applied", applied))
		}

		repos = repositories{
			users:        postgres.NewUserRepository(dbConn),
			plans:        postgres.NewPlanRepository(dbConn),
			progress:     postgres.NewProgressRepository(dbConn),
			tasks:        postgres.NewTaskProgressRepository(dbConn),
			achievements: postgres.NewAchievementRepository(dbConn),
			chat:         postgres.NewChatRepository(dbConn),
		}
		health.AddCheck("database", handlers.NewPingCheck(dbConn))
	default:
		log.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		repos = repositories{
			users:        store.Users(),
			plans:        store.Plans(),
			progress:     store.Progress(),
			tasks:        store.Tasks(),
			achievements: store.Achievements(),
			chat:         store.Chat(),
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var redisCache *redis.Cache
	if cfg.Redis.Enabled {
		log.Info("connecting to Redis...")
		rc := redis.DefaultConfig()
		rc.Host = cfg.Redis.Host
		rc.Port = cfg.Redis.Port
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		if cfg.Redis.PoolSize > 0 {
			rc.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			rc.MinIdleConns = cfg.Redis.MinIdleConns
		}
		if cfg.Redis.DialTimeout > 0 {
			rc.DialTimeout = cfg.Redis.DialTimeout
		}
		if cfg.Redis.ReadTimeout > 0 {
			rc.ReadTimeout = cfg.Redis.ReadTimeout
		}
		if cfg.Redis.WriteTimeout > 0 {
			rc.WriteTimeout = cfg.Redis.WriteTimeout
		}

		redisCache, err = redis.NewCache(ctx, rc)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer func() { _ = redisCache.Close() }()

		// lessons and peers degrade gracefully, locks do not
		if cfg.Engine.Locker == config.LockerRedis {
			health.AddCheck("redis", handlers.NewPingCheck(redisCache))
		} else {
			health.AddOptionalCheck("redis", handlers.NewPingCheck(redisCache))
		}
		log.Info("Redis connection established", logger.String("addr", rc.Addr()))
	}

	var locker progress.Locker
	switch cfg.Engine.Locker {
	case config.LockerNone:
		locker = progress.NoopLocker{}
	case config.LockerRedis:
		locker = redis.NewLocker(redisCache, cfg.Redis.LockTTL)
	default:
		locker = memory.NewLocker()
	}

	var lessonCache query.LessonCache
	if redisCache != nil {
		lessonCache = redis.NewLessonCache(redisCache, cfg.Redis.LessonTTL)
	} else {
		local, err := memory.NewLessonCache(1024)
		if err != nil {
			return err
		}
		lessonCache = local
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. EVENT BUS AND BACKGROUND JOBS
	// ─────────────────────────────────────────────────────────────────────────
	busCfg := messaging.DefaultConfig()
	busCfg.AsyncMode = cfg.Engine.EventsAsync
	busCfg.Logger = log
	bus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = bus.Close()
	}()

	if err := messaging.NewAuditLogger(log).Register(bus); err != nil {
		return fmt.Errorf("failed to register audit logger: %w", err)
	}

	sched := scheduler.New(scheduler.Config{Logger: log})

	var peers leaderboard.PeerSource
	switch cfg.Engine.PeerSource {
	case config.PeersPostgres:
		peers = leaderboard.NewLearnerPeerSource(repos.progress, cfg.Engine.PlanVersion)
	case config.PeersRedis:
		redisPeers := redis.NewPeerSource(redisCache, log)
		if err := messaging.NewPeerProjector(redisPeers, repos.users, log).Register(bus); err != nil {
			return fmt.Errorf("failed to register peer projector: %w", err)
		}
		rebuild := jobs.NewRebuildPeersJob(leaderboard.NewLearnerPeerSource(repos.progress, cfg.Engine.PlanVersion), redisPeers, 0, log)
		if err := sched.Register(rebuild, scheduler.Every(cfg.Engine.PeerRebuildInterval)); err != nil {
			return fmt.Errorf("failed to register peer rebuild: %w", err)
		}
		peers = redisPeers
	default:
		peers = leaderboard.NewStaticPeerSource(leaderboard.DefaultPeers())
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. CATALOG
	// ─────────────────────────────────────────────────────────────────────────
	validator := schema.NewValidator()

	cat, err := catalog.NewLoader(validator, catalog.Options{Strict: cfg.Catalog.Strict}, log).LoadFile(ctx, cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	report, err := catalog.Seed(ctx, cat, repos.plans, repos.achievements)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	log.Info("catalog seeded",
		logger.Int("tracks", report.Tracks),
		logger.Int("tasks", report.Tasks),
		logger.Int("achievements", report.Achievements),
		logger.Int("rejected", report.Rejected),
	)

	for _, job := range sched.ListJobs() {
		if _, err := sched.RunNow(ctx, job.Name); err != nil {
			log.Warn("initial job run failed", logger.String("job", job.Name), logger.Err(err))
		}
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { _ = sched.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EXTERNAL CLIENTS
	// ─────────────────────────────────────────────────────────────────────────
	mentorClient, err := ollama.NewClient(ollama.Config{
		BaseURL:          cfg.Mentor.BaseURL,
		Model:            cfg.Mentor.Model,
		Timeout:          cfg.Mentor.Timeout,
		Retries:          cfg.Mentor.Retries,
		InitialBackoff:   cfg.Mentor.Backoff,
		BreakerThreshold: cfg.Mentor.BreakerThreshold,
		BreakerReset:     cfg.Mentor.BreakerReset,
	}, nil, log)
	if err != nil {
		return fmt.Errorf("failed to create mentor client: %w", err)
	}
	defer mentorClient.Close()

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString() + uuid.NewString()
		log.Warn("JWT_SECRET is not set, using an ephemeral secret; tokens will not survive a restart")
	}
	tokens, err := auth.NewTokenManager(secret, cfg.Auth.TokenTTL, engineCfg.Clock)
	if err != nil {
		return fmt.Errorf("failed to create token manager: %w", err)
	}
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	evaluate := command.NewEvaluateAchievementsHandler(repos.progress, repos.tasks, repos.achievements, bus, engineCfg, log)
	advance := command.NewAdvanceDayHandler(repos.progress, bus, engineCfg, log)
	streak := command.NewTrackStreakHandler(repos.progress, evaluate, bus, engineCfg, log)

	// the mentor call can take up to the configured retries plus backoff
	mentorTimeout := cfg.Mentor.Timeout * time.Duration(cfg.Mentor.Retries+1)

	deps := httpserver.Dependencies{
		RegisterUser:       command.NewRegisterUserHandler(repos.users, hasher, tokens, bus, engineCfg, log),
		AuthenticateUser:   command.NewAuthenticateUserHandler(repos.users, hasher, tokens, log),
		CompleteOnboarding: command.NewCompleteOnboardingHandler(repos.users, repos.plans, repos.progress, locker, bus, engineCfg, log),
		ResetTrack:         command.NewResetTrackHandler(repos.users, repos.plans, repos.progress, locker, bus, engineCfg, log),
		ToggleTask:         command.NewToggleTaskHandler(repos.plans, repos.progress, repos.tasks, evaluate, locker, bus, engineCfg, log),
		SendMentorMessage: command.NewSendMentorMessageHandler(repos.users, repos.plans, repos.progress, repos.tasks, repos.chat, mentorClient,
			command.MentorConfig{HistoryLimit: cfg.Mentor.HistoryLimit, Timeout: mentorTimeout}, engineCfg, log),

		ListTracks:     query.NewListTracksHandler(repos.plans),
		GetDashboard:   query.NewGetDashboardHandler(advance, streak, repos.progress, repos.tasks, repos.plans, repos.achievements, locker, engineCfg, log),
		GetProgress:    query.NewGetProgressHandler(repos.progress, repos.tasks, repos.plans, cfg.Engine.PlanVersion),
		GetTasks:       query.NewGetTasksHandler(repos.plans, repos.progress, repos.tasks, cfg.Engine.PlanVersion),
		GetLesson:      query.NewGetLessonHandler(repos.plans, repos.progress, mentorClient, lessonCache, validator, cfg.Engine.PlanVersion, mentorTimeout, log),
		GetAchievement: query.NewGetAchievementsHandler(repos.achievements, log),
		GetLeaderboard: query.NewGetLeaderboardHandler(peers, repos.progress, repos.users, cfg.Engine.PlanVersion),
		GetChatHistory: query.NewGetChatHistoryHandler(repos.chat),

		Tokens:        tokens,
		HealthChecker: health,
		Metrics:       func() any { return bus.Metrics().Snapshot() },
		Logger:        log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerSecond = cfg.HTTP.RateLimit
	httpConfig.RateLimitBurst = cfg.HTTP.RateLimitBurst
	httpConfig.MaxRequestBytes = cfg.HTTP.MaxRequestBytes
	httpConfig.DefaultPeerLimit = cfg.Engine.PeerLimit
	httpConfig.Version = cfg.App.Version

	server := httpserver.NewServer(httpConfig, deps)

	// ─────────────────────────────────────────────────────────────────────────
	// 9. RUN AND GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting HTTP server", logger.String("address", httpConfig.Address()))
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info("received shutdown signal", logger.String("signal", sig.String()))
		case <-gctx.Done():
		}

		log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop HTTP server gracefully: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("service error", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}
