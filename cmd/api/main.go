// Package main - точка входа HTTP API HabitVerse.
//
// API принимает выполнения привычек, записи настроения и отдаёт профиль,
// дашборд, статистику, аналитику и достижения. Хранилище выбирается
// через STORAGE_DRIVER; Redis, Kafka и OpenAI подключаются опционально.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Application layer
	"github.com/habitverse/habitverse-api/internal/application/command"
	"github.com/habitverse/habitverse-api/internal/application/query"
	"github.com/habitverse/habitverse-api/internal/application/saga"

	// Domain layer
	"github.com/habitverse/habitverse-api/internal/domain/coaching"

	// Infrastructure layer
	"github.com/habitverse/habitverse-api/config"
	"github.com/habitverse/habitverse-api/internal/bootstrap"
	"github.com/habitverse/habitverse-api/internal/infrastructure/external/openai"
	"github.com/habitverse/habitverse-api/internal/infrastructure/metrics"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/redis"

	// Interface layer
	httpserver "github.com/habitverse/habitverse-api/internal/interface/http"
	"github.com/habitverse/habitverse-api/internal/interface/http/handlers"

	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
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
	log := bootstrap.NewLogger(cfg)
	defer func() { _ = log.Sync() }()

	log.Info("starting HabitVerse API",
		logger.String("storage", cfg.Storage.Driver),
		logger.Int("port", cfg.HTTP.Port),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	storage, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing storage...")
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := storage.Close(closeCtx); err != nil {
			log.Warn("failed to close storage", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (опционально: кэш аналитики, распределённая блокировка)
	// ─────────────────────────────────────────────────────────────────────────
	cache := bootstrap.OpenRedis(ctx, cfg, log)

	var locker command.Locker
	var invalidator command.AnalyticsInvalidator
	var analyticsCache query.AnalyticsCache
	if cache != nil {
		defer cache.Close()
		ac := redis.NewAnalyticsCache(cache, cfg.Redis.AnalyticsTTL)
		locker = redis.NewLocker(cache, redis.DefaultLockerConfig())
		invalidator = ac
		analyticsCache = ac
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. МЕТРИКИ И EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	m := metrics.New()

	eventBus, err := bootstrap.NewEventBus(cfg, log, m, cache)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 6. AI КОУЧ
	// ─────────────────────────────────────────────────────────────────────────
	var generator coaching.TextGenerator
	if cfg.AI.Enabled() {
		aiCfg := openai.DefaultConfig(cfg.AI.APIKey)
		aiCfg.Model = cfg.AI.Model
		aiCfg.BaseURL = cfg.AI.BaseURL
		aiCfg.Timeout = cfg.AI.Timeout
		aiCfg.OnCall = m.AICall
		aiCfg.OnRetry = m.AIRetry
		generator = openai.NewClient(aiCfg, log)
		log.Info("AI coaching enabled", logger.String("model", aiCfg.Model))
	} else {
		log.Info("OPENAI_API_KEY not set, using fallback coaching messages")
	}
	advisor := coaching.NewAdvisor(generator, coaching.AdvisorConfig{Timeout: cfg.AI.Timeout}, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. COMMAND & QUERY HANDLERS
	// ─────────────────────────────────────────────────────────────────────────
	achievements := saga.NewAchievementFlowSaga(saga.AchievementFlowDeps{
		Users:       storage.Users,
		Habits:      storage.Habits,
		Completions: storage.Completions,
		Moods:       storage.Moods,
		EventBus:    eventBus,
		Logger:      log,
	})

	deps := httpserver.Dependencies{
		CreateUser:      command.NewCreateUserHandler(storage.Users, eventBus, nil, log),
		CreateHabit:     command.NewCreateHabitHandler(storage.Habits, eventBus, nil, log),
		DeactivateHabit: command.NewDeactivateHabitHandler(storage.Habits, eventBus, log),
		CompleteHabit: command.NewCompleteHabitHandler(command.CompleteHabitDeps{
			Users:        storage.Users,
			Habits:       storage.Habits,
			Completions:  storage.Completions,
			Achievements: achievements,
			Locker:       locker,
			Analytics:    invalidator,
			EventBus:     eventBus,
			Logger:       log,
		}),
		LogMood: command.NewLogMoodHandler(command.LogMoodDeps{
			Moods:        storage.Moods,
			Achievements: achievements,
			Locker:       locker,
			Analytics:    invalidator,
			EventBus:     eventBus,
			Logger:       log,
		}),

		GetUser:    query.NewGetUserHandler(storage.Users),
		ListHabits: query.NewListHabitsHandler(storage.Habits, storage.Completions, nil),
		GetDashboard: query.NewGetDashboardHandler(query.GetDashboardDeps{
			Users:       storage.Users,
			Habits:      storage.Habits,
			Completions: storage.Completions,
			Moods:       storage.Moods,
			Advisor:     advisor,
		}),
		GetSuggestions: query.NewGetSuggestionsHandler(storage.Habits, advisor),
		GetStats:       query.NewGetStatsHandler(storage.Users, storage.Completions, storage.Moods, nil),
		GetAnalytics: query.NewGetAnalyticsHandler(query.GetAnalyticsDeps{
			Completions: storage.Completions,
			Moods:       storage.Moods,
			Cache:       analyticsCache,
			Logger:      log,
		}),
		GetAchievements: query.NewGetAchievementsHandler(storage.Users),

		Metrics:        m,
		MetricsHandler: m.Handler(),
		Logger:         log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HEALTH CHECKS
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(cfg.App.Version)
	health.AddCheck("storage", handlers.NewPingCheck(storage))
	if cache != nil {
		health.AddCheck("redis", handlers.NewPingCheck(cache))
	}
	deps.HealthChecker = health

	// ─────────────────────────────────────────────────────────────────────────
	// 9. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.IdleTimeout = cfg.HTTP.IdleTimeout
	serverCfg.MaxBodyBytes = cfg.HTTP.MaxBodyBytes
	serverCfg.EnableCORS = cfg.HTTP.EnableCORS
	serverCfg.AllowedOrigins = cfg.HTTP.AllowedOrigins
	serverCfg.RateLimitPerSecond = cfg.HTTP.RateLimitPerSec
	serverCfg.RateLimitBurst = cfg.HTTP.RateLimitBurst
	serverCfg.Version = cfg.App.Version
	if !cfg.Observability.MetricsEnabled {
		deps.Metrics = nil
		deps.MetricsHandler = nil
	}

	server := httpserver.NewServer(serverCfg, deps)
	if rl := server.RateLimiter(); rl != nil {
		rl.StartCleanup(ctx, time.Minute, 10*time.Minute)
	}

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 10. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("HabitVerse API is running", logger.String("address", serverCfg.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err, ok := <-errCh:
		if ok && err != nil {
			log.Error("server error", logger.Err(err))
			return err
		}
		return errors.New("server stopped unexpectedly")
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed successfully")
	return nil
}
