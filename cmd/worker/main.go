// Package main - точка входа для фоновых процессов (Worker) HabitVerse.
//
// Worker отвечает за периодические задачи:
// - Ежедневная сводка аналитики по каждому пользователю (analytics.daily_summary)
//
// Worker только читает историю и публикует события; серии и XP он не меняет.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	// Application layer
	"github.com/habitverse/habitverse-api/internal/application/query"

	// Infrastructure layer
	"github.com/habitverse/habitverse-api/config"
	"github.com/habitverse/habitverse-api/internal/bootstrap"
	"github.com/habitverse/habitverse-api/internal/infrastructure/metrics"
	"github.com/habitverse/habitverse-api/internal/infrastructure/scheduler"
	"github.com/habitverse/habitverse-api/internal/infrastructure/scheduler/jobs"

	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	once := flag.String("once", "", "run the named job once and exit")
	flag.Parse()

	// Создаём корневой контекст с возможностью отмены
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, *once); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, once string) error {
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
	log := bootstrap.NewLogger(cfg).Named("worker")
	defer func() { _ = log.Sync() }()

	log.Info("starting HabitVerse Worker",
		logger.String("storage", cfg.Storage.Driver),
		logger.String("timezone", cfg.Scheduler.Timezone),
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
	// 4. МЕТРИКИ И EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	cache := bootstrap.OpenRedis(ctx, cfg, log)
	if cache != nil {
		defer cache.Close()
	}

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
	// 5. SCHEDULER И ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	schedCfg := scheduler.DefaultSchedulerConfig()
	schedCfg.Logger = log
	schedCfg.Timezone = cfg.Location()
	schedCfg.JobTimeout = cfg.Scheduler.JobTimeout
	sched := scheduler.NewScheduler(schedCfg)
	sched.OnJobComplete(func(r scheduler.JobResult) {
		m.JobRun(r.JobName, r.Duration, r.Success)
	})

	// Аналитика в worker всегда считается заново, кэш не используется.
	analytics := query.NewGetAnalyticsHandler(query.GetAnalyticsDeps{
		Completions: storage.Completions,
		Moods:       storage.Moods,
		Logger:      log,
	})
	summary := jobs.NewDailySummaryJob(storage.Users, analytics, eventBus, nil, log, jobs.DailySummaryConfig{
		BatchSize:   cfg.Scheduler.BatchSize,
		Concurrency: cfg.Scheduler.MaxConcurrency,
	})
	if err := sched.Register(summary, cfg.Scheduler.DailySummarySpec); err != nil {
		return fmt.Errorf("register %s: %w", summary.Name(), err)
	}

	if once != "" {
		result, err := sched.RunNow(ctx, once)
		if err != nil {
			return err
		}
		log.Info("job finished",
			logger.JobName(result.JobName),
			logger.Bool("success", result.Success),
			logger.Duration("duration", result.Duration),
		)
		if !result.Success {
			return fmt.Errorf("job %s failed: %w", result.JobName, result.Error)
		}
		return nil
	}

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled (SCHEDULER_ENABLED=false), nothing to do")
		return nil
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	for _, j := range sched.ListJobs() {
		log.Info("job scheduled",
			logger.JobName(j.Name),
			logger.String("schedule", j.Schedule),
			logger.Time("next_run", j.NextRun),
		)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. METRICS ENDPOINT
	// ─────────────────────────────────────────────────────────────────────────
	var metricsServer *http.Server
	errCh := make(chan error, 1)
	if cfg.Observability.MetricsEnabled && cfg.Observability.WorkerMetricsAddr != "" {
		router := mux.NewRouter()
		router.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
		router.HandleFunc("/live", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}).Methods(http.MethodGet)

		metricsServer = &http.Server{
			Addr:              cfg.Observability.WorkerMetricsAddr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
		log.Info("metrics endpoint listening", logger.String("address", metricsServer.Addr))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("HabitVerse Worker is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case runErr = <-errCh:
		log.Error("worker error", logger.Err(runErr))
	}

	log.Info("starting graceful shutdown...", logger.Duration("timeout", cfg.App.ShutdownTimeout))
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
		log.Error("failed to stop scheduler", logger.Err(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("failed to stop metrics server", logger.Err(err))
		}
	}

	log.Info("shutdown completed")
	return runErr
}
