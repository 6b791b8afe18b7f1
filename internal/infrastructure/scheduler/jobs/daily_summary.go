// Package jobs contains the worker's scheduled jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/habitverse/habitverse-api/internal/application/query"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY SUMMARY JOB
// ══════════════════════════════════════════════════════════════════════════════

// DailySummaryJobName is the registered job name.
const DailySummaryJobName = "daily_summary"

// UserLister pages through all users.
type UserLister interface {
	List(ctx context.Context, offset, limit int) ([]*user.User, error)
}

// AnalyticsReporter computes the analytics report for one user.
type AnalyticsReporter interface {
	Handle(ctx context.Context, q query.GetAnalyticsQuery) (*progress.Report, error)
}

// DailySummaryJob publishes an analytics.daily_summary event per user for the
// previous UTC day. It only reads; streaks and XP are never written here.
type DailySummaryJob struct {
	users     UserLister
	analytics AnalyticsReporter
	publisher shared.EventPublisher
	clock     timeutil.Clock
	logger    *logger.Logger
	config    DailySummaryConfig

	lastRunStats atomic.Value // *DailySummaryStats
}

// DailySummaryConfig contains configuration for the job.
type DailySummaryConfig struct {
	// BatchSize is the page size used when listing users.
	BatchSize int

	// Concurrency is the number of users summarised in parallel.
	Concurrency int
}

// DefaultDailySummaryConfig returns sensible defaults.
func DefaultDailySummaryConfig() DailySummaryConfig {
	return DailySummaryConfig{BatchSize: 100, Concurrency: 8}
}

// DailySummaryStats contains statistics from a run.
type DailySummaryStats struct {
	Day         string
	StartedAt   time.Time
	CompletedAt time.Time
	Users       int
	Published   int
	Failed      int
}

// NewDailySummaryJob creates the job.
func NewDailySummaryJob(
	users UserLister,
	analytics AnalyticsReporter,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
	config DailySummaryConfig,
) *DailySummaryJob {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	return &DailySummaryJob{
		users:     users,
		analytics: analytics,
		publisher: publisher,
		clock:     clock,
		logger:    log.With(logger.JobName(DailySummaryJobName)),
		config:    config,
	}
}

// Name returns the job name.
func (j *DailySummaryJob) Name() string { return DailySummaryJobName }

// Description returns a human-readable description.
func (j *DailySummaryJob) Description() string {
	return "Publishes yesterday's completion, XP and streak summary for every user"
}

// LastRunStats returns statistics of the last finished run, or nil.
func (j *DailySummaryJob) LastRunStats() *DailySummaryStats {
	if v, ok := j.lastRunStats.Load().(*DailySummaryStats); ok {
		return v
	}
	return nil
}

// Run executes the job.
func (j *DailySummaryJob) Run(ctx context.Context) error {
	now := j.clock.Now()
	from, _ := timeutil.YesterdayWindow(now)
	stats := &DailySummaryStats{Day: timeutil.DayKey(from), StartedAt: now}

	var published, failed int64
	sem := make(chan struct{}, j.config.Concurrency)
	var wg sync.WaitGroup

	var listErr error
	for offset := 0; ; offset += j.config.BatchSize {
		if err := ctx.Err(); err != nil {
			listErr = err
			break
		}
		page, err := j.users.List(ctx, offset, j.config.BatchSize)
		if err != nil {
			listErr = fmt.Errorf("list users at offset %d: %w", offset, err)
			break
		}
		for _, u := range page {
			stats.Users++
			sem <- struct{}{}
			wg.Add(1)
			go func(u *user.User) {
				defer wg.Done()
				defer func() { <-sem }()
				if err := j.summarise(ctx, u, stats.Day); err != nil {
					atomic.AddInt64(&failed, 1)
					j.logger.Warn("daily summary failed", logger.UserID(u.ID), logger.Err(err))
					return
				}
				atomic.AddInt64(&published, 1)
			}(u)
		}
		if len(page) < j.config.BatchSize {
			break
		}
	}
	wg.Wait()

	stats.Published = int(published)
	stats.Failed = int(failed)
	stats.CompletedAt = j.clock.Now()
	j.lastRunStats.Store(stats)

	j.logger.Info("daily summary finished",
		logger.String("day", stats.Day),
		logger.Int("users", stats.Users),
		logger.Int("published", stats.Published),
		logger.Int("failed", stats.Failed),
	)

	if listErr != nil {
		return listErr
	}
	if stats.Failed > 0 && stats.Published == 0 {
		return errors.New("daily summary failed for every user")
	}
	return nil
}

// summarise reports the stored streak: the report's recomputed streak ends
// today, which is usually still empty when the job runs.
func (j *DailySummaryJob) summarise(ctx context.Context, u *user.User, day string) error {
	report, err := j.analytics.Handle(ctx, query.GetAnalyticsQuery{UserID: u.ID, SkipCache: true})
	if err != nil {
		return err
	}

	var completions, xp int
	for _, d := range report.DailyData {
		if d.Date == day {
			completions, xp = d.Completions, d.XPEarned
			break
		}
	}

	if j.publisher == nil {
		return nil
	}
	return j.publisher.Publish(shared.NewDailySummaryEvent(u.ID, day, completions, xp, u.CurrentStreak))
}
