package query

import (
	"context"
	"fmt"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/progress"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ANALYTICS QUERY
// 30-дневный отчёт: по дням, итоги, пересчитанные серии, средние оценки.
// Отчёт кэшируется на несколько минут; команды выполнения и записи
// настроения сбрасывают кэш пользователя.
// ══════════════════════════════════════════════════════════════════════════════

// AnalyticsCache - кэш готовых отчётов.
type AnalyticsCache interface {
	Get(ctx context.Context, userID string) (*progress.Report, bool, error)
	Set(ctx context.Context, userID string, r *progress.Report) error
}

// GetAnalyticsQuery - параметры запроса отчёта.
type GetAnalyticsQuery struct {
	UserID string

	// SkipCache - всегда считать заново (фоновые задачи).
	SkipCache bool
}

// Validate проверяет корректность параметров.
func (q GetAnalyticsQuery) Validate() error {
	return shared.ValidateID("GetAnalytics", q.UserID)
}

// GetAnalyticsHandler строит отчёт.
type GetAnalyticsHandler struct {
	completions habit.CompletionRepository
	moods       habit.MoodRepository
	cache       AnalyticsCache
	clock       timeutil.Clock
	logger      *logger.Logger
}

// GetAnalyticsDeps - зависимости обработчика. Cache может быть nil.
type GetAnalyticsDeps struct {
	Completions habit.CompletionRepository
	Moods       habit.MoodRepository
	Cache       AnalyticsCache
	Clock       timeutil.Clock
	Logger      *logger.Logger
}

// NewGetAnalyticsHandler создаёт обработчик.
func NewGetAnalyticsHandler(deps GetAnalyticsDeps) *GetAnalyticsHandler {
	h := &GetAnalyticsHandler{
		completions: deps.Completions,
		moods:       deps.Moods,
		cache:       deps.Cache,
		clock:       deps.Clock,
		logger:      deps.Logger,
	}
	if h.clock == nil {
		h.clock = timeutil.SystemClock{}
	}
	if h.logger == nil {
		h.logger = logger.Nop()
	}
	h.logger = h.logger.With(logger.Component("analytics"))
	return h
}

// Handle возвращает отчёт. Существование пользователя не проверяется:
// для неизвестного пользователя отчёт пустой.
func (h *GetAnalyticsHandler) Handle(ctx context.Context, q GetAnalyticsQuery) (*progress.Report, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil && !q.SkipCache {
		cached, ok, err := h.cache.Get(ctx, q.UserID)
		if err != nil {
			h.logger.Warn("analytics cache read failed", logger.UserID(q.UserID), logger.Err(err))
		} else if ok {
			return cached, nil
		}
	}

	now := h.clock.Now()
	since := progress.WindowStart(now)

	completions, err := h.completions.ListSince(ctx, q.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: completions: %w", err)
	}
	moods, err := h.moods.ListSince(ctx, q.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("analytics: moods: %w", err)
	}

	report := progress.Aggregate(now, completions, moods)
	if report.SkippedRecords > 0 {
		h.logger.Warn("skipped malformed history records",
			logger.UserID(q.UserID), logger.Int("skipped", report.SkippedRecords))
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, q.UserID, &report); err != nil {
			h.logger.Warn("analytics cache write failed", logger.UserID(q.UserID), logger.Err(err))
		}
	}
	return &report, nil
}
