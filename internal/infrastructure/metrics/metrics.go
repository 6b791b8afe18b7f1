// Package metrics exposes Prometheus collectors for the API and the worker.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "habitverse"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	completions  prometheus.Counter
	xpAwarded    *prometheus.CounterVec
	achievements *prometheus.CounterVec
	levelUps     prometheus.Counter
	moodEntries  prometheus.Counter

	aiRequests *prometheus.CounterVec
	aiRetries  prometheus.Counter
	aiDuration prometheus.Histogram

	eventsHandled  *prometheus.CounterVec
	eventsDuration *prometheus.HistogramVec

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, including the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),

		completions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "habit_completions_total",
			Help:      "Habit completions recorded for existing users.",
		}),
		xpAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "xp_awarded_total",
			Help:      "XP granted, by source.",
		}, []string{"source"}),
		achievements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked, by achievement id.",
		}, []string{"achievement"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "level_ups_total",
			Help:      "Completions that moved a user to a higher level.",
		}),
		moodEntries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "progress",
			Name:      "mood_entries_total",
			Help:      "Mood entries logged.",
		}),

		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Text-generation calls, by outcome (ok, error, rejected).",
		}, []string{"outcome"}),
		aiRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "retries_total",
			Help:      "Repeated chat completion requests after a transient failure.",
		}),
		aiDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Duration of text-generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),

		eventsHandled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handled_total",
			Help:      "Domain event deliveries, by type and status.",
		}, []string{"type", "status"}),
		eventsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "handler_duration_seconds",
			Help:      "Duration of domain event handlers.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"type"}),

		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs.",
		}, []string{"job", "success"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_run_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.completions, m.xpAwarded, m.achievements, m.levelUps, m.moodEntries,
		m.aiRequests, m.aiRetries, m.aiDuration,
		m.eventsHandled, m.eventsDuration,
		m.jobRuns, m.jobDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP
// ══════════════════════════════════════════════════════════════════════════════

// RequestStarted increments the in-flight gauge and returns its decrement.
func (m *Metrics) RequestStarted() func() {
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}

// ObserveRequest records one finished request. route is the route template.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// HabitCompleted records a completion and its XP.
func (m *Metrics) HabitCompleted(xp int) {
	m.completions.Inc()
	if xp > 0 {
		m.xpAwarded.WithLabelValues("completion").Add(float64(xp))
	}
}

// AchievementUnlocked records an unlock and its reward.
func (m *Metrics) AchievementUnlocked(id string, rewardXP int) {
	m.achievements.WithLabelValues(id).Inc()
	if rewardXP > 0 {
		m.xpAwarded.WithLabelValues("achievement").Add(float64(rewardXP))
	}
}

// LevelUp records a level increase.
func (m *Metrics) LevelUp() { m.levelUps.Inc() }

// MoodLogged records a mood entry.
func (m *Metrics) MoodLogged() { m.moodEntries.Inc() }

// ══════════════════════════════════════════════════════════════════════════════
// AI, EVENTS, JOBS
// ══════════════════════════════════════════════════════════════════════════════

// AICall records one text-generation call. Matches openai.Config.OnCall.
func (m *Metrics) AICall(outcome string, d time.Duration) {
	m.aiRequests.WithLabelValues(outcome).Inc()
	m.aiDuration.Observe(d.Seconds())
}

// AIRetry counts one repeated completion request. Matches openai.Config.OnRetry.
func (m *Metrics) AIRetry() { m.aiRetries.Inc() }

// EventHandled records one handler run. Matches messaging.Observer.
func (m *Metrics) EventHandled(eventType string, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.eventsHandled.WithLabelValues(eventType, status).Inc()
	m.eventsDuration.WithLabelValues(eventType).Observe(d.Seconds())
}

// JobRun records one scheduled job run.
func (m *Metrics) JobRun(job string, d time.Duration, success bool) {
	if job == "" {
		job = "unknown"
	}
	m.jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
