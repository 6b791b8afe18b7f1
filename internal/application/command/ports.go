// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"sync"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PORTS
// Interfaces the write side depends on. Infrastructure provides Redis-backed
// implementations; the local versions below serve single-instance deployments.
// ══════════════════════════════════════════════════════════════════════════════

// Locker serializes check-then-act sequences for one key.
// The returned release func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// AnalyticsInvalidator drops cached analytics after a user's history changes.
type AnalyticsInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// UserLockKey returns the lock key for all writes of one user.
func UserLockKey(userID string) string {
	return "user:" + userID
}

// ══════════════════════════════════════════════════════════════════════════════
// LOCAL IMPLEMENTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// LocalLocker is an in-process keyed mutex.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	sem  chan struct{}
	refs int
}

// NewLocalLocker creates an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*localLock)}
}

// Lock blocks until key is free or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &localLock{sem: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-entry.sem
				l.unref(key, entry)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, entry)
		return nil, shared.WrapError("lock", "Acquire", shared.ErrLockNotAcquired, "lock wait aborted", ctx.Err())
	}
}

func (l *LocalLocker) unref(key string, entry *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
}

// Held returns the number of keys currently tracked. Used in tests.
func (l *LocalLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// NopInvalidator is used when no analytics cache is configured.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(context.Context, string) error { return nil }

// publish sends an event and logs failures. Events never fail a command.
func publish(bus shared.EventPublisher, log *logger.Logger, event shared.Event) {
	if bus == nil {
		return
	}
	if err := bus.Publish(event); err != nil {
		log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.UserID(event.AggregateID()),
			logger.Err(err))
	}
}
