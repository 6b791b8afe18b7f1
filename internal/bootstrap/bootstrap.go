// Package bootstrap builds the infrastructure shared by the api and worker
// binaries from a loaded config.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/habitverse/habitverse-api/config"
	"github.com/habitverse/habitverse-api/internal/application/eventhandler"
	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
	"github.com/habitverse/habitverse-api/internal/infrastructure/messaging"
	"github.com/habitverse/habitverse-api/internal/infrastructure/metrics"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/memory"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/mongo"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/postgres"
	"github.com/habitverse/habitverse-api/internal/infrastructure/persistence/redis"
	"github.com/habitverse/habitverse-api/pkg/logger"
	"github.com/habitverse/habitverse-api/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// NewLogger builds the process logger from the observability settings.
func NewLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Output = os.Stdout
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	opts.FilePath = cfg.Observability.LogFile
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)
}

// ══════════════════════════════════════════════════════════════════════════════
// STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// Storage is the selected repository set.
type Storage struct {
	Driver      string
	Users       user.Repository
	Habits      habit.Repository
	Completions habit.CompletionRepository
	Moods       habit.MoodRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks the backing store.
func (s *Storage) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close releases the backing store.
func (s *Storage) Close(ctx context.Context) error {
	return s.close(ctx)
}

// OpenStorage connects to the store named by cfg.Storage.Driver.
func OpenStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMongo:
		mcfg := mongo.DefaultConfig()
		mcfg.URI = cfg.Mongo.URI
		mcfg.Database = cfg.Mongo.Database
		mcfg.ConnectTimeout = cfg.Mongo.ConnectTimeout
		mcfg.MaxPoolSize = cfg.Mongo.MaxPoolSize

		conn, err := connectWithRetry(ctx, storageRetrier(log, cfg.Storage.Driver), func(ctx context.Context) (*mongo.Connection, error) {
			return mongo.NewConnection(ctx, mcfg)
		})
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		store := mongo.NewStore(conn)
		log.Info("storage ready", logger.String("driver", cfg.Storage.Driver), logger.String("database", mcfg.Database))
		return &Storage{
			Driver:      cfg.Storage.Driver,
			Users:       store.Users,
			Habits:      store.Habits,
			Completions: store.Completions,
			Moods:       store.Moods,
			ping:        store.Ping,
			close:       store.Close,
		}, nil

	case config.DriverPostgres:
		pcfg := postgres.DefaultConfig()
		pcfg.URL = cfg.Database.URL
		pcfg.MaxConns = cfg.Database.MaxConns
		pcfg.MinConns = cfg.Database.MinConns
		pcfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

		store, err := connectWithRetry(ctx, storageRetrier(log, cfg.Storage.Driver), func(ctx context.Context) (*postgres.Store, error) {
			if cfg.Database.AutoMigrate {
				return postgres.Open(ctx, pcfg)
			}
			conn, err := postgres.NewConnection(ctx, pcfg)
			if err != nil {
				return nil, err
			}
			return postgres.NewStore(conn), nil
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		log.Info("storage ready",
			logger.String("driver", cfg.Storage.Driver),
			logger.Bool("auto_migrate", cfg.Database.AutoMigrate),
		)
		return &Storage{
			Driver:      cfg.Storage.Driver,
			Users:       store.Users,
			Habits:      store.Habits,
			Completions: store.Completions,
			Moods:       store.Moods,
			ping:        store.Ping,
			close:       store.Close,
		}, nil

	case config.DriverMemory:
		store := memory.NewStore()
		log.Warn("using in-memory storage, data is lost on restart")
		return &Storage{
			Driver:      cfg.Storage.Driver,
			Users:       store.Users,
			Habits:      store.Habits,
			Completions: store.Completions,
			Moods:       store.Moods,
			ping:        store.Ping,
			close:       store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func storageRetrier(log *logger.Logger, driver string) *retry.Retrier {
	return retry.StorageRetrier(retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		log.Warn("storage not ready, retrying",
			logger.String("driver", driver),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	}))
}

// connectWithRetry treats every connect error as transient until r gives up.
func connectWithRetry[T any](ctx context.Context, r *retry.Retrier, connect func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := connect(ctx)
		if err != nil {
			return retry.Retryable(err)
		}
		out = v
		return nil
	})
	return out, err
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS
// ══════════════════════════════════════════════════════════════════════════════

// OpenRedis connects when Redis is enabled. A nil cache means
// Redis is disabled or unreachable; callers then fall back to local behaviour.
func OpenRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *redis.Cache {
	if !cfg.Redis.Enabled {
		return nil
	}

	rcfg := redis.DefaultConfig()
	rcfg.URL = cfg.Redis.URL
	rcfg.Host = cfg.Redis.Host
	rcfg.Port = cfg.Redis.Port
	rcfg.Password = cfg.Redis.Password
	rcfg.DB = cfg.Redis.DB
	if cfg.Redis.PoolSize > 0 {
		rcfg.PoolSize = cfg.Redis.PoolSize
	}

	cache, err := redis.NewCache(ctx, rcfg)
	if err != nil {
		log.Warn("failed to connect to Redis, cache and distributed lock disabled", logger.Err(err))
		return nil
	}
	log.Info("Redis connection established")
	return cache
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// EventBus is the process event bus plus its outbound publishers.
type EventBus struct {
	*messaging.InMemoryEventBus
	kafka *messaging.KafkaPublisher
}

// Close stops the bus and flushes the Kafka writer.
func (b *EventBus) Close() error {
	err := b.InMemoryEventBus.Close()
	if b.kafka != nil {
		if kerr := b.kafka.Close(); kerr != nil && err == nil {
			err = kerr
		}
	}
	return err
}

// NewEventBus builds the async bus, registers the in-process handlers and
// attaches the Kafka and Redis publishers that are enabled.
func NewEventBus(cfg *config.Config, log *logger.Logger, m *metrics.Metrics, cache *redis.Cache) (*EventBus, error) {
	busCfg := messaging.DefaultInMemoryEventBusConfig()
	busCfg.Logger = log
	busCfg.Observer = func(eventType shared.EventType, elapsed time.Duration, err error) {
		m.EventHandled(string(eventType), elapsed, err)
	}
	bus := &EventBus{InMemoryEventBus: messaging.NewInMemoryEventBus(busCfg)}

	if err := eventhandler.NewHandlers(m, log, eventhandler.DefaultHabitCompletedConfig()).Register(bus); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("register event handlers: %w", err)
	}

	if cfg.Kafka.Enabled {
		kcfg := messaging.DefaultKafkaConfig()
		kcfg.Brokers = cfg.Kafka.Brokers
		kcfg.Topic = cfg.Kafka.Topic
		bus.kafka = messaging.NewKafkaPublisher(kcfg, log)
		if err := bus.SubscribeAll(bus.kafka.Handle); err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("subscribe kafka publisher: %w", err)
		}
		log.Info("publishing events to Kafka", logger.String("topic", kcfg.Topic))
	}

	if cache != nil && cfg.Redis.PublishEvents {
		if err := bus.SubscribeAll(messaging.NewRedisPublisher(cache).Handle); err != nil {
			_ = bus.Close()
			return nil, fmt.Errorf("subscribe redis publisher: %w", err)
		}
		log.Info("publishing events to Redis pub/sub")
	}

	return bus, nil
}
