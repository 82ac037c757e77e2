package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wouldcart/Triplexa2-sub014/application"
	"github.com/wouldcart/Triplexa2-sub014/domain/config"
	"github.com/wouldcart/Triplexa2-sub014/domain/query"
	"github.com/wouldcart/Triplexa2-sub014/domain/tracking"
	"github.com/wouldcart/Triplexa2-sub014/domain/workflow"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/event"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/lock"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/logging"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/observability"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/resilience"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/memory"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/postgres"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/redis"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/storage/sqlite"
	"github.com/wouldcart/Triplexa2-sub014/infrastructure/telemetry"
)

// Runtime is an engine wired from configuration together with the
// resources it owns.
type Runtime struct {
	Config *config.TrackerConfig
	Engine *application.Engine
	Store  tracking.Store

	// Events is the readable event log, nil when the sink cannot be
	// read back.
	Events workflow.Log

	closers []func(ctx context.Context) error
}

// Close flushes pending events and releases every resource, last opened
// first.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

func (r *Runtime) onClose(fn func(ctx context.Context) error) {
	r.closers = append(r.closers, fn)
}

// Bootstrap builds a runtime from cfg. traceOut receives spans when the
// stdout exporter is selected.
func Bootstrap(ctx context.Context, cfg *config.TrackerConfig, traceOut io.Writer) (rt *Runtime, err error) {
	rt = &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close(ctx)
			rt = nil
		}
	}()

	provider, err := observability.New(tracingOptions(cfg, traceOut)...)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	rt.onClose(provider.Shutdown)

	var sharedDB *sql.DB
	openSQLite := func() (*sql.DB, error) {
		if sharedDB != nil {
			return sharedDB, nil
		}
		db, err := sqlite.Open(sqlite.DefaultConfig(), sqlite.WithDSN(cfg.Storage.SQLite.DSN))
		if err != nil {
			return nil, err
		}
		sharedDB = db
		rt.onClose(func(context.Context) error { return db.Close() })
		return db, nil
	}

	store, err := buildStore(ctx, rt, cfg.Storage, openSQLite)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	rt.Store = store

	sink, err := buildSink(rt, cfg.Events, openSQLite)
	if err != nil {
		return nil, fmt.Errorf("open %s sink: %w", cfg.Events.Sink, err)
	}

	metrics := telemetry.NewMetrics(telemetry.DefaultMetricsConfig())
	if err := metrics.Error(); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("metrics disabled")
		metrics = nil
	}

	engine, err := application.New(
		application.WithStore(store),
		application.WithSink(sink),
		application.WithQueries(buildQueries(cfg.Queries)),
		application.WithPolicy(tracking.FollowUpPolicy{
			SentAfterDays:       cfg.FollowUp.SentAfterDays,
			EscalateAfterDays:   cfg.FollowUp.EscalateAfterDays,
			NoResponseAfterDays: cfg.FollowUp.NoResponseAfterDays,
			MaxFollowUps:        cfg.FollowUp.MaxFollowUps,
		}),
		application.WithLocker(lock.NewMemoryLock()),
		application.WithMetrics(metrics),
		application.WithTracer(provider.Tracer()),
	)
	if err != nil {
		return nil, err
	}
	rt.Engine = engine

	logging.Debug().
		Add(logging.Component("bootstrap")).
		Add(logging.Str("backend", cfg.Storage.Backend)).
		Add(logging.Str("sink", cfg.Events.Sink)).
		Msg("runtime ready")

	return rt, nil
}

func buildStore(ctx context.Context, rt *Runtime, cfg config.StorageConfig, openSQLite func() (*sql.DB, error)) (tracking.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewTrackingStore(), nil

	case config.BackendSQLite:
		db, err := openSQLite()
		if err != nil {
			return nil, err
		}
		return sqlite.NewTrackingStoreFromDB(db)

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, postgres.DefaultConfig(),
			postgres.WithDSN(cfg.Postgres.DSN),
			postgres.WithSchema(cfg.Postgres.Schema),
		)
		if err != nil {
			return nil, err
		}
		rt.onClose(func(context.Context) error { pool.Close(); return nil })

		store := postgres.NewTrackingStore(pool, cfg.Postgres.Schema)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case config.BackendRedis:
		opts := []redis.ConfigOption{
			redis.WithAddress(cfg.Redis.Address),
			redis.WithPassword(cfg.Redis.Password),
			redis.WithDB(cfg.Redis.DB),
		}
		if cfg.Redis.KeyPrefix != "" {
			opts = append(opts, redis.WithKeyPrefix(cfg.Redis.KeyPrefix))
		}
		store, err := redis.NewTrackingStore(redis.DefaultConfig(), opts...)
		if err != nil {
			return nil, err
		}
		rt.onClose(func(context.Context) error { return store.Close() })
		return store, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// buildSink assembles sink delivery: backend, then retry and circuit
// breaker, then buffering.
func buildSink(rt *Runtime, cfg config.EventsConfig, openSQLite func() (*sql.DB, error)) (workflow.Sink, error) {
	var sink workflow.Sink

	switch cfg.Sink {
	case config.SinkNone:
		return workflow.Discard, nil

	case config.SinkMemory:
		log := memory.NewEventLog()
		rt.Events = log
		sink = log

	case config.SinkSQLite:
		db, err := openSQLite()
		if err != nil {
			return nil, err
		}
		log, err := sqlite.NewEventLogFromDB(db)
		if err != nil {
			return nil, err
		}
		rt.Events = log
		sink = log

	case config.SinkNATS:
		conn, err := event.DialNATS(cfg.NATS.URL, rt.Config.Name)
		if err != nil {
			return nil, err
		}
		rt.onClose(func(context.Context) error { conn.Close(); return nil })

		natsSink, err := event.NewNATSSink(conn, cfg.NATS.SubjectPrefix)
		if err != nil {
			return nil, err
		}
		sink = natsSink

	default:
		return nil, fmt.Errorf("unknown event sink %q", cfg.Sink)
	}

	if cfg.Retry.MaxAttempts > 0 {
		opts := []resilience.Option{resilience.WithRetryAttempts(cfg.Retry.MaxAttempts)}
		if d := cfg.Retry.InitialDelay.Duration(); d > 0 {
			opts = append(opts, resilience.WithRetryDelay(d))
		}
		if cfg.Retry.BreakerThreshold > 0 {
			opts = append(opts, resilience.WithBreakerThreshold(cfg.Retry.BreakerThreshold))
		}
		if d := cfg.Retry.BreakerTimeout.Duration(); d > 0 {
			opts = append(opts, resilience.WithBreakerTimeout(d))
		}
		sink = resilience.NewSink(sink, opts...)
	}

	if cfg.BufferSize > 0 {
		publisher := event.NewPublisher(sink, event.WithBufferSize(cfg.BufferSize))
		rt.onClose(func(context.Context) error { return publisher.Close() })
		sink = publisher
	}

	return sink, nil
}

func buildQueries(statuses map[string]string) *memory.QueryDirectory {
	dir := memory.NewQueryDirectory()
	for id, status := range statuses {
		dir.Put(query.Query{ID: id, Status: query.Status(status)})
	}
	return dir
}

func tracingOptions(cfg *config.TrackerConfig, traceOut io.Writer) []observability.Option {
	opts := []observability.Option{observability.WithServiceName(cfg.Name)}
	if !cfg.Tracing.Enabled {
		return opts
	}

	switch cfg.Tracing.Exporter {
	case config.ExporterStdout:
		if traceOut == nil {
			traceOut = os.Stderr
		}
		opts = append(opts, observability.WithStdoutTracing(traceOut))
	default:
		opts = append(opts, observability.WithTracing(observability.ExporterType(cfg.Tracing.Exporter), cfg.Tracing.Endpoint))
		if cfg.Tracing.Insecure {
			opts = append(opts, observability.WithTracingInsecure())
		}
	}
	if cfg.Tracing.SampleRate > 0 {
		opts = append(opts, observability.WithSampleRate(cfg.Tracing.SampleRate))
	}
	return opts
}
