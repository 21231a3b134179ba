// Package app builds the process dependency graph from Config. The server and
// gatekeeperctl share it so both run against the same stores and limits.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	adminservice "gatekeeper/internal/adminauth/service"
	adminstore "gatekeeper/internal/adminauth/store"
	"gatekeeper/internal/admission/ports"
	"gatekeeper/internal/admission/service"
	admissionstore "gatekeeper/internal/admission/store"
	"gatekeeper/internal/audit"
	kafkasink "gatekeeper/internal/audit/sink/kafka"
	auditmemory "gatekeeper/internal/audit/store/memory"
	auditpostgres "gatekeeper/internal/audit/store/postgres"
	jwttoken "gatekeeper/internal/jwt_token"
	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/kafka"
	"gatekeeper/internal/platform/metrics"
	"gatekeeper/internal/platform/postgres"
	"gatekeeper/internal/platform/redis"
	rlconfig "gatekeeper/internal/ratelimit/config"
	rlmetrics "gatekeeper/internal/ratelimit/metrics"
	rlmodels "gatekeeper/internal/ratelimit/models"
	rlservice "gatekeeper/internal/ratelimit/service"
	"gatekeeper/internal/ratelimit/store/bucket"
	"gatekeeper/pkg/platform/circuit"
)

const bucketSweepInterval = time.Minute

// App holds the wired services and the resources they borrow.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Admission  *service.Service
	Admins     *adminservice.Service
	Limiter    *rlservice.Service
	LoginGuard *rlservice.LoginGuard
	Events     *audit.Publisher
	Tokens     *jwttoken.JWTService

	db      *sql.DB
	redis   *redis.Client
	kafka   *kgo.Client
	buckets *bucket.InMemoryBucketStore
	closers []func() error
}

// Build opens the configured backends and wires the services. An empty
// DATABASE_URL selects in-memory stores and an empty REDIS_URL selects the
// in-process bucket store. Close releases everything Build opened.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err = a.openBackends(ctx); err != nil {
		return nil, err
	}

	a.Events = a.buildPublisher()
	a.closers = append(a.closers, func() error {
		a.Events.Close()
		return nil
	})

	if a.Limiter, err = a.buildLimiter(); err != nil {
		return nil, err
	}
	a.LoginGuard = rlservice.NewLoginGuard(a.Limiter, a.Events)

	var admins adminservice.Store = adminstore.NewInMemoryStore()
	var configStore ports.ConfigStore = admissionstore.NewInMemoryStore()
	if a.db != nil {
		admins = adminstore.NewPostgres(a.db)
		configStore = admissionstore.NewPostgres(a.db, admissionstore.WithTxTimeout(cfg.Database.TxTimeout))
	}

	if a.Admins, err = adminservice.New(admins, a.Events, adminservice.WithLogger(logger)); err != nil {
		return nil, fmt.Errorf("build admin authority: %w", err)
	}
	a.Admission, err = service.New(configStore, a.Limiter, a.Admins, a.Events,
		service.WithLogger(logger),
		service.WithMetrics(metrics.New(a.Registry)),
	)
	if err != nil {
		return nil, fmt.Errorf("build admission service: %w", err)
	}

	a.Tokens = jwttoken.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	return a, nil
}

func (a *App) openBackends(ctx context.Context) error {
	if a.Config.Database.URL != "" {
		db, err := postgres.Open(ctx, a.Config.Database)
		if err != nil {
			return err
		}
		a.db = db
		a.closers = append(a.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rc, err := redis.New(ctx, a.Config.Redis)
	if err != nil {
		return err
	}
	if rc != nil {
		a.redis = rc
		a.closers = append(a.closers, rc.Close)
	}

	kc, err := kafka.New(ctx, a.Config.Kafka)
	if err != nil {
		return err
	}
	if kc != nil {
		a.kafka = kc
		a.closers = append(a.closers, func() error {
			kc.Close()
			return nil
		})
		k := a.Config.Kafka
		if err := kafkasink.EnsureTopic(ctx, kafka.Admin(kc), k.SecurityTopic, k.Partitions, k.ReplicationFactor); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) buildPublisher() *audit.Publisher {
	var store audit.Store = auditmemory.NewInMemoryStore()
	if a.db != nil {
		store = auditpostgres.New(a.db)
	}

	opts := []audit.Option{
		audit.WithLogger(a.Logger),
		audit.WithMetrics(audit.NewMetrics(a.Registry)),
		audit.WithAsyncBuffer(a.Config.Audit.AsyncBuffer),
		audit.WithRetry(a.Config.Audit.MaxRetries, 50*time.Millisecond),
	}
	if a.kafka != nil {
		breaker := circuit.New("kafka-security-events",
			circuit.WithFailureThreshold(5),
			circuit.WithCooldown(30*time.Second),
		)
		opts = append(opts, audit.WithSinks(kafkasink.New(a.kafka, a.Config.Kafka.SecurityTopic,
			kafkasink.WithLogger(a.Logger),
			kafkasink.WithBreaker(breaker),
		)))
	}
	return audit.NewPublisher(store, opts...)
}

func (a *App) buildLimiter() (*rlservice.Service, error) {
	var store rlservice.BucketStore
	if a.redis != nil {
		store = bucket.NewRedis(a.redis.Client)
	} else {
		a.buckets = bucket.NewInMemoryBucketStore()
		store = a.buckets
	}

	svc, err := rlservice.New(store,
		rlservice.WithLogger(a.Logger),
		rlservice.WithConfig(Limits(a.Config.RateLimit)),
		rlservice.WithMetrics(rlmetrics.New(a.Registry)),
	)
	if err != nil {
		return nil, fmt.Errorf("build rate limiter: %w", err)
	}
	return svc, nil
}

// Limits overlays the configured per-class limits on the defaults. A class
// with a zero count or window keeps its default.
func Limits(rl config.RateLimitConfig) *rlconfig.Config {
	cfg := rlconfig.DefaultConfig()
	overrides := map[rlmodels.LimitClass]rlmodels.Limit{
		rlmodels.ClassLogin:          {Window: rl.LoginWindow, MaxCount: rl.LoginMax},
		rlmodels.ClassAPI:            {Window: rl.APIWindow, MaxCount: rl.APIMax},
		rlmodels.ClassWhitelistCheck: {Window: rl.WhitelistCheckWindow, MaxCount: rl.WhitelistCheckMax},
	}
	for class, limit := range overrides {
		if limit.MaxCount > 0 && limit.Window > 0 {
			cfg = cfg.With(class, limit)
		}
	}
	return cfg
}

// RunBackground runs maintenance loops until ctx is done. It returns nil
// when there is nothing to run.
func (a *App) RunBackground(ctx context.Context) error {
	if a.buckets == nil {
		return nil
	}
	if err := a.buckets.StartCleanup(ctx, bucketSweepInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Health pings every configured backend.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Health(ctx); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.kafka != nil {
		if err := a.kafka.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close drains the event publisher and closes backends in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
