package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/utopium/chatflow"
	"github.com/utopium/chatflow/internal/adapters/file"
	"github.com/utopium/chatflow/internal/config"
	"github.com/utopium/chatflow/internal/logging"
	"github.com/utopium/chatflow/internal/runtime"
	"github.com/utopium/chatflow/pkg/adapters/api"
	"github.com/utopium/chatflow/pkg/adapters/memory"
	"github.com/utopium/chatflow/pkg/adapters/redis"
	"github.com/utopium/chatflow/pkg/observability"
	"github.com/utopium/chatflow/pkg/persistence/middleware"
	"github.com/utopium/chatflow/pkg/ports"
)

// app holds what every command builds from the configuration.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	closers []io.Closer
}

func newApp(cmd *cobra.Command, logOut io.Writer, format logging.Format) (*app, error) {
	envFiles, _ := cmd.Flags().GetStringSlice("env-file")
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logging.NewWriter(logOut, format, level),
	}, nil
}

// Close releases the connections opened by the app.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// store opens the configured session store, wrapped in the persistence
// middlewares. The locker is only set for Redis.
func (a *app) store() (ports.StateStore, ports.DistributedLocker, error) {
	var (
		base   ports.StateStore
		locker ports.DistributedLocker
	)

	switch a.cfg.Store {
	case config.StoreMemory:
		base = memory.NewStore()
	case config.StoreRedis:
		rs, err := redis.New(a.cfg.RedisURL, redis.WithTTL(a.cfg.SessionTTL))
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, rs)
		base = rs
		locker = redis.NewLocker(rs.Client(), redis.DefaultPrefix)
	default:
		base = file.New(a.cfg.SessionDir)
	}

	key, err := a.cfg.Key()
	if err != nil {
		return nil, nil, err
	}
	var mws []middleware.Middleware
	if key != nil {
		enc := middleware.EncryptionConfig{ActiveKey: key}
		if len(a.cfg.PIIKeys) > 0 {
			mws = append(mws, middleware.NewPIIMiddleware(a.cfg.PIIKeys, enc))
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}

	return middleware.Chain(base, mws...), locker, nil
}

// backend returns the REST client, or nil when no API is configured.
func (a *app) backend() ports.Backend {
	if a.cfg.APIURL == "" {
		a.logger.Warn("UTOPIUM_API_URL is not set, side-effects will report an error")
		return nil
	}
	return api.New(a.cfg.APIURL,
		api.WithToken(a.cfg.APIToken),
		api.WithTimeout(a.cfg.HTTPTimeout),
		api.WithLogger(a.logger),
	)
}

func (a *app) catalog() (runtime.Catalog, error) {
	if a.cfg.Catalog == "" {
		return runtime.DefaultCatalog(), nil
	}
	c, err := runtime.LoadCatalog(a.cfg.Catalog)
	if err != nil {
		return runtime.Catalog{}, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

// engine builds the chat engine. extra options are applied last.
func (a *app) engine(extra ...chatflow.Option) (*chatflow.Engine, error) {
	store, locker, err := a.store()
	if err != nil {
		return nil, err
	}
	catalog, err := a.catalog()
	if err != nil {
		return nil, err
	}

	a.metrics = observability.NewMetrics(prometheus.NewRegistry())
	opts := []chatflow.Option{
		chatflow.WithStore(store),
		chatflow.WithCatalog(catalog),
		chatflow.WithLogger(a.logger),
		chatflow.WithLifecycleHooks(observability.Combine(
			observability.LogHooks(a.logger),
			a.metrics.Hooks(),
		)),
	}
	if locker != nil {
		opts = append(opts, chatflow.WithLocker(locker))
	}
	if b := a.backend(); b != nil {
		opts = append(opts, chatflow.WithBackend(b))
	}

	return chatflow.New(append(opts, extra...)...), nil
}
