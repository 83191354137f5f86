package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/competitive-intel/internal/generate"
	"github.com/sells-group/competitive-intel/internal/lease"
	"github.com/sells-group/competitive-intel/internal/metrics"
	"github.com/sells-group/competitive-intel/internal/pipeline"
	"github.com/sells-group/competitive-intel/internal/search"
	"github.com/sells-group/competitive-intel/internal/store"
)

// appEnv holds the store, lease manager and pipeline needed by the run and
// serve commands.
type appEnv struct {
	Store    store.Store
	Leases   lease.Manager
	Metrics  *metrics.Collectors
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if c, ok := e.Leases.(io.Closer); ok {
		if err := c.Close(); err != nil {
			zap.L().Warn("close lease manager", zap.Error(err))
		}
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode and builds every dependency of the
// pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	leases, err := lease.New(ctx, cfg.Lease)
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "init lease manager")
	}

	m := metrics.New()
	p := pipeline.New(st, search.NewFromConfig(cfg), generate.NewFromConfig(cfg), cfg,
		pipeline.WithMetrics(m),
		pipeline.WithLeases(leases, cfg.Lease.TTL()),
	)

	return &appEnv{Store: st, Leases: leases, Metrics: m, Pipeline: p}, nil
}

// initStore opens the configured store and applies pending migrations.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
