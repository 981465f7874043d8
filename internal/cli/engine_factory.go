package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/resist"
	"github.com/aretw0/resist/internal/config"
	"github.com/aretw0/resist/pkg/adapters/doafter"
	fileadapter "github.com/aretw0/resist/pkg/adapters/file"
	loamadapter "github.com/aretw0/resist/pkg/adapters/loam"
	"github.com/aretw0/resist/pkg/adapters/memory"
	redisadapter "github.com/aretw0/resist/pkg/adapters/redis"
	"github.com/aretw0/resist/pkg/adapters/sqlite"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/i18n"
	"github.com/aretw0/resist/pkg/observability"
	"github.com/aretw0/resist/pkg/runner"
	"github.com/aretw0/resist/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stack is the infrastructure selected by the configuration: state store, locker,
// profile catalog, journal and metrics. Every command builds its engine from one.
type Stack struct {
	Config  config.Config
	Logger  *slog.Logger
	Catalog *i18n.Catalog
	Journal *sqlite.Journal
	// Registry and Metrics are nil when metrics are disabled.
	Registry *prometheus.Registry
	Metrics  http.Handler

	engineOpts []resist.Option
	hooks      []domain.LifecycleHooks
	closers    []func() error
}

// NewStack wires the adapters named by cfg. Close releases them.
func NewStack(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{Config: cfg, Logger: logger}

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		return nil, err
	}
	s.Catalog = catalog

	s.engineOpts = []resist.Option{
		resist.WithLogger(logger),
		resist.WithHandRangeFactor(cfg.HandRangeFactor),
		resist.WithSwallowedMultiplier(cfg.SwallowedMultiplier),
		resist.WithDefaultBaseResist(cfg.DefaultBaseResist),
	}

	switch {
	case cfg.Redis.Addr != "":
		store := redisadapter.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisadapter.WithPrefix(cfg.Redis.Prefix),
			redisadapter.WithTTL(cfg.Redis.TTL),
		)
		s.closers = append(s.closers, store.Close)
		if err := store.Client().Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		prefix := cfg.Redis.Prefix
		if prefix == "" {
			prefix = redisadapter.DefaultPrefix
		}
		s.engineOpts = append(s.engineOpts,
			resist.WithStore(store),
			resist.WithLocker(redisadapter.NewLocker(store.Client(), prefix), session.DefaultLockTTL),
		)
		logger.Info("Using redis state store", "addr", cfg.Redis.Addr, "prefix", prefix)
	case cfg.State.Dir != "":
		s.engineOpts = append(s.engineOpts, resist.WithStore(fileadapter.New(cfg.State.Dir)))
		logger.Info("Using file state store", "dir", cfg.State.Dir)
	}

	if cfg.Profiles.Dir != "" {
		profiles, err := loamadapter.Open(cfg.Profiles.Dir)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open profiles: %w", err)
		}
		s.engineOpts = append(s.engineOpts, resist.WithProfiles(profiles))
		logger.Info("Using profile catalog", "dir", cfg.Profiles.Dir)
	}

	if cfg.SQLite.Path != "" {
		journal, err := sqlite.Open(cfg.SQLite.Path, sqlite.WithLogger(logger))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		s.Journal = journal
		s.closers = append(s.closers, journal.Close)
		s.hooks = append(s.hooks, journal.Hooks())
		logger.Info("Recording attempts", "path", cfg.SQLite.Path)
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.hooks = append(s.hooks, metrics.Hooks())
		s.Registry = reg
		s.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	if logger.Enabled(ctx, slog.LevelDebug) {
		s.hooks = append(s.hooks, createDebugHooks(logger))
	}
	return s, nil
}

// Hooks composes the stack's hooks with extra ones.
func (s *Stack) Hooks(extra ...domain.LifecycleHooks) domain.LifecycleHooks {
	return observability.ComposeHooks(append(append([]domain.LifecycleHooks{}, s.hooks...), extra...)...)
}

// EngineOptions returns the engine options without lifecycle hooks.
func (s *Stack) EngineOptions() []resist.Option {
	return append([]resist.Option{}, s.engineOpts...)
}

// SandboxOptions returns everything a sandbox needs, observing the engine with
// the stack's hooks plus extra.
func (s *Stack) SandboxOptions(extra ...domain.LifecycleHooks) []runner.SandboxOption {
	return append(s.worldOptions(),
		runner.WithEngineOptions(s.EngineOptions()...),
		runner.WithEngineOptions(resist.WithLifecycleHooks(s.Hooks(extra...))),
	)
}

// RunnerOptions configures a scenario runner on top of the stack. The runner
// installs its own transcript hooks, so the stack's hooks are passed separately.
func (s *Stack) RunnerOptions() []runner.Option {
	return []runner.Option{
		runner.WithLogger(s.Logger),
		runner.WithCatalog(s.Catalog),
		runner.WithLocale(s.Config.Locale),
		runner.WithLifecycleHooks(s.Hooks()),
		runner.WithEngineOption(s.EngineOptions()...),
		runner.WithSandboxOption(s.worldOptions()...),
	}
}

func (s *Stack) worldOptions() []runner.SandboxOption {
	return []runner.SandboxOption{
		runner.WithWorldOptions(memory.WithMaxDisadvantage(s.Config.MaxMassDisadvantage)),
		runner.WithSchedulerOptions(doafter.WithLogger(s.Logger)),
	}
}

// Close releases the adapters in reverse order of creation.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
