package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/resist/pkg/adapters/doafter"
	httpadapter "github.com/aretw0/resist/pkg/adapters/http"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/i18n"
	"github.com/aretw0/resist/pkg/runner"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions contains the configuration for the serve command.
type ServeOptions struct {
	ConfigPath string
	Addr       string
	// Scenario optionally seeds the world with a scenario's entities. Its steps are ignored.
	Scenario string
	Out      io.Writer
}

// Serve runs the HTTP API on a real-time sandbox until ctx is done.
func Serve(ctx context.Context, opts ServeOptions) error {
	cfg, logger, err := setup(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.HTTP.Addr = opts.Addr
	}

	stack, err := NewStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	streams := httpadapter.NewStreamManager(logger)
	sb, err := liveSandbox(ctx, stack, opts.Scenario, streams.NoticeSink(), streams.Hooks())
	if err != nil {
		return err
	}

	srvOpts := []httpadapter.Option{
		httpadapter.WithLogger(logger),
		httpadapter.WithStreams(streams),
	}
	if stack.Metrics != nil {
		srvOpts = append(srvOpts, httpadapter.WithMetrics(stack.Metrics))
	}
	handler, err := httpadapter.NewServer(sb, srvOpts...).Handler(ctx)
	if err != nil {
		return err
	}
	httpServer := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printSystemMessage(opts.Out, "Serving escape API on %s", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return tick(ctx, sb.Scheduler, cfg.TickInterval)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		printSystemMessage(opts.Out, "Server stopped gracefully")
		return nil
	})
	return g.Wait()
}

// liveSandbox builds a sandbox on the wall clock, optionally seeded from a scenario.
func liveSandbox(ctx context.Context, stack *Stack, scenario string, sink i18n.Sink, hooks ...domain.LifecycleHooks) (*runner.Sandbox, error) {
	notifier := i18n.NewNotifier(stack.Catalog, stack.Config.Locale, sink).WithLogger(stack.Logger)
	sb, err := runner.NewSandbox(append(stack.SandboxOptions(hooks...), runner.WithNotifier(notifier))...)
	if err != nil {
		return nil, err
	}
	if scenario == "" {
		return sb, nil
	}

	sc, err := runner.LoadScenario(scenario)
	if err != nil {
		return nil, err
	}
	if err := sc.Populate(ctx, sb); err != nil {
		return nil, fmt.Errorf("seed scenario %q: %w", sc.Name, err)
	}
	stack.Logger.Info("World seeded", "scenario", sc.Name, "entities", len(sc.Entities))
	return sb, nil
}

// tick drives the scheduler until ctx is done. Cancellation is a clean stop.
func tick(ctx context.Context, s *doafter.Scheduler, interval time.Duration) error {
	if err := s.Run(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
