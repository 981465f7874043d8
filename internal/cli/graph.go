package cli

import (
	"context"
	"io"

	"github.com/aretw0/resist/internal/presentation/graph"
	"github.com/aretw0/resist/pkg/runner"
)

// GraphOptions contains the configuration for the graph command.
type GraphOptions struct {
	ConfigPath string
	Scenario   string
	Out        io.Writer
}

// Graph writes the scenario's starting world as a Mermaid diagram.
func Graph(ctx context.Context, opts GraphOptions) error {
	cfg, logger, err := setup(opts.ConfigPath)
	if err != nil {
		return err
	}
	sc, err := runner.LoadScenario(opts.Scenario)
	if err != nil {
		return err
	}

	// Profiles decide which entities end up escape-capable; nothing is persisted.
	cfg.Redis.Addr, cfg.State.Dir, cfg.SQLite.Path = "", "", ""
	cfg.Metrics.Enabled = false
	stack, err := NewStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	sb, err := runner.NewSandbox(stack.SandboxOptions()...)
	if err != nil {
		return err
	}
	if err := sc.Populate(ctx, sb); err != nil {
		return err
	}
	views, err := sb.List(ctx)
	if err != nil {
		return err
	}
	_, err = io.WriteString(opts.Out, graph.GenerateMermaid(views))
	return err
}
