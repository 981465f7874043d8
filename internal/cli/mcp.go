package cli

import (
	"context"
	"fmt"

	"github.com/aretw0/resist/pkg/adapters/mcp"
	"golang.org/x/sync/errgroup"
)

// MCP transports.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// MCPOptions contains the configuration for the mcp command.
type MCPOptions struct {
	ConfigPath string
	Transport  string
	Addr       string
	BaseURL    string
	Scenario   string
}

// ServeMCP exposes a real-time sandbox as MCP tools until ctx is done or,
// on stdio, until the client closes the stream.
func ServeMCP(ctx context.Context, opts MCPOptions) error {
	cfg, logger, err := setup(opts.ConfigPath)
	if err != nil {
		return err
	}
	switch opts.Transport {
	case "", TransportStdio, TransportSSE:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", opts.Transport, TransportStdio, TransportSSE)
	}

	stack, err := NewStack(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	// Notices are logged: stdout belongs to the JSON-RPC stream.
	sb, err := liveSandbox(ctx, stack, opts.Scenario, nil)
	if err != nil {
		return err
	}
	srv := mcp.NewServer(sb, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tick(ctx, sb.Scheduler, cfg.TickInterval)
	})
	g.Go(func() error {
		defer cancel()
		if opts.Transport == TransportSSE {
			addr := opts.Addr
			if addr == "" {
				addr = cfg.HTTP.Addr
			}
			baseURL := opts.BaseURL
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			return srv.ServeSSE(ctx, addr, baseURL)
		}
		logger.Info("Starting MCP Server (Stdio)")
		return srv.ServeStdio()
	})
	return g.Wait()
}
