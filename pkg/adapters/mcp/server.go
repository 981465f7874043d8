// Package mcp exposes a sandbox world as Model Context Protocol tools, so an agent
// can drive escape attempts the way a player would.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/resist"
	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// Sandbox is the world the tools drive.
type Sandbox interface {
	Press(ctx context.Context, entity domain.EntityID, keys domain.MoveButtons) error
	Cancel(ctx context.Context, entity domain.EntityID) (bool, error)
	Drop(ctx context.Context, entity domain.EntityID) error
	Damage(ctx context.Context, entity domain.EntityID) bool
	Inspect(ctx context.Context, entity domain.EntityID) (runner.View, error)
	List(ctx context.Context) ([]runner.View, error)
}

// EntityArgs addresses one entity.
type EntityArgs struct {
	Entity string `json:"entity"`
}

// MoveArgs are the arguments of escape_move.
type MoveArgs struct {
	Entity string `json:"entity"`
	Keys   string `json:"keys"`
}

// Server wraps a Sandbox and exposes it as an MCP Server.
type Server struct {
	sandbox   Sandbox
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sb Sandbox, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		sandbox:   sb,
		logger:    logger,
		mcpServer: server.NewMCPServer("resist-mcp", strings.TrimSpace(resist.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))
	httpServer := &http.Server{Addr: addr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	entity := mcp.WithString("entity", mcp.Required(), mcp.Description("ID of the contained entity"))

	s.mcpServer.AddTool(mcp.NewTool("escape_move",
		mcp.WithDescription("Hold movement keys as the entity's player. A new direction starts an escape attempt if the entity is contained."),
		entity,
		mcp.WithString("keys", mcp.Required(), mcp.Description("Comma-separated keys now held: up, down, left, right, walk. Empty releases every key.")),
		mcp.WithOutputSchema[runner.View](),
	), mcp.NewStructuredToolHandler(s.handleMove))

	s.mcpServer.AddTool(mcp.NewTool("escape_cancel",
		mcp.WithDescription("Press the cancel-escape control, if the entity holds one."),
		entity,
		mcp.WithOutputSchema[runner.View](),
	), mcp.NewStructuredToolHandler(s.handleCancel))

	s.mcpServer.AddTool(mcp.NewTool("escape_drop",
		mcp.WithDescription("Let go of the entity from the outside, interrupting any attempt."),
		entity,
		mcp.WithOutputSchema[runner.View](),
	), mcp.NewStructuredToolHandler(s.handleDrop))

	s.mcpServer.AddTool(mcp.NewTool("escape_damage",
		mcp.WithDescription("Damage the entity, breaking an attempt in flight."),
		entity,
		mcp.WithOutputSchema[runner.View](),
	), mcp.NewStructuredToolHandler(s.handleDamage))

	s.mcpServer.AddTool(mcp.NewTool("escape_state",
		mcp.WithDescription("Inspect the entity: containment, escape record and granted controls."),
		entity,
		mcp.WithOutputSchema[runner.View](),
	), mcp.NewStructuredToolHandler(s.handleState))
}

func (s *Server) handleMove(ctx context.Context, request mcp.CallToolRequest, args MoveArgs) (runner.View, error) {
	keys, err := domain.ParseMoveButtons(strings.Split(args.Keys, ","))
	if err != nil {
		return runner.View{}, err
	}
	return s.apply(ctx, "escape_move", args.Entity, func(ctx context.Context, id domain.EntityID) error {
		return s.sandbox.Press(ctx, id, keys)
	})
}

func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest, args EntityArgs) (runner.View, error) {
	return s.apply(ctx, "escape_cancel", args.Entity, func(ctx context.Context, id domain.EntityID) error {
		_, err := s.sandbox.Cancel(ctx, id)
		return err
	})
}

func (s *Server) handleDrop(ctx context.Context, request mcp.CallToolRequest, args EntityArgs) (runner.View, error) {
	return s.apply(ctx, "escape_drop", args.Entity, s.sandbox.Drop)
}

func (s *Server) handleDamage(ctx context.Context, request mcp.CallToolRequest, args EntityArgs) (runner.View, error) {
	return s.apply(ctx, "escape_damage", args.Entity, func(ctx context.Context, id domain.EntityID) error {
		s.sandbox.Damage(ctx, id)
		return nil
	})
}

func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest, args EntityArgs) (runner.View, error) {
	return s.apply(ctx, "escape_state", args.Entity, nil)
}

// apply sanitizes the entity, checks it exists, runs fn and returns the entity view.
func (s *Server) apply(ctx context.Context, tool, raw string, fn func(context.Context, domain.EntityID) error) (runner.View, error) {
	id, err := runner.SanitizeEntityID(raw)
	if err != nil {
		s.logger.Warn("MCP: Entity rejected", "tool", tool, "err", err)
		return runner.View{}, fmt.Errorf("entity rejected: %w", err)
	}
	if _, err := s.sandbox.Inspect(ctx, id); err != nil {
		return runner.View{}, err
	}
	if fn != nil {
		if err := fn(ctx, id); err != nil {
			s.logger.Error("MCP: Tool failed", "tool", tool, "entity", id, "err", err)
			return runner.View{}, fmt.Errorf("%s failed: %w", tool, err)
		}
	}
	return s.sandbox.Inspect(ctx, id)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("resist://entities", "Sandbox entities",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		views, err := s.sandbox.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list entities: %w", err)
		}
		jsonBytes, err := json.Marshal(views)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "resist://entities",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
