// Package http exposes a sandbox world over HTTP: signal ingestion, state
// inspection and a server-sent event stream of the escape lifecycle.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/resist"
	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/internal/presentation/graph"
	"github.com/aretw0/resist/pkg/adapters/memory"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

// Sandbox is the world the server drives.
type Sandbox interface {
	Spawn(ctx context.Context, spec runner.EntitySpec) error
	Press(ctx context.Context, entity domain.EntityID, keys domain.MoveButtons) error
	Cancel(ctx context.Context, entity domain.EntityID) (bool, error)
	Drop(ctx context.Context, entity domain.EntityID) error
	Damage(ctx context.Context, entity domain.EntityID) bool
	Inspect(ctx context.Context, entity domain.EntityID) (runner.View, error)
	List(ctx context.Context) ([]runner.View, error)
}

// Server serves the escape API.
type Server struct {
	Sandbox Sandbox
	Streams *StreamManager

	logger  *slog.Logger
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithStreams shares a stream manager whose hooks and notice sink were wired into
// the engine before the sandbox was built.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// NewServer creates a Server.
func NewServer(sb Sandbox, opts ...Option) *Server {
	s := &Server{Sandbox: sb, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler(ctx context.Context) (http.Handler, error) {
	doc, err := LoadSpec(ctx)
	if err != nil {
		return nil, err
	}
	validate, err := requestValidator(doc)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.Get("/world.mmd", s.GetWorldGraph)

	r.Group(func(r chi.Router) {
		r.Use(validate)
		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo(doc.Info.Version))
		r.Route("/v1", func(r chi.Router) {
			r.Get("/entities", s.ListEntities)
			r.Post("/entities", s.SpawnEntity)
			r.Get("/entities/{id}", s.GetEntity)
			r.Post("/entities/{id}/move", s.MoveEntity)
			r.Post("/entities/{id}/cancel", s.CancelEscape)
			r.Post("/entities/{id}/drop", s.DropEntity)
			r.Post("/entities/{id}/damage", s.DamageEntity)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r, nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Resist API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// MoveRequest is the body of POST /v1/entities/{id}/move.
type MoveRequest struct {
	Keys []string `json:"keys"`
}

// SpawnRequest is the body of POST /v1/entities.
type SpawnRequest struct {
	ID            string   `json:"id"`
	Type          string   `json:"type,omitempty"`
	Mass          float64  `json:"mass,omitempty"`
	Parent        string   `json:"parent,omitempty"`
	Features      []string `json:"features,omitempty"`
	InHand        bool     `json:"in_hand,omitempty"`
	Swallowed     bool     `json:"swallowed,omitempty"`
	Pinned        bool     `json:"pinned,omitempty"`
	Incapacitated bool     `json:"incapacitated,omitempty"`
	CarriedBy     string   `json:"carried_by,omitempty"`
	Escape        bool     `json:"escape,omitempty"`
	BaseResist    string   `json:"base_resist,omitempty"`
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetWorldGraph renders the live world as a Mermaid diagram.
func (s *Server) GetWorldGraph(w http.ResponseWriter, r *http.Request) {
	views, err := s.Sandbox.List(r.Context())
	if err != nil {
		s.fail(w, "graph", err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.mermaid")
	io.WriteString(w, graph.GenerateMermaid(views))
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(apiVersion string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"app":         "resist-http",
			"version":     strings.TrimSpace(resist.Version),
			"api_version": apiVersion,
		})
	}
}

// ListEntities handles GET /v1/entities.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	views, err := s.Sandbox.List(r.Context())
	if err != nil {
		s.fail(w, "ListEntities", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// SpawnEntity handles POST /v1/entities.
func (s *Server) SpawnEntity(w http.ResponseWriter, r *http.Request) {
	var body SpawnRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	spec, err := body.spec()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.Sandbox.Spawn(r.Context(), spec); err != nil {
		s.fail(w, "SpawnEntity", err)
		return
	}
	view, err := s.Sandbox.Inspect(r.Context(), spec.ID)
	if err != nil {
		s.fail(w, "SpawnEntity", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetEntity handles GET /v1/entities/{id}.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	s.signal(w, r, "GetEntity", nil)
}

// MoveEntity handles POST /v1/entities/{id}/move.
func (s *Server) MoveEntity(w http.ResponseWriter, r *http.Request) {
	var body MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	keys, err := domain.ParseMoveButtons(body.Keys)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.signal(w, r, "MoveEntity", func(ctx context.Context, id domain.EntityID) error {
		return s.Sandbox.Press(ctx, id, keys)
	})
}

// CancelEscape handles POST /v1/entities/{id}/cancel.
func (s *Server) CancelEscape(w http.ResponseWriter, r *http.Request) {
	s.signal(w, r, "CancelEscape", func(ctx context.Context, id domain.EntityID) error {
		_, err := s.Sandbox.Cancel(ctx, id)
		return err
	})
}

// DropEntity handles POST /v1/entities/{id}/drop.
func (s *Server) DropEntity(w http.ResponseWriter, r *http.Request) {
	s.signal(w, r, "DropEntity", func(ctx context.Context, id domain.EntityID) error {
		return s.Sandbox.Drop(ctx, id)
	})
}

// DamageEntity handles POST /v1/entities/{id}/damage.
func (s *Server) DamageEntity(w http.ResponseWriter, r *http.Request) {
	s.signal(w, r, "DamageEntity", func(ctx context.Context, id domain.EntityID) error {
		s.Sandbox.Damage(ctx, id)
		return nil
	})
}

// signal binds {id}, checks the entity exists, runs fn and answers with the entity view.
func (s *Server) signal(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, domain.EntityID) error) {
	id, err := bindEntityID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx := r.Context()

	if _, err := s.Sandbox.Inspect(ctx, id); err != nil {
		s.fail(w, op, err)
		return
	}
	if fn != nil {
		if err := fn(ctx, id); err != nil {
			s.fail(w, op, err)
			return
		}
	}
	view, err := s.Sandbox.Inspect(ctx, id)
	if err != nil {
		s.fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SubscribeEvents handles GET /v1/events (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}

	var entity *string
	if err := runtime.BindQueryParameter("form", true, false, "entity", r.URL.Query(), &entity); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var topic domain.EntityID
	if entity != nil {
		id, err := runner.SanitizeEntityID(*entity)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		topic = id
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(topic)
	defer cancel()
	s.logger.Info("SSE: Client subscribed", "entity", topic)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: Client disconnected", "entity", topic)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, memory.ErrUnknownEntity):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrNotEscapeCapable):
		writeError(w, http.StatusConflict, err)
	default:
		s.logger.Error("Request failed", "op", op, "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func bindEntityID(r *http.Request) (domain.EntityID, error) {
	var raw string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &raw, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter id: %w", err)
	}
	return runner.SanitizeEntityID(raw)
}

func (b SpawnRequest) spec() (runner.EntitySpec, error) {
	id, err := runner.SanitizeEntityID(b.ID)
	if err != nil {
		return runner.EntitySpec{}, err
	}
	features, err := domain.ParseContainerFeatures(b.Features)
	if err != nil {
		return runner.EntitySpec{}, err
	}
	var base time.Duration
	if b.BaseResist != "" {
		if base, err = time.ParseDuration(b.BaseResist); err != nil {
			return runner.EntitySpec{}, fmt.Errorf("invalid base_resist: %w", err)
		}
	}
	return runner.EntitySpec{
		Entity: memory.Entity{
			ID:            id,
			Type:          b.Type,
			Mass:          b.Mass,
			Parent:        domain.EntityID(b.Parent),
			Features:      features,
			InHand:        b.InHand,
			Swallowed:     b.Swallowed,
			Pinned:        b.Pinned,
			Incapacitated: b.Incapacitated,
			CarriedBy:     domain.EntityID(b.CarriedBy),
		},
		Escape:     b.Escape,
		BaseResist: base,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
