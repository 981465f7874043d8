package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/resist/internal/logging"
	"github.com/aretw0/resist/pkg/domain"
	"github.com/aretw0/resist/pkg/i18n"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  []byte
}

// Notice is the payload of "notice" events.
type Notice struct {
	Entity domain.EntityID   `json:"entity"`
	Key    domain.MessageKey `json:"key"`
	Text   string            `json:"text"`
}

// StreamManager fans events out to SSE subscribers.
// Subscribers of the empty topic receive every entity's events.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[domain.EntityID]map[chan<- Message]struct{}
	logger      *slog.Logger
}

// NewStreamManager creates a manager with no subscribers. A nil logger discards logs.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[domain.EntityID]map[chan<- Message]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for entity. The returned func unsubscribes
// and closes the channel.
func (sm *StreamManager) Subscribe(entity domain.EntityID) (<-chan Message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan Message, 16)
	if _, ok := sm.subscribers[entity]; !ok {
		sm.subscribers[entity] = make(map[chan<- Message]struct{})
	}
	sm.subscribers[entity][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[entity]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, entity)
				}
			}
			close(ch)
		})
	}
}

// Broadcast delivers msg to the subscribers of entity and of every entity.
// Slow subscribers lose messages instead of blocking the engine.
func (sm *StreamManager) Broadcast(entity domain.EntityID, msg Message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for _, topic := range []domain.EntityID{entity, ""} {
		for ch := range sm.subscribers[topic] {
			select {
			case ch <- msg:
			default:
				sm.logger.Warn("SSE: Client buffer full, dropping message", "entity", entity, "event", msg.Event)
			}
		}
		if entity == "" {
			break
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	n := 0
	for _, subs := range sm.subscribers {
		n += len(subs)
	}
	return n
}

func (sm *StreamManager) publish(entity domain.EntityID, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sm.logger.Error("SSE: Failed to encode event", "event", event, "err", err)
		return
	}
	sm.Broadcast(entity, Message{Event: event, Data: data})
}

// Hooks returns lifecycle hooks that publish every event.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnAttemptStart: func(ctx context.Context, e *domain.AttemptEvent) {
			sm.publish(e.Entity, string(e.Type), e)
		},
		OnAttemptEnd: func(ctx context.Context, e *domain.AttemptEvent) {
			sm.publish(e.Entity, string(e.Type), e)
		},
		OnRejected: func(ctx context.Context, e *domain.RejectionEvent) {
			sm.publish(e.Entity, string(e.Type), e)
		},
	}
}

// NoticeSink publishes localized notifications as "notice" events.
func (sm *StreamManager) NoticeSink() i18n.Sink {
	return func(ctx context.Context, entity domain.EntityID, key domain.MessageKey, text string) {
		sm.publish(entity, "notice", Notice{Entity: entity, Key: key, Text: text})
	}
}
