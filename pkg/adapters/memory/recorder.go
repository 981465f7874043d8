package memory

import (
	"context"
	"sync"

	"github.com/aretw0/resist/pkg/domain"
)

// Notification is one delivered message.
type Notification struct {
	Entity domain.EntityID   `json:"entity"`
	Key    domain.MessageKey `json:"key"`
}

// Recorder implements ports.Notifier by keeping every notification.
// Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	log []Notification
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify records the message.
func (r *Recorder) Notify(ctx context.Context, entity domain.EntityID, key domain.MessageKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, Notification{Entity: entity, Key: key})
}

// All returns the notifications in delivery order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.log))
	copy(out, r.log)
	return out
}

// Count returns how many times key was delivered to entity.
func (r *Recorder) Count(entity domain.EntityID, key domain.MessageKey) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, msg := range r.log {
		if msg.Entity == entity && msg.Key == key {
			n++
		}
	}
	return n
}

// Len returns the number of notifications.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}
