package events

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// Message is what a service worker receives from a page.
	Message = "message"
	// MetaCreated fires once per new meta/{slug}/locales/{locale} document.
	MetaCreated = "meta.created"
)

// Port is the reply side of a message channel.
type Port interface {
	PostMessage(v any) error
}

type Event struct {
	Name    string
	Payload json.RawMessage
	// Source is set for messages that expect a reply.
	Source Port
}

type Handler func(ctx context.Context, ev Event) error

type entry struct {
	id int
	fn Handler
}

// Registry dispatches named events to handlers in registration order.
type Registry struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string][]entry
	logger   *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[string][]entry),
		logger:   logger.Named("events"),
	}
}

// On registers h for name and returns the function that removes it.
func (r *Registry) On(name string, h Handler) (off func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[name] = append(r.handlers[name], entry{id: id, fn: h})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(name, id) })
	}
}

func (r *Registry) remove(name string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.handlers[name]
	for i, e := range list {
		if e.id == id {
			r.handlers[name] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(r.handlers[name]) == 0 {
		delete(r.handlers, name)
	}
}

// Emit runs every handler for ev.Name and returns how many ran. Handler
// errors are logged; they never stop later handlers.
func (r *Registry) Emit(ctx context.Context, ev Event) int {
	r.mu.RLock()
	list := append([]entry(nil), r.handlers[ev.Name]...)
	r.mu.RUnlock()

	for _, e := range list {
		if err := e.fn(ctx, ev); err != nil {
			r.logger.Warn("event handler failed", zap.String("event", ev.Name), zap.Error(err))
		}
	}
	return len(list)
}

// Teardown collects unsubscribe functions and runs them together.
type Teardown struct {
	mu   sync.Mutex
	offs []func()
}

func (t *Teardown) Add(off func()) {
	t.mu.Lock()
	t.offs = append(t.offs, off)
	t.mu.Unlock()
}

func (t *Teardown) Close() {
	t.mu.Lock()
	offs := t.offs
	t.offs = nil
	t.mu.Unlock()

	for i := len(offs) - 1; i >= 0; i-- {
		offs[i]()
	}
}
