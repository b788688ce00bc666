package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler performs the work for one task type.
type Handler interface {
	Handle(ctx context.Context, fileID int64, db Database) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, fileID int64, db Database) error

func (f HandlerFunc) Handle(ctx context.Context, fileID int64, db Database) error {
	return f(ctx, fileID, db)
}

// Registry maps task types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a task type. Registering a type twice is an error.
func (r *Registry) Register(taskType string, h Handler) error {
	if taskType == "" {
		return fmt.Errorf("task type must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[taskType]; ok {
		return fmt.Errorf("handler already registered for task type: %s", taskType)
	}
	r.handlers[taskType] = h
	return nil
}

func (r *Registry) Lookup(taskType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[taskType]
	return h, ok
}

// Types returns the registered task types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
