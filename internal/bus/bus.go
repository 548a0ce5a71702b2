package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

var (
	_ctx   = context.Background()
	subsMu sync.RWMutex
	subs   = make(map[string][]func(ctx context.Context, T any))
)

func SetContext(ctx context.Context) {
	subsMu.Lock()
	_ctx = ctx
	subsMu.Unlock()
}

func topic[T any]() string {
	return fmt.Sprintf("%T", *new(T))
}

func Subscribe[T any](name string, fn func(ctx context.Context, event T) error) {
	subsMu.Lock()
	defer subsMu.Unlock()

	t := topic[T]()
	subs[t] = append(subs[t], func(ctx context.Context, event any) {
		if err := fn(ctx, event.(T)); err != nil {
			slog.Error("Failed to handle event", "package", "bus", "name", name, "error", err)
		}
	})
}

// Publish calls every subscriber of T in the caller's goroutine.
func Publish[T any](event T) {
	subsMu.RLock()
	ctx := _ctx
	fns := subs[topic[T]()]
	subsMu.RUnlock()

	for _, fn := range fns {
		fn(ctx, event)
	}
}

func NewHub[T any]() *Hub[T] {
	return &Hub[T]{
		mu:   sync.Mutex{},
		subs: make(map[*chan T]struct{}),
	}
}

// Hub fans events out to channel subscribers. Broadcast never blocks: a
// subscriber that has not drained its previous event misses the new one.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[*chan T]struct{}
}

func (h *Hub[T]) Broadcast(ctx context.Context, event T) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case *sub <- event:
		default:
		}
	}

	return nil
}

func (h *Hub[T]) Subscribe(ctx context.Context) (<-chan T, func()) {
	h.mu.Lock()
	c := make(chan T, 1)

	key := &c
	h.subs[key] = struct{}{}
	h.mu.Unlock()

	return c, func() {
		h.mu.Lock()
		delete(h.subs, key)
		h.mu.Unlock()
	}
}

// Len returns the number of subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
