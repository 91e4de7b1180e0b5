package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/shotline/propstore/pkg/types"
)

// Notifier fans out write events to subscribers. Publication happens after
// the statement is durably applied, synchronously on the writing
// goroutine; slow subscribers slow the writer.
type Notifier struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]func(types.Event)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[uuid.UUID]func(types.Event))}
}

// Subscribe registers a callback and returns a token for Unsubscribe.
func (n *Notifier) Subscribe(fn func(types.Event)) uuid.UUID {
	token := uuid.New()
	n.mu.Lock()
	n.subs[token] = fn
	n.mu.Unlock()
	return token
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (n *Notifier) Unsubscribe(token uuid.UUID) {
	n.mu.Lock()
	delete(n.subs, token)
	n.mu.Unlock()
}

func (n *Notifier) publish(ev types.Event) {
	n.mu.RLock()
	fns := make([]func(types.Event), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}
