package store

import (
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/shotline/propstore/pkg/types"
)

// Registry caches one Store per (item, owner) pair. Engine connections are
// not shareable across execution contexts, so the cache key includes an
// owner string naming the acquiring context (a worker name, a scan thread
// id, the UI loop); each owner gets its own controller even when several
// target the same file. The engine's file locking arbitrates between them.
type Registry struct {
	cfg      types.Config
	notifier *Notifier

	mu     sync.Mutex
	stores map[registryKey]*Store
}

type registryKey struct {
	server, job, root, owner string
}

func (k registryKey) item() string {
	return k.server + "/" + k.job + "/" + k.root
}

// NewRegistry creates an isolated registry. Production wiring uses one per
// process; tests create their own.
func NewRegistry(cfg types.Config, notifier *Notifier) *Registry {
	return &Registry{
		cfg:      cfg,
		notifier: notifier,
		stores:   make(map[registryKey]*Store),
	}
}

// Notifier exposes the notifier stores publish through, for subscribing.
func (r *Registry) Notifier() *Notifier {
	return r.notifier
}

// Acquire returns the cached Store for the item and owner, constructing it
// on first use. With force set, any cached instance is closed and replaced
// by a fresh connection attempt. The cache lock is never held during
// connect.
func (r *Registry) Acquire(server, job, root, owner string, force bool) (*Store, error) {
	key := registryKey{server, job, root, owner}

	r.mu.Lock()
	if st, ok := r.stores[key]; ok && !force {
		r.mu.Unlock()
		return st, nil
	}
	r.mu.Unlock()

	st, err := New(server, job, root, r.cfg, r.notifier)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	old, had := r.stores[key]
	if had && !force {
		// Lost a construction race; keep the established instance.
		r.mu.Unlock()
		st.Close()
		return old, nil
	}
	r.stores[key] = st
	r.mu.Unlock()

	if had {
		if err := old.Close(); err != nil {
			log.Error().Err(err).Str("item", key.item()).
				Msg("closing replaced store failed")
		}
	}
	return st, nil
}

// Evict closes and removes every cached Store for the item, across all
// owners. Matching is case-insensitive, like the id collation.
func (r *Registry) Evict(server, job, root string) {
	item := server + "/" + job + "/" + root

	r.mu.Lock()
	var victims []*Store
	for key, st := range r.stores {
		if strings.EqualFold(key.item(), item) {
			victims = append(victims, st)
			delete(r.stores, key)
		}
	}
	r.mu.Unlock()

	for _, st := range victims {
		st.Close()
	}
}

// EvictAll closes and removes every cached Store.
func (r *Registry) EvictAll() {
	r.mu.Lock()
	victims := make([]*Store, 0, len(r.stores))
	for _, st := range r.stores {
		victims = append(victims, st)
	}
	r.stores = make(map[registryKey]*Store)
	r.mu.Unlock()

	for _, st := range victims {
		st.Close()
	}
}
