package cache

import (
	"sync"

	"github.com/billpoint/billpoint-core/internal/domain"
)

// Registry fans cache invalidations out to registered reactions, e.g.
// waking the balance store or dropping a cached list. It implements
// domain.CacheInvalidator.
type Registry struct {
	mu        sync.Mutex
	reactions map[domain.Cache][]func()
}

// NewRegistry creates a new empty Registry
func NewRegistry() *Registry {
	return &Registry{
		reactions: map[domain.Cache][]func(){},
	}
}

// React registers fn to run whenever cache is invalidated
func (r *Registry) React(cache domain.Cache, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reactions[cache] = append(r.reactions[cache], fn)
}

// Invalidate runs every reaction registered for cache, in
// registration order
func (r *Registry) Invalidate(cache domain.Cache) {
	r.mu.Lock()
	fns := make([]func(), len(r.reactions[cache]))
	copy(fns, r.reactions[cache])
	r.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
