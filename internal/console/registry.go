package console

import (
	"context"
	"log"
	"sync"

	"github.com/nhath/ezadmin/internal/api"
)

// Registry caches the database list of the backend
type Registry struct {
	session *Session
	backend Backend

	mu      sync.RWMutex
	records []api.DatabaseRecord
}

// NewRegistry creates an empty registry
func NewRegistry(session *Session, backend Backend) *Registry {
	return &Registry{
		session: session,
		backend: backend,
		records: []api.DatabaseRecord{},
	}
}

// Refresh reloads the list. Success replaces the cache wholesale, failure
// leaves it as it was.
func (r *Registry) Refresh(ctx context.Context) ([]api.DatabaseRecord, error) {
	gen, ok := r.session.current()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	records, err := r.backend.Databases(ctx)
	if err != nil {
		log.Printf("registry: failed to fetch databases: %v", err)
		return nil, WrapFetchError("databases", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.Generation() != gen {
		return nil, ErrSessionEnded
	}
	r.records = records

	return r.copyRecords(), nil
}

// Records returns a copy of the cached list
func (r *Registry) Records() []api.DatabaseRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyRecords()
}

func (r *Registry) copyRecords() []api.DatabaseRecord {
	out := make([]api.DatabaseRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Lookup finds a database by name
func (r *Registry) Lookup(name string) (api.DatabaseRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.Name == name {
			return rec, true
		}
	}
	return api.DatabaseRecord{}, false
}

// Clear empties the cache
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = []api.DatabaseRecord{}
}
