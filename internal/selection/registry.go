package selection

import (
	"strings"
	"sync"
)

// DefaultSession is used when a request does not name its console session.
const DefaultSession = "default"

// Registry owns one Store per console session.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
}

func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]*Store)}
}

// Get returns the store of the session, creating an empty one on first use.
func (r *Registry) Get(session string) *Store {
	session = NormalizeSession(session)

	r.mu.Lock()
	defer r.mu.Unlock()

	store, ok := r.stores[session]
	if !ok {
		store = NewStore()
		r.stores[session] = store
	}
	return store
}

// Drop forgets the session's store.
func (r *Registry) Drop(session string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.stores, NormalizeSession(session))
}

// NormalizeSession maps a blank session id to DefaultSession.
func NormalizeSession(session string) string {
	session = strings.TrimSpace(session)
	if session == "" {
		return DefaultSession
	}
	return session
}
