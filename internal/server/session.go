package server

import (
	"sync"

	"github.com/google/uuid"

	"github.com/sells-group/biodash/internal/filter"
)

// SessionStore keeps one FilterState per dashboard session, in memory only.
// Sessions are never persisted; a restart forgets them all.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]filter.State
}

// NewSessionStore returns an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]filter.State)}
}

// Create registers a new session with the initial "no filter" state and
// returns its id.
func (st *SessionStore) Create() string {
	id := uuid.NewString()
	st.mu.Lock()
	st.sessions[id] = filter.NewState()
	st.mu.Unlock()
	return id
}

// Get returns the filter state for a session.
func (st *SessionStore) Get(id string) (filter.State, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	fs, ok := st.sessions[id]
	return fs, ok
}

// Set replaces a session's filter state. Unknown ids are rejected.
func (st *SessionStore) Set(id string, fs filter.State) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	st.sessions[id] = fs
	return true
}
