package auth

import (
	"net/http"
	"sync"
)

// SessionCookie is the browser cookie carrying the opaque session ID.
const SessionCookie = "session_id"

// Store is the credential storage port. Handlers and middleware resolve
// a session ID to its credential bundle through this interface so tests can
// substitute their own implementation.
type Store interface {
	Get(sessionID string) *Credentials
	Put(sessionID string, creds *Credentials)
	Delete(sessionID string)
}

// MemoryStore is an in-memory credential store keyed by session ID.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Credentials
}

// NewMemoryStore creates an empty credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Credentials),
	}
}

// Get retrieves the credentials for a session ID, or nil.
func (s *MemoryStore) Get(sessionID string) *Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[sessionID]
}

// Put stores credentials under the given session ID.
func (s *MemoryStore) Put(sessionID string, creds *Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = creds
}

// Delete removes a session.
func (s *MemoryStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// FromRequest resolves the request's session cookie to stored credentials,
// or nil when there is no session.
func (s *MemoryStore) FromRequest(r *http.Request) *Credentials {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	return s.Get(cookie.Value)
}
