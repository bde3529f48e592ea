package session

import (
	"sync"

	"github.com/samber/lo"
)

// Registry tracks live sessions by id so control replies can be addressed
// to one connection. It plays no part in chat fan-out.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds s. Ids are unique for the process lifetime.
func (r *Registry) Register(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.id]; ok {
		return ErrAlreadyRegistered
	}
	r.sessions[s.id] = s
	return nil
}

// Unregister removes the session with id and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Lookup returns the session with id or ErrSessionNotFound.
func (r *Registry) Lookup(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Pong replies to a ping received by session id.
func (r *Registry) Pong(id string, payload []byte) error {
	s, err := r.Lookup(id)
	if err != nil {
		return err
	}
	return s.pong(payload)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CountByState returns how many registered sessions are in each state.
func (r *Registry) CountByState() map[string]int {
	return lo.CountValuesBy(r.snapshot(), func(s *Session) string {
		return s.State().String()
	})
}

// CloseAll sends a close frame with code and reason to every session and
// cancels its loops. Sessions unregister themselves as they finish.
func (r *Registry) CloseAll(code int, reason string) int {
	sessions := r.snapshot()
	for _, s := range sessions {
		s.Shutdown(code, reason)
	}
	return len(sessions)
}

// snapshot copies the session set so no lock is held during network I/O.
func (r *Registry) snapshot() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}
