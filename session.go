package gotable

import (
	"context"
	"sync"
)

// Session is the per-user key-value store the controller keeps its ephemeral
// state in. Values are opaque strings.
type Session interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// SessionStore opens sessions by id.
type SessionStore interface {
	Open(ctx context.Context, id string) (Session, error)
}

// MemorySession is a Session held in process memory.
type MemorySession struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySession() *MemorySession {
	return &MemorySession{values: make(map[string]string)}
}

// Get - implements Session.
func (s *MemorySession) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]

	return value, ok, nil
}

// Set - implements Session.
func (s *MemorySession) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value

	return nil
}

// MemorySessions hands out MemorySession values by session id.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]*MemorySession
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]*MemorySession)}
}

// Open returns the session with the given id, creating it on first use.
func (m *MemorySessions) Open(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = NewMemorySession()
		m.sessions[id] = s
	}

	return s, nil
}

var (
	_ Session      = (*MemorySession)(nil)
	_ SessionStore = (*MemorySessions)(nil)
)

// sessionStateKey returns the session key of the ephemeral table state.
func sessionStateKey(tableID string) string {
	return "tableview_" + tableID
}

// sessionLastProfileKey returns the session key of the last used profile id.
func sessionLastProfileKey(tableID string) string {
	return sessionStateKey(tableID) + "__last"
}
