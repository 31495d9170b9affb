package auth

import (
	"sort"
	"sync"
)

// MockStore implements SessionStore in memory for tests
type MockStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	// Error injection for testing
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates a new mock session store
func NewMockStore() *MockStore {
	return &MockStore{
		sessions: make(map[string]*Session),
	}
}

// Store saves a copy of session
func (m *MockStore) Store(session *Session) error {
	if m.StoreError != nil {
		return m.StoreError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if session == nil || session.Name == "" {
		return ErrInvalidSession
	}

	m.sessions[session.Name] = copySession(session)
	return nil
}

// Retrieve returns a copy of the named session
func (m *MockStore) Retrieve(name string) (*Session, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		return nil, ErrInvalidSession
	}

	session, exists := m.sessions[name]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return copySession(session), nil
}

// List returns copies of all sessions ordered by name
func (m *MockStore) List() ([]*Session, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, copySession(s))
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Name < sessions[j].Name })
	return sessions, nil
}

// Delete removes the named session
func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if name == "" {
		return ErrInvalidSession
	}
	if _, exists := m.sessions[name]; !exists {
		return ErrSessionNotFound
	}

	delete(m.sessions, name)
	return nil
}

// Exists checks if a session is stored under name
func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.sessions[name]
	return exists
}

// Count returns the number of stored sessions
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

// NewMockManager creates a Manager backed by a single mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}

func copySession(s *Session) *Session {
	c := *s
	c.Cookies = append(c.Cookies[:0:0], s.Cookies...)
	return &c
}
