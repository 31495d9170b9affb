package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"dyscraper/pkg/cookies"
)

// DefaultSessionName is used when a session is stored without a name.
const DefaultSessionName = "default"

// Session is a named set of browser cookies for the platform
type Session struct {
	Name         string           `json:"name"`
	Cookies      []cookies.Cookie `json:"cookies"`
	UserAgent    string           `json:"user_agent,omitempty"`
	LastModified time.Time        `json:"last_modified"`
}

// SessionStore is the interface for storing and retrieving cookie sessions
type SessionStore interface {
	// Store saves a session under its name
	Store(session *Session) error

	// Retrieve gets the session with the given name
	Retrieve(name string) (*Session, error)

	// List returns all stored sessions
	List() ([]*Session, error)

	// Delete removes the session with the given name
	Delete(name string) error

	// Exists checks if a session is stored under name
	Exists(name string) bool
}

// Manager handles session storage with fallback mechanisms
type Manager struct {
	stores []SessionStore
}

// NewManager creates a new session manager with appropriate storage backends
func NewManager() (*Manager, error) {
	var stores []SessionStore

	// Try keyring first (system keychain)
	keyringStore, err := NewKeyringStore()
	if err == nil {
		stores = append(stores, keyringStore)
	}

	// Always add encrypted file store as fallback
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager that tries stores in order.
func NewManagerWithStores(stores ...SessionStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a session using the first store that accepts it
func (m *Manager) Store(session *Session) error {
	if session == nil {
		return ErrInvalidSession
	}
	if session.Name == "" {
		session.Name = DefaultSessionName
	}
	if len(session.Cookies) == 0 {
		return errors.New("session has no cookies")
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(session)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets a session from the first store that has it
func (m *Manager) Retrieve(name string) (*Session, error) {
	if name == "" {
		name = DefaultSessionName
	}
	for _, store := range m.stores {
		if session, err := store.Retrieve(name); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
}

// Cookies returns the cookies of the named session. It matches the
// signature scraper.SessionSource expects.
func (m *Manager) Cookies(name string) ([]cookies.Cookie, error) {
	session, err := m.Retrieve(name)
	if err != nil {
		return nil, err
	}
	return session.Cookies, nil
}

// RetrieveDefault returns the environment session when DYSCRAPER_COOKIES
// is set, otherwise the most recently modified stored session.
func (m *Manager) RetrieveDefault() (*Session, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if session, err := env.Retrieve(""); err == nil {
				return session, nil
			}
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		return sessions[0], nil
	}
	return nil, ErrSessionNotFound
}

// List returns the sessions of all stores, newest first. When a name is
// stored in several places the most recently modified copy wins.
func (m *Manager) List() ([]*Session, error) {
	byName := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, s := range sessions {
			if existing, ok := byName[s.Name]; !ok || s.LastModified.After(existing.LastModified) {
				byName[s.Name] = s
			}
		}
	}

	result := make([]*Session, 0, len(byName))
	for _, s := range byName {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastModified.Equal(result[j].LastModified) {
			return result[i].Name < result[j].Name
		}
		return result[i].LastModified.After(result[j].LastModified)
	})
	return result, nil
}

// Delete removes a session from all stores
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrSessionNotFound) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "dyscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "dyscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "dyscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "dyscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeSession creates a copy of the session with cookie values masked
func SanitizeSession(session *Session) *Session {
	if session == nil {
		return nil
	}

	masked := make([]cookies.Cookie, len(session.Cookies))
	for i, c := range session.Cookies {
		c.Value = maskString(c.Value)
		masked[i] = c
	}
	return &Session{
		Name:         session.Name,
		Cookies:      masked,
		UserAgent:    session.UserAgent,
		LastModified: session.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)
