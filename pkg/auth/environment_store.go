package auth

import (
	"os"
	"time"

	"dyscraper/pkg/cookies"
)

const (
	// EnvCookies holds a Cookie header string ("name=value; name2=value2").
	EnvCookies = "DYSCRAPER_COOKIES"
	// EnvUserAgent optionally overrides the user agent of the env session.
	EnvUserAgent = "DYSCRAPER_USER_AGENT"
)

// EnvironmentStore implements SessionStore using environment variables.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based session store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

// Retrieve builds a session from DYSCRAPER_COOKIES. Any name matches,
// since the environment holds a single session.
func (e *EnvironmentStore) Retrieve(name string) (*Session, error) {
	cs := cookies.ParseHeader(os.Getenv(EnvCookies))
	if len(cs) == 0 {
		return nil, ErrSessionNotFound
	}

	if name == "" {
		name = "env"
	}

	return &Session{
		Name:         name,
		Cookies:      cs,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single session if the environment variable is set
func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment cookies are set
func (e *EnvironmentStore) Exists(name string) bool {
	return len(cookies.ParseHeader(os.Getenv(EnvCookies))) > 0
}
