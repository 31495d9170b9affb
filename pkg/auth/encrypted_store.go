package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	vaultVersion  = 1
	vaultLabel    = "dyscraper/sessions/v1"
	saltSize      = 32
	keySize       = 32
	kdfIterations = 100000

	// EnvPassphrase overrides the generated passphrase.
	EnvPassphrase = "DYSCRAPER_PASSPHRASE"
)

// ErrWrongPassphrase is returned when the vault exists but cannot be
// decrypted with the current passphrase.
var ErrWrongPassphrase = errors.New("session vault cannot be opened with this passphrase")

// vault is the on-disk envelope. The ciphertext holds the JSON map of
// sessions by name, sealed with the vault label as additional data.
type vault struct {
	Version    int       `json:"version"`
	Salt       []byte    `json:"salt"`
	Ciphertext []byte    `json:"ciphertext"`
	Sessions   int       `json:"sessions"`
	Modified   time.Time `json:"modified"`
}

// EncryptedFileStore keeps every cookie session in one AES-GCM sealed
// file. The key is derived from a passphrase with PBKDF2 and cached per
// salt.
type EncryptedFileStore struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
	aead cipher.AEAD
}

// NewEncryptedFileStore opens (or prepares) the vault at path. The
// passphrase comes from DYSCRAPER_PASSPHRASE or a .passphrase file next
// to the vault, generated on first use.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	pass, err := loadPassphrase(filepath.Join(dir, ".passphrase"))
	if err != nil {
		return nil, fmt.Errorf("failed to get passphrase: %w", err)
	}
	return &EncryptedFileStore{path: path, passphrase: []byte(pass)}, nil
}

func (e *EncryptedFileStore) Store(session *Session) error {
	if session == nil || session.Name == "" {
		return ErrInvalidSession
	}
	return e.update(func(all map[string]Session) error {
		all[session.Name] = *session
		return nil
	})
}

func (e *EncryptedFileStore) Retrieve(name string) (*Session, error) {
	if name == "" {
		return nil, ErrInvalidSession
	}
	all, err := e.read()
	if err != nil {
		return nil, err
	}
	s, ok := all[name]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// List returns the stored sessions ordered by name.
func (e *EncryptedFileStore) List() ([]*Session, error) {
	all, err := e.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	sessions := make([]*Session, 0, len(names))
	for _, name := range names {
		s := all[name]
		sessions = append(sessions, &s)
	}
	return sessions, nil
}

// Delete removes a session. The vault file goes away with the last one.
func (e *EncryptedFileStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidSession
	}
	return e.update(func(all map[string]Session) error {
		if _, ok := all[name]; !ok {
			return ErrSessionNotFound
		}
		delete(all, name)
		return nil
	})
}

func (e *EncryptedFileStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}

func (e *EncryptedFileStore) read() (map[string]Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readLocked()
}

// update applies fn to the decrypted sessions and writes the result back.
func (e *EncryptedFileStore) update(fn func(map[string]Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	all, err := e.readLocked()
	if err != nil {
		return err
	}
	if err := fn(all); err != nil {
		return err
	}
	if len(all) == 0 {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return e.writeLocked(all)
}

// readLocked returns an empty map when the vault does not exist yet.
func (e *EncryptedFileStore) readLocked() (map[string]Session, error) {
	raw, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return make(map[string]Session), nil
	}
	if err != nil {
		return nil, err
	}

	var v vault
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to parse session vault: %w", err)
	}
	if v.Version != vaultVersion {
		return nil, fmt.Errorf("unsupported session vault version %d", v.Version)
	}

	aead, err := e.cipherFor(v.Salt)
	if err != nil {
		return nil, err
	}
	n := aead.NonceSize()
	if len(v.Ciphertext) < n {
		return nil, errors.New("session vault is truncated")
	}
	plain, err := aead.Open(nil, v.Ciphertext[:n], v.Ciphertext[n:], []byte(vaultLabel))
	if err != nil {
		return nil, ErrWrongPassphrase
	}

	all := make(map[string]Session)
	if err := json.Unmarshal(plain, &all); err != nil {
		return nil, fmt.Errorf("failed to parse sessions: %w", err)
	}
	return all, nil
}

func (e *EncryptedFileStore) writeLocked(all map[string]Session) error {
	salt := e.salt
	if salt == nil {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	aead, err := e.cipherFor(salt)
	if err != nil {
		return err
	}

	plain, err := json.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	content, err := json.MarshalIndent(vault{
		Version:    vaultVersion,
		Salt:       salt,
		Ciphertext: aead.Seal(nonce, nonce, plain, []byte(vaultLabel)),
		Sessions:   len(all),
		Modified:   time.Now(),
	}, "", "  ")
	if err != nil {
		return err
	}

	// CreateTemp makes the file 0600.
	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".sessions-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write session vault: %w", err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write session vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), e.path)
}

// cipherFor derives the key for salt, reusing the last derivation when the
// salt has not changed.
func (e *EncryptedFileStore) cipherFor(salt []byte) (cipher.AEAD, error) {
	if e.aead != nil && bytes.Equal(e.salt, salt) {
		return e.aead, nil
	}
	key := pbkdf2.Key(e.passphrase, salt, kdfIterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	e.salt = append([]byte(nil), salt...)
	e.aead = aead
	return aead, nil
}

func loadPassphrase(file string) (string, error) {
	if pass := os.Getenv(EnvPassphrase); pass != "" {
		return pass, nil
	}
	if content, err := os.ReadFile(file); err == nil {
		if pass := strings.TrimSpace(string(content)); pass != "" {
			return pass, nil
		}
	}

	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	pass := base64.RawURLEncoding.EncodeToString(b)
	if err := os.WriteFile(file, []byte(pass), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return pass, nil
}
