package checkpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"dyscraper/pkg/logger"
)

// CurrentVersion is written into every new checkpoint.
const CurrentVersion = 1

// Checkpoint is the download history of one profile across runs.
type Checkpoint struct {
	Profile         string            `json:"profile"`
	SecUserID       string            `json:"sec_user_id"`
	RunID           string            `json:"run_id"`
	Mode            string            `json:"mode"`
	Seen            map[string]string `json:"seen"` // candidate key -> filename
	TotalDownloaded int               `json:"total_downloaded"`
	Runs            int               `json:"runs"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Version         int               `json:"version"`
}

// IsSeen reports whether key was downloaded by an earlier run.
func (cp *Checkpoint) IsSeen(key string) bool {
	_, ok := cp.Seen[key]
	return ok
}

// Info is a short summary of a checkpoint for display.
type Info struct {
	Profile         string
	TotalDownloaded int
	Runs            int
	LastMode        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Age             time.Duration
}

// Manager reads and writes one profile's checkpoint file.
type Manager struct {
	mu             sync.Mutex
	checkpointPath string
	logger         logger.Logger
}

// NewManager creates a manager for the profile key under the platform data
// directory.
func NewManager(profileKey string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}
	return NewManagerInDir(filepath.Join(dataDir, "checkpoints"), profileKey)
}

// NewManagerInDir creates a manager that keeps its file in dir.
func NewManagerInDir(dir, profileKey string) (*Manager, error) {
	if profileKey == "" {
		return nil, fmt.Errorf("empty profile key")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return &Manager{
		checkpointPath: filepath.Join(dir, profileKey+".checkpoint.json"),
		logger:         logger.GetLogger().WithField("component", "checkpoint"),
	}, nil
}

// Path returns the checkpoint file location.
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create writes a fresh, empty checkpoint.
func (m *Manager) Create(profile, secUserID string) (*Checkpoint, error) {
	now := time.Now()
	cp := &Checkpoint{
		Profile:   profile,
		SecUserID: secUserID,
		Seen:      make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   CurrentVersion,
	}

	if err := m.Save(cp); err != nil {
		return nil, fmt.Errorf("failed to save initial checkpoint: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint created", map[string]interface{}{
		"profile": profile,
		"path":    m.checkpointPath,
	})
	return cp, nil
}

// Load reads the checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var cp Checkpoint
	if err := json.NewDecoder(file).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Seen == nil {
		cp.Seen = make(map[string]string)
	}

	m.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"profile":          cp.Profile,
		"total_downloaded": cp.TotalDownloaded,
		"updated_at":       cp.UpdatedAt,
	})
	return &cp, nil
}

// LoadOrCreate returns the existing checkpoint or a new one.
func (m *Manager) LoadOrCreate(profile, secUserID string) (*Checkpoint, error) {
	cp, err := m.Load()
	if err != nil {
		return nil, err
	}
	if cp != nil {
		return cp, nil
	}
	return m.Create(profile, secUserID)
}

// Save writes cp to disk atomically.
func (m *Manager) Save(cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.UpdatedAt = time.Now()

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

// Delete removes the checkpoint file. A missing file is not an error.
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	m.logger.Info("Download history cleared")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// StartRun stamps cp with a new run and saves it.
func (m *Manager) StartRun(cp *Checkpoint, runID, mode string) error {
	cp.RunID = runID
	cp.Mode = mode
	cp.Runs++
	return m.Save(cp)
}

// RecordDownload remembers key as downloaded to filename and saves.
func (m *Manager) RecordDownload(cp *Checkpoint, key, filename string) error {
	m.mu.Lock()
	if _, ok := cp.Seen[key]; !ok {
		cp.TotalDownloaded++
	}
	cp.Seen[key] = filename
	m.mu.Unlock()
	return m.Save(cp)
}

// GetInfo summarises the stored checkpoint, or returns nil when none
// exists.
func (m *Manager) GetInfo() (*Info, error) {
	cp, err := m.Load()
	if err != nil || cp == nil {
		return nil, err
	}
	return &Info{
		Profile:         cp.Profile,
		TotalDownloaded: cp.TotalDownloaded,
		Runs:            cp.Runs,
		LastMode:        cp.Mode,
		CreatedAt:       cp.CreatedAt,
		UpdatedAt:       cp.UpdatedAt,
		Age:             time.Since(cp.UpdatedAt),
	}, nil
}

// Backup copies the checkpoint next to itself with a .backup suffix.
func (m *Manager) Backup() error {
	if !m.Exists() {
		return nil
	}

	src, err := os.Open(m.checkpointPath)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint for backup: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(m.checkpointPath + ".backup")
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy checkpoint to backup: %w", err)
	}
	return nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "dyscraper")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "dyscraper")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			dataDir = filepath.Join(xdg, "dyscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "dyscraper")
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dataDir, nil
}
