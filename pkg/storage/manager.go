package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"dyscraper/pkg/naming"
)

// partSuffix marks a file still being written.
const partSuffix = ".part"

// ErrEmptyBody is returned when a download produced no bytes.
var ErrEmptyBody = errors.New("empty response body")

var videoExts = map[string]bool{".mp4": true, ".mov": true, ".webm": true}

// Manager owns one output directory: it knows which videos are already on
// disk, hands out collision-free names within a run and writes files
// atomically.
type Manager struct {
	outputDir string
	overwrite bool

	mu      sync.RWMutex
	onDisk  map[string]bool
	claimed map[string]string // filename -> candidate key
}

// NewManager creates the directory if needed and indexes existing videos.
// Leftover .part files from an interrupted run are removed.
func NewManager(outputDir string, overwrite bool) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	m := &Manager{
		outputDir: outputDir,
		overwrite: overwrite,
		onDisk:    make(map[string]bool),
		claimed:   make(map[string]string),
	}
	if err := m.scan(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}
	return m, nil
}

func (m *Manager) scan() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, partSuffix) {
			_ = os.Remove(filepath.Join(m.outputDir, name))
			continue
		}
		if videoExts[strings.ToLower(filepath.Ext(name))] {
			m.onDisk[name] = true
		}
	}
	return nil
}

// IsDownloaded reports whether filename already exists and should be left
// alone. It is always false when overwriting is enabled.
func (m *Manager) IsDownloaded(filename string) bool {
	if m.overwrite {
		return false
	}

	m.mu.RLock()
	known := m.onDisk[filename]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(m.Path(filename)); err == nil {
		m.mu.Lock()
		m.onDisk[filename] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Claim reserves filename for the candidate identified by key. If another
// candidate already claimed it during this run, a numbered variant is
// returned instead. Claiming the same name twice with one key is stable.
func (m *Manager) Claim(filename, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner, ok := m.claimed[filename]; !ok || owner == key {
		m.claimed[filename] = key
		return filename
	}
	name := naming.Unique(filename, func(n string) bool {
		owner, ok := m.claimed[n]
		return ok && owner != key
	})
	m.claimed[name] = key
	return name
}

// SaveStream writes a file through write into a temporary .part file and
// renames it into place once complete. Nothing is left behind on failure.
func (m *Manager) SaveStream(filename string, write func(w io.Writer) (int64, error)) (int64, error) {
	final := m.Path(filename)
	tmp := final + partSuffix

	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	n, err := write(out)
	if err == nil && n == 0 {
		err = ErrEmptyBody
	}
	if err == nil {
		err = out.Sync()
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, err
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.onDisk[filename] = true
	m.mu.Unlock()
	return n, nil
}

// Path returns the absolute-or-relative path of filename in the output dir.
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.outputDir, filename)
}

// Size returns the size of filename on disk.
func (m *Manager) Size(filename string) (int64, error) {
	info, err := os.Stat(m.Path(filename))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes filename. A file that is already gone is not an error.
func (m *Manager) Remove(filename string) error {
	err := os.Remove(m.Path(filename))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	m.mu.Lock()
	delete(m.onDisk, filename)
	m.mu.Unlock()
	return nil
}

// KeepLargest keeps the biggest of files and deletes the others. Files are
// ranked by size with a stable sort, so on a tie the one listed first wins.
// Names that do not exist are ignored.
func (m *Manager) KeepLargest(files []string) (kept string, removed []string, err error) {
	type sized struct {
		name string
		size int64
	}

	var present []sized
	seen := make(map[string]bool)
	for _, f := range files {
		if seen[f] {
			continue
		}
		seen[f] = true
		size, statErr := m.Size(f)
		if statErr != nil {
			continue
		}
		present = append(present, sized{f, size})
	}
	if len(present) == 0 {
		return "", nil, nil
	}

	sort.SliceStable(present, func(i, j int) bool {
		return present[i].size > present[j].size
	})

	var errs []error
	for _, s := range present[1:] {
		if rmErr := m.Remove(s.name); rmErr != nil {
			errs = append(errs, rmErr)
			continue
		}
		removed = append(removed, s.name)
	}
	return present[0].name, removed, errors.Join(errs...)
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}

// GetDownloadedCount returns the number of videos known to be on disk
func (m *Manager) GetDownloadedCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.onDisk)
}
