package tui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DownloadState represents the state of a download
type DownloadState int

const (
	DownloadPending DownloadState = iota
	DownloadActive
	DownloadCompleted
	DownloadFailed
)

// DownloadItem is one video file. ID is the output filename.
type DownloadItem struct {
	ID         string
	Profile    string
	Filename   string
	Size       int64
	Downloaded int64
	State      DownloadState
	StartTime  time.Time
	Speed      float64
	Error      error
}

// Model represents the TUI model
type Model struct {
	// UI components
	spinner      spinner.Model
	progressBars map[string]progress.Model

	profile string

	// Download state
	downloads       map[string]*DownloadItem
	downloadOrder   []string
	activeDownloads int

	// Stats
	totalDownloaded  int
	totalFailed      int
	totalSize        int64
	sessionStartTime time.Time

	// Harvest phase
	harvestMode    string
	harvestScanned int
	harvestTotal   int
	harvestFound   int

	// UI state
	width          int
	height         int
	showHelp       bool
	isPaused       bool
	logMessages    []LogMessage
	maxLogMessages int

	// Mutex for thread safety
	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model for one profile.
func NewModel(profile string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		spinner:          s,
		progressBars:     make(map[string]progress.Model),
		profile:          profile,
		downloads:        make(map[string]*DownloadItem),
		downloadOrder:    []string{},
		sessionStartTime: time.Now(),
		logMessages:      []LogMessage{},
		maxLogMessages:   50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// AddDownload queues a download. Adding a known id is a no-op.
func (m *Model) AddDownload(id, profile, filename string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.downloads[id]; ok {
		return
	}
	m.downloads[id] = &DownloadItem{
		ID:       id,
		Profile:  profile,
		Filename: filename,
		Size:     size,
		State:    DownloadPending,
	}
	m.downloadOrder = append(m.downloadOrder, id)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40
	m.progressBars[id] = p
}

// StartDownload marks a download as active
func (m *Model) StartDownload(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if download, ok := m.downloads[id]; ok && download.State != DownloadActive {
		download.State = DownloadActive
		download.StartTime = time.Now()
		download.Downloaded = 0
		m.activeDownloads++
	}
}

// UpdateDownloadProgress records bytes written and derives the speed.
// total is the Content-Length, or 0 when unknown.
func (m *Model) UpdateDownloadProgress(id string, downloaded, total int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	download, ok := m.downloads[id]
	if !ok {
		return
	}
	download.Downloaded = downloaded
	if total > 0 {
		download.Size = total
	}
	if elapsed := time.Since(download.StartTime).Seconds(); elapsed > 0 {
		download.Speed = float64(downloaded) / elapsed
	}
}

// CompleteDownload marks a download as completed
func (m *Model) CompleteDownload(id string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if download, ok := m.downloads[id]; ok {
		if download.State == DownloadActive {
			m.activeDownloads--
		}
		download.State = DownloadCompleted
		download.Size = size
		download.Downloaded = size
		m.totalDownloaded++
		m.totalSize += size
	}
}

// FailDownload marks a download as failed
func (m *Model) FailDownload(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if download, ok := m.downloads[id]; ok {
		if download.State == DownloadActive {
			m.activeDownloads--
		}
		download.State = DownloadFailed
		download.Error = err
		m.totalFailed++
	}
}

// UpdateHarvest updates the harvest panel.
func (m *Model) UpdateHarvest(mode string, scanned, total, found int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.harvestMode = mode
	m.harvestScanned = scanned
	m.harvestTotal = total
	m.harvestFound = found
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m *Model) downloadsIn(state DownloadState) []*DownloadItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []*DownloadItem
	for _, id := range m.downloadOrder {
		if download := m.downloads[id]; download != nil && download.State == state {
			items = append(items, download)
		}
	}
	return items
}

// GetActiveDownloads returns a slice of active downloads
func (m *Model) GetActiveDownloads() []*DownloadItem {
	return m.downloadsIn(DownloadActive)
}

// GetPendingDownloads returns a slice of pending downloads
func (m *Model) GetPendingDownloads() []*DownloadItem {
	return m.downloadsIn(DownloadPending)
}

// GetCompletedDownloads returns a slice of completed downloads
func (m *Model) GetCompletedDownloads() []*DownloadItem {
	return m.downloadsIn(DownloadCompleted)
}

// GetFailedDownloads returns a slice of failed downloads
func (m *Model) GetFailedDownloads() []*DownloadItem {
	return m.downloadsIn(DownloadFailed)
}

// GetDownloadStats returns the current speed, the session average and an
// ETA for the pending queue.
func (m *Model) GetDownloadStats() (totalSpeed float64, avgSpeed float64, eta time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pendingCount := 0
	for _, download := range m.downloads {
		switch download.State {
		case DownloadActive:
			totalSpeed += download.Speed
		case DownloadPending:
			pendingCount++
		}
	}

	elapsed := time.Since(m.sessionStartTime)
	if m.totalDownloaded > 0 && elapsed > 0 {
		avgSpeed = float64(m.totalSize) / elapsed.Seconds()
		perFile := elapsed / time.Duration(m.totalDownloaded)
		eta = perFile * time.Duration(pendingCount)
	}

	return
}

// FormatBytes formats bytes to human readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed formats speed in bytes per second
func FormatSpeed(bytesPerSecond float64) string {
	return fmt.Sprintf("%s/s", FormatBytes(int64(bytesPerSecond)))
}
