package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"dyscraper/pkg/ui"
)

var _ ui.TUI = (*TUI)(nil)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new TUI instance for one profile.
func NewTUI(profile string, opts ...tea.ProgramOption) *TUI {
	model := NewModel(profile)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	program := tea.NewProgram(&model, opts...)

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the TUI until the user quits or Stop is called.
func (t *TUI) Start() error {
	go func() {
		// Send initial tick to start the spinner
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Queue lists the files that are about to be downloaded.
func (t *TUI) Queue(filenames []string) {
	t.Send(QueueMsg{Filenames: filenames})
}

// DownloadStarted notifies the TUI that a download has started
func (t *TUI) DownloadStarted(filename string) {
	t.Send(DownloadStartMsg{ID: filename, Filename: filename})
}

// DownloadProgress updates the byte count of a download
func (t *TUI) DownloadProgress(filename string, written, total int64) {
	t.Send(DownloadProgressMsg{ID: filename, Downloaded: written, Total: total})
}

// DownloadFinished notifies the TUI that a download completed or failed
func (t *TUI) DownloadFinished(filename string, size int64, err error) {
	if err != nil {
		t.Send(DownloadErrorMsg{ID: filename, Error: err})
		return
	}
	t.Send(DownloadCompleteMsg{ID: filename, Size: size})
}

// UpdateHarvest updates the harvest panel
func (t *TUI) UpdateHarvest(mode string, scanned, total, found int) {
	t.Send(HarvestUpdateMsg{Mode: mode, Scanned: scanned, Total: total, Found: found})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	t.Send(LogMsg{Level: level, Message: message})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogSuccess logs a success message
func (t *TUI) LogSuccess(format string, args ...interface{}) {
	t.Log("SUCCESS", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}

// IsPaused returns whether downloads are paused
func (t *TUI) IsPaused() bool {
	t.model.mu.RLock()
	defer t.model.mu.RUnlock()
	return t.model.isPaused
}
