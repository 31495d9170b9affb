package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// QueueMsg adds pending downloads
type QueueMsg struct {
	Filenames []string
}

// DownloadStartMsg is sent when a download starts
type DownloadStartMsg struct {
	ID       string
	Filename string
}

// DownloadProgressMsg is sent to update download progress
type DownloadProgressMsg struct {
	ID         string
	Downloaded int64
	Total      int64
}

// DownloadCompleteMsg is sent when a download completes
type DownloadCompleteMsg struct {
	ID   string
	Size int64
}

// DownloadErrorMsg is sent when a download fails
type DownloadErrorMsg struct {
	ID    string
	Error error
}

// HarvestUpdateMsg is sent while candidates are being collected
type HarvestUpdateMsg struct {
	Mode    string
	Scanned int
	Total   int
	Found   int
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tea.Batch(
			tickCmd(),
			m.spinner.Tick,
		)

	case QueueMsg:
		for _, name := range msg.Filenames {
			m.AddDownload(name, m.profile, name, 0)
		}
		return m, nil

	case DownloadStartMsg:
		m.AddDownload(msg.ID, m.profile, msg.Filename, 0)
		m.StartDownload(msg.ID)
		m.AddLogMessage("INFO", "Started download: "+msg.Filename)
		return m, nil

	case DownloadProgressMsg:
		m.UpdateDownloadProgress(msg.ID, msg.Downloaded, msg.Total)
		return m, nil

	case DownloadCompleteMsg:
		m.CompleteDownload(msg.ID, msg.Size)
		m.AddLogMessage("SUCCESS", "Completed: "+msg.ID+" ("+FormatBytes(msg.Size)+")")
		return m, nil

	case DownloadErrorMsg:
		m.FailDownload(msg.ID, msg.Error)
		m.AddLogMessage("ERROR", "Failed: "+msg.ID+" - "+msg.Error.Error())
		return m, nil

	case HarvestUpdateMsg:
		m.UpdateHarvest(msg.Mode, msg.Scanned, msg.Total, msg.Found)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "p", "P":
		m.mu.Lock()
		m.isPaused = !m.isPaused
		paused := m.isPaused
		m.mu.Unlock()
		if paused {
			m.AddLogMessage("WARN", "Downloads paused by user")
		} else {
			m.AddLogMessage("INFO", "Downloads resumed by user")
		}
		return m, nil

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
