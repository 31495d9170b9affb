package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderLogo())

	leftColumn := m.renderLeftColumn()
	rightColumn := m.renderRightColumn()

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftColumn,
		"  ",
		rightColumn,
	)
	sections = append(sections, mainContent)

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	logo := `
╔════════════════════════════════════════════════╗
║   ░▒▓  D  Y  S  C  R  A  P  E  R  ▓▒░          ║
║   PROFILE VIDEO EXTRACTION UTILITY             ║
╚════════════════════════════════════════════════╝`

	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderLeftColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(width),
		m.renderActiveDownloadsPanel(width),
		m.renderQueuePanel(width),
	)
}

func (m *Model) renderRightColumn() string {
	width := (m.width - 4) / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHarvestPanel(width),
		m.renderLogsPanel(width),
	)
}

func (m *Model) renderStatsPanel(width int) string {
	totalSpeed, avgSpeed, eta := m.GetDownloadStats()

	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" SESSION ")
	elapsed := time.Since(m.sessionStartTime)

	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Profile:"), statsValueStyle.Render(m.profile)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Session Time:"), statsValueStyle.Render(formatDuration(elapsed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Downloaded:"), statsValueStyle.Render(fmt.Sprintf("%d videos", m.totalDownloaded))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Failed:"), statsValueStyle.Render(fmt.Sprintf("%d", m.totalFailed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Total Size:"), statsValueStyle.Render(FormatBytes(m.totalSize))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Current Speed:"), speedStyle.Render(FormatSpeed(totalSpeed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Average Speed:"), speedStyle.Render(FormatSpeed(avgSpeed))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("ETA:"), statsValueStyle.Render(formatDuration(eta))),
	}

	if m.isPaused {
		stats = append(stats, warningStyle.Render("⏸  PAUSED"))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, stats...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderActiveDownloadsPanel(width int) string {
	title := titleStyle.Render(" ACTIVE DOWNLOAD ")

	active := m.GetActiveDownloads()

	if len(active) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render(m.spinner.View() + " waiting")
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, content),
		)
	}

	var downloads []string
	for _, download := range active {
		downloads = append(downloads, m.renderDownloadItem(download, width-4))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, downloads...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderDownloadItem renders a single download with progress bar. Without
// a Content-Length only the byte count is shown.
func (m *Model) renderDownloadItem(item *DownloadItem, width int) string {
	m.mu.RLock()
	progressBar, ok := m.progressBars[item.ID]
	m.mu.RUnlock()

	if !ok {
		return ""
	}

	size := "?"
	if item.Size > 0 {
		size = FormatBytes(item.Size)
	}
	info := fmt.Sprintf("%s %s @ %s",
		queueItemActiveStyle.Render(item.Filename),
		lipgloss.NewStyle().Foreground(dimWhite).Render(FormatBytes(item.Downloaded)+"/"+size),
		speedStyle.Render(FormatSpeed(item.Speed)),
	)

	if item.Size <= 0 {
		return info
	}

	progress := float64(item.Downloaded) / float64(item.Size)
	if progress > 1.0 {
		progress = 1.0
	}
	progressBar.Width = width - 20

	return lipgloss.JoinVertical(lipgloss.Left, info, progressBar.ViewAs(progress))
}

func (m *Model) renderQueuePanel(width int) string {
	title := titleStyle.Render(" DOWNLOAD QUEUE ")

	pending := m.GetPendingDownloads()
	completed := m.GetCompletedDownloads()
	failed := m.GetFailedDownloads()

	var items []string

	pendingCount := len(pending)
	if pendingCount > 0 {
		items = append(items, warningStyle.Render(fmt.Sprintf("⏳ %d pending", pendingCount)))
		for i := 0; i < 3 && i < pendingCount; i++ {
			items = append(items, queueItemStyle.Render("• "+pending[i].Filename))
		}
		if pendingCount > 3 {
			items = append(items, lipgloss.NewStyle().Foreground(dimWhite).Render(fmt.Sprintf("  ... and %d more", pendingCount-3)))
		}
	}

	completedCount := len(completed)
	if completedCount > 0 {
		items = append(items, "", successStyle.Render(fmt.Sprintf("✓ %d completed", completedCount)))
		start := completedCount - 3
		if start < 0 {
			start = 0
		}
		for i := start; i < completedCount; i++ {
			items = append(items, queueItemCompletedStyle.Render("✓ "+completed[i].Filename))
		}
	}

	if len(failed) > 0 {
		items = append(items, "", errorStyle.Render(fmt.Sprintf("✗ %d failed", len(failed))))
		for i := 0; i < 3 && i < len(failed); i++ {
			items = append(items, queueItemStyle.Render("✗ "+failed[i].Filename))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, items...)

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHarvestPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" HARVEST ")

	mode := m.harvestMode
	if mode == "" {
		mode = "-"
	}

	usage := 0.0
	if m.harvestTotal > 0 {
		usage = float64(m.harvestScanned) / float64(m.harvestTotal) * 100
	}
	if usage > 100 {
		usage = 100
	}

	barWidth := width - 8
	if barWidth < 0 {
		barWidth = 0
	}
	filled := int(usage * float64(barWidth) / 100)
	empty := barWidth - filled

	barStyle := GetProgressBarStyle(usage)
	bar := barStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", empty))

	content := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Mode:"), statsValueStyle.Render(mode)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Scanned:"),
			barStyle.Render(fmt.Sprintf("%d/%d", m.harvestScanned, m.harvestTotal))),
		bar,
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Candidates:"),
			statsValueStyle.Render(fmt.Sprintf("%d", m.harvestFound))),
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(content, "\n")),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))

		msg := []rune(log.Message)
		maxMsgLen := width - 25
		if maxMsgLen > 3 && len(msg) > maxMsgLen {
			msg = append(msg[:maxMsgLen-3], []rune("...")...)
		}

		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(string(msg))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := m.height - 35
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Navigation:
    q/Q      - Quit the application
    p/P      - Pause/Resume downloads (the current file finishes)
    ctrl+l   - Clear logs
    ?        - Toggle this help

  Status Indicators:
    ` + successStyle.Render("Green") + `    - Completed
    ` + warningStyle.Render("Orange") + `   - Pending/Paused
    ` + errorStyle.Render("Red") + `      - Failed
`

	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
