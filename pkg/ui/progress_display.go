package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"dyscraper/pkg/models"
)

// redrawInterval throttles byte-level progress updates.
const redrawInterval = 200 * time.Millisecond

// ProgressDisplay provides a clean, minimal progress display. It satisfies
// the downloader's progress reporter.
type ProgressDisplay struct {
	mu              sync.Mutex
	profile         string
	totalVideos     int
	downloadedCount int
	skippedCount    int
	currentFile     string
	currentWritten  int64
	currentTotal    int64
	startTime       time.Time
	lastDraw        time.Time
	bytesDownloaded int64
	errors          int
	isDebug         bool
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(profile string, totalVideos int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		profile:     profile,
		totalVideos: totalVideos,
		startTime:   time.Now(),
		isDebug:     debug,
	}
}

// DownloadStarted marks the start of a new download
func (p *ProgressDisplay) DownloadStarted(filename string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentFile = filename
	p.currentWritten = 0
	p.currentTotal = 0

	if p.isDebug {
		p.printf("\n%s %s\n", Magenta("→"), filename)
		return
	}
	p.printProgress()
}

// DownloadProgress records bytes written for the current file.
func (p *ProgressDisplay) DownloadProgress(filename string, written, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentFile = filename
	p.currentWritten = written
	p.currentTotal = total

	if p.isDebug || time.Since(p.lastDraw) < redrawInterval {
		return
	}
	p.printProgress()
}

// DownloadFinished records the outcome of one download.
func (p *ProgressDisplay) DownloadFinished(filename string, size int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentFile = ""
	p.currentWritten = 0
	p.currentTotal = 0

	if err != nil {
		p.errors++
		if p.isDebug {
			p.printf("%s Failed: %s - %v\n", Red("✗"), filename, err)
			return
		}
		p.printProgress()
		return
	}

	p.downloadedCount++
	p.bytesDownloaded += size
	if p.isDebug {
		p.printf("%s %s • %s\n", Green("✓"), filename, formatBytes(size))
		return
	}
	p.printProgress()
}

// Skipped counts a candidate that was already on disk or in the history.
func (p *ProgressDisplay) Skipped(filename string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.skippedCount++
	if p.isDebug {
		p.printf("%s %s already downloaded\n", Dim("•"), filename)
	}
}

// Phase announces a workflow step such as loading or harvesting.
func (p *ProgressDisplay) Phase(name, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if detail != "" {
		p.printf("%s %s %s\n", Magenta("["+strings.ToUpper(name)+"]"), Cyan(p.profile), Dim(detail))
		return
	}
	p.printf("%s %s\n", Magenta("["+strings.ToUpper(name)+"]"), Cyan(p.profile))
}

// printProgress prints the minimal progress line
func (p *ProgressDisplay) printProgress() {
	p.lastDraw = time.Now()
	done := p.downloadedCount + p.errors

	progress := 0.0
	if p.totalVideos > 0 {
		progress = float64(done) / float64(p.totalVideos)
	}
	if progress > 1 {
		progress = 1
	}
	barWidth := 20
	filled := int(progress * float64(barWidth))
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("%s [%s] %d/%d • %s • %s",
		Cyan(p.profile),
		bar,
		done,
		p.totalVideos,
		formatBytes(p.bytesDownloaded+p.currentWritten),
		p.calculateETA(),
	)

	if p.currentFile != "" {
		line += fmt.Sprintf(" • %s", p.currentFile)
		if p.currentTotal > 0 {
			line += fmt.Sprintf(" %d%%", p.currentWritten*100/p.currentTotal)
		}
	}

	if p.errors > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d errors", p.errors)))
	}

	// Clear line and print
	p.printf("\r%s\r%s", strings.Repeat(" ", 120), line)
}

func (p *ProgressDisplay) printf(format string, args ...interface{}) {
	if IsQuiet() {
		return
	}
	fmt.Fprintf(output, format, args...)
}

// Complete prints the run summary. The Success line is printed even in
// quiet mode.
func (p *ProgressDisplay) Complete(summary models.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)

	p.printf("\n\n%s Downloaded %d videos from %s\n",
		Green("✓"),
		p.downloadedCount,
		p.profile,
	)
	p.printf("  %s %s in %s\n",
		Dim("•"),
		formatBytes(p.bytesDownloaded),
		formatDuration(elapsed),
	)
	if p.skippedCount > 0 {
		p.printf("  %s %d already downloaded\n", Dim("•"), p.skippedCount)
	}
	if p.errors > 0 {
		p.printf("  %s %d downloads failed\n", Dim("•"), p.errors)
	}

	PrintSummary(summary.Summary())
}

// calculateETA estimates time remaining
func (p *ProgressDisplay) calculateETA() string {
	done := p.downloadedCount + p.errors
	if done == 0 {
		return "calculating..."
	}

	remaining := p.totalVideos - done
	if remaining <= 0 {
		return "0s"
	}
	elapsed := time.Since(p.startTime)
	rate := float64(done) / elapsed.Seconds()
	if rate == 0 {
		return "calculating..."
	}

	eta := time.Duration(float64(remaining)/rate) * time.Second
	return formatDuration(eta)
}

// UpdateTotal updates the total video count
func (p *ProgressDisplay) UpdateTotal(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalVideos = total
}

// Counts returns downloaded, skipped and failed totals.
func (p *ProgressDisplay) Counts() (downloaded, skipped, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.downloadedCount, p.skippedCount, p.errors
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

// formatBytes formats bytes in a human-readable way
func formatBytes(bytes int64) string {
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
