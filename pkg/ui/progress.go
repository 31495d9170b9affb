package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker follows the harvest phase: how many profile items were
// scanned and how many candidate videos they produced.
type StatusTracker struct {
	mu         sync.Mutex
	Mode       string
	TotalItems int
	Scanned    int
	Found      int
	StartTime  time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker(mode string) *StatusTracker {
	return &StatusTracker{
		Mode:      mode,
		StartTime: time.Now(),
	}
}

// SetTotal sets the number of items that will be scanned.
func (st *StatusTracker) SetTotal(n int) {
	st.mu.Lock()
	st.TotalItems = n
	st.mu.Unlock()
}

// ItemScanned counts one scanned item and the candidates it yielded.
func (st *StatusTracker) ItemScanned(found int) {
	st.mu.Lock()
	st.Scanned++
	st.Found += found
	st.mu.Unlock()
}

// AddFound counts candidates that did not come from a per-item scan.
func (st *StatusTracker) AddFound(n int) {
	st.mu.Lock()
	st.Found += n
	st.mu.Unlock()
}

// GetScanProgress returns a formatted progress bar for the scan
func (st *StatusTracker) GetScanProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	const width = 20
	filled := 0
	if st.TotalItems > 0 {
		filled = st.Scanned * width / st.TotalItems
	}
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) +
		strings.Repeat(ProgressEmpty, width-filled)

	return fmt.Sprintf("[%s] %d/%d", bar, st.Scanned, st.TotalItems)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// GetFoundCount returns the number of candidates found so far.
func (st *StatusTracker) GetFoundCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.Found
}

// PrintProgress prints the current harvest status
func (st *StatusTracker) PrintProgress() {
	if IsQuiet() {
		return
	}
	progress := st.GetScanProgress()
	fmt.Fprintf(output, "\r%s %s | found %d",
		Magenta("[SCANNING "+strings.ToUpper(st.Mode)+"]"),
		Yellow(progress),
		st.GetFoundCount())
}

// PrintDone prints the harvest result on its own line.
func (st *StatusTracker) PrintDone() {
	if IsQuiet() {
		return
	}
	fmt.Fprintf(output, "\n%s %d candidates in %s\n",
		Green("[HARVESTED]"),
		st.GetFoundCount(),
		formatDuration(st.GetElapsedTime()))
}
