package ui

// TUI is an interface for terminal user interfaces. The download methods
// match the downloader's progress reporter so a TUI can be plugged into the
// worker pool directly.
type TUI interface {
	Queue(filenames []string)
	DownloadStarted(filename string)
	DownloadProgress(filename string, written, total int64)
	DownloadFinished(filename string, size int64, err error)
	UpdateHarvest(mode string, scanned, total, found int)
	LogInfo(format string, args ...interface{})
	LogSuccess(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
	IsPaused() bool
}
