package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs the outcome of one HTTP request.
func LogRequest(method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
	}

	switch {
	case statusCode >= 500:
		GetLogger().ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		GetLogger().WarnWithFields("HTTP request client error", fields)
	default:
		GetLogger().DebugWithFields("HTTP request completed", fields)
	}
}

// LogDownload logs the result of a single video download.
func LogDownload(profile, videoID, filename string, size int64, err error) {
	l := GetLogger().WithFields(map[string]interface{}{
		"profile":  profile,
		"video_id": videoID,
		"file":     filename,
	})

	switch {
	case err != nil:
		l.WithError(err).Error("Download failed")
	case size > 0:
		l.WithField("bytes", size).Info("Download completed")
	default:
		l.Info("Download skipped, already present")
	}
}

// LogHarvest logs how many candidates a strategy produced.
func LogHarvest(mode, profile string, found int) {
	l := GetLogger().WithFields(map[string]interface{}{
		"mode":    mode,
		"profile": profile,
		"found":   found,
	})
	if found == 0 {
		l.Warn("No video candidates found")
		return
	}
	l.Info("Harvest finished")
}

// LogSniffed logs one captured network response at debug level.
func LogSniffed(url string, status int64, mime string) {
	GetLogger().DebugWithFields("Captured response", map[string]interface{}{
		"url":    url,
		"status": status,
		"mime":   mime,
	})
}

// LogScrapeProgress logs download progress across a run.
func LogScrapeProgress(profile string, done, total int) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(done) / float64(total) * 100
	}

	GetLogger().WithFields(map[string]interface{}{
		"profile":    profile,
		"done":       done,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Download progress")
}

func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Debug("Component started")
}

func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Debug("Component stopped")
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
