package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"dyscraper/pkg/models"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetColor(false)
	t.Cleanup(func() {
		SetOutput(nil)
		SetQuiet(false)
		SetColor(true)
	})
	return &buf
}

func TestProgressDisplayCounts(t *testing.T) {
	buf := captureOutput(t)

	p := NewProgressDisplay("MS4wLjABAAAA", 3, false)
	p.DownloadStarted("7301_a.mp4")
	p.DownloadProgress("7301_a.mp4", 512, 1024)
	p.DownloadFinished("7301_a.mp4", 1024, nil)
	p.DownloadStarted("7302_b.mp4")
	p.DownloadFinished("7302_b.mp4", 0, errors.New("status 403"))
	p.Skipped("7303_c.mp4")

	downloaded, skipped, failed := p.Counts()
	assert.Equal(t, 1, downloaded)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 1, failed)

	out := buf.String()
	assert.Contains(t, out, "MS4wLjABAAAA")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "1 errors")
}

func TestProgressDisplayCompletePrintsSummaryWhenQuiet(t *testing.T) {
	buf := captureOutput(t)
	SetQuiet(true)

	p := NewProgressDisplay("profile", 2, false)
	p.DownloadStarted("a.mp4")
	p.DownloadFinished("a.mp4", 10, nil)
	p.Complete(models.RunSummary{Downloaded: 1, Failed: 1})

	assert.Equal(t, "Success: 1/2\n", buf.String())
}

func TestProgressDisplayDebug(t *testing.T) {
	buf := captureOutput(t)

	p := NewProgressDisplay("profile", 1, true)
	p.DownloadStarted("a.mp4")
	p.DownloadFinished("a.mp4", 2048, nil)

	assert.Contains(t, buf.String(), "✓ a.mp4 • 2.0 KB")
}

func TestStatusTracker(t *testing.T) {
	buf := captureOutput(t)

	st := NewStatusTracker("hover")
	st.SetTotal(4)
	st.ItemScanned(1)
	st.ItemScanned(0)
	st.AddFound(2)

	assert.Equal(t, 3, st.GetFoundCount())
	assert.Equal(t, "[██████████░░░░░░░░░░] 2/4", st.GetScanProgress())

	st.PrintProgress()
	assert.Contains(t, buf.String(), "[SCANNING HOVER]")
	assert.Contains(t, buf.String(), "found 3")
}

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return errors.New("no notification daemon")
}

func TestNotifier(t *testing.T) {
	buf := captureOutput(t)
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	n.SendSuccess("Scrape complete", "Success: 3/3")
	n.SendError("Scrape failed", "browser did not start")

	assert.Equal(t, []string{"Scrape complete", "Scrape failed"}, sender.titles)
	assert.Contains(t, buf.String(), "Scrape complete: Success: 3/3")

	assert.NotPanics(t, func() { NewNotifier(false).SendNotification("x", "y") })
}

func TestColorToggle(t *testing.T) {
	captureOutput(t)
	assert.Equal(t, "plain", Red("plain"))
	SetColor(true)
	assert.Equal(t, "\033[31mplain\033[0m", Red("plain"))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "500 B", formatBytes(500))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "5.0 GB", formatBytes(5*1024*1024*1024))
}
