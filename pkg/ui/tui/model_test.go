package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModel(t *testing.T) {
	model := NewModel("MS4wLjABAAAA")

	model.AddDownload("a.mp4", "p", "a.mp4", 0)
	model.AddDownload("b.mp4", "p", "b.mp4", 0)
	model.AddDownload("a.mp4", "p", "a.mp4", 0)

	if len(model.downloads) != 2 || len(model.downloadOrder) != 2 {
		t.Errorf("Expected 2 downloads, got %d", len(model.downloads))
	}

	model.StartDownload("a.mp4")
	if model.activeDownloads != 1 {
		t.Errorf("Expected 1 active download, got %d", model.activeDownloads)
	}

	model.UpdateDownloadProgress("a.mp4", 512*1024, 1024*1024)
	download := model.downloads["a.mp4"]
	if download.Downloaded != 512*1024 {
		t.Errorf("Expected downloaded to be %d, got %d", 512*1024, download.Downloaded)
	}
	if download.Size != 1024*1024 {
		t.Errorf("Expected size from Content-Length, got %d", download.Size)
	}

	model.CompleteDownload("a.mp4", 1024*1024)
	if model.activeDownloads != 0 {
		t.Errorf("Expected 0 active downloads, got %d", model.activeDownloads)
	}
	if model.totalDownloaded != 1 || model.totalSize != 1024*1024 {
		t.Errorf("Unexpected totals: %d files, %d bytes", model.totalDownloaded, model.totalSize)
	}

	model.StartDownload("b.mp4")
	model.FailDownload("b.mp4", errors.New("status 403"))
	if model.totalFailed != 1 || len(model.GetFailedDownloads()) != 1 {
		t.Errorf("Expected one failed download")
	}
	if len(model.GetActiveDownloads()) != 0 {
		t.Errorf("Expected no active downloads")
	}

	model.UpdateHarvest("hover", 3, 10, 2)
	if model.harvestMode != "hover" || model.harvestFound != 2 {
		t.Errorf("Harvest state not updated")
	}

	model.AddLogMessage("INFO", "Test message")
	if len(model.logMessages) != 1 {
		t.Errorf("Expected 1 log message, got %d", len(model.logMessages))
	}
}

func TestUpdateMessages(t *testing.T) {
	model := NewModel("profile")
	m := &model

	m.Update(QueueMsg{Filenames: []string{"1.mp4", "2.mp4"}})
	if len(m.GetPendingDownloads()) != 2 {
		t.Fatalf("Expected 2 pending downloads")
	}

	m.Update(DownloadStartMsg{ID: "1.mp4", Filename: "1.mp4"})
	m.Update(DownloadCompleteMsg{ID: "1.mp4", Size: 100})
	m.Update(DownloadStartMsg{ID: "2.mp4", Filename: "2.mp4"})
	m.Update(DownloadErrorMsg{ID: "2.mp4", Error: errors.New("boom")})

	if len(m.GetCompletedDownloads()) != 1 || len(m.GetFailedDownloads()) != 1 {
		t.Errorf("Unexpected states after updates")
	}

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	if !m.isPaused {
		t.Errorf("Expected paused after p")
	}
}

func TestViewRenders(t *testing.T) {
	model := NewModel("MS4wLjABAAAA")
	m := &model
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 50})
	m.Update(HarvestUpdateMsg{Mode: "api", Found: 12})
	m.Update(DownloadStartMsg{ID: "7301_x.mp4", Filename: "7301_x.mp4"})
	m.Update(DownloadProgressMsg{ID: "7301_x.mp4", Downloaded: 10, Total: 0})

	out := m.View()
	for _, want := range []string{"HARVEST", "7301_x.mp4", "MS4wLjABAAAA"} {
		if !strings.Contains(out, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, test := range tests {
		result := FormatBytes(test.bytes)
		if result != test.expected {
			t.Errorf("FormatBytes(%d) = %s, expected %s", test.bytes, result, test.expected)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		speed    float64
		expected string
	}{
		{1024, "1.0 KB/s"},
		{1024 * 1024, "1.0 MB/s"},
		{512 * 1024, "512.0 KB/s"},
	}

	for _, test := range tests {
		result := FormatSpeed(test.speed)
		if result != test.expected {
			t.Errorf("FormatSpeed(%f) = %s, expected %s", test.speed, result, test.expected)
		}
	}
}
