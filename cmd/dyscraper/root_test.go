package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dyscraper/pkg/config"
)

func TestChangedFlags(t *testing.T) {
	fs := pflag.NewFlagSet("scrape", pflag.ContinueOnError)
	fs.String("mode", "api", "")
	fs.Int("workers", 1, "")
	fs.Duration("delay", time.Second, "")
	fs.Bool("headless", true, "")
	fs.String("output", "douyin_videos", "")

	require.NoError(t, fs.Parse([]string{"--mode", "hover", "--workers=2", "--delay", "1500ms", "--headless=false"}))

	got := changedFlags(fs)
	assert.Equal(t, map[string]interface{}{
		"mode":     "hover",
		"workers":  2,
		"delay":    1500 * time.Millisecond,
		"headless": false,
	}, got)
	assert.NotContains(t, got, "output")
}

func TestProfileDir(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = "videos"

	cfg.Output.CreateProfileFolders = false
	assert.Equal(t, "videos", profileDir(cfg, "MS4wLjABAAAAx"))

	cfg.Output.CreateProfileFolders = true
	assert.Equal(t, filepath.Join("videos", "MS4wLjABAAAAx"), profileDir(cfg, "MS4wLjABAAAAx"))
}
