package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dyscraper/pkg/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info", &config.LoggingConfig{Level: "info"}, false},
		{"debug", &config.LoggingConfig{Level: "debug"}, false},
		{"empty defaults to info", &config.LoggingConfig{}, false},
		{"invalid", &config.LoggingConfig{Level: "chatty"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "run.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"INFO":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range cases {
		got, err := parseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseLogLevel("nope")
	assert.Error(t, err)
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "warn")
	require.NoError(t, err)

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("shown warn")
	l.Error("shown error")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "shown warn", recs[0]["message"])
	assert.Equal(t, "error", recs[1]["level"])
	assert.Equal(t, "dyscraper", recs[1]["app"])
}

func TestWithFieldsAreImmutable(t *testing.T) {
	var buf bytes.Buffer
	base, err := NewWithWriter(&buf, "debug")
	require.NoError(t, err)

	child := base.WithField("profile", "MS4w").WithFields(map[string]interface{}{
		"found": 12,
		"wait":  2 * time.Second,
	})
	child.Info("harvested")
	base.Info("plain")

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "MS4w", recs[0]["profile"])
	assert.EqualValues(t, 12, recs[0]["found"])
	assert.NotContains(t, recs[1], "profile")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "info")
	require.NoError(t, err)

	l.WithError(errors.New("status 403")).Error("download failed")
	assert.Same(t, l, l.WithError(nil))

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "status 403", recs[0]["error"])
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "info")
	require.NoError(t, err)

	l.InfoWithFields("saved", map[string]interface{}{
		"file":  "001_clip.mp4",
		"bytes": int64(4096),
		"ok":    true,
	})

	recs := decodeLines(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "001_clip.mp4", recs[0]["file"])
	assert.EqualValues(t, 4096, recs[0]["bytes"])
	assert.Equal(t, true, recs[0]["ok"])
}

func TestGlobalLogger(t *testing.T) {
	prev := globalLogger
	defer func() { globalLogger = prev }()

	tl := NewTestLogger()
	SetLogger(tl)

	Info("global info")
	WithField("k", "v").Warn("global warn")
	LogHarvest("api", "MS4w", 0)
	LogDownload("MS4w", "7301", "7301_clip.mp4", 0, errors.New("boom"))

	assert.True(t, tl.HasMessage("global info"))
	assert.True(t, tl.HasMessage("No video candidates found"))
	assert.True(t, tl.HasError())

	failed := tl.GetMessagesByLevel("ERROR")
	require.Len(t, failed, 1)
	assert.Equal(t, "7301", failed[0].Fields["video_id"])
	assert.EqualError(t, failed[0].Error, "boom")
}

func TestTestLoggerSharesCapture(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("a", 1).WithFields(map[string]interface{}{"b": 2}).Info("derived")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]interface{}{"a": 1, "b": 2}, msgs[0].Fields)
	assert.Contains(t, tl.String(), "[INFO] derived a=1 b=2")

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("x", 1).Info("ignored")
	assert.NotNil(t, l.GetZerolog())
}
