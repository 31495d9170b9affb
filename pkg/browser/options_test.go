package browser

import (
	"testing"
	"time"

	"dyscraper/pkg/config"

	"github.com/stretchr/testify/assert"
)

func flagMap(opts Options) map[string]interface{} {
	m := make(map[string]interface{})
	for _, f := range flags(opts) {
		m[f.name] = f.value
	}
	return m
}

func TestFlagsAlwaysSet(t *testing.T) {
	m := flagMap(Options{})
	for _, name := range []string{
		"no-sandbox", "disable-dev-shm-usage", "disable-web-security",
		"disable-extensions", "disable-plugins", "disable-setuid-sandbox",
	} {
		assert.Equal(t, true, m[name], name)
	}
	assert.Equal(t, "VizDisplayCompositor", m["disable-features"])
	assert.Equal(t, false, m["headless"])
	assert.NotContains(t, m, "remote-debugging-port")
	assert.NotContains(t, m, "disable-images")
}

func TestFlagsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.DefaultConfig().Browser)
	m := flagMap(opts)

	assert.Equal(t, "new", m["headless"])
	assert.Equal(t, "127.0.0.1", m["remote-debugging-address"])
	// chromedp picks a free port when none is given.
	assert.NotContains(t, m, "remote-debugging-port")
	assert.Equal(t, true, m["disable-images"])
	assert.Equal(t, 30*time.Second, opts.LaunchTimeout)

	// Defaults plus our switches plus user agent and window size.
	assert.Greater(t, len(BuildAllocatorOptions(opts)), len(flags(opts)))
}

func TestFlagsExplicitDebugPort(t *testing.T) {
	m := flagMap(Options{DebugAddress: "127.0.0.1", DebugPort: 9333})
	assert.Equal(t, "9333", m["remote-debugging-port"])
}
