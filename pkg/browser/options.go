// Package browser drives a Chrome instance over the DevTools protocol and
// records the network responses it sees.
package browser

import (
	"strconv"
	"time"

	"dyscraper/pkg/config"

	"github.com/chromedp/chromedp"
)

// Options controls how Chrome is launched.
type Options struct {
	ExecPath      string
	UserDataDir   string
	Headless      bool
	DebugAddress  string
	DebugPort     int
	DisableImages bool
	UserAgent     string
	WindowWidth   int
	WindowHeight  int

	// NavigateTimeout bounds a single navigation. Zero means no bound.
	NavigateTimeout time.Duration
	// LaunchTimeout bounds browser start-up.
	LaunchTimeout time.Duration
}

// OptionsFromConfig maps the browser section of the configuration.
func OptionsFromConfig(bc config.BrowserConfig) Options {
	return Options{
		ExecPath:        bc.ExecPath,
		UserDataDir:     bc.UserDataDir,
		Headless:        bc.Headless,
		DebugAddress:    bc.DebugAddress,
		DebugPort:       bc.DebugPort,
		DisableImages:   bc.DisableImages,
		UserAgent:       bc.UserAgent,
		WindowWidth:     bc.WindowWidth,
		WindowHeight:    bc.WindowHeight,
		NavigateTimeout: 60 * time.Second,
		LaunchTimeout:   bc.LaunchTimeout,
	}
}

type flag struct {
	name  string
	value interface{}
}

// flags lists the Chrome switches for opts, in order.
func flags(opts Options) []flag {
	fs := []flag{
		{"no-sandbox", true},
		{"disable-dev-shm-usage", true},
		{"disable-web-security", true},
		{"disable-features", "VizDisplayCompositor"},
		{"disable-extensions", true},
		{"disable-plugins", true},
		{"disable-setuid-sandbox", true},
		{"disable-blink-features", "AutomationControlled"},
	}
	if opts.DebugAddress != "" {
		fs = append(fs, flag{"remote-debugging-address", opts.DebugAddress})
	}
	if opts.DebugPort > 0 {
		fs = append(fs, flag{"remote-debugging-port", strconv.Itoa(opts.DebugPort)})
	}
	if opts.Headless {
		fs = append(fs, flag{"headless", "new"})
	} else {
		fs = append(fs, flag{"headless", false})
	}
	if opts.DisableImages {
		fs = append(fs, flag{"disable-images", true}, flag{"blink-settings", "imagesEnabled=false"})
	}
	return fs
}

// BuildAllocatorOptions creates the exec allocator options for opts.
func BuildAllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range flags(opts) {
		out = append(out, chromedp.Flag(f.name, f.value))
	}

	if opts.ExecPath != "" {
		out = append(out, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		out = append(out, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.UserAgent != "" {
		out = append(out, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		out = append(out, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	return out
}
