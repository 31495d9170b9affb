package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Scrape modes.
const (
	ModeAPI   = "api"
	ModePage  = "page"
	ModeHover = "hover"
)

// DefaultUserAgent is the desktop Chrome identity used for the browser and
// for every HTTP request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"

// DefaultProfileURL is scraped when no profile is given on the command line.
const DefaultProfileURL = "https://www.douyin.com/user/MS4wLjABAAAAhGTvofJSpb_dRb51A_xGF5siEeiHB2ryBSRZ9V0NtM7C-UgZ9ACJLTO7HwEGnFSE?from_tab_name=main"

// DefaultContainerXPath locates the list of posts on a profile page.
const DefaultContainerXPath = "/html/body/div[2]/div[1]/div[4]/div[2]/div/div/div/div[3]/div/div/div[2]/div/div[2]"

// Config holds all configuration options for the profile scraper
type Config struct {
	Profile ProfileConfig `yaml:"profile" json:"profile"`

	// Browser launch options
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Harvest timings and strategy
	Scrape ScrapeConfig `yaml:"scrape" json:"scrape"`

	Download DownloadConfig `yaml:"download" json:"download"`

	Output OutputConfig `yaml:"output" json:"output"`

	Cookies CookiesConfig `yaml:"cookies" json:"cookies"`

	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	Retry RetryConfig `yaml:"retry" json:"retry"`

	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ProfileConfig selects what to scrape
type ProfileConfig struct {
	URL string `yaml:"url" json:"url"`
}

// BrowserConfig holds Chrome launch options
type BrowserConfig struct {
	ExecPath       string        `yaml:"exec_path" json:"exec_path"`
	Headless       bool          `yaml:"headless" json:"headless"`
	DebugAddress   string        `yaml:"debug_address" json:"debug_address"`
	DebugPort      int           `yaml:"debug_port" json:"debug_port"` // 0 lets Chrome pick a free port
	DisableImages  bool          `yaml:"disable_images" json:"disable_images"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	WindowWidth    int           `yaml:"window_width" json:"window_width"`
	WindowHeight   int           `yaml:"window_height" json:"window_height"`
	UserDataDir    string        `yaml:"user_data_dir" json:"user_data_dir"`
	NavigationWait time.Duration `yaml:"navigation_wait" json:"navigation_wait"`
	LaunchTimeout  time.Duration `yaml:"launch_timeout" json:"launch_timeout"`
}

// ScrapeConfig holds the harvest strategy and its timings
type ScrapeConfig struct {
	Mode             string        `yaml:"mode" json:"mode"`
	ContainerXPath   string        `yaml:"container_xpath" json:"container_xpath"`
	ScrollCount      int           `yaml:"scroll_count" json:"scroll_count"`
	ScrollPause      time.Duration `yaml:"scroll_pause" json:"scroll_pause"`
	OverlayPause     time.Duration `yaml:"overlay_pause" json:"overlay_pause"`
	APIListenTimeout time.Duration `yaml:"api_listen_timeout" json:"api_listen_timeout"`
	PollInterval     time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PageSniffTimeout time.Duration `yaml:"page_sniff_timeout" json:"page_sniff_timeout"`
	HoverChildren    int           `yaml:"hover_children" json:"hover_children"`
	HoverPause       time.Duration `yaml:"hover_pause" json:"hover_pause"`
	HoverSettle      time.Duration `yaml:"hover_settle" json:"hover_settle"`
	HoverPoll        time.Duration `yaml:"hover_poll" json:"hover_poll"`
	Limit            int           `yaml:"limit" json:"limit"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	Workers         int           `yaml:"workers" json:"workers"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"` // API request limit; for downloads the header and stall limit. 0 disables.
	Delay           time.Duration `yaml:"delay" json:"delay"`
	ChunkSize       int           `yaml:"chunk_size" json:"chunk_size"`
	KeepLargestOnly bool          `yaml:"keep_largest_only" json:"keep_largest_only"`
	MinFileSize     int64         `yaml:"min_file_size" json:"min_file_size"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory        string `yaml:"base_directory" json:"base_directory"`
	CreateProfileFolders bool   `yaml:"create_profile_folders" json:"create_profile_folders"`
	OverwriteExisting    bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	MaxNameLength        int    `yaml:"max_name_length" json:"max_name_length"`
	WriteMetadata        bool   `yaml:"write_metadata" json:"write_metadata"`
	HistoryEnabled       bool   `yaml:"history_enabled" json:"history_enabled"`
}

// CookiesConfig says where session cookies come from
type CookiesConfig struct {
	File    string `yaml:"file" json:"file"`
	Session string `yaml:"session" json:"session"`
	Require bool   `yaml:"require" json:"require"`
}

// RateLimitConfig paces outgoing downloads
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// RetryConfig controls per-request retries
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Profile: ProfileConfig{
			URL: DefaultProfileURL,
		},
		Browser: BrowserConfig{
			ExecPath:       "",
			Headless:       true,
			DebugAddress:   "127.0.0.1",
			DebugPort:      0,
			DisableImages:  true,
			UserAgent:      DefaultUserAgent,
			WindowWidth:    1366,
			WindowHeight:   900,
			NavigationWait: 5 * time.Second,
			LaunchTimeout:  30 * time.Second,
		},
		Scrape: ScrapeConfig{
			Mode:             ModeAPI,
			ContainerXPath:   DefaultContainerXPath,
			ScrollCount:      5,
			ScrollPause:      2 * time.Second,
			OverlayPause:     2 * time.Second,
			APIListenTimeout: 30 * time.Second,
			PollInterval:     time.Second,
			PageSniffTimeout: 5 * time.Second,
			HoverChildren:    5,
			HoverPause:       time.Second,
			HoverSettle:      2 * time.Second,
			HoverPoll:        100 * time.Millisecond,
		},
		Download: DownloadConfig{
			Workers:         1,
			Timeout:         2 * time.Minute,
			Delay:           time.Second,
			ChunkSize:       8192,
			KeepLargestOnly: true,
		},
		Output: OutputConfig{
			BaseDirectory:        "douyin_videos",
			CreateProfileFolders: false,
			OverwriteExisting:    false,
			MaxNameLength:        50,
			WriteMetadata:        true,
			HistoryEnabled:       true,
		},
		Cookies: CookiesConfig{
			File: "cookies.json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         1,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Notifications: NotificationConfig{
			Enabled:          false,
			OnComplete:       true,
			OnError:          true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from DYSCRAPER_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("DYSCRAPER_PROFILE_URL"); v != "" {
		c.Profile.URL = v
	}
	if v := os.Getenv("DYSCRAPER_MODE"); v != "" {
		c.Scrape.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("DYSCRAPER_CHROME_PATH"); v != "" {
		c.Browser.ExecPath = v
	}
	if v := os.Getenv("DYSCRAPER_HEADLESS"); v != "" {
		c.Browser.Headless = parseBool(v)
	}
	if v := os.Getenv("DYSCRAPER_USER_AGENT"); v != "" {
		c.Browser.UserAgent = v
	}
	if v := os.Getenv("DYSCRAPER_DEBUG_PORT"); v != "" {
		var port int
		fmt.Sscanf(v, "%d", &port)
		if port > 0 {
			c.Browser.DebugPort = port
		}
	}
	if v := os.Getenv("DYSCRAPER_SCROLL_COUNT"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if n >= 0 {
			c.Scrape.ScrollCount = n
		}
	}
	if v := os.Getenv("DYSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("DYSCRAPER_COOKIES_FILE"); v != "" {
		c.Cookies.File = v
	}
	if v := os.Getenv("DYSCRAPER_SESSION"); v != "" {
		c.Cookies.Session = v
	}
	if v := os.Getenv("DYSCRAPER_WORKERS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			c.Download.Workers = n
		}
	}
	if v := os.Getenv("DYSCRAPER_DOWNLOAD_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("DYSCRAPER_DOWNLOAD_DELAY: %w", err))
		} else {
			c.Download.Delay = d
		}
	}
	if v := os.Getenv("DYSCRAPER_KEEP_LARGEST"); v != "" {
		c.Download.KeepLargestOnly = parseBool(v)
	}
	if v := os.Getenv("DYSCRAPER_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = parseBool(v)
	}
	if v := os.Getenv("DYSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DYSCRAPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return errors.Join(errs...)
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".dyscraper.yaml",
		".dyscraper.yml",
		filepath.Join(home, ".config", "dyscraper", "config.yaml"),
		filepath.Join(home, ".config", "dyscraper", "config.yml"),
		filepath.Join(home, ".dyscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	switch c.Scrape.Mode {
	case ModeAPI, ModePage, ModeHover:
	default:
		errs = append(errs, fmt.Errorf("invalid scrape mode %q (want api, page or hover)", c.Scrape.Mode))
	}
	if c.Scrape.ContainerXPath == "" && c.Scrape.Mode != ModeAPI {
		errs = append(errs, errors.New("container xpath is required for page and hover modes"))
	}
	if c.Scrape.ScrollCount < 0 {
		errs = append(errs, errors.New("scroll count cannot be negative"))
	}
	if c.Scrape.APIListenTimeout <= 0 {
		errs = append(errs, errors.New("api listen timeout must be positive"))
	}
	if c.Scrape.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Scrape.HoverChildren <= 0 {
		errs = append(errs, errors.New("hover children must be positive"))
	}

	if c.Browser.DebugPort < 0 || c.Browser.DebugPort > 65535 {
		errs = append(errs, errors.New("debug port must be between 0 and 65535"))
	}
	if c.Browser.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	if c.Download.Workers <= 0 {
		errs = append(errs, errors.New("workers must be positive"))
	}
	if c.Download.Workers > 8 {
		errs = append(errs, errors.New("workers should not exceed 8"))
	}
	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("download timeout cannot be negative"))
	}
	if c.Download.Delay < 0 {
		errs = append(errs, errors.New("download delay cannot be negative"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("chunk size must be positive"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.MaxNameLength <= 0 {
		errs = append(errs, errors.New("max name length must be positive"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, errors.New("retry attempts must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys that are present and non-zero override.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["profile"].(string); ok && v != "" {
		c.Profile.URL = v
	}
	if v, ok := flags["mode"].(string); ok && v != "" {
		c.Scrape.Mode = strings.ToLower(v)
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["cookies"].(string); ok && v != "" {
		c.Cookies.File = v
	}
	if v, ok := flags["session"].(string); ok && v != "" {
		c.Cookies.Session = v
	}
	if v, ok := flags["chrome"].(string); ok && v != "" {
		c.Browser.ExecPath = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["scrolls"].(int); ok && v >= 0 {
		c.Scrape.ScrollCount = v
	}
	if v, ok := flags["limit"].(int); ok && v > 0 {
		c.Scrape.Limit = v
	}
	if v, ok := flags["workers"].(int); ok && v > 0 {
		c.Download.Workers = v
	}
	if v, ok := flags["delay"].(time.Duration); ok && v >= 0 {
		c.Download.Delay = v
	}
	if v, ok := flags["keep-largest"].(bool); ok {
		c.Download.KeepLargestOnly = v
	}
	if v, ok := flags["profile-folders"].(bool); ok {
		c.Output.CreateProfileFolders = v
	}
	if v, ok := flags["overwrite"].(bool); ok {
		c.Output.OverwriteExisting = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".dyscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
