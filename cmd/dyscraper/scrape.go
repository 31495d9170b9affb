package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dyscraper/pkg/auth"
	"dyscraper/pkg/config"
	"dyscraper/pkg/douyin"
	"dyscraper/pkg/logger"
	"dyscraper/pkg/models"
	"dyscraper/pkg/scraper"
	"dyscraper/pkg/ui"
	"dyscraper/pkg/ui/tui"
)

var (
	// Scrape command flags
	resetHistory bool
	useTUI       bool
	maxPages     int
)

// scrapeCmd represents the scrape command
var scrapeCmd = &cobra.Command{
	Use:   "scrape [profile-url]",
	Short: "Download the videos of a profile",
	Long: `Open a Douyin profile in Chrome, harvest its videos and download them.

Without an argument the profile from the configuration is used. Videos
downloaded by an earlier run are skipped; pass --reset-history to forget
them.`,
	Example: `  # Read the post list the page requests (default mode)
  dyscraper scrape "https://www.douyin.com/user/MS4wLjABAAAA..."

  # Open each video page and keep the largest file of each
  dyscraper scrape URL --mode page --scrolls 10

  # Hover each post, using a stored cookie session and a visible browser
  dyscraper scrape URL --mode hover --session main --headless=false

  # Full-screen progress view
  dyscraper scrape URL --tui`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScrape(cmd, args)
	},
}

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch <aweme-list-url>",
	Short: "Download from a captured post list URL without a browser",
	Long: `Request a post list URL (for example one copied from the browser's
Network tab) with the session headers and cookies, then download every
video it lists. --pages follows the list's cursor.`,
	Example: `  dyscraper fetch "https://www.douyin.com/aweme/v1/web/aweme/post/?sec_user_id=...&count=18" --pages 3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runFetch,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(fetchCmd)

	f := scrapeCmd.Flags()
	f.String("mode", config.ModeAPI, "harvest mode: api, page or hover")
	f.StringP("output", "o", "", "output directory (default douyin_videos)")
	f.String("cookies", "", "cookie file exported from the browser (default cookies.json)")
	f.StringP("session", "s", "", "use a stored cookie session instead of the cookie file")
	f.Int("scrolls", 5, "number of scrolls on the profile page")
	f.Bool("headless", true, "run Chrome without a window")
	f.String("chrome", "", "path to the Chrome executable")
	f.Bool("keep-largest", true, "page mode: keep only the largest file of each video page")
	f.Int("workers", 1, "number of parallel downloads")
	f.Duration("delay", 0, "minimum pause between downloads (default 1s)")
	f.Int("limit", 0, "stop after this many videos (0 means no limit)")
	f.Bool("profile-folders", false, "save each profile in its own folder")
	f.Bool("overwrite", false, "download files that already exist")
	f.BoolVar(&resetHistory, "reset-history", false, "forget videos downloaded by earlier runs")
	f.BoolVar(&useTUI, "tui", false, "use the interactive terminal UI")

	ff := fetchCmd.Flags()
	ff.StringP("output", "o", "", "output directory (default douyin_videos)")
	ff.String("cookies", "", "cookie file exported from the browser")
	ff.StringP("session", "s", "", "use a stored cookie session")
	ff.Int("workers", 1, "number of parallel downloads")
	ff.Duration("delay", 0, "minimum pause between downloads")
	ff.Int("limit", 0, "stop after this many videos")
	ff.Bool("overwrite", false, "download files that already exist")
	ff.IntVar(&maxPages, "pages", 1, "number of list pages to follow")
}

func runScrape(cmd *cobra.Command, args []string) error {
	flags := changedFlags(cmd.Flags())
	if len(args) > 0 {
		flags["profile"] = args[0]
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if useTUI && cfg.Logging.File == "" {
		// Console logs would draw over the full-screen view.
		cfg.Logging.Level = "error"
		if err := logger.Initialize(&cfg.Logging); err != nil {
			return err
		}
	}

	s, err := newScraper(cfg)
	if err != nil {
		return err
	}
	s.SetResetHistory(resetHistory)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.WithFields(map[string]interface{}{
		"profile": cfg.Profile.URL,
		"mode":    cfg.Scrape.Mode,
		"version": version,
	}).Info("Starting scrape")

	var summary *models.RunSummary
	if useTUI {
		summary, err = runWithTUI(ctx, stop, s, cfg)
	} else {
		ui.PrintHighlight("[INITIATING EXTRACTION SEQUENCE]")
		summary, err = s.Run(ctx, cfg.Profile.URL, cfg.Scrape.Mode)
	}
	return finishRun(summary, err)
}

// runWithTUI runs the scraper while the full-screen view owns the
// terminal. Quitting the view cancels the run.
func runWithTUI(ctx context.Context, cancel context.CancelFunc, s *scraper.Scraper, cfg *config.Config) (*models.RunSummary, error) {
	profile := douyin.ProfileKey(cfg.Profile.URL)
	terminal := tui.NewTUI(profile)
	s.SetTUI(terminal)

	type outcome struct {
		summary *models.RunSummary
		err     error
	}
	scraperDone := make(chan outcome, 1)
	go func() {
		summary, err := s.Run(ctx, cfg.Profile.URL, cfg.Scrape.Mode)
		scraperDone <- outcome{summary, err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- terminal.Start()
	}()

	select {
	case res := <-scraperDone:
		terminal.Stop()
		<-tuiDone
		return res.summary, res.err
	case err := <-tuiDone:
		cancel()
		res := <-scraperDone
		if err != nil {
			logger.WithError(err).Error("Terminal UI failed")
		}
		return res.summary, res.err
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	flags := changedFlags(cmd.Flags())
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	s, err := newScraper(cfg)
	if err != nil {
		return err
	}
	s.SetMaxPages(maxPages)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := s.FetchDirect(ctx, args[0], cfg.Output.BaseDirectory)
	return finishRun(summary, err)
}

// newScraper builds a scraper and wires the stored sessions when one is
// requested.
func newScraper(cfg *config.Config) (*scraper.Scraper, error) {
	s, err := scraper.New(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Cookies.Session != "" {
		mgr, err := auth.NewManager()
		if err != nil {
			return nil, err
		}
		s.SetSessionSource(mgr.Cookies)
	}
	return s, nil
}

// finishRun prints the summary line after the TUI is gone and maps the
// outcome to an exit status.
func finishRun(summary *models.RunSummary, err error) error {
	if summary != nil && useTUI {
		ui.PrintSummary(summary.Summary())
	}

	switch {
	case errors.Is(err, context.Canceled):
		ui.PrintWarning("Interrupted")
		return err
	case errors.Is(err, scraper.ErrNoCookies):
		ui.PrintError("No cookies found", "export them with 'dyscraper cookies guide' or pass --cookies")
		return errReported
	case err != nil:
		logger.WithError(err).Error("Extraction failed")
		return err
	case summary != nil && summary.AllFailed():
		ui.PrintError("EXTRACTION FAILED", "every download failed")
		return errReported
	}

	ui.PrintSuccess("[EXTRACTION COMPLETED]")
	return nil
}
