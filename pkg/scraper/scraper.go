package scraper

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"dyscraper/internal/downloader"
	"dyscraper/pkg/browser"
	"dyscraper/pkg/checkpoint"
	"dyscraper/pkg/config"
	"dyscraper/pkg/cookies"
	"dyscraper/pkg/douyin"
	errs "dyscraper/pkg/errors"
	"dyscraper/pkg/logger"
	"dyscraper/pkg/metadata"
	"dyscraper/pkg/models"
	"dyscraper/pkg/naming"
	"dyscraper/pkg/ratelimit"
	"dyscraper/pkg/retry"
	"dyscraper/pkg/storage"
	"dyscraper/pkg/ui"
)

// Pointer position used to move off a list item after hovering it.
const (
	restX = 100
	restY = 100
)

// ErrNoCookies is returned when cookies are required but none were found.
var ErrNoCookies = errors.New("no cookies available")

// Scraper orchestrates harvesting and downloading the videos of a profile
type Scraper struct {
	config        *config.Config
	client        APIClient
	launch        Launcher
	sessions      SessionSource
	notifier      *ui.Notifier
	tui           ui.TUI
	logger        logger.Logger
	checkpointDir string
	resetHistory  bool
	maxPages      int
}

// New creates a Scraper that drives a real browser and the platform's
// HTTP endpoints.
func New(cfg *config.Config) (*Scraper, error) {
	log := logger.GetLogger()

	client := douyin.NewClient(cfg.Browser.UserAgent, cfg.Download.Timeout, log)
	client.SetChunkSize(cfg.Download.ChunkSize)

	opts := browser.OptionsFromConfig(cfg.Browser)
	launch := func(ctx context.Context) (Browser, error) {
		return browser.Launch(ctx, opts, log)
	}

	return NewWithDeps(cfg, client, launch, log), nil
}

// NewWithDeps creates a Scraper from explicit collaborators.
func NewWithDeps(cfg *config.Config, client APIClient, launch Launcher, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	desktop := cfg.Notifications.Enabled && strings.EqualFold(cfg.Notifications.NotificationType, "desktop")
	return &Scraper{
		config:   cfg,
		client:   client,
		launch:   launch,
		notifier: ui.NewNotifier(desktop),
		logger:   log.WithField("component", "scraper"),
		maxPages: 1,
	}
}

// SetTUI sets the terminal UI for the scraper
func (s *Scraper) SetTUI(t ui.TUI) {
	s.tui = t
}

// SetSessionSource lets Run load cookies from a named stored session.
func (s *Scraper) SetSessionSource(src SessionSource) {
	s.sessions = src
}

// SetCheckpointDir stores run history in dir instead of the user data
// directory.
func (s *Scraper) SetCheckpointDir(dir string) {
	s.checkpointDir = dir
}

// SetResetHistory makes the next run forget previously downloaded videos.
func (s *Scraper) SetResetHistory(reset bool) {
	s.resetHistory = reset
}

// SetMaxPages sets how many aweme list pages FetchDirect follows.
func (s *Scraper) SetMaxPages(n int) {
	if n > 0 {
		s.maxPages = n
	}
}

// run holds the state of one scrape.
type run struct {
	profile   string
	secUserID string
	mode      string
	started   time.Time

	browser   Browser
	start     browser.Mark
	store     *storage.Manager
	limiter   ratelimit.Limiter
	cpMgr     *checkpoint.Manager
	cp        *checkpoint.Checkpoint
	collector *metadata.Collector
	tracker   *ui.StatusTracker
	progress  *ui.ProgressDisplay
	queued    int

	summary models.RunSummary
	log     logger.Logger
}

// outputDir determines the output directory for a profile
func (s *Scraper) outputDir(profileKey string) string {
	if s.config.Output.CreateProfileFolders {
		return filepath.Join(s.config.Output.BaseDirectory, profileKey)
	}
	return s.config.Output.BaseDirectory
}

func (s *Scraper) newRun(profile, secUserID, mode, dir string) (*run, error) {
	store, err := storage.NewManager(dir, s.config.Output.OverwriteExisting)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeStorage, err, "failed to prepare output directory")
	}

	r := &run{
		profile:   profile,
		secUserID: secUserID,
		mode:      mode,
		started:   time.Now(),
		store:     store,
		limiter:   ratelimit.New(s.config.Download.Delay, s.config.RateLimit.RequestsPerMinute),
		collector: metadata.NewCollector(profile, secUserID, mode),
		tracker:   ui.NewStatusTracker(mode),
		summary:   models.RunSummary{Profile: profile, Mode: mode},
		log: s.logger.WithFields(map[string]interface{}{
			"profile": profile,
			"mode":    mode,
		}),
	}
	if s.tui == nil {
		debug := strings.EqualFold(s.config.Logging.Level, "debug")
		r.progress = ui.NewProgressDisplay(displayName(profile, secUserID), 0, debug)
	}
	return r, nil
}

func displayName(profile, secUserID string) string {
	if secUserID != "" {
		if len(secUserID) > 16 {
			return secUserID[:16] + "…"
		}
		return secUserID
	}
	return profile
}

// Run scrapes one profile with the given mode. Empty arguments fall back
// to the configured profile and mode. Per-video failures are counted in
// the summary; the error is reserved for failures that stop the run.
func (s *Scraper) Run(ctx context.Context, profileURL, mode string) (*models.RunSummary, error) {
	if profileURL == "" {
		profileURL = s.config.Profile.URL
	}
	if mode == "" {
		mode = s.config.Scrape.Mode
	}
	mode = strings.ToLower(mode)
	switch mode {
	case config.ModeAPI, config.ModePage, config.ModeHover:
	default:
		return nil, fmt.Errorf("unknown scrape mode %q", mode)
	}

	secUserID, err := douyin.ExtractSecUserID(profileURL)
	if err != nil {
		s.logger.WithField("profile", profileURL).Warn("Profile URL has no sec_user_id, using a path-derived key")
	}
	profileKey := douyin.ProfileKey(profileURL)

	s.say("Profile", profileURL)
	s.say("Mode", mode)

	cs, err := s.loadCookies()
	if err != nil {
		return nil, err
	}
	s.client.SetCookies(cs)

	r, err := s.newRun(profileURL, secUserID, mode, s.outputDir(profileKey))
	if err != nil {
		return nil, err
	}
	s.say("Output", r.store.GetOutputDir())

	if s.config.Output.HistoryEnabled {
		if err := s.openHistory(r, profileKey); err != nil {
			r.log.WithError(err).Warn("Run history unavailable, continuing without it")
		}
	}

	b, err := s.launch(ctx)
	if err != nil {
		s.notifyError("Browser failed to start", err)
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()
	r.browser = b

	runErr := s.scrape(ctx, r, cs)
	s.finish(r)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		s.notifyError("Scrape failed", runErr)
	}
	return &r.summary, runErr
}

// scrape loads the profile and runs the harvest strategy for r.mode.
func (s *Scraper) scrape(ctx context.Context, r *run, cs []cookies.Cookie) error {
	sc := s.config.Scrape

	if len(cs) > 0 {
		if err := r.browser.SetCookies(cs); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.WithError(err).Warn("Failed to apply cookies to the browser")
		}
	}

	// Aweme responses arrive while the profile loads.
	r.start = r.browser.Sniffer().Mark()

	s.phase(r, "loading", "opening profile page")
	if err := r.browser.Navigate(r.profile, s.config.Browser.NavigationWait); err != nil {
		return err
	}
	s.dismissOverlays(r)

	s.phase(r, "scrolling", fmt.Sprintf("%d passes", sc.ScrollCount))
	if err := r.browser.ScrollToBottom(sc.ScrollCount, sc.ScrollPause); err != nil {
		return err
	}

	s.phase(r, "harvesting", r.mode)
	switch r.mode {
	case config.ModeAPI:
		found, err := s.harvestAPI(ctx, r)
		if err != nil {
			return s.strategyError(r, err)
		}
		return s.downloadAll(ctx, r, found)

	case config.ModeHover:
		found, err := s.harvestHover(ctx, r)
		if err != nil && len(found) == 0 {
			return s.strategyError(r, err)
		}
		if dlErr := s.downloadAll(ctx, r, found); dlErr != nil {
			return dlErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil

	default:
		return s.strategyError(r, s.runPages(ctx, r))
	}
}

// strategyError turns harvest failures into a warning. Only cancellation
// and browser failures abort the run.
func (s *Scraper) strategyError(r *run, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errs.IsType(err, errs.ErrorTypeBrowser) {
		return err
	}
	r.log.WithError(err).Warn("Harvest ended without candidates")
	s.warn("No videos found: %v", err)
	return nil
}

func (s *Scraper) dismissOverlays(r *run) {
	found, closed, err := r.browser.DismissLoginOverlay()
	switch {
	case err != nil:
		r.log.WithError(err).Debug("Login overlay check failed")
	case found && !closed:
		s.warn("Login panel is shown and could not be closed")
	case closed:
		r.log.Debug("Login panel closed")
		if err := r.browser.Sleep(s.config.Scrape.OverlayPause); err != nil {
			r.log.WithError(err).Debug("Pause after closing login panel interrupted")
		}
	}
	if n := r.browser.DismissPopups(); n > 0 {
		r.log.WithField("count", n).Debug("Popups dismissed")
	}
}

// loadCookies reads cookies from the named session when one is configured,
// otherwise from the cookie file. A missing file is not an error.
func (s *Scraper) loadCookies() ([]cookies.Cookie, error) {
	var cs []cookies.Cookie
	cc := s.config.Cookies

	if cc.Session != "" && s.sessions != nil {
		loaded, err := s.sessions(cc.Session)
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeAuth, err, "failed to load session "+cc.Session)
		}
		cs = loaded
	} else if cc.File != "" {
		loaded, err := cookies.LoadFile(cc.File)
		switch {
		case errors.Is(err, cookies.ErrNotFound):
			s.logger.WithField("file", cc.File).Warn("Cookie file not found, continuing without login")
		case err != nil:
			return nil, errs.Wrap(errs.ErrorTypeAuth, err, "failed to load cookies from "+cc.File)
		default:
			cs = loaded
		}
	}

	if len(cs) == 0 {
		if cc.Require {
			return nil, ErrNoCookies
		}
		return nil, nil
	}

	report := cookies.Validate(cs, time.Now())
	if !report.OK() {
		s.logger.WarnWithFields("Cookies look incomplete", map[string]interface{}{
			"missing": report.MissingRequired,
			"expired": report.Expired,
		})
	}
	s.logger.WithField("count", len(cs)).Info("Cookies loaded")
	return cs, nil
}

// openHistory loads the per-profile checkpoint, clearing it first when
// requested.
func (s *Scraper) openHistory(r *run, profileKey string) error {
	var (
		mgr *checkpoint.Manager
		err error
	)
	if s.checkpointDir != "" {
		mgr, err = checkpoint.NewManagerInDir(s.checkpointDir, profileKey)
	} else {
		mgr, err = checkpoint.NewManager(profileKey)
	}
	if err != nil {
		return err
	}

	if s.resetHistory && mgr.Exists() {
		if err := mgr.Backup(); err != nil {
			r.log.WithError(err).Warn("Failed to back up run history")
		}
		if err := mgr.Delete(); err != nil {
			return err
		}
		s.say("History", "cleared")
	}

	cp, err := mgr.LoadOrCreate(r.profile, r.secUserID)
	if err != nil {
		return err
	}
	if err := mgr.StartRun(cp, r.collector.RunID(), r.mode); err != nil {
		return err
	}
	if len(cp.Seen) > 0 {
		s.say("History", fmt.Sprintf("%d videos downloaded in earlier runs", len(cp.Seen)))
	}
	r.cpMgr = mgr
	r.cp = cp
	return nil
}

// harvestAPI waits for an aweme list response captured while the profile
// loaded and scrolled, and turns it into candidates.
func (s *Scraper) harvestAPI(ctx context.Context, r *run) ([]models.Candidate, error) {
	sc := s.config.Scrape
	sniffer := r.browser.Sniffer()
	tried := make(map[uint64]bool)
	deadline := time.Now().Add(sc.APIListenTimeout)

	var empty *douyin.AwemePage
	for {
		for _, resp := range sniffer.Since(r.start) {
			if tried[resp.Seq] || !douyin.IsAwemeAPI(resp.URL) {
				continue
			}
			tried[resp.Seq] = true

			page := s.readAwemeList(ctx, r, resp)
			if page == nil {
				continue
			}
			if len(page.Items) == 0 {
				empty = page
				continue
			}
			r.log.WithFields(map[string]interface{}{
				"url":   resp.URL,
				"items": len(page.Items),
			}).Info("Aweme list captured")
			return s.awemeCandidates(r, page), nil
		}

		if s.tui != nil {
			s.tui.UpdateHarvest(r.mode, len(tried), 0, 0)
		}
		if !time.Now().Before(deadline) {
			break
		}
		if err := retry.Wait(ctx, sc.PollInterval); err != nil {
			return nil, err
		}
	}

	if empty != nil {
		return nil, nil
	}
	return nil, errs.New(errs.ErrorTypeExtraction,
		fmt.Sprintf("no aweme_list response within %s (%d aweme requests seen)", sc.APIListenTimeout, len(tried)))
}

// readAwemeList reads a captured response body. When the browser no longer
// has the body the URL is fetched again over HTTP.
func (s *Scraper) readAwemeList(ctx context.Context, r *run, resp browser.Response) *douyin.AwemePage {
	body, err := r.browser.ResponseBody(resp.RequestID)
	if err == nil {
		page, ok := douyin.ParseAwemeList(body)
		if !ok {
			r.log.WithField("url", resp.URL).Debug("Aweme response has no aweme_list")
			return nil
		}
		return page
	}

	r.log.WithError(err).WithField("url", resp.URL).Debug("Response body unavailable, fetching again")
	page, err := s.client.FetchAwemeList(ctx, resp.URL)
	if err != nil {
		r.log.WithError(err).WithField("url", resp.URL).Debug("Re-fetch failed")
		return nil
	}
	return page
}

func (s *Scraper) awemeCandidates(r *run, page *douyin.AwemePage) []models.Candidate {
	found, skipped := page.Candidates(s.config.Output.MaxNameLength)
	for _, a := range skipped {
		r.log.WithField("aweme_id", a.ID).Warn("Post has no playable address")
	}
	r.summary.Failed += len(skipped)
	r.tracker.AddFound(len(found))
	return found
}

// harvestHover hovers each list item of the profile and takes the first
// video preview request it triggers.
func (s *Scraper) harvestHover(ctx context.Context, r *run) ([]models.Candidate, error) {
	sc := s.config.Scrape
	b := r.browser
	sniffer := b.Sniffer()

	html, err := b.ContainerHTML(sc.ContainerXPath)
	if err != nil {
		return nil, err
	}
	items, err := douyin.ListItems(html)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse profile list")
	}
	count, err := b.ItemCount(sc.ContainerXPath)
	if err != nil {
		return nil, err
	}
	r.tracker.SetTotal(count)
	r.log.WithField("items", count).Info("Hovering profile items")

	seen := make(map[string]bool)
	var found []models.Candidate
	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			return found, ctx.Err()
		}
		if sc.Limit > 0 && len(found) >= sc.Limit {
			break
		}

		title := ""
		if i < len(items) {
			title = items[i].Title
		}
		c, ok := s.hoverItem(ctx, r, i, title, seen)
		if ok {
			found = append(found, c)
		}

		if err := b.MoveMouse(restX, restY); err != nil {
			r.log.WithError(err).Debug("Failed to move pointer away")
		}
		if err := b.Sleep(sc.HoverPause); err != nil {
			return found, err
		}

		n := 0
		if ok {
			n = 1
		}
		r.tracker.ItemScanned(n)
		s.harvestProgress(r)
	}
	return found, nil
}

func (s *Scraper) hoverItem(ctx context.Context, r *run, index int, title string, seen map[string]bool) (models.Candidate, bool) {
	sc := s.config.Scrape
	b := r.browser
	log := r.log.WithField("item", index+1)

	b.DismissPopups()
	mark := b.Sniffer().Mark()

	if err := b.HoverItem(sc.ContainerXPath, index, sc.HoverChildren, sc.HoverPause); err != nil {
		log.WithError(err).Warn("Hover failed")
		return models.Candidate{}, false
	}
	if err := b.Sleep(sc.HoverSettle); err != nil {
		return models.Candidate{}, false
	}

	resps, err := b.Sniffer().WaitFor(ctx, mark, douyin.IsHoverVideo, sc.PageSniffTimeout, sc.HoverPoll, true)
	if err != nil {
		return models.Candidate{}, false
	}
	for _, resp := range resps {
		if seen[resp.URL] {
			continue
		}
		seen[resp.URL] = true
		log.WithField("url", resp.URL).Debug("Preview video found")
		return models.Candidate{
			Title:    title,
			URL:      resp.URL,
			Index:    index + 1,
			Filename: naming.ForIndexed(index+1, title, s.config.Output.MaxNameLength),
			Source:   models.SourceHover,
		}, true
	}
	log.Debug("No video request while hovering")
	return models.Candidate{}, false
}

// runPages opens every video page linked from the profile, sniffs its
// media requests and downloads them page by page. With keep-largest on,
// only the biggest file of each page is kept.
func (s *Scraper) runPages(ctx context.Context, r *run) error {
	sc := s.config.Scrape

	html, err := r.browser.ContainerHTML(sc.ContainerXPath)
	if err != nil {
		return err
	}
	pages, err := douyin.ExtractVideoPageURLs(html)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse profile links")
	}
	if sc.Limit > 0 && len(pages) > sc.Limit {
		pages = pages[:sc.Limit]
	}
	if len(pages) == 0 {
		return errs.New(errs.ErrorTypeExtraction, "profile list has no video links")
	}
	r.tracker.SetTotal(len(pages))
	s.say("Video pages", fmt.Sprintf("%d", len(pages)))

	for i, pageURL := range pages {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		found := s.sniffVideoPage(ctx, r, i, pageURL)
		r.tracker.ItemScanned(len(found))
		s.harvestProgress(r)
		if len(found) == 0 {
			r.log.WithField("page", pageURL).Warn("No video resources on page")
			continue
		}

		results, err := s.download(ctx, r, found)
		if err != nil {
			return err
		}
		if s.config.Download.KeepLargestOnly {
			s.keepLargest(r, results)
		}
	}
	return nil
}

func (s *Scraper) sniffVideoPage(ctx context.Context, r *run, index int, pageURL string) []models.Candidate {
	sc := s.config.Scrape
	b := r.browser
	log := r.log.WithField("page", pageURL)

	mark := b.Sniffer().Mark()
	if err := b.Navigate(pageURL, s.config.Browser.NavigationWait); err != nil {
		log.WithError(err).Warn("Failed to open video page")
		return nil
	}
	resps, _ := b.Sniffer().WaitFor(ctx, mark, douyin.IsPageVideo, sc.PageSniffTimeout, sc.PollInterval, false)

	var urls []string
	seen := map[string]bool{pageURL: true}
	add := func(u string) {
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	for _, resp := range resps {
		if resp.Status >= 400 {
			continue
		}
		add(resp.URL)
	}
	if html, err := b.PageHTML(); err == nil {
		if srcs, err := douyin.VideoSources(html); err == nil {
			for _, u := range srcs {
				add(u)
			}
		}
	}

	found := make([]models.Candidate, 0, len(urls))
	for _, u := range urls {
		r.queued++
		found = append(found, models.Candidate{
			URL:      u,
			PageURL:  pageURL,
			Index:    index + 1,
			Filename: naming.FromURL(u, fmt.Sprintf("video_%d", r.queued)),
			Source:   models.SourcePage,
		})
	}
	log.WithField("found", len(found)).Debug("Video page sniffed")
	return found
}

// keepLargest deletes all but the biggest file downloaded from one page.
func (s *Scraper) keepLargest(r *run, results []downloader.Result) {
	var files []string
	for _, res := range results {
		if res.Success && !res.Skipped {
			files = append(files, res.Job.Candidate.Filename)
		}
	}
	if len(files) < 2 {
		return
	}

	kept, removed, err := r.store.KeepLargest(files)
	if err != nil {
		r.log.WithError(err).Warn("Failed to remove smaller files")
	}
	for _, name := range removed {
		r.collector.Remove(name)
	}
	r.summary.Removed += len(removed)
	r.log.WithFields(map[string]interface{}{
		"kept":    kept,
		"removed": len(removed),
	}).Info("Kept largest file of page")
}

// downloadAll records harvested candidates and downloads them.
func (s *Scraper) downloadAll(ctx context.Context, r *run, found []models.Candidate) error {
	if sc := s.config.Scrape; sc.Limit > 0 && len(found) > sc.Limit {
		found = found[:sc.Limit]
	}
	logger.LogHarvest(r.mode, r.profile, len(found))
	if len(found) == 0 {
		if r.summary.Failed == 0 {
			s.warn("No videos found")
		}
		return nil
	}
	if r.progress != nil {
		r.tracker.PrintDone()
	}
	_, err := s.download(ctx, r, found)
	return err
}

// download filters candidates against the run history, claims unique
// filenames and runs them through a worker pool.
func (s *Scraper) download(ctx context.Context, r *run, found []models.Candidate) ([]downloader.Result, error) {
	r.summary.Found += len(found)

	var jobs []models.Candidate
	for _, c := range found {
		if r.cp != nil && r.cp.IsSeen(c.Key()) {
			r.summary.Skipped++
			if r.progress != nil {
				r.progress.Skipped(c.Filename)
			}
			continue
		}
		c.Filename = r.store.Claim(c.Filename, c.Key())
		jobs = append(jobs, c)
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	pool := downloader.NewWorkerPool(ctx, s.config.Download.Workers, s.client, r.store, r.limiter, s.logger)
	pool.SetRetry(retry.FromSettings(s.config.Retry, s.logger))
	pool.SetMinSize(s.config.Download.MinFileSize)

	if s.tui != nil {
		names := make([]string, len(jobs))
		for i, c := range jobs {
			names[i] = c.Filename
		}
		s.tui.Queue(names)
		pool.SetReporter(s.tui)
		pool.SetPauser(s.tui)
	} else {
		r.progress.UpdateTotal(r.summary.Found - r.summary.Skipped)
		pool.SetReporter(r.progress)
	}

	results := pool.RunAll(jobs, func(res downloader.Result) {
		s.handleResult(r, res)
	})
	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, nil
}

// handleResult updates counters, history and metadata for one result.
// RunAll calls it from a single goroutine.
func (s *Scraper) handleResult(r *run, res downloader.Result) {
	c := res.Job.Candidate

	switch {
	case res.Skipped:
		r.summary.Skipped++
		if r.progress != nil {
			r.progress.Skipped(c.Filename)
		} else {
			s.tui.DownloadFinished(c.Filename, 0, nil)
		}
		logger.LogDownload(r.profile, c.ID, c.Filename, 0, nil)

	case res.Success:
		r.summary.Downloaded++
		r.summary.Bytes += res.Size
		r.collector.Add(metadata.FromCandidate(c, res.Size))
		if r.cpMgr != nil {
			if err := r.cpMgr.RecordDownload(r.cp, c.Key(), c.Filename); err != nil {
				r.log.WithError(err).Warn("Failed to record download in history")
			}
		}
		logger.LogDownload(r.profile, c.ID, c.Filename, res.Size, nil)

	default:
		r.summary.Failed++
		logger.LogDownload(r.profile, c.ID, c.Filename, 0, res.Err)
	}

	if done := r.summary.Downloaded + r.summary.Skipped + r.summary.Failed; done%10 == 0 {
		logger.LogScrapeProgress(r.profile, done, r.summary.Found)
	}
}

// finish writes metadata and history and prints the summary.
func (s *Scraper) finish(r *run) {
	r.summary.Duration = time.Since(r.started)

	if s.config.Output.WriteMetadata && r.collector.Len() > 0 {
		if err := r.collector.Write(r.store.GetOutputDir()); err != nil {
			r.log.WithError(err).Error("Failed to save metadata file")
		} else {
			r.log.Debug("Metadata saved to " + metadata.FileName)
		}
		// Entries merged from earlier runs may point at files deleted since.
		if n, err := metadata.PruneMissing(r.store.GetOutputDir()); err != nil {
			r.log.WithError(err).Warn("Failed to prune metadata")
		} else if n > 0 {
			r.log.WithField("removed", n).Debug("Pruned stale metadata entries")
		}
	}

	if r.cpMgr != nil && r.cp != nil {
		if err := r.cpMgr.Save(r.cp); err != nil {
			r.log.WithError(err).Warn("Failed to save run history")
		}
	}

	r.log.InfoWithFields("Scrape finished", map[string]interface{}{
		"found":      r.summary.Found,
		"downloaded": r.summary.Downloaded,
		"skipped":    r.summary.Skipped,
		"failed":     r.summary.Failed,
		"removed":    r.summary.Removed,
	})

	if s.tui != nil {
		if r.summary.AllFailed() {
			s.tui.LogError("%s", r.summary.Summary())
		} else {
			s.tui.LogSuccess("%s", r.summary.Summary())
		}
	} else {
		r.progress.Complete(r.summary)
	}

	if s.config.Notifications.Enabled && s.config.Notifications.OnComplete && !r.summary.AllFailed() {
		s.notifier.SendSuccess("dyscraper", r.summary.Summary())
	}
}

// FetchDirect downloads the videos listed by an aweme list endpoint
// without starting a browser.
func (s *Scraper) FetchDirect(ctx context.Context, apiURL, outputDir string) (*models.RunSummary, error) {
	if outputDir == "" {
		outputDir = s.config.Output.BaseDirectory
	}

	cs, err := s.loadCookies()
	if err != nil {
		return nil, err
	}
	s.client.SetCookies(cs)

	r, err := s.newRun(apiURL, "", string(models.SourceDirect), outputDir)
	if err != nil {
		return nil, err
	}
	s.say("API", apiURL)
	s.say("Output", r.store.GetOutputDir())

	retryCfg := retry.FromSettings(s.config.Retry, s.logger)
	var found []models.Candidate
	next := apiURL
	for page := 1; page <= s.maxPages && next != ""; page++ {
		url := next
		list, err := retry.DoWithResult(ctx, func(ctx context.Context) (*douyin.AwemePage, error) {
			return s.client.FetchAwemeList(ctx, url)
		}, retryCfg)
		if err != nil {
			if len(found) == 0 {
				s.notifyError("Fetch failed", err)
				return nil, fmt.Errorf("failed to fetch video list: %w", err)
			}
			r.log.WithError(err).Warn("Stopped paging")
			break
		}

		for _, c := range s.awemeCandidates(r, list) {
			c.Source = models.SourceDirect
			found = append(found, c)
		}

		next = ""
		if list.HasMore {
			if u, err := douyin.NextPageURL(apiURL, list.MaxCursor); err == nil {
				next = u
			}
		}
	}

	err = s.downloadAll(ctx, r, found)
	s.finish(r)
	return &r.summary, err
}

func (s *Scraper) harvestProgress(r *run) {
	if s.tui != nil {
		s.tui.UpdateHarvest(r.mode, r.tracker.Scanned, r.tracker.TotalItems, r.tracker.GetFoundCount())
		return
	}
	r.tracker.PrintProgress()
}

func (s *Scraper) phase(r *run, name, detail string) {
	r.log.WithField("phase", name).Debug(detail)
	if s.tui != nil {
		s.tui.LogInfo("%s: %s", name, detail)
		return
	}
	r.progress.Phase(name, detail)
}

func (s *Scraper) say(label, value string) {
	if s.tui != nil {
		s.tui.LogInfo("%s: %s", label, value)
		return
	}
	ui.PrintInfo(label, value)
}

func (s *Scraper) warn(format string, args ...interface{}) {
	if s.tui != nil {
		s.tui.LogWarning(format, args...)
		return
	}
	ui.PrintWarning(fmt.Sprintf(format, args...))
}

func (s *Scraper) notifyError(title string, err error) {
	if s.config.Notifications.Enabled && s.config.Notifications.OnError {
		s.notifier.SendError(title, err.Error())
	}
}
