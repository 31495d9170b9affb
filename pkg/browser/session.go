package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"dyscraper/pkg/cookies"
	"dyscraper/pkg/douyin"
	errs "dyscraper/pkg/errors"
	"dyscraper/pkg/logger"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ErrContainerNotFound is returned when the list container XPath matches
// nothing.
var ErrContainerNotFound = errors.New("video list container not found")

// Session is a running Chrome with one tab.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	tmpDir      string
	opts        Options
	sniffer     *Sniffer
	dialogs     *dialogDismisser
	logger      logger.Logger
	closeOnce   sync.Once
}

// Launch starts Chrome, enables the network domain and starts recording
// responses. JavaScript dialogs are dismissed as they open. The browser lives until Close is called or ctx is cancelled.
func Launch(ctx context.Context, opts Options, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "browser")

	var tmpDir string
	if opts.UserDataDir == "" {
		dir, err := os.MkdirTemp("", "dyscraper-chrome-")
		if err != nil {
			return nil, errs.Wrap(errs.ErrorTypeBrowser, err, "failed to create user data dir")
		}
		tmpDir = dir
		opts.UserDataDir = dir
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, BuildAllocatorOptions(opts)...)
	debugf := func(format string, args ...interface{}) {
		log.Debug(fmt.Sprintf(format, args...))
	}
	browserCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(debugf),
		chromedp.WithErrorf(debugf),
	)

	s := &Session{
		ctx:         browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
		tmpDir:      tmpDir,
		opts:        opts,
		sniffer:     NewSniffer(),
		logger:      log,
	}
	s.dialogs = newDialogDismisser(browserCtx, log)
	chromedp.ListenTarget(browserCtx, s.sniffer.handle)
	chromedp.ListenTarget(browserCtx, s.dialogs.handle)

	// The first Run starts the browser and must use the browser context
	// itself, so the launch timeout is enforced from outside.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(browserCtx, network.Enable())
	}()

	timeout := opts.LaunchTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case err := <-started:
		if err != nil {
			s.Close()
			return nil, errs.Wrap(errs.ErrorTypeBrowser, err, "failed to start chrome")
		}
	case <-time.After(timeout):
		s.Close()
		return nil, errs.New(errs.ErrorTypeBrowser, fmt.Sprintf("chrome did not start within %s", timeout))
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}

	log.InfoWithFields("Browser started", map[string]interface{}{
		"headless":   opts.Headless,
		"debug_port": opts.DebugPort,
	})
	return s, nil
}

// Sniffer returns the response recorder attached to the tab.
func (s *Session) Sniffer() *Sniffer {
	return s.sniffer
}

// Close shuts the browser down and removes the temporary profile.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.allocCancel()
		if s.dialogs != nil && s.dialogs.Dismissed() > 0 {
			s.logger.WithField("dialogs", s.dialogs.Dismissed()).Debug("page dialogs dismissed")
		}
		if s.tmpDir != "" {
			if err := os.RemoveAll(s.tmpDir); err != nil {
				s.logger.WithError(err).Warn("failed to remove chrome profile dir")
			}
		}
		logger.LogComponentStop("browser", "closed")
	})
}

func (s *Session) run(actions ...chromedp.Action) error {
	if err := chromedp.Run(s.ctx, actions...); err != nil {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeBrowser, err, "browser action failed")
	}
	return nil
}

// Navigate loads url, waits for the body and then sleeps for settle.
func (s *Session) Navigate(url string, settle time.Duration) error {
	s.logger.DebugWithFields("navigating", map[string]interface{}{"url": url})

	ctx := s.ctx
	if s.opts.NavigateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, s.opts.NavigateTimeout)
		defer cancel()
	}
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		return errs.Wrap(errs.ErrorTypeBrowser, err, "navigation to "+url+" failed")
	}
	return s.Sleep(settle)
}

// Sleep pauses inside the browser context so that cancellation ends it.
func (s *Session) Sleep(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return s.run(chromedp.Sleep(d))
}

// SetCookies installs cookies for the site. The tab visits the site root
// first so the cookies land on the right origin.
func (s *Session) SetCookies(cs []cookies.Cookie) error {
	if len(cs) == 0 {
		return nil
	}
	if err := s.Navigate(douyin.BaseURL, time.Second); err != nil {
		return err
	}

	params := make([]*network.CookieParam, 0, len(cs))
	for _, c := range cs {
		p := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if p.Domain == "" {
			p.Domain = cookies.DefaultDomain
		}
		if p.Path == "" {
			p.Path = cookies.DefaultPath
		}
		if !c.Expires.IsZero() {
			t := cdp.TimeSinceEpoch(c.Expires)
			p.Expires = &t
		}
		params = append(params, p)
	}

	if err := s.run(network.SetCookies(params)); err != nil {
		return err
	}
	s.logger.InfoWithFields("Cookies applied to browser", map[string]interface{}{"count": len(params)})
	return nil
}

// clickFirst clicks the first node matching sel, if any. It reports
// whether a click was dispatched.
func (s *Session) clickFirst(sel string) bool {
	var nodes []*cdp.Node
	if err := s.run(chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil || len(nodes) == 0 {
		return false
	}
	return s.run(chromedp.MouseClickNode(nodes[0])) == nil
}

// DismissLoginOverlay closes the login panel when it is shown.
func (s *Session) DismissLoginOverlay() (found, closed bool, err error) {
	if err := s.run(chromedp.Evaluate(elementPresentScript(douyin.LoginOverlayID), &found)); err != nil {
		return false, false, err
	}
	if !found {
		return false, false, nil
	}
	for _, sel := range douyin.LoginCloseSelectors {
		if s.clickFirst(sel) {
			s.logger.DebugWithFields("login overlay closed", map[string]interface{}{"selector": sel})
			return true, true, nil
		}
	}
	s.logger.Warn("Login overlay present but no close control matched")
	return true, false, nil
}

// DismissPopups clicks every visible popup close button and returns how
// many clicks succeeded.
func (s *Session) DismissPopups() int {
	clicked := 0
	for _, sel := range douyin.PopupCloseSelectors {
		var nodes []*cdp.Node
		if err := s.run(chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
			continue
		}
		for _, n := range nodes {
			// Hidden nodes have no box model, so the click fails.
			if s.run(chromedp.MouseClickNode(n)) == nil {
				clicked++
			}
		}
	}
	if clicked > 0 {
		s.logger.DebugWithFields("popups dismissed", map[string]interface{}{"count": clicked})
	}
	return clicked
}

// ScrollToBottom scrolls to the end of the page times times, pausing after
// each scroll so more items can load.
func (s *Session) ScrollToBottom(times int, pause time.Duration) error {
	for i := 0; i < times; i++ {
		if err := s.run(chromedp.Evaluate(scrollToBottomScript, nil)); err != nil {
			return err
		}
		if err := s.Sleep(pause); err != nil {
			return err
		}
		s.logger.DebugWithFields("scrolled", map[string]interface{}{"pass": i + 1, "of": times})
	}
	return nil
}

// ContainerHTML returns the outer HTML of the node at xpath.
func (s *Session) ContainerHTML(xpath string) (string, error) {
	var html string
	if err := s.run(chromedp.Evaluate(containerHTMLScript(xpath), &html)); err != nil {
		return "", err
	}
	if html == "" {
		return "", ErrContainerNotFound
	}
	return html, nil
}

// ItemCount returns the number of top-level list items in the container.
func (s *Session) ItemCount(xpath string) (int, error) {
	var n int
	if err := s.run(chromedp.Evaluate(itemCountScript(xpath), &n)); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrContainerNotFound
	}
	return n, nil
}

// HoverItem scrolls item index (0-based) into view and moves the mouse
// over its first children descendants, pausing after each.
func (s *Session) HoverItem(xpath string, index, children int, pause time.Duration) error {
	var pts []point
	if err := s.run(chromedp.Evaluate(hoverPointsScript(xpath, index, children), &pts)); err != nil {
		return err
	}
	if len(pts) == 0 {
		return fmt.Errorf("list item %d not found", index)
	}
	for _, p := range pts {
		if err := s.MoveMouse(p.X, p.Y); err != nil {
			return err
		}
		if err := s.Sleep(pause); err != nil {
			return err
		}
	}
	return nil
}

// MoveMouse moves the pointer to the given viewport coordinates.
func (s *Session) MoveMouse(x, y float64) error {
	return s.run(chromedp.MouseEvent(input.MouseMoved, x, y))
}

// PageHTML returns the current document's markup.
func (s *Session) PageHTML() (string, error) {
	var html string
	if err := s.run(chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// ResponseBody fetches the body of a recorded response. Bodies of
// responses from earlier documents may no longer be available.
func (s *Session) ResponseBody(id network.RequestID) ([]byte, error) {
	var body []byte
	err := s.run(chromedp.ActionFunc(func(ctx context.Context) error {
		b, err := network.GetResponseBody(id).Do(ctx)
		body = b
		return err
	}))
	return body, err
}
