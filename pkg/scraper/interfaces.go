package scraper

import (
	"context"
	"io"
	"time"

	"dyscraper/pkg/browser"
	"dyscraper/pkg/cookies"
	"dyscraper/pkg/douyin"

	"github.com/chromedp/cdproto/network"
)

// Browser is the part of a browser session the scraper drives.
type Browser interface {
	Navigate(url string, settle time.Duration) error
	Sleep(d time.Duration) error
	SetCookies(cs []cookies.Cookie) error
	DismissLoginOverlay() (found, closed bool, err error)
	DismissPopups() int
	ScrollToBottom(times int, pause time.Duration) error
	ContainerHTML(xpath string) (string, error)
	ItemCount(xpath string) (int, error)
	HoverItem(xpath string, index, children int, pause time.Duration) error
	MoveMouse(x, y float64) error
	PageHTML() (string, error)
	ResponseBody(id network.RequestID) ([]byte, error)
	Sniffer() *browser.Sniffer
	Close()
}

// Launcher starts a browser.
type Launcher func(ctx context.Context) (Browser, error)

// APIClient talks to the platform over plain HTTP.
type APIClient interface {
	SetCookies(cs []cookies.Cookie)
	FetchAwemeList(ctx context.Context, apiURL string) (*douyin.AwemePage, error)
	Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) (int64, error)
}

// SessionSource returns the cookies of a stored session by name.
type SessionSource func(name string) ([]cookies.Cookie, error)

var (
	_ Browser   = (*browser.Session)(nil)
	_ APIClient = (*douyin.Client)(nil)
)
