// Package douyin knows the platform's URLs, JSON shapes and page markup,
// and talks to it over plain HTTP.
package douyin

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"dyscraper/pkg/naming"
)

const (
	BaseURL = "https://www.douyin.com/"

	// LoginOverlayID is the id of the modal login panel shown to anonymous
	// visitors.
	LoginOverlayID = "douyin-login-new-id"
)

// LoginCloseSelectors are tried in order to dismiss the login panel.
var LoginCloseSelectors = []string{
	`rect[fill="url(#pattern0_3645_22461)"]`,
	`#douyin-login-new-id .dy-account-close`,
	`#douyin-login-new-id [aria-label="关闭"]`,
	`#douyin-login-new-id [aria-label="Close"]`,
}

// PopupCloseSelectors match close buttons of promotional popups.
var PopupCloseSelectors = []string{
	".close-btn",
	".modal-close",
	`[data-testid="close"]`,
}

// CDNHosts serve video bytes.
var CDNHosts = []string{"zjcdn.com", "bytedance.com", "douyin.com", "douyinvod.com"}

// ErrNoSecUserID is returned for profile URLs without a /user/ segment.
var ErrNoSecUserID = errors.New("profile url has no /user/ segment")

var secUserIDPattern = regexp.MustCompile(`/user/([^?/#]+)`)

// ExtractSecUserID returns the opaque user id from a profile URL.
func ExtractSecUserID(profileURL string) (string, error) {
	m := secUserIDPattern.FindStringSubmatch(profileURL)
	if m == nil {
		return "", ErrNoSecUserID
	}
	return m[1], nil
}

// ProfileKey is a filesystem-safe key for a profile: the sec_user_id when
// present, otherwise a sanitised host and path.
func ProfileKey(profileURL string) string {
	if id, err := ExtractSecUserID(profileURL); err == nil {
		return naming.Sanitize(id, 120)
	}
	u, err := url.Parse(profileURL)
	if err != nil || u.Host == "" {
		return naming.Sanitize(strings.ReplaceAll(profileURL, "/", "_"), 80)
	}
	return naming.Sanitize(strings.Trim(u.Host+"_"+strings.ReplaceAll(strings.Trim(u.Path, "/"), "/", "_"), "_"), 80)
}

// IsAwemeAPI matches XHR responses that may carry an aweme list.
func IsAwemeAPI(rawURL string) bool {
	return strings.Contains(rawURL, "aweme")
}

// IsPageVideo matches responses seen on a single video page that look like
// media.
func IsPageVideo(rawURL string) bool {
	return strings.Contains(rawURL, "video")
}

// IsHoverVideo matches preview requests fired while hovering a list item:
// a CDN host, and either a .mp4/.mov video path or an explicit mp4 mime
// marker in the query.
func IsHoverVideo(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if !isCDNHost(u.Hostname()) {
		return false
	}
	if strings.Contains(rawURL, "mime_type=video_mp4") {
		return true
	}
	if !strings.Contains(rawURL, "video") {
		return false
	}
	p := strings.ToLower(u.Path)
	full := strings.ToLower(rawURL)
	for _, ext := range []string{".mp4", ".mov"} {
		if strings.HasSuffix(p, ext) || strings.HasSuffix(full, ext) {
			return true
		}
	}
	return false
}

func isCDNHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range CDNHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// AbsoluteURL resolves href against the site root. Protocol-relative and
// absolute URLs are kept as they are.
func AbsoluteURL(href string) string {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	}
	return BaseURL + strings.TrimLeft(href, "/")
}
