package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Source says how a candidate was discovered.
type Source string

const (
	SourceAPI    Source = "api"
	SourcePage   Source = "page"
	SourceHover  Source = "hover"
	SourceDirect Source = "direct"
)

// Candidate is a URL that may point at a playable video.
type Candidate struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	URL      string `json:"url"`
	PageURL  string `json:"page_url,omitempty"`
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Source   Source `json:"source"`

	// Known only for API results.
	Author     string    `json:"author,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}

// volatileParams are query parameters that change between requests for
// the same video (expiring signatures, trace ids).
var volatileParams = map[string]bool{
	"expires":     true,
	"x-expires":   true,
	"x-signature": true,
	"signature":   true,
	"sig":         true,
	"policy":      true,
	"l":           true,
	"logid":       true,
	"dy_q":        true,
	"ft":          true,
	"btag":        true,
}

// Key identifies a candidate across runs: the aweme id when known,
// otherwise the URL with volatile query parameters dropped. Parameters
// such as video_id stay part of the key.
func (c Candidate) Key() string {
	if c.ID != "" && c.ID != "unknown" {
		return "id:" + c.ID
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return "url:" + c.URL
	}
	q := u.Query()
	for k := range q {
		if volatileParams[strings.ToLower(k)] {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	return "url:" + u.String()
}

// DownloadedFile is a candidate that landed on disk.
type DownloadedFile struct {
	Candidate Candidate
	Path      string
	Size      int64
	Duration  time.Duration
}

// RunSummary counts the outcome of one scrape.
type RunSummary struct {
	Profile    string
	Mode       string
	Found      int
	Downloaded int
	Skipped    int
	Failed     int
	Removed    int
	Bytes      int64
	Duration   time.Duration
}

// Attempted is the number of candidates that went through the downloader.
func (s RunSummary) Attempted() int {
	return s.Downloaded + s.Failed
}

// Summary renders the final status line.
func (s RunSummary) Summary() string {
	line := fmt.Sprintf("Success: %d/%d", s.Downloaded, s.Attempted())
	if s.Skipped > 0 {
		line += fmt.Sprintf(", skipped %d", s.Skipped)
	}
	if s.Removed > 0 {
		line += fmt.Sprintf(", removed %d smaller renditions", s.Removed)
	}
	return line
}

// AllFailed reports whether something was attempted and nothing succeeded.
func (s RunSummary) AllFailed() bool {
	return s.Attempted() > 0 && s.Downloaded == 0
}
