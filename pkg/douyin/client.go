package douyin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"dyscraper/pkg/config"
	"dyscraper/pkg/cookies"
	errs "dyscraper/pkg/errors"
	"dyscraper/pkg/logger"

	"github.com/imroc/req/v3"
	"github.com/tidwall/gjson"
)

// ChunkSize is the read size used while streaming a video body.
const ChunkSize = 8192

// userInfoPath answers with the logged-in user's uid, or an empty uid for
// anonymous sessions.
const userInfoPath = "aweme/v1/web/query/user/"

// Client fetches aweme lists and video bytes over HTTP with the same
// identity the browser uses.
type Client struct {
	http      *req.Client
	baseURL   string
	chunkSize int
	timeout   time.Duration
	logger    logger.Logger
}

// DefaultHeaders mirrors what Chrome sends for a same-origin XHR.
func DefaultHeaders(userAgent string) map[string]string {
	if userAgent == "" {
		userAgent = config.DefaultUserAgent
	}
	return map[string]string{
		"User-Agent":         userAgent,
		"Accept":             "application/json, text/plain, */*",
		"Accept-Language":    "zh-TW,zh;q=0.9,en;q=0.8",
		"Referer":            BaseURL,
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-origin",
		"sec-ch-ua":          `"Not_A Brand";v="8", "Chromium";v="138", "Google Chrome";v="138"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Windows"`,
	}
}

// NewClient creates a client. timeout bounds API requests as a whole, but
// for downloads it only bounds the wait for response headers and for each
// chunk of the body, so long videos can stream for as long as data keeps
// arriving. A zero timeout means no timeout.
func NewClient(userAgent string, timeout time.Duration, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	headers := DefaultHeaders(userAgent)
	c := req.C().
		SetCommonHeaders(headers).
		SetUserAgent(headers["User-Agent"])
	if timeout > 0 {
		c.GetTransport().SetResponseHeaderTimeout(timeout)
	}
	return &Client{
		http:      c,
		baseURL:   BaseURL,
		chunkSize: ChunkSize,
		timeout:   timeout,
		logger:    log.WithField("component", "douyin_client"),
	}
}

// SetBaseURL points the client at another origin. Used in tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// SetChunkSize changes the streaming read size. Non-positive values are
// ignored.
func (c *Client) SetChunkSize(n int) {
	if n > 0 {
		c.chunkSize = n
	}
}

// SetCookies replaces the cookies sent with every request. An empty slice
// clears them.
func (c *Client) SetCookies(cs []cookies.Cookie) {
	if len(cs) == 0 {
		c.http.Headers.Del("Cookie")
		return
	}
	c.http.SetCommonHeader("Cookie", cookies.Header(cs))
	c.logger.DebugWithFields("cookies applied to http client", map[string]interface{}{
		"count": len(cs),
	})
}

func (c *Client) get(ctx context.Context, url string) ([]byte, int, error) {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.http.R().SetContext(reqCtx).Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}
	logger.LogRequest(http.MethodGet, url, resp.StatusCode, time.Since(start))
	return resp.Bytes(), resp.StatusCode, nil
}

// FetchAwemeList requests apiURL and decodes the aweme list it returns.
func (c *Client) FetchAwemeList(ctx context.Context, apiURL string) (*AwemePage, error) {
	body, status, err := c.get(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, errs.FromStatus(status, apiURL)
	}
	if len(body) == 0 {
		return nil, errs.New(errs.ErrorTypeParsing, "empty response body")
	}

	page, ok := ParseAwemeList(body)
	if !ok {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("response carries no aweme_list", map[string]interface{}{
			"url":          apiURL,
			"body_preview": preview,
		})
		return nil, errs.New(errs.ErrorTypeParsing, "response has no aweme_list")
	}

	c.logger.DebugWithFields("aweme list fetched", map[string]interface{}{
		"items":    len(page.Items),
		"has_more": page.HasMore,
	})
	return page, nil
}

// Download streams url into w and returns the number of bytes written.
// progress, when set, is called after every chunk; total is -1 when the
// server sends no length. The transfer is aborted when no data arrives
// for the client timeout.
func (c *Client) Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) (int64, error) {
	dlCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stalled atomic.Bool
	var watchdog *time.Timer
	if c.timeout > 0 {
		watchdog = time.AfterFunc(c.timeout, func() {
			stalled.Store(true)
			cancel()
		})
		defer watchdog.Stop()
	}
	stallErr := func(err error) error {
		return errs.Wrap(errs.ErrorTypeNetwork, err, fmt.Sprintf("no data received for %s", c.timeout))
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(dlCtx).
		DisableAutoReadResponse().
		Get(url)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if stalled.Load() {
			return 0, stallErr(err)
		}
		return 0, errs.Wrap(errs.ErrorTypeNetwork, err, "download request failed")
	}
	defer resp.Body.Close()
	logger.LogRequest(http.MethodGet, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return 0, errs.FromStatus(resp.StatusCode, url)
	}

	total := resp.ContentLength
	buf := make([]byte, c.chunkSize)
	var written int64
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, errs.Wrap(errs.ErrorTypeStorage, werr, "write failed")
			}
			written += int64(n)
			if watchdog != nil {
				watchdog.Reset(c.timeout)
			}
			if progress != nil {
				progress(written, total)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return written, ctx.Err()
			}
			if stalled.Load() {
				return written, stallErr(rerr)
			}
			return written, errs.Wrap(errs.ErrorTypeNetwork, rerr, "reading body")
		}
	}
	return written, nil
}

// CheckLogin reports whether the current cookies belong to a logged-in
// session, and the uid when they do.
func (c *Client) CheckLogin(ctx context.Context) (bool, string, error) {
	u := c.baseURL + userInfoPath
	body, status, err := c.get(ctx, u)
	if err != nil {
		return false, "", err
	}
	if status != http.StatusOK {
		return false, "", errs.FromStatus(status, u)
	}
	if !gjson.ValidBytes(body) {
		return false, "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("non-json reply from %s", u))
	}

	uid := gjson.GetBytes(body, "user_uid").String()
	code := gjson.GetBytes(body, "status_code").Int()
	return code == 0 && uid != "" && uid != "0", uid, nil
}
