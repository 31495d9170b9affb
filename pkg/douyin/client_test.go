package douyin

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dyscraper/pkg/cookies"
	errs "dyscraper/pkg/errors"
	"dyscraper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient("", 5*time.Second, logger.NewNopLogger())
}

func TestFetchAwemeListSendsSessionHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(awemeBody))
	}))
	defer srv.Close()

	c := newTestClient()
	c.SetCookies([]cookies.Cookie{{Name: "sessionid", Value: "abc"}, {Name: "ttwid", Value: "t"}})

	page, err := c.FetchAwemeList(context.Background(), srv.URL+"/aweme/v1/web/aweme/post/")
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)

	assert.Contains(t, got.Get("User-Agent"), "Chrome/138")
	assert.Equal(t, "https://www.douyin.com/", got.Get("Referer"))
	assert.Equal(t, "same-origin", got.Get("Sec-Fetch-Site"))
	assert.Equal(t, `"Windows"`, got.Get("Sec-Ch-Ua-Platform"))
	assert.Contains(t, got.Get("Cookie"), "sessionid=abc")
	assert.Contains(t, got.Get("Cookie"), "ttwid=t")
}

func TestFetchAwemeListErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/limited", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>verify</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient()
	ctx := context.Background()

	_, err := c.FetchAwemeList(ctx, srv.URL+"/limited")
	assert.True(t, errs.IsType(err, errs.ErrorTypeRateLimit))

	_, err = c.FetchAwemeList(ctx, srv.URL+"/empty")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))

	_, err = c.FetchAwemeList(ctx, srv.URL+"/html")
	assert.True(t, errs.IsType(err, errs.ErrorTypeParsing))
}

func TestDownloadStreamsWithProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 3*ChunkSize+17)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "https://www.douyin.com/", r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "video/mp4")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	var last int64
	calls := 0
	n, err := newTestClient().Download(context.Background(), srv.URL+"/a.mp4", &buf, func(written, total int64) {
		calls++
		assert.GreaterOrEqual(t, written, last)
		last = written
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
	assert.Equal(t, int64(len(payload)), last)
	assert.GreaterOrEqual(t, calls, 4)
}

func TestDownloadStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := newTestClient().Download(context.Background(), srv.URL, &buf, nil)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
	assert.Zero(t, n)
	assert.Zero(t, buf.Len())
}

func TestDownloadOutlivesTimeoutWhileDataFlows(t *testing.T) {
	chunk := bytes.Repeat([]byte("v"), 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 10; i++ {
			_, _ = w.Write(chunk)
			flusher.Flush()
			time.Sleep(50 * time.Millisecond)
		}
	}))
	defer srv.Close()

	// 10 chunks 50ms apart take ~500ms, well past the 200ms limit.
	client := NewClient("", 200*time.Millisecond, logger.NewNopLogger())
	var buf bytes.Buffer
	n, err := client.Download(context.Background(), srv.URL+"/long.mp4", &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10*len(chunk)), n)
}

func TestDownloadStalled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient("", 100*time.Millisecond, logger.NewNopLogger())
	n, err := client.Download(context.Background(), srv.URL+"/stuck.mp4", &bytes.Buffer{}, nil)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
	assert.Contains(t, err.Error(), "no data received")
	assert.Equal(t, int64(len("partial")), n)
}

func TestDownloadWithoutTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	client := NewClient("", 0, logger.NewNopLogger())
	var buf bytes.Buffer
	_, err := client.Download(context.Background(), srv.URL, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, "body", buf.String())
}

func TestDownloadCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient().Download(ctx, srv.URL, &bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/aweme/v1/web/query/user/"))
		if strings.Contains(r.Header.Get("Cookie"), "sessionid=") {
			_, _ = w.Write([]byte(`{"status_code":0,"user_uid":"98765"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status_code":0,"user_uid":""}`))
	}))
	defer srv.Close()

	c := newTestClient()
	c.SetBaseURL(srv.URL + "/")

	ok, _, err := c.CheckLogin(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	c.SetCookies([]cookies.Cookie{{Name: "sessionid", Value: "abc"}})
	ok, uid, err := c.CheckLogin(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "98765", uid)

	c.SetCookies(nil)
	ok, _, err = c.CheckLogin(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}
