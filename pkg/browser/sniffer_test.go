package browser

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseEvent(id, url string) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		RequestID: network.RequestID(id),
		Response:  &network.Response{URL: url, Status: 200, MimeType: "application/json"},
	}
}

func TestSnifferRecordsInOrder(t *testing.T) {
	s := NewSniffer()
	s.handle(responseEvent("1", "https://a.test/one"))
	s.handle(&network.EventRequestWillBeSent{})
	s.handle(&network.EventResponseReceived{RequestID: "x"})
	s.handle(responseEvent("2", "https://a.test/two"))

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "https://a.test/one", all[0].URL)
	assert.Equal(t, network.RequestID("2"), all[1].RequestID)
	assert.Equal(t, int64(200), all[1].Status)
	assert.Equal(t, "application/json", all[1].MIME)
}

func TestSnifferMarkAndClear(t *testing.T) {
	s := NewSniffer()
	s.handle(responseEvent("1", "https://a.test/old"))
	m := s.Mark()
	s.handle(responseEvent("2", "https://a.test/new"))

	since := s.Since(m)
	require.Len(t, since, 1)
	assert.Equal(t, "https://a.test/new", since[0].URL)

	s.Clear()
	assert.Zero(t, s.Len())
	s.handle(responseEvent("3", "https://a.test/after"))
	since = s.Since(m)
	require.Len(t, since, 1)
	assert.Equal(t, "https://a.test/after", since[0].URL)
}

func TestWaitForStopsOnFirstMatch(t *testing.T) {
	s := NewSniffer()
	m := s.Mark()
	go func() {
		time.Sleep(30 * time.Millisecond)
		s.handle(responseEvent("1", "https://a.test/style.css"))
		s.handle(responseEvent("2", "https://a.test/video.mp4"))
	}()

	start := time.Now()
	got, err := s.WaitFor(context.Background(), m, func(u string) bool {
		return strings.HasSuffix(u, ".mp4")
	}, 2*time.Second, 10*time.Millisecond, true)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.test/video.mp4", got[0].URL)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForCollectsUntilTimeout(t *testing.T) {
	s := NewSniffer()
	m := s.Mark()
	s.handle(responseEvent("1", "https://a.test/video/1"))
	s.handle(responseEvent("2", "https://a.test/video/2"))

	got, err := s.WaitFor(context.Background(), m, func(u string) bool {
		return strings.Contains(u, "video")
	}, 50*time.Millisecond, 10*time.Millisecond, false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestWaitForCancelled(t *testing.T) {
	s := NewSniffer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := s.WaitFor(ctx, s.Mark(), func(string) bool { return true }, time.Second, 10*time.Millisecond, true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, got)
}
