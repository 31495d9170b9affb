package browser

import (
	"context"
	"sync"
	"time"

	"dyscraper/pkg/logger"

	"github.com/chromedp/cdproto/network"
)

// Response is one network response seen by the page.
type Response struct {
	Seq       uint64
	URL       string
	Status    int64
	MIME      string
	RequestID network.RequestID
	At        time.Time
}

// Mark is a position in the sniffer's history.
type Mark uint64

// Sniffer records network responses in arrival order. It is safe for use
// from the chromedp event goroutine and callers at the same time.
type Sniffer struct {
	mu     sync.Mutex
	seq    uint64
	events []Response
	now    func() time.Time
}

// NewSniffer creates an empty sniffer.
func NewSniffer() *Sniffer {
	return &Sniffer{now: time.Now}
}

// handle is installed with chromedp.ListenTarget.
func (s *Sniffer) handle(ev interface{}) {
	e, ok := ev.(*network.EventResponseReceived)
	if !ok || e.Response == nil {
		return
	}
	s.Record(e.RequestID, e.Response.URL, e.Response.Status, e.Response.MimeType)
}

// Record appends a response. The CDP listener calls it for every
// response the page receives.
func (s *Sniffer) Record(id network.RequestID, url string, status int64, mime string) {
	s.mu.Lock()
	s.seq++
	s.events = append(s.events, Response{
		Seq:       s.seq,
		URL:       url,
		Status:    status,
		MIME:      mime,
		RequestID: id,
		At:        s.now(),
	})
	s.mu.Unlock()
	logger.LogSniffed(url, status, mime)
}

// Mark returns the current position. Responses recorded later are
// returned by Since.
func (s *Sniffer) Mark() Mark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Mark(s.seq)
}

// Since returns the responses recorded after m, oldest first.
func (s *Sniffer) Since(m Mark) []Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Response
	for _, r := range s.events {
		if r.Seq > uint64(m) {
			out = append(out, r)
		}
	}
	return out
}

// All returns every stored response.
func (s *Sniffer) All() []Response {
	return s.Since(0)
}

// Clear drops stored responses. Marks taken before Clear stay valid.
func (s *Sniffer) Clear() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

// Len reports how many responses are stored.
func (s *Sniffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// WaitFor polls for responses after m whose URL satisfies match. With
// stopOnFirst it returns as soon as a poll finds any; otherwise it keeps
// collecting until timeout. Cancellation returns what was found so far
// along with ctx.Err().
func (s *Sniffer) WaitFor(ctx context.Context, m Mark, match func(url string) bool, timeout, poll time.Duration, stopOnFirst bool) ([]Response, error) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	collect := func() []Response {
		var out []Response
		for _, r := range s.Since(m) {
			if match(r.URL) {
				out = append(out, r)
			}
		}
		return out
	}

	for {
		if found := collect(); stopOnFirst && len(found) > 0 {
			return found, nil
		}
		select {
		case <-ctx.Done():
			return collect(), ctx.Err()
		case <-deadline.C:
			return collect(), nil
		case <-ticker.C:
		}
	}
}
