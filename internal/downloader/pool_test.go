package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	errs "dyscraper/pkg/errors"
	"dyscraper/pkg/logger"
	"dyscraper/pkg/models"
	"dyscraper/pkg/ratelimit"
	"dyscraper/pkg/retry"
	"dyscraper/pkg/storage"
)

// MockClient streams a fixed body, optionally failing the first calls.
type MockClient struct {
	downloadDelay   time.Duration
	downloadError   error
	failFirst       int32
	body            []byte
	downloadCounter int32
}

func (m *MockClient) Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) (int64, error) {
	n := atomic.AddInt32(&m.downloadCounter, 1)
	if m.downloadDelay > 0 {
		select {
		case <-time.After(m.downloadDelay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if m.downloadError != nil {
		return 0, m.downloadError
	}
	if n <= m.failFirst {
		return 0, errs.New(errs.ErrorTypeNetwork, "connection reset")
	}
	body := m.body
	if body == nil {
		body = []byte("mock video data")
	}
	written, err := w.Write(body)
	if progress != nil {
		progress(int64(written), int64(len(body)))
	}
	return int64(written), err
}

func (m *MockClient) GetDownloadCount() int {
	return int(atomic.LoadInt32(&m.downloadCounter))
}

// MockStorage keeps files in memory.
type MockStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMockStorage() *MockStorage {
	return &MockStorage{files: make(map[string][]byte)}
}

func (m *MockStorage) IsDownloaded(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[filename]
	return ok
}

func (m *MockStorage) SaveStream(filename string, write func(w io.Writer) (int64, error)) (int64, error) {
	var buf bytes.Buffer
	n, err := write(&buf)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.files[filename] = buf.Bytes()
	m.mu.Unlock()
	return n, nil
}

func (m *MockStorage) Remove(filename string) error {
	m.mu.Lock()
	delete(m.files, filename)
	m.mu.Unlock()
	return nil
}

func (m *MockStorage) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type recordingReporter struct {
	mu       sync.Mutex
	started  []string
	progress int
	finished map[string]error
}

func (r *recordingReporter) DownloadStarted(filename string) {
	r.mu.Lock()
	r.started = append(r.started, filename)
	r.mu.Unlock()
}

func (r *recordingReporter) DownloadProgress(filename string, written, total int64) {
	r.mu.Lock()
	r.progress++
	r.mu.Unlock()
}

func (r *recordingReporter) DownloadFinished(filename string, size int64, err error) {
	r.mu.Lock()
	if r.finished == nil {
		r.finished = make(map[string]error)
	}
	r.finished[filename] = err
	r.mu.Unlock()
}

func candidates(n int) []models.Candidate {
	var out []models.Candidate
	for i := 0; i < n; i++ {
		out = append(out, models.Candidate{
			ID:       fmt.Sprintf("%d", 7300+i),
			URL:      fmt.Sprintf("https://v.douyinvod.com/%d.mp4", i),
			Filename: fmt.Sprintf("%d_clip.mp4", 7300+i),
			Index:    i + 1,
			Source:   models.SourceAPI,
		})
	}
	return out
}

func newPool(workers int, client VideoDownloader, store VideoStorage) *WorkerPool {
	return NewWorkerPool(context.Background(), workers, client, store, ratelimit.Unlimited{}, logger.NewNopLogger())
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 10 * time.Millisecond}
	mockStorage := NewMockStorage()
	reporter := &recordingReporter{}

	pool := newPool(3, mockClient, mockStorage)
	pool.SetReporter(reporter)

	numJobs := 10
	results := pool.RunAll(candidates(numJobs), nil)

	if len(results) != numJobs {
		t.Fatalf("Expected %d results, got %d", numJobs, len(results))
	}
	for i, result := range results {
		if !result.Success {
			t.Errorf("Job %d failed: %v", i, result.Err)
		}
		if result.Job.Candidate.Index != i+1 {
			t.Errorf("Results out of order at %d: index %d", i, result.Job.Candidate.Index)
		}
		if result.Size != int64(len("mock video data")) {
			t.Errorf("Unexpected size %d", result.Size)
		}
	}
	if mockClient.GetDownloadCount() != numJobs {
		t.Errorf("Expected %d download calls, got %d", numJobs, mockClient.GetDownloadCount())
	}
	if mockStorage.GetSavedCount() != numJobs {
		t.Errorf("Expected %d saved files, got %d", numJobs, mockStorage.GetSavedCount())
	}
	if len(reporter.started) != numJobs || len(reporter.finished) != numJobs || reporter.progress == 0 {
		t.Errorf("Reporter saw started=%d finished=%d progress=%d", len(reporter.started), len(reporter.finished), reporter.progress)
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	mockClient := &MockClient{downloadError: errs.FromStatus(404, "https://v.douyinvod.com/x.mp4")}
	mockStorage := NewMockStorage()

	pool := newPool(2, mockClient, mockStorage)
	pool.SetRetry(&retry.Config{MaxAttempts: 3, Backoff: &retry.ConstantBackoff{Delay: time.Millisecond}})

	results := pool.RunAll(candidates(5), nil)
	if len(results) != 5 {
		t.Fatalf("Expected 5 results, got %d", len(results))
	}
	for _, result := range results {
		if result.Success {
			t.Error("Expected all downloads to fail")
		}
		if !errs.IsType(result.Err, errs.ErrorTypeNotFound) {
			t.Errorf("Expected not_found error, got %v", result.Err)
		}
	}
	// 404 is not retryable: one call per job.
	if mockClient.GetDownloadCount() != 5 {
		t.Errorf("Expected 5 download calls, got %d", mockClient.GetDownloadCount())
	}
}

func TestWorkerPoolRetriesTransientErrors(t *testing.T) {
	mockClient := &MockClient{failFirst: 2}
	mockStorage := NewMockStorage()

	pool := newPool(1, mockClient, mockStorage)
	pool.SetRetry(&retry.Config{MaxAttempts: 3, Backoff: &retry.ConstantBackoff{Delay: time.Millisecond}})

	results := pool.RunAll(candidates(1), nil)
	if !results[0].Success {
		t.Fatalf("Expected success after retries, got %v", results[0].Err)
	}
	if mockClient.GetDownloadCount() != 3 {
		t.Errorf("Expected 3 attempts, got %d", mockClient.GetDownloadCount())
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	mockClient := &MockClient{downloadDelay: 100 * time.Millisecond}
	pool := newPool(5, mockClient, NewMockStorage())

	startTime := time.Now()
	results := pool.RunAll(candidates(10), nil)
	elapsed := time.Since(startTime)

	// 5 workers, 10 jobs of 100ms each: about 200ms.
	expectedTime := 400 * time.Millisecond
	if elapsed > expectedTime {
		t.Errorf("Downloads took too long: %v (expected < %v)", elapsed, expectedTime)
	}
	if len(results) != 10 {
		t.Errorf("Expected 10 results, got %d", len(results))
	}
}

func TestWorkerPoolDuplicateDetection(t *testing.T) {
	mockClient := &MockClient{}
	mockStorage := NewMockStorage()
	mockStorage.files["7300_clip.mp4"] = []byte("old")
	mockStorage.files["7302_clip.mp4"] = []byte("old")

	pool := newPool(2, mockClient, mockStorage)
	results := pool.RunAll(candidates(4), nil)

	skipped := 0
	for _, r := range results {
		if r.Skipped {
			skipped++
			if !r.Success {
				t.Error("Skipped results should count as success")
			}
		}
	}
	if skipped != 2 {
		t.Errorf("Expected 2 skipped, got %d", skipped)
	}
	if mockClient.GetDownloadCount() != 2 {
		t.Errorf("Expected 2 downloads, got %d", mockClient.GetDownloadCount())
	}
	if mockStorage.GetSavedCount() != 4 {
		t.Errorf("Expected 4 files, got %d", mockStorage.GetSavedCount())
	}
}

func TestWorkerPoolMinSize(t *testing.T) {
	mockStorage := NewMockStorage()
	pool := newPool(1, &MockClient{body: []byte("tiny")}, mockStorage)
	pool.SetMinSize(1024)

	results := pool.RunAll(candidates(1), nil)
	if results[0].Success || results[0].Err == nil {
		t.Fatal("Expected undersized file to fail")
	}
	if mockStorage.GetSavedCount() != 0 {
		t.Error("Expected undersized file to be removed")
	}
}

func TestWorkerPoolSequentialWithDelay(t *testing.T) {
	var mu sync.Mutex
	var starts []time.Time
	client := &timingClient{onStart: func() {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
	}}
	pool := NewWorkerPool(context.Background(), 1, client, NewMockStorage(),
		ratelimit.New(50*time.Millisecond, 0), logger.NewNopLogger())

	var seen []int
	pool.RunAll(candidates(3), func(r Result) {
		seen = append(seen, r.Job.Candidate.Index)
	})

	if len(starts) != 3 {
		t.Fatalf("Expected 3 downloads, got %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < 40*time.Millisecond {
			t.Errorf("Downloads %d and %d only %v apart", i-1, i, gap)
		}
	}
	if fmt.Sprint(seen) != "[1 2 3]" {
		t.Errorf("Expected sequential order, got %v", seen)
	}
}

type timingClient struct {
	onStart func()
}

func (c *timingClient) Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) (int64, error) {
	c.onStart()
	n, err := w.Write([]byte("data"))
	return int64(n), err
}

func TestWorkerPoolCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mockClient := &MockClient{downloadDelay: time.Second}
	pool := NewWorkerPool(ctx, 1, mockClient, NewMockStorage(), ratelimit.Unlimited{}, logger.NewNopLogger())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	results := pool.RunAll(candidates(3), nil)

	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("Cancellation took too long: %v", time.Since(start))
	}
	for _, r := range results {
		if r.Success {
			t.Error("Expected no successes after cancellation")
		}
	}
}

func TestWorkerPoolWithDiskStorage(t *testing.T) {
	store, err := storage.NewManager(t.TempDir(), false)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	pool := newPool(1, &MockClient{body: bytes.Repeat([]byte("v"), 2048)}, store)
	results := pool.RunAll(candidates(2), nil)

	for _, r := range results {
		if !r.Success {
			t.Errorf("Download failed: %v", r.Err)
		}
	}
	if size, err := store.Size("7300_clip.mp4"); err != nil || size != 2048 {
		t.Errorf("Expected 2048 bytes on disk, got %d (%v)", size, err)
	}
}

type togglePauser struct{ paused atomic.Bool }

func (p *togglePauser) IsPaused() bool { return p.paused.Load() }

func TestWorkerPoolPause(t *testing.T) {
	mockClient := &MockClient{}
	pauser := &togglePauser{}
	pauser.paused.Store(true)

	pool := newPool(1, mockClient, NewMockStorage())
	pool.SetPauser(pauser)

	go func() {
		time.Sleep(300 * time.Millisecond)
		if mockClient.GetDownloadCount() != 0 {
			t.Errorf("Downloads ran while paused")
		}
		pauser.paused.Store(false)
	}()

	results := pool.RunAll(candidates(2), nil)
	for _, r := range results {
		if !r.Success {
			t.Errorf("Download failed after resume: %v", r.Err)
		}
	}
}
