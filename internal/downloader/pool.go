package downloader

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"dyscraper/pkg/logger"
	"dyscraper/pkg/models"
	"dyscraper/pkg/ratelimit"
	"dyscraper/pkg/retry"
)

// Job is one candidate to fetch.
type Job struct {
	Candidate models.Candidate
	// Seq orders results from RunAll; it is set by Submit.
	Seq int
}

// Result is the outcome of a job.
type Result struct {
	Job      Job
	Success  bool
	Skipped  bool
	Size     int64
	Duration time.Duration
	Err      error
}

// VideoDownloader streams a URL into a writer.
type VideoDownloader interface {
	Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) (int64, error)
}

// VideoStorage stores finished files.
type VideoStorage interface {
	IsDownloaded(filename string) bool
	SaveStream(filename string, write func(w io.Writer) (int64, error)) (int64, error)
	Remove(filename string) error
}

// ProgressReporter receives per-file progress. Calls may come from several
// workers at once.
type ProgressReporter interface {
	DownloadStarted(filename string)
	DownloadProgress(filename string, written, total int64)
	DownloadFinished(filename string, size int64, err error)
}

// Pauser holds workers between jobs while IsPaused is true.
type Pauser interface {
	IsPaused() bool
}

// WorkerPool downloads jobs with a fixed number of workers. One worker
// gives strictly sequential downloads.
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	client      VideoDownloader
	storage     VideoStorage
	rateLimiter ratelimit.Limiter
	retry       *retry.Config
	reporter    ProgressReporter
	pauser      Pauser
	minSize     int64
	logger      logger.Logger

	mu  sync.Mutex
	seq int
}

// NewWorkerPool creates a pool bound to ctx. Cancelling ctx aborts
// in-flight downloads.
func NewWorkerPool(
	ctx context.Context,
	numWorkers int,
	client VideoDownloader,
	storage VideoStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		client:      client,
		storage:     storage,
		rateLimiter: rateLimiter,
		retry:       &retry.Config{MaxAttempts: 1},
		logger:      log.WithField("component", "worker_pool"),
	}
}

// SetRetry sets the retry policy used for every download.
func (wp *WorkerPool) SetRetry(cfg *retry.Config) {
	if cfg != nil {
		wp.retry = cfg
	}
}

// SetReporter forwards progress to r.
func (wp *WorkerPool) SetReporter(r ProgressReporter) {
	wp.reporter = r
}

// SetPauser lets p hold the workers between jobs.
func (wp *WorkerPool) SetPauser(p Pauser) {
	wp.pauser = p
}

// SetMinSize makes files smaller than n bytes count as failures.
func (wp *WorkerPool) SetMinSize(n int64) {
	wp.minSize = n
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	logger.LogComponentStart("worker_pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the queue, waits for queued jobs to finish and closes the
// result channel.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
	logger.LogComponentStop("worker_pool", "drained")
}

// Submit queues a job. It fails once the pool's context is done.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.Lock()
	wp.seq++
	job.Seq = wp.seq
	wp.mu.Unlock()

	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// RunAll starts the pool, processes every candidate and returns results in
// submission order. onResult, when set, sees each result as it arrives.
func (wp *WorkerPool) RunAll(candidates []models.Candidate, onResult func(Result)) []Result {
	wp.Start()

	var results []Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		for r := range wp.Results() {
			if onResult != nil {
				onResult(r)
			}
			results = append(results, r)
		}
	}()

	for _, c := range candidates {
		if err := wp.Submit(Job{Candidate: c}); err != nil {
			wp.logger.WithError(err).Warn("Stopped queueing downloads")
			break
		}
	}
	wp.Stop()
	<-done

	sort.Slice(results, func(i, j int) bool { return results[i].Job.Seq < results[j].Job.Seq })
	return results
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		wp.waitWhilePaused()

		var result Result
		if wp.ctx.Err() != nil {
			result = Result{Job: job, Err: wp.ctx.Err()}
		} else {
			result = wp.processJob(job, id)
		}
		wp.resultQueue <- result
	}
}

func (wp *WorkerPool) waitWhilePaused() {
	if wp.pauser == nil {
		return
	}
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for wp.pauser.IsPaused() {
		select {
		case <-wp.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	c := job.Candidate
	result := Result{Job: job}
	log := wp.logger.WithFields(map[string]interface{}{
		"worker_id": workerID,
		"file":      c.Filename,
	})

	if wp.storage.IsDownloaded(c.Filename) {
		log.Debug("File already present, skipping")
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if err := wp.rateLimiter.Wait(wp.ctx); err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	if wp.reporter != nil {
		wp.reporter.DownloadStarted(c.Filename)
	}
	progress := func(written, total int64) {
		if wp.reporter != nil {
			wp.reporter.DownloadProgress(c.Filename, written, total)
		}
	}

	size, err := retry.DoWithResult(wp.ctx, func(ctx context.Context) (int64, error) {
		return wp.storage.SaveStream(c.Filename, func(w io.Writer) (int64, error) {
			return wp.client.Download(ctx, c.URL, w, progress)
		})
	}, wp.retry)

	if err == nil && wp.minSize > 0 && size < wp.minSize {
		if rmErr := wp.storage.Remove(c.Filename); rmErr != nil {
			log.WithError(rmErr).Warn("Failed to remove undersized file")
		}
		err = fmt.Errorf("file is %d bytes, below the %d byte minimum", size, wp.minSize)
		size = 0
	}

	result.Duration = time.Since(start)
	if wp.reporter != nil {
		wp.reporter.DownloadFinished(c.Filename, size, err)
	}
	if err != nil {
		result.Err = fmt.Errorf("download failed: %w", err)
		log.WithError(err).Warn("Download failed")
		return result
	}

	result.Success = true
	result.Size = size
	log.DebugWithFields("Download finished", map[string]interface{}{
		"size":     size,
		"duration": result.Duration,
	})
	return result
}

// GetQueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) GetQueueSize() int {
	return len(wp.jobQueue)
}

// GetActiveWorkers returns the number of active workers
func (wp *WorkerPool) GetActiveWorkers() int {
	return wp.numWorkers
}
