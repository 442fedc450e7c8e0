package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"sdc-indexer/internal/logging"
)

// Scanner enumerates the regular files under a root directory. Scan returns
// every accepted file exactly once, sorted by path, with second-precision UTC
// modification times.
type Scanner interface {
	Scan(ctx context.Context, root string) ([]Entry, error)
}

// AcceptFunc reports whether a file should be included in a scan. The
// indexer passes the pattern registry's Recognizes method.
type AcceptFunc func(path string) bool

// ErrNotDirectory is returned when a scan root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrIncompleteScan wraps any error that left part of the tree unlisted. A
// scan that returns it must not be used to delete catalog rows.
var ErrIncompleteScan = errors.New("incomplete scan")

// vanished reports whether err means the path went away during the walk.
func vanished(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// ParallelWalkerConfig configures the parallel directory walker
type ParallelWalkerConfig struct {
	// NumWorkers is the number of goroutines that classify and stat files
	NumWorkers int
	// ChannelBuffer is the size of the job and result channel buffers
	ChannelBuffer int
	// Exclude skips matching files and directories
	Exclude *Excludes
	// Retry configures stat retries on network filesystems
	Retry RetryConfig
}

// DefaultParallelWalkerConfig returns defaults that are safe for NFS.
func DefaultParallelWalkerConfig() ParallelWalkerConfig {
	return ParallelWalkerConfig{
		NumWorkers:    3,
		ChannelBuffer: 1000,
		Retry:         DefaultRetryConfig(),
	}
}

type fileJob struct {
	path string
}

type fileResult struct {
	entry   Entry
	matched bool
	err     error
}

// ParallelWalker walks a directory tree on one goroutine and hands each file
// to a pool of workers that classify and stat it.
type ParallelWalker struct {
	config ParallelWalkerConfig
	accept AcceptFunc

	filesMatched atomic.Int64
	filesIgnored atomic.Int64
	errorsCount  atomic.Int64
}

// NewParallelWalker creates a walker that keeps the files accept approves.
// A nil accept keeps every file.
func NewParallelWalker(config ParallelWalkerConfig, accept AcceptFunc) *ParallelWalker {
	if config.NumWorkers < 1 {
		config.NumWorkers = 1
	}
	if config.ChannelBuffer < 0 {
		config.ChannelBuffer = 0
	}
	if accept == nil {
		accept = func(string) bool { return true }
	}
	return &ParallelWalker{config: config, accept: accept}
}

// Scan walks root and returns the accepted files sorted by path. Files and
// directories that vanish mid-walk are skipped. Any other error reading a
// directory or stating a file fails the whole scan with ErrIncompleteScan.
// The walk stops early when ctx is cancelled.
func (pw *ParallelWalker) Scan(ctx context.Context, root string) ([]Entry, error) {
	root = filepath.Clean(root)
	info, err := StatWithRetry(root, pw.config.Retry)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: %w", root, ErrNotDirectory)
	}

	logging.Debug("Starting parallel walk of %s with %d workers", root, pw.config.NumWorkers)
	startTime := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan fileJob, pw.config.ChannelBuffer)
	results := make(chan fileResult, pw.config.ChannelBuffer)

	var wg sync.WaitGroup
	for i := 0; i < pw.config.NumWorkers; i++ {
		wg.Add(1)
		go pw.worker(ctx, &wg, jobs, results)
	}

	var entries []Entry
	var fileErr error
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for result := range results {
			switch {
			case result.err != nil:
				pw.errorsCount.Add(1)
				logging.Warn("Error processing file: %v", result.err)
				if fileErr == nil {
					fileErr = result.err
					cancel()
				}
			case result.matched:
				entries = append(entries, result.entry)
			}
		}
	}()

	walkErr := pw.walkAndEnqueue(ctx, root, jobs)
	close(jobs)
	wg.Wait()
	close(results)
	<-collected

	if fileErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteScan, fileErr)
	}
	if walkErr == nil {
		walkErr = ctx.Err()
	}
	if walkErr != nil {
		return nil, walkErr
	}

	SortEntries(entries)
	logging.Debug("Parallel walk of %s complete: %d matched, %d ignored in %v (errors: %d)",
		root, pw.filesMatched.Load(), pw.filesIgnored.Load(), time.Since(startTime), pw.errorsCount.Load())
	return entries, nil
}

func (pw *ParallelWalker) walkAndEnqueue(ctx context.Context, root string, jobs chan<- fileJob) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return fs.SkipAll
		default:
		}

		if err != nil {
			if path != root && vanished(err) {
				logging.Debug("Path vanished during walk: %s", path)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			pw.errorsCount.Add(1)
			return fmt.Errorf("%w: %w", ErrIncompleteScan, err)
		}

		if path == root {
			return nil
		}

		if pw.config.Exclude.Match(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			observeEntry(&pw.config.Retry, path, EntryExcluded)
			return nil
		}

		if d.IsDir() || !d.Type().IsRegular() && d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		select {
		case jobs <- fileJob{path: path}:
		case <-ctx.Done():
			return fs.SkipAll
		}
		return nil
	})
}

func (pw *ParallelWalker) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan fileJob, results chan<- fileResult) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}

		result := pw.processFile(job)
		select {
		case results <- result:
		case <-ctx.Done():
		}
	}
}

func (pw *ParallelWalker) processFile(job fileJob) fileResult {
	if !pw.accept(job.path) {
		pw.filesIgnored.Add(1)
		observeEntry(&pw.config.Retry, job.path, EntryIgnored)
		return fileResult{}
	}

	info, err := StatWithRetry(job.path, pw.config.Retry)
	if err != nil && vanished(err) {
		pw.filesIgnored.Add(1)
		observeEntry(&pw.config.Retry, job.path, EntryIgnored)
		return fileResult{}
	}
	if err != nil {
		observeEntry(&pw.config.Retry, job.path, EntryError)
		return fileResult{err: err}
	}
	if !info.Mode().IsRegular() {
		pw.filesIgnored.Add(1)
		observeEntry(&pw.config.Retry, job.path, EntryIgnored)
		return fileResult{}
	}

	pw.filesMatched.Add(1)
	observeEntry(&pw.config.Retry, job.path, EntryMatched)
	return fileResult{entry: EntryFromInfo(job.path, info), matched: true}
}

// Stats returns counters accumulated across all scans.
func (pw *ParallelWalker) Stats() (matched, ignored, errors int64) {
	return pw.filesMatched.Load(), pw.filesIgnored.Load(), pw.errorsCount.Load()
}
