package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PageFetcher fetches a single page of a list. It is the data-access
// collaborator shared by the list controller and the batch fetcher.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, req Request) (Page[T], error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, req Request) (Page[T], error)

// FetchPage calls f.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, req Request) (Page[T], error) {
	return f(ctx, req)
}

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// PageSize requested from the backend for every page
	PageSize int
}

// DefaultConfig returns safe default configuration for the blog backend
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		PageSize:       50,
	}
}

// maxPrealloc bounds buffers sized from the backend-reported total.
const maxPrealloc = 1024

type pageResult[T any] struct {
	page  int
	items []T
}

// BatchFetcher walks every page of a list with a bounded worker pool
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.PageSize <= 0 {
		config.PageSize = 50
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page matching filters and returns the items in
// page order. On a worker error the items of the leading run of fetched
// pages are returned together with the error.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context, filters Filters) ([]T, error) {
	start := time.Now()

	if err := filters.Validate(); err != nil {
		return nil, err
	}

	// First page tells us the total
	first, err := bf.fetchOne(ctx, filters, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}
	totalPages := TotalPages(first.Total, bf.config.PageSize)

	log.Info().
		Int("total_items", first.Total).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	if totalPages == 1 {
		log.Info().
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Items, nil
	}

	pages := make(map[int][]T, min(totalPages, maxPrealloc))
	pages[1] = first.Items

	workers := min(bf.config.MaxConcurrency, totalPages-1)
	pageQueue := make(chan int)
	results := make(chan pageResult[T], workers)
	errs := make(chan error, bf.config.MaxConcurrency)
	stop := make(chan struct{})

	go func() {
		defer close(pageQueue)
		for page := 2; page <= totalPages; page++ {
			select {
			case pageQueue <- page:
			case <-stop:
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, filters, pageQueue, results, errs, &wg, i)
	}

	go func() {
		wg.Wait()
		close(stop)
		close(results)
		close(errs)
	}()

	fetchedPages := 1
	for result := range results {
		pages[result.page] = result.items
		fetchedPages++

		if fetchedPages%50 == 0 {
			log.Info().
				Int("fetched", fetchedPages).
				Int("total", totalPages).
				Float64("progress_pct", float64(fetchedPages)/float64(totalPages)*100).
				Msg("Fetch progress")
		}
	}

	items := make([]T, 0, min(first.Total, maxPrealloc))
	for page := 1; page <= totalPages; page++ {
		p, ok := pages[page]
		if !ok {
			break
		}
		items = append(items, p...)
	}

	if err := <-errs; err != nil {
		log.Warn().
			Err(err).
			Int("fetched_pages", fetchedPages).
			Int("total_pages", totalPages).
			Msg("Worker error - returning partial results")
		return items, fmt.Errorf("worker error (partial data: %d/%d pages): %w", fetchedPages, totalPages, err)
	}
	if err := ctx.Err(); err != nil && fetchedPages < totalPages {
		return items, fmt.Errorf("fetch interrupted (partial data: %d/%d pages): %w", fetchedPages, totalPages, err)
	}

	log.Info().
		Int("pages", fetchedPages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

func (bf *BatchFetcher[T]) fetchOne(ctx context.Context, filters Filters, page int) (Page[T], error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()
	return bf.fetcher.FetchPage(pageCtx, Request{
		Page:     page,
		PageSize: bf.config.PageSize,
		Filters:  filters,
	})
}

// worker processes pages from the queue
func (bf *BatchFetcher[T]) worker(ctx context.Context, filters Filters, pageQueue <-chan int, results chan<- pageResult[T], errs chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		page, err := bf.fetchOne(ctx, filters, pageNum)
		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")

			select {
			case errs <- err:
			default:
			}
			return
		}

		results <- pageResult[T]{page: pageNum, items: page.Items}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
