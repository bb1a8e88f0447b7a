package listfetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrClosed is returned by Wait after Close.
var ErrClosed = errors.New("list controller closed")

// Status is the lifecycle phase of a controller.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is the consumer-facing state of a list.
type Snapshot[T any] struct {
	Items      []T
	Loading    bool
	Err        error
	Status     Status
	Pagination pagination.State
	// Request is the latest issued request, Sequence its tag.
	Request  pagination.Request
	Sequence uint64
}

// Config holds controller configuration.
type Config struct {
	// List names the list in logs and metrics (e.g. "articles").
	List string

	// PageSize is the initial page size (default 10).
	PageSize int

	// MaxVisiblePages is the pager window width (default 5).
	MaxVisiblePages int

	// DisableClampRefetch stops the controller from re-requesting the last
	// page when a response shows the requested page is out of range.
	DisableClampRefetch bool

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Controller owns the request/response lifecycle of one filtered,
// paginated list. Only the response to the latest issued request is ever
// applied; earlier responses are discarded whenever they arrive.
type Controller[T any] struct {
	fetcher pagination.PageFetcher[T]
	config  Config
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	seq        uint64
	version    uint64
	state      Snapshot[T]
	latest     pagination.Request
	hasRequest bool
	done       chan struct{}
	closed     bool
	onChange   func(Snapshot[T])

	// totalKnown is set once a response has reported a total; totalFilters
	// is the filter set that total belongs to.
	totalKnown   bool
	totalFilters pagination.Filters

	notifyMu    sync.Mutex
	notified    uint64
	dispatching bool
	pending     *delivery[T]
}

type delivery[T any] struct {
	fn      func(Snapshot[T])
	snap    Snapshot[T]
	version uint64
}

// New creates a controller in the Idle state. No fetch is issued until
// SetParams is called.
func New[T any](fetcher pagination.PageFetcher[T], cfg Config) *Controller[T] {
	if cfg.PageSize <= 0 {
		cfg.PageSize = pagination.DefaultPageSize
	}
	if cfg.MaxVisiblePages <= 0 {
		cfg.MaxVisiblePages = pagination.DefaultMaxVisiblePages
	}
	if cfg.List == "" {
		cfg.List = "default"
	}

	logger := log.With().Str("component", "list-controller").Str("list", cfg.List).Logger()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("list", cfg.List).Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Controller[T]{
		fetcher: fetcher,
		config:  cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		state: Snapshot[T]{
			Status:     StatusIdle,
			Pagination: pagination.NewState(0, 1, cfg.PageSize, cfg.MaxVisiblePages),
		},
	}
}

// OnChange registers fn to receive every new snapshot. Snapshots are
// delivered one at a time in state order. While fn runs, newer snapshots
// are coalesced and only the latest is delivered next. fn may call back
// into the controller.
func (c *Controller[T]) OnChange(fn func(Snapshot[T])) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current snapshot.
func (c *Controller[T]) State() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetParams moves the list to page with the given filters and issues a
// fetch. Errors never surface here; they land in the snapshot.
func (c *Controller[T]) SetParams(page int, filters pagination.Filters) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	pageSize := c.state.Pagination.PageSize
	if c.totalKnown && filters.Equal(c.totalFilters) {
		// Same list as the known total, so it still bounds the page.
		page = c.state.Pagination.WithPage(page).CurrentPage
	} else if page < 1 {
		page = 1
	}

	snap, version, fn := c.issueLocked(pagination.Request{
		Page:     page,
		PageSize: pageSize,
		Filters:  filters.Clone(),
	})
	c.mu.Unlock()

	c.notify(fn, snap, version)
}

// SetPageSize changes the page size and goes back to page 1 of the
// current filters.
func (c *Controller[T]) SetPageSize(pageSize int) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.state.Pagination = c.state.Pagination.WithPageSize(pageSize)
	snap, version, fn := c.issueLocked(pagination.Request{
		Page:     1,
		PageSize: c.state.Pagination.PageSize,
		Filters:  c.latest.Filters.Clone(),
	})
	c.mu.Unlock()

	c.notify(fn, snap, version)
}

// Retry re-issues the most recent request under a new sequence number.
// It does nothing before the first SetParams.
func (c *Controller[T]) Retry() {
	c.mu.Lock()
	if c.closed || !c.hasRequest {
		c.mu.Unlock()
		return
	}

	c.logger.Debug().
		Int("page", c.latest.Page).
		Str("request", c.latest.Key()).
		Msg("Retrying list fetch")

	snap, version, fn := c.issueLocked(c.latest)
	c.mu.Unlock()

	c.notify(fn, snap, version)
}

// Wait blocks until the latest issued fetch has settled, including any
// follow-up fetch it triggered, or ctx is done. The OnChange delivery of
// the settled snapshot may still be running when Wait returns.
func (c *Controller[T]) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		done, closed := c.done, c.closed
		c.mu.Unlock()

		if closed {
			return ErrClosed
		}
		if done == nil {
			return nil
		}

		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}

		c.mu.Lock()
		settled := c.done == done
		c.mu.Unlock()
		if settled {
			return nil
		}
	}
}

// Close releases the controller. In-flight fetches see a cancelled
// context and their results are dropped.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
}

// issueLocked tags req with the next sequence number and starts the fetch.
// Callers hold c.mu and must pass the returned values to notify after
// unlocking.
func (c *Controller[T]) issueLocked(req pagination.Request) (Snapshot[T], uint64, func(Snapshot[T])) {
	c.seq++
	seq := c.seq
	done := make(chan struct{})

	c.latest = req
	c.hasRequest = true
	c.done = done

	c.state.Loading = true
	c.state.Status = StatusLoading
	c.state.Request = req
	c.state.Sequence = seq
	c.version++

	c.logger.Debug().
		Uint64("sequence", seq).
		Int("page", req.Page).
		Str("request", req.Key()).
		Msg("Issuing list fetch")

	go c.run(seq, req, done)

	return c.state, c.version, c.onChange
}

func (c *Controller[T]) run(seq uint64, req pagination.Request, done chan struct{}) {
	start := time.Now()
	page, err := c.fetcher.FetchPage(c.ctx, req)
	listFetchDuration.WithLabelValues(c.config.List).Observe(time.Since(start).Seconds())

	c.mu.Lock()
	snap, version, fn, changed := c.settleLocked(seq, req, page, err)
	c.mu.Unlock()
	close(done)

	if changed {
		c.notify(fn, snap, version)
	}
}

// settleLocked applies a fetch result if seq is still the latest sequence.
func (c *Controller[T]) settleLocked(seq uint64, req pagination.Request, page pagination.Page[T], err error) (Snapshot[T], uint64, func(Snapshot[T]), bool) {
	if c.closed {
		return Snapshot[T]{}, 0, nil, false
	}

	if seq != c.seq {
		listFetchesTotal.WithLabelValues(c.config.List, "stale").Inc()
		c.logger.Debug().
			Uint64("sequence", seq).
			Uint64("latest", c.seq).
			Int("page", req.Page).
			Msg("Discarding stale list response")
		return Snapshot[T]{}, 0, nil, false
	}

	if err != nil {
		classified := Classify(err)
		kind := KindOf(classified)

		listFetchesTotal.WithLabelValues(c.config.List, "failed").Inc()
		listFetchErrorsTotal.WithLabelValues(c.config.List, string(kind)).Inc()
		c.logger.Warn().
			Err(err).
			Uint64("sequence", seq).
			Int("page", req.Page).
			Str("kind", string(kind)).
			Msg("List fetch failed")

		c.state.Loading = false
		c.state.Status = StatusFailed
		c.state.Err = classified
		c.version++
		return c.state, c.version, c.onChange, true
	}

	next := pagination.NewState(page.Total, req.Page, req.PageSize, c.config.MaxVisiblePages)
	c.totalKnown = true
	c.totalFilters = req.Filters

	if next.CurrentPage != req.Page && !c.config.DisableClampRefetch {
		listFetchesTotal.WithLabelValues(c.config.List, "clamped").Inc()
		c.logger.Info().
			Int("requested_page", req.Page).
			Int("total_pages", next.TotalPages()).
			Msg("Requested page out of range, fetching last page")

		c.state.Pagination = next
		snap, version, fn := c.issueLocked(pagination.Request{
			Page:     next.CurrentPage,
			PageSize: req.PageSize,
			Filters:  req.Filters,
		})
		return snap, version, fn, true
	}

	listFetchesTotal.WithLabelValues(c.config.List, "success").Inc()
	c.state.Items = page.Items
	c.state.Loading = false
	c.state.Status = StatusSuccess
	c.state.Err = nil
	c.state.Pagination = next
	c.version++
	return c.state, c.version, c.onChange, true
}

// notify delivers snap to fn unless a newer snapshot was already
// delivered. The first caller to find no delivery in progress becomes the
// dispatcher and drains pending snapshots without holding any lock while
// fn runs.
func (c *Controller[T]) notify(fn func(Snapshot[T]), snap Snapshot[T], version uint64) {
	if fn == nil {
		return
	}

	c.notifyMu.Lock()
	if version <= c.notified || (c.pending != nil && version <= c.pending.version) {
		c.notifyMu.Unlock()
		return
	}
	c.pending = &delivery[T]{fn: fn, snap: snap, version: version}
	if c.dispatching {
		c.notifyMu.Unlock()
		return
	}
	c.dispatching = true

	for c.pending != nil {
		d := c.pending
		c.pending = nil
		c.notified = d.version
		c.notifyMu.Unlock()

		d.fn(d.snap)

		c.notifyMu.Lock()
	}
	c.dispatching = false
	c.notifyMu.Unlock()
}
