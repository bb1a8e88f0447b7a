// Package settings provides the site-wide settings published by the blog
// backend as an explicitly started and closed service.
package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/Sternrassler/beekeeper-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultRefreshInterval is used when Config.RefreshInterval is zero.
const DefaultRefreshInterval = 5 * time.Minute

// DefaultSiteTitle is shown until the backend publishes a title.
const DefaultSiteTitle = "BeeKeeper's Blog"

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("settings service already started")

	// ErrClosed is returned by Start and Refresh after Close.
	ErrClosed = errors.New("settings service closed")
)

var refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "blog_settings_refresh_total",
	Help: "Site settings refreshes by outcome (success, error)",
}, []string{"outcome"})

// Source loads the raw settings. *client.Client implements it.
type Source interface {
	SiteSettings(ctx context.Context) (client.SiteSettings, error)
}

// Settings is the effective site configuration with defaults applied.
type Settings struct {
	SiteTitle       string
	PostsPerPage    int
	MaxVisiblePages int
	ForumEnabled    bool
	CommentsEnabled bool

	// LoadedAt is zero while only defaults are known.
	LoadedAt time.Time
}

// Defaults returns the settings used before the first successful load.
func Defaults() Settings {
	return Settings{
		SiteTitle:       DefaultSiteTitle,
		PostsPerPage:    pagination.DefaultPageSize,
		MaxVisiblePages: pagination.DefaultMaxVisiblePages,
		ForumEnabled:    true,
		CommentsEnabled: true,
	}
}

// merge overlays the published values on the defaults.
func merge(raw client.SiteSettings, loadedAt time.Time) Settings {
	s := Defaults()
	if raw.SiteTitle != "" {
		s.SiteTitle = raw.SiteTitle
	}
	if raw.PostsPerPage > 0 {
		s.PostsPerPage = raw.PostsPerPage
	}
	if raw.MaxVisiblePages > 0 {
		s.MaxVisiblePages = raw.MaxVisiblePages
	}
	if raw.ForumEnabled != nil {
		s.ForumEnabled = *raw.ForumEnabled
	}
	if raw.CommentsEnabled != nil {
		s.CommentsEnabled = *raw.CommentsEnabled
	}
	s.LoadedAt = loadedAt
	return s
}

// Config configures a Service.
type Config struct {
	// RefreshInterval between background reloads (default 5m).
	RefreshInterval time.Duration
}

// Service keeps the current settings and refreshes them in the background.
type Service struct {
	source Source
	config Config
	logger zerolog.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	current Settings
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService creates a stopped service serving Defaults.
func NewService(source Source, cfg Config) *Service {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	return &Service{
		source:  source,
		config:  cfg,
		logger:  log.With().Str("component", "settings").Logger(),
		current: Defaults(),
	}
}

// Start loads the settings once and then refreshes them every
// RefreshInterval until Close or ctx ends. The initial load error is
// returned, but the refresh loop runs regardless so the service recovers
// once the backend is reachable.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	_, err := s.Refresh(ctx)

	go s.loop(loopCtx)

	return err
}

func (s *Service) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn().Err(err).Msg("Settings refresh failed, keeping previous values")
			}
		}
	}
}

// Refresh loads the settings now. Concurrent calls share one backend
// request. On error the previous settings stay current.
func (s *Service) Refresh(ctx context.Context) (Settings, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return s.Current(), ErrClosed
	}

	ch := s.group.DoChan("settings", func() (any, error) {
		raw, err := s.source.SiteSettings(ctx)
		if err != nil {
			refreshTotal.WithLabelValues("error").Inc()
			return nil, err
		}

		loaded := merge(raw, time.Now())
		s.mu.Lock()
		s.current = loaded
		s.mu.Unlock()

		refreshTotal.WithLabelValues("success").Inc()
		s.logger.Debug().
			Str("site_title", loaded.SiteTitle).
			Int("posts_per_page", loaded.PostsPerPage).
			Msg("Settings refreshed")
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return s.Current(), ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return s.Current(), res.Err
		}
		return res.Val.(Settings), nil
	}
}

// Current returns the last successfully loaded settings, or Defaults.
func (s *Service) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Close stops the refresh loop and waits for it to exit.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return nil
}
