package settings

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/beekeeper-client/internal/testutil"
	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts calls and optionally blocks until released.
type fakeSource struct {
	mu      sync.Mutex
	raw     client.SiteSettings
	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (f *fakeSource) SiteSettings(ctx context.Context) (client.SiteSettings, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return client.SiteSettings{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw, f.err
}

func (f *fakeSource) set(raw client.SiteSettings, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw, f.err = raw, err
}

func boolPtr(b bool) *bool { return &b }

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, DefaultSiteTitle, d.SiteTitle)
	assert.Equal(t, 10, d.PostsPerPage)
	assert.Equal(t, 5, d.MaxVisiblePages)
	assert.True(t, d.ForumEnabled)
	assert.True(t, d.CommentsEnabled)
	assert.True(t, d.LoadedAt.IsZero())
}

func TestMerge(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		raw  client.SiteSettings
		want Settings
	}{
		{
			name: "empty payload keeps defaults",
			raw:  client.SiteSettings{},
			want: func() Settings { d := Defaults(); d.LoadedAt = now; return d }(),
		},
		{
			name: "all fields published",
			raw: client.SiteSettings{
				SiteTitle:       "Hive",
				PostsPerPage:    20,
				MaxVisiblePages: 9,
				ForumEnabled:    boolPtr(false),
				CommentsEnabled: boolPtr(false),
			},
			want: Settings{SiteTitle: "Hive", PostsPerPage: 20, MaxVisiblePages: 9, LoadedAt: now},
		},
		{
			name: "non-positive sizes ignored",
			raw:  client.SiteSettings{PostsPerPage: -1, MaxVisiblePages: 0},
			want: func() Settings { d := Defaults(); d.LoadedAt = now; return d }(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, merge(tt.raw, now))
		})
	}
}

func TestService_CurrentBeforeStart(t *testing.T) {
	svc := NewService(&fakeSource{}, Config{})
	assert.Equal(t, Defaults(), svc.Current())
}

func TestService_StartLoads(t *testing.T) {
	src := &fakeSource{raw: client.SiteSettings{SiteTitle: "Hive", PostsPerPage: 15}}
	svc := NewService(src, Config{RefreshInterval: time.Hour})
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))

	cur := svc.Current()
	assert.Equal(t, "Hive", cur.SiteTitle)
	assert.Equal(t, 15, cur.PostsPerPage)
	assert.False(t, cur.LoadedAt.IsZero())
}

func TestService_StartTwice(t *testing.T) {
	svc := NewService(&fakeSource{}, Config{RefreshInterval: time.Hour})
	defer svc.Close()

	require.NoError(t, svc.Start(context.Background()))
	assert.ErrorIs(t, svc.Start(context.Background()), ErrAlreadyStarted)
}

func TestService_StartErrorKeepsDefaultsAndRecovers(t *testing.T) {
	src := &fakeSource{err: errors.New("backend down")}
	svc := NewService(src, Config{RefreshInterval: 10 * time.Millisecond})
	defer svc.Close()

	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, Defaults(), svc.Current())

	src.set(client.SiteSettings{SiteTitle: "Back"}, nil)

	require.Eventually(t, func() bool {
		return svc.Current().SiteTitle == "Back"
	}, 2*time.Second, 5*time.Millisecond)
}

func TestService_RefreshFailureKeepsPrevious(t *testing.T) {
	src := &fakeSource{raw: client.SiteSettings{SiteTitle: "Hive"}}
	svc := NewService(src, Config{RefreshInterval: time.Hour})
	defer svc.Close()
	require.NoError(t, svc.Start(context.Background()))

	src.set(client.SiteSettings{}, errors.New("boom"))

	got, err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Hive", got.SiteTitle)
	assert.Equal(t, "Hive", svc.Current().SiteTitle)
}

func TestService_ConcurrentRefreshShared(t *testing.T) {
	src := &fakeSource{raw: client.SiteSettings{SiteTitle: "Hive"}, release: make(chan struct{})}
	svc := NewService(src, Config{})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Settings, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := svc.Refresh(context.Background())
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}

	require.Eventually(t, func() bool { return src.calls.Load() >= 1 }, time.Second, time.Millisecond)
	// Let the other callers join the in-flight request.
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Less(t, src.calls.Load(), int32(callers))
	for _, r := range results {
		assert.Equal(t, "Hive", r.SiteTitle)
	}
}

func TestService_RefreshHonoursContext(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	svc := NewService(src, Config{})
	defer close(src.release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	got, err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Defaults(), got)
}

func TestService_Close(t *testing.T) {
	src := &fakeSource{}
	svc := NewService(src, Config{RefreshInterval: 5 * time.Millisecond})
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())

	calls := src.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, src.calls.Load(), "refresh loop kept running after Close")

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, svc.Start(context.Background()), ErrClosed)
}

func TestService_WithClient(t *testing.T) {
	mock := testutil.NewMockBlog()
	defer mock.Close()
	mock.SetResponse("/api/settings", testutil.NewHealthyResponse(
		`{"site_title":"BeeKeeper's Blog","posts_per_page":6,"forum_enabled":false}`))

	c, err := client.New(client.DefaultConfig(mock.URL(), "BeeKeeperTest/1.0"))
	require.NoError(t, err)

	svc := NewService(c, Config{RefreshInterval: time.Hour})
	defer svc.Close()
	require.NoError(t, svc.Start(context.Background()))

	cur := svc.Current()
	assert.Equal(t, 6, cur.PostsPerPage)
	assert.Equal(t, 5, cur.MaxVisiblePages)
	assert.False(t, cur.ForumEnabled)
	assert.True(t, cur.CommentsEnabled)
}
