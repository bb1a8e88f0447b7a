package like

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/beekeeper-client/internal/testutil"
	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoLiker confirms every toggle and reports count+delta.
func echoLiker(base int) LikerFunc {
	return func(_ context.Context, _ int64, liked bool) (client.LikeStatus, error) {
		if liked {
			return client.LikeStatus{Liked: true, LikeCount: base + 1}, nil
		}
		return client.LikeStatus{Liked: false, LikeCount: base}, nil
	}
}

func TestNew_StartsIdle(t *testing.T) {
	tg := New(1, true, 5, echoLiker(4))
	s := tg.State()

	assert.Equal(t, Idle, s.Phase)
	assert.True(t, s.Liked)
	assert.Equal(t, 5, s.Count)
	assert.NoError(t, s.Err)
}

func TestNew_NegativeCountClamped(t *testing.T) {
	assert.Equal(t, 0, New(1, false, -3, echoLiker(0)).State().Count)
}

func TestToggle_Commit(t *testing.T) {
	tg := New(1, false, 10, echoLiker(10))

	s, err := tg.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, State{Liked: true, Count: 11, Phase: Committed}, s)

	s, err = tg.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, State{Liked: false, Count: 10, Phase: Committed}, s)
}

func TestToggle_CommitUsesBackendCount(t *testing.T) {
	// Someone else liked the article meanwhile; the backend count wins.
	liker := LikerFunc(func(context.Context, int64, bool) (client.LikeStatus, error) {
		return client.LikeStatus{Liked: true, LikeCount: 42}, nil
	})
	tg := New(1, false, 10, liker)

	s, err := tg.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, s.Count)
}

func TestToggle_RollbackRestoresExactValue(t *testing.T) {
	backendErr := errors.New("backend down")
	liker := LikerFunc(func(context.Context, int64, bool) (client.LikeStatus, error) {
		return client.LikeStatus{}, backendErr
	})

	tests := []struct {
		name  string
		liked bool
		count int
	}{
		{"unliked", false, 7},
		{"liked", true, 7},
		{"liked with zero count", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := New(9, tt.liked, tt.count, liker)

			s, err := tg.Toggle(context.Background())
			require.ErrorIs(t, err, backendErr)

			assert.Equal(t, RolledBack, s.Phase)
			assert.Equal(t, tt.liked, s.Liked)
			assert.Equal(t, tt.count, s.Count)
			assert.ErrorIs(t, s.Err, backendErr)
			assert.Equal(t, s, tg.State())
		})
	}
}

func TestToggle_OptimisticValueVisibleWhilePending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	liker := LikerFunc(func(ctx context.Context, _ int64, liked bool) (client.LikeStatus, error) {
		close(started)
		<-release
		return client.LikeStatus{Liked: liked, LikeCount: 4}, nil
	})
	tg := New(1, false, 3, liker)

	done := make(chan error, 1)
	go func() {
		_, err := tg.Toggle(context.Background())
		done <- err
	}()
	<-started

	s := tg.State()
	assert.Equal(t, Pending, s.Phase)
	assert.True(t, s.Liked)
	assert.Equal(t, 4, s.Count)

	// A second toggle while pending is rejected without changing state.
	s2, err := tg.Toggle(context.Background())
	assert.ErrorIs(t, err, ErrPending)
	assert.Equal(t, s, s2)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, Committed, tg.State().Phase)
}

func TestToggle_UnlikeNeverGoesNegative(t *testing.T) {
	release := make(chan struct{})
	var seen []State
	var mu sync.Mutex

	liker := LikerFunc(func(context.Context, int64, bool) (client.LikeStatus, error) {
		<-release
		return client.LikeStatus{}, nil
	})
	tg := New(1, true, 0, liker)
	tg.OnChange(func(s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	close(release)
	_, err := tg.Toggle(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, State{Liked: false, Count: 0, Phase: Pending}, seen[0])
	assert.Equal(t, Committed, seen[1].Phase)
}

func TestToggle_OnChangeOrder(t *testing.T) {
	tg := New(1, false, 1, echoLiker(1))

	var phases []Phase
	tg.OnChange(func(s State) { phases = append(phases, s.Phase) })

	_, err := tg.Toggle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Phase{Pending, Committed}, phases)
}

func TestToggle_ContextPassedToLiker(t *testing.T) {
	liker := LikerFunc(func(ctx context.Context, _ int64, _ bool) (client.LikeStatus, error) {
		<-ctx.Done()
		return client.LikeStatus{}, ctx.Err()
	})
	tg := New(1, false, 0, liker)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s, err := tg.Toggle(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, RolledBack, s.Phase)
	assert.False(t, s.Liked)
}

func TestToggle_WithClient(t *testing.T) {
	mock := testutil.NewMockBlog()
	defer mock.Close()

	var mu sync.Mutex
	liked := false
	mock.SetHandler("/api/articles/3/like", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		liked = r.Method == http.MethodPost
		count := 20
		if liked {
			count = 21
		}
		json.NewEncoder(w).Encode(client.LikeStatus{Liked: liked, LikeCount: count})
	})

	cfg := client.DefaultConfig(mock.URL(), "BeeKeeperTest/1.0")
	c, err := client.New(cfg)
	require.NoError(t, err)

	tg := New(3, false, 20, c)

	s, err := tg.Toggle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, State{Liked: true, Count: 21, Phase: Committed}, s)

	mock.SetResponse("/api/articles/3/like", testutil.NewNotFoundResponse())
	s, err = tg.Toggle(context.Background())
	require.Error(t, err)
	assert.Equal(t, RolledBack, s.Phase)
	assert.True(t, s.Liked)
	assert.Equal(t, 21, s.Count)
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "rolled_back", RolledBack.String())
	assert.Equal(t, "phase(9)", Phase(9).String())
}
