// Package like implements the optimistic like button as an explicit state
// machine: Idle → Pending → Committed | RolledBack.
//
// Toggle applies the new value immediately, asks the backend to persist it
// and then either commits the backend's answer or restores the exact value
// held before the toggle.
package like

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrPending is returned by Toggle while a previous toggle is unconfirmed.
var ErrPending = errors.New("like toggle pending")

var togglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "blog_like_toggles_total",
	Help: "Like toggles by outcome (committed, rolled_back, rejected)",
}, []string{"outcome"})

// Phase is the position of a Toggle in its state machine.
type Phase int

const (
	// Idle: no toggle has been attempted yet.
	Idle Phase = iota
	// Pending: the optimistic value is shown, the backend has not answered.
	Pending
	// Committed: the backend confirmed the last toggle.
	Committed
	// RolledBack: the backend rejected the last toggle and the previous
	// value was restored.
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Liker persists a like on the backend. *client.Client implements it.
type Liker interface {
	LikeArticle(ctx context.Context, articleID int64, liked bool) (client.LikeStatus, error)
}

// LikerFunc adapts a function to Liker.
type LikerFunc func(ctx context.Context, articleID int64, liked bool) (client.LikeStatus, error)

// LikeArticle implements Liker.
func (f LikerFunc) LikeArticle(ctx context.Context, articleID int64, liked bool) (client.LikeStatus, error) {
	return f(ctx, articleID, liked)
}

// State is what a like button renders.
type State struct {
	Liked bool
	Count int
	Phase Phase
	// Err is the backend error of the last rolled back toggle.
	Err error
}

// Toggle is the like state of one article.
type Toggle struct {
	articleID int64
	liker     Liker
	logger    zerolog.Logger

	mu       sync.Mutex
	state    State
	onChange func(State)
}

// New returns a Toggle in the Idle phase showing liked and count.
func New(articleID int64, liked bool, count int, liker Liker) *Toggle {
	return &Toggle{
		articleID: articleID,
		liker:     liker,
		logger:    log.With().Str("component", "like").Int64("article_id", articleID).Logger(),
		state:     State{Liked: liked, Count: max(count, 0), Phase: Idle},
	}
}

// OnChange registers fn to receive every state transition.
func (t *Toggle) OnChange(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// State returns the current state.
func (t *Toggle) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Toggle flips the like. It returns ErrPending without side effects while
// an earlier toggle is unconfirmed. On backend failure the state before
// the call is restored, the phase becomes RolledBack and the backend error
// is returned.
func (t *Toggle) Toggle(ctx context.Context) (State, error) {
	t.mu.Lock()
	if t.state.Phase == Pending {
		t.mu.Unlock()
		togglesTotal.WithLabelValues("rejected").Inc()
		return t.State(), ErrPending
	}

	previous := t.state
	optimistic := State{Liked: !previous.Liked, Count: previous.Count, Phase: Pending}
	if optimistic.Liked {
		optimistic.Count++
	} else {
		optimistic.Count = max(optimistic.Count-1, 0)
	}
	t.state = optimistic
	onChange := t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(optimistic)
	}

	status, err := t.liker.LikeArticle(ctx, t.articleID, optimistic.Liked)

	t.mu.Lock()
	var next State
	if err != nil {
		next = State{Liked: previous.Liked, Count: previous.Count, Phase: RolledBack, Err: err}
		togglesTotal.WithLabelValues("rolled_back").Inc()
		t.logger.Warn().Err(err).Bool("liked", optimistic.Liked).Msg("Like rolled back")
	} else {
		next = State{Liked: status.Liked, Count: max(status.LikeCount, 0), Phase: Committed}
		togglesTotal.WithLabelValues("committed").Inc()
		t.logger.Debug().Bool("liked", next.Liked).Int("count", next.Count).Msg("Like committed")
	}
	t.state = next
	onChange = t.onChange
	t.mu.Unlock()

	if onChange != nil {
		onChange(next)
	}
	return next, err
}
