package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/daat21/lumiere/internal/domain"
)

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

// fakeClock records armed timers and fires them on demand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return &fakeTimerHandle{clock: c, timer: t}
}

type fakeTimerHandle struct {
	clock *fakeClock
	timer *fakeTimer
}

func (h *fakeTimerHandle) Stop() bool {
	h.clock.mu.Lock()
	defer h.clock.mu.Unlock()
	if h.timer.stopped || h.timer.fired {
		return false
	}
	h.timer.stopped = true
	return true
}

// Pending reports armed timers that were neither stopped nor fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Fire runs every pending timer synchronously.
func (c *fakeClock) Fire() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fakeSource struct {
	mu            sync.Mutex
	movieQueries  []string
	personQueries []string
	trendingCalls int

	movies   map[string][]domain.MovieSummary
	people   map[string][]domain.Person
	trending []domain.MovieSummary
	err      error

	// gates blocks movie lookups for a query until the channel is closed.
	gates map[string]chan struct{}
	// started receives the query of every movie lookup.
	started chan string
	// ignoreCancel makes gated lookups finish with results even after
	// their context is cancelled.
	ignoreCancel bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		movies: map[string][]domain.MovieSummary{},
		people: map[string][]domain.Person{},
		gates:  map[string]chan struct{}{},
	}
}

func (s *fakeSource) SearchMovies(ctx context.Context, query string, _ int) (domain.MoviePage, error) {
	s.mu.Lock()
	s.movieQueries = append(s.movieQueries, query)
	gate := s.gates[query]
	started := s.started
	err := s.err
	results := s.movies[query]
	s.mu.Unlock()

	if started != nil {
		started <- query
	}
	if gate != nil {
		if s.ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return domain.MoviePage{}, ctx.Err()
			}
		}
	}
	if err != nil {
		return domain.MoviePage{}, err
	}
	return domain.MoviePage{Page: 1, TotalPages: 1, Results: results}, nil
}

func (s *fakeSource) SearchPeople(_ context.Context, query string, _ int) (domain.PersonPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personQueries = append(s.personQueries, query)
	if s.err != nil {
		return domain.PersonPage{}, s.err
	}
	return domain.PersonPage{Page: 1, TotalPages: 1, Results: s.people[query]}, nil
}

func (s *fakeSource) Trending(context.Context) ([]domain.MovieSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trendingCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.trending, nil
}

func (s *fakeSource) counts() (movies, people, trending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movieQueries), len(s.personQueries), s.trendingCalls
}

var errUpstream = errors.New("upstream unavailable")

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
