package chat

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/daat21/lumiere/internal/domain"
)

type fakeSearcher struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string][]domain.MovieSummary
	errs    map[string]error
	gate    chan struct{}
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		calls:   map[string]int{},
		results: map[string][]domain.MovieSummary{},
		errs:    map[string]error{},
	}
}

func (f *fakeSearcher) SearchMovies(ctx context.Context, query string, _ int) (domain.MoviePage, error) {
	f.mu.Lock()
	f.calls[query]++
	gate := f.gate
	results, err := f.results[query], f.errs[query]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.MoviePage{}, ctx.Err()
		}
	}
	if err != nil {
		return domain.MoviePage{}, err
	}
	return domain.MoviePage{Page: 1, Results: results}, nil
}

func (f *fakeSearcher) callCount(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query]
}

func assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

func TestResolverLooksUpEachTitleOnce(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["Inception"] = []domain.MovieSummary{{ID: 27205, Title: "Inception"}}
	r := NewResolver(ResolverConfig{Searcher: searcher})
	defer r.Close()

	msgs := []Message{assistant("[MOVIE_SEARCH:Inception] and again [MOVIE_SEARCH:Inception]")}
	if started := r.Scan(msgs); started != 1 {
		t.Fatalf("expected one lookup started, got %d", started)
	}
	r.Wait()
	r.Scan(msgs)
	r.Scan(append(msgs, assistant("[MOVIE_SEARCH:Inception]")))
	r.Wait()

	if calls := searcher.callCount("Inception"); calls != 1 {
		t.Fatalf("expected one lookup, got %d", calls)
	}
	state, movie := r.Lookup("Inception")
	if state != TitleResolved || movie == nil || movie.ID != 27205 {
		t.Fatalf("unexpected lookup state %v %+v", state, movie)
	}
}

func TestResolverIgnoresUserMessages(t *testing.T) {
	searcher := newFakeSearcher()
	r := NewResolver(ResolverConfig{Searcher: searcher})
	defer r.Close()

	if started := r.Scan([]Message{{Role: RoleUser, Content: "[MOVIE_SEARCH:Heat]"}}); started != 0 {
		t.Fatalf("user markers must not trigger lookups, started %d", started)
	}
	if state, _ := r.Lookup("Heat"); state != TitleUnseen {
		t.Fatalf("expected unseen, got %v", state)
	}
}

func TestResolverNotFoundIsTerminal(t *testing.T) {
	searcher := newFakeSearcher()
	r := NewResolver(ResolverConfig{Searcher: searcher})
	defer r.Close()

	msg := assistant("Try [MOVIE_SEARCH:NonexistentMovieXYZ]")
	r.Scan([]Message{msg})
	r.Wait()

	rendered := r.Render(msg)
	if len(rendered.Cards) != 0 {
		t.Fatalf("expected no cards, got %+v", rendered.Cards)
	}
	r.Scan([]Message{msg})
	r.Wait()
	if calls := searcher.callCount("NonexistentMovieXYZ"); calls != 1 {
		t.Fatalf("expected no repeat lookup, got %d calls", calls)
	}
	if state, _ := r.Lookup("NonexistentMovieXYZ"); state != TitleNotFound {
		t.Fatalf("expected not found, got %v", state)
	}
}

func TestResolverFailureStoresNotFound(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.errs["Heat"] = errors.New("tmdb down")
	var mu sync.Mutex
	var outcomes []TitleState
	r := NewResolver(ResolverConfig{
		Searcher: searcher,
		OnResolved: func(_ string, state TitleState) {
			mu.Lock()
			outcomes = append(outcomes, state)
			mu.Unlock()
		},
	})
	defer r.Close()

	r.Scan([]Message{assistant("[MOVIE_SEARCH:Heat]")})
	r.Wait()

	if state, _ := r.Lookup("Heat"); state != TitleNotFound {
		t.Fatalf("expected not found after failure, got %v", state)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(outcomes) != 1 || outcomes[0] != TitleNotFound {
		t.Fatalf("unexpected callbacks %v", outcomes)
	}
}

func TestResolverInFlightAndRender(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.gate = make(chan struct{})
	searcher.results["Dune"] = []domain.MovieSummary{{ID: 438631, Title: "Dune"}, {ID: 841, Title: "Dune"}}
	searcher.results["Alien"] = []domain.MovieSummary{{ID: 348, Title: "Alien"}}
	r := NewResolver(ResolverConfig{Searcher: searcher})
	defer r.Close()

	msg := assistant("I recommend: [MOVIE_SEARCH:Dune] [MOVIE_SEARCH:Missing] [MOVIE_SEARCH:Alien] Enjoy!")
	r.Scan([]Message{msg})
	if state, _ := r.Lookup("Dune"); state != TitleInFlight {
		t.Fatalf("expected in flight, got %v", state)
	}
	// A second scan while in flight starts nothing.
	if started := r.Scan([]Message{msg}); started != 0 {
		t.Fatalf("expected no new lookups, got %d", started)
	}
	if pending := r.Render(msg); len(pending.Cards) != 0 {
		t.Fatalf("pending titles must render no cards, got %+v", pending.Cards)
	}

	close(searcher.gate)
	r.Wait()

	rendered := r.Render(msg)
	if rendered.Text != "I recommend:    Enjoy!" {
		t.Fatalf("unexpected text %q", rendered.Text)
	}
	if len(rendered.Cards) != 2 || rendered.Cards[0].ID != 438631 || rendered.Cards[1].ID != 348 {
		t.Fatalf("unexpected cards %+v", rendered.Cards)
	}
}

func TestRenderKeepsUserTextAsTyped(t *testing.T) {
	r := NewResolver(ResolverConfig{Searcher: newFakeSearcher()})
	defer r.Close()

	text := "Loved these [MOVIE_SEARCH:Heat]\n\nRecommended Movies: any more?"
	rendered := r.Render(Message{Role: RoleUser, Content: text})
	if rendered.Text != text || len(rendered.Cards) != 0 {
		t.Fatalf("user message altered: %+v", rendered)
	}
	if got := r.Render(assistant(text)).Text; got != "Loved these " {
		t.Fatalf("assistant text should be stripped, got %q", got)
	}
}

func TestResolverCloseCancelsLookups(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.gate = make(chan struct{})
	r := NewResolver(ResolverConfig{Searcher: searcher})

	r.Scan([]Message{assistant("[MOVIE_SEARCH:Heat]")})
	r.Close()

	if state, _ := r.Lookup("Heat"); state != TitleNotFound {
		t.Fatalf("expected cancelled lookup to settle as not found, got %v", state)
	}
	if started := r.Scan([]Message{assistant("[MOVIE_SEARCH:Ronin]")}); started != 0 {
		t.Fatalf("closed resolver started %d lookups", started)
	}
}

func TestTitleStateString(t *testing.T) {
	for state, want := range map[TitleState]string{
		TitleUnseen:   "unseen",
		TitleInFlight: "in_flight",
		TitleResolved: "resolved",
		TitleNotFound: "not_found",
	} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
