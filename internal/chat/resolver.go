package chat

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/metrics"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RenderedMessage is a message ready for display: markers stripped and one
// card per resolved title.
type RenderedMessage struct {
	Role  Role                  `json:"role"`
	Text  string                `json:"text"`
	Cards []domain.MovieSummary `json:"cards,omitempty"`
}

type TitleState int

const (
	TitleUnseen TitleState = iota
	TitleInFlight
	TitleResolved
	TitleNotFound
)

func (s TitleState) String() string {
	switch s {
	case TitleInFlight:
		return "in_flight"
	case TitleResolved:
		return "resolved"
	case TitleNotFound:
		return "not_found"
	default:
		return "unseen"
	}
}

// Searcher resolves a title to ranked movie matches.
type Searcher interface {
	SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error)
}

const defaultMaxConcurrent = 4

type ResolverConfig struct {
	Searcher Searcher
	Logger   *slog.Logger
	// MaxConcurrent caps simultaneous title lookups.
	MaxConcurrent int64
	// OnResolved runs after a title reaches a terminal state, without the
	// resolver lock held.
	OnResolved func(title string, state TitleState)
}

// Resolver memoizes title lookups for one chat session. A nil entry in
// resolved records a title that has no match.
type Resolver struct {
	mu       sync.Mutex
	resolved map[string]*domain.MovieSummary
	inFlight map[string]struct{}
	closed   bool

	searcher   Searcher
	logger     *slog.Logger
	onResolved func(string, TitleState)
	sem        *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = defaultMaxConcurrent
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		resolved:   make(map[string]*domain.MovieSummary),
		inFlight:   make(map[string]struct{}),
		searcher:   cfg.Searcher,
		logger:     logger,
		onResolved: cfg.OnResolved,
		sem:        semaphore.NewWeighted(limit),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Scan starts one lookup per title referenced by assistant messages that is
// neither memoized nor in flight. It returns the number of lookups started.
func (r *Resolver) Scan(messages []Message) int {
	var titles []string
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0
	}
	for _, msg := range messages {
		if msg.Role != RoleAssistant {
			continue
		}
		for _, title := range ExtractReferences(msg.Content) {
			if _, done := r.resolved[title]; done {
				continue
			}
			if _, busy := r.inFlight[title]; busy {
				continue
			}
			r.inFlight[title] = struct{}{}
			r.wg.Add(1)
			titles = append(titles, title)
		}
	}
	r.mu.Unlock()

	for _, title := range titles {
		go r.resolve(title)
	}
	return len(titles)
}

func (r *Resolver) resolve(title string) {
	defer r.wg.Done()

	movie, err := r.search(title)
	state := TitleResolved
	switch {
	case err != nil:
		state = TitleNotFound
		metrics.ChatResolutionsTotal.WithLabelValues("failed").Inc()
		r.logger.Warn("chat title lookup failed",
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
	case movie == nil:
		state = TitleNotFound
		metrics.ChatResolutionsTotal.WithLabelValues("not_found").Inc()
	default:
		metrics.ChatResolutionsTotal.WithLabelValues("resolved").Inc()
	}

	r.mu.Lock()
	r.resolved[title] = movie
	delete(r.inFlight, title)
	r.mu.Unlock()

	if r.onResolved != nil {
		r.onResolved(title, state)
	}
}

func (r *Resolver) search(title string) (*domain.MovieSummary, error) {
	if err := r.sem.Acquire(r.ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	page, err := r.searcher.SearchMovies(r.ctx, title, 1)
	if err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, nil
	}
	best := page.Results[0]
	return &best, nil
}

// Lookup reports the state of a title and the match when resolved.
func (r *Resolver) Lookup(title string) (TitleState, *domain.MovieSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if movie, ok := r.resolved[title]; ok {
		if movie == nil {
			return TitleNotFound, nil
		}
		copied := *movie
		return TitleResolved, &copied
	}
	if _, ok := r.inFlight[title]; ok {
		return TitleInFlight, nil
	}
	return TitleUnseen, nil
}

// Render strips markers from assistant text and attaches cards for resolved
// titles in order of first appearance. Pending and unmatched titles render
// nothing. User text is returned as typed.
func (r *Resolver) Render(msg Message) RenderedMessage {
	if msg.Role != RoleAssistant {
		return RenderedMessage{Role: msg.Role, Text: msg.Content}
	}
	out := RenderedMessage{Role: msg.Role, Text: StripMarkers(msg.Content)}
	titles := ExtractReferences(msg.Content)
	if len(titles) == 0 {
		return out
	}

	seen := make(map[string]struct{}, len(titles))
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, title := range titles {
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		if movie := r.resolved[title]; movie != nil {
			out.Cards = append(out.Cards, *movie)
		}
	}
	return out
}

func (r *Resolver) RenderAll(messages []Message) []RenderedMessage {
	out := make([]RenderedMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, r.Render(msg))
	}
	return out
}

// Wait blocks until every started lookup has finished.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

// Close cancels outstanding lookups and waits for them.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
