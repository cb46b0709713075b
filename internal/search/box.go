package search

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/metrics"
)

const (
	DefaultDebounce      = 1500 * time.Millisecond
	DefaultTrendingLimit = 10
)

type Category string

const (
	CategoryMovie  Category = "movie"
	CategoryPeople Category = "people"
)

func (c Category) Valid() bool {
	return c == CategoryMovie || c == CategoryPeople
}

var (
	ErrDropdownClosed  = errors.New("dropdown is closed")
	ErrInvalidCategory = errors.New("invalid suggestion category")
)

// Navigation is where the client should go after a submit or a selection.
type Navigation struct {
	Query string   `json:"query"`
	Type  Category `json:"type"`
}

func (n Navigation) URL() string {
	values := url.Values{
		"query": {n.Query},
		"type":  {string(n.Type)},
	}
	return "/search?" + values.Encode()
}

type BoxConfig struct {
	Source        Source
	Debounce      time.Duration
	AfterFunc     AfterFunc
	TrendingLimit int
	Logger        *slog.Logger
	// OnUpdate runs after every state change that alters the dropdown.
	// It is called without the box lock held and never concurrently with
	// itself, so snapshots taken inside it are delivered in order.
	OnUpdate func()
}

// Box is the state of one interactive search input. All methods are safe for
// concurrent use.
type Box struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	source        Source
	debouncer     *Debouncer
	trendingLimit int
	logger        *slog.Logger
	onUpdate      func()

	ctx       context.Context
	cancelAll context.CancelFunc

	query           string
	suggestions     Suggestions
	trending        []domain.MovieSummary
	open            bool
	trendingStarted bool
	loadingTrending bool
	searching       bool
	seq             uint64
	cancelLookup    context.CancelFunc
	closed          bool
}

func NewBox(cfg BoxConfig) *Box {
	delay := cfg.Debounce
	if delay <= 0 {
		delay = DefaultDebounce
	}
	limit := cfg.TrendingLimit
	if limit <= 0 {
		limit = DefaultTrendingLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Box{
		source:        cfg.Source,
		debouncer:     NewDebouncer(delay, cfg.AfterFunc),
		trendingLimit: limit,
		logger:        logger,
		onUpdate:      cfg.OnUpdate,
		ctx:           ctx,
		cancelAll:     cancel,
	}
}

func (b *Box) Query() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.query
}

// Focus opens the dropdown and starts the one-time trending fetch when the
// query is empty.
func (b *Box) Focus() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.open = true
	fetch := b.query == "" && len(b.trending) == 0 && !b.trendingStarted
	if fetch {
		b.trendingStarted = true
		b.loadingTrending = true
	}
	b.mu.Unlock()

	if fetch {
		go b.fetchTrending()
	}
	b.notify()
}

func (b *Box) fetchTrending() {
	movies, err := b.source.Trending(b.ctx)

	b.mu.Lock()
	b.loadingTrending = false
	if err != nil {
		metrics.TrendingFetchesTotal.WithLabelValues("failed").Inc()
		b.logger.Warn("trending fetch failed", slog.String("error", err.Error()))
	} else {
		metrics.TrendingFetchesTotal.WithLabelValues("ok").Inc()
		if len(movies) > b.trendingLimit {
			movies = movies[:b.trendingLimit]
		}
		b.trending = movies
	}
	closed := b.closed
	b.mu.Unlock()

	if !closed {
		b.notify()
	}
}

// Change stores text as the current query and reschedules the debounced
// lookup. Blank text drops the pending lookup and clears both result lists.
func (b *Box) Change(text string) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.query = text
	b.open = true
	b.seq++
	seq := b.seq
	if b.cancelLookup != nil {
		b.cancelLookup()
		b.cancelLookup = nil
	}
	blank := strings.TrimSpace(text) == ""
	if blank {
		b.suggestions = Suggestions{}
		b.searching = false
	}
	b.mu.Unlock()

	if blank {
		b.debouncer.Cancel()
		metrics.SuggestLookupsTotal.WithLabelValues("cleared").Inc()
	} else {
		b.debouncer.Schedule(func() { b.lookup(seq) })
	}
	b.notify()
}

func (b *Box) lookup(seq uint64) {
	b.mu.Lock()
	if b.closed || seq != b.seq {
		b.mu.Unlock()
		return
	}
	query := b.query
	ctx, cancel := context.WithCancel(b.ctx)
	b.cancelLookup = cancel
	b.searching = true
	b.mu.Unlock()
	b.notify()

	result, err := Suggest(ctx, b.source, query)
	cancel()

	b.mu.Lock()
	if b.closed || seq != b.seq {
		b.mu.Unlock()
		metrics.SuggestLookupsTotal.WithLabelValues("discarded").Inc()
		return
	}
	b.cancelLookup = nil
	b.searching = false
	if err != nil {
		b.suggestions = Suggestions{}
		b.mu.Unlock()
		metrics.SuggestLookupsTotal.WithLabelValues("failed").Inc()
		b.logger.Warn("search suggestions failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		b.notify()
		return
	}
	b.suggestions = result
	b.mu.Unlock()
	metrics.SuggestLookupsTotal.WithLabelValues("applied").Inc()
	b.notify()
}

// Submit commits the literal query as a movie search.
func (b *Box) Submit() Navigation {
	b.mu.Lock()
	b.open = false
	nav := Navigation{Query: b.query, Type: CategoryMovie}
	b.mu.Unlock()
	b.notify()
	return nav
}

// Select commits a suggestion. The dropdown must still be open, which is why
// clients send select before blur.
func (b *Box) Select(text string, category Category) (Navigation, error) {
	if !category.Valid() {
		return Navigation{}, ErrInvalidCategory
	}
	b.mu.Lock()
	if !b.open {
		b.mu.Unlock()
		return Navigation{}, ErrDropdownClosed
	}
	b.open = false
	b.mu.Unlock()
	b.notify()
	return Navigation{Query: text, Type: category}, nil
}

func (b *Box) Blur() {
	b.mu.Lock()
	b.open = false
	b.mu.Unlock()
	b.notify()
}

// Close stops the debounce timer and cancels in-flight lookups.
func (b *Box) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.open = false
	b.mu.Unlock()

	b.debouncer.Stop()
	b.cancelAll()
}

func (b *Box) notify() {
	if b.onUpdate == nil {
		return
	}
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()
	b.onUpdate()
}
