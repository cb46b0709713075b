package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/daat21/lumiere/internal/chat"
	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/search"
	"github.com/daat21/lumiere/internal/usecase"
)

// MovieCatalog is the metadata provider surface the handlers and sessions use.
type MovieCatalog interface {
	Enabled() bool
	SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error)
	SearchPeople(ctx context.Context, query string, page int) (domain.PersonPage, error)
	Trending(ctx context.Context) ([]domain.MovieSummary, error)
	Popular(ctx context.Context, page int) (domain.MoviePage, error)
	TopRated(ctx context.Context, page int) (domain.MoviePage, error)
	Genres(ctx context.Context) ([]domain.Genre, error)
	Discover(ctx context.Context, filter domain.DiscoverFilter) (domain.MoviePage, error)
	Details(ctx context.Context, id int) (domain.MovieDetails, error)
}

type RegisterUseCase interface {
	Execute(ctx context.Context, input usecase.RegisterInput) (domain.User, error)
}

type LoginUseCase interface {
	Execute(ctx context.Context, login, password string) (usecase.Session, error)
}

type RefreshSessionUseCase interface {
	Execute(ctx context.Context, refreshToken string) (usecase.Session, error)
}

type AuthenticateUseCase interface {
	Execute(ctx context.Context, accessToken string) (domain.User, error)
}

type UpdateProfileUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, input usecase.ProfileInput) (domain.User, error)
}

type ChangePasswordUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, input usecase.ChangePasswordInput) error
}

type GetWatchlistUseCase interface {
	Execute(ctx context.Context, userID domain.UserID) (domain.Watchlist, error)
}

type WatchlistContainsUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, movieID int) (bool, error)
}

type AddToWatchlistUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, input usecase.AddToWatchlistInput) (domain.Watchlist, error)
}

type RemoveFromWatchlistUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, movieID int) error
}

type CreateReviewUseCase interface {
	Execute(ctx context.Context, user domain.User, movieID int, input usecase.ReviewInput) (domain.Review, error)
}

type UpdateReviewUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, reviewID string, input usecase.ReviewInput) (domain.Review, error)
}

type DeleteReviewUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, reviewID string) error
}

type ListMovieReviewsUseCase interface {
	Execute(ctx context.Context, movieID int, filter domain.ReviewFilter) (usecase.MovieReviews, error)
}

type ListUserReviewsUseCase interface {
	Execute(ctx context.Context, userID domain.UserID, filter domain.ReviewFilter) ([]domain.Review, error)
}

// Accounts groups the account usecases. A nil Accounts disables the
// /api/auth and /api/users routes.
type Accounts struct {
	Register       RegisterUseCase
	Login          LoginUseCase
	Refresh        RefreshSessionUseCase
	Authenticate   AuthenticateUseCase
	UpdateProfile  UpdateProfileUseCase
	ChangePassword ChangePasswordUseCase
}

type Watchlists struct {
	Get      GetWatchlistUseCase
	Contains WatchlistContainsUseCase
	Add      AddToWatchlistUseCase
	Remove   RemoveFromWatchlistUseCase
}

type Reviews struct {
	Create      CreateReviewUseCase
	Update      UpdateReviewUseCase
	Delete      DeleteReviewUseCase
	ListByMovie ListMovieReviewsUseCase
	ListByUser  ListUserReviewsUseCase
}

// CookieConfig controls the session cookies set on login.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type Server struct {
	catalog        MovieCatalog
	completer      chat.Completer
	accounts       *Accounts
	watchlists     *Watchlists
	reviews        *Reviews
	cookies        CookieConfig
	debounce       time.Duration
	trendingLimit  int
	allowedOrigins []string
	rateRPS        float64
	rateBurst      int
	authPerMinute  float64
	authBurst      int
	imageClient    *http.Client
	imageBase      string
	gatherer       prometheus.Gatherer
	logger         *slog.Logger
	sessions       *sessionHub
}

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithCompleter(completer chat.Completer) ServerOption {
	return func(s *Server) {
		s.completer = completer
	}
}

func WithAccounts(accounts Accounts) ServerOption {
	return func(s *Server) {
		s.accounts = &accounts
	}
}

func WithWatchlists(watchlists Watchlists) ServerOption {
	return func(s *Server) {
		s.watchlists = &watchlists
	}
}

func WithReviews(reviews Reviews) ServerOption {
	return func(s *Server) {
		s.reviews = &reviews
	}
}

func WithCookies(cfg CookieConfig) ServerOption {
	return func(s *Server) {
		s.cookies = cfg
	}
}

// WithSearchBox configures the boxes created for /ws/search connections.
func WithSearchBox(debounce time.Duration, trendingLimit int) ServerOption {
	return func(s *Server) {
		s.debounce = debounce
		s.trendingLimit = trendingLimit
	}
}

func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateRPS = rps
		s.rateBurst = burst
	}
}

// WithAuthRateLimit sets the per-client budget for login and register
// attempts. A non-positive rate disables it.
func WithAuthRateLimit(perMinute float64, burst int) ServerOption {
	return func(s *Server) {
		s.authPerMinute = perMinute
		s.authBurst = burst
	}
}

func WithImageClient(client *http.Client) ServerOption {
	return func(s *Server) {
		s.imageClient = client
	}
}

func WithGatherer(gatherer prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

func NewServer(catalog MovieCatalog, options ...ServerOption) *Server {
	server := &Server{
		catalog:       catalog,
		debounce:      search.DefaultDebounce,
		trendingLimit: search.DefaultTrendingLimit,
		rateRPS:       50,
		rateBurst:     100,
		authPerMinute: 5,
		authBurst:     5,
		cookies: CookieConfig{
			Secure:     true,
			AccessTTL:  30 * time.Minute,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	if server.imageClient == nil {
		server.imageClient = newImageProxyClient()
	}
	server.sessions = newSessionHub(server.logger)
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	} else {
		mux.Handle("/metrics", promhttp.Handler())
	}

	mux.HandleFunc("/api/movies/", s.handleMovies)
	mux.HandleFunc("/api/genres", s.handleGenres)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/search/suggest", s.handleSuggest)
	mux.HandleFunc("/api/movie-search", s.handleMovieSearch)
	mux.HandleFunc("/api/image", s.handleImageProxy)

	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/chat/initial", s.handleChatInitial)

	mux.HandleFunc("/api/auth/", s.handleAuth)
	mux.HandleFunc("/api/users/me", s.handleMe)
	mux.HandleFunc("/api/users/me/", s.handleMe)
	mux.HandleFunc("/api/watchlist", s.handleWatchlist)
	mux.HandleFunc("/api/watchlist/", s.handleWatchlist)
	mux.HandleFunc("/api/reviews/", s.handleReviewByID)

	mux.HandleFunc("/ws/search", s.handleSearchSession)
	mux.HandleFunc("/ws/chat", s.handleChatSession)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "lumiere",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger,
		corsMiddleware(s.allowedOrigins,
			rateLimitMiddleware(s.rateRPS, s.rateBurst,
				authRateLimitMiddleware(s.authPerMinute, s.authBurst, metricsMiddleware(traced)))))
}

// Close disconnects every open websocket session.
func (s *Server) Close() {
	s.sessions.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"tmdb":      s.catalog != nil && s.catalog.Enabled(),
		"chat":      s.completer != nil,
		"accounts":  s.accounts != nil,
		"sessions":  s.sessions.Count(),
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) catalogReady(w http.ResponseWriter) bool {
	if s.catalog == nil || !s.catalog.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "movie metadata provider is not configured")
		return false
	}
	return true
}

func trimPathPrefix(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
