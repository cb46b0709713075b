package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/metrics"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultLanguage = "en-US"
	redisCacheKey   = "lumiere:tmdb:"
	maxBodyBytes    = 2 << 20
)

var ErrNotConfigured = errors.New("tmdb credentials not configured")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
	// RetryAfter is the pause the upstream asked for, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("tmdb %s: HTTP %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("tmdb %s: HTTP %d: %s", e.Endpoint, e.Status, e.Body)
}

// Temporary reports whether a retry may succeed.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

type Client struct {
	apiKey      string
	accessToken string
	baseURL     string
	language    string
	userAgent   string
	http        *http.Client
	redis       *redis.Client
	cacheTTL    time.Duration
	retry       RetryConfig
	group       singleflight.Group
	logger      *slog.Logger
}

type Config struct {
	APIKey      string
	AccessToken string
	BaseURL     string
	Language    string
	UserAgent   string
	Client      *http.Client
	Redis       *redis.Client
	CacheTTL    time.Duration
	Retry       *RetryConfig
	Logger      *slog.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	retry := DefaultRetryConfig()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		accessToken: strings.TrimSpace(cfg.AccessToken),
		baseURL:     strings.TrimRight(baseURL, "/"),
		language:    language,
		userAgent:   strings.TrimSpace(cfg.UserAgent),
		http:        httpClient,
		redis:       cfg.Redis,
		cacheTTL:    cacheTTL,
		retry:       retry,
		logger:      logger,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != "" || c.accessToken != ""
}

func (c *Client) SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error) {
	var out domain.MoviePage
	params := url.Values{
		"query":         {strings.TrimSpace(query)},
		"page":          {strconv.Itoa(normalizePage(page))},
		"include_adult": {"false"},
	}
	err := c.get(ctx, "search_movie", "/search/movie", params, &out)
	return out, err
}

func (c *Client) SearchPeople(ctx context.Context, query string, page int) (domain.PersonPage, error) {
	var out domain.PersonPage
	params := url.Values{
		"query":         {strings.TrimSpace(query)},
		"page":          {strconv.Itoa(normalizePage(page))},
		"include_adult": {"false"},
	}
	err := c.get(ctx, "search_person", "/search/person", params, &out)
	return out, err
}

// Trending returns today's trending movies.
func (c *Client) Trending(ctx context.Context) ([]domain.MovieSummary, error) {
	var out domain.MoviePage
	if err := c.get(ctx, "trending", "/trending/movie/day", url.Values{}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) Popular(ctx context.Context, page int) (domain.MoviePage, error) {
	var out domain.MoviePage
	params := url.Values{"page": {strconv.Itoa(normalizePage(page))}}
	err := c.get(ctx, "popular", "/movie/popular", params, &out)
	return out, err
}

func (c *Client) TopRated(ctx context.Context, page int) (domain.MoviePage, error) {
	var out domain.MoviePage
	params := url.Values{"page": {strconv.Itoa(normalizePage(page))}}
	err := c.get(ctx, "top_rated", "/movie/top_rated", params, &out)
	return out, err
}

func (c *Client) Genres(ctx context.Context) ([]domain.Genre, error) {
	var out struct {
		Genres []domain.Genre `json:"genres"`
	}
	if err := c.get(ctx, "genres", "/genre/movie/list", url.Values{}, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

func (c *Client) Discover(ctx context.Context, filter domain.DiscoverFilter) (domain.MoviePage, error) {
	var out domain.MoviePage
	err := c.get(ctx, "discover", "/discover/movie", discoverParams(filter), &out)
	return out, err
}

func discoverParams(filter domain.DiscoverFilter) url.Values {
	params := url.Values{
		"page":          {strconv.Itoa(normalizePage(filter.Page))},
		"include_adult": {"false"},
	}
	sortBy := strings.TrimSpace(filter.SortBy)
	if sortBy == "" {
		sortBy = "popularity.desc"
	}
	params.Set("sort_by", sortBy)
	if v := strings.TrimSpace(filter.Language); v != "" {
		params.Set("with_original_language", v)
	}
	if v := strings.TrimSpace(filter.ReleaseDateGTE); v != "" {
		params.Set("primary_release_date.gte", v)
	}
	if v := strings.TrimSpace(filter.ReleaseDateLTE); v != "" {
		params.Set("primary_release_date.lte", v)
	}
	if filter.MinVotes > 0 {
		params.Set("vote_count.gte", strconv.Itoa(filter.MinVotes))
	}
	if v := strings.TrimSpace(filter.GenreID); v != "" {
		params.Set("with_genres", v)
	}
	return params
}

// Details fetches a movie with its credits and videos in one request.
func (c *Client) Details(ctx context.Context, id int) (domain.MovieDetails, error) {
	var raw struct {
		domain.MovieSummary
		Runtime  int            `json:"runtime"`
		Tagline  string         `json:"tagline"`
		Status   string         `json:"status"`
		Genres   []domain.Genre `json:"genres"`
		Homepage string         `json:"homepage"`
		Credits  domain.Credits `json:"credits"`
		Videos   struct {
			Results []domain.Video `json:"results"`
		} `json:"videos"`
	}
	if id <= 0 {
		return domain.MovieDetails{}, domain.ErrInvalidInput
	}
	params := url.Values{"append_to_response": {"credits,videos"}}
	if err := c.get(ctx, "details", "/movie/"+strconv.Itoa(id), params, &raw); err != nil {
		return domain.MovieDetails{}, err
	}
	return domain.MovieDetails{
		MovieSummary: raw.MovieSummary,
		Runtime:      raw.Runtime,
		Tagline:      raw.Tagline,
		Status:       raw.Status,
		Genres:       raw.Genres,
		Homepage:     raw.Homepage,
		Credits:      raw.Credits,
		Videos:       raw.Videos.Results,
	}, nil
}

// Reviews returns the provider's own reviews for a movie.
func (c *Client) Reviews(ctx context.Context, id int, page int) ([]domain.ExternalReview, error) {
	var raw struct {
		Results []struct {
			ID            string `json:"id"`
			Author        string `json:"author"`
			Content       string `json:"content"`
			CreatedAt     string `json:"created_at"`
			URL           string `json:"url"`
			AuthorDetails struct {
				Rating *float64 `json:"rating"`
			} `json:"author_details"`
		} `json:"results"`
	}
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	params := url.Values{"page": {strconv.Itoa(normalizePage(page))}}
	if err := c.get(ctx, "reviews", "/movie/"+strconv.Itoa(id)+"/reviews", params, &raw); err != nil {
		return nil, err
	}
	out := make([]domain.ExternalReview, 0, len(raw.Results))
	for _, r := range raw.Results {
		review := domain.ExternalReview{
			ID:        r.ID,
			Author:    r.Author,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
			URL:       r.URL,
		}
		if r.AuthorDetails.Rating != nil {
			review.Rating = *r.AuthorDetails.Rating
		}
		out = append(out, review)
	}
	return out, nil
}

// MovieTitle resolves a movie id to its title.
func (c *Client) MovieTitle(ctx context.Context, id int) (string, error) {
	var raw struct {
		Title string `json:"title"`
	}
	if err := c.get(ctx, "details", "/movie/"+strconv.Itoa(id), url.Values{}, &raw); err != nil {
		return "", err
	}
	return raw.Title, nil
}

// get performs a cached, deduplicated and retried GET and decodes the body into dest.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, dest any) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	if params.Get("language") == "" {
		params.Set("language", c.language)
	}
	key := path + "?" + params.Encode()

	if body, ok := c.cacheGet(ctx, key); ok {
		return json.Unmarshal(body, dest)
	}

	// The shared fetch ignores caller cancellation; each caller stops
	// waiting on its own ctx.
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout())
		defer cancel()
		var body []byte
		err := RetryWithBackoff(flightCtx, c.retry, func() error {
			var fetchErr error
			body, fetchErr = c.fetch(flightCtx, endpoint, path, params)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}
		c.cacheSet(flightCtx, key, body)
		return body, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return res.Err
	}
	if err := json.Unmarshal(res.Val.([]byte), dest); err != nil {
		return fmt.Errorf("tmdb %s: decode: %w", endpoint, err)
	}
	return nil
}

// flightTimeout bounds a shared fetch: every attempt at the client timeout
// plus the backoff between them.
func (c *Client) flightTimeout() time.Duration {
	perAttempt := c.http.Timeout
	if perAttempt <= 0 {
		perAttempt = 10 * time.Second
	}
	attempts := max(c.retry.MaxAttempts, 1)
	return time.Duration(attempts)*perAttempt + time.Duration(attempts-1)*c.retry.MaxDelay
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	query := cloneValues(params)
	if c.accessToken == "" {
		query.Set("api_key", c.apiKey)
	}
	reqURL := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.TMDBRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TMDBRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	defer resp.Body.Close()
	metrics.TMDBRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Debug("tmdb request failed", slog.String("endpoint", endpoint), slog.Int("status", resp.StatusCode))
		return nil, &StatusError{
			Endpoint:   endpoint,
			Status:     resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		}
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, redisCacheKey+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("tmdb cache read failed", slog.String("error", err.Error()))
		}
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return data, true
}

func (c *Client) cacheSet(ctx context.Context, key string, body []byte) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, redisCacheKey+key, body, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("tmdb cache write failed", slog.String("error", err.Error()))
	}
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	// The provider rejects pages beyond 500.
	if page > 500 {
		return 500
	}
	return page
}
