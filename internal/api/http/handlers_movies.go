package apihttp

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/pagination"
	"github.com/daat21/lumiere/internal/search"
)

const maxQueryLength = 500

// paginationView is the page control model attached to every paged listing.
type paginationView struct {
	Window pagination.Window `json:"window"`
	Links  []pagination.Link `json:"links"`
}

type moviePageResponse struct {
	domain.MoviePage
	Pagination paginationView `json:"pagination"`
}

type searchResponse struct {
	Query        string          `json:"query"`
	Type         search.Category `json:"type"`
	Page         int             `json:"page"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int             `json:"total_results"`
	Results      any             `json:"results"`
	Pagination   paginationView  `json:"pagination"`
}

// buildPagination derives the window from the viewport query parameter. A
// request without a viewport width is treated like a fresh client, which
// starts out classified as mobile.
func buildPagination(r *http.Request, current, total int) paginationView {
	viewport := pagination.NewViewport()
	if raw := strings.TrimSpace(r.URL.Query().Get("viewport")); raw != "" {
		if width, err := strconv.Atoi(raw); err == nil && width > 0 {
			viewport.Report(width)
		}
	}
	window := pagination.Compute(current, total, viewport.Mobile())
	return paginationView{Window: window, Links: pagination.Links(window, linkQuery(r.URL.Query()))}
}

// linkQuery drops the transport-only viewport parameter from page links.
func linkQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		if k == "viewport" {
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Server) writeMoviePage(w http.ResponseWriter, r *http.Request, page domain.MoviePage) {
	if page.Results == nil {
		page.Results = []domain.MovieSummary{}
	}
	writeJSON(w, http.StatusOK, moviePageResponse{
		MoviePage:  page,
		Pagination: buildPagination(r, page.Page, page.TotalPages),
	})
}

func (s *Server) handleMovies(w http.ResponseWriter, r *http.Request) {
	parts := trimPathPrefix(r.URL.Path, "/api/movies/")
	if len(parts) == 0 {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 2 && parts[1] == "reviews" {
		id, ok := parseMovieID(parts[0])
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid movie id")
			return
		}
		switch r.Method {
		case http.MethodGet:
			s.handleListMovieReviews(w, r, id)
		case http.MethodPost:
			s.handleCreateReview(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.catalogReady(w) {
		return
	}

	switch parts[0] {
	case "popular", "top-rated":
		page, err := parsePositiveInt(r, "page", 1)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		var result domain.MoviePage
		if parts[0] == "popular" {
			result, err = s.catalog.Popular(r.Context(), page)
		} else {
			result, err = s.catalog.TopRated(r.Context(), page)
		}
		if err != nil {
			s.logCatalogError(r, parts[0], err)
			writeUseCaseError(w, err)
			return
		}
		s.writeMoviePage(w, r, result)
	case "trending":
		movies, err := s.catalog.Trending(r.Context())
		if err != nil {
			s.logCatalogError(r, "trending", err)
			writeUseCaseError(w, err)
			return
		}
		if movies == nil {
			movies = []domain.MovieSummary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": movies})
	case "discover":
		s.handleDiscover(w, r)
	default:
		id, ok := parseMovieID(parts[0])
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid movie id")
			return
		}
		details, err := s.catalog.Details(r.Context(), id)
		if err != nil {
			s.logCatalogError(r, "details", err)
			writeUseCaseError(w, err)
			return
		}
		trailer, hasTrailer := details.Trailer()
		response := map[string]any{
			"movie":     details,
			"directors": details.Credits.Directors(),
		}
		if hasTrailer {
			response["trailer"] = trailer
		}
		writeJSON(w, http.StatusOK, response)
	}
}

func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	minVotes, err := parseNonNegativeInt(r, "min_votes", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	filter := domain.DiscoverFilter{
		SortBy:         strings.TrimSpace(q.Get("sort_by")),
		Language:       strings.TrimSpace(q.Get("language")),
		ReleaseDateGTE: strings.TrimSpace(q.Get("release_date_gte")),
		ReleaseDateLTE: strings.TrimSpace(q.Get("release_date_lte")),
		MinVotes:       minVotes,
		GenreID:        strings.TrimSpace(q.Get("genre_id")),
		Page:           page,
	}
	result, err := s.catalog.Discover(r.Context(), filter)
	if err != nil {
		s.logCatalogError(r, "discover", err)
		writeUseCaseError(w, err)
		return
	}
	s.writeMoviePage(w, r, result)
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.catalogReady(w) {
		return
	}
	genres, err := s.catalog.Genres(r.Context())
	if err != nil {
		s.logCatalogError(r, "genres", err)
		writeUseCaseError(w, err)
		return
	}
	if genres == nil {
		genres = []domain.Genre{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	category := search.CategoryMovie
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		category = search.Category(strings.ToLower(raw))
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_request", "type must be movie or people")
			return
		}
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if !s.catalogReady(w) {
		return
	}

	response := searchResponse{Query: query, Type: category}
	if category == search.CategoryPeople {
		result, err := s.catalog.SearchPeople(r.Context(), query, page)
		if err != nil {
			s.logCatalogError(r, "search_people", err)
			writeUseCaseError(w, err)
			return
		}
		if result.Results == nil {
			result.Results = []domain.Person{}
		}
		response.Page, response.TotalPages, response.TotalResults = result.Page, result.TotalPages, result.TotalResults
		response.Results = result.Results
	} else {
		result, err := s.catalog.SearchMovies(r.Context(), query, page)
		if err != nil {
			s.logCatalogError(r, "search_movies", err)
			writeUseCaseError(w, err)
			return
		}
		if result.Results == nil {
			result.Results = []domain.MovieSummary{}
		}
		response.Page, response.TotalPages, response.TotalResults = result.Page, result.TotalPages, result.TotalResults
		response.Results = result.Results
	}
	response.Pagination = buildPagination(r, response.Page, response.TotalPages)
	writeJSON(w, http.StatusOK, response)
}

// handleSuggest is the one-shot form of the search box lookup. Failures
// yield empty lists, like the interactive box.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	empty := search.Suggestions{Movies: []domain.MovieSummary{}, People: []domain.Person{}}
	if s.catalog == nil || !s.catalog.Enabled() {
		writeJSON(w, http.StatusOK, empty)
		return
	}
	query := r.URL.Query().Get("q")
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	suggestions, err := search.Suggest(r.Context(), s.catalog, query)
	if err != nil {
		s.logger.Warn("suggest failed", slog.String("query", truncate(query, 60)), slog.String("error", err.Error()))
		writeJSON(w, http.StatusOK, empty)
		return
	}
	if suggestions.Movies == nil {
		suggestions.Movies = empty.Movies
	}
	if suggestions.People == nil {
		suggestions.People = empty.People
	}
	writeJSON(w, http.StatusOK, suggestions)
}

// handleMovieSearch proxies a title search for chat cards.
func (s *Server) handleMovieSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "No Movie title")
		return
	}
	if !s.catalogReady(w) {
		return
	}
	result, err := s.catalog.SearchMovies(r.Context(), title, 1)
	if err != nil {
		s.logCatalogError(r, "movie_search", err)
		writeUseCaseError(w, err)
		return
	}
	if result.Results == nil {
		result.Results = []domain.MovieSummary{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) logCatalogError(r *http.Request, endpoint string, err error) {
	s.logger.Warn("catalog request failed",
		slog.String("endpoint", endpoint),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}
