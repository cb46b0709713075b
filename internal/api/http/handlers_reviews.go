package apihttp

import (
	"net/http"
	"strings"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/usecase"
)

const (
	defaultReviewLimit = 10
	maxReviewLimit     = 50
)

func (s *Server) reviewsReady(w http.ResponseWriter) bool {
	if s.reviews == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "reviews are not configured")
		return false
	}
	return true
}

// parseReviewFilter reads sort, order, rating bounds and skip/limit paging.
func parseReviewFilter(r *http.Request) (domain.ReviewFilter, error) {
	q := r.URL.Query()
	filter := domain.ReviewFilter{
		SortBy:    domain.NormalizeReviewSortBy(strings.TrimSpace(q.Get("sort"))),
		SortOrder: domain.NormalizeSortOrder(strings.TrimSpace(q.Get("order"))),
	}
	var err error
	if filter.MinRating, err = parseNonNegativeInt(r, "min_rating", 0); err != nil {
		return filter, err
	}
	if filter.MaxRating, err = parseNonNegativeInt(r, "max_rating", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = parseNonNegativeInt(r, "skip", 0); err != nil {
		return filter, err
	}
	if filter.Limit, err = parsePositiveInt(r, "limit", defaultReviewLimit); err != nil {
		return filter, err
	}
	if filter.Limit > maxReviewLimit {
		filter.Limit = maxReviewLimit
	}
	return filter, nil
}

func (s *Server) handleListMovieReviews(w http.ResponseWriter, r *http.Request, movieID int) {
	if !s.reviewsReady(w) {
		return
	}
	filter, err := parseReviewFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	reviews, err := s.reviews.ListByMovie.Execute(r.Context(), movieID, filter)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	if reviews.Local == nil {
		reviews.Local = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request, movieID int) {
	if !s.reviewsReady(w) {
		return
	}
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	var input usecase.ReviewInput
	if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	review, err := s.reviews.Create.Execute(r.Context(), user, movieID, input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handleReviewByID(w http.ResponseWriter, r *http.Request) {
	parts := trimPathPrefix(r.URL.Path, "/api/reviews/")
	if len(parts) != 1 {
		http.NotFound(w, r)
		return
	}
	if !s.reviewsReady(w) {
		return
	}
	if r.Method != http.MethodPut && r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	reviewID := parts[0]

	if r.Method == http.MethodDelete {
		if err := s.reviews.Delete.Execute(r.Context(), user.ID, reviewID); err != nil {
			writeUseCaseError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var input usecase.ReviewInput
	if err := decodeJSONBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	review, err := s.reviews.Update.Execute(r.Context(), user.ID, reviewID, input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleListUserReviews(w http.ResponseWriter, r *http.Request, user domain.User) {
	if !s.reviewsReady(w) {
		return
	}
	filter, err := parseReviewFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	reviews, err := s.reviews.ListByUser.Execute(r.Context(), user.ID, filter)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews, "total": len(reviews)})
}
