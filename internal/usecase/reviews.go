package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/domain/ports"
)

const unknownMovieTitle = "Unknown Movie"

const (
	minRating = 1
	maxRating = 10
)

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

func (in ReviewInput) validate() error {
	if in.Rating < minRating || in.Rating > maxRating {
		return fmt.Errorf("%w: rating must be between %d and %d", domain.ErrInvalidInput, minRating, maxRating)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: content is required", domain.ErrInvalidInput)
	}
	return nil
}

type CreateReview struct {
	Reviews ports.ReviewRepository
	Catalog ports.MovieCatalog
	Logger  *slog.Logger
	Now     func() time.Time
}

// Execute stores the user's review for a movie. A user has at most one review
// per movie. The movie title comes from the catalog when it is reachable.
func (uc CreateReview) Execute(ctx context.Context, user domain.User, movieID int, input ReviewInput) (domain.Review, error) {
	if movieID <= 0 {
		return domain.Review{}, fmt.Errorf("%w: invalid movie id", domain.ErrInvalidInput)
	}
	if err := input.validate(); err != nil {
		return domain.Review{}, err
	}

	title := unknownMovieTitle
	if uc.Catalog != nil {
		details, err := uc.Catalog.Details(ctx, movieID)
		switch {
		case err == nil && details.Title != "":
			title = details.Title
		case err != nil:
			loggerOrDefault(uc.Logger).Warn("review movie title lookup failed",
				slog.Int("movieId", movieID),
				slog.String("error", err.Error()),
			)
		}
	}

	review := domain.Review{
		ID:         uuid.NewString(),
		MovieID:    movieID,
		MovieTitle: title,
		UserID:     user.ID,
		Username:   user.Username,
		Rating:     input.Rating,
		Content:    strings.TrimSpace(input.Content),
		CreatedAt:  nowFunc(uc.Now)().UTC(),
	}
	if err := uc.Reviews.Create(ctx, review); err != nil {
		return domain.Review{}, wrapRepoUnlessDomain(err)
	}
	return review, nil
}

type UpdateReview struct {
	Reviews ports.ReviewRepository
	Now     func() time.Time
}

func (uc UpdateReview) Execute(ctx context.Context, userID domain.UserID, reviewID string, input ReviewInput) (domain.Review, error) {
	if err := input.validate(); err != nil {
		return domain.Review{}, err
	}
	existing, err := uc.Reviews.Get(ctx, reviewID)
	if err != nil {
		return domain.Review{}, wrapRepoUnlessDomain(err)
	}
	if existing.UserID != userID {
		return domain.Review{}, domain.ErrForbidden
	}
	now := nowFunc(uc.Now)().UTC()
	content := strings.TrimSpace(input.Content)
	if err := uc.Reviews.Update(ctx, reviewID, userID, input.Rating, content, now); err != nil {
		return domain.Review{}, wrapRepoUnlessDomain(err)
	}
	existing.Rating = input.Rating
	existing.Content = content
	existing.UpdatedAt = &now
	return existing, nil
}

type DeleteReview struct {
	Reviews ports.ReviewRepository
}

func (uc DeleteReview) Execute(ctx context.Context, userID domain.UserID, reviewID string) error {
	existing, err := uc.Reviews.Get(ctx, reviewID)
	if err != nil {
		return wrapRepoUnlessDomain(err)
	}
	if existing.UserID != userID {
		return domain.ErrForbidden
	}
	return wrapRepoUnlessDomain(uc.Reviews.Delete(ctx, reviewID, userID))
}

// MovieReviews merges local reviews with the provider's own.
type MovieReviews struct {
	Local    []domain.Review         `json:"user_reviews"`
	External []domain.ExternalReview `json:"tmdb_reviews"`
}

type ListMovieReviews struct {
	Reviews ports.ReviewRepository
	Catalog ports.MovieCatalog
	Logger  *slog.Logger
}

// Execute returns local reviews and, when reachable, the provider reviews.
// A provider failure leaves External empty.
func (uc ListMovieReviews) Execute(ctx context.Context, movieID int, filter domain.ReviewFilter) (MovieReviews, error) {
	if movieID <= 0 {
		return MovieReviews{}, fmt.Errorf("%w: invalid movie id", domain.ErrInvalidInput)
	}
	filter.MovieID = movieID
	filter.UserID = ""
	local, err := uc.Reviews.List(ctx, filter)
	if err != nil {
		return MovieReviews{}, wrapRepo(err)
	}
	out := MovieReviews{Local: local, External: []domain.ExternalReview{}}
	if uc.Catalog == nil {
		return out, nil
	}
	external, err := uc.Catalog.Reviews(ctx, movieID, 1)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			loggerOrDefault(uc.Logger).Warn("provider reviews unavailable",
				slog.Int("movieId", movieID),
				slog.String("error", err.Error()),
			)
		}
		return out, nil
	}
	out.External = external
	return out, nil
}

type ListUserReviews struct {
	Reviews ports.ReviewRepository
}

func (uc ListUserReviews) Execute(ctx context.Context, userID domain.UserID, filter domain.ReviewFilter) ([]domain.Review, error) {
	if filter.MinRating > 0 && filter.MaxRating > 0 && filter.MinRating > filter.MaxRating {
		return nil, fmt.Errorf("%w: min_rating exceeds max_rating", domain.ErrInvalidInput)
	}
	filter.UserID = userID
	reviews, err := uc.Reviews.List(ctx, filter)
	if err != nil {
		return nil, wrapRepo(err)
	}
	return reviews, nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
