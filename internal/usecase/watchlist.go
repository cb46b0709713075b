package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/domain/ports"
)

type GetWatchlist struct {
	Repo ports.WatchlistRepository
	Now  func() time.Time
}

// Execute returns the user's default watchlist, creating it on first use.
func (uc GetWatchlist) Execute(ctx context.Context, userID domain.UserID) (domain.Watchlist, error) {
	w, err := uc.Repo.GetOrCreateDefault(ctx, userID, nowFunc(uc.Now)().UTC())
	if err != nil {
		return domain.Watchlist{}, wrapRepo(err)
	}
	return w, nil
}

type WatchlistContains struct {
	Repo ports.WatchlistRepository
	Now  func() time.Time
}

func (uc WatchlistContains) Execute(ctx context.Context, userID domain.UserID, movieID int) (bool, error) {
	w, err := GetWatchlist(uc).Execute(ctx, userID)
	if err != nil {
		return false, err
	}
	return w.Contains(movieID), nil
}

type AddToWatchlistInput struct {
	MovieID     int     `json:"movie_id" validate:"required,gt=0"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
}

type AddToWatchlist struct {
	Repo    ports.WatchlistRepository
	Catalog ports.MovieCatalog
	Now     func() time.Time
}

// Execute adds a movie to the default watchlist. Missing display fields are
// filled from the catalog.
func (uc AddToWatchlist) Execute(ctx context.Context, userID domain.UserID, input AddToWatchlistInput) (domain.Watchlist, error) {
	if input.MovieID <= 0 {
		return domain.Watchlist{}, fmt.Errorf("%w: movie_id must be positive", domain.ErrInvalidInput)
	}
	now := nowFunc(uc.Now)().UTC()

	movie := domain.WatchlistMovie{
		MovieID:     input.MovieID,
		Title:       strings.TrimSpace(input.Title),
		PosterPath:  input.PosterPath,
		ReleaseDate: input.ReleaseDate,
		VoteAverage: input.VoteAverage,
		AddedAt:     now,
	}
	if movie.Title == "" && uc.Catalog != nil {
		details, err := uc.Catalog.Details(ctx, input.MovieID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Watchlist{}, err
			}
			return domain.Watchlist{}, wrapUpstream(err)
		}
		movie.Title = details.Title
		movie.PosterPath = details.PosterPath
		movie.ReleaseDate = details.ReleaseDate
		movie.VoteAverage = details.VoteAverage
	}

	w, err := uc.Repo.GetOrCreateDefault(ctx, userID, now)
	if err != nil {
		return domain.Watchlist{}, wrapRepo(err)
	}
	if err := uc.Repo.AddMovie(ctx, w.ID, movie); err != nil {
		return domain.Watchlist{}, wrapRepoUnlessDomain(err)
	}
	w.Movies = append(w.Movies, movie)
	w.UpdatedAt = now
	return w, nil
}

type RemoveFromWatchlist struct {
	Repo ports.WatchlistRepository
	Now  func() time.Time
}

func (uc RemoveFromWatchlist) Execute(ctx context.Context, userID domain.UserID, movieID int) error {
	now := nowFunc(uc.Now)().UTC()
	w, err := uc.Repo.GetOrCreateDefault(ctx, userID, now)
	if err != nil {
		return wrapRepo(err)
	}
	return wrapRepoUnlessDomain(uc.Repo.RemoveMovie(ctx, w.ID, movieID, now))
}
