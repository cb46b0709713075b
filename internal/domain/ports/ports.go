package ports

import (
	"context"
	"time"

	"github.com/daat21/lumiere/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	Get(ctx context.Context, id domain.UserID) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, id domain.UserID, patch domain.ProfilePatch, at time.Time) (domain.User, error)
	UpdatePassword(ctx context.Context, id domain.UserID, hash string, at time.Time) error
	TouchLastLogin(ctx context.Context, id domain.UserID, at time.Time) error
}

type WatchlistRepository interface {
	GetOrCreateDefault(ctx context.Context, userID domain.UserID, now time.Time) (domain.Watchlist, error)
	AddMovie(ctx context.Context, id string, movie domain.WatchlistMovie) error
	RemoveMovie(ctx context.Context, id string, movieID int, at time.Time) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review domain.Review) error
	Get(ctx context.Context, id string) (domain.Review, error)
	Update(ctx context.Context, id string, userID domain.UserID, rating int, content string, at time.Time) error
	Delete(ctx context.Context, id string, userID domain.UserID) error
	List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)
}

// MovieCatalog is the slice of the metadata provider the account features use.
type MovieCatalog interface {
	Details(ctx context.Context, id int) (domain.MovieDetails, error)
	Reviews(ctx context.Context, id int, page int) ([]domain.ExternalReview, error)
}

// TokenIssuer issues and verifies session tokens.
type TokenIssuer interface {
	Pair(userID domain.UserID) (access, refresh string, err error)
	ParseAccess(raw string) (domain.UserID, error)
	ParseRefresh(raw string) (domain.UserID, error)
}
