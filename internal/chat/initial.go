package chat

import (
	"context"
	"math/rand/v2"

	"github.com/daat21/lumiere/internal/domain"
)

const InitialPickCount = 5

// TopRatedSource lists top rated movies.
type TopRatedSource interface {
	TopRated(ctx context.Context, page int) (domain.MoviePage, error)
}

// InitialPicks returns n random top rated movies using a Fisher-Yates shuffle.
// A nil rng uses the global source.
func InitialPicks(ctx context.Context, source TopRatedSource, n int, rng *rand.Rand) ([]domain.MovieSummary, error) {
	page, err := source.TopRated(ctx, 1)
	if err != nil {
		return nil, err
	}
	movies := append([]domain.MovieSummary(nil), page.Results...)
	intn := rand.IntN
	if rng != nil {
		intn = rng.IntN
	}
	for i := len(movies) - 1; i > 0; i-- {
		j := intn(i + 1)
		movies[i], movies[j] = movies[j], movies[i]
	}
	if n > 0 && len(movies) > n {
		movies = movies[:n]
	}
	return movies, nil
}
