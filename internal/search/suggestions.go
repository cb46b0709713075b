package search

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/daat21/lumiere/internal/domain"
)

// Source is the metadata lookup surface the search box depends on.
type Source interface {
	SearchMovies(ctx context.Context, query string, page int) (domain.MoviePage, error)
	SearchPeople(ctx context.Context, query string, page int) (domain.PersonPage, error)
	Trending(ctx context.Context) ([]domain.MovieSummary, error)
}

type Suggestions struct {
	Movies []domain.MovieSummary `json:"movies"`
	People []domain.Person       `json:"people"`
}

func (s Suggestions) Empty() bool {
	return len(s.Movies) == 0 && len(s.People) == 0
}

// NormalizeQuery applies NFKC and collapses runs of whitespace.
func NormalizeQuery(q string) string {
	q = strings.TrimSpace(q)
	if q == "" {
		return q
	}
	q = norm.NFKC.String(q)
	return strings.Join(strings.Fields(q), " ")
}

// DedupeByTitle keeps the first movie for each exact title, preserving order.
func DedupeByTitle(movies []domain.MovieSummary) []domain.MovieSummary {
	out := make([]domain.MovieSummary, 0, len(movies))
	seen := make(map[string]struct{}, len(movies))
	for _, movie := range movies {
		if _, ok := seen[movie.Title]; ok {
			continue
		}
		seen[movie.Title] = struct{}{}
		out = append(out, movie)
	}
	return out
}

// Suggest issues the movie and person lookups concurrently. Either failure
// fails the whole lookup.
func Suggest(ctx context.Context, source Source, query string) (Suggestions, error) {
	query = NormalizeQuery(query)
	if query == "" {
		return Suggestions{}, nil
	}

	var movies domain.MoviePage
	var people domain.PersonPage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		movies, err = source.SearchMovies(gctx, query, 1)
		return err
	})
	g.Go(func() error {
		var err error
		people, err = source.SearchPeople(gctx, query, 1)
		return err
	})
	if err := g.Wait(); err != nil {
		return Suggestions{}, err
	}

	return Suggestions{
		Movies: DedupeByTitle(movies.Results),
		People: people.Results,
	}, nil
}
