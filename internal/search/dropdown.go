package search

import "github.com/daat21/lumiere/internal/domain"

type DropdownState string

const (
	StateClosed          DropdownState = "closed"
	StateLoadingTrending DropdownState = "loading_trending"
	StateTrending        DropdownState = "trending"
	StateSearching       DropdownState = "searching"
	StateSuggestions     DropdownState = "suggestions"
)

const maxExtraMovies = 8

// Option is one selectable dropdown row.
type Option struct {
	Label    string   `json:"label"`
	Text     string   `json:"text"`
	Category Category `json:"category"`
	ID       int      `json:"id,omitempty"`
}

// Dropdown is the rendered view model of the suggestion list.
type Dropdown struct {
	Open      bool          `json:"open"`
	State     DropdownState `json:"state"`
	Query     string        `json:"query"`
	Message   string        `json:"message,omitempty"`
	Trending  []Option      `json:"trending,omitempty"`
	Primary   []Option      `json:"primary,omitempty"`
	Separator bool          `json:"separator,omitempty"`
	More      []Option      `json:"more,omitempty"`
	NoResults string        `json:"no_results,omitempty"`
}

func (b *Box) Dropdown() Dropdown {
	b.mu.Lock()
	defer b.mu.Unlock()
	return renderDropdown(b.open, b.query, b.loadingTrending, b.searching, b.trending, b.suggestions)
}

func renderDropdown(open bool, query string, loadingTrending, searching bool, trending []domain.MovieSummary, s Suggestions) Dropdown {
	view := Dropdown{Open: open, Query: query}
	switch {
	case !open:
		view.State = StateClosed
	case query == "" && loadingTrending:
		view.State = StateLoadingTrending
		view.Message = "Loading trending..."
	case query == "":
		view.State = StateTrending
		for _, movie := range trending {
			view.Trending = append(view.Trending, movieOption(movie))
		}
	case searching:
		view.State = StateSearching
		view.Message = "Searching..."
	default:
		view.State = StateSuggestions
		firstMovie, firstPerson := query, query
		if len(s.Movies) > 0 {
			firstMovie = s.Movies[0].Title
		}
		if len(s.People) > 0 {
			firstPerson = s.People[0].Name
		}
		view.Primary = []Option{
			{Label: firstMovie + " in movies", Text: firstMovie, Category: CategoryMovie},
			{Label: firstPerson + " in people", Text: firstPerson, Category: CategoryPeople},
		}
		view.Separator = len(s.Movies) > 1 || len(s.People) > 0
		if len(s.Movies) > 1 {
			extra := s.Movies[1:]
			if len(extra) > maxExtraMovies {
				extra = extra[:maxExtraMovies]
			}
			for _, movie := range extra {
				view.More = append(view.More, movieOption(movie))
			}
		}
		if s.Empty() {
			view.NoResults = `No results found for "` + query + `".`
		}
	}
	return view
}

func movieOption(movie domain.MovieSummary) Option {
	return Option{Label: movie.Title, Text: movie.Title, Category: CategoryMovie, ID: movie.ID}
}
