package domain

import "time"

const DefaultWatchlistName = "Favourites"

type WatchlistMovie struct {
	MovieID     int       `json:"movie_id"`
	Title       string    `json:"title"`
	PosterPath  string    `json:"poster_path,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	VoteAverage float64   `json:"vote_average,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

type Watchlist struct {
	ID          string           `json:"id"`
	UserID      UserID           `json:"user_id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	IsPublic    bool             `json:"is_public"`
	Movies      []WatchlistMovie `json:"movies"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (w Watchlist) Contains(movieID int) bool {
	for _, movie := range w.Movies {
		if movie.MovieID == movieID {
			return true
		}
	}
	return false
}
