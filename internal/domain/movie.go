package domain

import "strings"

// MovieSummary is the compact movie record used by suggestion lists, chat cards
// and paged result sets. Field names follow the metadata provider.
type MovieSummary struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title,omitempty"`
	PosterPath    string  `json:"poster_path,omitempty"`
	BackdropPath  string  `json:"backdrop_path,omitempty"`
	Overview      string  `json:"overview,omitempty"`
	ReleaseDate   string  `json:"release_date,omitempty"`
	VoteAverage   float64 `json:"vote_average,omitempty"`
	VoteCount     int     `json:"vote_count,omitempty"`
	GenreIDs      []int   `json:"genre_ids,omitempty"`
}

func (m MovieSummary) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	year := 0
	for _, c := range m.ReleaseDate[:4] {
		if c < '0' || c > '9' {
			return 0
		}
		year = year*10 + int(c-'0')
	}
	return year
}

type Person struct {
	ID                 int            `json:"id"`
	Name               string         `json:"name"`
	ProfilePath        string         `json:"profile_path,omitempty"`
	KnownForDepartment string         `json:"known_for_department,omitempty"`
	Popularity         float64        `json:"popularity,omitempty"`
	KnownFor           []MovieSummary `json:"known_for,omitempty"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Video struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

// IsYouTubeTrailer reports whether the video can be embedded as the movie trailer.
func (v Video) IsYouTubeTrailer() bool {
	return strings.EqualFold(v.Site, "YouTube") && strings.EqualFold(v.Type, "Trailer")
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profile_path,omitempty"`
	Order       int    `json:"order"`
}

type CrewMember struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Job        string `json:"job,omitempty"`
	Department string `json:"department,omitempty"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// Directors returns the crew members credited with the Director job.
func (c Credits) Directors() []CrewMember {
	out := make([]CrewMember, 0, 1)
	for _, member := range c.Crew {
		if member.Job == "Director" {
			out = append(out, member)
		}
	}
	return out
}

type MovieDetails struct {
	MovieSummary
	Runtime  int     `json:"runtime,omitempty"`
	Tagline  string  `json:"tagline,omitempty"`
	Status   string  `json:"status,omitempty"`
	Genres   []Genre `json:"genres,omitempty"`
	Homepage string  `json:"homepage,omitempty"`
	Credits  Credits `json:"credits"`
	Videos   []Video `json:"videos"`
}

// Trailer returns the first official YouTube trailer, falling back to any
// YouTube trailer.
func (d MovieDetails) Trailer() (Video, bool) {
	var fallback *Video
	for i := range d.Videos {
		video := d.Videos[i]
		if !video.IsYouTubeTrailer() {
			continue
		}
		if video.Official {
			return video, true
		}
		if fallback == nil {
			fallback = &d.Videos[i]
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Video{}, false
}

type MoviePage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []MovieSummary `json:"results"`
}

type PersonPage struct {
	Page         int      `json:"page"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
	Results      []Person `json:"results"`
}

// DiscoverFilter mirrors the filter panel of the discover page.
type DiscoverFilter struct {
	SortBy         string
	Language       string
	ReleaseDateGTE string
	ReleaseDateLTE string
	MinVotes       int
	GenreID        string
	Page           int
}

// ExternalReview is a review published on the metadata provider.
type ExternalReview struct {
	ID        string  `json:"id"`
	Author    string  `json:"author"`
	Content   string  `json:"content"`
	Rating    float64 `json:"rating,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
	URL       string  `json:"url,omitempty"`
}
