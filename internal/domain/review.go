package domain

import "time"

type Review struct {
	ID         string     `json:"id"`
	MovieID    int        `json:"movie_id"`
	MovieTitle string     `json:"movie_title"`
	UserID     UserID     `json:"user_id"`
	Username   string     `json:"username"`
	Rating     int        `json:"rating"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
}

type ReviewSortBy string

const (
	ReviewSortCreatedAt ReviewSortBy = "created_at"
	ReviewSortRating    ReviewSortBy = "rating"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type ReviewFilter struct {
	UserID    UserID
	MovieID   int
	MinRating int
	MaxRating int
	SortBy    ReviewSortBy
	SortOrder SortOrder
	Offset    int
	Limit     int
}

func NormalizeReviewSortBy(raw string) ReviewSortBy {
	switch ReviewSortBy(raw) {
	case ReviewSortRating:
		return ReviewSortRating
	default:
		return ReviewSortCreatedAt
	}
}

func NormalizeSortOrder(raw string) SortOrder {
	switch SortOrder(raw) {
	case SortAsc:
		return SortAsc
	default:
		return SortDesc
	}
}
