package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daat21/lumiere/internal/domain"
)

type memUsers struct {
	mu    sync.Mutex
	users map[domain.UserID]domain.User
	err   error
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[domain.UserID]domain.User{}}
}

func (m *memUsers) Create(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domain.ErrAlreadyExists
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memUsers) Get(_ context.Context, id domain.UserID) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.User{}, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) find(match func(domain.User) bool) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.User{}, m.err
	}
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Username == username })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	return m.find(func(u domain.User) bool { return u.Email == email })
}

func (m *memUsers) UpdateProfile(_ context.Context, id domain.UserID, patch domain.ProfilePatch, at time.Time) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	if patch.Username != nil {
		u.Username = *patch.Username
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Bio != nil {
		u.Bio = *patch.Bio
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	u.UpdatedAt = &at
	m.users[id] = u
	return u, nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id domain.UserID, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.HashedPassword = hash
	u.UpdatedAt = &at
	m.users[id] = u
	return nil
}

func (m *memUsers) TouchLastLogin(_ context.Context, id domain.UserID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.LastLogin = &at
	m.users[id] = u
	return nil
}

type memWatchlists struct {
	mu     sync.Mutex
	byUser map[domain.UserID]*domain.Watchlist
	err    error
}

func newMemWatchlists() *memWatchlists {
	return &memWatchlists{byUser: map[domain.UserID]*domain.Watchlist{}}
}

func (m *memWatchlists) GetOrCreateDefault(_ context.Context, userID domain.UserID, now time.Time) (domain.Watchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Watchlist{}, m.err
	}
	w, ok := m.byUser[userID]
	if !ok {
		w = &domain.Watchlist{ID: uuid.NewString(), UserID: userID, Name: domain.DefaultWatchlistName, Movies: []domain.WatchlistMovie{}, CreatedAt: now, UpdatedAt: now}
		m.byUser[userID] = w
	}
	copied := *w
	copied.Movies = append([]domain.WatchlistMovie(nil), w.Movies...)
	return copied, nil
}

func (m *memWatchlists) byID(id string) *domain.Watchlist {
	for _, w := range m.byUser {
		if w.ID == id {
			return w
		}
	}
	return nil
}

func (m *memWatchlists) AddMovie(_ context.Context, id string, movie domain.WatchlistMovie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.byID(id)
	if w == nil {
		return domain.ErrNotFound
	}
	if w.Contains(movie.MovieID) {
		return domain.ErrAlreadyExists
	}
	w.Movies = append(w.Movies, movie)
	return nil
}

func (m *memWatchlists) RemoveMovie(_ context.Context, id string, movieID int, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.byID(id)
	if w == nil || !w.Contains(movieID) {
		return domain.ErrNotFound
	}
	kept := w.Movies[:0]
	for _, movie := range w.Movies {
		if movie.MovieID != movieID {
			kept = append(kept, movie)
		}
	}
	w.Movies = kept
	return nil
}

type memReviews struct {
	mu      sync.Mutex
	reviews map[string]domain.Review
	err     error
}

func newMemReviews() *memReviews {
	return &memReviews{reviews: map[string]domain.Review{}}
}

func (m *memReviews) Create(_ context.Context, r domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.reviews {
		if existing.UserID == r.UserID && existing.MovieID == r.MovieID {
			return domain.ErrAlreadyExists
		}
	}
	m.reviews[r.ID] = r
	return nil
}

func (m *memReviews) Get(_ context.Context, id string) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r, nil
}

func (m *memReviews) Update(_ context.Context, id string, userID domain.UserID, rating int, content string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok || r.UserID != userID {
		return domain.ErrNotFound
	}
	r.Rating, r.Content, r.UpdatedAt = rating, content, &at
	m.reviews[id] = r
	return nil
}

func (m *memReviews) Delete(_ context.Context, id string, userID domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviews[id]
	if !ok || r.UserID != userID {
		return domain.ErrNotFound
	}
	delete(m.reviews, id)
	return nil
}

func (m *memReviews) List(_ context.Context, f domain.ReviewFilter) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Review
	for _, r := range m.reviews {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.MovieID > 0 && r.MovieID != f.MovieID {
			continue
		}
		if (f.MinRating > 0 && r.Rating < f.MinRating) || (f.MaxRating > 0 && r.Rating > f.MaxRating) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		less := out[i].CreatedAt.Before(out[j].CreatedAt)
		if f.SortBy == domain.ReviewSortRating {
			less = out[i].Rating < out[j].Rating
		}
		if f.SortOrder == domain.SortAsc {
			return less
		}
		return !less
	})
	return out, nil
}

type fakeCatalog struct {
	details map[int]domain.MovieDetails
	reviews map[int][]domain.ExternalReview
	err     error
}

func (c *fakeCatalog) Details(_ context.Context, id int) (domain.MovieDetails, error) {
	if c.err != nil {
		return domain.MovieDetails{}, c.err
	}
	d, ok := c.details[id]
	if !ok {
		return domain.MovieDetails{}, domain.ErrNotFound
	}
	return d, nil
}

func (c *fakeCatalog) Reviews(_ context.Context, id int, _ int) ([]domain.ExternalReview, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.reviews[id], nil
}

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}
