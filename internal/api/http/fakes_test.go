package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/daat21/lumiere/internal/chat"
	"github.com/daat21/lumiere/internal/domain"
	"github.com/daat21/lumiere/internal/usecase"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeCatalog struct {
	mu        sync.Mutex
	disabled  bool
	movies    map[string][]domain.MovieSummary
	people    map[string][]domain.Person
	trending  []domain.MovieSummary
	details   map[int]domain.MovieDetails
	genres    []domain.Genre
	pages     int
	err       error
	lastPage  int
	discover  domain.DiscoverFilter
	callCount int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		movies:  map[string][]domain.MovieSummary{},
		people:  map[string][]domain.Person{},
		details: map[int]domain.MovieDetails{},
		pages:   10,
	}
}

func (f *fakeCatalog) record(page int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callCount++
	f.lastPage = page
	return f.err
}

func (f *fakeCatalog) page(page int, results []domain.MovieSummary) domain.MoviePage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.MoviePage{Page: page, TotalPages: f.pages, TotalResults: f.pages * 20, Results: results}
}

func (f *fakeCatalog) Enabled() bool { return !f.disabled }

func (f *fakeCatalog) SearchMovies(_ context.Context, query string, page int) (domain.MoviePage, error) {
	if err := f.record(page); err != nil {
		return domain.MoviePage{}, err
	}
	f.mu.Lock()
	results := f.movies[query]
	f.mu.Unlock()
	return f.page(page, results), nil
}

func (f *fakeCatalog) SearchPeople(_ context.Context, query string, page int) (domain.PersonPage, error) {
	if err := f.record(page); err != nil {
		return domain.PersonPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return domain.PersonPage{Page: page, TotalPages: 1, TotalResults: len(f.people[query]), Results: f.people[query]}, nil
}

func (f *fakeCatalog) Trending(context.Context) ([]domain.MovieSummary, error) {
	if err := f.record(1); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trending, nil
}

func (f *fakeCatalog) Popular(_ context.Context, page int) (domain.MoviePage, error) {
	if err := f.record(page); err != nil {
		return domain.MoviePage{}, err
	}
	return f.page(page, []domain.MovieSummary{{ID: 1, Title: "Popular"}}), nil
}

func (f *fakeCatalog) TopRated(_ context.Context, page int) (domain.MoviePage, error) {
	if err := f.record(page); err != nil {
		return domain.MoviePage{}, err
	}
	return f.page(page, []domain.MovieSummary{
		{ID: 1, Title: "A"}, {ID: 2, Title: "B"}, {ID: 3, Title: "C"},
		{ID: 4, Title: "D"}, {ID: 5, Title: "E"}, {ID: 6, Title: "F"},
	}), nil
}

func (f *fakeCatalog) Genres(context.Context) ([]domain.Genre, error) {
	if err := f.record(1); err != nil {
		return nil, err
	}
	return f.genres, nil
}

func (f *fakeCatalog) Discover(_ context.Context, filter domain.DiscoverFilter) (domain.MoviePage, error) {
	if err := f.record(filter.Page); err != nil {
		return domain.MoviePage{}, err
	}
	f.mu.Lock()
	f.discover = filter
	f.mu.Unlock()
	return f.page(filter.Page, nil), nil
}

func (f *fakeCatalog) Details(_ context.Context, id int) (domain.MovieDetails, error) {
	if err := f.record(1); err != nil {
		return domain.MovieDetails{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return domain.MovieDetails{}, domain.ErrNotFound
	}
	return d, nil
}

// scriptedCompleter replays fixed deltas, optionally failing after them.
type scriptedCompleter struct {
	deltas []string
	err    error
}

func (c *scriptedCompleter) Stream(_ context.Context, _ []chat.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, d := range c.deltas {
			if !yield(d, nil) {
				return
			}
		}
		if c.err != nil {
			yield("", c.err)
		}
	}
}

// fakeAccounts authenticates the tokens in its map and accepts one password.
type fakeAccounts struct {
	mu       sync.Mutex
	users    map[string]domain.User
	password string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users: map[string]domain.User{
			"good-token": {ID: "u1", Username: "viewer", Email: "viewer@example.com", IsActive: true},
		},
		password: "s3cret!pass",
	}
}

type registerFunc func(ctx context.Context, input usecase.RegisterInput) (domain.User, error)

func (f registerFunc) Execute(ctx context.Context, input usecase.RegisterInput) (domain.User, error) {
	return f(ctx, input)
}

type loginFunc func(ctx context.Context, login, password string) (usecase.Session, error)

func (f loginFunc) Execute(ctx context.Context, login, password string) (usecase.Session, error) {
	return f(ctx, login, password)
}

type refreshFunc func(ctx context.Context, token string) (usecase.Session, error)

func (f refreshFunc) Execute(ctx context.Context, token string) (usecase.Session, error) {
	return f(ctx, token)
}

type authenticateFunc func(ctx context.Context, token string) (domain.User, error)

func (f authenticateFunc) Execute(ctx context.Context, token string) (domain.User, error) {
	return f(ctx, token)
}

type updateProfileFunc func(ctx context.Context, id domain.UserID, input usecase.ProfileInput) (domain.User, error)

func (f updateProfileFunc) Execute(ctx context.Context, id domain.UserID, input usecase.ProfileInput) (domain.User, error) {
	return f(ctx, id, input)
}

type changePasswordFunc func(ctx context.Context, id domain.UserID, input usecase.ChangePasswordInput) error

func (f changePasswordFunc) Execute(ctx context.Context, id domain.UserID, input usecase.ChangePasswordInput) error {
	return f(ctx, id, input)
}

func (a *fakeAccounts) accounts() Accounts {
	return Accounts{
		Register: registerFunc(func(_ context.Context, input usecase.RegisterInput) (domain.User, error) {
			if input.Username == "taken" {
				return domain.User{}, errors.Join(domain.ErrAlreadyExists, usecase.ErrUsernameTaken)
			}
			return domain.User{ID: "new", Username: input.Username, Email: input.Email, IsActive: true}, nil
		}),
		Login: loginFunc(func(_ context.Context, login, password string) (usecase.Session, error) {
			if login != "viewer" || password != a.password {
				return usecase.Session{}, errors.Join(domain.ErrUnauthorized, usecase.ErrInvalidCredentials)
			}
			return usecase.Session{User: a.users["good-token"], AccessToken: "good-token", RefreshToken: "refresh-token", TokenType: "bearer"}, nil
		}),
		Refresh: refreshFunc(func(_ context.Context, token string) (usecase.Session, error) {
			if token != "refresh-token" {
				return usecase.Session{}, domain.ErrUnauthorized
			}
			return usecase.Session{User: a.users["good-token"], AccessToken: "good-token", RefreshToken: "refresh-token", TokenType: "bearer"}, nil
		}),
		Authenticate: authenticateFunc(func(_ context.Context, token string) (domain.User, error) {
			a.mu.Lock()
			defer a.mu.Unlock()
			user, ok := a.users[token]
			if !ok {
				return domain.User{}, domain.ErrUnauthorized
			}
			return user, nil
		}),
		UpdateProfile: updateProfileFunc(func(_ context.Context, _ domain.UserID, input usecase.ProfileInput) (domain.User, error) {
			user := a.users["good-token"]
			if input.Bio != nil {
				user.Bio = *input.Bio
			}
			return user, nil
		}),
		ChangePassword: changePasswordFunc(func(_ context.Context, _ domain.UserID, input usecase.ChangePasswordInput) error {
			if input.CurrentPassword != a.password {
				return errors.Join(domain.ErrUnauthorized, usecase.ErrInvalidCredentials)
			}
			return nil
		}),
	}
}

func newTestServer(catalog MovieCatalog, options ...ServerOption) *Server {
	options = append([]ServerOption{WithLogger(testLogger), WithRateLimit(0, 0)}, options...)
	return NewServer(catalog, options...)
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var envelope errorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return envelope.Error
}
