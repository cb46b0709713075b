package mongo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daat21/lumiere/internal/domain"
)

// testMongoURI defaults to localhost; MONGO_TEST_URI overrides it.
func testMongoURI() string {
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		return uri
	}
	return "mongodb://localhost:27017"
}

// setupTestStore skips the test when MongoDB is unreachable.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uri := testMongoURI()
	client, err := Connect(ctx, uri, options.Client().SetConnectTimeout(2*time.Second).SetServerSelectionTimeout(2*time.Second))
	if err != nil {
		t.Skipf("MongoDB not available at %s: %v", uri, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("MongoDB ping failed at %s: %v", uri, err)
	}

	dbName := fmt.Sprintf("lumiere_test_%d", time.Now().UnixNano())
	store := NewStore(client, dbName)
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		t.Fatalf("EnsureIndexes: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return store
}

func TestIntegrationUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	user := domain.User{ID: "u-1", Username: "film_fan", Email: "fan@example.com", HashedPassword: "h", IsActive: true, CreatedAt: now}
	if err := store.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := user
	dup.ID = "u-2"
	if err := store.Users.Create(ctx, dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected duplicate username to fail, got %v", err)
	}

	got, err := store.Users.GetByEmail(ctx, "FAN@example.com")
	if err != nil || got.ID != "u-1" {
		t.Fatalf("GetByEmail: %+v %v", got, err)
	}

	bio := "hello"
	updated, err := store.Users.UpdateProfile(ctx, "u-1", domain.ProfilePatch{Bio: &bio}, now)
	if err != nil || updated.Bio != "hello" || updated.UpdatedAt == nil {
		t.Fatalf("UpdateProfile: %+v %v", updated, err)
	}
	if _, err := store.Users.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegrationWatchlist(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := store.Watchlists.GetOrCreateDefault(ctx, "u-1", now)
	if err != nil {
		t.Fatalf("GetOrCreateDefault: %v", err)
	}
	second, err := store.Watchlists.GetOrCreateDefault(ctx, "u-1", now)
	if err != nil || second.ID != first.ID {
		t.Fatalf("expected the same default watchlist, got %q and %q (%v)", first.ID, second.ID, err)
	}
	if first.Name != domain.DefaultWatchlistName || first.IsPublic || first.Description == "" {
		t.Fatalf("unexpected default watchlist %+v", first)
	}

	movie := domain.WatchlistMovie{MovieID: 603, Title: "The Matrix", AddedAt: now}
	if err := store.Watchlists.AddMovie(ctx, first.ID, movie); err != nil {
		t.Fatalf("AddMovie: %v", err)
	}
	if err := store.Watchlists.AddMovie(ctx, first.ID, movie); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if err := store.Watchlists.RemoveMovie(ctx, first.ID, 603, now); err != nil {
		t.Fatalf("RemoveMovie: %v", err)
	}
	if err := store.Watchlists.RemoveMovie(ctx, first.ID, 603, now); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIntegrationReviews(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, rating := range []int{4, 9, 6} {
		review := domain.Review{
			ID: fmt.Sprintf("r-%d", i), MovieID: 100 + i, MovieTitle: "M", UserID: "u-1",
			Rating: rating, Content: "c", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Reviews.Create(ctx, review); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	dup := domain.Review{ID: "r-x", MovieID: 100, UserID: "u-1", Rating: 1, CreatedAt: base}
	if err := store.Reviews.Create(ctx, dup); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected one review per movie, got %v", err)
	}

	byRating, err := store.Reviews.List(ctx, domain.ReviewFilter{UserID: "u-1", SortBy: domain.ReviewSortRating, SortOrder: domain.SortDesc})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(byRating) != 3 || byRating[0].Rating != 9 || byRating[2].Rating != 4 {
		t.Fatalf("unexpected order %+v", byRating)
	}

	ranged, _ := store.Reviews.List(ctx, domain.ReviewFilter{UserID: "u-1", MinRating: 5, MaxRating: 8})
	if len(ranged) != 1 || ranged[0].Rating != 6 {
		t.Fatalf("unexpected range result %+v", ranged)
	}

	if err := store.Reviews.Delete(ctx, "r-0", "someone-else"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected foreign delete to fail, got %v", err)
	}
}
