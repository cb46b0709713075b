package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection      = "users"
	watchlistsCollection = "watchlists"
	reviewsCollection    = "reviews"
)

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Store groups the repositories backed by one database.
type Store struct {
	Users      *UserRepository
	Watchlists *WatchlistRepository
	Reviews    *ReviewRepository
}

func NewStore(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		Users:      &UserRepository{collection: db.Collection(usersCollection)},
		Watchlists: &WatchlistRepository{collection: db.Collection(watchlistsCollection)},
		Reviews:    &ReviewRepository{collection: db.Collection(reviewsCollection)},
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	if err := s.Users.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := s.Watchlists.EnsureIndexes(ctx); err != nil {
		return err
	}
	return s.Reviews.EnsureIndexes(ctx)
}
