package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daat21/lumiere/internal/domain"
)

const defaultWatchlistDescription = "Created a new watchlist automatically as you don't already have one"

type WatchlistRepository struct {
	collection *mongo.Collection
}

type watchlistMovieDoc struct {
	MovieID     int     `bson:"movieId"`
	Title       string  `bson:"title"`
	PosterPath  string  `bson:"posterPath,omitempty"`
	ReleaseDate string  `bson:"releaseDate,omitempty"`
	VoteAverage float64 `bson:"voteAverage,omitempty"`
	AddedAt     int64   `bson:"addedAt"`
}

type watchlistDoc struct {
	ID          string              `bson:"_id"`
	UserID      string              `bson:"userId"`
	Name        string              `bson:"name"`
	Description string              `bson:"description,omitempty"`
	IsPublic    bool                `bson:"isPublic"`
	Movies      []watchlistMovieDoc `bson:"movies"`
	CreatedAt   int64               `bson:"createdAt"`
	UpdatedAt   int64               `bson:"updatedAt"`
}

func (r *WatchlistRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "movies.movieId", Value: 1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

// GetOrCreateDefault returns the user's default watchlist, creating an empty
// private one on first use.
func (r *WatchlistRepository) GetOrCreateDefault(ctx context.Context, userID domain.UserID, now time.Time) (domain.Watchlist, error) {
	filter := bson.M{"userId": string(userID), "name": domain.DefaultWatchlistName}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":         uuid.NewString(),
		"description": defaultWatchlistDescription,
		"isPublic":    false,
		"movies":      bson.A{},
		"createdAt":   now.UTC().Unix(),
		"updatedAt":   now.UTC().Unix(),
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc watchlistDoc
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts raced; the loser reads the winner's document.
		err = r.collection.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return domain.Watchlist{}, err
	}
	return watchlistFromDoc(doc), nil
}

func (r *WatchlistRepository) Get(ctx context.Context, id string) (domain.Watchlist, error) {
	var doc watchlistDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Watchlist{}, domain.ErrNotFound
		}
		return domain.Watchlist{}, err
	}
	return watchlistFromDoc(doc), nil
}

// AddMovie appends movie unless the watchlist already holds it.
func (r *WatchlistRepository) AddMovie(ctx context.Context, id string, movie domain.WatchlistMovie) error {
	filter := bson.M{"_id": id, "movies.movieId": bson.M{"$ne": movie.MovieID}}
	update := bson.M{
		"$push": bson.M{"movies": watchlistMovieToDoc(movie)},
		"$set":  bson.M{"updatedAt": movie.AddedAt.UTC().Unix()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadyExists
}

func (r *WatchlistRepository) RemoveMovie(ctx context.Context, id string, movieID int, at time.Time) error {
	filter := bson.M{"_id": id, "movies.movieId": movieID}
	update := bson.M{
		"$pull": bson.M{"movies": bson.M{"movieId": movieID}},
		"$set":  bson.M{"updatedAt": at.UTC().Unix()},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func watchlistMovieToDoc(m domain.WatchlistMovie) watchlistMovieDoc {
	return watchlistMovieDoc{
		MovieID:     m.MovieID,
		Title:       m.Title,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		VoteAverage: m.VoteAverage,
		AddedAt:     m.AddedAt.UTC().Unix(),
	}
}

func watchlistFromDoc(doc watchlistDoc) domain.Watchlist {
	movies := make([]domain.WatchlistMovie, 0, len(doc.Movies))
	for _, m := range doc.Movies {
		movies = append(movies, domain.WatchlistMovie{
			MovieID:     m.MovieID,
			Title:       m.Title,
			PosterPath:  m.PosterPath,
			ReleaseDate: m.ReleaseDate,
			VoteAverage: m.VoteAverage,
			AddedAt:     timeFromUnix(m.AddedAt),
		})
	}
	return domain.Watchlist{
		ID:          doc.ID,
		UserID:      domain.UserID(doc.UserID),
		Name:        doc.Name,
		Description: doc.Description,
		IsPublic:    doc.IsPublic,
		Movies:      movies,
		CreatedAt:   timeFromUnix(doc.CreatedAt),
		UpdatedAt:   timeFromUnix(doc.UpdatedAt),
	}
}
