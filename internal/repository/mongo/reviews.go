package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daat21/lumiere/internal/domain"
)

type ReviewRepository struct {
	collection *mongo.Collection
}

type reviewDoc struct {
	ID         string `bson:"_id"`
	MovieID    int    `bson:"movieId"`
	MovieTitle string `bson:"movieTitle"`
	UserID     string `bson:"userId"`
	Username   string `bson:"username"`
	Rating     int    `bson:"rating"`
	Content    string `bson:"content"`
	CreatedAt  int64  `bson:"createdAt"`
	UpdatedAt  int64  `bson:"updatedAt,omitempty"`
}

func (r *ReviewRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "movieId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "rating", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *ReviewRepository) Create(ctx context.Context, review domain.Review) error {
	_, err := r.collection.InsertOne(ctx, reviewToDoc(review))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *ReviewRepository) Get(ctx context.Context, id string) (domain.Review, error) {
	var doc reviewDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	return reviewFromDoc(doc), nil
}

// Update rewrites rating and content of a review owned by userID.
func (r *ReviewRepository) Update(ctx context.Context, id string, userID domain.UserID, rating int, content string, at time.Time) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "userId": string(userID)},
		bson.M{"$set": bson.M{
			"rating":    rating,
			"content":   content,
			"updatedAt": at.UTC().Unix(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string, userID domain.UserID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "userId": string(userID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ReviewRepository) List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	cursor, err := r.collection.Find(ctx, reviewQuery(filter), reviewFindOptions(filter))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []reviewDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		out = append(out, reviewFromDoc(doc))
	}
	return out, nil
}

func reviewQuery(filter domain.ReviewFilter) bson.M {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = string(filter.UserID)
	}
	if filter.MovieID > 0 {
		query["movieId"] = filter.MovieID
	}
	rating := bson.M{}
	if filter.MinRating > 0 {
		rating["$gte"] = filter.MinRating
	}
	if filter.MaxRating > 0 {
		rating["$lte"] = filter.MaxRating
	}
	if len(rating) > 0 {
		query["rating"] = rating
	}
	return query
}

func reviewFindOptions(filter domain.ReviewFilter) *options.FindOptions {
	field := "createdAt"
	if filter.SortBy == domain.ReviewSortRating {
		field = "rating"
	}
	direction := -1
	if filter.SortOrder == domain.SortAsc {
		direction = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: field, Value: direction}, {Key: "_id", Value: 1}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return opts
}

func reviewToDoc(r domain.Review) reviewDoc {
	return reviewDoc{
		ID:         r.ID,
		MovieID:    r.MovieID,
		MovieTitle: r.MovieTitle,
		UserID:     string(r.UserID),
		Username:   r.Username,
		Rating:     r.Rating,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt.Unix(),
		UpdatedAt:  unixOrZero(r.UpdatedAt),
	}
}

func reviewFromDoc(doc reviewDoc) domain.Review {
	return domain.Review{
		ID:         doc.ID,
		MovieID:    doc.MovieID,
		MovieTitle: doc.MovieTitle,
		UserID:     domain.UserID(doc.UserID),
		Username:   doc.Username,
		Rating:     doc.Rating,
		Content:    doc.Content,
		CreatedAt:  timeFromUnix(doc.CreatedAt),
		UpdatedAt:  optionalTime(doc.UpdatedAt),
	}
}
