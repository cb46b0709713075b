package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daat21/lumiere/internal/domain"
)

type UserRepository struct {
	collection *mongo.Collection
}

type userDoc struct {
	ID             string `bson:"_id"`
	Username       string `bson:"username"`
	Email          string `bson:"email"`
	HashedPassword string `bson:"hashedPassword"`
	IsActive       bool   `bson:"isActive"`
	IsSuperuser    bool   `bson:"isSuperuser"`
	AvatarURL      string `bson:"avatarUrl,omitempty"`
	Bio            string `bson:"bio,omitempty"`
	CreatedAt      int64  `bson:"createdAt"`
	UpdatedAt      int64  `bson:"updatedAt,omitempty"`
	LastLogin      int64  `bson:"lastLogin,omitempty"`
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *UserRepository) Create(ctx context.Context, u domain.User) error {
	_, err := r.collection.InsertOne(ctx, userToDoc(u))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *UserRepository) Get(ctx context.Context, id domain.UserID) (domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"username": strings.TrimSpace(username)})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (domain.User, error) {
	var doc userDoc
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	return userFromDoc(doc), nil
}

// UpdateProfile applies the non-nil fields of patch and returns the updated user.
func (r *UserRepository) UpdateProfile(ctx context.Context, id domain.UserID, patch domain.ProfilePatch, at time.Time) (domain.User, error) {
	set := profileSet(patch)
	set["updatedAt"] = at.UTC().Unix()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": string(id)}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return domain.User{}, domain.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return domain.User{}, domain.ErrAlreadyExists
		}
		return domain.User{}, err
	}
	return userFromDoc(doc), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id domain.UserID, hash string, at time.Time) error {
	return r.setFields(ctx, id, bson.M{"hashedPassword": hash, "updatedAt": at.UTC().Unix()})
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id domain.UserID, at time.Time) error {
	return r.setFields(ctx, id, bson.M{"lastLogin": at.UTC().Unix()})
}

func (r *UserRepository) setFields(ctx context.Context, id domain.UserID, set bson.M) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": string(id)}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func profileSet(patch domain.ProfilePatch) bson.M {
	set := bson.M{}
	if patch.Username != nil {
		set["username"] = strings.TrimSpace(*patch.Username)
	}
	if patch.Email != nil {
		set["email"] = normalizeEmail(*patch.Email)
	}
	if patch.Bio != nil {
		set["bio"] = *patch.Bio
	}
	if patch.AvatarURL != nil {
		set["avatarUrl"] = strings.TrimSpace(*patch.AvatarURL)
	}
	return set
}

func userToDoc(u domain.User) userDoc {
	return userDoc{
		ID:             string(u.ID),
		Username:       strings.TrimSpace(u.Username),
		Email:          normalizeEmail(u.Email),
		HashedPassword: u.HashedPassword,
		IsActive:       u.IsActive,
		IsSuperuser:    u.IsSuperuser,
		AvatarURL:      u.AvatarURL,
		Bio:            u.Bio,
		CreatedAt:      u.CreatedAt.Unix(),
		UpdatedAt:      unixOrZero(u.UpdatedAt),
		LastLogin:      unixOrZero(u.LastLogin),
	}
}

func userFromDoc(doc userDoc) domain.User {
	return domain.User{
		ID:             domain.UserID(doc.ID),
		Username:       doc.Username,
		Email:          doc.Email,
		HashedPassword: doc.HashedPassword,
		IsActive:       doc.IsActive,
		IsSuperuser:    doc.IsSuperuser,
		AvatarURL:      doc.AvatarURL,
		Bio:            doc.Bio,
		CreatedAt:      timeFromUnix(doc.CreatedAt),
		UpdatedAt:      optionalTime(doc.UpdatedAt),
		LastLogin:      optionalTime(doc.LastLogin),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}

func unixOrZero(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.Unix()
}

func optionalTime(value int64) *time.Time {
	if value == 0 {
		return nil
	}
	t := timeFromUnix(value)
	return &t
}
