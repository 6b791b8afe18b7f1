package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/habitverse/habitverse-api/internal/domain/shared"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

// UserRepository implements user.Repository on the users collection.
type UserRepository struct {
	coll *mongo.Collection
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository creates a new user repository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{coll: conn.Database().Collection(CollectionUsers)}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	if _, err := r.coll.InsertOne(ctx, toUserDoc(u)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.ErrUserAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]*user.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	out := make([]*user.User, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

// ApplyCompletion is one findAndModify: $inc total_xp, $set current_streak,
// $max longest_streak.
func (r *UserRepository) ApplyCompletion(ctx context.Context, id string, xpDelta, currentStreak int) (*user.User, error) {
	update := bson.M{
		"$inc": bson.M{"total_xp": xpDelta},
		"$set": bson.M{"current_streak": currentStreak},
		"$max": bson.M{"longest_streak": currentStreak},
	}
	return r.findAndUpdate(ctx, bson.M{"id": id}, update)
}

// AwardAchievements applies only if none of ids is already present.
// A miss on an existing user means another request won the race.
func (r *UserRepository) AwardAchievements(ctx context.Context, id string, ids []string, bonusXP int) (*user.User, error) {
	filter := bson.M{"id": id, "achievements": bson.M{"$nin": ids}}
	update := bson.M{
		"$inc":  bson.M{"total_xp": bonusXP},
		"$push": bson.M{"achievements": bson.M{"$each": ids}},
	}

	u, err := r.findAndUpdate(ctx, filter, update)
	if !shared.IsNotFound(err) {
		return u, err
	}

	n, countErr := r.coll.CountDocuments(ctx, bson.M{"id": id})
	if countErr != nil {
		return nil, fmt.Errorf("count user: %w", countErr)
	}
	if n == 0 {
		return nil, shared.ErrUserNotFound
	}
	return nil, shared.ErrAchievementConflict
}

func (r *UserRepository) findAndUpdate(ctx context.Context, filter, update bson.M) (*user.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrUserNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return doc.toDomain(), nil
}
