package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HABITS
// ══════════════════════════════════════════════════════════════════════════════

// HabitRepository implements habit.Repository.
type HabitRepository struct {
	coll *mongo.Collection
}

var _ habit.Repository = (*HabitRepository)(nil)

func NewHabitRepository(conn *Connection) *HabitRepository {
	return &HabitRepository{coll: conn.Database().Collection(CollectionHabits)}
}

func (r *HabitRepository) Create(ctx context.Context, h *habit.Habit) error {
	if _, err := r.coll.InsertOne(ctx, toHabitDoc(h)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.NewDomainError("habit", "Create", shared.ErrAlreadyExists, "habit already exists")
		}
		return fmt.Errorf("insert habit: %w", err)
	}
	return nil
}

func (r *HabitRepository) GetByID(ctx context.Context, id string) (*habit.Habit, error) {
	var doc habitDoc
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrHabitNotFound
		}
		return nil, fmt.Errorf("find habit: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *HabitRepository) ListActive(ctx context.Context, userID string) ([]*habit.Habit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"user_id": userID, "is_active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	var docs []habitDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode habits: %w", err)
	}
	out := make([]*habit.Habit, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

func (r *HabitRepository) CountActive(ctx context.Context, userID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID, "is_active": true})
	if err != nil {
		return 0, fmt.Errorf("count habits: %w", err)
	}
	return int(n), nil
}

func (r *HabitRepository) Deactivate(ctx context.Context, id string) (*habit.Habit, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc habitDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"is_active": false}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.ErrHabitNotFound
		}
		return nil, fmt.Errorf("deactivate habit: %w", err)
	}
	return doc.toDomain(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETIONS
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements habit.CompletionRepository.
type CompletionRepository struct {
	coll *mongo.Collection
}

var _ habit.CompletionRepository = (*CompletionRepository)(nil)

func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{coll: conn.Database().Collection(CollectionCompletions)}
}

func (r *CompletionRepository) Create(ctx context.Context, c *habit.Completion) error {
	if _, err := r.coll.InsertOne(ctx, toCompletionDoc(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.ErrAlreadyCompleted
		}
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

func (r *CompletionRepository) ExistsForHabitSince(ctx context.Context, userID, habitID string, since time.Time) (bool, error) {
	return r.exists(ctx, bson.M{"user_id": userID, "habit_id": habitID, "completed_at": bson.M{"$gte": since.UTC()}})
}

func (r *CompletionRepository) ExistsBetween(ctx context.Context, userID string, from, to time.Time) (bool, error) {
	return r.exists(ctx, bson.M{"user_id": userID, "completed_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()}})
}

func (r *CompletionRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count completions: %w", err)
	}
	return n > 0, nil
}

func (r *CompletionRepository) HabitIDsSince(ctx context.Context, userID string, since time.Time) (map[string]bool, error) {
	ids, err := r.coll.Distinct(ctx, "habit_id", bson.M{"user_id": userID, "completed_at": bson.M{"$gte": since.UTC()}})
	if err != nil {
		return nil, fmt.Errorf("distinct completed habits: %w", err)
	}
	out := make(map[string]bool, len(ids))
	for _, v := range ids {
		if s, ok := v.(string); ok {
			out[s] = true
		}
	}
	return out, nil
}

func (r *CompletionRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count completions: %w", err)
	}
	return int(n), nil
}

func (r *CompletionRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*habit.Completion, error) {
	docs, err := r.find(ctx, sinceFilter(userID, "completed_at", since), options.Find())
	if err != nil {
		return nil, err
	}
	return keepSince(docs, func(c *habit.Completion) time.Time { return c.CompletedAt }, since), nil
}

func (r *CompletionRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*habit.Completion, error) {
	opts := options.Find().SetSort(bson.D{{Key: "completed_at", Value: -1}}).SetLimit(int64(limit))
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *CompletionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*habit.Completion, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find completions: %w", err)
	}
	var docs []completionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode completions: %w", err)
	}
	out := make([]*habit.Completion, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MOODS
// ══════════════════════════════════════════════════════════════════════════════

// MoodRepository implements habit.MoodRepository.
type MoodRepository struct {
	coll *mongo.Collection
}

var _ habit.MoodRepository = (*MoodRepository)(nil)

func NewMoodRepository(conn *Connection) *MoodRepository {
	return &MoodRepository{coll: conn.Database().Collection(CollectionMoods)}
}

func (r *MoodRepository) Create(ctx context.Context, m *habit.MoodEntry) error {
	if _, err := r.coll.InsertOne(ctx, toMoodDoc(m)); err != nil {
		return fmt.Errorf("insert mood entry: %w", err)
	}
	return nil
}

func (r *MoodRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count mood entries: %w", err)
	}
	return int(n), nil
}

func (r *MoodRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]*habit.MoodEntry, error) {
	docs, err := r.find(ctx, sinceFilter(userID, "created_at", since), options.Find())
	if err != nil {
		return nil, err
	}
	return keepSince(docs, func(m *habit.MoodEntry) time.Time { return m.CreatedAt }, since), nil
}

func (r *MoodRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*habit.MoodEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *MoodRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*habit.MoodEntry, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find mood entries: %w", err)
	}
	var docs []moodDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mood entries: %w", err)
	}
	out := make([]*habit.MoodEntry, len(docs))
	for i, d := range docs {
		out[i] = d.toDomain()
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY WINDOWS
// ══════════════════════════════════════════════════════════════════════════════

// sinceFilter matches datetimes >= since plus string and missing timestamps.
// A $gte on a date never matches strings, so legacy records are fetched
// unconditionally and resolved by keepSince after decoding.
func sinceFilter(userID, field string, since time.Time) bson.M {
	return bson.M{
		"user_id": userID,
		"$or": bson.A{
			bson.M{field: bson.M{"$gte": since.UTC()}},
			bson.M{field: bson.M{"$type": "string"}},
			bson.M{field: nil},
		},
	}
}

// keepSince drops records decoded to a time before since and orders the rest
// by time. Zero times stay in front for the analytics aggregator to count.
func keepSince[T any](items []T, at func(T) time.Time, since time.Time) []T {
	out := items[:0]
	for _, it := range items {
		if t := at(it); t.IsZero() || !t.Before(since) {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return at(out[i]).Before(at(out[j])) })
	return out
}
