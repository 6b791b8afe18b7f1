package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/habitverse/habitverse-api/internal/domain/habit"
	"github.com/habitverse/habitverse-api/internal/domain/user"
)

func decodeCompletion(t *testing.T, raw bson.M) completionDoc {
	t.Helper()
	data, err := bson.Marshal(raw)
	require.NoError(t, err)
	var doc completionDoc
	require.NoError(t, bson.Unmarshal(data, &doc))
	return doc
}

func TestTimestampDecodesDatetime(t *testing.T) {
	at := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	doc := decodeCompletion(t, bson.M{"id": "c1", "completed_at": at})
	assert.True(t, at.Equal(doc.CompletedAt.Time))
}

func TestTimestampDecodesISOStrings(t *testing.T) {
	tests := map[string]time.Time{
		"2024-04-02T08:30:00Z":       time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC),
		"2024-04-02T08:30:00.123456": time.Date(2024, 4, 2, 8, 30, 0, 123456000, time.UTC),
		"2024-04-02T13:30:00+05:00":  time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC),
		"2024-04-02":                 time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range tests {
		doc := decodeCompletion(t, bson.M{"completed_at": in})
		assert.True(t, want.Equal(doc.CompletedAt.Time), in)
	}
}

func TestTimestampUndecodableIsZero(t *testing.T) {
	assert.True(t, decodeCompletion(t, bson.M{"completed_at": "last tuesday"}).CompletedAt.IsZero())
	assert.True(t, decodeCompletion(t, bson.M{"completed_at": 42}).CompletedAt.IsZero())
	assert.True(t, decodeCompletion(t, bson.M{"id": "no timestamp"}).CompletedAt.IsZero())
}

func TestTimestampEncodesAsDatetime(t *testing.T) {
	at := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)
	data, err := bson.Marshal(moodDoc{ID: "m1", CreatedAt: ts(at)})
	require.NoError(t, err)

	var raw bson.Raw = data
	v := raw.Lookup("created_at")
	assert.Equal(t, bson.TypeDateTime, v.Type)
}

func TestUserDocDefaults(t *testing.T) {
	u := (userDoc{ID: "u1", TotalXP: -5}).toDomain()
	assert.Equal(t, 0, u.TotalXP)
	assert.Equal(t, user.DefaultAvatarLevel, u.AvatarLevel)
	assert.NotNil(t, u.Achievements)

	doc := toUserDoc(&user.User{ID: "u2"})
	assert.NotNil(t, doc.Achievements)
	assert.NotNil(t, doc.AvatarCustomization.Accessories)
}

func TestHabitDocDerivesReward(t *testing.T) {
	h := (habitDoc{ID: "h1", Difficulty: 4, Category: "sleep"}).toDomain()
	assert.Equal(t, 40, h.XPReward)
	assert.Equal(t, habit.FrequencyDaily, h.TargetFrequency)
}

func TestSinceFilterIncludesLegacyTimestamps(t *testing.T) {
	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	f := sinceFilter("u1", "completed_at", since)

	assert.Equal(t, "u1", f["user_id"])
	or, ok := f["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)
	assert.Equal(t, bson.M{"completed_at": bson.M{"$gte": since}}, or[0])
	assert.Equal(t, bson.M{"completed_at": bson.M{"$type": "string"}}, or[1])
	assert.Equal(t, bson.M{"completed_at": nil}, or[2])
}

func TestKeepSinceResolvesDecodedTimes(t *testing.T) {
	since := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	docs := []completionDoc{
		decodeCompletion(t, bson.M{"id": "new-string", "completed_at": "2024-04-03T09:00:00Z"}),
		decodeCompletion(t, bson.M{"id": "old-string", "completed_at": "2024-03-20T09:00:00Z"}),
		decodeCompletion(t, bson.M{"id": "datetime", "completed_at": since.Add(time.Hour)}),
		decodeCompletion(t, bson.M{"id": "garbage", "completed_at": "last tuesday"}),
	}
	items := make([]*habit.Completion, len(docs))
	for i, d := range docs {
		items[i] = d.toDomain()
	}

	got := keepSince(items, func(c *habit.Completion) time.Time { return c.CompletedAt }, since)

	ids := make([]string, len(got))
	for i, c := range got {
		ids[i] = c.ID
	}
	// The undecodable record is kept for the aggregator to skip and count.
	assert.Equal(t, []string{"garbage", "datetime", "new-string"}, ids)
}
