package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMatching(t *testing.T) {
	wrapped := fmt.Errorf("complete habit: %w", ErrHabitNotFound)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsValidation(wrapped))

	assert.True(t, IsValidation(ErrInvalidDifficulty))
	assert.True(t, IsConflict(ErrAchievementConflict))
	assert.True(t, IsRetryable(ErrAchievementConflict))
	assert.True(t, IsExternalService(ErrAIProviderUnavailable))

	cause := errors.New("socket closed")
	err := WrapError("user", "Get", ErrServiceUnavailable, "storage failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Equal(t, "user.Get: storage failed: socket closed", err.Error())
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("Get", NewID()))
	assert.NoError(t, ValidateID("Get", "legacy-id"))
	assert.ErrorIs(t, ValidateID("Get", "  "), ErrInvalidID)
}

func TestEnvelopeCarriesPayload(t *testing.T) {
	ev := NewHabitCompletedEvent("u1", "h1", 30, 130, 2, true, 3)
	ev.BaseEvent = ev.BaseEvent.WithCorrelationID("req-1")

	env, err := NewEnvelope(ev)
	require.NoError(t, err)
	assert.Equal(t, EventHabitCompleted, env.Type)
	assert.Equal(t, "u1", env.AggregateID)
	assert.Equal(t, "req-1", env.CorrelationID)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "h1", payload["habit_id"])
	assert.EqualValues(t, 130, payload["total_xp"])
}
