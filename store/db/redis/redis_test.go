package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/internal/profile"
	"github.com/hrygo/polyglot/store"
)

func newTestDB(t *testing.T) (*DB, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	db := NewDBWithClient(goredis.NewClient(&goredis.Options{Addr: s.Addr()}))
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db, s
}

func TestNewDB(t *testing.T) {
	_, err := NewDB(&profile.Profile{})
	assert.Error(t, err)

	_, err = NewDB(&profile.Profile{DSN: "not a url"})
	assert.Error(t, err)

	s := miniredis.RunT(t)
	driver, err := NewDB(&profile.Profile{DSN: "redis://" + s.Addr() + "/0"})
	require.NoError(t, err)
	defer driver.Close()
	assert.NoError(t, driver.Migrate(context.Background()))
}

func TestTutorMessages(t *testing.T) {
	db, s := newTestDB(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		msg := &store.TutorMessage{
			ID:        fmt.Sprintf("s1-msg%d", i),
			SessionID: "s1",
			Role:      "user",
			Content:   fmt.Sprintf("message %d", i),
			CreatedTs: int64(i),
		}
		if i == 2 {
			msg.CorrectionsJSON = []byte(`[{"original":"a","correction":"b"}]`)
		}
		require.NoError(t, db.AppendTutorMessage(ctx, msg))
	}
	// duplicate id is ignored
	require.NoError(t, db.AppendTutorMessage(ctx, &store.TutorMessage{ID: "s1-msg1", SessionID: "s1", Role: "user", Content: "again"}))

	count, err := db.CountTutorMessages(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	recent, err := db.ListRecentTutorMessages(ctx, &store.FindTutorMessage{SessionID: "s1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "s1-msg4", recent[0].ID)
	assert.Equal(t, "s1-msg5", recent[1].ID)

	all, err := db.ListRecentTutorMessages(ctx, &store.FindTutorMessage{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "message 1", all[0].Content)
	assert.JSONEq(t, `[{"original":"a","correction":"b"}]`, string(all[1].CorrectionsJSON))
	assert.Nil(t, all[0].CorrectionsJSON)

	assert.True(t, s.Exists("polyglot:session:{s1}:messages"))

	empty, err := db.ListRecentTutorMessages(ctx, &store.FindTutorMessage{SessionID: "nobody"})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSessionCounters_NeverLowered(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	got, err := db.GetSessionCounters(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, db.UpsertSessionCounters(ctx, &store.SessionCounters{
		SessionID: "s1", TotalMessageCount: 10, UserTurnCount: 5, LastFeedbackAt: 3, LastExerciseAt: 5, UpdatedTs: 1,
	}))
	require.NoError(t, db.UpsertSessionCounters(ctx, &store.SessionCounters{
		SessionID: "s1", TotalMessageCount: 8, UserTurnCount: 6, LastFeedbackAt: 0, LastExerciseAt: 5, UpdatedTs: 2,
	}))

	got, err = db.GetSessionCounters(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.TotalMessageCount)
	assert.Equal(t, 6, got.UserTurnCount)
	assert.Equal(t, 3, got.LastFeedbackAt)
	assert.Equal(t, 5, got.LastExerciseAt)
	assert.Equal(t, int64(2), got.UpdatedTs)
}

func TestTutorSession(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	_, err := db.CreateTutorSession(ctx, &store.TutorSession{ID: "s1", Level: "A2", Mode: "tutor", CreatedTs: 1, UpdatedTs: 1})
	require.NoError(t, err)
	_, err = db.CreateTutorSession(ctx, &store.TutorSession{ID: "s1", Level: "A2", Mode: "tutor"})
	assert.Error(t, err)

	level := "B1"
	ended := int64(9)
	updated, err := db.UpdateTutorSession(ctx, &store.UpdateTutorSession{ID: "s1", Level: &level, EndedTs: &ended, UpdatedTs: 5})
	require.NoError(t, err)
	assert.Equal(t, "B1", updated.Level)
	assert.Equal(t, "tutor", updated.Mode)
	assert.Equal(t, int64(9), updated.EndedTs)

	got, err := db.GetTutorSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	missing, err := db.GetTutorSession(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = db.UpdateTutorSession(ctx, &store.UpdateTutorSession{ID: "nope", UpdatedTs: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
