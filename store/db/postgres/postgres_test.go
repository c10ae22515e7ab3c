package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/polyglot/internal/profile"
	"github.com/hrygo/polyglot/store"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1", placeholder(1))
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}

func TestBuildSessionUpdate(t *testing.T) {
	level, topic := "B2", "travel"
	set, args := buildSessionUpdate(&store.UpdateTutorSession{ID: "s", Level: &level, Topic: &topic, UpdatedTs: 7})
	assert.Equal(t, []string{"updated_ts = $1", "level = $2", "topic = $3"}, set)
	assert.Equal(t, []any{int64(7), "B2", "travel"}, args)
}

func TestNewDB_RequiresDSN(t *testing.T) {
	_, err := NewDB(&profile.Profile{})
	assert.Error(t, err)
}

// TestTutorMessages_Integration runs against a live database when
// POLYGLOT_TEST_POSTGRES_DSN is set.
func TestTutorMessages_Integration(t *testing.T) {
	dsn := os.Getenv("POLYGLOT_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POLYGLOT_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	driver, err := NewDB(&profile.Profile{DSN: dsn})
	require.NoError(t, err)
	defer driver.Close()
	require.NoError(t, driver.Migrate(ctx))

	sid := fmt.Sprintf("it-%d", time.Now().UnixNano())
	for i := 1; i <= 4; i++ {
		require.NoError(t, driver.AppendTutorMessage(ctx, &store.TutorMessage{
			ID: fmt.Sprintf("%s-%d", sid, i), SessionID: sid, Role: "user", Content: "x", CreatedTs: int64(i),
		}))
	}
	require.NoError(t, driver.AppendTutorMessage(ctx, &store.TutorMessage{ID: sid + "-1", SessionID: sid, Role: "user", Content: "dup"}))

	count, err := driver.CountTutorMessages(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	list, err := driver.ListRecentTutorMessages(ctx, &store.FindTutorMessage{SessionID: sid, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, sid+"-3", list[0].ID)
	assert.Equal(t, sid+"-4", list[1].ID)
}
