// Package redis stores conversation history in Redis lists.
//
// Every key of a session shares the {sessionID} hash tag so the Lua
// scripts stay valid on a cluster.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hrygo/polyglot/internal/profile"
	"github.com/hrygo/polyglot/store"
)

const defaultKeyPrefix = "polyglot"

type DB struct {
	client    goredis.UniversalClient
	keyPrefix string

	appendScript   *goredis.Script
	countersScript *goredis.Script
}

// NewDB connects to the redis URL in profile.DSN, e.g. redis://localhost:6379/0.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil || profile.DSN == "" {
		return nil, errors.New("dsn required")
	}
	opts, err := goredis.ParseURL(profile.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis url")
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return NewDBWithClient(goredis.NewClient(opts)), nil
}

// NewDBWithClient wraps an existing client.
func NewDBWithClient(client goredis.UniversalClient) *DB {
	return &DB{
		client:         client,
		keyPrefix:      defaultKeyPrefix,
		appendScript:   goredis.NewScript(appendMessageScript),
		countersScript: goredis.NewScript(upsertCountersScript),
	}
}

func (d *DB) Close() error {
	return d.client.Close()
}

// Migrate only checks connectivity; redis has no schema.
func (d *DB) Migrate(ctx context.Context) error {
	if err := d.client.Ping(ctx).Err(); err != nil {
		return errors.Wrap(err, "failed to ping redis")
	}
	return nil
}

func (d *DB) sessionKey(sessionID, suffix string) string {
	return fmt.Sprintf("%s:session:{%s}:%s", d.keyPrefix, sessionID, suffix)
}

func (d *DB) messagesKey(sessionID string) string { return d.sessionKey(sessionID, "messages") }
func (d *DB) idsKey(sessionID string) string      { return d.sessionKey(sessionID, "ids") }
func (d *DB) countersKey(sessionID string) string { return d.sessionKey(sessionID, "counters") }
func (d *DB) metaKey(sessionID string) string     { return d.sessionKey(sessionID, "meta") }

type messageRecord struct {
	ID            string `json:"id"`
	SessionID     string `json:"session_id"`
	Role          string `json:"role"`
	Content       string `json:"content"`
	Corrections   string `json:"corrections,omitempty"`
	MicroExercise string `json:"micro_exercise,omitempty"`
	CreatedTs     int64  `json:"created_ts"`
}

func (d *DB) AppendTutorMessage(ctx context.Context, create *store.TutorMessage) error {
	payload, err := json.Marshal(messageRecord{
		ID:            create.ID,
		SessionID:     create.SessionID,
		Role:          create.Role,
		Content:       create.Content,
		Corrections:   string(create.CorrectionsJSON),
		MicroExercise: create.MicroExercise,
		CreatedTs:     create.CreatedTs,
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode tutor message")
	}
	keys := []string{d.idsKey(create.SessionID), d.messagesKey(create.SessionID)}
	if err := d.appendScript.Run(ctx, d.client, keys, create.ID, payload).Err(); err != nil {
		return errors.Wrapf(err, "failed to append tutor message %s", create.ID)
	}
	return nil
}

func (d *DB) ListRecentTutorMessages(ctx context.Context, find *store.FindTutorMessage) ([]*store.TutorMessage, error) {
	start := int64(0)
	if find.Limit > 0 {
		start = -int64(find.Limit)
	}
	raw, err := d.client.LRange(ctx, d.messagesKey(find.SessionID), start, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tutor messages")
	}

	list := make([]*store.TutorMessage, 0, len(raw))
	for _, item := range raw {
		var rec messageRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, errors.Wrap(err, "failed to decode tutor message")
		}
		m := &store.TutorMessage{
			ID:            rec.ID,
			SessionID:     rec.SessionID,
			Role:          rec.Role,
			Content:       rec.Content,
			MicroExercise: rec.MicroExercise,
			CreatedTs:     rec.CreatedTs,
		}
		if rec.Corrections != "" {
			m.CorrectionsJSON = []byte(rec.Corrections)
		}
		list = append(list, m)
	}
	return list, nil
}

func (d *DB) CountTutorMessages(ctx context.Context, sessionID string) (int, error) {
	n, err := d.client.LLen(ctx, d.messagesKey(sessionID)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count tutor messages")
	}
	return int(n), nil
}

func (d *DB) UpsertSessionCounters(ctx context.Context, upsert *store.SessionCounters) error {
	err := d.countersScript.Run(ctx, d.client, []string{d.countersKey(upsert.SessionID)},
		upsert.TotalMessageCount, upsert.UserTurnCount, upsert.LastFeedbackAt, upsert.LastExerciseAt, upsert.UpdatedTs,
	).Err()
	if err != nil {
		return errors.Wrapf(err, "failed to upsert counters of session %s", upsert.SessionID)
	}
	return nil
}

func (d *DB) GetSessionCounters(ctx context.Context, sessionID string) (*store.SessionCounters, error) {
	fields, err := d.client.HGetAll(ctx, d.countersKey(sessionID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session counters")
	}
	if len(fields) == 0 {
		return nil, nil
	}
	atoi := func(key string) int {
		v, _ := strconv.Atoi(fields[key])
		return v
	}
	updated, _ := strconv.ParseInt(fields["updated_ts"], 10, 64)
	return &store.SessionCounters{
		SessionID:         sessionID,
		TotalMessageCount: atoi("total_message_count"),
		UserTurnCount:     atoi("user_turn_count"),
		LastFeedbackAt:    atoi("last_feedback_at"),
		LastExerciseAt:    atoi("last_exercise_at"),
		UpdatedTs:         updated,
	}, nil
}
