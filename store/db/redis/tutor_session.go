package redis

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/hrygo/polyglot/store"
)

type sessionRecord struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id,omitempty"`
	Level          string `json:"level"`
	Mode           string `json:"mode"`
	Topic          string `json:"topic,omitempty"`
	NativeLanguage string `json:"native_language,omitempty"`
	TargetLanguage string `json:"target_language,omitempty"`
	CreatedTs      int64  `json:"created_ts"`
	UpdatedTs      int64  `json:"updated_ts"`
	EndedTs        int64  `json:"ended_ts,omitempty"`
}

func toSessionRecord(s *store.TutorSession) sessionRecord {
	return sessionRecord{
		ID: s.ID, UserID: s.UserID, Level: s.Level, Mode: s.Mode, Topic: s.Topic,
		NativeLanguage: s.NativeLanguage, TargetLanguage: s.TargetLanguage,
		CreatedTs: s.CreatedTs, UpdatedTs: s.UpdatedTs, EndedTs: s.EndedTs,
	}
}

func (r sessionRecord) toSession() *store.TutorSession {
	return &store.TutorSession{
		ID: r.ID, UserID: r.UserID, Level: r.Level, Mode: r.Mode, Topic: r.Topic,
		NativeLanguage: r.NativeLanguage, TargetLanguage: r.TargetLanguage,
		CreatedTs: r.CreatedTs, UpdatedTs: r.UpdatedTs, EndedTs: r.EndedTs,
	}
}

func (d *DB) CreateTutorSession(ctx context.Context, create *store.TutorSession) (*store.TutorSession, error) {
	payload, err := json.Marshal(toSessionRecord(create))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode tutor session")
	}
	ok, err := d.client.SetNX(ctx, d.metaKey(create.ID), payload, 0).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create tutor session")
	}
	if !ok {
		return nil, errors.Errorf("tutor session %s already exists", create.ID)
	}
	return create, nil
}

func (d *DB) GetTutorSession(ctx context.Context, id string) (*store.TutorSession, error) {
	raw, err := d.client.Get(ctx, d.metaKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tutor session")
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to decode tutor session")
	}
	return rec.toSession(), nil
}

func (d *DB) UpdateTutorSession(ctx context.Context, update *store.UpdateTutorSession) (*store.TutorSession, error) {
	key := d.metaKey(update.ID)
	var updated *store.TutorSession

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == goredis.Nil {
			return errors.Wrapf(store.ErrNotFound, "tutor session %s", update.ID)
		}
		if err != nil {
			return err
		}
		var rec sessionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return errors.Wrap(err, "failed to decode tutor session")
		}
		if update.Level != nil {
			rec.Level = *update.Level
		}
		if update.Mode != nil {
			rec.Mode = *update.Mode
		}
		if update.Topic != nil {
			rec.Topic = *update.Topic
		}
		if update.EndedTs != nil {
			rec.EndedTs = *update.EndedTs
		}
		rec.UpdatedTs = update.UpdatedTs

		payload, err := json.Marshal(rec)
		if err != nil {
			return errors.Wrap(err, "failed to encode tutor session")
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, payload, 0)
			return nil
		})
		if err == nil {
			updated = rec.toSession()
		}
		return err
	}

	if err := d.client.Watch(ctx, txf, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to update tutor session")
	}
	return updated, nil
}
