package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulsefit/coach-backend/internal/shared"
)

const (
	activeTTL = 2 * time.Hour
	endedTTL  = 24 * time.Hour

	keyPattern = "coach:session:*"
)

// Store keeps session records in redis. Records expire on their own:
// an active record that never sees Ended (crashed client, lost node)
// falls out after activeTTL.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Started(ctx context.Context, sessionID, userID string) error {
	now := time.Now().UTC()
	rec := &Record{
		ID:           sessionID,
		UserID:       userID,
		Status:       StatusActive,
		StartedAt:    now,
		LastActiveAt: now,
	}
	return s.save(ctx, rec, activeTTL)
}

func (s *Store) Ended(ctx context.Context, sessionID string) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	rec.Status = StatusEnded
	rec.EndedAt = &now
	rec.LastActiveAt = now
	return s.save(ctx, rec, endedTTL)
}

func (s *Store) TurnCompleted(ctx context.Context, sessionID string) error {
	return s.bump(ctx, sessionID, func(rec *Record) { rec.Turns++ })
}

func (s *Store) Interrupted(ctx context.Context, sessionID string) error {
	return s.bump(ctx, sessionID, func(rec *Record) { rec.Interruptions++ })
}

func (s *Store) bump(ctx context.Context, sessionID string, apply func(*Record)) error {
	rec, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	apply(rec)
	rec.LastActiveAt = time.Now().UTC()
	return s.save(ctx, rec, activeTTL)
}

func (s *Store) Touch(ctx context.Context, sessionID string) error {
	return s.bump(ctx, sessionID, func(*Record) {})
}

func (s *Store) Get(ctx context.Context, sessionID string) (*Record, error) {
	rec := &Record{ID: sessionID}
	data, err := s.rdb.Get(ctx, rec.RedisKey()).Bytes()
	if err == redis.Nil {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return rec, nil
}

// ListByUser returns this user's records, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Record, error) {
	keys, err := s.rdb.Keys(ctx, keyPattern).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	records := make([]*Record, 0, len(keys))
	for _, key := range keys {
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		rec := &Record{}
		if err := json.Unmarshal(data, rec); err != nil {
			continue
		}
		if rec.UserID == userID {
			records = append(records, rec)
		}
	}

	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if records[j].StartedAt.After(records[i].StartedAt) {
				records[i], records[j] = records[j], records[i]
			}
		}
	}
	return records, nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	rec := &Record{ID: sessionID}
	if err := s.rdb.Del(ctx, rec.RedisKey()).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, rec *Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, rec.RedisKey(), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
