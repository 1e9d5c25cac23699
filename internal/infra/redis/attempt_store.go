package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quiz-attempt-service/internal/app"
)

// AttemptStore is a Redis-backed implementation of app.AttemptStore.
// Notes:
//   - Live attempts are kept in a local map so subscribers and the timer share
//     one in-process instance per attempt.
//   - Every save writes the attempt snapshot to Redis with a TTL, so an attempt
//     unknown to this process (restart, another replica) is restored on Get.
//   - The timer of this process only ticks attempts it holds locally; Load
//     pulls every stored attempt into the map at startup so abandoned tabs
//     still time out.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger

	mu       sync.RWMutex
	attempts map[string]*app.Attempt
}

func NewAttemptStore(client *redis.Client, ttl time.Duration, log *zap.Logger) *AttemptStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
		log:      log,
		attempts: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) Save(ctx context.Context, attempt *app.Attempt) error {
	s.mu.Lock()
	s.attempts[attempt.ID()] = attempt
	s.mu.Unlock()

	data, err := json.Marshal(attempt.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	return s.client.Set(ctx, s.key(attempt.ID()), data, s.ttl).Err()
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	attempt, ok := s.attempts[attemptID]
	s.mu.RUnlock()
	if ok {
		return attempt, true
	}

	data, err := s.client.Get(ctx, s.key(attemptID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warn("load attempt failed", zap.String("attempt_id", attemptID), zap.Error(err))
		}
		return nil, false
	}
	restored, err := decodeAttempt(data)
	if err != nil {
		s.log.Warn("restore attempt failed", zap.String("attempt_id", attemptID), zap.Error(err))
		return nil, false
	}
	return s.adopt(restored), true
}

// Load scans Redis for stored attempts and adopts the ones this process does
// not hold yet. It returns how many were adopted.
func (s *AttemptStore) Load(ctx context.Context) (int, error) {
	loaded := 0
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		attemptID := strings.TrimPrefix(key, keyPrefix)
		s.mu.RLock()
		_, known := s.attempts[attemptID]
		s.mu.RUnlock()
		if known {
			continue
		}

		data, err := s.client.Get(ctx, key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return loaded, fmt.Errorf("get %s: %w", key, err)
		}
		restored, err := decodeAttempt(data)
		if err != nil {
			s.log.Warn("skip unreadable attempt", zap.String("attempt_id", attemptID), zap.Error(err))
			continue
		}
		s.adopt(restored)
		loaded++
	}
	if err := iter.Err(); err != nil {
		return loaded, fmt.Errorf("scan attempts: %w", err)
	}
	return loaded, nil
}

// adopt stores a restored attempt unless another caller restored it first.
func (s *AttemptStore) adopt(restored *app.Attempt) *app.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.attempts[restored.ID()]; ok {
		return existing
	}
	s.attempts[restored.ID()] = restored
	return restored
}

func decodeAttempt(data []byte) (*app.Attempt, error) {
	var snap app.AttemptSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode attempt: %w", err)
	}
	return app.RestoreAttempt(snap)
}

func (s *AttemptStore) Delete(ctx context.Context, attemptID string) {
	s.mu.Lock()
	delete(s.attempts, attemptID)
	s.mu.Unlock()
	if err := s.client.Del(ctx, s.key(attemptID)).Err(); err != nil {
		s.log.Warn("delete attempt failed", zap.String("attempt_id", attemptID), zap.Error(err))
	}
}

func (s *AttemptStore) All() []*app.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Attempt, 0, len(s.attempts))
	for _, attempt := range s.attempts {
		out = append(out, attempt)
	}
	return out
}

const keyPrefix = "quiz:attempt:"

func (s *AttemptStore) key(attemptID string) string {
	return keyPrefix + attemptID
}
