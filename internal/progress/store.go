// Package progress persists in-flight attempt snapshots so a user can leave
// a quiz and pick it up later, on another device included. Snapshots are
// versioned JSON blobs in Redis keyed per user and quiz.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-engine/internal/apperr"
	"quiz-engine/internal/engine"
)

// SnapshotVersion is bumped whenever the envelope layout changes. Loads
// reject snapshots written by a different version instead of guessing.
const SnapshotVersion = 1

const keyPrefix = "quiz:progress"

// KV is the subset of the Redis client the store needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Envelope wraps a state snapshot with versioning metadata.
type Envelope struct {
	Version int          `json:"version"`
	SavedAt time.Time    `json:"saved_at"`
	State   engine.State `json:"state"`
}

// Store saves and restores attempt snapshots. Operations on the same
// user/quiz pair are mutually exclusive: a second call arriving while the
// first is still in flight fails with a concurrency error rather than
// queueing behind it.
type Store struct {
	kv    KV
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewStore builds a store. ttl <= 0 keeps snapshots until explicitly deleted.
func NewStore(kv KV, ttl time.Duration) *Store {
	return &Store{
		kv:       kv,
		ttl:      ttl,
		clock:    time.Now,
		inFlight: make(map[string]struct{}),
	}
}

func snapshotKey(userID, quizID string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, userID, quizID)
}

// acquire claims the key for one operation, or fails if it is already held.
func (s *Store) acquire(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.inFlight[key]; held {
		return apperr.Concurrency("snapshot operation already in flight for %s", key)
	}
	s.inFlight[key] = struct{}{}
	return nil
}

func (s *Store) release(key string) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
}

// Save writes the snapshot for userID/quizID, replacing any previous one.
func (s *Store) Save(ctx context.Context, userID, quizID string, st engine.State) error {
	if userID == "" || quizID == "" {
		return apperr.Validation("user id and quiz id are required")
	}
	key := snapshotKey(userID, quizID)
	if err := s.acquire(key); err != nil {
		return err
	}
	defer s.release(key)

	env := Envelope{Version: SnapshotVersion, SavedAt: s.clock(), State: st}
	raw, err := json.Marshal(env)
	if err != nil {
		return apperr.Persistence("marshal snapshot for %s: %v", key, err)
	}
	if err := s.kv.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		return apperr.Persistence("save snapshot for %s: %v", key, err)
	}
	return nil
}

// Load reads and validates the snapshot for userID/quizID. A missing
// snapshot is a not-found error; a structurally broken one is a persistence
// error, never a silently-wrong state.
func (s *Store) Load(ctx context.Context, userID, quizID string) (engine.State, error) {
	if userID == "" || quizID == "" {
		return engine.State{}, apperr.Validation("user id and quiz id are required")
	}
	key := snapshotKey(userID, quizID)
	if err := s.acquire(key); err != nil {
		return engine.State{}, err
	}
	defer s.release(key)

	raw, err := s.kv.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return engine.State{}, apperr.NotFound("no saved progress for quiz %s", quizID)
	}
	if err != nil {
		return engine.State{}, apperr.Persistence("load snapshot for %s: %v", key, err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return engine.State{}, apperr.Persistence("snapshot for %s is not valid JSON: %v", key, err)
	}
	if err := validate(env); err != nil {
		return engine.State{}, err
	}
	return env.State, nil
}

// Delete removes the snapshot, typically after the attempt completes.
// Deleting a missing snapshot is not an error.
func (s *Store) Delete(ctx context.Context, userID, quizID string) error {
	if userID == "" || quizID == "" {
		return apperr.Validation("user id and quiz id are required")
	}
	key := snapshotKey(userID, quizID)
	if err := s.acquire(key); err != nil {
		return err
	}
	defer s.release(key)

	if err := s.kv.Del(ctx, key).Err(); err != nil {
		return apperr.Persistence("delete snapshot for %s: %v", key, err)
	}
	return nil
}

func validate(env Envelope) error {
	if env.Version != SnapshotVersion {
		return apperr.Persistence("unsupported snapshot version %d", env.Version)
	}
	st := env.State
	if st.QuizID == "" {
		return apperr.Persistence("snapshot is missing its quiz id")
	}
	switch st.Status {
	case engine.StatusNotStarted, engine.StatusInProgress, engine.StatusPaused, engine.StatusCompleted:
	default:
		return apperr.Persistence("snapshot has unknown status %q", st.Status)
	}
	if len(st.Questions) == 0 {
		return apperr.Persistence("snapshot has no questions")
	}
	if st.CurrentIndex < 0 || st.CurrentIndex >= len(st.Questions) {
		return apperr.Persistence("snapshot index %d out of range [0,%d)", st.CurrentIndex, len(st.Questions))
	}
	known := make(map[string]bool, len(st.Questions))
	for _, q := range st.Questions {
		known[q.ID] = true
	}
	for id := range st.Answers {
		if !known[id] {
			return apperr.Persistence("snapshot answer references unknown question %s", id)
		}
	}
	return nil
}
