package redis

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"trivia-game-service/internal/app"
)

// LiveStore is a Redis-aware implementation of app.LiveStore.
// Notes:
//   - Live game state (engine, slot, pending answers) stays in-process; this
//     design is a single coordinator authority per session.
//   - Redis marks session liveness so dashboards and operators can see which
//     sessions hold in-memory state that would be reshuffled by a restart.
type LiveStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[int64]*app.Live
}

func NewLiveStore(client *redis.Client, ttl time.Duration) *LiveStore {
	return &LiveStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int64]*app.Live),
	}
}

func (s *LiveStore) GetOrCreate(sessionID int64) *app.Live {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.sessions[sessionID]; ok {
		return live
	}
	live := app.NewLive(sessionID)
	s.sessions[sessionID] = live
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(sessionID), "1", s.ttl).Err()
	return live
}

func (s *LiveStore) Get(sessionID int64) (*app.Live, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live, ok := s.sessions[sessionID]
	return live, ok
}

func (s *LiveStore) Delete(sessionID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *LiveStore) key(sessionID int64) string {
	return "game:live:" + strconv.FormatInt(sessionID, 10)
}
