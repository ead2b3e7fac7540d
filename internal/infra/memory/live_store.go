package memory

import (
	"sync"

	"trivia-game-service/internal/app"
)

// LiveStore is the in-memory implementation of app.LiveStore.
type LiveStore struct {
	mu       sync.RWMutex
	sessions map[int64]*app.Live
}

func NewLiveStore() *LiveStore {
	return &LiveStore{sessions: make(map[int64]*app.Live)}
}

func (s *LiveStore) GetOrCreate(sessionID int64) *app.Live {
	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.sessions[sessionID]; ok {
		return live
	}
	live := app.NewLive(sessionID)
	s.sessions[sessionID] = live
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
}
