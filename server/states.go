package main

import (
	"sort"
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/pluginapi"

	"github.com/mattermost/mattermost-plugin-trafikinfo/server/entity"
)

const (
	// StateCacheTTL is how long the last state of an entity is kept without an update
	StateCacheTTL = 24 * time.Hour

	// StateCleanupInterval is how often to clean up expired entries
	StateCleanupInterval = 10 * time.Minute
)

type storedState struct {
	state    entity.State
	received time.Time
}

// StateStore keeps the last pushed state of every entity so that cards created or reconfigured
// later start out with data instead of waiting for the next push.
type StateStore struct {
	api         *pluginapi.Client
	states      map[string]storedState
	mu          sync.RWMutex
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewStateStore creates a new state store and starts the cleanup loop
func NewStateStore(api *pluginapi.Client) *StateStore {
	s := &StateStore{
		api:         api,
		states:      make(map[string]storedState),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Record stores the state of an entity, replacing the previous one.
// States without an entity id are ignored and false is returned.
func (s *StateStore) Record(state entity.State) bool {
	if state.EntityID == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[state.EntityID] = storedState{state: state, received: time.Now()}
	return true
}

// Get returns the last state of an entity.
func (s *StateStore) Get(entityID string) (entity.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.states[entityID]
	return stored.state, ok
}

// Entities returns the ids of all entities with a stored state, sorted.
func (s *StateStore) Entities() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// cleanupLoop periodically removes expired entries from the cache
func (s *StateStore) cleanupLoop() {
	ticker := time.NewTicker(StateCleanupInterval)
	defer ticker.Stop()
	defer close(s.cleanupDone)

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup removes entries older than StateCacheTTL
func (s *StateStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expired := 0

	for id, stored := range s.states {
		if now.Sub(stored.received) > StateCacheTTL {
			delete(s.states, id)
			expired++
		}
	}

	if expired > 0 {
		s.api.Log.Debug("Cleaned up expired entity states",
			"expired", expired,
			"remaining", len(s.states))
	}
}

// Stop stops the cleanup goroutine and waits for it to finish
func (s *StateStore) Stop() {
	close(s.stopCleanup)
	<-s.cleanupDone
}
