package sensors

import (
	"sync"
	"time"

	"sentinel/internal/model"
)

// displayLimit caps the recent-events list carried by published sensor
// values.
const displayLimit = 10

// Store holds the latest aggregate snapshot published to the host platform.
// The coordinator writes after every processed event; the API reads.
type Store struct {
	mu        sync.RWMutex
	snapshot  model.Snapshot
	updatedAt time.Time
}

func NewStore() *Store {
	return &Store{snapshot: model.Snapshot{ThreatLevel: model.SeverityLow}}
}

func (s *Store) Update(snapshot model.Snapshot) {
	if len(snapshot.RecentEvents) > displayLimit {
		snapshot.RecentEvents = snapshot.RecentEvents[:displayLimit]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snapshot
	s.updatedAt = time.Now().UTC()
}

func (s *Store) Get() (model.Snapshot, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.updatedAt
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = model.Snapshot{ThreatLevel: model.SeverityLow}
	s.updatedAt = time.Time{}
}
