package events

import (
	"errors"
	"os"

	"github.com/goccy/go-json"

	"sentinel/internal/model"
)

type snapshotFile struct {
	Events []model.SecurityEvent `json:"events"`
}

// SnapshotStore persists the event log as a single JSON document, rewritten
// wholesale on every append. Most-recent-last, capped by the owning Log.
type SnapshotStore struct {
	path string
}

func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Load reads the persisted events. A missing file or one whose shape does
// not match is treated as no prior data, never as a startup failure.
func (s *SnapshotStore) Load() []model.SecurityEvent {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	return snap.Events
}

func (s *SnapshotStore) Save(events []model.SecurityEvent) error {
	if s.path == "" {
		return errors.New("snapshot path is empty")
	}
	data, err := json.Marshal(snapshotFile{Events: events})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
