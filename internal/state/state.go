// Package state persists the timestamp of the last successful sync run.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	// completionOffset backdates the persisted timestamp so items played
	// while a run was in flight are picked up again next time.
	completionOffset = 6 * time.Hour

	// cutoffMargin widens the replay window by another day when reading
	// the timestamp back.
	cutoffMargin = 24 * time.Hour
)

// Store reads and writes the last-sync timestamp file
type Store struct {
	path string
}

// NewStore creates a new file-based state store
func NewStore(path string) *Store {
	return &Store{path: path}
}

type lastSync struct {
	LastSyncAt time.Time `json:"last_sync_at"`
}

// Cutoff returns the timestamp before which watched records are assumed
// already synchronized. Returns the zero time when no previous run exists,
// which makes the next run scan the full watched history.
func (s *Store) Cutoff() (time.Time, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to read state file: %w", err)
	}

	var st lastSync
	if err := json.Unmarshal(data, &st); err != nil {
		return time.Time{}, fmt.Errorf("failed to parse state file: %w", err)
	}
	if st.LastSyncAt.IsZero() {
		return time.Time{}, nil
	}

	return st.LastSyncAt.Add(-cutoffMargin), nil
}

// Commit records a successful run completion at the given instant
func (s *Store) Commit(finishedAt time.Time) error {
	st := lastSync{LastSyncAt: finishedAt.UTC().Add(-completionOffset)}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0600)
}
