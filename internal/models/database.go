package models

import (
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store holding sync run history
type Database struct {
	store *bolthold.Store
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// SaveRun stores a completed sync run
func (db *Database) SaveRun(run *SyncRun) error {
	return db.store.Insert(bolthold.NextSequence(), run)
}

// GetRecentRuns retrieves the most recent sync runs, newest first.
// A limit of 0 returns all runs.
func (db *Database) GetRecentRuns(limit int) ([]*SyncRun, error) {
	var runs []*SyncRun
	if err := db.store.Find(&runs, nil); err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetLastSuccessfulRun retrieves the newest run that completed successfully
func (db *Database) GetLastSuccessfulRun() (*SyncRun, error) {
	runs, err := db.GetRecentRuns(0)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		if run.Success {
			return run, nil
		}
	}
	return nil, bolthold.ErrNotFound
}
