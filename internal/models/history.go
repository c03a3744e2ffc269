package models

import "time"

// SyncRun records the outcome of one reconciliation run for the status API.
type SyncRun struct {
	ID         uint64 `boltholdKey:"ID"`
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	Users      []UserSyncResult
}

// UserSyncResult holds per-user reconciliation counts.
type UserSyncResult struct {
	Name      string
	Matched   int  // watched records replayed to the destination
	Unmatched int  // watched records with no destination match
	Skipped   bool // no linked destination user
}

// TotalMatched sums matched counts across all users of the run.
func (r *SyncRun) TotalMatched() int {
	total := 0
	for _, u := range r.Users {
		total += u.Matched
	}
	return total
}
