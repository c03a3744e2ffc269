package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/amaumene/watchenarr/internal/models"
	"github.com/sirupsen/logrus"
)

// recentRunsShown caps how much history the status endpoint returns
const recentRunsShown = 20

// StatusHandler reports recent sync run history
type StatusHandler struct {
	db     *models.Database
	logger *logrus.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *models.Database, logger *logrus.Logger) *StatusHandler {
	return &StatusHandler{
		db:     db,
		logger: logger,
	}
}

// RunSummary is one sync run in the status response
type RunSummary struct {
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Success    bool             `json:"success"`
	Matched    int              `json:"matched"`
	Users      []UserRunSummary `json:"users"`
}

// UserRunSummary is one user's counts within a run
type UserRunSummary struct {
	Name      string `json:"name"`
	Matched   int    `json:"matched"`
	Unmatched int    `json:"unmatched"`
	Skipped   bool   `json:"skipped"`
}

// StatusResponse represents the status response
type StatusResponse struct {
	TotalRuns  int          `json:"total_runs"`
	LastRun    *RunSummary  `json:"last_run,omitempty"`
	RecentRuns []RunSummary `json:"recent_runs"`
}

// ServeHTTP handles the status endpoint
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	allRuns, err := h.db.GetRecentRuns(0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get sync runs")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	response := StatusResponse{
		TotalRuns:  len(allRuns),
		RecentRuns: []RunSummary{},
	}

	for i, run := range allRuns {
		if i >= recentRunsShown {
			break
		}
		response.RecentRuns = append(response.RecentRuns, summarize(run))
	}
	if len(response.RecentRuns) > 0 {
		response.LastRun = &response.RecentRuns[0]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func summarize(run *models.SyncRun) RunSummary {
	summary := RunSummary{
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Success:    run.Success,
		Matched:    run.TotalMatched(),
		Users:      []UserRunSummary{},
	}

	for _, u := range run.Users {
		summary.Users = append(summary.Users, UserRunSummary{
			Name:      u.Name,
			Matched:   u.Matched,
			Unmatched: u.Unmatched,
			Skipped:   u.Skipped,
		})
	}

	return summary
}
