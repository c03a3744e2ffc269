package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/amaumene/watchenarr/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// SyncHandler triggers a sync run outside the regular schedule
type SyncHandler struct {
	sched  *scheduler.Scheduler
	logger *logrus.Logger
}

// NewSyncHandler creates a new sync trigger handler
func NewSyncHandler(sched *scheduler.Scheduler, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		sched:  sched,
		logger: logger,
	}
}

// ServeHTTP handles the manual sync endpoint. The run happens in the
// background; a run already in flight is reported as a conflict.
func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.logger.Info("Manual sync requested")

	if !h.sched.TriggerSync() {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"status": "already running"})
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}
