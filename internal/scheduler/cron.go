package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/amaumene/watchenarr/internal/controllers"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs the sync job on a cron schedule in daemon mode
type Scheduler struct {
	cron     *cron.Cron
	syncCtrl *controllers.SyncController
	schedule string
	logger   *logrus.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new scheduler
func NewScheduler(syncCtrl *controllers.SyncController, schedule string, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		syncCtrl: syncCtrl,
		schedule: schedule,
		logger:   logger,
	}
}

// Start starts the scheduler and triggers an initial sync immediately
func (s *Scheduler) Start() error {
	s.logger.WithField("schedule", s.schedule).Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunSync()
	})
	if err != nil {
		return fmt.Errorf("failed to add sync job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Scheduler started")

	// Run initial sync immediately
	go s.RunSync()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cron.Stop()
}

// RunSync executes the sync job, skipping when a run is already in flight.
// Returns false if the run was skipped.
func (s *Scheduler) RunSync() bool {
	if !s.tryAcquire() {
		s.logger.Warn("Sync already running, skipping this trigger")
		return false
	}
	defer s.release()

	s.doRun()
	return true
}

// TriggerSync starts a sync in the background, for manual triggers via the
// API. Returns false when a run is already in flight.
func (s *Scheduler) TriggerSync() bool {
	if !s.tryAcquire() {
		s.logger.Warn("Sync already running, ignoring manual trigger")
		return false
	}

	go func() {
		defer s.release()
		s.doRun()
	}()
	return true
}

func (s *Scheduler) doRun() {
	s.logger.Info("Running sync")
	ctx := context.Background()

	if err := s.syncCtrl.Run(ctx); err != nil {
		s.logger.WithError(err).Error("Sync job failed")
	} else {
		s.logger.Info("Sync job completed successfully")
	}
}

func (s *Scheduler) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}
