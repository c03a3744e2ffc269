package controllers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amaumene/watchenarr/internal/models"
	"github.com/amaumene/watchenarr/internal/services/mediaserver"
	"github.com/amaumene/watchenarr/internal/state"
	"github.com/amaumene/watchenarr/internal/utils"
	"github.com/sirupsen/logrus"
)

// SyncController reconciles watched state from the source server onto the
// destination server for users that exist on both sides.
type SyncController struct {
	source     *mediaserver.Client
	dest       *mediaserver.Client
	db         *models.Database
	state      *state.Store
	exclusions *utils.Exclusions
	adminUser  string
	logger     *logrus.Logger
}

// NewSyncController creates a new sync controller
func NewSyncController(
	source *mediaserver.Client,
	dest *mediaserver.Client,
	db *models.Database,
	stateStore *state.Store,
	exclusions *utils.Exclusions,
	adminUser string,
	logger *logrus.Logger,
) *SyncController {
	return &SyncController{
		source:     source,
		dest:       dest,
		db:         db,
		state:      stateStore,
		exclusions: exclusions,
		adminUser:  adminUser,
		logger:     logger,
	}
}

// Run executes one full reconciliation pass. Users are processed strictly
// sequentially; only the two initial user fetches run concurrently. On
// failure the last-sync timestamp is left untouched so the next run
// reprocesses the same window.
func (c *SyncController) Run(ctx context.Context) error {
	run := &models.SyncRun{StartedAt: time.Now().UTC()}
	c.logger.Info("Starting watched-state sync")

	cutoff, err := c.state.Cutoff()
	if err != nil {
		return fmt.Errorf("failed to read last sync state: %w", err)
	}
	if cutoff.IsZero() {
		c.logger.Info("No previous sync recorded, scanning full watched history")
	} else {
		c.logger.WithField("cutoff", cutoff).Info("Syncing watched items since cutoff")
	}

	sourceUsers, destUsers, err := c.fetchUsers(ctx)
	if err != nil {
		return err
	}
	c.logger.WithFields(logrus.Fields{
		"source_users": len(sourceUsers),
		"dest_users":   len(destUsers),
	}).Debug("Fetched user accounts")

	// The admin account sees the entire destination catalog regardless of
	// per-user library restrictions, so the identity index is built from it.
	admin := models.FindUser(destUsers, c.adminUser)
	if admin == nil {
		return fmt.Errorf("admin user %q not found on destination server", c.adminUser)
	}

	catalog, err := c.dest.FetchCatalog(ctx, admin.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch destination catalog: %w", err)
	}

	index := NewIdentityIndex(catalog)
	c.logger.WithField("items", index.Len()).Info("Built destination identity index")

	for _, sourceUser := range sourceUsers {
		result, err := c.syncUser(ctx, sourceUser, destUsers, index, cutoff)
		if err != nil {
			return fmt.Errorf("failed to sync user %s: %w", sourceUser.Name, err)
		}
		if result != nil {
			run.Users = append(run.Users, *result)
		}
	}

	run.FinishedAt = time.Now().UTC()
	run.Success = true
	if err := c.db.SaveRun(run); err != nil {
		c.logger.WithError(err).Error("Failed to record sync run")
	}

	if err := c.state.Commit(run.FinishedAt); err != nil {
		return fmt.Errorf("failed to write last sync state: %w", err)
	}

	c.logger.WithField("matched", run.TotalMatched()).Info("Watched-state sync completed")
	return nil
}

// fetchUsers retrieves source and destination accounts concurrently, a
// bounded fan-out of exactly two joined before proceeding.
func (c *SyncController) fetchUsers(ctx context.Context) ([]models.User, []models.User, error) {
	var (
		wg                     sync.WaitGroup
		sourceUsers, destUsers []models.User
		sourceErr, destErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sourceUsers, sourceErr = c.source.GetUsers(ctx)
	}()
	go func() {
		defer wg.Done()
		destUsers, destErr = c.dest.GetUsers(ctx)
	}()
	wg.Wait()

	if sourceErr != nil {
		return nil, nil, fmt.Errorf("failed to fetch source users: %w", sourceErr)
	}
	if destErr != nil {
		return nil, nil, fmt.Errorf("failed to fetch destination users: %w", destErr)
	}

	return sourceUsers, destUsers, nil
}

// syncUser replays one source user's watched records onto the destination.
// Returns nil when the user is on the exclusion list.
func (c *SyncController) syncUser(ctx context.Context, sourceUser models.User, destUsers []models.User, index *IdentityIndex, cutoff time.Time) (*models.UserSyncResult, error) {
	if c.exclusions.IsExcluded(sourceUser.Name) {
		c.logger.WithField("user", sourceUser.Name).Info("User is excluded, skipping")
		return nil, nil
	}

	result := &models.UserSyncResult{Name: sourceUser.Name}

	destUser := models.FindUser(destUsers, sourceUser.Name)
	if destUser == nil {
		c.logger.WithField("user", sourceUser.Name).Warn("No matching destination user, skipping")
		result.Skipped = true
		return result, nil
	}

	c.logger.WithField("user", sourceUser.Name).Info("Syncing user")

	err := c.source.FetchWatched(ctx, sourceUser.ID, cutoff, func(rec models.WatchedRecord) error {
		item, tier := index.Match(rec)
		if item == nil {
			c.logger.WithFields(logrus.Fields{
				"user":   sourceUser.Name,
				"title":  rec.Title,
				"series": rec.SeriesTitle,
			}).Warn("No destination match for watched item, skipping")
			result.Unmatched++
			return nil
		}

		c.logger.WithFields(logrus.Fields{
			"user":  sourceUser.Name,
			"title": rec.Title,
			"tier":  tier,
		}).Debug("Matched watched item")

		if err := c.dest.MarkPlayed(ctx, destUser.ID, item.ID, rec.LastPlayedAt); err != nil {
			return err
		}
		result.Matched++
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"user":      sourceUser.Name,
		"matched":   result.Matched,
		"unmatched": result.Unmatched,
	}).Info("User sync completed")

	return result, nil
}
