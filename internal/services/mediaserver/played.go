package mediaserver

import (
	"context"
	"fmt"
	"time"
)

type playedRequest struct {
	LastPlayedDate string `json:"LastPlayedDate"`
}

// MarkPlayed marks an item as watched for the given user, carrying over the
// original play date. Any failure is retried with a fixed delay until the
// call succeeds; matched updates should wait out an outage, not get lost.
func (c *Client) MarkPlayed(ctx context.Context, userID, itemID string, lastPlayedAt time.Time) error {
	path := "/Users/" + userID + "/PlayedItems/" + itemID
	body := playedRequest{LastPlayedDate: lastPlayedAt.UTC().Format(time.RFC3339)}

	err := c.retry.Do(ctx, c.logger, "mark played", func() error {
		return c.post(ctx, path, body)
	})
	if err != nil {
		return fmt.Errorf("failed to mark item %s played: %w", itemID, err)
	}

	return nil
}
