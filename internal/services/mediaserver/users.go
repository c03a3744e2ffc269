package mediaserver

import (
	"context"
	"fmt"

	"github.com/amaumene/watchenarr/internal/models"
)

type userPayload struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// GetUsers retrieves all user accounts known to the server. Transient
// failures are retried per the client's retry policy.
func (c *Client) GetUsers(ctx context.Context) ([]models.User, error) {
	var payload []userPayload

	err := c.retry.Do(ctx, c.logger, "fetch users", func() error {
		payload = payload[:0]
		return c.get(ctx, "/Users", nil, &payload)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	users := make([]models.User, 0, len(payload))
	for _, p := range payload {
		users = append(users, models.User{ID: p.ID, Name: p.Name})
	}

	return users, nil
}
