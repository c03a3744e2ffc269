package mediaserver

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/watchenarr/internal/models"
)

// pageSize is the fixed number of items requested per catalog page
const pageSize = 500

type itemsResponse struct {
	Items            []itemPayload `json:"Items"`
	TotalRecordCount int           `json:"TotalRecordCount"`
}

type itemPayload struct {
	ID                string            `json:"Id"`
	Name              string            `json:"Name"`
	SeriesName        string            `json:"SeriesName"`
	Path              string            `json:"Path"`
	IndexNumber       *int              `json:"IndexNumber"`
	ParentIndexNumber *int              `json:"ParentIndexNumber"`
	ProviderIDs       map[string]string `json:"ProviderIds"`
	UserData          *itemUserData     `json:"UserData"`
}

type itemUserData struct {
	LastPlayedDate time.Time `json:"LastPlayedDate"`
}

// providerID looks up a provider id regardless of key casing, since servers
// report "Imdb", "IMDB" or "imdb" depending on the metadata plugin.
func (p itemPayload) providerID(provider string) string {
	for name, id := range p.ProviderIDs {
		if strings.EqualFold(name, provider) {
			return id
		}
	}
	return ""
}

func (p itemPayload) toMediaItem() models.MediaItem {
	return models.MediaItem{
		ID:          p.ID,
		IMDB:        models.NormalizeIMDBID(p.providerID("imdb")),
		TVDB:        p.providerID("tvdb"),
		Title:       p.Name,
		SeriesTitle: p.SeriesName,
		EpisodeCode: models.EpisodeCode(p.ParentIndexNumber, p.IndexNumber),
		Path:        p.Path,
	}
}

// FetchCatalog retrieves the complete movie/episode catalog visible to the
// given user, paging until a short page signals end of data.
func (c *Client) FetchCatalog(ctx context.Context, userID string) ([]models.MediaItem, error) {
	var items []models.MediaItem

	for offset := 0; ; offset += pageSize {
		page, err := c.fetchItemsPage(ctx, userID, baseItemParams(), offset)
		if err != nil {
			return nil, err
		}

		for _, p := range page {
			items = append(items, p.toMediaItem())
		}

		if len(page) < pageSize {
			break
		}
	}

	c.logger.WithField("count", len(items)).Debug("Fetched catalog")
	return items, nil
}

// FetchWatched retrieves the user's watched items, newest first, and feeds
// them one at a time into fn. The server sorts by play date descending, so
// the fetch stops as soon as an item falls behind the cutoff: everything
// after it is guaranteed older. The cutoff can fall mid-page.
func (c *Client) FetchWatched(ctx context.Context, userID string, cutoff time.Time, fn func(models.WatchedRecord) error) error {
	for offset := 0; ; offset += pageSize {
		page, err := c.fetchItemsPage(ctx, userID, watchedItemParams(), offset)
		if err != nil {
			return err
		}

		for _, p := range page {
			rec := models.WatchedRecord{MediaItem: p.toMediaItem()}
			if p.UserData != nil {
				rec.LastPlayedAt = p.UserData.LastPlayedDate
			}

			if rec.LastPlayedAt.IsZero() {
				// Cannot order an item without a play date, skip it
				// rather than terminating the scan early.
				c.logger.WithField("title", rec.Title).Debug("Watched item without play date, skipping")
				continue
			}
			if !cutoff.IsZero() && rec.LastPlayedAt.Before(cutoff) {
				return nil
			}

			if err := fn(rec); err != nil {
				return err
			}
		}

		if len(page) < pageSize {
			return nil
		}
	}
}

// fetchItemsPage retrieves one page of items. A page is atomic: any HTTP or
// decode failure retries the whole page per the client's retry policy.
func (c *Client) fetchItemsPage(ctx context.Context, userID string, params url.Values, offset int) ([]itemPayload, error) {
	params.Set("StartIndex", strconv.Itoa(offset))
	params.Set("Limit", strconv.Itoa(pageSize))
	path := "/Users/" + userID + "/Items"

	var response itemsResponse
	err := c.retry.Do(ctx, c.logger, "fetch items page", func() error {
		response = itemsResponse{}
		return c.get(ctx, path, params, &response)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch items page at offset %d: %w", offset, err)
	}

	return response.Items, nil
}

func baseItemParams() url.Values {
	params := url.Values{}
	params.Set("IncludeItemTypes", "Episode,Movie")
	params.Set("Recursive", "true")
	params.Set("Fields", "ProviderIds,Path")
	return params
}

func watchedItemParams() url.Values {
	params := baseItemParams()
	params.Set("IsPlayed", "true")
	params.Set("SortBy", "DatePlayed")
	params.Set("SortOrder", "Descending")
	return params
}
