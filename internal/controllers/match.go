package controllers

import (
	"strings"

	"github.com/amaumene/watchenarr/internal/models"
)

// IdentityIndex holds the destination catalog in fetch order. It is built
// once per run and read-only afterwards. No deduplication is performed; on
// ambiguous matches the first entry in fetch order wins.
type IdentityIndex struct {
	items []models.MediaItem
}

// NewIdentityIndex builds an index over the destination catalog
func NewIdentityIndex(items []models.MediaItem) *IdentityIndex {
	return &IdentityIndex{items: items}
}

// Len returns the number of indexed destination items
func (idx *IdentityIndex) Len() int {
	return len(idx.items)
}

// matchTier is one ranked rule for resolving a watched record to a
// destination item. Tiers are evaluated in order with first-match-wins
// semantics; a later tier never overrides an earlier one.
type matchTier struct {
	name    string
	matches func(rec models.WatchedRecord, item models.MediaItem) bool
}

// All string comparisons are ordinal case-insensitive (strings.EqualFold).
var matchTiers = []matchTier{
	{
		// Same library path implies the same file on disk, the
		// strongest signal available.
		name: "path",
		matches: func(rec models.WatchedRecord, item models.MediaItem) bool {
			return rec.Path != "" && strings.EqualFold(rec.Path, item.Path)
		},
	},
	{
		name: "imdb",
		matches: func(rec models.WatchedRecord, item models.MediaItem) bool {
			return rec.IMDB != "" && strings.EqualFold(rec.IMDB, item.IMDB)
		},
	},
	{
		name: "tvdb",
		matches: func(rec models.WatchedRecord, item models.MediaItem) bool {
			return rec.TVDB != "" && strings.EqualFold(rec.TVDB, item.TVDB)
		},
	},
	{
		// Title equality only counts when the series context agrees:
		// either both sides are movies (no series title) or both
		// belong to the same series.
		name: "title",
		matches: func(rec models.WatchedRecord, item models.MediaItem) bool {
			if rec.Title == "" || !strings.EqualFold(rec.Title, item.Title) {
				return false
			}
			if rec.SeriesTitle == "" && item.SeriesTitle == "" {
				return true
			}
			return rec.SeriesTitle != "" && item.SeriesTitle != "" &&
				strings.EqualFold(rec.SeriesTitle, item.SeriesTitle)
		},
	},
	{
		// Catches localized episode titles: the raw titles differ but
		// series and episode numbering agree.
		name: "series+episode",
		matches: func(rec models.WatchedRecord, item models.MediaItem) bool {
			return rec.SeriesTitle != "" && item.SeriesTitle != "" &&
				strings.EqualFold(rec.SeriesTitle, item.SeriesTitle) &&
				rec.EpisodeCode != "" && item.EpisodeCode != "" &&
				strings.EqualFold(rec.EpisodeCode, item.EpisodeCode)
		},
	},
}

// Match resolves a watched record to at most one destination item. The first
// tier that finds any structurally matching entry wins and scanning stops,
// even if a later tier would also match. Returns the matched item and the
// name of the tier that fired, or nil when no tier matches.
func (idx *IdentityIndex) Match(rec models.WatchedRecord) (*models.MediaItem, string) {
	for _, tier := range matchTiers {
		for i := range idx.items {
			if tier.matches(rec, idx.items[i]) {
				return &idx.items[i], tier.name
			}
		}
	}
	return nil, ""
}
