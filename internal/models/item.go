package models

import (
	"fmt"
	"strings"
	"time"
)

// MediaItem represents a single movie or episode as exposed by a media server.
type MediaItem struct {
	ID          string // server-local item id
	IMDB        string // normalized with "tt" prefix, empty if unknown
	TVDB        string
	Title       string
	SeriesTitle string // only set for episodes
	EpisodeCode string // "S01E02" style, only when season and episode are known
	Path        string // library file path, when the server exposes it
}

// WatchedRecord is a MediaItem observed as played on the source server.
type WatchedRecord struct {
	MediaItem
	LastPlayedAt time.Time
}

// User represents a media server account. Accounts on the source and
// destination are linked by case-insensitive name.
type User struct {
	ID   string
	Name string
}

// NormalizeIMDBID ensures an IMDB id carries the "tt" prefix. Already
// prefixed ids are returned unchanged, empty ids stay empty.
func NormalizeIMDBID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) >= 2 && strings.EqualFold(id[:2], "tt") {
		return id
	}
	return "tt" + id
}

// EpisodeCode derives the "S01E02" style code from season and episode
// indices. Returns empty when either index is unknown.
func EpisodeCode(season, episode *int) string {
	if season == nil || episode == nil {
		return ""
	}
	return fmt.Sprintf("S%02dE%02d", *season, *episode)
}

// FindUser returns the user with the given name (case-insensitive), or nil.
func FindUser(users []User, name string) *User {
	for i := range users {
		if strings.EqualFold(users[i].Name, name) {
			return &users[i]
		}
	}
	return nil
}
