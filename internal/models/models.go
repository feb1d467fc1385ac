package models

import (
	"fmt"
	"strings"
	"time"
)

// ReleaseGroup categorizes a catalog release and scopes a crawl.
type ReleaseGroup string

const (
	GroupAlbum       ReleaseGroup = "album"
	GroupSingle      ReleaseGroup = "single"
	GroupAppearsOn   ReleaseGroup = "appears_on"
	GroupCompilation ReleaseGroup = "compilation"
)

// CrawlGroups are the release groups the maker engine crawls per artist.
var CrawlGroups = []ReleaseGroup{GroupAlbum, GroupSingle, GroupAppearsOn}

// Artist represents a Spotify artist. Identity is the Spotify ID.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri,omitempty"`
}

// Album carries the denormalized release metadata tagged onto each crawled
// track. Markets is the track-level available-markets list; the album-level
// list is not reliable per track.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Markets     []string `json:"markets,omitempty"`
}

// Track represents a Spotify track. Playlist membership identity is the
// fuzzy name+duration match (see TracksMatch in the tasks package), not ID.
type Track struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	URI        string   `json:"uri"`
	Artists    []Artist `json:"artists,omitempty"`
	Album      Album    `json:"album,omitempty"`
}

// Release represents one entry of an artist's discography.
type Release struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Group       ReleaseGroup `json:"album_group,omitempty"`
	ReleaseDate string       `json:"release_date"`
	// Precision is "year", "month" or "day".
	Precision   string `json:"release_date_precision,omitempty"`
	TotalTracks int    `json:"total_tracks,omitempty"`
}

// ReleasedAt parses the release date at its stated precision. Zero time on
// an unparseable date so callers treat the release as "never".
func (r Release) ReleasedAt() time.Time {
	layouts := map[string]string{
		"year":  "2006",
		"month": "2006-01",
		"day":   "2006-01-02",
	}
	if layout, ok := layouts[r.Precision]; ok {
		if t, err := time.Parse(layout, r.ReleaseDate); err == nil {
			return t
		}
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, r.ReleaseDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Playlist represents a playlist owned by or followed by the user.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URI         string `json:"uri,omitempty"`
}

// ReleasePage is one page of an artist's releases.
type ReleasePage struct {
	Items  []Release
	Total  int
	Limit  int
	Offset int
	// Next is non-empty while more pages exist.
	Next string
}

// TrackPage is one page of album or playlist tracks.
type TrackPage struct {
	Items  []Track
	Total  int
	Limit  int
	Offset int
	Next   string
}

// ProcessedPlaylist is the outcome of processing one target playlist: the
// playlist (created or updated) and the tracks newly added to it.
type ProcessedPlaylist struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// SyncState is the locally persisted bookkeeping for one maker playlist.
//
// ArtistIDs mirrors the id set encoded in the playlist description;
// LastUpdated records when this tool last synchronized the playlist and
// drives the incremental-skip check.
type SyncState struct {
	PlaylistID  string
	ArtistIDs   []string
	LastUpdated time.Time
}

// descriptionPrefix is the marker the maker writes into playlist
// descriptions to record the merged artist-id set. Kept for compatibility
// with playlists created by earlier versions of the tool.
const descriptionPrefix = "ids: "

// ParseArtistIDs extracts the artist-id set recorded in a playlist
// description. A description without the marker yields an empty set
// (fail-open), never an error.
func ParseArtistIDs(description string) []string {
	if !strings.HasPrefix(description, descriptionPrefix) {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(strings.TrimPrefix(description, descriptionPrefix), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// FormatArtistIDs encodes an artist-id set as a playlist description.
func FormatArtistIDs(ids []string) string {
	return descriptionPrefix + strings.Join(ids, ",")
}

// PlaylistNameFor builds the display name for a new maker playlist.
func PlaylistNameFor(artists []Artist) string {
	names := make([]string, len(artists))
	for i, a := range artists {
		names[i] = a.Name
	}
	return strings.Join(names, " / ")
}

// Duration renders a track duration as m:ss for display.
func (t Track) Duration() string {
	total := t.DurationMS / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// CreditedTo reports whether the track credits the given artist id.
func (t Track) CreditedTo(artistID string) bool {
	for _, a := range t.Artists {
		if a.ID == artistID {
			return true
		}
	}
	return false
}
