package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/Odrinateur/sputifixV2/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = artistItem{}
)

func marker(selected bool) string {
	if selected {
		return "[x] "
	}
	return "[ ] "
}

// playlistItem wraps [models.Playlist] to implement [list.Item], carrying
// the wizard's selection state.
type playlistItem struct {
	playlist models.Playlist
	selected bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string       { return marker(i.selected) + i.playlist.Name }
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks", i.playlist.TrackCount)
	if tracked := models.ParseArtistIDs(i.playlist.Description); len(tracked) > 0 {
		desc = fmt.Sprintf("%s • %d tracked artists", desc, len(tracked))
	}
	return desc
}

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist   models.Artist
	selected bool
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return marker(i.selected) + i.artist.Name }
func (i artistItem) Description() string { return i.artist.ID }
