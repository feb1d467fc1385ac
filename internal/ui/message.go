package ui

import (
	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/tasks"
)

// playlistsFetchedMsg carries the user's playlists after the initial fetch.
type playlistsFetchedMsg struct {
	playlists []models.Playlist
	err       error
}

// artistsFoundMsg carries one artist search's results.
type artistsFoundMsg struct {
	artists []models.Artist
	err     error
}

// runProgressMsg carries one engine progress update into the Elm loop.
type runProgressMsg tasks.ProgressUpdate

// runCompleteMsg signals that the maker run finished.
type runCompleteMsg struct {
	results []models.ProcessedPlaylist
	err     error
}
