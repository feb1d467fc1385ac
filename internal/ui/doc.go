// Package ui implements the interactive maker wizard using bubbletea's Elm architecture.
//
// The TUI walks through a multi-view workflow for building artist playlists:
//  1. [PlaylistPickView] : Select target playlists (selecting none creates a new playlist)
//  2. [ArtistSearchView] : Search the Spotify catalog for artists by name
//  3. [ArtistPickView] : Pick artists from the search results
//  4. [ConfirmView] : Review the run before it starts
//  5. [RunView] : Monitor crawl, dedupe and batch-add progress in real time
//  6. [ResultView] : Display per-playlist results
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the MakerEngine, providing non-blocking
// status reporting while playlists synchronize.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, y/n, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
