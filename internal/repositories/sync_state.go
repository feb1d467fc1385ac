package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Odrinateur/sputifixV2/internal/models"
)

// SyncStateRepository persists per-playlist maker sync state.
//
// One row per playlist, keyed by the Spotify playlist id. The artist-id set
// is stored comma-joined, mirroring the encoding written into the playlist
// description; last_updated is epoch milliseconds in UTC.
type SyncStateRepository struct {
	db *sql.DB
}

// NewSyncStateRepository creates a new SyncStateRepository with the given database connection
func NewSyncStateRepository(db *sql.DB) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

// LoadPlaylistState returns the stored state for a playlist, or (nil, nil)
// when the playlist has never been synchronized.
func (r *SyncStateRepository) LoadPlaylistState(playlistID string) (*models.SyncState, error) {
	query := `
		SELECT playlist_id, artist_ids, last_updated
		FROM playlist_sync_state
		WHERE playlist_id = ?
	`

	var state models.SyncState
	var ids string
	var lastUpdated int64

	err := r.db.QueryRow(query, playlistID).Scan(&state.PlaylistID, &ids, &lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	state.ArtistIDs = splitIDs(ids)
	if lastUpdated > 0 {
		state.LastUpdated = time.UnixMilli(lastUpdated).UTC()
	}
	return &state, nil
}

// SavePlaylistState inserts or replaces the state for a playlist.
func (r *SyncStateRepository) SavePlaylistState(state *models.SyncState) error {
	if state == nil || state.PlaylistID == "" {
		return fmt.Errorf("sync state requires a playlist id")
	}

	query := `
		INSERT INTO playlist_sync_state (playlist_id, artist_ids, last_updated, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(playlist_id) DO UPDATE SET
			artist_ids = excluded.artist_ids,
			last_updated = excluded.last_updated,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.Exec(query, state.PlaylistID, strings.Join(state.ArtistIDs, ","), state.LastUpdated.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}

// Delete removes the stored state for a playlist. Deleting an unknown
// playlist is not an error.
func (r *SyncStateRepository) Delete(playlistID string) error {
	_, err := r.db.Exec("DELETE FROM playlist_sync_state WHERE playlist_id = ?", playlistID)
	if err != nil {
		return fmt.Errorf("failed to delete sync state: %w", err)
	}
	return nil
}

// List returns every stored playlist state, most recently synchronized first.
func (r *SyncStateRepository) List() ([]models.SyncState, error) {
	query := `
		SELECT playlist_id, artist_ids, last_updated
		FROM playlist_sync_state
		ORDER BY last_updated DESC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync states: %w", err)
	}
	defer rows.Close()

	var states []models.SyncState
	for rows.Next() {
		var state models.SyncState
		var ids string
		var lastUpdated int64
		if err := rows.Scan(&state.PlaylistID, &ids, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		state.ArtistIDs = splitIDs(ids)
		if lastUpdated > 0 {
			state.LastUpdated = time.UnixMilli(lastUpdated).UTC()
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

func splitIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(joined, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
