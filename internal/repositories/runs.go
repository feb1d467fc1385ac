package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Odrinateur/sputifixV2/internal/shared"
)

// Run is one recorded maker run.
type Run struct {
	ID                 string     `json:"id"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
	PlaylistsProcessed int        `json:"playlists_processed"`
	TracksAdded        int        `json:"tracks_added"`
	Error              string     `json:"error,omitempty"`
}

// RunRepository records maker run history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Start records the beginning of a run and returns its generated id.
func (r *RunRepository) Start(startedAt time.Time) (string, error) {
	id := shared.GenerateID()

	_, err := r.db.Exec("INSERT INTO runs (id, started_at) VALUES (?, ?)", id, startedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// Finish records the outcome of a run. runErr may be nil for a clean run.
func (r *RunRepository) Finish(id string, finishedAt time.Time, playlists, tracks int, runErr error) error {
	var errText string
	if runErr != nil {
		errText = runErr.Error()
	}

	query := `
		UPDATE runs
		SET finished_at = ?, playlists_processed = ?, tracks_added = ?, error = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, finishedAt.UTC(), playlists, tracks, errText, id)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRepository) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, started_at, finished_at, playlists_processed, tracks_added, COALESCE(error, '')
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.StartedAt, &finished, &run.PlaylistsProcessed, &run.TracksAdded, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
