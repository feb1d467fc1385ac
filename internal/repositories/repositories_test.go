package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/shared"
	"github.com/Odrinateur/sputifixV2/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestSyncStateRepository(t *testing.T) {
	var _ tasks.StateStore = (*SyncStateRepository)(nil)

	t.Run("LoadPlaylistState returns nil for unknown playlist", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncStateRepository(db)
		state, err := repo.LoadPlaylistState("unknown")
		if err != nil {
			t.Fatalf("LoadPlaylistState() error = %v", err)
		}
		if state != nil {
			t.Errorf("LoadPlaylistState() = %+v, want nil", state)
		}
	})

	t.Run("Save then Load round-trips", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncStateRepository(db)
		saved := &models.SyncState{
			PlaylistID:  "p1",
			ArtistIDs:   []string{"a1", "a2"},
			LastUpdated: time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
		}
		if err := repo.SavePlaylistState(saved); err != nil {
			t.Fatalf("SavePlaylistState() error = %v", err)
		}

		loaded, err := repo.LoadPlaylistState("p1")
		if err != nil {
			t.Fatalf("LoadPlaylistState() error = %v", err)
		}
		if loaded == nil {
			t.Fatal("LoadPlaylistState() = nil, want saved state")
		}
		if loaded.PlaylistID != "p1" || len(loaded.ArtistIDs) != 2 || loaded.ArtistIDs[0] != "a1" {
			t.Errorf("loaded state = %+v", loaded)
		}
		if !loaded.LastUpdated.Equal(saved.LastUpdated) {
			t.Errorf("LastUpdated = %v, want %v", loaded.LastUpdated, saved.LastUpdated)
		}
	})

	t.Run("Save replaces existing state", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncStateRepository(db)
		first := &models.SyncState{PlaylistID: "p1", ArtistIDs: []string{"a1"}, LastUpdated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		if err := repo.SavePlaylistState(first); err != nil {
			t.Fatalf("SavePlaylistState() error = %v", err)
		}

		second := &models.SyncState{PlaylistID: "p1", ArtistIDs: []string{"a1", "a2"}, LastUpdated: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)}
		if err := repo.SavePlaylistState(second); err != nil {
			t.Fatalf("SavePlaylistState() replace error = %v", err)
		}

		loaded, err := repo.LoadPlaylistState("p1")
		if err != nil {
			t.Fatalf("LoadPlaylistState() error = %v", err)
		}
		if len(loaded.ArtistIDs) != 2 || !loaded.LastUpdated.Equal(second.LastUpdated) {
			t.Errorf("loaded state = %+v, want replaced values", loaded)
		}
	})

	t.Run("Save rejects missing playlist id", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncStateRepository(db)
		if err := repo.SavePlaylistState(&models.SyncState{}); err == nil {
			t.Error("SavePlaylistState() with empty id = nil, want error")
		}
	})

	t.Run("List orders by last sync descending", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncStateRepository(db)
		older := &models.SyncState{PlaylistID: "old", LastUpdated: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		newer := &models.SyncState{PlaylistID: "new", LastUpdated: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}
		for _, s := range []*models.SyncState{older, newer} {
			if err := repo.SavePlaylistState(s); err != nil {
				t.Fatalf("SavePlaylistState() error = %v", err)
			}
		}

		states, err := repo.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(states) != 2 || states[0].PlaylistID != "new" {
			t.Errorf("List() = %+v, want newest first", states)
		}
	})

	t.Run("Delete removes state", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSyncStateRepository(db)
		if err := repo.SavePlaylistState(&models.SyncState{PlaylistID: "p1", LastUpdated: time.Now()}); err != nil {
			t.Fatalf("SavePlaylistState() error = %v", err)
		}
		if err := repo.Delete("p1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		state, err := repo.LoadPlaylistState("p1")
		if err != nil {
			t.Fatalf("LoadPlaylistState() error = %v", err)
		}
		if state != nil {
			t.Errorf("state survived delete: %+v", state)
		}

		if err := repo.Delete("p1"); err != nil {
			t.Errorf("Delete() of missing state error = %v, want nil", err)
		}
	})
}

func TestRunRepository(t *testing.T) {
	t.Run("Start and Finish record a run", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		started := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

		id, err := repo.Start(started)
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if id == "" {
			t.Fatal("Start() returned empty id")
		}

		if err := repo.Finish(id, started.Add(2*time.Minute), 3, 42, nil); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}

		runs, err := repo.Recent(5)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("Recent() returned %d runs, want 1", len(runs))
		}
		run := runs[0]
		if run.PlaylistsProcessed != 3 || run.TracksAdded != 42 || run.Error != "" {
			t.Errorf("run = %+v", run)
		}
		if run.FinishedAt == nil {
			t.Error("FinishedAt not recorded")
		}
	})

	t.Run("Finish stores the run error", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		id, err := repo.Start(time.Now())
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := repo.Finish(id, time.Now(), 1, 0, errors.New("upstream failure")); err != nil {
			t.Fatalf("Finish() error = %v", err)
		}

		runs, err := repo.Recent(1)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if runs[0].Error != "upstream failure" {
			t.Errorf("run error = %q, want recorded failure", runs[0].Error)
		}
	})

	t.Run("Finish of unknown run fails", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		if err := repo.Finish("missing", time.Now(), 0, 0, nil); err == nil {
			t.Error("Finish() of unknown run = nil, want error")
		}
	})

	t.Run("Recent orders newest first and honors the limit", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewRunRepository(db)
		base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < 3; i++ {
			if _, err := repo.Start(base.Add(time.Duration(i) * time.Hour)); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
		}

		runs, err := repo.Recent(2)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("Recent(2) returned %d runs", len(runs))
		}
		if !runs[0].StartedAt.After(runs[1].StartedAt) {
			t.Errorf("runs not ordered newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
		}
	})
}
