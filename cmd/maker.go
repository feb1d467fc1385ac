package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/Odrinateur/sputifixV2/internal/formatter"
	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/repositories"
	"github.com/Odrinateur/sputifixV2/internal/shared"
	"github.com/Odrinateur/sputifixV2/internal/tasks"
)

// MakerRun merges the requested artists into the selected playlists, or
// creates a new playlist when none are selected.
func (r *Runner) MakerRun(ctx context.Context, cmd *cli.Command) error {
	playlistIDs := cmd.StringSlice("playlist")
	artistIDs := cmd.StringSlice("artist")

	if len(playlistIDs) == 0 && len(artistIDs) == 0 {
		return fmt.Errorf("%w: provide --playlist and/or --artist", shared.ErrMissingArgument)
	}

	if err := r.ensureAuth(ctx, cmd.String("config")); err != nil {
		return err
	}

	playlists := make([]models.Playlist, 0, len(playlistIDs))
	for _, id := range playlistIDs {
		playlist, err := r.spotify.GetPlaylist(ctx, id)
		if err != nil {
			if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
				if authErr != nil {
					return authErr
				}
				if playlist, err = r.spotify.GetPlaylist(ctx, id); err != nil {
					return fmt.Errorf("%w: playlist %s: %v", shared.ErrPlaylistNotFound, id, err)
				}
			} else {
				return fmt.Errorf("%w: playlist %s: %v", shared.ErrPlaylistNotFound, id, err)
			}
		}
		playlists = append(playlists, *playlist)
	}

	var artists []models.Artist
	if len(artistIDs) > 0 {
		found, err := r.spotify.GetArtists(ctx, artistIDs)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrArtistNotFound, err)
		}
		named := make(map[string]models.Artist, len(found))
		for _, a := range found {
			named[a.ID] = a
		}
		// Keep request order; unknown ids stay as bare ids so the engine
		// can still record them.
		for _, id := range artistIDs {
			if a, ok := named[id]; ok {
				artists = append(artists, a)
				continue
			}
			r.logger.Warn("artist not found in catalog", "artist", id)
			artists = append(artists, models.Artist{ID: id})
		}
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	states := repositories.NewSyncStateRepository(db)
	runs := repositories.NewRunRepository(db)

	engine := tasks.NewMakerEngine(r.spotify, states, tasks.OptionsFromConfig(r.config.Maker))
	engine.SetLogger(r.logger)

	startedAt := time.Now()
	runID, err := runs.Start(startedAt)
	if err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.writePlain("→ %s\n", update.Message)
		}
	}()

	results, runErr := engine.ProcessAll(ctx, playlists, artists, progress)
	close(progress)
	wg.Wait()

	added := 0
	for _, result := range results {
		added += len(result.Tracks)
	}

	if err := runs.Finish(runID, time.Now(), len(results), added, runErr); err != nil {
		r.logger.Warn("failed to record run outcome", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("maker run failed: %w", runErr)
	}

	if format := cmd.String("report"); format != "" {
		report := &formatter.Report{StartedAt: startedAt, FinishedAt: time.Now(), Results: results}
		path, err := formatter.WriteReport(report, format, cmd.String("report-file"))
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", path)
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	updated := 0
	for _, result := range results {
		if len(result.Tracks) == 0 {
			continue
		}
		updated++
		r.writePlainln("✓ %s: %d tracks added", result.Playlist.Name, len(result.Tracks))
		for i, track := range result.Tracks {
			r.writePlain("  %d. %s [%s]\n", i+1, track.Name, track.Duration())
		}
	}

	r.writePlainln("Done: %d playlists updated, %d already up to date, %d tracks added", updated, len(results)-updated, added)
	return nil
}

// MakerSearch searches artists by name so users can find ids for maker run.
func (r *Runner) MakerSearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	if err := r.ensureAuth(ctx, cmd.String("config")); err != nil {
		return err
	}

	artists, err := r.spotify.SearchArtists(ctx, query, int(cmd.Int("limit")))
	if err != nil {
		if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return authErr
			}
			if artists, err = r.spotify.SearchArtists(ctx, query, int(cmd.Int("limit"))); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(artists, cmd.Bool("pretty"))
	}

	if len(artists) == 0 {
		r.writePlain("No artists found for '%s'\n", query)
		return nil
	}

	r.writePlain("Artists matching '%s':\n\n", query)
	for i, a := range artists {
		r.writePlain("%d. %s\n   ID: %s\n", i+1, a.Name, a.ID)
	}

	return nil
}

// MakerState inspects the persisted sync state, for one playlist or all.
func (r *Runner) MakerState(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	states := repositories.NewSyncStateRepository(db)

	if playlistID := cmd.StringArg("playlist-id"); playlistID != "" {
		state, err := states.LoadPlaylistState(playlistID)
		if err != nil {
			return err
		}
		if state == nil {
			return fmt.Errorf("%w: no state recorded for playlist %s", shared.ErrStateNotFound, playlistID)
		}
		if cmd.Bool("json") {
			return r.writeJSON(state, cmd.Bool("pretty"))
		}
		r.printState(*state)
		return nil
	}

	all, err := states.List()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(all, cmd.Bool("pretty"))
	}

	if len(all) == 0 {
		r.writePlain("No playlists synchronized yet.\n")
		return nil
	}

	r.writePlain("Tracked playlists: %d\n\n", len(all))
	for _, state := range all {
		r.printState(state)
	}
	return nil
}

func (r *Runner) printState(state models.SyncState) {
	r.writePlain("Playlist %s\n", state.PlaylistID)
	r.writePlain("  Artists:      %d (%s)\n", len(state.ArtistIDs), models.FormatArtistIDs(state.ArtistIDs))
	r.writePlain("  Last updated: %s\n\n", state.LastUpdated.Format(time.RFC3339))
}

// MakerHistory shows recent maker runs.
func (r *Runner) MakerHistory(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).Recent(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		r.writePlain("No maker runs recorded yet.\n")
		return nil
	}

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed: " + run.Error
		} else if run.FinishedAt == nil {
			status = "interrupted"
		}
		r.writePlain("%s  playlists=%d tracks=%d  %s\n", run.StartedAt.Format("2006-01-02 15:04"), run.PlaylistsProcessed, run.TracksAdded, status)
	}
	return nil
}
