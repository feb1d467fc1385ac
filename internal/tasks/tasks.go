package tasks

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/services"
	"github.com/Odrinateur/sputifixV2/internal/shared"
)

// Default engine tuning. Everything here is overridable per instance through
// EngineOpts, and from the config file via OptionsFromConfig.
const (
	DefaultPlaylistDelay = 30 * time.Second
	DefaultPageSize      = 50
	DefaultBatchSize     = 50
	DefaultProbeLimit    = 10
)

// StateStore persists per-playlist sync bookkeeping between runs.
type StateStore interface {
	// LoadPlaylistState returns the stored state for a playlist, or
	// (nil, nil) when none has been recorded yet.
	LoadPlaylistState(playlistID string) (*models.SyncState, error)

	// SavePlaylistState inserts or replaces the state for a playlist.
	SavePlaylistState(state *models.SyncState) error
}

// EngineOpts tunes a MakerEngine. Zero values fall back to the defaults.
type EngineOpts struct {
	DuplicateTolerance time.Duration // fuzzy-match duration window
	RequestBudget      int           // gated calls before a cooldown
	Cooldown           time.Duration // pause once the budget is spent
	PlaylistDelay      time.Duration // pause between playlists in a run
	PageSize           int           // page size for catalog pagination
	BatchSize          int           // max URIs per playlist mutation
	ProbeLimit         int           // releases fetched per group for the skip check
	Sleep              SleepFunc     // injectable for tests
	Now                func() time.Time
}

// OptionsFromConfig builds EngineOpts from the maker section of the config
// file. Unset fields keep their zero value and defer to the defaults.
func OptionsFromConfig(cfg shared.MakerConfig) EngineOpts {
	return EngineOpts{
		DuplicateTolerance: time.Duration(cfg.DuplicateToleranceMS) * time.Millisecond,
		RequestBudget:      cfg.RequestBudget,
		Cooldown:           time.Duration(cfg.CooldownSeconds) * time.Second,
		PlaylistDelay:      time.Duration(cfg.PlaylistDelaySeconds) * time.Second,
	}
}

func (o EngineOpts) withDefaults() EngineOpts {
	if o.DuplicateTolerance <= 0 {
		o.DuplicateTolerance = DefaultDuplicateTolerance
	}
	if o.RequestBudget <= 0 {
		o.RequestBudget = DefaultRequestBudget
	}
	if o.Cooldown <= 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.PlaylistDelay <= 0 {
		o.PlaylistDelay = DefaultPlaylistDelay
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.BatchSize <= 0 || o.BatchSize > DefaultBatchSize {
		o.BatchSize = DefaultBatchSize
	}
	if o.ProbeLimit <= 0 {
		o.ProbeLimit = DefaultProbeLimit
	}
	if o.Sleep == nil {
		o.Sleep = defaultSleep
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// RunContext carries the per-run state shared across every playlist of a
// single ProcessAll invocation: the request gate and the artist-track cache.
// The cache guarantees an artist's catalog is crawled at most once per run,
// no matter how many playlists include it.
type RunContext struct {
	gate  *RequestGate
	cache map[string][]models.Track
}

// MakerEngine aggregates artist catalogs into playlists.
//
// All remote access goes through the Catalog interface and is strictly
// sequential; every call is gated against the run's request budget.
type MakerEngine struct {
	catalog services.Catalog
	states  StateStore
	logger  *log.Logger
	opts    EngineOpts
}

// NewMakerEngine creates an engine over a catalog and a state store.
func NewMakerEngine(catalog services.Catalog, states StateStore, opts EngineOpts) *MakerEngine {
	return &MakerEngine{
		catalog: catalog,
		states:  states,
		logger:  shared.NewLogger(os.Stderr),
		opts:    opts.withDefaults(),
	}
}

// SetLogger replaces the engine's logger.
func (e *MakerEngine) SetLogger(l *log.Logger) {
	if l != nil {
		e.logger = l
	}
}

func (e *MakerEngine) newRunContext() *RunContext {
	return &RunContext{
		gate:  &RequestGate{budget: e.opts.RequestBudget, cooldown: e.opts.Cooldown, sleep: e.opts.Sleep},
		cache: make(map[string][]models.Track),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MakerEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// ProcessAll runs the maker over the selected playlists and artists.
//
// Both empty: nothing to do. Artists empty: each playlist is refreshed from
// the artist ids recorded in its description. Playlists empty: the artists
// are collected into one new playlist. Otherwise the artist set is merged
// into every selected playlist, in input order, with a delay between
// playlists. One RunContext (gate + crawl cache) spans the whole run.
//
// Every non-nil per-playlist result is returned, including empty ones where
// nothing needed adding. On error the results committed so far are returned
// alongside it; finished playlists are not rolled back.
func (e *MakerEngine) ProcessAll(ctx context.Context, playlists []models.Playlist, artists []models.Artist, progress chan<- ProgressUpdate) ([]models.ProcessedPlaylist, error) {
	if len(playlists) == 0 && len(artists) == 0 {
		return nil, nil
	}

	rc := e.newRunContext()
	var results []models.ProcessedPlaylist

	if len(playlists) == 0 {
		result, err := e.syncOne(ctx, rc, progress, nil, artists)
		if err != nil {
			return results, err
		}
		if result != nil {
			results = append(results, *result)
		}
		return results, nil
	}

	for i := range playlists {
		if i > 0 && e.opts.PlaylistDelay > 0 {
			e.sendProgress(progress, waitingUpdate(e.opts.PlaylistDelay))
			if err := e.opts.Sleep(ctx, e.opts.PlaylistDelay); err != nil {
				return results, err
			}
		}

		result, err := e.syncOne(ctx, rc, progress, &playlists[i], artists)
		if err != nil {
			return results, fmt.Errorf("playlist %q: %w", playlists[i].Name, err)
		}
		if result != nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

// syncOne synchronizes one target. A nil playlist means "create a new
// playlist for these artists"; otherwise the requested artists are merged
// with the ids already recorded on the playlist and the playlist is brought
// up to date.
func (e *MakerEngine) syncOne(ctx context.Context, rc *RunContext, progress chan<- ProgressUpdate, playlist *models.Playlist, artists []models.Artist) (*models.ProcessedPlaylist, error) {
	requested := make([]string, 0, len(artists))
	names := make(map[string]string, len(artists))
	for _, a := range artists {
		requested = append(requested, a.ID)
		names[a.ID] = a.Name
	}

	allIDs := requested
	var lastUpdated time.Time
	if playlist != nil {
		allIDs = mergeIDs(requested, models.ParseArtistIDs(playlist.Description))

		state, err := e.states.LoadPlaylistState(playlist.ID)
		if err != nil {
			return nil, err
		}
		if state != nil {
			lastUpdated = state.LastUpdated
		}
	}

	crawlIDs := allIDs
	if playlist != nil && !lastUpdated.IsZero() {
		crawlIDs = make([]string, 0, len(allIDs))
		for i, id := range allIDs {
			e.sendProgress(progress, probeReleasesUpdate(i+1, len(allIDs), e.displayName(names, id)))

			newest, err := e.newestRelease(ctx, rc, id)
			if err != nil {
				return nil, fmt.Errorf("artist %s: %w", id, err)
			}
			if newest.After(lastUpdated) {
				crawlIDs = append(crawlIDs, id)
				continue
			}
			e.logger.Debug("nothing new, skipping artist", "artist", id, "newest", newest, "last_updated", lastUpdated)
		}
	}

	if len(crawlIDs) == 0 {
		if playlist == nil {
			return nil, nil
		}
		if err := e.saveState(playlist.ID, allIDs); err != nil {
			return nil, err
		}
		e.logger.Info("playlist already up to date", "playlist", playlist.Name)
		result := &models.ProcessedPlaylist{Playlist: *playlist}
		e.sendProgress(progress, playlistDoneUpdate(playlist.Name, 0, result))
		return result, nil
	}

	var candidates []models.Track
	for i, id := range crawlIDs {
		e.sendProgress(progress, crawlArtistUpdate(i+1, len(crawlIDs), e.displayName(names, id)))

		tracks, err := e.artistTracks(ctx, rc, id)
		if err != nil {
			return nil, fmt.Errorf("artist %s: %w", id, err)
		}
		candidates = append(candidates, tracks...)
	}

	var existing []models.Track
	if playlist != nil {
		e.sendProgress(progress, fetchExistingUpdate(playlist.Name))

		var err error
		existing, err = e.playlistTracks(ctx, rc, playlist.ID)
		if err != nil {
			return nil, err
		}
	}

	e.sendProgress(progress, dedupeUpdate(len(candidates)))
	unique := Dedupe(candidates, existing, e.opts.DuplicateTolerance)
	e.logger.Info("deduplicated candidates", "candidates", len(candidates), "existing", len(existing), "unique", len(unique))

	target := playlist
	if target == nil {
		name := models.PlaylistNameFor(artists)
		e.sendProgress(progress, createTargetUpdate(name))

		created, err := e.createTarget(ctx, rc, name, allIDs)
		if err != nil {
			return nil, err
		}
		target = created
	}

	if err := e.addInBatches(ctx, rc, progress, target.ID, unique); err != nil {
		return nil, err
	}

	if playlist != nil {
		e.sendProgress(progress, writeDescriptionUpdate(target.Name))
		if err := rc.gate.Gate(ctx); err != nil {
			return nil, err
		}
		if err := e.catalog.UpdatePlaylistDescription(ctx, target.ID, models.FormatArtistIDs(allIDs)); err != nil {
			return nil, err
		}
	}

	if err := e.saveState(target.ID, allIDs); err != nil {
		return nil, err
	}

	target.Description = models.FormatArtistIDs(allIDs)
	target.TrackCount += len(unique)

	result := &models.ProcessedPlaylist{Playlist: *target, Tracks: unique}
	e.sendProgress(progress, playlistDoneUpdate(target.Name, len(unique), result))
	return result, nil
}

// artistTracks returns every track by the artist across the crawled release
// groups, consulting the run cache first.
func (e *MakerEngine) artistTracks(ctx context.Context, rc *RunContext, artistID string) ([]models.Track, error) {
	if tracks, ok := rc.cache[artistID]; ok {
		e.logger.Debug("artist crawl cache hit", "artist", artistID, "tracks", len(tracks))
		return tracks, nil
	}

	var tracks []models.Track
	for _, group := range models.CrawlGroups {
		groupTracks, err := e.crawlGroup(ctx, rc, artistID, group)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, groupTracks...)
	}

	rc.cache[artistID] = tracks
	return tracks, nil
}

// crawlGroup paginates one release group of an artist and collects the
// tracks of every release in it. Tracks from appears_on releases that do
// not credit the artist are dropped.
func (e *MakerEngine) crawlGroup(ctx context.Context, rc *RunContext, artistID string, group models.ReleaseGroup) ([]models.Track, error) {
	var tracks []models.Track

	for offset := 0; ; offset += e.opts.PageSize {
		if err := rc.gate.Gate(ctx); err != nil {
			return nil, err
		}
		page, err := e.catalog.FetchArtistReleases(ctx, artistID, group, e.opts.PageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, release := range page.Items {
			releaseTracks, err := e.releaseTracks(ctx, rc, release)
			if err != nil {
				return nil, err
			}
			for _, track := range releaseTracks {
				if group == models.GroupAppearsOn && !track.CreditedTo(artistID) {
					continue
				}
				tracks = append(tracks, track)
			}
		}

		if page.Next == "" {
			break
		}
	}

	return tracks, nil
}

// releaseTracks paginates a release's tracks, tagging each with the
// release's album metadata. The track-level markets set by the client is
// preserved.
func (e *MakerEngine) releaseTracks(ctx context.Context, rc *RunContext, release models.Release) ([]models.Track, error) {
	var tracks []models.Track

	for offset := 0; ; offset += e.opts.PageSize {
		if err := rc.gate.Gate(ctx); err != nil {
			return nil, err
		}
		page, err := e.catalog.FetchAlbumTracks(ctx, release.ID, e.opts.PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("release %s: %w", release.ID, err)
		}

		for _, track := range page.Items {
			track.Album.ID = release.ID
			track.Album.Name = release.Name
			track.Album.ReleaseDate = release.ReleaseDate
			tracks = append(tracks, track)
		}

		if page.Next == "" {
			break
		}
	}

	return tracks, nil
}

// playlistTracks paginates the full current contents of a playlist.
func (e *MakerEngine) playlistTracks(ctx context.Context, rc *RunContext, playlistID string) ([]models.Track, error) {
	var tracks []models.Track

	for offset := 0; ; offset += e.opts.PageSize {
		if err := rc.gate.Gate(ctx); err != nil {
			return nil, err
		}
		page, err := e.catalog.FetchPlaylistTracks(ctx, playlistID, e.opts.PageSize, offset)
		if err != nil {
			return nil, err
		}

		tracks = append(tracks, page.Items...)

		if page.Next == "" {
			break
		}
	}

	return tracks, nil
}

// newestRelease fetches the first ProbeLimit releases of each crawled group
// and returns the most recent release date. Zero time when the artist has
// no parseable release dates.
func (e *MakerEngine) newestRelease(ctx context.Context, rc *RunContext, artistID string) (time.Time, error) {
	var newest time.Time

	for _, group := range models.CrawlGroups {
		if err := rc.gate.Gate(ctx); err != nil {
			return time.Time{}, err
		}
		page, err := e.catalog.FetchArtistReleases(ctx, artistID, group, e.opts.ProbeLimit, 0)
		if err != nil {
			return time.Time{}, err
		}

		for _, release := range page.Items {
			if at := release.ReleasedAt(); at.After(newest) {
				newest = at
			}
		}
	}

	return newest, nil
}

// createTarget creates a new private playlist for the run's artist set.
func (e *MakerEngine) createTarget(ctx context.Context, rc *RunContext, name string, ids []string) (*models.Playlist, error) {
	if err := rc.gate.Gate(ctx); err != nil {
		return nil, err
	}
	userID, err := e.catalog.CurrentUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := rc.gate.Gate(ctx); err != nil {
		return nil, err
	}
	created, err := e.catalog.CreatePlaylist(ctx, userID, name, models.FormatArtistIDs(ids), false)
	if err != nil {
		return nil, err
	}

	e.logger.Info("created playlist", "playlist", created.Name, "id", created.ID)
	return created, nil
}

// addInBatches appends the tracks' URIs to the playlist in capped batches.
// Committed batches stay committed if a later one fails; the dedupe pass
// against existing tracks makes the retry idempotent.
func (e *MakerEngine) addInBatches(ctx context.Context, rc *RunContext, progress chan<- ProgressUpdate, playlistID string, tracks []models.Track) error {
	if len(tracks) == 0 {
		return nil
	}

	uris := make([]string, len(tracks))
	for i, t := range tracks {
		uris[i] = t.URI
	}

	total := (len(uris) + e.opts.BatchSize - 1) / e.opts.BatchSize
	for i := 0; i < total; i++ {
		start := i * e.opts.BatchSize
		end := min(start+e.opts.BatchSize, len(uris))

		e.sendProgress(progress, addBatchUpdate(i+1, total))
		if err := rc.gate.Gate(ctx); err != nil {
			return err
		}
		if err := e.catalog.AddTracksToPlaylist(ctx, playlistID, uris[start:end]); err != nil {
			return fmt.Errorf("batch %d/%d: %w", i+1, total, err)
		}
	}

	return nil
}

func (e *MakerEngine) saveState(playlistID string, ids []string) error {
	return e.states.SavePlaylistState(&models.SyncState{
		PlaylistID:  playlistID,
		ArtistIDs:   ids,
		LastUpdated: e.opts.Now(),
	})
}

func (e *MakerEngine) displayName(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

// mergeIDs unions the requested ids with the previously recorded ones,
// keeping request order first and dropping duplicates.
func mergeIDs(requested, prior []string) []string {
	merged := make([]string, 0, len(requested)+len(prior))
	seen := make(map[string]bool, len(requested)+len(prior))
	for _, ids := range [][]string{requested, prior} {
		for _, id := range ids {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, id)
		}
	}
	return merged
}
