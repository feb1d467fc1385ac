package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/shared"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

// mockCatalog is a scripted services.Catalog. Release and track fixtures are
// keyed by artist+group and release id; pagination follows limit/offset the
// same way the real client does.
type mockCatalog struct {
	releases      map[string][]models.Release
	albumTracks   map[string][]models.Track
	playlistItems map[string][]models.Track

	added         map[string][][]string
	descriptions  map[string]string
	createdName   string
	createdDesc   string
	createdPublic bool

	addErrPlaylist string

	releaseCalls  int
	albumCalls    int
	playlistCalls int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		releases:      make(map[string][]models.Release),
		albumTracks:   make(map[string][]models.Track),
		playlistItems: make(map[string][]models.Track),
		added:         make(map[string][][]string),
		descriptions:  make(map[string]string),
	}
}

func (m *mockCatalog) setReleases(artistID string, group models.ReleaseGroup, releases ...models.Release) {
	m.releases[artistID+"/"+string(group)] = releases
}

func (m *mockCatalog) FetchArtistReleases(_ context.Context, artistID string, group models.ReleaseGroup, limit, offset int) (*models.ReleasePage, error) {
	m.releaseCalls++
	items := m.releases[artistID+"/"+string(group)]
	page := &models.ReleasePage{Total: len(items), Limit: limit, Offset: offset}
	if offset < len(items) {
		page.Items = items[offset:min(offset+limit, len(items))]
	}
	if offset+limit < len(items) {
		page.Next = "next"
	}
	return page, nil
}

func (m *mockCatalog) FetchAlbumTracks(_ context.Context, albumID string, limit, offset int) (*models.TrackPage, error) {
	m.albumCalls++
	return trackPage(m.albumTracks[albumID], limit, offset), nil
}

func (m *mockCatalog) FetchPlaylistTracks(_ context.Context, playlistID string, limit, offset int) (*models.TrackPage, error) {
	m.playlistCalls++
	return trackPage(m.playlistItems[playlistID], limit, offset), nil
}

func (m *mockCatalog) AddTracksToPlaylist(_ context.Context, playlistID string, uris []string) error {
	if playlistID == m.addErrPlaylist {
		return errors.New("upstream rejected the mutation")
	}
	m.added[playlistID] = append(m.added[playlistID], uris)
	return nil
}

func (m *mockCatalog) UpdatePlaylistDescription(_ context.Context, playlistID, description string) error {
	m.descriptions[playlistID] = description
	return nil
}

func (m *mockCatalog) CreatePlaylist(_ context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	m.createdName = name
	m.createdDesc = description
	m.createdPublic = public
	return &models.Playlist{ID: "new-pl", Name: name, Description: description, OwnerID: userID, Public: public}, nil
}

func (m *mockCatalog) CurrentUserID(_ context.Context) (string, error) {
	return "user-1", nil
}

func trackPage(items []models.Track, limit, offset int) *models.TrackPage {
	page := &models.TrackPage{Total: len(items), Limit: limit, Offset: offset}
	if offset < len(items) {
		page.Items = items[offset:min(offset+limit, len(items))]
	}
	if offset+limit < len(items) {
		page.Next = "next"
	}
	return page
}

type memStateStore struct {
	states map[string]*models.SyncState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]*models.SyncState)}
}

func (s *memStateStore) LoadPlaylistState(playlistID string) (*models.SyncState, error) {
	return s.states[playlistID], nil
}

func (s *memStateStore) SavePlaylistState(state *models.SyncState) error {
	s.states[state.PlaylistID] = state
	return nil
}

func newTestEngine(catalog *mockCatalog, states *memStateStore, sleep *fakeSleep) *MakerEngine {
	engine := NewMakerEngine(catalog, states, EngineOpts{
		Sleep: sleep.sleep,
		Now:   func() time.Time { return testNow },
	})
	engine.SetLogger(shared.NewLogger(io.Discard))
	return engine
}

func TestProcessAllNothingToDo(t *testing.T) {
	catalog := newMockCatalog()
	engine := newTestEngine(catalog, newMemStateStore(), &fakeSleep{})

	results, err := engine.ProcessAll(context.Background(), nil, nil, nil)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if results != nil {
		t.Errorf("ProcessAll() = %v, want nil", results)
	}
	if catalog.releaseCalls+catalog.albumCalls+catalog.playlistCalls != 0 {
		t.Error("ProcessAll() touched the catalog with nothing to do")
	}
}

func TestProcessAllCreatesPlaylist(t *testing.T) {
	catalog := newMockCatalog()
	catalog.setReleases("a1", models.GroupAlbum, models.Release{ID: "r1", Name: "First", ReleaseDate: "2024-01-10", Precision: "day"})
	catalog.setReleases("a1", models.GroupSingle, models.Release{ID: "r2", Name: "Solo", ReleaseDate: "2024-03-01", Precision: "day"})
	catalog.setReleases("a1", models.GroupAppearsOn, models.Release{ID: "r3", Name: "Various", ReleaseDate: "2023-11-05", Precision: "day"})
	catalog.albumTracks["r1"] = []models.Track{
		track("t1", "Opener", 201000, false),
		track("t2", "Closer", 185000, false),
	}
	catalog.albumTracks["r2"] = []models.Track{track("t3", "Solo", 190000, true)}
	catalog.albumTracks["r3"] = []models.Track{
		{ID: "t4", Name: "Feature", DurationMS: 222000, URI: "spotify:track:t4", Artists: []models.Artist{{ID: "a1"}, {ID: "host"}}},
		{ID: "t5", Name: "Unrelated", DurationMS: 199000, URI: "spotify:track:t5", Artists: []models.Artist{{ID: "host"}}},
	}

	states := newMemStateStore()
	engine := newTestEngine(catalog, states, &fakeSleep{})

	artists := []models.Artist{{ID: "a1", Name: "Alpha"}, {ID: "a2", Name: "Beta"}}
	results, err := engine.ProcessAll(context.Background(), nil, artists, nil)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ProcessAll() returned %d results, want 1", len(results))
	}

	if catalog.createdName != "Alpha / Beta" {
		t.Errorf("created playlist name = %q, want %q", catalog.createdName, "Alpha / Beta")
	}
	if catalog.createdDesc != "ids: a1,a2" {
		t.Errorf("created playlist description = %q, want %q", catalog.createdDesc, "ids: a1,a2")
	}
	if catalog.createdPublic {
		t.Error("created playlist is public, want private")
	}

	batches := catalog.added["new-pl"]
	if len(batches) != 1 {
		t.Fatalf("added %d batches, want 1", len(batches))
	}
	want := []string{"spotify:track:t1", "spotify:track:t2", "spotify:track:t3", "spotify:track:t4"}
	if got := strings.Join(batches[0], " "); got != strings.Join(want, " ") {
		t.Errorf("added URIs = %v, want %v (appears_on tracks without the artist's credit dropped)", batches[0], want)
	}

	state := states.states["new-pl"]
	if state == nil {
		t.Fatal("no sync state saved for the created playlist")
	}
	if strings.Join(state.ArtistIDs, ",") != "a1,a2" || !state.LastUpdated.Equal(testNow) {
		t.Errorf("saved state = %+v, want ids a1,a2 at %v", state, testNow)
	}
}

func TestProcessAllRefreshesExistingPlaylist(t *testing.T) {
	catalog := newMockCatalog()
	catalog.setReleases("a1", models.GroupAlbum, models.Release{ID: "ra", Name: "New Blood", ReleaseDate: "2026-05-01", Precision: "day"})
	catalog.albumTracks["ra"] = []models.Track{
		track("shared", "Shared", 200000, false),
		track("fresh", "Fresh", 180000, false),
	}
	catalog.setReleases("a2", models.GroupAlbum, models.Release{ID: "rb", Name: "Archive", ReleaseDate: "2025-02-01", Precision: "day"})
	catalog.albumTracks["rb"] = []models.Track{track("other", "Other", 210000, false)}
	catalog.playlistItems["p1"] = []models.Track{track("old", "shared", 200500, false)}

	states := newMemStateStore()
	engine := newTestEngine(catalog, states, &fakeSleep{})

	playlists := []models.Playlist{{ID: "p1", Name: "Mix", Description: "ids: a2"}}
	results, err := engine.ProcessAll(context.Background(), playlists, []models.Artist{{ID: "a1", Name: "Alpha"}}, nil)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ProcessAll() returned %d results, want 1", len(results))
	}

	batches := catalog.added["p1"]
	if len(batches) != 1 {
		t.Fatalf("added %d batches, want 1", len(batches))
	}
	want := "spotify:track:fresh spotify:track:other"
	if got := strings.Join(batches[0], " "); got != want {
		t.Errorf("added URIs = %v, want %q (track already in the playlist suppressed)", batches[0], want)
	}

	if catalog.descriptions["p1"] != "ids: a1,a2" {
		t.Errorf("description = %q, want requested ids merged ahead of recorded ones", catalog.descriptions["p1"])
	}
	if results[0].Playlist.Description != "ids: a1,a2" {
		t.Errorf("result description = %q, want %q", results[0].Playlist.Description, "ids: a1,a2")
	}

	state := states.states["p1"]
	if state == nil || strings.Join(state.ArtistIDs, ",") != "a1,a2" {
		t.Errorf("saved state = %+v, want ids a1,a2", state)
	}
}

func TestIncrementalSkip(t *testing.T) {
	setup := func(releaseDate string) (*mockCatalog, *memStateStore, []models.Playlist) {
		catalog := newMockCatalog()
		catalog.setReleases("a1", models.GroupAlbum, models.Release{ID: "r1", Name: "Album", ReleaseDate: releaseDate, Precision: "day"})
		catalog.albumTracks["r1"] = []models.Track{track("t1", "Song", 200000, false)}

		states := newMemStateStore()
		states.states["p1"] = &models.SyncState{
			PlaylistID:  "p1",
			ArtistIDs:   []string{"a1"},
			LastUpdated: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		}
		return catalog, states, []models.Playlist{{ID: "p1", Name: "Mix", Description: "ids: a1"}}
	}

	t.Run("artist with nothing new is dropped", func(t *testing.T) {
		catalog, states, playlists := setup("2025-01-15")
		engine := newTestEngine(catalog, states, &fakeSleep{})

		results, err := engine.ProcessAll(context.Background(), playlists, nil, nil)
		if err != nil {
			t.Fatalf("ProcessAll() error = %v", err)
		}
		if len(results) != 1 || len(results[0].Tracks) != 0 {
			t.Fatalf("ProcessAll() = %v, want one empty result", results)
		}

		if catalog.albumCalls != 0 {
			t.Errorf("album tracks fetched %d times after the skip check, want 0", catalog.albumCalls)
		}
		if catalog.releaseCalls != len(models.CrawlGroups) {
			t.Errorf("release fetches = %d, want %d (one probe per group)", catalog.releaseCalls, len(models.CrawlGroups))
		}
		if len(catalog.added["p1"]) != 0 {
			t.Error("tracks were added to an up-to-date playlist")
		}
		if _, ok := catalog.descriptions["p1"]; ok {
			t.Error("description rewritten on the skip path")
		}
		if !states.states["p1"].LastUpdated.Equal(testNow) {
			t.Errorf("lastUpdated = %v, want advanced to %v", states.states["p1"].LastUpdated, testNow)
		}
	})

	t.Run("artist with a newer release is crawled", func(t *testing.T) {
		catalog, states, playlists := setup("2026-07-20")
		engine := newTestEngine(catalog, states, &fakeSleep{})

		results, err := engine.ProcessAll(context.Background(), playlists, nil, nil)
		if err != nil {
			t.Fatalf("ProcessAll() error = %v", err)
		}
		if len(results) != 1 || len(results[0].Tracks) != 1 {
			t.Fatalf("ProcessAll() = %+v, want one result with one added track", results)
		}
		if catalog.descriptions["p1"] != "ids: a1" {
			t.Errorf("description = %q, want rewritten", catalog.descriptions["p1"])
		}
	})
}

func TestAddsAreBatched(t *testing.T) {
	catalog := newMockCatalog()
	catalog.setReleases("a1", models.GroupAlbum, models.Release{ID: "big", Name: "Anthology", ReleaseDate: "2024-01-01", Precision: "day"})
	tracks := make([]models.Track, 120)
	for i := range tracks {
		tracks[i] = track(fmt.Sprintf("t%03d", i), fmt.Sprintf("Song %03d", i), 180000+i*5000, false)
	}
	catalog.albumTracks["big"] = tracks

	engine := newTestEngine(catalog, newMemStateStore(), &fakeSleep{})

	results, err := engine.ProcessAll(context.Background(), nil, []models.Artist{{ID: "a1", Name: "Alpha"}}, nil)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if len(results) != 1 || len(results[0].Tracks) != 120 {
		t.Fatalf("ProcessAll() = %d results, want 1 with 120 tracks", len(results))
	}

	batches := catalog.added["new-pl"]
	if len(batches) != 3 {
		t.Fatalf("added %d batches, want 3", len(batches))
	}
	for i, want := range []int{50, 50, 20} {
		if len(batches[i]) != want {
			t.Errorf("batch %d size = %d, want %d", i+1, len(batches[i]), want)
		}
	}
}

func TestCrawlCacheSpansPlaylists(t *testing.T) {
	catalog := newMockCatalog()
	catalog.setReleases("a1", models.GroupAlbum, models.Release{ID: "r1", Name: "Album", ReleaseDate: "2024-01-01", Precision: "day"})
	catalog.albumTracks["r1"] = []models.Track{track("t1", "Song", 200000, false)}

	sleep := &fakeSleep{}
	engine := newTestEngine(catalog, newMemStateStore(), sleep)

	playlists := []models.Playlist{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}
	results, err := engine.ProcessAll(context.Background(), playlists, []models.Artist{{ID: "a1", Name: "Alpha"}}, nil)
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("ProcessAll() returned %d results, want 2", len(results))
	}

	if catalog.releaseCalls != len(models.CrawlGroups) {
		t.Errorf("release fetches = %d, want %d (second playlist served from the run cache)", catalog.releaseCalls, len(models.CrawlGroups))
	}
	if catalog.albumCalls != 1 {
		t.Errorf("album fetches = %d, want 1", catalog.albumCalls)
	}

	if len(sleep.slept) != 1 || sleep.slept[0] != DefaultPlaylistDelay {
		t.Errorf("slept = %v, want one inter-playlist delay of %v", sleep.slept, DefaultPlaylistDelay)
	}
}

func TestMutationErrorAbortsRun(t *testing.T) {
	catalog := newMockCatalog()
	catalog.setReleases("a1", models.GroupAlbum, models.Release{ID: "r1", Name: "Album", ReleaseDate: "2024-01-01", Precision: "day"})
	catalog.albumTracks["r1"] = []models.Track{track("t1", "Song", 200000, false)}
	catalog.addErrPlaylist = "p2"

	states := newMemStateStore()
	engine := newTestEngine(catalog, states, &fakeSleep{})

	playlists := []models.Playlist{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}
	results, err := engine.ProcessAll(context.Background(), playlists, []models.Artist{{ID: "a1", Name: "Alpha"}}, nil)
	if err == nil {
		t.Fatal("ProcessAll() error = nil, want mutation failure")
	}
	if !strings.Contains(err.Error(), "Two") {
		t.Errorf("error %q does not name the failing playlist", err)
	}

	if len(results) != 1 || results[0].Playlist.ID != "p1" {
		t.Errorf("results = %+v, want the completed first playlist only", results)
	}
	if states.states["p2"] != nil {
		t.Error("state advanced for the failed playlist")
	}
}

func TestProgressUpdatesNeverBlock(t *testing.T) {
	catalog := newMockCatalog()
	catalog.setReleases("a1", models.GroupAlbum, models.Release{ID: "r1", Name: "Album", ReleaseDate: "2024-01-01", Precision: "day"})
	catalog.albumTracks["r1"] = []models.Track{track("t1", "Song", 200000, false)}

	engine := newTestEngine(catalog, newMemStateStore(), &fakeSleep{})

	// Unbuffered channel with no reader: sends must be dropped, not block.
	progress := make(chan ProgressUpdate)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := engine.ProcessAll(context.Background(), nil, []models.Artist{{ID: "a1", Name: "Alpha"}}, progress); err != nil {
			t.Errorf("ProcessAll() error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessAll() blocked on progress reporting")
	}
}
