// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/Odrinateur/sputifixV2/internal/models"
)

// MockCatalog is a scriptable test double for [services.Catalog]. Unset
// functions return zero values.
type MockCatalog struct {
	FetchArtistReleasesFunc func(ctx context.Context, artistID string, group models.ReleaseGroup, limit, offset int) (*models.ReleasePage, error)
	FetchAlbumTracksFunc    func(ctx context.Context, albumID string, limit, offset int) (*models.TrackPage, error)
	FetchPlaylistTracksFunc func(ctx context.Context, playlistID string, limit, offset int) (*models.TrackPage, error)
	AddTracksFunc           func(ctx context.Context, playlistID string, uris []string) error
	UpdateDescriptionFunc   func(ctx context.Context, playlistID, description string) error
	CreatePlaylistFunc      func(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)
	CurrentUserIDFunc       func(ctx context.Context) (string, error)
}

func (m *MockCatalog) FetchArtistReleases(ctx context.Context, artistID string, group models.ReleaseGroup, limit, offset int) (*models.ReleasePage, error) {
	if m.FetchArtistReleasesFunc != nil {
		return m.FetchArtistReleasesFunc(ctx, artistID, group, limit, offset)
	}
	return &models.ReleasePage{}, nil
}

func (m *MockCatalog) FetchAlbumTracks(ctx context.Context, albumID string, limit, offset int) (*models.TrackPage, error) {
	if m.FetchAlbumTracksFunc != nil {
		return m.FetchAlbumTracksFunc(ctx, albumID, limit, offset)
	}
	return &models.TrackPage{}, nil
}

func (m *MockCatalog) FetchPlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*models.TrackPage, error) {
	if m.FetchPlaylistTracksFunc != nil {
		return m.FetchPlaylistTracksFunc(ctx, playlistID, limit, offset)
	}
	return &models.TrackPage{}, nil
}

func (m *MockCatalog) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if m.AddTracksFunc != nil {
		return m.AddTracksFunc(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockCatalog) UpdatePlaylistDescription(ctx context.Context, playlistID, description string) error {
	if m.UpdateDescriptionFunc != nil {
		return m.UpdateDescriptionFunc(ctx, playlistID, description)
	}
	return nil
}

func (m *MockCatalog) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, userID, name, description, public)
	}
	return &models.Playlist{ID: "mock-playlist", Name: name, Description: description, OwnerID: userID, Public: public}, nil
}

func (m *MockCatalog) CurrentUserID(ctx context.Context) (string, error) {
	if m.CurrentUserIDFunc != nil {
		return m.CurrentUserIDFunc(ctx)
	}
	return "mock-user", nil
}

// MockStateStore is an in-memory test double for [tasks.StateStore].
type MockStateStore struct {
	States map[string]*models.SyncState
}

func NewMockStateStore() *MockStateStore {
	return &MockStateStore{States: make(map[string]*models.SyncState)}
}

func (s *MockStateStore) LoadPlaylistState(playlistID string) (*models.SyncState, error) {
	return s.States[playlistID], nil
}

func (s *MockStateStore) SavePlaylistState(state *models.SyncState) error {
	s.States[state.PlaylistID] = state
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
