package services

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/Odrinateur/sputifixV2/internal/models"
)

// OAuthService is implemented by services that authenticate through the
// OAuth2 authorization-code flow.
type OAuthService interface {
	// GetAuthURL returns the authorization URL for the given state token.
	GetAuthURL(state string) string

	// GetOAuthConfig exposes the underlying OAuth2 configuration for the
	// callback server's code exchange.
	GetOAuthConfig() *oauth2.Config

	// OAuthenticate installs a token (with refresh support) on the service.
	OAuthenticate(ctx context.Context, token *oauth2.Token) error
}

// Library is the user-facing surface of the Spotify client consumed by the
// CLI and TUI: everything the maker engine needs plus authentication and
// the browse operations (profile, playlists, likes, top items, search).
type Library interface {
	Catalog
	OAuthService

	// Authenticate authenticates using stored credentials (access token or
	// authorization code).
	Authenticate(ctx context.Context, credentials map[string]string) error

	// UserProfile retrieves the current user's profile.
	UserProfile(ctx context.Context) (*SpotifyUser, error)

	// GetPlaylists retrieves all of the user's playlists.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves one playlist by id.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// SearchArtists searches the catalog for artists matching a query.
	SearchArtists(ctx context.Context, query string, limit int) ([]models.Artist, error)

	// GetArtists retrieves several artists by id in one call.
	GetArtists(ctx context.Context, ids []string) ([]models.Artist, error)

	// SavedTracks retrieves one page of the user's liked tracks.
	SavedTracks(ctx context.Context, limit, offset int) (*models.TrackPage, error)

	// TopArtists retrieves the user's top artists for a time range.
	TopArtists(ctx context.Context, timeRange string, limit int) ([]models.Artist, error)

	// TopTracks retrieves the user's top tracks for a time range.
	TopTracks(ctx context.Context, timeRange string, limit int) ([]models.Track, error)

	// Name identifies the service in logs and errors.
	Name() string
}

// Catalog is the surface of the remote catalog the maker engine consumes.
//
// Page-level operations return one page at a time; the engine owns
// pagination so its request gate sees every remote call.
type Catalog interface {
	// FetchArtistReleases returns one page of an artist's releases for a
	// release group.
	FetchArtistReleases(ctx context.Context, artistID string, group models.ReleaseGroup, limit, offset int) (*models.ReleasePage, error)

	// FetchAlbumTracks returns one page of an album's tracks.
	FetchAlbumTracks(ctx context.Context, albumID string, limit, offset int) (*models.TrackPage, error)

	// FetchPlaylistTracks returns one page of a playlist's tracks.
	FetchPlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*models.TrackPage, error)

	// AddTracksToPlaylist appends up to 50 track URIs to a playlist.
	AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error

	// UpdatePlaylistDescription rewrites a playlist's description.
	UpdatePlaylistDescription(ctx context.Context, playlistID, description string) error

	// CreatePlaylist creates a playlist owned by the given user.
	CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error)

	// CurrentUserID returns the authenticated user's id.
	CurrentUserID(ctx context.Context) (string, error)
}
