// Spotify Web API client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album or simplified release.
type SpotifyAlbum struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	AlbumGroup       string          `json:"album_group"`
	AlbumType        string          `json:"album_type"`
	Artists          []SpotifyArtist `json:"artists"`
	ReleaseDate      string          `json:"release_date"`
	ReleasePrecision string          `json:"release_date_precision"`
	TotalTracks      int             `json:"total_tracks"`
	AvailableMarkets []string        `json:"available_markets"`
	Images           []SpotifyImage  `json:"images"`
	URI              string          `json:"uri"`
}

// SpotifySimplifiedTrack represents a track inside an album listing.
type SpotifySimplifiedTrack struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Artists          []SpotifyArtist `json:"artists"`
	DurationMS       int             `json:"duration_ms"`
	Explicit         bool            `json:"explicit"`
	AvailableMarkets []string        `json:"available_markets"`
	URI              string          `json:"uri"`
}

// SpotifyTrack represents a full track object.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	Popularity int             `json:"popularity"`
	URI        string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object.
type SpotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       Owner             `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      playlistTracksRef `json:"tracks"`
	Images      []SpotifyImage    `json:"images"`
	URI         string            `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifySavedTrack represents a track saved in the user's library.
type SpotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// page is the generic paginated envelope the API wraps list results in.
type page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// SpotifyService is an authenticated Spotify Web API client.
//
// Uses [oauth2] for authentication and an optional [rate.Limiter] to smooth
// request bursts; the maker engine layers its own budget gate on top.
type SpotifyService struct {
	config         *oauth2.Config
	token          *oauth2.Token
	httpClient     *http.Client
	limiter        *rate.Limiter
	baseURL        string
	credentials    map[string]string
	onTokenRefresh func(*oauth2.Token)
}

var _ Catalog = (*SpotifyService)(nil)
var _ Library = (*SpotifyService)(nil)

// NewSpotifyService creates a new Spotify client with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"user-library-read",
			"user-top-read",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		baseURL:     spotifyBaseURL,
		credentials: credentials,
	}, nil
}

// SetRateLimit caps outgoing requests at n per second. Zero disables smoothing.
func (s *SpotifyService) SetRateLimit(n float64) {
	if n <= 0 {
		s.limiter = nil
		return
	}
	s.limiter = rate.NewLimiter(rate.Limit(n), 1)
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// GetOAuthConfig exposes the OAuth2 config for the callback server.
func (s *SpotifyService) GetOAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers a function invoked whenever the
// underlying token source produces a new token, so callers can persist it.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.onTokenRefresh = fn
}

// Authenticate authenticates with either an "access_token" or an "auth_code"
// from the credentials map.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		token := &oauth2.Token{
			AccessToken:  accessToken,
			RefreshToken: credentials["refresh_token"],
		}
		return s.OAuthenticate(ctx, token)
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		return s.OAuthenticate(ctx, token)
	}

	return fmt.Errorf("%w: missing access_token or auth_code", shared.ErrMissingCredentials)
}

// OAuthenticate installs a token and builds an auto-refreshing HTTP client.
func (s *SpotifyService) OAuthenticate(ctx context.Context, token *oauth2.Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", shared.ErrNotAuthenticated)
	}
	s.token = token

	source := &refreshableTokenSource{
		source:   s.config.TokenSource(ctx, token),
		callback: s.notifyTokenRefresh,
	}
	s.httpClient = oauth2.NewClient(ctx, source)
	return nil
}

func (s *SpotifyService) notifyTokenRefresh(token *oauth2.Token) {
	s.token = token
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
}

// refreshableTokenSource wraps an [oauth2.TokenSource] and invokes a callback
// when the access token changes, so refreshed tokens can be saved.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		func() {
			defer func() { _ = recover() }()
			r.callback(token)
		}()
	}

	return token, nil
}

// doRequest performs an authenticated HTTP request against the API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("request cancelled: %w", err)
		}
	}

	apiURL := s.baseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status 429", shared.ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUserID returns the authenticated user's id.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

// SearchArtists searches the catalog for artists matching a query.
func (s *SpotifyService) SearchArtists(ctx context.Context, query string, limit int) ([]models.Artist, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=artist&limit=%d", url.QueryEscape(query), limit)

	var response struct {
		Artists page[SpotifyArtist] `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Artists.Items))
	for _, a := range response.Artists.Items {
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name, URI: a.URI})
	}
	return artists, nil
}

// GetArtists retrieves several artists by id in one call (at most 50).
func (s *SpotifyService) GetArtists(ctx context.Context, ids []string) ([]models.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > 50 {
		return nil, fmt.Errorf("%w: at most 50 artist ids per request", shared.ErrInvalidArgument)
	}

	endpoint := "/artists?ids=" + url.QueryEscape(strings.Join(ids, ","))

	var response struct {
		Artists []SpotifyArtist `json:"artists"`
	}
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Artists))
	for _, a := range response.Artists {
		if a.ID == "" {
			continue
		}
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name, URI: a.URI})
	}
	return artists, nil
}

// FetchArtistReleases returns one page of an artist's releases for a group.
func (s *SpotifyService) FetchArtistReleases(ctx context.Context, artistID string, group models.ReleaseGroup, limit, offset int) (*models.ReleasePage, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/artists/%s/albums?include_groups=%s&limit=%d&offset=%d", artistID, group, limit, offset)

	var response page[SpotifyAlbum]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	releases := make([]models.Release, 0, len(response.Items))
	for _, a := range response.Items {
		releases = append(releases, models.Release{
			ID:          a.ID,
			Name:        a.Name,
			Group:       models.ReleaseGroup(a.AlbumGroup),
			ReleaseDate: a.ReleaseDate,
			Precision:   a.ReleasePrecision,
			TotalTracks: a.TotalTracks,
		})
	}

	return &models.ReleasePage{
		Items:  releases,
		Total:  response.Total,
		Limit:  response.Limit,
		Offset: response.Offset,
		Next:   deref(response.Next),
	}, nil
}

// FetchAlbumTracks returns one page of an album's tracks. Tracks carry the
// album id so the crawler can tag denormalized album metadata onto them.
func (s *SpotifyService) FetchAlbumTracks(ctx context.Context, albumID string, limit, offset int) (*models.TrackPage, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", albumID, limit, offset)

	var response page[SpotifySimplifiedTrack]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, t := range response.Items {
		tracks = append(tracks, models.Track{
			ID:         t.ID,
			Name:       t.Name,
			DurationMS: t.DurationMS,
			Explicit:   t.Explicit,
			URI:        t.URI,
			Artists:    convertArtists(t.Artists),
			Album:      models.Album{ID: albumID, Markets: t.AvailableMarkets},
		})
	}

	return &models.TrackPage{
		Items:  tracks,
		Total:  response.Total,
		Limit:  response.Limit,
		Offset: response.Offset,
		Next:   deref(response.Next),
	}, nil
}

// FetchPlaylistTracks returns one page of a playlist's tracks.
func (s *SpotifyService) FetchPlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*models.TrackPage, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var response page[SpotifyPlaylistTrack]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		tracks = append(tracks, convertTrack(item.Track))
	}

	return &models.TrackPage{
		Items:  tracks,
		Total:  response.Total,
		Limit:  response.Limit,
		Offset: response.Offset,
		Next:   deref(response.Next),
	}, nil
}

// AddTracksToPlaylist appends track URIs to a playlist. The endpoint caps a
// single call at 100 URIs; callers batch lower than that.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
	body := map[string]any{"uris": uris}

	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// UpdatePlaylistDescription rewrites a playlist's description.
func (s *SpotifyService) UpdatePlaylistDescription(ctx context.Context, playlistID, description string) error {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)
	body := map[string]any{"description": description}

	return s.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// CreatePlaylist creates a playlist owned by the given user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", userID)
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      public,
	}

	var created SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	pl := convertPlaylist(created)
	return &pl, nil
}

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var response page[SpotifyPlaylist]
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			all = append(all, convertPlaylist(sp))
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return all, nil
}

// GetPlaylist retrieves a specific playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)

	var sp SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &sp); err != nil {
		return nil, err
	}

	pl := convertPlaylist(sp)
	return &pl, nil
}

// SavedTracks retrieves one page of the user's liked tracks.
func (s *SpotifyService) SavedTracks(ctx context.Context, limit, offset int) (*models.TrackPage, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/tracks?limit=%d&offset=%d", limit, offset)

	var response page[SpotifySavedTrack]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, item := range response.Items {
		tracks = append(tracks, convertTrack(item.Track))
	}

	return &models.TrackPage{
		Items:  tracks,
		Total:  response.Total,
		Limit:  response.Limit,
		Offset: response.Offset,
		Next:   deref(response.Next),
	}, nil
}

// TopArtists retrieves the user's top artists for a time range
// (short_term, medium_term or long_term).
func (s *SpotifyService) TopArtists(ctx context.Context, timeRange string, limit int) ([]models.Artist, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if timeRange == "" {
		timeRange = "medium_term"
	}

	endpoint := fmt.Sprintf("/me/top/artists?time_range=%s&limit=%d", timeRange, limit)

	var response page[SpotifyArtist]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(response.Items))
	for _, a := range response.Items {
		artists = append(artists, models.Artist{ID: a.ID, Name: a.Name, URI: a.URI})
	}
	return artists, nil
}

// TopTracks retrieves the user's top tracks for a time range.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange string, limit int) ([]models.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if timeRange == "" {
		timeRange = "medium_term"
	}

	endpoint := fmt.Sprintf("/me/top/tracks?time_range=%s&limit=%d", timeRange, limit)

	var response page[SpotifyTrack]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Items))
	for _, t := range response.Items {
		tracks = append(tracks, convertTrack(t))
	}
	return tracks, nil
}

func convertArtists(in []SpotifyArtist) []models.Artist {
	out := make([]models.Artist, 0, len(in))
	for _, a := range in {
		out = append(out, models.Artist{ID: a.ID, Name: a.Name, URI: a.URI})
	}
	return out
}

func convertTrack(t SpotifyTrack) models.Track {
	return models.Track{
		ID:         t.ID,
		Name:       t.Name,
		DurationMS: t.DurationMS,
		Explicit:   t.Explicit,
		URI:        t.URI,
		Artists:    convertArtists(t.Artists),
		Album: models.Album{
			ID:          t.Album.ID,
			Name:        t.Album.Name,
			ReleaseDate: t.Album.ReleaseDate,
			Markets:     t.Album.AvailableMarkets,
		},
	}
}

func convertPlaylist(sp SpotifyPlaylist) models.Playlist {
	return models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		OwnerID:     sp.Owner.ID,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
		URI:         sp.URI,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
