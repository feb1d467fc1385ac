package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"github.com/Odrinateur/sputifixV2/internal/models"
	"github.com/Odrinateur/sputifixV2/internal/shared"
	tu "github.com/Odrinateur/sputifixV2/internal/testing"
)

func newTestService(t *testing.T, handler http.Handler) (*SpotifyService, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(map[string]string{
		"client_id":     "test_client_id",
		"client_secret": "test_client_secret",
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	srv.baseURL = server.URL
	srv.token = &oauth2.Token{AccessToken: "test_access_token"}
	return srv, server
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
				"redirect_uri":  "http://localhost:9999/callback",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv == nil {
				t.Fatal("expected service to be created")
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			credentials := map[string]string{
				"client_secret": "test_client_secret",
			}

			_, err := NewSpotifyService(credentials)
			if err == nil {
				t.Error("expected error for missing client_id")
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			credentials := map[string]string{
				"client_id": "test_client_id",
			}

			_, err := NewSpotifyService(credentials)
			if err == nil {
				t.Error("expected error for missing client_secret")
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			credentials := map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			}

			srv, err := NewSpotifyService(credentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://localhost:8080/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")
		if authURL == "" {
			t.Error("expected auth URL to be generated")
		}

		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		t.Run("WithAccessToken", func(t *testing.T) {
			err := srv.Authenticate(context.Background(), map[string]string{
				"access_token": "test_access_token",
			})
			if err != nil {
				t.Errorf("expected no error with access token, got %v", err)
			}

			if srv.token == nil {
				t.Fatal("expected token to be set")
			}

			if srv.token.AccessToken != "test_access_token" {
				t.Errorf("expected access token 'test_access_token', got %s", srv.token.AccessToken)
			}
		})

		t.Run("Missing Credentials", func(t *testing.T) {
			if err := srv.Authenticate(context.Background(), map[string]string{}); err == nil {
				t.Error("expected error for missing credentials")
			}
		})
	})

	t.Run("Unauthenticated Request", func(t *testing.T) {
		srv, err := NewSpotifyService(map[string]string{
			"client_id":     "test_client_id",
			"client_secret": "test_client_secret",
		})
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if _, err := srv.UserProfile(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Transport Failure", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.httpClient = &http.Client{
			Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused")),
		}

		if _, err := srv.UserProfile(context.Background()); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestSpotifyErrorMapping(t *testing.T) {
	tc := []struct {
		name   string
		status int
		want   error
	}{
		{name: "expired token", status: http.StatusUnauthorized, want: shared.ErrTokenExpired},
		{name: "rate limited", status: http.StatusTooManyRequests, want: shared.ErrRateLimited},
		{name: "server error", status: http.StatusInternalServerError, want: shared.ErrAPIRequest},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			_, err := srv.UserProfile(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFetchArtistReleases(t *testing.T) {
	srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artists/artist1/albums" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("include_groups") != "single" {
			t.Errorf("expected include_groups=single, got %s", q.Get("include_groups"))
		}
		if q.Get("limit") != "50" || q.Get("offset") != "100" {
			t.Errorf("unexpected pagination: limit=%s offset=%s", q.Get("limit"), q.Get("offset"))
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test_access_token" {
			t.Errorf("unexpected authorization header %s", auth)
		}

		next := "next-page"
		json.NewEncoder(w).Encode(page[SpotifyAlbum]{
			Items: []SpotifyAlbum{
				{ID: "rel1", Name: "First Single", AlbumGroup: "single", ReleaseDate: "2024-03-01", TotalTracks: 1},
			},
			Total:  120,
			Limit:  50,
			Offset: 100,
			Next:   &next,
		})
	}))

	releases, err := srv.FetchArtistReleases(context.Background(), "artist1", models.GroupSingle, 50, 100)
	if err != nil {
		t.Fatalf("failed to fetch releases: %v", err)
	}

	if len(releases.Items) != 1 {
		t.Fatalf("expected 1 release, got %d", len(releases.Items))
	}
	if releases.Items[0].Group != models.GroupSingle {
		t.Errorf("expected group single, got %s", releases.Items[0].Group)
	}
	if releases.Items[0].ReleaseDate != "2024-03-01" {
		t.Errorf("expected release date 2024-03-01, got %s", releases.Items[0].ReleaseDate)
	}
	if releases.Next == "" {
		t.Error("expected next marker to survive conversion")
	}
}

func TestFetchAlbumTracks(t *testing.T) {
	srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/albums/album1/tracks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(page[SpotifySimplifiedTrack]{
			Items: []SpotifySimplifiedTrack{
				{
					ID:               "t1",
					Name:             "Opener",
					DurationMS:       201000,
					Explicit:         true,
					URI:              "spotify:track:t1",
					Artists:          []SpotifyArtist{{ID: "a1", Name: "Artist"}},
					AvailableMarkets: []string{"US", "FR"},
				},
			},
			Total: 1,
		})
	}))

	tracks, err := srv.FetchAlbumTracks(context.Background(), "album1", 50, 0)
	if err != nil {
		t.Fatalf("failed to fetch album tracks: %v", err)
	}

	if len(tracks.Items) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks.Items))
	}

	track := tracks.Items[0]
	if track.Album.ID != "album1" {
		t.Errorf("expected track tagged with album id, got %s", track.Album.ID)
	}
	if len(track.Album.Markets) != 2 {
		t.Errorf("expected 2 markets, got %d", len(track.Album.Markets))
	}
	if !track.Explicit {
		t.Error("expected explicit flag to survive conversion")
	}
}

func TestAddTracksToPlaylist(t *testing.T) {
	t.Run("posts uris", func(t *testing.T) {
		var received []string
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/playlists/p1/tracks" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body struct {
				URIs []string `json:"uris"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			received = body.URIs
			w.WriteHeader(http.StatusCreated)
		}))

		uris := []string{"spotify:track:1", "spotify:track:2"}
		if err := srv.AddTracksToPlaylist(context.Background(), "p1", uris); err != nil {
			t.Fatalf("failed to add tracks: %v", err)
		}

		if len(received) != 2 {
			t.Errorf("expected 2 uris posted, got %d", len(received))
		}
	})

	t.Run("no request for empty batch", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for empty uri slice")
		}))

		if err := srv.AddTracksToPlaylist(context.Background(), "p1", nil); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})
}

func TestCreatePlaylist(t *testing.T) {
	srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users/user1/playlists" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			Public      bool   `json:"public"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		if body.Name != "Mixed Artists" || body.Public {
			t.Errorf("unexpected body: %+v", body)
		}

		json.NewEncoder(w).Encode(SpotifyPlaylist{
			ID:          "created1",
			Name:        body.Name,
			Description: body.Description,
			Owner:       Owner{ID: "user1"},
		})
	}))

	created, err := srv.CreatePlaylist(context.Background(), "user1", "Mixed Artists", "ids: a1,a2", false)
	if err != nil {
		t.Fatalf("failed to create playlist: %v", err)
	}

	if created.ID != "created1" {
		t.Errorf("expected id created1, got %s", created.ID)
	}
	if created.Description != "ids: a1,a2" {
		t.Errorf("expected description to round-trip, got %s", created.Description)
	}
}

func TestGetArtists(t *testing.T) {
	t.Run("joins ids and drops unknown entries", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/artists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if ids := r.URL.Query().Get("ids"); ids != "a1,a2" {
				t.Errorf("expected ids=a1,a2, got %s", ids)
			}

			// The API returns null entries for unknown ids, which decode
			// to zero-valued artists.
			json.NewEncoder(w).Encode(map[string]any{
				"artists": []any{
					map[string]string{"id": "a1", "name": "Alpha"},
					nil,
				},
			})
		}))

		artists, err := srv.GetArtists(context.Background(), []string{"a1", "a2"})
		if err != nil {
			t.Fatalf("failed to get artists: %v", err)
		}

		if len(artists) != 1 {
			t.Fatalf("expected 1 artist, got %d", len(artists))
		}
		if artists[0].Name != "Alpha" {
			t.Errorf("expected artist Alpha, got %s", artists[0].Name)
		}
	})

	t.Run("rejects oversized requests", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))

		ids := make([]string, 51)
		for i := range ids {
			ids[i] = "id"
		}

		if _, err := srv.GetArtists(context.Background(), ids); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty input short-circuits", func(t *testing.T) {
		srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		}))

		artists, err := srv.GetArtists(context.Background(), nil)
		if err != nil || artists != nil {
			t.Errorf("expected nil, nil, got %v, %v", artists, err)
		}
	})
}

func TestGetPlaylistsPagination(t *testing.T) {
	calls := 0
	srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		offset := r.URL.Query().Get("offset")

		resp := page[SpotifyPlaylist]{Total: 3, Limit: 50}
		if offset == "0" {
			next := "more"
			resp.Items = []SpotifyPlaylist{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}
			resp.Next = &next
		} else {
			resp.Items = []SpotifyPlaylist{{ID: "p3", Name: "Three"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))

	playlists, err := srv.GetPlaylists(context.Background())
	if err != nil {
		t.Fatalf("failed to fetch playlists: %v", err)
	}

	if calls != 2 {
		t.Errorf("expected 2 page fetches, got %d", calls)
	}
	if len(playlists) != 3 {
		t.Fatalf("expected 3 playlists, got %d", len(playlists))
	}
	if playlists[2].ID != "p3" {
		t.Errorf("expected last playlist p3, got %s", playlists[2].ID)
	}
}

func TestUpdatePlaylistDescription(t *testing.T) {
	var received string
	srv, _ := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/playlists/p1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		received = body.Description
	}))

	if err := srv.UpdatePlaylistDescription(context.Background(), "p1", "ids: a1,a2,a3"); err != nil {
		t.Fatalf("failed to update description: %v", err)
	}

	if received != "ids: a1,a2,a3" {
		t.Errorf("expected description to be sent verbatim, got %s", received)
	}
}
