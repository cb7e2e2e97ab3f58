package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/plsync/plsync/internal/shared"
	tu "github.com/plsync/plsync/internal/testing"
	"golang.org/x/oauth2"
)

// routeTripper serves canned JSON per request path, ignoring the host.
type routeTripper struct {
	routes map[string]string // path -> body
	status int
}

func (rt *routeTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	status := rt.status
	if status == 0 {
		status = http.StatusOK
	}

	body, ok := rt.routes[req.URL.Path]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("{}")),
			Header:     make(http.Header),
		}, nil
	}

	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}, nil
}

func newTestSpotifyClient(t *testing.T, rt http.RoundTripper) *SpotifyClient {
	t.Helper()

	client, err := NewSpotifyClient(shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	client.token = &oauth2.Token{AccessToken: "token"}
	client.httpClient = &http.Client{Transport: rt}
	return client
}

func TestNewSpotifyClient(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewSpotifyClient(shared.SpotifyConfig{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("got %v, want ErrMissingCredentials", err)
		}
	})

	t.Run("unauthenticated requests fail", func(t *testing.T) {
		client, err := NewSpotifyClient(shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"})
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}

		_, err = client.LikedTracks(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("got %v, want ErrNotAuthenticated", err)
		}
	})
}

func TestSpotifyPlaylist(t *testing.T) {
	playlistJSON := `{
		"id": "sp1",
		"name": "Road Trip",
		"description": "songs",
		"owner": {"id": "user1"},
		"public": true,
		"tracks": {
			"total": 2,
			"items": [
				{"track": {"id": "t1", "name": "Song A", "duration_ms": 240000,
					"artists": [{"name": "Artist X"}], "album": {"name": "Album"}}},
				{"track": {"id": "", "name": "ghost", "duration_ms": 1000, "artists": []}}
			],
			"next": null
		}
	}`

	client := newTestSpotifyClient(t, &routeTripper{routes: map[string]string{
		"/v1/playlists/sp1": playlistJSON,
	}})

	snapshot, err := client.Playlist(context.Background(), "https://open.spotify.com/playlist/sp1?si=x")
	if err != nil {
		t.Fatalf("playlist failed: %v", err)
	}

	if snapshot.Playlist.Name != "Road Trip" || snapshot.Playlist.Owner != "user1" {
		t.Errorf("playlist = %+v", snapshot.Playlist)
	}
	if len(snapshot.Tracks) != 1 {
		t.Fatalf("got %d tracks, want 1 (ghost entries dropped)", len(snapshot.Tracks))
	}

	got := snapshot.Tracks[0]
	if got.SourceID != "t1" || got.Title != "Song A" || got.Artist != "Artist X" || got.Duration != 240 {
		t.Errorf("track = %+v", got)
	}
}

func TestSpotifyLikedTracksPagination(t *testing.T) {
	page := func(offset int, next bool) string {
		nextVal := "null"
		if next {
			nextVal = `"https://api.spotify.com/v1/me/tracks?offset=50"`
		}
		return fmt.Sprintf(`{
			"items": [{"track": {"id": "t%d", "name": "Song %d", "duration_ms": 200000,
				"artists": [{"name": "Artist X"}], "album": {"name": "A"}}}],
			"total": 2,
			"next": %s
		}`, offset, offset, nextVal)
	}

	// The transport routes by path only, so script successive responses.
	calls := 0
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		calls++
		body := page(calls, calls == 1)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})

	client := newTestSpotifyClient(t, rt)

	tracks, err := client.LikedTracks(context.Background())
	if err != nil {
		t.Fatalf("liked tracks failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("made %d requests, want 2", calls)
	}
	if len(tracks) != 2 {
		t.Errorf("got %d tracks, want 2", len(tracks))
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestSpotifyPlaylistsOwnership(t *testing.T) {
	routes := map[string]string{
		"/v1/me": `{"id": "user1"}`,
		"/v1/me/playlists": `{
			"items": [
				{"id": "sp1", "name": "Mine", "owner": {"id": "user1"}, "tracks": {"total": 5}},
				{"id": "sp2", "name": "Followed", "owner": {"id": "someone"}, "tracks": {"total": 9}}
			],
			"total": 2,
			"next": null
		}`,
	}

	t.Run("user playlists are owned only", func(t *testing.T) {
		client := newTestSpotifyClient(t, &routeTripper{routes: routes})

		playlists, err := client.UserPlaylists(context.Background())
		if err != nil {
			t.Fatalf("user playlists failed: %v", err)
		}
		if len(playlists) != 1 || playlists[0].Name != "Mine" {
			t.Errorf("playlists = %+v, want [Mine]", playlists)
		}
	})

	t.Run("saved playlists are followed only", func(t *testing.T) {
		client := newTestSpotifyClient(t, &routeTripper{routes: routes})

		playlists, err := client.SavedPlaylists(context.Background())
		if err != nil {
			t.Fatalf("saved playlists failed: %v", err)
		}
		if len(playlists) != 1 || playlists[0].Name != "Followed" {
			t.Errorf("playlists = %+v, want [Followed]", playlists)
		}
	})
}

func TestSpotifyErrorMapping(t *testing.T) {
	tc := []struct {
		name   string
		status int
		want   error
	}{
		{"429 is rate limited", http.StatusTooManyRequests, shared.ErrRateLimited},
		{"401 is token expired", http.StatusUnauthorized, shared.ErrTokenExpired},
		{"404 is not found", http.StatusNotFound, shared.ErrPlaylistNotFound},
		{"500 is unavailable", http.StatusInternalServerError, shared.ErrServiceUnavailable},
		{"400 is api error", http.StatusBadRequest, shared.ErrAPIRequest},
	}

	for _, c := range tc {
		t.Run(c.name, func(t *testing.T) {
			client := newTestSpotifyClient(t, &routeTripper{
				routes: map[string]string{"/v1/playlists/sp1": "{}"},
				status: c.status,
			})

			_, err := client.Playlist(context.Background(), "sp1")
			if !errors.Is(err, c.want) {
				t.Errorf("got %v, want %v", err, c.want)
			}
		})
	}

	t.Run("transport failure is api error", func(t *testing.T) {
		rt := tu.NewMockRoundTripper(nil, errors.New("connection refused"))
		client := newTestSpotifyClient(t, rt)

		_, err := client.Playlist(context.Background(), "sp1")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("got %v, want ErrAPIRequest", err)
		}
	})
}

func TestConvertTrack(t *testing.T) {
	t.Run("joins multiple artists", func(t *testing.T) {
		got, ok := convertTrack(spotifyTrack{
			ID:         "t1",
			Name:       "Song A",
			DurationMS: 240500,
			Artists:    []spotifyArtist{{Name: "Artist X"}, {Name: "Artist Y"}},
		})
		if !ok {
			t.Fatal("expected a usable track")
		}
		if got.Artist != "Artist X, Artist Y" {
			t.Errorf("artist = %q", got.Artist)
		}
		if got.Duration != 240 {
			t.Errorf("duration = %d, want 240", got.Duration)
		}
	})

	t.Run("drops local files", func(t *testing.T) {
		if _, ok := convertTrack(spotifyTrack{ID: "t1", IsLocal: true}); ok {
			t.Error("local files should be dropped")
		}
	})

	t.Run("drops idless entries", func(t *testing.T) {
		if _, ok := convertTrack(spotifyTrack{Name: "ghost"}); ok {
			t.Error("idless entries should be dropped")
		}
	})
}
