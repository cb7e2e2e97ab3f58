// Spotify implementation of [SourceClient].
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
}

type spotifyOwner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type spotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

type spotifyTracksPage struct {
	Items []spotifyPlaylistTrack `json:"items"`
	Total int                    `json:"total"`
	Next  *string                `json:"next"`
}

type spotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       spotifyOwner      `json:"owner"`
	Public      bool              `json:"public"`
	Tracks      spotifyTracksPage `json:"tracks"`
}

type spotifySavedTrack struct {
	AddedAt string       `json:"added_at"`
	Track   spotifyTrack `json:"track"`
}

type spotifySavedTracksPage struct {
	Items []spotifySavedTrack `json:"items"`
	Total int                 `json:"total"`
	Next  *string             `json:"next"`
}

type spotifySimplePlaylist struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Owner       spotifyOwner `json:"owner"`
	Public      bool         `json:"public"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type spotifyPlaylistsPage struct {
	Items []spotifySimplePlaylist `json:"items"`
	Total int                     `json:"total"`
	Next  *string                 `json:"next"`
}

// SpotifyClient implements [SourceClient] against the Spotify Web API,
// authenticated via [oauth2].
type SpotifyClient struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	userID     string
}

// NewSpotifyClient creates a client from the configured OAuth2 credentials.
func NewSpotifyClient(cfg shared.SpotifyConfig) (*SpotifyClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret required", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"playlist-read-private",
			"playlist-read-collaborative",
			"user-library-read",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyClient{
		config:     config,
		httpClient: http.DefaultClient,
	}, nil
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyClient) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authenticate establishes an authenticated session from either a previously
// obtained access token or a fresh authorization code.
func (s *SpotifyClient) Authenticate(ctx context.Context, accessToken, authCode string) error {
	switch {
	case accessToken != "":
		s.token = &oauth2.Token{AccessToken: accessToken}
	case authCode != "":
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
	default:
		return fmt.Errorf("%w: access token or auth code required", shared.ErrNotAuthenticated)
	}

	s.httpClient = s.config.Client(ctx, s.token)
	return nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the JSON response into result. Rate limiting and server errors map to the
// shared transient sentinels so callers can tell them apart from bad input.
func (s *SpotifyClient) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spotifyBaseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: spotify, retry-after %s", shared.ErrRateLimited, resp.Header.Get("Retry-After"))
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: spotify status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// Playlist fetches a playlist and all its tracks, following pagination.
func (s *SpotifyClient) Playlist(ctx context.Context, idOrURL string) (*models.PlaylistSnapshot, error) {
	id := ParsePlaylistID(idOrURL)

	var sp spotifyPlaylist
	if err := s.doRequest(ctx, fmt.Sprintf("/playlists/%s", id), &sp); err != nil {
		return nil, err
	}

	snapshot := &models.PlaylistSnapshot{
		Playlist: models.Playlist{
			ID:          sp.ID,
			Name:        sp.Name,
			Description: sp.Description,
			Owner:       sp.Owner.ID,
			TrackCount:  sp.Tracks.Total,
			Public:      sp.Public,
		},
	}

	for _, item := range sp.Tracks.Items {
		if t, ok := convertTrack(item.Track); ok {
			snapshot.Tracks = append(snapshot.Tracks, t)
		}
	}

	// The embedded tracks object holds the first page only.
	offset := len(sp.Tracks.Items)
	for offset < sp.Tracks.Total {
		var page spotifyTracksPage
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=100&offset=%d", id, offset)
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if t, ok := convertTrack(item.Track); ok {
				snapshot.Tracks = append(snapshot.Tracks, t)
			}
		}
		offset += len(page.Items)

		if page.Next == nil {
			break
		}
	}

	return snapshot, nil
}

// LikedTracks fetches the full saved-tracks library, newest first.
func (s *SpotifyClient) LikedTracks(ctx context.Context) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0

	for {
		var page spotifySavedTracksPage
		endpoint := fmt.Sprintf("/me/tracks?limit=50&offset=%d", offset)
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			if t, ok := convertTrack(item.Track); ok {
				tracks = append(tracks, t)
			}
		}
		offset += len(page.Items)

		if page.Next == nil {
			break
		}
	}

	return tracks, nil
}

// UserPlaylists lists playlists owned by the authenticated user.
func (s *SpotifyClient) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return s.playlists(ctx, true)
}

// SavedPlaylists lists playlists the user follows but does not own.
func (s *SpotifyClient) SavedPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return s.playlists(ctx, false)
}

func (s *SpotifyClient) playlists(ctx context.Context, owned bool) ([]models.Playlist, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var playlists []models.Playlist
	offset := 0

	for {
		var page spotifyPlaylistsPage
		endpoint := fmt.Sprintf("/me/playlists?limit=50&offset=%d", offset)
		if err := s.doRequest(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		if len(page.Items) == 0 {
			break
		}

		for _, sp := range page.Items {
			if (sp.Owner.ID == userID) != owned {
				continue
			}
			playlists = append(playlists, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				Owner:       sp.Owner.ID,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}
		offset += len(page.Items)

		if page.Next == nil {
			break
		}
	}

	return playlists, nil
}

// Track fetches a single track by id.
func (s *SpotifyClient) Track(ctx context.Context, trackID string) (*models.Track, error) {
	var st spotifyTrack
	if err := s.doRequest(ctx, fmt.Sprintf("/tracks/%s", url.PathEscape(trackID)), &st); err != nil {
		return nil, err
	}

	t, ok := convertTrack(st)
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrTrackNotFound, trackID)
	}
	return &t, nil
}

func (s *SpotifyClient) currentUserID(ctx context.Context) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}

	var me struct {
		ID string `json:"id"`
	}
	if err := s.doRequest(ctx, "/me", &me); err != nil {
		return "", err
	}

	s.userID = me.ID
	return me.ID, nil
}

// convertTrack maps an API track to the internal model. Local files and
// ghost entries (removed tracks) have no usable id and are dropped.
func convertTrack(st spotifyTrack) (models.Track, bool) {
	if st.ID == "" || st.IsLocal {
		return models.Track{}, false
	}

	t := models.Track{
		SourceID: st.ID,
		Title:    st.Name,
		Album:    st.Album.Name,
		Duration: st.DurationMS / 1000,
	}

	names := make([]string, 0, len(st.Artists))
	for _, a := range st.Artists {
		names = append(names, a.Name)
	}
	t.Artist = strings.Join(names, ", ")

	return t, true
}
