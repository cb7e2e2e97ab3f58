// YouTube Music implementation of [TargetClient].
//
// Talks to the ytmusicapi proxy server, which wraps the ytmusicapi Python
// library behind a small JSON API.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
)

const defaultYTBaseURL = "http://localhost:8080"

type ytArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ytAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ytTrack struct {
	VideoID     string     `json:"videoId"`
	SetVideoID  string     `json:"setVideoId,omitempty"`
	Title       string     `json:"title"`
	Artists     []ytArtist `json:"artists"`
	Album       *ytAlbum   `json:"album"`
	DurationSec int        `json:"duration_seconds"`
}

// YTMusicClient implements [TargetClient] against the proxy.
type YTMusicClient struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYTMusicClient creates a client for the proxy at baseURL, authenticating
// with the ytmusicapi credentials file at authFile.
func NewYTMusicClient(cfg shared.YouTubeConfig) *YTMusicClient {
	baseURL := cfg.ProxyURL
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YTMusicClient{
		baseURL:    baseURL,
		authFile:   cfg.AuthFile,
		httpClient: http.DefaultClient,
	}
}

// doRequest performs a JSON request against the proxy. A non-nil body is
// marshalled as the request payload; a non-nil result receives the decoded
// response. Rate limiting and proxy/server errors map to the shared transient
// sentinels.
func (y *YTMusicClient) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewBuffer(data)
	}

	var req *http.Request
	var err error
	if payload != nil {
		req, err = http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, payload)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, nil)
	}
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: youtube music", shared.ErrRateLimited)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, endpoint)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: youtube music status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// Search queries the catalog for songs matching query.
//
// Calls GET /api/search?q={query}&filter=songs on the proxy.
func (y *YTMusicClient) Search(ctx context.Context, query string) ([]models.TargetTrack, error) {
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs", url.QueryEscape(query))

	var results []ytTrack
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}

	tracks := make([]models.TargetTrack, 0, len(results))
	for _, r := range results {
		if r.VideoID == "" {
			continue
		}
		tracks = append(tracks, convertYTTrack(r))
	}

	return tracks, nil
}

// CreatePlaylist creates an empty playlist and returns its id.
//
// Calls POST /api/playlists on the proxy.
func (y *YTMusicClient) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	privacy := "PRIVATE"
	if public {
		privacy = "PUBLIC"
	}

	body := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{name, description, privacy}

	var resp struct {
		PlaylistID string `json:"playlist_id"`
	}
	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", body, &resp); err != nil {
		return "", err
	}
	if resp.PlaylistID == "" {
		return "", fmt.Errorf("%w: create playlist returned no id", shared.ErrAPIRequest)
	}

	return resp.PlaylistID, nil
}

// AddTracks appends tracks to a playlist, preserving order.
//
// Calls POST /api/playlists/{id}/items on the proxy.
func (y *YTMusicClient) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	body := struct {
		VideoIDs []string `json:"video_ids"`
	}{trackIDs}

	endpoint := fmt.Sprintf("/api/playlists/%s/items", url.PathEscape(playlistID))
	return y.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// RemoveTracks removes the given tracks from a playlist.
//
// The proxy needs each item's setVideoId, so current contents are fetched
// first and ids without a matching playlist entry are silently skipped.
func (y *YTMusicClient) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	items, err := y.playlistItems(ctx, playlistID)
	if err != nil {
		return err
	}

	setIDs := make(map[string]string, len(items))
	for _, item := range items {
		if item.SetVideoID != "" {
			setIDs[item.VideoID] = item.SetVideoID
		}
	}

	type removal struct {
		VideoID    string `json:"videoId"`
		SetVideoID string `json:"setVideoId"`
	}

	var removals []removal
	for _, id := range trackIDs {
		if setID, ok := setIDs[id]; ok {
			removals = append(removals, removal{VideoID: id, SetVideoID: setID})
		}
	}
	if len(removals) == 0 {
		return nil
	}

	body := struct {
		Items []removal `json:"items"`
	}{removals}

	endpoint := fmt.Sprintf("/api/playlists/%s/items/remove", url.PathEscape(playlistID))
	return y.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// PlaylistTracks fetches a playlist's metadata and current contents.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YTMusicClient) PlaylistTracks(ctx context.Context, playlistID string) (*models.PlaylistSnapshot, error) {
	var resp struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		Privacy     string    `json:"privacy"`
		TrackCount  int       `json:"trackCount"`
		Tracks      []ytTrack `json:"tracks"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s", url.PathEscape(playlistID))
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	snapshot := &models.PlaylistSnapshot{
		Playlist: models.Playlist{
			ID:          resp.ID,
			Name:        resp.Title,
			Description: resp.Description,
			TrackCount:  resp.TrackCount,
			Public:      resp.Privacy == "PUBLIC",
		},
	}

	for _, t := range resp.Tracks {
		if t.VideoID != "" {
			snapshot.TargetIDs = append(snapshot.TargetIDs, t.VideoID)
		}
	}

	return snapshot, nil
}

// LikeTracks rates each track as liked in the target library.
//
// Calls POST /api/tracks/rate on the proxy, one call per track; the proxy
// exposes no bulk rating endpoint.
func (y *YTMusicClient) LikeTracks(ctx context.Context, trackIDs []string) error {
	for _, id := range trackIDs {
		body := struct {
			VideoID string `json:"videoId"`
			Rating  string `json:"rating"`
		}{id, "LIKE"}

		if err := y.doRequest(ctx, http.MethodPost, "/api/tracks/rate", body, nil); err != nil {
			return fmt.Errorf("rate track %s: %w", id, err)
		}
	}
	return nil
}

// LibraryPlaylists lists the user's playlists.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YTMusicClient) LibraryPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var resp []struct {
		PlaylistID  string `json:"playlistId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Privacy     string `json:"privacy"`
		Count       int    `json:"count"`
	}

	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", nil, &resp); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(resp))
	for i, p := range resp {
		playlists[i] = models.Playlist{
			ID:          p.PlaylistID,
			Name:        p.Title,
			Description: p.Description,
			TrackCount:  p.Count,
			Public:      p.Privacy == "PUBLIC",
		}
	}

	return playlists, nil
}

// DeletePlaylist removes a playlist from the library.
//
// Calls DELETE /api/playlists/{id} on the proxy.
func (y *YTMusicClient) DeletePlaylist(ctx context.Context, playlistID string) error {
	endpoint := fmt.Sprintf("/api/playlists/%s", url.PathEscape(playlistID))
	return y.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (y *YTMusicClient) playlistItems(ctx context.Context, playlistID string) ([]ytTrack, error) {
	var resp struct {
		Tracks []ytTrack `json:"tracks"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s", url.PathEscape(playlistID))
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Tracks, nil
}

func convertYTTrack(t ytTrack) models.TargetTrack {
	track := models.TargetTrack{
		ID:       t.VideoID,
		Title:    t.Title,
		Duration: t.DurationSec,
	}

	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if t.Album != nil {
		track.Album = t.Album.Name
	}

	return track
}
