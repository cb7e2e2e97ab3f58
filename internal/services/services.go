// package services contains the HTTP clients for the two music catalogs:
// Spotify as the source of truth and YouTube Music (via the ytmusicapi proxy
// server) as the target.
//
// The rest of the program depends on the SourceClient and TargetClient
// interfaces, never on the concrete clients, so tests substitute fakes
// without any network.
package services

import (
	"context"
	"net/url"
	"strings"

	"github.com/plsync/plsync/internal/models"
)

// SourceClient reads playlists and the liked-songs library from the source
// catalog. All reads; the source is never mutated.
type SourceClient interface {
	// Playlist fetches a playlist and its full track list by id or share URL.
	Playlist(ctx context.Context, idOrURL string) (*models.PlaylistSnapshot, error)

	// LikedTracks fetches the user's saved tracks, newest first.
	LikedTracks(ctx context.Context) ([]models.Track, error)

	// UserPlaylists lists playlists owned by the authenticated user.
	UserPlaylists(ctx context.Context) ([]models.Playlist, error)

	// SavedPlaylists lists playlists the user follows but does not own.
	SavedPlaylists(ctx context.Context) ([]models.Playlist, error)

	// Track fetches a single track by id, for spot checks.
	Track(ctx context.Context, trackID string) (*models.Track, error)
}

// TargetClient mutates and queries the target catalog.
type TargetClient interface {
	// Search queries the target catalog for song candidates.
	Search(ctx context.Context, query string) ([]models.TargetTrack, error)

	// CreatePlaylist creates an empty playlist and returns its id.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)

	// AddTracks appends tracks to a playlist in the given order.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// RemoveTracks removes the given tracks from a playlist.
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// PlaylistTracks fetches a playlist's current contents as target ids.
	PlaylistTracks(ctx context.Context, playlistID string) (*models.PlaylistSnapshot, error)

	// LikeTracks marks tracks as liked in the target library.
	LikeTracks(ctx context.Context, trackIDs []string) error

	// LibraryPlaylists lists the user's playlists on the target.
	LibraryPlaylists(ctx context.Context) ([]models.Playlist, error)

	// DeletePlaylist removes a playlist from the target library.
	DeletePlaylist(ctx context.Context, playlistID string) error
}

// ParsePlaylistID extracts a bare playlist id from a share URL like
// https://open.spotify.com/playlist/<id>?si=... or a spotify:playlist:<id>
// URI. Anything that is not recognizably either is returned as-is.
func ParsePlaylistID(idOrURL string) string {
	s := strings.TrimSpace(idOrURL)

	if strings.HasPrefix(s, "spotify:playlist:") {
		return strings.TrimPrefix(s, "spotify:playlist:")
	}

	if strings.Contains(s, "open.spotify.com") {
		u, err := url.Parse(s)
		if err != nil {
			return s
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) >= 2 && parts[len(parts)-2] == "playlist" {
			return parts[len(parts)-1]
		}
	}

	return s
}
