// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/plsync/plsync/internal/models"
)

// FakeSource is a scriptable test double for [services.SourceClient].
type FakeSource struct {
	PlaylistFn       func(ctx context.Context, idOrURL string) (*models.PlaylistSnapshot, error)
	LikedTracksFn    func(ctx context.Context) ([]models.Track, error)
	UserPlaylistsFn  func(ctx context.Context) ([]models.Playlist, error)
	SavedPlaylistsFn func(ctx context.Context) ([]models.Playlist, error)
	TrackFn          func(ctx context.Context, trackID string) (*models.Track, error)
}

func (f *FakeSource) Playlist(ctx context.Context, idOrURL string) (*models.PlaylistSnapshot, error) {
	if f.PlaylistFn == nil {
		return &models.PlaylistSnapshot{}, nil
	}
	return f.PlaylistFn(ctx, idOrURL)
}

func (f *FakeSource) LikedTracks(ctx context.Context) ([]models.Track, error) {
	if f.LikedTracksFn == nil {
		return nil, nil
	}
	return f.LikedTracksFn(ctx)
}

func (f *FakeSource) UserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.UserPlaylistsFn == nil {
		return nil, nil
	}
	return f.UserPlaylistsFn(ctx)
}

func (f *FakeSource) SavedPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.SavedPlaylistsFn == nil {
		return nil, nil
	}
	return f.SavedPlaylistsFn(ctx)
}

func (f *FakeSource) Track(ctx context.Context, trackID string) (*models.Track, error) {
	if f.TrackFn == nil {
		return nil, errors.New("no track")
	}
	return f.TrackFn(ctx, trackID)
}

// FakeTarget is a scriptable test double for [services.TargetClient]. It
// records mutations so assertions can inspect what was sent.
type FakeTarget struct {
	SearchFn           func(ctx context.Context, query string) ([]models.TargetTrack, error)
	CreatePlaylistFn   func(ctx context.Context, name, description string, public bool) (string, error)
	PlaylistTracksFn   func(ctx context.Context, playlistID string) (*models.PlaylistSnapshot, error)
	LibraryPlaylistsFn func(ctx context.Context) ([]models.Playlist, error)
	AddErr             error
	RemoveErr          error

	Created []string            // playlist names created
	Added   map[string][]string // playlistID -> track ids added, in order
	Removed map[string][]string // playlistID -> track ids removed
	Liked   []string            // track ids liked
	Deleted []string            // playlist ids deleted
}

func (f *FakeTarget) Search(ctx context.Context, query string) ([]models.TargetTrack, error) {
	if f.SearchFn == nil {
		return nil, nil
	}
	return f.SearchFn(ctx, query)
}

func (f *FakeTarget) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	f.Created = append(f.Created, name)
	if f.CreatePlaylistFn == nil {
		return "PL" + name, nil
	}
	return f.CreatePlaylistFn(ctx, name, description, public)
}

func (f *FakeTarget) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if f.AddErr != nil {
		return f.AddErr
	}
	if f.Added == nil {
		f.Added = make(map[string][]string)
	}
	f.Added[playlistID] = append(f.Added[playlistID], trackIDs...)
	return nil
}

func (f *FakeTarget) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	if f.Removed == nil {
		f.Removed = make(map[string][]string)
	}
	f.Removed[playlistID] = append(f.Removed[playlistID], trackIDs...)
	return nil
}

func (f *FakeTarget) PlaylistTracks(ctx context.Context, playlistID string) (*models.PlaylistSnapshot, error) {
	if f.PlaylistTracksFn == nil {
		return &models.PlaylistSnapshot{}, nil
	}
	return f.PlaylistTracksFn(ctx, playlistID)
}

func (f *FakeTarget) LikeTracks(ctx context.Context, trackIDs []string) error {
	f.Liked = append(f.Liked, trackIDs...)
	return nil
}

func (f *FakeTarget) LibraryPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if f.LibraryPlaylistsFn == nil {
		return nil, nil
	}
	return f.LibraryPlaylistsFn(ctx)
}

func (f *FakeTarget) DeletePlaylist(ctx context.Context, playlistID string) error {
	f.Deleted = append(f.Deleted, playlistID)
	return nil
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

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
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
