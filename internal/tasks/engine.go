// package tasks orchestrates playlist migration and sync between the source
// and target catalogs.
//
// The core abstraction is Engine, which combines the source and target
// clients, the track matcher and the operation journal into the commands the
// CLI exposes. Long-running operations emit progress updates via channels for
// non-blocking status reporting.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plsync/plsync/internal/batch"
	"github.com/plsync/plsync/internal/journal"
	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/reconcile"
	"github.com/plsync/plsync/internal/services"
	"github.com/plsync/plsync/internal/shared"
)

// Matcher resolves a source track to its best target catalog counterpart.
type Matcher interface {
	FindBestMatch(ctx context.Context, track models.Track, useCached bool) (models.MatchResult, error)
}

// Journal receives one entry per mutating operation.
type Journal interface {
	Append(entry models.JournalEntry) error
}

// Options holds engine-wide policy defaults. Zero values are backstopped in
// NewEngine.
type Options struct {
	Tolerance       float64 // unchanged/resolved ratio above which an update is skipped
	AppendOnly      bool    // never remove tracks from target playlists
	UseCached       bool    // consult the match cache before searching
	AddChunkSize    int     // tracks per add request
	MaxPlaylistSize int     // playlists above this size are skipped in bulk transfers
}

// Engine orchestrates transfers. All mutating operations are journaled.
type Engine struct {
	source    services.SourceClient
	target    services.TargetClient
	matcher   Matcher
	journal   Journal
	scheduler *batch.Scheduler
	opts      Options
	logger    *log.Logger
}

// NewEngine creates an Engine. journal may be nil, in which case operations
// are not recorded.
func NewEngine(source services.SourceClient, target services.TargetClient, matcher Matcher, jnl Journal, scheduler *batch.Scheduler, opts Options, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = 0.9
	}
	if opts.AddChunkSize <= 0 {
		opts.AddChunkSize = 50
	}
	if opts.MaxPlaylistSize <= 0 {
		opts.MaxPlaylistSize = 5000
	}
	if scheduler == nil {
		scheduler = batch.NewScheduler(5, 2*time.Second, logger)
	}

	return &Engine{
		source:    source,
		target:    target,
		matcher:   matcher,
		journal:   jnl,
		scheduler: scheduler,
		opts:      opts,
		logger:    logger,
	}
}

// CreateOptions control how a transferred playlist is created on the target.
type CreateOptions struct {
	Name       string // override for the target playlist name
	Public     bool
	Like       bool // additionally like every matched track
	DateSuffix bool // append the current date to the playlist name
}

// TransferResult summarizes one playlist transfer or update.
type TransferResult struct {
	Playlist   models.Playlist `json:"playlist"`
	TargetID   string          `json:"target_id"`
	Total      int             `json:"total"`
	Matched    int             `json:"matched"`
	Failed     int             `json:"failed"`
	Added      int             `json:"added"`
	Removed    int             `json:"removed"`
	Skipped    bool            `json:"skipped"`
	SkipReason string          `json:"skip_reason,omitempty"`
	NotFound   []models.Track  `json:"not_found,omitempty"`
}

// Create transfers one source playlist to a brand-new target playlist.
func (e *Engine) Create(ctx context.Context, prog chan<- ProgressUpdate, idOrURL string, co CreateOptions) (*TransferResult, error) {
	e.sendProgress(prog, fetchSourceUpdate(1, 1, "playlist"))

	snapshot, err := e.source.Playlist(ctx, idOrURL)
	if err != nil {
		return nil, err
	}

	name := co.Name
	if name == "" {
		name = snapshot.Playlist.Name
	}
	if co.DateSuffix {
		name = fmt.Sprintf("%s %s", name, time.Now().Format("2006-01-02"))
	}

	resolved, notFound, err := e.resolve(ctx, prog, snapshot.Tracks)
	if err != nil {
		return nil, err
	}

	e.sendProgress(prog, createPlaylistUpdate(name))
	targetID, err := e.target.CreatePlaylist(ctx, name, snapshot.Playlist.Description, co.Public)
	if err != nil {
		e.record(models.JournalEntry{
			Kind: models.OpCreate, Playlist: name,
			Outcome: models.OutcomeFailed, Detail: err.Error(),
		})
		return nil, err
	}

	e.record(models.JournalEntry{
		Kind: models.OpCreate, Playlist: name, PlaylistID: targetID,
		Outcome: models.OutcomeOK, TrackCount: len(resolved),
	})

	added, err := e.addTracks(ctx, prog, name, targetID, resolved)
	if err != nil {
		return nil, err
	}

	if co.Like && len(resolved) > 0 {
		e.sendProgress(prog, likeTracksUpdate(len(resolved), len(resolved)))
		if err := e.target.LikeTracks(ctx, resolved); err != nil {
			e.logger.Warn("failed to like transferred tracks", "playlist", name, "err", err)
		}
	}

	e.recordFailures(name, targetID, notFound)

	return &TransferResult{
		Playlist: snapshot.Playlist,
		TargetID: targetID,
		Total:    len(snapshot.Tracks),
		Matched:  len(resolved),
		Failed:   len(notFound),
		Added:    added,
		NotFound: notFound,
	}, nil
}

// Liked mirrors the source liked-songs library into the target library by
// liking each matched track.
func (e *Engine) Liked(ctx context.Context, prog chan<- ProgressUpdate) (*TransferResult, error) {
	e.sendProgress(prog, fetchSourceUpdate(1, 1, "liked songs"))

	tracks, err := e.source.LikedTracks(ctx)
	if err != nil {
		return nil, err
	}

	resolved, notFound, err := e.resolve(ctx, prog, tracks)
	if err != nil {
		return nil, err
	}

	for i := 0; i < len(resolved); i += e.opts.AddChunkSize {
		end := min(i+e.opts.AddChunkSize, len(resolved))
		e.sendProgress(prog, likeTracksUpdate(end, len(resolved)))
		if err := e.target.LikeTracks(ctx, resolved[i:end]); err != nil {
			e.record(models.JournalEntry{
				Kind: models.OpAdd, Playlist: "Liked Songs",
				Outcome: models.OutcomeFailed, Detail: err.Error(), TrackCount: end - i,
			})
			return nil, err
		}
	}

	e.record(models.JournalEntry{
		Kind: models.OpAdd, Playlist: "Liked Songs",
		Outcome: models.OutcomeOK, TrackCount: len(resolved),
	})
	e.recordFailures("Liked Songs", "", notFound)

	return &TransferResult{
		Playlist: models.Playlist{Name: "Liked Songs", TrackCount: len(tracks)},
		Total:    len(tracks),
		Matched:  len(resolved),
		Failed:   len(notFound),
		Added:    len(resolved),
		NotFound: notFound,
	}, nil
}

// Update reconciles an existing target playlist against the source playlist.
// A target playlist is located by name similarity; when none matches, the
// playlist is created from scratch instead.
func (e *Engine) Update(ctx context.Context, prog chan<- ProgressUpdate, idOrURL string, co CreateOptions) (*TransferResult, error) {
	e.sendProgress(prog, fetchSourceUpdate(1, 1, "playlist"))

	snapshot, err := e.source.Playlist(ctx, idOrURL)
	if err != nil {
		return nil, err
	}

	name := co.Name
	if name == "" {
		name = snapshot.Playlist.Name
	}

	targetPlaylist, err := e.findTargetPlaylist(ctx, name)
	if err != nil {
		return nil, err
	}
	if targetPlaylist == nil {
		e.logger.Info("no matching target playlist, creating", "name", name)
		return e.Create(ctx, prog, idOrURL, co)
	}

	e.sendProgress(prog, fetchTargetUpdate(1, 1, targetPlaylist.Name))
	observed, err := e.target.PlaylistTracks(ctx, targetPlaylist.ID)
	if err != nil {
		return nil, err
	}

	resolved, notFound, err := e.resolve(ctx, prog, snapshot.Tracks)
	if err != nil {
		return nil, err
	}

	plan := reconcile.Plan(resolved, observed.TargetIDs, e.opts.AppendOnly)
	e.sendProgress(prog, reconcileUpdate(plan))

	result := &TransferResult{
		Playlist: snapshot.Playlist,
		TargetID: targetPlaylist.ID,
		Total:    len(snapshot.Tracks),
		Matched:  len(resolved),
		Failed:   len(notFound),
		NotFound: notFound,
	}

	e.recordFailures(targetPlaylist.Name, targetPlaylist.ID, notFound)

	if reconcile.UpToDate(plan, len(resolved), e.opts.Tolerance) {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("within tolerance (%d/%d unchanged)", len(plan.Unchanged), len(resolved))
		e.record(models.JournalEntry{
			Kind: models.OpUpdate, Playlist: targetPlaylist.Name, PlaylistID: targetPlaylist.ID,
			Outcome: models.OutcomeSkipped, Detail: result.SkipReason,
		})
		return result, nil
	}

	added, err := e.addTracks(ctx, prog, targetPlaylist.Name, targetPlaylist.ID, plan.ToAdd)
	if err != nil {
		return nil, err
	}
	result.Added = added

	if len(plan.ToRemove) > 0 {
		e.sendProgress(prog, removeTracksUpdate(len(plan.ToRemove)))
		if err := e.target.RemoveTracks(ctx, targetPlaylist.ID, plan.ToRemove); err != nil {
			e.record(models.JournalEntry{
				Kind: models.OpRemove, Playlist: targetPlaylist.Name, PlaylistID: targetPlaylist.ID,
				Outcome: models.OutcomeFailed, Detail: err.Error(), TrackCount: len(plan.ToRemove),
			})
			return nil, err
		}
		result.Removed = len(plan.ToRemove)
		e.record(models.JournalEntry{
			Kind: models.OpRemove, Playlist: targetPlaylist.Name, PlaylistID: targetPlaylist.ID,
			Outcome: models.OutcomeOK, TrackCount: len(plan.ToRemove),
		})
	}

	e.record(models.JournalEntry{
		Kind: models.OpUpdate, Playlist: targetPlaylist.Name, PlaylistID: targetPlaylist.ID,
		Outcome: models.OutcomeOK, TrackCount: len(resolved),
	})

	return result, nil
}

// SearchOne resolves a single track against the target catalog, bypassing
// the cache so the result reflects the live catalog.
func (e *Engine) SearchOne(ctx context.Context, track models.Track) (models.MatchResult, error) {
	return e.matcher.FindBestMatch(ctx, track, false)
}

// resolve matches every source track and returns the matched target ids in
// source order. Unmatched tracks are collected, not errors; transient search
// failures abort the whole resolution so the caller can retry.
func (e *Engine) resolve(ctx context.Context, prog chan<- ProgressUpdate, tracks []models.Track) (resolved []string, notFound []models.Track, err error) {
	for i, track := range tracks {
		e.sendProgress(prog, matchTrackUpdate(i+1, len(tracks), track))

		result, err := e.matcher.FindBestMatch(ctx, track, e.opts.UseCached)
		if err != nil {
			return nil, nil, fmt.Errorf("match %q by %q: %w", track.Title, track.Artist, err)
		}

		if result.Found {
			resolved = append(resolved, result.TargetID)
		} else {
			notFound = append(notFound, track)
		}
	}

	return resolved, notFound, nil
}

// addTracks appends ids to a target playlist in chunks, journaling each
// chunk. Returns the number of tracks added before any failure.
func (e *Engine) addTracks(ctx context.Context, prog chan<- ProgressUpdate, name, playlistID string, ids []string) (int, error) {
	added := 0

	for i := 0; i < len(ids); i += e.opts.AddChunkSize {
		end := min(i+e.opts.AddChunkSize, len(ids))
		e.sendProgress(prog, addTracksUpdate(end, len(ids)))

		if err := e.target.AddTracks(ctx, playlistID, ids[i:end]); err != nil {
			e.record(models.JournalEntry{
				Kind: models.OpAdd, Playlist: name, PlaylistID: playlistID,
				Outcome: models.OutcomeFailed, Detail: err.Error(), TrackCount: end - i,
			})
			return added, fmt.Errorf("add tracks to %s: %w", name, err)
		}

		added = end
		e.record(models.JournalEntry{
			Kind: models.OpAdd, Playlist: name, PlaylistID: playlistID,
			Outcome: models.OutcomeOK, TrackCount: end - i,
		})
	}

	return added, nil
}

// findTargetPlaylist locates the target playlist whose name best matches
// name by word overlap. Exact word-set matches win; otherwise the overlap
// ratio must exceed 0.9. Returns nil when nothing qualifies.
func (e *Engine) findTargetPlaylist(ctx context.Context, name string) (*models.Playlist, error) {
	playlists, err := e.target.LibraryPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	return bestNameMatch(playlists, name), nil
}

// bestNameMatch picks the playlist whose name overlaps name above the 0.9
// bar, or nil when nothing qualifies.
func bestNameMatch(playlists []models.Playlist, name string) *models.Playlist {
	var best *models.Playlist
	bestScore := 0.0

	for i, p := range playlists {
		score := nameOverlap(name, p.Name)
		if score > bestScore {
			best = &playlists[i]
			bestScore = score
		}
	}

	if best == nil || bestScore <= 0.9 {
		return nil
	}
	return best
}

// nameOverlap is the ratio of shared lowercase words to the larger word set.
// Identical names score 1.0 regardless of word splitting.
func nameOverlap(a, b string) float64 {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return 1.0
	}

	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}

	overlap := 0
	seen := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := setA[w]; ok {
			overlap++
		}
	}

	larger := len(setA)
	if len(seen) > larger {
		larger = len(seen)
	}

	return float64(overlap) / float64(larger)
}

func (e *Engine) record(entry models.JournalEntry) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Append(entry); err != nil {
		e.logger.Warn("failed to journal operation", "kind", entry.Kind, "err", err)
	}
}

// recordFailures journals one match-fail entry per unmatched track so
// aggregate stats count them.
func (e *Engine) recordFailures(name, playlistID string, notFound []models.Track) {
	for _, track := range notFound {
		e.record(models.JournalEntry{
			Kind: models.OpMatchFail, Playlist: name, PlaylistID: playlistID,
			Outcome: models.OutcomeFailed,
			Detail:  fmt.Sprintf("%s - %s", track.Artist, track.Title),
			TrackID: track.SourceID, TrackHash: journal.TrackHash(track),
		})
	}
}

// sendProgress sends an update without blocking when nobody is listening.
func (e *Engine) sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}
