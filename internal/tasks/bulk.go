package tasks

import (
	"context"
	"fmt"
	"regexp"

	"github.com/plsync/plsync/internal/batch"
	"github.com/plsync/plsync/internal/models"
)

// BulkResult pairs per-playlist outcomes with the transfer details of the
// playlists that completed.
type BulkResult struct {
	Outcomes []models.Outcome  `json:"-"`
	Results  []*TransferResult `json:"results"`
}

// TransferAll transfers every playlist the user owns on the source, one
// batch at a time. When includeSaved is true, followed playlists are
// transferred too. Playlists whose name already exists on the target are
// skipped instead of duplicated.
func (e *Engine) TransferAll(ctx context.Context, prog chan<- ProgressUpdate, includeSaved bool, co CreateOptions) (*BulkResult, error) {
	playlists, err := e.source.UserPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	if includeSaved {
		saved, err := e.source.SavedPlaylists(ctx)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, saved...)
	}

	library, err := e.target.LibraryPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	return e.runBulk(ctx, playlists, func(ctx context.Context, p models.Playlist) (*TransferResult, error) {
		if existing := bestNameMatch(library, p.Name); existing != nil {
			e.logger.Info("playlist already on target, skipping",
				"playlist", p.Name, "target_id", existing.ID)
			e.record(models.JournalEntry{
				Kind: models.OpCreate, Playlist: p.Name, PlaylistID: existing.ID,
				Outcome: models.OutcomeSkipped, Detail: "already exists on target",
			})
			return &TransferResult{
				Playlist: p, TargetID: existing.ID,
				Skipped: true, SkipReason: "already exists on target",
			}, nil
		}

		opts := co
		opts.Name = "" // each playlist keeps its own name
		return e.Create(ctx, prog, p.ID, opts)
	})
}

// UpdateAll reconciles every owned source playlist against its target
// counterpart. Playlists without a counterpart are created.
func (e *Engine) UpdateAll(ctx context.Context, prog chan<- ProgressUpdate, co CreateOptions) (*BulkResult, error) {
	playlists, err := e.source.UserPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	return e.runBulk(ctx, playlists, func(ctx context.Context, p models.Playlist) (*TransferResult, error) {
		opts := co
		opts.Name = ""
		return e.Update(ctx, prog, p.ID, opts)
	})
}

// runBulk schedules one work unit per playlist. Oversized playlists are
// skipped up front rather than burning hours of search quota.
func (e *Engine) runBulk(ctx context.Context, playlists []models.Playlist, run func(ctx context.Context, p models.Playlist) (*TransferResult, error)) (*BulkResult, error) {
	bulk := &BulkResult{}

	units := make([]batch.Unit, 0, len(playlists))
	for _, p := range playlists {
		playlist := p
		units = append(units, batch.Unit{
			Name: playlist.Name,
			Work: func(ctx context.Context) (models.OutcomeStatus, error) {
				if playlist.TrackCount > e.opts.MaxPlaylistSize {
					e.logger.Warn("skipping oversized playlist",
						"playlist", playlist.Name, "tracks", playlist.TrackCount, "max", e.opts.MaxPlaylistSize)
					return models.StatusSkipped, nil
				}

				result, err := run(ctx, playlist)
				if err != nil {
					return models.StatusFailed, err
				}

				bulk.Results = append(bulk.Results, result)
				if result.Skipped {
					return models.StatusSkipped, nil
				}
				return models.StatusSuccess, nil
			},
		})
	}

	bulk.Outcomes = e.scheduler.Run(ctx, units)
	return bulk, nil
}

// InitialScan records the target library's current playlists in the journal
// so later updates can see what already exists without re-transferring.
func (e *Engine) InitialScan(ctx context.Context, prog chan<- ProgressUpdate) ([]models.Playlist, error) {
	playlists, err := e.target.LibraryPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	for i, p := range playlists {
		e.sendProgress(prog, scanLibraryUpdate(i+1, len(playlists), p.Name))
		e.record(models.JournalEntry{
			Kind: models.OpUpdate, Playlist: p.Name, PlaylistID: p.ID,
			Outcome: models.OutcomeScanned, TrackCount: p.TrackCount,
		})
	}

	return playlists, nil
}

// RemovePlaylists deletes every target playlist whose name matches pattern
// (a regular expression, matched case-insensitively). Returns the playlists
// removed.
func (e *Engine) RemovePlaylists(ctx context.Context, pattern string) ([]models.Playlist, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	playlists, err := e.target.LibraryPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	var removed []models.Playlist
	for _, p := range playlists {
		if !re.MatchString(p.Name) {
			continue
		}

		if err := e.target.DeletePlaylist(ctx, p.ID); err != nil {
			e.record(models.JournalEntry{
				Kind: models.OpRemove, Playlist: p.Name, PlaylistID: p.ID,
				Outcome: models.OutcomeFailed, Detail: err.Error(),
			})
			return removed, fmt.Errorf("delete playlist %s: %w", p.Name, err)
		}

		removed = append(removed, p)
		e.record(models.JournalEntry{
			Kind: models.OpRemove, Playlist: p.Name, PlaylistID: p.ID,
			Outcome: models.OutcomeOK,
		})
	}

	return removed, nil
}
