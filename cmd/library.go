package main

import (
	"context"
	"fmt"

	"github.com/plsync/plsync/internal/match"
	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
	"github.com/plsync/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// InitialSetup scans the target library and records what already exists, so
// later updates see previously transferred playlists.
func (r *Runner) InitialSetup(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureTarget(cmd); err != nil {
		return err
	}
	if err := r.ensureStorage(cmd); err != nil {
		return err
	}

	engine := tasks.NewEngine(nil, r.target, nil, r.journal, nil, tasks.Options{}, r.logger)

	r.writePlain("Scanning YouTube Music library...\n\n")

	progressCh, stop := r.startProgress()
	playlists, err := engine.InitialScan(ctx, progressCh)
	stop()

	if err != nil {
		return err
	}

	r.writePlain("\nRecorded %d playlists in the journal.\n", len(playlists))
	return nil
}

// Search resolves a single track and prints the outcome.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureTarget(cmd); err != nil {
		return err
	}
	if err := r.ensureStorage(cmd); err != nil {
		return err
	}

	config := r.config
	matchCfg := match.Config{
		Weights: match.Weights{
			Title:    config.Matching.TitleWeight,
			Artist:   config.Matching.ArtistWeight,
			Duration: config.Matching.DurationWeight,
		},
		AcceptThreshold: config.Matching.AcceptThreshold,
		DurationPad:     config.Matching.DurationPad,
		DurationVeto:    config.Matching.DurationVeto,
	}
	matcher := match.NewMatcher(r.cache, r.target, matchCfg, nil, r.logger)

	track := models.Track{
		Title:    cmd.String("title"),
		Artist:   cmd.String("artist"),
		Duration: int(cmd.Int("duration")),
	}

	result, err := matcher.FindBestMatch(ctx, track, false)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result, true)
	}

	if !result.Found {
		r.writePlain("No acceptable match for %s - %s\n", track.Artist, track.Title)
		return nil
	}

	r.writePlain("Best match: https://music.youtube.com/watch?v=%s (score %.2f)\n", result.TargetID, result.Score)
	return nil
}

// Remove deletes target playlists matching a name pattern.
func (r *Runner) Remove(ctx context.Context, cmd *cli.Command) error {
	pattern := cmd.StringArg("pattern")
	if pattern == "" {
		return fmt.Errorf("%w: playlist name pattern", shared.ErrMissingArgument)
	}

	if err := r.ensureTarget(cmd); err != nil {
		return err
	}
	if err := r.ensureStorage(cmd); err != nil {
		return err
	}

	engine := tasks.NewEngine(nil, r.target, nil, r.journal, nil, tasks.Options{}, r.logger)

	removed, err := engine.RemovePlaylists(ctx, pattern)
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		r.writePlain("No playlists matched %q.\n", pattern)
		return nil
	}

	for _, p := range removed {
		r.writePlain("✓ Removed: %s (%s)\n", p.Name, p.ID)
	}
	r.writePlain("Removed %d playlists.\n", len(removed))
	return nil
}
