package main

import (
	"context"
	"fmt"

	"github.com/plsync/plsync/internal/batch"
	"github.com/plsync/plsync/internal/shared"
	"github.com/plsync/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

func (r *Runner) createOptions(cmd *cli.Command) tasks.CreateOptions {
	return tasks.CreateOptions{
		Name:       cmd.String("name"),
		Public:     cmd.Bool("public"),
		Like:       cmd.Bool("like"),
		DateSuffix: cmd.Bool("date"),
	}
}

// Create transfers one playlist to a brand-new target playlist.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	playlist := cmd.StringArg("playlist")
	if playlist == "" {
		return fmt.Errorf("%w: playlist id or URL", shared.ErrMissingArgument)
	}

	engine, err := r.buildEngine(ctx, cmd)
	if err != nil {
		return err
	}

	r.writePlain("Transferring playlist to YouTube Music...\n\n")

	progressCh, stop := r.startProgress()
	result, err := engine.Create(ctx, progressCh, playlist, r.createOptions(cmd))
	stop()

	if err != nil {
		return err
	}

	r.writeTransferSummary(result)
	return nil
}

// Update reconciles an existing target playlist against its source.
func (r *Runner) Update(ctx context.Context, cmd *cli.Command) error {
	playlist := cmd.StringArg("playlist")
	if playlist == "" {
		return fmt.Errorf("%w: playlist id or URL", shared.ErrMissingArgument)
	}

	engine, err := r.buildEngine(ctx, cmd)
	if err != nil {
		return err
	}

	r.writePlain("Updating playlist on YouTube Music...\n\n")

	progressCh, stop := r.startProgress()
	result, err := engine.Update(ctx, progressCh, playlist, r.createOptions(cmd))
	stop()

	if err != nil {
		return err
	}

	r.writeTransferSummary(result)
	return nil
}

// Liked mirrors the liked-songs library.
func (r *Runner) Liked(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.buildEngine(ctx, cmd)
	if err != nil {
		return err
	}

	r.writePlain("Transferring liked songs...\n\n")

	progressCh, stop := r.startProgress()
	result, err := engine.Liked(ctx, progressCh)
	stop()

	if err != nil {
		return err
	}

	r.writeTransferSummary(result)
	return nil
}

// TransferAll transfers every owned playlist.
func (r *Runner) TransferAll(ctx context.Context, cmd *cli.Command) error {
	return r.transferAll(ctx, cmd, false)
}

// TransferAllSaved transfers owned and followed playlists.
func (r *Runner) TransferAllSaved(ctx context.Context, cmd *cli.Command) error {
	return r.transferAll(ctx, cmd, true)
}

func (r *Runner) transferAll(ctx context.Context, cmd *cli.Command, includeSaved bool) error {
	engine, err := r.buildEngine(ctx, cmd)
	if err != nil {
		return err
	}

	r.writePlain("Transferring all playlists...\n\n")

	progressCh, stop := r.startProgress()
	result, err := engine.TransferAll(ctx, progressCh, includeSaved, r.createOptions(cmd))
	stop()

	if err != nil {
		return err
	}

	r.writeBulkSummary(result)
	return nil
}

// UpdateAll reconciles every owned playlist.
func (r *Runner) UpdateAll(ctx context.Context, cmd *cli.Command) error {
	engine, err := r.buildEngine(ctx, cmd)
	if err != nil {
		return err
	}

	r.writePlain("Updating all playlists...\n\n")

	progressCh, stop := r.startProgress()
	result, err := engine.UpdateAll(ctx, progressCh, r.createOptions(cmd))
	stop()

	if err != nil {
		return err
	}

	r.writeBulkSummary(result)
	return nil
}

func (r *Runner) writeBulkSummary(result *tasks.BulkResult) {
	succeeded, skipped, failed := batch.Summarize(result.Outcomes)

	r.writePlain("\n═══════════════════════════════════════\n")
	r.writePlain("Bulk run complete\n")
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Succeeded: %d, skipped: %d, failed: %d\n", succeeded, skipped, failed)

	for _, outcome := range result.Outcomes {
		if outcome.Err != nil {
			r.writePlain("  ✗ %s: %v\n", outcome.Unit, outcome.Err)
		}
	}
}
