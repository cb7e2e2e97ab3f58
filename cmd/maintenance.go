package main

import (
	"context"
	"os"

	"github.com/plsync/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if missing and initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.writePlain("✓ Created %s, fill in your credentials\n", path)
	}

	if err := r.ensureStorage(cmd); err != nil {
		return err
	}

	r.writePlain("✓ Database ready: %s\n", r.config.Storage.CachePath)
	return nil
}

// CacheClear forgets every cached track match.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStorage(cmd); err != nil {
		return err
	}

	n, err := r.cache.Len()
	if err != nil {
		return err
	}

	if err := r.cache.Clear(); err != nil {
		return err
	}

	r.writePlain("✓ Cleared %d cached matches.\n", n)
	return nil
}

// CacheStats prints the cache size.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStorage(cmd); err != nil {
		return err
	}

	n, err := r.cache.Len()
	if err != nil {
		return err
	}

	r.writePlain("%d cached matches in %s\n", n, r.config.Storage.CachePath)
	return nil
}

// LogStats aggregates the journal.
func (r *Runner) LogStats(ctx context.Context, cmd *cli.Command) error {
	if err := r.ensureStorage(cmd); err != nil {
		return err
	}

	stats, err := r.journal.Aggregate()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlain("Journal: %d entries\n", stats.Total)
	if !stats.First.IsZero() {
		r.writePlain("From %s to %s\n", stats.First.Format("2006-01-02"), stats.Last.Format("2006-01-02"))
	}

	for kind, count := range stats.ByKind {
		r.writePlain("  %s: %d\n", kind, count)
	}

	if len(stats.Playlists) > 0 {
		r.writePlain("\nPlaylists:\n")
		for _, ps := range stats.Playlists {
			r.writePlain("  %s: %d ops, %d tracks added, %d failures (last %s)\n",
				ps.Name, ps.Operations, ps.TracksAdded, ps.Failures, ps.LastUpdated.Format("2006-01-02"))
		}
	}

	return nil
}

// LogsLocation prints where the durable files live.
func (r *Runner) LogsLocation(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.writePlain("Journal:    %s\n", config.Storage.JournalPath)
	r.writePlain("No results: %s\n", config.Storage.NoResultsPath)
	r.writePlain("Cache:      %s\n", config.Storage.CachePath)
	return nil
}
