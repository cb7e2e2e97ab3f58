package main

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plsync/plsync/internal/models"
	"github.com/plsync/plsync/internal/shared"
	tu "github.com/plsync/plsync/internal/testing"
)

func testConfig(t *testing.T) *shared.Config {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Storage.CachePath = filepath.Join(dir, "matches.db")
	config.Storage.JournalPath = filepath.Join(dir, "journal.jsonl")
	config.Storage.NoResultsPath = filepath.Join(dir, "noresults.txt")
	return config
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// run executes one CLI invocation against a runner wired with fakes.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := newApp(r)
	return app.Run(context.Background(), append([]string{"plsync"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			source := &tu.FakeSource{}
			target := &tu.FakeTarget{}

			runner := NewRunner(RunnerOpts{
				Config: config,
				Logger: logger,
				Output: output,
				Source: source,
				Target: target,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.source != source {
				t.Error("expected source to be set")
			}
			if runner.target != target {
				t.Error("expected target to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with db builds the cache", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{DB: testDB(t)})
			if runner.cache == nil {
				t.Error("expected cache to be built from the injected db")
			}
		})
	})

	t.Run("register returns all commands", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) != 12 {
			t.Fatalf("registered %d commands, want 12", len(commands))
		}

		names := make(map[string]bool, len(commands))
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "create", "update", "liked", "all",
			"all-saved", "update-all", "initial-setup", "search", "remove", "cache", "logs"} {
			if !names[want] {
				t.Errorf("command %q not registered", want)
			}
		}
	})

	t.Run("writePlain surfaces writer errors", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := runner.writePlain("hello"); err == nil {
			t.Error("expected an error from a failing writer")
		}
	})
}

func TestCreateCommand(t *testing.T) {
	config := testConfig(t)
	output := &bytes.Buffer{}

	source := &tu.FakeSource{
		PlaylistFn: func(ctx context.Context, idOrURL string) (*models.PlaylistSnapshot, error) {
			return &models.PlaylistSnapshot{
				Playlist: models.Playlist{ID: "sp1", Name: "Road Trip", TrackCount: 2},
				Tracks: []models.Track{
					{SourceID: "s1", Title: "Song A", Artist: "Artist X", Duration: 200},
					{SourceID: "s2", Title: "Obscure", Artist: "Nobody", Duration: 180},
				},
			}, nil
		},
	}
	target := &tu.FakeTarget{
		SearchFn: func(ctx context.Context, query string) ([]models.TargetTrack, error) {
			if !strings.Contains(query, "Song A") {
				return nil, nil
			}
			return []models.TargetTrack{
				{ID: "yt_1", Title: "Song A", Artist: "Artist X", Duration: 200},
			}, nil
		},
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Source: source,
		Target: target,
		DB:     testDB(t),
		Output: output,
	})

	if err := run(t, runner, "create", "sp1"); err != nil {
		t.Fatalf("create command failed: %v", err)
	}

	if len(target.Created) != 1 || target.Created[0] != "Road Trip" {
		t.Errorf("created playlists = %v, want [Road Trip]", target.Created)
	}
	if added := target.Added["PLRoad Trip"]; len(added) != 1 || added[0] != "yt_1" {
		t.Errorf("added tracks = %v, want [yt_1]", added)
	}

	if !strings.Contains(output.String(), "Road Trip") {
		t.Errorf("summary missing playlist name:\n%s", output.String())
	}
	if !strings.Contains(output.String(), "Matched: 1/2") {
		t.Errorf("summary missing match counts:\n%s", output.String())
	}

	tu.AssertFileExists(t, config.Storage.JournalPath)
	noResults := tu.MustReadFile(t, config.Storage.NoResultsPath)
	if !strings.Contains(noResults, "Nobody - Obscure") {
		t.Errorf("no-results file = %q, want the unmatched track", noResults)
	}
}

func TestCreateCommandRequiresPlaylist(t *testing.T) {
	runner := NewRunner(RunnerOpts{
		Config: testConfig(t),
		Source: &tu.FakeSource{},
		Target: &tu.FakeTarget{},
		DB:     testDB(t),
		Output: &bytes.Buffer{},
	})

	if err := run(t, runner, "create"); err == nil {
		t.Error("create without a playlist argument should fail")
	}
}

func TestSearchCommand(t *testing.T) {
	output := &bytes.Buffer{}
	target := &tu.FakeTarget{
		SearchFn: func(ctx context.Context, query string) ([]models.TargetTrack, error) {
			return []models.TargetTrack{
				{ID: "yt_9", Title: "Song A", Artist: "Artist X", Duration: 200},
			}, nil
		},
	}

	runner := NewRunner(RunnerOpts{
		Config: testConfig(t),
		Target: target,
		DB:     testDB(t),
		Output: output,
	})

	err := run(t, runner, "search", "--title", "Song A", "--artist", "Artist X", "--duration", "200")
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}

	if !strings.Contains(output.String(), "music.youtube.com/watch?v=yt_9") {
		t.Errorf("output missing match URL:\n%s", output.String())
	}
}

func TestSearchCommandWithoutDuration(t *testing.T) {
	output := &bytes.Buffer{}
	target := &tu.FakeTarget{
		SearchFn: func(ctx context.Context, query string) ([]models.TargetTrack, error) {
			return []models.TargetTrack{
				{ID: "yt_9", Title: "Song A", Artist: "Artist X", Duration: 200},
			}, nil
		},
	}

	runner := NewRunner(RunnerOpts{
		Config: testConfig(t),
		Target: target,
		DB:     testDB(t),
		Output: output,
	})

	err := run(t, runner, "search", "--title", "Song A", "--artist", "Artist X")
	if err != nil {
		t.Fatalf("search command failed: %v", err)
	}

	if !strings.Contains(output.String(), "music.youtube.com/watch?v=yt_9") {
		t.Errorf("duration-less search should still match:\n%s", output.String())
	}
}

func TestCacheCommands(t *testing.T) {
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config: testConfig(t),
		DB:     testDB(t),
		Output: output,
	})

	if err := run(t, runner, "cache", "stats"); err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	if !strings.Contains(output.String(), "0 cached matches") {
		t.Errorf("output = %q, want empty cache stats", output.String())
	}

	output.Reset()
	if err := run(t, runner, "cache", "clear"); err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(output.String(), "Cleared 0") {
		t.Errorf("output = %q, want cleared count", output.String())
	}
}

func TestLogsLocationCommand(t *testing.T) {
	config := testConfig(t)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: config, Output: output})

	if err := run(t, runner, "logs", "location"); err != nil {
		t.Fatalf("logs location failed: %v", err)
	}

	for _, path := range []string{config.Storage.JournalPath, config.Storage.NoResultsPath, config.Storage.CachePath} {
		if !strings.Contains(output.String(), path) {
			t.Errorf("output missing %s:\n%s", path, output.String())
		}
	}
}

func TestRemoveCommand(t *testing.T) {
	output := &bytes.Buffer{}
	target := &tu.FakeTarget{
		LibraryPlaylistsFn: func(ctx context.Context) ([]models.Playlist, error) {
			return []models.Playlist{
				{ID: "PL1", Name: "Road Trip 2024-01-01"},
				{ID: "PL2", Name: "Keep Me"},
			}, nil
		},
	}

	runner := NewRunner(RunnerOpts{
		Config: testConfig(t),
		Target: target,
		DB:     testDB(t),
		Output: output,
	})

	if err := run(t, runner, "remove", "^road trip"); err != nil {
		t.Fatalf("remove command failed: %v", err)
	}

	if len(target.Deleted) != 1 || target.Deleted[0] != "PL1" {
		t.Errorf("deleted = %v, want [PL1]", target.Deleted)
	}
	if !strings.Contains(output.String(), "Removed 1 playlists") {
		t.Errorf("output = %q", output.String())
	}
}
