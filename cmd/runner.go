package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/plsync/plsync/internal/batch"
	"github.com/plsync/plsync/internal/cache"
	"github.com/plsync/plsync/internal/journal"
	"github.com/plsync/plsync/internal/match"
	"github.com/plsync/plsync/internal/services"
	"github.com/plsync/plsync/internal/shared"
	"github.com/plsync/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for
// each command action. Storage and clients are initialized lazily from the
// resolved config, so commands that never touch a service do not require
// credentials.
type Runner struct {
	config  *shared.Config
	source  services.SourceClient
	target  services.TargetClient
	db      *sql.DB
	cache   *cache.MatchCache
	journal *journal.Journal
	sink    *journal.NotFoundSink
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains overrides for creating a Runner, used by tests to
// inject fakes.
type RunnerOpts struct {
	Config  *shared.Config
	Source  services.SourceClient
	Target  services.TargetClient
	DB      *sql.DB
	Journal *journal.Journal
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:  opts.Config,
		source:  opts.Source,
		target:  opts.Target,
		db:      opts.DB,
		journal: opts.Journal,
		logger:  opts.Logger,
		output:  opts.Output,
	}

	if r.db != nil {
		r.cache = cache.New(r.db)
	}

	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, createCommand, updateCommand, likedCommand,
		allCommand, allSavedCommand, updateAllCommand, initialSetupCommand,
		searchCommand, removeCommand, cacheCommand, logsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the configuration for a command invocation: an
// injected config wins, then the --config flag's file, then defaults.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	if r.config != nil {
		return r.config, nil
	}

	path := cmd.String("config")
	if path == "" {
		path = "config.toml"
	}

	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		r.config = config
		return config, nil
	}

	r.config = shared.DefaultConfig()
	return r.config, nil
}

// ensureStorage opens the match cache database (running migrations) and the
// journal files.
func (r *Runner) ensureStorage(cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	if r.db == nil {
		db, err := shared.NewDatabase(config.Storage.CachePath)
		if err != nil {
			return err
		}
		if err := shared.RunMigrations(db); err != nil {
			db.Close()
			return err
		}
		shared.ConfigureDatabase(db, 1, 1)
		r.db = db
	}

	if r.cache == nil {
		r.cache = cache.New(r.db)
	}
	if r.journal == nil {
		r.journal = journal.New(config.Storage.JournalPath, r.logger)
	}
	if r.sink == nil {
		r.sink = journal.NewNotFoundSink(config.Storage.NoResultsPath)
	}

	return nil
}

// ensureSource authenticates the Spotify client. The access token comes from
// the --token flag or the SPOTIFY_ACCESS_TOKEN environment variable.
func (r *Runner) ensureSource(ctx context.Context, cmd *cli.Command) error {
	if r.source != nil {
		return nil
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	client, err := services.NewSpotifyClient(config.Credentials.Spotify)
	if err != nil {
		return err
	}

	token := cmd.String("token")
	if token == "" {
		token = os.Getenv("SPOTIFY_ACCESS_TOKEN")
	}
	if token == "" {
		r.writePlain("Authorize at: %s\n", client.AuthURL(shared.GenerateID()))
		return fmt.Errorf("%w: set --token or SPOTIFY_ACCESS_TOKEN", shared.ErrNotAuthenticated)
	}

	if err := client.Authenticate(ctx, token, ""); err != nil {
		return err
	}

	r.source = client
	return nil
}

func (r *Runner) ensureTarget(cmd *cli.Command) error {
	if r.target != nil {
		return nil
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.target = services.NewYTMusicClient(config.Credentials.YouTube)
	return nil
}

// buildEngine wires the full pipeline for a transfer command, honoring the
// per-command policy flags.
func (r *Runner) buildEngine(ctx context.Context, cmd *cli.Command) (*tasks.Engine, error) {
	if err := r.ensureSource(ctx, cmd); err != nil {
		return nil, err
	}
	if err := r.ensureTarget(cmd); err != nil {
		return nil, err
	}
	if err := r.ensureStorage(cmd); err != nil {
		return nil, err
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
	matcher := match.NewMatcher(r.cache, r.target, matchCfg, r.sink, r.logger)

	size := config.Batch.Size
	if cmd.Int("batch-size") > 0 {
		size = int(cmd.Int("batch-size"))
	}
	delay := time.Duration(config.Batch.DelaySeconds * float64(time.Second))
	if cmd.Float64("batch-delay") > 0 {
		delay = time.Duration(cmd.Float64("batch-delay") * float64(time.Second))
	}

	scheduler := batch.NewScheduler(size, delay, r.logger)
	scheduler.Limiter = rate.NewLimiter(rate.Limit(5), 1)

	tolerance := config.Sync.Tolerance
	if cmd.Float64("tolerance") > 0 {
		tolerance = cmd.Float64("tolerance")
	}

	opts := tasks.Options{
		Tolerance:  tolerance,
		AppendOnly: cmd.Bool("append"),
		UseCached:  cmd.Bool("use-cached"),
	}

	logger := shared.WithLogger(r.logger, "component", "engine")
	return tasks.NewEngine(r.source, r.target, matcher, r.journal, scheduler, opts, logger), nil
}

// startProgress returns a channel whose updates are printed as they arrive,
// plus a stop function to call once the operation returns.
func (r *Runner) startProgress() (chan tasks.ProgressUpdate, func()) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchSource, tasks.FetchTarget:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.MatchTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.CreatePlaylist, tasks.Reconcile:
				r.writePlain("\n📝 %s\n", update.Message)
			default:
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	return progressCh, func() {
		close(progressCh)
		<-done
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeTransferSummary(result *tasks.TransferResult) {
	r.writePlain("\n═══════════════════════════════════════\n")
	if result.Skipped {
		r.writePlain("Up to date: %s (%s)\n", result.Playlist.Name, result.SkipReason)
		return
	}

	r.writePlain("Done: %s\n", result.Playlist.Name)
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("Matched: %d/%d tracks\n", result.Matched, result.Total)
	if result.Added > 0 {
		r.writePlain("Added: %d\n", result.Added)
	}
	if result.Removed > 0 {
		r.writePlain("Removed: %d\n", result.Removed)
	}

	if len(result.NotFound) > 0 {
		r.writePlain("\nNo match found for %d tracks:\n", len(result.NotFound))
		for _, track := range result.NotFound {
			r.writePlain("  - %s - %s\n", track.Artist, track.Title)
		}
	}
}
