// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func tokenFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "token",
		Usage: "Spotify access token (defaults to SPOTIFY_ACCESS_TOKEN)",
	}
}

// transferFlags are shared by every command that resolves tracks.
func transferFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		tokenFlag(),
		&cli.BoolFlag{
			Name:  "use-cached",
			Usage: "Reuse previously matched tracks from the local cache",
			Value: true,
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "Playlists per batch in bulk operations",
		},
		&cli.Float64Flag{
			Name:  "batch-delay",
			Usage: "Seconds to pause between batches",
		},
	}
}

func createFlags() []cli.Flag {
	return append(transferFlags(),
		&cli.StringFlag{
			Name:    "name",
			Aliases: []string{"n"},
			Usage:   "Override the target playlist name",
		},
		&cli.BoolFlag{
			Name:  "public",
			Usage: "Create the target playlist as public",
		},
		&cli.BoolFlag{
			Name:  "like",
			Usage: "Also like every matched track",
		},
		&cli.BoolFlag{
			Name:  "date",
			Usage: "Append the current date to the playlist name",
		},
	)
}

func updateFlags() []cli.Flag {
	return append(createFlags(),
		&cli.BoolFlag{
			Name:  "append",
			Usage: "Never remove tracks from the target playlist",
		},
		&cli.Float64Flag{
			Name:  "tolerance",
			Usage: "Skip the update when this fraction of tracks is already present",
		},
	)
}

// setupCommand initializes local state: config file, database, migrations.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the local database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Transfer a Spotify playlist to a new YouTube Music playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags:  createFlags(),
		Action: r.Create,
	}
}

func updateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Reconcile an existing YouTube Music playlist against its Spotify source",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags:  updateFlags(),
		Action: r.Update,
	}
}

func likedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "liked",
		Usage:  "Mirror Spotify liked songs into the YouTube Music library",
		Flags:  transferFlags(),
		Action: r.Liked,
	}
}

func allCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "all",
		Usage:  "Transfer every playlist you own",
		Flags:  createFlags(),
		Action: r.TransferAll,
	}
}

func allSavedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "all-saved",
		Usage:  "Transfer every playlist you own or follow",
		Flags:  createFlags(),
		Action: r.TransferAllSaved,
	}
}

func updateAllCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "update-all",
		Usage:  "Reconcile every owned playlist against its target counterpart",
		Flags:  updateFlags(),
		Action: r.UpdateAll,
	}
}

func initialSetupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "initial-setup",
		Aliases: []string{"scan"},
		Usage:   "Record existing YouTube Music playlists in the journal",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.InitialSetup,
	}
}

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Find the best YouTube Music match for a single track",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "title",
				Usage:    "Track title",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "artist",
				Usage:    "Track artist",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "duration",
				Usage: "Track duration in seconds (improves matching)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

func removeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "remove",
		Usage: "Delete YouTube Music playlists whose names match a pattern",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "pattern"},
		},
		Flags:  []cli.Flag{configFlag()},
		Action: r.Remove,
	}
}

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local track match cache",
		Commands: []*cli.Command{
			{
				Name:   "clear",
				Usage:  "Forget every cached track match",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheClear,
			},
			{
				Name:   "stats",
				Usage:  "Show cache size",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheStats,
			},
		},
	}
}

func logsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "Inspect the operation journal",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Aggregate journal entries per playlist and operation",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.LogStats,
			},
			{
				Name:   "location",
				Usage:  "Print where the journal, cache and no-results files live",
				Flags:  []cli.Flag{configFlag()},
				Action: r.LogsLocation,
			},
		},
	}
}
