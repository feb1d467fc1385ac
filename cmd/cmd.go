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

// spotifyCommand handles Spotify account operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account operations",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyAuth,
			},
			{
				Name:  "profile",
				Usage: "Show the authenticated user's profile",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.SpotifyProfile,
			},
			{
				Name:  "playlists",
				Usage: "List Spotify playlists",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of playlists to return",
						Value: 50,
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
					&cli.BoolFlag{Name: "save", Usage: "Save API response locally"},
				},
				Action: r.SpotifyPlaylists,
			},
			{
				Name:  "likes",
				Usage: "List liked (saved) tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks to return",
						Value: 50,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Offset into the liked tracks list",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.SpotifyLikes,
			},
			{
				Name:  "top",
				Usage: "Show top artists or tracks",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "type",
						Usage: "Item type: artists or tracks",
						Value: "artists",
					},
					&cli.StringFlag{
						Name:  "range",
						Usage: "Time range: short_term, medium_term or long_term",
						Value: "medium_term",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of items to return",
						Value: 20,
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.SpotifyTop,
			},
		},
	}
}

// makerCommand handles the playlist maker operations
func makerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "maker",
		Usage: "Aggregate artist catalogs into playlists",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Merge artists into playlists (or create a new one)",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringSliceFlag{
						Name:    "playlist",
						Aliases: []string{"p"},
						Usage:   "Target playlist ID (repeatable); omit to create a new playlist",
					},
					&cli.StringSliceFlag{
						Name:    "artist",
						Aliases: []string{"a"},
						Usage:   "Artist ID to merge (repeatable); omit to refresh playlists from their recorded artists",
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Write a run report: csv, markdown, json or text",
					},
					&cli.StringFlag{
						Name:  "report-file",
						Usage: "Report file path (defaults to maker_run_{timestamp})",
					},
					&cli.BoolFlag{Name: "json", Usage: "Output results as raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.MakerRun,
			},
			{
				Name:  "search",
				Usage: "Search artists by name to find their IDs",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of artists to return",
						Value: 10,
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.MakerSearch,
			},
			{
				Name:  "state",
				Usage: "Inspect persisted sync state (all playlists, or one by ID)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "playlist-id"},
				},
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.MakerState,
			},
			{
				Name:  "history",
				Usage: "Show recent maker runs",
				Flags: []cli.Flag{
					configFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 10,
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.MakerHistory,
			},
		},
	}
}

// setupCommand handles setup operations for config and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the interactive maker wizard.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive maker wizard",
		Flags:   []cli.Flag{configFlag()},
		Action:  r.TUI,
	}
}
