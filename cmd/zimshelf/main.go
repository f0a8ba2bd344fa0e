// Package main provides the zimshelf CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/zimshelf/cli"
	"github.com/richinex/zimshelf/config"
	"github.com/richinex/zimshelf/internal/logging"
)

var (
	// Global flags
	dbPath     string
	jsonOutput bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "zimshelf",
		Short: "Offline library storage: archive parts and recent search history",
		Long: `Inspect downloaded archives and manage per-collection search history.

Configuration comes from ZIMSHELF_* environment variables (or a .env file):
- ZIMSHELF_DATA_DIR:    directory holding zimshelf.db (default ./data)
- ZIMSHELF_DB_PATH:     explicit database path
- ZIMSHELF_LEGACY_PATH: legacy search store imported once on first run
- ZIMSHELF_LOG_LEVEL:   debug, info, warn, error`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides ZIMSHELF_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON output")

	rootCmd.AddCommand(partsCmd())
	rootCmd.AddCommand(fileNameCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads settings, opens the app and runs fn with a context that is
// cancelled on SIGINT/SIGTERM.
func withApp(fn func(ctx context.Context, app *cli.App) error) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	if dbPath != "" {
		settings.DBPath = dbPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New("zimshelf", settings.Level())
	app, err := cli.Open(ctx, settings, logger, os.Stdout, cli.Options{JSON: jsonOutput})
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(ctx, app)
}

func partsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parts [file]",
		Short: "List the on-disk files backing an archive",
		Long: `List the on-disk files backing an archive.

A missing archive resolves to its in-progress ".part" download.
A split archive (.zimaa, .zimab, ...) resolves to its consecutive chunks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.Parts(args[0])
			})
		},
	}
}

func fileNameCmd() *cobra.Command {
	var rawURL, src string

	cmd := &cobra.Command{
		Use:   "filename",
		Short: "Print the file name a link would be saved as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.FileName(rawURL, src)
			})
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "Link URL")
	cmd.Flags().StringVar(&src, "src", "", "Link src attribute, used when the URL has no file name")

	return cmd
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Manage recent search history",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save [collection] [term]",
		Short: "Record a search",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.SaveSearch(ctx, args[0], args[1])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list [collection]",
		Short: "Show recent searches, newest first, without duplicates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.ListSearches(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "raw [collection]",
		Short: "Show every stored search row of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.RawSearches(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch [collection]",
		Short: "Print recent searches whenever they change (Ctrl+C to stop)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.WatchSearches(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "suggest [collection] [prefix]",
		Short: "Show recent searches starting with prefix",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 2 {
				prefix = args[1]
			}
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.SuggestSearches(ctx, args[0], prefix)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [term]",
		Short: "Delete a term from every collection's history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.DeleteSearch(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all search history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.ClearHistory(ctx)
			})
		},
	})

	return cmd
}

func migrateCmd() *cobra.Command {
	var legacyPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import search history from the legacy store (runs once)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *cli.App) error {
				return app.Migrate(ctx, legacyPath)
			})
		},
	}

	cmd.Flags().StringVar(&legacyPath, "legacy", "", "Path to the legacy bbolt store")
	_ = cmd.MarkFlagRequired("legacy")

	return cmd
}
