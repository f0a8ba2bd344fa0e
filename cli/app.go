// Command execution for CLI commands.
//
// Information Hiding:
// - Storage and resolver setup hidden
// - One-time legacy import on startup hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/richinex/zimshelf/config"
	"github.com/richinex/zimshelf/content"
	"github.com/richinex/zimshelf/storage"
)

// Options holds CLI output options.
type Options struct {
	JSON bool // Print machine-readable output
}

// App wires the stores used by the CLI commands.
type App struct {
	store    *storage.SqliteStorage
	resolver *content.PartResolver
	logger   zerolog.Logger
	out      io.Writer
	opts     Options
}

// NewApp creates an App from already opened components.
func NewApp(store *storage.SqliteStorage, resolver *content.PartResolver, logger zerolog.Logger, out io.Writer, opts Options) *App {
	return &App{
		store:    store,
		resolver: resolver,
		logger:   logger,
		out:      out,
		opts:     opts,
	}
}

// Open opens the database named by settings. When settings name a legacy
// store, its records are imported the first time any command runs.
// A failed import is logged and retried on the next Open; it never blocks
// the command.
func Open(ctx context.Context, settings config.Settings, logger zerolog.Logger, out io.Writer, opts Options) (*App, error) {
	store, err := storage.OpenSqlite(settings.DBPath, storage.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	app := NewApp(store, content.NewOsPartResolver(), logger, out, opts)
	if settings.LegacyPath != "" {
		if _, err := app.importLegacy(ctx, settings.LegacyPath); err != nil {
			logger.Warn().Err(err).
				Str("legacy_path", settings.LegacyPath).
				Msg("legacy search import failed")
		}
	}
	return app, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.store.Close()
}

// importLegacy runs the legacy import. The legacy file is only opened while
// the import is still pending, so it may be removed once imported.
func (a *App) importLegacy(ctx context.Context, path string) (storage.MigrationResult, error) {
	applied, err := a.store.LegacyMigrationApplied(ctx)
	if err != nil {
		return storage.MigrationResult{}, err
	}
	if applied {
		a.logger.Debug().Str("legacy_path", path).Msg("legacy searches already imported")
		return storage.MigrationResult{Skipped: true}, nil
	}

	legacy, err := storage.OpenLegacyBolt(path)
	if err != nil {
		return storage.MigrationResult{}, err
	}
	defer legacy.Close()

	return a.store.MigrateLegacyRecords(ctx, legacy)
}

// Parts prints the files backing the archive at path.
func (a *App) Parts(path string) error {
	parts, err := a.resolver.Resolve(content.Record{File: path})
	if err != nil {
		return err
	}
	if a.opts.JSON {
		return a.printJSON(parts)
	}
	for _, p := range parts {
		fmt.Fprintln(a.out, p)
	}
	return nil
}

// FileName prints the decoded file name for a link.
func (a *App) FileName(rawURL, src string) error {
	name := content.DecodedFileName(rawURL, src)
	if a.opts.JSON {
		return a.printJSON(map[string]string{"file_name": name})
	}
	fmt.Fprintln(a.out, name)
	return nil
}

// SaveSearch records a search term for a collection.
func (a *App) SaveSearch(ctx context.Context, collectionID, term string) error {
	if err := a.store.SaveSearch(ctx, term, collectionID); err != nil {
		return err
	}
	a.logger.Debug().Str("collection_id", collectionID).Str("term", term).Msg("search saved")
	return nil
}

// ListSearches prints the recent search list of a collection.
func (a *App) ListSearches(ctx context.Context, collectionID string) error {
	items, err := a.store.LoadRecentSearches(ctx, collectionID)
	if err != nil {
		return err
	}
	return a.printItems(items)
}

// RawSearches prints every stored row of a collection, duplicates included.
func (a *App) RawSearches(ctx context.Context, collectionID string) error {
	entries, err := a.store.LoadSearch(ctx, collectionID)
	if err != nil {
		return err
	}
	if a.opts.JSON {
		return a.printJSON(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%d\t%s\n", e.ID, e.SearchTerm)
	}
	return nil
}

// WatchSearches prints the recent search list every time it changes,
// until ctx is cancelled.
func (a *App) WatchSearches(ctx context.Context, collectionID string) error {
	for items := range a.store.RecentSearches(ctx, collectionID) {
		if err := a.printItems(items); err != nil {
			return err
		}
		if !a.opts.JSON {
			fmt.Fprintln(a.out, "---")
		}
	}
	return nil
}

// SuggestSearches prints recent terms of a collection starting with prefix.
func (a *App) SuggestSearches(ctx context.Context, collectionID, prefix string) error {
	items, err := a.store.SuggestSearches(ctx, collectionID, prefix)
	if err != nil {
		return err
	}
	return a.printItems(items)
}

// DeleteSearch removes a term from every collection.
func (a *App) DeleteSearch(ctx context.Context, term string) error {
	return a.store.DeleteSearchString(ctx, term)
}

// ClearHistory removes all search history.
func (a *App) ClearHistory(ctx context.Context) error {
	return a.store.DeleteSearchHistory(ctx)
}

// Migrate imports the legacy store at path unless already imported.
func (a *App) Migrate(ctx context.Context, path string) error {
	result, err := a.importLegacy(ctx, path)
	if err != nil {
		return err
	}
	if a.opts.JSON {
		return a.printJSON(result)
	}
	if result.Skipped {
		fmt.Fprintln(a.out, "Legacy searches already imported, nothing to do")
		return nil
	}
	fmt.Fprintf(a.out, "Imported %d legacy searches\n", result.Imported)
	return nil
}

func (a *App) printItems(items []storage.RecentSearchItem) error {
	if a.opts.JSON {
		return a.printJSON(items)
	}
	for _, item := range items {
		fmt.Fprintln(a.out, item.SearchTerm)
	}
	return nil
}

func (a *App) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
