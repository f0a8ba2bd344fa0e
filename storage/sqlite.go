// Package storage provides SQLite recent search storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration bookkeeping encapsulated
// - Change notifications published after every committed mutation

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/richinex/zimshelf/events"
	"github.com/richinex/zimshelf/internal/dsa"
)

// recentSearchTopic is the broker topic published on table changes.
const recentSearchTopic = "recent_searches"

// legacyRecentSearchMigration names the legacy import in applied_migrations.
const legacyRecentSearchMigration = "legacy_recent_searches"

// SqliteStorage implements RecentSearchStorage using SQLite.
// Thread-safe: sql.DB handles connection pooling and SQLite serializes writes.
type SqliteStorage struct {
	db     *sql.DB
	broker *events.Broker
	logger zerolog.Logger
}

// Option configures a SqliteStorage.
type Option func(*SqliteStorage)

// WithLogger sets the logger used for stream and migration diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *SqliteStorage) {
		s.logger = logger
	}
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string, opts ...Option) (*SqliteStorage, error) {
	// Create parent directory if needed
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// WAL lets stream readers run while a write is in flight
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return newSqliteStorage(db, opts)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory(opts ...Option) (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every new connection to ":memory:" is a separate empty database
	db.SetMaxOpenConns(1)

	return newSqliteStorage(db, opts)
}

func newSqliteStorage(db *sql.DB, opts []Option) (*SqliteStorage, error) {
	storage := &SqliteStorage{
		db:     db,
		broker: events.NewBroker(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(storage)
	}

	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// Close ends all open streams and closes the database connection.
func (s *SqliteStorage) Close() error {
	s.broker.Close()
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS recent_searches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			search_term TEXT NOT NULL,
			collection_id TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_recent_searches_collection
		ON recent_searches(collection_id, id DESC);

		CREATE INDEX IF NOT EXISTS idx_recent_searches_term
		ON recent_searches(search_term);

		CREATE TABLE IF NOT EXISTS applied_migrations (
			name TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL,
			row_count INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// notifyChanged wakes every open stream so it re-reads the table.
func (s *SqliteStorage) notifyChanged(op string) {
	s.broker.Publish(recentSearchTopic, op)
}

// LoadSearch returns every entry for collectionID, newest first.
// Returns empty slice if the collection has no history.
func (s *SqliteStorage) LoadSearch(ctx context.Context, collectionID string) ([]RecentSearchEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, search_term, collection_id FROM recent_searches WHERE collection_id = ? ORDER BY id DESC",
		collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent searches: %w", err)
	}
	defer rows.Close()

	entries := []RecentSearchEntry{} // Start with empty slice, not nil
	for rows.Next() {
		var e RecentSearchEntry
		if err := rows.Scan(&e.ID, &e.SearchTerm, &e.CollectionID); err != nil {
			return nil, fmt.Errorf("failed to scan recent search: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent searches: %w", err)
	}

	return entries, nil
}

// LoadRecentSearches returns the current display projection for collectionID.
func (s *SqliteStorage) LoadRecentSearches(ctx context.Context, collectionID string) ([]RecentSearchItem, error) {
	entries, err := s.LoadSearch(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	return DistinctRecent(entries, MaxRecentSearches), nil
}

// Search streams entries for collectionID, newest first.
// A snapshot that is still undelivered when the table changes again is
// dropped in favour of a fresh one.
func (s *SqliteStorage) Search(ctx context.Context, collectionID string) <-chan []RecentSearchEntry {
	out := make(chan []RecentSearchEntry)
	// Subscribe before the first query so no change can slip between them
	changes, cancel := s.broker.Subscribe(recentSearchTopic)

	go func() {
		defer close(out)
		defer cancel()

		for {
			entries, err := s.LoadSearch(ctx, collectionID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn().Err(err).
					Str("collection_id", collectionID).
					Msg("recent search snapshot failed")
			} else {
				select {
				case out <- entries:
				case <-ctx.Done():
					return
				case _, ok := <-changes:
					if !ok {
						return
					}
					continue
				}
			}

			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
			}
		}
	}()

	return out
}

// RecentSearches streams the deduplicated, capped projection of Search.
func (s *SqliteStorage) RecentSearches(ctx context.Context, collectionID string) <-chan []RecentSearchItem {
	out := make(chan []RecentSearchItem)
	in := s.Search(ctx, collectionID)

	go func() {
		defer close(out)
		for entries := range in {
			select {
			case out <- DistinctRecent(entries, MaxRecentSearches):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// SaveSearch inserts a new history row.
func (s *SqliteStorage) SaveSearch(ctx context.Context, term, collectionID string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO recent_searches (search_term, collection_id) VALUES (?, ?)",
		term, collectionID)
	if err != nil {
		return fmt.Errorf("failed to save search: %w", err)
	}

	s.notifyChanged("insert")
	return nil
}

// DeleteSearchString deletes every row with the exact term, across all
// collections. Deleting an unknown term is a no-op.
func (s *SqliteStorage) DeleteSearchString(ctx context.Context, term string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM recent_searches WHERE search_term = ?",
		term)
	if err != nil {
		return fmt.Errorf("failed to delete search term: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil || n > 0 {
		s.notifyChanged("delete")
	}
	return nil
}

// DeleteSearchHistory deletes all rows.
func (s *SqliteStorage) DeleteSearchHistory(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM recent_searches")
	if err != nil {
		return fmt.Errorf("failed to delete search history: %w", err)
	}

	if n, err := res.RowsAffected(); err != nil || n > 0 {
		s.notifyChanged("clear")
	}
	return nil
}

// MigrateLegacyRecords copies every legacy record into recent_searches.
// Into an empty table the legacy ids are kept as row ids. When searches were
// saved before the import, legacy records are renumbered in legacy id order
// to sit below the oldest existing row, so they stay older than anything
// recorded since.
// The import and its applied_migrations marker commit in one transaction:
// a failed import leaves nothing behind and can be retried, a finished one
// is never repeated.
func (s *SqliteStorage) MigrateLegacyRecords(ctx context.Context, source LegacySource) (MigrationResult, error) {
	applied, err := s.LegacyMigrationApplied(ctx)
	if err != nil {
		return MigrationResult{}, err
	}
	if applied {
		s.logger.Info().Str("migration", legacyRecentSearchMigration).Msg("migration already applied, skipping")
		return MigrationResult{Skipped: true}, nil
	}

	records, err := source.All(ctx)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to read legacy records: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	var oldest sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT MIN(id) FROM recent_searches").Scan(&oldest); err != nil {
		return MigrationResult{}, fmt.Errorf("failed to find oldest search: %w", err)
	}
	ids := legacyRowIDs(records, oldest)

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO recent_searches (id, search_term, collection_id) VALUES (?, ?, ?)")
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, ids[i], rec.SearchTerm, rec.CollectionID); err != nil {
			return MigrationResult{}, fmt.Errorf("failed to import legacy record %d: %w", rec.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO applied_migrations (name, applied_at, row_count) VALUES (?, ?, ?)",
		legacyRecentSearchMigration, time.Now().Unix(), len(records))
	if err != nil {
		return MigrationResult{}, fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return MigrationResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().
		Str("migration", legacyRecentSearchMigration).
		Int("imported", len(records)).
		Msg("legacy recent searches imported")

	if len(records) > 0 {
		s.notifyChanged("migrate")
	}
	return MigrationResult{Imported: len(records)}, nil
}

// legacyRowIDs picks the row id for each record, aligned with records.
// Legacy ids are kept only when the table is empty and every id is positive
// and unique; otherwise records are numbered consecutively in legacy id
// order, ending just below oldest (or starting at 1 in an empty table).
// SQLite accepts zero and negative rowids.
func legacyRowIDs(records []LegacyRecord, oldest sql.NullInt64) []int64 {
	ids := make([]int64, len(records))

	if !oldest.Valid {
		keep := true
		seen := make(map[int64]struct{}, len(records))
		for _, rec := range records {
			if _, dup := seen[rec.ID]; dup || rec.ID <= 0 {
				keep = false
				break
			}
			seen[rec.ID] = struct{}{}
		}
		if keep {
			for i, rec := range records {
				ids[i] = rec.ID
			}
			return ids
		}
	}

	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return records[order[a]].ID < records[order[b]].ID
	})

	next := int64(1)
	if oldest.Valid {
		next = oldest.Int64 - int64(len(records))
	}
	for _, i := range order {
		ids[i] = next
		next++
	}
	return ids
}

// LegacyMigrationApplied reports whether the legacy import has completed.
func (s *SqliteStorage) LegacyMigrationApplied(ctx context.Context) (bool, error) {
	return s.migrationApplied(ctx, legacyRecentSearchMigration)
}

// migrationApplied checks whether a named migration has been recorded.
func (s *SqliteStorage) migrationApplied(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applied_migrations WHERE name = ?",
		name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check migration state: %w", err)
	}

	return count > 0, nil
}

// SuggestSearches returns distinct recent terms of collectionID that start
// with prefix, most recent first. An empty prefix matches every term.
func (s *SqliteStorage) SuggestSearches(ctx context.Context, collectionID, prefix string) ([]RecentSearchItem, error) {
	entries, err := s.LoadSearch(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	// Value is the recency rank of the term's newest occurrence
	index := dsa.NewTrie[int]()
	for rank, e := range entries {
		index.InsertIfAbsent(e.SearchTerm, rank)
	}

	type ranked struct {
		term string
		rank int
	}
	var matches []ranked
	index.WalkPrefix(prefix, func(term string, rank int) {
		matches = append(matches, ranked{term: term, rank: rank})
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].rank < matches[j].rank
	})

	items := []RecentSearchItem{}
	for _, m := range matches {
		if len(items) >= MaxRecentSearches {
			break
		}
		items = append(items, RecentSearchItem{SearchTerm: m.term})
	}
	return items, nil
}

// Verify SqliteStorage implements RecentSearchStorage
var _ RecentSearchStorage = (*SqliteStorage)(nil)
