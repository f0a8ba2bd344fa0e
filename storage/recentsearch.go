// Package storage provides recent search history storage.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Change notification plumbing hidden behind channel-returning reads
// - Legacy store format encapsulated in its own reader

package storage

import (
	"context"
)

// MaxRecentSearches caps the number of items a display read returns.
const MaxRecentSearches = 100

// RecentSearchEntry is one stored row of search history.
type RecentSearchEntry struct {
	ID           int64  `json:"id"`            // Insertion order, newest is largest
	SearchTerm   string `json:"search_term"`   // Term exactly as the user typed it
	CollectionID string `json:"collection_id"` // Content collection the search ran against
}

// RecentSearchItem is the display projection of a recent search.
type RecentSearchItem struct {
	SearchTerm string `json:"search_term"`
}

// MigrationResult reports what a legacy import did.
type MigrationResult struct {
	Imported int  `json:"imported"` // Rows inserted by this call
	Skipped  bool `json:"skipped"`  // True when the import had already been applied
}

// RecentSearchStorage defines the interface for storing search history.
type RecentSearchStorage interface {
	// Search streams every entry for collectionID, newest first.
	// A snapshot is sent immediately and again after each committed change.
	// The channel closes when ctx is cancelled or the storage is closed.
	Search(ctx context.Context, collectionID string) <-chan []RecentSearchEntry

	// RecentSearches streams the deduplicated display projection of Search,
	// capped at MaxRecentSearches.
	RecentSearches(ctx context.Context, collectionID string) <-chan []RecentSearchItem

	// SaveSearch records a search. Duplicates are kept; dedup happens on read.
	SaveSearch(ctx context.Context, term, collectionID string) error

	// DeleteSearchString removes every row with this exact term, in all collections.
	DeleteSearchString(ctx context.Context, term string) error

	// DeleteSearchHistory removes all rows.
	DeleteSearchHistory(ctx context.Context) error

	// MigrateLegacyRecords imports the legacy store once.
	// Later calls are no-ops reporting Skipped.
	MigrateLegacyRecords(ctx context.Context, source LegacySource) (MigrationResult, error)
}

// DistinctRecent keeps the first occurrence of each term, in input order,
// and stops after limit items. Input is expected newest first.
func DistinctRecent(entries []RecentSearchEntry, limit int) []RecentSearchItem {
	items := []RecentSearchItem{}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if len(items) >= limit {
			break
		}
		if _, dup := seen[e.SearchTerm]; dup {
			continue
		}
		seen[e.SearchTerm] = struct{}{}
		items = append(items, RecentSearchItem{SearchTerm: e.SearchTerm})
	}
	return items
}
