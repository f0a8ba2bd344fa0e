// Package storagetest builds storage fixtures for tests in other packages.
package storagetest

import (
	"encoding/binary"
	"encoding/json"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"github.com/richinex/zimshelf/storage"
)

// WriteLegacyStore writes records to a new bbolt file laid out like the
// legacy search store and returns its path. The file lives in t.TempDir().
func WriteLegacyStore(t testing.TB, records ...storage.LegacyRecord) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legacy.db")

	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		t.Fatalf("failed to create legacy store: %v", err)
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(storage.LegacyRecentSearchBucket))
		if err != nil {
			return err
		}
		for _, rec := range records {
			value, err := json.Marshal(struct {
				SearchTerm string `json:"searchTerm"`
				ZimID      string `json:"zimId,omitempty"`
			}{rec.SearchTerm, rec.CollectionID})
			if err != nil {
				return err
			}
			key := make([]byte, 8)
			binary.BigEndian.PutUint64(key, uint64(rec.ID))
			if err := b.Put(key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to write legacy records: %v", err)
	}
	return path
}
