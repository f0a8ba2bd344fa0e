// Legacy embedded store reader.
//
// Search history used to live in an embedded object database. The data is
// now read once from its bbolt file during cutover and never written again.

package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// LegacyRecentSearchBucket is the bucket holding legacy search records.
const LegacyRecentSearchBucket = "RecentSearchEntity"

// LegacyRecord is a search history record from the legacy store.
type LegacyRecord struct {
	ID           int64
	SearchTerm   string
	CollectionID string // Empty in records written before collections existed
}

// LegacySource enumerates legacy records for migration.
type LegacySource interface {
	All(ctx context.Context) ([]LegacyRecord, error)
}

// legacyValue is the JSON body stored under each bucket key.
type legacyValue struct {
	SearchTerm string `json:"searchTerm"`
	ZimID      string `json:"zimId,omitempty"`
}

// BoltLegacyStore reads legacy records from a bbolt file.
type BoltLegacyStore struct {
	db *bolt.DB
}

// OpenLegacyBolt opens the legacy bbolt file read-only.
func OpenLegacyBolt(path string) (*BoltLegacyStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy store: %w", err)
	}
	return &BoltLegacyStore{db: db}, nil
}

// Close closes the legacy store.
func (l *BoltLegacyStore) Close() error {
	return l.db.Close()
}

// All returns every legacy record in ascending ID order.
// A store without the bucket yields an empty slice.
func (l *BoltLegacyStore) All(ctx context.Context) ([]LegacyRecord, error) {
	records := []LegacyRecord{}
	err := l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(LegacyRecentSearchBucket))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if len(k) != 8 {
				return fmt.Errorf("invalid legacy key %x", k)
			}
			var val legacyValue
			if err := json.Unmarshal(v, &val); err != nil {
				return fmt.Errorf("failed to decode legacy record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, LegacyRecord{
				ID:           int64(binary.BigEndian.Uint64(k)),
				SearchTerm:   val.SearchTerm,
				CollectionID: val.ZimID,
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy records: %w", err)
	}
	return records, nil
}

var _ LegacySource = (*BoltLegacyStore)(nil)
