// Package entitlements – BoltDB store
//
// BoltStore is the file-backed Store used when no relational database is
// available. All records live in one bucket keyed by provider transaction
// id; the check-then-insert runs inside a single bolt write transaction,
// which serializes writers and makes the insert atomic per key.
package entitlements

import (
	"context"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/acervopress/go-newsstand-backend/internal/domain"
)

const bucketName = "entitlements"

// BoltStore wraps a BoltDB database file and implements Store.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the bolt file at path and ensures the
// entitlements bucket exists.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// FindByTransactionID implements Store.
func (s *BoltStore) FindByTransactionID(_ context.Context, providerTxID string) (*domain.EntitlementRecord, error) {
	var rec domain.EntitlementRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketName)).Get([]byte(providerTxID))
		if v == nil {
			return ErrNotFound
		}
		return json.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertIfAbsent implements Store. The existence check and the write share
// one bolt write transaction, so a concurrent retry for the same transaction
// id either sees the stored record or writes the only copy.
func (s *BoltStore) InsertIfAbsent(_ context.Context, rec *domain.EntitlementRecord) (*domain.EntitlementRecord, bool, error) {
	var result domain.EntitlementRecord
	created := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		if existing := b.Get([]byte(rec.ProviderTransactionID)); existing != nil {
			return json.Unmarshal(existing, &result)
		}

		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.RecordedAt.IsZero() {
			rec.RecordedAt = time.Now().UTC()
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		result = *rec
		created = true
		return b.Put([]byte(rec.ProviderTransactionID), data)
	})
	if err != nil {
		return nil, false, err
	}
	return &result, created, nil
}
